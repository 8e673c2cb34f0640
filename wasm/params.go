////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package wasm

import (
	"encoding/json"
	"syscall/js"

	"gitlab.com/elixxir/wasm-utils/exception"
	"gitlab.com/elixxir/wasm-utils/utils"

	"github.com/litebridge/litebridge-wasm/worker"
)

// GetDefaultWorkerParams returns a JSON serialized object with all of the
// message bridge parameters and their default values. Call this function and
// modify the JSON to change the settings passed to [NewDatabase].
//
// Returns:
//   - JSON of [worker.Params] (Uint8Array).
//   - Throws an error if marshalling fails.
func GetDefaultWorkerParams(js.Value, []js.Value) any {
	data, err := json.Marshal(worker.DefaultParams())
	if err != nil {
		exception.ThrowTrace(err)
		return nil
	}

	return utils.CopyBytesToJS(data)
}
