////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package wasm

import (
	"syscall/js"

	"github.com/litebridge/litebridge-wasm/storage"
)

// GetVersion returns the current version of this WASM module.
//
// Returns:
//   - Version (string).
func GetVersion(js.Value, []js.Value) any {
	return storage.SEMVER
}

// GetOldVersion returns the version of this module stored the last time it
// was loaded, or an empty string on the first load.
//
// Returns:
//   - Version (string).
func GetOldVersion(js.Value, []js.Value) any {
	return storage.GetOldVersion()
}
