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
	"sort"
	"syscall/js"

	"gitlab.com/elixxir/wasm-utils/exception"
	"gitlab.com/elixxir/wasm-utils/utils"

	"github.com/litebridge/litebridge-wasm/storage"
)

// StoredDatabases returns the names of all databases this origin has
// connected to through [NewDatabase].
//
// Returns:
//   - JSON array of database names (Uint8Array).
//   - Throws an error if reading the list fails.
func StoredDatabases(js.Value, []js.Value) any {
	list, err := storage.GetDatabaseList()
	if err != nil {
		exception.ThrowTrace(err)
		return nil
	}

	names := make([]string, 0, len(list))
	for name := range list {
		names = append(names, name)
	}
	sort.Strings(names)

	data, err := json.Marshal(names)
	if err != nil {
		exception.ThrowTrace(err)
		return nil
	}

	return utils.CopyBytesToJS(data)
}

// Purge clears all state saved by this module: image snapshots, the stored
// database list, and everything else under its local storage prefix. All
// database connections must be closed first. Database files a worker holds in
// origin-private storage are not touched; import an empty image to clear
// those.
//
// Returns:
//   - Throws an error if a connection is still open or a delete fails.
func Purge(js.Value, []js.Value) any {
	if err := storage.Purge(); err != nil {
		exception.ThrowTrace(err)
	}

	return nil
}
