////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package sqldb

import (
	jww "github.com/spf13/jwalterweatherman"

	"github.com/litebridge/litebridge-wasm/storage"
	"github.com/litebridge/litebridge-wasm/worker"
)

// workerName is the name given to the database worker thread.
const workerName = "sqldb"

// NewDatabase spawns the database worker from the given Javascript file URL,
// waits for it to signal ready, and connects to the named database. The
// worker selects the best available storage mode; the choice is logged.
func NewDatabase(
	wasmJsPath, databaseName string, params worker.Params) (*Database, error) {
	wm, err := worker.NewManager(wasmJsPath, workerName, params)
	if err != nil {
		return nil, err
	}

	// Store the database name so it can be listed and purged later
	if err = storage.StoreDatabaseName(databaseName); err != nil {
		wm.Stop()
		return nil, err
	}

	db := New(wm)
	mode, err := db.Connect(databaseName)
	if err != nil {
		wm.Stop()
		return nil, err
	}

	jww.INFO.Printf("[SQLW] Connected to %q using %s storage (persistent: %t)",
		databaseName, mode, mode.Persistent())

	// Track the storage mode so a change of tier between loads is visible
	previous, err := storage.StoreStorageMode(databaseName, string(mode))
	if err != nil {
		db.Close()
		wm.Stop()
		return nil, err
	} else if previous != "" && previous != string(mode) {
		jww.WARN.Printf("[SQLW] Database %q moved from %s to %s storage; "+
			"data stored under the old mode may be unavailable",
			databaseName, previous, mode)
	}

	return db, nil
}
