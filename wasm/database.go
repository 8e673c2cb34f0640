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
	"sync"
	"syscall/js"

	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/wasm-utils/exception"
	"gitlab.com/elixxir/wasm-utils/utils"

	"github.com/litebridge/litebridge-wasm/sqldb"
	"github.com/litebridge/litebridge-wasm/storage"
	"github.com/litebridge/litebridge-wasm/worker"
)

// Database wraps the [sqldb.Database] object so its methods can be wrapped to
// be Javascript compatible.
type Database struct {
	api *sqldb.Database

	// open tracks whether this object currently counts toward the open
	// connection total checked by [storage.Purge].
	open bool
	mux  sync.Mutex
}

// newDatabaseJS creates a new Javascript compatible object (map[string]any)
// that matches the [Database] structure.
func newDatabaseJS(api *sqldb.Database) map[string]any {
	db := &Database{api: api, open: true}
	dbMap := map[string]any{
		// database.go
		"Connect": js.FuncOf(db.Connect),
		"Close":   js.FuncOf(db.Close),

		// exec.go
		"Exec":        js.FuncOf(db.Exec),
		"ExecString":  js.FuncOf(db.ExecString),
		"SelectValue": js.FuncOf(db.SelectValue),

		// statements.go
		"PrepareStatement":  js.FuncOf(db.PrepareStatement),
		"BindStatement":     js.FuncOf(db.BindStatement),
		"StepAndReset":      js.FuncOf(db.StepAndReset),
		"StepAndFinalize":   js.FuncOf(db.StepAndFinalize),
		"FinalizeStatement": js.FuncOf(db.FinalizeStatement),

		// transfer.go
		"ExportDatabase": js.FuncOf(db.ExportDatabase),
		"ImportDatabase": js.FuncOf(db.ImportDatabase),
	}

	return dbMap
}

// NewDatabase spawns a new database worker from the given Javascript file and
// connects to the named database. The worker selects the best storage tier
// the browser offers; the object the promise resolves to is ready for
// queries.
//
// Parameters:
//   - args[0] - URL of the database worker Javascript file (string).
//   - args[1] - Database name (string).
//   - args[2] - JSON of [worker.Params] (Uint8Array). Pass undefined to use
//     [worker.DefaultParams].
//
// Returns a promise:
//   - Resolves to a Javascript representation of the [Database] object.
//   - Rejected with an error if starting the worker or connecting fails.
func NewDatabase(_ js.Value, args []js.Value) any {
	wasmJsPath := args[0].String()
	databaseName := args[1].String()

	params := worker.DefaultParams()
	if len(args) > 2 && !args[2].IsUndefined() {
		err := json.Unmarshal(utils.CopyBytesToGo(args[2]), &params)
		if err != nil {
			exception.ThrowTrace(err)
			return nil
		}
	}

	promiseFn := func(resolve, reject func(args ...any) js.Value) {
		api, err := sqldb.NewDatabase(wasmJsPath, databaseName, params)
		if err != nil {
			reject(exception.NewTrace(err))
		} else {
			storage.IncrementNumConnectionsOpen()
			resolve(newDatabaseJS(api))
		}
	}

	return utils.CreatePromise(promiseFn)
}

// Connect opens the named database, selecting the best available storage
// mode. If a connection is already open, it reports the existing connection's
// mode without reopening anything.
//
// Parameters:
//   - args[0] - Database name (string).
//
// Returns a promise:
//   - Resolves to the storage mode (string).
//   - Rejected with an error if opening the database fails.
func (d *Database) Connect(_ js.Value, args []js.Value) any {
	databaseName := args[0].String()

	promiseFn := func(resolve, reject func(args ...any) js.Value) {
		mode, err := d.api.Connect(databaseName)
		if err != nil {
			reject(exception.NewTrace(err))
			return
		}

		if err = storage.StoreDatabaseName(databaseName); err != nil {
			jww.WARN.Printf("[SQLW] Failed to store database name %q: %+v",
				databaseName, err)
		}

		d.markOpen()
		resolve(string(mode))
	}

	return utils.CreatePromise(promiseFn)
}

// Close releases the database connection and stops counting this object
// against the open connection total. It is safe to call repeatedly; a close
// without a connection is a no-op.
//
// Returns a promise:
//   - Resolves empty on success.
//   - Rejected with an error if the connection failed to close cleanly.
func (d *Database) Close(js.Value, []js.Value) any {
	promiseFn := func(resolve, reject func(args ...any) js.Value) {
		if err := d.api.Close(); err != nil {
			reject(exception.NewTrace(err))
		} else {
			d.markClosed()
			resolve()
		}
	}

	return utils.CreatePromise(promiseFn)
}

// markOpen counts this object toward the open connection total, once.
func (d *Database) markOpen() {
	d.mux.Lock()
	defer d.mux.Unlock()
	if !d.open {
		storage.IncrementNumConnectionsOpen()
		d.open = true
	}
}

// markClosed removes this object from the open connection total, once.
func (d *Database) markClosed() {
	d.mux.Lock()
	defer d.mux.Unlock()
	if d.open {
		storage.DecrementNumConnectionsOpen()
		d.open = false
	}
}
