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

	"github.com/litebridge/litebridge-wasm/sqldb"
)

// PrepareStatement compiles a statement in the background context and returns
// an opaque handle for it. The statement stays resident until finalized or
// the connection closes.
//
// Parameters:
//   - args[0] - SQL text (string).
//
// Returns a promise:
//   - Resolves to the statement handle (string).
//   - Rejected with an error if compilation fails.
func (d *Database) PrepareStatement(_ js.Value, args []js.Value) any {
	sql := args[0].String()

	promiseFn := func(resolve, reject func(args ...any) js.Value) {
		handle, err := d.api.Prepare(sql)
		if err != nil {
			reject(exception.NewTrace(err))
		} else {
			resolve(string(handle))
		}
	}

	return utils.CreatePromise(promiseFn)
}

// BindStatement applies values to the statement's parameters.
//
// Parameters:
//   - args[0] - Statement handle from [Database.PrepareStatement] (string).
//   - args[1] - JSON array of values to bind (Uint8Array).
//
// Returns a promise:
//   - Resolves to the same statement handle (string).
//   - Rejected with an error if the handle is unknown or the statement is
//     mid-execution.
func (d *Database) BindStatement(_ js.Value, args []js.Value) any {
	handle := sqldb.Handle(args[0].String())

	var values []any
	err := json.Unmarshal(utils.CopyBytesToGo(args[1]), &values)
	if err != nil {
		exception.ThrowTrace(err)
		return nil
	}

	promiseFn := func(resolve, reject func(args ...any) js.Value) {
		handle, err := d.api.Bind(handle, values)
		if err != nil {
			reject(exception.NewTrace(err))
		} else {
			resolve(string(handle))
		}
	}

	return utils.CreatePromise(promiseFn)
}

// StepAndReset advances the statement one step and resets it for reuse.
//
// Parameters:
//   - args[0] - Statement handle from [Database.PrepareStatement] (string).
//
// Returns a promise:
//   - Resolves to a Javascript object with "handle" (string), the same
//     handle ready for further binds, and "row" (boolean), true when the step
//     produced a row.
//   - Rejected with an error if the handle is unknown or the step fails.
func (d *Database) StepAndReset(_ js.Value, args []js.Value) any {
	handle := sqldb.Handle(args[0].String())

	promiseFn := func(resolve, reject func(args ...any) js.Value) {
		handle, row, err := d.api.StepAndReset(handle)
		if err != nil {
			reject(exception.NewTrace(err))
		} else {
			resolve(js.ValueOf(
				map[string]any{"handle": string(handle), "row": row}))
		}
	}

	return utils.CreatePromise(promiseFn)
}

// StepAndFinalize advances the statement one step and then finalizes it,
// invalidating the handle.
//
// Parameters:
//   - args[0] - Statement handle from [Database.PrepareStatement] (string).
//
// Returns a promise:
//   - Resolves to a Javascript object with "row" (boolean), true when the
//     step produced a row, and "code" (number), the engine's finalize result
//     code.
//   - Rejected with an error if the handle is unknown or the step fails.
func (d *Database) StepAndFinalize(_ js.Value, args []js.Value) any {
	handle := sqldb.Handle(args[0].String())

	promiseFn := func(resolve, reject func(args ...any) js.Value) {
		row, code, err := d.api.StepAndFinalize(handle)
		if err != nil {
			reject(exception.NewTrace(err))
		} else {
			resolve(js.ValueOf(map[string]any{"row": row, "code": code}))
		}
	}

	return utils.CreatePromise(promiseFn)
}

// FinalizeStatement releases the statement's resources and invalidates the
// handle.
//
// Parameters:
//   - args[0] - Statement handle from [Database.PrepareStatement] (string).
//
// Returns a promise:
//   - Resolves to the engine's finalize result code (number).
//   - Rejected with an error if the handle is unknown.
func (d *Database) FinalizeStatement(_ js.Value, args []js.Value) any {
	handle := sqldb.Handle(args[0].String())

	promiseFn := func(resolve, reject func(args ...any) js.Value) {
		code, err := d.api.Finalize(handle)
		if err != nil {
			reject(exception.NewTrace(err))
		} else {
			resolve(code)
		}
	}

	return utils.CreatePromise(promiseFn)
}
