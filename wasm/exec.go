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

// Exec runs a complete statement against the connection and returns nothing,
// a scalar, or a row sequence depending on the request's result mode.
//
// Parameters:
//   - args[0] - JSON of [sqldb.ExecRequest] (Uint8Array).
//
// Returns a promise:
//   - Resolves to JSON of [sqldb.ExecResult] (Uint8Array).
//   - Rejected with an error if execution fails.
func (d *Database) Exec(_ js.Value, args []js.Value) any {
	var req sqldb.ExecRequest
	err := json.Unmarshal(utils.CopyBytesToGo(args[0]), &req)
	if err != nil {
		exception.ThrowTrace(err)
		return nil
	}

	promiseFn := func(resolve, reject func(args ...any) js.Value) {
		result, err := d.api.Exec(req)
		if err != nil {
			reject(exception.NewTrace(err))
			return
		}

		data, err := json.Marshal(result)
		if err != nil {
			reject(exception.NewTrace(err))
			return
		}

		resolve(utils.CopyBytesToJS(data))
	}

	return utils.CreatePromise(promiseFn)
}

// ExecString runs a bare statement for its side effects only.
//
// Parameters:
//   - args[0] - SQL text (string).
//
// Returns a promise:
//   - Resolves empty on success.
//   - Rejected with an error if execution fails.
func (d *Database) ExecString(_ js.Value, args []js.Value) any {
	sql := args[0].String()

	promiseFn := func(resolve, reject func(args ...any) js.Value) {
		if err := d.api.ExecString(sql); err != nil {
			reject(exception.NewTrace(err))
		} else {
			resolve()
		}
	}

	return utils.CreatePromise(promiseFn)
}

// SelectValue runs a query expected to produce a single scalar and returns
// it.
//
// Parameters:
//   - args[0] - SQL text (string).
//   - args[1] - JSON array of values to bind to statement parameters
//     (Uint8Array). Pass undefined to bind nothing.
//   - args[2] - Type hint coercing the result: "int", "float", "text",
//     "blob", or "bool" (string). Pass undefined or an empty string for no
//     coercion.
//
// Returns a promise:
//   - Resolves to the scalar value, a Uint8Array for a "blob" hint, or
//     undefined when the query matched no row.
//   - Rejected with an error if the query fails.
func (d *Database) SelectValue(_ js.Value, args []js.Value) any {
	sql := args[0].String()

	var bind []any
	if len(args) > 1 && !args[1].IsUndefined() {
		err := json.Unmarshal(utils.CopyBytesToGo(args[1]), &bind)
		if err != nil {
			exception.ThrowTrace(err)
			return nil
		}
	}

	hint := sqldb.HintNone
	if len(args) > 2 && !args[2].IsUndefined() {
		hint = sqldb.TypeHint(args[2].String())
	}

	promiseFn := func(resolve, reject func(args ...any) js.Value) {
		value, found, err := d.api.SelectValue(sql, bind, hint)
		if err != nil {
			reject(exception.NewTrace(err))
		} else if !found {
			resolve(js.Undefined())
		} else if blob, ok := value.([]byte); ok {
			resolve(utils.CopyBytesToJS(blob))
		} else {
			resolve(js.ValueOf(value))
		}
	}

	return utils.CreatePromise(promiseFn)
}
