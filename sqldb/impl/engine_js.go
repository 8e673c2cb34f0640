////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package impl

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"syscall/js"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/wasm-utils/utils"

	"github.com/litebridge/litebridge-wasm/sqldb"
	"github.com/litebridge/litebridge-wasm/storage"
)

// WasmEngine opens databases with the sqlite3 WASM build loaded alongside
// this module. Storage tiers are probed in order: a database file in the
// origin-private file system, an in-memory database snapshotted to IndexedDB,
// and finally a plain in-memory database.
type WasmEngine struct{}

// Compile-time interface satisfaction check.
var _ Engine = (*WasmEngine)(nil)

// NewWasmEngine returns an engine backed by the sqlite3 WASM module.
func NewWasmEngine() *WasmEngine {
	return &WasmEngine{}
}

// Open opens or creates the named database on the best available storage
// tier.
func (e *WasmEngine) Open(
	databaseName string) (Conn, sqldb.StorageMode, error) {
	sqlite3, err := loadSQLite3()
	if err != nil {
		return nil, "", err
	}
	oo1 := sqlite3.Get("oo1")
	if oo1.IsUndefined() {
		return nil, "", errors.New("sqlite3 module does not expose the oo1 API")
	}

	filename := databaseName + ".sqlite"

	// A defined OpfsDb means the OPFS VFS loaded and the database can live
	// in a real file.
	if opfsDb := oo1.Get("OpfsDb"); !opfsDb.IsUndefined() {
		db, err2 := newJsObject(opfsDb, filename, "c")
		if err2 == nil {
			jww.INFO.Printf("[SQLW] Opened %q on the OPFS VFS.", filename)
			return &wasmConn{
				sqlite3:  sqlite3,
				db:       db,
				filename: filename,
				mode:     sqldb.ModeOPFS,
			}, sqldb.ModeOPFS, nil
		}
		jww.WARN.Printf("[SQLW] OPFS VFS is present but opening %q failed; "+
			"falling back to snapshot storage: %+v", filename, err2)
	}

	db, err := newJsObject(oo1.Get("DB"), ":memory:", "c")
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to open in-memory database")
	}
	c := &wasmConn{
		sqlite3:  sqlite3,
		db:       db,
		filename: filename,
		mode:     sqldb.ModeMemory,
	}

	if js.Global().Get("indexedDB").IsUndefined() {
		jww.WARN.Printf("[SQLW] No OPFS and no IndexedDB; database %q is "+
			"memory only and will not survive this session.", databaseName)
		return c, sqldb.ModeMemory, nil
	}

	// Keep the database in memory but snapshot it to IndexedDB, restoring
	// the previous session's snapshot now if one exists.
	c.mode = sqldb.ModeIndexedDB
	c.snapshotName = databaseName
	image, err := storage.LoadSnapshot(databaseName)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			jww.ERROR.Printf("[SQLW] Failed to load snapshot for %q; "+
				"starting empty: %+v", databaseName, err)
		}
	} else if err = c.deserializeMemory(image); err != nil {
		return nil, "", errors.Wrapf(
			err, "failed to restore snapshot for %q", databaseName)
	} else {
		jww.INFO.Printf("[SQLW] Restored %d-byte snapshot for %q from "+
			"IndexedDB.", len(image), databaseName)
	}

	return c, sqldb.ModeIndexedDB, nil
}

// loadSQLite3 returns the sqlite3 WASM module, initialising it first when the
// loader script has not already done so.
func loadSQLite3() (js.Value, error) {
	sqlite3 := js.Global().Get("sqlite3")
	if !sqlite3.IsUndefined() {
		return sqlite3, nil
	}

	initModule := js.Global().Get("sqlite3InitModule")
	if initModule.IsUndefined() {
		return js.Value{}, errors.New("neither sqlite3 nor sqlite3InitModule " +
			"is defined; load sqlite3.js before this binary")
	}

	promise, err := invokeJs(initModule)
	if err != nil {
		return js.Value{}, errors.Wrap(err, "sqlite3InitModule failed")
	}
	result, rejected := utils.Await(promise)
	if rejected != nil {
		return js.Value{}, errors.Errorf(
			"sqlite3InitModule rejected: %s", utils.JsToJson(rejected[0]))
	}

	sqlite3 = result[0]
	js.Global().Set("sqlite3", sqlite3)
	return sqlite3, nil
}

// wasmConn is a live connection to one sqlite3 WASM database.
type wasmConn struct {
	sqlite3  js.Value
	db       js.Value
	filename string
	mode     sqldb.StorageMode

	// snapshotName keys the IndexedDB image the database is persisted to.
	// Empty for databases that do not snapshot.
	snapshotName string
}

var _ Conn = (*wasmConn)(nil)

// Exec runs a complete statement and shapes the result per the request.
func (c *wasmConn) Exec(req sqldb.ExecRequest) (_ *sqldb.ExecResult, err error) {
	defer catchJsException(&err)

	if req.Result == sqldb.ResultValue {
		value, _, err2 := c.SelectValue(req.SQL, req.Bind)
		if err2 != nil {
			return nil, err2
		}
		return &sqldb.ExecResult{Value: value}, nil
	}

	opts := map[string]any{"sql": req.SQL}
	if len(req.Bind) > 0 {
		bind, err2 := bindToJS(req.Bind)
		if err2 != nil {
			return nil, err2
		}
		opts["bind"] = bind
	}

	switch req.Result {
	case sqldb.ResultRows:
		rowMode := "array"
		if req.RowMode == sqldb.RowModeObject {
			rowMode = "object"
		}
		resultRows := js.Global().Get("Array").New()
		columnNames := js.Global().Get("Array").New()
		opts["rowMode"] = rowMode
		opts["resultRows"] = resultRows
		opts["columnNames"] = columnNames

		c.db.Call("exec", opts)

		var columns []string
		err = json.Unmarshal(
			[]byte(utils.JsToJson(columnNames)), &columns)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode column names")
		}

		result := &sqldb.ExecResult{Columns: columns}
		for i := 0; i < resultRows.Length(); i++ {
			row, err2 := rowToGo(resultRows.Index(i), columns, req.RowMode)
			if err2 != nil {
				return nil, err2
			}
			result.Rows = append(result.Rows, row)
		}
		return result, nil

	default: // sqldb.ResultNone
		c.db.Call("exec", opts)
		result := &sqldb.ExecResult{
			RowsAffected: int64(c.db.Call("changes").Int()),
		}
		lastID := c.db.Call("selectValue", "SELECT last_insert_rowid()")
		if lastID.Type() == js.TypeNumber {
			result.LastInsertID = int64(lastID.Float())
		}
		return result, nil
	}
}

// SelectValue runs a query and returns the first column of the first row.
func (c *wasmConn) SelectValue(
	query string, bind []any) (value any, found bool, err error) {
	defer catchJsException(&err)

	args := []any{query}
	if len(bind) > 0 {
		bindJS, err2 := bindToJS(bind)
		if err2 != nil {
			return nil, false, err2
		}
		args = append(args, bindJS)
	}

	v := c.db.Call("selectValue", args...)
	if v.IsUndefined() {
		return nil, false, nil
	}

	value, err = jsToValue(v)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Prepare compiles the statement for repeated execution.
func (c *wasmConn) Prepare(query string) (_ Stmt, err error) {
	defer catchJsException(&err)
	return &wasmStmt{stmt: c.db.Call("prepare", query)}, nil
}

// Serialize returns the database contents as a single image.
func (c *wasmConn) Serialize() (_ []byte, err error) {
	defer catchJsException(&err)
	exported := c.sqlite3.Get("capi").Call("sqlite3_js_db_export", c.db)
	return utils.CopyBytesToGo(exported), nil
}

// Deserialize replaces the database contents with the given image.
func (c *wasmConn) Deserialize(image []byte) (err error) {
	defer catchJsException(&err)

	if c.mode == sqldb.ModeOPFS {
		// Swap the OPFS file out underneath the connection: close, write
		// the image under the same name, reopen.
		c.db.Call("close")
		opfsDb := c.sqlite3.Get("oo1").Get("OpfsDb")
		promise := opfsDb.Call(
			"importDb", c.filename, utils.CopyBytesToJS(image))
		if _, rejected := utils.Await(promise); rejected != nil {
			return errors.Errorf("failed to import database image: %s",
				utils.JsToJson(rejected[0]))
		}

		db, err2 := newJsObject(opfsDb, c.filename, "c")
		if err2 != nil {
			return errors.Wrap(err2, "failed to reopen imported database")
		}
		c.db = db
		return nil
	}

	if err = c.deserializeMemory(image); err != nil {
		return err
	}
	if c.snapshotName != "" {
		if err = storage.StoreSnapshot(c.snapshotName, image); err != nil {
			return errors.Wrap(err, "failed to store imported snapshot")
		}
	}
	return nil
}

// deserializeMemory loads the image into the open in-memory database through
// the C deserialize API.
func (c *wasmConn) deserializeMemory(image []byte) (err error) {
	defer catchJsException(&err)

	capi := c.sqlite3.Get("capi")
	p := c.sqlite3.Get("wasm").Call(
		"allocFromTypedArray", utils.CopyBytesToJS(image))
	flags := capi.Get("SQLITE_DESERIALIZE_FREEONCLOSE").Int() |
		capi.Get("SQLITE_DESERIALIZE_RESIZEABLE").Int()

	rc := capi.Call("sqlite3_deserialize", c.db.Get("pointer"), "main",
		p, len(image), len(image), flags)
	if rc.Int() != 0 {
		return errors.Errorf("sqlite3_deserialize returned code %d", rc.Int())
	}
	return nil
}

// Close releases the connection. Snapshot-backed databases write their final
// image out first so the next session can restore it.
func (c *wasmConn) Close() (err error) {
	defer catchJsException(&err)

	if c.snapshotName != "" {
		image, err2 := c.Serialize()
		if err2 != nil {
			jww.ERROR.Printf("[SQLW] Failed to serialize %q for its closing "+
				"snapshot: %+v", c.snapshotName, err2)
		} else if err2 = storage.StoreSnapshot(
			c.snapshotName, image); err2 != nil {
			jww.ERROR.Printf("[SQLW] Failed to store closing snapshot for "+
				"%q: %+v", c.snapshotName, err2)
		} else {
			jww.INFO.Printf("[SQLW] Stored %d-byte closing snapshot for %q.",
				len(image), c.snapshotName)
		}
	}

	c.db.Call("close")
	return nil
}

// wasmStmt is a compiled statement owned by the sqlite3 WASM module.
type wasmStmt struct {
	stmt js.Value
}

var _ Stmt = (*wasmStmt)(nil)

// Bind replaces the statement's parameter values.
func (s *wasmStmt) Bind(values []any) (err error) {
	defer catchJsException(&err)

	if len(values) == 0 {
		s.stmt.Call("clearBindings")
		return nil
	}

	bindJS, err := bindToJS(values)
	if err != nil {
		return err
	}
	s.stmt.Call("bind", bindJS)
	return nil
}

// Step advances the statement.
func (s *wasmStmt) Step() (row bool, err error) {
	defer catchJsException(&err)
	return s.stmt.Call("step").Bool(), nil
}

// Reset rewinds the statement, keeping its bound values.
func (s *wasmStmt) Reset() (err error) {
	defer catchJsException(&err)
	s.stmt.Call("reset")
	return nil
}

// Finalize releases the statement and returns the engine's result code.
func (s *wasmStmt) Finalize() (code int, err error) {
	defer catchJsException(&err)

	rc := s.stmt.Call("finalize")
	if rc.Type() == js.TypeNumber {
		code = rc.Int()
	}
	return code, nil
}

// catchJsException recovers an exception thrown by a Javascript call and
// stores it in err.
func catchJsException(err *error) {
	if r := recover(); r != nil {
		if jsErr, ok := r.(js.Error); ok {
			*err = errors.Errorf("%s", utils.JsToJson(jsErr.Value))
		} else {
			*err = errors.Errorf("%+v", r)
		}
	}
}

// newJsObject calls the constructor with args, converting a thrown exception
// into an error.
func newJsObject(constructor js.Value, args ...any) (v js.Value, err error) {
	defer catchJsException(&err)
	return constructor.New(args...), nil
}

// invokeJs invokes the function with args, converting a thrown exception into
// an error.
func invokeJs(fn js.Value, args ...any) (v js.Value, err error) {
	defer catchJsException(&err)
	return fn.Invoke(args...), nil
}

// bindToJS converts bind values into a Javascript array.
func bindToJS(bind []any) (js.Value, error) {
	data, err := json.Marshal(bind)
	if err != nil {
		return js.Value{}, errors.Wrap(
			err, "failed to JSON marshal bind values")
	}

	bindJS, err := utils.JsonToJS(data)
	if err != nil {
		return js.Value{}, errors.Wrap(
			err, "failed to convert bind values to Javascript")
	}
	return bindJS, nil
}

// rowToGo converts one result row into its wire form, a value list for
// [sqldb.RowModeList] or a column-keyed map for [sqldb.RowModeObject].
func rowToGo(row js.Value, columns []string, mode sqldb.RowMode) (any, error) {
	if mode == sqldb.RowModeObject {
		obj := make(map[string]any, len(columns))
		for _, name := range columns {
			value, err := jsToValue(row.Get(name))
			if err != nil {
				return nil, err
			}
			obj[name] = value
		}
		return obj, nil
	}

	list := make([]any, row.Length())
	for i := range list {
		value, err := jsToValue(row.Index(i))
		if err != nil {
			return nil, err
		}
		list[i] = value
	}
	return list, nil
}

// jsToValue converts a single database value from Javascript into its wire
// form. Blobs come back from sqlite3 as Uint8Array and become base64 strings;
// everything else converts directly.
func jsToValue(v js.Value) (any, error) {
	switch v.Type() {
	case js.TypeNull, js.TypeUndefined:
		return nil, nil
	case js.TypeBoolean:
		return v.Bool(), nil
	case js.TypeNumber:
		return v.Float(), nil
	case js.TypeString:
		return v.String(), nil
	default:
		if v.InstanceOf(utils.Uint8Array) {
			return base64.StdEncoding.EncodeToString(
				utils.CopyBytesToGo(v)), nil
		}

		var value any
		if err := json.Unmarshal([]byte(utils.JsToJson(v)), &value); err != nil {
			return nil, errors.Wrapf(
				err, "cannot convert %s value from Javascript", v.Type())
		}
		return value, nil
	}
}
