////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build !js

package impl

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/litebridge/litebridge-wasm/backup"
	"github.com/litebridge/litebridge-wasm/sqldb"
	"github.com/litebridge/litebridge-wasm/worker"
)

// newTestBridge wires a sqldb client to a Manager over an in-process pipe,
// backed by a SQLite engine storing files under baseDir. An empty baseDir
// keeps the database in memory.
func newTestBridge(t testing.TB, baseDir string) (*sqldb.Database, *Manager) {
	mainPort, workerPort := worker.NewPipe()
	params := worker.DefaultParams()
	params.ResponseTimeout = 5 * time.Second

	wtm, err := worker.NewThreadManager(workerPort, "sqldb", params)
	if err != nil {
		t.Fatalf("Failed to create thread manager: %+v", err)
	}
	m := NewManager(wtm, NewConnector(NewSQLiteEngine(baseDir)))
	m.RegisterCallbacks()

	wm, err := worker.NewPortManager(mainPort, "sqldbTest", params)
	if err != nil {
		t.Fatalf("Failed to create port manager: %+v", err)
	}

	wtm.SignalReady()
	if err = wm.WaitForReady(time.Second); err != nil {
		t.Fatalf("Worker did not signal ready: %+v", err)
	}

	t.Cleanup(func() {
		wm.Stop()
		wtm.Stop()
	})

	return sqldb.New(wm), m
}

// Tests the connection lifecycle: operations fail before connect, connecting
// is idempotent, and closing is idempotent and disconnects.
func TestManager_ConnectClose(t *testing.T) {
	db, _ := newTestBridge(t, "")

	// Every operation fails the same way before a connection exists.
	preConnect := map[string]error{}
	preConnect["exec"] = db.ExecString("SELECT 1")
	_, _, preConnect["selectValue"] = db.SelectValue(
		"SELECT 1", nil, sqldb.HintNone)
	_, preConnect["prepare"] = db.Prepare("SELECT 1")
	_, preConnect["bind"] = db.Bind("bogus", []any{1})
	_, _, preConnect["stepAndReset"] = db.StepAndReset("bogus")
	_, _, preConnect["stepAndFinalize"] = db.StepAndFinalize("bogus")
	_, preConnect["finalize"] = db.Finalize("bogus")
	_, preConnect["export"] = db.Export("")
	_, preConnect["import"] = db.Import([]byte("image"), "")
	for op, err := range preConnect {
		if !errors.Is(err, sqldb.ErrNotConnected) {
			t.Errorf("Unexpected %s error before connect."+
				"\nexpected: %v\nreceived: %v",
				op, sqldb.ErrNotConnected, err)
		}
	}

	mode, err := db.Connect("test")
	if err != nil {
		t.Fatalf("Failed to connect: %+v", err)
	}
	if mode != sqldb.ModeMemory {
		t.Errorf("Unexpected storage mode.\nexpected: %s\nreceived: %s",
			sqldb.ModeMemory, mode)
	}
	if mode.Persistent() {
		t.Errorf("Memory storage reported as persistent.")
	}

	if err = db.ExecString(
		"CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("Failed to create table: %+v", err)
	}

	// A second connect reuses the open connection.
	mode, err = db.Connect("otherName")
	if err != nil {
		t.Fatalf("Failed to connect a second time: %+v", err)
	}
	if mode != sqldb.ModeMemory {
		t.Errorf("Unexpected storage mode on reconnect."+
			"\nexpected: %s\nreceived: %s", sqldb.ModeMemory, mode)
	}
	if err = db.ExecString("INSERT INTO people (name) VALUES ('ana')"); err != nil {
		t.Errorf("Table lost by the second connect: %+v", err)
	}

	if err = db.Close(); err != nil {
		t.Fatalf("Failed to close: %+v", err)
	}
	if err = db.Close(); err != nil {
		t.Errorf("Second close errored: %+v", err)
	}

	if err = db.ExecString("SELECT 1"); !errors.Is(err, sqldb.ErrNotConnected) {
		t.Errorf("Unexpected exec error after close."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrNotConnected, err)
	}

	// Reconnecting opens a fresh memory database.
	if _, err = db.Connect("test"); err != nil {
		t.Fatalf("Failed to reconnect: %+v", err)
	}
	err = db.ExecString("INSERT INTO people (name) VALUES ('bob')")
	if !errors.Is(err, sqldb.ErrExecution) {
		t.Errorf("Old table survived into the fresh memory database."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrExecution, err)
	}
}

// Tests complete statement execution in each result shape.
func TestManager_Exec(t *testing.T) {
	db, _ := newTestBridge(t, "")
	if _, err := db.Connect("test"); err != nil {
		t.Fatalf("Failed to connect: %+v", err)
	}
	if err := db.ExecString("CREATE TABLE people " +
		"(id INTEGER PRIMARY KEY, name TEXT, age INTEGER)"); err != nil {
		t.Fatalf("Failed to create table: %+v", err)
	}

	// Structured insert with bound values.
	result, err := db.Exec(sqldb.ExecRequest{
		SQL:  "INSERT INTO people (name, age) VALUES (?, ?)",
		Bind: []any{"ana", 34},
	})
	if err != nil {
		t.Fatalf("Failed to insert: %+v", err)
	}
	if result.RowsAffected != 1 {
		t.Errorf("Unexpected rows affected.\nexpected: %d\nreceived: %d",
			1, result.RowsAffected)
	}
	if result.LastInsertID != 1 {
		t.Errorf("Unexpected last insert ID.\nexpected: %d\nreceived: %d",
			1, result.LastInsertID)
	}

	for _, row := range [][]any{{"bob", 61}, {"cam", 19}} {
		if _, err = db.Exec(sqldb.ExecRequest{
			SQL:  "INSERT INTO people (name, age) VALUES (?, ?)",
			Bind: row,
		}); err != nil {
			t.Fatalf("Failed to insert %v: %+v", row, err)
		}
	}

	// Rows as lists in column order.
	result, err = db.Exec(sqldb.ExecRequest{
		SQL:     "SELECT name, age FROM people WHERE age > ? ORDER BY age",
		Bind:    []any{20},
		Result:  sqldb.ResultRows,
		RowMode: sqldb.RowModeList,
	})
	if err != nil {
		t.Fatalf("Failed to select rows: %+v", err)
	}
	expectedColumns := []string{"name", "age"}
	if len(result.Columns) != len(expectedColumns) ||
		result.Columns[0] != "name" || result.Columns[1] != "age" {
		t.Errorf("Unexpected columns.\nexpected: %v\nreceived: %v",
			expectedColumns, result.Columns)
	}
	expectedRows := []([]any){{"ana", float64(34)}, {"bob", float64(61)}}
	if len(result.Rows) != len(expectedRows) {
		t.Fatalf("Unexpected row count.\nexpected: %d\nreceived: %d",
			len(expectedRows), len(result.Rows))
	}
	for i, expected := range expectedRows {
		row, ok := result.Rows[i].([]any)
		if !ok {
			t.Fatalf("Row %d is %T, not a list.", i, result.Rows[i])
		}
		if row[0] != expected[0] || row[1] != expected[1] {
			t.Errorf("Unexpected row %d.\nexpected: %v\nreceived: %v",
				i, expected, row)
		}
	}

	// Rows as column-keyed objects.
	result, err = db.Exec(sqldb.ExecRequest{
		SQL:     "SELECT name, age FROM people WHERE name = 'cam'",
		Result:  sqldb.ResultRows,
		RowMode: sqldb.RowModeObject,
	})
	if err != nil {
		t.Fatalf("Failed to select object rows: %+v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("Unexpected row count.\nexpected: %d\nreceived: %d",
			1, len(result.Rows))
	}
	obj, ok := result.Rows[0].(map[string]any)
	if !ok {
		t.Fatalf("Row is %T, not an object.", result.Rows[0])
	}
	if obj["name"] != "cam" || obj["age"] != float64(19) {
		t.Errorf("Unexpected object row.\nexpected: %v\nreceived: %v",
			map[string]any{"name": "cam", "age": float64(19)}, obj)
	}

	// A query matching nothing still reports its columns.
	result, err = db.Exec(sqldb.ExecRequest{
		SQL:    "SELECT name FROM people WHERE age > 200",
		Result: sqldb.ResultRows,
	})
	if err != nil {
		t.Fatalf("Failed to select empty rows: %+v", err)
	}
	if len(result.Rows) != 0 {
		t.Errorf("Unexpected rows.\nexpected: none\nreceived: %v",
			result.Rows)
	}
	if len(result.Columns) != 1 || result.Columns[0] != "name" {
		t.Errorf("Unexpected columns.\nexpected: %v\nreceived: %v",
			[]string{"name"}, result.Columns)
	}

	// A single value.
	result, err = db.Exec(sqldb.ExecRequest{
		SQL:    "SELECT COUNT(*) FROM people",
		Result: sqldb.ResultValue,
	})
	if err != nil {
		t.Fatalf("Failed to select value: %+v", err)
	}
	if result.Value != float64(3) {
		t.Errorf("Unexpected value.\nexpected: %v\nreceived: %v",
			float64(3), result.Value)
	}
}

// Tests single-value queries, including the no-row, NULL, and type hint
// behaviors.
func TestManager_SelectValue(t *testing.T) {
	db, _ := newTestBridge(t, "")
	if _, err := db.Connect("test"); err != nil {
		t.Fatalf("Failed to connect: %+v", err)
	}
	if err := db.ExecString("CREATE TABLE items " +
		"(id INTEGER PRIMARY KEY, label TEXT, price REAL, data BLOB, " +
		"active INTEGER)"); err != nil {
		t.Fatalf("Failed to create table: %+v", err)
	}

	// A NULL aggregate over an empty table is found, and the integer hint
	// turns it into a usable zero.
	value, found, err := db.SelectValue(
		"SELECT max(id) FROM items", nil, sqldb.HintInt)
	if err != nil {
		t.Fatalf("Failed to select max over empty table: %+v", err)
	}
	if !found {
		t.Error("Aggregate over an empty table reported no row.")
	}
	if value != int64(0) {
		t.Errorf("Unexpected value.\nexpected: %v\nreceived: %v",
			int64(0), value)
	}

	// No matching row at all is not found.
	_, found, err = db.SelectValue(
		"SELECT id FROM items WHERE id = 5", nil, sqldb.HintInt)
	if err != nil {
		t.Fatalf("Failed to select missing row: %+v", err)
	}
	if found {
		t.Error("Missing row reported as found.")
	}

	if err = db.ExecString("INSERT INTO items (label, price, data, active) " +
		"VALUES ('wrench', 9.75, X'00FF10', 1)"); err != nil {
		t.Fatalf("Failed to insert: %+v", err)
	}

	// Each hint coerces to its concrete Go type.
	value, _, err = db.SelectValue(
		"SELECT id FROM items", nil, sqldb.HintInt)
	if err != nil || value != int64(1) {
		t.Errorf("Unexpected int value (err %v).\nexpected: %v\nreceived: %v",
			err, int64(1), value)
	}

	value, _, err = db.SelectValue(
		"SELECT price FROM items", nil, sqldb.HintFloat)
	if err != nil || value != 9.75 {
		t.Errorf("Unexpected float value (err %v)."+
			"\nexpected: %v\nreceived: %v", err, 9.75, value)
	}

	value, _, err = db.SelectValue(
		"SELECT label FROM items", nil, sqldb.HintText)
	if err != nil || value != "wrench" {
		t.Errorf("Unexpected text value (err %v)."+
			"\nexpected: %v\nreceived: %v", err, "wrench", value)
	}

	value, _, err = db.SelectValue(
		"SELECT data FROM items", nil, sqldb.HintBlob)
	if err != nil {
		t.Fatalf("Failed to select blob: %+v", err)
	}
	if !bytes.Equal(value.([]byte), []byte{0x00, 0xFF, 0x10}) {
		t.Errorf("Unexpected blob value.\nexpected: %v\nreceived: %v",
			[]byte{0x00, 0xFF, 0x10}, value)
	}

	value, _, err = db.SelectValue(
		"SELECT active FROM items", nil, sqldb.HintBool)
	if err != nil || value != true {
		t.Errorf("Unexpected bool value (err %v)."+
			"\nexpected: %v\nreceived: %v", err, true, value)
	}

	// With a bound parameter.
	value, found, err = db.SelectValue(
		"SELECT label FROM items WHERE id = ?", []any{1}, sqldb.HintText)
	if err != nil || !found || value != "wrench" {
		t.Errorf("Unexpected bound select (err %v, found %t)."+
			"\nexpected: %v\nreceived: %v", err, found, "wrench", value)
	}
}

// Tests the prepared statement lifecycle over the bridge: prepare, bind, step
// loops, and both finalize paths emptying the registry.
func TestManager_Statements(t *testing.T) {
	db, m := newTestBridge(t, "")
	if _, err := db.Connect("test"); err != nil {
		t.Fatalf("Failed to connect: %+v", err)
	}
	if err := db.ExecString("CREATE TABLE people " +
		"(id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("Failed to create table: %+v", err)
	}

	handle, err := db.Prepare("INSERT INTO people (name) VALUES (?)")
	if err != nil {
		t.Fatalf("Failed to prepare: %+v", err)
	}
	if m.registry.Len() != 1 {
		t.Errorf("Unexpected registry size.\nexpected: %d\nreceived: %d",
			1, m.registry.Len())
	}

	// Bind and step repeatedly through the same handle.
	for _, name := range []string{"ana", "bob", "cam"} {
		if _, err = db.Bind(handle, []any{name}); err != nil {
			t.Fatalf("Failed to bind %q: %+v", name, err)
		}
		_, row, err := db.StepAndReset(handle)
		if err != nil {
			t.Fatalf("Failed to step for %q: %+v", name, err)
		}
		if row {
			t.Errorf("Insert step for %q reported a row.", name)
		}
	}

	count, _, err := db.SelectValue(
		"SELECT COUNT(*) FROM people", nil, sqldb.HintInt)
	if err != nil {
		t.Fatalf("Failed to count: %+v", err)
	}
	if count != int64(3) {
		t.Errorf("Unexpected row count.\nexpected: %v\nreceived: %v",
			int64(3), count)
	}

	code, err := db.Finalize(handle)
	if err != nil {
		t.Fatalf("Failed to finalize: %+v", err)
	}
	if code != 0 {
		t.Errorf("Unexpected finalize code.\nexpected: %d\nreceived: %d",
			0, code)
	}
	if m.registry.Len() != 0 {
		t.Errorf("Registry not empty after finalize: %d statements remain.",
			m.registry.Len())
	}

	// The handle is gone once finalized.
	if _, err = db.Finalize(handle); !errors.Is(err, sqldb.ErrUnknownHandle) {
		t.Errorf("Unexpected error finalizing twice."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrUnknownHandle, err)
	}
	if _, err = db.Bind(handle, []any{"dan"}); !errors.Is(err, sqldb.ErrUnknownHandle) {
		t.Errorf("Unexpected error binding a finalized handle."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrUnknownHandle, err)
	}

	// Stepping without a bind is legal for statements without parameters.
	handle, err = db.Prepare("INSERT INTO people (name) VALUES ('dan')")
	if err != nil {
		t.Fatalf("Failed to prepare parameterless insert: %+v", err)
	}
	if _, _, err = db.StepAndReset(handle); err != nil {
		t.Fatalf("Failed to step without bind: %+v", err)
	}
	if _, err = db.Finalize(handle); err != nil {
		t.Fatalf("Failed to finalize: %+v", err)
	}

	// Step-and-finalize runs one step and retires the handle in one trip.
	handle, err = db.Prepare("SELECT name FROM people")
	if err != nil {
		t.Fatalf("Failed to prepare select: %+v", err)
	}
	row, code, err := db.StepAndFinalize(handle)
	if err != nil {
		t.Fatalf("Failed to step and finalize: %+v", err)
	}
	if !row {
		t.Error("Select step did not report an available row.")
	}
	if code != 0 {
		t.Errorf("Unexpected finalize code.\nexpected: %d\nreceived: %d",
			0, code)
	}
	if m.registry.Len() != 0 {
		t.Errorf("Registry not empty after step and finalize: %d "+
			"statements remain.", m.registry.Len())
	}
	if _, _, err = db.StepAndReset(handle); !errors.Is(err, sqldb.ErrUnknownHandle) {
		t.Errorf("Unexpected error stepping a retired handle."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrUnknownHandle, err)
	}
}

// Tests that closing the connection finalizes the statements prepared on it.
func TestManager_Close_FinalizesStatements(t *testing.T) {
	db, m := newTestBridge(t, "")
	if _, err := db.Connect("test"); err != nil {
		t.Fatalf("Failed to connect: %+v", err)
	}

	handle, err := db.Prepare("SELECT 1")
	if err != nil {
		t.Fatalf("Failed to prepare: %+v", err)
	}
	if _, err = db.Prepare("SELECT 2"); err != nil {
		t.Fatalf("Failed to prepare second statement: %+v", err)
	}

	if err = db.Close(); err != nil {
		t.Fatalf("Failed to close: %+v", err)
	}
	if m.registry.Len() != 0 {
		t.Errorf("Registry not empty after close: %d statements remain.",
			m.registry.Len())
	}

	if _, _, err = db.StepAndReset(handle); !errors.Is(err, sqldb.ErrNotConnected) {
		t.Errorf("Unexpected error stepping after close."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrNotConnected, err)
	}

	// After reconnecting, the old handle no longer exists.
	if _, err = db.Connect("test"); err != nil {
		t.Fatalf("Failed to reconnect: %+v", err)
	}
	if _, _, err = db.StepAndReset(handle); !errors.Is(err, sqldb.ErrUnknownHandle) {
		t.Errorf("Unexpected error stepping a stale handle."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrUnknownHandle, err)
	}
}

// Tests that engine rejections surface as execution errors with the engine's
// message attached.
func TestManager_ExecutionErrors(t *testing.T) {
	db, _ := newTestBridge(t, "")
	if _, err := db.Connect("test"); err != nil {
		t.Fatalf("Failed to connect: %+v", err)
	}

	err := db.ExecString("CREATE TABLE people (id INTEGER PRIMARY KEY)")
	if err != nil {
		t.Fatalf("Failed to create table: %+v", err)
	}

	if err = db.ExecString("NOT REAL SQL"); !errors.Is(err, sqldb.ErrExecution) {
		t.Errorf("Unexpected syntax error kind."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrExecution, err)
	}

	if _, err = db.Prepare("SELECT * FROM missing"); !errors.Is(err, sqldb.ErrExecution) {
		t.Errorf("Unexpected prepare error kind."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrExecution, err)
	}

	if err = db.ExecString("INSERT INTO people (id) VALUES (1)"); err != nil {
		t.Fatalf("Failed to insert: %+v", err)
	}
	err = db.ExecString("INSERT INTO people (id) VALUES (1)")
	if !errors.Is(err, sqldb.ErrExecution) {
		t.Errorf("Unexpected constraint error kind."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrExecution, err)
	}

	var typed *sqldb.Error
	if !errors.As(err, &typed) {
		t.Fatalf("Constraint error is %T, not a typed database error.", err)
	}
	if typed.Message == "" {
		t.Error("Constraint error carries no message.")
	}
}

// Tests exporting a database image and importing it into another database,
// raw and passphrase-sealed.
func TestManager_ExportImport(t *testing.T) {
	source, _ := newTestBridge(t, t.TempDir())
	mode, err := source.Connect("source")
	if err != nil {
		t.Fatalf("Failed to connect source: %+v", err)
	}
	if mode != sqldb.ModeFile {
		t.Fatalf("Unexpected source storage mode."+
			"\nexpected: %s\nreceived: %s", sqldb.ModeFile, mode)
	}

	if err = source.ExecString("CREATE TABLE people " +
		"(id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("Failed to create table: %+v", err)
	}
	for _, name := range []string{"ana", "bob"} {
		if _, err = source.Exec(sqldb.ExecRequest{
			SQL:  "INSERT INTO people (name) VALUES (?)",
			Bind: []any{name},
		}); err != nil {
			t.Fatalf("Failed to insert %q: %+v", name, err)
		}
	}

	// A raw export is a plain SQLite image.
	image, err := source.Export("")
	if err != nil {
		t.Fatalf("Failed to export: %+v", err)
	}
	if !bytes.HasPrefix(image, []byte("SQLite format 3\x00")) {
		t.Errorf("Raw export does not start with the SQLite header: %q",
			image[:16])
	}

	// A sealed export is not.
	sealed, err := source.Export("passphrase")
	if err != nil {
		t.Fatalf("Failed to export sealed: %+v", err)
	}
	if !backup.IsSealed(sealed) {
		t.Error("Sealed export missing the sealed envelope.")
	}

	// Import the raw image into a fresh file-backed database.
	target, _ := newTestBridge(t, t.TempDir())
	if _, err = target.Connect("target"); err != nil {
		t.Fatalf("Failed to connect target: %+v", err)
	}
	mode, err = target.Import(image, "")
	if err != nil {
		t.Fatalf("Failed to import raw image: %+v", err)
	}
	if mode != sqldb.ModeFile {
		t.Errorf("Unexpected storage mode after import."+
			"\nexpected: %s\nreceived: %s", sqldb.ModeFile, mode)
	}
	count, _, err := target.SelectValue(
		"SELECT COUNT(*) FROM people", nil, sqldb.HintInt)
	if err != nil {
		t.Fatalf("Failed to count imported rows: %+v", err)
	}
	if count != int64(2) {
		t.Errorf("Unexpected imported row count."+
			"\nexpected: %v\nreceived: %v", int64(2), count)
	}

	// The sealed image only opens with the right passphrase.
	if _, err = target.Import(sealed, "wrong"); !errors.Is(err, sqldb.ErrDecryption) {
		t.Errorf("Unexpected error importing with wrong passphrase."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrDecryption, err)
	}
	if _, err = target.Import(sealed, ""); !errors.Is(err, sqldb.ErrDecryption) {
		t.Errorf("Unexpected error importing sealed without passphrase."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrDecryption, err)
	}
	if _, err = target.Import(sealed, "passphrase"); err != nil {
		t.Fatalf("Failed to import sealed image: %+v", err)
	}

	// The target database survives the import on disk: close and reopen.
	if err = target.Close(); err != nil {
		t.Fatalf("Failed to close target: %+v", err)
	}
	if _, err = target.Connect("target"); err != nil {
		t.Fatalf("Failed to reopen target: %+v", err)
	}
	name, _, err := target.SelectValue(
		"SELECT name FROM people WHERE id = 1", nil, sqldb.HintText)
	if err != nil {
		t.Fatalf("Failed to read reopened target: %+v", err)
	}
	if name != "ana" {
		t.Errorf("Unexpected name after reopen.\nexpected: %q\nreceived: %v",
			"ana", name)
	}
}

// Tests the response envelopes the callbacks put on the wire, including paths
// the typed client never produces: request bytes that do not decode and
// fabricated handle strings.
func TestManager_WireEnvelopes(t *testing.T) {
	m := NewManager(nil, NewConnector(NewSQLiteEngine("")))

	// A request that does not decode still produces a response envelope.
	data, err := m.execCB([]byte("{not json"))
	require.NoError(t, err)
	var execResp sqldb.ExecResponse
	require.NoError(t, json.Unmarshal(data, &execResp))
	require.NotNil(t, execResp.Error)
	require.Equal(t, sqldb.KindExecution, execResp.Error.Kind)

	// Before a connection exists, the kind is notConnected.
	data, err = m.execCB([]byte(`{"sql": "SELECT 1"}`))
	require.NoError(t, err)
	execResp = sqldb.ExecResponse{}
	require.NoError(t, json.Unmarshal(data, &execResp))
	require.NotNil(t, execResp.Error)
	require.Equal(t, sqldb.KindNotConnected, execResp.Error.Kind)

	// Connecting reports the storage mode with no error field.
	payload, err := json.Marshal(sqldb.ConnectMessage{DatabaseName: "wire"})
	require.NoError(t, err)
	data, err = m.connectCB(payload)
	require.NoError(t, err)
	var connResp sqldb.ConnectResponse
	require.NoError(t, json.Unmarshal(data, &connResp))
	require.Nil(t, connResp.Error)
	require.Equal(t, sqldb.ModeMemory, connResp.StorageMode)

	for _, stmt := range []string{
		"CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO t (name) VALUES ('ana'), ('bob')",
	} {
		payload, err = json.Marshal(sqldb.ExecRequest{SQL: stmt})
		require.NoError(t, err)
		data, err = m.execCB(payload)
		require.NoError(t, err)
		execResp = sqldb.ExecResponse{}
		require.NoError(t, json.Unmarshal(data, &execResp))
		require.Nil(t, execResp.Error)
	}

	// Row results cross the boundary as JSON, so integers arrive as float64.
	payload, err = json.Marshal(sqldb.ExecRequest{
		SQL:     "SELECT id, name FROM t ORDER BY id",
		Result:  sqldb.ResultRows,
		RowMode: sqldb.RowModeList,
	})
	require.NoError(t, err)
	data, err = m.execCB(payload)
	require.NoError(t, err)
	execResp = sqldb.ExecResponse{}
	require.NoError(t, json.Unmarshal(data, &execResp))
	require.Nil(t, execResp.Error)

	expected := &sqldb.ExecResult{
		Columns: []string{"id", "name"},
		Rows: []any{
			[]any{float64(1), "ana"},
			[]any{float64(2), "bob"},
		},
	}
	if diff := cmp.Diff(expected, execResp.Result); diff != "" {
		t.Errorf("Unexpected result (-expected +received):\n%s", diff)
	}

	// A handle invented by the caller reports unknownHandle.
	payload, err = json.Marshal(sqldb.StepMessage{Handle: "fabricated"})
	require.NoError(t, err)
	data, err = m.stepAndResetCB(payload)
	require.NoError(t, err)
	var stepResp sqldb.StepResponse
	require.NoError(t, json.Unmarshal(data, &stepResp))
	require.NotNil(t, stepResp.Error)
	require.Equal(t, sqldb.KindUnknownHandle, stepResp.Error.Kind)

	// Closing twice stays error-free on the wire.
	for i := 0; i < 2; i++ {
		data, err = m.closeCB(nil)
		require.NoError(t, err)
		var closeResp sqldb.CloseResponse
		require.NoError(t, json.Unmarshal(data, &closeResp))
		require.Nil(t, closeResp.Error)
	}
}

// Tests that importing into a memory database reports an execution error,
// since there is no file to replace.
func TestManager_Import_MemoryDatabase(t *testing.T) {
	db, _ := newTestBridge(t, "")
	if _, err := db.Connect("test"); err != nil {
		t.Fatalf("Failed to connect: %+v", err)
	}

	_, err := db.Import([]byte("SQLite format 3\x00"), "")
	if !errors.Is(err, sqldb.ErrExecution) {
		t.Errorf("Unexpected error importing into memory database."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrExecution, err)
	}
}
