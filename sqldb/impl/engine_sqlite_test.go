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
	"os"
	"path/filepath"
	"testing"

	"github.com/litebridge/litebridge-wasm/sqldb"
)

// Tests that an engine without a base directory opens memory databases.
func TestSQLiteEngine_Open_Memory(t *testing.T) {
	conn, mode, err := NewSQLiteEngine("").Open("test")
	if err != nil {
		t.Fatalf("Failed to open: %+v", err)
	}
	defer conn.Close()

	if mode != sqldb.ModeMemory {
		t.Errorf("Unexpected storage mode.\nexpected: %s\nreceived: %s",
			sqldb.ModeMemory, mode)
	}
	if _, err = conn.Exec(sqldb.ExecRequest{
		SQL: "CREATE TABLE t (id INTEGER)"}); err != nil {
		t.Errorf("Failed to execute on memory database: %+v", err)
	}
}

// Tests that a file-backed engine creates the database file and that its
// contents survive a close and reopen.
func TestSQLiteEngine_Open_File(t *testing.T) {
	dir := t.TempDir()
	engine := NewSQLiteEngine(dir)

	conn, mode, err := engine.Open("people")
	if err != nil {
		t.Fatalf("Failed to open: %+v", err)
	}
	if mode != sqldb.ModeFile {
		t.Errorf("Unexpected storage mode.\nexpected: %s\nreceived: %s",
			sqldb.ModeFile, mode)
	}

	if _, err = conn.Exec(sqldb.ExecRequest{
		SQL: "CREATE TABLE t (id INTEGER)"}); err != nil {
		t.Fatalf("Failed to create table: %+v", err)
	}
	if _, err = conn.Exec(sqldb.ExecRequest{
		SQL: "INSERT INTO t (id) VALUES (42)"}); err != nil {
		t.Fatalf("Failed to insert: %+v", err)
	}

	path := filepath.Join(dir, "people.sqlite")
	if _, err = os.Stat(path); err != nil {
		t.Errorf("Database file missing: %+v", err)
	}

	if err = conn.Close(); err != nil {
		t.Fatalf("Failed to close: %+v", err)
	}

	conn, _, err = engine.Open("people")
	if err != nil {
		t.Fatalf("Failed to reopen: %+v", err)
	}
	defer conn.Close()

	value, found, err := conn.SelectValue("SELECT id FROM t", nil)
	if err != nil {
		t.Fatalf("Failed to read reopened database: %+v", err)
	}
	if !found || value != int64(42) {
		t.Errorf("Unexpected value after reopen (found %t)."+
			"\nexpected: %v\nreceived: %v", found, int64(42), value)
	}
}

// Tests that the engine falls back to memory storage when the base directory
// cannot be created.
func TestSQLiteEngine_Open_BadBaseDir(t *testing.T) {
	// A path under a regular file cannot be created as a directory.
	file := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
		t.Fatalf("Failed to write blocking file: %+v", err)
	}

	conn, mode, err := NewSQLiteEngine(
		filepath.Join(file, "sub")).Open("test")
	if err != nil {
		t.Fatalf("Failed to open: %+v", err)
	}
	defer conn.Close()

	if mode != sqldb.ModeMemory {
		t.Errorf("Unexpected storage mode.\nexpected: %s\nreceived: %s",
			sqldb.ModeMemory, mode)
	}
}

// Tests serializing a database and restoring the image into another
// file-backed database.
func TestSQLiteConn_SerializeDeserialize(t *testing.T) {
	source, _, err := NewSQLiteEngine(t.TempDir()).Open("source")
	if err != nil {
		t.Fatalf("Failed to open source: %+v", err)
	}
	defer source.Close()

	if _, err = source.Exec(sqldb.ExecRequest{
		SQL: "CREATE TABLE t (id INTEGER)"}); err != nil {
		t.Fatalf("Failed to create table: %+v", err)
	}
	if _, err = source.Exec(sqldb.ExecRequest{
		SQL: "INSERT INTO t (id) VALUES (7)"}); err != nil {
		t.Fatalf("Failed to insert: %+v", err)
	}

	image, err := source.Serialize()
	if err != nil {
		t.Fatalf("Failed to serialize: %+v", err)
	}
	if !bytes.HasPrefix(image, []byte("SQLite format 3\x00")) {
		t.Fatalf("Image does not start with the SQLite header: %q",
			image[:16])
	}

	target, _, err := NewSQLiteEngine(t.TempDir()).Open("target")
	if err != nil {
		t.Fatalf("Failed to open target: %+v", err)
	}
	defer target.Close()

	if err = target.Deserialize(image); err != nil {
		t.Fatalf("Failed to deserialize: %+v", err)
	}

	value, found, err := target.SelectValue("SELECT id FROM t", nil)
	if err != nil {
		t.Fatalf("Failed to read imported database: %+v", err)
	}
	if !found || value != int64(7) {
		t.Errorf("Unexpected imported value (found %t)."+
			"\nexpected: %v\nreceived: %v", found, int64(7), value)
	}
}

// Tests that a memory database serializes but refuses to deserialize, since
// there is no file to replace.
func TestSQLiteConn_Memory_Serialization(t *testing.T) {
	conn, _, err := NewSQLiteEngine("").Open("test")
	if err != nil {
		t.Fatalf("Failed to open: %+v", err)
	}
	defer conn.Close()

	if _, err = conn.Exec(sqldb.ExecRequest{
		SQL: "CREATE TABLE t (id INTEGER)"}); err != nil {
		t.Fatalf("Failed to create table: %+v", err)
	}

	image, err := conn.Serialize()
	if err != nil {
		t.Fatalf("Failed to serialize memory database: %+v", err)
	}
	if !bytes.HasPrefix(image, []byte("SQLite format 3\x00")) {
		t.Errorf("Image does not start with the SQLite header: %q",
			image[:16])
	}

	if err = conn.Deserialize(image); err == nil {
		t.Error("Deserializing into a memory database did not fail.")
	}
}

// Tests stepping a prepared query through its rows, including re-execution
// after the cursor runs out.
func TestSQLiteStmt_Step(t *testing.T) {
	conn, _, err := NewSQLiteEngine("").Open("test")
	if err != nil {
		t.Fatalf("Failed to open: %+v", err)
	}
	defer conn.Close()

	setup := []string{
		"CREATE TABLE t (id INTEGER)",
		"INSERT INTO t (id) VALUES (1), (2), (3)",
	}
	for _, stmt := range setup {
		if _, err = conn.Exec(sqldb.ExecRequest{SQL: stmt}); err != nil {
			t.Fatalf("Failed to execute %q: %+v", stmt, err)
		}
	}

	stmt, err := conn.Prepare("SELECT id FROM t")
	if err != nil {
		t.Fatalf("Failed to prepare: %+v", err)
	}
	defer stmt.Finalize()

	for i := 0; i < 3; i++ {
		row, err := stmt.Step()
		if err != nil {
			t.Fatalf("Failed step %d: %+v", i, err)
		}
		if !row {
			t.Fatalf("Step %d reported no row.", i)
		}
	}
	row, err := stmt.Step()
	if err != nil {
		t.Fatalf("Failed final step: %+v", err)
	}
	if row {
		t.Error("Exhausted statement still reported a row.")
	}

	// The cursor is released on exhaustion; the next step starts over.
	row, err = stmt.Step()
	if err != nil {
		t.Fatalf("Failed to step after exhaustion: %+v", err)
	}
	if !row {
		t.Error("Statement did not re-execute after exhaustion.")
	}
}

// Tests that binding is rejected while a cursor is open and accepted again
// after a reset.
func TestSQLiteStmt_Bind_MidExecution(t *testing.T) {
	conn, _, err := NewSQLiteEngine("").Open("test")
	if err != nil {
		t.Fatalf("Failed to open: %+v", err)
	}
	defer conn.Close()

	setup := []string{
		"CREATE TABLE t (id INTEGER)",
		"INSERT INTO t (id) VALUES (1), (2)",
	}
	for _, stmt := range setup {
		if _, err = conn.Exec(sqldb.ExecRequest{SQL: stmt}); err != nil {
			t.Fatalf("Failed to execute %q: %+v", stmt, err)
		}
	}

	stmt, err := conn.Prepare("SELECT id FROM t WHERE id >= ?")
	if err != nil {
		t.Fatalf("Failed to prepare: %+v", err)
	}
	defer stmt.Finalize()

	if err = stmt.Bind([]any{1}); err != nil {
		t.Fatalf("Failed to bind: %+v", err)
	}
	if _, err = stmt.Step(); err != nil {
		t.Fatalf("Failed to step: %+v", err)
	}

	if err = stmt.Bind([]any{2}); err == nil {
		t.Error("Binding mid-execution did not fail.")
	}

	if err = stmt.Reset(); err != nil {
		t.Fatalf("Failed to reset: %+v", err)
	}
	if err = stmt.Bind([]any{2}); err != nil {
		t.Errorf("Failed to bind after reset: %+v", err)
	}
}

// Tests that bound values survive a reset, so a statement steps with the
// same parameters until they are replaced.
func TestSQLiteStmt_Reset_KeepsBound(t *testing.T) {
	conn, _, err := NewSQLiteEngine("").Open("test")
	if err != nil {
		t.Fatalf("Failed to open: %+v", err)
	}
	defer conn.Close()

	if _, err = conn.Exec(sqldb.ExecRequest{
		SQL: "CREATE TABLE t (id INTEGER)"}); err != nil {
		t.Fatalf("Failed to create table: %+v", err)
	}

	stmt, err := conn.Prepare("INSERT INTO t (id) VALUES (?)")
	if err != nil {
		t.Fatalf("Failed to prepare: %+v", err)
	}
	defer stmt.Finalize()

	if err = stmt.Bind([]any{9}); err != nil {
		t.Fatalf("Failed to bind: %+v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err = stmt.Step(); err != nil {
			t.Fatalf("Failed step %d: %+v", i, err)
		}
		if err = stmt.Reset(); err != nil {
			t.Fatalf("Failed reset %d: %+v", i, err)
		}
	}

	value, _, err := conn.SelectValue(
		"SELECT COUNT(*) FROM t WHERE id = 9", nil)
	if err != nil {
		t.Fatalf("Failed to count: %+v", err)
	}
	if value != int64(2) {
		t.Errorf("Unexpected count.\nexpected: %v\nreceived: %v",
			int64(2), value)
	}
}
