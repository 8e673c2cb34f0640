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
	"database/sql"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	_ "modernc.org/sqlite"

	"github.com/litebridge/litebridge-wasm/sqldb"
)

// SQLiteEngine opens databases with the pure-Go SQLite driver. Databases are
// stored as files under a base directory; with no base directory they are
// kept in memory.
type SQLiteEngine struct {
	baseDir string
}

// Compile-time interface satisfaction check.
var _ Engine = (*SQLiteEngine)(nil)

// NewSQLiteEngine returns an engine storing database files under baseDir. An
// empty baseDir keeps every database in memory.
func NewSQLiteEngine(baseDir string) *SQLiteEngine {
	return &SQLiteEngine{baseDir: baseDir}
}

// Open opens or creates the named database. If the base directory cannot be
// created, the database falls back to memory storage.
func (e *SQLiteEngine) Open(databaseName string) (
	Conn, sqldb.StorageMode, error) {
	path := ""
	mode := sqldb.ModeMemory
	if e.baseDir != "" {
		if err := os.MkdirAll(e.baseDir, 0700); err != nil {
			jww.WARN.Printf("[SQLW] Could not create database directory %s; "+
				"falling back to memory storage: %+v", e.baseDir, err)
		} else {
			path = filepath.Join(e.baseDir, databaseName+".sqlite")
			mode = sqldb.ModeFile
		}
	}

	db, err := openSQLite(path)
	if err != nil {
		return nil, "", err
	}
	return &sqliteConn{db: db, path: path}, mode, nil
}

// openSQLite opens the database file at path, or an in-memory database when
// path is empty, and applies the session pragmas.
func openSQLite(path string) (*sql.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %q", dsn)
	}

	// Each pool connection gets its own copy of an in-memory database, so
	// the pool is capped at a single connection.
	db.SetMaxOpenConns(1)

	if path != "" {
		if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "failed to set WAL mode")
		}
	}
	if _, err = db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}
	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	return db, nil
}

// sqliteConn is a live connection to one SQLite database.
type sqliteConn struct {
	db   *sql.DB
	path string
}

var _ Conn = (*sqliteConn)(nil)

// Exec runs a complete statement and shapes the result per the request.
func (c *sqliteConn) Exec(req sqldb.ExecRequest) (*sqldb.ExecResult, error) {
	switch req.Result {
	case sqldb.ResultValue:
		value, _, err := c.SelectValue(req.SQL, req.Bind)
		if err != nil {
			return nil, err
		}
		return &sqldb.ExecResult{Value: value}, nil

	case sqldb.ResultRows:
		return c.queryRows(req)

	default: // sqldb.ResultNone
		res, err := c.db.Exec(req.SQL, req.Bind...)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to execute %q", req.SQL)
		}
		result := &sqldb.ExecResult{}
		result.RowsAffected, _ = res.RowsAffected()
		result.LastInsertID, _ = res.LastInsertId()
		return result, nil
	}
}

// queryRows runs the statement and materializes every row in the requested
// row mode.
func (c *sqliteConn) queryRows(req sqldb.ExecRequest) (
	*sqldb.ExecResult, error) {
	rows, err := c.db.Query(req.SQL, req.Bind...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query %q", req.SQL)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get result columns")
	}

	result := &sqldb.ExecResult{Columns: columns}
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err = rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}

		row := jsonRow(values)
		if req.RowMode == sqldb.RowModeObject {
			obj := make(map[string]any, len(columns))
			for i, name := range columns {
				obj[name] = row[i]
			}
			result.Rows = append(result.Rows, obj)
		} else {
			result.Rows = append(result.Rows, row)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed while iterating rows")
	}

	return result, nil
}

// SelectValue runs a query and returns the first column of the first row.
func (c *sqliteConn) SelectValue(query string, bind []any) (any, bool, error) {
	rows, err := c.db.Query(query, bind...)
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to query %q", query)
	}
	defer rows.Close()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, false, errors.Wrap(err, "failed while reading row")
		}
		return nil, false, nil
	}

	columns, err := rows.Columns()
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get result columns")
	}
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	if err = rows.Scan(pointers...); err != nil {
		return nil, false, errors.Wrap(err, "failed to scan row")
	}

	return jsonValue(values[0]), true, nil
}

// Prepare compiles the statement for repeated execution.
func (c *sqliteConn) Prepare(query string) (Stmt, error) {
	stmt, err := c.db.Prepare(query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to prepare %q", query)
	}
	return &sqliteStmt{stmt: stmt}, nil
}

// Serialize returns a compact image of the database produced with
// VACUUM INTO.
func (c *sqliteConn) Serialize() ([]byte, error) {
	tmp, err := os.CreateTemp("", "sqldb-export-*.sqlite")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create export file")
	}
	path := tmp.Name()
	tmp.Close()
	// VACUUM INTO requires that the target not exist.
	os.Remove(path)
	defer os.Remove(path)

	if _, err = c.db.Exec("VACUUM INTO ?", path); err != nil {
		return nil, errors.Wrap(err, "failed to vacuum database into export")
	}

	image, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read export file")
	}
	return image, nil
}

// Deserialize replaces the database contents with the image. The database
// file is swapped out underneath the connection, so the connection is closed
// and reopened around the write. Memory databases have no file to swap and
// cannot be imported into.
func (c *sqliteConn) Deserialize(image []byte) error {
	if c.path == "" {
		return errors.New("cannot import into a memory database")
	}

	if err := c.db.Close(); err != nil {
		return errors.Wrap(err, "failed to close database for import")
	}
	// Drop WAL leftovers belonging to the closed database.
	os.Remove(c.path + "-wal")
	os.Remove(c.path + "-shm")

	if err := atomic.WriteFile(c.path, bytes.NewReader(image)); err != nil {
		return errors.Wrap(err, "failed to write imported database image")
	}

	db, err := openSQLite(c.path)
	if err != nil {
		return errors.Wrap(err, "failed to reopen imported database")
	}
	c.db = db
	return nil
}

// Close releases the connection.
func (c *sqliteConn) Close() error {
	return errors.Wrap(c.db.Close(), "failed to close database")
}

// sqliteStmt adapts database/sql prepared statements to the step-based
// lifecycle the bridge exposes. The first step starts execution; for queries,
// the open cursor is carried across steps until the rows run out or the
// statement is reset.
type sqliteStmt struct {
	stmt   *sql.Stmt
	bound  []any
	cursor *sql.Rows
}

var _ Stmt = (*sqliteStmt)(nil)

// Bind replaces the parameter values used on the next execution.
func (s *sqliteStmt) Bind(values []any) error {
	if s.cursor != nil {
		return errors.New("statement is mid-execution; reset it first")
	}
	s.bound = values
	return nil
}

// Step advances the statement, starting execution on the first step.
func (s *sqliteStmt) Step() (bool, error) {
	if s.cursor == nil {
		cursor, err := s.stmt.Query(s.bound...)
		if err != nil {
			return false, errors.Wrap(err, "failed to execute statement")
		}
		s.cursor = cursor
	}

	if s.cursor.Next() {
		return true, nil
	}

	err := s.cursor.Err()
	closeErr := s.cursor.Close()
	s.cursor = nil
	if err != nil {
		return false, errors.Wrap(err, "failed to step statement")
	}
	if closeErr != nil {
		return false, errors.Wrap(closeErr, "failed to close statement cursor")
	}
	return false, nil
}

// Reset rewinds the statement, keeping its bound values.
func (s *sqliteStmt) Reset() error {
	if s.cursor == nil {
		return nil
	}

	err := s.cursor.Close()
	s.cursor = nil
	return errors.Wrap(err, "failed to reset statement")
}

// Finalize releases the statement. The result code is always 0; the driver
// reports failures as errors instead.
func (s *sqliteStmt) Finalize() (int, error) {
	if s.cursor != nil {
		s.cursor.Close()
		s.cursor = nil
	}
	if err := s.stmt.Close(); err != nil {
		return 0, errors.Wrap(err, "failed to finalize statement")
	}
	return 0, nil
}
