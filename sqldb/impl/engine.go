////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

// Package impl is the background half of the sqldb bridge. It receives the
// messages produced by the [sqldb] client, runs them against a SQLite engine,
// and sends back the responses. In the browser it runs inside a dedicated web
// worker; in native builds and tests it runs in-process over a message pipe.
package impl

import "github.com/litebridge/litebridge-wasm/sqldb"

// Engine opens database connections. Implementations pick the best backing
// store available on their platform and report which one was used.
type Engine interface {
	// Open opens or creates the named database.
	Open(databaseName string) (Conn, sqldb.StorageMode, error)
}

// Conn is a live database connection. It is owned by a single [Connector] and
// is only ever accessed from its message callbacks. All values a Conn returns
// are JSON-safe: byte slices come back base64-encoded and times come back as
// RFC 3339 strings.
type Conn interface {
	// Exec runs a complete statement and returns whatever the request asked
	// for.
	Exec(req sqldb.ExecRequest) (*sqldb.ExecResult, error)

	// SelectValue runs a query expected to produce at most one value. It
	// returns found false when the query matched no row. A matched row
	// holding SQL NULL returns a nil value with found true.
	SelectValue(query string, bind []any) (value any, found bool, err error)

	// Prepare compiles a statement for repeated execution.
	Prepare(query string) (Stmt, error)

	// Serialize returns the database contents as a single image.
	Serialize() ([]byte, error)

	// Deserialize replaces the database contents with the given image.
	Deserialize(image []byte) error

	// Close releases the connection.
	Close() error
}

// Stmt is a compiled statement. Bound parameter values survive a reset, so a
// statement can be stepped repeatedly with the same values or rebound between
// runs.
type Stmt interface {
	// Bind replaces the statement's parameter values.
	Bind(values []any) error

	// Step advances the statement, starting execution on the first step. It
	// reports true while a result row is available and false once the
	// statement has run to completion.
	Step() (bool, error)

	// Reset rewinds the statement so it can be stepped again.
	Reset() error

	// Finalize releases the statement and returns the engine's result code.
	Finalize() (int, error)
}
