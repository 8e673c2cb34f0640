////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package impl

import (
	"sync"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/litebridge/litebridge-wasm/sqldb"
)

// Connector owns the background context's single database connection. The
// engine that opens connections is injected, so the connector can be driven
// by the WASM engine inside a worker and by a plain SQLite engine in native
// builds and tests.
type Connector struct {
	engine Engine
	conn   Conn
	mode   sqldb.StorageMode
	name   string
	mux    sync.Mutex
}

// NewConnector returns a connector that opens connections with the given
// engine. No connection is made until [Connector.Connect] is called.
func NewConnector(engine Engine) *Connector {
	return &Connector{engine: engine}
}

// Connect opens the named database. If a connection is already open, it is
// left untouched and its storage mode is returned; connecting never tears
// down an existing connection.
func (c *Connector) Connect(databaseName string) (sqldb.StorageMode, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.conn != nil {
		jww.DEBUG.Printf("[SQLW] Already connected to %q (%s storage); "+
			"ignoring connect for %q", c.name, c.mode, databaseName)
		return c.mode, nil
	}

	conn, mode, err := c.engine.Open(databaseName)
	if err != nil {
		return "", sqldb.NewError(sqldb.KindInitialization,
			"failed to open database %q: %s", databaseName, err)
	}

	c.conn, c.mode, c.name = conn, mode, databaseName
	jww.INFO.Printf("[SQLW] Opened database %q using %s storage "+
		"(persistent: %t)", databaseName, mode, mode.Persistent())
	return mode, nil
}

// Get returns the open connection. It fails if no connection has been opened
// yet or if the connection has since been closed.
func (c *Connector) Get() (Conn, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.conn == nil {
		return nil, sqldb.NewError(
			sqldb.KindNotConnected, "no database connection is open")
	}
	return c.conn, nil
}

// Mode returns the storage mode of the open connection.
func (c *Connector) Mode() (sqldb.StorageMode, error) {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.conn == nil {
		return "", sqldb.NewError(
			sqldb.KindNotConnected, "no database connection is open")
	}
	return c.mode, nil
}

// Close closes the connection, if one is open. Closing when nothing is open
// does nothing.
func (c *Connector) Close() error {
	c.mux.Lock()
	defer c.mux.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	jww.INFO.Printf("[SQLW] Closed database %q.", c.name)
	c.conn, c.mode, c.name = nil, "", ""
	if err != nil {
		return sqldb.NewError(
			sqldb.KindExecution, "failed to close database: %s", err)
	}
	return nil
}
