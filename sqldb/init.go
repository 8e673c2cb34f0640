////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package sqldb

import "github.com/litebridge/litebridge-wasm/worker"

// Database drives a SQL engine that lives in a background execution context,
// reachable only over a message bridge. Statements and rows never cross the
// boundary as live objects; the client holds plain data and opaque
// [Handle] values.
//
// All methods are blocking remote calls. They are safe for concurrent use,
// though two calls racing on the same Handle are serviced in whatever order
// the background context receives them.
type Database struct {
	wm *worker.Manager
}

// New returns a Database over an existing bridge Manager. Call
// [Database.Connect] before any other operation.
func New(wm *worker.Manager) *Database {
	return &Database{wm: wm}
}

// Stop releases the client's end of the bridge. It does not close the
// database; use [Database.Close] first.
func (d *Database) Stop() {
	d.wm.Stop()
}
