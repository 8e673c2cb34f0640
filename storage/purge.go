////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package storage

import (
	"sync/atomic"

	"github.com/hack-pad/go-indexeddb/idb"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// numConnectionsOpen tracks the number of database connections currently
// open. Every connection that opens must increment it and every connection
// that closes must decrement it.
//
// This variable is an atomic. Only access it with atomic functions.
var numConnectionsOpen uint64

// IncrementNumConnectionsOpen increments the open connection tracker. This
// should be called when a database connection is opened.
func IncrementNumConnectionsOpen() {
	atomic.AddUint64(&numConnectionsOpen, 1)
}

// DecrementNumConnectionsOpen decrements the open connection tracker. This
// should be called when a database connection is closed.
func DecrementNumConnectionsOpen() {
	atomic.AddUint64(&numConnectionsOpen, ^uint64(0))
}

// Purge clears all state saved by this WASM binary: the snapshot database,
// the tracked database names, and every local storage key this binary has
// written. It refuses to run while any database connection is open.
//
// Database files held by the engine's own storage, such as OPFS, belong to
// the worker and are not touched; import an empty image to clear those.
func Purge() error {
	// Refuse while connections are open, since a connected worker could
	// rewrite a snapshot immediately after it is purged
	if n := atomic.LoadUint64(&numConnectionsOpen); n != 0 {
		return errors.Errorf(
			"%d database connections open; all need to be closed", n)
	}

	// Log what is about to be lost, since a purge is unrecoverable
	if snapshots, err := ListSnapshots(); err != nil {
		jww.WARN.Printf(
			"[SQLW] Could not list snapshots during purge: %+v", err)
	} else {
		for _, s := range snapshots {
			jww.INFO.Printf("[SQLW] Purging snapshot of %q (%d bytes, stored %s)",
				s.Name, s.Size, s.Time)
		}
	}

	// Delete the snapshot database wholesale
	if _, err := idb.Global().DeleteDatabase(snapshotDatabaseName); err != nil {
		return errors.Wrapf(err, "failed to delete snapshot database %q",
			snapshotDatabaseName)
	}

	list, err := GetDatabaseList()
	if err != nil {
		jww.WARN.Printf(
			"[SQLW] Could not read database list during purge: %+v", err)
	} else {
		jww.INFO.Printf("[SQLW] Purging state for %d databases", len(list))
	}

	// Clear all local storage saved by this binary, including the database
	// list, mode tracking, and version keys
	GetLocalStorage().ClearWASM()

	return nil
}
