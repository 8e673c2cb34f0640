////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package impl

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/litebridge/litebridge-wasm/sqldb"
)

// state is a statement's position in its lifecycle. Statements start out
// created, become bound once parameter values are applied, and are stepped
// while execution is underway. Finalizing removes the statement from the
// registry entirely, so there is no finalized state to represent.
type state int

const (
	stateCreated state = iota
	stateBound
	stateStepped
)

// String returns a human-readable name for the state.
func (s state) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateBound:
		return "bound"
	case stateStepped:
		return "stepped"
	default:
		return "unknown"
	}
}

// entry pairs a live statement with its lifecycle state.
type entry struct {
	stmt  Stmt
	state state
	sql   string
}

// Registry tracks the prepared statements owned by the background context and
// hands out the opaque handles that refer to them. Every statement operation
// goes through the registry so the lifecycle rules are enforced in one place.
//
// Operations are serialized under a single lock, matching the one-at-a-time
// execution the engine sees inside a worker.
type Registry struct {
	stmts map[sqldb.Handle]*entry
	mux   sync.Mutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{stmts: make(map[sqldb.Handle]*entry)}
}

// Insert stores a newly prepared statement and returns the handle that refers
// to it.
func (r *Registry) Insert(stmt Stmt, sql string) sqldb.Handle {
	handle := sqldb.Handle(uuid.NewString())
	r.mux.Lock()
	defer r.mux.Unlock()
	r.stmts[handle] = &entry{stmt: stmt, sql: sql}
	return handle
}

// Bind applies parameter values to the statement for the handle. Binding is
// rejected while the statement is mid-execution; it must be reset first.
func (r *Registry) Bind(handle sqldb.Handle, values []any) error {
	r.mux.Lock()
	defer r.mux.Unlock()

	e, err := r.get(handle)
	if err != nil {
		return err
	}
	if e.state == stateStepped {
		return sqldb.NewError(sqldb.KindBadHandleState,
			"cannot bind handle %s in state %s; reset it first",
			handle, e.state)
	}

	if err = e.stmt.Bind(values); err != nil {
		return sqldb.NewError(sqldb.KindExecution,
			"failed to bind %d values to %q: %s", len(values), e.sql, err)
	}
	e.state = stateBound
	return nil
}

// StepAndReset steps the statement once, then resets it so it can be stepped
// or rebound again. Bound parameter values stay in place across the reset. It
// reports whether the step produced a row.
//
// If the step fails, a reset is still attempted so the statement is left
// reusable. If the reset itself fails, the statement stays mid-execution and
// rejects binds until a later reset succeeds.
func (r *Registry) StepAndReset(handle sqldb.Handle) (bool, error) {
	r.mux.Lock()
	defer r.mux.Unlock()

	e, err := r.get(handle)
	if err != nil {
		return false, err
	}

	row, stepErr := e.stmt.Step()
	if resetErr := e.stmt.Reset(); resetErr != nil {
		e.state = stateStepped
		if stepErr != nil {
			return false, sqldb.NewError(sqldb.KindExecution,
				"failed to step %q: %s", e.sql, stepErr)
		}
		return row, sqldb.NewError(sqldb.KindExecution,
			"failed to reset %q: %s", e.sql, resetErr)
	}
	if stepErr != nil {
		e.state = stateCreated
		return false, sqldb.NewError(sqldb.KindExecution,
			"failed to step %q: %s", e.sql, stepErr)
	}

	e.state = stateCreated
	return row, nil
}

// StepAndFinalize steps the statement once, finalizes it, and removes it from
// the registry. The handle is invalid afterwards. It reports whether the step
// produced a row along with the finalize result code.
//
// If the step fails, the statement is left in the registry so the caller can
// still finalize it explicitly.
func (r *Registry) StepAndFinalize(handle sqldb.Handle) (bool, int, error) {
	r.mux.Lock()
	defer r.mux.Unlock()

	e, err := r.get(handle)
	if err != nil {
		return false, 0, err
	}

	row, err := e.stmt.Step()
	if err != nil {
		return false, 0, sqldb.NewError(sqldb.KindExecution,
			"failed to step %q: %s", e.sql, err)
	}

	delete(r.stmts, handle)
	code, err := e.stmt.Finalize()
	if err != nil {
		return row, code, sqldb.NewError(sqldb.KindExecution,
			"failed to finalize %q: %s", e.sql, err)
	}
	return row, code, nil
}

// Finalize finalizes the statement and removes it from the registry. The
// handle is invalid afterwards. The entry is removed even when the engine
// reports a failure so that a broken statement cannot leak.
func (r *Registry) Finalize(handle sqldb.Handle) (int, error) {
	r.mux.Lock()
	defer r.mux.Unlock()

	e, err := r.get(handle)
	if err != nil {
		return 0, err
	}

	delete(r.stmts, handle)
	code, err := e.stmt.Finalize()
	if err != nil {
		return code, sqldb.NewError(sqldb.KindExecution,
			"failed to finalize %q: %s", e.sql, err)
	}
	return code, nil
}

// Clear finalizes every live statement and empties the registry. It is called
// when the connection that produced the statements goes away.
func (r *Registry) Clear() {
	r.mux.Lock()
	defer r.mux.Unlock()

	for handle, e := range r.stmts {
		if _, err := e.stmt.Finalize(); err != nil {
			jww.WARN.Printf("[SQLW] Failed to finalize statement %q for "+
				"handle %s on clear: %+v", e.sql, handle, err)
		}
		delete(r.stmts, handle)
	}
}

// Len returns the number of live statements.
func (r *Registry) Len() int {
	r.mux.Lock()
	defer r.mux.Unlock()
	return len(r.stmts)
}

// HandleInfo describes a live statement for diagnostics.
type HandleInfo struct {
	Handle sqldb.Handle
	SQL    string
	State  string
}

// Handles returns a snapshot of the live statements sorted by handle.
func (r *Registry) Handles() []HandleInfo {
	r.mux.Lock()
	defer r.mux.Unlock()

	infos := make([]HandleInfo, 0, len(r.stmts))
	for handle, e := range r.stmts {
		infos = append(infos,
			HandleInfo{Handle: handle, SQL: e.sql, State: e.state.String()})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Handle < infos[j].Handle
	})
	return infos
}

// get looks up the handle. The caller must hold the lock.
func (r *Registry) get(handle sqldb.Handle) (*entry, error) {
	e, exists := r.stmts[handle]
	if !exists {
		return nil, sqldb.NewError(sqldb.KindUnknownHandle,
			"no statement found for handle %s", handle)
	}
	return e, nil
}
