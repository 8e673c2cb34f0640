////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package impl

import (
	"sync"
	"testing"

	"github.com/pkg/errors"

	"github.com/litebridge/litebridge-wasm/sqldb"
)

// fakeStmt is a scriptable Stmt for exercising the registry without a real
// database engine.
type fakeStmt struct {
	bindErr     error
	stepRow     bool
	stepErr     error
	resetErr    error
	finalizeErr error
	code        int

	binds     int
	steps     int
	resets    int
	finalized bool
}

func (s *fakeStmt) Bind([]any) error { s.binds++; return s.bindErr }
func (s *fakeStmt) Step() (bool, error) {
	s.steps++
	return s.stepRow, s.stepErr
}
func (s *fakeStmt) Reset() error { s.resets++; return s.resetErr }
func (s *fakeStmt) Finalize() (int, error) {
	s.finalized = true
	return s.code, s.finalizeErr
}

// Tests that Insert returns a unique handle for every statement.
func TestRegistry_Insert(t *testing.T) {
	r := NewRegistry()

	const n = 25
	handles := make(map[sqldb.Handle]struct{}, n)
	for i := 0; i < n; i++ {
		handle := r.Insert(&fakeStmt{}, "SELECT 1")
		if _, exists := handles[handle]; exists {
			t.Errorf("Handle %s (%d) issued twice.", handle, i)
		}
		handles[handle] = struct{}{}
	}

	if r.Len() != n {
		t.Errorf("Unexpected number of live statements."+
			"\nexpected: %d\nreceived: %d", n, r.Len())
	}
}

// Tests that operations on a handle that was never issued return an unknown
// handle error.
func TestRegistry_UnknownHandle(t *testing.T) {
	r := NewRegistry()
	missing := sqldb.Handle("no-such-handle")

	if err := r.Bind(missing, nil); !errors.Is(err, sqldb.ErrUnknownHandle) {
		t.Errorf("Unexpected error binding unknown handle."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrUnknownHandle, err)
	}
	if _, err := r.StepAndReset(missing); !errors.Is(err, sqldb.ErrUnknownHandle) {
		t.Errorf("Unexpected error stepping unknown handle."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrUnknownHandle, err)
	}
	if _, _, err := r.StepAndFinalize(missing); !errors.Is(err, sqldb.ErrUnknownHandle) {
		t.Errorf("Unexpected error step-finalizing unknown handle."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrUnknownHandle, err)
	}
	if _, err := r.Finalize(missing); !errors.Is(err, sqldb.ErrUnknownHandle) {
		t.Errorf("Unexpected error finalizing unknown handle."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrUnknownHandle, err)
	}
}

// Tests the bind/step/reset loop: values can be bound, the statement stepped,
// and new values bound again after the reset.
func TestRegistry_BindStepLoop(t *testing.T) {
	r := NewRegistry()
	stmt := &fakeStmt{}
	handle := r.Insert(stmt, "INSERT INTO t VALUES (?)")

	for i := 0; i < 3; i++ {
		if err := r.Bind(handle, []any{i}); err != nil {
			t.Fatalf("Failed to bind on round %d: %+v", i, err)
		}
		row, err := r.StepAndReset(handle)
		if err != nil {
			t.Fatalf("Failed to step on round %d: %+v", i, err)
		}
		if row {
			t.Errorf("Step %d reported a row for an insert.", i)
		}
	}

	if stmt.binds != 3 || stmt.steps != 3 || stmt.resets != 3 {
		t.Errorf("Unexpected statement call counts."+
			"\nexpected: 3 binds, 3 steps, 3 resets"+
			"\nreceived: %d binds, %d steps, %d resets",
			stmt.binds, stmt.steps, stmt.resets)
	}
}

// Tests that stepping without a prior bind is allowed.
func TestRegistry_StepAndReset_Unbound(t *testing.T) {
	r := NewRegistry()
	stmt := &fakeStmt{stepRow: true}
	handle := r.Insert(stmt, "SELECT 1")

	row, err := r.StepAndReset(handle)
	if err != nil {
		t.Fatalf("Failed to step unbound statement: %+v", err)
	}
	if !row {
		t.Error("Step did not report the available row.")
	}
}

// Tests that a failed reset leaves the statement mid-execution, rejecting
// binds until a later reset succeeds.
func TestRegistry_StepAndReset_ResetFailure(t *testing.T) {
	r := NewRegistry()
	stmt := &fakeStmt{resetErr: errors.New("reset failed")}
	handle := r.Insert(stmt, "SELECT 1")

	if _, err := r.StepAndReset(handle); err == nil {
		t.Fatal("Step with a failing reset did not error.")
	}

	err := r.Bind(handle, []any{1})
	if !errors.Is(err, sqldb.ErrBadHandleState) {
		t.Errorf("Unexpected error binding a mid-execution statement."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrBadHandleState, err)
	}

	// Once resets work again, the statement recovers.
	stmt.resetErr = nil
	if _, err = r.StepAndReset(handle); err != nil {
		t.Fatalf("Failed to step after reset recovered: %+v", err)
	}
	if err = r.Bind(handle, []any{1}); err != nil {
		t.Errorf("Failed to bind after reset recovered: %+v", err)
	}
}

// Tests that a step failure surfaces as an execution error and keeps the
// statement in the registry.
func TestRegistry_StepAndReset_StepFailure(t *testing.T) {
	r := NewRegistry()
	stmt := &fakeStmt{stepErr: errors.New("constraint violated")}
	handle := r.Insert(stmt, "INSERT INTO t VALUES (?)")

	_, err := r.StepAndReset(handle)
	if !errors.Is(err, sqldb.ErrExecution) {
		t.Errorf("Unexpected error from failing step."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrExecution, err)
	}

	if r.Len() != 1 {
		t.Errorf("Statement removed from registry by a failed step.")
	}
	if stmt.resets != 1 {
		t.Errorf("Failed step did not reset the statement for reuse."+
			"\nexpected: %d resets\nreceived: %d resets", 1, stmt.resets)
	}
}

// Tests that StepAndFinalize removes the statement from the registry so the
// handle cannot be used again.
func TestRegistry_StepAndFinalize(t *testing.T) {
	r := NewRegistry()
	stmt := &fakeStmt{code: 0}
	handle := r.Insert(stmt, "INSERT INTO t VALUES (1)")

	row, code, err := r.StepAndFinalize(handle)
	if err != nil {
		t.Fatalf("Failed to step and finalize: %+v", err)
	}
	if row || code != 0 {
		t.Errorf("Unexpected step result.\nexpected: row %t, code %d"+
			"\nreceived: row %t, code %d", false, 0, row, code)
	}
	if !stmt.finalized {
		t.Error("Statement was not finalized.")
	}

	if _, _, err = r.StepAndFinalize(handle); !errors.Is(err, sqldb.ErrUnknownHandle) {
		t.Errorf("Unexpected error reusing a finalized handle."+
			"\nexpected: %v\nreceived: %v", sqldb.ErrUnknownHandle, err)
	}
	if r.Len() != 0 {
		t.Errorf("Registry not empty after finalize: %d statements remain.",
			r.Len())
	}
}

// Tests that a step failure during StepAndFinalize keeps the statement
// registered so it can still be finalized explicitly.
func TestRegistry_StepAndFinalize_StepFailure(t *testing.T) {
	r := NewRegistry()
	stmt := &fakeStmt{stepErr: errors.New("disk I/O error")}
	handle := r.Insert(stmt, "INSERT INTO t VALUES (1)")

	if _, _, err := r.StepAndFinalize(handle); err == nil {
		t.Fatal("Step and finalize with a failing step did not error.")
	}
	if stmt.finalized {
		t.Error("Statement finalized despite the failed step.")
	}

	if _, err := r.Finalize(handle); err != nil {
		t.Errorf("Failed to finalize after the failed step: %+v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Registry not empty after finalize: %d statements remain.",
			r.Len())
	}
}

// Tests that Finalize removes the entry even when the engine reports a
// failure.
func TestRegistry_Finalize_EngineFailure(t *testing.T) {
	r := NewRegistry()
	stmt := &fakeStmt{finalizeErr: errors.New("misuse"), code: 21}
	handle := r.Insert(stmt, "SELECT 1")

	code, err := r.Finalize(handle)
	if err == nil {
		t.Error("Failing finalize did not error.")
	}
	if code != 21 {
		t.Errorf("Unexpected result code.\nexpected: %d\nreceived: %d",
			21, code)
	}
	if r.Len() != 0 {
		t.Error("Failing finalize left the statement registered.")
	}
}

// Tests that Clear finalizes every live statement.
func TestRegistry_Clear(t *testing.T) {
	r := NewRegistry()
	stmts := []*fakeStmt{
		{}, {finalizeErr: errors.New("misuse")}, {},
	}
	for _, stmt := range stmts {
		r.Insert(stmt, "SELECT 1")
	}

	r.Clear()

	if r.Len() != 0 {
		t.Errorf("Registry not empty after clear: %d statements remain.",
			r.Len())
	}
	for i, stmt := range stmts {
		if !stmt.finalized {
			t.Errorf("Statement %d was not finalized by clear.", i)
		}
	}
}

// Tests that Handles returns a sorted snapshot with lifecycle states.
func TestRegistry_Handles(t *testing.T) {
	r := NewRegistry()
	created := r.Insert(&fakeStmt{}, "SELECT 1")
	bound := r.Insert(&fakeStmt{}, "INSERT INTO t VALUES (?)")
	if err := r.Bind(bound, []any{5}); err != nil {
		t.Fatalf("Failed to bind: %+v", err)
	}

	infos := r.Handles()
	if len(infos) != 2 {
		t.Fatalf("Unexpected snapshot size.\nexpected: %d\nreceived: %d",
			2, len(infos))
	}
	for i := 1; i < len(infos); i++ {
		if infos[i-1].Handle > infos[i].Handle {
			t.Errorf("Snapshot not sorted at index %d.", i)
		}
	}

	states := map[sqldb.Handle]string{created: "created", bound: "bound"}
	for _, info := range infos {
		if states[info.Handle] != info.State {
			t.Errorf("Unexpected state for handle %s."+
				"\nexpected: %s\nreceived: %s",
				info.Handle, states[info.Handle], info.State)
		}
	}
}

// Tests that concurrent use of the registry does not race or corrupt the
// statement map.
func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				handle := r.Insert(&fakeStmt{}, "SELECT 1")
				if err := r.Bind(handle, []any{j}); err != nil {
					t.Errorf("Failed to bind: %+v", err)
				}
				if _, err := r.StepAndReset(handle); err != nil {
					t.Errorf("Failed to step: %+v", err)
				}
				if _, err := r.Finalize(handle); err != nil {
					t.Errorf("Failed to finalize: %+v", err)
				}
			}
		}()
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("Registry not empty after concurrent use: %d statements "+
			"remain.", r.Len())
	}
}
