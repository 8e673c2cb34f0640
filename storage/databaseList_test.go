////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package storage

import (
	"testing"
)

// Tests that StoreDatabaseName accumulates names in the stored list and that
// storing a name twice keeps a single entry.
func TestStoreDatabaseName(t *testing.T) {
	jsStorage.clear()
	names := []string{"databaseA", "databaseB", "databaseA"}

	for _, name := range names {
		if err := StoreDatabaseName(name); err != nil {
			t.Errorf("Failed to store database name %q: %+v", name, err)
		}
	}

	list, err := GetDatabaseList()
	if err != nil {
		t.Fatalf("Failed to get database list: %+v", err)
	}

	if len(list) != 2 {
		t.Errorf("Unexpected list size.\nexpected: %d\nreceived: %d",
			2, len(list))
	}
	for _, name := range []string{"databaseA", "databaseB"} {
		if _, exists := list[name]; !exists {
			t.Errorf("Database %q missing from the list.", name)
		}
	}
}

// Tests that an empty storage yields an empty list.
func TestGetDatabaseList_Empty(t *testing.T) {
	jsStorage.clear()

	list, err := GetDatabaseList()
	if err != nil {
		t.Fatalf("Failed to get database list: %+v", err)
	}
	if len(list) != 0 {
		t.Errorf("Unexpected names in empty storage: %v", list)
	}
}
