////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package wasm

import (
	"reflect"
	"testing"

	"github.com/litebridge/litebridge-wasm/sqldb"
)

// Tests that the map representing Database returned by newDatabaseJS contains
// all of the methods on Database.
func Test_newDatabaseJS(t *testing.T) {
	dbType := reflect.TypeOf(&Database{})

	db := newDatabaseJS(&sqldb.Database{})
	if len(db) != dbType.NumMethod() {
		t.Errorf("Database JS object does not have all methods."+
			"\nexpected: %d\nreceived: %d", dbType.NumMethod(), len(db))
	}

	for i := 0; i < dbType.NumMethod(); i++ {
		method := dbType.Method(i)

		if _, exists := db[method.Name]; !exists {
			t.Errorf("Method %s does not exist.", method.Name)
		}
	}
}
