////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package storage

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// databaseListKey is the local storage key holding the set of database names
// that have been opened by this binary.
const databaseListKey = "sqldbWasmDatabaseList"

// GetDatabaseList returns the set of stored database names.
func GetDatabaseList() (map[string]struct{}, error) {
	list := make(map[string]struct{})
	listBytes, err := GetLocalStorage().GetItem(databaseListKey)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	} else if err == nil {
		err = json.Unmarshal(listBytes, &list)
		if err != nil {
			return nil, err
		}
	}

	return list, nil
}

// StoreDatabaseName saves the database name to the stored list so that it can
// be enumerated and purged later. Storing a name twice is a no-op.
func StoreDatabaseName(databaseName string) error {
	list, err := GetDatabaseList()
	if err != nil {
		return err
	}

	list[databaseName] = struct{}{}

	listBytes, err := json.Marshal(list)
	if err != nil {
		return err
	}

	err = GetLocalStorage().SetItem(databaseListKey, listBytes)
	if err != nil {
		return errors.Wrapf(err,
			"localStorage: failed to set %q", databaseListKey)
	}

	return nil
}
