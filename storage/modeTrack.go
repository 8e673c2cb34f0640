////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package storage

import (
	"os"

	"github.com/pkg/errors"
)

// Key prefix for tracking the storage mode each database last opened with.
const storageModeTrackKey = "sqldbWasmStorageModeTrack/"

// StoreStorageMode records the storage mode the named database opened with
// and returns the previously recorded mode. The previous mode is empty on the
// first open. A change between opens usually means the browser gained or lost
// a persistence capability, so data written under the old mode may be
// unreachable.
func StoreStorageMode(databaseName, mode string) (previous string, err error) {
	ls := GetLocalStorage()
	keyName := storageModeTrackKey + databaseName

	data, err := ls.GetItem(keyName)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	previous = string(data)

	if previous != mode {
		if err = ls.SetItem(keyName, []byte(mode)); err != nil {
			return "", errors.Wrapf(
				err, "localStorage: failed to set %q", keyName)
		}
	}

	return previous, nil
}
