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
	"sync"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
)

// SEMVER is the current semantic version of the LiteBridge SQL WASM module.
const SEMVER = "0.2.1"

// semverKey is the local storage key the version is stored under.
const semverKey = "sqldbWasmSemanticVersion"

// CheckAndStoreVersion checks that the stored version matches the current
// version and if not, upgrades it. On first load, the current version is
// stored.
func CheckAndStoreVersion() error {
	return checkAndStoreVersion(SEMVER, GetLocalStorage())
}

func checkAndStoreVersion(currentVersion string, ls *LocalStorage) error {
	// Get the stored version, if it exists
	storedVersion, err := initOrLoadStoredSemver(
		semverKey, currentVersion, ls)
	if err != nil {
		return err
	}

	// Store the old version to memory
	setOldVersion(storedVersion)

	if storedVersion != currentVersion {
		jww.INFO.Printf("[SQLW] Out of date; upgrading version: v%s -> v%s",
			storedVersion, currentVersion)
	} else {
		jww.INFO.Printf("[SQLW] Version is current: v%s", storedVersion)
	}

	// Upgrade path code goes here

	// Save the current version
	if err = ls.SetItem(semverKey, []byte(currentVersion)); err != nil {
		return errors.Wrapf(err, "localStorage: failed to set %q", semverKey)
	}

	return nil
}

// initOrLoadStoredSemver returns the semantic version stored at the key in
// local storage. If no version is stored, then the current version is stored
// and returned.
func initOrLoadStoredSemver(
	key, currentVersion string, ls *LocalStorage) (string, error) {
	storedVersion, err := ls.GetItem(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Save the current version if this is the first run
			jww.INFO.Printf("[SQLW] Initialising %s to v%s",
				key, currentVersion)
			if err = ls.SetItem(key, []byte(currentVersion)); err != nil {
				return "",
					errors.Wrapf(err, "localStorage: failed to set %q", key)
			}
			return currentVersion, nil
		}

		// If the item exists but cannot be loaded, return an error
		return "", errors.Errorf(
			"could not load %s from storage: %+v", key, err)
	}

	// Return the stored version
	return string(storedVersion), nil
}

// oldVersion contains the version that was stored in storage before being
// overwritten on update.
var oldVersion struct {
	version string
	sync.Mutex
}

// GetOldVersion returns the version stored before the last
// CheckAndStoreVersion updated it.
func GetOldVersion() string {
	oldVersion.Lock()
	defer oldVersion.Unlock()
	return oldVersion.version
}

// setOldVersion sets the remembered old version. This should be called before
// the stored version is updated.
func setOldVersion(v string) {
	oldVersion.Lock()
	defer oldVersion.Unlock()
	oldVersion.version = v
}
