////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package storage

import (
	"encoding/base64"
	"os"
	"strings"
	"syscall/js"
	"time"

	"github.com/hack-pad/go-indexeddb/idb"
	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/litebridge/litebridge-wasm/indexedDb/impl"
)

// Snapshots are serialized database images saved for databases that run in
// memory because no persistent engine storage is available. They are written
// to IndexedDB rather than local storage because images routinely exceed the
// local storage quota.
const (
	// snapshotDatabaseName is the name of the IndexedDB database holding all
	// snapshots.
	snapshotDatabaseName = "sqldbSnapshots"

	// snapshotStoreName is the object store within the snapshot database.
	snapshotStoreName = "snapshots"

	// snapshotDbVersion is the current version of the snapshot database.
	// Used for migration purposes.
	snapshotDbVersion uint = 1
)

// SnapshotInfo describes a stored snapshot without loading its image.
type SnapshotInfo struct {
	Name string
	Size int
	Time string
}

// openSnapshotDb opens the snapshot database, creating the object store on
// first use.
func openSnapshotDb() (*idb.Database, error) {
	ctx, cancel := impl.NewContext()
	defer cancel()

	openRequest, err := idb.Global().Open(ctx, snapshotDatabaseName,
		snapshotDbVersion,
		func(db *idb.Database, oldVersion, newVersion uint) error {
			if oldVersion == newVersion {
				return nil
			}

			jww.INFO.Printf("[SQLW] Snapshot database upgrade: v%d -> v%d",
				oldVersion, newVersion)

			if oldVersion == 0 && newVersion >= 1 {
				_, err := db.CreateObjectStore(snapshotStoreName,
					idb.ObjectStoreOptions{KeyPath: js.ValueOf("name")})
				if err != nil {
					return err
				}
			}

			return nil
		})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open snapshot database")
	}

	return openRequest.Await(ctx)
}

// LoadSnapshot returns the stored image for the named database. Returns
// os.ErrNotExist when no snapshot has been stored.
func LoadSnapshot(databaseName string) ([]byte, error) {
	db, err := openSnapshotDb()
	if err != nil {
		return nil, err
	}

	result, err := impl.Get(db, snapshotStoreName, js.ValueOf(databaseName))
	if err != nil {
		if strings.Contains(err.Error(), impl.ErrDoesNotExist) {
			return nil, os.ErrNotExist
		}
		return nil, errors.Wrapf(err, "failed to get snapshot %q", databaseName)
	}

	image, err := impl.DecodeBytes(result.Get("image"))
	if err != nil {
		return nil, errors.Wrapf(
			err, "failed to decode snapshot %q", databaseName)
	}

	return image, nil
}

// StoreSnapshot saves the image as the snapshot for the named database,
// replacing any previous snapshot.
func StoreSnapshot(databaseName string, image []byte) error {
	db, err := openSnapshotDb()
	if err != nil {
		return err
	}

	_, err = impl.Put(db, snapshotStoreName, js.ValueOf(map[string]any{
		"name":  databaseName,
		"image": impl.EncodeBytes(image),
		"time":  time.Now().UTC().Format(time.RFC3339),
	}))
	if err != nil {
		return errors.Wrapf(err, "failed to store snapshot %q", databaseName)
	}

	jww.DEBUG.Printf("[SQLW] Stored snapshot of %q (%d bytes)",
		databaseName, len(image))
	return nil
}

// DeleteSnapshot removes the stored snapshot for the named database. Deleting
// a snapshot that does not exist is not an error.
func DeleteSnapshot(databaseName string) error {
	db, err := openSnapshotDb()
	if err != nil {
		return err
	}

	err = impl.Delete(db, snapshotStoreName, js.ValueOf(databaseName))
	if err != nil {
		return errors.Wrapf(err, "failed to delete snapshot %q", databaseName)
	}

	return nil
}

// ListSnapshots reports the name, image size, and storage time of every
// snapshot. Image sizes are computed from the stored encoding without
// decoding the images themselves.
func ListSnapshots() ([]SnapshotInfo, error) {
	db, err := openSnapshotDb()
	if err != nil {
		return nil, err
	}

	records, err := impl.GetAll(db, snapshotStoreName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list snapshots")
	}

	snapshots := make([]SnapshotInfo, 0, len(records))
	for _, record := range records {
		info := SnapshotInfo{
			Name: record.Get("name").String(),
			Time: record.Get("time").String(),
		}
		if image := record.Get("image"); image.Type() == js.TypeString {
			info.Size = base64.StdEncoding.DecodedLen(len(image.String()))
		}
		snapshots = append(snapshots, info)
	}

	return snapshots, nil
}
