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
	"encoding/json"
	"os"
	"strings"
	"syscall/js"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"gitlab.com/elixxir/wasm-utils/utils"
)

// localStorageWasmPrefix is prefixed to every keyName saved to local storage
// by LocalStorage. It allows the identification and deletion of keys only
// created by this WASM binary while ignoring keys made by other scripts on
// the same page.
const localStorageWasmPrefix = "sqldbWasmStorage/"

// LocalStorage wraps the Javascript localStorage object. All values are
// base64 encoded so that arbitrary bytes can be stored.
//
//   - Documentation:
//     https://developer.mozilla.org/en-US/docs/Web/API/Window/localStorage
type LocalStorage struct {
	// The Javascript value containing the localStorage object
	v js.Value

	// The prefix appended to each key name. This is so that all keys created
	// by this structure can be deleted without affecting other keys in local
	// storage.
	prefix string
}

// jsStorage is the global instance wrapping window.localStorage.
var jsStorage = newLocalStorage(localStorageWasmPrefix)

// newLocalStorage creates a new LocalStorage object with the specified prefix.
func newLocalStorage(prefix string) *LocalStorage {
	return &LocalStorage{
		v:      js.Global().Get("localStorage"),
		prefix: prefix,
	}
}

// GetLocalStorage returns Javascript's local storage.
func GetLocalStorage() *LocalStorage {
	return jsStorage
}

// GetItem returns a key's value from local storage given its name. Returns
// os.ErrNotExist if the key does not exist.
func (ls *LocalStorage) GetItem(keyName string) ([]byte, error) {
	keyValue := ls.getItem(ls.prefix + keyName)
	if keyValue.IsNull() {
		return nil, os.ErrNotExist
	}

	decodedKeyValue, err := base64.StdEncoding.DecodeString(keyValue.String())
	if err != nil {
		return nil, err
	}

	return decodedKeyValue, nil
}

// SetItem adds a key's value to local storage given its name. An error is
// returned when the browser rejects the write, usually because the storage
// quota is exhausted.
func (ls *LocalStorage) SetItem(keyName string, keyValue []byte) (err error) {
	defer catchStorageException(&err)
	encodedKeyValue := base64.StdEncoding.EncodeToString(keyValue)
	ls.setItem(ls.prefix+keyName, encodedKeyValue)
	return nil
}

// RemoveItem removes a key's value from local storage given its name. If
// there is no item with the given key, this function does nothing.
func (ls *LocalStorage) RemoveItem(keyName string) {
	ls.removeItem(ls.prefix + keyName)
}

// Clear clears all the keys in storage, including keys written by other
// scripts on the page. Use ClearWASM to only clear the keys this binary owns.
func (ls *LocalStorage) Clear() {
	ls.clear()
}

// ClearPrefix clears all keys with the given prefix.
func (ls *LocalStorage) ClearPrefix(prefix string) {
	// Get a copy of all key names at once
	keys := ls.keys()

	// Loop through each key
	for i := 0; i < keys.Length(); i++ {
		if v := keys.Index(i); !v.IsNull() {
			keyName := strings.TrimPrefix(v.String(), ls.prefix)
			if strings.HasPrefix(keyName, prefix) {
				ls.removeItem(v.String())
			}
		}
	}
}

// ClearWASM clears all the keys in storage created by this WASM binary.
func (ls *LocalStorage) ClearWASM() {
	// Get a copy of all key names at once
	keys := ls.keys()

	// Loop through each key
	for i := 0; i < keys.Length(); i++ {
		if v := keys.Index(i); !v.IsNull() {
			keyName := v.String()
			if strings.HasPrefix(keyName, ls.prefix) {
				ls.RemoveItem(strings.TrimPrefix(keyName, ls.prefix))
			}
		}
	}
}

// Key returns the name of the nth key in localStorage. Returns os.ErrNotExist
// if the key does not exist. The order of keys is not defined.
func (ls *LocalStorage) Key(n int) (string, error) {
	keyName := ls.key(n)
	if keyName.IsNull() {
		return "", os.ErrNotExist
	}

	return strings.TrimPrefix(keyName.String(), ls.prefix), nil
}

// Keys returns a list of all key names in local storage.
func (ls *LocalStorage) Keys() []string {
	keyNamesJson := utils.JSON.Call("stringify", ls.keys())

	var keyNames []string
	err := json.Unmarshal([]byte(keyNamesJson.String()), &keyNames)
	if err != nil {
		jww.FATAL.Panicf(
			"Failed to JSON unmarshal localStorage key name list: %+v", err)
	}

	return keyNames
}

// Length returns the number of keys in localStorage.
func (ls *LocalStorage) Length() int {
	return ls.length().Int()
}

// Wrappers for Javascript Storage methods and properties.
func (ls *LocalStorage) getItem(keyName string) js.Value  { return ls.v.Call("getItem", keyName) }
func (ls *LocalStorage) setItem(keyName, keyValue string) { ls.v.Call("setItem", keyName, keyValue) }
func (ls *LocalStorage) removeItem(keyName string)        { ls.v.Call("removeItem", keyName) }
func (ls *LocalStorage) clear()                           { ls.v.Call("clear") }
func (ls *LocalStorage) key(n int) js.Value               { return ls.v.Call("key", n) }
func (ls *LocalStorage) length() js.Value                 { return ls.v.Get("length") }
func (ls *LocalStorage) keys() js.Value                   { return utils.Object.Call("keys", ls.v) }

// catchStorageException recovers a thrown Javascript exception and converts
// it to an error.
func catchStorageException(err *error) {
	if r := recover(); r != nil {
		switch e := r.(type) {
		case js.Error:
			*err = errors.New(utils.JsToJson(e.Value))
		case error:
			*err = e
		default:
			*err = errors.Errorf("%+v", r)
		}
	}
}
