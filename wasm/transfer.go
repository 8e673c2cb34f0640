////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package wasm

import (
	"syscall/js"

	"gitlab.com/elixxir/wasm-utils/exception"
	"gitlab.com/elixxir/wasm-utils/utils"
)

// ExportDatabase serializes the database into a single image suitable for
// download or transfer to another device.
//
// Parameters:
//   - args[0] - Passphrase to seal the image with (string). Pass an empty
//     string or undefined to export the raw image.
//
// Returns a promise:
//   - Resolves to the database image (Uint8Array).
//   - Rejected with an error if serialization fails.
func (d *Database) ExportDatabase(_ js.Value, args []js.Value) any {
	var passphrase string
	if len(args) > 0 && !args[0].IsUndefined() {
		passphrase = args[0].String()
	}

	promiseFn := func(resolve, reject func(args ...any) js.Value) {
		image, err := d.api.Export(passphrase)
		if err != nil {
			reject(exception.NewTrace(err))
		} else {
			resolve(utils.CopyBytesToJS(image))
		}
	}

	return utils.CreatePromise(promiseFn)
}

// ImportDatabase replaces the open database's contents with the given image
// and reconnects to it. Statement handles from before the import are
// invalidated.
//
// Parameters:
//   - args[0] - Database image from [Database.ExportDatabase] (Uint8Array).
//   - args[1] - Passphrase the image was sealed with (string). Pass an empty
//     string or undefined for a raw image.
//
// Returns a promise:
//   - Resolves to the storage mode of the new connection (string).
//   - Rejected with an error if unsealing or loading the image fails.
func (d *Database) ImportDatabase(_ js.Value, args []js.Value) any {
	image := utils.CopyBytesToGo(args[0])

	var passphrase string
	if len(args) > 1 && !args[1].IsUndefined() {
		passphrase = args[1].String()
	}

	promiseFn := func(resolve, reject func(args ...any) js.Value) {
		mode, err := d.api.Import(image, passphrase)
		if err != nil {
			reject(exception.NewTrace(err))
		} else {
			resolve(string(mode))
		}
	}

	return utils.CreatePromise(promiseFn)
}
