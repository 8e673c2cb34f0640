////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package sqldb

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Connect opens the named database, selecting the best available storage
// mode, and returns the mode that was chosen. If a connection is already
// open, the call is a no-op that reports the existing connection's mode.
func (d *Database) Connect(databaseName string) (StorageMode, error) {
	msg := ConnectMessage{DatabaseName: databaseName}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", errors.Wrapf(err, "could not JSON marshal %T", msg)
	}

	response, err := d.wm.SendMessage(ConnectTag, data)
	if err != nil {
		return "", errors.Wrapf(err, "failed to send message to %q", ConnectTag)
	}

	var resp ConnectResponse
	if err = json.Unmarshal(response, &resp); err != nil {
		return "", errors.Wrapf(
			err, "failed to JSON unmarshal %T from worker", resp)
	}
	if resp.Error != nil {
		return "", resp.Error
	}

	return resp.StorageMode, nil
}

// Close releases the connection. It is safe to call when no connection
// exists. A later [Database.Connect] re-initializes the engine.
func (d *Database) Close() error {
	response, err := d.wm.SendMessage(CloseTag, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to send message to %q", CloseTag)
	}

	var resp CloseResponse
	if err = json.Unmarshal(response, &resp); err != nil {
		return errors.Wrapf(err, "failed to JSON unmarshal %T from worker", resp)
	}
	if resp.Error != nil {
		return resp.Error
	}

	return nil
}

// Exec runs a complete statement against the connection and returns nothing,
// a scalar, or a row sequence depending on the request's Result mode.
func (d *Database) Exec(req ExecRequest) (*ExecResult, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrapf(err, "could not JSON marshal %T", req)
	}

	response, err := d.wm.SendMessage(ExecTag, data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to %q", ExecTag)
	}

	var resp ExecResponse
	if err = json.Unmarshal(response, &resp); err != nil {
		return nil, errors.Wrapf(
			err, "failed to JSON unmarshal %T from worker", resp)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.Result == nil {
		resp.Result = &ExecResult{}
	}

	return resp.Result, nil
}

// ExecString runs a bare statement for its side effects only. It is shorthand
// for [Database.Exec] with an [ExecRequest] containing just the SQL.
func (d *Database) ExecString(sql string) error {
	_, err := d.Exec(ExecRequest{SQL: sql})
	return err
}

// SelectValue runs a query expected to produce a single scalar and returns
// it. found is false when no row matched; a matched row holding SQL NULL
// reports found with a nil value before coercion. The hint converts the
// JSON-decoded value into a concrete Go type; see [CoerceValue].
func (d *Database) SelectValue(
	sql string, bind []any, hint TypeHint) (value any, found bool, err error) {
	msg := SelectValueMessage{SQL: sql, Bind: bind}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, false, errors.Wrapf(err, "could not JSON marshal %T", msg)
	}

	response, err := d.wm.SendMessage(SelectValueTag, data)
	if err != nil {
		return nil, false, errors.Wrapf(
			err, "failed to send message to %q", SelectValueTag)
	}

	var resp SelectValueResponse
	if err = json.Unmarshal(response, &resp); err != nil {
		return nil, false, errors.Wrapf(
			err, "failed to JSON unmarshal %T from worker", resp)
	}
	if resp.Error != nil {
		return nil, false, resp.Error
	}
	if !resp.Found {
		return nil, false, nil
	}

	value, err = CoerceValue(resp.Value, hint)
	if err != nil {
		return nil, true, err
	}

	return value, true, nil
}

// Prepare compiles the statement against the connection and returns an
// opaque handle for it. The compiled statement stays resident in the
// background context until finalized.
func (d *Database) Prepare(sql string) (Handle, error) {
	msg := PrepareMessage{SQL: sql}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", errors.Wrapf(err, "could not JSON marshal %T", msg)
	}

	response, err := d.wm.SendMessage(PrepareTag, data)
	if err != nil {
		return "", errors.Wrapf(err, "failed to send message to %q", PrepareTag)
	}

	var resp HandleResponse
	if err = json.Unmarshal(response, &resp); err != nil {
		return "", errors.Wrapf(
			err, "failed to JSON unmarshal %T from worker", resp)
	}
	if resp.Error != nil {
		return "", resp.Error
	}

	return resp.Handle, nil
}

// Bind applies the values to the statement's parameters and returns the same
// handle to allow call chaining.
func (d *Database) Bind(handle Handle, values []any) (Handle, error) {
	msg := BindMessage{Handle: handle, Values: values}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", errors.Wrapf(err, "could not JSON marshal %T", msg)
	}

	response, err := d.wm.SendMessage(BindTag, data)
	if err != nil {
		return "", errors.Wrapf(err, "failed to send message to %q", BindTag)
	}

	var resp HandleResponse
	if err = json.Unmarshal(response, &resp); err != nil {
		return "", errors.Wrapf(
			err, "failed to JSON unmarshal %T from worker", resp)
	}
	if resp.Error != nil {
		return "", resp.Error
	}

	return resp.Handle, nil
}

// StepAndReset advances the statement one step and resets it for reuse,
// returning the handle for further binds. row reports whether the step
// produced a row.
func (d *Database) StepAndReset(handle Handle) (_ Handle, row bool, err error) {
	msg := StepMessage{Handle: handle}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", false, errors.Wrapf(err, "could not JSON marshal %T", msg)
	}

	response, err := d.wm.SendMessage(StepAndResetTag, data)
	if err != nil {
		return "", false, errors.Wrapf(
			err, "failed to send message to %q", StepAndResetTag)
	}

	var resp StepResponse
	if err = json.Unmarshal(response, &resp); err != nil {
		return "", false, errors.Wrapf(
			err, "failed to JSON unmarshal %T from worker", resp)
	}
	if resp.Error != nil {
		return "", false, resp.Error
	}

	return resp.Handle, resp.Row, nil
}

// StepAndFinalize advances the statement one step and then finalizes it,
// removing the handle. row reports whether the step produced a row and code
// is the engine's finalize result code.
func (d *Database) StepAndFinalize(handle Handle) (row bool, code int, err error) {
	msg := StepMessage{Handle: handle}
	data, err := json.Marshal(msg)
	if err != nil {
		return false, 0, errors.Wrapf(err, "could not JSON marshal %T", msg)
	}

	response, err := d.wm.SendMessage(StepAndFinalizeTag, data)
	if err != nil {
		return false, 0, errors.Wrapf(
			err, "failed to send message to %q", StepAndFinalizeTag)
	}

	var resp StepResponse
	if err = json.Unmarshal(response, &resp); err != nil {
		return false, 0, errors.Wrapf(
			err, "failed to JSON unmarshal %T from worker", resp)
	}
	if resp.Error != nil {
		return false, 0, resp.Error
	}

	return resp.Row, resp.Code, nil
}

// Finalize releases the statement's engine-level resources and removes the
// handle. Once finalized, the handle must not be reused; later calls with it
// fail with [ErrUnknownHandle].
func (d *Database) Finalize(handle Handle) (int, error) {
	msg := StepMessage{Handle: handle}
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, errors.Wrapf(err, "could not JSON marshal %T", msg)
	}

	response, err := d.wm.SendMessage(FinalizeTag, data)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to send message to %q", FinalizeTag)
	}

	var resp FinalizeResponse
	if err = json.Unmarshal(response, &resp); err != nil {
		return 0, errors.Wrapf(
			err, "failed to JSON unmarshal %T from worker", resp)
	}
	if resp.Error != nil {
		return 0, resp.Error
	}

	return resp.Code, nil
}

// Export serializes the database into an image. With a passphrase the image
// is sealed with a key derived from it; with an empty passphrase the raw
// image bytes are returned.
func (d *Database) Export(passphrase string) ([]byte, error) {
	msg := ExportMessage{Passphrase: passphrase}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrapf(err, "could not JSON marshal %T", msg)
	}

	response, err := d.wm.SendMessage(ExportTag, data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to %q", ExportTag)
	}

	var resp ExportResponse
	if err = json.Unmarshal(response, &resp); err != nil {
		return nil, errors.Wrapf(
			err, "failed to JSON unmarshal %T from worker", resp)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Image, nil
}

// Import replaces the open database's contents with the given image,
// unsealing it first when a passphrase is given, and reconnects. Returns the
// storage mode of the new connection.
func (d *Database) Import(image []byte, passphrase string) (StorageMode, error) {
	msg := ImportMessage{Image: image, Passphrase: passphrase}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", errors.Wrapf(err, "could not JSON marshal %T", msg)
	}

	response, err := d.wm.SendMessage(ImportTag, data)
	if err != nil {
		return "", errors.Wrapf(err, "failed to send message to %q", ImportTag)
	}

	var resp ConnectResponse
	if err = json.Unmarshal(response, &resp); err != nil {
		return "", errors.Wrapf(
			err, "failed to JSON unmarshal %T from worker", resp)
	}
	if resp.Error != nil {
		return "", resp.Error
	}

	return resp.StorageMode, nil
}
