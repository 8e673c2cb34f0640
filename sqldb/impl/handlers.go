////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package impl

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/litebridge/litebridge-wasm/backup"
	"github.com/litebridge/litebridge-wasm/sqldb"
	"github.com/litebridge/litebridge-wasm/worker"
)

// Manager handles the message callbacks for the database inside the
// background context.
type Manager struct {
	wtm       *worker.ThreadManager
	connector *Connector
	registry  *Registry
}

// NewManager creates a Manager that serves the connector's database over the
// given thread manager.
func NewManager(wtm *worker.ThreadManager, connector *Connector) *Manager {
	return &Manager{
		wtm:       wtm,
		connector: connector,
		registry:  NewRegistry(),
	}
}

// RegisterCallbacks registers all the reception callbacks to handle database
// messages from the main thread. Call [worker.ThreadManager.SignalReady] once
// this returns.
func (m *Manager) RegisterCallbacks() {
	m.wtm.RegisterCallback(sqldb.ConnectTag, m.connectCB)
	m.wtm.RegisterCallback(sqldb.CloseTag, m.closeCB)
	m.wtm.RegisterCallback(sqldb.ExecTag, m.execCB)
	m.wtm.RegisterCallback(sqldb.SelectValueTag, m.selectValueCB)
	m.wtm.RegisterCallback(sqldb.PrepareTag, m.prepareCB)
	m.wtm.RegisterCallback(sqldb.BindTag, m.bindCB)
	m.wtm.RegisterCallback(sqldb.StepAndResetTag, m.stepAndResetCB)
	m.wtm.RegisterCallback(sqldb.StepAndFinalizeTag, m.stepAndFinalizeCB)
	m.wtm.RegisterCallback(sqldb.FinalizeTag, m.finalizeCB)
	m.wtm.RegisterCallback(sqldb.ExportTag, m.exportCB)
	m.wtm.RegisterCallback(sqldb.ImportTag, m.importCB)
}

// respond JSON marshals the response so it can be sent back to the main
// thread. A marshal failure is returned as an error, which the thread manager
// logs; the main thread will time out waiting.
func respond(response any) ([]byte, error) {
	data, err := json.Marshal(response)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to JSON marshal %T", response)
	}
	return data, nil
}

// asError converts err into an [sqldb.Error] that can cross the worker
// boundary, preserving the kind when it already is one.
func asError(err error) *sqldb.Error {
	var e *sqldb.Error
	if errors.As(err, &e) {
		return e
	}
	return sqldb.NewError(sqldb.KindExecution, "%s", err)
}

// unmarshalError describes a request that could not be decoded.
func unmarshalError(msg any, err error) *sqldb.Error {
	return sqldb.NewError(sqldb.KindExecution,
		"failed to JSON unmarshal %T from main thread: %s", msg, err)
}

// connectCB opens the database connection for [sqldb.ConnectTag].
func (m *Manager) connectCB(data []byte) ([]byte, error) {
	var msg sqldb.ConnectMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return respond(sqldb.ConnectResponse{Error: unmarshalError(&msg, err)})
	}

	mode, err := m.connector.Connect(msg.DatabaseName)
	if err != nil {
		return respond(sqldb.ConnectResponse{Error: asError(err)})
	}
	return respond(sqldb.ConnectResponse{StorageMode: mode})
}

// closeCB closes the database connection for [sqldb.CloseTag]. Prepared
// statements still alive belong to the connection being closed, so they are
// finalized first.
func (m *Manager) closeCB([]byte) ([]byte, error) {
	m.registry.Clear()
	if err := m.connector.Close(); err != nil {
		return respond(sqldb.CloseResponse{Error: asError(err)})
	}
	return respond(sqldb.CloseResponse{})
}

// execCB runs a complete statement for [sqldb.ExecTag].
func (m *Manager) execCB(data []byte) ([]byte, error) {
	var req sqldb.ExecRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return respond(sqldb.ExecResponse{Error: unmarshalError(&req, err)})
	}

	conn, err := m.connector.Get()
	if err != nil {
		return respond(sqldb.ExecResponse{Error: asError(err)})
	}

	result, err := conn.Exec(req)
	if err != nil {
		return respond(sqldb.ExecResponse{Error: asError(err)})
	}
	return respond(sqldb.ExecResponse{Result: result})
}

// selectValueCB runs a single-value query for [sqldb.SelectValueTag].
func (m *Manager) selectValueCB(data []byte) ([]byte, error) {
	var msg sqldb.SelectValueMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return respond(
			sqldb.SelectValueResponse{Error: unmarshalError(&msg, err)})
	}

	conn, err := m.connector.Get()
	if err != nil {
		return respond(sqldb.SelectValueResponse{Error: asError(err)})
	}

	value, found, err := conn.SelectValue(msg.SQL, msg.Bind)
	if err != nil {
		return respond(sqldb.SelectValueResponse{Error: asError(err)})
	}
	return respond(sqldb.SelectValueResponse{Value: value, Found: found})
}

// prepareCB compiles a statement for [sqldb.PrepareTag] and registers it
// under a new handle.
func (m *Manager) prepareCB(data []byte) ([]byte, error) {
	var msg sqldb.PrepareMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return respond(sqldb.HandleResponse{Error: unmarshalError(&msg, err)})
	}

	conn, err := m.connector.Get()
	if err != nil {
		return respond(sqldb.HandleResponse{Error: asError(err)})
	}

	stmt, err := conn.Prepare(msg.SQL)
	if err != nil {
		return respond(sqldb.HandleResponse{Error: asError(err)})
	}

	handle := m.registry.Insert(stmt, msg.SQL)
	return respond(sqldb.HandleResponse{Handle: handle})
}

// bindCB applies parameter values to a registered statement for
// [sqldb.BindTag].
func (m *Manager) bindCB(data []byte) ([]byte, error) {
	var msg sqldb.BindMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return respond(sqldb.HandleResponse{Error: unmarshalError(&msg, err)})
	}

	if _, err := m.connector.Get(); err != nil {
		return respond(sqldb.HandleResponse{Error: asError(err)})
	}

	if err := m.registry.Bind(msg.Handle, msg.Values); err != nil {
		return respond(sqldb.HandleResponse{Error: asError(err)})
	}
	return respond(sqldb.HandleResponse{Handle: msg.Handle})
}

// stepAndResetCB steps and resets a registered statement for
// [sqldb.StepAndResetTag].
func (m *Manager) stepAndResetCB(data []byte) ([]byte, error) {
	var msg sqldb.StepMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return respond(sqldb.StepResponse{Error: unmarshalError(&msg, err)})
	}

	if _, err := m.connector.Get(); err != nil {
		return respond(sqldb.StepResponse{Error: asError(err)})
	}

	row, err := m.registry.StepAndReset(msg.Handle)
	if err != nil {
		return respond(sqldb.StepResponse{Error: asError(err)})
	}
	return respond(sqldb.StepResponse{Handle: msg.Handle, Row: row})
}

// stepAndFinalizeCB steps and finalizes a registered statement for
// [sqldb.StepAndFinalizeTag].
func (m *Manager) stepAndFinalizeCB(data []byte) ([]byte, error) {
	var msg sqldb.StepMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return respond(sqldb.StepResponse{Error: unmarshalError(&msg, err)})
	}

	if _, err := m.connector.Get(); err != nil {
		return respond(sqldb.StepResponse{Error: asError(err)})
	}

	row, code, err := m.registry.StepAndFinalize(msg.Handle)
	if err != nil {
		return respond(sqldb.StepResponse{Error: asError(err)})
	}
	return respond(sqldb.StepResponse{Row: row, Code: code})
}

// finalizeCB finalizes a registered statement for [sqldb.FinalizeTag].
func (m *Manager) finalizeCB(data []byte) ([]byte, error) {
	var msg sqldb.StepMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return respond(
			sqldb.FinalizeResponse{Error: unmarshalError(&msg, err)})
	}

	if _, err := m.connector.Get(); err != nil {
		return respond(sqldb.FinalizeResponse{Error: asError(err)})
	}

	code, err := m.registry.Finalize(msg.Handle)
	if err != nil {
		return respond(sqldb.FinalizeResponse{Error: asError(err)})
	}
	return respond(sqldb.FinalizeResponse{Code: code})
}

// exportCB serializes the database for [sqldb.ExportTag], sealing the image
// when a passphrase is supplied.
func (m *Manager) exportCB(data []byte) ([]byte, error) {
	var msg sqldb.ExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return respond(sqldb.ExportResponse{Error: unmarshalError(&msg, err)})
	}

	conn, err := m.connector.Get()
	if err != nil {
		return respond(sqldb.ExportResponse{Error: asError(err)})
	}

	image, err := conn.Serialize()
	if err != nil {
		return respond(sqldb.ExportResponse{Error: asError(err)})
	}

	if msg.Passphrase != "" {
		image, err = backup.Seal(image, msg.Passphrase)
		if err != nil {
			return respond(sqldb.ExportResponse{Error: asError(err)})
		}
	}
	return respond(sqldb.ExportResponse{Image: image})
}

// importCB replaces the database contents for [sqldb.ImportTag], unsealing
// the image first when a passphrase is supplied. Statements prepared against
// the old contents are finalized.
func (m *Manager) importCB(data []byte) ([]byte, error) {
	var msg sqldb.ImportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return respond(sqldb.ConnectResponse{Error: unmarshalError(&msg, err)})
	}

	conn, err := m.connector.Get()
	if err != nil {
		return respond(sqldb.ConnectResponse{Error: asError(err)})
	}

	image := msg.Image
	if msg.Passphrase != "" {
		image, err = backup.Open(image, msg.Passphrase)
		if err != nil {
			return respond(sqldb.ConnectResponse{Error: sqldb.NewError(
				sqldb.KindDecryption, "%s", err)})
		}
	} else if backup.IsSealed(image) {
		return respond(sqldb.ConnectResponse{Error: sqldb.NewError(
			sqldb.KindDecryption, "image is sealed; a passphrase is required")})
	}

	m.registry.Clear()
	if err = conn.Deserialize(image); err != nil {
		return respond(sqldb.ConnectResponse{Error: asError(err)})
	}

	mode, err := m.connector.Mode()
	if err != nil {
		return respond(sqldb.ConnectResponse{Error: asError(err)})
	}
	return respond(sqldb.ConnectResponse{StorageMode: mode})
}
