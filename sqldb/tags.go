////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package sqldb

import "github.com/litebridge/litebridge-wasm/worker"

// List of tags that can be used when sending a message or registering a
// handler to receive a message.
const (
	ConnectTag         worker.Tag = "Connect"
	CloseTag           worker.Tag = "Close"
	ExecTag            worker.Tag = "Exec"
	SelectValueTag     worker.Tag = "SelectValue"
	PrepareTag         worker.Tag = "Prepare"
	BindTag            worker.Tag = "Bind"
	StepAndResetTag    worker.Tag = "StepAndReset"
	StepAndFinalizeTag worker.Tag = "StepAndFinalize"
	FinalizeTag        worker.Tag = "Finalize"
	ExportTag          worker.Tag = "Export"
	ImportTag          worker.Tag = "Import"
)
