////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build js && wasm

package main

import (
	"fmt"
	"syscall/js"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/litebridge/litebridge-wasm/logging"
	"github.com/litebridge/litebridge-wasm/sqldb/impl"
	"github.com/litebridge/litebridge-wasm/worker"
)

func init() {
	// Set up Javascript console listener set at level INFO
	ll := logging.NewJsConsoleLogListener(jww.LevelInfo)
	logging.AddLogListener(ll.Listen)
	jww.SetStdoutThreshold(jww.LevelFatal + 1)
}

func main() {
	fmt.Println("[WW] Starting WebAssembly SQL Database Worker.")
	jww.INFO.Print("[WW] Starting WebAssembly SQL Database Worker.")

	js.Global().Set("LogLevel", js.FuncOf(logging.LogLevelJS))
	js.Global().Set("LogToFile", js.FuncOf(logging.LogToFileJS))

	port, err := worker.Self()
	if err != nil {
		jww.FATAL.Panicf("[WW] Failed to get worker's own port: %+v", err)
	}

	wtm, err := worker.NewThreadManager(port, "sqldb", worker.DefaultParams())
	if err != nil {
		jww.FATAL.Panicf("[WW] Failed to start thread manager: %+v", err)
	}

	m := impl.NewManager(wtm, impl.NewConnector(impl.NewWasmEngine()))
	m.RegisterCallbacks()
	wtm.SignalReady()
	<-make(chan bool)
	fmt.Println("[WW] Closing WebAssembly SQL Database Worker.")
}
