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
	"os"
	"os/signal"
	"syscall"
	"syscall/js"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/litebridge/litebridge-wasm/logging"
	"github.com/litebridge/litebridge-wasm/storage"
	"github.com/litebridge/litebridge-wasm/wasm"
)

func init() {
	// Set up Javascript console listener set at level INFO
	ll := logging.NewJsConsoleLogListener(jww.LevelInfo)
	logging.AddLogListener(ll.Listen)
	jww.SetStdoutThreshold(jww.LevelFatal + 1)

	// Check that the WASM binary version is correct
	err := storage.CheckAndStoreVersion()
	if err != nil {
		jww.FATAL.Panicf("WASM binary version error: %+v", err)
	}
}

func main() {
	fmt.Println("Go Web Assembly")

	// wasm/database.go
	js.Global().Set("NewDatabase", js.FuncOf(wasm.NewDatabase))

	// wasm/storage.go
	js.Global().Set("StoredDatabases", js.FuncOf(wasm.StoredDatabases))
	js.Global().Set("Purge", js.FuncOf(wasm.Purge))

	// wasm/params.go
	js.Global().Set("GetDefaultWorkerParams",
		js.FuncOf(wasm.GetDefaultWorkerParams))

	// wasm/version.go
	js.Global().Set("GetVersion", js.FuncOf(wasm.GetVersion))
	js.Global().Set("GetOldVersion", js.FuncOf(wasm.GetOldVersion))

	// logging/logLevel.go
	js.Global().Set("LogLevel", js.FuncOf(logging.LogLevelJS))

	// logging/file.go
	js.Global().Set("LogToFile", js.FuncOf(logging.LogToFileJS))

	// Wait until the user terminates the program
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	os.Exit(0)
}
