////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build !js

// sqlshell is a native harness for the database bridge. It drives the same
// client API and wire protocol the WASM module uses in the browser, but over
// an in-process pipe backed by the file-based SQLite engine, which makes the
// full statement lifecycle scriptable from a terminal.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/litebridge/litebridge-wasm/sqldb"
	"github.com/litebridge/litebridge-wasm/sqldb/impl"
	"github.com/litebridge/litebridge-wasm/worker"
)

// bridgeName labels both ends of the in-process pipe in log output.
const bridgeName = "sqlshell"

// Flag variables.
var (
	configPath, baseDir, database, logFile, historyFile string
	logLevel                                            int
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

var cmd = &cobra.Command{
	Use: "sqlshell",
	Short: "Interactive shell for the database bridge. Runs the same " +
		"client API as the WASM module over an in-process pipe with a " +
		"file-based SQLite engine behind it. Refer to the flags for details.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %+v\n", err)
			os.Exit(1)
		}
		applyFlags(cmd, &cfg)

		// Initialize the logging
		initLog(jww.Threshold(cfg.LogLevel), cfg.LogFile)

		db, stop, err := startBridge(cfg.BaseDir)
		if err != nil {
			jww.FATAL.Panicf("Failed to start database bridge: %+v", err)
		}
		defer stop()

		if cfg.HistoryFile == "" {
			cfg.HistoryFile = defaultHistoryPath()
		}

		r := newREPL(db, os.Stdout, cfg.HistoryFile)
		if cfg.Database != "" {
			r.dispatch("open " + cfg.Database)
		}

		if err = r.Run(); err != nil {
			jww.FATAL.Panicf("Shell failed: %+v", err)
		}
	},
}

// init is the initialization function for Cobra which defines flags.
func init() {
	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to a JSONC config file. Defaults to sqlshell/config.json in "+
			"the user config directory; flags take precedence over it.")
	cmd.Flags().StringVarP(&baseDir, "dir", "d", "",
		"Directory database files are stored under. Empty keeps databases "+
			"in memory.")
	cmd.Flags().StringVarP(&database, "database", "b", "",
		"Database to connect to on startup.")
	cmd.Flags().StringVar(&historyFile, "history", "",
		"Path to the command history file.")
	cmd.Flags().StringVarP(&logFile, "log", "l", "-",
		"Log output path. By default, logs are printed to stdout. "+
			"To disable logging, set this to empty (\"\").")
	cmd.Flags().IntVarP(&logLevel, "logLevel", "v", 4,
		"Verbosity level of logging. 0 = TRACE, 1 = DEBUG, 2 = INFO, "+
			"3 = WARN, 4 = ERROR, 5 = CRITICAL, 6 = FATAL")
}

// applyFlags lets command line flags take precedence over the config file.
func applyFlags(cmd *cobra.Command, cfg *Config) {
	f := cmd.Flags()
	if f.Changed("dir") {
		cfg.BaseDir = baseDir
	}
	if f.Changed("database") {
		cfg.Database = database
	}
	if f.Changed("history") {
		cfg.HistoryFile = historyFile
	}
	if f.Changed("log") {
		cfg.LogFile = logFile
	}
	if f.Changed("logLevel") {
		cfg.LogLevel = logLevel
	}
}

// startBridge wires a client to a background database service over an
// in-process pipe, mirroring the worker topology the WASM module uses in the
// browser. The returned function stops both ends.
func startBridge(baseDir string) (*sqldb.Database, func(), error) {
	mainPort, workerPort := worker.NewPipe()
	params := worker.DefaultParams()

	wtm, err := worker.NewThreadManager(workerPort, bridgeName, params)
	if err != nil {
		return nil, nil, err
	}
	m := impl.NewManager(wtm, impl.NewConnector(impl.NewSQLiteEngine(baseDir)))
	m.RegisterCallbacks()

	wm, err := worker.NewPortManager(mainPort, bridgeName, params)
	if err != nil {
		wtm.Stop()
		return nil, nil, err
	}

	wtm.SignalReady()
	if err = wm.WaitForReady(5 * time.Second); err != nil {
		wm.Stop()
		wtm.Stop()
		return nil, nil, err
	}

	stop := func() {
		wm.Stop()
		wtm.Stop()
	}

	return sqldb.New(wm), stop, nil
}

// initLog will enable JWW logging to the given log path with the given
// threshold. If log path is empty, then logging is not enabled. Panics if the
// log file cannot be opened or if the threshold is invalid.
func initLog(threshold jww.Threshold, logPath string) {
	if logPath == "" {
		// Do not enable logging if no log file is set
		return
	} else if logPath != "-" {
		// Set the log file if stdout is not selected

		// Disable stdout output
		jww.SetStdoutOutput(io.Discard)

		// Use log file
		logOutput, err :=
			os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			panic(err)
		}
		jww.SetLogOutput(logOutput)
	}

	if threshold < jww.LevelTrace || threshold > jww.LevelFatal {
		panic("Invalid log threshold: " + strconv.Itoa(int(threshold)))
	}

	// Display microseconds if the threshold is set to TRACE or DEBUG
	if threshold == jww.LevelTrace || threshold == jww.LevelDebug {
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	// Enable logging
	jww.SetStdoutThreshold(threshold)
	jww.SetLogThreshold(threshold)
	jww.INFO.Printf("Log level set to: %s", threshold)
}
