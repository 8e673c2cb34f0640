////////////////////////////////////////////////////////////////////////////////
// Copyright © 2023 LiteBridge                                                //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

//go:build !js

package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/tailscale/hujson"
)

// configFileName is the config file looked up under the user config
// directory when no explicit path is given.
const configFileName = "config.json"

// Config holds the shell's settings. The config file is JSONC, so comments
// and trailing commas are allowed.
type Config struct {
	// BaseDir is the directory database files are stored under. When empty,
	// databases are kept in memory.
	BaseDir string `json:"baseDir"`

	// Database, when set, is connected to on startup.
	Database string `json:"database"`

	// HistoryFile stores the command history between sessions. When empty,
	// it defaults to "history" next to the config file.
	HistoryFile string `json:"historyFile"`

	// LogFile is the log output path. "-" logs to stdout and an empty string
	// disables logging.
	LogFile string `json:"logFile"`

	// LogLevel is the log verbosity. 0 = TRACE, 1 = DEBUG, 2 = INFO,
	// 3 = WARN, 4 = ERROR, 5 = CRITICAL, 6 = FATAL.
	LogLevel int `json:"logLevel"`
}

// defaultConfig returns the settings used when neither the config file nor
// flags override them.
func defaultConfig() Config {
	return Config{
		LogFile:  "-",
		LogLevel: int(jww.LevelError),
	}
}

// loadConfig reads the config file at path. An empty path falls back to the
// default location and tolerates a missing file; an explicit path must
// exist. Absent fields keep their defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	mustExist := path != ""
	if path == "" {
		path = defaultConfigPath()
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return cfg, nil
		}
		return Config{}, errors.Wrapf(err, "failed to read config %q", path)
	}

	if err = parseConfig(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "invalid config %q", path)
	}

	return cfg, nil
}

// parseConfig standardizes the JSONC data to JSON and unmarshals it over
// cfg, keeping cfg's values for absent fields.
func parseConfig(data []byte, cfg *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return errors.Wrap(err, "invalid JSONC")
	}

	if err = json.Unmarshal(standardized, cfg); err != nil {
		return errors.Wrap(err, "invalid JSON")
	}

	return nil
}

// defaultConfigPath returns the default config file location, or an empty
// string when no user config directory is available.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "sqlshell", configFileName)
}

// defaultHistoryPath returns the default history file location, or an empty
// string when no user config directory is available.
func defaultHistoryPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "sqlshell", "history")
}
