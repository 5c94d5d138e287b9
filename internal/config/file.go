package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/dmitrijs2005/taskboard/internal/flagx"
)

// FileConfig is a DTO used only for decoding config files.
type FileConfig struct {
	DatabaseDriver string `json:"database_driver" toml:"database_driver"`
	DatabaseDSN    string `json:"database_dsn" toml:"database_dsn"`
	DataDir        string `json:"data_dir" toml:"data_dir"`
	LogLevel       string `json:"log_level" toml:"log_level"`
	LogFormat      string `json:"log_format" toml:"log_format"`
}

// parseFile overlays Config with the non-empty values of the file named by
// -c or -config. Read or decode errors panic.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag(os.Args[1:])
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var fc FileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &fc)
	} else {
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		panic(err)
	}

	overlay(&cfg.DatabaseDriver, fc.DatabaseDriver)
	overlay(&cfg.DatabaseDSN, fc.DatabaseDSN)
	overlay(&cfg.DataDir, fc.DataDir)
	overlay(&cfg.LogLevel, fc.LogLevel)
	overlay(&cfg.LogFormat, fc.LogFormat)
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
