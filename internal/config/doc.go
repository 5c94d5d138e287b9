// Package config loads runtime configuration for the taskboard CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables prefixed with TASKBOARD_ (see parseEnv).
//  3. Optional config file selected with -c or -config; .toml files are read
//     as TOML, anything else as JSON (see parseFile).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string       database DSN (SQLite file path or PostgreSQL URL)
//	-driver string  database driver: sqlite or pgx
//	-data string    data directory for the default SQLite file
//	-l string       log level: debug, info, warn, error
//
// # File layout
//
//	{
//	  "database_driver": "sqlite",
//	  "database_dsn": "/home/me/.taskboard/taskboard.db",
//	  "data_dir": "~/.taskboard",
//	  "log_level": "info",
//	  "log_format": "text"
//	}
//
// The TOML form uses the same keys.
package config
