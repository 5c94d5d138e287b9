package config

import (
	"github.com/dmitrijs2005/taskboard/internal/filex"
)

// DefaultDBFile is the SQLite file created inside DataDir when no DSN is set.
const DefaultDBFile = "taskboard.db"

// Config holds runtime settings for the taskboard CLI.
type Config struct {
	DatabaseDriver string `env:"DB_DRIVER"`
	// DatabaseDSN is empty by default, meaning DataDir/taskboard.db.
	DatabaseDSN string `env:"DB_DSN"`
	DataDir     string `env:"DATA_DIR"`
	LogLevel    string `env:"LOG_LEVEL"`
	LogFormat   string `env:"LOG_FORMAT"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = ""
	c.DataDir = "~/.taskboard"
	c.LogLevel = "warn"
	c.LogFormat = "text"
}

// LoadConfig applies defaults, environment, config file and flags, in that
// order. Malformed input panics, like a bad flag would.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}

// DSN returns the configured DSN or, for SQLite without one, the default
// database file inside DataDir (creating the directory).
func (c *Config) DSN() (string, error) {
	if c.DatabaseDSN != "" || (c.DatabaseDriver != "" && c.DatabaseDriver != "sqlite" && c.DatabaseDriver != "sqlite3") {
		return c.DatabaseDSN, nil
	}
	return filex.DataFile(c.DataDir, DefaultDBFile)
}
