// Package config provides configuration management for the unitable CLI.
//
// Values are layered with koanf: built-in defaults, then unitable.yaml, then
// UNITABLE_* environment variables, then explicitly set command-line flags.
package config

import (
	"github.com/leapstack-labs/unitable/pkg/core"
)

// EngineConfig selects and configures the tabular engine.
type EngineConfig struct {
	Type string `koanf:"type"`
	// Path is the engine database file. Empty or ":memory:" keeps the table
	// in memory.
	Path string `koanf:"path"`
	// Params holds engine-specific settings, decoded by the engine itself.
	Params map[string]any `koanf:"params"`
}

// JournalConfig controls the operation journal.
type JournalConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Config holds all CLI configuration options.
type Config struct {
	Engine      EngineConfig  `koanf:"engine"`
	Journal     JournalConfig `koanf:"journal"`
	Output      string        `koanf:"output"`
	Verbose     bool          `koanf:"verbose"`
	LogFormat   string        `koanf:"log_format"`
	HistoryFile string        `koanf:"history_file"`
	PreviewRows int           `koanf:"preview_rows"`
}

// Default configuration values.
const (
	DefaultEngine      = "duckdb"
	DefaultJournalFile = ".unitable/journal.db"
	DefaultHistoryFile = ".unitable/history"
	DefaultOutput      = "auto" // TTY=text, non-TTY=markdown
	DefaultLogFormat   = "text"
	DefaultPreviewRows = 10
)

// AdapterConfig converts the engine section into the adapter configuration.
func (c *Config) AdapterConfig() core.AdapterConfig {
	path := c.Engine.Path
	if path == "" {
		path = ":memory:"
	}
	return core.AdapterConfig{
		Type:   c.Engine.Type,
		Path:   path,
		Params: c.Engine.Params,
	}
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Engine:      EngineConfig{Type: DefaultEngine},
		Journal:     JournalConfig{Enabled: true, Path: DefaultJournalFile},
		Output:      DefaultOutput,
		LogFormat:   DefaultLogFormat,
		HistoryFile: DefaultHistoryFile,
		PreviewRows: DefaultPreviewRows,
	}
}
