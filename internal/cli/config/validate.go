package config

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/unitable/pkg/adapter"
)

// OutputModes lists the accepted values of the output key.
var OutputModes = []string{"auto", "text", "markdown", "json", "csv"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Engine.Type == "" {
		return fmt.Errorf("engine.type is required")
	}
	if !adapter.IsRegistered(c.Engine.Type) {
		return &adapter.UnknownAdapterError{Type: c.Engine.Type, Available: adapter.ListAdapters()}
	}
	if c.Output != "" && !slices.Contains(OutputModes, c.Output) {
		return fmt.Errorf("invalid output %q: want one of %v", c.Output, OutputModes)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q: want text or json", c.LogFormat)
	}
	if c.PreviewRows < 0 {
		return fmt.Errorf("preview_rows must not be negative, got %d", c.PreviewRows)
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled\nHint: set journal.enabled: false to run without a journal")
	}
	return nil
}
