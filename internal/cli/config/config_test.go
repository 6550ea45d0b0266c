package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/unitable/pkg/adapter"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/unitable/pkg/adapters/duckdb"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "unitable.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("engine", "", "")
	flags.String("database", "", "")
	flags.String("journal", "", "")
	flags.String("output", "", "")
	flags.Int("preview-rows", 0, "")
	flags.Bool("verbose", false, "")
	return flags
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultEngine, cfg.Engine.Type)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, DefaultJournalFile, cfg.Journal.Path)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, DefaultPreviewRows, cfg.PreviewRows)
	assert.Equal(t, ":memory:", cfg.AdapterConfig().Path)
	assert.Same(t, cfg, GetCurrentConfig())
	assert.Empty(t, GetConfigFileUsed())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, `engine:
  type: duckdb
  path: data/session.duckdb
  params:
    settings:
      threads: "2"
journal:
  path: /var/lib/unitable/journal.db
output: markdown
preview_rows: 5
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, filepath.Join(dir, "data", "session.duckdb"), cfg.Engine.Path)
	assert.Equal(t, "/var/lib/unitable/journal.db", cfg.Journal.Path)
	assert.Equal(t, filepath.Join(dir, DefaultHistoryFile), cfg.HistoryFile)
	assert.Equal(t, "markdown", cfg.Output)
	assert.Equal(t, 5, cfg.PreviewRows)
	assert.Equal(t, map[string]any{"threads": "2"}, cfg.Engine.Params["settings"])

	ac := cfg.AdapterConfig()
	assert.Equal(t, "duckdb", ac.Type)
	assert.Equal(t, cfg.Engine.Path, ac.Path)
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeConfig(t, "preview_rows: 5\n")

	t.Run("file", func(t *testing.T) {
		ResetConfig()
		cfg, err := LoadConfig(path, newFlags())
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.PreviewRows)
	})

	t.Run("env over file", func(t *testing.T) {
		ResetConfig()
		t.Setenv("UNITABLE_PREVIEW_ROWS", "7")
		cfg, err := LoadConfig(path, newFlags())
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.PreviewRows, "unset flags fall back to env")
	})

	t.Run("flag over env", func(t *testing.T) {
		ResetConfig()
		t.Setenv("UNITABLE_PREVIEW_ROWS", "7")
		flags := newFlags()
		require.NoError(t, flags.Set("preview-rows", "9"))
		cfg, err := LoadConfig(path, flags)
		require.NoError(t, err)
		assert.Equal(t, 9, cfg.PreviewRows)
	})
}

func TestLoadConfig_NestedEnv(t *testing.T) {
	ResetConfig()
	t.Setenv("UNITABLE_JOURNAL__ENABLED", "false")
	t.Setenv("UNITABLE_ENGINE__PATH", "/tmp/from_env.duckdb")

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, "/tmp/from_env.duckdb", cfg.Engine.Path)
}

func TestLoadConfig_FlagPathsStayRelativeToWorkingDir(t *testing.T) {
	ResetConfig()
	path := writeConfig(t, "journal:\n  path: journal.db\n")
	flags := newFlags()
	require.NoError(t, flags.Set("database", "out.duckdb"))

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)
	assert.Equal(t, "out.duckdb", cfg.Engine.Path)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "journal.db"), cfg.Journal.Path)
}

func TestLoadConfig_ExpandsEnvVarsInPaths(t *testing.T) {
	ResetConfig()
	t.Setenv("UNITABLE_TEST_DIR", "/srv/data")
	path := writeConfig(t, "engine:\n  path: ${UNITABLE_TEST_DIR}/tips.duckdb\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "/srv/data/tips.duckdb", cfg.Engine.Path)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"unknown engine", "engine:\n  type: mysql\n", "unknown engine"},
		{"bad output", "output: html\n", "invalid output"},
		{"malformed yaml", "engine: [\n", "error reading config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{"default is valid", func(*Config) {}, ""},
		{"missing engine", func(c *Config) { c.Engine.Type = "" }, "engine.type is required"},
		{"unregistered engine", func(c *Config) { c.Engine.Type = "oracle" }, "unknown engine"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "invalid log_format"},
		{"negative preview", func(c *Config) { c.PreviewRows = -1 }, "preview_rows"},
		{"journal without path", func(c *Config) { c.Journal.Path = "" }, "journal.path is required"},
		{"disabled journal without path", func(c *Config) { c.Journal = JournalConfig{} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestConfig_Validate_UnknownEngineListsAvailable(t *testing.T) {
	cfg := Default()
	cfg.Engine.Type = "sqlite"

	var unknown *adapter.UnknownAdapterError
	require.ErrorAs(t, cfg.Validate(), &unknown)
	assert.Contains(t, unknown.Available, "duckdb")
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("UNITABLE_TEST_USER", "alice")

	tests := []struct {
		in   string
		want string
	}{
		{"${UNITABLE_TEST_USER}", "alice"},
		{"/home/${UNITABLE_TEST_USER}/data", "/home/alice/data"},
		{"${UNITABLE_TEST_UNSET}", "${UNITABLE_TEST_UNSET}"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, expandEnvVars(tt.in), tt.in)
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "engine.path", envKey("UNITABLE_ENGINE__PATH"))
	assert.Equal(t, "preview_rows", envKey("UNITABLE_PREVIEW_ROWS"))
	assert.Equal(t, "verbose", envKey("UNITABLE_VERBOSE"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := Default()
	NewLogger(&buf, cfg).Info("hidden")
	assert.Empty(t, buf.String(), "info is below the default level")

	cfg.Verbose = true
	NewLogger(&buf, cfg).Debug("shown", "op", "sort")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "op=sort")

	buf.Reset()
	cfg.LogFormat = "json"
	NewLogger(&buf, cfg).Debug("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()), "falls back to a discard logger")

	logger := NewLogger(&bytes.Buffer{}, Default())
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
