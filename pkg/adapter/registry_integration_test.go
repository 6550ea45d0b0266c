package adapter_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/unitable/pkg/adapter"
	"github.com/leapstack-labs/unitable/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/unitable/pkg/adapters/duckdb"
)

func TestListAdapters_IncludesDuckDB(t *testing.T) {
	names := adapter.ListAdapters()
	assert.Contains(t, names, "duckdb")
	assert.IsIncreasing(t, names)
	assert.True(t, adapter.IsRegistered("duckdb"))
	assert.False(t, adapter.IsRegistered("DuckDB"), "engine names are case sensitive")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     core.AdapterConfig
		wantErr string
	}{
		{name: "in memory", cfg: core.AdapterConfig{Type: "duckdb", Path: ":memory:"}},
		{name: "database file", cfg: core.AdapterConfig{Type: "duckdb", Path: filepath.Join(t.TempDir(), "tables.duckdb")}},
		{name: "missing directory", cfg: core.AdapterConfig{Type: "duckdb", Path: filepath.Join(t.TempDir(), "no", "such", "dir", "x.duckdb")}, wantErr: "failed to connect to duckdb"},
		{name: "unknown engine", cfg: core.AdapterConfig{Type: "oracle"}, wantErr: `unknown engine "oracle"`},
		{name: "no engine", cfg: core.AdapterConfig{}, wantErr: "engine type not specified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := adapter.Open(ctx, tt.cfg, nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, a)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { _ = a.Close() })

			rows, err := a.Query(ctx, "SELECT 41 + 1")
			require.NoError(t, err)
			defer func() { _ = rows.Close() }()
			require.True(t, rows.Next())
			var n int
			require.NoError(t, rows.Scan(&n))
			assert.Equal(t, 42, n)
		})
	}
}

func TestNewAdapter_UnknownTypeListsEngines(t *testing.T) {
	_, err := adapter.NewAdapter(core.AdapterConfig{Type: "unknown_engine"}, nil)

	var unknown *adapter.UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "unknown_engine", unknown.Type)
	assert.Contains(t, unknown.Available, "duckdb")
}
