package duckdb

import (
	"context"
	"database/sql"
	"testing"

	"github.com/leapstack-labs/unitable/pkg/core"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{Path: ":memory:"}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

// dump returns the table's header followed by its rows rendered as text, NULL as "NULL".
func dump(t *testing.T, adp *Adapter, table string) [][]string {
	t.Helper()
	rows, err := adp.Select(context.Background(), table, nil, nil, 0)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	require.NoError(t, err)
	out := [][]string{cols}
	for rows.Next() {
		vals := make([]sql.NullString, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		rec := make([]string, len(cols))
		for i, v := range vals {
			rec[i] = "NULL"
			if v.Valid {
				rec[i] = v.String
			}
		}
		out = append(out, rec)
	}
	require.NoError(t, rows.Err())
	return out
}

// seed creates table name from a literal SELECT.
func seed(t *testing.T, adp *Adapter, name, selectSQL string) {
	t.Helper()
	require.NoError(t, adp.Exec(context.Background(), "CREATE TABLE "+name+" AS "+selectSQL))
}
