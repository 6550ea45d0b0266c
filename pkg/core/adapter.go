package core

import (
	"database/sql"
)

// AdapterConfig holds configuration for connecting to a tabular engine.
type AdapterConfig struct {
	Type    string
	Path    string
	Options map[string]string
	Params  map[string]any
}

// Column describes one column of an engine table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// TableMetadata holds metadata about an engine table.
type TableMetadata struct {
	Name     string
	Columns  []Column
	RowCount int64
}

// ColumnNames returns the column names in table order.
func (m *TableMetadata) ColumnNames() []string {
	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	return names
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
