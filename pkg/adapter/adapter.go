// Package adapter provides the tabular engine contract used by unitable sessions.
//
// This package contains the public contract that all engine adapters must implement.
// Concrete adapter implementations are in pkg/adapters/ subdirectories.
//
// Every transform reads one or two existing tables and materializes its result
// as a new table. Source tables are never modified, so a caller can discard
// the result and keep the original when a later step fails.
package adapter

import (
	"context"

	"github.com/leapstack-labs/unitable/pkg/core"
	"github.com/leapstack-labs/unitable/pkg/expr"
)

// Type aliases for core types used throughout adapter signatures.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Projection selects column Name and exposes it as As.
// An empty As keeps the original name.
type Projection struct {
	Name string
	As   string
}

// OutputName returns the column name in the projected table.
func (p Projection) OutputName() string {
	if p.As != "" {
		return p.As
	}
	return p.Name
}

// Adapter defines the interface that all engine adapters must implement.
// It provides methods for connecting, executing SQL, retrieving metadata
// and materializing derived tables.
type Adapter interface {
	// Connect establishes a connection to the engine using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// GetTableMetadata retrieves column metadata and row count for a table.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// DropTable removes a table. Dropping an absent table is not an error.
	DropTable(ctx context.Context, table string) error

	Transformer
}

// Transformer materializes derived tables. Each method creates dst and
// leaves its inputs untouched.
type Transformer interface {
	// Read loads a file into dst.
	Read(ctx context.Context, dst string, src core.Source) error

	// Write exports src to a file.
	Write(ctx context.Context, src string, sink core.Sink) error

	// CreateFromValues builds dst from literal rows. Every row has len(cols) values.
	CreateFromValues(ctx context.Context, dst string, cols []string, rows [][]any) error

	// Project keeps the listed columns, in order, optionally renaming them.
	Project(ctx context.Context, src, dst string, cols []Projection) error

	// WithColumn sets column name to e, replacing it in place when it exists
	// and appending it otherwise.
	WithColumn(ctx context.Context, src, dst, name string, e expr.Expr) error

	// Filter keeps the rows where pred is true.
	Filter(ctx context.Context, src, dst string, pred expr.Expr) error

	// Sort orders rows by keys. Ties keep their current order.
	Sort(ctx context.Context, src, dst string, keys []core.SortKey) error

	// Distinct keeps the first row of each group of duplicates. An empty
	// subset compares all columns.
	Distinct(ctx context.Context, src, dst string, subset []string) error

	// DropMissing removes rows with nulls in cols. With all set, only rows
	// where every listed column is null are removed.
	DropMissing(ctx context.Context, src, dst string, cols []string, all bool) error

	// Join combines left and right on opts.On.
	Join(ctx context.Context, left, right, dst string, opts core.JoinOptions) error

	// Union stacks bottom under top, matching columns by name.
	Union(ctx context.Context, top, bottom, dst string) error

	// Aggregate groups src by the given columns and computes aggs per group.
	Aggregate(ctx context.Context, src, dst string, by []string, aggs []core.Aggregation) error

	// Select returns cols of the rows matching pred, up to limit rows.
	// A nil pred matches every row and a non-positive limit returns all rows.
	Select(ctx context.Context, src string, cols []string, pred expr.Expr, limit int) (*Rows, error)
}
