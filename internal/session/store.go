package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/unitable/pkg/adapter"
	"github.com/leapstack-labs/unitable/pkg/core"
	"github.com/leapstack-labs/unitable/pkg/expr"
)

// Table is a snapshot of one engine table: its id, columns and row count.
// The zero Table is the empty table and has no engine storage.
type Table struct {
	ID      string
	Columns []core.Column
	Rows    int64
}

// Names returns the column names in table order.
func (t Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the table has a column called name.
func (t Table) Has(name string) bool {
	return slices.ContainsFunc(t.Columns, func(c core.Column) bool { return c.Name == name })
}

// Index returns the position of column name, or -1 when absent.
func (t Table) Index(name string) int {
	return slices.IndexFunc(t.Columns, func(c core.Column) bool { return c.Name == name })
}

// Empty reports whether the table has no engine storage.
func (t Table) Empty() bool {
	return t.ID == ""
}

// store owns the single active table. Mutations build a new engine table
// (staging) and swap it in, handing back the displaced table so the caller
// can either discard it on commit or restore it on rollback.
type store struct {
	engine  adapter.Adapter
	prefix  string
	seq     int
	current Table
	logger  *slog.Logger
}

func newStore(engine adapter.Adapter, prefix string, logger *slog.Logger) *store {
	return &store{engine: engine, prefix: prefix, logger: logger}
}

// Current returns the active table.
func (s *store) Current() Table {
	return s.current
}

func (s *store) nextID() string {
	s.seq++
	return fmt.Sprintf("%s%d", s.prefix, s.seq)
}

// Stage builds a new engine table with build and describes it. The active
// table is not changed. A table that fails to build is dropped.
func (s *store) Stage(ctx context.Context, build func(ctx context.Context, dst string) error) (Table, error) {
	id := s.nextID()
	if err := build(ctx, id); err != nil {
		s.drop(ctx, id)
		return Table{}, err
	}
	meta, err := s.engine.GetTableMetadata(ctx, id)
	if err != nil {
		s.drop(ctx, id)
		return Table{}, fmt.Errorf("failed to describe staged table: %w", err)
	}
	return Table{ID: id, Columns: meta.Columns, Rows: meta.RowCount}, nil
}

// Replace makes next the active table and returns the previous one.
func (s *store) Replace(next Table) Table {
	prev := s.current
	s.current = next
	return prev
}

// Discard releases the engine storage of t.
func (s *store) Discard(ctx context.Context, t Table) {
	if t.Empty() {
		return
	}
	s.drop(ctx, t.ID)
}

func (s *store) drop(ctx context.Context, id string) {
	// Rollback and commit must still release tables after cancellation.
	if err := s.engine.DropTable(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Warn("failed to drop engine table", slog.String("table", id), slog.String("error", err.Error()))
	}
}

// MutateColumn stages the active table with column name set to e.
func (s *store) MutateColumn(ctx context.Context, name string, e expr.Expr) (Table, error) {
	src := s.current
	if src.Empty() {
		return Table{}, fmt.Errorf("cannot set %s: no data loaded", name)
	}
	for _, ref := range expr.Columns(e) {
		if !src.Has(ref) {
			return Table{}, &core.ColumnNotFoundError{Name: ref, Table: src.ID}
		}
	}
	return s.Stage(ctx, func(ctx context.Context, dst string) error {
		return s.engine.WithColumn(ctx, src.ID, dst, name, e)
	})
}

// RemoveColumns stages the active table without the named columns.
// Removing every column stages the empty table.
func (s *store) RemoveColumns(ctx context.Context, names ...string) (Table, error) {
	src := s.current
	for _, n := range names {
		if !src.Has(n) {
			return Table{}, &core.ColumnNotFoundError{Name: n, Table: src.ID}
		}
	}
	var keep []adapter.Projection
	for _, c := range src.Columns {
		if !slices.Contains(names, c.Name) {
			keep = append(keep, adapter.Projection{Name: c.Name})
		}
	}
	if len(keep) == 0 {
		return Table{}, nil
	}
	return s.Stage(ctx, func(ctx context.Context, dst string) error {
		return s.engine.Project(ctx, src.ID, dst, keep)
	})
}

// RenameColumn stages the active table with column old renamed to name.
// The columns keep their positions.
func (s *store) RenameColumn(ctx context.Context, old, name string) (Table, error) {
	src := s.current
	if !src.Has(old) {
		return Table{}, &core.ColumnNotFoundError{Name: old, Table: src.ID}
	}
	if src.Has(name) && name != old {
		return Table{}, fmt.Errorf("cannot rename %s: column %s already exists", old, name)
	}
	cols := make([]adapter.Projection, len(src.Columns))
	for i, c := range src.Columns {
		cols[i] = adapter.Projection{Name: c.Name}
		if c.Name == old {
			cols[i].As = name
		}
	}
	return s.Stage(ctx, func(ctx context.Context, dst string) error {
		return s.engine.Project(ctx, src.ID, dst, cols)
	})
}

// Derive stages a table computed from the active one by build.
func (s *store) Derive(ctx context.Context, build func(ctx context.Context, src, dst string) error) (Table, error) {
	src := s.current
	if src.Empty() {
		return Table{}, fmt.Errorf("no data loaded")
	}
	return s.Stage(ctx, func(ctx context.Context, dst string) error {
		return build(ctx, src.ID, dst)
	})
}
