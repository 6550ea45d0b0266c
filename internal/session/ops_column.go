package session

import (
	"context"
	"fmt"
	"slices"

	"github.com/leapstack-labs/unitable/pkg/adapter"
	"github.com/leapstack-labs/unitable/pkg/core"
	"github.com/leapstack-labs/unitable/pkg/expr"
)

// requireColumns fails with *core.UnboundVariableError for the first name
// that is not a bound column of the current table.
func (s *Session) requireColumns(op string, names ...string) error {
	cur := s.store.Current()
	for _, name := range names {
		if !cur.Has(name) || !s.dir.Bound(name) {
			return &core.UnboundVariableError{Name: name, Op: op}
		}
	}
	return nil
}

// requireRefs checks that every column e reads is currently loaded.
func (s *Session) requireRefs(op string, e expr.Expr) error {
	return s.requireColumns(op, expr.Columns(e)...)
}

// Generate adds column name computed from e and binds it. The name is
// validated before any work is done. Generating an existing column
// recomputes it and rebinds the name.
func (s *Session) Generate(ctx context.Context, name string, e expr.Expr) error {
	return s.run(ctx, "generate", name, func(ctx context.Context) error {
		if s.store.Current().Empty() {
			return fmt.Errorf("cannot generate %s: no data loaded", name)
		}
		if err := s.requireRefs("use", e); err != nil {
			return err
		}
		stage := func(ctx context.Context) (Table, error) {
			return s.store.MutateColumn(ctx, name, e)
		}
		if s.store.Current().Has(name) {
			return s.syncOne(ctx, "generate", name, name, stage)
		}
		if err := Validate(s.scope, name); err != nil {
			return err
		}
		return s.syncOne(ctx, "generate", "", name, stage)
	})
}

// Replace recomputes the column h from e.
func (s *Session) Replace(ctx context.Context, h core.Handle, e expr.Expr) error {
	return s.run(ctx, "replace", h.Name, func(ctx context.Context) error {
		if err := s.requireColumns("replace", h.Name); err != nil {
			return err
		}
		if err := s.requireRefs("use", e); err != nil {
			return err
		}
		return s.syncOne(ctx, "replace", h.Name, h.Name, func(ctx context.Context) (Table, error) {
			return s.store.MutateColumn(ctx, h.Name, e)
		})
	})
}

// Rename renames the column h to name. Renaming a column to its own name
// does nothing.
func (s *Session) Rename(ctx context.Context, h core.Handle, name string) error {
	return s.run(ctx, "rename", h.Name+" to "+name, func(ctx context.Context) error {
		if err := s.requireColumns("rename", h.Name); err != nil {
			return err
		}
		if name == h.Name {
			return nil
		}
		if err := Validate(s.scope, name); err != nil {
			return err
		}
		return s.syncOne(ctx, "rename", h.Name, name, func(ctx context.Context) (Table, error) {
			return s.store.RenameColumn(ctx, h.Name, name)
		})
	})
}

// Drop removes the given columns and their bindings.
func (s *Session) Drop(ctx context.Context, hs ...core.Handle) error {
	names := uniqueNames(hs)
	target := fmt.Sprint(names)
	if len(names) == 1 {
		target = names[0]
	}
	return s.run(ctx, "drop", target, func(ctx context.Context) error {
		if len(names) == 0 {
			return fmt.Errorf("drop needs at least one variable")
		}
		if err := s.requireColumns("drop", names...); err != nil {
			return err
		}
		stage := func(ctx context.Context) (Table, error) {
			return s.store.RemoveColumns(ctx, names...)
		}
		if len(names) == 1 {
			return s.syncOne(ctx, "drop", names[0], "", stage)
		}
		return s.syncAll(ctx, "drop", stage)
	})
}

// Keep keeps only the given columns, in the given order. Every other
// column is discarded and unbound.
func (s *Session) Keep(ctx context.Context, hs ...core.Handle) error {
	names := uniqueNames(hs)
	return s.run(ctx, "keep", "", func(ctx context.Context) error {
		if len(names) == 0 {
			return fmt.Errorf("keep needs at least one variable")
		}
		if err := s.requireColumns("keep", names...); err != nil {
			return err
		}
		cols := make([]adapter.Projection, len(names))
		for i, n := range names {
			cols[i] = adapter.Projection{Name: n}
		}
		return s.syncAll(ctx, "keep", func(ctx context.Context) (Table, error) {
			return s.store.Derive(ctx, func(ctx context.Context, src, dst string) error {
				return s.engine.Project(ctx, src, dst, cols)
			})
		})
	})
}

func uniqueNames(hs []core.Handle) []string {
	names := make([]string, 0, len(hs))
	for _, h := range hs {
		if !slices.Contains(names, h.Name) {
			names = append(names, h.Name)
		}
	}
	return names
}
