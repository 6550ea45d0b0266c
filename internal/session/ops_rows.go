package session

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/unitable/pkg/core"
	"github.com/leapstack-labs/unitable/pkg/expr"
)

// filterRows runs a row-subset operation under the full protocol.
func (s *Session) filterRows(ctx context.Context, op string, build func(ctx context.Context, src, dst string) error) error {
	return s.syncAll(ctx, op, func(ctx context.Context) (Table, error) {
		return s.store.Derive(ctx, build)
	})
}

// KeepIf keeps the rows where pred is true.
func (s *Session) KeepIf(ctx context.Context, pred expr.Expr) error {
	return s.run(ctx, "keep_if", expr.Render(pred), func(ctx context.Context) error {
		if err := s.requireRefs("use", pred); err != nil {
			return err
		}
		return s.filterRows(ctx, "keep_if", func(ctx context.Context, src, dst string) error {
			return s.engine.Filter(ctx, src, dst, pred)
		})
	})
}

// DropIf drops the rows where pred is true. Rows where pred is null are kept.
func (s *Session) DropIf(ctx context.Context, pred expr.Expr) error {
	return s.run(ctx, "drop_if", expr.Render(pred), func(ctx context.Context) error {
		if err := s.requireRefs("use", pred); err != nil {
			return err
		}
		keep := expr.Not(expr.Call("coalesce", pred, expr.MustLit(false)))
		return s.filterRows(ctx, "drop_if", func(ctx context.Context, src, dst string) error {
			return s.engine.Filter(ctx, src, dst, keep)
		})
	})
}

// DropMissing drops rows with missing values.
func (s *Session) DropMissing(ctx context.Context, opts core.DropMissingOptions) error {
	return s.run(ctx, "dropna", "", func(ctx context.Context) error {
		if err := s.requireColumns("use", opts.Subset...); err != nil {
			return err
		}
		return s.filterRows(ctx, "dropna", func(ctx context.Context, src, dst string) error {
			return s.engine.DropMissing(ctx, src, dst, opts.Subset, opts.All)
		})
	})
}

// DropDuplicates keeps the first of each set of rows that agree on subset,
// or on every column when no handles are given. Row order is preserved.
func (s *Session) DropDuplicates(ctx context.Context, subset ...core.Handle) error {
	names := uniqueNames(subset)
	return s.run(ctx, "drop_duplicates", "", func(ctx context.Context) error {
		if err := s.requireColumns("use", names...); err != nil {
			return err
		}
		return s.filterRows(ctx, "drop_duplicates", func(ctx context.Context, src, dst string) error {
			return s.engine.Distinct(ctx, src, dst, names)
		})
	})
}

// Sort orders the rows by keys. The sort is stable.
func (s *Session) Sort(ctx context.Context, keys ...core.SortKey) error {
	return s.run(ctx, "sort", "", func(ctx context.Context) error {
		if len(keys) == 0 {
			return fmt.Errorf("sort needs at least one variable")
		}
		for _, k := range keys {
			if err := s.requireColumns("sort", k.Name); err != nil {
				return err
			}
		}
		return s.syncAll(ctx, "sort", func(ctx context.Context) (Table, error) {
			return s.store.Derive(ctx, func(ctx context.Context, src, dst string) error {
				return s.engine.Sort(ctx, src, dst, keys)
			})
		})
	})
}
