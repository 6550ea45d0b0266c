package session

import (
	"context"
	"fmt"
	"slices"

	"github.com/leapstack-labs/unitable/pkg/adapter"
	"github.com/leapstack-labs/unitable/pkg/core"
)

// Merge joins the table with the contents of src. Without opts.On the
// columns common to both tables are the keys. Other columns present on
// both sides get the suffixes _x (this table) and _y (src).
func (s *Session) Merge(ctx context.Context, src core.Source, opts core.JoinOptions) error {
	return s.run(ctx, "merge", src.Path, func(ctx context.Context) error {
		if err := s.requireColumns("merge on", opts.On...); err != nil {
			return err
		}
		return s.syncAll(ctx, "merge", func(ctx context.Context) (Table, error) {
			return s.stageMerge(ctx, src, opts)
		})
	})
}

func (s *Session) stageMerge(ctx context.Context, src core.Source, opts core.JoinOptions) (Table, error) {
	left := s.store.Current()
	if left.Empty() {
		return Table{}, fmt.Errorf("no data loaded")
	}
	right, err := s.stageSource(ctx, src)
	if err != nil {
		return Table{}, err
	}
	defer s.store.Discard(ctx, right)

	on := opts.On
	if len(on) == 0 {
		for _, name := range left.Names() {
			if right.Has(name) {
				on = append(on, name)
			}
		}
		if len(on) == 0 {
			return Table{}, fmt.Errorf("cannot merge %s: no common variables", src.Path)
		}
	}
	for _, key := range on {
		if !right.Has(key) {
			return Table{}, &core.ColumnNotFoundError{Name: key, Table: src.Path}
		}
	}

	leftCols, leftRenamed := suffixOverlap(left, right, on, "_x")
	rightCols, rightRenamed := suffixOverlap(right, left, on, "_y")
	if err := checkMergedNames(leftCols, rightCols, on); err != nil {
		return Table{}, err
	}

	leftID := left.ID
	if leftRenamed {
		t, err := s.store.Stage(ctx, func(ctx context.Context, dst string) error {
			return s.engine.Project(ctx, left.ID, dst, leftCols)
		})
		if err != nil {
			return Table{}, err
		}
		defer s.store.Discard(ctx, t)
		leftID = t.ID
	}
	rightID := right.ID
	if rightRenamed {
		t, err := s.store.Stage(ctx, func(ctx context.Context, dst string) error {
			return s.engine.Project(ctx, right.ID, dst, rightCols)
		})
		if err != nil {
			return Table{}, err
		}
		defer s.store.Discard(ctx, t)
		rightID = t.ID
	}

	joined := core.JoinOptions{How: opts.How, On: on}
	return s.store.Stage(ctx, func(ctx context.Context, dst string) error {
		return s.engine.Join(ctx, leftID, rightID, dst, joined)
	})
}

// suffixOverlap projects t, appending suffix to non-key columns that other also has.
func suffixOverlap(t, other Table, keys []string, suffix string) ([]adapter.Projection, bool) {
	cols := make([]adapter.Projection, len(t.Columns))
	renamed := false
	for i, c := range t.Columns {
		cols[i] = adapter.Projection{Name: c.Name}
		if other.Has(c.Name) && !slices.Contains(keys, c.Name) {
			cols[i].As = c.Name + suffix
			renamed = true
		}
	}
	return cols, renamed
}

// checkMergedNames rejects a merge whose suffixed names clash with another
// column of the result, such as an existing a_x next to a suffixed a. Key
// columns of the right side are merged into the left ones.
func checkMergedNames(left, right []adapter.Projection, keys []string) error {
	seen := make(map[string]struct{}, len(left)+len(right))
	for _, c := range slices.Concat(left, right) {
		if c.As == "" && slices.Contains(keys, c.Name) {
			if _, ok := seen[c.Name]; ok {
				continue
			}
		}
		name := c.OutputName()
		if _, ok := seen[name]; ok {
			return &core.InvalidNameError{Name: name, Rule: core.RuleDuplicate}
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Append stacks the rows of src under the table, matching columns by name.
func (s *Session) Append(ctx context.Context, src core.Source) error {
	return s.run(ctx, "append", src.Path, func(ctx context.Context) error {
		return s.syncAll(ctx, "append", func(ctx context.Context) (Table, error) {
			top := s.store.Current()
			if top.Empty() {
				return Table{}, fmt.Errorf("no data loaded")
			}
			bottom, err := s.stageSource(ctx, src)
			if err != nil {
				return Table{}, err
			}
			defer s.store.Discard(ctx, bottom)
			return s.store.Stage(ctx, func(ctx context.Context, dst string) error {
				return s.engine.Union(ctx, top.ID, bottom.ID, dst)
			})
		})
	})
}

// DefaultAggregation counts the rows of each group into column n.
var DefaultAggregation = core.Aggregation{Func: "count", As: "n"}

// GroupBy replaces the table with one row per distinct combination of by,
// holding the group keys and the aggregates. Without aggregates each group
// gets its row count as n.
func (s *Session) GroupBy(ctx context.Context, by []core.Handle, aggs ...core.Aggregation) error {
	names := uniqueNames(by)
	return s.run(ctx, "groupby", fmt.Sprint(names), func(ctx context.Context) error {
		if len(names) == 0 {
			return fmt.Errorf("groupby needs at least one variable")
		}
		if err := s.requireColumns("group by", names...); err != nil {
			return err
		}
		if len(aggs) == 0 {
			aggs = []core.Aggregation{DefaultAggregation}
		}
		for _, agg := range aggs {
			if agg.Column != "" {
				if err := s.requireColumns("aggregate", agg.Column); err != nil {
					return err
				}
			}
		}
		return s.syncAll(ctx, "groupby", func(ctx context.Context) (Table, error) {
			return s.store.Derive(ctx, func(ctx context.Context, src, dst string) error {
				return s.engine.Aggregate(ctx, src, dst, names, aggs)
			})
		})
	})
}
