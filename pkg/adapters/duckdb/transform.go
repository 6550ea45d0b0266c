package duckdb

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/leapstack-labs/unitable/pkg/adapter"
	"github.com/leapstack-labs/unitable/pkg/core"
	"github.com/leapstack-labs/unitable/pkg/expr"
)

// materialize creates dst from a SELECT statement.
func (a *Adapter) materialize(ctx context.Context, dst, selectSQL string) error {
	return a.Exec(ctx, fmt.Sprintf("CREATE TABLE %s AS %s", adapter.QualifiedName(dst), selectSQL))
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = expr.QuoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

// Project keeps the listed columns, in order, optionally renaming them.
func (a *Adapter) Project(ctx context.Context, src, dst string, cols []adapter.Projection) error {
	if len(cols) == 0 {
		return fmt.Errorf("projection of %s selects no columns", src)
	}
	items := make([]string, len(cols))
	for i, c := range cols {
		items[i] = expr.QuoteIdent(c.Name)
		if c.As != "" && c.As != c.Name {
			items[i] += " AS " + expr.QuoteIdent(c.As)
		}
	}
	return a.materialize(ctx, dst, fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid",
		strings.Join(items, ", "), adapter.QualifiedName(src)))
}

// WithColumn sets column name to e, in place when it exists, appended otherwise.
func (a *Adapter) WithColumn(ctx context.Context, src, dst, name string, e expr.Expr) error {
	meta, err := a.GetTableMetadata(ctx, src)
	if err != nil {
		return err
	}
	value := expr.Render(e) + " AS " + expr.QuoteIdent(name)

	var selectSQL string
	if slices.Contains(meta.ColumnNames(), name) {
		selectSQL = fmt.Sprintf("SELECT * REPLACE (%s) FROM %s ORDER BY rowid", value, adapter.QualifiedName(src))
	} else {
		selectSQL = fmt.Sprintf("SELECT *, %s FROM %s ORDER BY rowid", value, adapter.QualifiedName(src))
	}
	if err := a.materialize(ctx, dst, selectSQL); err != nil {
		return fmt.Errorf("failed to evaluate %s: %w", name, err)
	}
	return nil
}

// Filter keeps the rows where pred is true. Rows where pred is null are dropped.
func (a *Adapter) Filter(ctx context.Context, src, dst string, pred expr.Expr) error {
	return a.materialize(ctx, dst, fmt.Sprintf("SELECT * FROM %s WHERE %s ORDER BY rowid",
		adapter.QualifiedName(src), expr.Render(pred)))
}

// Sort orders rows by keys with nulls last. Ties keep their current order.
func (a *Adapter) Sort(ctx context.Context, src, dst string, keys []core.SortKey) error {
	if len(keys) == 0 {
		return fmt.Errorf("sort of %s needs at least one key", src)
	}
	terms := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		terms = append(terms, expr.QuoteIdent(k.Name)+" "+dir+" NULLS LAST")
	}
	terms = append(terms, "rowid")
	return a.materialize(ctx, dst, fmt.Sprintf("SELECT * FROM %s ORDER BY %s",
		adapter.QualifiedName(src), strings.Join(terms, ", ")))
}

// Distinct keeps the first row of each group of duplicates, in table order.
func (a *Adapter) Distinct(ctx context.Context, src, dst string, subset []string) error {
	if len(subset) == 0 {
		meta, err := a.GetTableMetadata(ctx, src)
		if err != nil {
			return err
		}
		subset = meta.ColumnNames()
	}
	return a.materialize(ctx, dst, fmt.Sprintf(
		"SELECT * FROM %s QUALIFY row_number() OVER (PARTITION BY %s ORDER BY rowid) = 1 ORDER BY rowid",
		adapter.QualifiedName(src), quoteAll(subset)))
}

// DropMissing removes rows with missing values in cols, or in every column
// when cols is empty. NaN counts as missing for floating point columns.
func (a *Adapter) DropMissing(ctx context.Context, src, dst string, cols []string, all bool) error {
	meta, err := a.GetTableMetadata(ctx, src)
	if err != nil {
		return err
	}
	types := make(map[string]string, len(meta.Columns))
	for _, c := range meta.Columns {
		types[c.Name] = strings.ToUpper(c.Type)
	}
	if len(cols) == 0 {
		cols = meta.ColumnNames()
	}

	missing := make([]string, len(cols))
	for i, c := range cols {
		ref := expr.QuoteIdent(c)
		switch types[c] {
		case "DOUBLE", "FLOAT", "REAL":
			missing[i] = fmt.Sprintf("(%s IS NULL OR isnan(%s))", ref, ref)
		default:
			missing[i] = ref + " IS NULL"
		}
	}

	joiner := " OR "
	if all {
		joiner = " AND "
	}
	return a.materialize(ctx, dst, fmt.Sprintf("SELECT * FROM %s WHERE NOT (%s) ORDER BY rowid",
		adapter.QualifiedName(src), strings.Join(missing, joiner)))
}

var joinKeywords = map[core.JoinHow]string{
	core.JoinInner: "INNER JOIN",
	core.JoinLeft:  "LEFT JOIN",
	core.JoinRight: "RIGHT JOIN",
	core.JoinOuter: "FULL OUTER JOIN",
}

// Join combines left and right on opts.On. Key columns appear once.
// Rows follow the left table's order, unmatched right rows last.
func (a *Adapter) Join(ctx context.Context, left, right, dst string, opts core.JoinOptions) error {
	how := opts.How
	if how == "" {
		how = core.JoinInner
	}
	kw, ok := joinKeywords[how]
	if !ok {
		return fmt.Errorf("unsupported join type %q", opts.How)
	}
	if len(opts.On) == 0 {
		return fmt.Errorf("join of %s and %s needs at least one key", left, right)
	}

	query := fmt.Sprintf(
		"SELECT * EXCLUDE (__l_ord, __r_ord) FROM (SELECT *, rowid AS __l_ord FROM %s) "+
			"%s (SELECT *, rowid AS __r_ord FROM %s) USING (%s) "+
			"ORDER BY __l_ord NULLS LAST, __r_ord",
		adapter.QualifiedName(left), kw, adapter.QualifiedName(right), quoteAll(opts.On))
	if err := a.materialize(ctx, dst, query); err != nil {
		return fmt.Errorf("failed to join %s and %s: %w", left, right, err)
	}
	return nil
}

// Union stacks bottom under top, matching columns by name. Columns missing
// from one side are filled with nulls.
func (a *Adapter) Union(ctx context.Context, top, bottom, dst string) error {
	query := fmt.Sprintf(
		"SELECT * EXCLUDE (__part, __ord) FROM ("+
			"SELECT *, 0 AS __part, rowid AS __ord FROM %s "+
			"UNION ALL BY NAME "+
			"SELECT *, 1 AS __part, rowid AS __ord FROM %s"+
			") ORDER BY __part, __ord",
		adapter.QualifiedName(top), adapter.QualifiedName(bottom))
	if err := a.materialize(ctx, dst, query); err != nil {
		return fmt.Errorf("failed to append %s to %s: %w", bottom, top, err)
	}
	return nil
}

var aggFuncs = map[string]string{
	"count":   "count",
	"sum":     "sum",
	"mean":    "avg",
	"avg":     "avg",
	"min":     "min",
	"max":     "max",
	"median":  "median",
	"std":     "stddev_samp",
	"var":     "var_samp",
	"first":   "first",
	"last":    "last",
	"nunique": "count",
}

// Aggregate groups src by the given columns, ordered by the group keys.
// Without group columns the result is a single row.
func (a *Adapter) Aggregate(ctx context.Context, src, dst string, by []string, aggs []core.Aggregation) error {
	if len(aggs) == 0 && len(by) == 0 {
		return fmt.Errorf("aggregation of %s needs group columns or aggregates", src)
	}

	items := make([]string, 0, len(by)+len(aggs))
	for _, b := range by {
		items = append(items, expr.QuoteIdent(b))
	}
	for _, agg := range aggs {
		item, err := aggregateSQL(agg)
		if err != nil {
			return err
		}
		items = append(items, item+" AS "+expr.QuoteIdent(agg.OutputName()))
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(items, ", "), adapter.QualifiedName(src))
	if len(by) > 0 {
		keys := quoteAll(by)
		query += " GROUP BY " + keys + " ORDER BY " + keys
	}
	if err := a.materialize(ctx, dst, query); err != nil {
		return fmt.Errorf("failed to aggregate %s: %w", src, err)
	}
	return nil
}

func aggregateSQL(agg core.Aggregation) (string, error) {
	name := strings.ToLower(agg.Func)
	fn, ok := aggFuncs[name]
	if !ok {
		return "", fmt.Errorf("unsupported aggregate function %q", agg.Func)
	}
	if agg.Column == "" {
		if name != "count" {
			return "", fmt.Errorf("aggregate %s needs a column", agg.Func)
		}
		return "count(*)", nil
	}
	col := expr.QuoteIdent(agg.Column)
	switch name {
	case "nunique":
		return "count(DISTINCT " + col + ")", nil
	case "first", "last":
		return fn + "(" + col + " ORDER BY rowid)", nil
	default:
		return fn + "(" + col + ")", nil
	}
}

// Select returns cols of the rows matching pred in table order.
func (a *Adapter) Select(ctx context.Context, src string, cols []string, pred expr.Expr, limit int) (*adapter.Rows, error) {
	list := "*"
	if len(cols) > 0 {
		list = quoteAll(cols)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", list, adapter.QualifiedName(src))
	if pred != nil {
		query += " WHERE " + expr.Render(pred)
	}
	query += " ORDER BY rowid"
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}
	return a.Query(ctx, query)
}
