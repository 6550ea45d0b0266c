package duckdb

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/unitable/pkg/adapter"
	"github.com/leapstack-labs/unitable/pkg/core"
	"github.com/leapstack-labs/unitable/pkg/expr"
)

// Read loads a file into dst, inferring column types.
func (a *Adapter) Read(ctx context.Context, dst string, src core.Source) error {
	absPath, err := filepath.Abs(src.Path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	var from string
	switch src.Format {
	case core.FormatCSV, core.FormatTSV:
		from = readCSVFunc(absPath, src)
	case core.FormatParquet:
		from = fmt.Sprintf("read_parquet(%s)", expr.QuoteString(absPath))
	case core.FormatJSON:
		from = fmt.Sprintf("read_json_auto(%s)", expr.QuoteString(absPath))
	case core.FormatFWF:
		return a.readFixedWidth(ctx, dst, absPath, src)
	default:
		return fmt.Errorf("unsupported source format %q", src.Format)
	}

	query := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", adapter.QualifiedName(dst), from)
	if err := a.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to read %s: %w", src.Path, err)
	}
	return nil
}

func readCSVFunc(path string, src core.Source) string {
	delim := src.Delimiter
	if delim == "" {
		delim = ","
		if src.Format == core.FormatTSV {
			delim = "\t"
		}
	}
	return fmt.Sprintf("read_csv_auto(%s, delim=%s, header=%t)",
		expr.QuoteString(path), expr.QuoteString(delim), !src.NoHeader)
}

// Write exports src to a file. Existing files are overwritten.
func (a *Adapter) Write(ctx context.Context, src string, sink core.Sink) error {
	absPath, err := filepath.Abs(sink.Path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	var opts string
	switch sink.Format {
	case core.FormatCSV, core.FormatTSV:
		delim := sink.Delimiter
		if delim == "" {
			delim = ","
			if sink.Format == core.FormatTSV {
				delim = "\t"
			}
		}
		opts = "FORMAT CSV, HEADER, DELIMITER " + expr.QuoteString(delim)
	case core.FormatParquet:
		opts = "FORMAT PARQUET"
	case core.FormatJSON:
		opts = "FORMAT JSON"
	case core.FormatFWF:
		return a.writeFixedWidth(ctx, src, absPath)
	default:
		return fmt.Errorf("unsupported sink format %q", sink.Format)
	}

	query := fmt.Sprintf("COPY (SELECT * FROM %s ORDER BY rowid) TO %s (%s)",
		adapter.QualifiedName(src), expr.QuoteString(absPath), opts)
	if err := a.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to write %s: %w", sink.Path, err)
	}
	return nil
}

// CreateFromValues builds dst from literal rows. With no rows the columns
// are created as VARCHAR.
func (a *Adapter) CreateFromValues(ctx context.Context, dst string, cols []string, rows [][]any) error {
	if len(cols) == 0 {
		return fmt.Errorf("cannot create table %s without columns", dst)
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = expr.QuoteIdent(c)
	}

	if len(rows) == 0 {
		defs := make([]string, len(cols))
		for i, q := range quoted {
			defs[i] = q + " VARCHAR"
		}
		return a.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", adapter.QualifiedName(dst), strings.Join(defs, ", ")))
	}

	tuples := make([]string, len(rows))
	for r, row := range rows {
		if len(row) != len(cols) {
			return fmt.Errorf("row %d has %d values, want %d", r, len(row), len(cols))
		}
		vals := make([]string, len(row))
		for i, v := range row {
			lit, err := expr.Lit(v)
			if err != nil {
				return fmt.Errorf("row %d column %s: %w", r, cols[i], err)
			}
			vals[i] = expr.Render(lit)
			switch v.(type) {
			case float32, float64:
				// bare decimal literals would make DECIMAL columns
				vals[i] = "CAST(" + vals[i] + " AS DOUBLE)"
			}
		}
		tuples[r] = "(" + strings.Join(vals, ", ") + ")"
	}

	query := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM (VALUES %s) AS v(%s)",
		adapter.QualifiedName(dst), strings.Join(tuples, ", "), strings.Join(quoted, ", "))
	if err := a.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create table from values: %w", err)
	}
	return nil
}
