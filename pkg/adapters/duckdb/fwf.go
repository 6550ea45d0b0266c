package duckdb

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/leapstack-labs/unitable/pkg/adapter"
	"github.com/leapstack-labs/unitable/pkg/core"
	"github.com/leapstack-labs/unitable/pkg/expr"
)

// readFixedWidth splits a fixed-width file into fields, stages the fields as
// CSV and lets DuckDB infer the column types from that.
func (a *Adapter) readFixedWidth(ctx context.Context, dst, path string, src core.Source) error {
	lines, err := readLines(path)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("fixed-width file %s is empty", path)
	}

	widths := src.Widths
	if len(widths) == 0 {
		if src.NoHeader {
			return fmt.Errorf("field widths are required when %s has no header", path)
		}
		widths = inferWidths(lines[0])
	}

	tmp, err := os.CreateTemp("", "unitable-fwf-*.csv")
	if err != nil {
		return fmt.Errorf("failed to stage fixed-width data: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	w := csv.NewWriter(tmp)
	if src.NoHeader {
		header := make([]string, len(widths))
		for i := range widths {
			header[i] = "column" + strconv.Itoa(i)
		}
		_ = w.Write(header)
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := w.Write(splitFixed(line, widths)); err != nil {
			_ = tmp.Close()
			return fmt.Errorf("failed to stage fixed-width data: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to stage fixed-width data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to stage fixed-width data: %w", err)
	}

	query := fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM read_csv_auto(%s, header=true)",
		adapter.QualifiedName(dst), expr.QuoteString(tmp.Name()))
	if err := a.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to read %s: %w", src.Path, err)
	}
	return nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return lines, nil
}

// inferWidths derives field widths from a header line: a field starts at
// every non-blank rune that follows a blank. The last field is unbounded (0).
func inferWidths(header string) []int {
	runes := []rune(header)
	var starts []int
	for i, r := range runes {
		if r != ' ' && (i == 0 || runes[i-1] == ' ') {
			starts = append(starts, i)
		}
	}
	if len(starts) == 0 {
		return nil
	}
	starts[0] = 0
	widths := make([]int, len(starts))
	for i := range starts {
		if i+1 < len(starts) {
			widths[i] = starts[i+1] - starts[i]
		}
	}
	return widths
}

// splitFixed cuts line into trimmed fields. A zero width takes the rest of the line.
func splitFixed(line string, widths []int) []string {
	runes := []rune(line)
	fields := make([]string, len(widths))
	pos := 0
	for i, w := range widths {
		end := pos + w
		if w <= 0 || end > len(runes) {
			end = len(runes)
		}
		if pos < len(runes) {
			fields[i] = strings.TrimSpace(string(runes[pos:end]))
		}
		pos = end
	}
	return fields
}

// writeFixedWidth writes src as space-separated, left-aligned columns that
// readFixedWidth can read back by header inference.
func (a *Adapter) writeFixedWidth(ctx context.Context, src, path string) error {
	rows, err := a.Query(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY rowid", adapter.QualifiedName(src)))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("failed to read columns: %w", err)
	}

	records := [][]string{cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		rec := make([]string, len(cols))
		for i, v := range vals {
			rec[i] = formatCell(v)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	widths := make([]int, len(cols))
	for _, rec := range records {
		for i, cell := range rec {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	var b strings.Builder
	for _, rec := range records {
		var line strings.Builder
		for i, cell := range rec {
			line.WriteString(cell)
			if i < len(rec)-1 {
				line.WriteString(strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)+1))
			}
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// formatCell renders a scanned value as text.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(time.DateOnly)
		}
		return val.Format(time.DateTime)
	default:
		return fmt.Sprint(val)
	}
}
