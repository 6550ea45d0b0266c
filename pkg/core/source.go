package core

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a file format understood by the tabular engine.
type Format string

// Supported file formats.
const (
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
	FormatFWF     Format = "fwf"
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
)

// FormatFromPath infers a format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".txt", ".dat", ".fwf":
		return FormatFWF, nil
	case ".parquet":
		return FormatParquet, nil
	case ".json", ".ndjson", ".jsonl":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("cannot infer format of %s", path)
	}
}

// Source describes a file to read into a table.
type Source struct {
	Path   string
	Format Format
	// Delimiter overrides the format's default field separator.
	Delimiter string
	// NoHeader reads the first row as data; columns are named column0, column1, ...
	NoHeader bool
	// Widths are fixed-width field widths; inferred from the header when empty.
	Widths []int
}

// Sink describes a file to write a table to.
type Sink struct {
	Path      string
	Format    Format
	Delimiter string
}

// SortKey orders rows by one column.
type SortKey struct {
	Name string
	Desc bool
}

// JoinHow is the kind of join performed by a merge.
type JoinHow string

// Join kinds.
const (
	JoinInner JoinHow = "inner"
	JoinLeft  JoinHow = "left"
	JoinRight JoinHow = "right"
	JoinOuter JoinHow = "outer"
)

// JoinOptions configures a merge of two tables.
type JoinOptions struct {
	How JoinHow
	// On lists the key columns; when empty the common columns are used.
	On []string
}

// DropMissingOptions configures which rows count as missing.
type DropMissingOptions struct {
	// All drops a row only when every considered column is null.
	All bool
	// Subset restricts the check to these columns.
	Subset []string
}

// Aggregation computes one output column of a grouped table.
type Aggregation struct {
	Func   string
	Column string
	As     string
}

// OutputName returns the aggregation's column name in the result table.
func (a Aggregation) OutputName() string {
	if a.As != "" {
		return a.As
	}
	if a.Column == "" {
		return a.Func
	}
	return a.Func + "_" + a.Column
}
