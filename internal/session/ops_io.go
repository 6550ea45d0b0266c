package session

import (
	"context"
	"fmt"
	"regexp"

	"github.com/leapstack-labs/unitable/pkg/adapter"
	"github.com/leapstack-labs/unitable/pkg/core"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeName replaces every character that cannot appear in an identifier
// with an underscore.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// sanitizeColumns maps external column names to identifier-safe ones. It
// reports whether any name changed and fails when two names collide.
func sanitizeColumns(names []string) ([]adapter.Projection, bool, error) {
	seen := make(map[string]string, len(names))
	cols := make([]adapter.Projection, len(names))
	changed := false
	for i, name := range names {
		clean := SanitizeName(name)
		if _, dup := seen[clean]; dup {
			return nil, false, &core.InvalidNameError{Name: clean, Rule: core.RuleDuplicate}
		}
		seen[clean] = name
		cols[i] = adapter.Projection{Name: name}
		if clean != name {
			cols[i].As = clean
			changed = true
		}
	}
	return cols, changed, nil
}

// stageExternal stages a table produced by read and sanitizes its column names.
func (s *Session) stageExternal(ctx context.Context, read func(ctx context.Context, dst string) error) (Table, error) {
	raw, err := s.store.Stage(ctx, read)
	if err != nil {
		return Table{}, err
	}
	cols, changed, err := sanitizeColumns(raw.Names())
	if err != nil {
		s.store.Discard(ctx, raw)
		return Table{}, err
	}
	if !changed {
		return raw, nil
	}
	clean, err := s.store.Stage(ctx, func(ctx context.Context, dst string) error {
		return s.engine.Project(ctx, raw.ID, dst, cols)
	})
	s.store.Discard(ctx, raw)
	return clean, err
}

// stageSource stages the contents of src with sanitized column names.
func (s *Session) stageSource(ctx context.Context, src core.Source) (Table, error) {
	if src.Format == "" {
		f, err := core.FormatFromPath(src.Path)
		if err != nil {
			return Table{}, err
		}
		src.Format = f
	}
	return s.stageExternal(ctx, func(ctx context.Context, dst string) error {
		return s.engine.Read(ctx, dst, src)
	})
}

// Load replaces the table with the contents of src and binds its columns.
// Column names are sanitized before they are validated.
func (s *Session) Load(ctx context.Context, src core.Source) error {
	return s.run(ctx, "read", src.Path, func(ctx context.Context) error {
		return s.syncAll(ctx, "read", func(ctx context.Context) (Table, error) {
			return s.stageSource(ctx, src)
		})
	})
}

// ReadCSV loads a comma separated file with a header row.
func (s *Session) ReadCSV(ctx context.Context, path string) error {
	return s.Load(ctx, core.Source{Path: path, Format: core.FormatCSV})
}

// ReadTSV loads a tab separated file with a header row.
func (s *Session) ReadTSV(ctx context.Context, path string) error {
	return s.Load(ctx, core.Source{Path: path, Format: core.FormatTSV})
}

// ReadFWF loads a fixed-width file. Without widths they are inferred from
// the header line.
func (s *Session) ReadFWF(ctx context.Context, path string, widths ...int) error {
	return s.Load(ctx, core.Source{Path: path, Format: core.FormatFWF, Widths: widths})
}

// ReadParquet loads a Parquet file.
func (s *Session) ReadParquet(ctx context.Context, path string) error {
	return s.Load(ctx, core.Source{Path: path, Format: core.FormatParquet})
}

// ReadJSON loads a JSON or newline delimited JSON file.
func (s *Session) ReadJSON(ctx context.Context, path string) error {
	return s.Load(ctx, core.Source{Path: path, Format: core.FormatJSON})
}

// Input replaces the table with literal rows and binds its columns.
func (s *Session) Input(ctx context.Context, columns []string, rows [][]any) error {
	return s.run(ctx, "input", "", func(ctx context.Context) error {
		return s.syncAll(ctx, "input", func(ctx context.Context) (Table, error) {
			if len(columns) == 0 {
				return Table{}, nil
			}
			return s.store.Stage(ctx, func(ctx context.Context, dst string) error {
				return s.engine.CreateFromValues(ctx, dst, columns, rows)
			})
		})
	})
}

// Clear empties the table and unbinds every column.
func (s *Session) Clear(ctx context.Context) error {
	return s.run(ctx, "clear", "", func(ctx context.Context) error {
		return s.syncAll(ctx, "clear", func(context.Context) (Table, error) {
			return Table{}, nil
		})
	})
}

// Save writes the table to sink. Bindings are not affected.
func (s *Session) Save(ctx context.Context, sink core.Sink) error {
	return s.run(ctx, "write", sink.Path, func(ctx context.Context) error {
		if sink.Format == "" {
			f, err := core.FormatFromPath(sink.Path)
			if err != nil {
				return err
			}
			sink.Format = f
		}
		cur := s.store.Current()
		if cur.Empty() {
			return fmt.Errorf("cannot write %s: no data loaded", sink.Path)
		}
		return s.engine.Write(ctx, cur.ID, sink)
	})
}

// WriteCSV writes the table as comma separated values with a header row.
func (s *Session) WriteCSV(ctx context.Context, path string) error {
	return s.Save(ctx, core.Sink{Path: path, Format: core.FormatCSV})
}

// WriteTSV writes the table as tab separated values with a header row.
func (s *Session) WriteTSV(ctx context.Context, path string) error {
	return s.Save(ctx, core.Sink{Path: path, Format: core.FormatTSV})
}

// WriteFWF writes the table as aligned fixed-width text.
func (s *Session) WriteFWF(ctx context.Context, path string) error {
	return s.Save(ctx, core.Sink{Path: path, Format: core.FormatFWF})
}

// WriteParquet writes the table as Parquet.
func (s *Session) WriteParquet(ctx context.Context, path string) error {
	return s.Save(ctx, core.Sink{Path: path, Format: core.FormatParquet})
}

// WriteJSON writes the table as newline delimited JSON.
func (s *Session) WriteJSON(ctx context.Context, path string) error {
	return s.Save(ctx, core.Sink{Path: path, Format: core.FormatJSON})
}
