package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/unitable/internal/session"
)

// WriteFrame renders the rows of a frame in the renderer's mode.
func (r *Renderer) WriteFrame(frame *session.Frame) error {
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.frameJSON(frame)
	case ModeCSV:
		return r.frameCSV(frame)
	case ModeMarkdown:
		if len(frame.Rows) == 0 {
			r.Println("(0 rows)")
			return nil
		}
		t := newTable(r, frame)
		t.Style().Format.Header = text.FormatDefault
		t.RenderMarkdown()
		r.Println()
		return nil
	default:
		if len(frame.Rows) == 0 {
			r.Println(r.Muted("(0 rows)"))
			return nil
		}
		t := newTable(r, frame)
		t.SetStyle(table.StyleLight)
		t.Render()
		r.Println(r.Muted(fmt.Sprintf("(%d rows)", len(frame.Rows))))
		return nil
	}
}

func newTable(r *Renderer, frame *session.Frame) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)

	header := make(table.Row, len(frame.Columns))
	for i, col := range frame.Columns {
		header[i] = col
	}
	t.AppendHeader(header)

	for _, values := range frame.Rows {
		row := make(table.Row, len(values))
		for i, v := range values {
			row[i] = FormatValue(v)
		}
		t.AppendRow(row)
	}
	return t
}

func (r *Renderer) frameJSON(frame *session.Frame) error {
	records := make([]map[string]any, 0, len(frame.Rows))
	for _, values := range frame.Rows {
		rec := make(map[string]any, len(frame.Columns))
		for i, col := range frame.Columns {
			rec[col] = values[i]
		}
		records = append(records, rec)
	}
	enc := json.NewEncoder(r.out)
	return enc.Encode(records)
}

// frameCSV writes RFC 4180 CSV; go-pretty escapes commas with a backslash.
func (r *Renderer) frameCSV(frame *session.Frame) error {
	w := csv.NewWriter(r.out)
	if err := w.Write(frame.Columns); err != nil {
		return err
	}
	record := make([]string, len(frame.Columns))
	for _, values := range frame.Rows {
		for i, v := range values {
			record[i] = FormatValue(v)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// FormatValue renders one cell for display.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		if v.Hour() == 0 && v.Minute() == 0 && v.Second() == 0 && v.Nanosecond() == 0 {
			return v.Format(time.DateOnly)
		}
		return v.Format(time.DateTime)
	default:
		return fmt.Sprintf("%v", v)
	}
}
