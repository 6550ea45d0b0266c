package session

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/leapstack-labs/unitable/pkg/core"
	"github.com/leapstack-labs/unitable/pkg/expr"
)

// Frame is a read-only block of rows taken from the table.
type Frame struct {
	Columns []string
	Rows    [][]any
}

// ListIf returns the rows where pred is true, up to limit rows (all rows
// when limit <= 0). A nil pred matches every row. The table is not changed.
func (s *Session) ListIf(ctx context.Context, pred expr.Expr, limit int) (*Frame, error) {
	var frame *Frame
	err := s.read(func() error {
		if err := s.requireRefs("use", pred); err != nil {
			return err
		}
		cur := s.store.Current()
		if cur.Empty() {
			frame = &Frame{}
			return nil
		}
		var err error
		frame, err = s.selectFrame(ctx, cur.ID, nil, pred, limit)
		return err
	})
	return frame, err
}

// Head returns the first n rows.
func (s *Session) Head(ctx context.Context, n int) (*Frame, error) {
	return s.ListIf(ctx, nil, n)
}

// Values returns the values of column h in row order.
func (s *Session) Values(ctx context.Context, h core.Handle) ([]any, error) {
	var values []any
	err := s.read(func() error {
		if err := s.requireColumns("read", h.Name); err != nil {
			return err
		}
		frame, err := s.selectFrame(ctx, s.store.Current().ID, []string{h.Name}, nil, 0)
		if err != nil {
			return err
		}
		values = make([]any, len(frame.Rows))
		for i, row := range frame.Rows {
			values[i] = row[0]
		}
		return nil
	})
	return values, err
}

func (s *Session) selectFrame(ctx context.Context, table string, cols []string, pred expr.Expr, limit int) (*Frame, error) {
	rows, err := s.engine.Select(ctx, table, cols, pred, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	frame := &Frame{Columns: names}
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range vals {
			vals[i] = normalize(v)
		}
		frame.Rows = append(frame.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return frame, nil
}

// normalize maps driver values onto a small set of Go types: nil, bool,
// int64, float64, string, time.Time. Integers too large for int64 become
// strings. Anything else is kept as is.
func normalize(v any) any {
	switch val := v.(type) {
	case nil, bool, int64, float64, string, time.Time:
		return val
	case []byte:
		return string(val)
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return normalize(uint64(val))
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		if val > math.MaxInt64 {
			return strconv.FormatUint(val, 10)
		}
		return int64(val)
	case float32:
		return float64(val)
	case *big.Int:
		if val.IsInt64() {
			return val.Int64()
		}
		return val.String()
	case interface{ Float64() float64 }:
		return val.Float64()
	default:
		return val
	}
}

// NRow returns the number of rows.
func (s *Session) NRow() int64 {
	var n int64
	_ = s.read(func() error {
		n = s.store.Current().Rows
		return nil
	})
	return n
}

// NCol returns the number of columns.
func (s *Session) NCol() int {
	var n int
	_ = s.read(func() error {
		n = len(s.store.Current().Columns)
		return nil
	})
	return n
}

// ColNames returns the column names in table order.
func (s *Session) ColNames() []string {
	var names []string
	_ = s.read(func() error {
		names = s.store.Current().Names()
		return nil
	})
	return names
}

// ColTypes returns the columns with their engine types, in table order.
func (s *Session) ColTypes() []core.Column {
	var cols []core.Column
	_ = s.read(func() error {
		cols = append(cols, s.store.Current().Columns...)
		return nil
	})
	return cols
}

// Table returns a snapshot of the active table.
func (s *Session) Table() Table {
	var t Table
	_ = s.read(func() error {
		t = s.store.Current()
		t.Columns = append([]core.Column(nil), t.Columns...)
		return nil
	})
	return t
}

// Bindings returns the bound column names in bind order.
func (s *Session) Bindings() []string {
	var names []string
	_ = s.read(func() error {
		names = s.dir.Names()
		return nil
	})
	return names
}

// Lookup returns the binding for name if name is a bound column.
func (s *Session) Lookup(name string) (Column, bool) {
	var (
		col Column
		ok  bool
	)
	_ = s.read(func() error {
		if s.dir.Bound(name) && s.store.Current().Has(name) {
			col, ok = Column{name: name, s: s}, true
		}
		return nil
	})
	return col, ok
}

// Handle returns a handle to the bound column name.
func (s *Session) Handle(name string) (core.Handle, error) {
	if _, ok := s.Lookup(name); !ok {
		return core.Handle{}, &core.UnboundVariableError{Name: name}
	}
	return core.H(name), nil
}
