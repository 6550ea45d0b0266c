package session

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/unitable/pkg/core"
	"github.com/leapstack-labs/unitable/pkg/expr"
)

// Column is the value bound in the caller scope for one table column. It is
// a live alias: it always reads the column of that name in the session's
// current table and fails once the column is gone.
type Column struct {
	name string
	s    *Session
}

// Name returns the column name.
func (c Column) Name() string {
	return c.name
}

// Handle returns a handle to the column.
func (c Column) Handle() core.Handle {
	return core.H(c.name)
}

// Expr returns a reference to the column for use in expressions.
func (c Column) Expr() expr.Expr {
	return expr.Col(c.name)
}

// Session returns the session the column belongs to.
func (c Column) Session() *Session {
	return c.s
}

// String implements fmt.Stringer.
func (c Column) String() string {
	return fmt.Sprintf("<column %s>", c.name)
}

// Values reads the column's current values in row order.
func (c Column) Values(ctx context.Context) ([]any, error) {
	if c.s == nil {
		return nil, &core.UnboundVariableError{Name: c.name, Op: "read"}
	}
	return c.s.Values(ctx, core.H(c.name))
}
