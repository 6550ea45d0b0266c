package starlark

import (
	"context"
	"fmt"
	"sort"

	"github.com/leapstack-labs/unitable/internal/session"
	"github.com/leapstack-labs/unitable/pkg/expr"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Column is the Starlark value bound to a table column.
type Column struct {
	col session.Column
}

var (
	_ starlark.HasBinary = (*Column)(nil)
	_ starlark.HasUnary  = (*Column)(nil)
	_ starlark.HasAttrs  = (*Column)(nil)
)

// NewColumn wraps a session column binding.
func NewColumn(col session.Column) *Column {
	return &Column{col: col}
}

// Name returns the column name.
func (c *Column) Name() string { return c.col.Name() }

// Binding returns the wrapped session column.
func (c *Column) Binding() session.Column { return c.col }

func (c *Column) String() string        { return c.col.String() }
func (c *Column) Type() string          { return "column" }
func (c *Column) Freeze()               {}
func (c *Column) Truth() starlark.Bool  { return starlark.True }
func (c *Column) Hash() (uint32, error) { return starlark.String(c.col.Name()).Hash() }

// same reports whether c is the binding of name in sess.
func (c *Column) same(name string, sess *session.Session) bool {
	return c.col.Name() == name && c.col.Session() == sess
}

func (c *Column) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	return binaryExpr(c.col.Expr(), op, y, side)
}

func (c *Column) Unary(op syntax.Token) (starlark.Value, error) {
	return unaryExpr(c.col.Expr(), op)
}

var columnAttrNames = func() []string {
	names := append([]string{"name", "values"}, exprMethodNames...)
	sort.Strings(names)
	return names
}()

func (c *Column) Attr(name string) (starlark.Value, error) {
	switch name {
	case "name":
		return starlark.String(c.col.Name()), nil
	case "values":
		return starlark.NewBuiltin("values", func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
				return nil, err
			}
			vals, err := c.col.Values(threadContext(thread))
			if err != nil {
				return nil, err
			}
			return GoToStarlark(vals)
		}).BindReceiver(c), nil
	}
	return exprMethod(c, c.col.Expr(), name)
}

func (c *Column) AttrNames() []string { return columnAttrNames }

// Expr is the Starlark value of a computed column expression such as
// tip * 2 or day.eq("Sun").
type Expr struct {
	e expr.Expr
}

var (
	_ starlark.HasBinary = (*Expr)(nil)
	_ starlark.HasUnary  = (*Expr)(nil)
	_ starlark.HasAttrs  = (*Expr)(nil)
)

func (x *Expr) String() string        { return "<expr " + expr.Render(x.e) + ">" }
func (x *Expr) Type() string          { return "expr" }
func (x *Expr) Freeze()               {}
func (x *Expr) Truth() starlark.Bool  { return starlark.True }
func (x *Expr) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: expr") }

func (x *Expr) Binary(op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	return binaryExpr(x.e, op, y, side)
}

func (x *Expr) Unary(op syntax.Token) (starlark.Value, error) {
	return unaryExpr(x.e, op)
}

func (x *Expr) Attr(name string) (starlark.Value, error) {
	return exprMethod(x, x.e, name)
}

func (x *Expr) AttrNames() []string { return exprMethodNames }

// exprMethodNames are the methods shared by columns and expressions.
var exprMethodNames = []string{"eq", "ge", "gt", "isnull", "le", "lt", "ne", "notnull"}

var comparisons = map[string]func(x, y expr.Expr) expr.Expr{
	"eq": expr.Eq,
	"ne": expr.Ne,
	"lt": expr.Lt,
	"le": expr.Le,
	"gt": expr.Gt,
	"ge": expr.Ge,
}

func exprMethod(recv starlark.Value, e expr.Expr, name string) (starlark.Value, error) {
	if cmp, ok := comparisons[name]; ok {
		return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var other starlark.Value
			if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &other); err != nil {
				return nil, err
			}
			y, err := ToExpr(other)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", b.Name(), err)
			}
			return &Expr{cmp(e, y)}, nil
		}).BindReceiver(recv), nil
	}

	var unary func(expr.Expr) expr.Expr
	switch name {
	case "isnull":
		unary = expr.IsNull
	case "notnull":
		unary = expr.NotNull
	default:
		return nil, nil
	}
	return starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		return &Expr{unary(e)}, nil
	}).BindReceiver(recv), nil
}

var binaryOps = map[syntax.Token]func(x, y expr.Expr) expr.Expr{
	syntax.PLUS:       expr.Add,
	syntax.MINUS:      expr.Sub,
	syntax.STAR:       expr.Mul,
	syntax.SLASH:      expr.Div,
	syntax.SLASHSLASH: expr.FloorDiv,
	syntax.PERCENT:    expr.Mod,
	syntax.AMP:        expr.And,
	syntax.PIPE:       expr.Or,
}

func binaryExpr(e expr.Expr, op syntax.Token, y starlark.Value, side starlark.Side) (starlark.Value, error) {
	fn, ok := binaryOps[op]
	if !ok {
		return nil, nil
	}
	other, err := ToExpr(y)
	if err != nil {
		return nil, nil
	}
	if side == starlark.Left {
		return &Expr{fn(e, other)}, nil
	}
	return &Expr{fn(other, e)}, nil
}

func unaryExpr(e expr.Expr, op syntax.Token) (starlark.Value, error) {
	switch op {
	case syntax.MINUS:
		return &Expr{expr.Neg(e)}, nil
	case syntax.PLUS:
		return &Expr{e}, nil
	case syntax.TILDE:
		return &Expr{expr.Not(e)}, nil
	}
	return nil, nil
}

// ToExpr converts a Starlark value into an expression. Columns become
// column references, strings and numbers become literals.
func ToExpr(v starlark.Value) (expr.Expr, error) {
	switch val := v.(type) {
	case *Column:
		return val.col.Expr(), nil
	case *Expr:
		return val.e, nil
	case starlark.NoneType, starlark.Bool, starlark.Int, starlark.Float, starlark.String:
		gv, err := ToGo(val)
		if err != nil {
			return nil, err
		}
		return expr.Lit(gv)
	default:
		return nil, fmt.Errorf("cannot use %s in an expression", v.Type())
	}
}

// toPredicate converts a row predicate. A string is taken as a raw SQL
// condition.
func toPredicate(v starlark.Value) (expr.Expr, error) {
	if s, ok := v.(starlark.String); ok {
		return expr.Raw(string(s)), nil
	}
	return ToExpr(v)
}

func threadContext(thread *starlark.Thread) context.Context {
	if ctx, ok := thread.Local(contextKey).(context.Context); ok {
		return ctx
	}
	return context.Background()
}
