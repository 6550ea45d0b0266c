// Package expr builds column expressions that the tabular engine evaluates.
//
// Expressions are small trees of column references, literals, operators and
// function calls. Render turns a tree into a SQL fragment; Columns reports
// which columns a tree reads so callers can check them before the engine runs.
package expr

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Expr is a column expression.
type Expr interface {
	// SQL renders the expression as a SQL fragment.
	SQL() string
	walk(fn func(Expr))
}

// Render returns the SQL form of e. A nil expression renders as NULL.
func Render(e Expr) string {
	if e == nil {
		return "NULL"
	}
	return e.SQL()
}

// Columns returns the distinct column names referenced by e, sorted.
func Columns(e Expr) []string {
	if e == nil {
		return nil
	}
	seen := make(map[string]struct{})
	e.walk(func(n Expr) {
		if c, ok := n.(column); ok {
			seen[string(c)] = struct{}{}
		}
	})
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// QuoteIdent quotes a column name for use in SQL.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteString quotes a string literal for use in SQL.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

type column string

// Col references the column named name.
func Col(name string) Expr { return column(name) }

func (c column) SQL() string { return QuoteIdent(string(c)) }
func (c column) walk(fn func(Expr)) { fn(c) }

type literal struct {
	sql string
}

// Lit wraps a Go value as a literal. Supported: nil, bool, string, all
// integer kinds and float32/float64.
func Lit(v any) (Expr, error) {
	switch val := v.(type) {
	case nil:
		return literal{"NULL"}, nil
	case bool:
		if val {
			return literal{"TRUE"}, nil
		}
		return literal{"FALSE"}, nil
	case string:
		return literal{QuoteString(val)}, nil
	case int:
		return literal{strconv.Itoa(val)}, nil
	case int32:
		return literal{strconv.FormatInt(int64(val), 10)}, nil
	case int64:
		return literal{strconv.FormatInt(val, 10)}, nil
	case uint:
		return literal{strconv.FormatUint(uint64(val), 10)}, nil
	case uint64:
		return literal{strconv.FormatUint(val, 10)}, nil
	case float32:
		return floatLit(float64(val))
	case float64:
		return floatLit(val)
	case Expr:
		return val, nil
	default:
		return nil, fmt.Errorf("unsupported literal type: %T", v)
	}
}

// MustLit is like Lit but panics on unsupported types.
func MustLit(v any) Expr {
	e, err := Lit(v)
	if err != nil {
		panic(err)
	}
	return e
}

func floatLit(f float64) (Expr, error) {
	switch {
	case math.IsNaN(f):
		return literal{"'NaN'::DOUBLE"}, nil
	case math.IsInf(f, 1):
		return literal{"'Infinity'::DOUBLE"}, nil
	case math.IsInf(f, -1):
		return literal{"'-Infinity'::DOUBLE"}, nil
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return literal{s}, nil
}

func (l literal) SQL() string { return l.sql }
func (l literal) walk(fn func(Expr)) { fn(l) }

type raw string

// Raw wraps a SQL fragment verbatim. Columns does not see references inside it.
func Raw(sql string) Expr { return raw(sql) }

func (r raw) SQL() string { return "(" + string(r) + ")" }
func (r raw) walk(fn func(Expr)) { fn(r) }

type binary struct {
	op   string
	x, y Expr
}

func (b binary) SQL() string {
	return "(" + Render(b.x) + " " + b.op + " " + Render(b.y) + ")"
}

func (b binary) walk(fn func(Expr)) {
	fn(b)
	b.x.walk(fn)
	b.y.walk(fn)
}

// Binary operators.
func Add(x, y Expr) Expr { return binary{"+", x, y} }
func Sub(x, y Expr) Expr { return binary{"-", x, y} }
func Mul(x, y Expr) Expr { return binary{"*", x, y} }
func Div(x, y Expr) Expr { return binary{"/", x, y} }
func FloorDiv(x, y Expr) Expr { return binary{"//", x, y} }
func Mod(x, y Expr) Expr { return binary{"%", x, y} }
func Eq(x, y Expr) Expr { return binary{"=", x, y} }
func Ne(x, y Expr) Expr { return binary{"<>", x, y} }
func Lt(x, y Expr) Expr { return binary{"<", x, y} }
func Le(x, y Expr) Expr { return binary{"<=", x, y} }
func Gt(x, y Expr) Expr { return binary{">", x, y} }
func Ge(x, y Expr) Expr { return binary{">=", x, y} }
func And(x, y Expr) Expr { return binary{"AND", x, y} }
func Or(x, y Expr) Expr { return binary{"OR", x, y} }

type unary struct {
	op     string
	x      Expr
	suffix bool
}

func (u unary) SQL() string {
	if u.suffix {
		return "(" + Render(u.x) + " " + u.op + ")"
	}
	return "(" + u.op + Render(u.x) + ")"
}

func (u unary) walk(fn func(Expr)) {
	fn(u)
	u.x.walk(fn)
}

// Neg negates a numeric expression.
func Neg(x Expr) Expr { return unary{op: "- ", x: x} }

// Not negates a boolean expression.
func Not(x Expr) Expr { return unary{op: "NOT ", x: x} }

// IsNull is true where x is missing.
func IsNull(x Expr) Expr { return unary{op: "IS NULL", x: x, suffix: true} }

// NotNull is true where x is present.
func NotNull(x Expr) Expr { return unary{op: "IS NOT NULL", x: x, suffix: true} }

type call struct {
	name string
	args []Expr
}

// Call applies the engine function name to args.
func Call(name string, args ...Expr) Expr { return call{name, args} }

func (c call) SQL() string {
	parts := make([]string, len(c.args))
	for i, a := range c.args {
		parts[i] = Render(a)
	}
	return c.name + "(" + strings.Join(parts, ", ") + ")"
}

func (c call) walk(fn func(Expr)) {
	fn(c)
	for _, a := range c.args {
		a.walk(fn)
	}
}

// template renders args into a fixed SQL shape, one %s per argument.
type template struct {
	format string
	args   []Expr
}

func (t template) SQL() string {
	rendered := make([]any, len(t.args))
	for i, a := range t.args {
		rendered[i] = Render(a)
	}
	return fmt.Sprintf(t.format, rendered...)
}

func (t template) walk(fn func(Expr)) {
	fn(t)
	for _, a := range t.args {
		a.walk(fn)
	}
}
