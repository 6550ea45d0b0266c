package starlark

import (
	"fmt"

	"github.com/leapstack-labs/unitable/pkg/core"
	"github.com/leapstack-labs/unitable/pkg/expr"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

type builtinFunc func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

// builtins returns the predeclared functions of a script. They act on r's
// session.
func (r *Runner) builtins() starlark.StringDict {
	fns := map[string]builtinFunc{
		// io
		"read_csv":         r.readFormat(core.FormatCSV),
		"read_tsv":         r.readFormat(core.FormatTSV),
		"read_parquet":     r.readFormat(core.FormatParquet),
		"read_json":        r.readFormat(core.FormatJSON),
		"read_fwf":         r.readFWF,
		"import_delimited": r.importDelimited,
		"write_csv":        r.writeFormat(core.FormatCSV),
		"write_tsv":        r.writeFormat(core.FormatTSV),
		"write_fwf":        r.writeFormat(core.FormatFWF),
		"write_parquet":    r.writeFormat(core.FormatParquet),
		"write_json":       r.writeFormat(core.FormatJSON),
		"export_delimited": r.exportDelimited,
		"input":            r.input,
		"data_frame":       r.input,
		"clear":            r.clear,

		// columns
		"generate": r.generate,
		"replace":  r.replace,
		"rename":   r.rename,
		"drop":     r.drop,
		"keep":     r.keep,

		// rows
		"keep_if":         r.keepIf,
		"drop_if":         r.dropIf,
		"dropna":          r.dropna,
		"drop_duplicates": r.dropDuplicates,
		"sort":            r.sort,

		// reshaping
		"merge":   r.merge,
		"append":  r.append,
		"groupby": r.groupby,

		// inspection
		"list_if":   r.listIf,
		"browse":    r.browse,
		"nrow":      r.nrow,
		"ncol":      r.ncol,
		"col_names": r.colNames,
		"col_types": r.colTypes,

		// strings
		"strlen":    unaryString(expr.Strlen),
		"strupper":  unaryString(expr.Upper),
		"strlower":  unaryString(expr.Lower),
		"strproper": unaryString(expr.Proper),
		"strpos":    strpos,
		"substr":    substr,
		"word":      word,
	}

	globals := make(starlark.StringDict, len(fns))
	for name, fn := range fns {
		globals[name] = starlark.NewBuiltin(name, fn)
	}
	return globals
}

func columnArgs(fnname string, args starlark.Tuple) ([]core.Handle, error) {
	hs := make([]core.Handle, len(args))
	for i, a := range args {
		c, ok := a.(*Column)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d is %s, want column", fnname, i+1, a.Type())
		}
		hs[i] = c.col.Handle()
	}
	return hs, nil
}

func noKwargs(fnname string, kwargs []starlark.Tuple) error {
	if len(kwargs) > 0 {
		return fmt.Errorf("%s: unexpected keyword argument %s", fnname, kwargs[0][0])
	}
	return nil
}

// columnNames accepts a column, a name, or a list or tuple of either.
func columnNames(fnname string, v starlark.Value) ([]string, error) {
	switch val := v.(type) {
	case nil, starlark.NoneType:
		return nil, nil
	case *Column:
		return []string{val.Name()}, nil
	case starlark.String:
		return []string{string(val)}, nil
	case starlark.Indexable:
		names := make([]string, 0, val.Len())
		for i := 0; i < val.Len(); i++ {
			more, err := columnNames(fnname, val.Index(i))
			if err != nil {
				return nil, err
			}
			names = append(names, more...)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("%s: got %s, want column or list of columns", fnname, v.Type())
	}
}

func (r *Runner) readFormat(format core.Format) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var path string
		header := true
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &path, "header?", &header); err != nil {
			return nil, err
		}
		src := core.Source{Path: path, Format: format, NoHeader: !header}
		return starlark.None, r.sess.Load(threadContext(thread), src)
	}
}

func (r *Runner) readFWF(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		path   string
		widths *starlark.List
	)
	header := true
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &path, "widths?", &widths, "header?", &header); err != nil {
		return nil, err
	}
	src := core.Source{Path: path, Format: core.FormatFWF, NoHeader: !header}
	if widths != nil {
		for i := 0; i < widths.Len(); i++ {
			w, err := starlark.AsInt32(widths.Index(i))
			if err != nil {
				return nil, fmt.Errorf("%s: widths[%d]: %w", b.Name(), i, err)
			}
			src.Widths = append(src.Widths, w)
		}
	}
	return starlark.None, r.sess.Load(threadContext(thread), src)
}

func (r *Runner) importDelimited(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	delimiter := ","
	header := true
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &path, "delimiter?", &delimiter, "header?", &header); err != nil {
		return nil, err
	}
	src := core.Source{Path: path, Format: core.FormatCSV, Delimiter: delimiter, NoHeader: !header}
	return starlark.None, r.sess.Load(threadContext(thread), src)
}

func (r *Runner) writeFormat(format core.Format) builtinFunc {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var path string
		if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &path); err != nil {
			return nil, err
		}
		return starlark.None, r.sess.Save(threadContext(thread), core.Sink{Path: path, Format: format})
	}
}

func (r *Runner) exportDelimited(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	delimiter := ","
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &path, "delimiter?", &delimiter); err != nil {
		return nil, err
	}
	sink := core.Sink{Path: path, Format: core.FormatCSV, Delimiter: delimiter}
	return starlark.None, r.sess.Save(threadContext(thread), sink)
}

// input loads a dict of equally long lists, one per column.
func (r *Runner) input(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var data *starlark.Dict
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &data); err != nil {
		return nil, err
	}

	var (
		columns []string
		rows    [][]any
	)
	for i, item := range data.Items() {
		name, ok := item[0].(starlark.String)
		if !ok {
			return nil, fmt.Errorf("%s: column names must be strings, got %s", b.Name(), item[0].Type())
		}
		v, err := ToGo(item[1])
		if err != nil {
			return nil, fmt.Errorf("%s: column %s: %w", b.Name(), string(name), err)
		}
		vals, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("%s: column %s must be a list, got %s", b.Name(), string(name), item[1].Type())
		}
		if i == 0 {
			rows = make([][]any, len(vals))
			for j := range rows {
				rows[j] = make([]any, 0, data.Len())
			}
		} else if len(vals) != len(rows) {
			return nil, fmt.Errorf("%s: column %s has %d values, want %d", b.Name(), string(name), len(vals), len(rows))
		}
		for j, val := range vals {
			rows[j] = append(rows[j], val)
		}
		columns = append(columns, string(name))
	}
	return starlark.None, r.sess.Input(threadContext(thread), columns, rows)
}

func (r *Runner) clear(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.None, r.sess.Clear(threadContext(thread))
}

func (r *Runner) generate(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		name  string
		value starlark.Value
	)
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &name, &value); err != nil {
		return nil, err
	}
	e, err := ToExpr(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, r.sess.Generate(threadContext(thread), name, e)
}

func (r *Runner) replace(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		col   *Column
		value starlark.Value
	)
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &col, &value); err != nil {
		return nil, err
	}
	e, err := ToExpr(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, r.sess.Replace(threadContext(thread), col.col.Handle(), e)
}

func (r *Runner) rename(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		col  *Column
		name string
	)
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &col, &name); err != nil {
		return nil, err
	}
	return starlark.None, r.sess.Rename(threadContext(thread), col.col.Handle(), name)
}

func (r *Runner) drop(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noKwargs(b.Name(), kwargs); err != nil {
		return nil, err
	}
	hs, err := columnArgs(b.Name(), args)
	if err != nil {
		return nil, err
	}
	return starlark.None, r.sess.Drop(threadContext(thread), hs...)
}

func (r *Runner) keep(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noKwargs(b.Name(), kwargs); err != nil {
		return nil, err
	}
	hs, err := columnArgs(b.Name(), args)
	if err != nil {
		return nil, err
	}
	return starlark.None, r.sess.Keep(threadContext(thread), hs...)
}

func (r *Runner) keepIf(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var cond starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &cond); err != nil {
		return nil, err
	}
	pred, err := toPredicate(cond)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, r.sess.KeepIf(threadContext(thread), pred)
}

func (r *Runner) dropIf(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var cond starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &cond); err != nil {
		return nil, err
	}
	pred, err := toPredicate(cond)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, r.sess.DropIf(threadContext(thread), pred)
}

func (r *Runner) dropna(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	how := "any"
	var subset starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "how?", &how, "subset?", &subset); err != nil {
		return nil, err
	}
	if how != "any" && how != "all" {
		return nil, fmt.Errorf("%s: how must be \"any\" or \"all\", got %q", b.Name(), how)
	}
	names, err := columnNames(b.Name(), subset)
	if err != nil {
		return nil, err
	}
	opts := core.DropMissingOptions{All: how == "all", Subset: names}
	return starlark.None, r.sess.DropMissing(threadContext(thread), opts)
}

func (r *Runner) dropDuplicates(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := noKwargs(b.Name(), kwargs); err != nil {
		return nil, err
	}
	hs, err := columnArgs(b.Name(), args)
	if err != nil {
		return nil, err
	}
	return starlark.None, r.sess.DropDuplicates(threadContext(thread), hs...)
}

func (r *Runner) sort(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var desc bool
	if err := starlark.UnpackArgs(b.Name(), nil, kwargs, "desc?", &desc); err != nil {
		return nil, err
	}
	hs, err := columnArgs(b.Name(), args)
	if err != nil {
		return nil, err
	}
	keys := make([]core.SortKey, len(hs))
	for i, h := range hs {
		keys[i] = core.SortKey{Name: h.Name, Desc: desc}
	}
	return starlark.None, r.sess.Sort(threadContext(thread), keys...)
}

func (r *Runner) merge(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		path string
		on   starlark.Value = starlark.None
	)
	how := string(core.JoinInner)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &path, "on?", &on, "how?", &how); err != nil {
		return nil, err
	}
	keys, err := columnNames(b.Name(), on)
	if err != nil {
		return nil, err
	}
	opts := core.JoinOptions{How: core.JoinHow(how), On: keys}
	return starlark.None, r.sess.Merge(threadContext(thread), core.Source{Path: path}, opts)
}

func (r *Runner) append(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var path string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "path", &path); err != nil {
		return nil, err
	}
	return starlark.None, r.sess.Append(threadContext(thread), core.Source{Path: path})
}

// groupby takes the group columns positionally and one keyword argument
// per aggregate: total=("sum", bill) or n="count".
func (r *Runner) groupby(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	hs, err := columnArgs(b.Name(), args)
	if err != nil {
		return nil, err
	}
	aggs := make([]core.Aggregation, 0, len(kwargs))
	for _, kw := range kwargs {
		agg, err := aggregation(string(kw[0].(starlark.String)), kw[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		aggs = append(aggs, agg)
	}
	return starlark.None, r.sess.GroupBy(threadContext(thread), hs, aggs...)
}

func aggregation(as string, v starlark.Value) (core.Aggregation, error) {
	agg := core.Aggregation{As: as}
	switch val := v.(type) {
	case starlark.String:
		agg.Func = string(val)
	case starlark.Tuple:
		if val.Len() == 0 || val.Len() > 2 {
			return agg, fmt.Errorf("%s: want (function, column), got %d values", as, val.Len())
		}
		fn, ok := val[0].(starlark.String)
		if !ok {
			return agg, fmt.Errorf("%s: aggregate function must be a string, got %s", as, val[0].Type())
		}
		agg.Func = string(fn)
		if val.Len() == 2 {
			col, ok := val[1].(*Column)
			if !ok {
				return agg, fmt.Errorf("%s: aggregate input must be a column, got %s", as, val[1].Type())
			}
			agg.Column = col.Name()
		}
	default:
		return agg, fmt.Errorf("%s: want (function, column), got %s", as, v.Type())
	}
	return agg, nil
}

func (r *Runner) listIf(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var cond starlark.Value = starlark.None
	limit := 0
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "cond?", &cond, "limit?", &limit); err != nil {
		return nil, err
	}
	var pred expr.Expr
	if cond != starlark.None {
		var err error
		if pred, err = toPredicate(cond); err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
	}
	frame, err := r.sess.ListIf(threadContext(thread), pred, limit)
	if err != nil {
		return nil, err
	}
	return starlark.None, r.frames.WriteFrame(frame)
}

func (r *Runner) browse(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	n := r.preview
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "n?", &n); err != nil {
		return nil, err
	}
	frame, err := r.sess.Head(threadContext(thread), n)
	if err != nil {
		return nil, err
	}
	return starlark.None, r.frames.WriteFrame(frame)
}

func (r *Runner) nrow(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.MakeInt64(r.sess.NRow()), nil
}

func (r *Runner) ncol(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return starlark.MakeInt(r.sess.NCol()), nil
}

func (r *Runner) colNames(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	return GoToStarlark(r.sess.ColNames())
}

func (r *Runner) colTypes(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	fields := make(starlark.StringDict)
	for _, c := range r.sess.ColTypes() {
		fields[c.Name] = starlark.String(c.Type)
	}
	return starlarkstruct.FromStringDict(starlark.String("col_types"), fields), nil
}

func unaryString(fn func(expr.Expr) expr.Expr) builtinFunc {
	return func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var x starlark.Value
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &x); err != nil {
			return nil, err
		}
		e, err := ToExpr(x)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		return &Expr{fn(e)}, nil
	}
}

func strpos(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		x   starlark.Value
		sub string
	)
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &x, &sub); err != nil {
		return nil, err
	}
	e, err := ToExpr(x)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return &Expr{expr.Strpos(e, sub)}, nil
}

func substr(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		x          starlark.Value
		start, end int
	)
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 3, &x, &start, &end); err != nil {
		return nil, err
	}
	e, err := ToExpr(x)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return &Expr{expr.Substr(e, start, end)}, nil
}

func word(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		x starlark.Value
		n int
	)
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &x, &n); err != nil {
		return nil, err
	}
	e, err := ToExpr(x)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return &Expr{expr.Word(e, n)}, nil
}
