package starlark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/unitable/internal/session"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const contextKey = "context"

// DefaultPreviewRows is the number of rows browse() shows by default.
const DefaultPreviewRows = 10

// FrameWriter displays the rows returned by list_if and browse.
type FrameWriter interface {
	WriteFrame(frame *session.Frame) error
}

// Config configures a Runner.
type Config struct {
	// Session configures the session the script runs against. Its Scope is
	// always replaced by the script's global scope.
	Session session.Config
	// Out receives print() output. Defaults to io.Discard.
	Out io.Writer
	// Frames displays list_if and browse results. Defaults to a plain
	// table written to Out.
	Frames      FrameWriter
	PreviewRows int
	Logger      *slog.Logger
}

// Runner executes scripts against one session. Scripts run by the same
// Runner share globals, so a REPL can feed it one chunk at a time.
type Runner struct {
	sess    *session.Session
	scope   *Scope
	out     io.Writer
	frames  FrameWriter
	preview int
	opts    *syntax.FileOptions
	logger  *slog.Logger
}

// NewRunner creates a runner and its session.
func NewRunner(ctx context.Context, cfg Config) (*Runner, error) {
	r := &Runner{
		out:     cfg.Out,
		frames:  cfg.Frames,
		preview: cfg.PreviewRows,
		logger:  cfg.Logger,
		opts: &syntax.FileOptions{
			Set:             true,
			While:           true,
			TopLevelControl: true,
			GlobalReassign:  true,
			Recursion:       true,
		},
	}
	if r.out == nil {
		r.out = io.Discard
	}
	if r.frames == nil {
		r.frames = plainFrames{w: r.out}
	}
	if r.preview <= 0 {
		r.preview = DefaultPreviewRows
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}

	r.scope = NewScope(r.builtins())
	cfg.Session.Scope = r.scope
	if cfg.Session.Logger == nil {
		cfg.Session.Logger = r.logger
	}
	sess, err := session.New(ctx, cfg.Session)
	if err != nil {
		return nil, err
	}
	r.sess = sess
	return r, nil
}

// Session returns the runner's session.
func (r *Runner) Session() *session.Session { return r.sess }

// Globals returns the script globals, including builtins and column bindings.
func (r *Runner) Globals() starlark.StringDict { return r.scope.Globals() }

// FileOptions returns the dialect scripts are parsed with.
func (r *Runner) FileOptions() *syntax.FileOptions { return r.opts }

// Close closes the session.
func (r *Runner) Close() error {
	return r.sess.Close()
}

// ExecFile runs the script at path.
func (r *Runner) ExecFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	return r.Exec(ctx, path, src)
}

// Exec parses and runs src.
func (r *Runner) Exec(ctx context.Context, filename string, src any) error {
	f, err := r.opts.Parse(filename, src, 0)
	if err != nil {
		return err
	}
	return r.ExecChunk(ctx, f)
}

// ExecChunk runs the top-level statements of f one at a time and stops at
// the first error. Globals are reconciled with the session's bindings after
// every statement, so a statement sees the columns that exist when it
// starts.
func (r *Runner) ExecChunk(ctx context.Context, f *syntax.File) error {
	thread, done := r.newThread(ctx, f.Path)
	defer done()

	for _, stmt := range f.Stmts {
		chunk := &syntax.File{Path: f.Path, Stmts: []syntax.Stmt{stmt}, Options: f.Options}
		err := starlark.ExecREPLChunk(chunk, thread, r.scope.Globals())
		if rerr := r.reconcile(); err == nil {
			err = rerr
		}
		if err != nil {
			start, _ := stmt.Span()
			return &ScriptError{File: f.Path, Line: int(start.Line), Err: err}
		}
	}
	return nil
}

// Eval evaluates a single expression against the script globals.
func (r *Runner) Eval(ctx context.Context, e syntax.Expr) (starlark.Value, error) {
	thread, done := r.newThread(ctx, "<expr>")
	defer done()

	v, err := starlark.EvalExprOptions(r.opts, thread, e, r.scope.Globals())
	if rerr := r.reconcile(); err == nil {
		err = rerr
	}
	return v, err
}

// newThread creates a thread that carries ctx and is cancelled with it.
func (r *Runner) newThread(ctx context.Context, name string) (*starlark.Thread, func()) {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			_, _ = fmt.Fprintln(r.out, msg)
		},
	}
	thread.SetLocal(contextKey, ctx)
	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(context.Cause(ctx).Error())
	})
	return thread, func() { stop() }
}

// reconcile repairs the globals after a statement. Executing a chunk writes
// the globals it read back into the dictionary, which can resurrect a
// binding the statement removed; those are deleted again. A column binding
// overwritten by an assignment is restored and reported.
func (r *Runner) reconcile() error {
	globals := r.scope.Globals()
	for name, v := range globals {
		col, ok := v.(*Column)
		if !ok || !col.same(name, r.sess) {
			continue
		}
		if _, bound := r.sess.Lookup(name); !bound {
			delete(globals, name)
		}
	}

	var clobbered []string
	for _, name := range r.sess.Bindings() {
		if col, ok := globals[name].(*Column); ok && col.same(name, r.sess) {
			continue
		}
		clobbered = append(clobbered, name)
		if col, ok := r.sess.Lookup(name); ok {
			globals[name] = NewColumn(col)
		}
	}
	if len(clobbered) > 0 {
		return fmt.Errorf("cannot assign to %s: bound to a column, use replace() or rename()", strings.Join(clobbered, ", "))
	}
	return nil
}

// ScriptError reports the statement a script failed at.
type ScriptError struct {
	File string
	Line int
	Err  error
}

func (e *ScriptError) Error() string {
	msg := e.Err.Error()
	var evalErr *starlark.EvalError
	if errors.As(e.Err, &evalErr) {
		msg = evalErr.Msg
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, msg)
	}
	return fmt.Sprintf("%s: %s", e.File, msg)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// plainFrames renders frames as simple text tables.
type plainFrames struct {
	w io.Writer
}

func (p plainFrames) WriteFrame(frame *session.Frame) error {
	t := table.NewWriter()
	t.SetOutputMirror(p.w)
	t.SetStyle(table.StyleLight)
	header := make(table.Row, len(frame.Columns))
	for i, c := range frame.Columns {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, row := range frame.Rows {
		t.AppendRow(table.Row(row))
	}
	t.Render()
	return nil
}
