package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/unitable/internal/cli/output"
	starrun "github.com/leapstack-labs/unitable/internal/starlark"
	"github.com/spf13/cobra"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

const (
	replPrompt     = "unitable> "
	replContPrompt = "     ...> "
)

// lineReader is the part of readline the REPL loop needs.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Long: `Start an interactive session.

Statements run as soon as they are complete; a bare expression prints its
value. Columns become variables as soon as a table is loaded, and tab
completes the names currently in scope.`,
		Example: `  unitable repl
  unitable repl --database tips.duckdb`,
		Args: cobra.NoArgs,
		RunE: runREPL,
	}
}

func runREPL(cmd *cobra.Command, _ []string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	runner, err := cc.NewRunner(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	if err := ensureParentDir(cc.Cfg.HistoryFile); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     cc.Cfg.HistoryFile,
		AutoComplete:    newScopeCompleter(runner),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	cc.Renderer.Printf("unitable (session %s)\n", runner.Session().ID())
	cc.Renderer.Println("Type .help for commands, .quit to exit")
	cc.Renderer.Println()

	return (&repl{runner: runner, renderer: cc.Renderer, in: rl}).loop(ctx)
}

// repl reads statements and runs them one chunk at a time.
type repl struct {
	runner   *starrun.Runner
	renderer *output.Renderer
	in       lineReader
}

func (r *repl) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		r.in.SetPrompt(replPrompt)
		line, err := r.in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ".") {
			if quit := r.dotCommand(trimmed); quit {
				return nil
			}
			continue
		}

		if err := r.chunk(ctx, line); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if !errors.Is(err, readline.ErrInterrupt) {
				r.renderer.Error(err.Error())
			}
		}
	}
}

// chunk parses one compound statement starting with first, reading more
// lines while it is incomplete, and runs it.
func (r *repl) chunk(ctx context.Context, first string) error {
	var (
		pending = true
		readErr error
	)
	next := func() ([]byte, error) {
		if pending {
			pending = false
			return []byte(first + "\n"), nil
		}
		r.in.SetPrompt(replContPrompt)
		line, err := r.in.Readline()
		if err != nil {
			readErr = err
			return nil, err
		}
		return []byte(line + "\n"), nil
	}

	// The parser reports read errors as syntax errors; keep the original.
	f, err := r.runner.FileOptions().ParseCompoundStmt("<stdin>", next)
	if readErr != nil {
		return readErr
	}
	if err != nil {
		return err
	}

	if e := soleExpr(f); e != nil {
		v, err := r.runner.Eval(ctx, e)
		if err != nil {
			return evalMessage(err)
		}
		if v != starlark.None {
			r.renderer.Println(v.String())
		}
		return nil
	}
	return r.runner.ExecChunk(ctx, f)
}

// soleExpr returns the expression of a chunk that is a single expression
// statement.
func soleExpr(f *syntax.File) syntax.Expr {
	if len(f.Stmts) != 1 {
		return nil
	}
	if stmt, ok := f.Stmts[0].(*syntax.ExprStmt); ok {
		return stmt.X
	}
	return nil
}

// evalMessage strips the backtrace from Starlark evaluation errors.
func evalMessage(err error) error {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return errors.New(evalErr.Msg)
	}
	return err
}

func (r *repl) dotCommand(line string) (quit bool) {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case ".quit", ".exit":
		return true
	case ".help":
		printREPLHelp(r.renderer.Writer())
	case ".vars":
		sess := r.runner.Session()
		if sess.NCol() == 0 {
			r.renderer.Println(r.renderer.Muted("(no table loaded)"))
			return false
		}
		for _, col := range sess.ColTypes() {
			r.renderer.Printf("  %-24s %s\n", col.Name, col.Type)
		}
		r.renderer.Println(r.renderer.Muted(fmt.Sprintf("%d variables, %d observations", sess.NCol(), sess.NRow())))
	default:
		r.renderer.Error(fmt.Sprintf("unknown command: %s (type .help for commands)", line))
	}
	return false
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help           Show this help message
  .vars           List the variables bound to columns
  .quit / .exit   Exit the REPL

Tips:
  - read_csv("tips.csv") loads a table; its columns become variables
  - generate("ratio", tip / total_bill) adds a column
  - keep_if(total_bill.gt(20)) keeps matching rows
  - Use arrow keys to navigate history
  - Tab completes variable and function names
`
	_, _ = fmt.Fprintln(w, help)
}

// scopeCompleter completes the identifier under the cursor from the names
// currently in scope.
type scopeCompleter struct {
	runner *starrun.Runner
}

func newScopeCompleter(runner *starrun.Runner) *scopeCompleter {
	return &scopeCompleter{runner: runner}
}

// Do implements readline.AutoCompleter.
func (c *scopeCompleter) Do(line []rune, pos int) ([][]rune, int) {
	start := pos
	for start > 0 && isIdentRune(line[start-1]) {
		start--
	}
	prefix := string(line[start:pos])
	if prefix == "" {
		return nil, 0
	}

	var names []string
	for name := range c.runner.Globals() {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	candidates := make([][]rune, len(names))
	for i, name := range names {
		candidates[i] = []rune(name[len(prefix):])
	}
	return candidates, len(prefix)
}

func isIdentRune(r rune) bool {
	return r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}
