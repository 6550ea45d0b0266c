package commands

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/unitable/internal/cli/config"
	"github.com/leapstack-labs/unitable/internal/cli/output"
	clitest "github.com/leapstack-labs/unitable/internal/cli/testutil"
	"github.com/leapstack-labs/unitable/internal/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/unitable/pkg/adapters/duckdb"
)

const cleanScript = `read_csv("tips.csv")
keep_if(total_bill.gt(20))
generate("ratio", tip / total_bill)
print(nrow())
write_csv("out.csv")
`

// setupProject creates a project, makes it the working directory and loads
// its configuration.
func setupProject(t *testing.T, scripts map[string]string) string {
	t.Helper()
	dir := clitest.SetupTestProject(t, testutil.TipsCSV, scripts)
	t.Chdir(dir)
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	_, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	return dir
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewRunCommand(), "run <script.star>", []string{"watch"}},
		{NewREPLCommand(), "repl", nil},
		{NewHistoryCommand(), "history", []string{"session", "failed", "limit", "sessions"}},
		{NewVersionCommand("test"), "version", nil},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			assert.NotEmpty(t, tt.cmd.Long, "Long should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	for _, version := range []string{"0.1.0", "1.2.3", "dev"} {
		out, _, err := execute(t, NewVersionCommand(version))
		require.NoError(t, err)
		assert.Contains(t, out, "unitable v"+version)
		assert.Contains(t, out, "DuckDB")
	}
}

func TestRunCommand(t *testing.T) {
	dir := setupProject(t, map[string]string{"clean.star": cleanScript})

	out, errOut, err := execute(t, NewRunCommand(), "clean.star")
	require.NoError(t, err, errOut)

	assert.Contains(t, out, "read read 7 variables from tips.csv")
	assert.Contains(t, out, "keep_if dropped 7 of 12 observations")
	assert.Contains(t, out, "generate generated ratio")
	assert.Contains(t, out, "\n5\n")
	clitest.AssertNoANSI(t, out)

	written, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(written), "ratio")
	assert.FileExists(t, filepath.Join(dir, ".unitable", "journal.db"))
}

func TestRunCommand_ScriptError(t *testing.T) {
	setupProject(t, map[string]string{"broken.star": "read_csv(\"tips.csv\")\ndrop(nope)\n"})

	_, _, err := execute(t, NewRunCommand(), "broken.star")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.star:2")
	assert.Contains(t, err.Error(), "undefined: nope")
}

func TestRunCommand_MissingScript(t *testing.T) {
	setupProject(t, nil)

	_, _, err := execute(t, NewRunCommand(), "missing.star")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read script")
}

func TestHistoryCommand(t *testing.T) {
	setupProject(t, map[string]string{
		"clean.star":  cleanScript,
		"broken.star": "read_csv(\"tips.csv\")\nrename(tip, \"class\")\n",
	})
	_, _, err := execute(t, NewRunCommand(), "clean.star")
	require.NoError(t, err)
	_, _, err = execute(t, NewRunCommand(), "broken.star")
	require.Error(t, err)

	out, _, err := execute(t, NewHistoryCommand(), "--limit", "0")
	require.NoError(t, err)
	for _, want := range []string{"keep_if", "generate", "write", "dropped 7 of 12 observations", "12 -> 5"} {
		assert.Contains(t, out, want)
	}

	out, _, err = execute(t, NewHistoryCommand(), "--failed")
	require.NoError(t, err)
	assert.Contains(t, out, "rename")
	assert.Contains(t, out, "class")
	assert.Contains(t, out, "(1 rows)")

	out, _, err = execute(t, NewHistoryCommand(), "--sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 rows)")
}

func TestHistoryCommand_JournalDisabled(t *testing.T) {
	setupProject(t, nil)
	getConfig().Journal.Enabled = false

	_, _, err := execute(t, NewHistoryCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal is disabled")
}

// scriptedReader replays lines; "^C" stands for an interrupt.
type scriptedReader struct {
	lines   []string
	prompts []string
}

func (s *scriptedReader) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	if line == "^C" {
		return "", readline.ErrInterrupt
	}
	return line, nil
}

func (s *scriptedReader) SetPrompt(prompt string) {
	s.prompts = append(s.prompts, prompt)
}

func newTestREPL(t *testing.T, lines ...string) (*repl, *clitest.TestRenderer, *scriptedReader) {
	t.Helper()
	setupProject(t, nil)

	cfg := config.Default()
	cfg.Journal.Enabled = false
	tr := clitest.NewTestRenderer(output.ModeText, false)
	cc := &CommandContext{Cfg: cfg, Logger: testutil.NewTestLogger(t), Renderer: tr.Renderer}

	runner, err := cc.NewRunner(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = runner.Close() })

	in := &scriptedReader{lines: lines}
	return &repl{runner: runner, renderer: cc.Renderer, in: in}, tr, in
}

func TestREPL(t *testing.T) {
	r, tr, in := newTestREPL(t,
		`read_csv("tips.csv")`,
		"nrow()",
		"if nrow() > 3:",
		"    keep_if(size.ge(4))",
		"",
		"^C",
		"drop(nope)",
		".vars",
		".bogus",
		"col_names()[:2]",
	)

	require.NoError(t, r.loop(context.Background()))

	out := tr.Output()
	assert.Contains(t, out, "read 7 variables from tips.csv")
	assert.Contains(t, out, "\n12\n")
	assert.Contains(t, out, "dropped 9 of 12 observations")
	assert.Contains(t, out, "total_bill")
	assert.Contains(t, out, "7 variables, 3 observations")
	assert.Contains(t, out, `["total_bill", "tip"]`)

	errOut := tr.ErrorOutput()
	assert.Contains(t, errOut, "undefined: nope")
	assert.Contains(t, errOut, "unknown command: .bogus")

	assert.Contains(t, in.prompts, replContPrompt, "the if block needs continuation lines")
	assert.Equal(t, int64(3), r.runner.Session().NRow())
}

func TestREPL_QuitAndEOFMidStatement(t *testing.T) {
	r, _, in := newTestREPL(t, ".quit", "nrow()")
	require.NoError(t, r.loop(context.Background()))
	assert.Equal(t, []string{"nrow()"}, in.lines, "nothing is read after .quit")

	r, tr, _ := newTestREPL(t, "x = (1 +")
	require.NoError(t, r.loop(context.Background()))
	assert.Empty(t, tr.ErrorOutput())
}

func TestScopeCompleter(t *testing.T) {
	r, _, _ := newTestREPL(t, `read_csv("tips.csv")`)
	require.NoError(t, r.loop(context.Background()))

	c := newScopeCompleter(r.runner)

	line := []rune("keep_if(to")
	candidates, length := c.Do(line, len(line))
	assert.Equal(t, [][]rune{[]rune("tal_bill")}, candidates)
	assert.Equal(t, 2, length)

	line = []rune("x = ")
	candidates, _ = c.Do(line, len(line))
	assert.Empty(t, candidates)
}

func TestScriptWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "watched.star")
	require.NoError(t, os.WriteFile(path, []byte("x = 1\n"), 0600))

	w, err := newScriptWatcher(path, testutil.NewTestLogger(t))
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runs := make(chan struct{}, 4)
	done := make(chan struct{})
	go func() {
		w.loop(ctx, func(context.Context) { runs <- struct{}{} })
		close(done)
	}()

	require.NoError(t, os.WriteFile(path, []byte("x = 2\n"), 0600))
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("script change was not detected")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watch loop did not stop")
	}
}
