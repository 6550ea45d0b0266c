package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// watchDebounce collapses the burst of events an editor produces on save.
const watchDebounce = 100 * time.Millisecond

// RunOptions holds options for the run command.
type RunOptions struct {
	Watch bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <script.star>",
		Short: "Run a script",
		Long: `Run a Starlark script against a fresh session.

Every column of the active table is a variable in the script. Operations
such as generate, keep_if or merge print a one-line summary as they run.
With --watch, the script is run again whenever it changes.`,
		Example: `  # Run a script
  unitable run clean_tips.star

  # Re-run on every save
  unitable run clean_tips.star --watch

  # Emit summaries and listings as JSON
  unitable run clean_tips.star -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-run the script when it changes")

	return cmd
}

func runRun(cmd *cobra.Command, path string, opts *RunOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if !opts.Watch {
		return cc.runScript(ctx, path)
	}

	w, err := newScriptWatcher(path, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	rerun := func(ctx context.Context) {
		if err := cc.runScript(ctx, path); err != nil {
			cc.Renderer.Error(err.Error())
		}
		cc.Renderer.Println(cc.Renderer.Muted(fmt.Sprintf("watching %s", path)))
	}
	rerun(ctx)
	w.loop(ctx, rerun)
	return nil
}

// runScript runs path against a new session.
func (cc *CommandContext) runScript(ctx context.Context, path string) error {
	start := time.Now()
	runner, err := cc.NewRunner(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	if err := runner.ExecFile(ctx, path); err != nil {
		return err
	}
	cc.Logger.Debug("script finished",
		slog.String("script", path),
		slog.String("session", runner.Session().ID()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// scriptWatcher reports changes to one script. It watches the script's
// directory so that editors which save by renaming are seen too.
type scriptWatcher struct {
	*fsnotify.Watcher
	path   string
	logger *slog.Logger
}

func newScriptWatcher(path string, logger *slog.Logger) (*scriptWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	return &scriptWatcher{Watcher: w, path: abs, logger: logger}, nil
}

// loop calls run after each change until ctx is done or the watcher closes.
func (w *scriptWatcher) loop(ctx context.Context, run func(ctx context.Context)) {
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Clean(event.Name) != w.path {
				continue
			}
			debounce = time.After(watchDebounce)
		case <-debounce:
			debounce = nil
			w.logger.Debug("change detected", slog.String("script", w.path))
			run(ctx)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}
