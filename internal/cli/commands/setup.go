// Package commands implements the unitable subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/unitable/internal/cli/config"
	"github.com/leapstack-labs/unitable/internal/cli/output"
	"github.com/leapstack-labs/unitable/internal/journal"
	"github.com/leapstack-labs/unitable/internal/session"
	starrun "github.com/leapstack-labs/unitable/internal/starlark"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	// Journal is nil when the journal is disabled.
	Journal *journal.Store
}

// NewCommandContext creates a CommandContext and opens the journal when it
// is enabled. The cleanup function must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc, err := NewCommandContextWithoutJournal(cmd)
	if err != nil {
		return nil, nil, err
	}
	if !cc.Cfg.Journal.Enabled {
		return cc, func() {}, nil
	}

	if err := ensureParentDir(cc.Cfg.Journal.Path); err != nil {
		return nil, nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	store := journal.New(cc.Logger)
	if err := store.Open(cc.Cfg.Journal.Path); err != nil {
		return nil, nil, err
	}
	cc.Journal = store

	cleanup := func() {
		if err := store.Close(); err != nil {
			cc.Logger.Warn("failed to close journal", slog.String("error", err.Error()))
		}
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutJournal creates a CommandContext without opening
// the journal.
func NewCommandContextWithoutJournal(cmd *cobra.Command) (*CommandContext, error) {
	cfg := getConfig()
	mode, err := output.ParseMode(cfg.Output)
	if err != nil {
		return nil, err
	}
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode),
	}, nil
}

// NewRunner creates a script runner whose session reports every operation
// to the renderer, the log and the journal.
func (cc *CommandContext) NewRunner(ctx context.Context) (*starrun.Runner, error) {
	observers := []session.Observer{
		cc.Renderer,
		session.NewLoggingObserver(cc.Logger),
	}
	if cc.Journal != nil {
		observers = append(observers, cc.Journal)
	}

	if err := ensureParentDir(cc.Cfg.Engine.Path); err != nil {
		return nil, fmt.Errorf("failed to create engine directory: %w", err)
	}

	return starrun.NewRunner(ctx, starrun.Config{
		Session: session.Config{
			Engine:    cc.Cfg.AdapterConfig(),
			Observers: observers,
			Logger:    cc.Logger,
		},
		Out:         cc.Renderer.Writer(),
		Frames:      cc.Renderer,
		PreviewRows: cc.Cfg.PreviewRows,
		Logger:      cc.Logger,
	})
}

// getConfig returns the current configuration, or the defaults when no
// configuration was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

func ensureParentDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0750)
}
