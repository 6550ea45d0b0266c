package commands

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/unitable/internal/journal"
	"github.com/leapstack-labs/unitable/internal/session"
	"github.com/spf13/cobra"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Session  string
	Failed   bool
	Limit    int
	Sessions bool
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled operations",
		Long: `Show the operations recorded in the journal, newest first.

Every operation of every session is journaled with its row and column
counts before and after, its duration and its error, if any.`,
		Example: `  # Last 20 operations
  unitable history

  # Sessions instead of operations
  unitable history --sessions

  # Failures of one session
  unitable history --session 6f1c... --failed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "Only show operations of this session")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "Only show failed operations")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of rows (0 for all)")
	cmd.Flags().BoolVar(&opts.Sessions, "sessions", false, "List sessions instead of operations")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if cc.Journal == nil {
		return fmt.Errorf("the journal is disabled\nHint: set journal.enabled: true in unitable.yaml")
	}

	ctx := cmd.Context()
	if opts.Sessions {
		sessions, err := cc.Journal.Sessions(ctx, opts.Limit)
		if err != nil {
			return err
		}
		return cc.Renderer.WriteFrame(sessionsFrame(sessions))
	}

	entries, err := cc.Journal.List(ctx, journal.ListOptions{
		SessionID:  opts.Session,
		FailedOnly: opts.Failed,
		Limit:      opts.Limit,
	})
	if err != nil {
		return err
	}
	return cc.Renderer.WriteFrame(entriesFrame(entries))
}

func entriesFrame(entries []journal.Entry) *session.Frame {
	frame := &session.Frame{
		Columns: []string{"recorded_at", "session", "op", "target", "rows", "columns", "duration", "message"},
	}
	for _, e := range entries {
		msg := e.Message
		if e.Failed() {
			msg = e.Error
		}
		frame.Rows = append(frame.Rows, []any{
			e.RecordedAt.Local().Format(time.DateTime),
			shortID(e.SessionID),
			e.Op,
			e.Target,
			fmt.Sprintf("%d -> %d", e.RowsBefore, e.RowsAfter),
			fmt.Sprintf("%d -> %d", e.ColumnsBefore, e.ColumnsAfter),
			e.Duration.Round(time.Microsecond).String(),
			msg,
		})
	}
	return frame
}

func sessionsFrame(sessions []journal.SessionInfo) *session.Frame {
	frame := &session.Frame{
		Columns: []string{"session", "started_at", "ended_at", "operations", "failures"},
	}
	for _, s := range sessions {
		frame.Rows = append(frame.Rows, []any{
			s.ID,
			s.StartedAt.Local().Format(time.DateTime),
			s.EndedAt.Local().Format(time.DateTime),
			s.Operations,
			s.Failures,
		})
	}
	return frame
}

// shortID abbreviates a session id the way git abbreviates hashes.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
