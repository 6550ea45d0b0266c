// Package journal records session operations in SQLite. A Store is a
// session.Observer: every operation summary becomes one row, which the
// history command lists.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/unitable/pkg/core"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// Entry is one recorded operation.
type Entry struct {
	ID            string
	SessionID     string
	Op            string
	Target        string
	RowsBefore    int64
	RowsAfter     int64
	ColumnsBefore int
	ColumnsAfter  int
	Duration      time.Duration
	Message       string
	Error         string
	RecordedAt    time.Time
}

// Failed reports whether the operation returned an error.
func (e Entry) Failed() bool {
	return e.Error != ""
}

// Store is a SQLite operation journal.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// New creates a journal store. A nil logger discards logs.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{logger: logger, now: time.Now}
}

// Open opens the journal database and runs pending migrations.
// Use ":memory:" for an in-memory journal.
func (s *Store) Open(path string) error {
	dsn := path + "?_time_format=sqlite&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		dsn = ":memory:?_time_format=sqlite"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping journal: %w", err)
	}
	if err := MigrateWithDB(db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.path = path
	s.logger.Debug("journal opened", slog.String("path", path))
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Record stores one operation summary.
func (s *Store) Record(ctx context.Context, sum core.Summary) (*Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("journal not opened")
	}

	e := &Entry{
		ID:            uuid.New().String(),
		SessionID:     sum.SessionID,
		Op:            sum.Op,
		Target:        sum.Target,
		RowsBefore:    sum.RowsBefore,
		RowsAfter:     sum.RowsAfter,
		ColumnsBefore: sum.ColumnsBefore,
		ColumnsAfter:  sum.ColumnsAfter,
		Duration:      sum.Duration,
		Message:       sum.Message(),
		RecordedAt:    s.now().UTC(),
	}
	var errMsg *string
	if sum.Err != nil {
		e.Error = sum.Err.Error()
		errMsg = &e.Error
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (id, session_id, op, target, rows_before, rows_after,
			columns_before, columns_after, duration_us, message, error, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Op, e.Target, e.RowsBefore, e.RowsAfter,
		e.ColumnsBefore, e.ColumnsAfter, e.Duration.Microseconds(), e.Message, errMsg, e.RecordedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record %s: %w", sum.Op, err)
	}
	return e, nil
}

// OnOperation implements session.Observer. Journal failures are logged and
// never fail the operation.
func (s *Store) OnOperation(ctx context.Context, sum core.Summary) {
	if _, err := s.Record(context.WithoutCancel(ctx), sum); err != nil {
		s.logger.Warn("failed to journal operation",
			slog.String("op", sum.Op),
			slog.String("error", err.Error()))
	}
}
