package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ListOptions filters List results.
type ListOptions struct {
	// SessionID restricts entries to one session.
	SessionID string
	// FailedOnly returns only operations that returned an error.
	FailedOnly bool
	// Limit caps the number of entries, newest first. Zero means no limit.
	Limit int
}

// List returns recorded operations, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("journal not opened")
	}

	var (
		where []string
		args  []any
	)
	if opts.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, opts.SessionID)
	}
	if opts.FailedOnly {
		where = append(where, "error IS NOT NULL")
	}

	query := `SELECT id, session_id, op, target, rows_before, rows_after, columns_before,
		columns_after, duration_us, message, error, recorded_at FROM operations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY recorded_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			duration int64
			errMsg   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Op, &e.Target, &e.RowsBefore, &e.RowsAfter,
			&e.ColumnsBefore, &e.ColumnsAfter, &duration, &e.Message, &errMsg, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan operation: %w", err)
		}
		e.Duration = time.Duration(duration) * time.Microsecond
		e.Error = errMsg.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operations: %w", err)
	}
	return entries, nil
}

// SessionInfo summarizes the operations of one session.
type SessionInfo struct {
	ID         string
	Operations int
	Failures   int
	StartedAt  time.Time
	EndedAt    time.Time
}

// Sessions lists the journaled sessions, most recent first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	if s.db == nil {
		return nil, fmt.Errorf("journal not opened")
	}

	query := `SELECT session_id, count(*), count(error), min(recorded_at), max(recorded_at)
		FROM operations GROUP BY session_id ORDER BY max(recorded_at) DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []SessionInfo
	for rows.Next() {
		var (
			info       SessionInfo
			start, end string
		)
		if err := rows.Scan(&info.ID, &info.Operations, &info.Failures, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if info.StartedAt, err = parseTime(start); err != nil {
			return nil, err
		}
		if info.EndedAt, err = parseTime(end); err != nil {
			return nil, err
		}
		sessions = append(sessions, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

// parseTime parses a timestamp the way the sqlite driver stores time.Time
// values. Aggregates such as min and max return them as text.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
