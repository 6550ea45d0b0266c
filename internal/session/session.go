package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/unitable/pkg/adapter"
	"github.com/leapstack-labs/unitable/pkg/core"
)

// DefaultTablePrefix prefixes the engine tables a session creates.
const DefaultTablePrefix = "unitable_"

// Config holds session configuration.
type Config struct {
	// Adapter is a connected engine. When nil, an engine is created from
	// Engine and connected; the session then closes it on Close.
	Adapter adapter.Adapter
	// Engine configures the engine created when Adapter is nil.
	Engine core.AdapterConfig
	// Scope receives the column bindings. Defaults to a new MapScope.
	Scope Scope
	// Observers receive one summary per operation.
	Observers []Observer
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// TablePrefix overrides DefaultTablePrefix. Sessions sharing an engine
	// need distinct prefixes.
	TablePrefix string
}

// Session keeps one table and the caller's bindings of its columns in sync.
//
// Every public method holds the session lock for its whole duration, so
// other goroutines never observe bindings that disagree with the table.
type Session struct {
	mu sync.Mutex

	id         string
	engine     adapter.Adapter
	ownsEngine bool
	scope      Scope
	observers  []Observer
	logger     *slog.Logger

	dir   *directory
	store *store

	closed bool
}

// New creates a session with an empty table.
func New(ctx context.Context, cfg Config) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	engine := cfg.Adapter
	owns := false
	if engine == nil {
		engineCfg := cfg.Engine
		if engineCfg.Type == "" {
			engineCfg.Type = "duckdb"
		}
		var err error
		engine, err = adapter.Open(ctx, engineCfg, logger)
		if err != nil {
			return nil, err
		}
		owns = true
	}

	scope := cfg.Scope
	if scope == nil {
		scope = NewMapScope()
	}

	prefix := cfg.TablePrefix
	if prefix == "" {
		prefix = DefaultTablePrefix
	}

	s := &Session{
		id:         uuid.NewString(),
		engine:     engine,
		ownsEngine: owns,
		scope:      scope,
		observers:  cfg.Observers,
		logger:     logger,
	}
	s.logger = logger.With(slog.String("session", s.id))
	s.dir = newDirectory(scope, func(name string) any { return Column{name: name, s: s} }, s.logger)
	s.store = newStore(engine, prefix, s.logger)

	s.logger.Debug("session created")
	return s, nil
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// Scope returns the scope the session binds columns into.
func (s *Session) Scope() Scope {
	return s.scope
}

// Close unbinds every column and releases the engine table. A session that
// created its engine also closes it.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	for _, name := range s.dir.Names() {
		s.dir.forget(name)
	}
	s.store.Discard(context.Background(), s.store.Replace(Table{}))

	if s.ownsEngine {
		return s.engine.Close()
	}
	return nil
}

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session is closed")

// begin locks the session and returns the unlock function and a summary
// seeded with the current dimensions.
func (s *Session) begin(op string) (core.Summary, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return core.Summary{}, ErrClosed
	}
	cur := s.store.Current()
	return core.Summary{
		SessionID:     s.id,
		Op:            op,
		RowsBefore:    cur.Rows,
		ColumnsBefore: len(cur.Columns),
	}, nil
}

// finish completes the summary, notifies observers and unlocks the session.
func (s *Session) finish(ctx context.Context, sum core.Summary, start time.Time, err error) error {
	cur := s.store.Current()
	sum.RowsAfter = cur.Rows
	sum.ColumnsAfter = len(cur.Columns)
	sum.Duration = time.Since(start)
	sum.Err = err
	observers := s.observers
	s.mu.Unlock()

	for _, o := range observers {
		o.OnOperation(ctx, sum)
	}
	return err
}

// run wraps one public operation: locking, timing and reporting.
func (s *Session) run(ctx context.Context, op, target string, fn func(ctx context.Context) error) error {
	sum, err := s.begin(op)
	if err != nil {
		return err
	}
	sum.Target = target
	start := time.Now()
	return s.finish(ctx, sum, start, fn(ctx))
}

// read runs fn under the session lock without reporting.
func (s *Session) read(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return fn()
}
