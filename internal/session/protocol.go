package session

import (
	"context"
	"log/slog"
)

// stageFunc builds the next table from the active one without swapping it in.
type stageFunc func(ctx context.Context) (Table, error)

// syncAll runs the full synchronization protocol: unbind every column in
// table order, stage and swap the new table, then bind every column of the
// new table in table order. Any failure restores the previous table and
// bindings before the error is returned.
func (s *Session) syncAll(ctx context.Context, op string, stage stageFunc) error {
	before := s.store.Current()

	var unbound []string
	for _, name := range before.Names() {
		if err := s.dir.unbind(name, before, op); err != nil {
			s.rebind(unbound)
			return err
		}
		unbound = append(unbound, name)
	}

	next, err := stage(ctx)
	if err != nil {
		s.rebind(unbound)
		return err
	}
	prev := s.store.Replace(next)

	var bound []string
	for _, name := range next.Names() {
		if err := s.dir.bind(name); err != nil {
			s.logger.Debug("rolling back", slog.String("op", op), slog.String("name", name), slog.String("error", err.Error()))
			for _, b := range bound {
				s.dir.forget(b)
			}
			s.store.Replace(prev)
			s.store.Discard(ctx, next)
			s.rebind(unbound)
			return err
		}
		bound = append(bound, name)
	}

	s.store.Discard(ctx, prev)
	return nil
}

// syncOne runs the narrow protocol for operations that touch one name:
// unbind (when non-empty), stage and swap, bind (when non-empty). Other
// bindings are left alone.
func (s *Session) syncOne(ctx context.Context, op, unbind, bind string, stage stageFunc) error {
	before := s.store.Current()

	if unbind != "" {
		if err := s.dir.unbind(unbind, before, op); err != nil {
			return err
		}
	}
	undo := func() {
		if unbind != "" {
			s.dir.restore(unbind, s.store.Current())
		}
	}

	next, err := stage(ctx)
	if err != nil {
		undo()
		return err
	}
	prev := s.store.Replace(next)

	if bind != "" {
		if err := s.dir.bind(bind); err != nil {
			s.logger.Debug("rolling back", slog.String("op", op), slog.String("name", bind), slog.String("error", err.Error()))
			s.store.Replace(prev)
			s.store.Discard(ctx, next)
			undo()
			return err
		}
		s.dir.align(next)
	}

	s.store.Discard(ctx, prev)
	return nil
}

// rebind restores names unbound earlier in the operation. The active table
// must already be the one they belong to.
func (s *Session) rebind(names []string) {
	current := s.store.Current()
	for _, name := range names {
		s.dir.restore(name, current)
	}
}
