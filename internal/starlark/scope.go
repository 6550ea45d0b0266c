package starlark

import (
	"github.com/leapstack-labs/unitable/internal/session"
	"go.starlark.net/starlark"
)

// Scope is a session.Scope backed by a script's global dictionary. Column
// bindings are stored as *Column values, so scripts use them as ordinary
// variables.
type Scope struct {
	globals  starlark.StringDict
	builtins map[string]struct{}
}

var _ session.Scope = (*Scope)(nil)

// NewScope creates a scope over globals. Every name already present in
// globals is treated as a builtin.
func NewScope(globals starlark.StringDict) *Scope {
	s := &Scope{
		globals:  globals,
		builtins: make(map[string]struct{}, len(globals)),
	}
	for name := range globals {
		s.builtins[name] = struct{}{}
	}
	return s
}

// Globals returns the underlying dictionary.
func (s *Scope) Globals() starlark.StringDict {
	return s.globals
}

// Lookup implements session.Scope.
func (s *Scope) Lookup(name string) (any, bool) {
	v, ok := s.globals[name]
	return v, ok
}

// Bind implements session.Scope.
func (s *Scope) Bind(name string, value any) error {
	if col, ok := value.(session.Column); ok {
		s.globals[name] = NewColumn(col)
		return nil
	}
	v, err := GoToStarlark(value)
	if err != nil {
		return err
	}
	s.globals[name] = v
	return nil
}

// Unbind implements session.Scope.
func (s *Scope) Unbind(name string) {
	delete(s.globals, name)
}

// IsBuiltin implements session.Scope.
func (s *Scope) IsBuiltin(name string) bool {
	_, ok := s.builtins[name]
	return ok
}
