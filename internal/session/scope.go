package session

import (
	"sort"
	"sync"
)

// Scope is the caller namespace that column bindings are written into.
//
// Implementations need not be safe for concurrent use; a Session serializes
// its own access.
type Scope interface {
	// Lookup returns the value bound to name, if any.
	Lookup(name string) (any, bool)
	// Bind sets name to value.
	Bind(name string, value any) error
	// Unbind removes name. Removing an absent name is a no-op.
	Unbind(name string)
	// IsBuiltin reports whether name is provided by the environment and
	// must never be shadowed by a column.
	IsBuiltin(name string) bool
}

// MapScope is a Scope backed by a map. It is the default scope for Go callers.
type MapScope struct {
	mu       sync.RWMutex
	vars     map[string]any
	builtins map[string]struct{}
}

// NewMapScope creates an empty scope that treats the given names as builtins.
func NewMapScope(builtins ...string) *MapScope {
	s := &MapScope{
		vars:     make(map[string]any),
		builtins: make(map[string]struct{}, len(builtins)),
	}
	for _, b := range builtins {
		s.builtins[b] = struct{}{}
	}
	return s
}

// Lookup implements Scope.
func (s *MapScope) Lookup(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vars[name]
	return v, ok
}

// Bind implements Scope.
func (s *MapScope) Bind(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vars[name] = value
	return nil
}

// Unbind implements Scope.
func (s *MapScope) Unbind(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vars, name)
}

// IsBuiltin implements Scope.
func (s *MapScope) IsBuiltin(name string) bool {
	_, ok := s.builtins[name]
	return ok
}

// Set defines a user variable. Set does not validate the name.
func (s *MapScope) Set(name string, value any) {
	_ = s.Bind(name, value)
}

// Names returns every bound name, sorted.
func (s *MapScope) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.vars))
	for n := range s.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
