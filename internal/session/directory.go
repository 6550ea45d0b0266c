package session

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/leapstack-labs/unitable/pkg/core"
)

// directory tracks which column names are currently bound in the caller
// scope, in bind order.
type directory struct {
	scope    Scope
	names    []string
	newValue func(name string) any
	logger   *slog.Logger
}

func newDirectory(scope Scope, newValue func(name string) any, logger *slog.Logger) *directory {
	return &directory{scope: scope, newValue: newValue, logger: logger}
}

// Bound reports whether name is bound.
func (d *directory) Bound(name string) bool {
	return slices.Contains(d.names, name)
}

// Names returns the bound names in bind order.
func (d *directory) Names() []string {
	names := make([]string, len(d.names))
	copy(names, d.names)
	return names
}

// bind validates name and writes a fresh binding into the scope.
func (d *directory) bind(name string) error {
	if err := Validate(d.scope, name); err != nil {
		return err
	}
	if err := d.scope.Bind(name, d.newValue(name)); err != nil {
		return err
	}
	d.names = append(d.names, name)
	return nil
}

// unbind removes name from the scope. The name must be bound and be a
// column of t.
func (d *directory) unbind(name string, t Table, op string) error {
	if !d.Bound(name) || !t.Has(name) {
		return &core.UnboundVariableError{Name: name, Op: op}
	}
	d.scope.Unbind(name)
	d.remove(name)
	return nil
}

// forget removes a binding without checks. Used to undo a bind.
func (d *directory) forget(name string) {
	d.scope.Unbind(name)
	d.remove(name)
}

// restore rebinds name without validation at its column position in t.
// Used to undo an unbind.
func (d *directory) restore(name string, t Table) {
	if err := d.scope.Bind(name, d.newValue(name)); err != nil {
		d.logger.Error("failed to restore binding", slog.String("name", name), slog.String("error", err.Error()))
	}
	if !d.Bound(name) {
		d.names = append(d.names, name)
	}
	d.align(t)
}

// align orders the bound names by their column position in t. Names that
// are not columns of t sort last.
func (d *directory) align(t Table) {
	pos := func(name string) int {
		if i := t.Index(name); i >= 0 {
			return i
		}
		return len(t.Columns)
	}
	slices.SortStableFunc(d.names, func(a, b string) int {
		return cmp.Compare(pos(a), pos(b))
	})
}

func (d *directory) remove(name string) {
	if i := slices.Index(d.names, name); i >= 0 {
		d.names = slices.Delete(d.names, i, i+1)
	}
}
