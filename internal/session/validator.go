package session

import (
	"strings"

	"github.com/leapstack-labs/unitable/pkg/core"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// reservedWords are the Starlark keywords plus the words Starlark reserves
// for future use. None of them can name a binding.
var reservedWords = map[string]struct{}{
	"and": {}, "break": {}, "continue": {}, "def": {}, "elif": {}, "else": {},
	"for": {}, "if": {}, "in": {}, "lambda": {}, "load": {}, "not": {},
	"or": {}, "pass": {}, "return": {}, "while": {},

	"as": {}, "assert": {}, "async": {}, "await": {}, "class": {}, "del": {},
	"except": {}, "finally": {}, "from": {}, "global": {}, "import": {},
	"is": {}, "nonlocal": {}, "raise": {}, "try": {}, "with": {}, "yield": {},
}

// engineNames are pseudo and helper columns the tabular engine uses to keep
// row order. A column with one of these names, in any case, would shadow
// them, so they are reserved too.
var engineNames = map[string]struct{}{
	"rowid": {}, "__l_ord": {}, "__r_ord": {}, "__part": {}, "__ord": {},
}

var identOptions = &syntax.FileOptions{}

// IsReserved reports whether name is a reserved word or an engine column.
func IsReserved(name string) bool {
	if _, ok := reservedWords[name]; ok {
		return true
	}
	_, ok := engineNames[strings.ToLower(name)]
	return ok
}

// IsIdentifier reports whether name parses as a bare identifier.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	e, err := identOptions.ParseExpr("", name, 0)
	if err != nil {
		return false
	}
	id, ok := e.(*syntax.Ident)
	return ok && id.Name == name
}

// Validate checks whether name can be used as a fresh binding in scope.
// Rules are checked in order: reserved word, builtin, already in use,
// legal identifier. The first violation is returned as *core.InvalidNameError.
func Validate(scope Scope, name string) error {
	switch {
	case IsReserved(name):
		return &core.InvalidNameError{Name: name, Rule: core.RuleReserved}
	case starlark.Universe.Has(name) || (scope != nil && scope.IsBuiltin(name)):
		return &core.InvalidNameError{Name: name, Rule: core.RuleBuiltin}
	}
	if scope != nil {
		if _, ok := scope.Lookup(name); ok {
			return &core.InvalidNameError{Name: name, Rule: core.RuleInUse}
		}
	}
	if !IsIdentifier(name) {
		return &core.InvalidNameError{Name: name, Rule: core.RuleIdentifier}
	}
	return nil
}
