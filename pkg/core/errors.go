package core

import "fmt"

// NameRule identifies which naming rule a rejected binding name violated.
type NameRule string

// Naming rules enforced before a column is bound.
const (
	RuleReserved   NameRule = "reserved"
	RuleBuiltin    NameRule = "builtin"
	RuleInUse      NameRule = "in_use"
	RuleIdentifier NameRule = "identifier"
	RuleDuplicate  NameRule = "duplicate"
)

// Reason returns the human-readable form of the rule.
func (r NameRule) Reason() string {
	switch r {
	case RuleReserved:
		return "it is a reserved word"
	case RuleBuiltin:
		return "it is a builtin"
	case RuleInUse:
		return "that name is already in use"
	case RuleIdentifier:
		return "it is an invalid variable name"
	case RuleDuplicate:
		return "another column already has that name"
	default:
		return string(r)
	}
}

// InvalidNameError is returned when a name cannot be used as a fresh binding.
type InvalidNameError struct {
	Name string
	Rule NameRule
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("cannot name variable %q because %s", e.Name, e.Rule.Reason())
}

// UnboundVariableError is returned when an operation references a column
// that is not currently present and bound.
type UnboundVariableError struct {
	Name string
	Op   string
}

func (e *UnboundVariableError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("variable %q is not currently loaded", e.Name)
	}
	return fmt.Sprintf("cannot %s variable %q because it is not currently loaded", e.Op, e.Name)
}

// ColumnNotFoundError is returned by table store operations on an absent column.
type ColumnNotFoundError struct {
	Name  string
	Table string
}

func (e *ColumnNotFoundError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("column %q not found", e.Name)
	}
	return fmt.Sprintf("column %q not found in table %s", e.Name, e.Table)
}
