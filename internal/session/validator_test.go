package session

import (
	"testing"

	"github.com/leapstack-labs/unitable/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	scope := NewMapScope("read_csv")
	scope.Set("total", 42)

	tests := []struct {
		name     string
		wantRule core.NameRule
	}{
		{name: "tip"},
		{name: "_private"},
		{name: "x1"},
		{name: "class", wantRule: core.RuleReserved},
		{name: "for", wantRule: core.RuleReserved},
		{name: "lambda", wantRule: core.RuleReserved},
		{name: "rowid", wantRule: core.RuleReserved},
		{name: "RowID", wantRule: core.RuleReserved},
		{name: "__ord", wantRule: core.RuleReserved},
		{name: "rowids"},
		{name: "len", wantRule: core.RuleBuiltin},
		{name: "True", wantRule: core.RuleBuiltin},
		{name: "None", wantRule: core.RuleBuiltin},
		{name: "read_csv", wantRule: core.RuleBuiltin},
		{name: "total", wantRule: core.RuleInUse},
		{name: "1a", wantRule: core.RuleIdentifier},
		{name: "a b", wantRule: core.RuleIdentifier},
		{name: "a.b", wantRule: core.RuleIdentifier},
		{name: "", wantRule: core.RuleIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(scope, tt.name)
			if tt.wantRule == "" {
				assert.NoError(t, err)
				return
			}
			var invalid *core.InvalidNameError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tt.wantRule, invalid.Rule)
			assert.Equal(t, tt.name, invalid.Name)
		})
	}
}

func TestValidate_RuleOrder(t *testing.T) {
	// "class" is also in use; the reserved rule wins.
	scope := NewMapScope()
	scope.Set("class", 1)
	var invalid *core.InvalidNameError
	require.ErrorAs(t, Validate(scope, "class"), &invalid)
	assert.Equal(t, core.RuleReserved, invalid.Rule)

	// "len" is builtin and in use; the builtin rule wins.
	scope.Set("len", 1)
	require.ErrorAs(t, Validate(scope, "len"), &invalid)
	assert.Equal(t, core.RuleBuiltin, invalid.Rule)
}

func TestValidate_NilScope(t *testing.T) {
	assert.NoError(t, Validate(nil, "tip"))
	assert.Error(t, Validate(nil, "if"))
}

func TestInvalidNameError_Message(t *testing.T) {
	err := Validate(nil, "for")
	assert.EqualError(t, err, `cannot name variable "for" because it is a reserved word`)
}

func TestMapScope(t *testing.T) {
	s := NewMapScope("print")
	assert.True(t, s.IsBuiltin("print"))
	assert.False(t, s.IsBuiltin("tip"))

	require.NoError(t, s.Bind("b", 2))
	s.Set("a", 1)
	assert.Equal(t, []string{"a", "b"}, s.Names())

	v, ok := s.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	s.Unbind("a")
	s.Unbind("missing")
	_, ok = s.Lookup("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, s.Names())
}
