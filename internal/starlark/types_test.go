package starlark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestGoToStarlark(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantStr string
		wantErr bool
	}{
		{name: "string", input: "hello", wantStr: `"hello"`},
		{name: "int", input: 42, wantStr: "42"},
		{name: "int64", input: int64(123456789), wantStr: "123456789"},
		{name: "float64", input: 3.14, wantStr: "3.14"},
		{name: "bool", input: true, wantStr: "True"},
		{name: "nil", input: nil, wantStr: "None"},
		{name: "time", input: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), wantStr: `"2024-03-01T12:00:00Z"`},
		{name: "string slice", input: []string{"a", "b"}, wantStr: `["a", "b"]`},
		{name: "any slice with null", input: []any{"x", int64(1), nil}, wantStr: `["x", 1, None]`},
		{name: "map", input: map[string]any{"key": "value"}, wantStr: `{"key": "value"}`},
		{name: "starlark value passes through", input: starlark.MakeInt(7), wantStr: "7"},
		{name: "unsupported", input: struct{}{}, wantErr: true},
		{name: "unsupported in list", input: []any{1, struct{}{}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GoToStarlark(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStr, got.String())
		})
	}
}

func TestToGo(t *testing.T) {
	dict := starlark.NewDict(1)
	require.NoError(t, dict.SetKey(starlark.String("a"), starlark.MakeInt(1)))
	badDict := starlark.NewDict(1)
	require.NoError(t, badDict.SetKey(starlark.MakeInt(1), starlark.None))
	huge := starlark.MakeInt(1).Lsh(80)

	tests := []struct {
		name    string
		input   starlark.Value
		want    any
		wantErr bool
	}{
		{name: "string", input: starlark.String("hello"), want: "hello"},
		{name: "int", input: starlark.MakeInt(42), want: int64(42)},
		{name: "float", input: starlark.Float(3.14), want: 3.14},
		{name: "bool", input: starlark.False, want: false},
		{name: "none", input: starlark.None, want: nil},
		{name: "list", input: starlark.NewList([]starlark.Value{starlark.MakeInt(1), starlark.String("b")}), want: []any{int64(1), "b"}},
		{name: "tuple", input: starlark.Tuple{starlark.True}, want: []any{true}},
		{name: "dict", input: dict, want: map[string]any{"a": int64(1)}},
		{name: "dict with int key", input: badDict, wantErr: true},
		{name: "int out of range", input: huge, wantErr: true},
		{name: "function", input: starlark.NewBuiltin("f", nil), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToGo(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
