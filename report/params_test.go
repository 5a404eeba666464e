package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformParameters_CoercionPolicy(t *testing.T) {
	when := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	out, err := TransformParameters(map[string]any{
		"a": 123,
		"b": when,
		"c": []any{"x", "y"},
		"d": map[string]any{"k": "v"},
	})
	require.NoError(t, err)

	assert.Equal(t, "123", out["a"])
	assert.Equal(t, "2023-01-01T00:00:00.000Z", out["b"])
	assert.Equal(t, []string{"x", "y"}, out["c"])
	assert.Equal(t, `{"k":"v"}`, out["d"])
}

func TestTransformParameters_Scalars(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string unchanged", "hello", "hello"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"float", 12.5, "12.5"},
		{"float whole", 3.0, "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := TransformParameters(map[string]any{"p": tt.value})
			require.NoError(t, err)
			assert.Equal(t, tt.want, out["p"])
		})
	}
}

func TestTransformParameters_TimeIsUTCWithMillis(t *testing.T) {
	// Non-UTC input normalizes to the UTC designator
	loc := time.FixedZone("CET", 3600)
	when := time.Date(2024, 6, 15, 14, 30, 45, 123_000_000, loc)

	out, err := TransformParameters(map[string]any{"since": when})
	require.NoError(t, err)
	assert.Equal(t, "2024-06-15T13:30:45.123Z", out["since"])
}

func TestTransformParameters_NilValuesOmitted(t *testing.T) {
	var typedNil map[string]any

	out, err := TransformParameters(map[string]any{
		"keep":     "yes",
		"dropped":  nil,
		"typedNil": typedNil,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"keep": "yes"}, out)
}

func TestTransformParameters_ArraysKeepShape(t *testing.T) {
	out, err := TransformParameters(map[string]any{
		"regions": []string{"north", "south"},
		"ids":     []any{1, 2, 3},
		"mixed":   []any{"a", 1, true, nil},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"north", "south"}, out["regions"])
	assert.Equal(t, []string{"1", "2", "3"}, out["ids"])
	// nil elements drop out; the rest coerce to strings
	assert.Equal(t, []string{"a", "1", "true"}, out["mixed"])
}

func TestTransformParameters_EmptyAndNilInput(t *testing.T) {
	out, err := TransformParameters(nil)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = TransformParameters(map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestTransformParameters_CircularStructureFails(t *testing.T) {
	circular := map[string]any{}
	circular["self"] = circular

	_, err := TransformParameters(map[string]any{"bad": circular})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestTransformParameters_Pure(t *testing.T) {
	in := map[string]any{"n": 1, "skip": nil}

	out1, err := TransformParameters(in)
	require.NoError(t, err)
	out2, err := TransformParameters(in)
	require.NoError(t, err)

	assert.Equal(t, out1, out2)
	// Input untouched
	assert.Equal(t, map[string]any{"n": 1, "skip": nil}, in)
}
