package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("test")
	var _ IRValue = IRInt(42)
	var _ IRValue = IRFloat(0.5)
	var _ IRValue = IRBool(true)
	var _ IRValue = IRArray{IRString("a"), IRInt(1)}
	var _ IRValue = IRObject{"key": IRString("value")}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra":  IRString("z"),
		"apple":  IRString("a"),
		"banana": IRString("b"),
	}

	assert.Equal(t, []string{"apple", "banana", "zebra"}, obj.SortedKeys())
}

func TestIRObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := IRObject{
		"a":  IRInt(1),
		"A":  IRInt(2),
		"aa": IRInt(3),
		"aA": IRInt(4),
		"Aa": IRInt(5),
		"AA": IRInt(6),
	}

	// 'A' = 65, 'a' = 97
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestCompareKeysRFC8785(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"aa", "a", 1},
		{"a", "aa", -1},
		{"A", "a", -1},
		{"", "", 0},
		{"", "a", -1},
		// U+FF61 is a single UTF-16 unit; U+1F600 is a surrogate pair
		// starting at 0xD83D, so it sorts first despite the larger rune.
		{"\U0001F600", "｡", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			result := compareKeysRFC8785(tt.a, tt.b)
			switch {
			case tt.expected < 0:
				assert.Less(t, result, 0)
			case tt.expected > 0:
				assert.Greater(t, result, 0)
			default:
				assert.Equal(t, 0, result)
			}
		})
	}
}

func TestUnmarshalIRValue_Numbers(t *testing.T) {
	tests := []struct {
		input string
		want  IRValue
	}{
		{`42`, IRInt(42)},
		{`-7`, IRInt(-7)},
		{`9223372036854775807`, IRInt(9223372036854775807)},
		{`3.25`, IRFloat(3.25)},
		{`1e3`, IRFloat(1000)},
		{`2.0`, IRFloat(2)},
		{`18446744073709551616`, IRFloat(18446744073709551616)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := UnmarshalIRValue([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnmarshalIRValue_Structures(t *testing.T) {
	got, err := UnmarshalIRValue([]byte(`{"a": [1, "two", true, null], "b": {"c": 0.5}}`))
	require.NoError(t, err)

	want := IRObject{
		"a": IRArray{IRInt(1), IRString("two"), IRBool(true), IRNull{}},
		"b": IRObject{"c": IRFloat(0.5)},
	}
	assert.Equal(t, want, got)
}

func TestUnmarshalIRValue_RejectsTrailingData(t *testing.T) {
	_, err := UnmarshalIRValue([]byte(`{} {}`))
	assert.Error(t, err)
}

func TestIRObjectUnmarshalJSON_RejectsNonObject(t *testing.T) {
	var obj IRObject
	err := json.Unmarshal([]byte(`[1,2]`), &obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected JSON object")
}

func TestIRNullInObject(t *testing.T) {
	obj := IRObject{
		"present": IRString("value"),
		"missing": IRNull{},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"missing":null,"present":"value"}`, string(data))

	var decoded IRObject
	require.NoError(t, json.Unmarshal(data, &decoded))

	_, isNull := decoded["missing"].(IRNull)
	assert.True(t, isNull, "expected IRNull, got %T", decoded["missing"])
}

func TestFromGo_YAMLShapes(t *testing.T) {
	// yaml.v3 hands back int, float64 and map[string]any
	got, err := FromGo(map[string]any{
		"units":  64,
		"rate":   0.01,
		"nested": map[any]any{"k": "v"},
		"list":   []any{1, nil},
	})
	require.NoError(t, err)

	want := IRObject{
		"units":  IRInt(64),
		"rate":   IRFloat(0.01),
		"nested": IRObject{"k": IRString("v")},
		"list":   IRArray{IRInt(1), IRNull{}},
	}
	assert.Equal(t, want, got)
}

func TestFromGo_RejectsNonStringKeys(t *testing.T) {
	_, err := FromGo(map[any]any{1: "x"})
	assert.Error(t, err)
}

func TestToGo_RoundTrip(t *testing.T) {
	v := IRObject{
		"s": IRString("x"),
		"n": IRInt(3),
		"f": IRFloat(1.5),
		"a": IRArray{IRBool(false), IRNull{}},
	}

	back, err := FromGo(ToGo(v))
	require.NoError(t, err)
	assert.Equal(t, v, back)
}

func TestTypeName(t *testing.T) {
	assert.Equal(t, "null", TypeName(nil))
	assert.Equal(t, "null", TypeName(IRNull{}))
	assert.Equal(t, "number", TypeName(IRInt(1)))
	assert.Equal(t, "number", TypeName(IRFloat(1.5)))
	assert.Equal(t, "object", TypeName(IRObject{}))
	assert.Equal(t, "array", TypeName(IRArray{}))
}
