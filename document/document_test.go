package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseObjectKeepsOrderAndKinds(t *testing.T) {
	v, err := Parse([]byte(`{"b":1,"a":"x","c":[true,null,2.5],"d":{"e":false}}`))
	require.NoError(t, err)

	obj, ok := v.AsObject()
	require.True(t, ok)
	require.Equal(t, []string{"b", "a", "c", "d"}, obj.Keys())

	b, _ := obj.Lookup("b")
	require.Equal(t, KindInt, b.Kind())
	c, _ := obj.Lookup("c")
	elems, ok := c.AsArray()
	require.True(t, ok)
	require.Len(t, elems, 3)
	require.Equal(t, KindBool, elems[0].Kind())
	require.True(t, elems[1].IsNull())
	require.Equal(t, KindFloat, elems[2].Kind())
	d, _ := obj.Lookup("d")
	require.Equal(t, KindObject, d.Kind())
}

func TestParseReturnsPartialObjectOnSyntaxError(t *testing.T) {
	v, err := Parse([]byte(`{"hostname":"hub","ce_pin":16,"device_ids":[1,2`))
	require.Error(t, err)

	obj, ok := v.AsObject()
	require.True(t, ok)
	require.True(t, obj.Has("hostname"))
	require.True(t, obj.Has("ce_pin"))
	require.False(t, obj.Has("device_ids"))
}

func TestParseEmptyInput(t *testing.T) {
	v, err := Parse(nil)
	require.ErrorIs(t, err, ErrEmpty)
	require.True(t, v.IsNull())
}

func TestParseRejectsTrailingData(t *testing.T) {
	v, err := Parse([]byte(`{"a":1} {"b":2}`))
	require.Error(t, err)
	obj, ok := v.AsObject()
	require.True(t, ok)
	require.True(t, obj.Has("a"))
}

func TestAsUintRespectsWidth(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		bits  int
		want  uint64
		ok    bool
	}{
		{name: "fits", value: Int(255), bits: 8, want: 255, ok: true},
		{name: "overflow", value: Int(256), bits: 8},
		{name: "negative", value: Int(-1), bits: 16},
		{name: "whole float", value: Float(42), bits: 16, want: 42, ok: true},
		{name: "fraction", value: Float(4.2), bits: 16},
		{name: "hex string", value: String("0x1F"), bits: 16, want: 31, ok: true},
		{name: "upper hex string", value: String("0X1f"), bits: 16, want: 31, ok: true},
		{name: "decimal string", value: String(" 1883 "), bits: 16, want: 1883, ok: true},
		{name: "leading zero is decimal", value: String("010"), bits: 16, want: 10, ok: true},
		{name: "leading zeros", value: String("017"), bits: 16, want: 17, ok: true},
		{name: "digit separators", value: String("1_000"), bits: 16},
		{name: "binary prefix", value: String("0b11"), bits: 16},
		{name: "octal prefix", value: String("0o17"), bits: 16},
		{name: "bare hex prefix", value: String("0x"), bits: 16},
		{name: "word", value: String("abc"), bits: 16},
		{name: "bool", value: Bool(true), bits: 8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.value.AsUint(tc.bits)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestAsBoolConversions(t *testing.T) {
	b, ok := String("TRUE").AsBool()
	require.True(t, ok)
	require.True(t, b)

	b, ok = Int(0).AsBool()
	require.True(t, ok)
	require.False(t, b)

	_, ok = String("yes").AsBool()
	require.False(t, ok)
}

func TestMarshalCompactAndPretty(t *testing.T) {
	obj := NewObject()
	obj.Set("name", String("a<b"))
	obj.Set("ids", Array(Int(1), Int(2)))
	obj.Set("empty", Array())
	v := ObjectValue(obj)

	require.Equal(t, `{"name":"a<b","ids":[1,2],"empty":[]}`, string(Marshal(v, false)))
	require.Equal(t, "{\n  \"name\": \"a<b\",\n  \"ids\": [\n    1,\n    2\n  ],\n  \"empty\": []\n}", string(Marshal(v, true)))
}

func TestMarshalParseRoundTrip(t *testing.T) {
	src := `{"s":"x\"y","i":-3,"f":0.5,"b":true,"n":null,"a":[[1,2,3]],"o":{}}`
	v, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Equal(t, src, string(Marshal(v, false)))
}

func TestObjectSetReplacesInPlace(t *testing.T) {
	obj := NewObject()
	obj.Set("a", Int(1))
	obj.Set("b", Int(2))
	obj.Set("a", Int(3))
	require.Equal(t, []string{"a", "b"}, obj.Keys())
	a, _ := obj.Lookup("a")
	got, _ := a.AsInt()
	require.Equal(t, int64(3), got)

	obj.Delete("a")
	require.Equal(t, []string{"b"}, obj.Keys())
	require.False(t, obj.Has("a"))
}

func TestInterfaceConvertsToPlainValues(t *testing.T) {
	v, err := Parse([]byte(`{"ids":[1,2],"name":"hub"}`))
	require.NoError(t, err)
	require.Equal(t, map[string]any{"ids": []any{1, 2}, "name": "hub"}, v.Interface())
}
