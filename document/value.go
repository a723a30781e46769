// Package document provides the generic JSON-like tree that settings are
// patched from and serialized to.
//
// A Value is a tagged union over null, bool, integer, float, string, array and
// object. Lookups never panic: asking a value for the wrong kind reports ok ==
// false so callers can keep whatever they had before.
package document

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	// KindNull is the zero Value and the JSON null literal.
	KindNull Kind = iota
	// KindBool holds true or false.
	KindBool
	// KindInt holds integral numbers that fit into an int64.
	KindInt
	// KindFloat holds every other number.
	KindFloat
	// KindString holds UTF-8 text.
	KindString
	// KindArray holds an ordered list of values.
	KindArray
	// KindObject holds an insertion ordered key/value map.
	KindObject
)

var kindNames = [...]string{"null", "bool", "integer", "float", "string", "array", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a node of a document tree. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  *Object
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps a signed integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Uint wraps an unsigned integer. Values beyond the int64 range become floats.
func Uint(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Value{kind: KindInt, i: int64(u)}
}

// Float wraps a floating point number.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array wraps the provided elements. A nil slice yields an empty array.
func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: KindArray, arr: elems}
}

// ObjectValue wraps an object. A nil object yields an empty object.
func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

// Kind reports the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsObject returns the object held by v.
func (v Value) AsObject() (*Object, bool) {
	if v.kind != KindObject || v.obj == nil {
		return nil, false
	}
	return v.obj, true
}

// AsArray returns the elements held by v. The slice is shared with v.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// AsString returns the string held by v. Other kinds are not stringified.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsBool converts v to a boolean. Integers convert by comparing against zero
// and the strings "true" and "false" are accepted in any case.
func (v Value) AsBool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindInt:
		return v.i != 0, true
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// AsInt converts v to an int64. Whole floats and numeric strings convert.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f != math.Trunc(v.f) || v.f < math.MinInt64 || v.f > math.MaxInt64 {
			return 0, false
		}
		return int64(v.f), true
	case KindString:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v.s), 0, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}

// AsUint converts v to an unsigned integer that fits into bits (8, 16, 32 or
// 64). Numeric strings are decimal unless prefixed with 0x, so "0x1F" is 31
// and "017" is 17. Negative or out of range numbers report ok == false.
func (v Value) AsUint(bits int) (uint64, bool) {
	if bits <= 0 || bits > 64 {
		bits = 64
	}
	limit := uint64(math.MaxUint64)
	if bits < 64 {
		limit = 1<<uint(bits) - 1
	}
	var out uint64
	switch v.kind {
	case KindInt:
		if v.i < 0 {
			return 0, false
		}
		out = uint64(v.i)
	case KindFloat:
		if v.f < 0 || v.f != math.Trunc(v.f) || v.f >= math.MaxUint64 {
			return 0, false
		}
		out = uint64(v.f)
	case KindString:
		parsed, err := parseUint(strings.TrimSpace(v.s), bits)
		if err != nil {
			return 0, false
		}
		out = parsed
	default:
		return 0, false
	}
	if out > limit {
		return 0, false
	}
	return out, true
}

func parseUint(s string, bits int) (uint64, error) {
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return strconv.ParseUint(s[2:], 16, bits)
	}
	return strconv.ParseUint(s, 10, bits)
}

// AsFloat converts numbers to float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Interface converts v into plain Go values: nil, bool, int, float64, string,
// []any and map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return int(v.i)
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, elem := range v.arr {
			out[i] = elem.Interface()
		}
		return out
	case KindObject:
		if v.obj == nil {
			return map[string]any{}
		}
		out := make(map[string]any, v.obj.Len())
		for _, key := range v.obj.keys {
			out[key] = v.obj.vals[key].Interface()
		}
		return out
	}
	return nil
}

// Object is a string keyed map that remembers insertion order.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject returns an empty object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Set stores value under key. Replacing an existing key keeps its position.
func (o *Object) Set(key string, value Value) {
	if o.vals == nil {
		o.vals = make(map[string]Value)
	}
	if _, exists := o.vals[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = value
}

// Lookup returns the value stored under key and whether it was present.
func (o *Object) Lookup(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.vals[key]
	return v, ok
}

// Has reports whether key is present, even when its value is null.
func (o *Object) Has(key string) bool {
	_, ok := o.Lookup(key)
	return ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Delete removes key if present.
func (o *Object) Delete(key string) {
	if o == nil {
		return
	}
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}
