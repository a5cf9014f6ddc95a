package types

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueKind identifies the variant held by a Value.
type ValueKind int

const (
	// KindNull is the zero Value.
	KindNull ValueKind = iota
	// KindString holds a string.
	KindString
	// KindNumber holds a float64.
	KindNumber
	// KindBool holds a bool.
	KindBool
	// KindArray holds an ordered list of Values.
	KindArray
	// KindObject holds a string-keyed map of Values.
	KindObject
)

// String returns a human-readable kind name.
func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a closed tagged representation of a JSON-shaped value.
// Tool-call arguments and provider options use it instead of raw any so that
// canonical encoding (and therefore request fingerprinting) stays
// deterministic and total.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	arr  []Value
	obj  map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{} }

// String creates a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool creates a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Array creates an array Value.
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

// Object creates an object Value. The map is used directly, not copied.
func Object(fields map[string]Value) Value { return Value{kind: KindObject, obj: fields} }

// Kind returns the variant this Value holds.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the Value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string payload; ok is false for non-string values.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload; ok is false for non-number values.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Boolean returns the bool payload; ok is false for non-bool values.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Items returns the array payload; ok is false for non-array values.
func (v Value) Items() ([]Value, bool) { return v.arr, v.kind == KindArray }

// Fields returns the object payload; ok is false for non-object values.
func (v Value) Fields() (map[string]Value, bool) { return v.obj, v.kind == KindObject }

// Field looks up a key on an object Value.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[key]
	return f, ok
}

// MarshalJSON emits standard JSON for the Value.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindArray:
		if v.arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.arr)
	case KindObject:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.obj)
	default:
		return nil, fmt.Errorf("invalid value kind %d", v.kind)
	}
}

// UnmarshalJSON parses any JSON value into the tagged representation.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromAny converts a decoded JSON value (any) into a Value.
func FromAny(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case float64:
		return Number(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case []any:
		items := make([]Value, 0, len(x))
		for _, item := range x {
			val, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			items = append(items, val)
		}
		return Array(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(x))
		for key, item := range x {
			val, err := FromAny(item)
			if err != nil {
				return Value{}, err
			}
			fields[key] = val
		}
		return Object(fields), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// ParseValue parses a JSON document into a Value.
func ParseValue(data []byte) (Value, error) {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return Value{}, err
	}
	return v, nil
}

// Canonical writes a deterministic encoding of the Value to b and returns the
// result. Object keys are emitted in sorted order and numbers in a fixed
// format, so two semantically equal Values always encode identically.
func (v Value) Canonical(b []byte) []byte {
	switch v.kind {
	case KindNull:
		return append(b, "null"...)
	case KindString:
		b = append(b, 's', ':')
		b = strconv.AppendQuote(b, v.str)
		return b
	case KindNumber:
		b = append(b, 'n', ':')
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1e15 {
			return strconv.AppendInt(b, int64(v.num), 10)
		}
		return strconv.AppendFloat(b, v.num, 'g', 17, 64)
	case KindBool:
		if v.b {
			return append(b, "b:true"...)
		}
		return append(b, "b:false"...)
	case KindArray:
		b = append(b, '[')
		for i, item := range v.arr {
			if i > 0 {
				b = append(b, ',')
			}
			b = item.Canonical(b)
		}
		return append(b, ']')
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for key := range v.obj {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		b = append(b, '{')
		for i, key := range keys {
			if i > 0 {
				b = append(b, ',')
			}
			b = strconv.AppendQuote(b, key)
			b = append(b, ':')
			b = v.obj[key].Canonical(b)
		}
		return append(b, '}')
	default:
		return b
	}
}

// Equal reports deep equality of two Values.
func (v Value) Equal(other Value) bool {
	return string(v.Canonical(nil)) == string(other.Canonical(nil))
}
