// Package coerce converts loosely typed values received at the API boundary
// into the typed values entity fields expect.
package coerce

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// ValueKind tags the variant held by a Value
type ValueKind int

const (
	// Absent is the zero Value: the field was not supplied at all
	Absent ValueKind = iota
	Null
	String
	Number
	Bool
	Array
	Object
)

// String returns the string representation of the value kind
func (k ValueKind) String() string {
	switch k {
	case Absent:
		return "absent"
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a loosely typed value as it arrives from JSON or a query string.
// Numbers keep their textual form so that 64-bit integers and decimals
// survive without float rounding.
type Value struct {
	kind ValueKind
	str  string
	b    bool
	arr  []Value
	obj  map[string]Value
}

// NullValue returns an explicit null
func NullValue() Value {
	return Value{kind: Null}
}

// StringValue wraps a string
func StringValue(s string) Value {
	return Value{kind: String, str: s}
}

// NumberValue wraps the textual form of a number, e.g. "42" or "19.99"
func NumberValue(n string) Value {
	return Value{kind: Number, str: n}
}

// IntValue wraps an integer
func IntValue(i int64) Value {
	return Value{kind: Number, str: strconv.FormatInt(i, 10)}
}

// FloatValue wraps a float
func FloatValue(f float64) Value {
	return Value{kind: Number, str: strconv.FormatFloat(f, 'f', -1, 64)}
}

// BoolValue wraps a boolean
func BoolValue(b bool) Value {
	return Value{kind: Bool, b: b}
}

// ArrayValue wraps a list of values
func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: Array, arr: items}
}

// ObjectValue wraps a structured value such as a date object
func ObjectValue(fields map[string]Value) Value {
	return Value{kind: Object, obj: fields}
}

// Of converts a plain Go value into a Value. Supported inputs are nil,
// strings, bools, all integer and float kinds, json.Number, slices and
// string-keyed maps of those, and Values themselves.
func Of(v any) Value {
	switch x := v.(type) {
	case nil:
		return NullValue()
	case Value:
		return x
	case string:
		return StringValue(x)
	case bool:
		return BoolValue(x)
	case json.Number:
		return NumberValue(x.String())
	case float64:
		return FloatValue(x)
	case float32:
		return FloatValue(float64(x))
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = Of(item)
		}
		return ArrayValue(items...)
	case map[string]any:
		fields := make(map[string]Value, len(x))
		for k, item := range x {
			fields[k] = Of(item)
		}
		return ObjectValue(fields)
	case encoding.TextMarshaler:
		// time.Time, uuid.UUID, decimal.Decimal
		text, err := x.MarshalText()
		if err == nil {
			return StringValue(string(text))
		}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IntValue(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return NumberValue(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = Of(rv.Index(i).Interface())
		}
		return ArrayValue(items...)
	case reflect.Pointer:
		if rv.IsNil() {
			return NullValue()
		}
		return Of(rv.Elem().Interface())
	}

	return StringValue(fmt.Sprint(v))
}

// Kind returns the variant tag
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsMissing reports whether the value is null or absent
func (v Value) IsMissing() bool {
	return v.kind == Null || v.kind == Absent
}

// IsArray reports whether the value is an array
func (v Value) IsArray() bool {
	return v.kind == Array
}

// Items returns the elements of an array value
func (v Value) Items() []Value {
	return v.arr
}

// Field returns a member of an object value
func (v Value) Field(name string) (Value, bool) {
	f, ok := v.obj[name]
	return f, ok
}

// Text returns the raw text of a string or number value
func (v Value) Text() string {
	return v.str
}

// Interface returns the value as a plain Go value: nil, string, bool,
// json.Number, []any or map[string]any.
func (v Value) Interface() any {
	switch v.kind {
	case String:
		return v.str
	case Number:
		return json.Number(v.str)
	case Bool:
		return v.b
	case Array:
		items := make([]any, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.Interface()
		}
		return items
	case Object:
		fields := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			fields[k] = item.Interface()
		}
		return fields
	}
	return nil
}

// String renders the value for diagnostics
func (v Value) String() string {
	switch v.kind {
	case Absent:
		return "<absent>"
	case Null:
		return "null"
	case String:
		return strconv.Quote(v.str)
	case Number:
		return v.str
	case Bool:
		return strconv.FormatBool(v.b)
	case Array:
		parts := make([]string, len(v.arr))
		for i, item := range v.arr {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case Object:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.obj[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}

// UnmarshalJSON decodes any JSON value. A JSON null becomes Null; a field
// missing from the enclosing object leaves the Value Absent.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	*v = Of(raw)
	return nil
}

// MarshalJSON encodes the value; Absent encodes as null
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
