// Package types defines the runtime values of the Lox interpreter.
// It implements the Lox type system: nil, bool, number, string, and
// reference objects (callables and instances).
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Kind represents the dynamic type of a Lox value.
type Kind int

const (
	KindNil      Kind = iota
	KindBool          // bool
	KindNumber        // float64
	KindString        // string
	KindCallable      // function, native or class
	KindInstance      // class instance
)

// String returns the kind name used in logs and API payloads.
func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindCallable:
		return "callable"
	case KindInstance:
		return "instance"
	default:
		return "unknown"
	}
}

// Object is a heap value with reference identity. The runtime package
// provides the concrete implementations.
type Object interface {
	Kind() Kind // KindCallable or KindInstance
	String() string
}

// Value is a Lox runtime value. It uses a tagged union so that numbers,
// booleans and strings are stored without allocation.
type Value struct {
	kind Kind
	b    bool
	num  float64
	str  string
	obj  Object
}

// Nil is the singleton nil value. The zero Value is also nil.
var Nil = Value{kind: KindNil}

// NewBool creates a boolean value.
func NewBool(v bool) Value {
	return Value{kind: KindBool, b: v}
}

// NewNumber creates a number value.
func NewNumber(v float64) Value {
	return Value{kind: KindNumber, num: v}
}

// NewString creates a string value.
func NewString(v string) Value {
	return Value{kind: KindString, str: v}
}

// NewObject wraps a callable or instance. A nil object yields Nil.
func NewObject(o Object) Value {
	if o == nil {
		return Nil
	}
	return Value{kind: o.Kind(), obj: o}
}

// FromLiteral converts a scanner literal (float64, string, bool or nil)
// into a Value.
func FromLiteral(lit any) Value {
	switch x := lit.(type) {
	case nil:
		return Nil
	case bool:
		return NewBool(x)
	case float64:
		return NewNumber(x)
	case string:
		return NewString(x)
	default:
		panic(fmt.Sprintf("types: unsupported literal %T", lit))
	}
}

// Kind returns the value's dynamic type.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNil returns true if the value is nil.
func (v Value) IsNil() bool {
	return v.kind == KindNil
}

// AsBool returns the boolean value. Panics if not a bool.
func (v Value) AsBool() bool {
	if v.kind != KindBool {
		panic(fmt.Sprintf("AsBool called on %s", v.kind))
	}
	return v.b
}

// AsNumber returns the numeric value and whether v is a number.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsString returns the string value. Panics if not a string.
func (v Value) AsString() string {
	if v.kind != KindString {
		panic(fmt.Sprintf("AsString called on %s", v.kind))
	}
	return v.str
}

// AsObject returns the wrapped object, or nil for primitive values.
func (v Value) AsObject() Object {
	return v.obj
}

// Truthy returns the truthiness of a value.
// Only false and nil are falsy; 0 and the empty string are truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// Equal reports whether two values are equal without any coercion.
// Values of different kinds are never equal; objects compare by identity.
// NaN is not equal to itself.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.num == other.num
	case KindString:
		return v.str == other.str
	default:
		return v.obj == other.obj
	}
}

// String returns the text written by the print statement.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return FormatNumber(v.num)
	case KindString:
		return v.str
	default:
		return v.obj.String()
	}
}

// FormatNumber renders integral numbers with one decimal place (3 as
// "3.0") and everything else in the shortest form that round-trips.
// Exponent notation is used only for very large or very small magnitudes.
func FormatNumber(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	case f == math.Trunc(f) && math.Abs(f) < 1e16:
		return strconv.FormatFloat(f, 'f', 1, 64)
	case math.Abs(f) >= 1e-4 && math.Abs(f) < 1e16:
		return strconv.FormatFloat(f, 'f', -1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}

// MarshalJSON encodes primitives as their JSON counterparts and objects as
// their printed form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNil:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		if math.IsInf(v.num, 0) || math.IsNaN(v.num) {
			return json.Marshal(FormatNumber(v.num))
		}
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	default:
		return json.Marshal(v.obj.String())
	}
}
