// Package evaluator implements the Kestrel tree-walking interpreter.
package evaluator

import (
	"strconv"

	"github.com/kestrel-lang/kestrel/pkg/ast"
)

// Type is the runtime type tag of a Value.
type Type int

const (
	TypeInt Type = iota
	TypeFloat
	TypeString
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	}
	return "unknown"
}

// Value is the interface for all Kestrel runtime values.
// Use the sealed marker method to restrict implementations to this package.
// String returns the canonical text that print and string() produce.
type Value interface {
	Type() Type
	String() string
	value() // sealed marker
}

// Int is a 32-bit signed integer. Arithmetic wraps on overflow.
type Int struct {
	Value int32
}

func (Int) value()           {}
func (Int) Type() Type       { return TypeInt }
func (v Int) String() string { return strconv.FormatInt(int64(v.Value), 10) }

// Float is a 32-bit float.
type Float struct {
	Value float32
}

func (Float) value()           {}
func (Float) Type() Type       { return TypeFloat }
func (v Float) String() string { return ast.FormatFloat(v.Value) }

// String is a byte string.
type String struct {
	Value string
}

func (String) value()           {}
func (String) Type() Type       { return TypeString }
func (v String) String() string { return v.Value }

// Bool is a boolean.
type Bool struct {
	Value bool
}

func (Bool) value()           {}
func (Bool) Type() Type       { return TypeBool }
func (v Bool) String() string { return strconv.FormatBool(v.Value) }

// NewInt creates an integer value.
func NewInt(n int32) Value {
	return Int{Value: n}
}

// NewFloat creates a float value.
func NewFloat(f float32) Value {
	return Float{Value: f}
}

// NewString creates a string value.
func NewString(s string) Value {
	return String{Value: s}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Bool{Value: b}
}

// Equal reports whether a and b have the same type and the same value.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	switch av := a.(type) {
	case Int:
		return av.Value == b.(Int).Value
	case Float:
		return av.Value == b.(Float).Value
	case String:
		return av.Value == b.(String).Value
	case Bool:
		return av.Value == b.(Bool).Value
	}
	return false
}

// Truthy converts a value to a boolean for loop conditions: numbers are true
// when nonzero, booleans are themselves and strings are always false.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case Int:
		return val.Value != 0
	case Float:
		return val.Value != 0
	case Bool:
		return val.Value
	}
	return false
}

func typeNameOf(v Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Type().String()
}
