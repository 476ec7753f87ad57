// Package mixin implements composable behavioral mixins for a dynamic class
// system: before/after hook chaining around method dispatch, and a
// per-instance stack of hierarchical states that overrides method resolution.
package mixin

import (
	"fmt"
	"strconv"
)

// ValueType represents the type of a runtime value.
type ValueType int

const (
	TypeNil ValueType = iota
	TypeInt
	TypeFloat
	TypeString
	TypeBool
	TypeInstance
	TypeArray
	TypeError
)

// Value is the Go representation of a runtime value passed to and returned
// from methods and hooks.
type Value struct {
	Type        ValueType
	IntVal      int64
	FloatVal    float64
	StringVal   string
	InstanceVal *Instance
	ArrayVal    []Value
	ErrorMsg    string
}

// NilValue returns a nil value.
func NilValue() Value {
	return Value{Type: TypeNil}
}

// IntValue creates an integer value.
func IntValue(n int64) Value {
	return Value{Type: TypeInt, IntVal: n}
}

// FloatValue creates a float value.
func FloatValue(f float64) Value {
	return Value{Type: TypeFloat, FloatVal: f}
}

// StringValue creates a string value.
func StringValue(s string) Value {
	return Value{Type: TypeString, StringVal: s}
}

// BoolValue creates a boolean value.
func BoolValue(b bool) Value {
	if b {
		return Value{Type: TypeBool, IntVal: 1}
	}
	return Value{Type: TypeBool, IntVal: 0}
}

// False returns the halt sentinel: a hook or method returning this value
// stops the surrounding call chain. It is ordinary control flow, never an
// error.
func False() Value {
	return BoolValue(false)
}

// True returns the boolean true value.
func True() Value {
	return BoolValue(true)
}

// InstanceValue creates an instance reference value.
func InstanceValue(inst *Instance) Value {
	return Value{Type: TypeInstance, InstanceVal: inst}
}

// ArrayValue creates an array value.
func ArrayValue(elems ...Value) Value {
	return Value{Type: TypeArray, ArrayVal: elems}
}

// ErrorValue creates an error value.
func ErrorValue(msg string) Value {
	return Value{Type: TypeError, ErrorMsg: msg}
}

// IsNil returns true if the value is nil.
func (v Value) IsNil() bool {
	return v.Type == TypeNil
}

// IsFalse reports whether the value is the halt sentinel (boolean false).
func (v Value) IsFalse() bool {
	return v.Type == TypeBool && v.IntVal == 0
}

// IsTruthy returns true for values that are considered "true" in conditionals.
func (v Value) IsTruthy() bool {
	switch v.Type {
	case TypeNil:
		return false
	case TypeBool:
		return v.IntVal != 0
	case TypeError:
		return false
	default:
		return true
	}
}

// AsString converts the value to its string representation.
func (v Value) AsString() string {
	switch v.Type {
	case TypeNil:
		return "nil"
	case TypeInt:
		return strconv.FormatInt(v.IntVal, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.FloatVal, 'g', -1, 64)
	case TypeString:
		return v.StringVal
	case TypeBool:
		if v.IntVal != 0 {
			return "true"
		}
		return "false"
	case TypeInstance:
		if v.InstanceVal == nil {
			return "<instance nil>"
		}
		return fmt.Sprintf("<%s %s>", v.InstanceVal.ClassName, v.InstanceVal.ID)
	case TypeArray:
		s := "("
		for i, e := range v.ArrayVal {
			if i > 0 {
				s += " "
			}
			s += e.AsString()
		}
		return s + ")"
	case TypeError:
		return "error: " + v.ErrorMsg
	}
	return "?"
}

// AsInt converts the value to an integer, coercing floats and numeric strings.
func (v Value) AsInt() int64 {
	switch v.Type {
	case TypeInt:
		return v.IntVal
	case TypeFloat:
		return int64(v.FloatVal)
	case TypeString:
		n, _ := strconv.ParseInt(v.StringVal, 10, 64)
		return n
	case TypeBool:
		return v.IntVal
	}
	return 0
}
