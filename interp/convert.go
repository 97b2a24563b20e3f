package interp

import (
	"fmt"
	"unicode/utf8"

	"github.com/petal-lang/petal/vm"
)

// Shape identifies the fixed set of primitive shapes the value boundary
// converts between.
type Shape int

const (
	ShapeNil Shape = iota
	ShapeBool
	ShapeInt
	ShapeFloat
	ShapeString
	ShapeBytes
	ShapeList
	ShapeObject // any VM value outside the primitive set
)

func (sh Shape) String() string {
	switch sh {
	case ShapeNil:
		return "nil"
	case ShapeBool:
		return "bool"
	case ShapeInt:
		return "integer"
	case ShapeFloat:
		return "float"
	case ShapeString:
		return "string"
	case ShapeBytes:
		return "bytes"
	case ShapeList:
		return "list"
	}
	return "object"
}

// ConversionError reports a conversion whose runtime tag did not match the
// requested shape.
type ConversionError struct {
	Expected Shape
	Actual   Shape
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("interp: cannot convert value: expected %s, got %s", e.Expected, e.Actual)
}

func (s *State) shapeOf(v vm.Value) Shape {
	switch {
	case v == vm.Nil:
		return ShapeNil
	case v.IsBool():
		return ShapeBool
	case v.IsFixnum():
		return ShapeInt
	case v.IsFloat():
		return ShapeFloat
	}
	if _, ok := s.vm.StringBytes(v); ok {
		return ShapeString
	}
	if _, ok := s.vm.ArrayElems(v); ok {
		return ShapeList
	}
	return ShapeObject
}

// ---------------------------------------------------------------------------
// Host -> VM
// ---------------------------------------------------------------------------
//
// Conversions that allocate on the VM heap leave the new value protected on
// the arena; callers that create temporaries must bracket the sequence with
// an arena savepoint.

// NilValue returns the VM nil.
func (s *State) NilValue() Value {
	return Value{state: s, raw: vm.Nil}
}

// BoolValue converts a bool.
func (s *State) BoolValue(b bool) Value {
	return Value{state: s, raw: vm.FromBool(b)}
}

// IntValue converts a signed integer. Values outside the VM fixnum range
// (48-bit signed) cannot be represented and panic, mirroring the VM's own
// allocation contract.
func (s *State) IntValue(i int64) Value {
	return Value{state: s, raw: vm.FromFixnum(i)}
}

// FloatValue converts a float.
func (s *State) FloatValue(f float64) Value {
	return Value{state: s, raw: vm.FromFloat64(f)}
}

// StringValue converts UTF-8 text, allocating a VM string.
func (s *State) StringValue(str string) Value {
	return Value{state: s, raw: s.vm.NewString([]byte(str))}
}

// BytesValue converts a byte sequence, allocating a VM string.
func (s *State) BytesValue(b []byte) Value {
	return Value{state: s, raw: s.vm.NewString(b)}
}

// ListValue converts a sequence of already-converted values, allocating a
// VM array.
func (s *State) ListValue(items []Value) Value {
	raw := make([]vm.Value, 0, len(items))
	for _, it := range items {
		raw = append(raw, it.raw)
	}
	return Value{state: s, raw: s.vm.NewArray(raw)}
}

// ---------------------------------------------------------------------------
// VM -> host
// ---------------------------------------------------------------------------

// ToBool converts a VM boolean.
func (s *State) ToBool(v Value) (bool, *ConversionError) {
	if !v.raw.IsBool() {
		return false, &ConversionError{Expected: ShapeBool, Actual: s.shapeOf(v.raw)}
	}
	return v.raw.Bool(), nil
}

// ToInt converts a VM fixnum.
func (s *State) ToInt(v Value) (int64, *ConversionError) {
	if !v.raw.IsFixnum() {
		return 0, &ConversionError{Expected: ShapeInt, Actual: s.shapeOf(v.raw)}
	}
	return v.raw.Fixnum(), nil
}

// ToFloat converts a VM float.
func (s *State) ToFloat(v Value) (float64, *ConversionError) {
	if !v.raw.IsFloat() {
		return 0, &ConversionError{Expected: ShapeFloat, Actual: s.shapeOf(v.raw)}
	}
	return v.raw.Float64(), nil
}

// ToString converts a VM string holding valid UTF-8 text.
func (s *State) ToString(v Value) (string, *ConversionError) {
	b, ok := s.vm.StringBytes(v.raw)
	if !ok {
		return "", &ConversionError{Expected: ShapeString, Actual: s.shapeOf(v.raw)}
	}
	if !utf8.Valid(b) {
		return "", &ConversionError{Expected: ShapeString, Actual: ShapeBytes}
	}
	return string(b), nil
}

// ToBytes converts a VM string's raw byte content.
func (s *State) ToBytes(v Value) ([]byte, *ConversionError) {
	b, ok := s.vm.StringBytes(v.raw)
	if !ok {
		return nil, &ConversionError{Expected: ShapeBytes, Actual: s.shapeOf(v.raw)}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// ToList converts a VM array into host value handles.
func (s *State) ToList(v Value) ([]Value, *ConversionError) {
	elems, ok := s.vm.ArrayElems(v.raw)
	if !ok {
		return nil, &ConversionError{Expected: ShapeList, Actual: s.shapeOf(v.raw)}
	}
	out := make([]Value, 0, len(elems))
	for _, e := range elems {
		out = append(out, Value{state: s, raw: e})
	}
	return out, nil
}
