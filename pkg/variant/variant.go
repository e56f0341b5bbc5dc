// Package variant implements the dynamically tagged runtime value of the
// codeblock language together with its operator rules.
package variant

import (
	"fmt"
	"strconv"
)

// Type identifies the active representation of a Variant.
type Type int

const (
	Undefined Type = iota
	Integer
	Float
	// Numeric matches Integer or Float. It is never stored in a Variant; it
	// only appears as a static expression type and in operator matching.
	Numeric
	Boolean
	String
)

var typeNames = [...]string{
	Undefined: "undefined",
	Integer:   "integer",
	Float:     "float",
	Numeric:   "numeric",
	Boolean:   "boolean",
	String:    "string",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("type(%d)", int(t))
	}
	return typeNames[t]
}

// IsNumeric reports whether t is Integer, Float or the Numeric wildcard.
func (t Type) IsNumeric() bool {
	return t == Integer || t == Float || t == Numeric
}

// Matches reports whether a value of type t satisfies the expected type,
// treating Numeric as a wildcard on either side.
func (t Type) Matches(expected Type) bool {
	if t == expected {
		return true
	}
	if t == Numeric {
		return expected == Integer || expected == Float
	}
	if expected == Numeric {
		return t == Integer || t == Float
	}
	return false
}

// Variant is a tagged runtime value. Exactly one payload field is
// meaningful, selected by typ. The zero Variant is Undefined.
type Variant struct {
	typ Type
	i   int64
	f   float64
	b   bool
	s   string
}

// NewUndefined returns the Undefined variant.
func NewUndefined() Variant {
	return Variant{}
}

// NewInteger returns an Integer variant.
func NewInteger(i int64) Variant {
	return Variant{typ: Integer, i: i}
}

// NewFloat returns a Float variant.
func NewFloat(f float64) Variant {
	return Variant{typ: Float, f: f}
}

// NewBoolean returns a Boolean variant.
func NewBoolean(b bool) Variant {
	return Variant{typ: Boolean, b: b}
}

// NewString returns a String variant.
func NewString(s string) Variant {
	return Variant{typ: String, s: s}
}

// Type returns the tag of v.
func (v Variant) Type() Type {
	return v.typ
}

// IsUndefined reports whether v carries no value.
func (v Variant) IsUndefined() bool {
	return v.typ == Undefined
}

// Copy returns an independent variant equal to v. Go strings are immutable,
// so sharing the string payload is a deep copy in effect.
func (v Variant) Copy() Variant {
	return v
}

// Int returns the integer payload. It panics if v is not an Integer.
func (v Variant) Int() int64 {
	v.mustBe(Integer)
	return v.i
}

// Float returns the float payload. It panics if v is not a Float.
func (v Variant) Float() float64 {
	v.mustBe(Float)
	return v.f
}

// Number returns the payload of a numeric variant as float64.
// It panics if v is neither Integer nor Float.
func (v Variant) Number() float64 {
	v.mustBe(Numeric)
	if v.typ == Integer {
		return float64(v.i)
	}
	return v.f
}

// Bool returns the boolean payload. It panics if v is not a Boolean.
func (v Variant) Bool() bool {
	v.mustBe(Boolean)
	return v.b
}

// Str returns the string payload. It panics if v is not a String.
func (v Variant) Str() string {
	v.mustBe(String)
	return v.s
}

func (v Variant) mustBe(t Type) {
	if !v.typ.Matches(t) {
		panic(fmt.Sprintf("variant: %s accessor used on %s value", t, v.typ))
	}
}

// String renders v for humans: <undefined>, decimal integers, %f floats,
// True/False, and raw string contents.
func (v Variant) String() string {
	switch v.typ {
	case Integer:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return strconv.FormatFloat(v.f, 'f', 6, 64)
	case Boolean:
		if v.b {
			return "True"
		}
		return "False"
	case String:
		return v.s
	}
	return "<undefined>"
}

// GoString renders v with its tag, for test failure messages.
func (v Variant) GoString() string {
	if v.typ == String {
		return fmt.Sprintf("%s(%q)", v.typ, v.s)
	}
	if v.typ == Undefined {
		return "undefined"
	}
	return fmt.Sprintf("%s(%s)", v.typ, v.String())
}
