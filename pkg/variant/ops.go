package variant

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd   BinaryOp = "+"
	OpSub   BinaryOp = "-"
	OpMul   BinaryOp = "*"
	OpDiv   BinaryOp = "/"
	OpAnd   BinaryOp = "and"
	OpOr    BinaryOp = "or"
	OpGt    BinaryOp = ">"
	OpGtEq  BinaryOp = ">="
	OpLt    BinaryOp = "<"
	OpLtEq  BinaryOp = "<="
	OpEq    BinaryOp = "="
	OpEqEq  BinaryOp = "=="
	OpNotEq BinaryOp = "<>"
)

// UnaryOp represents a unary operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpNot UnaryOp = "not"
)

// Epsilon is the tolerance of float equality, the difference between 1.0
// and the next representable float64.
const Epsilon = 0x1p-52

// ErrDivisionByZero is returned when the divisor is a numeric zero.
var ErrDivisionByZero = errors.New("Division by zero is not allowed")

// OperationError reports an operator applied to operand types it does not
// accept. Unary operations carry their operand in Right.
type OperationError struct {
	Unary bool
	Op    string
	Left  Type
	Right Type
}

func (e *OperationError) Error() string {
	if e.Unary {
		return fmt.Sprintf("Invalid unary operation: %s <%s>", e.Op, e.Right)
	}
	return fmt.Sprintf("Invalid binary operation: <%s> %s <%s>", e.Left, e.Op, e.Right)
}

// IsComparison reports whether op yields a Boolean from two comparable operands.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpGt, OpGtEq, OpLt, OpLtEq, OpEq, OpEqEq, OpNotEq:
		return true
	}
	return false
}

// IsLogical reports whether op is and/or.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// BinaryOperationValid decides whether op may combine operands of the given
// types. Undefined on either side is accepted so that expressions whose type
// is not known until evaluation pass the semantic check.
func BinaryOperationValid(op BinaryOp, left, right Type) bool {
	if left == Undefined || right == Undefined {
		return true
	}
	numeric := left.IsNumeric() && right.IsNumeric()
	switch op {
	case OpAdd:
		return numeric || (left == String && right == String)
	case OpSub, OpMul, OpDiv, OpGt, OpGtEq, OpLt, OpLtEq:
		return numeric
	case OpAnd, OpOr:
		return left == Boolean && right == Boolean
	case OpEq, OpEqEq, OpNotEq:
		return numeric ||
			(left == String && right == String) ||
			(left == Boolean && right == Boolean)
	}
	return false
}

// UnaryOperationValid decides whether op may be applied to an operand of type t.
func UnaryOperationValid(op UnaryOp, t Type) bool {
	if t == Undefined {
		return true
	}
	switch op {
	case OpNeg:
		return t.IsNumeric()
	case OpNot:
		return t == Boolean
	}
	return false
}

// BinaryResultType returns the static type produced by op on operands of the
// given static types. Integer division yields Numeric because exactness is
// only known at runtime.
func BinaryResultType(op BinaryOp, left, right Type) Type {
	if op.IsComparison() || op.IsLogical() {
		return Boolean
	}
	if left == Undefined || right == Undefined {
		return Undefined
	}
	if left == String && right == String {
		return String
	}
	switch {
	case left == Integer && right == Integer:
		if op == OpDiv {
			return Numeric
		}
		return Integer
	case left == Float || right == Float:
		return Float
	}
	return Numeric
}

// UnaryResultType returns the static type produced by op on an operand of type t.
func UnaryResultType(op UnaryOp, t Type) Type {
	if op == OpNot {
		return Boolean
	}
	return t
}

// Binary applies op to two evaluated operands. Undefined operands are
// rejected here: by evaluation time every operand must carry a value.
func Binary(op BinaryOp, left, right Variant) (Variant, error) {
	if left.typ == Undefined || right.typ == Undefined || !BinaryOperationValid(op, left.typ, right.typ) {
		return Variant{}, &OperationError{Op: string(op), Left: left.typ, Right: right.typ}
	}
	switch {
	case left.typ.IsNumeric():
		if left.typ == Integer && right.typ == Integer {
			return integerBinary(op, left.i, right.i)
		}
		return floatBinary(op, left.Number(), right.Number())
	case left.typ == String:
		return stringBinary(op, left.s, right.s)
	case left.typ == Boolean:
		return booleanBinary(op, left.b, right.b)
	}
	return Variant{}, &OperationError{Op: string(op), Left: left.typ, Right: right.typ}
}

// Unary applies op to an evaluated operand.
func Unary(op UnaryOp, operand Variant) (Variant, error) {
	if operand.typ == Undefined || !UnaryOperationValid(op, operand.typ) {
		return Variant{}, &OperationError{Unary: true, Op: string(op), Right: operand.typ}
	}
	switch op {
	case OpNeg:
		if operand.typ == Integer {
			return NewInteger(-operand.i), nil
		}
		return NewFloat(-operand.f), nil
	case OpNot:
		return NewBoolean(!operand.b), nil
	}
	return Variant{}, &OperationError{Unary: true, Op: string(op), Right: operand.typ}
}

// Equals reports whether two variants hold equal values. Incompatible tags
// compare unequal; two Undefined values are equal.
func Equals(a, b Variant) bool {
	if !BinaryOperationValid(OpEq, a.typ, b.typ) {
		return false
	}
	if a.typ == Undefined || b.typ == Undefined {
		return a.typ == b.typ
	}
	switch {
	case a.typ == Integer && b.typ == Integer:
		return a.i == b.i
	case a.typ.IsNumeric():
		return floatEqual(a.Number(), b.Number())
	case a.typ == String:
		return a.s == b.s
	case a.typ == Boolean:
		return a.b == b.b
	}
	return false
}

func floatEqual(a, b float64) bool {
	return math.Abs(a-b) < Epsilon
}

func integerBinary(op BinaryOp, a, b int64) (Variant, error) {
	switch op {
	case OpAdd:
		return NewInteger(a + b), nil
	case OpSub:
		return NewInteger(a - b), nil
	case OpMul:
		return NewInteger(a * b), nil
	case OpDiv:
		if b == 0 {
			return Variant{}, ErrDivisionByZero
		}
		if a%b == 0 {
			return NewInteger(a / b), nil
		}
		return NewFloat(float64(a) / float64(b)), nil
	case OpGt:
		return NewBoolean(a > b), nil
	case OpGtEq:
		return NewBoolean(a >= b), nil
	case OpLt:
		return NewBoolean(a < b), nil
	case OpLtEq:
		return NewBoolean(a <= b), nil
	case OpEq, OpEqEq:
		return NewBoolean(a == b), nil
	case OpNotEq:
		return NewBoolean(a != b), nil
	}
	return Variant{}, &OperationError{Op: string(op), Left: Integer, Right: Integer}
}

func floatBinary(op BinaryOp, a, b float64) (Variant, error) {
	switch op {
	case OpAdd:
		return NewFloat(a + b), nil
	case OpSub:
		return NewFloat(a - b), nil
	case OpMul:
		return NewFloat(a * b), nil
	case OpDiv:
		if b == 0 {
			return Variant{}, ErrDivisionByZero
		}
		return NewFloat(a / b), nil
	case OpGt:
		return NewBoolean(a > b), nil
	case OpGtEq:
		return NewBoolean(a > b || floatEqual(a, b)), nil
	case OpLt:
		return NewBoolean(a < b), nil
	case OpLtEq:
		return NewBoolean(a < b || floatEqual(a, b)), nil
	case OpEq, OpEqEq:
		return NewBoolean(floatEqual(a, b)), nil
	case OpNotEq:
		return NewBoolean(!floatEqual(a, b)), nil
	}
	return Variant{}, &OperationError{Op: string(op), Left: Float, Right: Float}
}

func stringBinary(op BinaryOp, a, b string) (Variant, error) {
	switch op {
	case OpAdd:
		return NewString(a + b), nil
	case OpEq:
		// left-hand prefix equality: "foo" = "foobar" holds
		return NewBoolean(strings.HasPrefix(b, a)), nil
	case OpEqEq:
		return NewBoolean(a == b), nil
	case OpNotEq:
		return NewBoolean(a != b), nil
	}
	return Variant{}, &OperationError{Op: string(op), Left: String, Right: String}
}

func booleanBinary(op BinaryOp, a, b bool) (Variant, error) {
	switch op {
	case OpAnd:
		return NewBoolean(a && b), nil
	case OpOr:
		return NewBoolean(a || b), nil
	case OpEq, OpEqEq:
		return NewBoolean(a == b), nil
	case OpNotEq:
		return NewBoolean(a != b), nil
	}
	return Variant{}, &OperationError{Op: string(op), Left: Boolean, Right: Boolean}
}
