package evaluator

import (
	"math"

	"github.com/kestrel-lang/kestrel/pkg/ast"
	"github.com/kestrel-lang/kestrel/pkg/diagnostics"
)

type number interface {
	~int32 | ~float32
}

func (ev *evaluator) evalBinary(e *ast.BinaryExpr) (Value, error) {
	left, err := ev.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := ev.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}
	return ev.applyBinary(e.Op, left, right, e.Pos)
}

// applyBinary dispatches on the exact pair of operand types. There are no
// implicit conversions: 1 + 1.0 is a type error.
func (ev *evaluator) applyBinary(op ast.BinaryOp, left, right Value, pos ast.Pos) (Value, error) {
	switch l := left.(type) {
	case Int:
		if r, ok := right.(Int); ok {
			return ev.intOp(op, l.Value, r.Value, pos)
		}
	case Float:
		if r, ok := right.(Float); ok {
			return ev.floatOp(op, l.Value, r.Value, pos)
		}
	case String:
		if r, ok := right.(String); ok {
			switch op {
			case ast.OpAdd:
				return NewString(l.Value + r.Value), nil
			case ast.OpEq:
				return NewBool(l.Value == r.Value), nil
			case ast.OpNeq:
				return NewBool(l.Value != r.Value), nil
			}
		}
	case Bool:
		if r, ok := right.(Bool); ok {
			switch op {
			case ast.OpOr:
				return NewBool(l.Value || r.Value), nil
			case ast.OpAnd:
				return NewBool(l.Value && r.Value), nil
			case ast.OpEq:
				return NewBool(l.Value == r.Value), nil
			case ast.OpNeq:
				return NewBool(l.Value != r.Value), nil
			}
		}
	}
	return nil, ev.errorf(diagnostics.EType, pos, "operator %s cannot be applied to %s and %s", op, typeNameOf(left), typeNameOf(right))
}

func (ev *evaluator) intOp(op ast.BinaryOp, a, b int32, pos ast.Pos) (Value, error) {
	switch op {
	case ast.OpAdd:
		return NewInt(a + b), nil
	case ast.OpSub:
		return NewInt(a - b), nil
	case ast.OpMul:
		return NewInt(a * b), nil
	case ast.OpDiv:
		if b == 0 {
			return nil, ev.errorf(diagnostics.EDivZero, pos, "division by zero")
		}
		return NewInt(a / b), nil
	case ast.OpMod:
		if b == 0 {
			return nil, ev.errorf(diagnostics.EDivZero, pos, "modulo by zero")
		}
		return NewInt(a % b), nil
	}
	if v := compare(op, a, b); v != nil {
		return v, nil
	}
	return nil, ev.errorf(diagnostics.EType, pos, "unknown operator %s", op)
}

func (ev *evaluator) floatOp(op ast.BinaryOp, a, b float32, pos ast.Pos) (Value, error) {
	switch op {
	case ast.OpAdd:
		return NewFloat(a + b), nil
	case ast.OpSub:
		return NewFloat(a - b), nil
	case ast.OpMul:
		return NewFloat(a * b), nil
	case ast.OpDiv:
		if b == 0 {
			return nil, ev.errorf(diagnostics.EDivZero, pos, "division by zero")
		}
		return NewFloat(a / b), nil
	case ast.OpMod:
		if b == 0 {
			return nil, ev.errorf(diagnostics.EDivZero, pos, "modulo by zero")
		}
		return NewFloat(float32(math.Mod(float64(a), float64(b)))), nil
	}
	if v := compare(op, a, b); v != nil {
		return v, nil
	}
	return nil, ev.errorf(diagnostics.EType, pos, "unknown operator %s", op)
}

// compare handles the logical and relational operators shared by both
// numeric types. Logical operators test operands for nonzero.
func compare[T number](op ast.BinaryOp, a, b T) Value {
	switch op {
	case ast.OpOr:
		return NewBool(a != 0 || b != 0)
	case ast.OpAnd:
		return NewBool(a != 0 && b != 0)
	case ast.OpEq:
		return NewBool(a == b)
	case ast.OpNeq:
		return NewBool(a != b)
	case ast.OpLt:
		return NewBool(a < b)
	case ast.OpLtEq:
		return NewBool(a <= b)
	case ast.OpGt:
		return NewBool(a > b)
	case ast.OpGtEq:
		return NewBool(a >= b)
	}
	return nil
}
