package ast

import (
	"strconv"
	"strings"
)

// Side identifies the operand slot a child expression occupies.
type Side int

const (
	LeftOperand Side = iota
	RightOperand
	UnaryOperand
)

// NeedsParens reports whether child must be parenthesized when printed in the
// given slot of parent so that the text parses back into the same tree.
//
// The parser folds layers left to right (|| then && then relational then
// additive then multiplicative), and every right operand and unary operand is
// a simple expression. A left operand therefore only needs parentheses when it
// was built by a later layer than its parent, and "!a-b" is rejected outright.
func NeedsParens(child, parent Expr, side Side) bool {
	switch side {
	case RightOperand, UnaryOperand:
		return isCompound(child)
	}
	p, ok := parent.(*BinaryExpr)
	if !ok {
		return false
	}
	switch c := child.(type) {
	case *BinaryExpr:
		return c.Op.Layer() > p.Op.Layer()
	case *UnaryExpr:
		return c.Op == OpNot && p.Op == OpSub
	}
	return false
}

// Operand renders child in the given slot of parent, adding parentheses when
// NeedsParens requires them.
func Operand(child, parent Expr, side Side) string {
	if NeedsParens(child, parent, side) {
		return "(" + child.String() + ")"
	}
	return child.String()
}

func isCompound(e Expr) bool {
	switch e.(type) {
	case *BinaryExpr, *UnaryExpr:
		return true
	}
	return false
}

// FormatFloat renders a float in the shortest decimal form that reads back to
// the same float32, always with a fractional part ("3.0", "34.42").
func FormatFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if strings.ContainsAny(s, ".IN") {
		return s
	}
	return s + ".0"
}

// QuoteString renders a string literal. Double quotes are used unless the
// text contains one, in which case single quotes are used.
func QuoteString(s string) string {
	if strings.Contains(s, `"`) && !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}
