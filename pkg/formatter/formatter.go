// Package formatter implements the Kestrel source code formatter.
package formatter

import (
	"strings"

	"github.com/kestrel-lang/kestrel/pkg/ast"
)

const indent = "  "

// Format pretty-prints a Kestrel AST back to source code: one statement per
// line, two-space indentation, spaces around binary operators and a blank
// line between functions.
func Format(program *ast.Program) string {
	fns := make([]string, len(program.Functions))
	for i, fn := range program.Functions {
		fns[i] = formatFunction(fn)
	}
	if len(fns) == 0 {
		return ""
	}
	return strings.Join(fns, "\n\n") + "\n"
}

func formatFunction(fn *ast.Function) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.String()
	}
	return "fn " + fn.Name + "(" + strings.Join(params, ", ") + ") " + formatBlock(fn.Body, 0)
}

func formatBlock(b *ast.Block, depth int) string {
	if len(b.Stmts) == 0 {
		return "{}"
	}
	lines := make([]string, len(b.Stmts))
	for i, s := range b.Stmts {
		lines[i] = formatStmt(s, depth+1)
	}
	return "{\n" + strings.Join(lines, "\n") + "\n" + strings.Repeat(indent, depth) + "}"
}

func formatStmt(s ast.Stmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.Block:
		return prefix + formatBlock(stmt, depth)
	case *ast.VarDecl:
		out := prefix
		if stmt.Mutable {
			out += "mut "
		}
		out += "var " + stmt.Name
		if stmt.Init != nil {
			out += " = " + formatExpr(stmt.Init)
		}
		return out + ";"
	case *ast.AssignStmt:
		return prefix + stmt.Name + " = " + formatExpr(stmt.Value) + ";"
	case *ast.CallStmt:
		return prefix + formatCall(stmt) + ";"
	case *ast.ReturnStmt:
		if stmt.Value == nil {
			return prefix + "return;"
		}
		return prefix + "return " + formatExpr(stmt.Value) + ";"
	case *ast.IfStmt:
		out := prefix + "if (" + formatExpr(stmt.Cond) + ") " + formatBlock(stmt.Then, depth)
		if stmt.Else != nil {
			out += " else " + formatBlock(stmt.Else, depth)
		}
		return out
	case *ast.WhileStmt:
		return prefix + "while (" + formatExpr(stmt.Cond) + ") " + formatBlock(stmt.Body, depth)
	case *ast.MatchStmt:
		if len(stmt.Cases) == 0 {
			return prefix + "match (" + formatExpr(stmt.Subject) + ") {}"
		}
		lines := []string{prefix + "match (" + formatExpr(stmt.Subject) + ") {"}
		for _, c := range stmt.Cases {
			lines = append(lines, prefix+indent+"case "+formatExpr(c.Pattern)+": "+formatBlock(c.Body, depth+1))
		}
		lines = append(lines, prefix+"}")
		return strings.Join(lines, "\n")
	}
	return prefix + s.String()
}

func formatCall(c *ast.CallStmt) string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = formatExpr(a)
	}
	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

func formatExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.BinaryExpr:
		return operand(expr.Left, expr, ast.LeftOperand) + " " + string(expr.Op) + " " + operand(expr.Right, expr, ast.RightOperand)
	case *ast.UnaryExpr:
		return string(expr.Op) + operand(expr.Operand, expr, ast.UnaryOperand)
	case *ast.CallExpr:
		return formatCall(expr.Call)
	}
	return e.String()
}

func operand(child, parent ast.Expr, side ast.Side) string {
	if ast.NeedsParens(child, parent, side) {
		return "(" + formatExpr(child) + ")"
	}
	return formatExpr(child)
}
