// Package ast defines the Kestrel syntax tree.
package ast

import (
	"fmt"
	"strconv"
	"strings"
)

// Pos is a 1-based source position.
type Pos struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Node is the interface implemented by all AST nodes.
// String returns the compact source reconstruction of the node.
type Node interface {
	Kind() string
	NodePos() Pos
	String() string
}

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpOr   BinaryOp = "||"
	OpAnd  BinaryOp = "&&"
	OpEq   BinaryOp = "=="
	OpNeq  BinaryOp = "!="
	OpLt   BinaryOp = "<"
	OpLtEq BinaryOp = "<="
	OpGt   BinaryOp = ">"
	OpGtEq BinaryOp = ">="
	OpAdd  BinaryOp = "+"
	OpSub  BinaryOp = "-"
	OpMul  BinaryOp = "*"
	OpDiv  BinaryOp = "/"
	OpMod  BinaryOp = "%"
)

// Layer returns the position of the operator's layer in the parser's
// expression chain: 1 for ||, 2 for &&, 3 for relational, 4 for additive and
// 5 for multiplicative operators. Later layers fold over earlier results.
func (op BinaryOp) Layer() int {
	switch op {
	case OpOr:
		return 1
	case OpAnd:
		return 2
	case OpEq, OpNeq, OpLt, OpLtEq, OpGt, OpGtEq:
		return 3
	case OpAdd, OpSub:
		return 4
	case OpMul, OpDiv, OpMod:
		return 5
	}
	return 0
}

// UnaryOp represents a unary operator.
type UnaryOp string

const (
	OpNot UnaryOp = "!"
	OpNeg UnaryOp = "-"
)

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all instruction nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Literal Expressions ---

type IntLiteral struct {
	Pos   Pos
	Value int32
}

func (n *IntLiteral) Kind() string   { return "IntLiteral" }
func (n *IntLiteral) NodePos() Pos   { return n.Pos }
func (n *IntLiteral) exprNode()      {}
func (n *IntLiteral) String() string { return strconv.FormatInt(int64(n.Value), 10) }

type FloatLiteral struct {
	Pos   Pos
	Value float32
}

func (n *FloatLiteral) Kind() string   { return "FloatLiteral" }
func (n *FloatLiteral) NodePos() Pos   { return n.Pos }
func (n *FloatLiteral) exprNode()      {}
func (n *FloatLiteral) String() string { return FormatFloat(n.Value) }

type StrLiteral struct {
	Pos   Pos
	Value string
}

func (n *StrLiteral) Kind() string   { return "StrLiteral" }
func (n *StrLiteral) NodePos() Pos   { return n.Pos }
func (n *StrLiteral) exprNode()      {}
func (n *StrLiteral) String() string { return QuoteString(n.Value) }

type BoolLiteral struct {
	Pos   Pos
	Value bool
}

func (n *BoolLiteral) Kind() string   { return "BoolLiteral" }
func (n *BoolLiteral) NodePos() Pos   { return n.Pos }
func (n *BoolLiteral) exprNode()      {}
func (n *BoolLiteral) String() string { return strconv.FormatBool(n.Value) }

// --- Identifiers ---

// Ident is a variable reference resolved at evaluation time. The name "_"
// refers to the subject of the innermost active match.
type Ident struct {
	Pos  Pos
	Name string
}

func (n *Ident) Kind() string   { return "Ident" }
func (n *Ident) NodePos() Pos   { return n.Pos }
func (n *Ident) exprNode()      {}
func (n *Ident) String() string { return n.Name }

// --- Operators ---

type BinaryExpr struct {
	Pos   Pos
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string { return "BinaryExpr" }
func (n *BinaryExpr) NodePos() Pos { return n.Pos }
func (n *BinaryExpr) exprNode()    {}
func (n *BinaryExpr) String() string {
	return Operand(n.Left, n, LeftOperand) + string(n.Op) + Operand(n.Right, n, RightOperand)
}

type UnaryExpr struct {
	Pos     Pos
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Kind() string { return "UnaryExpr" }
func (n *UnaryExpr) NodePos() Pos { return n.Pos }
func (n *UnaryExpr) exprNode()    {}
func (n *UnaryExpr) String() string {
	return string(n.Op) + Operand(n.Operand, n, UnaryOperand)
}

// CallExpr is a function call used where a value is expected.
type CallExpr struct {
	Pos  Pos
	Call *CallStmt
}

func (n *CallExpr) Kind() string   { return "CallExpr" }
func (n *CallExpr) NodePos() Pos   { return n.Pos }
func (n *CallExpr) exprNode()      {}
func (n *CallExpr) String() string { return n.Call.callText() }

// --- Instructions ---

type Block struct {
	Pos   Pos
	Stmts []Stmt
}

func (n *Block) Kind() string { return "Block" }
func (n *Block) NodePos() Pos { return n.Pos }
func (n *Block) stmtNode()    {}
func (n *Block) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for _, s := range n.Stmts {
		b.WriteString(s.String())
	}
	b.WriteByte('}')
	return b.String()
}

// VarDecl declares a variable in the current function scope. A nil Init
// binds Int 0.
type VarDecl struct {
	Pos     Pos
	Name    string
	Mutable bool
	Init    Expr
}

func (n *VarDecl) Kind() string { return "VarDecl" }
func (n *VarDecl) NodePos() Pos { return n.Pos }
func (n *VarDecl) stmtNode()    {}
func (n *VarDecl) String() string {
	out := "var " + n.Name
	if n.Mutable {
		out = "mut " + out
	}
	if n.Init != nil {
		out += "=" + n.Init.String()
	}
	return out + ";"
}

type AssignStmt struct {
	Pos   Pos
	Name  string
	Value Expr
}

func (n *AssignStmt) Kind() string   { return "AssignStmt" }
func (n *AssignStmt) NodePos() Pos   { return n.Pos }
func (n *AssignStmt) stmtNode()      {}
func (n *AssignStmt) String() string { return n.Name + "=" + n.Value.String() + ";" }

type CallStmt struct {
	Pos  Pos
	Name string
	Args []Expr
}

func (n *CallStmt) Kind() string   { return "CallStmt" }
func (n *CallStmt) NodePos() Pos   { return n.Pos }
func (n *CallStmt) stmtNode()      {}
func (n *CallStmt) String() string { return n.callText() + ";" }

func (n *CallStmt) callText() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Name + "(" + strings.Join(args, ",") + ")"
}

// ReturnStmt ends the enclosing function. A nil Value returns no value.
type ReturnStmt struct {
	Pos   Pos
	Value Expr
}

func (n *ReturnStmt) Kind() string { return "ReturnStmt" }
func (n *ReturnStmt) NodePos() Pos { return n.Pos }
func (n *ReturnStmt) stmtNode()    {}
func (n *ReturnStmt) String() string {
	if n.Value == nil {
		return "return;"
	}
	return "return " + n.Value.String() + ";"
}

type IfStmt struct {
	Pos  Pos
	Cond Expr
	Then *Block
	Else *Block
}

func (n *IfStmt) Kind() string { return "IfStmt" }
func (n *IfStmt) NodePos() Pos { return n.Pos }
func (n *IfStmt) stmtNode()    {}
func (n *IfStmt) String() string {
	out := "if(" + n.Cond.String() + ")" + n.Then.String()
	if n.Else != nil {
		out += "else" + n.Else.String()
	}
	return out
}

type WhileStmt struct {
	Pos  Pos
	Cond Expr
	Body *Block
}

func (n *WhileStmt) Kind() string   { return "WhileStmt" }
func (n *WhileStmt) NodePos() Pos   { return n.Pos }
func (n *WhileStmt) stmtNode()      {}
func (n *WhileStmt) String() string { return "while(" + n.Cond.String() + ")" + n.Body.String() }

type MatchStmt struct {
	Pos     Pos
	Subject Expr
	Cases   []*Case
}

func (n *MatchStmt) Kind() string { return "MatchStmt" }
func (n *MatchStmt) NodePos() Pos { return n.Pos }
func (n *MatchStmt) stmtNode()    {}
func (n *MatchStmt) String() string {
	var b strings.Builder
	b.WriteString("match(" + n.Subject.String() + "){")
	for _, c := range n.Cases {
		b.WriteString(c.String())
	}
	b.WriteByte('}')
	return b.String()
}

// Case is one arm of a match. It is only reachable through MatchStmt.Cases.
type Case struct {
	Pos     Pos
	Pattern Expr
	Body    *Block
}

func (n *Case) Kind() string   { return "Case" }
func (n *Case) NodePos() Pos   { return n.Pos }
func (n *Case) String() string { return "case " + n.Pattern.String() + ":" + n.Body.String() }

// --- Functions ---

type Param struct {
	Pos     Pos
	Name    string
	Mutable bool
}

func (n *Param) Kind() string { return "Param" }
func (n *Param) NodePos() Pos { return n.Pos }
func (n *Param) String() string {
	if n.Mutable {
		return "mut var " + n.Name
	}
	return "var " + n.Name
}

type Function struct {
	Pos    Pos
	Name   string
	Params []*Param
	Body   *Block
}

func (n *Function) Kind() string { return "Function" }
func (n *Function) NodePos() Pos { return n.Pos }
func (n *Function) String() string {
	params := make([]string, len(n.Params))
	for i, p := range n.Params {
		params[i] = p.String()
	}
	return "fn " + n.Name + "(" + strings.Join(params, ",") + ")" + n.Body.String()
}

// Program is the root node: the functions of one source, in source order.
type Program struct {
	Pos       Pos
	Functions []*Function
}

func (n *Program) Kind() string { return "Program" }
func (n *Program) NodePos() Pos { return n.Pos }
func (n *Program) String() string {
	var b strings.Builder
	for _, f := range n.Functions {
		b.WriteString(f.String())
	}
	return b.String()
}

// Lookup returns the first function with the given name.
func (n *Program) Lookup(name string) *Function {
	for _, f := range n.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Main returns the program's entry point, or nil.
func (n *Program) Main() *Function {
	return n.Lookup("main")
}
