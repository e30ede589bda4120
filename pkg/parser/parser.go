// Package parser implements the Kestrel recursive-descent parser.
package parser

import (
	"errors"
	"fmt"

	"github.com/kestrel-lang/kestrel/pkg/ast"
	"github.com/kestrel-lang/kestrel/pkg/lexer"
)

// TokenSource supplies tokens one at a time. *lexer.Lexer implements it.
type TokenSource interface {
	NextToken() (lexer.Token, error)
}

// Parser builds a Program from a TokenSource using one token of lookahead.
// The peek slot is filled lazily and promoted to cur by next.
type Parser struct {
	src      TokenSource
	filename string

	cur     lexer.Token
	peek    lexer.Token
	hasPeek bool

	program *ast.Program
	err     error
}

// New creates a parser reading from src.
func New(src TokenSource) *Parser {
	p := &Parser{src: src}
	if named, ok := src.(interface{ Filename() string }); ok {
		p.filename = named.Filename()
	}
	return p
}

// Parse parses an in-memory source.
func Parse(source string) (*ast.Program, error) {
	return New(lexer.New(source)).ParseProgram()
}

// ParseFile parses the contents of a file. String escapes are enabled.
func ParseFile(filename, source string) (*ast.Program, error) {
	return New(lexer.NewFile(filename, source)).ParseProgram()
}

// ParseExpr parses a single expression that must span the whole source.
func ParseExpr(source string) (ast.Expr, error) {
	p := New(lexer.New(source))
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokEOF); err != nil {
		return nil, err
	}
	return expr, nil
}

// ParseProgram parses functions until end of input. The first error aborts
// the parse. Later calls return the result of the first one without reading
// more tokens.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	if p.program != nil || p.err != nil {
		return p.program, p.err
	}
	prog, err := p.parseProgram()
	if err != nil {
		p.err = err
		return nil, err
	}
	p.program = prog
	return prog, nil
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{Pos: ast.Pos{Line: 1, Col: 1}}
	for {
		done, err := p.peekIs(lexer.TokEOF)
		if err != nil {
			return nil, err
		}
		if done {
			return prog, nil
		}
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

func (p *Parser) fill() error {
	if p.hasPeek {
		return nil
	}
	tok, err := p.src.NextToken()
	if err != nil {
		return err
	}
	p.peek = tok
	p.hasPeek = true
	return nil
}

func (p *Parser) next() error {
	if err := p.fill(); err != nil {
		return err
	}
	p.cur = p.peek
	p.hasPeek = false
	return nil
}

func (p *Parser) peekIs(types ...lexer.TokenType) (bool, error) {
	if err := p.fill(); err != nil {
		return false, err
	}
	for _, t := range types {
		if p.peek.Type == t {
			return true, nil
		}
	}
	return false, nil
}

// advanceIf consumes the next token when it has one of the given types.
func (p *Parser) advanceIf(types ...lexer.TokenType) (bool, error) {
	ok, err := p.peekIs(types...)
	if err != nil || !ok {
		return false, err
	}
	return true, p.next()
}

// expect consumes the next token and fails unless it has the given type.
func (p *Parser) expect(typ lexer.TokenType) (lexer.Token, error) {
	if err := p.next(); err != nil {
		return lexer.Token{}, err
	}
	if p.cur.Type != typ {
		return p.cur, p.tokenError(p.cur, typ)
	}
	return p.cur, nil
}

// ---------------------------------------------------------------------------
// Functions and blocks
// ---------------------------------------------------------------------------

func (p *Parser) parseFunction() (*ast.Function, error) {
	start, err := p.expect(lexer.TokFn)
	if err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.TokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokLParen); err != nil {
		return nil, err
	}

	fn := &ast.Function{Pos: start.Pos, Name: name.Value}
	found := false
	for {
		ok, err := p.advanceIf(lexer.TokVar, lexer.TokMut)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		found = true
		param, err := p.parseParam()
		if err != nil {
			return nil, err
		}
		fn.Params = append(fn.Params, param)

		closed, err := p.advanceIf(lexer.TokRParen)
		if err != nil {
			return nil, err
		}
		if closed {
			break
		}
		if _, err := p.expect(lexer.TokComma); err != nil {
			return nil, err
		}
	}
	if !found {
		if _, err := p.expect(lexer.TokRParen); err != nil {
			return nil, err
		}
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

// parseParam reads the rest of a parameter after its leading var or mut.
func (p *Parser) parseParam() (*ast.Param, error) {
	param := &ast.Param{Pos: p.cur.Pos}
	if p.cur.Type == lexer.TokMut {
		param.Mutable = true
		if _, err := p.expect(lexer.TokVar); err != nil {
			return nil, err
		}
	}
	name, err := p.expect(lexer.TokIdent)
	if err != nil {
		return nil, err
	}
	param.Name = name.Value
	return param, nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	open, err := p.expect(lexer.TokLBrace)
	if err != nil {
		return nil, err
	}
	block := &ast.Block{Pos: open.Pos}
	for {
		closed, err := p.peekIs(lexer.TokRBrace)
		if err != nil {
			return nil, err
		}
		if closed {
			break
		}
		stmt, err := p.parseInstruction()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	return block, p.next()
}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

// parseInstruction tries declaration, call, assignment, while, return, match
// and if in that order.
func (p *Parser) parseInstruction() (ast.Stmt, error) {
	if err := p.fill(); err != nil {
		return nil, err
	}
	switch p.peek.Type {
	case lexer.TokVar, lexer.TokMut:
		return p.parseDeclaration()
	case lexer.TokIdent:
		return p.parseCallOrAssignment()
	case lexer.TokWhile:
		return p.parseWhile()
	case lexer.TokReturn:
		return p.parseReturn()
	case lexer.TokMatch:
		return p.parseMatch()
	case lexer.TokIf:
		return p.parseIf()
	}
	return nil, &ParseError{
		Kind: ErrSyntax,
		Pos:  p.peek.Pos,
		Got:  p.peek.Type,
		File: p.filename,
		Msg:  fmt.Sprintf("no instruction could be parsed at %s, found %s", p.peek.Pos, p.peek),
	}
}

func (p *Parser) parseDeclaration() (ast.Stmt, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	decl := &ast.VarDecl{Pos: p.cur.Pos}
	if p.cur.Type == lexer.TokMut {
		decl.Mutable = true
		if _, err := p.expect(lexer.TokVar); err != nil {
			return nil, err
		}
	}
	name, err := p.expect(lexer.TokIdent)
	if err != nil {
		return nil, err
	}
	decl.Name = name.Value

	hasInit, err := p.advanceIf(lexer.TokAssign)
	if err != nil {
		return nil, err
	}
	if hasInit {
		if decl.Init, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.TokSemicolon); err != nil {
		return nil, err
	}
	return decl, nil
}

// parseCallOrAssignment handles the two instructions that open with an
// identifier: a call when "(" follows, an assignment otherwise.
func (p *Parser) parseCallOrAssignment() (ast.Stmt, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	name := p.cur

	isCall, err := p.peekIs(lexer.TokLParen)
	if err != nil {
		return nil, err
	}
	if isCall {
		call, err := p.parseCall(name)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokSemicolon); err != nil {
			return nil, err
		}
		return call, nil
	}

	if _, err := p.expect(lexer.TokAssign); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokSemicolon); err != nil {
		return nil, err
	}
	return &ast.AssignStmt{Pos: name.Pos, Name: name.Value, Value: value}, nil
}

// parseCall reads the argument list of a call whose name was just consumed.
func (p *Parser) parseCall(name lexer.Token) (*ast.CallStmt, error) {
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	return &ast.CallStmt{Pos: name.Pos, Name: name.Value, Args: args}, nil
}

// parseArgs reads "(" [expr {"," expr}] ")". A comma must be followed by
// another argument.
func (p *Parser) parseArgs() ([]ast.Expr, error) {
	if _, err := p.expect(lexer.TokLParen); err != nil {
		return nil, err
	}
	var args []ast.Expr
	empty, err := p.advanceIf(lexer.TokRParen)
	if err != nil || empty {
		return args, err
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		closed, err := p.advanceIf(lexer.TokRParen)
		if err != nil {
			return nil, err
		}
		if closed {
			return args, nil
		}
		if _, err := p.expect(lexer.TokComma); err != nil {
			return nil, err
		}
	}
}

// parseCondition reads "(" expr ")" after while, if and match.
func (p *Parser) parseCondition() (ast.Expr, error) {
	if _, err := p.expect(lexer.TokLParen); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokRParen); err != nil {
		return nil, err
	}
	return cond, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	stmt := &ast.WhileStmt{Pos: p.cur.Pos}
	var err error
	if stmt.Cond, err = p.parseCondition(); err != nil {
		return nil, err
	}
	if stmt.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	stmt := &ast.ReturnStmt{Pos: p.cur.Pos}
	bare, err := p.peekIs(lexer.TokSemicolon)
	if err != nil {
		return nil, err
	}
	if !bare {
		if stmt.Value, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.TokSemicolon); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Pos: p.cur.Pos}
	var err error
	if stmt.Cond, err = p.parseCondition(); err != nil {
		return nil, err
	}
	if stmt.Then, err = p.parseBlock(); err != nil {
		return nil, err
	}
	hasElse, err := p.advanceIf(lexer.TokElse)
	if err != nil {
		return nil, err
	}
	if hasElse {
		if stmt.Else, err = p.parseBlock(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseMatch() (ast.Stmt, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	stmt := &ast.MatchStmt{Pos: p.cur.Pos}
	var err error
	if stmt.Subject, err = p.parseCondition(); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.TokLBrace); err != nil {
		return nil, err
	}
	for {
		ok, err := p.advanceIf(lexer.TokCase)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		c := &ast.Case{Pos: p.cur.Pos}
		if c.Pattern, err = p.parseExpression(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokColon); err != nil {
			return nil, err
		}
		if c.Body, err = p.parseBlock(); err != nil {
			return nil, err
		}
		stmt.Cases = append(stmt.Cases, c)
	}
	if _, err := p.expect(lexer.TokRBrace); err != nil {
		return nil, err
	}
	return stmt, nil
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

type binaryLayer struct {
	name string
	ops  map[lexer.TokenType]ast.BinaryOp
}

// binaryLayers run in this order, each folding over the result of the
// previous one. Every right operand is a simple expression.
var binaryLayers = []binaryLayer{
	{"logical or", map[lexer.TokenType]ast.BinaryOp{
		lexer.TokOr: ast.OpOr,
	}},
	{"logical and", map[lexer.TokenType]ast.BinaryOp{
		lexer.TokAnd: ast.OpAnd,
	}},
	{"relational", map[lexer.TokenType]ast.BinaryOp{
		lexer.TokEq:   ast.OpEq,
		lexer.TokNeq:  ast.OpNeq,
		lexer.TokLt:   ast.OpLt,
		lexer.TokLtEq: ast.OpLtEq,
		lexer.TokGt:   ast.OpGt,
		lexer.TokGtEq: ast.OpGtEq,
	}},
	{"additive", map[lexer.TokenType]ast.BinaryOp{
		lexer.TokPlus:  ast.OpAdd,
		lexer.TokMinus: ast.OpSub,
	}},
	{"multiplicative", map[lexer.TokenType]ast.BinaryOp{
		lexer.TokStar:    ast.OpMul,
		lexer.TokSlash:   ast.OpDiv,
		lexer.TokPercent: ast.OpMod,
	}},
}

// parseExpression applies the prefix "!" layer, the prefix "-" layer and
// then the binary layers left to right. A layer whose operator is absent
// passes its input through, parsing a simple expression first if nothing has
// been parsed yet.
func (p *Parser) parseExpression() (ast.Expr, error) {
	var lhs ast.Expr
	var err error
	if lhs, err = p.parsePrefix(lhs, lexer.TokBang, ast.OpNot); err != nil {
		return nil, err
	}
	if lhs, err = p.parsePrefix(lhs, lexer.TokMinus, ast.OpNeg); err != nil {
		return nil, err
	}
	for _, layer := range binaryLayers {
		if lhs, err = p.parseBinaryLayer(lhs, layer); err != nil {
			return nil, err
		}
	}
	return lhs, nil
}

func (p *Parser) parsePrefix(lhs ast.Expr, tok lexer.TokenType, op ast.UnaryOp) (ast.Expr, error) {
	ok, err := p.advanceIf(tok)
	if err != nil || !ok {
		return lhs, err
	}
	opTok := p.cur
	if lhs != nil {
		return nil, p.exprError(opTok, fmt.Sprintf("unexpected prefix %s after an operand", opTok.Type))
	}
	operand, err := p.parseSimple()
	if err != nil {
		return nil, err
	}
	return &ast.UnaryExpr{Pos: opTok.Pos, Op: op, Operand: operand}, nil
}

func (p *Parser) parseBinaryLayer(lhs ast.Expr, layer binaryLayer) (ast.Expr, error) {
	var err error
	if lhs == nil {
		if lhs, err = p.parseSimple(); err != nil {
			return nil, err
		}
	}
	for {
		if err := p.fill(); err != nil {
			return nil, err
		}
		op, ok := layer.ops[p.peek.Type]
		if !ok {
			return lhs, nil
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		opTok := p.cur

		if err := p.fill(); err != nil {
			return nil, err
		}
		missing := p.peek
		rhs, err := p.parseSimple()
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) && pe.Kind == ErrExpression && pe.Pos == missing.Pos {
				return nil, p.exprError(missing, fmt.Sprintf("missing right operand of %s expression %s", layer.name, opTok.Type))
			}
			return nil, err
		}
		lhs = &ast.BinaryExpr{Pos: opTok.Pos, Op: op, Left: lhs, Right: rhs}
	}
}

// parseSimple reads a parenthesized expression, a call, a variable reference
// or a literal.
func (p *Parser) parseSimple() (ast.Expr, error) {
	if err := p.fill(); err != nil {
		return nil, err
	}
	tok := p.peek

	switch tok.Type {
	case lexer.TokLParen:
		if err := p.next(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.TokRParen); err != nil {
			return nil, err
		}
		return inner, nil

	case lexer.TokIdent:
		if err := p.next(); err != nil {
			return nil, err
		}
		isCall, err := p.peekIs(lexer.TokLParen)
		if err != nil {
			return nil, err
		}
		if isCall {
			call, err := p.parseCall(tok)
			if err != nil {
				return nil, err
			}
			return &ast.CallExpr{Pos: tok.Pos, Call: call}, nil
		}
		return &ast.Ident{Pos: tok.Pos, Name: tok.Value}, nil

	case lexer.TokStringLit:
		return &ast.StrLiteral{Pos: tok.Pos, Value: tok.Value}, p.next()
	case lexer.TokIntLit:
		return &ast.IntLiteral{Pos: tok.Pos, Value: tok.Int}, p.next()
	case lexer.TokFloatLit:
		return &ast.FloatLiteral{Pos: tok.Pos, Value: tok.Float}, p.next()
	case lexer.TokBoolLit:
		return &ast.BoolLiteral{Pos: tok.Pos, Value: tok.Bool}, p.next()
	}

	return nil, p.exprError(tok, fmt.Sprintf("expected an operand, found %s", tok))
}
