package parser

import (
	"errors"
	"fmt"

	"github.com/kestrel-lang/kestrel/pkg/ast"
	"github.com/kestrel-lang/kestrel/pkg/diagnostics"
	"github.com/kestrel-lang/kestrel/pkg/lexer"
)

// ErrorKind refines a ParseError.
type ErrorKind int

const (
	// ErrSyntax is a statement that matches no instruction.
	ErrSyntax ErrorKind = iota
	// ErrToken is a token of the wrong type where the grammar requires one.
	ErrToken
	// ErrExpression is a missing or misplaced operand in an expression.
	ErrExpression
)

func (k ErrorKind) String() string {
	switch k {
	case ErrToken:
		return "token"
	case ErrExpression:
		return "expression"
	}
	return "syntax"
}

// ParseError reports the first grammar violation in a source. Want is only
// meaningful for ErrToken.
type ParseError struct {
	Kind ErrorKind
	Pos  ast.Pos
	Got  lexer.TokenType
	Want lexer.TokenType
	File string
	Msg  string
}

func (e *ParseError) Error() string {
	return e.Msg
}

// Diagnostic converts the error into a diagnostic record.
func (e *ParseError) Diagnostic() diagnostics.Diagnostic {
	code := diagnostics.EParse
	switch e.Kind {
	case ErrToken:
		code = diagnostics.EToken
	case ErrExpression:
		code = diagnostics.EExpr
	}
	pos := e.Pos
	return diagnostics.MakeDiag(code, e.Msg, &pos, "").WithFile(e.File)
}

func (p *Parser) tokenError(got lexer.Token, want lexer.TokenType) error {
	return &ParseError{
		Kind: ErrToken,
		Pos:  got.Pos,
		Got:  got.Type,
		Want: want,
		File: p.filename,
		Msg:  fmt.Sprintf("unexpected token at %s: expected %s, found %s", got.Pos, want, got),
	}
}

func (p *Parser) exprError(at lexer.Token, msg string) error {
	return &ParseError{
		Kind: ErrExpression,
		Pos:  at.Pos,
		Got:  at.Type,
		File: p.filename,
		Msg:  fmt.Sprintf("%s at %s", msg, at.Pos),
	}
}

// IsIncomplete reports whether err was caused by the source ending early, so
// that appending more text could still produce a valid program.
func IsIncomplete(err error) bool {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Got == lexer.TokEOF
	}
	return false
}
