package lexer

import "fmt"

// TokenType identifies the kind of token.
type TokenType int

const (
	TokIdent TokenType = iota

	// Literals
	TokStringLit
	TokIntLit
	TokFloatLit
	TokBoolLit

	// Operators
	TokOr
	TokAnd
	TokEq
	TokNeq
	TokLtEq
	TokGtEq
	TokStar
	TokSlash
	TokPercent
	TokPlus
	TokMinus
	TokLt
	TokGt
	TokBang

	// Symbols
	TokLBrace
	TokRBrace
	TokLParen
	TokRParen
	TokComma
	TokApostrophe
	TokQuote
	TokColon
	TokSemicolon
	TokAssign
	TokBackslash

	// Keywords
	TokReturn
	TokVar
	TokMut
	TokIf
	TokElse
	TokWhile
	TokMatch
	TokCase
	TokFn

	TokEOF
	TokInvalid
)

// Keywords maps reserved words to their token types. true and false are
// boolean literals rather than keywords.
var Keywords = map[string]TokenType{
	"return": TokReturn,
	"var":    TokVar,
	"mut":    TokMut,
	"if":     TokIf,
	"else":   TokElse,
	"while":  TokWhile,
	"match":  TokMatch,
	"case":   TokCase,
	"fn":     TokFn,
}

// Operators maps operator lexemes to their token types.
var Operators = map[string]TokenType{
	"||": TokOr,
	"&&": TokAnd,
	"==": TokEq,
	"!=": TokNeq,
	"<=": TokLtEq,
	">=": TokGtEq,
	"*":  TokStar,
	"/":  TokSlash,
	"%":  TokPercent,
	"+":  TokPlus,
	"-":  TokMinus,
	"<":  TokLt,
	">":  TokGt,
	"!":  TokBang,
}

// Symbols maps single-character punctuation to its token type.
var Symbols = map[string]TokenType{
	"{":  TokLBrace,
	"}":  TokRBrace,
	"(":  TokLParen,
	")":  TokRParen,
	",":  TokComma,
	"'":  TokApostrophe,
	`"`:  TokQuote,
	":":  TokColon,
	";":  TokSemicolon,
	"=":  TokAssign,
	"\\": TokBackslash,
}

var lexemes = func() map[TokenType]string {
	m := make(map[TokenType]string, len(Keywords)+len(Operators)+len(Symbols))
	for _, table := range []map[string]TokenType{Keywords, Operators, Symbols} {
		for text, typ := range table {
			m[typ] = text
		}
	}
	return m
}()

// Lexeme returns the fixed source text of a keyword, operator or symbol.
func Lexeme(t TokenType) (string, bool) {
	text, ok := lexemes[t]
	return text, ok
}

func (t TokenType) String() string {
	switch t {
	case TokIdent:
		return "identifier"
	case TokStringLit:
		return "string literal"
	case TokIntLit:
		return "integer literal"
	case TokFloatLit:
		return "float literal"
	case TokBoolLit:
		return "boolean literal"
	case TokEOF:
		return "end of file"
	case TokInvalid:
		return "invalid token"
	}
	if text, ok := lexemes[t]; ok {
		return fmt.Sprintf("'%s'", text)
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokReturn && t <= TokFn
}

// IsOperator reports whether t is an operator.
func (t TokenType) IsOperator() bool {
	return t >= TokOr && t <= TokBang
}

// IsSymbol reports whether t is a punctuation symbol.
func (t TokenType) IsSymbol() bool {
	return t >= TokLBrace && t <= TokBackslash
}
