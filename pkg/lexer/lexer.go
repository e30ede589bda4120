// Package lexer implements the Kestrel tokenizer.
package lexer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kestrel-lang/kestrel/pkg/ast"
	"github.com/kestrel-lang/kestrel/pkg/diagnostics"
)

// Token represents a single lexer token. Value holds the identifier name,
// the decoded string contents, or the lexeme for every other kind; Int,
// Float and Bool hold the decoded literal.
type Token struct {
	Type  TokenType
	Value string
	Int   int32
	Float float32
	Bool  bool
	Pos   ast.Pos
}

func (t Token) String() string {
	switch t.Type {
	case TokIdent:
		return "identifier " + t.Value
	case TokStringLit:
		return "string " + ast.QuoteString(t.Value)
	case TokEOF:
		return "end of file"
	case TokInvalid:
		return fmt.Sprintf("invalid token %q", t.Value)
	}
	return t.Type.String()
}

type scanner struct {
	source   string
	filename string
	escapes  bool
	pos      int
	line     int
	col      int
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) position() ast.Pos {
	return ast.Pos{Line: s.line, Col: s.col}
}

func (s *scanner) skipWhitespace() {
	for !s.atEnd() && isSpace(s.peek()) {
		s.advance()
	}
}

func isSpace(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isWordStart(ch byte) bool {
	return isLetter(ch) || ch == '_'
}

func isWordPart(ch byte) bool {
	return isWordStart(ch) || isDigit(ch)
}

// Lexer produces tokens on demand from one source.
type Lexer struct {
	s *scanner
}

// New creates a lexer over an in-memory source. Backslash has no escape
// meaning inside string literals.
func New(source string) *Lexer {
	return &Lexer{s: &scanner{source: source, line: 1, col: 1}}
}

// NewFile creates a lexer over the contents of a file. Inside string
// literals `\n` reads as a newline and a backslash before any other
// character (including the closing quote) yields that character.
func NewFile(filename, source string) *Lexer {
	return &Lexer{s: &scanner{source: source, filename: filename, escapes: true, line: 1, col: 1}}
}

// Filename returns the file the lexer reads, or "" for in-memory sources.
func (l *Lexer) Filename() string {
	return l.s.filename
}

// NextToken returns the next token. Once the source is exhausted every call
// returns TokEOF. The only error is a numeric literal that does not fit in a
// signed 32-bit integer.
func (l *Lexer) NextToken() (Token, error) {
	s := l.s
	s.skipWhitespace()
	start := s.position()

	if s.atEnd() {
		return Token{Type: TokEOF, Pos: start}, nil
	}

	ch := s.peek()
	switch {
	case isWordStart(ch):
		return s.scanWord(start), nil
	case isDigit(ch):
		return s.scanNumber(start)
	case ch == '"' || ch == '\'':
		return s.scanString(start), nil
	}

	if tok, ok := s.scanOperator(start); ok {
		return tok, nil
	}
	if typ, ok := Symbols[string(ch)]; ok {
		s.advance()
		return Token{Type: typ, Value: string(ch), Pos: start}, nil
	}

	s.advance()
	return Token{Type: TokInvalid, Value: string(ch), Pos: start}, nil
}

func (s *scanner) scanWord(start ast.Pos) Token {
	startPos := s.pos
	for !s.atEnd() && isWordPart(s.peek()) {
		s.advance()
	}
	text := s.source[startPos:s.pos]

	if typ, ok := Keywords[text]; ok {
		return Token{Type: typ, Value: text, Pos: start}
	}
	switch text {
	case "true":
		return Token{Type: TokBoolLit, Value: text, Bool: true, Pos: start}
	case "false":
		return Token{Type: TokBoolLit, Value: text, Bool: false, Pos: start}
	}
	return Token{Type: TokIdent, Value: text, Pos: start}
}

// scanNumber reads digits with at most one '.'. Both the whole part and the
// digits after the dot must fit in an int32. Digits followed directly by a
// letter produce TokInvalid and leave the letters for the next token.
func (s *scanner) scanNumber(start ast.Pos) (Token, error) {
	startPos := s.pos
	var whole, frac int64
	dot := false

	for !s.atEnd() {
		ch := s.peek()
		if ch == '.' && !dot {
			dot = true
			s.advance()
			continue
		}
		if !isDigit(ch) {
			break
		}
		s.advance()
		d := int64(ch - '0')
		if dot {
			frac = frac*10 + d
			if frac > math.MaxInt32 {
				return Token{}, s.lexError(start, "number too big")
			}
		} else {
			whole = whole*10 + d
			if whole > math.MaxInt32 {
				return Token{}, s.lexError(start, "number too big")
			}
		}
	}

	text := s.source[startPos:s.pos]
	if isLetter(s.peek()) {
		return Token{Type: TokInvalid, Value: text, Pos: start}, nil
	}
	if !dot {
		return Token{Type: TokIntLit, Value: text, Int: int32(whole), Pos: start}, nil
	}
	f, err := strconv.ParseFloat(text, 32)
	if err != nil {
		return Token{}, s.lexError(start, fmt.Sprintf("malformed number %q", text))
	}
	return Token{Type: TokFloatLit, Value: text, Float: float32(f), Pos: start}, nil
}

// scanString reads a literal delimited by the quote under the cursor. An
// unterminated literal consumes the rest of the source and comes back as the
// bare quote symbol with the partial contents in Value.
func (s *scanner) scanString(start ast.Pos) Token {
	delim := s.advance()
	var buf strings.Builder

	for !s.atEnd() {
		ch := s.peek()
		if ch == delim {
			s.advance()
			return Token{Type: TokStringLit, Value: buf.String(), Pos: start}
		}
		if ch == '\\' && s.escapes {
			s.advance()
			if s.atEnd() {
				break
			}
			esc := s.advance()
			if esc == 'n' {
				buf.WriteByte('\n')
			} else {
				buf.WriteByte(esc)
			}
			continue
		}
		buf.WriteByte(s.advance())
	}

	return Token{Type: Symbols[string(delim)], Value: buf.String(), Pos: start}
}

func (s *scanner) scanOperator(start ast.Pos) (Token, bool) {
	if next := s.peekAt(1); next != 0 {
		two := string([]byte{s.peek(), next})
		if typ, ok := Operators[two]; ok {
			s.advance()
			s.advance()
			return Token{Type: typ, Value: two, Pos: start}, true
		}
	}
	one := string(s.peek())
	if typ, ok := Operators[one]; ok {
		s.advance()
		return Token{Type: typ, Value: one, Pos: start}, true
	}
	return Token{}, false
}

func (s *scanner) lexError(pos ast.Pos, msg string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		fmt.Sprintf("%s at %s", msg, pos),
		&pos,
		"",
	).WithFile(s.filename)
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

// Diagnostic returns the underlying diagnostic.
func (e *LexError) Diagnostic() diagnostics.Diagnostic {
	return e.Diag
}

// Tokenize breaks an in-memory source into a slice of tokens ending with TokEOF.
func Tokenize(source string) ([]Token, error) {
	return collect(New(source))
}

// TokenizeFile is Tokenize for a file-backed source.
func TokenizeFile(filename, source string) ([]Token, error) {
	return collect(NewFile(filename, source))
}

func collect(l *Lexer) ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			return tokens, nil
		}
	}
}
