package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/kestrel-lang/kestrel/pkg/ast"
	"github.com/kestrel-lang/kestrel/pkg/diagnostics"
	"github.com/kestrel-lang/kestrel/pkg/evaluator"
	"github.com/kestrel-lang/kestrel/pkg/lexer"
	"github.com/kestrel-lang/kestrel/pkg/parser"
)

// Session keeps the functions defined during an interactive session. Each
// chunk that is not a definition runs as the body of a fresh main, so
// variables do not outlive the chunk that declared them.
type Session struct {
	rt    *Runtime
	fns   map[string]*ast.Function
	order []string
}

// EvalResult is the outcome of one chunk. Defined lists the functions a
// definition chunk added or replaced; Value is set by a body chunk whose
// main returned a value.
type EvalResult struct {
	Value   evaluator.Value
	Defined []string
}

// NewSession starts an empty session on rt.
func (rt *Runtime) NewSession() *Session {
	return &Session{rt: rt, fns: make(map[string]*ast.Function)}
}

// Functions returns the names of the session's functions in definition order.
func (s *Session) Functions() []string {
	return append([]string(nil), s.order...)
}

// Eval runs one chunk of input. IsIncomplete reports whether a returned
// error only means the chunk needs more lines.
func (s *Session) Eval(ctx context.Context, chunk string) (*EvalResult, error) {
	first, err := lexer.New(chunk).NextToken()
	if err != nil {
		return nil, wrapDiagnostic(err, "")
	}
	switch first.Type {
	case lexer.TokEOF:
		return &EvalResult{}, nil
	case lexer.TokFn:
		return s.define(chunk)
	}
	return s.run(ctx, chunk)
}

func (s *Session) define(chunk string) (*EvalResult, error) {
	program, err := parser.Parse(chunk)
	if err != nil {
		return nil, wrapDiagnostic(err, "")
	}
	seen := make(map[string]bool)
	for _, fn := range program.Functions {
		if s.rt.builtins.Get(fn.Name) != nil {
			return nil, definitionError(fn, "function %s shadows a builtin", fn.Name)
		}
		if seen[fn.Name] {
			return nil, definitionError(fn, "function %s is defined twice", fn.Name)
		}
		seen[fn.Name] = true
	}
	res := &EvalResult{}
	for _, fn := range program.Functions {
		if _, ok := s.fns[fn.Name]; !ok {
			s.order = append(s.order, fn.Name)
		}
		s.fns[fn.Name] = fn
		res.Defined = append(res.Defined, fn.Name)
	}
	return res, nil
}

func definitionError(fn *ast.Function, format string, args ...any) error {
	pos := fn.Pos
	msg := fmt.Sprintf(format, args...) + " at " + pos.String()
	return &DiagnosticError{
		Diagnostics: []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EFnDup, msg, &pos, "")},
	}
}

func (s *Session) run(ctx context.Context, chunk string) (*EvalResult, error) {
	src := newChunkSource(chunk)
	program, err := parser.New(src).ParseProgram()
	if err != nil {
		if src.closedEarly(err) {
			return nil, &IncompleteError{Err: err}
		}
		return nil, wrapDiagnostic(err, "")
	}
	if len(program.Functions) != 1 {
		pos := program.Functions[1].Pos
		msg := "statements must not close the enclosing block at " + pos.String()
		return nil, &DiagnosticError{
			Diagnostics: []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EParse, msg, &pos, "")},
		}
	}
	body := program.Functions[0]
	prog := &ast.Program{Pos: program.Pos}
	for _, name := range s.order {
		if name != "main" {
			prog.Functions = append(prog.Functions, s.fns[name])
		}
	}
	prog.Functions = append(prog.Functions, body)

	res, err := s.rt.Execute(ctx, prog)
	if err != nil {
		return nil, err
	}
	return &EvalResult{Value: res.Value}, nil
}

// IncompleteError marks a chunk that ended before its statements were closed.
type IncompleteError struct {
	Err error
}

func (e *IncompleteError) Error() string {
	return e.Err.Error()
}

func (e *IncompleteError) Unwrap() error {
	return e.Err
}

// IsIncomplete reports whether err came from input that ended too early.
func IsIncomplete(err error) bool {
	var ie *IncompleteError
	if errors.As(err, &ie) {
		return true
	}
	return parser.IsIncomplete(err)
}

// chunkSource wraps a chunk as "fn main() { <chunk> }". The synthetic
// tokens sit at 0:0 except the closing brace, which takes the position of
// the chunk's end of input.
type chunkSource struct {
	head  []lexer.Token
	lex   *lexer.Lexer
	end   *ast.Pos
	depth int
	// overclosed is set once the chunk closes more braces than it opens.
	overclosed bool
}

func newChunkSource(chunk string) *chunkSource {
	return &chunkSource{
		head: []lexer.Token{
			{Type: lexer.TokFn, Value: "fn"},
			{Type: lexer.TokIdent, Value: "main"},
			{Type: lexer.TokLParen, Value: "("},
			{Type: lexer.TokRParen, Value: ")"},
			{Type: lexer.TokLBrace, Value: "{"},
		},
		lex: lexer.New(chunk),
	}
}

func (c *chunkSource) NextToken() (lexer.Token, error) {
	if len(c.head) > 0 {
		tok := c.head[0]
		c.head = c.head[1:]
		return tok, nil
	}
	if c.end != nil {
		return lexer.Token{Type: lexer.TokEOF, Pos: *c.end}, nil
	}
	tok, err := c.lex.NextToken()
	if err != nil {
		return tok, err
	}
	if tok.Type == lexer.TokEOF {
		pos := tok.Pos
		c.end = &pos
		return lexer.Token{Type: lexer.TokRBrace, Value: "}", Pos: pos}, nil
	}
	switch tok.Type {
	case lexer.TokLBrace:
		c.depth++
	case lexer.TokRBrace:
		c.depth--
		if c.depth < 0 {
			c.overclosed = true
		}
	}
	return tok, nil
}

// closedEarly reports whether the parse failed on the synthetic closing
// brace or on the end of input behind it.
func (c *chunkSource) closedEarly(err error) bool {
	var pe *parser.ParseError
	if !errors.As(err, &pe) || c.end == nil || c.overclosed {
		return false
	}
	if pe.Got == lexer.TokEOF {
		return true
	}
	return pe.Got == lexer.TokRBrace && pe.Pos == *c.end
}
