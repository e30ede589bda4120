// Package diagnostics defines Kestrel diagnostic types for lex, parse, check and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kestrel-lang/kestrel/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex        = "E_LEX"
	EParse      = "E_PARSE"
	EToken      = "E_TOKEN"
	EExpr       = "E_EXPR"
	EUnbound    = "E_UNBOUND"
	EImmutable  = "E_IMMUTABLE"
	ERedeclared = "E_REDECLARED"
	EUnknownFn  = "E_UNKNOWN_FN"
	EArity      = "E_ARITY"
	EType       = "E_TYPE"
	EDivZero    = "E_DIV_ZERO"
	ECondition  = "E_CONDITION"
	ENoMain     = "E_NO_MAIN"
	EFnDup      = "E_FN_DUP"
	ENoValue    = "E_NO_VALUE"
	EConvert    = "E_CONVERT"
	ECanceled   = "E_CANCELED"
	EIO         = "E_IO"
	EUsage      = "E_USAGE"
)

// Stage names the pipeline stage a diagnostic belongs to.
type Stage string

const (
	StageLexer       Stage = "Lexer"
	StageParser      Stage = "Parser"
	StageCheck       Stage = "Check"
	StageInterpreter Stage = "Interpreter"
	StageIO          Stage = "IO"
)

// StageOf maps a diagnostic code to the stage that raises it.
func StageOf(code string) Stage {
	switch code {
	case ELex:
		return StageLexer
	case EParse, EToken, EExpr:
		return StageParser
	case EIO, EUsage:
		return StageIO
	}
	return StageInterpreter
}

// Diagnostic represents a lex, parse, check, or runtime diagnostic.
type Diagnostic struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	File    string   `json:"file,omitempty"`
	Pos     *ast.Pos `json:"pos,omitempty"`
	Hint    string   `json:"hint,omitempty"`
	Stage   Stage    `json:"stage,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, pos *ast.Pos, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Pos:     pos,
		Hint:    hint,
		Stage:   StageOf(code),
	}
}

// WithFile returns a copy of d attributed to the given file.
func (d Diagnostic) WithFile(file string) Diagnostic {
	d.File = file
	return d
}

// Format selects how diagnostics are rendered.
type Format int

const (
	// FormatText renders "<Stage> error: <message>".
	FormatText Format = iota
	// FormatPretty renders a compiler-style block with a location arrow.
	FormatPretty
	// FormatJSON renders the diagnostic record as JSON.
	FormatJSON
)

// ParseFormat converts a config or flag value into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "pretty":
		return FormatPretty, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatText, fmt.Errorf("unknown output format %q", s)
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, f Format) string {
	stage := d.Stage
	if stage == "" {
		stage = StageOf(d.Code)
	}
	switch f {
	case FormatJSON:
		b, _ := json.Marshal(d)
		return string(b)
	case FormatPretty:
		loc := "<unknown>"
		if d.Pos != nil {
			file := d.File
			if file == "" {
				file = "<input>"
			}
			loc = fmt.Sprintf("%s:%d:%d", file, d.Pos.Line, d.Pos.Col)
		}
		out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
		if d.Hint != "" {
			out += fmt.Sprintf("\n  hint: %s", d.Hint)
		}
		return out
	}
	return fmt.Sprintf("%s error: %s", stage, d.Message)
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, f Format) string {
	if f == FormatJSON {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	sep := "\n"
	if f == FormatPretty {
		sep = "\n\n"
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, f)
	}
	return strings.Join(parts, sep)
}

// Diagnoser is implemented by errors that can describe themselves as a diagnostic.
type Diagnoser interface {
	error
	Diagnostic() Diagnostic
}
