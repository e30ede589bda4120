package diagnostics_test

import (
	"strings"
	"testing"

	"github.com/kestrel-lang/kestrel/pkg/ast"
	"github.com/kestrel-lang/kestrel/pkg/diagnostics"
)

func TestMakeDiag(t *testing.T) {
	pos := &ast.Pos{Line: 1, Col: 1}
	d := diagnostics.MakeDiag(diagnostics.EParse, "unexpected token", pos, "check syntax")

	if d.Code != diagnostics.EParse {
		t.Errorf("got Code = %q, want %q", d.Code, diagnostics.EParse)
	}
	if d.Message != "unexpected token" {
		t.Errorf("got Message = %q, want %q", d.Message, "unexpected token")
	}
	if d.Stage != diagnostics.StageParser {
		t.Errorf("got Stage = %q, want %q", d.Stage, diagnostics.StageParser)
	}
}

func TestStageOf(t *testing.T) {
	tests := []struct {
		code string
		want diagnostics.Stage
	}{
		{diagnostics.ELex, diagnostics.StageLexer},
		{diagnostics.EParse, diagnostics.StageParser},
		{diagnostics.EToken, diagnostics.StageParser},
		{diagnostics.EExpr, diagnostics.StageParser},
		{diagnostics.EDivZero, diagnostics.StageInterpreter},
		{diagnostics.ENoMain, diagnostics.StageInterpreter},
		{diagnostics.EIO, diagnostics.StageIO},
	}
	for _, tt := range tests {
		if got := diagnostics.StageOf(tt.code); got != tt.want {
			t.Errorf("StageOf(%s): got %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestFormatDiagnosticText(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.EDivZero, "division by zero at 1:20", nil, "")
	out := diagnostics.FormatDiagnostic(d, diagnostics.FormatText)
	if out != "Interpreter error: division by zero at 1:20" {
		t.Errorf("got %q", out)
	}
}

func TestFormatDiagnosticPretty(t *testing.T) {
	pos := &ast.Pos{Line: 3, Col: 5}
	d := diagnostics.MakeDiag(diagnostics.EUnbound, "no variable named 'x'", pos, "declare it with var").WithFile("test.kst")

	out := diagnostics.FormatDiagnostic(d, diagnostics.FormatPretty)
	if !strings.Contains(out, "error[E_UNBOUND]") {
		t.Errorf("expected error code in output, got: %s", out)
	}
	if !strings.Contains(out, "test.kst:3:5") {
		t.Errorf("expected location in output, got: %s", out)
	}
	if !strings.Contains(out, "hint:") {
		t.Errorf("expected hint in output, got: %s", out)
	}
}

func TestFormatDiagnosticJSON(t *testing.T) {
	d := diagnostics.MakeDiag(diagnostics.ELex, "bad token", nil, "")
	out := diagnostics.FormatDiagnostic(d, diagnostics.FormatJSON)
	if !strings.Contains(out, `"code":"E_LEX"`) {
		t.Errorf("expected JSON code in output, got: %s", out)
	}
	if !strings.Contains(out, `"stage":"Lexer"`) {
		t.Errorf("expected JSON stage in output, got: %s", out)
	}
}

func TestFormatDiagnosticsText(t *testing.T) {
	diags := []diagnostics.Diagnostic{
		diagnostics.MakeDiag(diagnostics.EFnDup, "function 'f' defined twice", nil, ""),
		diagnostics.MakeDiag(diagnostics.ENoMain, "no function named main", nil, ""),
	}
	out := diagnostics.FormatDiagnostics(diags, diagnostics.FormatText)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]diagnostics.Format{
		"":       diagnostics.FormatText,
		"text":   diagnostics.FormatText,
		"Pretty": diagnostics.FormatPretty,
		"json":   diagnostics.FormatJSON,
	} {
		got, err := diagnostics.ParseFormat(in)
		if err != nil {
			t.Errorf("ParseFormat(%q): unexpected error %v", in, err)
		}
		if got != want {
			t.Errorf("ParseFormat(%q): got %d, want %d", in, got, want)
		}
	}
	if _, err := diagnostics.ParseFormat("xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
