package parser_test

import (
	"errors"
	"testing"

	"github.com/kestrel-lang/kestrel/pkg/ast"
	"github.com/kestrel-lang/kestrel/pkg/diagnostics"
	"github.com/kestrel-lang/kestrel/pkg/lexer"
	"github.com/kestrel-lang/kestrel/pkg/parser"
)

// helper: parse source and assert no error
func mustParse(t *testing.T, source string) *ast.Program {
	t.Helper()
	prog, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if prog == nil {
		t.Fatal("expected non-nil program")
	}
	return prog
}

// helper: parse source and assert a ParseError of the given kind
func mustFail(t *testing.T, source string, kind parser.ErrorKind) *parser.ParseError {
	t.Helper()
	prog, err := parser.Parse(source)
	if err == nil {
		t.Fatalf("expected parse error, got program %s", prog)
	}
	var pe *parser.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *parser.ParseError, got %T: %v", err, err)
	}
	if pe.Kind != kind {
		t.Fatalf("expected %s error, got %s: %v", kind, pe.Kind, err)
	}
	return pe
}

// helper: the statements of main
func mainBody(t *testing.T, source string) []ast.Stmt {
	t.Helper()
	prog := mustParse(t, source)
	main := prog.Main()
	if main == nil {
		t.Fatal("no main function")
	}
	return main.Body.Stmts
}

// ---------------------------------------------------------------------------
// Round trips through String()
// ---------------------------------------------------------------------------
func TestProgramReconstruction(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"declare then assign", "fn main(){ var b; b = 5; }", "fn main(){var b;b=5;}"},
		{"parameters", "fn main(var a, var b){}", "fn main(var a,var b){}"},
		{"mutable parameter", "fn main(mut var a){}", "fn main(mut var a){}"},
		{"negative assignment", "fn main(){ b = -5; }", "fn main(){b=-5;}"},
		{"negative product", "fn main(){ var b = -5*5; }", "fn main(){var b=-5*5;}"},
		{"call initializer", "fn main(){ mut var b = test(1*2); }", "fn main(){mut var b=test(1*2);}"},
		{"return product", "fn main(){ return 5*5; }", "fn main(){return 5*5;}"},
		{"return inequality", "fn main(){return 5!=5;}", "fn main(){return 5!=5;}"},
		{"call statement", `fn main(){print("abc");}`, `fn main(){print("abc");}`},
		{"negated comparison", "fn main(){return !(5>7);}", "fn main(){return !(5>7);}"},
		{"if else", "fn main(){if(b < c){}else{}}", "fn main(){if(b<c){}else{}}"},
		{"while", "fn main(){while(a > 10){}}", "fn main(){while(a>10){}}"},
		{"match", "fn main(){match(a){ case a > b:{} case a < b:{}}}", "fn main(){match(a){case a>b:{}case a<b:{}}}"},
		{"bare return", "fn main() { return; }", "fn main(){return;}"},
		{"two functions", "fn fib() {return 0;} fn main(){}", "fn fib(){return 0;}fn main(){}"},
		{"match on comparison", "fn main(){ match(a>b){ case 1:{ return 1;}}}", "fn main(){match(a>b){case 1:{return 1;}}}"},
		{"string initializer", `fn main(){ var a="Test";}`, `fn main(){var a="Test";}`},
		{"single quoted string", `fn main(){ var a='Test';}`, `fn main(){var a="Test";}`},
		{"bool initializer", "fn main(){ var a=true;}", "fn main(){var a=true;}"},
		{"float initializer", "fn main(){ var a=5.0;}", "fn main(){var a=5.0;}"},
		{"call with arguments", "fn main(){ f(a, b+1, g()); }", "fn main(){f(a,b+1,g());}"},
		{"parenthesized or", "fn main(){ return (5 > 6) || (5 < 6); }", "fn main(){return (5>6)||(5<6);}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := mustParse(t, tt.source)
			got := prog.String()
			if got != tt.want {
				t.Fatalf("got  %s\nwant %s", got, tt.want)
			}
			// reconstruction is a fixed point
			again := mustParse(t, got)
			if again.String() != got {
				t.Errorf("reparse changed text: %s", again.String())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Tree shape
// ---------------------------------------------------------------------------
func TestDeclarationThenAssignment(t *testing.T) {
	stmts := mainBody(t, "fn main(){ var b; b = 5; }")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 instructions, got %d", len(stmts))
	}
	decl, ok := stmts[0].(*ast.VarDecl)
	if !ok {
		t.Fatalf("expected VarDecl, got %T", stmts[0])
	}
	if decl.Mutable || decl.Name != "b" || decl.Init != nil {
		t.Errorf("unexpected declaration %+v", decl)
	}
	assign, ok := stmts[1].(*ast.AssignStmt)
	if !ok {
		t.Fatalf("expected AssignStmt, got %T", stmts[1])
	}
	if assign.Name != "b" || assign.Value.String() != "5" {
		t.Errorf("unexpected assignment %s", assign)
	}
	lit, ok := assign.Value.(*ast.IntLiteral)
	if !ok || lit.Value != 5 {
		t.Errorf("expected literal 5, got %#v", assign.Value)
	}
}

func TestFunctionParameters(t *testing.T) {
	prog := mustParse(t, "fn main(var a, mut var b){}")
	params := prog.Main().Params
	if len(params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(params))
	}
	if params[0].Name != "a" || params[0].Mutable {
		t.Errorf("param 0: %+v", params[0])
	}
	if params[1].Name != "b" || !params[1].Mutable {
		t.Errorf("param 1: %+v", params[1])
	}
}

func TestMutableCallDeclaration(t *testing.T) {
	stmts := mainBody(t, "fn main(){ mut var b = test(1*2); }")
	decl := stmts[0].(*ast.VarDecl)
	if !decl.Mutable {
		t.Error("expected mutable declaration")
	}
	call, ok := decl.Init.(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected CallExpr, got %T", decl.Init)
	}
	if call.Call.Name != "test" || len(call.Call.Args) != 1 {
		t.Errorf("unexpected call %s", call)
	}
}

func TestPositions(t *testing.T) {
	stmts := mainBody(t, "fn main() {\n  return 10 / x;\n}")
	ret := stmts[0].(*ast.ReturnStmt)
	if ret.Pos != (ast.Pos{Line: 2, Col: 3}) {
		t.Errorf("return at %s", ret.Pos)
	}
	div := ret.Value.(*ast.BinaryExpr)
	if div.Pos != (ast.Pos{Line: 2, Col: 13}) {
		t.Errorf("operator at %s", div.Pos)
	}
}

func TestParseProgramIdempotent(t *testing.T) {
	p := parser.New(lexer.New("fn main(){}"))
	first, err := p.ParseProgram()
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.ParseProgram()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Error("second ParseProgram call built a new program")
	}
}

func TestEmptySource(t *testing.T) {
	prog := mustParse(t, "")
	if len(prog.Functions) != 0 {
		t.Errorf("expected no functions, got %d", len(prog.Functions))
	}
}

// ---------------------------------------------------------------------------
// Operator layering
// ---------------------------------------------------------------------------
func TestExpressionLayering(t *testing.T) {
	tests := []struct {
		source string
		want   string // fully parenthesized shape
	}{
		{"a+b*c", "((a+b)*c)"},
		{"a*b", "(a*b)"},
		{"a-b-c", "((a-b)-c)"},
		{"a<b+c", "((a<b)+c)"},
		{"a||b&&c", "((a||b)&&c)"},
		{"-5*5", "((-5)*5)"},
		{"!(5>7)", "(!(5>7))"},
		{"!a", "(!a)"},
		{"(a*b)+c", "((a*b)+c)"},
		{"a==(b||c)", "(a==(b||c))"},
		{"f(a)*2", "(f(a)*2)"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			expr, err := parser.ParseExpr(tt.source)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := shape(expr); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func shape(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.BinaryExpr:
		return "(" + shape(n.Left) + string(n.Op) + shape(n.Right) + ")"
	case *ast.UnaryExpr:
		return "(" + string(n.Op) + shape(n.Operand) + ")"
	}
	return e.String()
}

func TestLaterLayerCannotFeedEarlierLayer(t *testing.T) {
	// a*b consumes the multiplicative layer last, so "+" is left over
	if _, err := parser.ParseExpr("a*b+c"); err == nil {
		t.Fatal("expected a*b+c to leave '+' unparsed")
	}
	// !a is complete before the "-" prefix layer runs
	if _, err := parser.ParseExpr("!a-b"); err == nil {
		t.Fatal("expected !a-b to fail")
	}
}

func TestOrOfComparisonsFails(t *testing.T) {
	pe := mustFail(t, "fn main() { return 5 > 6 || 5 < 6; }", parser.ErrToken)
	if pe.Got != lexer.TokOr || pe.Want != lexer.TokSemicolon {
		t.Errorf("expected ';' but found '||', got %v want %v", pe.Got, pe.Want)
	}
}

// ---------------------------------------------------------------------------
// Failures
// ---------------------------------------------------------------------------
func TestParseFailures(t *testing.T) {
	tests := []struct {
		name   string
		source string
		kind   parser.ErrorKind
	}{
		{"bare identifier", "fn main(){a}", parser.ErrToken},
		{"return without semicolon", "fn main(){ return }", parser.ErrExpression},
		{"var before mut", "fn main(){ var mut a; }", parser.ErrToken},
		{"match without case", "fn main(){match(a){ if(a > b) {}}}", parser.ErrToken},
		{"if without block", "fn main(){if(a > b)}", parser.ErrToken},
		{"if without condition", "fn main(){if(){}}", parser.ErrExpression},
		{"unknown type keyword", "fn main(){int a;}", parser.ErrToken},
		{"typed parameter", "fn main(int a,){int a;}", parser.ErrToken},
		{"function without body", "fn main();", parser.ErrToken},
		{"unclosed parameter list", "fn main( {}", parser.ErrToken},
		{"missing left operand", "fn main() { return >b; }", parser.ErrExpression},
		{"missing right operand", "fn main() { return b>; }", parser.ErrExpression},
		{"lone operator", "fn main() { return >; }", parser.ErrExpression},
		{"expression in parameters", "fn main(var a*b) {}", parser.ErrToken},
		{"trailing parameter comma", "fn main(var a,) {}", parser.ErrToken},
		{"trailing argument comma", "fn main() { f(a,); }", parser.ErrExpression},
		{"missing comma in arguments", "fn main() { f(a b); }", parser.ErrToken},
		{"statement outside function", "var a = 5;", parser.ErrToken},
		{"keyword where instruction expected", "fn main(){ else {} }", parser.ErrSyntax},
		{"unterminated block", "fn main(){ var a;", parser.ErrSyntax},
		{"unterminated string", `fn main(){ print("abc); }`, parser.ErrExpression},
		{"invalid character", "fn main(){ return a # b; }", parser.ErrToken},
		{"double prefix", "fn main(){ return !-a; }", parser.ErrExpression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustFail(t, tt.source, tt.kind)
		})
	}
}

func TestParseErrorDiagnostic(t *testing.T) {
	_, err := parser.ParseFile("bad.kst", "fn main() {\n  return b>;\n}")
	var pe *parser.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	d := pe.Diagnostic()
	if d.Code != diagnostics.EExpr {
		t.Errorf("expected E_EXPR, got %s", d.Code)
	}
	if d.File != "bad.kst" {
		t.Errorf("expected file bad.kst, got %q", d.File)
	}
	if d.Pos == nil || *d.Pos != (ast.Pos{Line: 2, Col: 12}) {
		t.Errorf("expected position 2:12, got %v", d.Pos)
	}
	if d.Stage != diagnostics.StageParser {
		t.Errorf("expected Parser stage, got %s", d.Stage)
	}
}

func TestLexErrorPassesThrough(t *testing.T) {
	_, err := parser.Parse("fn main(){ return 2147483649; }")
	var le *lexer.LexError
	if !errors.As(err, &le) {
		t.Fatalf("expected LexError, got %T: %v", err, err)
	}
}

func TestIsIncomplete(t *testing.T) {
	incomplete := []string{
		"fn main(){",
		"fn main(){ if(a>b){ print(a);",
		"fn main(",
		"fn f(){ return 1 +",
	}
	for _, src := range incomplete {
		_, err := parser.Parse(src)
		if !parser.IsIncomplete(err) {
			t.Errorf("%q: expected incomplete input, got %v", src, err)
		}
	}
	_, err := parser.Parse("fn main(){ return >; }")
	if parser.IsIncomplete(err) {
		t.Errorf("complete but invalid input reported as incomplete: %v", err)
	}
}
