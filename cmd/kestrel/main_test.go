package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var out, errOut bytes.Buffer
	code := run(args, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNoArgs(t *testing.T) {
	r := runCLI(t, "")
	if r.code != 1 || !strings.Contains(r.stderr, "usage:") {
		t.Errorf("got %d %q", r.code, r.stderr)
	}
}

func TestUnknownFlagCommand(t *testing.T) {
	r := runCLI(t, "", "--bogus")
	if r.code != 1 || !strings.Contains(r.stderr, "Unknown command") {
		t.Errorf("got %d %q", r.code, r.stderr)
	}
}

func TestRunFile(t *testing.T) {
	path := writeFile(t, "add.kst", `fn add(var a, var b) { return a + b; } fn main() { print("sum="); return add(1, 2); }`)
	for _, args := range [][]string{{path}, {"run", path}} {
		r := runCLI(t, "", args...)
		if r.code != 0 {
			t.Fatalf("%v: exit %d, stderr %q", args, r.code, r.stderr)
		}
		if r.stdout != "sum=3\n" {
			t.Errorf("%v: got stdout %q, want %q", args, r.stdout, "sum=3\n")
		}
	}
}

func TestRunStdin(t *testing.T) {
	r := runCLI(t, `fn main() { return 2.5 * 2.0; }`, "run", "-")
	if r.code != 0 || r.stdout != "5.0\n" {
		t.Errorf("got %d %q %q", r.code, r.stdout, r.stderr)
	}
}

func TestRunJSON(t *testing.T) {
	r := runCLI(t, `fn main() { return "hi"; }`, "run", "--json", "-")
	if r.code != 0 || r.stdout != "\"hi\"\n" {
		t.Errorf("got %d %q %q", r.code, r.stdout, r.stderr)
	}
}

func TestRunNoValue(t *testing.T) {
	r := runCLI(t, `fn main() { print("x"); }`, "-")
	if r.code != 0 || r.stdout != "x" {
		t.Errorf("got %d %q %q", r.code, r.stdout, r.stderr)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		code   int
		prefix string
	}{
		{"lex", `fn main() { return 99999999999; }`, 2, "Lexer error: "},
		{"parse", `fn main() { return 1 }`, 2, "Parser error: "},
		{"runtime", `fn main() { return 1 / 0; }`, 4, "Interpreter error: "},
		{"no main", `fn f() {}`, 4, "Interpreter error: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runCLI(t, tt.src, "run", "-")
			if r.code != tt.code {
				t.Errorf("got exit %d, want %d (stderr %q)", r.code, tt.code, r.stderr)
			}
			if !strings.HasPrefix(r.stderr, tt.prefix) {
				t.Errorf("got stderr %q, want prefix %q", r.stderr, tt.prefix)
			}
		})
	}
}

func TestRunJSONDiagnostic(t *testing.T) {
	r := runCLI(t, `fn main() { return x; }`, "run", "--json", "-")
	if r.code != 4 {
		t.Fatalf("got exit %d", r.code)
	}
	if !strings.Contains(r.stderr, `"code":"E_UNBOUND"`) {
		t.Errorf("got stderr %q", r.stderr)
	}
}

func TestRunMissingFile(t *testing.T) {
	r := runCLI(t, "", "run", filepath.Join(t.TempDir(), "nope.kst"))
	if r.code != 1 || !strings.HasPrefix(r.stderr, "IO error: cannot read file") {
		t.Errorf("got %d %q", r.code, r.stderr)
	}
}

func TestRunUsage(t *testing.T) {
	r := runCLI(t, "", "run")
	if r.code != 1 || !strings.Contains(r.stderr, "usage: kestrel run") {
		t.Errorf("got %d %q", r.code, r.stderr)
	}
}

func TestRunTimeout(t *testing.T) {
	r := runCLI(t, `fn main() { while(true){} }`, "run", "--timeout", "20ms", "-")
	if r.code != 4 || !strings.HasPrefix(r.stderr, "Interpreter error: ") {
		t.Errorf("got %d %q", r.code, r.stderr)
	}
}

func TestRunTrace(t *testing.T) {
	r := runCLI(t, `fn main() { return 1; }`, "run", "--trace", "-")
	if r.code != 0 {
		t.Fatalf("got exit %d: %s", r.code, r.stderr)
	}
	lines := strings.Split(strings.TrimSpace(r.stderr), "\n")
	if !strings.Contains(lines[0], `"event":"run_start"`) {
		t.Errorf("first trace line %q", lines[0])
	}
	if !strings.Contains(lines[len(lines)-1], `"event":"run_end"`) {
		t.Errorf("last trace line %q", lines[len(lines)-1])
	}
}

func TestRunDebugLogs(t *testing.T) {
	r := runCLI(t, `fn main() { return int("4"); }`, "run", "--debug", "-")
	if r.code != 0 {
		t.Fatalf("got exit %d: %s", r.code, r.stderr)
	}
	if !strings.Contains(r.stderr, "call builtin") {
		t.Errorf("missing debug log in %q", r.stderr)
	}
}

func TestCheck(t *testing.T) {
	r := runCLI(t, `fn main() { return 1; }`, "check", "-")
	if r.code != 0 || r.stdout != "No errors found.\n" {
		t.Errorf("got %d %q %q", r.code, r.stdout, r.stderr)
	}
	r = runCLI(t, `fn main() { return 1; }`, "check", "--json", "-")
	if r.code != 0 || r.stdout != "[]\n" {
		t.Errorf("got %d %q %q", r.code, r.stdout, r.stderr)
	}
	r = runCLI(t, `fn main() { return y; }`, "check", "-")
	if r.code != 2 || !strings.HasPrefix(r.stderr, "Check error: ") {
		t.Errorf("got %d %q", r.code, r.stderr)
	}
}

func TestFmt(t *testing.T) {
	r := runCLI(t, `fn main(){return 1;}`, "fmt", "-")
	want := "fn main() {\n  return 1;\n}\n"
	if r.code != 0 || r.stdout != want {
		t.Errorf("got %d %q, want %q", r.code, r.stdout, want)
	}
}

func TestFmtWrite(t *testing.T) {
	path := writeFile(t, "p.kst", `fn main(){return 1;}`)
	r := runCLI(t, "", "fmt", "--write", path)
	if r.code != 0 {
		t.Fatalf("got exit %d: %s", r.code, r.stderr)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "fn main() {\n  return 1;\n}\n" {
		t.Errorf("file not rewritten: %q", got)
	}
}

func TestFmtWriteStdin(t *testing.T) {
	r := runCLI(t, `fn main(){}`, "fmt", "--write", "-")
	if r.code != 1 {
		t.Errorf("got exit %d", r.code)
	}
}

func TestHelp(t *testing.T) {
	r := runCLI(t, "", "help")
	if r.code != 0 || !strings.Contains(r.stdout, "quick reference") {
		t.Errorf("got %d %q", r.code, r.stdout)
	}
	r = runCLI(t, "", "help", "match")
	if r.code != 0 || r.stdout == "" {
		t.Errorf("got %d %q", r.code, r.stdout)
	}
	r = runCLI(t, "", "help", "--index")
	if r.code != 0 || !strings.Contains(r.stdout, "Total: 5 functions") {
		t.Errorf("got %d %q", r.code, r.stdout)
	}
	r = runCLI(t, "", "help", "nosuchtopic")
	if r.code != 1 || !strings.Contains(r.stderr, "Available topics") {
		t.Errorf("got %d %q", r.code, r.stderr)
	}
}

func TestConfig(t *testing.T) {
	r := runCLI(t, "", "config")
	if r.code != 0 {
		t.Fatalf("got exit %d: %s", r.code, r.stderr)
	}
	if !strings.HasPrefix(r.stdout, "# source: built-in defaults\n") {
		t.Errorf("got %q", r.stdout)
	}
	if !strings.Contains(r.stdout, "log_level: warn") {
		t.Errorf("missing log_level in %q", r.stdout)
	}
}

func TestReplFromPipe(t *testing.T) {
	input := strings.Join([]string{
		"fn d(var x) {",
		"  return x * 2;",
		"}",
		"return d(",
		"4);",
		":fns",
		"print(\"p\");",
		"return nope;",
		"return 1;",
	}, "\n")
	r := runCLI(t, input, "repl")
	if r.code != 0 {
		t.Fatalf("got exit %d: %s", r.code, r.stderr)
	}
	want := "defined d\n8\nd\np1\n"
	if r.stdout != want {
		t.Errorf("got stdout %q, want %q", r.stdout, want)
	}
	if !strings.HasPrefix(r.stderr, "Interpreter error: ") {
		t.Errorf("got stderr %q", r.stderr)
	}
}

func TestReplUnfinishedChunk(t *testing.T) {
	r := runCLI(t, "while(true){", "repl")
	if r.code != 0 {
		t.Fatalf("got exit %d", r.code)
	}
	if !strings.HasPrefix(r.stderr, "Parser error: ") {
		t.Errorf("got stderr %q", r.stderr)
	}
}
