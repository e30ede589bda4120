// Package help holds the Kestrel language reference shown by `kestrel help`.
package help

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kestrel-lang/kestrel/pkg/stdlib"
)

// Version is the language and tool version.
const Version = "0.1.0"

// QUICKREF is printed by `kestrel help` with no topic.
var QUICKREF = `Kestrel v` + Version + ` quick reference

  fn name(var a, mut var b) { ... }   functions; main() is the entry point
  var x = 1;  mut var y;               declarations (y starts as 0)
  y = "text";                          assignment (mut only; type may change)
  if (c) { } else { }                  c must be bool
  while (c) { }                        first test must be bool
  match (e) { case p: { } }            first case equal to e or true runs
  return e;  return;                   end the function

Usage:
  kestrel <file.kst>                   run a program
  kestrel run|check|fmt <file>         run, validate, or format
  kestrel repl                         interactive session
  kestrel config                       show the effective configuration

Topics (kestrel help <topic>):
  syntax  types  builtins  flow  match  diagnostics  config  examples
`

// TopicList is the display order of help topics.
var TopicList = []string{"syntax", "types", "builtins", "flow", "match", "diagnostics", "config", "examples"}

// Topics maps a topic name to its text.
var Topics = map[string]string{
	"syntax": `Syntax

A program is a list of functions. Statements end with ';'.

  fn add(var a, var b) { return a + b; }
  fn main() { var s = add(1, 2); print(s); }

Operators, in the order the parser applies them:
  !  -        prefix, applied to one operand
  ||          logical or
  &&          logical and
  < <= > >= == !=
  + -
  * / %

Each layer folds over the result of the previous one, so a*b+c needs
parentheses: (a*b)+c. Comparisons joined by || or && need parentheses too:
(a < b) || (c < d).

Strings use "double" or 'single' quotes. In files, \n is a newline and a
backslash before any other character keeps that character.`,

	"types": `Types

  int     32-bit signed, wraps on overflow       42
  float   32-bit                                  2.5
  string                                          "hi"
  bool                                            true false

Operators never convert: 1 + 1.0 is an error. Use int(), float(),
string() and bool() to convert. A mutable variable may hold a value of
another type after assignment.`,

	"builtins": `Builtins

Each takes exactly one argument, evaluated in the caller's scope.

  print(v)    write v to stdout with no newline; returns nothing
              2.0 prints 2, 2.5 prints 2.5, true prints 1
  int(v)      "12" -> 12, 2.9 -> 2, true -> 1
  float(v)    "2.5" -> 2.5, 2 -> 2.0, true -> 1.0
  string(v)   2.0 -> "2.0", true -> "true"
  bool(v)     "true"/"false" only; numbers -> v > 0

A program may not define a function with a builtin's name.`,

	"flow": `Control flow

if (cond) { } else { }
  cond must be bool.

while (cond) { }
  The first evaluation of cond must be bool. Later evaluations test
  truthiness: numbers are true when nonzero. A string names a variable
  whose value is tested instead.

return e;   ends the function with a value
return;     ends the function with no value

Scopes are per function call, not per block: declaring the same name
twice anywhere in one function is an error.`,

	"match": `match

  match (subject) {
    case 1: { ... }
    case _ > 10: { ... }
    case _: { ... }
  }

The subject is evaluated once. Cases are tried in order; the first case
whose value is true, or equal to the subject (same type and value), runs.
Inside the match, _ refers to the subject.`,

	"diagnostics": `Diagnostics

Errors print as "<Stage> error: <message>", where Stage is Lexer, Parser
or Interpreter. --pretty and --json select other renderings.

  E_LEX        number too big
  E_PARSE      no statement or function could be parsed
  E_TOKEN      an unexpected token
  E_EXPR       an operand is missing
  E_UNBOUND    variable not declared
  E_IMMUTABLE  assignment to a var that is not mut
  E_REDECLARED variable declared twice in one function
  E_UNKNOWN_FN no function with that name
  E_ARITY      wrong number of arguments
  E_TYPE       operator applied to the wrong types
  E_DIV_ZERO   division or modulo by zero
  E_CONDITION  if/while condition is not bool
  E_NO_MAIN    no main function
  E_FN_DUP     function defined twice
  E_NO_VALUE   call used as a value returned nothing
  E_CONVERT    builtin conversion failed
  E_CANCELED   --timeout expired

Exit codes: 0 ok, 1 usage or IO, 2 lex/parse/check, 4 runtime.`,

	"config": `Configuration

Looked up in ./.kestrel.yaml, then ~/.kestrel/config.yaml.

  log_level: warn            debug | info | warn | error
  output: text               text | pretty | json
  history_file: ~/.kestrel_history
  prompt: "kestrel> "
  escapes: true              honor \n escapes in source files

Flags override the file. Unknown keys are rejected.`,

	"examples": `Examples

  fn fib(var n) {
    if (n <= 1) { return n; } else { return fib(n-1) + fib(n-2); }
  }
  fn main() { return fib(10); }

  fn main() {
    mut var i = 0;
    while (i < 3) { print(i); i = i + 1; }
  }

  fn main() {
    var cmd = "exit";
    match (cmd) {
      case (_ == "quit") || (_ == "exit"): { print("bye"); }
      case _: { print("unknown"); }
    }
  }`,
}

// MatchTopic resolves an exact topic name or a unique prefix of one.
func MatchTopic(query string) (string, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[q]; ok {
		return q, content, nil
	}
	var matches []string
	if q != "" {
		for _, name := range TopicList {
			if strings.HasPrefix(name, q) {
				matches = append(matches, name)
			}
		}
	}
	switch len(matches) {
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q (topics: %s)", query, strings.Join(TopicList, ", "))
	case 1:
		return matches[0], Topics[matches[0]], nil
	}
	return "", "", fmt.Errorf("ambiguous help topic %q matches %s", query, strings.Join(matches, ", "))
}

// BuiltinIndex lists the builtins of r with their summaries.
func BuiltinIndex(r *stdlib.Registry) string {
	names := r.Names()
	sort.Strings(names)
	width := 0
	for _, n := range names {
		if len(n) > width {
			width = len(n)
		}
	}
	var b strings.Builder
	for _, n := range names {
		fmt.Fprintf(&b, "  %-*s  %s\n", width, n, r.Get(n).Summary)
	}
	fmt.Fprintf(&b, "Total: %d functions\n", len(names))
	return b.String()
}
