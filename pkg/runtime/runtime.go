// Package runtime provides the top-level Kestrel runtime orchestrator.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kestrel-lang/kestrel/pkg/ast"
	"github.com/kestrel-lang/kestrel/pkg/diagnostics"
	"github.com/kestrel-lang/kestrel/pkg/evaluator"
	"github.com/kestrel-lang/kestrel/pkg/formatter"
	"github.com/kestrel-lang/kestrel/pkg/parser"
	"github.com/kestrel-lang/kestrel/pkg/stdlib"
	"github.com/kestrel-lang/kestrel/pkg/validator"
)

// Result holds the outcome of a program execution. Value is nil when main
// returned nothing.
type Result struct {
	Value evaluator.Value
}

// Runtime wires together all Kestrel components for program execution.
type Runtime struct {
	builtins *stdlib.Registry
	stdout   io.Writer
	logger   *slog.Logger
	trace    func(event evaluator.TraceEvent)
	runID    string
	timeout  time.Duration
	escapes  bool
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithBuiltins sets the builtin registry.
func WithBuiltins(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.builtins = r
	}
}

// WithStdout sets the writer print writes to.
func WithStdout(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.stdout = w
	}
}

// WithLogger sets the logger handed to the evaluator.
func WithLogger(l *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithTimeout bounds each Run. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(rt *Runtime) {
		rt.timeout = d
	}
}

// WithEscapes controls whether named sources honor backslash escapes in
// string literals. In-memory sources (filename "" or "-") never do.
func WithEscapes(on bool) Option {
	return func(rt *Runtime) {
		rt.escapes = on
	}
}

// New creates a new Runtime with the given options.
// By default the five builtins are registered and print writes to os.Stdout.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		builtins: stdlib.Defaults(),
		stdout:   os.Stdout,
		runID:    "cli",
		escapes:  true,
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.logger == nil {
		rt.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return rt
}

// Parse lexes and parses a source. Lex and parse failures are returned as a
// *DiagnosticError attributed to filename.
func (rt *Runtime) Parse(source, filename string) (*ast.Program, error) {
	var (
		program *ast.Program
		err     error
	)
	if rt.escapes && filename != "" && filename != "-" {
		program, err = parser.ParseFile(filename, source)
	} else {
		program, err = parser.Parse(source)
	}
	if err != nil {
		return nil, wrapDiagnostic(err, filename)
	}
	return program, nil
}

// Run parses and executes a Kestrel program. The static validator is not
// consulted, so every mistake surfaces as the interpreter reports it.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, err := rt.Parse(source, filename)
	if err != nil {
		return nil, err
	}
	return rt.Execute(ctx, program)
}

// Execute runs an already parsed program.
func (rt *Runtime) Execute(ctx context.Context, program *ast.Program) (*Result, error) {
	if rt.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.timeout)
		defer cancel()
	}
	res, err := evaluator.Execute(ctx, program, rt.buildExecOptions())
	if err != nil {
		return nil, err
	}
	return &Result{Value: res.Value}, nil
}

// Check parses and validates a Kestrel program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, err := rt.Parse(source, filename)
	if err != nil {
		var de *DiagnosticError
		if errors.As(err, &de) {
			return de.Diagnostics
		}
		return []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EParse, err.Error(), nil, "")}
	}
	diags := validator.Validate(program)
	for i := range diags {
		diags[i] = diags[i].WithFile(displayName(filename))
	}
	return diags
}

// Format parses and formats a Kestrel program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, err := rt.Parse(source, filename)
	if err != nil {
		return "", err
	}
	return formatter.Format(program), nil
}

// buildExecOptions constructs evaluator options from the runtime's configuration.
func (rt *Runtime) buildExecOptions() evaluator.ExecOptions {
	return evaluator.ExecOptions{
		Builtins: rt.builtins.Builtins(),
		Stdout:   rt.stdout,
		Logger:   rt.logger,
		Trace:    rt.trace,
		RunID:    rt.runID,
	}
}

// DiagnosticError wraps lex, parse or check diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
	Err         error
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e *DiagnosticError) Unwrap() error {
	return e.Err
}

func wrapDiagnostic(err error, filename string) error {
	var d diagnostics.Diagnoser
	if !errors.As(err, &d) {
		return err
	}
	return &DiagnosticError{
		Diagnostics: []diagnostics.Diagnostic{d.Diagnostic().WithFile(displayName(filename))},
		Err:         err,
	}
}

func displayName(filename string) string {
	if filename == "-" {
		return "<stdin>"
	}
	return filename
}

// Diagnose converts any error produced by the runtime into a diagnostic.
func Diagnose(err error) diagnostics.Diagnostic {
	var de *DiagnosticError
	if errors.As(err, &de) && len(de.Diagnostics) > 0 {
		return de.Diagnostics[0]
	}
	var d diagnostics.Diagnoser
	if errors.As(err, &d) {
		return d.Diagnostic()
	}
	return diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")
}
