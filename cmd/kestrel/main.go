// Command kestrel is the Kestrel interpreter entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kestrel-lang/kestrel/pkg/config"
	"github.com/kestrel-lang/kestrel/pkg/diagnostics"
	"github.com/kestrel-lang/kestrel/pkg/evaluator"
	"github.com/kestrel-lang/kestrel/pkg/help"
	"github.com/kestrel-lang/kestrel/pkg/runtime"
	"github.com/kestrel-lang/kestrel/pkg/stdlib"
)

const usage = `usage: kestrel <file.kst>
       kestrel <command> [options]
commands: run, check, fmt, repl, help, config`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// cli carries the process streams and the loaded configuration through the
// subcommands.
type cli struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	cfg     *config.Config
	cfgPath string
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage)
		return 1
	}

	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	cwd, _ := os.Getwd()
	cfg, path, err := config.Load(cwd)
	if err != nil {
		c.printDiag(diagnostics.MakeDiag(diagnostics.EUsage, err.Error(), nil, ""), diagnostics.FormatText)
		return 1
	}
	c.cfg, c.cfgPath = cfg, path

	cmd := args[0]
	switch cmd {
	case "run":
		return c.cmdRun(args[1:])
	case "check":
		return c.cmdCheck(args[1:])
	case "fmt":
		return c.cmdFmt(args[1:])
	case "repl":
		return c.cmdRepl(args[1:])
	case "help", "--help", "-h":
		return c.cmdHelp(args[1:])
	case "config":
		return c.cmdConfig(args[1:])
	case "version", "--version":
		fmt.Fprintf(stdout, "kestrel %s\n", help.Version)
		return 0
	}
	if cmd == "-" || !strings.HasPrefix(cmd, "-") {
		return c.cmdRun(args)
	}
	fmt.Fprintf(stderr, "Unknown command: %s\n%s\n", cmd, usage)
	return 1
}

// outputFlags registers the diagnostic rendering flags shared by run and check.
type outputFlags struct {
	json   bool
	pretty bool
}

func (o *outputFlags) register(fs *flag.FlagSet) {
	fs.BoolVar(&o.json, "json", false, "print diagnostics and the result as JSON")
	fs.BoolVar(&o.pretty, "pretty", false, "print diagnostics with source locations and hints")
}

func (o *outputFlags) format(cfg *config.Config) diagnostics.Format {
	switch {
	case o.json:
		return diagnostics.FormatJSON
	case o.pretty:
		return diagnostics.FormatPretty
	}
	return cfg.Format()
}

func (c *cli) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

// fileArg returns the single positional argument of a subcommand.
func (c *cli) fileArg(fs *flag.FlagSet, synopsis string) (string, bool) {
	if fs.NArg() != 1 {
		fmt.Fprintf(c.stderr, "usage: kestrel %s\n", synopsis)
		return "", false
	}
	return fs.Arg(0), true
}

func (c *cli) cmdRun(args []string) int {
	fs := c.newFlagSet("run")
	var out outputFlags
	out.register(fs)
	debug := fs.Bool("debug", false, "log interpreter activity to stderr")
	trace := fs.Bool("trace", false, "write trace events to stderr as NDJSON")
	timeout := fs.Duration("timeout", 0, "abort the program after this long (e.g. 2s)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	file, ok := c.fileArg(fs, "run [--json] [--pretty] [--debug] [--trace] [--timeout <dur>] <file|->")
	if !ok {
		return 1
	}
	format := out.format(c.cfg)

	source, exitCode := c.readSource(file, format)
	if exitCode != 0 {
		return exitCode
	}

	level := c.cfg.Level()
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: level}))

	opts := []runtime.Option{
		runtime.WithStdout(c.stdout),
		runtime.WithLogger(logger),
		runtime.WithEscapes(c.cfg.Escapes),
		runtime.WithTimeout(*timeout),
		runtime.WithRunID(fmt.Sprintf("%x", time.Now().UnixNano())),
	}
	if *trace {
		enc := json.NewEncoder(c.stderr)
		opts = append(opts, runtime.WithTrace(func(ev evaluator.TraceEvent) {
			_ = enc.Encode(ev)
		}))
	}
	rt := runtime.New(opts...)

	result, err := rt.Run(context.Background(), source, file)
	if err != nil {
		return c.reportError(err, file, format)
	}
	if result.Value == nil {
		return 0
	}
	if out.json {
		b, err := evaluator.ValueToJSON(result.Value)
		if err != nil {
			fmt.Fprintf(c.stderr, "error serializing result: %s\n", err)
			return 4
		}
		fmt.Fprintln(c.stdout, string(b))
		return 0
	}
	fmt.Fprintln(c.stdout, result.Value.String())
	return 0
}

func (c *cli) cmdCheck(args []string) int {
	fs := c.newFlagSet("check")
	var out outputFlags
	out.register(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	file, ok := c.fileArg(fs, "check [--json] [--pretty] <file|->")
	if !ok {
		return 1
	}
	format := out.format(c.cfg)

	source, exitCode := c.readSource(file, format)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New(runtime.WithEscapes(c.cfg.Escapes))
	diags := rt.Check(source, file)
	if len(diags) > 0 {
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(diags, format))
		return 2
	}
	if format == diagnostics.FormatJSON {
		fmt.Fprintln(c.stdout, "[]")
	} else {
		fmt.Fprintln(c.stdout, "No errors found.")
	}
	return 0
}

func (c *cli) cmdFmt(args []string) int {
	fs := c.newFlagSet("fmt")
	write := fs.Bool("write", false, "rewrite the file in place")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	file, ok := c.fileArg(fs, "fmt [--write] <file|->")
	if !ok {
		return 1
	}
	if *write && file == "-" {
		fmt.Fprintln(c.stderr, "fmt: --write needs a file")
		return 1
	}
	format := c.cfg.Format()

	source, exitCode := c.readSource(file, format)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New(runtime.WithEscapes(c.cfg.Escapes))
	formatted, err := rt.Format(source, file)
	if err != nil {
		return c.reportError(err, file, format)
	}

	if *write {
		if err := os.WriteFile(file, []byte(formatted), 0644); err != nil {
			c.printDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot write file: %s", file), nil, ""), format)
			return 1
		}
		return 0
	}
	fmt.Fprint(c.stdout, formatted)
	return 0
}

func (c *cli) cmdHelp(args []string) int {
	fs := c.newFlagSet("help")
	index := fs.Bool("index", false, "list every builtin with its summary")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	topic := fs.Arg(0)

	if *index {
		if topic != "" && topic != "builtins" {
			fmt.Fprintln(c.stderr, "error: --index is only supported for the builtins topic")
			return 1
		}
		fmt.Fprint(c.stdout, help.BuiltinIndex(stdlib.Defaults()))
		return 0
	}

	if topic == "" {
		fmt.Fprint(c.stdout, help.QUICKREF)
		return 0
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(c.stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return 1
	}
	fmt.Fprint(c.stdout, content)
	return 0
}

func (c *cli) cmdConfig(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(c.stderr, "usage: kestrel config")
		return 1
	}
	source := c.cfgPath
	if source == "" {
		source = "built-in defaults"
	}
	b, err := c.cfg.Marshal()
	if err != nil {
		fmt.Fprintf(c.stderr, "error serializing config: %s\n", err)
		return 1
	}
	fmt.Fprintf(c.stdout, "# source: %s\n%s", source, b)
	return 0
}

// reportError prints err as a diagnostic and maps it to an exit code.
func (c *cli) reportError(err error, file string, format diagnostics.Format) int {
	var de *runtime.DiagnosticError
	if errors.As(err, &de) {
		fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostics(de.Diagnostics, format))
		return 2
	}
	d := runtime.Diagnose(err)
	if d.File == "" {
		d = d.WithFile(displayName(file))
	}
	c.printDiag(d, format)
	return exitCodeForDiag(d)
}

func (c *cli) printDiag(d diagnostics.Diagnostic, format diagnostics.Format) {
	fmt.Fprintln(c.stderr, diagnostics.FormatDiagnostic(d, format))
}

func (c *cli) readSource(file string, format diagnostics.Format) (string, int) {
	if file == "-" {
		data, err := io.ReadAll(c.stdin)
		if err != nil {
			c.printDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read stdin: %s", err), nil, ""), format)
			return "", 1
		}
		return string(data), 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		c.printDiag(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, ""), format)
		return "", 1
	}
	return string(source), 0
}

func displayName(file string) string {
	if file == "-" {
		return "<stdin>"
	}
	return file
}

func exitCodeForDiag(d diagnostics.Diagnostic) int {
	switch d.Stage {
	case diagnostics.StageLexer, diagnostics.StageParser, diagnostics.StageCheck:
		return 2
	case diagnostics.StageInterpreter:
		return 4
	}
	return 1
}
