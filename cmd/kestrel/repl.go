package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/peterh/liner"

	"github.com/kestrel-lang/kestrel/pkg/diagnostics"
	"github.com/kestrel-lang/kestrel/pkg/help"
	"github.com/kestrel-lang/kestrel/pkg/runtime"
)

const contPrompt = "...> "

// lineReader is the part of liner.State the loop needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// scanReader reads lines from a non-terminal input.
type scanReader struct {
	sc *bufio.Scanner
}

func (r *scanReader) Prompt(string) (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}

func (r *scanReader) AppendHistory(string) {}

func (c *cli) cmdRepl(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(c.stderr, "usage: kestrel repl")
		return 1
	}

	rt := runtime.New(runtime.WithStdout(c.stdout), runtime.WithEscapes(false))
	sess := rt.NewSession()

	f, ok := c.stdin.(*os.File)
	if !ok || f != os.Stdin {
		return c.repl(&scanReader{sc: bufio.NewScanner(c.stdin)}, sess, false)
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := c.cfg.History()
	if hf, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(hf)
		_ = hf.Close()
	}
	defer func() {
		if hf, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(hf)
			_ = hf.Close()
		}
	}()

	fmt.Fprintf(c.stdout, "Kestrel %s. Type :help for commands, :quit to exit.\n", help.Version)
	return c.repl(ln, sess, true)
}

// repl reads chunks until end of input. A chunk keeps growing while the
// session reports it incomplete.
func (c *cli) repl(in lineReader, sess *runtime.Session, interactive bool) int {
	prompt := c.cfg.Prompt
	if !interactive {
		prompt = ""
	}
	var buf strings.Builder

	for {
		p := prompt
		if buf.Len() > 0 && interactive {
			p = contPrompt
		}
		line, err := in.Prompt(p)
		if errors.Is(err, liner.ErrPromptAborted) {
			buf.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			if interactive {
				fmt.Fprintln(c.stdout)
			}
			if buf.Len() > 0 {
				c.evalChunk(sess, buf.String(), true)
			}
			return 0
		}
		if err != nil {
			c.printDiag(diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, ""), diagnostics.FormatText)
			return 1
		}

		if buf.Len() == 0 {
			switch strings.TrimSpace(line) {
			case ":quit", ":q":
				return 0
			case ":help":
				fmt.Fprintln(c.stdout, ":help  show this message\n:fns   list session functions\n:quit  leave the session")
				continue
			case ":fns":
				fmt.Fprintln(c.stdout, strings.Join(sess.Functions(), " "))
				continue
			case "":
				continue
			}
		}

		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)

		if c.evalChunk(sess, buf.String(), false) {
			continue
		}
		in.AppendHistory(strings.ReplaceAll(buf.String(), "\n", " "))
		buf.Reset()
	}
}

// evalChunk runs one chunk and prints its outcome. It reports whether the
// chunk needs more input; a final chunk never does.
func (c *cli) evalChunk(sess *runtime.Session, chunk string, final bool) bool {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := sess.Eval(ctx, chunk)
	if !final && runtime.IsIncomplete(err) {
		return true
	}
	if err != nil {
		c.printDiag(runtime.Diagnose(err), c.cfg.Format())
		return false
	}
	switch {
	case res.Value != nil:
		fmt.Fprintln(c.stdout, res.Value.String())
	case len(res.Defined) > 0:
		fmt.Fprintf(c.stdout, "defined %s\n", strings.Join(res.Defined, ", "))
	}
	return false
}
