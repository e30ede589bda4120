package evaluator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/kestrel-lang/kestrel/pkg/ast"
	"github.com/kestrel-lang/kestrel/pkg/diagnostics"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart   TraceEventType = "run_start"
	TraceRunEnd     TraceEventType = "run_end"
	TraceCallStart  TraceEventType = "call_start"
	TraceCallEnd    TraceEventType = "call_end"
	TraceMatchStart TraceEventType = "match_start"
	TraceMatchEnd   TraceEventType = "match_end"
	TraceLoopStart  TraceEventType = "loop_start"
	TraceLoopEnd    TraceEventType = "loop_end"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string            `json:"ts"`
	RunID     string            `json:"runId,omitempty"`
	Event     TraceEventType    `json:"event"`
	Pos       *ast.Pos          `json:"pos,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}

// BuiltinFn is a function supplied by the host rather than the program.
// It receives its single argument already evaluated in the caller's scope.
type BuiltinFn struct {
	Name    string
	Execute func(w io.Writer, arg Value) (Value, error)
}

// ExecOptions configures program execution.
type ExecOptions struct {
	Builtins map[string]*BuiltinFn
	// Stdout receives print output. Nil discards it.
	Stdout io.Writer
	Logger *slog.Logger
	Trace  func(event TraceEvent)
	RunID  string
}

// ExecResult holds the result of a program execution. Value is nil when
// main returned nothing.
type ExecResult struct {
	Value Value
}

// InterpreterError represents a runtime error during execution.
type InterpreterError struct {
	Code    string
	Message string
	Pos     *ast.Pos
}

func (e *InterpreterError) Error() string {
	return e.Message
}

// Diagnostic converts the error to a diagnostic record.
func (e *InterpreterError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Pos, "")
}

type evaluator struct {
	ctx    context.Context
	opts   ExecOptions
	logger *slog.Logger
	stack  *CallStack
	fns    map[string]*ast.Function
}

func (ev *evaluator) emit(event TraceEventType, pos ast.Pos, data map[string]string) {
	if ev.opts.Trace == nil {
		return
	}
	ev.opts.Trace(TraceEvent{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RunID:     ev.opts.RunID,
		Event:     event,
		Pos:       &pos,
		Data:      data,
	})
}

func (ev *evaluator) errorf(code string, pos ast.Pos, format string, args ...any) error {
	return &InterpreterError{
		Code:    code,
		Message: fmt.Sprintf(format, args...) + " at " + pos.String(),
		Pos:     &pos,
	}
}

func (ev *evaluator) checkCanceled(pos ast.Pos) error {
	if err := ev.ctx.Err(); err != nil {
		return ev.errorf(diagnostics.ECanceled, pos, "execution canceled: %v", err)
	}
	return nil
}

// Execute registers the program's functions and runs main.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) (*ExecResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ev := &evaluator{
		ctx:    ctx,
		opts:   opts,
		logger: logger,
		stack:  newCallStack(logger),
		fns:    make(map[string]*ast.Function),
	}

	for _, fn := range program.Functions {
		if _, ok := opts.Builtins[fn.Name]; ok {
			return nil, ev.errorf(diagnostics.EFnDup, fn.Pos, "function %s redefines a builtin", fn.Name)
		}
		if _, ok := ev.fns[fn.Name]; ok {
			return nil, ev.errorf(diagnostics.EFnDup, fn.Pos, "function %s is already defined", fn.Name)
		}
		ev.fns[fn.Name] = fn
	}
	main, ok := ev.fns["main"]
	if !ok {
		return nil, ev.errorf(diagnostics.ENoMain, program.Pos, "no main function")
	}

	logger.Debug("run start", slog.Int("functions", len(ev.fns)))
	ev.emit(TraceRunStart, program.Pos, nil)

	val, err := ev.callFunction(main, nil, main.Pos)

	ev.emit(TraceRunEnd, program.Pos, nil)
	logger.Debug("run end", slog.Bool("ok", err == nil))

	if err != nil {
		return nil, err
	}
	return &ExecResult{Value: val}, nil
}

func (ev *evaluator) call(c *ast.CallStmt) (Value, error) {
	if err := ev.checkCanceled(c.Pos); err != nil {
		return nil, err
	}
	if b, ok := ev.opts.Builtins[c.Name]; ok {
		if len(c.Args) != 1 {
			return nil, ev.errorf(diagnostics.EArity, c.Pos, "function %s expects 1 argument, got %d", c.Name, len(c.Args))
		}
		return ev.callBuiltin(b, c)
	}
	fn, ok := ev.fns[c.Name]
	if !ok {
		return nil, ev.errorf(diagnostics.EUnknownFn, c.Pos, "no function named %s", c.Name)
	}
	if len(c.Args) != len(fn.Params) {
		return nil, ev.errorf(diagnostics.EArity, c.Pos, "function %s expects %d arguments, got %d", c.Name, len(fn.Params), len(c.Args))
	}
	args := make([]Value, len(c.Args))
	for i, a := range c.Args {
		v, err := ev.evalExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return ev.callFunction(fn, args, c.Pos)
}

// callFunction binds args to fn's parameters in a fresh frame. Parameters
// without an argument start as Int 0.
func (ev *evaluator) callFunction(fn *ast.Function, args []Value, pos ast.Pos) (Value, error) {
	frame := ev.stack.Push(fn.Name)
	defer ev.stack.Pop()

	for i, p := range fn.Params {
		var v Value = NewInt(0)
		if i < len(args) {
			v = args[i]
		}
		if !frame.Declare(p.Name, v, p.Mutable) {
			return nil, ev.errorf(diagnostics.ERedeclared, p.Pos, "parameter %s is declared twice in %s", p.Name, fn.Name)
		}
	}

	ev.emit(TraceCallStart, pos, map[string]string{"fn": fn.Name, "depth": strconv.Itoa(ev.stack.Depth())})
	val, _, err := ev.execBlock(fn.Body)
	ev.emit(TraceCallEnd, pos, map[string]string{"fn": fn.Name})
	return val, err
}

func (ev *evaluator) callBuiltin(b *BuiltinFn, c *ast.CallStmt) (Value, error) {
	arg, err := ev.evalExpr(c.Args[0])
	if err != nil {
		return nil, err
	}
	ev.logger.Debug("call builtin", slog.String("name", b.Name))
	v, err := b.Execute(ev.opts.Stdout, arg)
	if err != nil {
		var ie *InterpreterError
		if errors.As(err, &ie) {
			if ie.Pos != nil {
				return nil, ie
			}
			return nil, ev.errorf(ie.Code, c.Pos, "%s", ie.Message)
		}
		return nil, ev.errorf(diagnostics.EConvert, c.Pos, "%s: %v", b.Name, err)
	}
	return v, nil
}

// execBlock runs stmts in order. The bool result reports that a return
// statement ended the block.
func (ev *evaluator) execBlock(b *ast.Block) (Value, bool, error) {
	for _, stmt := range b.Stmts {
		val, returned, err := ev.execStmt(stmt)
		if err != nil || returned {
			return val, returned, err
		}
	}
	return nil, false, nil
}

func (ev *evaluator) execStmt(stmt ast.Stmt) (Value, bool, error) {
	switch s := stmt.(type) {
	case *ast.Block:
		return ev.execBlock(s)

	case *ast.VarDecl:
		return nil, false, ev.execDecl(s)

	case *ast.AssignStmt:
		return nil, false, ev.execAssign(s)

	case *ast.CallStmt:
		// A call that yields a value ends the enclosing block with it.
		val, err := ev.call(s)
		if err != nil {
			return nil, false, err
		}
		return val, val != nil, nil

	case *ast.ReturnStmt:
		if s.Value == nil {
			return nil, true, nil
		}
		val, err := ev.evalExpr(s.Value)
		if err != nil {
			return nil, false, err
		}
		return val, true, nil

	case *ast.IfStmt:
		return ev.execIf(s)

	case *ast.WhileStmt:
		return ev.execWhile(s)

	case *ast.MatchStmt:
		return ev.execMatch(s)
	}
	return nil, false, ev.errorf(diagnostics.EType, stmt.NodePos(), "unsupported instruction %s", stmt.Kind())
}

func (ev *evaluator) execDecl(s *ast.VarDecl) error {
	frame := ev.stack.Current()
	if frame.Has(s.Name) {
		return ev.errorf(diagnostics.ERedeclared, s.Pos, "variable %s is already declared in %s", s.Name, frame.Function())
	}
	var val Value = NewInt(0)
	if s.Init != nil {
		v, err := ev.evalExpr(s.Init)
		if err != nil {
			return err
		}
		val = v
	}
	frame.Declare(s.Name, val, s.Mutable)
	return nil
}

func (ev *evaluator) execAssign(s *ast.AssignStmt) error {
	b := ev.stack.Current().lookup(s.Name)
	if b == nil {
		return ev.errorf(diagnostics.EUnbound, s.Pos, "variable %s is not declared", s.Name)
	}
	if !b.mutable {
		return ev.errorf(diagnostics.EImmutable, s.Pos, "variable %s is not mutable", s.Name)
	}
	val, err := ev.evalExpr(s.Value)
	if err != nil {
		return err
	}
	b.value = val
	return nil
}

func (ev *evaluator) execIf(s *ast.IfStmt) (Value, bool, error) {
	cond, err := ev.evalExpr(s.Cond)
	if err != nil {
		return nil, false, err
	}
	b, ok := cond.(Bool)
	if !ok {
		return nil, false, ev.errorf(diagnostics.ECondition, s.Cond.NodePos(), "if condition must be bool, got %s", typeNameOf(cond))
	}
	if b.Value {
		return ev.execBlock(s.Then)
	}
	if s.Else != nil {
		return ev.execBlock(s.Else)
	}
	return nil, false, nil
}

func (ev *evaluator) execWhile(s *ast.WhileStmt) (Value, bool, error) {
	cond, err := ev.evalExpr(s.Cond)
	if err != nil {
		return nil, false, err
	}
	if _, ok := cond.(Bool); !ok {
		return nil, false, ev.errorf(diagnostics.ECondition, s.Cond.NodePos(), "while condition must be bool, got %s", typeNameOf(cond))
	}

	ev.emit(TraceLoopStart, s.Pos, nil)
	iterations := 0
	defer func() {
		ev.emit(TraceLoopEnd, s.Pos, map[string]string{"iterations": strconv.Itoa(iterations)})
	}()

	for {
		ok, err := ev.loopTruthy(cond, s.Cond.NodePos())
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		if err := ev.checkCanceled(s.Pos); err != nil {
			return nil, false, err
		}
		val, returned, err := ev.execBlock(s.Body)
		if err != nil {
			return nil, false, err
		}
		iterations++
		// The condition is re-evaluated before a body return takes effect.
		if cond, err = ev.evalExpr(s.Cond); err != nil {
			return nil, false, err
		}
		if returned {
			return val, true, nil
		}
	}
}

// loopTruthy tests a while condition. A String condition names the variable
// whose value is tested instead.
func (ev *evaluator) loopTruthy(cond Value, pos ast.Pos) (bool, error) {
	if s, ok := cond.(String); ok {
		v, found := ev.stack.Current().Get(s.Value)
		if !found {
			return false, ev.errorf(diagnostics.EUnbound, pos, "while condition names no variable %q", s.Value)
		}
		return Truthy(v), nil
	}
	return Truthy(cond), nil
}

// execMatch binds the subject's source text as the name "_" resolves to.
// When nothing is bound under that text, an immutable pseudo-variable holds
// the subject until the match ends.
func (ev *evaluator) execMatch(s *ast.MatchStmt) (Value, bool, error) {
	subject, err := ev.evalExpr(s.Subject)
	if err != nil {
		return nil, false, err
	}

	frame := ev.stack.Current()
	name := s.Subject.String()
	prev := frame.matchName
	frame.matchName = name
	created := frame.Declare(name, subject, false)
	defer func() {
		frame.matchName = prev
		if created {
			frame.remove(name)
		}
	}()

	ev.emit(TraceMatchStart, s.Pos, map[string]string{"subject": name})
	for i, c := range s.Cases {
		v, err := ev.evalExpr(c.Pattern)
		if err != nil {
			return nil, false, err
		}
		if b, ok := v.(Bool); (ok && b.Value) || Equal(v, subject) {
			ev.logger.Debug("match case selected", slog.Int("case", i))
			val, returned, err := ev.execBlock(c.Body)
			ev.emit(TraceMatchEnd, s.Pos, map[string]string{"case": strconv.Itoa(i)})
			return val, returned, err
		}
	}
	ev.emit(TraceMatchEnd, s.Pos, nil)
	return nil, false, nil
}

func (ev *evaluator) evalExpr(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return NewInt(e.Value), nil

	case *ast.FloatLiteral:
		return NewFloat(e.Value), nil

	case *ast.StrLiteral:
		return NewString(e.Value), nil

	case *ast.BoolLiteral:
		return NewBool(e.Value), nil

	case *ast.Ident:
		return ev.evalIdent(e)

	case *ast.UnaryExpr:
		return ev.evalUnary(e)

	case *ast.BinaryExpr:
		return ev.evalBinary(e)

	case *ast.CallExpr:
		val, err := ev.call(e.Call)
		if err != nil {
			return nil, err
		}
		if val == nil {
			return nil, ev.errorf(diagnostics.ENoValue, e.Pos, "call to %s used as a value returned nothing", e.Call.Name)
		}
		return val, nil
	}
	return nil, ev.errorf(diagnostics.EType, expr.NodePos(), "unsupported expression %s", expr.Kind())
}

func (ev *evaluator) evalIdent(e *ast.Ident) (Value, error) {
	frame := ev.stack.Current()
	name := e.Name
	if name == "_" && frame.matchName != "" {
		name = frame.matchName
	}
	val, ok := frame.Get(name)
	if !ok {
		return nil, ev.errorf(diagnostics.EUnbound, e.Pos, "no variable named %s", e.Name)
	}
	return val, nil
}

func (ev *evaluator) evalUnary(e *ast.UnaryExpr) (Value, error) {
	operand, err := ev.evalExpr(e.Operand)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ast.OpNeg:
		switch v := operand.(type) {
		case Int:
			return NewInt(-v.Value), nil
		case Float:
			return NewFloat(-v.Value), nil
		}
	case ast.OpNot:
		if v, ok := operand.(Bool); ok {
			return NewBool(!v.Value), nil
		}
	}
	return nil, ev.errorf(diagnostics.EType, e.Pos, "operator %s cannot be applied to %s", e.Op, typeNameOf(operand))
}
