// Package validator implements static checks over Kestrel programs.
// It does no type checking; every diagnostic it reports is a mistake the
// interpreter would raise at run time if the offending code were reached.
package validator

import (
	"fmt"

	"github.com/kestrel-lang/kestrel/pkg/ast"
	"github.com/kestrel-lang/kestrel/pkg/diagnostics"
	"github.com/kestrel-lang/kestrel/pkg/stdlib"
)

var knownBuiltins = func() map[string]bool {
	out := make(map[string]bool)
	for _, name := range stdlib.Defaults().Names() {
		out[name] = true
	}
	return out
}()

// fnScope records every name a function declares. Scopes are flat, so the
// whole body is collected before any use is checked.
type fnScope struct {
	// mutable reports, per declared name, whether any declaration is mut.
	mutable map[string]bool
	params  map[string]bool
}

func newFnScope() *fnScope {
	return &fnScope{mutable: make(map[string]bool), params: make(map[string]bool)}
}

func (s *fnScope) add(name string, mutable bool) {
	s.mutable[name] = s.mutable[name] || mutable
}

func (s *fnScope) has(name string) bool {
	_, ok := s.mutable[name]
	return ok
}

type validator struct {
	diags      []diagnostics.Diagnostic
	fns        map[string]*ast.Function
	scope      *fnScope
	matchDepth int
}

// Validate performs static analysis on a Kestrel program and returns
// diagnostics in source order.
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	v := &validator{fns: make(map[string]*ast.Function)}

	for _, fn := range program.Functions {
		switch {
		case knownBuiltins[fn.Name]:
			v.addDiag(diagnostics.EFnDup, fn.Pos, fmt.Sprintf("function %s redefines a builtin", fn.Name), "rename the function")
		case v.fns[fn.Name] != nil:
			v.addDiag(diagnostics.EFnDup, fn.Pos, fmt.Sprintf("function %s is already defined at %s", fn.Name, v.fns[fn.Name].Pos), "")
		default:
			v.fns[fn.Name] = fn
		}
	}
	if v.fns["main"] == nil {
		v.addDiag(diagnostics.ENoMain, program.Pos, "no main function", "add fn main() { ... }")
	}

	for _, fn := range program.Functions {
		v.validateFunction(fn)
	}
	return v.diags
}

func (v *validator) addDiag(code string, pos ast.Pos, msg, hint string) {
	d := diagnostics.MakeDiag(code, msg+" at "+pos.String(), &pos, hint)
	d.Stage = diagnostics.StageCheck
	v.diags = append(v.diags, d)
}

func (v *validator) validateFunction(fn *ast.Function) {
	v.scope = newFnScope()
	for _, p := range fn.Params {
		if v.scope.params[p.Name] {
			v.addDiag(diagnostics.ERedeclared, p.Pos, fmt.Sprintf("parameter %s is declared twice in %s", p.Name, fn.Name), "")
		}
		v.scope.params[p.Name] = true
		v.scope.add(p.Name, p.Mutable)
	}
	v.collect(fn.Body)
	v.validateBlock(fn.Body)
}

func (v *validator) collect(b *ast.Block) {
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case *ast.Block:
			v.collect(s)
		case *ast.VarDecl:
			v.scope.add(s.Name, s.Mutable)
		case *ast.IfStmt:
			v.collect(s.Then)
			if s.Else != nil {
				v.collect(s.Else)
			}
		case *ast.WhileStmt:
			v.collect(s.Body)
		case *ast.MatchStmt:
			for _, c := range s.Cases {
				v.collect(c.Body)
			}
		}
	}
}

func (v *validator) validateBlock(b *ast.Block) {
	for _, stmt := range b.Stmts {
		v.validateStmt(stmt)
	}
}

func (v *validator) validateStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Block:
		v.validateBlock(s)

	case *ast.VarDecl:
		if v.scope.params[s.Name] {
			v.addDiag(diagnostics.ERedeclared, s.Pos, fmt.Sprintf("variable %s redeclares a parameter", s.Name), "")
		}
		if s.Init != nil {
			v.validateExpr(s.Init)
		}

	case *ast.AssignStmt:
		switch {
		case !v.scope.has(s.Name):
			v.addDiag(diagnostics.EUnbound, s.Pos, fmt.Sprintf("variable %s is not declared", s.Name), "declare it with mut var")
		case !v.scope.mutable[s.Name]:
			v.addDiag(diagnostics.EImmutable, s.Pos, fmt.Sprintf("variable %s is not mutable", s.Name), "declare it with mut var")
		}
		v.validateExpr(s.Value)

	case *ast.CallStmt:
		v.validateCall(s)

	case *ast.ReturnStmt:
		if s.Value != nil {
			v.validateExpr(s.Value)
		}

	case *ast.IfStmt:
		v.validateExpr(s.Cond)
		v.validateBlock(s.Then)
		if s.Else != nil {
			v.validateBlock(s.Else)
		}

	case *ast.WhileStmt:
		v.validateExpr(s.Cond)
		v.validateBlock(s.Body)

	case *ast.MatchStmt:
		v.validateExpr(s.Subject)
		v.matchDepth++
		for _, c := range s.Cases {
			v.validateExpr(c.Pattern)
			v.validateBlock(c.Body)
		}
		v.matchDepth--
	}
}

func (v *validator) validateCall(c *ast.CallStmt) {
	switch {
	case knownBuiltins[c.Name]:
		if len(c.Args) != 1 {
			v.addDiag(diagnostics.EArity, c.Pos, fmt.Sprintf("function %s expects 1 argument, got %d", c.Name, len(c.Args)), "")
		}
	case v.fns[c.Name] != nil:
		if want := len(v.fns[c.Name].Params); want != len(c.Args) {
			v.addDiag(diagnostics.EArity, c.Pos, fmt.Sprintf("function %s expects %d arguments, got %d", c.Name, want, len(c.Args)), "")
		}
	default:
		v.addDiag(diagnostics.EUnknownFn, c.Pos, fmt.Sprintf("no function named %s", c.Name), "")
	}
	for _, a := range c.Args {
		v.validateExpr(a)
	}
}

func (v *validator) validateExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Ident:
		if e.Name == "_" && v.matchDepth > 0 {
			return
		}
		if !v.scope.has(e.Name) {
			v.addDiag(diagnostics.EUnbound, e.Pos, fmt.Sprintf("no variable named %s", e.Name), "")
		}
	case *ast.BinaryExpr:
		v.validateExpr(e.Left)
		v.validateExpr(e.Right)
	case *ast.UnaryExpr:
		v.validateExpr(e.Operand)
	case *ast.CallExpr:
		if e.Call.Name == "print" {
			v.addDiag(diagnostics.ENoValue, e.Pos, "print returns no value", "call print as a statement")
		}
		v.validateCall(e.Call)
	}
}
