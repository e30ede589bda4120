// Package stdlib provides the Kestrel builtin function registry.
package stdlib

import (
	"io"
	"sort"

	"github.com/kestrel-lang/kestrel/pkg/evaluator"
)

// Fn represents a builtin function. Every builtin takes exactly one argument.
type Fn struct {
	Name    string
	Summary string
	Execute func(w io.Writer, arg evaluator.Value) (evaluator.Value, error)
}

// Registry holds registered builtin functions.
type Registry struct {
	fns map[string]*Fn
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		fns: make(map[string]*Fn),
	}
}

// Register adds a builtin to the registry, replacing any previous entry
// with the same name.
func (r *Registry) Register(fn Fn) {
	r.fns[fn.Name] = &fn
}

// Get retrieves a builtin by name.
func (r *Registry) Get(name string) *Fn {
	return r.fns[name]
}

// All returns all registered builtins.
func (r *Registry) All() map[string]*Fn {
	return r.fns
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtins converts the registry into the map expected by
// evaluator.ExecOptions.
func (r *Registry) Builtins() map[string]*evaluator.BuiltinFn {
	out := make(map[string]*evaluator.BuiltinFn, len(r.fns))
	for name, fn := range r.fns {
		out[name] = &evaluator.BuiltinFn{
			Name:    fn.Name,
			Execute: fn.Execute,
		}
	}
	return out
}

// Defaults returns a registry seeded by RegisterDefaults.
func Defaults() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
