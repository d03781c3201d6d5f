package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/arbor/pkg/inject"
)

// Function is the signature of a named function that declarative state
// trees can reference from resolves and hooks.
// It receives a context and the injected dependencies, and returns a result or error.
type Function = inject.Func

// Registry manages the functions available to declarative state trees.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Function
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]Function),
	}
}

// Register adds a function to the registry.
// If a function with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Injectable binds the named function to a dependency list.
// Returns an error if the function is not found.
func (r *Registry) Injectable(name string, deps ...string) (inject.Injectable, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return inject.Injectable{}, fmt.Errorf("function not found: %s", name)
	}
	return inject.Named(name, fn, deps...), nil
}

// Execute looks up a function by name and executes it.
// Returns an error if the function is not found.
func (r *Registry) Execute(ctx context.Context, name string, deps inject.Values) (any, error) {
	fn, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("function not found: %s", name)
	}
	return fn(ctx, deps)
}

// Names lists the registered function names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
