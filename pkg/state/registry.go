package state

import (
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Registry manages the registered states.
// The implicit root state has the empty name and is abstract.
type Registry struct {
	mu     sync.RWMutex
	root   *State
	states map[string]*State
	order  []string
}

// NewRegistry creates a registry holding only the root state.
func NewRegistry() *Registry {
	root := newState(Declaration{Name: "", Abstract: true}, nil)
	return &Registry{
		root:   root,
		states: map[string]*State{"": root},
	}
}

// Root returns the implicit root state.
func (r *Registry) Root() *State {
	return r.root
}

// Register adds a state to the registry.
// The parent must already be registered.
func (r *Registry) Register(decl Declaration) (*State, error) {
	if decl.Name == "" {
		return nil, fmt.Errorf("state declaration missing name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.states[decl.Name]; exists {
		return nil, fmt.Errorf("state %q is already registered", decl.Name)
	}

	parentID := decl.Parent
	if parentID == "" {
		parentID = parentName(decl.Name)
	}
	parent, ok := r.states[parentID]
	if !ok {
		return nil, fmt.Errorf("cannot register %q: parent %q: %w", decl.Name, parentID, domain.ErrStateNotFound)
	}

	seen := make(map[string]bool, len(decl.Resolve))
	for _, res := range decl.Resolve {
		if res.Name == "" {
			return nil, fmt.Errorf("state %q declares a resolve without a name", decl.Name)
		}
		if seen[res.Name] {
			return nil, fmt.Errorf("state %q declares resolve %q twice", decl.Name, res.Name)
		}
		seen[res.Name] = true
	}

	s := newState(decl, parent)
	r.states[decl.Name] = s
	r.order = append(r.order, decl.Name)
	return s, nil
}

// Deregister removes a state and all of its descendants.
// It returns the names removed.
func (r *Registry) Deregister(name string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	target, ok := r.states[name]
	if !ok || target == r.root {
		return nil, fmt.Errorf("cannot deregister %q: %w", name, domain.ErrStateNotFound)
	}

	var removed []string
	kept := r.order[:0]
	for _, n := range r.order {
		if r.states[n].IsDescendantOf(target) {
			removed = append(removed, n)
			delete(r.states, n)
			continue
		}
		kept = append(kept, n)
	}
	r.order = kept
	return removed, nil
}

// Get looks up a state by name.
func (r *Registry) Get(name string) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.states[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrStateNotFound, name)
	}
	return s, nil
}

// List returns the registered states in registration order, without the root.
func (r *Registry) List() []*State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*State, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.states[n])
	}
	return out
}

// Match returns the registered states whose name matches the glob pattern.
func (r *Registry) Match(pattern string) []*State {
	var out []*State
	for _, s := range r.List() {
		if Match(s, pattern) {
			out = append(out, s)
		}
	}
	return out
}

// Target builds a TargetState for identifier. An unknown identifier yields an
// invalid target rather than an error.
func (r *Registry) Target(identifier string, params map[string]any, opts Options) *TargetState {
	r.mu.RLock()
	s := r.states[identifier]
	r.mu.RUnlock()
	return NewTarget(identifier, s, params, opts)
}
