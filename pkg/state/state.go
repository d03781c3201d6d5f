package state

import (
	"context"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/params"
)

// ResolveDecl declares a named dependency computed when the state is part of a transition.
type ResolveDecl struct {
	Name string
	Fn   inject.Injectable
}

// Resolve declares a resolve computed by fn from the named dependencies.
func Resolve(name string, fn inject.Func, deps ...string) ResolveDecl {
	return ResolveDecl{Name: name, Fn: inject.Named(name, fn, deps...)}
}

// Value declares a resolve whose value is a constant.
func Value(name string, v any) ResolveDecl {
	return ResolveDecl{Name: name, Fn: inject.Named(name, func(context.Context, inject.Values) (any, error) {
		return v, nil
	})}
}

// ResolvePolicy is the policy configuration declared on a state.
// PerResolve entries win over Default, which wins over domain.DefaultPolicy.
type ResolvePolicy struct {
	Default    *domain.Policy
	PerResolve map[string]domain.Policy
}

// For returns the effective policy of the named resolve.
func (rp ResolvePolicy) For(name string) domain.Policy {
	if p, ok := rp.PerResolve[name]; ok {
		return p
	}
	if rp.Default != nil {
		return *rp.Default
	}
	return domain.DefaultPolicy
}

// StatePolicy is a convenience for a state-level default policy.
func StatePolicy(p domain.Policy) ResolvePolicy {
	return ResolvePolicy{Default: &p}
}

// Declaration is the input used to register a state.
type Declaration struct {
	// Name is dot-separated; the part before the last dot names the parent
	// unless Parent is set explicitly.
	Name          string
	Parent        string
	Abstract      bool
	Params        params.Schema
	Resolve       []ResolveDecl
	ResolvePolicy ResolvePolicy
	Views         []any
	Data          map[string]any

	OnEnter  inject.Injectable
	OnRetain inject.Injectable
	OnExit   inject.Injectable
}

// State is a registered node of the state tree.
type State struct {
	Name          string
	Parent        *State
	Abstract      bool
	Params        params.Schema
	Resolve       []ResolveDecl
	ResolvePolicy ResolvePolicy
	Views         []any
	Data          map[string]any

	OnEnter  inject.Injectable
	OnRetain inject.Injectable
	OnExit   inject.Injectable

	path []*State
}

func newState(decl Declaration, parent *State) *State {
	s := &State{
		Name:          decl.Name,
		Parent:        parent,
		Abstract:      decl.Abstract,
		Params:        decl.Params,
		Resolve:       decl.Resolve,
		ResolvePolicy: decl.ResolvePolicy,
		Views:         decl.Views,
		Data:          decl.Data,
		OnEnter:       decl.OnEnter,
		OnRetain:      decl.OnRetain,
		OnExit:        decl.OnExit,
	}
	if parent != nil {
		s.path = append(append(s.path, parent.path...), s)
	} else {
		s.path = []*State{s}
	}
	return s
}

// Path returns the states from the root down to s.
func (s *State) Path() []*State {
	out := make([]*State, len(s.path))
	copy(out, s.path)
	return out
}

// Root returns the root of the tree s belongs to.
func (s *State) Root() *State {
	return s.path[0]
}

// Includes reports whether name is s or one of its ancestors.
func (s *State) Includes(name string) bool {
	for _, st := range s.path {
		if st.Name == name {
			return true
		}
	}
	return false
}

// IsDescendantOf reports whether s is other or lives below it.
func (s *State) IsDescendantOf(other *State) bool {
	for _, st := range s.path {
		if st == other {
			return true
		}
	}
	return false
}

// Parameters returns every param s accepts, ancestors first.
func (s *State) Parameters() params.Schema {
	var all params.Schema
	for _, st := range s.path {
		all = append(all, st.Params...)
	}
	return all
}

// ResolveNames returns the names of the resolves declared on s.
func (s *State) ResolveNames() []string {
	names := make([]string, len(s.Resolve))
	for i, r := range s.Resolve {
		names[i] = r.Name
	}
	return names
}

// Depth is the number of ancestors of s.
func (s *State) Depth() int {
	return len(s.path) - 1
}

func (s *State) String() string {
	return s.Name
}

func parentName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i]
	}
	return ""
}
