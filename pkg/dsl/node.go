package dsl

import (
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/params"
	"github.com/aretw0/arbor/pkg/state"
)

// StateBuilder provides a fluent API for configuring a state.
type StateBuilder struct {
	decl state.Declaration
}

// Parent sets the parent explicitly instead of deriving it from the dotted name.
func (s *StateBuilder) Parent(name string) *StateBuilder {
	s.decl.Parent = name
	return s
}

// Abstract marks the state as a grouping that cannot be targeted directly.
func (s *StateBuilder) Abstract() *StateBuilder {
	s.decl.Abstract = true
	return s
}

// Param declares a required param.
func (s *StateBuilder) Param(id string, t params.Type) *StateBuilder {
	s.decl.Params = append(s.decl.Params, params.New(id, t))
	return s
}

// OptionalParam declares a param with a default value.
// A dynamic param changing alone does not re-enter the state.
func (s *StateBuilder) OptionalParam(id string, t params.Type, def any, dynamic bool) *StateBuilder {
	p := params.New(id, t).WithDefault(def).AsOptional()
	if dynamic {
		p = p.AsDynamic()
	}
	s.decl.Params = append(s.decl.Params, p)
	return s
}

// Resolve declares data computed by fn from the named dependencies.
func (s *StateBuilder) Resolve(name string, fn inject.Func, deps ...string) *StateBuilder {
	s.decl.Resolve = append(s.decl.Resolve, state.Resolve(name, fn, deps...))
	return s
}

// Value declares constant resolve data.
func (s *StateBuilder) Value(name string, v any) *StateBuilder {
	s.decl.Resolve = append(s.decl.Resolve, state.Value(name, v))
	return s
}

// Policy sets when the resolves of the state are computed.
func (s *StateBuilder) Policy(p domain.Policy) *StateBuilder {
	s.decl.ResolvePolicy.Default = &p
	return s
}

// ResolvePolicy overrides the policy of a single resolve.
func (s *StateBuilder) ResolvePolicy(name string, p domain.Policy) *StateBuilder {
	if s.decl.ResolvePolicy.PerResolve == nil {
		s.decl.ResolvePolicy.PerResolve = make(map[string]domain.Policy)
	}
	s.decl.ResolvePolicy.PerResolve[name] = p
	return s
}

// View adds a view declaration.
func (s *StateBuilder) View(v any) *StateBuilder {
	s.decl.Views = append(s.decl.Views, v)
	return s
}

// Data attaches a free-form value to the state.
func (s *StateBuilder) Data(key string, value any) *StateBuilder {
	if s.decl.Data == nil {
		s.decl.Data = make(map[string]any)
	}
	s.decl.Data[key] = value
	return s
}

// OnEnter sets the callback run when the state is entered.
func (s *StateBuilder) OnEnter(fn inject.Func, deps ...string) *StateBuilder {
	s.decl.OnEnter = inject.Fn(fn, deps...)
	return s
}

// OnRetain sets the callback run when the state stays active with new params.
func (s *StateBuilder) OnRetain(fn inject.Func, deps ...string) *StateBuilder {
	s.decl.OnRetain = inject.Fn(fn, deps...)
	return s
}

// OnExit sets the callback run when the state is exited.
func (s *StateBuilder) OnExit(fn inject.Func, deps ...string) *StateBuilder {
	s.decl.OnExit = inject.Fn(fn, deps...)
	return s
}

// Build returns the underlying declaration.
// This is primarily used by the Builder, but exposed for advanced usage.
func (s *StateBuilder) Build() state.Declaration {
	return s.decl
}

func (s *StateBuilder) parent() string {
	if s.decl.Parent != "" {
		return s.decl.Parent
	}
	if i := strings.LastIndex(s.decl.Name, "."); i >= 0 {
		return s.decl.Name[:i]
	}
	return ""
}
