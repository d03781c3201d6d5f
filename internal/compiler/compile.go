package compiler

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/params"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/transition"
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// Program is a compiled definition, ready to be installed.
type Program struct {
	decls []state.Declaration
	hooks []*hookSpec
}

type hookSpec struct {
	index    int
	event    transition.EventName
	criteria transition.Criteria
	priority int
	guard    *exprvm.Program
	when     string
	abort    bool
	redirect string
	params   map[string]any
	fn       registry.Function
	fnName   string
	deps     []string
}

// LoadFile reads, parses and compiles the definition at path.
func LoadFile(path string, funcs *registry.Registry) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Compile(def, funcs)
}

// Compile checks def and binds its function references against funcs.
// It returns every problem found, joined.
func Compile(def *Definition, funcs *registry.Registry) (*Program, error) {
	if funcs == nil {
		funcs = registry.NewRegistry()
	}
	p := &Program{}
	var errs []error

	for _, sd := range def.States {
		decl, err := compileState(sd, funcs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.decls = append(p.decls, decl)
	}
	for i, hd := range def.Hooks {
		h, err := compileHook(i, hd, funcs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.hooks = append(p.hooks, h)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return p, nil
}

// Declarations returns the compiled state declarations in definition order.
func (p *Program) Declarations() []state.Declaration {
	return append([]state.Declaration(nil), p.decls...)
}

// HookCount returns the number of compiled hooks.
func (p *Program) HookCount() int {
	return len(p.hooks)
}

// Install registers the states into states and the hooks into hooks.
// Redirect targets must name states that are registered once the program's
// own states are.
func (p *Program) Install(states *state.Registry, hooks *transition.HookRegistry) error {
	for _, decl := range p.decls {
		if _, err := states.Register(decl); err != nil {
			return &DefinitionError{Where: "state " + decl.Name, Err: err}
		}
	}
	for _, h := range p.hooks {
		if h.redirect != "" {
			if _, err := states.Get(h.redirect); err != nil {
				return hookErr(h.index, "redirect target %q: %w", h.redirect, err)
			}
		}
	}
	for _, h := range p.hooks {
		hooks.On(h.event, h.criteria, h.injectable(states), transition.WithPriority(h.priority))
	}
	return nil
}

func compileState(sd StateDef, funcs *registry.Registry) (state.Declaration, error) {
	if sd.Name == "" {
		return state.Declaration{}, stateErr("<unnamed>", "missing name")
	}
	decl := state.Declaration{
		Name:     sd.Name,
		Parent:   sd.Parent,
		Abstract: sd.Abstract,
		Views:    sd.Views,
		Data:     sd.Data,
	}

	for _, pd := range sd.Params {
		if pd.ID == "" {
			return decl, stateErr(sd.Name, "param without id")
		}
		typ, err := params.ParseType(pd.Type)
		if err != nil {
			return decl, stateErr(sd.Name, "param %s: %w", pd.ID, err)
		}
		param := params.New(pd.ID, typ)
		param.Default = pd.Default
		param.Dynamic = pd.Dynamic
		param.Optional = pd.Optional
		if pd.Default != nil && !param.Validates(pd.Default) {
			return decl, stateErr(sd.Name, "param %s: default %v is not a valid %s", pd.ID, pd.Default, typ.Name())
		}
		decl.Params = append(decl.Params, param)
	}

	if sd.ResolvePolicy != "" {
		pol, err := domain.ParsePolicy(sd.ResolvePolicy)
		if err != nil {
			return decl, stateErr(sd.Name, "%w", err)
		}
		decl.ResolvePolicy.Default = &pol
	}
	for _, rd := range sd.Resolve {
		if rd.Name == "" {
			return decl, stateErr(sd.Name, "resolve without name")
		}
		if rd.Fn == "" {
			decl.Resolve = append(decl.Resolve, state.Value(rd.Name, rd.Value))
		} else {
			fn, ok := funcs.Lookup(rd.Fn)
			if !ok {
				return decl, stateErr(sd.Name, "resolve %s: function not found: %s", rd.Name, rd.Fn)
			}
			decl.Resolve = append(decl.Resolve, state.Resolve(rd.Name, fn, rd.Deps...))
		}
		if rd.Policy != "" {
			pol, err := domain.ParsePolicy(rd.Policy)
			if err != nil {
				return decl, stateErr(sd.Name, "resolve %s: %w", rd.Name, err)
			}
			if decl.ResolvePolicy.PerResolve == nil {
				decl.ResolvePolicy.PerResolve = make(map[string]domain.Policy)
			}
			decl.ResolvePolicy.PerResolve[rd.Name] = pol
		}
	}

	var err error
	if decl.OnEnter, err = compileCall(sd.OnEnter, funcs); err != nil {
		return decl, stateErr(sd.Name, "on_enter: %w", err)
	}
	if decl.OnRetain, err = compileCall(sd.OnRetain, funcs); err != nil {
		return decl, stateErr(sd.Name, "on_retain: %w", err)
	}
	if decl.OnExit, err = compileCall(sd.OnExit, funcs); err != nil {
		return decl, stateErr(sd.Name, "on_exit: %w", err)
	}
	return decl, nil
}

func compileCall(c *CallDef, funcs *registry.Registry) (inject.Injectable, error) {
	if c == nil {
		return inject.Injectable{}, nil
	}
	return funcs.Injectable(c.Fn, c.Deps...)
}

func compileHook(i int, hd HookDef, funcs *registry.Registry) (*hookSpec, error) {
	event := transition.EventName(hd.On)
	if !knownEvent(event) {
		return nil, hookErr(i, "unknown event %q", hd.On)
	}

	actions := 0
	for _, set := range []bool{hd.Abort, hd.Redirect != "", hd.Fn != ""} {
		if set {
			actions++
		}
	}
	if actions != 1 {
		return nil, hookErr(i, "exactly one of abort, redirect and fn must be set")
	}

	h := &hookSpec{
		index: i,
		event: event,
		criteria: transition.Criteria{
			To:       glob(hd.To),
			From:     glob(hd.From),
			Entering: glob(hd.Entering),
			Exiting:  glob(hd.Exiting),
			Retained: glob(hd.Retained),
		},
		priority: hd.Priority,
		when:     hd.When,
		abort:    hd.Abort,
		redirect: hd.Redirect,
		params:   hd.Params,
		fnName:   hd.Fn,
		deps:     hd.Deps,
	}

	if hd.Fn != "" {
		fn, ok := funcs.Lookup(hd.Fn)
		if !ok {
			return nil, hookErr(i, "function not found: %s", hd.Fn)
		}
		h.fn = fn
	}
	if hd.When != "" {
		program, err := exprlang.Compile(hd.When,
			exprlang.Env(map[string]any{}),
			exprlang.AllowUndefinedVariables(),
			exprlang.AsBool(),
		)
		if err != nil {
			return nil, hookErr(i, "when: %w", err)
		}
		h.guard = program
	}
	return h, nil
}

func knownEvent(e transition.EventName) bool {
	for _, known := range transition.Events {
		if e == known {
			return true
		}
	}
	return false
}

func glob(pattern string) transition.Criterion {
	if pattern == "" {
		return transition.Criterion{}
	}
	return transition.Glob(pattern)
}

// injectable builds the hook function. It always depends on the transition,
// which the guard expression reads, plus the declared deps.
func (h *hookSpec) injectable(states *state.Registry) inject.Injectable {
	deps := []string{transition.LocalTransition}
	for _, d := range h.deps {
		if d != transition.LocalTransition {
			deps = append(deps, d)
		}
	}

	name := h.fnName
	switch {
	case h.abort:
		name = "abort"
	case h.redirect != "":
		name = "redirect:" + h.redirect
	}

	return inject.Named(name, func(ctx context.Context, values inject.Values) (any, error) {
		t, _ := inject.Get[*transition.Transition](values, transition.LocalTransition)
		if h.guard != nil {
			ok, err := h.allows(t, values)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, nil
			}
		}

		switch {
		case h.abort:
			return false, nil
		case h.redirect != "":
			return states.Target(h.redirect, h.params, state.Options{}), nil
		}

		own := make(inject.Values, len(h.deps))
		for _, d := range h.deps {
			own[d] = values[d]
		}
		return h.fn(ctx, own)
	}, deps...)
}

// allows evaluates the when guard. The environment exposes the target as
// "to", the origin as "from", their params as "params" and "from_params", the
// custom options as "options" and the declared deps under "deps".
func (h *hookSpec) allows(t *transition.Transition, values inject.Values) (bool, error) {
	env := map[string]any{
		"deps": map[string]any(values),
	}
	if t != nil {
		env["to"] = t.To().Name
		env["params"] = t.Params()
		env["from_params"] = t.Params("from")
		env["options"] = t.Options().Custom
		if from := t.From(); from != nil {
			env["from"] = from.Name
		}
	}

	out, err := exprlang.Run(h.guard, env)
	if err != nil {
		return false, fmt.Errorf("when %q: %w", h.when, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

// Redirects maps every state of states selected by the "to" pattern of a
// redirect hook to the redirect target. Hooks without a "to" pattern are
// left out.
func (p *Program) Redirects(states *state.Registry) map[string]string {
	out := map[string]string{}
	for _, h := range p.hooks {
		if h.redirect == "" || h.criteria.To.Glob == "" {
			continue
		}
		for _, s := range states.Match(h.criteria.To.Glob) {
			if s.Name != h.redirect {
				out[s.Name] = h.redirect
			}
		}
	}
	return out
}
