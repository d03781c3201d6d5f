package transition

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/params"
	"github.com/aretw0/arbor/pkg/path"
	"github.com/aretw0/arbor/pkg/promise"
	"github.com/aretw0/arbor/pkg/resolve"
	"github.com/aretw0/arbor/pkg/state"
)

// transitionCount hands out transition ids. It starts at 0 when the process
// starts, is only advanced by New, and is never reset.
var transitionCount atomic.Int64

func nextID() int64 {
	return transitionCount.Add(1) - 1
}

// Option configures a Transition.
type Option func(*Transition)

// WithCurrent sets the accessor of the active transition, used to detect
// supersession. By default a transition considers itself current.
func WithCurrent(current func() *Transition) Option {
	return func(t *Transition) {
		if current != nil {
			t.current = current
		}
	}
}

// WithPrevious records the transition this one was redirected from.
func WithPrevious(prev *Transition) Option {
	return func(t *Transition) { t.previous = prev }
}

// Transition is one attempt to move from a path to a target state.
type Transition struct {
	id       int64
	svc      *Service
	hooks    *HookRegistry
	target   *state.TargetState
	current  func() *Transition
	previous *Transition

	treeChanges path.TreeChanges
	reloadState *state.State

	promise *promise.Promise
	runOnce sync.Once
	success atomic.Bool
}

// New creates a transition from the from path to target.
// It fails with domain.ErrInvalidTarget when target is invalid.
func New(from resolve.Path, target *state.TargetState, svc *Service, opts ...Option) (*Transition, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: no target", domain.ErrInvalidTarget)
	}
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidTarget, target.Error())
	}
	if svc == nil {
		svc = NewService()
	}

	t := &Transition{
		svc:     svc,
		hooks:   NewHookRegistry(),
		target:  target,
		promise: promise.New(),
	}
	t.current = func() *Transition { return t }
	for _, opt := range opts {
		opt(t)
	}
	t.id = nextID()

	t.reloadState = target.Options().ReloadState
	if t.reloadState == nil && target.Options().Reload {
		t.reloadState = target.State().Root()
	}

	to := path.BuildToPath(from, target)
	to = path.ApplyViewConfigs(svc.views, to, target.State().Path())
	t.treeChanges = path.Changes(from, to, t.reloadState)
	path.BindTransitionResolve(t.treeChanges, t)
	return t, nil
}

// ID returns the transition id.
func (t *Transition) ID() int64 { return t.id }

// Target returns the requested target.
func (t *Transition) Target() *state.TargetState { return t.target }

// Options returns the transition options.
func (t *Transition) Options() state.Options { return t.target.Options() }

// Previous returns the transition this one was redirected from, if any.
func (t *Transition) Previous() *Transition { return t.previous }

// TreeChanges returns the paths of the transition.
func (t *Transition) TreeChanges() path.TreeChanges { return t.treeChanges }

// From returns the state being left.
func (t *Transition) From() *state.State {
	if leaf := t.treeChanges.From.Leaf(); leaf != nil {
		return leaf.State
	}
	return nil
}

// To returns the target state.
func (t *Transition) To() *state.State {
	return t.treeChanges.To.Leaf().State
}

// Entering returns the states entered, root first.
func (t *Transition) Entering() []*state.State { return t.treeChanges.Entering.States() }

// Exiting returns the states exited, leaf first.
func (t *Transition) Exiting() []*state.State { return t.treeChanges.Exiting.Reverse().States() }

// Retained returns the states kept, root first.
func (t *Transition) Retained() []*state.State { return t.treeChanges.Retained.States() }

// Params returns the merged param values of a path: "to" (the default),
// "from", "entering", "exiting" or "retained".
func (t *Transition) Params(pathname ...string) map[string]any {
	name := "to"
	if len(pathname) > 0 {
		name = pathname[0]
	}
	p, _ := t.treeChanges.Get(name)
	return p.ParamValues()
}

// Views returns the view configs of s in the to path, or of the whole path when s is nil.
func (t *Transition) Views(pathname string, s *state.State) []any {
	p, _ := t.treeChanges.Get(pathname)
	var out []any
	for _, n := range p {
		if s == nil || n.State == s {
			out = append(out, n.Views...)
		}
	}
	return out
}

// Match is a pair of glob patterns over the to and from state names.
// Empty patterns match anything.
type Match struct {
	To   string
	From string
}

// Is reports whether the transition goes between states matching m.
func (t *Transition) Is(m Match) bool {
	if m.To != "" && !state.Match(t.To(), m.To) {
		return false
	}
	if m.From != "" && !state.Match(t.From(), m.From) {
		return false
	}
	return true
}

// Equivalent reports whether other goes between the same states.
func (t *Transition) Equivalent(other *Transition) bool {
	return t.To() == other.To() && t.From() == other.From()
}

// Resolves returns the settled resolve data visible at the target state.
// Unsettled resolvables are left out.
func (t *Transition) Resolves() map[string]any {
	out := map[string]any{}
	for name, r := range t.resolveContext(t.treeChanges.To).Resolvables(nil) {
		if v, ok := r.Data(); ok {
			out[name] = v
		}
	}
	return out
}

// AddResolves adds resolvables built from decls to the node of s in the to
// path, or to the root node when s is nil.
func (t *Transition) AddResolves(decls []state.ResolveDecl, s *state.State) error {
	if s == nil {
		s = t.treeChanges.To[0].State
	}
	if !t.resolveContext(t.treeChanges.To).AddResolvables(s, resolve.FromDecls(decls)...) {
		return fmt.Errorf("cannot add resolves to %q: %w", s.Name, domain.ErrStateNotFound)
	}
	return nil
}

// Hooks returns the hooks registered on this transition only.
func (t *Transition) Hooks() *HookRegistry { return t.hooks }

// On registers a hook for this transition only.
func (t *Transition) On(event EventName, c Criteria, fn inject.Injectable, opts ...RegisterOption) func() {
	return t.hooks.On(event, c, fn, opts...)
}

// Redirect creates the transition that replaces t to go to target instead.
//
// Options of t are merged with the options of target, which win. Resolvables
// of nodes on both to paths are carried over, except the reserved ones and
// those at or below the reload state.
func (t *Transition) Redirect(target *state.TargetState) (*Transition, error) {
	target = target.WithOptions(t.Options().Merge(target.Options()))
	next, err := New(t.treeChanges.From, target, t.svc, WithCurrent(t.current), WithPrevious(t))
	if err != nil {
		return nil, err
	}
	path.CopyResolves(next.treeChanges.To, t.treeChanges.To, next.reloadState)
	return next, nil
}

// changedParams lists the params that differ between the to and from paths.
// It reports false when the notion does not apply: on any reload, including a
// ReloadState alone, or when the target state differs from the current one.
// It is computed on each call and always gives the same answer for a transition.
func (t *Transition) changedParams() ([]*params.Param, bool) {
	to, from := t.treeChanges.To, t.treeChanges.From
	if t.reloadState != nil || from.Leaf() == nil || to.Leaf().State != from.Leaf().State {
		return nil, false
	}
	var changed []*params.Param
	for i, node := range to {
		changed = append(changed, params.Changed(node.ParamSchema, node.ParamValues, from[i].ParamValues)...)
	}
	return changed, true
}

// Dynamic reports whether only params changed, at least one of them dynamic.
func (t *Transition) Dynamic() bool {
	changed, ok := t.changedParams()
	if !ok {
		return false
	}
	for _, p := range changed {
		if p.Dynamic {
			return true
		}
	}
	return false
}

// Ignored reports whether the transition enters and exits nothing and changes no param.
func (t *Transition) Ignored() bool {
	changed, ok := t.changedParams()
	return ok && len(changed) == 0
}

// Valid reports whether the transition can run.
func (t *Transition) Valid() bool {
	return t.Error() == ""
}

// Error explains why the transition is invalid, or returns "".
func (t *Transition) Error() string {
	to := t.To()
	if to.Abstract {
		return fmt.Sprintf("Cannot transition to abstract state '%s'", to.Name)
	}
	if !params.Validates(to.Parameters(), t.Params()) {
		return fmt.Sprintf("Param values not valid for state '%s'", to.Name)
	}
	return ""
}

// IsActive reports whether t is the current transition.
func (t *Transition) IsActive() bool {
	return t.current() == t
}

// Success reports whether the transition completed successfully.
func (t *Transition) Success() bool {
	return t.success.Load()
}

// Promise returns the outcome promise. It resolves with the transition itself.
func (t *Transition) Promise() *promise.Promise {
	return t.promise
}

// Wait blocks until the outcome settles.
func (t *Transition) Wait(ctx context.Context) error {
	_, err := t.promise.Await(ctx)
	return err
}

func (t *Transition) String() string {
	from := ""
	if s := t.From(); s != nil {
		from = s.Name
	}
	marker := ""
	if !t.Valid() {
		marker = "(X) "
	}
	return fmt.Sprintf("Transition#%d( '%s'%s -> %s'%s'%s )",
		t.id, from, paramsJSON(t.Params("from")), marker, t.To().Name, paramsJSON(t.Params()))
}

func paramsJSON(p map[string]any) string {
	if v, ok := p["#"]; ok && v == nil {
		delete(p, "#")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func (t *Transition) resolveContext(p resolve.Path) *resolve.Context {
	return resolve.NewContext(p, resolve.WithLifecycleHooks(t.svc.lifecycle, t.id))
}
