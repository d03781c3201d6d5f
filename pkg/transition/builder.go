package transition

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/resolve"
	"github.com/aretw0/arbor/pkg/state"
)

// Reserved hook locals.
const (
	LocalTransition = "$transition$"
	LocalError      = "$error$"
	LocalState      = "$state$"
	// LocalPrevious is the value the preceding step of the async pipeline
	// settled with, nil when it had no opinion.
	LocalPrevious = "$previous$"
)

// HookBuilder turns the hooks registered on a transition and its service into
// the hook steps of that transition.
type HookBuilder struct {
	t   *Transition
	svc *Service
}

// HookBuilder returns the builder of t's hook steps.
func (t *Transition) HookBuilder() *HookBuilder {
	return &HookBuilder{t: t, svc: t.svc}
}

func (b *HookBuilder) registered(event EventName) []*RegisteredHook {
	all := append(b.t.hooks.Hooks(event), b.svc.hooks.Hooks(event)...)
	sortHooks(all)

	out := all[:0]
	for _, h := range all {
		if h.Criteria.Matches(b.t.treeChanges) {
			out = append(out, h)
		}
	}
	return out
}

func (b *HookBuilder) newHook(fn inject.Injectable, rc *resolve.Context, event EventName, scope string, locals inject.Values, opts ...HookOption) *Hook {
	base := inject.Values{LocalTransition: b.t}
	all := append([]HookOption{
		ForTransition(b.t, b.t.current),
		WithTrace(string(event), scope),
		WithHookLogger(b.svc.logger),
		WithHookLifecycle(b.svc.lifecycle),
	}, opts...)
	return NewHook(fn, inject.Merge(base, locals), rc, all...)
}

func (b *HookBuilder) transitionHooks(event EventName, locals inject.Values, opts ...HookOption) []*Hook {
	rc := b.t.resolveContext(b.t.treeChanges.To)
	var out []*Hook
	for _, h := range b.registered(event) {
		out = append(out, b.newHook(h.Fn, rc, event, b.t.To().Name, locals, opts...))
	}
	return out
}

// OnBeforeHooks returns the synchronous hooks run before anything else.
func (b *HookBuilder) OnBeforeHooks() []*Hook {
	return b.transitionHooks(EventBefore, nil, Sync())
}

// OnSuccessHooks returns the hooks run once the transition succeeded.
func (b *HookBuilder) OnSuccessHooks() []*Hook {
	return b.transitionHooks(EventSuccess, nil, Sync(), KeepIfSuperseded())
}

// OnErrorHooks returns the hooks run once the transition failed with err.
func (b *HookBuilder) OnErrorHooks(err error) []*Hook {
	return b.transitionHooks(EventError, inject.Values{LocalError: err}, Sync(), KeepIfSuperseded())
}

// nodeHooks builds the hooks of event for the node of s, registered ones
// first, then the state's own callback.
func (b *HookBuilder) nodeHooks(event EventName, rc *resolve.Context, s *state.State, crit func(Criteria) Criterion, own inject.Injectable) []*Hook {
	locals := inject.Values{LocalState: s}
	var out []*Hook
	for _, h := range b.registered(event) {
		if c := crit(h.Criteria); !c.IsZero() && !c.Matches(s) {
			continue
		}
		out = append(out, b.newHook(h.Fn, rc, event, s.Name, locals))
	}
	if !own.IsZero() {
		out = append(out, b.newHook(own, rc, event, s.Name, locals))
	}
	return out
}

func (b *HookBuilder) resolveHook(rc *resolve.Context, s *state.State, when domain.Policy) *Hook {
	fn := inject.Named("resolve", func(ctx context.Context, _ inject.Values) (any, error) {
		if s == nil {
			_, err := rc.ResolvePath(ctx, when)
			return nil, err
		}
		_, err := rc.ResolvePathElement(ctx, s, when)
		return nil, err
	})
	name := "path"
	if s != nil {
		name = s.Name
	}
	return b.newHook(fn, rc, "resolve", name, nil)
}

// AsyncHooks returns the steps run in sequence after the before hooks:
// onStart, eager resolves of the to path, onExit from the leaf up, onRetain,
// then for each entered state its lazy resolves followed by onEnter, and
// finally onFinish.
func (b *HookBuilder) AsyncHooks() []*Hook {
	tc := b.t.treeChanges
	to := b.t.resolveContext(tc.To)
	from := b.t.resolveContext(tc.From)

	var steps []*Hook
	steps = append(steps, b.transitionHooks(EventStart, nil)...)
	steps = append(steps, b.resolveHook(to, nil, domain.PolicyEager))

	for _, n := range tc.Exiting.Reverse() {
		steps = append(steps, b.nodeHooks(EventExit, from.IsolateRootTo(n.State), n.State,
			func(c Criteria) Criterion { return c.Exiting }, n.State.OnExit)...)
	}
	for _, n := range tc.RetainedWithToParams {
		steps = append(steps, b.nodeHooks(EventRetain, to.IsolateRootTo(n.State), n.State,
			func(c Criteria) Criterion { return c.Retained }, n.State.OnRetain)...)
	}
	for _, n := range tc.Entering {
		rc := to.IsolateRootTo(n.State)
		steps = append(steps, b.resolveHook(rc, n.State, domain.PolicyLazy))
		steps = append(steps, b.nodeHooks(EventEnter, rc, n.State,
			func(c Criteria) Criterion { return c.Entering }, n.State.OnEnter)...)
	}

	steps = append(steps, b.transitionHooks(EventFinish, nil)...)
	return steps
}
