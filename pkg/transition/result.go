package transition

import (
	"context"

	"github.com/aretw0/arbor/pkg/promise"
	"github.com/aretw0/arbor/pkg/state"
)

// OutcomeKind is the control signal a hook result maps to.
type OutcomeKind int

const (
	OutcomeProceed OutcomeKind = iota
	OutcomeAbort
	OutcomeRedirect
	OutcomeAwait
)

// HookOutcome is what a hook function returned, as a closed set of signals.
// Hooks may return one directly, or return a plain value that is classified:
// false aborts, a *state.TargetState redirects, a promise.Awaitable is waited
// for, anything else proceeds.
type HookOutcome struct {
	Kind      OutcomeKind
	Target    *state.TargetState
	Awaitable promise.Awaitable
	Value     any
}

// Proceed lets the transition continue.
func Proceed(v any) HookOutcome { return HookOutcome{Kind: OutcomeProceed, Value: v} }

// Abort stops the transition.
func Abort() HookOutcome { return HookOutcome{Kind: OutcomeAbort} }

// RedirectTo replaces the transition with one to target.
func RedirectTo(target *state.TargetState) HookOutcome {
	return HookOutcome{Kind: OutcomeRedirect, Target: target}
}

// Await waits for a, then interprets its value as a hook result.
func Await(a promise.Awaitable) HookOutcome { return HookOutcome{Kind: OutcomeAwait, Awaitable: a} }

func classify(raw any) HookOutcome {
	switch v := raw.(type) {
	case HookOutcome:
		return v
	case *HookOutcome:
		return *v
	case bool:
		if !v {
			return Abort()
		}
	case *state.TargetState:
		return RedirectTo(v)
	case promise.Awaitable:
		return Await(v)
	}
	return Proceed(raw)
}

// Result is what one pipeline stage produced: a value, a rejection, or a
// pending promise of either. The zero Result proceeds.
type Result struct {
	Value     any
	Rejection *Rejection
	Pending   *promise.Promise
}

// IsRejection reports whether the stage rejected synchronously.
func (r Result) IsRejection() bool { return r.Rejection != nil }

// Await blocks until the stage settles. A rejection is returned as the error.
func (r Result) Await(ctx context.Context) (any, error) {
	switch {
	case r.Rejection != nil:
		return nil, r.Rejection
	case r.Pending != nil:
		return r.Pending.Await(ctx)
	default:
		return r.Value, nil
	}
}

// Promise returns the stage as a promise.
func (r Result) Promise() *promise.Promise {
	switch {
	case r.Rejection != nil:
		return promise.Rejected(r.Rejection)
	case r.Pending != nil:
		return r.Pending
	default:
		return promise.Resolved(r.Value)
	}
}

// resultRule maps a hook outcome to a Result when match holds.
type resultRule struct {
	match func(HookOutcome) bool
	apply func(context.Context, HookOutcome) Result
}

// rules are evaluated in order; the first match wins.
func (h *Hook) rules() []resultRule {
	return []resultRule{
		{
			match: func(HookOutcome) bool { return h.IsSuperseded() },
			apply: func(context.Context, HookOutcome) Result {
				return Result{Rejection: NewSuperseded(h.opts.Current())}
			},
		},
		{
			match: func(o HookOutcome) bool { return o.Kind == OutcomeAbort },
			apply: func(context.Context, HookOutcome) Result {
				return Result{Rejection: NewAborted("Hook aborted transition")}
			},
		},
		{
			match: func(o HookOutcome) bool { return o.Kind == OutcomeRedirect && o.Target != nil },
			apply: func(_ context.Context, o HookOutcome) Result {
				return Result{Rejection: NewRedirected(o.Target)}
			},
		},
		{
			match: func(o HookOutcome) bool { return o.Kind == OutcomeAwait && o.Awaitable != nil },
			apply: func(ctx context.Context, o HookOutcome) Result {
				return Result{Pending: promise.Go(func() (any, error) {
					v, err := promise.Await(ctx, o.Awaitable)
					if err != nil {
						return nil, err
					}
					return h.HandleHookResult(ctx, v).Await(ctx)
				})}
			},
		},
	}
}

// HandleHookResult interprets the raw value a hook returned.
// A nil value means the hook had no opinion and yields the zero Result.
func (h *Hook) HandleHookResult(ctx context.Context, raw any) Result {
	if raw == nil {
		return Result{}
	}
	outcome := classify(raw)
	for _, rule := range h.rules() {
		if rule.match(outcome) {
			return rule.apply(ctx, outcome)
		}
	}
	return Result{Value: outcome.Value}
}
