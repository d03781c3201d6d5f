package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTransitionStart   EventType = "transition_start"
	EventTransitionSuccess EventType = "transition_success"
	EventTransitionError   EventType = "transition_error"
	EventTransitionIgnored EventType = "transition_ignored"
	EventHookInvoke        EventType = "hook_invoke"
	EventResolve           EventType = "resolve"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp    time.Time `json:"timestamp"`
	Type         EventType `json:"type"`
	TransitionID int64     `json:"transition_id"`
}

// TransitionEvent describes a transition reaching a lifecycle milestone.
type TransitionEvent struct {
	EventBase
	From     string         `json:"from"`
	To       string         `json:"to"`
	Params   map[string]any `json:"params,omitempty"`
	Reason   string         `json:"reason,omitempty"` // rejection type, empty on success
	Err      error          `json:"-"`
	Duration time.Duration  `json:"duration,omitempty"`
}

// HookEvent describes one hook invocation.
type HookEvent struct {
	EventBase
	HookType string `json:"hook_type"` // e.g. "onBefore", "onEnter"
	Context  string `json:"context"`   // state name, or "internal"
	Result   string `json:"result,omitempty"`
}

// ResolveEvent describes a resolve step over a path or a single path element.
type ResolveEvent struct {
	EventBase
	State  string   `json:"state"`
	Policy Policy   `json:"policy"`
	Names  []string `json:"names"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every field is optional.
type LifecycleHooks struct {
	OnTransitionStart   func(context.Context, *TransitionEvent)
	OnTransitionSuccess func(context.Context, *TransitionEvent)
	OnTransitionError   func(context.Context, *TransitionEvent)
	OnTransitionIgnored func(context.Context, *TransitionEvent)
	OnHookInvoke        func(context.Context, *HookEvent)
	OnResolve           func(context.Context, *ResolveEvent)
}

// CombineHooks fans every callback out to all given hook sets, in order.
func CombineHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransitionStart: func(ctx context.Context, e *TransitionEvent) {
			for _, h := range all {
				if h.OnTransitionStart != nil {
					h.OnTransitionStart(ctx, e)
				}
			}
		},
		OnTransitionSuccess: func(ctx context.Context, e *TransitionEvent) {
			for _, h := range all {
				if h.OnTransitionSuccess != nil {
					h.OnTransitionSuccess(ctx, e)
				}
			}
		},
		OnTransitionError: func(ctx context.Context, e *TransitionEvent) {
			for _, h := range all {
				if h.OnTransitionError != nil {
					h.OnTransitionError(ctx, e)
				}
			}
		},
		OnTransitionIgnored: func(ctx context.Context, e *TransitionEvent) {
			for _, h := range all {
				if h.OnTransitionIgnored != nil {
					h.OnTransitionIgnored(ctx, e)
				}
			}
		},
		OnHookInvoke: func(ctx context.Context, e *HookEvent) {
			for _, h := range all {
				if h.OnHookInvoke != nil {
					h.OnHookInvoke(ctx, e)
				}
			}
		},
		OnResolve: func(ctx context.Context, e *ResolveEvent) {
			for _, h := range all {
				if h.OnResolve != nil {
					h.OnResolve(ctx, e)
				}
			}
		},
	}
}
