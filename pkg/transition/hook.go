package transition

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/promise"
	"github.com/aretw0/arbor/pkg/resolve"
)

// HookOptions control how a Hook is invoked.
type HookOptions struct {
	// Async resolves every dependency before invoking, and runs the hook off
	// the caller's goroutine. Defaults to true.
	Async bool
	// RejectIfSuperseded skips the invocation of a superseded hook. Defaults to true.
	RejectIfSuperseded bool
	// Current returns the transition that is active right now.
	Current func() *Transition
	// Transition is the transition the hook belongs to.
	Transition *Transition

	HookType  string
	Context   string
	Logger    *slog.Logger
	Lifecycle domain.LifecycleHooks
}

// HookOption configures a Hook.
type HookOption func(*HookOptions)

// Sync invokes the hook synchronously with already settled resolvables only.
func Sync() HookOption {
	return func(o *HookOptions) { o.Async = false }
}

// KeepIfSuperseded invokes the hook even after its transition was superseded.
func KeepIfSuperseded() HookOption {
	return func(o *HookOptions) { o.RejectIfSuperseded = false }
}

// ForTransition ties the hook to t, with current reporting the active transition.
func ForTransition(t *Transition, current func() *Transition) HookOption {
	return func(o *HookOptions) {
		o.Transition = t
		if current != nil {
			o.Current = current
		}
	}
}

// WithTrace labels the hook for logs and lifecycle events.
func WithTrace(hookType, scope string) HookOption {
	return func(o *HookOptions) {
		o.HookType = hookType
		o.Context = scope
	}
}

// WithHookLogger sets the logger used for swallowed failures.
func WithHookLogger(logger *slog.Logger) HookOption {
	return func(o *HookOptions) { o.Logger = logger }
}

// WithHookLifecycle reports every invocation through hooks.OnHookInvoke.
func WithHookLifecycle(hooks domain.LifecycleHooks) HookOption {
	return func(o *HookOptions) { o.Lifecycle = hooks }
}

// Hook is one invocation of a hook function.
type Hook struct {
	fn     inject.Injectable
	locals inject.Values
	rc     *resolve.Context
	opts   HookOptions
}

// NewHook prepares fn for invocation against rc.
func NewHook(fn inject.Injectable, locals inject.Values, rc *resolve.Context, opts ...HookOption) *Hook {
	h := &Hook{
		fn:     fn,
		locals: locals,
		rc:     rc,
		opts: HookOptions{
			Async:              true,
			RejectIfSuperseded: true,
			Current:            func() *Transition { return nil },
			Logger:             logging.NewNop(),
		},
	}
	for _, opt := range opts {
		opt(&h.opts)
	}
	return h
}

// IsSuperseded reports whether another transition became current.
func (h *Hook) IsSuperseded() bool {
	return h.opts.Current() != h.opts.Transition
}

// InvokeStep invokes the hook with its locals overlaid by more.
//
// A superseded hook is not invoked when RejectIfSuperseded is set. A
// synchronous hook that fails returns the failure as the error; an async hook
// reports every failure through the pending promise of the Result.
func (h *Hook) InvokeStep(ctx context.Context, more inject.Values) (Result, error) {
	locals := inject.Merge(h.locals, more)

	if h.opts.RejectIfSuperseded && h.IsSuperseded() {
		h.trace(ctx, RejectSuperseded.String())
		return Result{Rejection: NewSuperseded(h.opts.Current())}, nil
	}
	h.trace(ctx, "")

	if !h.opts.Async {
		v, err := h.rc.InvokeNow(ctx, h.fn, locals)
		if err != nil {
			return Result{}, err
		}
		return h.HandleHookResult(ctx, v), nil
	}

	return Result{Pending: promise.Go(func() (any, error) {
		v, err := h.rc.InvokeLater(ctx, h.fn, locals)
		if err != nil {
			return nil, err
		}
		return h.HandleHookResult(ctx, v).Await(ctx)
	})}, nil
}

func (h *Hook) trace(ctx context.Context, result string) {
	if h.opts.Lifecycle.OnHookInvoke == nil {
		return
	}
	var id int64
	if h.opts.Transition != nil {
		id = h.opts.Transition.ID()
	}
	h.opts.Lifecycle.OnHookInvoke(ctx, &domain.HookEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventHookInvoke, TransitionID: id},
		HookType:  h.hookType(),
		Context:   h.context(),
		Result:    result,
	})
}

func (h *Hook) hookType() string {
	if h.opts.HookType == "" {
		return "internal"
	}
	return h.opts.HookType
}

func (h *Hook) context() string {
	if h.opts.Context == "" {
		return "unknown"
	}
	return h.opts.Context
}

func (h *Hook) String() string {
	name := h.fn.String()
	if len(name) > 200 {
		name = name[:197] + "..."
	}
	return fmt.Sprintf("%s context: %s, %s", h.hookType(), h.context(), name)
}

// ExecMode selects how RunSynchronousHooks treats a failing hook.
type ExecMode int

const (
	// StopOnError aborts at the first failing hook.
	StopOnError ExecMode = iota
	// SwallowErrors logs the failure and goes on with the next hook.
	SwallowErrors
)

// RunSynchronousHooks invokes hooks in order.
//
// The first rejection among the results wins. Without one, the pending
// results are joined in order into a single pending Result.
func RunSynchronousHooks(ctx context.Context, hooks []*Hook, locals inject.Values, mode ExecMode) Result {
	var results []Result
	for _, h := range hooks {
		res, err := h.InvokeStep(ctx, locals)
		if err != nil {
			if mode == StopOnError {
				return Result{Rejection: NewAborted(err)}
			}
			h.opts.Logger.Warn("Swallowed exception during synchronous hook handler", "err", err, "hook", h.String())
			continue
		}
		results = append(results, res)
	}

	var pending []promise.Awaitable
	for _, res := range results {
		if res.IsRejection() {
			return res
		}
		if res.Pending != nil {
			pending = append(pending, res.Pending)
		}
	}
	if len(pending) == 0 {
		return Result{}
	}
	return Result{Pending: promise.Sequence(pending...)}
}
