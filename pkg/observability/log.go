package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

// LogHooks logs every lifecycle event to logger. Transition outcomes are logged
// at INFO (WARN for errors); hook invocations and resolves at DEBUG.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	transitionAttrs := func(e *domain.TransitionEvent) []any {
		attrs := []any{
			"transition_id", e.TransitionID,
			"from", e.From,
			"to", e.To,
		}
		if len(e.Params) > 0 {
			attrs = append(attrs, "params", e.Params)
		}
		if e.Duration > 0 {
			attrs = append(attrs, "duration", e.Duration)
		}
		return attrs
	}

	return domain.LifecycleHooks{
		OnTransitionStart: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "transition_start", transitionAttrs(e)...)
		},
		OnTransitionSuccess: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "transition_success", transitionAttrs(e)...)
		},
		OnTransitionIgnored: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "transition_ignored", transitionAttrs(e)...)
		},
		OnTransitionError: func(ctx context.Context, e *domain.TransitionEvent) {
			attrs := append(transitionAttrs(e), "reason", e.Reason, "err", e.Err)
			logger.WarnContext(ctx, "transition_error", attrs...)
		},
		OnHookInvoke: func(ctx context.Context, e *domain.HookEvent) {
			logger.DebugContext(ctx, "hook_invoke",
				"transition_id", e.TransitionID,
				"hook_type", e.HookType,
				"context", e.Context,
			)
		},
		OnResolve: func(ctx context.Context, e *domain.ResolveEvent) {
			logger.DebugContext(ctx, "resolve",
				"transition_id", e.TransitionID,
				"state", e.State,
				"policy", e.Policy.String(),
				"names", e.Names,
			)
		},
	}
}
