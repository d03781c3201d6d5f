package transition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/promise"
)

// Run runs the transition and returns its outcome promise.
//
// The before hooks run synchronously on the caller's goroutine; the rest of
// the pipeline runs in the background, one step after the other. The promise
// settles exactly once, after which the success or error hooks run with their
// failures logged and swallowed. Calling Run again returns the same promise.
func (t *Transition) Run(ctx context.Context) *promise.Promise {
	t.runOnce.Do(func() { t.run(ctx) })
	return t.promise
}

func (t *Transition) run(ctx context.Context) {
	started := time.Now()
	hb := t.HookBuilder()
	t.emit(ctx, t.svc.lifecycle.OnTransitionStart, domain.EventTransitionStart, started, nil)
	t.svc.logger.Debug("transition started", "transition", t.String())

	before := RunSynchronousHooks(ctx, hb.OnBeforeHooks(), nil, StopOnError)
	if before.IsRejection() {
		t.settle(ctx, hb, started, before.Rejection)
		return
	}
	if !t.Valid() {
		t.settle(ctx, hb, started, NewError(fmt.Errorf("%w: %s", domain.ErrInvalidTarget, t.Error())))
		return
	}
	if t.Ignored() {
		t.settle(ctx, hb, started, NewIgnored())
		return
	}

	go func() {
		err := t.chain(ctx, before, hb.AsyncHooks())
		t.settle(ctx, hb, started, err)
	}()
}

// chain awaits each step before invoking the next one, which receives the
// settled value under LocalPrevious.
func (t *Transition) chain(ctx context.Context, first Result, steps []*Hook) error {
	prev, err := first.Await(ctx)
	if err != nil {
		return err
	}
	for _, step := range steps {
		res, err := step.InvokeStep(ctx, inject.Values{LocalPrevious: prev})
		if err != nil {
			return err
		}
		if prev, err = res.Await(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transition) settle(ctx context.Context, hb *HookBuilder, started time.Time, err error) {
	if err == nil {
		t.success.Store(true)
		t.promise.Resolve(t)
		t.svc.logger.Debug("transition succeeded", "transition", t.String())
		t.emit(ctx, t.svc.lifecycle.OnTransitionSuccess, domain.EventTransitionSuccess, started, nil)
		RunSynchronousHooks(ctx, hb.OnSuccessHooks(), nil, SwallowErrors)
		return
	}

	t.success.Store(false)
	t.promise.Reject(err)

	if IsRejection(err, RejectIgnored) {
		t.svc.logger.Debug("transition ignored", "transition", t.String())
		t.emit(ctx, t.svc.lifecycle.OnTransitionIgnored, domain.EventTransitionIgnored, started, err)
	} else {
		t.svc.logger.Debug("transition failed", "transition", t.String(), "err", err)
		t.emit(ctx, t.svc.lifecycle.OnTransitionError, domain.EventTransitionError, started, err)
	}
	RunSynchronousHooks(ctx, hb.OnErrorHooks(err), nil, SwallowErrors)
}

func (t *Transition) emit(ctx context.Context, fn func(context.Context, *domain.TransitionEvent), typ domain.EventType, started time.Time, err error) {
	if fn == nil {
		return
	}
	event := &domain.TransitionEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ, TransitionID: t.id},
		To:        t.To().Name,
		Params:    t.Params(),
		Err:       err,
	}
	if from := t.From(); from != nil {
		event.From = from.Name
	}
	if typ != domain.EventTransitionStart {
		event.Duration = time.Since(started)
	}
	var rej *Rejection
	if errors.As(err, &rej) {
		event.Reason = rej.Type.String()
	} else if err != nil {
		event.Reason = RejectError.String()
	}
	fn(ctx, event)
}
