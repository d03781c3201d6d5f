// Package promise provides a single-assignment awaitable value.
//
// A Promise is settled exactly once, either resolved with a value or rejected
// with an error. Later attempts to settle it are no-ops. Any number of
// goroutines may wait on it.
package promise

import (
	"context"
	"fmt"
	"sync"
)

// Awaitable is anything that eventually produces a value or an error.
// Result is only meaningful once Done is closed.
type Awaitable interface {
	Done() <-chan struct{}
	Result() (any, error)
}

// Promise is a single-assignment Awaitable.
type Promise struct {
	mu      sync.Mutex
	done    chan struct{}
	settled bool
	value   any
	err     error
}

// New creates a pending promise.
func New() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Resolved creates a promise already resolved with v.
func Resolved(v any) *Promise {
	p := New()
	p.Resolve(v)
	return p
}

// Rejected creates a promise already rejected with err.
func Rejected(err error) *Promise {
	p := New()
	p.Reject(err)
	return p
}

// Go runs fn on its own goroutine and settles the returned promise with its result.
// A panic inside fn rejects the promise.
func Go(fn func() (any, error)) *Promise {
	p := New()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.Reject(fmt.Errorf("panic in async step: %v", r))
			}
		}()
		v, err := fn()
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(v)
	}()
	return p
}

// Resolve settles the promise with v. It reports whether this call settled it.
func (p *Promise) Resolve(v any) bool {
	return p.settle(v, nil)
}

// Reject settles the promise with err. It reports whether this call settled it.
// A nil error is replaced by ErrNilRejection.
func (p *Promise) Reject(err error) bool {
	if err == nil {
		err = ErrNilRejection
	}
	return p.settle(nil, err)
}

func (p *Promise) settle(v any, err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return false
	}
	p.settled = true
	p.value = v
	p.err = err
	close(p.done)
	return true
}

// Done is closed once the promise is settled.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Settled reports whether the promise has been resolved or rejected.
func (p *Promise) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settled
}

// Result returns the settled value and error without blocking.
// Both are zero while the promise is pending.
func (p *Promise) Result() (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}

// Await blocks until the promise settles or ctx is done.
func (p *Promise) Await(ctx context.Context) (any, error) {
	return Await(ctx, p)
}

// Await blocks until a settles or ctx is done.
func Await(ctx context.Context, a Awaitable) (any, error) {
	select {
	case <-a.Done():
		return a.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Then chains callbacks onto a. A nil callback passes the value or error through.
// The returned promise settles with whatever the invoked callback returns.
func Then(a Awaitable, onResolved func(any) (any, error), onRejected func(error) (any, error)) *Promise {
	return Go(func() (any, error) {
		<-a.Done()
		v, err := a.Result()
		if err != nil {
			if onRejected == nil {
				return nil, err
			}
			return onRejected(err)
		}
		if onResolved == nil {
			return v, nil
		}
		return onResolved(v)
	})
}

// Sequence waits for each awaitable in order. It rejects with the first error
// encountered and otherwise resolves with the value of the last one.
func Sequence(all ...Awaitable) *Promise {
	return Go(func() (any, error) {
		var last any
		for _, a := range all {
			<-a.Done()
			v, err := a.Result()
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil
	})
}
