package resolve

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/state"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Reserved resolvable names bound to every transition.
const (
	TransitionToken  = "$transition$"
	StateParamsToken = "$stateParams"
)

// IsReserved reports whether name is bound by the engine itself.
func IsReserved(name string) bool {
	return name == TransitionToken || name == StateParamsToken
}

// Resolvable is a named dependency computed at most once.
type Resolvable struct {
	Name string
	Fn   inject.Injectable

	// Policy overrides the policy declared on the owning state.
	Policy *domain.Policy

	mu       sync.RWMutex
	data     any
	resolved bool
	flight   singleflight.Group
}

// New creates an unsettled resolvable.
func New(name string, fn inject.Injectable) *Resolvable {
	return &Resolvable{Name: name, Fn: fn}
}

// NewResolved creates a resolvable already settled with data.
func NewResolved(name string, data any) *Resolvable {
	return &Resolvable{Name: name, data: data, resolved: true}
}

// WithPolicy sets a policy override on r and returns it.
func (r *Resolvable) WithPolicy(p domain.Policy) *Resolvable {
	r.Policy = &p
	return r
}

// FromDecls builds one fresh resolvable per declaration.
func FromDecls(decls []state.ResolveDecl) []*Resolvable {
	out := make([]*Resolvable, 0, len(decls))
	for _, d := range decls {
		out = append(out, New(d.Name, d.Fn))
	}
	return out
}

// Deps returns the names r depends on.
func (r *Resolvable) Deps() []string {
	return r.Fn.Deps
}

// Data returns the settled value, if any.
func (r *Resolvable) Data() (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data, r.resolved
}

// Settled reports whether r holds a value.
func (r *Resolvable) Settled() bool {
	_, ok := r.Data()
	return ok
}

func (r *Resolvable) set(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.resolved {
		r.data, r.resolved = v, true
	}
}

// Get returns the value of r, computing it first if needed.
//
// Dependencies are looked up in rc as seen from the node that owns r, and are
// resolved concurrently. Concurrent callers share one computation, which is
// not cancelled with the caller that started it; each caller stops waiting
// when its own ctx is done. Only a successful result is kept, so a failed Get
// may be retried.
func (r *Resolvable) Get(ctx context.Context, rc *Context) (any, error) {
	if v, ok := r.Data(); ok {
		return v, nil
	}
	if err := rc.checkCycle(r); err != nil {
		return nil, err
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := r.flight.DoChan(r.Name, func() (any, error) {
		if v, ok := r.Data(); ok {
			return v, nil
		}
		v, err := r.compute(flightCtx, rc)
		if err != nil {
			return nil, err
		}
		r.set(v)
		v, _ = r.Data()
		return v, nil
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Resolvable) compute(ctx context.Context, rc *Context) (any, error) {
	if r.Fn.IsZero() {
		return nil, fmt.Errorf("resolvable %q has no function", r.Name)
	}

	deps, err := rc.dependencies(r)
	if err != nil {
		return nil, err
	}

	values := make(inject.Values, len(deps))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for name, dep := range deps {
		g.Go(func() error {
			v, err := dep.Get(gctx, rc)
			if err != nil {
				return err
			}
			mu.Lock()
			values[name] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	v, err := inject.Invoke(ctx, r.Fn, values)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", r.Name, err)
	}
	return v, nil
}

func (r *Resolvable) String() string {
	if v, ok := r.Data(); ok {
		return fmt.Sprintf("Resolvable(%s=%v)", r.Name, v)
	}
	return fmt.Sprintf("Resolvable(%s)", r.Fn)
}
