package resolve

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/inject"
	"github.com/aretw0/arbor/pkg/state"
	"golang.org/x/sync/errgroup"
)

// Context resolves and injects the resolvables of a path.
// Contexts are cheap views over the path's nodes; they share the nodes, not a copy.
type Context struct {
	path         Path
	hooks        domain.LifecycleHooks
	transitionID int64
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithLifecycleHooks reports resolve steps through hooks, tagged with the transition id.
func WithLifecycleHooks(hooks domain.LifecycleHooks, transitionID int64) ContextOption {
	return func(c *Context) {
		c.hooks = hooks
		c.transitionID = transitionID
	}
}

// NewContext creates a context over p.
func NewContext(p Path, opts ...ContextOption) *Context {
	c := &Context{path: p}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Path returns the nodes of the context.
func (c *Context) Path() Path {
	return c.path
}

// Resolvables returns the resolvables visible at s, or at the leaf when s is nil.
// Each node's resolvables shadow same-named ones of its ancestors. Names in
// omitOwnLocals are skipped on the node of s itself, so a resolvable can depend
// on an ancestor's resolvable of the same name.
func (c *Context) Resolvables(s *state.State, omitOwnLocals ...string) map[string]*Resolvable {
	sub := c.path
	if s != nil {
		sub = c.path.SubPath(s)
	}

	out := make(map[string]*Resolvable)
	for i, node := range sub {
		own := i == len(sub)-1
		for _, r := range node.Resolvables() {
			if own && slices.Contains(omitOwnLocals, r.Name) {
				continue
			}
			out[r.Name] = r
		}
	}
	return out
}

// ResolvablesFor returns the visible resolvables that fn declares as dependencies.
func (c *Context) ResolvablesFor(fn inject.Injectable) map[string]*Resolvable {
	all := c.Resolvables(nil)
	out := make(map[string]*Resolvable, len(fn.Deps))
	for _, name := range fn.Deps {
		if r, ok := all[name]; ok {
			out[name] = r
		}
	}
	return out
}

// IsolateRootTo returns a context over the sub-path ending at s.
func (c *Context) IsolateRootTo(s *state.State) *Context {
	return &Context{
		path:         c.path.SubPath(s),
		hooks:        c.hooks,
		transitionID: c.transitionID,
	}
}

// AddResolvables adds rs to the node of s. It reports false when s is not on the path.
func (c *Context) AddResolvables(s *state.State, rs ...*Resolvable) bool {
	node, _ := c.path.Find(s)
	if node == nil {
		return false
	}
	node.AddResolvables(rs...)
	return true
}

// FindNode returns the node that owns r.
func (c *Context) FindNode(r *Resolvable) *Node {
	for _, node := range c.path {
		if node.has(r) {
			return node
		}
	}
	return nil
}

// Policy returns the effective policy of r: its own override, else the policy
// declared by its owning state, else domain.DefaultPolicy.
func (c *Context) Policy(r *Resolvable) domain.Policy {
	if r.Policy != nil {
		return *r.Policy
	}
	if node := c.FindNode(r); node != nil {
		return node.State.ResolvePolicy.For(r.Name)
	}
	return domain.DefaultPolicy
}

// ResolvePath resolves, across every node, the resolvables whose policy is at
// least when, domain.DefaultPolicy if omitted. Nodes are resolved concurrently.
// A single failure fails the call.
func (c *Context) ResolvePath(ctx context.Context, when ...domain.Policy) (inject.Values, error) {
	tier := policyOr(when)
	results := make([]inject.Values, len(c.path))
	g, gctx := errgroup.WithContext(ctx)
	for i, node := range c.path {
		g.Go(func() error {
			vals, err := c.ResolvePathElement(gctx, node.State, tier)
			if err != nil {
				return err
			}
			results[i] = vals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inject.Merge(results...), nil
}

// ResolvePathElement resolves the resolvables of the node of s whose policy is
// at least when, domain.DefaultPolicy if omitted, in a context isolated to that node.
func (c *Context) ResolvePathElement(ctx context.Context, s *state.State, when ...domain.Policy) (inject.Values, error) {
	tier := policyOr(when)
	node, _ := c.path.Find(s)
	if node == nil {
		return nil, fmt.Errorf("resolve %q: %w", s.Name, domain.ErrStateNotFound)
	}
	sub := c.IsolateRootTo(s)

	var matching []*Resolvable
	for _, r := range node.Resolvables() {
		if sub.Policy(r) >= tier {
			matching = append(matching, r)
		}
	}

	out := make(inject.Values, len(matching))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range matching {
		g.Go(func() error {
			v, err := r.Get(gctx, sub)
			if err != nil {
				return err
			}
			mu.Lock()
			out[r.Name] = v
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if c.hooks.OnResolve != nil && len(matching) > 0 {
		names := make([]string, 0, len(matching))
		for _, r := range matching {
			names = append(names, r.Name)
		}
		c.hooks.OnResolve(ctx, &domain.ResolveEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventResolve, TransitionID: c.transitionID},
			State:     s.Name,
			Policy:    tier,
			Names:     names,
		})
	}
	return out, nil
}

func policyOr(when []domain.Policy) domain.Policy {
	if len(when) > 0 {
		return when[0]
	}
	return domain.DefaultPolicy
}

// InvokeNow calls fn with the resolvables it depends on, without resolving
// anything. Unsettled resolvables are injected as nil and take precedence over
// locals of the same name.
func (c *Context) InvokeNow(ctx context.Context, fn inject.Injectable, locals inject.Values) (any, error) {
	resolved := make(inject.Values)
	for name, r := range c.ResolvablesFor(fn) {
		v, _ := r.Data()
		resolved[name] = v
	}
	return inject.Invoke(ctx, fn, inject.Merge(locals, resolved))
}

// InvokeLater resolves every resolvable fn depends on, then calls InvokeNow.
// It blocks until fn returns.
func (c *Context) InvokeLater(ctx context.Context, fn inject.Injectable, locals inject.Values) (any, error) {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range c.ResolvablesFor(fn) {
		g.Go(func() error {
			_, err := r.Get(gctx, c)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return c.InvokeNow(ctx, fn, locals)
}

// dependencies returns the resolvables r depends on, as seen from its owning node.
func (c *Context) dependencies(r *Resolvable) (map[string]*Resolvable, error) {
	var visible map[string]*Resolvable
	if node := c.FindNode(r); node != nil {
		visible = c.Resolvables(node.State, r.Name)
	} else {
		visible = c.Resolvables(nil)
	}

	deps := make(map[string]*Resolvable, len(r.Deps()))
	for _, name := range r.Deps() {
		dep, ok := visible[name]
		if !ok || dep == r {
			return nil, fmt.Errorf("%w: %q required by resolvable %q", inject.ErrUnknownDependency, name, r.Name)
		}
		deps[name] = dep
	}
	return deps, nil
}

// checkCycle walks the unsettled dependencies of r and fails if r can reach itself.
func (c *Context) checkCycle(r *Resolvable) error {
	onStack := map[*Resolvable]bool{}
	done := map[*Resolvable]bool{}

	var visit func(*Resolvable, []string) error
	visit = func(cur *Resolvable, trail []string) error {
		if done[cur] || cur.Settled() {
			return nil
		}
		trail = append(trail, cur.Name)
		if onStack[cur] {
			return fmt.Errorf("%w: %v", domain.ErrCircularDependency, trail)
		}
		onStack[cur] = true
		// a missing dependency surfaces when cur is computed
		deps, _ := c.dependencies(cur)
		for _, dep := range deps {
			if err := visit(dep, trail); err != nil {
				return err
			}
		}
		onStack[cur] = false
		done[cur] = true
		return nil
	}
	return visit(r, nil)
}
