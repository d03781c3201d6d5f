package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/path"
	"github.com/aretw0/arbor/pkg/resolve"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/transition"
	"github.com/google/uuid"
)

// DefaultMaxRedirects bounds how many times Go follows redirects before giving up.
const DefaultMaxRedirects = 20

// Router owns the current location in a state tree and moves it with transitions.
// It is safe for concurrent use; a newer Go supersedes any transition still running.
type Router struct {
	id           string
	registry     *state.Registry
	svc          *transition.Service
	sessions     *session.Manager
	key          string
	maxRedirects int
	logger       *slog.Logger

	current atomic.Pointer[transition.Transition]

	mu       sync.RWMutex
	from     resolve.Path
	lastID   int64
	location *domain.Location
}

// Option configures a Router.
type Option func(*Router)

// WithService sets the transition service holding the global hooks.
func WithService(svc *transition.Service) Option {
	return func(r *Router) {
		if svc != nil {
			r.svc = svc
		}
	}
}

// WithSessions persists every location the router reaches under key.
// An empty key defaults to the router id.
func WithSessions(m *session.Manager, key string) Option {
	return func(r *Router) {
		r.sessions = m
		r.key = key
	}
}

// WithMaxRedirects sets the redirect limit of Go.
func WithMaxRedirects(n int) Option {
	return func(r *Router) {
		if n >= 0 {
			r.maxRedirects = n
		}
	}
}

// WithLogger configures a logger for the Router.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithID overrides the generated router id.
func WithID(id string) Option {
	return func(r *Router) {
		if id != "" {
			r.id = id
		}
	}
}

// New creates a router at the root of registry.
func New(registry *state.Registry, opts ...Option) *Router {
	r := &Router{
		id:           uuid.NewString(),
		registry:     registry,
		maxRedirects: DefaultMaxRedirects,
		logger:       logging.NewNop(),
		lastID:       -1,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.svc == nil {
		r.svc = transition.NewService(transition.WithLogger(r.logger))
	}
	if r.key == "" {
		r.key = r.id
	}
	r.from = path.BuildPath(state.NewTarget("", registry.Root(), nil, state.Options{}))
	return r
}

// ID returns the router id.
func (r *Router) ID() string { return r.id }

// Key returns the key the router persists its location under.
func (r *Router) Key() string { return r.key }

// Registry returns the state registry.
func (r *Router) Registry() *state.Registry { return r.registry }

// Service returns the transition service.
func (r *Router) Service() *transition.Service { return r.svc }

// Current returns the most recently started transition, or nil.
func (r *Router) Current() *transition.Transition {
	return r.current.Load()
}

// State returns the state the router is in. It is the root before the first transition.
func (r *Router) State() *state.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.from.Leaf().State
}

// Params returns the param values of the current location.
func (r *Router) Params() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.from.ParamValues()
}

// Path returns the path of the current location.
func (r *Router) Path() resolve.Path {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.from
}

// Location returns the last location reached, or nil before the first success.
func (r *Router) Location() *domain.Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.location == nil {
		return nil
	}
	return r.location.Clone()
}

// Go transitions to the state named to.
//
// Redirect rejections are followed up to the redirect limit. An ignored
// transition returns without error. Any other rejection is returned as an
// error wrapping the *transition.Rejection. On success the target path becomes
// the router's location and, when sessions are configured, is persisted; a
// persistence failure is returned alongside the successful transition.
func (r *Router) Go(ctx context.Context, to string, params map[string]any, opts state.Options) (*transition.Transition, error) {
	target := r.registry.Target(to, params, opts)
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrStateNotFound, target.Error())
	}

	t, err := r.svc.Create(r.Path(), target, transition.WithCurrent(r.Current))
	if err != nil {
		return nil, err
	}

	for redirects := 0; ; redirects++ {
		r.current.Store(t)
		_, err := t.Run(ctx).Await(ctx)
		if err == nil {
			return t, r.adopt(ctx, t)
		}

		rej := transition.AsRejection(err)
		switch rej.Type {
		case transition.RejectIgnored:
			return t, nil
		case transition.RejectRedirected:
			if redirects >= r.maxRedirects {
				return t, fmt.Errorf("%w: gave up after %d redirects at %s", domain.ErrTooManyRedirects, redirects, t)
			}
			r.logger.Debug("Following redirect", "transition", t.String(), "target", rej.Target().String())
			next, err := t.Redirect(rej.Target())
			if err != nil {
				return t, fmt.Errorf("redirect from %s: %w", t, err)
			}
			t = next
		default:
			return t, err
		}
	}
}

// adopt makes the to path of t the router's location, unless a later
// transition was adopted already.
func (r *Router) adopt(ctx context.Context, t *transition.Transition) error {
	loc := domain.NewLocation(t.To().Name, t.Params())
	loc.TransitionID = t.ID()
	loc.Writer = r.id

	r.mu.Lock()
	if t.ID() < r.lastID {
		r.mu.Unlock()
		return nil
	}
	r.lastID = t.ID()
	r.from = t.TreeChanges().To
	r.location = loc
	r.mu.Unlock()

	if r.sessions == nil {
		return nil
	}
	if _, err := r.sessions.Advance(ctx, r.key, loc); err != nil {
		r.logger.Error("Failed to persist location", "key", r.key, "state", loc.State, "err", err)
		return fmt.Errorf("persist location: %w", err)
	}
	return nil
}

// ErrNoSessions is returned by Restore when no session manager is configured.
var ErrNoSessions = errors.New("router has no session manager")

// Restore moves the router to its persisted location.
// It returns domain.ErrLocationNotFound when nothing was persisted.
func (r *Router) Restore(ctx context.Context) (*transition.Transition, error) {
	if r.sessions == nil {
		return nil, ErrNoSessions
	}
	loc, err := r.sessions.Load(ctx, r.key)
	if err != nil {
		return nil, err
	}
	r.logger.Info("Restoring location", "key", r.key, "state", loc.State)
	return r.Go(ctx, loc.State, loc.Params, state.Options{})
}
