package arbor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/path"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/router"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/aretw0/arbor/pkg/state"
	"github.com/aretw0/arbor/pkg/transition"
)

// Version is the release of the arbor module.
const Version = "0.3.0"

// Engine is the high-level entry point of the library.
// It ties a state registry, a transition service and a router together.
type Engine struct {
	states   *state.Registry
	funcs    *registry.Registry
	svc      *transition.Service
	router   *router.Router
	sessions *session.Manager
	logger   *slog.Logger

	store        ports.LocationStore
	locker       ports.DistributedLocker
	hooks        domain.LifecycleHooks
	views        path.ViewAttacher
	maxRedirects int
	id           string
	key          string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithStore persists every location the engine reaches.
func WithStore(store ports.LocationStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker serializes location writes across processes. Requires WithStore.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithSessionKey sets the key locations are persisted under.
// It defaults to the engine id.
func WithSessionKey(key string) Option {
	return func(e *Engine) {
		e.key = key
	}
}

// WithID overrides the generated id of the engine's router.
func WithID(id string) Option {
	return func(e *Engine) {
		e.id = id
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithFunctions sets the registry that declarative trees resolve function names against.
func WithFunctions(funcs *registry.Registry) Option {
	return func(e *Engine) {
		if funcs != nil {
			e.funcs = funcs
		}
	}
}

// WithMaxRedirects bounds how many redirects a single Go follows.
func WithMaxRedirects(n int) Option {
	return func(e *Engine) {
		e.maxRedirects = n
	}
}

// WithViewAttacher sets the step turning view declarations into view configs.
func WithViewAttacher(attach path.ViewAttacher) Option {
	return func(e *Engine) {
		e.views = attach
	}
}

// New creates an engine with an empty state tree.
func New(opts ...Option) *Engine {
	e := &Engine{
		states:       state.NewRegistry(),
		funcs:        registry.NewRegistry(),
		maxRedirects: router.DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}

	e.svc = transition.NewService(
		transition.WithLogger(e.logger),
		transition.WithLifecycleHooks(e.hooks),
		transition.WithViewAttacher(e.views),
	)

	routerOpts := []router.Option{
		router.WithService(e.svc),
		router.WithLogger(e.logger),
		router.WithMaxRedirects(e.maxRedirects),
		router.WithID(e.id),
	}
	if e.store != nil {
		sessOpts := []session.Option{session.WithLogger(e.logger)}
		if e.locker != nil {
			sessOpts = append(sessOpts, session.WithLocker(e.locker))
		}
		e.sessions = session.NewManager(e.store, sessOpts...)
		routerOpts = append(routerOpts, router.WithSessions(e.sessions, e.key))
	}
	e.router = router.New(e.states, routerOpts...)
	return e
}

// Register adds states to the tree. Parents must come before their children.
func (e *Engine) Register(decls ...state.Declaration) error {
	for _, decl := range decls {
		if _, err := e.states.Register(decl); err != nil {
			return err
		}
	}
	return nil
}

// Load compiles a YAML state tree and installs its states and hooks.
func (e *Engine) Load(data []byte) error {
	def, err := compiler.Parse(data)
	if err != nil {
		return err
	}
	prog, err := compiler.Compile(def, e.funcs)
	if err != nil {
		return err
	}
	return e.install(prog)
}

// LoadFile compiles the YAML state tree at path and installs it.
func (e *Engine) LoadFile(path string) error {
	prog, err := compiler.LoadFile(path, e.funcs)
	if err != nil {
		return err
	}
	return e.install(prog)
}

func (e *Engine) install(prog *compiler.Program) error {
	if err := prog.Install(e.states, e.svc.Hooks()); err != nil {
		return err
	}
	e.logger.Debug("Installed state tree", "states", len(prog.Declarations()), "hooks", prog.HookCount())
	return nil
}

// Go transitions to the named state with params.
func (e *Engine) Go(ctx context.Context, to string, params map[string]any) (*transition.Transition, error) {
	return e.router.Go(ctx, to, params, state.Options{})
}

// Transition is Go with explicit transition options.
func (e *Engine) Transition(ctx context.Context, to string, params map[string]any, opts state.Options) (*transition.Transition, error) {
	return e.router.Go(ctx, to, params, opts)
}

// Restore moves the engine to its persisted location.
// It returns domain.ErrLocationNotFound when nothing was persisted and
// router.ErrNoSessions when no store was configured.
func (e *Engine) Restore(ctx context.Context) (*transition.Transition, error) {
	return e.router.Restore(ctx)
}

// Resume restores the persisted location, or goes to fallback when there is none.
func (e *Engine) Resume(ctx context.Context, fallback string, params map[string]any) (*transition.Transition, error) {
	t, err := e.router.Restore(ctx)
	if errors.Is(err, domain.ErrLocationNotFound) || errors.Is(err, router.ErrNoSessions) {
		e.logger.Debug("Nothing to restore", "fallback", fallback)
		return e.Go(ctx, fallback, params)
	}
	if err != nil {
		return t, fmt.Errorf("restore: %w", err)
	}
	return t, nil
}

// Location returns the current location, or nil before the first transition.
func (e *Engine) Location() *domain.Location { return e.router.Location() }

// Hooks returns the registry of hooks applied to every transition.
func (e *Engine) Hooks() *transition.HookRegistry { return e.svc.Hooks() }

// Functions returns the function registry used by Load and LoadFile.
func (e *Engine) Functions() *registry.Registry { return e.funcs }

// Registry returns the state registry.
func (e *Engine) Registry() *state.Registry { return e.states }

// Service returns the transition service.
func (e *Engine) Service() *transition.Service { return e.svc }

// Router returns the router owning the current location.
func (e *Engine) Router() *router.Router { return e.router }

// Sessions returns the session manager, or nil when no store is configured.
func (e *Engine) Sessions() *session.Manager { return e.sessions }
