package transition

import (
	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/path"
	"github.com/aretw0/arbor/pkg/resolve"
	"github.com/aretw0/arbor/pkg/state"
)

// Service holds what every transition shares: the global hooks, the view
// attachment step, the logger and the lifecycle callbacks.
type Service struct {
	hooks     *HookRegistry
	views     path.ViewAttacher
	logger    *slog.Logger
	lifecycle domain.LifecycleHooks
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithViewAttacher sets the step turning view declarations into view configs.
func WithViewAttacher(attach path.ViewAttacher) ServiceOption {
	return func(s *Service) { s.views = attach }
}

// WithLifecycleHooks sets the observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) ServiceOption {
	return func(s *Service) { s.lifecycle = hooks }
}

// NewService creates a transition service.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		hooks:  NewHookRegistry(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hooks returns the registry of hooks applied to every transition.
func (s *Service) Hooks() *HookRegistry {
	return s.hooks
}

// Logger returns the service logger.
func (s *Service) Logger() *slog.Logger {
	return s.logger
}

// Create builds a transition from the from path to target.
func (s *Service) Create(from resolve.Path, target *state.TargetState, opts ...Option) (*Transition, error) {
	return New(from, target, s, opts...)
}
