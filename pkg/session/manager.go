package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes access to persisted locations, one key at a time.
// Per-key locks are reference counted and dropped once nobody holds them.
type Manager struct {
	store ports.LocationStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the TTL of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager over the given store.
func NewManager(store ports.LocationStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST lock entry.mu, and then call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// Load retrieves an existing location from the store.
func (m *Manager) Load(ctx context.Context, key string) (*domain.Location, error) {
	var loc *domain.Location
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		loc, err = m.store.Load(ctx, key)
		return err
	})
	return loc, err
}

// LoadOrStart loads the location for key. If none exists, initial is stored and returned.
func (m *Manager) LoadOrStart(ctx context.Context, key string, initial *domain.Location) (*domain.Location, error) {
	var loc *domain.Location
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		var err error
		loc, err = m.store.Load(ctx, key)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrLocationNotFound) {
			return fmt.Errorf("failed to check location existence: %w", err)
		}

		loc = initial.Clone()
		if err := m.store.Save(ctx, key, loc); err != nil {
			return fmt.Errorf("failed to initialize location: %w", err)
		}
		return nil
	})
	return loc, err
}

// Save persists the location.
func (m *Manager) Save(ctx context.Context, key string, loc *domain.Location) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Save(ctx, key, loc)
	})
}

// Advance stores loc unless the stored location was written by a later
// transition of the same writer. It reports whether loc was written.
func (m *Manager) Advance(ctx context.Context, key string, loc *domain.Location) (bool, error) {
	written := false
	err := m.WithLock(ctx, key, func(ctx context.Context) error {
		current, err := m.store.Load(ctx, key)
		switch {
		case err == nil:
			if current.Writer == loc.Writer && current.TransitionID > loc.TransitionID {
				m.logger.Debug("Skipping stale location write",
					"key", key,
					"stored_transition", current.TransitionID,
					"transition", loc.TransitionID,
				)
				return nil
			}
		case !errors.Is(err, domain.ErrLocationNotFound):
			return fmt.Errorf("failed to read location: %w", err)
		}

		if err := m.store.Save(ctx, key, loc); err != nil {
			return err
		}
		written = true
		return nil
	})
	return written, err
}

// Delete removes the location from the store.
func (m *Manager) Delete(ctx context.Context, key string) error {
	return m.WithLock(ctx, key, func(ctx context.Context) error {
		return m.store.Delete(ctx, key)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying location store.
func (m *Manager) Store() ports.LocationStore {
	return m.store
}

// WithLock executes fn while holding the lock for key.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(context.Context) error) error {
	entry := m.acquire(key)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(key)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			// The caller's ctx may already be done; the lock still has to go.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"key", key,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
