package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Store implements ports.LocationStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Location
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Location),
	}
}

// Save persists a copy of the location in memory.
func (s *Store) Save(ctx context.Context, key string, loc *domain.Location) error {
	copied := loc.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = copied
	return nil
}

// Load retrieves a copy of the location so callers can't mutate the store by pointer.
func (s *Store) Load(ctx context.Context, key string) (*domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loc, ok := s.data[key]
	if !ok {
		return nil, domain.ErrLocationNotFound
	}
	return loc.Clone(), nil
}

// Delete removes the location.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns the stored keys, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
