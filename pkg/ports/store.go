package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// LocationStore defines the interface for persisting router locations.
// This allows a router to resume where it was after a restart.
type LocationStore interface {
	// Save persists the location for a given key.
	Save(ctx context.Context, key string, loc *domain.Location) error

	// Load retrieves the location for a given key.
	// Returns domain.ErrLocationNotFound if the key does not exist.
	Load(ctx context.Context, key string) (*domain.Location, error)

	// Delete removes the location for a given key.
	Delete(ctx context.Context, key string) error

	// List returns the keys with a stored location.
	List(ctx context.Context) ([]string, error)
}
