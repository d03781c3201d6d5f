package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

const ext = ".json"

// DefaultBasePath is where NewStore keeps locations when no path is given.
const DefaultBasePath = ".arbor/locations"

// Store implements ports.LocationStore using the local filesystem.
// Each location is a JSON file named after its key.
type Store struct {
	BasePath string
}

// NewStore creates a Store rooted at basePath.
// If basePath is empty, it defaults to DefaultBasePath.
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = DefaultBasePath
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(key string) (string, error) {
	if key == "" {
		return "", errors.New("key cannot be empty")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(s.BasePath, key+ext), nil
}

// Save writes the location through a temp file so readers never see a partial write.
func (s *Store) Save(ctx context.Context, key string, loc *domain.Location) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure location directory: %w", err)
	}

	data, err := json.MarshalIndent(loc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal location: %w", err)
	}

	tmp, err := os.CreateTemp(s.BasePath, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write location file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write location file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to commit location file: %w", err)
	}
	return nil
}

// Load reads the location stored under key.
func (s *Store) Load(ctx context.Context, key string) (*domain.Location, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrLocationNotFound
		}
		return nil, fmt.Errorf("failed to read location file: %w", err)
	}

	var loc domain.Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal location: %w", err)
	}
	return &loc, nil
}

// Delete removes the location file. Missing files are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete location file: %w", err)
	}
	return nil
}

// List returns the keys of all stored locations.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}

	keys := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ext))
	}
	sort.Strings(keys)
	return keys, nil
}
