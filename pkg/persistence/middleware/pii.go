package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Mask replaces the values of masked params.
const Mask = "***"

type piiMiddleware struct {
	next     ports.LocationStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks, before saving, the param
// values whose key matches one of the patterns. Nested maps are masked too.
// The caller's location is left untouched.
func NewPIIMiddleware(patterns ...string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.LocationStore) ports.LocationStore {
		return &piiMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, key string, loc *domain.Location) error {
	masked := *loc
	masked.Params = m.mask(loc.Params)
	return m.next.Save(ctx, key, &masked)
}

func (m *piiMiddleware) Load(ctx context.Context, key string) (*domain.Location, error) {
	return m.next.Load(ctx, key)
}

func (m *piiMiddleware) Delete(ctx context.Context, key string) error {
	return m.next.Delete(ctx, key)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// mask returns a masked copy of values.
func (m *piiMiddleware) mask(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		switch {
		case m.sensitive(k):
			out[k] = Mask
		case isMap(v):
			out[k] = m.mask(v.(map[string]any))
		default:
			out[k] = v
		}
	}
	return out
}

func (m *piiMiddleware) sensitive(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func isMap(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}
