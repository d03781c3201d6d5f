package middleware

import "github.com/aretw0/arbor/pkg/ports"

// Middleware allows wrapping a LocationStore to add behavior.
type Middleware func(ports.LocationStore) ports.LocationStore

// Chain wraps store with mws. The first middleware is the outermost, so it
// sees a location first on Save and last on Load.
func Chain(store ports.LocationStore, mws ...Middleware) ports.LocationStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
