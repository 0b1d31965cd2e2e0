package middleware

import "github.com/aretw0/arbor/pkg/ports"

// Middleware allows wrapping a DocumentStore to add behavior.
type Middleware func(ports.DocumentStore) ports.DocumentStore

// Chain wraps store with mws. The first middleware is the outermost.
func Chain(store ports.DocumentStore, mws ...Middleware) ports.DocumentStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// Unwrap returns the innermost store beneath any middleware.
func Unwrap(store ports.DocumentStore) ports.DocumentStore {
	for {
		w, ok := store.(interface{ Unwrap() ports.DocumentStore })
		if !ok {
			return store
		}
		store = w.Unwrap()
	}
}
