// Package middleware wraps a StateStore with cross-cutting persistence
// behavior: at-rest encryption and PII masking. Middlewares compose, so
// a host can mask variables and then encrypt the whole snapshot.
package middleware

import "github.com/branchwork/bramble/pkg/ports"

// Middleware wraps a StateStore to add behavior.
type Middleware func(ports.StateStore) ports.StateStore

// Chain applies middlewares right to left, so the first listed wraps
// outermost.
func Chain(store ports.StateStore, middlewares ...Middleware) ports.StateStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
