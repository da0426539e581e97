// Package actions maps the opaque action tags emitted by flows to host
// behavior. The engine forwards tags verbatim; a Registry is how a host
// decides what showArtifact or nextCustomer actually do.
package actions

import (
	"context"
	"fmt"
	"sync"

	"github.com/branchwork/bramble/pkg/domain"
)

// Handler executes one action tag. The event carries the branch and
// artifact context the action was emitted with.
type Handler func(ctx context.Context, event domain.Event) error

// Registry manages the handlers a host registers for action tags.
// Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.ActionTag]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[domain.ActionTag]Handler),
	}
}

// Register sets the handler for a tag, replacing any previous one.
func (r *Registry) Register(tag domain.ActionTag, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[tag] = fn
}

// Dispatch runs the handlers for every action on the event. Tags
// without a handler are skipped; unknown tags are a host concern, not
// an error. The first handler error stops the dispatch.
func (r *Registry) Dispatch(ctx context.Context, event domain.Event) error {
	for _, tag := range event.Actions {
		r.mu.RLock()
		fn, ok := r.handlers[tag]
		r.mu.RUnlock()
		if !ok {
			continue
		}
		if err := fn(ctx, event); err != nil {
			return fmt.Errorf("action %s: %w", tag, err)
		}
	}
	return nil
}

// Handles reports whether a handler is registered for the tag.
func (r *Registry) Handles(tag domain.ActionTag) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[tag]
	return ok
}
