package ports

import (
	"context"

	"github.com/branchwork/bramble/pkg/domain"
)

// StateStore persists session snapshots on behalf of the host. The
// engine itself holds state in memory only; stores exist so hosts can
// park a conversation and restore it verbatim later.
type StateStore interface {
	// Save persists the snapshot for a session ID.
	Save(ctx context.Context, sessionID string, state *domain.State) error

	// Load retrieves the snapshot for a session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.State, error)

	// Delete removes the snapshot for a session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of stored sessions.
	List(ctx context.Context) ([]string, error)
}
