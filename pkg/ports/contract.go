package ports

import (
	"context"
	"testing"
	"time"

	"github.com/branchwork/bramble/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract verifies that a StateStore implementation
// adheres to the interface contract. Adapter test suites call this
// against their concrete store.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(map[string]any{
			"user": map[string]any{"email": "sam@x.com"},
		})
		state.Status = domain.StatusActive
		state.CurrentBranch = "greeting"
		state.History = []domain.Event{
			{Kind: domain.EventFinal, Branch: "greeting", Text: "Hi Sam"},
		}

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.CurrentBranch, loaded.CurrentBranch)
		assert.Equal(t, state.Status, loaded.Status)
		require.Len(t, loaded.History, 1)
		assert.Equal(t, "Hi Sam", loaded.History[0].Text)
		// JSON round-trips may restructure nested values; presence is
		// the contract, exact typing is not.
		assert.NotNil(t, loaded.Vars["user"])
	})

	t.Run("Load isolation", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.CurrentBranch = "mutated"

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "greeting", again.CurrentBranch, "loaded states must not alias store internals")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewState(nil))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		a, b := sessionID+"-a", sessionID+"-b"
		require.NoError(t, store.Save(ctx, a, domain.NewState(nil)))
		require.NoError(t, store.Save(ctx, b, domain.NewState(nil)))

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, a)
		assert.Contains(t, sessions, b)

		require.NoError(t, store.Delete(ctx, a))
		require.NoError(t, store.Delete(ctx, b))
	})
}
