package middleware_test

import (
	"context"
	"testing"

	"github.com/branchwork/bramble/pkg/adapters/memory"
	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPIIMasking_MasksMatchingKeys(t *testing.T) {
	backing := memory.NewStore()
	store := middleware.NewPIIMasking([]string{"(?i)email", "ssn"})(backing)

	state := &domain.State{
		Status: domain.StatusActive,
		Vars: map[string]any{
			"Email": "sam@acme.test",
			"plan":  "pro",
			"user": map[string]any{
				"ssn":   "123-45-6789",
				"first": "Sam",
			},
		},
	}

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "s1", state))

	stored, err := backing.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "***", stored.Vars["Email"])
	assert.Equal(t, "pro", stored.Vars["plan"])

	nested := stored.Vars["user"].(map[string]any)
	assert.Equal(t, "***", nested["ssn"])
	assert.Equal(t, "Sam", nested["first"])
}

func TestPIIMasking_LeavesEngineStateUntouched(t *testing.T) {
	store := middleware.NewPIIMasking([]string{"email"})(memory.NewStore())

	state := &domain.State{
		Status: domain.StatusActive,
		Vars: map[string]any{
			"email": "sam@acme.test",
			"user":  map[string]any{"email": "sam@acme.test"},
		},
	}
	require.NoError(t, store.Save(context.Background(), "s1", state))

	assert.Equal(t, "sam@acme.test", state.Vars["email"])
	assert.Equal(t, "sam@acme.test", state.Vars["user"].(map[string]any)["email"])
}

func TestChain_OrdersMiddlewares(t *testing.T) {
	backing := memory.NewStore()
	store := middleware.Chain(backing,
		middleware.NewPIIMasking([]string{"email"}),
		middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: testKey('a')}),
	)

	state := &domain.State{
		Flow:   "renewal-checkin",
		Status: domain.StatusActive,
		Vars:   map[string]any{"email": "sam@acme.test"},
	}

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "s1", state))

	// Masking runs before encryption, so the decrypted snapshot holds
	// the mask, not the address.
	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "***", loaded.Vars["email"])
}
