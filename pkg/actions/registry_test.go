package actions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/branchwork/bramble/pkg/actions"
	"github.com/branchwork/bramble/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Dispatch(t *testing.T) {
	reg := actions.NewRegistry()

	var opened []string
	reg.Register(domain.ActionShowArtifact, func(ctx context.Context, ev domain.Event) error {
		opened = append(opened, ev.ArtifactID)
		return nil
	})

	err := reg.Dispatch(context.Background(), domain.Event{
		Actions:    []domain.ActionTag{domain.ActionShowArtifact},
		ArtifactID: "renewal-brief",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"renewal-brief"}, opened)
}

func TestRegistry_SkipsUnhandledTags(t *testing.T) {
	reg := actions.NewRegistry()

	called := false
	reg.Register(domain.ActionNextCustomer, func(ctx context.Context, ev domain.Event) error {
		called = true
		return nil
	})

	err := reg.Dispatch(context.Background(), domain.Event{
		Actions: []domain.ActionTag{"someFutureTag", domain.ActionNextCustomer},
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRegistry_HandlerErrorStopsDispatch(t *testing.T) {
	reg := actions.NewRegistry()

	boom := errors.New("boom")
	reg.Register(domain.ActionCompleteStep, func(ctx context.Context, ev domain.Event) error {
		return boom
	})
	reached := false
	reg.Register(domain.ActionNextCustomer, func(ctx context.Context, ev domain.Event) error {
		reached = true
		return nil
	})

	err := reg.Dispatch(context.Background(), domain.Event{
		Actions: []domain.ActionTag{domain.ActionCompleteStep, domain.ActionNextCustomer},
	})
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "completeStep")
	assert.False(t, reached)
}

func TestRegistry_Handles(t *testing.T) {
	reg := actions.NewRegistry()
	assert.False(t, reg.Handles(domain.ActionExitTaskMode))

	reg.Register(domain.ActionExitTaskMode, func(ctx context.Context, ev domain.Event) error { return nil })
	assert.True(t, reg.Handles(domain.ActionExitTaskMode))
}
