package memory_test

import (
	"testing"

	"github.com/branchwork/bramble/pkg/adapters/memory"
	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.FlowSource = (*memory.Source)(nil)

func TestSource_AddAndLookup(t *testing.T) {
	src := memory.NewSource()
	require.NoError(t, src.Add(&domain.Flow{Name: "onboarding"}))
	require.NoError(t, src.Add(&domain.Flow{Name: "checkin"}))

	flow, err := src.Flow("onboarding")
	require.NoError(t, err)
	assert.Equal(t, "onboarding", flow.Name)

	names, err := src.Flows()
	require.NoError(t, err)
	assert.Equal(t, []string{"checkin", "onboarding"}, names)

	_, err = src.Flow("missing")
	assert.ErrorIs(t, err, domain.ErrUnknownFlow)
}

func TestSource_RejectsDuplicatesAndAnonymous(t *testing.T) {
	src := memory.NewSource()
	require.NoError(t, src.Add(&domain.Flow{Name: "onboarding"}))

	assert.Error(t, src.Add(&domain.Flow{Name: "onboarding"}))
	assert.Error(t, src.Add(&domain.Flow{}))
	assert.Error(t, src.Add(nil))
}

func TestSource_SharesRegistry(t *testing.T) {
	src := memory.NewSource()
	require.NotNil(t, src.Subflows())
	assert.Same(t, src.Subflows(), src.Subflows())
}
