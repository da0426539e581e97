package validator

import (
	"testing"

	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/subflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFlow_CleanFlow(t *testing.T) {
	flow := &domain.Flow{
		InitialMessage: &domain.Branch{
			Next: []domain.Transition{{When: "yes", To: "a"}},
		},
		Branches: map[string]*domain.Branch{
			"a": {Next: []domain.Transition{{When: "go", To: "b"}}},
			"b": {},
		},
	}

	report := ValidateFlow(flow, nil)
	assert.True(t, report.OK())
}

func TestValidateFlow_DanglingDestination(t *testing.T) {
	flow := &domain.Flow{
		InitialMessage: &domain.Branch{
			Next: []domain.Transition{{When: "yes", To: "ghost"}},
		},
		Branches: map[string]*domain.Branch{},
	}

	report := ValidateFlow(flow, nil)
	assert.False(t, report.OK())
	assert.Equal(t, []string{"ghost"}, report.Dangling)
}

func TestValidateFlow_UnreachableBranch(t *testing.T) {
	flow := &domain.Flow{
		InitialMessage: &domain.Branch{
			Next: []domain.Transition{{When: "yes", To: "a"}},
		},
		Branches: map[string]*domain.Branch{
			"a":      {},
			"orphan": {},
		},
	}

	report := ValidateFlow(flow, nil)
	assert.Equal(t, []string{"orphan"}, report.Unreachable)
}

func TestValidateFlow_TriggerKeepsBranchReachable(t *testing.T) {
	flow := &domain.Flow{
		UserTriggers: []domain.Trigger{{Pattern: ".*help.*", Destination: "help"}},
		Branches: map[string]*domain.Branch{
			"help": {},
		},
	}

	report := ValidateFlow(flow, nil)
	assert.True(t, report.OK())
}

func TestValidateFlow_SubflowExpansion(t *testing.T) {
	registry := subflow.NewRegistry()
	require.NoError(t, registry.Register("common.snooze", &subflow.Definition{
		Branch: &domain.Branch{
			Next: []domain.Transition{{When: "tomorrow", To: "snooze-confirm"}},
		},
		FollowUpBranches: map[string]*domain.Branch{
			"snooze-confirm": {},
		},
	}))

	flow := &domain.Flow{
		InitialMessage: &domain.Branch{
			Next: []domain.Transition{{When: "later", To: "snooze"}},
		},
		Branches: map[string]*domain.Branch{
			"snooze": {Subflow: &domain.SubflowRef{Subflow: "common.snooze"}},
		},
	}

	report := ValidateFlow(flow, registry)
	assert.True(t, report.OK(), "follow-up branches must count as reachable destinations: %+v", report)
}

func TestValidateFlow_UnknownSubflow(t *testing.T) {
	flow := &domain.Flow{
		InitialMessage: &domain.Branch{
			Next: []domain.Transition{{When: "later", To: "snooze"}},
		},
		Branches: map[string]*domain.Branch{
			"snooze": {Subflow: &domain.SubflowRef{Subflow: "nope"}},
		},
	}

	report := ValidateFlow(flow, nil)
	assert.Equal(t, []string{"nope"}, report.UnknownSubflows)
}
