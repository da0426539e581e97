package runtime

import (
	"testing"

	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/subflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_ClonesBranches(t *testing.T) {
	flow := &domain.Flow{
		Name: "clone-check",
		Branches: map[string]*domain.Branch{
			"greet": {Response: "hello", Buttons: []domain.Button{{Label: "Hi", Value: "hi"}}},
		},
	}

	g, diags := assemble(flow, subflow.NewRegistry())
	require.Empty(t, diags)

	g.branches["greet"].Response = "mutated"
	g.branches["greet"].Buttons[0].Label = "mutated"
	assert.Equal(t, "hello", flow.Branches["greet"].Response)
	assert.Equal(t, "Hi", flow.Branches["greet"].Buttons[0].Label)
}

func TestAssemble_ExpandsSubflowWithFollowUps(t *testing.T) {
	registry := subflow.NewRegistry()
	require.NoError(t, registry.Register("common.snooze", &subflow.Definition{
		Branch: &domain.Branch{
			Response: "Snooze until when?",
			Next:     []domain.Transition{{When: "tomorrow", To: "snooze-confirm"}},
		},
		FollowUpBranches: map[string]*domain.Branch{
			"snooze-confirm": {Response: "Snoozed."},
		},
	}))

	flow := &domain.Flow{
		Name: "expansion",
		Branches: map[string]*domain.Branch{
			"snooze": {Subflow: &domain.SubflowRef{
				Subflow:    "common.snooze",
				Parameters: map[string]any{"task": "renewal"},
			}},
		},
	}

	g, diags := assemble(flow, registry)
	require.Empty(t, diags)

	require.Contains(t, g.branches, "snooze")
	assert.False(t, g.branches["snooze"].IsSubflowRef())
	assert.Equal(t, "Snooze until when?", g.branches["snooze"].Response)
	require.Contains(t, g.branches, "snooze-confirm")

	assert.Equal(t, map[string]any{"task": "renewal"}, g.params["snooze"])
	assert.Equal(t, map[string]any{"task": "renewal"}, g.params["snooze-confirm"])
}

func TestAssemble_UnknownSubflowKeepsReference(t *testing.T) {
	flow := &domain.Flow{
		Name: "missing-subflow",
		Branches: map[string]*domain.Branch{
			"ref": {Subflow: &domain.SubflowRef{Subflow: "nope"}},
		},
	}

	g, diags := assemble(flow, subflow.NewRegistry())

	require.Len(t, diags, 1)
	assert.Equal(t, domain.DiagUnknownSubflow, diags[0].Code)
	assert.Equal(t, "nope", diags[0].Subject)
	assert.True(t, g.branches["ref"].IsSubflowRef())
}

func TestAssemble_FollowUpCollisionKeepsFirst(t *testing.T) {
	registry := subflow.NewRegistry()
	require.NoError(t, registry.Register("common.confirm", &subflow.Definition{
		Branch: &domain.Branch{Response: "Sure?"},
		FollowUpBranches: map[string]*domain.Branch{
			"done": {Response: "follow-up version"},
		},
	}))

	flow := &domain.Flow{
		Name: "collision",
		Branches: map[string]*domain.Branch{
			"confirm": {Subflow: &domain.SubflowRef{Subflow: "common.confirm"}},
			"done":    {Response: "flow version"},
		},
	}

	g, diags := assemble(flow, registry)

	require.Len(t, diags, 1)
	assert.Equal(t, domain.DiagBranchCollision, diags[0].Code)
	assert.Equal(t, "done", diags[0].Subject)
	assert.Equal(t, "flow version", g.branches["done"].Response)
}

func TestAssemble_ValidatesDestinations(t *testing.T) {
	flow := &domain.Flow{
		Name:       "dangling",
		StartsWith: domain.StartsWithAI,
		InitialMessage: &domain.Branch{
			Response: "hi",
			Next:     []domain.Transition{{When: "go", To: "missing-initial"}},
		},
		UserTriggers: []domain.Trigger{{Pattern: "help", Destination: "missing-trigger"}},
		Branches: map[string]*domain.Branch{
			"a": {Response: "a", Next: []domain.Transition{{When: "x", To: "missing-next"}}},
		},
	}

	_, diags := assemble(flow, subflow.NewRegistry())

	subjects := make([]string, 0, len(diags))
	for _, d := range diags {
		assert.Equal(t, domain.DiagUnresolvedBranch, d.Code)
		subjects = append(subjects, d.Subject)
	}
	assert.ElementsMatch(t, []string{"missing-initial", "missing-trigger", "missing-next"}, subjects)
}
