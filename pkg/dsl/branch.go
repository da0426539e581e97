package dsl

import (
	"time"

	"github.com/branchwork/bramble/pkg/domain"
)

// BranchBuilder provides a fluent API for configuring one branch.
type BranchBuilder struct {
	branch  *domain.Branch
	builder *Builder
}

// Respond sets the message text. Placeholders like {{user.first}} are
// substituted at emission time.
func (n *BranchBuilder) Respond(text string) *BranchBuilder {
	n.branch.Response = text
	return n
}

// Predelay sets the presentation pause before the branch appears.
func (n *BranchBuilder) Predelay(d time.Duration) *BranchBuilder {
	n.branch.Predelay = domain.Duration(d)
	return n
}

// Delay makes emission two-phase: loading first, the finalized message
// after d.
func (n *BranchBuilder) Delay(d time.Duration) *BranchBuilder {
	n.branch.Delay = domain.Duration(d)
	return n
}

// Button offers a reply option and wires its transition in one step.
func (n *BranchBuilder) Button(label, value, to string) *BranchBuilder {
	n.branch.Buttons = append(n.branch.Buttons, domain.Button{Label: label, Value: value})
	return n.On(value, to)
}

// On adds a transition: when is a button value or a free-text pattern.
func (n *BranchBuilder) On(when, to string) *BranchBuilder {
	n.branch.Next = append(n.branch.Next, domain.Transition{When: when, To: to})
	return n
}

// AutoFollowup chains to the next branch without user input. Implies
// the nextChat action.
func (n *BranchBuilder) AutoFollowup(to string) *BranchBuilder {
	n.Action(domain.ActionNextChat)
	return n.On(domain.AutoFollowupKey, to)
}

// Action attaches an action tag forwarded to the host.
func (n *BranchBuilder) Action(tags ...domain.ActionTag) *BranchBuilder {
	n.branch.Actions = append(n.branch.Actions, tags...)
	return n
}

// Artifact attaches the artifact ID accompanying showArtifact actions.
func (n *BranchBuilder) Artifact(id string) *BranchBuilder {
	n.branch.ArtifactID = id
	return n
}

// DefaultMessage overrides the flow-level fallback at this branch.
func (n *BranchBuilder) DefaultMessage(text string) *BranchBuilder {
	n.branch.DefaultMessage = text
	return n
}

// End marks the branch as a conversation exit.
func (n *BranchBuilder) End() *BranchBuilder {
	return n.Action(domain.ActionExitTaskMode)
}

// Builder returns the parent for continued chaining.
func (n *BranchBuilder) Builder() *Builder {
	return n.builder
}
