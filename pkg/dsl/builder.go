package dsl

import (
	"fmt"

	"github.com/branchwork/bramble/pkg/domain"
)

// Builder assembles a flow document programmatically.
type Builder struct {
	flow  *domain.Flow
	order []string
}

// New creates a flow builder. The flow opens with the AI speaking
// unless StartsWithUser is called.
func New(name string) *Builder {
	return &Builder{
		flow: &domain.Flow{
			Name:       name,
			StartsWith: domain.StartsWithAI,
			Branches:   make(map[string]*domain.Branch),
		},
	}
}

// StartsWithUser makes the user open the conversation: Start emits
// nothing and waits for input.
func (b *Builder) StartsWithUser() *Builder {
	b.flow.StartsWith = domain.StartsWithUser
	return b
}

// DefaultMessage sets the flow-level reply for unmatched free text.
func (b *Builder) DefaultMessage(text string) *Builder {
	b.flow.DefaultMessage = text
	return b
}

// Trigger adds a flow-level free-text rule. Triggers match in the
// order they are added.
func (b *Builder) Trigger(pattern, destination string) *Builder {
	b.flow.UserTriggers = append(b.flow.UserTriggers, domain.Trigger{
		Pattern:     pattern,
		Destination: destination,
	})
	return b
}

// Initial configures the opening message.
func (b *Builder) Initial() *BranchBuilder {
	if b.flow.InitialMessage == nil {
		b.flow.InitialMessage = &domain.Branch{}
	}
	return &BranchBuilder{branch: b.flow.InitialMessage, builder: b}
}

// Branch creates or returns the named branch.
func (b *Builder) Branch(name string) *BranchBuilder {
	br, ok := b.flow.Branches[name]
	if !ok {
		br = &domain.Branch{}
		b.flow.Branches[name] = br
		b.order = append(b.order, name)
	}
	return &BranchBuilder{branch: br, builder: b}
}

// Subflow creates a branch that references a registered subflow.
func (b *Builder) Subflow(name, subflowID string, params map[string]any) *Builder {
	br := b.Branch(name).branch
	br.Subflow = &domain.SubflowRef{Subflow: subflowID, Parameters: params}
	return b
}

// Build validates transition destinations and returns the flow.
func (b *Builder) Build() (*domain.Flow, error) {
	check := func(from string, next []domain.Transition) error {
		for _, t := range next {
			if _, ok := b.flow.Branches[t.To]; !ok {
				return fmt.Errorf("branch %q transitions to undefined branch %q", from, t.To)
			}
		}
		return nil
	}

	if b.flow.InitialMessage != nil {
		if err := check("initial_message", b.flow.InitialMessage.Next); err != nil {
			return nil, err
		}
	}
	for _, name := range b.order {
		if err := check(name, b.flow.Branches[name].Next); err != nil {
			return nil, err
		}
	}
	return b.flow, nil
}

// MustBuild is Build for static flow definitions; it panics on error.
func (b *Builder) MustBuild() *domain.Flow {
	flow, err := b.Build()
	if err != nil {
		panic(err)
	}
	return flow
}
