/*
Package bramble is a deterministic conversation flow engine for guided,
task-oriented chat experiences.

A flow is a declarative document: a graph of branches, each carrying a
message, optional reply buttons, timing hints and outgoing transitions.
The engine walks the graph in response to user input and emits events;
the host application ("Host") owns rendering, persistence and the
interpretation of action tags. This separation lets the same engine
drive a terminal UI, an HTTP API, or an embedded widget.

# Key Features

  - Deterministic transitions: the same state and input always produce
    the same destination, so sessions replay and restore cleanly.
  - Two-phase emission: branches with a delay first emit a transient
    loading event, then the finalized message with buttons attached.
  - Reusable subflows: common fragments (snooze, confirm) register once
    and expand into any flow, optionally parameterized.
  - Variable substitution: {{user.first}}-style placeholders resolve
    against the host-supplied context, with sensible fallbacks.
  - Forgiving at runtime: configuration mistakes degrade to the flow's
    default message and surface as diagnostics instead of panics.

# Usage

Build or load a flow, create a Conversation, subscribe a sink and feed
it input:

	package main

	import (
		"fmt"
		"log"

		"github.com/branchwork/bramble"
		"github.com/branchwork/bramble/pkg/domain"
	)

	func main() {
		flow := &domain.Flow{
			Name:       "checkin",
			StartsWith: domain.StartsWithAI,
			InitialMessage: &domain.Branch{
				Response: "Hi {{name}}! Ready to start?",
				Buttons:  []domain.Button{{Label: "Yes", Value: "yes"}},
				Next:     []domain.Transition{{When: "yes", To: "begin"}},
			},
			Branches: map[string]*domain.Branch{
				"begin": {Response: "Great, let's go."},
			},
		}

		conv, err := bramble.New(flow,
			bramble.WithVariables(map[string]any{"user": map[string]any{"first": "Sam"}}))
		if err != nil {
			log.Fatal(err)
		}
		defer conv.Close()

		conv.Subscribe(func(ev domain.Event) {
			if ev.Kind == domain.EventFinal {
				fmt.Println(ev.Text)
			}
		})

		if _, err := conv.Start(); err != nil {
			log.Fatal(err)
		}
		if err := conv.SubmitButton("yes"); err != nil {
			log.Fatal(err)
		}
	}

Flows are usually not built in code: the file adapter loads YAML or
JSON documents, and the memory adapter serves them to multi-session
hosts. See pkg/adapters.
*/
package bramble
