package domain

// EventKind distinguishes the two emission phases of a delayed branch.
type EventKind string

const (
	// EventLoading is the transient placeholder shown while a branch's
	// Delay elapses. Carries text only, never buttons or actions.
	EventLoading EventKind = "loading"

	// EventFinal is the finalized message: text, buttons, actions and
	// artifact reference.
	EventFinal EventKind = "final"
)

// Event is one message emitted by the engine for the host to render.
// Text is already variable-substituted.
type Event struct {
	Kind       EventKind   `json:"kind"`
	Branch     string      `json:"branch,omitempty"`
	Text       string      `json:"text"`
	Buttons    []Button    `json:"buttons,omitempty"`
	Actions    []ActionTag `json:"actions,omitempty"`
	ArtifactID string      `json:"artifact_id,omitempty"`
}

// EventSink receives emitted events. Delayed phases fire after the
// triggering call returns, so hosts subscribe rather than poll.
type EventSink func(Event)
