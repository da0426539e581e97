package domain

// Speaker identifies which side opens the conversation.
const (
	StartsWithAI   = "ai"
	StartsWithUser = "user"
)

// AutoFollowupKey is the synthetic input token used by the engine to
// advance a conversation automatically when a branch carries the
// nextChat action. Flow documents reference it as a transition key.
const AutoFollowupKey = "auto-followup"

// Flow is the top-level conversation document: a named graph of
// branches plus flow-level trigger rules and fallbacks. It is immutable
// input; each session assembles its own working graph from it.
type Flow struct {
	// Name identifies the flow for loaders, logs and metrics.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// StartsWith declares whether the AI or the user speaks first.
	// When "ai", InitialMessage is emitted by Start.
	StartsWith string `json:"starts_with,omitempty" yaml:"starts_with,omitempty"`

	// DefaultMessage is the flow-level reply for free text that matches
	// no trigger ("I didn't understand that...").
	DefaultMessage string `json:"default_message,omitempty" yaml:"default_message,omitempty"`

	// InitialMessage, if present, is emitted when the session starts.
	InitialMessage *Branch `json:"initial_message,omitempty" yaml:"initial_message,omitempty"`

	// UserTriggers are flow-level free-text rules, evaluated in declared
	// order after the current branch's own transitions.
	UserTriggers []Trigger `json:"user_triggers,omitempty" yaml:"user_triggers,omitempty"`

	// Branches is the arena of named dialogue nodes.
	Branches map[string]*Branch `json:"branches" yaml:"branches"`
}

// Trigger maps a free-text regular expression to a destination branch.
// Patterns use search semantics against the trimmed input: ".*renewal.*"
// and "renewal" both match text containing the word anywhere.
type Trigger struct {
	Pattern     string `json:"pattern" yaml:"pattern"`
	Destination string `json:"destination" yaml:"destination"`
}

// Branch is one node in the dialogue graph. A branch is either a
// literal definition (Response and friends) or a reference to a
// reusable subflow (Subflow set, everything else empty).
type Branch struct {
	// Response is the message text. May embed {{var}} placeholders.
	Response string `json:"response,omitempty" yaml:"response,omitempty"`

	// Predelay staggers the transition into this branch: the host is
	// told to wait before any visual change. Presentation-only; the
	// engine's internal pointer moves immediately.
	Predelay Duration `json:"predelay,omitempty" yaml:"predelay,omitempty"`

	// Delay turns emission into two phases: a transient "loading"
	// message first, then the finalized message (buttons and actions
	// attached) after the delay elapses.
	Delay Duration `json:"delay,omitempty" yaml:"delay,omitempty"`

	// Buttons offered with the finalized message, in order.
	Buttons []Button `json:"buttons,omitempty" yaml:"buttons,omitempty"`

	// Actions forwarded verbatim to the host with the finalized
	// message. The engine interprets only ActionNextChat.
	Actions []ActionTag `json:"actions,omitempty" yaml:"actions,omitempty"`

	// ArtifactID accompanies showArtifact-class actions.
	ArtifactID string `json:"artifact_id,omitempty" yaml:"artifact_id,omitempty"`

	// Next lists outgoing transitions in declared order. When is either
	// a button value (exact match) or a free-text pattern (search
	// semantics). Order is part of the document's meaning.
	Next []Transition `json:"next,omitempty" yaml:"next,omitempty"`

	// DefaultMessage overrides the flow-level default for free text
	// that matches nothing at this branch.
	DefaultMessage string `json:"default_message,omitempty" yaml:"default_message,omitempty"`

	// Subflow, when set, makes this entry a reference to a registered
	// subflow instead of a literal branch.
	Subflow *SubflowRef `json:"subflow,omitempty" yaml:"subflow,omitempty"`
}

// IsSubflowRef reports whether the branch is a subflow reference rather
// than a literal definition.
func (b *Branch) IsSubflowRef() bool {
	return b != nil && b.Subflow != nil
}

// NextFor returns the destination for an exact transition key (button
// values, the auto-followup token). The bool reports whether a
// transition with that key exists.
func (b *Branch) NextFor(key string) (string, bool) {
	for _, t := range b.Next {
		if t.When == key {
			return t.To, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the branch. Subflow expansion layers
// session-specific substitution onto copies, never onto shared
// registry entries.
func (b *Branch) Clone() *Branch {
	if b == nil {
		return nil
	}
	out := *b
	if b.Buttons != nil {
		out.Buttons = make([]Button, len(b.Buttons))
		copy(out.Buttons, b.Buttons)
	}
	if b.Actions != nil {
		out.Actions = make([]ActionTag, len(b.Actions))
		copy(out.Actions, b.Actions)
	}
	if b.Next != nil {
		out.Next = make([]Transition, len(b.Next))
		copy(out.Next, b.Next)
	}
	if b.Subflow != nil {
		ref := *b.Subflow
		if b.Subflow.Parameters != nil {
			ref.Parameters = make(map[string]any, len(b.Subflow.Parameters))
			for k, v := range b.Subflow.Parameters {
				ref.Parameters[k] = v
			}
		}
		out.Subflow = &ref
	}
	return &out
}

// Transition is one outgoing edge of a branch.
type Transition struct {
	When string `json:"when" yaml:"when"`
	To   string `json:"to" yaml:"to"`
}

// Button is a selectable reply option. Value is the transition key;
// colors are presentation hints passed through to the host.
type Button struct {
	Label           string `json:"label" yaml:"label"`
	Value           string `json:"value" yaml:"value"`
	BackgroundColor string `json:"background_color,omitempty" yaml:"background_color,omitempty"`
	TextColor       string `json:"text_color,omitempty" yaml:"text_color,omitempty"`
}

// SubflowRef points at a reusable named flow in the subflow registry,
// optionally parameterized. Parameters are merged into the variable
// context when the resolved branch's text is substituted.
type SubflowRef struct {
	Subflow    string         `json:"subflow" yaml:"subflow"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}
