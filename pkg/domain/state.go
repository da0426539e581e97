package domain

// Status is the lifecycle phase of a conversation session.
type Status string

const (
	// StatusIdle is the pre-Start phase. Submitting input here is a
	// programmer error and fails loudly.
	StatusIdle Status = "idle"

	// StatusActive is normal operation.
	StatusActive Status = "active"

	// StatusCompleted is reached only by an explicit Reset; the engine
	// never self-terminates.
	StatusCompleted Status = "completed"
)

// State is the serializable snapshot of a session. The engine holds it
// in memory; hosts may persist and restore it verbatim through a
// StateStore. CurrentBranch plus the immutable Flow is sufficient to
// reconstruct the engine's position.
type State struct {
	// Flow names the flow document this session runs over, so a host
	// can reconstruct the right engine from a bare snapshot.
	Flow string `json:"flow,omitempty"`

	// CurrentBranch is the name of the active branch. Empty means the
	// synthetic initial pointer set by Start.
	CurrentBranch string `json:"current_branch"`

	// Status is the lifecycle phase.
	Status Status `json:"status"`

	// Vars is the variable context (user profile, customer record,
	// subflow parameters) placeholders resolve against.
	Vars map[string]any `json:"vars,omitempty"`

	// History is the ordered list of emitted events. Owned by the host
	// for rendering and restore.
	History []Event `json:"history,omitempty"`
}

// NewState returns a fresh idle snapshot seeded with the given
// variable context.
func NewState(vars map[string]any) *State {
	if vars == nil {
		vars = make(map[string]any)
	}
	return &State{
		Status: StatusIdle,
		Vars:   vars,
	}
}

// Clone returns a deep-enough copy for safe handoff across the store
// boundary: the variable map and history slice are copied, values are
// shared.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Vars = make(map[string]any, len(s.Vars))
	for k, v := range s.Vars {
		out.Vars[k] = v
	}
	if s.History != nil {
		out.History = make([]Event, len(s.History))
		copy(out.History, s.History)
	}
	return &out
}
