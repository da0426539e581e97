package domain

import "fmt"

// DiagnosticCode classifies recoverable configuration problems. None of
// these abort a conversation; the engine degrades to its default
// message and records the diagnostic.
type DiagnosticCode string

const (
	// DiagUnknownSubflow: a subflow reference names an unregistered id.
	DiagUnknownSubflow DiagnosticCode = "unknown_subflow"

	// DiagUnresolvedBranch: a transition destination is absent from the
	// assembled graph.
	DiagUnresolvedBranch DiagnosticCode = "unresolved_branch"

	// DiagBranchCollision: a subflow expansion would overwrite an
	// existing branch name. First definition wins.
	DiagBranchCollision DiagnosticCode = "branch_collision"

	// DiagBadPattern: a trigger pattern failed to compile. Treated as a
	// non-match.
	DiagBadPattern DiagnosticCode = "bad_pattern"

	// DiagUnresolvedVariable: a {{path}} token had no value and was
	// left verbatim in the output.
	DiagUnresolvedVariable DiagnosticCode = "unresolved_variable"

	// DiagAutoAdvanceLimit: the auto-followup chain hit the safety
	// valve depth. Indicates a model error in the flow document.
	DiagAutoAdvanceLimit DiagnosticCode = "auto_advance_limit"
)

// Diagnostic is one recoverable configuration problem observed during
// assembly or a transition.
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	Branch  string         `json:"branch,omitempty"`
	Subject string         `json:"subject,omitempty"`
	Detail  string         `json:"detail,omitempty"`
}

func (d Diagnostic) String() string {
	s := string(d.Code)
	if d.Branch != "" {
		s += " branch=" + d.Branch
	}
	if d.Subject != "" {
		s += " subject=" + d.Subject
	}
	if d.Detail != "" {
		s += fmt.Sprintf(" (%s)", d.Detail)
	}
	return s
}
