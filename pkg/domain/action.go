package domain

// ActionTag is an opaque instruction forwarded to the host application.
// The engine recognizes only ActionNextChat (auto-continuation); every
// other tag, including ones minted after this package was written,
// passes through untouched.
type ActionTag string

// Action tags observed in recorded flows. Hosts may define more.
const (
	// ActionNextChat asks the engine to advance automatically via the
	// branch's auto-followup transition.
	ActionNextChat ActionTag = "nextChat"

	// ActionShowArtifact asks the host to open the artifact identified
	// by the branch's ArtifactID.
	ActionShowArtifact ActionTag = "showArtifact"

	// ActionExitTaskMode asks the host to leave task mode. The engine
	// does not self-terminate on it.
	ActionExitTaskMode ActionTag = "exitTaskMode"

	// ActionNextCustomer asks the host to advance to the next customer.
	ActionNextCustomer ActionTag = "nextCustomer"

	// ActionCompleteStep / ActionEnterStep / ActionAdvanceWithoutComplete
	// drive the host's step tracker.
	ActionCompleteStep           ActionTag = "completeStep"
	ActionEnterStep              ActionTag = "enterStep"
	ActionAdvanceWithoutComplete ActionTag = "advanceWithoutComplete"
)

// IsAutoContinue reports whether the tag triggers engine-side
// auto-continuation.
func (a ActionTag) IsAutoContinue() bool {
	return a == ActionNextChat
}

// ContainsAutoContinue reports whether any tag in the list triggers
// auto-continuation.
func ContainsAutoContinue(tags []ActionTag) bool {
	for _, t := range tags {
		if t.IsAutoContinue() {
			return true
		}
	}
	return false
}
