package domain

import (
	"fmt"
	"time"
)

// Choice selects the winning side when resolving a conflict by hand.
type Choice string

const (
	// ChoiceRemote applies the remote content and clears dirty.
	ChoiceRemote Choice = "remote"

	// ChoiceLocal keeps the local content and records it as agreed with the remote.
	ChoiceLocal Choice = "local"
)

// ParseChoice maps user input onto a Choice. "server" is accepted as an alias for remote.
func ParseChoice(s string) (Choice, error) {
	switch s {
	case string(ChoiceRemote), "server":
		return ChoiceRemote, nil
	case string(ChoiceLocal):
		return ChoiceLocal, nil
	default:
		return "", NewValidationErrorWithValue("choice", fmt.Sprintf("must be %q or %q", ChoiceRemote, ChoiceLocal), s)
	}
}

// Conflict pairs a dirty local record with a differing remote record of the same id.
// Conflicts are transient and never persisted.
type Conflict struct {
	ID         string
	Local      Quote
	Remote     Quote
	DetectedAt time.Time
}

// Policy decides what happens to a conflict at merge time.
type Policy string

const (
	// PolicyServerWins overwrites the local record immediately.
	PolicyServerWins Policy = "server_wins"

	// PolicyManual defers resolution to an explicit Resolve call.
	PolicyManual Policy = "manual"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyServerWins, PolicyManual:
		return Policy(s), nil
	default:
		return "", NewValidationErrorWithValue("policy", fmt.Sprintf("must be %q or %q", PolicyServerWins, PolicyManual), s)
	}
}
