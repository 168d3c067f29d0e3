// Package speech enforces the assignment status lifecycle. Status moves
// through invitation and confirmation stages once a speaker is assigned; the
// transition rules live here so every write path validates the same way.
package speech

import "github.com/podiumhq/podium-core/internal/models"

var knownStatuses = map[models.SpeechStatus]bool{
	models.StatusNotAssigned:        true,
	models.StatusAssignedNotInvited: true,
	models.StatusAssignedInvited:    true,
	models.StatusAssignedConfirmed:  true,
	models.StatusGaveUp:             true,
}

// IsKnownStatus reports whether the value is one of the lifecycle statuses.
func IsKnownStatus(s models.SpeechStatus) bool {
	return knownStatuses[s]
}

// IsValidTransition reports whether an assignment may move from one status
// to another. An unassigned slot can only move into the just-assigned stage;
// every assigned stage can move freely between the others, including back to
// unassigned when the speaker is withdrawn. Writing the current status again
// is rejected so a no-op never masquerades as a change.
func IsValidTransition(from, to models.SpeechStatus) bool {
	if !IsKnownStatus(from) || !IsKnownStatus(to) {
		return false
	}
	if from == to {
		return false
	}
	if from == models.StatusNotAssigned {
		return to == models.StatusAssignedNotInvited
	}
	return true
}
