// Package models provides data model definitions for the Podium sync core.
package models

// SpeechStatus tracks a speaker assignment through its invitation lifecycle.
// Transitions between statuses are validated by the speech package; models
// only define the closed set of values.
type SpeechStatus string

const (
	StatusNotAssigned        SpeechStatus = "not_assigned"
	StatusAssignedNotInvited SpeechStatus = "assigned_not_invited"
	StatusAssignedInvited    SpeechStatus = "assigned_invited"
	StatusAssignedConfirmed  SpeechStatus = "assigned_confirmed"
	StatusGaveUp             SpeechStatus = "gave_up"
)

// SpeechAssignment is one speaking slot at one meeting. There is exactly one
// row per (meeting_date, slot) pair within a congregation.
type SpeechAssignment struct {
	ID             UUID         `db:"id" json:"id"`
	CongregationID string       `db:"congregation_id" json:"congregation_id"`
	MeetingDate    string       `db:"meeting_date" json:"meeting_date"` // YYYY-MM-DD
	Slot           int          `db:"slot" json:"slot"`
	SpeakerID      UUID         `db:"speaker_id" json:"speaker_id,omitempty"`
	SpeechTitleID  UUID         `db:"speech_title_id" json:"speech_title_id,omitempty"`
	Status         SpeechStatus `db:"status" json:"status"`
	CreatedAt      int64        `db:"created_at" json:"created_at"`
	UpdatedAt      int64        `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for SpeechAssignment.
func (SpeechAssignment) TableName() string {
	return "speeches"
}
