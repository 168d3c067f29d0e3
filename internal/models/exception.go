// Package models provides data model definitions for the Podium sync core.
package models

// ExceptionCategory classifies a meeting date that deviates from the regular
// weekly program.
type ExceptionCategory string

const (
	// CategoryAssembly marks assembly days (first occurrence of the meeting
	// weekday in a conference month).
	CategoryAssembly ExceptionCategory = "assembly"
	// CategoryAdministrative marks the monthly administrative meeting.
	CategoryAdministrative ExceptionCategory = "administrative"
	// CategoryRegular is the default program; reverting a date to regular is
	// an update of the existing row, never a delete.
	CategoryRegular ExceptionCategory = "regular"
)

// CalendarException records the category of a single meeting date. At most
// one row exists per (congregation_id, date); rows are updated in place and
// never deleted so that a concurrent gap-fill pass cannot recreate them.
type CalendarException struct {
	ID             UUID              `db:"id" json:"id"`
	CongregationID string            `db:"congregation_id" json:"congregation_id"`
	Date           string            `db:"date" json:"date"` // YYYY-MM-DD
	Reason         ExceptionCategory `db:"reason" json:"reason"`
	CustomReason   string            `db:"custom_reason" json:"custom_reason,omitempty"`
	CreatedAt      int64             `db:"created_at" json:"created_at"`
	UpdatedAt      int64             `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for CalendarException.
func (CalendarException) TableName() string {
	return "calendar_exceptions"
}
