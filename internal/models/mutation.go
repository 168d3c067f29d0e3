// Package models provides data model definitions for the Podium sync core.
package models

import "time"

// MutationOperation identifies the kind of write a queued mutation replays.
type MutationOperation string

const (
	MutationInsert MutationOperation = "INSERT"
	MutationUpdate MutationOperation = "UPDATE"
	MutationDelete MutationOperation = "DELETE"
)

// QueuedMutation is a single write captured while offline, waiting to be
// replayed against the backend. The queue is persisted as a JSON array, so
// every field carries a json tag matching the stored record format.
type QueuedMutation struct {
	ID         string                 `json:"id"`
	Table      string                 `json:"table"`
	Operation  MutationOperation      `json:"operation"`
	Data       map[string]interface{} `json:"data"`
	Timestamp  int64                  `json:"timestamp"`
	RetryCount int                    `json:"retryCount"`
}

// Time returns the Timestamp as time.Time.
func (m *QueuedMutation) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}
