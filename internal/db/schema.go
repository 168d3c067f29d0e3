// Package db provides local cache database management for the sync core.
package db

// schemaMigration is one versioned schema step, applied in order by the
// Migrator. Migrations are embedded rather than shipped as files so the
// mobile bundle stays self-contained.
type schemaMigration struct {
	Version     int
	Description string
	SQL         string
}

var schemaMigrations = []schemaMigration{
	{
		Version:     1,
		Description: "kv store for persisted sync state",
		SQL: `
CREATE TABLE IF NOT EXISTS kv_store (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`,
	},
	{
		Version:     2,
		Description: "calendar exceptions",
		SQL: `
CREATE TABLE IF NOT EXISTS calendar_exceptions (
	id TEXT PRIMARY KEY,
	congregation_id TEXT NOT NULL,
	date TEXT NOT NULL,
	reason TEXT NOT NULL,
	custom_reason TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	UNIQUE (congregation_id, date)
);
CREATE INDEX IF NOT EXISTS idx_calendar_exceptions_date
	ON calendar_exceptions (congregation_id, date);`,
	},
	{
		Version:     3,
		Description: "speech assignments",
		SQL: `
CREATE TABLE IF NOT EXISTS speeches (
	id TEXT PRIMARY KEY,
	congregation_id TEXT NOT NULL,
	meeting_date TEXT NOT NULL,
	slot INTEGER NOT NULL,
	speaker_id TEXT,
	speech_title_id TEXT,
	status TEXT NOT NULL DEFAULT 'not_assigned',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	UNIQUE (congregation_id, meeting_date, slot)
);
CREATE INDEX IF NOT EXISTS idx_speeches_meeting
	ON speeches (congregation_id, meeting_date);`,
	},
}
