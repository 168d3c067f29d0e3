// Package capability gates writes by the signed-in user's role. The backend
// enforces the same rules server-side; this table exists so the client can
// refuse a write before queueing it, instead of queueing something that is
// guaranteed to bounce on replay.
package capability

// Roles a congregation account can hold.
const (
	RoleAdmin     = "admin"
	RoleScheduler = "scheduler"
	RoleViewer    = "viewer"
)

// Actions checked before role-gated writes.
const (
	ActionManageSchedule   = "schedule.manage"
	ActionManageExceptions = "exceptions.manage"
	ActionManageMembers    = "members.manage"
	ActionManageTitles     = "titles.manage"
)

var grants = map[string]map[string]bool{
	RoleAdmin: {
		ActionManageSchedule:   true,
		ActionManageExceptions: true,
		ActionManageMembers:    true,
		ActionManageTitles:     true,
	},
	RoleScheduler: {
		ActionManageSchedule:   true,
		ActionManageExceptions: true,
	},
	RoleViewer: {},
}

// Allowed reports whether the role may perform the action. Unknown roles and
// unknown actions are denied.
func Allowed(role, action string) bool {
	return grants[role][action]
}

// writeActions maps each writable table to the action guarding it. Tables
// outside the map are read-only from the client.
var writeActions = map[string]string{
	"speeches":            ActionManageSchedule,
	"meetings":            ActionManageSchedule,
	"calendar_exceptions": ActionManageExceptions,
	"members":             ActionManageMembers,
	"speakers":            ActionManageMembers,
	"speech_titles":       ActionManageTitles,
}

// WriteAction returns the action required to write the table. ok is false
// for tables that are never writable from the client.
func WriteAction(table string) (string, bool) {
	action, ok := writeActions[table]
	return action, ok
}
