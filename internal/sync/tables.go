// Package sync keeps the local cache consistent with the remote backend:
// a realtime subscriber with polling fallback invalidates reads, and a
// queue drainer replays offline writes when connectivity returns.
package sync

// Invalidator is the slice of the cache the sync loop needs.
type Invalidator interface {
	InvalidatePrefix(prefix string) int
	InvalidateAll()
}

// syncedTables maps each backend table on the change feed to the cache key
// prefixes its changes invalidate. Some tables fan out: a speech change also
// invalidates assembled meeting views, a calendar exception reshapes the
// meeting schedule around it.
var syncedTables = map[string][]string{
	"meetings":            {"meetings:"},
	"speeches":            {"speeches:", "meetings:"},
	"speakers":            {"speakers:", "speeches:"},
	"members":             {"members:"},
	"calendar_exceptions": {"calendar_exceptions:", "meetings:"},
	"speech_titles":       {"speech_titles:"},
	"congregations":       {"congregations:"},
}

// TableCachePrefixes returns the cache prefixes invalidated by a change to
// the given table, or nil for tables outside the synced set.
func TableCachePrefixes(table string) []string {
	return syncedTables[table]
}

// invalidateTable drops every cached read affected by a change to table.
// Tables outside the synced set are deliberately ignored: the feed may carry
// tables this client does not cache.
func invalidateTable(cache Invalidator, table string) {
	for _, prefix := range syncedTables[table] {
		cache.InvalidatePrefix(prefix)
	}
}
