// Package cache provides the in-process read cache the sync core invalidates.
// Reads served to the UI go through this cache; remote changes and queue
// drains invalidate entries instead of pushing fresh data, so the next read
// refetches from the local store or the backend.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value    interface{}
	cachedAt time.Time
}

// Store is a prefix-invalidated key-value read cache. Keys follow the
// "table:qualifier" convention (for example "speeches:2026-09").
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewStore creates an empty cache store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
	}
}

// Get returns a cached value if present.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Set stores a value. Optimistic writes use Set directly: the caller stores
// the expected post-write state, and a later invalidation (on backend
// confirmation or drain completion) forces a refetch of the authoritative row.
func (s *Store) Set(key string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, cachedAt: time.Now()}
}

// InvalidatePrefix drops every entry whose key starts with prefix and
// returns how many were dropped.
func (s *Store) InvalidatePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			dropped++
		}
	}
	return dropped
}

// InvalidateAll drops every cached entry.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
