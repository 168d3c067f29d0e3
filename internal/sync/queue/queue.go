// Package queue provides the persisted mutation queue for offline writes.
// Writes attempted while offline land here in order and are replayed FIFO
// once connectivity returns; the queue itself never talks to the network.
package queue

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/podiumhq/podium-core/internal/logging"
	"github.com/podiumhq/podium-core/internal/models"
	"github.com/podiumhq/podium-core/internal/uuid"
)

// StorageKey is the single fixed key the serialized queue lives under.
const StorageKey = "sync:mutation_queue"

const (
	DefaultMaxQueueSize = 100
	DefaultMaxRetries   = 3
)

// Storage persists the serialized queue under one fixed key. The db
// repository's kv table satisfies this; tests use an in-memory stand-in.
type Storage interface {
	Load() (string, bool, error)
	Save(value string) error
}

// MutationQueue is a bounded, ordered, persisted store of pending writes.
// Every mutation is read-modify-write against the full persisted list; the
// drain protocol keeps the queue single-writer, the internal mutex only
// protects against accidental concurrent callers.
type MutationQueue struct {
	mu         sync.Mutex
	storage    Storage
	maxSize    int
	maxRetries int
	items      []models.QueuedMutation
}

// NewMutationQueue loads the persisted queue. Corrupt or non-array stored
// data is treated as an empty queue; a broken blob must never take the
// sync core down.
func NewMutationQueue(storage Storage, maxSize, maxRetries int) *MutationQueue {
	if maxSize <= 0 {
		maxSize = DefaultMaxQueueSize
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	q := &MutationQueue{
		storage:    storage,
		maxSize:    maxSize,
		maxRetries: maxRetries,
		items:      []models.QueuedMutation{},
	}
	q.load()
	return q
}

func (q *MutationQueue) load() {
	raw, ok, err := q.storage.Load()
	if err != nil {
		logging.Log.Warn("Failed to load persisted queue, starting empty", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var items []models.QueuedMutation
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logging.Log.Warn("Persisted queue is corrupt, starting empty", zap.Error(err))
		return
	}
	q.items = items
}

func (q *MutationQueue) saveLocked() error {
	data, err := json.Marshal(q.items)
	if err != nil {
		return err
	}
	return q.storage.Save(string(data))
}

// NewMutation builds a queue record for a write captured while offline.
func NewMutation(table string, op models.MutationOperation, data map[string]interface{}) models.QueuedMutation {
	return models.QueuedMutation{
		ID:        uuid.New(),
		Table:     table,
		Operation: op,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Enqueue appends a mutation. Returns false without mutating state when the
// queue is at capacity: the newest attempt is rejected rather than evicting
// older queued work, and the caller must surface the failure to the user.
func (q *MutationQueue) Enqueue(m models.QueuedMutation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.maxSize {
		logging.Log.Warn("Mutation queue full, rejecting write",
			zap.String("table", m.Table), zap.Int("size", len(q.items)))
		return false
	}

	q.items = append(q.items, m)
	if err := q.saveLocked(); err != nil {
		q.items = q.items[:len(q.items)-1]
		logging.Log.Warn("Failed to persist enqueued mutation", zap.Error(err))
		return false
	}
	return true
}

// Dequeue pops and returns the oldest mutation, or nil when empty.
func (q *MutationQueue) Dequeue() *models.QueuedMutation {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}

	head := q.items[0]
	q.items = q.items[1:]
	if err := q.saveLocked(); err != nil {
		q.items = append([]models.QueuedMutation{head}, q.items...)
		logging.Log.Warn("Failed to persist dequeue", zap.Error(err))
		return nil
	}
	return &head
}

// Peek returns the oldest mutation without removing it, or nil when empty.
func (q *MutationQueue) Peek() *models.QueuedMutation {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	head := q.items[0]
	return &head
}

// Size returns the number of queued mutations.
func (q *MutationQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear removes all queued mutations.
func (q *MutationQueue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = []models.QueuedMutation{}
	return q.saveLocked()
}

// Snapshot returns a copy of the queued mutations in order.
func (q *MutationQueue) Snapshot() []models.QueuedMutation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.QueuedMutation(nil), q.items...)
}

// IncrementRetry bumps the named mutation's retry count. Once the count
// reaches the retry limit the entry is removed instead: an unrecoverable
// mutation must not block the queue forever. Returns true when the entry
// was removed.
func (q *MutationQueue) IncrementRetry(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.incrementRetryLocked(id)
}

func (q *MutationQueue) incrementRetryLocked(id string) bool {
	for i := range q.items {
		if q.items[i].ID != id {
			continue
		}

		q.items[i].RetryCount++
		if q.items[i].RetryCount >= q.maxRetries {
			logging.Log.Warn("Mutation exceeded retry limit, discarding",
				zap.String("id", id), zap.String("table", q.items[i].Table))
			q.items = append(q.items[:i], q.items[i+1:]...)
			if err := q.saveLocked(); err != nil {
				logging.Log.Warn("Failed to persist retry eviction", zap.Error(err))
			}
			return true
		}

		if err := q.saveLocked(); err != nil {
			logging.Log.Warn("Failed to persist retry increment", zap.Error(err))
		}
		return false
	}
	return false
}

// RetryLater re-appends a dequeued mutation at the tail and bumps its retry
// count, so the next drain pass gives it another attempt. Returns false when
// the mutation hit the retry limit (or the queue is full) and was dropped
// permanently.
func (q *MutationQueue) RetryLater(m models.QueuedMutation) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.maxSize {
		logging.Log.Warn("Mutation queue full, dropping failed mutation",
			zap.String("id", m.ID), zap.String("table", m.Table))
		return false
	}

	q.items = append(q.items, m)
	return !q.incrementRetryLocked(m.ID)
}
