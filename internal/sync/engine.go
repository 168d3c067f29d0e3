package sync

import (
	"context"
	"fmt"

	"github.com/podiumhq/podium-core/internal/backend"
	"github.com/podiumhq/podium-core/internal/capability"
	"github.com/podiumhq/podium-core/internal/connectivity"
	"github.com/podiumhq/podium-core/internal/errors"
	"github.com/podiumhq/podium-core/internal/models"
	"github.com/podiumhq/podium-core/internal/sync/queue"
)

// Engine is the write path. While online, writes go straight to the backend;
// while offline they land in the persisted queue for the drainer to replay.
// Either way the capability table is consulted first, so a write the backend
// would reject never sits in the queue pretending it happened.
type Engine struct {
	monitor *connectivity.Monitor
	queue   *queue.MutationQueue
	store   backend.RemoteStore
	cache   Invalidator
	role    string
}

// NewEngine wires the write path for the signed-in user's role.
func NewEngine(monitor *connectivity.Monitor, q *queue.MutationQueue, store backend.RemoteStore, cache Invalidator, role string) *Engine {
	return &Engine{
		monitor: monitor,
		queue:   q,
		store:   store,
		cache:   cache,
		role:    role,
	}
}

// Write applies one mutation. For UPDATE and DELETE the payload must carry
// the row id. Offline writes return nil once queued; ErrQueueFull when the
// queue is at capacity.
func (e *Engine) Write(ctx context.Context, table string, op models.MutationOperation, data map[string]interface{}) error {
	action, writable := capability.WriteAction(table)
	if !writable {
		return errors.New(errors.ErrPermission, fmt.Sprintf("table %s is read-only", table))
	}
	if !capability.Allowed(e.role, action) {
		return errors.New(errors.ErrPermission, fmt.Sprintf("role %s may not write %s", e.role, table))
	}

	m := queue.NewMutation(table, op, data)

	if !e.monitor.State().IsOnline {
		if !e.queue.Enqueue(m) {
			return errors.New(errors.ErrQueueFull, "offline mutation queue is full")
		}
		return nil
	}

	if err := applyMutation(ctx, e.store, &m); err != nil {
		return errors.Wrap(errors.ErrBackend, "write failed", err)
	}
	invalidateTable(e.cache, table)
	return nil
}

// PendingWrites reports how many offline mutations await replay.
func (e *Engine) PendingWrites() int {
	return e.queue.Size()
}

// applyMutation performs one queued mutation against the backend.
func applyMutation(ctx context.Context, store backend.RemoteStore, m *models.QueuedMutation) error {
	switch m.Operation {
	case models.MutationInsert:
		return store.Insert(ctx, m.Table, m.Data)

	case models.MutationUpdate:
		id, fields, err := splitID(m.Data)
		if err != nil {
			return err
		}
		return store.Update(ctx, m.Table, id, fields)

	case models.MutationDelete:
		id, _, err := splitID(m.Data)
		if err != nil {
			return err
		}
		return store.Delete(ctx, m.Table, id)

	default:
		return fmt.Errorf("unknown mutation operation %q", m.Operation)
	}
}

// splitID pulls the row id out of a mutation payload and returns the
// remaining fields. The id addresses the row; it is never patched.
func splitID(data map[string]interface{}) (string, map[string]interface{}, error) {
	raw, ok := data["id"]
	if !ok {
		return "", nil, fmt.Errorf("mutation payload has no id")
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return "", nil, fmt.Errorf("mutation payload id is not a string")
	}

	fields := make(map[string]interface{}, len(data)-1)
	for k, v := range data {
		if k == "id" {
			continue
		}
		fields[k] = v
	}
	return id, fields, nil
}
