package sync

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/podiumhq/podium-core/internal/backend"
	"github.com/podiumhq/podium-core/internal/connectivity"
	"github.com/podiumhq/podium-core/internal/logging"
	"github.com/podiumhq/podium-core/internal/sync/queue"
)

// DrainResult summarizes one drain pass.
type DrainResult struct {
	Applied  int
	Requeued int
	Dropped  int
}

// Drainer replays queued offline mutations against the backend when
// connectivity comes back. It acts only on the offline-to-online edge: a
// client that was online all along has nothing queued worth replaying
// eagerly, and a drain already in flight must not be started twice.
type Drainer struct {
	queue   *queue.MutationQueue
	store   backend.RemoteStore
	cache   Invalidator
	monitor *connectivity.Monitor

	mu         sync.Mutex
	wasOffline bool
	draining   bool
	wg         sync.WaitGroup
}

// NewDrainer wires a drainer to the queue, backend and cache.
func NewDrainer(q *queue.MutationQueue, store backend.RemoteStore, cache Invalidator, monitor *connectivity.Monitor) *Drainer {
	return &Drainer{
		queue:   q,
		store:   store,
		cache:   cache,
		monitor: monitor,
	}
}

// Start registers the drainer on the connectivity monitor.
func (d *Drainer) Start() {
	d.monitor.OnChange(d.handleOnlineChange)
}

// Wait blocks until any in-flight drain pass finishes.
func (d *Drainer) Wait() {
	d.wg.Wait()
}

func (d *Drainer) handleOnlineChange(online bool) {
	d.mu.Lock()
	if !online {
		d.wasOffline = true
		d.mu.Unlock()
		return
	}
	if !d.wasOffline {
		// Came up online without a preceding offline stretch; nothing queued
		// by this session needs replaying.
		d.mu.Unlock()
		return
	}
	d.wasOffline = false
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.Drain(context.Background())
	}()
}

// Drain replays queued mutations oldest-first and returns what happened.
// The pass is bounded by the queue size at entry, so a mutation that fails
// and is requeued is not retried until the next pass. Returns nil when a
// drain is already running.
func (d *Drainer) Drain(ctx context.Context) *DrainResult {
	d.mu.Lock()
	if d.draining {
		d.mu.Unlock()
		return nil
	}
	d.draining = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.draining = false
		d.mu.Unlock()
	}()

	pending := d.queue.Size()
	if pending == 0 {
		return &DrainResult{}
	}
	logging.Log.Info("Draining offline mutation queue", zap.Int("pending", pending))

	result := &DrainResult{}
	for i := 0; i < pending; i++ {
		m := d.queue.Dequeue()
		if m == nil {
			break
		}

		if err := applyMutation(ctx, d.store, m); err != nil {
			logging.Log.Warn("Failed to replay queued mutation",
				zap.String("id", m.ID),
				zap.String("table", m.Table),
				zap.String("operation", string(m.Operation)),
				zap.Error(err))
			if d.queue.RetryLater(*m) {
				result.Requeued++
			} else {
				result.Dropped++
			}
			continue
		}
		result.Applied++
	}

	// One invalidation covers every side effect of the pass; per-mutation
	// invalidation would thrash the cache for nothing.
	d.cache.InvalidateAll()

	logging.Log.Info("Drain pass complete",
		zap.Int("applied", result.Applied),
		zap.Int("requeued", result.Requeued),
		zap.Int("dropped", result.Dropped))
	return result
}

