package sync

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/podiumhq/podium-core/internal/backend"
	"github.com/podiumhq/podium-core/internal/connectivity"
	"github.com/podiumhq/podium-core/internal/logging"
)

// DefaultPollInterval paces the fallback poller when the realtime feed is
// unavailable.
const DefaultPollInterval = 2500 * time.Millisecond

// Subscriber keeps cached reads fresh while online. It holds one realtime
// change feed against the backend; when the feed drops it falls back to
// interval polling until a fresh feed comes up. Going offline tears
// everything down, and the next online edge starts a new session from
// scratch rather than resuming the old one.
type Subscriber struct {
	store        backend.RemoteStore
	monitor      *connectivity.Monitor
	cache        Invalidator
	pollInterval time.Duration

	mu            sync.Mutex
	sessionCancel context.CancelFunc
	sub           backend.Subscription
	pollStop      chan struct{}
	closed        bool
	wg            sync.WaitGroup
}

// NewSubscriber wires a subscriber to the backend, monitor and cache. A
// non-positive pollInterval selects the default.
func NewSubscriber(store backend.RemoteStore, monitor *connectivity.Monitor, cache Invalidator, pollInterval time.Duration) *Subscriber {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Subscriber{
		store:        store,
		monitor:      monitor,
		cache:        cache,
		pollInterval: pollInterval,
	}
}

// Start registers on the connectivity monitor and, when already online,
// opens the first feed session.
func (s *Subscriber) Start() {
	s.monitor.OnChange(s.handleOnlineChange)
	if s.monitor.State().IsOnline {
		s.connect()
	}
}

// Close tears down the active session and waits for its goroutines.
func (s *Subscriber) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.teardownLocked()
	s.mu.Unlock()

	s.monitor.SetTransportConnected(false)
	s.wg.Wait()
}

func (s *Subscriber) handleOnlineChange(online bool) {
	if online {
		s.connect()
		return
	}

	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()
	s.monitor.SetTransportConnected(false)
}

// connect starts a fresh feed session, replacing any previous one.
func (s *Subscriber) connect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.teardownLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s.sessionCancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)
}

// teardownLocked cancels the session, closes the feed and stops the poller.
func (s *Subscriber) teardownLocked() {
	if s.sessionCancel != nil {
		s.sessionCancel()
		s.sessionCancel = nil
	}
	if s.sub != nil {
		s.sub.Close()
		s.sub = nil
	}
	if s.pollStop != nil {
		close(s.pollStop)
		s.pollStop = nil
	}
}

// run dials the change feed and consumes it, re-dialing after the poll
// interval whenever the feed is lost, until the session is cancelled.
func (s *Subscriber) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		sub, err := s.store.Subscribe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Log.Warn("Failed to open change feed, falling back to polling", zap.Error(err))
			s.monitor.SetTransportConnected(false)
			s.startPolling(ctx)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.pollInterval):
			}
			continue
		}

		s.mu.Lock()
		if ctx.Err() != nil {
			s.mu.Unlock()
			sub.Close()
			return
		}
		s.sub = sub
		s.mu.Unlock()

		if !s.consume(ctx, sub) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.pollInterval):
		}
	}
}

// consume handles feed events until the feed is lost. Returns true when the
// caller should dial a new feed.
func (s *Subscriber) consume(ctx context.Context, sub backend.Subscription) bool {
	for {
		select {
		case <-ctx.Done():
			sub.Close()
			return false

		case status, ok := <-sub.Status():
			if !ok {
				return s.feedLost(ctx, sub, "feed closed")
			}
			switch status {
			case backend.StatusSubscribed:
				logging.Log.Info("Change feed live")
				s.monitor.SetTransportConnected(true)
				s.stopPolling()
				// Anything cached before the feed came up may be stale.
				s.cache.InvalidateAll()
			case backend.StatusClosed, backend.StatusChannelError:
				return s.feedLost(ctx, sub, string(status))
			}

		case change, ok := <-sub.Changes():
			if !ok {
				return s.feedLost(ctx, sub, "feed closed")
			}
			invalidateTable(s.cache, change.Table)
		}
	}
}

// feedLost switches to the polling fallback and asks for a re-dial, unless
// the session is already over.
func (s *Subscriber) feedLost(ctx context.Context, sub backend.Subscription, reason string) bool {
	sub.Close()
	s.monitor.SetTransportConnected(false)
	if ctx.Err() != nil {
		return false
	}

	logging.Log.Warn("Change feed lost, falling back to polling", zap.String("reason", reason))
	s.startPolling(ctx)
	return true
}

// startPolling launches the interval poller. Idempotent: an already running
// poller is left alone.
func (s *Subscriber) startPolling(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pollStop != nil || ctx.Err() != nil {
		return
	}

	stop := make(chan struct{})
	s.pollStop = stop
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cache.InvalidateAll()
			}
		}
	}()
}

// stopPolling halts the interval poller if one is running.
func (s *Subscriber) stopPolling() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pollStop != nil {
		close(s.pollStop)
		s.pollStop = nil
	}
}
