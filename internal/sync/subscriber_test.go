package sync

import (
	"testing"
	"time"

	"github.com/podiumhq/podium-core/internal/backend"
	"github.com/podiumhq/podium-core/internal/connectivity"
)

const testPollInterval = 20 * time.Millisecond

func startTestSubscriber(t *testing.T) (*Subscriber, *fakeStore, *fakeCache, *fakeSignal, *connectivity.Monitor) {
	t.Helper()
	cache := &fakeCache{}
	store := newFakeStore(cache)
	signal := &fakeSignal{}
	monitor := connectivity.NewMonitor(signal, 10*time.Millisecond)
	t.Cleanup(monitor.Close)

	s := NewSubscriber(store, monitor, cache, testPollInterval)
	s.Start()
	t.Cleanup(s.Close)

	select {
	case <-store.dialled:
	case <-time.After(2 * time.Second):
		t.Fatal("Subscriber never dialled the feed")
	}
	return s, store, cache, signal, monitor
}

func TestSubscribedMarksTransportAndInvalidatesOnce(t *testing.T) {
	_, store, cache, _, monitor := startTestSubscriber(t)
	feed := store.latestSub()

	feed.status <- backend.StatusSubscribed
	if !waitFor(2*time.Second, func() bool { return monitor.State().IsTransportConnected }) {
		t.Fatal("Transport never marked connected")
	}
	if cache.invalidateAllCount() != 1 {
		t.Errorf("Expected exactly one invalidation on subscribe, got %d", cache.invalidateAllCount())
	}

	// A live feed means no polling: the invalidation count must stay put.
	time.Sleep(5 * testPollInterval)
	if cache.invalidateAllCount() != 1 {
		t.Errorf("Polling ran alongside a live feed, count %d", cache.invalidateAllCount())
	}
}

func TestChangesInvalidateMappedPrefixes(t *testing.T) {
	_, store, cache, _, _ := startTestSubscriber(t)
	feed := store.latestSub()
	feed.status <- backend.StatusSubscribed

	feed.changes <- backend.Change{Table: "speakers", Operation: "UPDATE"}
	if !waitFor(2*time.Second, func() bool {
		calls := cache.prefixCalls()
		return len(calls) == 2 && calls[0] == "speakers:" && calls[1] == "speeches:"
	}) {
		t.Fatalf("Expected speaker prefixes invalidated, got %v", cache.prefixCalls())
	}

	// Tables outside the synced set pass through without cache impact.
	feed.changes <- backend.Change{Table: "audit_log", Operation: "INSERT"}
	feed.changes <- backend.Change{Table: "members", Operation: "DELETE"}
	if !waitFor(2*time.Second, func() bool { return len(cache.prefixCalls()) == 3 }) {
		t.Fatalf("Unexpected prefix calls: %v", cache.prefixCalls())
	}
}

func TestChannelErrorFallsBackToPolling(t *testing.T) {
	_, store, cache, _, monitor := startTestSubscriber(t)
	feed := store.latestSub()

	feed.status <- backend.StatusSubscribed
	waitFor(2*time.Second, func() bool { return monitor.State().IsTransportConnected })

	feed.status <- backend.StatusChannelError
	if !waitFor(2*time.Second, func() bool { return !monitor.State().IsTransportConnected }) {
		t.Fatal("Transport never marked disconnected")
	}

	// The poller takes over and keeps invalidating.
	base := cache.invalidateAllCount()
	if !waitFor(2*time.Second, func() bool { return cache.invalidateAllCount() >= base+2 }) {
		t.Fatal("Polling fallback never started")
	}

	// And a fresh feed is dialled for recovery.
	select {
	case <-store.dialled:
	case <-time.After(2 * time.Second):
		t.Fatal("Subscriber never re-dialled after the feed dropped")
	}

	// Once the new feed is live, polling stops again.
	store.latestSub().status <- backend.StatusSubscribed
	waitFor(2*time.Second, func() bool { return monitor.State().IsTransportConnected })
	settle := cache.invalidateAllCount()
	time.Sleep(5 * testPollInterval)
	if grown := cache.invalidateAllCount() - settle; grown > 1 {
		t.Errorf("Polling kept running after resubscribe, %d extra invalidations", grown)
	}
}

func TestOfflineTearsDownSession(t *testing.T) {
	_, store, cache, signal, monitor := startTestSubscriber(t)
	feed := store.latestSub()
	feed.status <- backend.StatusSubscribed
	waitFor(2*time.Second, func() bool { return monitor.State().IsTransportConnected })

	signal.emit(false, false)

	if !waitFor(2*time.Second, func() bool { return feed.isClosed() }) {
		t.Fatal("Feed not closed on going offline")
	}
	if monitor.State().IsTransportConnected {
		t.Error("Transport must read disconnected while offline")
	}

	// No polling while offline.
	base := cache.invalidateAllCount()
	time.Sleep(5 * testPollInterval)
	if cache.invalidateAllCount() != base {
		t.Error("Poller survived the offline teardown")
	}

	// Coming back online opens a brand-new feed session.
	signal.emit(true, true)
	select {
	case <-store.dialled:
	case <-time.After(2 * time.Second):
		t.Fatal("No fresh feed session after reconnect")
	}
	if fresh := store.latestSub(); fresh == feed {
		t.Error("Reconnect must not reuse the torn-down feed")
	}
}

func TestSubscriberCloseIsIdempotent(t *testing.T) {
	s, store, _, _, _ := startTestSubscriber(t)
	feed := store.latestSub()

	s.Close()
	s.Close()

	if !feed.isClosed() {
		t.Error("Close must tear down the active feed")
	}
}
