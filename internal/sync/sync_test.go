package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/podiumhq/podium-core/internal/backend"
	"github.com/podiumhq/podium-core/internal/connectivity"
)

// fakeCache records invalidation calls.
type fakeCache struct {
	mu       sync.Mutex
	prefixes []string
	allCalls int
	events   []string // interleaved history of cache and backend activity
}

func (c *fakeCache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefixes = append(c.prefixes, prefix)
	c.events = append(c.events, "invalidate:"+prefix)
	return 0
}

func (c *fakeCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allCalls++
	c.events = append(c.events, "invalidate-all")
}

func (c *fakeCache) invalidateAllCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allCalls
}

func (c *fakeCache) prefixCalls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prefixes...)
}

// storeOp records one backend write in arrival order.
type storeOp struct {
	Kind   string // insert, update, delete
	Table  string
	ID     string
	Fields map[string]interface{}
}

// fakeStore is an in-memory RemoteStore. failures maps a table name to how
// many times writes against it should fail before succeeding.
type fakeStore struct {
	mu       sync.Mutex
	ops      []storeOp
	failures map[string]int
	cache    *fakeCache // optional, for interleaved event history

	subMu   sync.Mutex
	subs    []*fakeSubscription
	subErr  error
	dialled chan struct{}

	// When set, every write blocks until the channel is closed.
	block chan struct{}
}

func newFakeStore(cache *fakeCache) *fakeStore {
	return &fakeStore{
		failures: map[string]int{},
		cache:    cache,
		dialled:  make(chan struct{}, 16),
	}
}

func (s *fakeStore) record(op storeOp) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures[op.Table] > 0 {
		s.failures[op.Table]--
		return errors.New("backend unavailable")
	}
	s.ops = append(s.ops, op)
	if s.cache != nil {
		s.cache.mu.Lock()
		s.cache.events = append(s.cache.events, "apply:"+op.Kind+":"+op.Table)
		s.cache.mu.Unlock()
	}
	return nil
}

func (s *fakeStore) Select(ctx context.Context, table string, filter map[string]interface{}) ([]map[string]interface{}, error) {
	return nil, nil
}

func (s *fakeStore) Insert(ctx context.Context, table string, row map[string]interface{}) error {
	return s.record(storeOp{Kind: "insert", Table: table, Fields: row})
}

func (s *fakeStore) Update(ctx context.Context, table, id string, fields map[string]interface{}) error {
	return s.record(storeOp{Kind: "update", Table: table, ID: id, Fields: fields})
}

func (s *fakeStore) Delete(ctx context.Context, table, id string) error {
	return s.record(storeOp{Kind: "delete", Table: table, ID: id})
}

func (s *fakeStore) Subscribe(ctx context.Context) (backend.Subscription, error) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subErr != nil {
		return nil, s.subErr
	}
	sub := newFakeSubscription()
	s.subs = append(s.subs, sub)
	select {
	case s.dialled <- struct{}{}:
	default:
	}
	return sub, nil
}

func (s *fakeStore) recorded() []storeOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]storeOp(nil), s.ops...)
}

func (s *fakeStore) latestSub() *fakeSubscription {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if len(s.subs) == 0 {
		return nil
	}
	return s.subs[len(s.subs)-1]
}

// fakeSubscription is a scriptable change feed.
type fakeSubscription struct {
	changes chan backend.Change
	status  chan backend.SubscriptionStatus
	once    sync.Once
	closed  chan struct{}
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{
		changes: make(chan backend.Change, 16),
		status:  make(chan backend.SubscriptionStatus, 16),
		closed:  make(chan struct{}),
	}
}

func (f *fakeSubscription) Changes() <-chan backend.Change            { return f.changes }
func (f *fakeSubscription) Status() <-chan backend.SubscriptionStatus { return f.status }

func (f *fakeSubscription) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeSubscription) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// fakeSignal drives the connectivity monitor in tests.
type fakeSignal struct {
	mu      sync.Mutex
	handler func(connectivity.ReachabilityEvent)
}

func (s *fakeSignal) Subscribe(handler func(connectivity.ReachabilityEvent)) func() {
	s.mu.Lock()
	s.handler = handler
	s.mu.Unlock()
	return func() {}
}

func (s *fakeSignal) emit(connected, reachable bool) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(connectivity.ReachabilityEvent{Connected: &connected, Reachable: &reachable})
	}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
