package connectivity

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestProberReportsReachability(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	p := NewProber(srv.URL, 20*time.Millisecond)
	defer p.Close()

	var mu sync.Mutex
	var events []bool
	unsubscribe := p.Subscribe(func(ev ReachabilityEvent) {
		mu.Lock()
		events = append(events, IsOnline(ev))
		mu.Unlock()
	})
	defer unsubscribe()

	latest := func() (bool, bool) {
		mu.Lock()
		defer mu.Unlock()
		if len(events) == 0 {
			return false, false
		}
		return events[len(events)-1], true
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if online, ok := latest(); ok && online {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Prober never reported the backend reachable")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Killing the backend flips the signal.
	srv.Close()
	deadline = time.Now().Add(2 * time.Second)
	for {
		if online, ok := latest(); ok && !online {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Prober never reported the backend unreachable")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestProberUnsubscribeStopsDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	p := NewProber(srv.URL, 10*time.Millisecond)
	defer p.Close()

	var mu sync.Mutex
	count := 0
	unsubscribe := p.Subscribe(func(ReachabilityEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := count
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("No events delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	unsubscribe()
	mu.Lock()
	settled := count
	mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	after := count
	mu.Unlock()
	if after > settled+1 {
		t.Errorf("Events kept arriving after unsubscribe: %d then %d", settled, after)
	}
}
