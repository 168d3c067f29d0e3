// Package connectivity tests for the connection monitor.
package connectivity

import (
	"testing"
	"time"
)

// fakeSource drives reachability events by hand.
type fakeSource struct {
	handler      func(ReachabilityEvent)
	unsubscribed bool
}

func (f *fakeSource) Subscribe(handler func(ReachabilityEvent)) func() {
	f.handler = handler
	return func() { f.unsubscribed = true }
}

func (f *fakeSource) emit(connected, reachable *bool) {
	f.handler(ReachabilityEvent{Connected: connected, Reachable: reachable})
}

func boolPtr(b bool) *bool { return &b }

// TestIsOnlineRule covers the full connectivity decision table.
func TestIsOnlineRule(t *testing.T) {
	tests := []struct {
		name      string
		connected *bool
		reachable *bool
		want      bool
	}{
		{"connected and reachable", boolPtr(true), boolPtr(true), true},
		{"connected, reachability unknown", boolPtr(true), nil, true},
		{"disconnected but reachable", boolPtr(false), boolPtr(true), false},
		{"connection unknown", nil, boolPtr(true), false},
		{"connected but unreachable", boolPtr(true), boolPtr(false), false},
		{"both unknown", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsOnline(ReachabilityEvent{Connected: tt.connected, Reachable: tt.reachable})
			if got != tt.want {
				t.Errorf("IsOnline = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestMonitorStartsOnline verifies the optimistic default.
func TestMonitorStartsOnline(t *testing.T) {
	src := &fakeSource{}
	m := NewMonitor(src, 10*time.Millisecond)
	defer m.Close()

	state := m.State()
	if !state.IsOnline {
		t.Error("Expected monitor to start online")
	}
	if state.ShowIndicator {
		t.Error("Expected no indicator at start")
	}
}

// TestIndicatorShowsImmediatelyOnOffline tests the offline edge.
func TestIndicatorShowsImmediatelyOnOffline(t *testing.T) {
	src := &fakeSource{}
	m := NewMonitor(src, time.Hour) // hide delay never fires in this test
	defer m.Close()

	src.emit(boolPtr(false), nil)

	state := m.State()
	if state.IsOnline {
		t.Error("Expected offline")
	}
	if !state.ShowIndicator {
		t.Error("Expected indicator shown immediately on offline")
	}
}

// TestIndicatorHidesAfterDelay tests the debounced hide.
func TestIndicatorHidesAfterDelay(t *testing.T) {
	src := &fakeSource{}
	m := NewMonitor(src, 20*time.Millisecond)
	defer m.Close()

	src.emit(boolPtr(false), nil)
	src.emit(boolPtr(true), boolPtr(true))

	// Indicator stays up until the hide timer fires.
	if !m.State().ShowIndicator {
		t.Error("Expected indicator still shown right after reconnect")
	}

	deadline := time.Now().Add(time.Second)
	for m.State().ShowIndicator {
		if time.Now().After(deadline) {
			t.Fatal("Indicator never hid after the delay")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestFlappingCancelsHideTimer tests that going offline again cancels the
// pending hide so the indicator stays up.
func TestFlappingCancelsHideTimer(t *testing.T) {
	src := &fakeSource{}
	m := NewMonitor(src, 30*time.Millisecond)
	defer m.Close()

	src.emit(boolPtr(false), nil)
	src.emit(boolPtr(true), boolPtr(true))
	src.emit(boolPtr(false), nil) // back offline before the hide fires

	time.Sleep(60 * time.Millisecond)

	if !m.State().ShowIndicator {
		t.Error("Expected indicator to stay shown while offline")
	}
}

// TestOnChangeNotifiesOnEdges verifies listeners fire only on transitions.
func TestOnChangeNotifiesOnEdges(t *testing.T) {
	src := &fakeSource{}
	m := NewMonitor(src, time.Millisecond)
	defer m.Close()

	var calls []bool
	m.OnChange(func(online bool) { calls = append(calls, online) })

	src.emit(boolPtr(true), boolPtr(true)) // already online, no edge
	src.emit(boolPtr(false), nil)          // offline edge
	src.emit(boolPtr(false), boolPtr(true)) // still offline, no edge
	src.emit(boolPtr(true), nil)           // online edge

	want := []bool{false, true}
	if len(calls) != len(want) {
		t.Fatalf("Expected %d notifications, got %d (%v)", len(want), len(calls), calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("Notification %d = %v, want %v", i, calls[i], want[i])
		}
	}
}

// TestTransportConnectedIndependent verifies the transport flag does not
// affect the online flag.
func TestTransportConnectedIndependent(t *testing.T) {
	src := &fakeSource{}
	m := NewMonitor(src, time.Millisecond)
	defer m.Close()

	m.SetTransportConnected(false)
	state := m.State()
	if !state.IsOnline {
		t.Error("Transport flag must not change the online flag")
	}
	if state.IsTransportConnected {
		t.Error("Expected transport disconnected")
	}
}

// TestCloseUnsubscribes verifies resource cleanup.
func TestCloseUnsubscribes(t *testing.T) {
	src := &fakeSource{}
	m := NewMonitor(src, time.Millisecond)

	m.Close()
	if !src.unsubscribed {
		t.Error("Expected Close to unsubscribe the platform listener")
	}

	// Events after Close are ignored.
	src.emit(boolPtr(false), nil)
	if m.State().ShowIndicator {
		t.Error("Expected no state change after Close")
	}
}
