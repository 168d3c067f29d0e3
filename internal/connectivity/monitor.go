// Package connectivity tracks device reachability and the realtime
// transport's connection state for the sync core.
package connectivity

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/podiumhq/podium-core/internal/logging"
)

// ReachabilityEvent mirrors the platform reachability callback. Both fields
// are tri-state: nil means the platform reported "unknown".
type ReachabilityEvent struct {
	Connected *bool
	Reachable *bool
}

// ReachabilitySource is the platform-level network signal. Subscribe
// registers a handler and returns an unsubscribe function; the source calls
// the handler on every reachability change.
type ReachabilitySource interface {
	Subscribe(handler func(ReachabilityEvent)) (unsubscribe func())
}

// State is a snapshot of the connection state.
type State struct {
	IsOnline             bool
	IsTransportConnected bool
	ShowIndicator        bool
}

// Listener is notified on every online-flag change.
type Listener func(online bool)

// Monitor derives a single online flag from the platform signal and exposes
// a debounced offline indicator. The indicator shows immediately on going
// offline and hides after a fixed delay once back online, so brief drops do
// not flicker.
type Monitor struct {
	mu          sync.Mutex
	state       State
	hideDelay   time.Duration
	hideTimer   *time.Timer
	unsubscribe func()
	listeners   []Listener
	closed      bool
}

// NewMonitor subscribes to the platform signal. The monitor starts
// optimistically online; absence of a signal must not block functionality.
func NewMonitor(source ReachabilitySource, hideDelay time.Duration) *Monitor {
	m := &Monitor{
		state:     State{IsOnline: true},
		hideDelay: hideDelay,
	}
	m.unsubscribe = source.Subscribe(m.handleEvent)
	return m
}

// IsOnline applies the connectivity rule: online iff connected is true and
// reachable is not false. Unknown reachability counts as online; treating
// unknown as offline produces false positives on some network stacks.
func IsOnline(ev ReachabilityEvent) bool {
	if ev.Connected == nil || !*ev.Connected {
		return false
	}
	if ev.Reachable != nil && !*ev.Reachable {
		return false
	}
	return true
}

func (m *Monitor) handleEvent(ev ReachabilityEvent) {
	online := IsOnline(ev)

	m.mu.Lock()
	if m.closed || online == m.state.IsOnline {
		m.mu.Unlock()
		return
	}
	m.state.IsOnline = online

	if online {
		// Back online: give the UI time before hiding the indicator.
		m.scheduleHideLocked()
	} else {
		// Going offline: show immediately and drop any pending hide.
		m.cancelHideLocked()
		m.state.ShowIndicator = true
	}

	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	logging.Log.Info("Connectivity changed", zap.Bool("online", online))

	for _, l := range listeners {
		l(online)
	}
}

// scheduleHideLocked arms the single hide timer, replacing any pending one.
func (m *Monitor) scheduleHideLocked() {
	m.cancelHideLocked()
	m.hideTimer = time.AfterFunc(m.hideDelay, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.state.IsOnline && !m.closed {
			m.state.ShowIndicator = false
		}
	})
}

func (m *Monitor) cancelHideLocked() {
	if m.hideTimer != nil {
		m.hideTimer.Stop()
		m.hideTimer = nil
	}
}

// SetTransportConnected records the realtime channel's own connectivity.
// This is independent of device reachability: the device can be online while
// the subscription is still mid-handshake or broken.
func (m *Monitor) SetTransportConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.IsTransportConnected = connected
}

// OnChange registers a listener for online-flag transitions.
func (m *Monitor) OnChange(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// State returns a snapshot of the current connection state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close unsubscribes from the platform signal and clears the hide timer.
func (m *Monitor) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.cancelHideLocked()
	unsubscribe := m.unsubscribe
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}
