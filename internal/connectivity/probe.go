package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Prober is a ReachabilitySource that derives device reachability by probing
// the backend at a fixed interval. Hosts embedding the core feed the
// platform's own reachability callback in instead; the prober exists for
// environments without one.
type Prober struct {
	url      string
	client   *http.Client
	interval time.Duration

	mu       sync.Mutex
	handlers map[int]func(ReachabilityEvent)
	nextID   int
	started  bool
	stop     chan struct{}
}

// NewProber probes the given URL. A non-positive interval defaults to 5s.
func NewProber(url string, interval time.Duration) *Prober {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Prober{
		url:      url,
		client:   &http.Client{Timeout: interval},
		interval: interval,
		handlers: map[int]func(ReachabilityEvent){},
		stop:     make(chan struct{}),
	}
}

// Subscribe registers a handler and starts probing on the first subscriber.
func (p *Prober) Subscribe(handler func(ReachabilityEvent)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	if !p.started {
		p.started = true
		go p.loop()
	}
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

// Close stops the probe loop.
func (p *Prober) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.stop:
	default:
		close(p.stop)
	}
}

func (p *Prober) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.probe()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.probe()
		}
	}
}

func (p *Prober) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), p.interval)
	defer cancel()

	connected := false
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err == nil {
		resp, err := p.client.Do(req)
		if err == nil {
			resp.Body.Close()
			// Any HTTP response means the backend is reachable; status is
			// the transport layer's business.
			connected = true
		}
	}

	ev := ReachabilityEvent{Connected: &connected}

	p.mu.Lock()
	handlers := make([]func(ReachabilityEvent), 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}
