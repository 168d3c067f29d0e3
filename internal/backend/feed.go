// Package backend provides the remote store client.
package backend

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/podiumhq/podium-core/internal/logging"
)

// wsEnvelope wraps every message on the change feed.
type wsEnvelope struct {
	Type      string  `json:"type"` // "status" or "change"
	Status    string  `json:"status,omitempty"`
	Change    *Change `json:"change,omitempty"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// wsSubscription is a websocket-backed change feed. The read loop is the
// sole sender on both channels and closes them on exit.
type wsSubscription struct {
	conn      *websocket.Conn
	changes   chan Change
	status    chan SubscriptionStatus
	done      chan struct{}
	closeOnce sync.Once
}

// Subscribe opens one multiplexed change subscription scoped to the client's
// congregation. The server announces SUBSCRIBED once the feed is live and
// streams change envelopes for every synced table after that.
func (c *Client) Subscribe(ctx context.Context) (Subscription, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("congregation", c.congregationID)
	u.RawQuery = q.Encode()

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	s := &wsSubscription{
		conn:    conn,
		changes: make(chan Change, 64),
		status:  make(chan SubscriptionStatus, 8),
		done:    make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *wsSubscription) readLoop() {
	defer close(s.changes)
	defer close(s.status)

	for {
		var env wsEnvelope
		if err := s.conn.ReadJSON(&env); err != nil {
			select {
			case <-s.done:
				// Client-side teardown; no error status.
			default:
				logging.Log.Warn("Change feed read failed", zap.Error(err))
				s.emitStatus(StatusChannelError)
			}
			return
		}

		switch env.Type {
		case "status":
			s.emitStatus(SubscriptionStatus(env.Status))
		case "change":
			if env.Change != nil {
				select {
				case s.changes <- *env.Change:
				case <-s.done:
					return
				}
			}
		default:
			// Unknown envelope types are skipped so the feed can evolve.
		}
	}
}

func (s *wsSubscription) emitStatus(status SubscriptionStatus) {
	select {
	case s.status <- status:
	case <-s.done:
	}
}

func (s *wsSubscription) Changes() <-chan Change {
	return s.changes
}

func (s *wsSubscription) Status() <-chan SubscriptionStatus {
	return s.status
}

// Close tears the feed down. Safe to call more than once.
func (s *wsSubscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}
