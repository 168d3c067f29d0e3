// Package backend provides the remote store client: tenant-scoped row
// operations over HTTP and a realtime change feed over websocket. Delivery
// on the feed is at-least-once, and replayed mutations must be harmless on
// the server side, so callers treat every notification as idempotent.
package backend

import "context"

// Change is one row-level change notification from the feed.
type Change struct {
	Table     string                 `json:"table"`
	Operation string                 `json:"operation"` // INSERT, UPDATE, DELETE
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// SubscriptionStatus tracks the change-subscription lifecycle.
type SubscriptionStatus string

const (
	StatusSubscribed   SubscriptionStatus = "SUBSCRIBED"
	StatusClosed       SubscriptionStatus = "CLOSED"
	StatusChannelError SubscriptionStatus = "CHANNEL_ERROR"
)

// Subscription is a live change feed. Both channels are closed when the feed
// terminates; Close tears the feed down from the client side.
type Subscription interface {
	Changes() <-chan Change
	Status() <-chan SubscriptionStatus
	Close() error
}

// RemoteStore is the backend collaborator. Every operation is scoped to the
// congregation the client was built for; row-level isolation is enforced
// server-side by that tenant ID.
type RemoteStore interface {
	Select(ctx context.Context, table string, filter map[string]interface{}) ([]map[string]interface{}, error)
	Insert(ctx context.Context, table string, row map[string]interface{}) error
	Update(ctx context.Context, table, id string, fields map[string]interface{}) error
	Delete(ctx context.Context, table, id string) error
	Subscribe(ctx context.Context) (Subscription, error)
}
