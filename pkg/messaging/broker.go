package messaging

import "context"

// Broker is a pub/sub fan-out transport. Publish is best effort from the
// caller's point of view; delivery guarantees live in the delivery queue,
// not here. Subscribe's channel closes when ctx is cancelled.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}
