package notification

import "context"

// Message is the envelope carried on the notification queue. Body is the
// JSON-encoded payload for the given kind.
type Message struct {
	Kind string
	Body []byte
}

// Handler processes one dequeued message. Implementations must absorb
// their own failures; a returned error is logged by the queue and the
// message is dropped, never redelivered, so a poison message cannot stall
// the queue.
type Handler func(ctx context.Context, m Message) error

// Publisher accepts messages for asynchronous delivery. Publish returns
// once the queue has accepted the message; it never waits for delivery.
type Publisher interface {
	Publish(ctx context.Context, m Message) error
}

// Consumer feeds queued messages to a handler until the context ends.
type Consumer interface {
	Consume(ctx context.Context, h Handler) error
}
