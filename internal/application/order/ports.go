package order

import (
	"context"

	domnotif "github.com/synexstock/orderflow/internal/domain/notification"
)

// StockDeductor is the synchronous downstream call to the stock ledger.
// The caller's bearer credential is an explicit parameter so every hop is
// itself authorized; implementations forward it, never a shared global.
type StockDeductor interface {
	Deduct(ctx context.Context, credential, skuCode string, quantity int) (bool, error)
}

// EmailResolver looks up the email address for a username.
type EmailResolver interface {
	EmailOf(ctx context.Context, credential, username string) (string, error)
}

// ConfirmationPublisher enqueues the order-confirmation event. Enqueue
// acceptance is all the saga waits for; delivery is asynchronous.
type ConfirmationPublisher interface {
	PublishOrderConfirmation(ctx context.Context, ev domnotif.OrderConfirmation) error
}

type IDGenerator interface {
	NewID() string
}
