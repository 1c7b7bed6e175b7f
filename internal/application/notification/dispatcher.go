package notification

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/synexstock/orderflow/internal/domain/notification"
)

// Dispatcher publishes the two notification kinds onto the shared queue.
// Publish returns after queue acceptance; delivery happens asynchronously
// in the consumer.
type Dispatcher struct {
	queue domain.Publisher
}

func NewDispatcher(queue domain.Publisher) *Dispatcher {
	return &Dispatcher{queue: queue}
}

func (d *Dispatcher) PublishOrderConfirmation(ctx context.Context, ev domain.OrderConfirmation) error {
	return d.publish(ctx, domain.KindOrderConfirmation, ev)
}

func (d *Dispatcher) PublishLowStock(ctx context.Context, alert domain.LowStockAlert) error {
	return d.publish(ctx, domain.KindLowStock, alert)
}

func (d *Dispatcher) publish(ctx context.Context, kind string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notification: marshal %s: %w", kind, err)
	}
	if err := d.queue.Publish(ctx, domain.Message{Kind: kind, Body: body}); err != nil {
		return fmt.Errorf("notification: publish %s: %w", kind, err)
	}
	return nil
}
