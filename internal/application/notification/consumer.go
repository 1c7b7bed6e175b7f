package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	domain "github.com/synexstock/orderflow/internal/domain/notification"
	"go.uber.org/zap"
)

// Sender delivers a rendered message to its recipient. Implementations
// live in infrastructure (SMTP, or a log-only sender for development).
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Consumer drains the notification queue one message at a time, renders
// the appropriate mail, and attempts delivery. A failed send is logged and
// the message is discarded: redelivering a failing message forever would
// wedge the queue behind a single poison message, and duplicate or lost
// confirmations are an accepted trade-off.
type Consumer struct {
	queue  domain.Consumer
	sender Sender
	log    *zap.Logger
	sends  *prometheus.CounterVec
}

func NewConsumer(queue domain.Consumer, sender Sender, logger *zap.Logger, sends *prometheus.CounterVec) *Consumer {
	return &Consumer{
		queue:  queue,
		sender: sender,
		log:    logger.With(zap.String("component", "notification_consumer")),
		sends:  sends,
	}
}

// Run blocks until the context ends. Horizontal scaling is achieved by
// running more consumer instances, not by concurrency inside one.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("notification_consumer_started")
	return c.queue.Consume(ctx, c.handle)
}

func (c *Consumer) handle(ctx context.Context, m domain.Message) error {
	to, subject, body, err := c.render(m)
	if err != nil {
		c.log.Error("notification_malformed", zap.String("kind", m.Kind), zap.Error(err))
		c.count(m.Kind, "malformed")
		return nil
	}

	if err := c.sender.Send(ctx, to, subject, body); err != nil {
		// Catch, log, acknowledge. Never retried.
		c.log.Error("notification_send_failed",
			zap.String("kind", m.Kind),
			zap.String("to", to),
			zap.Error(err),
		)
		c.count(m.Kind, "error")
		return nil
	}

	c.log.Info("notification_sent", zap.String("kind", m.Kind), zap.String("to", to))
	c.count(m.Kind, "success")
	return nil
}

func (c *Consumer) render(m domain.Message) (to, subject, body string, err error) {
	switch m.Kind {
	case domain.KindOrderConfirmation:
		var ev domain.OrderConfirmation
		if err := json.Unmarshal(m.Body, &ev); err != nil {
			return "", "", "", fmt.Errorf("decode order confirmation: %w", err)
		}
		subject = fmt.Sprintf("Order confirmed: %s", ev.SKUCode)
		body = fmt.Sprintf("Hello %s,\n\nYour order for %d x %s has been confirmed.\n",
			ev.UserName, ev.Quantity, ev.SKUCode)
		return ev.ToEmail, subject, body, nil

	case domain.KindLowStock:
		var alert domain.LowStockAlert
		if err := json.Unmarshal(m.Body, &alert); err != nil {
			return "", "", "", fmt.Errorf("decode low stock alert: %w", err)
		}
		subject = fmt.Sprintf("Low stock alert: %s", alert.ItemName)
		body = fmt.Sprintf("Item %s (SKU %s) is below its reorder level.\nAvailable: %d\nReorder level: %d\n",
			alert.ItemName, alert.SKUCode, alert.QuantityAvailable, alert.ReorderLevel)
		return alert.Email, subject, body, nil

	default:
		return "", "", "", fmt.Errorf("unknown message kind %q", m.Kind)
	}
}

func (c *Consumer) count(kind, outcome string) {
	if c.sends != nil {
		c.sends.WithLabelValues(kind, outcome).Inc()
	}
}
