package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/synexstock/orderflow/internal/domain/notification"
	"github.com/synexstock/orderflow/internal/infrastructure/queue"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu   sync.Mutex
	err  error
	sent []sentMail
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (s *recordingSender) Send(ctx context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (s *recordingSender) all() []sentMail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentMail, len(s.sent))
	copy(out, s.sent)
	return out
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestHandleOrderConfirmation(t *testing.T) {
	sender := &recordingSender{}
	c := NewConsumer(nil, sender, zap.NewNop(), nil)

	body := mustMarshal(t, domain.OrderConfirmation{
		ToEmail:  "alice@example.com",
		UserName: "alice",
		SKUCode:  "SKU-001",
		Quantity: 3,
	})
	if err := c.handle(context.Background(), domain.Message{Kind: domain.KindOrderConfirmation, Body: body}); err != nil {
		t.Fatalf("handle returned %v, must always ack", err)
	}

	sent := sender.all()
	if len(sent) != 1 {
		t.Fatalf("expected one send, got %d", len(sent))
	}
	if sent[0].to != "alice@example.com" {
		t.Errorf("sent to %q", sent[0].to)
	}
	if !strings.Contains(sent[0].subject, "SKU-001") {
		t.Errorf("subject missing sku: %q", sent[0].subject)
	}
	if !strings.Contains(sent[0].body, "3 x SKU-001") {
		t.Errorf("body missing order line: %q", sent[0].body)
	}
}

func TestHandleLowStockAlert(t *testing.T) {
	sender := &recordingSender{}
	c := NewConsumer(nil, sender, zap.NewNop(), nil)

	body := mustMarshal(t, domain.LowStockAlert{
		SKUCode:           "SKU-009",
		QuantityAvailable: 2,
		ReorderLevel:      10,
		ItemName:          "Widget",
		Email:             "ops@example.com",
	})
	if err := c.handle(context.Background(), domain.Message{Kind: domain.KindLowStock, Body: body}); err != nil {
		t.Fatalf("handle returned %v", err)
	}

	sent := sender.all()
	if len(sent) != 1 {
		t.Fatalf("expected one send, got %d", len(sent))
	}
	if sent[0].to != "ops@example.com" {
		t.Errorf("sent to %q", sent[0].to)
	}
	if !strings.Contains(sent[0].body, "Available: 2") || !strings.Contains(sent[0].body, "Reorder level: 10") {
		t.Errorf("body missing stock figures: %q", sent[0].body)
	}
}

func TestHandleSendFailureIsAcked(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp refused")}
	c := NewConsumer(nil, sender, zap.NewNop(), nil)

	body := mustMarshal(t, domain.OrderConfirmation{ToEmail: "a@b.c", UserName: "a", SKUCode: "S", Quantity: 1})
	if err := c.handle(context.Background(), domain.Message{Kind: domain.KindOrderConfirmation, Body: body}); err != nil {
		t.Errorf("send failure must be swallowed, got %v", err)
	}
}

func TestHandleMalformedPayloadIsAcked(t *testing.T) {
	sender := &recordingSender{}
	c := NewConsumer(nil, sender, zap.NewNop(), nil)

	cases := []domain.Message{
		{Kind: domain.KindOrderConfirmation, Body: []byte("{not json")},
		{Kind: domain.KindLowStock, Body: []byte("[]")},
		{Kind: "unknown.kind", Body: []byte("{}")},
	}
	for _, m := range cases {
		if err := c.handle(context.Background(), m); err != nil {
			t.Errorf("kind %q: malformed message must be swallowed, got %v", m.Kind, err)
		}
	}
	if len(sender.all()) != 0 {
		t.Errorf("nothing may be sent for malformed messages")
	}
}

func TestDispatchThroughQueue(t *testing.T) {
	q := queue.NewMemory(zap.NewNop())
	defer q.Close()

	sender := &recordingSender{}
	consumer := NewConsumer(q, sender, zap.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Run(ctx)
	}()

	d := NewDispatcher(q)
	if err := d.PublishOrderConfirmation(ctx, domain.OrderConfirmation{
		ToEmail:  "alice@example.com",
		UserName: "alice",
		SKUCode:  "SKU-001",
		Quantity: 2,
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := d.PublishLowStock(ctx, domain.LowStockAlert{
		SKUCode:           "SKU-001",
		QuantityAvailable: 1,
		ReorderLevel:      5,
		ItemName:          "Widget",
		Email:             "ops@example.com",
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for len(sender.all()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for deliveries, got %d", len(sender.all()))
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done

	sent := sender.all()
	if sent[0].to != "alice@example.com" || sent[1].to != "ops@example.com" {
		t.Errorf("unexpected delivery order: %+v", sent)
	}
}
