package queue

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/synexstock/orderflow/internal/domain/notification"
	"go.uber.org/zap"
)

// Memory is an in-process queue for development and tests. It preserves
// the durable queue's contract (accept-then-dispatch, one message at a
// time per consumer) without surviving restarts.
type Memory struct {
	queue    chan notification.Message
	stopOnce sync.Once
	log      *zap.Logger
}

func NewMemory(logger *zap.Logger) *Memory {
	return &Memory{
		queue: make(chan notification.Message, 1024),
		log:   logger.With(zap.String("component", "memory_queue")),
	}
}

func (q *Memory) Publish(ctx context.Context, m notification.Message) error {
	select {
	case q.queue <- m:
		q.log.Debug("message_enqueued", zap.String("kind", m.Kind))
		return nil
	case <-ctx.Done():
		q.log.Warn("enqueue_aborted", zap.String("kind", m.Kind), zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

// Consume dispatches messages to the handler one at a time until the
// context is canceled. Handler errors and panics are logged and the
// message is discarded.
func (q *Memory) Consume(ctx context.Context, h notification.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-q.queue:
			if !ok {
				return nil
			}
			q.dispatch(ctx, h, m)
		}
	}
}

func (q *Memory) dispatch(ctx context.Context, h notification.Handler, m notification.Message) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("handler_panic",
				zap.String("kind", m.Kind),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
		}
	}()

	if err := h(ctx, m); err != nil {
		q.log.Warn("handler_error", zap.String("kind", m.Kind), zap.Error(err))
	}
}

func (q *Memory) Close() {
	q.stopOnce.Do(func() {
		close(q.queue)
		q.log.Info("queue_closed")
	})
}
