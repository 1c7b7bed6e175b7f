package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"github.com/synexstock/orderflow/internal/domain/notification"
	"go.uber.org/zap"
)

const (
	publishTimeout = 5 * time.Second
	consumerTag    = "orderflow-notification-consumer"
)

// Queue is a durable RabbitMQ-backed notification queue. The publisher
// channel runs in confirm mode so Publish returns only after the broker
// has accepted the message; the consumer uses manual acks and always acks,
// because a failing message is dropped rather than redelivered.
type Queue struct {
	conn          *amqp.Connection
	producerChan  *amqp.Channel
	consumerChan  *amqp.Channel
	notifyConfirm chan amqp.Confirmation
	queueName     string
	log           *zap.Logger
}

func New(url, queueName string, logger *zap.Logger) (*Queue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	q := &Queue{
		conn:      conn,
		queueName: queueName,
		log:       logger.With(zap.String("component", "rabbitmq_queue")),
	}
	if err := q.setup(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	q.log.Info("rabbitmq_connected", zap.String("queue", queueName))
	return q, nil
}

func (q *Queue) setup() error {
	producer, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open producer channel: %w", err)
	}
	if err := producer.Confirm(false); err != nil {
		return fmt.Errorf("enable confirm mode: %w", err)
	}
	q.notifyConfirm = make(chan amqp.Confirmation, 1)
	producer.NotifyPublish(q.notifyConfirm)
	q.producerChan = producer

	consumer, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	// One unacked message at a time keeps delivery strictly sequential per
	// consumer instance.
	if err := consumer.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	q.consumerChan = consumer

	if _, err := producer.QueueDeclare(q.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", q.queueName, err)
	}
	return nil
}

func (q *Queue) Publish(ctx context.Context, m notification.Message) error {
	err := q.producerChan.Publish(
		"",          // default exchange
		q.queueName, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Type:         m.Kind,
			Body:         m.Body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	select {
	case confirm := <-q.notifyConfirm:
		if confirm.Ack {
			return nil
		}
		return errors.New("message published but not confirmed")
	case <-time.After(publishTimeout):
		return errors.New("publish confirmation timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Consume(ctx context.Context, h notification.Handler) error {
	deliveries, err := q.consumerChan.Consume(
		q.queueName,
		consumerTag,
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			m := notification.Message{Kind: d.Type, Body: d.Body}
			if err := h(ctx, m); err != nil {
				q.log.Warn("handler_error", zap.String("kind", m.Kind), zap.Error(err))
			}
			// Always ack: the handler owns failure handling and the contract
			// forbids redelivering a poison message.
			if err := d.Ack(false); err != nil {
				q.log.Error("ack_failed", zap.Error(err))
			}
		}
	}
}

func (q *Queue) Close() error {
	if q.consumerChan != nil {
		_ = q.consumerChan.Cancel(consumerTag, false)
	}
	return q.conn.Close()
}
