// Package queue_publisher publishes domain events to RabbitMQ.  Errors are
// logged and returned so callers can ignore failures without interrupting
// the main request flow.
package queue_publisher

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	q "github.com/iliyamo/smartfix/internal/queue"
)

// Publisher dials the broker per message.  Event volume is a few messages
// per booking or sale, so no connection is kept open between publishes.
// A nil *Publisher drops every event.
type Publisher struct {
	url string
	log *zap.Logger
}

// New returns a Publisher for the broker at url.
func New(url string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, log: log.Named("publisher")}
}

// PublishBookingCreated sends ev to the booking.created queue.
func (p *Publisher) PublishBookingCreated(ctx context.Context, ev q.BookingCreatedEvent) error {
	return p.publish(ctx, q.BookingCreatedQueue, ev)
}

// PublishSaleCompleted sends ev to the sale.completed queue.
func (p *Publisher) PublishSaleCompleted(ctx context.Context, ev q.SaleCompletedEvent) error {
	return p.publish(ctx, q.SaleCompletedQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queue string, event any) error {
	if p == nil {
		return nil
	}
	log := p.log.With(zap.String("queue", queue))

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Warn("rabbitmq: dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn("rabbitmq: channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		log.Warn("rabbitmq: queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Warn("rabbitmq: marshal event failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		log.Warn("rabbitmq: publish failed", zap.Error(err))
		return err
	}
	log.Debug("event published", zap.Int("bytes", len(body)))
	return nil
}
