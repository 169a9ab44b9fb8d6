package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/smartfix/internal/model"
)

// NotificationWriter stores customer notifications.
type NotificationWriter interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
}

// PointsAwarder credits loyalty points.
type PointsAwarder interface {
	AwardPoints(ctx context.Context, customerID string, points int, description string) error
}

// Consumer listens on the booking.created and sale.completed queues.  A
// booking becomes an in-app notification for its customer; a sale credits
// one loyalty point per whole currency unit to the customer it was rung up
// for.
type Consumer struct {
	url           string
	notifications NotificationWriter
	points        PointsAwarder
	log           *zap.Logger
}

// NewConsumer builds a Consumer for the broker at url.
func NewConsumer(url string, notifications NotificationWriter, points PointsAwarder, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{url: url, notifications: notifications, points: points, log: log.Named("consumer")}
}

// Run connects to RabbitMQ, declares both queues (durable) and consumes
// until ctx is cancelled.  Dial failures back off exponentially up to 30s;
// a dropped connection is re-established.  Processing errors reject the
// offending message without requeue so the loop keeps going.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("failed to dial broker; retrying", zap.Error(err), zap.Duration("backoff", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}

	bookings, err := c.consume(ch, BookingCreatedQueue)
	if err != nil {
		return err
	}
	sales, err := c.consume(ch, SaleCompletedQueue)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-bookings:
			if !ok {
				return errors.New("booking deliveries channel closed")
			}
			c.settle(d, c.HandleBookingCreated(ctx, d.Body))
		case d, ok := <-sales:
			if !ok {
				return errors.New("sale deliveries channel closed")
			}
			c.settle(d, c.HandleSaleCompleted(ctx, d.Body))
		}
	}
}

func (c *Consumer) consume(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}
	return msgs, nil
}

func (c *Consumer) settle(d amqp.Delivery, err error) {
	if err != nil {
		c.log.Warn("handle message failed", zap.String("routing_key", d.RoutingKey), zap.Error(err))
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

// HandleBookingCreated turns a booking.created message into a notification.
// Guest bookings without a customer id are acknowledged and ignored.
func (c *Consumer) HandleBookingCreated(ctx context.Context, body []byte) error {
	var ev BookingCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.CustomerID == "" {
		c.log.Debug("booking without customer; no notification", zap.String("tracking", ev.TrackingNumber))
		return nil
	}
	msg := fmt.Sprintf("We received your %s repair request. Track it with %s.", ev.Device, ev.TrackingNumber)
	if ev.ScheduledDate != "" {
		msg += fmt.Sprintf(" Scheduled for %s %s.", ev.ScheduledDate, ev.ScheduledTime)
	}
	n := &model.Notification{
		CustomerID: ev.CustomerID,
		Title:      "Booking received",
		Message:    msg,
		Type:       "booking",
	}
	if err := c.notifications.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	c.log.Info("booking notification stored", zap.String("booking_id", ev.BookingID), zap.String("customer_id", ev.CustomerID))
	return nil
}

// HandleSaleCompleted credits loyalty points for a sale.
func (c *Consumer) HandleSaleCompleted(ctx context.Context, body []byte) error {
	var ev SaleCompletedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.CustomerID == "" {
		return nil
	}
	points := int(ev.Total.Floor().IntPart())
	if points <= 0 {
		return nil
	}
	if err := c.points.AwardPoints(ctx, ev.CustomerID, points, "Purchase "+ev.ReceiptNumber); err != nil {
		return fmt.Errorf("award points: %w", err)
	}
	c.log.Info("loyalty points awarded", zap.String("customer_id", ev.CustomerID), zap.Int("points", points))
	return nil
}
