// Package queue defines message payloads exchanged over the message broker
// and the background consumer that reacts to them.
package queue

import "github.com/shopspring/decimal"

// Queue names.  Each event type has its own durable queue and is published
// on the default exchange with the queue name as routing key.
const (
	BookingCreatedQueue = "booking.created"
	SaleCompletedQueue  = "sale.completed"
)

// BookingCreatedEvent is published after the booking wizard stored a new
// booking.  It carries enough for the consumer to notify the customer without
// querying the bookings table.
type BookingCreatedEvent struct {
	BookingID      string `json:"booking_id"`
	TrackingNumber string `json:"tracking_number"`
	CustomerID     string `json:"customer_id,omitempty"`
	CustomerName   string `json:"customer_name"`
	CustomerEmail  string `json:"customer_email"`
	Device         string `json:"device"`
	ServiceName    string `json:"service_name,omitempty"`
	DeliveryType   string `json:"delivery_type"`
	ScheduledDate  string `json:"scheduled_date"`
	ScheduledTime  string `json:"scheduled_time"`
	CreatedAt      string `json:"created_at"`
}

// SaleCompletedEvent is published after a POS checkout stored its sale.
type SaleCompletedEvent struct {
	SaleID           string          `json:"sale_id"`
	ReceiptNumber    string          `json:"receipt_number"`
	CashierID        string          `json:"cashier_id"`
	CustomerID       string          `json:"customer_id,omitempty"`
	PaymentMethod    string          `json:"payment_method"`
	Total            decimal.Decimal `json:"total"`
	ItemCount        int             `json:"item_count"`
	RepairBookingIDs []string        `json:"repair_booking_ids,omitempty"`
	CompletedAt      string          `json:"completed_at"`
}
