package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a repair booking.  No transition
// guard exists beyond the value having to be one of the constants below.
type BookingStatus string

const (
	BookingPending    BookingStatus = "Pending"
	BookingConfirmed  BookingStatus = "Confirmed"
	BookingInProgress BookingStatus = "In Progress"
	BookingCompleted  BookingStatus = "Completed"
	BookingCancelled  BookingStatus = "Cancelled"
)

// BookingStatuses lists every valid status in display order.
var BookingStatuses = []BookingStatus{
	BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted, BookingCancelled,
}

// ParseBookingStatus matches s case-insensitively against the known
// statuses.  "in_progress" and "in-progress" are accepted as well.
func ParseBookingStatus(s string) (BookingStatus, bool) {
	norm := strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(s))
	for _, st := range BookingStatuses {
		if strings.EqualFold(string(st), norm) {
			return st, true
		}
	}
	return "", false
}

// Priority of a booking on the technician board.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Device is the canonical device description carried by bookings.
type Device struct {
	Type  string `json:"type" validate:"required"`
	Brand string `json:"brand" validate:"required"`
	Model string `json:"model"`
}

// DisplayName joins brand and model, e.g. "Apple iPhone 13".
func (d Device) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(d.Brand) + " " + strings.TrimSpace(d.Model))
}

// Booking is a row of the `bookings` table.
type Booking struct {
	ID               string           `json:"id"`
	TrackingNumber   string           `json:"tracking_number"`
	CustomerID       *string          `json:"customer_id,omitempty"`
	CustomerName     string           `json:"customer_name"`
	CustomerEmail    string           `json:"customer_email"`
	CustomerPhone    string           `json:"customer_phone"`
	Device           Device           `json:"device"`
	ServiceID        string           `json:"service_id"`
	ServiceName      string           `json:"service_name,omitempty"`
	IssueDescription string           `json:"issue_description"`
	Status           BookingStatus    `json:"status"`
	Priority         Priority         `json:"priority"`
	DeliveryType     string           `json:"delivery_type"`
	Address          *Address         `json:"address,omitempty"`
	ScheduledDate    string           `json:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime    string           `json:"scheduled_time"` // HH:MM
	CostEstimate     *decimal.Decimal `json:"cost_estimate,omitempty"`
	DeliveryFee      decimal.Decimal  `json:"delivery_fee"`
	Notes            string           `json:"notes,omitempty"`
	PickedUpAt       *time.Time       `json:"picked_up_at,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// ReadyForPickup reports whether the repair is finished and still waiting
// at the counter.
func (b Booking) ReadyForPickup() bool {
	return b.Status == BookingCompleted && b.PickedUpAt == nil
}
