package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// The types below are customer-owned records rendered on the customer
// profile.  Each one is fetched independently and no invariant spans two
// of them.

type Notification struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customer_id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Type       string    `json:"type"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// LoyaltyAccount is the `loyalty_accounts` row.  Tier may be empty in which
// case it is derived from Points.
type LoyaltyAccount struct {
	CustomerID string
	Points     int
	Tier       string
	UpdatedAt  time.Time
}

// LoyaltyReward is an entry of the rewards catalogue.
type LoyaltyReward struct {
	ID          string
	Name        string
	Description string
	PointsCost  int
}

// LoyaltyTransaction is one earn or redeem movement on an account.
type LoyaltyTransaction struct {
	ID          string
	CustomerID  string
	Points      int // negative for redemptions
	Description string
	CreatedAt   time.Time
}

// CustomerDevice is a device registered by a customer.  Name is optional.
type CustomerDevice struct {
	ID           string
	CustomerID   string
	Name         string
	Type         string
	Brand        string
	Model        string
	SerialNumber string
	CreatedAt    time.Time
}

type Warranty struct {
	ID         string
	CustomerID string
	BookingID  string
	DeviceName string
	Coverage   string
	StartsAt   time.Time
	ExpiresAt  time.Time
}

type Invoice struct {
	ID            string
	CustomerID    string
	BookingID     string
	InvoiceNumber string
	Amount        decimal.Decimal
	Status        string
	IssuedAt      time.Time
	DueAt         *time.Time
}

// Referral is one person referred by a customer.  Code is the referrer's
// code and is repeated on every row.
type Referral struct {
	ID            string
	CustomerID    string
	Code          string
	ReferredEmail string
	Status        string
	RewardPoints  int
	CreatedAt     time.Time
}

type CustomerSettings struct {
	CustomerID         string
	EmailNotifications bool
	SMSNotifications   bool
	MarketingEmails    bool
	PreferredContact   string
}

type Review struct {
	ID         string
	CustomerID string
	BookingID  string
	Rating     int
	Comment    string
	CreatedAt  time.Time
}

type Favorite struct {
	ID          string
	CustomerID  string
	ServiceID   string
	ServiceName string
	CreatedAt   time.Time
}

type PaymentMethod struct {
	ID         string
	CustomerID string
	Brand      string
	Last4      string
	ExpMonth   int
	ExpYear    int
	IsDefault  bool
}

// TicketStatus is the state of a support ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// ValidTicketStatus reports whether s is a known ticket status.
func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

type SupportTicket struct {
	ID         string       `json:"id"`
	CustomerID *string      `json:"customer_id,omitempty"`
	Email      string       `json:"email"`
	Subject    string       `json:"subject"`
	Message    string       `json:"message"`
	Status     TicketStatus `json:"status"`
	Priority   Priority     `json:"priority"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}
