package model

import "time"

// Customer is a row of the `customers` table.  Customers are looked up by
// email at portal entry and created lazily on the first visit.
type Customer struct {
	ID        string    `json:"id"`         // customers.id (uuid)
	Email     string    `json:"email"`      // customers.email, unique-ish, stored lower-cased
	Name      string    `json:"name"`       // customers.name
	Phone     string    `json:"phone"`      // customers.phone
	CreatedAt time.Time `json:"created_at"` // customers.created_at
}

// Address is a postal address either saved by a customer (`customer_addresses`)
// or embedded in a booking when the delivery type needs one.
type Address struct {
	ID         string `json:"id,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	Label      string `json:"label,omitempty"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	Zip        string `json:"zip" validate:"required"`
	IsDefault  bool   `json:"is_default,omitempty"`
}

// IsZero reports whether no address field was filled in.
func (a Address) IsZero() bool {
	return a.Street == "" && a.City == "" && a.State == "" && a.Zip == ""
}
