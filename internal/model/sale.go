package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineKind distinguishes retail products from repair pickups in a sale.
type LineKind string

const (
	LineProduct LineKind = "product"
	LineRepair  LineKind = "repair"
)

// SaleItem is one line of a completed sale.
type SaleItem struct {
	Kind      LineKind        `json:"kind"`
	RefID     string          `json:"ref_id"` // inventory item id or booking id
	Name      string          `json:"name"`
	SKU       string          `json:"sku,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Sale is a row of the `sales` table.  It is written once per checkout and
// never updated.
type Sale struct {
	ID              string          `json:"id"`
	ReceiptNumber   string          `json:"receipt_number"`
	CashierID       string          `json:"cashier_id"`
	CustomerID      *string         `json:"customer_id,omitempty"`
	Items           []SaleItem      `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Discount        decimal.Decimal `json:"discount"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	PaymentMethod   string          `json:"payment_method"`
	CreatedAt       time.Time       `json:"created_at"`
}
