package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryItem is a row of the `inventory_items` table.  Quantity is
// changed by direct increments; there is no reservation or version column.
type InventoryItem struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity"`
	MinStock  int             `json:"min_stock"`
	Cost      decimal.Decimal `json:"cost"`
	Price     decimal.Decimal `json:"price"`
	Supplier  string          `json:"supplier"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NeedsReorder is true when stock is at or below the configured minimum.
func (i InventoryItem) NeedsReorder() bool {
	return i.Quantity <= i.MinStock
}

// PurchaseOrderStatus is the state of a supplier order.
type PurchaseOrderStatus string

const (
	PODraft     PurchaseOrderStatus = "Draft"
	POSubmitted PurchaseOrderStatus = "Submitted"
	POReceived  PurchaseOrderStatus = "Received"
	POCancelled PurchaseOrderStatus = "Cancelled"
)

// PurchaseOrderItem is one ordered inventory line.  Items are stored as a
// JSON array on the purchase order row.
type PurchaseOrderItem struct {
	InventoryID string          `json:"inventory_id" validate:"required"`
	SKU         string          `json:"sku,omitempty"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

// PurchaseOrder is a row of the `purchase_orders` table.
type PurchaseOrder struct {
	ID         string              `json:"id"`
	Supplier   string              `json:"supplier"`
	Items      []PurchaseOrderItem `json:"items"`
	Status     PurchaseOrderStatus `json:"status"`
	Notes      string              `json:"notes,omitempty"`
	CreatedBy  string              `json:"created_by,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
	ReceivedAt *time.Time          `json:"received_at,omitempty"`
}

// Total sums quantity × unit cost over all lines.
func (po PurchaseOrder) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range po.Items {
		total = total.Add(it.UnitCost.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
