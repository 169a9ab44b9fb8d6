// Package pos implements the point-of-sale cart and checkout.  A cart holds
// retail product lines and repair pickup lines; totals are computed with
// decimal arithmetic and rounded to cents.
package pos

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/smartfix/internal/model"
)

var (
	// ErrInsufficientStock is the stock warning.  The cart is left unchanged.
	ErrInsufficientStock = errors.New("not enough stock")
	// ErrDuplicateRepair rejects a second line for the same booking.
	ErrDuplicateRepair = errors.New("repair already in cart")
	// ErrRepairQuantityFixed reports that a repair line's quantity stays 1.
	ErrRepairQuantityFixed = errors.New("repair quantity is fixed at 1")
	ErrLineNotFound        = errors.New("cart line not found")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
)

var hundred = decimal.NewFromInt(100)

// Line is one cart entry.  Key is "product:<inventory id>" or
// "repair:<booking id>".
type Line struct {
	Key      string          `json:"key"`
	Kind     model.LineKind  `json:"kind"`
	RefID    string          `json:"ref_id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	// Stock is the available quantity seen when the line was last touched.
	Stock int `json:"stock,omitempty"`
	// CustomerID is set on repair lines from the booking.
	CustomerID *string `json:"customer_id,omitempty"`
}

// Total is price × quantity.
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineKey builds the key of a line.
func LineKey(kind model.LineKind, refID string) string {
	return string(kind) + ":" + refID
}

// Cart is the cashier's working list.
type Cart struct {
	Lines           []Line          `json:"lines"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

// Totals is the checkout arithmetic of a cart.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Taxable  decimal.Decimal `json:"taxable"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

func (c *Cart) find(key string) int {
	for i := range c.Lines {
		if c.Lines[i].Key == key {
			return i
		}
	}
	return -1
}

// AddProduct adds qty units of item, merging into an existing line.  When the
// merged quantity would exceed the item's stock the cart is not modified and
// ErrInsufficientStock is returned.
func (c *Cart) AddProduct(item model.InventoryItem, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	key := LineKey(model.LineProduct, item.ID)
	i := c.find(key)
	current := 0
	if i >= 0 {
		current = c.Lines[i].Quantity
	}
	if current+qty > item.Quantity {
		return ErrInsufficientStock
	}
	if i >= 0 {
		c.Lines[i].Quantity += qty
		c.Lines[i].Stock = item.Quantity
		c.Lines[i].Price = item.Price
		return nil
	}
	c.Lines = append(c.Lines, Line{
		Key:   key, Kind: model.LineProduct, RefID: item.ID, Name: item.Name, SKU: item.SKU,
		Price: item.Price, Quantity: qty, Stock: item.Quantity,
	})
	return nil
}

// AddRepair adds the pickup line of a booking.  A booking without a cost
// estimate is priced at fallbackPrice.
func (c *Cart) AddRepair(b model.Booking, fallbackPrice decimal.Decimal) error {
	key := LineKey(model.LineRepair, b.ID)
	if c.find(key) >= 0 {
		return ErrDuplicateRepair
	}
	price := fallbackPrice
	if b.CostEstimate != nil {
		price = *b.CostEstimate
	}
	name := "Repair " + b.TrackingNumber
	if d := b.Device.DisplayName(); d != "" {
		name += " (" + d + ")"
	}
	c.Lines = append(c.Lines, Line{
		Key:   key, Kind: model.LineRepair, RefID: b.ID, Name: strings.TrimSpace(name),
		Price: price, Quantity: 1, CustomerID: b.CustomerID,
	})
	return nil
}

// UpdateQuantity sets the quantity of a product line.  Zero or less removes
// the line.  Repair lines are left untouched and ErrRepairQuantityFixed is
// returned.
func (c *Cart) UpdateQuantity(key string, qty int) error {
	i := c.find(key)
	if i < 0 {
		return ErrLineNotFound
	}
	if c.Lines[i].Kind == model.LineRepair {
		return ErrRepairQuantityFixed
	}
	if qty <= 0 {
		return c.Remove(key)
	}
	if qty > c.Lines[i].Stock {
		return ErrInsufficientStock
	}
	c.Lines[i].Quantity = qty
	return nil
}

// Remove drops a line.
func (c *Cart) Remove(key string) error {
	i := c.find(key)
	if i < 0 {
		return ErrLineNotFound
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return nil
}

// SetDiscount stores the discount percent clamped to [0, 100].
func (c *Cart) SetDiscount(pct decimal.Decimal) {
	switch {
	case pct.IsNegative():
		pct = decimal.Zero
	case pct.GreaterThan(hundred):
		pct = hundred
	}
	c.DiscountPercent = pct
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return len(c.Lines) == 0 }

// CustomerID returns the customer of the first repair line that has one.
func (c *Cart) CustomerID() *string {
	for _, l := range c.Lines {
		if l.CustomerID != nil && *l.CustomerID != "" {
			return l.CustomerID
		}
	}
	return nil
}

// Totals computes
//
//	subtotal = Σ price × quantity
//	discount = subtotal × discountPercent / 100
//	tax      = (subtotal − discount) × taxRate
//	total    = subtotal − discount + tax
//
// Intermediate values keep full precision; every returned amount is rounded
// to cents.
func (c *Cart) Totals(taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range c.Lines {
		subtotal = subtotal.Add(l.Total())
	}
	discount := subtotal.Mul(c.DiscountPercent).Div(hundred)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate)
	return Totals{
		Subtotal: subtotal.Round(2),
		Discount: discount.Round(2),
		Taxable:  taxable.Round(2),
		Tax:      tax.Round(2),
		Total:    taxable.Add(tax).Round(2),
	}
}
