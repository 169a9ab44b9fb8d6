package pos

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smartfix/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTotals(t *testing.T) {
	c := Cart{Lines: []Line{
		{Key: "product:a", Kind: model.LineProduct, Price: dec("10"), Quantity: 2},
		{Key: "product:b", Kind: model.LineProduct, Price: dec("5"), Quantity: 1},
	}}
	c.SetDiscount(dec("10"))

	got := c.Totals(dec("0.08"))
	assert.True(t, got.Subtotal.Equal(dec("25")), "subtotal %s", got.Subtotal)
	assert.True(t, got.Discount.Equal(dec("2.5")), "discount %s", got.Discount)
	assert.True(t, got.Taxable.Equal(dec("22.5")), "taxable %s", got.Taxable)
	assert.True(t, got.Tax.Equal(dec("1.8")), "tax %s", got.Tax)
	assert.True(t, got.Total.Equal(dec("24.3")), "total %s", got.Total)
}

func TestTotalsRoundsToCents(t *testing.T) {
	c := Cart{Lines: []Line{{Kind: model.LineProduct, Price: dec("19.99"), Quantity: 3}}}
	c.SetDiscount(dec("15"))
	got := c.Totals(dec("0.0825"))
	assert.Equal(t, "59.97", got.Subtotal.StringFixed(2))
	assert.Equal(t, "9.00", got.Discount.StringFixed(2))
	assert.Equal(t, "4.21", got.Tax.StringFixed(2))
	assert.Equal(t, "55.18", got.Total.StringFixed(2))
}

func TestSetDiscountClamps(t *testing.T) {
	var c Cart
	c.SetDiscount(dec("-5"))
	assert.True(t, c.DiscountPercent.IsZero())
	c.SetDiscount(dec("150"))
	assert.True(t, c.DiscountPercent.Equal(dec("100")))
	c.SetDiscount(dec("12.5"))
	assert.True(t, c.DiscountPercent.Equal(dec("12.5")))
}

func TestAddProduct(t *testing.T) {
	item := model.InventoryItem{ID: "i1", Name: "USB-C cable", Price: dec("9.99"), Quantity: 3}

	t.Run("merges into existing line", func(t *testing.T) {
		var c Cart
		require.NoError(t, c.AddProduct(item, 1))
		require.NoError(t, c.AddProduct(item, 2))
		require.Len(t, c.Lines, 1)
		assert.Equal(t, 3, c.Lines[0].Quantity)
		assert.Equal(t, "product:i1", c.Lines[0].Key)
	})

	t.Run("at full stock leaves cart unchanged", func(t *testing.T) {
		var c Cart
		require.NoError(t, c.AddProduct(item, 3))
		before := append([]Line(nil), c.Lines...)

		err := c.AddProduct(item, 1)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Equal(t, before, c.Lines)
	})

	t.Run("out of stock item", func(t *testing.T) {
		var c Cart
		assert.ErrorIs(t, c.AddProduct(model.InventoryItem{ID: "i2", Quantity: 0}, 1), ErrInsufficientStock)
		assert.True(t, c.Empty())
	})

	t.Run("non-positive quantity", func(t *testing.T) {
		var c Cart
		assert.ErrorIs(t, c.AddProduct(item, 0), ErrInvalidQuantity)
	})
}

func TestAddRepair(t *testing.T) {
	est := dec("120")
	cust := "c1"
	b := model.Booking{ID: "b1", TrackingNumber: "SFX261016AAAAAA", CostEstimate: &est, CustomerID: &cust,
		Device: model.Device{Brand: "Apple", Model: "iPad"}}

	var c Cart
	require.NoError(t, c.AddRepair(b, dec("50")))
	assert.ErrorIs(t, c.AddRepair(b, dec("50")), ErrDuplicateRepair)
	require.Len(t, c.Lines, 1)
	assert.True(t, c.Lines[0].Price.Equal(est))
	assert.Equal(t, 1, c.Lines[0].Quantity)
	assert.Equal(t, "Repair SFX261016AAAAAA (Apple iPad)", c.Lines[0].Name)
	assert.Equal(t, &cust, c.CustomerID())

	require.NoError(t, c.AddRepair(model.Booking{ID: "b2"}, dec("50")))
	assert.True(t, c.Lines[1].Price.Equal(dec("50")), "fallback price without estimate")
}

func TestUpdateQuantity(t *testing.T) {
	var c Cart
	require.NoError(t, c.AddProduct(model.InventoryItem{ID: "i1", Price: dec("2"), Quantity: 5}, 1))
	require.NoError(t, c.AddRepair(model.Booking{ID: "b1"}, dec("50")))

	t.Run("repair line is immutable", func(t *testing.T) {
		before := append([]Line(nil), c.Lines...)
		assert.ErrorIs(t, c.UpdateQuantity("repair:b1", 4), ErrRepairQuantityFixed)
		assert.Equal(t, before, c.Lines)
	})

	t.Run("product line within stock", func(t *testing.T) {
		require.NoError(t, c.UpdateQuantity("product:i1", 5))
		assert.Equal(t, 5, c.Lines[0].Quantity)
		assert.ErrorIs(t, c.UpdateQuantity("product:i1", 6), ErrInsufficientStock)
		assert.Equal(t, 5, c.Lines[0].Quantity)
	})

	t.Run("zero removes", func(t *testing.T) {
		require.NoError(t, c.UpdateQuantity("product:i1", 0))
		require.Len(t, c.Lines, 1)
		assert.Equal(t, model.LineRepair, c.Lines[0].Kind)
	})

	t.Run("unknown line", func(t *testing.T) {
		assert.ErrorIs(t, c.UpdateQuantity("product:nope", 1), ErrLineNotFound)
		assert.ErrorIs(t, c.Remove("product:nope"), ErrLineNotFound)
	})
}
