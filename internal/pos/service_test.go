package pos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smartfix/internal/config"
	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/queue"
	"github.com/iliyamo/smartfix/internal/repository"
)

// --- Mocks ---

type MockSales struct{ mock.Mock }

func (m *MockSales) Create(ctx context.Context, s *model.Sale) error {
	return m.Called(ctx, s).Error(0)
}

type MockRepairs struct{ mock.Mock }

func (m *MockRepairs) GetByID(ctx context.Context, id string) (model.Booking, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Booking), args.Error(1)
}
func (m *MockRepairs) ListReadyForPickup(ctx context.Context) ([]model.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Booking), args.Error(1)
}
func (m *MockRepairs) MarkPickedUp(ctx context.Context, ids []string, at time.Time) ([]string, error) {
	args := m.Called(ctx, ids, at)
	missed, _ := args.Get(0).([]string)
	return missed, args.Error(1)
}

type MockStock struct{ mock.Mock }

func (m *MockStock) GetByID(ctx context.Context, id string) (model.InventoryItem, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.InventoryItem), args.Error(1)
}
func (m *MockStock) AdjustQuantity(ctx context.Context, id string, delta int) error {
	return m.Called(ctx, id, delta).Error(0)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) PublishSaleCompleted(ctx context.Context, ev queue.SaleCompletedEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type fixture struct {
	svc     *Service
	carts   *MemoryStore
	sales   *MockSales
	repairs *MockRepairs
	stock   *MockStock
	pub     *MockPublisher
}

func newFixture() fixture {
	f := fixture{carts: NewMemoryStore(), sales: new(MockSales), repairs: new(MockRepairs), stock: new(MockStock), pub: new(MockPublisher)}
	cfg := config.POSConfig{TaxRate: dec("0.08"), RepairFallbackPrice: dec("50")}
	f.svc = NewService(f.carts, f.sales, f.repairs, f.stock, f.pub, cfg, nil, nil)
	f.svc.now = func() time.Time { return time.Date(2026, 10, 16, 15, 4, 5, 0, time.UTC) }
	return f
}

func readyRepair(id string) model.Booking {
	return model.Booking{ID: id, TrackingNumber: "SFX261016ABC123", Status: model.BookingCompleted}
}

// --- Tests ---

func TestService_AddProductPersistsCart(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.stock.On("GetByID", mock.Anything, "i1").Return(model.InventoryItem{ID: "i1", Name: "Case", Price: dec("10"), Quantity: 2}, nil)

	v, err := f.svc.AddProduct(ctx, "cashier-1", "i1", 2)
	require.NoError(t, err)
	assert.Equal(t, "20.00", v.Totals.Subtotal.StringFixed(2))

	v, err = f.svc.AddProduct(ctx, "cashier-1", "i1", 1)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 2, v.Lines[0].Quantity, "cart shown unchanged with the warning")

	other, err := f.svc.Cart(ctx, "cashier-2")
	require.NoError(t, err)
	assert.Empty(t, other.Lines, "carts are per cashier")
	assert.NotNil(t, other.Lines)
}

func TestService_AddRepairRequiresReadyBooking(t *testing.T) {
	f := newFixture()
	f.repairs.On("GetByID", mock.Anything, "b1").Return(model.Booking{ID: "b1", Status: model.BookingInProgress}, nil)
	_, err := f.svc.AddRepair(context.Background(), "cashier-1", "b1")
	assert.ErrorIs(t, err, ErrNotReadyForPickup)
}

func TestService_Checkout(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	cust := "c1"
	require.NoError(t, f.carts.Save(ctx, "cashier-1", Cart{Lines: []Line{
		{Key: "product:i1", Kind: model.LineProduct, RefID: "i1", Name: "Case", Price: dec("10"), Quantity: 2, Stock: 5},
		{Key: "repair:b1", Kind: model.LineRepair, RefID: "b1", Name: "Repair", Price: dec("5"), Quantity: 1, CustomerID: &cust},
	}, DiscountPercent: dec("10")}))

	f.sales.On("Create", mock.Anything, mock.AnythingOfType("*model.Sale")).Return(nil).Once()
	f.stock.On("AdjustQuantity", mock.Anything, "i1", -2).Return(nil).Once()
	f.repairs.On("GetByID", mock.Anything, "b1").Return(readyRepair("b1"), nil).Once()
	f.repairs.On("MarkPickedUp", mock.Anything, []string{"b1"}, mock.Anything).Return(nil, nil).Once()
	f.pub.On("PublishSaleCompleted", mock.Anything, mock.MatchedBy(func(ev queue.SaleCompletedEvent) bool {
		return ev.CustomerID == "c1" && ev.Total.Equal(dec("24.3"))
	})).Return(nil).Once()

	r, err := f.svc.Checkout(ctx, "cashier-1", "Card")
	require.NoError(t, err)

	assert.Empty(t, r.Warnings)
	assert.Regexp(t, `^RCP-20261016-[A-Z0-9]{6}$`, r.Sale.ReceiptNumber)
	assert.Equal(t, "card", r.Sale.PaymentMethod)
	assert.True(t, r.Sale.Total.Equal(dec("24.3")))
	assert.Equal(t, &cust, r.Sale.CustomerID)

	left, _ := f.svc.Cart(ctx, "cashier-1")
	assert.Empty(t, left.Lines, "cart cleared after checkout")
	mock.AssertExpectationsForObjects(t, f.sales, f.stock, f.repairs, f.pub)
}

func TestService_CheckoutPickupFailureKeepsSale(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.carts.Save(ctx, "cashier-1", Cart{Lines: []Line{
		{Key: "repair:b1", Kind: model.LineRepair, RefID: "b1", Price: dec("50"), Quantity: 1},
	}}))

	f.sales.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.repairs.On("GetByID", mock.Anything, "b1").Return(readyRepair("b1"), nil).Once()
	f.repairs.On("MarkPickedUp", mock.Anything, []string{"b1"}, mock.Anything).Return(nil, errors.New("lock wait timeout")).Once()
	f.pub.On("PublishSaleCompleted", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	r, err := f.svc.Checkout(ctx, "cashier-1", "cash")
	require.NoError(t, err)
	assert.Equal(t, []string{"repairs were not marked as picked up"}, r.Warnings)
	assert.Equal(t, "54.00", r.Sale.Total.StringFixed(2))
}

func TestService_CheckoutRetriesReceiptCollision(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.carts.Save(ctx, "cashier-1", Cart{Lines: []Line{
		{Key: "product:i1", Kind: model.LineProduct, RefID: "i1", Price: dec("1"), Quantity: 1, Stock: 1},
	}}))
	f.sales.On("Create", mock.Anything, mock.Anything).Return(repository.ErrConflict).Once()
	f.sales.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.stock.On("AdjustQuantity", mock.Anything, "i1", -1).Return(nil)
	f.pub.On("PublishSaleCompleted", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Checkout(ctx, "cashier-1", "cash")
	require.NoError(t, err)
	f.sales.AssertNumberOfCalls(t, "Create", 2)
}

func TestService_CheckoutRejects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, "cashier-1", "cash")
	assert.ErrorIs(t, err, ErrEmptyCart)

	_, err = f.svc.Checkout(ctx, "cashier-1", "bitcoin")
	assert.ErrorIs(t, err, ErrInvalidPayment)

	require.NoError(t, f.carts.Save(ctx, "cashier-1", Cart{Lines: []Line{{Key: "product:i1", Kind: model.LineProduct, Price: dec("1"), Quantity: 1}}}))
	f.sales.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	_, err = f.svc.Checkout(ctx, "cashier-1", "cash")
	assert.ErrorContains(t, err, "db down")

	v, _ := f.svc.Cart(ctx, "cashier-1")
	assert.Len(t, v.Lines, 1, "cart kept for retry when the sale was not stored")
}

func TestService_RepairSoldOnlyOnceAcrossCarts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	picked := time.Date(2026, 10, 16, 15, 4, 5, 0, time.UTC)
	sold := readyRepair("b1")
	sold.PickedUpAt = &picked

	// Both cashiers add b1 and the first checkout re-reads it as ready.
	f.repairs.On("GetByID", mock.Anything, "b1").Return(readyRepair("b1"), nil).Times(3)
	f.repairs.On("GetByID", mock.Anything, "b1").Return(sold, nil).Once()
	f.sales.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.repairs.On("MarkPickedUp", mock.Anything, []string{"b1"}, mock.Anything).Return(nil, nil).Once()
	f.pub.On("PublishSaleCompleted", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := f.svc.AddRepair(ctx, "cashier-1", "b1")
	require.NoError(t, err)
	_, err = f.svc.AddRepair(ctx, "cashier-2", "b1")
	require.NoError(t, err)

	first, err := f.svc.Checkout(ctx, "cashier-1", "cash")
	require.NoError(t, err)
	assert.Empty(t, first.Warnings)
	assert.Equal(t, "54.00", first.Sale.Total.StringFixed(2))

	_, err = f.svc.Checkout(ctx, "cashier-2", "cash")
	assert.ErrorIs(t, err, ErrNotReadyForPickup)
	f.sales.AssertNumberOfCalls(t, "Create", 1)

	left, _ := f.svc.Cart(ctx, "cashier-2")
	assert.Len(t, left.Lines, 1, "refused cart is kept for the cashier to fix")
	mock.AssertExpectationsForObjects(t, f.sales, f.repairs, f.pub)
}

func TestService_CheckoutWarnsWhenRepairAlreadyPickedUp(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	require.NoError(t, f.carts.Save(ctx, "cashier-1", Cart{Lines: []Line{
		{Key: "repair:b1", Kind: model.LineRepair, RefID: "b1", Price: dec("50"), Quantity: 1},
	}}))

	f.repairs.On("GetByID", mock.Anything, "b1").Return(readyRepair("b1"), nil).Once()
	f.sales.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.repairs.On("MarkPickedUp", mock.Anything, []string{"b1"}, mock.Anything).Return([]string{"b1"}, nil).Once()
	f.pub.On("PublishSaleCompleted", mock.Anything, mock.Anything).Return(nil).Once()

	r, err := f.svc.Checkout(ctx, "cashier-1", "cash")
	require.NoError(t, err)
	assert.Equal(t, []string{"repair b1 was already picked up"}, r.Warnings)
}
