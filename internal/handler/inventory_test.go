package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/smartfix/internal/inventory"
	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/repository"
)

type MockInventory struct{ mock.Mock }

func (m *MockInventory) items(args mock.Arguments) ([]model.InventoryItem, error) {
	items, _ := args.Get(0).([]model.InventoryItem)
	return items, args.Error(1)
}
func (m *MockInventory) order(args mock.Arguments) (model.PurchaseOrder, error) {
	return args.Get(0).(model.PurchaseOrder), args.Error(1)
}
func (m *MockInventory) List(ctx context.Context, search string) ([]model.InventoryItem, error) {
	return m.items(m.Called(ctx, search))
}
func (m *MockInventory) ReorderAlerts(ctx context.Context) ([]model.InventoryItem, error) {
	return m.items(m.Called(ctx))
}
func (m *MockInventory) Adjust(ctx context.Context, id string, delta int) (model.InventoryItem, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(model.InventoryItem), args.Error(1)
}
func (m *MockInventory) CreatePurchaseOrder(ctx context.Context, po *model.PurchaseOrder) error {
	return m.Called(ctx, po).Error(0)
}
func (m *MockInventory) ListPurchaseOrders(ctx context.Context, status string) ([]model.PurchaseOrder, error) {
	args := m.Called(ctx, status)
	orders, _ := args.Get(0).([]model.PurchaseOrder)
	return orders, args.Error(1)
}
func (m *MockInventory) Submit(ctx context.Context, id string) (model.PurchaseOrder, error) {
	return m.order(m.Called(ctx, id))
}
func (m *MockInventory) Receive(ctx context.Context, id string) (model.PurchaseOrder, error) {
	return m.order(m.Called(ctx, id))
}
func (m *MockInventory) Cancel(ctx context.Context, id string) (model.PurchaseOrder, error) {
	return m.order(m.Called(ctx, id))
}

func TestInventory_Adjust(t *testing.T) {
	inv := &invalidations{}
	svc := new(MockInventory)
	svc.On("Adjust", mock.MatchedBy(hasDeadline), "i1", -3).Return(model.InventoryItem{ID: "i1", Quantity: 7}, nil).Once()
	svc.On("Adjust", mock.Anything, "gone", 2).Return(model.InventoryItem{}, repository.ErrNotFound).Once()
	h := NewInventoryHandler(svc, inv.fn(), nil)

	rec := do(h.Adjust, http.MethodPost, "/", `{"delta":-3}`, map[string]string{"id": "i1"}, "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(7), decode(t, rec)["quantity"])
	assert.Equal(t, 1, inv.n)

	rec = do(h.Adjust, http.MethodPost, "/", `{"delta":0}`, map[string]string{"id": "i1"}, "u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h.Adjust, http.MethodPost, "/", `{"delta":2}`, map[string]string{"id": "gone"}, "u1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, inv.n, "failed adjust keeps the cache")
	svc.AssertExpectations(t)
}

func TestInventory_CreatePurchaseOrder(t *testing.T) {
	svc := new(MockInventory)
	svc.On("CreatePurchaseOrder", mock.Anything, mock.MatchedBy(func(po *model.PurchaseOrder) bool {
		return po.Supplier == "Parts Co" && po.CreatedBy == "u1" && po.Status == "" && len(po.Items) == 1
	})).Run(func(args mock.Arguments) {
		po := args.Get(1).(*model.PurchaseOrder)
		po.ID, po.Status = "po1", model.PODraft
	}).Return(nil).Once()
	svc.On("CreatePurchaseOrder", mock.Anything, mock.MatchedBy(func(po *model.PurchaseOrder) bool {
		return po.Supplier == ""
	})).Return(inventory.ErrInvalidOrder).Once()
	h := NewInventoryHandler(svc, nil, nil)

	rec := do(h.CreatePurchaseOrder, http.MethodPost, "/",
		`{"id":"forged","status":"Received","supplier":"Parts Co","items":[{"inventory_id":"i1","quantity":3,"unit_cost":"2.50"}]}`, nil, "u1")
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "po1", body["id"])
	assert.Equal(t, "Draft", body["status"])

	rec = do(h.CreatePurchaseOrder, http.MethodPost, "/", `{"items":[]}`, nil, "u1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, inventory.ErrInvalidOrder.Error(), decode(t, rec)["error"])
	svc.AssertExpectations(t)
}

func TestInventory_TransitionPurchaseOrder(t *testing.T) {
	inv := &invalidations{}
	svc := new(MockInventory)
	svc.On("Receive", mock.Anything, "po1").Return(model.PurchaseOrder{ID: "po1", Status: model.POReceived}, nil).Once()
	svc.On("Submit", mock.Anything, "po1").Return(model.PurchaseOrder{ID: "po1", Status: model.POSubmitted}, nil).Once()
	svc.On("Cancel", mock.Anything, "po2").Return(model.PurchaseOrder{ID: "po2", Status: model.POReceived}, repository.ErrInvalidTransition).Once()
	svc.On("Submit", mock.Anything, "po3").Return(model.PurchaseOrder{}, errors.New("db down")).Once()
	h := NewInventoryHandler(svc, inv.fn(), nil)
	call := func(id, action string) int {
		return do(h.TransitionPurchaseOrder, http.MethodPost, "/", "", map[string]string{"id": id, "action": action}, "u1").Code
	}

	assert.Equal(t, http.StatusOK, call("po1", "receive"))
	assert.Equal(t, 1, inv.n, "receiving changes stock")
	assert.Equal(t, http.StatusOK, call("po1", "Submit"))
	assert.Equal(t, 1, inv.n)

	assert.Equal(t, http.StatusConflict, call("po2", "cancel"))
	assert.Equal(t, http.StatusNotFound, call("po1", "approve"))
	assert.Equal(t, http.StatusInternalServerError, call("po3", "submit"))
	svc.AssertExpectations(t)
}

func TestInventory_ListsNeverNull(t *testing.T) {
	svc := new(MockInventory)
	svc.On("List", mock.Anything, "screen").Return(nil, nil).Once()
	svc.On("ReorderAlerts", mock.Anything).Return([]model.InventoryItem{{ID: "i1", Quantity: 1, MinStock: 5}}, nil).Once()
	svc.On("ListPurchaseOrders", mock.Anything, "Draft").Return(nil, errors.New("db down")).Once()
	h := NewInventoryHandler(svc, nil, nil)

	rec := do(h.List, http.MethodGet, "/?q=screen", "", nil, "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, decode(t, rec)["items"])

	rec = do(h.ReorderAlerts, http.MethodGet, "/", "", nil, "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = do(h.ListPurchaseOrders, http.MethodGet, "/?status=Draft", "", nil, "u1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	svc.AssertExpectations(t)
}
