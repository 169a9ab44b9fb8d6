package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/smartfix/internal/logger"
	"github.com/iliyamo/smartfix/internal/middleware"
	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/pos"
	"github.com/iliyamo/smartfix/internal/repository"
)

// POSService is the cashier cart and checkout API.
type POSService interface {
	Cart(ctx context.Context, cashierID string) (pos.CartView, error)
	AddProduct(ctx context.Context, cashierID, inventoryID string, qty int) (pos.CartView, error)
	AddRepair(ctx context.Context, cashierID, bookingID string) (pos.CartView, error)
	UpdateQuantity(ctx context.Context, cashierID, key string, qty int) (pos.CartView, error)
	Remove(ctx context.Context, cashierID, key string) (pos.CartView, error)
	SetDiscount(ctx context.Context, cashierID string, pct decimal.Decimal) (pos.CartView, error)
	Clear(ctx context.Context, cashierID string) error
	ReadyForPickup(ctx context.Context) ([]model.Booking, error)
	Checkout(ctx context.Context, cashierID, paymentMethod string) (pos.Receipt, error)
}

type POSHandler struct {
	POS        POSService
	Invalidate CacheInvalidator
	Log        *zap.Logger
}

func NewPOSHandler(svc POSService, inv CacheInvalidator, log *zap.Logger) *POSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &POSHandler{POS: svc, Invalidate: inv, Log: log}
}

type addItemReq struct {
	InventoryID string `json:"inventory_id"`
	BookingID   string `json:"booking_id"`
	Quantity    int    `json:"quantity"`
}

type quantityReq struct {
	Quantity int `json:"quantity"`
}

type discountReq struct {
	Percent decimal.Decimal `json:"percent"`
}

type checkoutReq struct {
	PaymentMethod string `json:"payment_method"`
}

// cartResult renders the outcome of a cart mutation.  Exceeding stock and
// changing a repair line's quantity leave the cart untouched and come back
// as a 200 with a warning next to the unchanged cart.
func (h *POSHandler) cartResult(c echo.Context, cart pos.CartView, err error) error {
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"cart": cart})
	case errors.Is(err, pos.ErrInsufficientStock), errors.Is(err, pos.ErrRepairQuantityFixed):
		return c.JSON(http.StatusOK, echo.Map{"cart": cart, "warning": err.Error()})
	case errors.Is(err, pos.ErrDuplicateRepair), errors.Is(err, pos.ErrNotReadyForPickup):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, pos.ErrInvalidQuantity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, pos.ErrLineNotFound), errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	logger.FromContext(c, h.Log).Error("pos cart", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cart unavailable"})
}

func (h *POSHandler) GetCart(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	cart, err := h.POS.Cart(ctx, middleware.UserID(c))
	return h.cartResult(c, cart, err)
}

// AddItem adds a product (inventory_id, quantity defaulting to 1) or a
// repair pickup (booking_id).
func (h *POSHandler) AddItem(c echo.Context) error {
	var req addItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	cashier := middleware.UserID(c)
	switch {
	case req.InventoryID != "" && req.BookingID != "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "send inventory_id or booking_id, not both"})
	case req.InventoryID != "":
		if req.Quantity == 0 {
			req.Quantity = 1
		}
		cart, err := h.POS.AddProduct(ctx, cashier, req.InventoryID, req.Quantity)
		return h.cartResult(c, cart, err)
	case req.BookingID != "":
		cart, err := h.POS.AddRepair(ctx, cashier, req.BookingID)
		return h.cartResult(c, cart, err)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "inventory_id or booking_id required"})
}

func (h *POSHandler) UpdateQuantity(c echo.Context) error {
	var req quantityReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	cart, err := h.POS.UpdateQuantity(ctx, middleware.UserID(c), c.Param("key"), req.Quantity)
	return h.cartResult(c, cart, err)
}

func (h *POSHandler) RemoveItem(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	cart, err := h.POS.Remove(ctx, middleware.UserID(c), c.Param("key"))
	return h.cartResult(c, cart, err)
}

// SetDiscount clamps the percent to [0, 100].
func (h *POSHandler) SetDiscount(c echo.Context) error {
	var req discountReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	cart, err := h.POS.SetDiscount(ctx, middleware.UserID(c), req.Percent)
	return h.cartResult(c, cart, err)
}

func (h *POSHandler) ClearCart(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.POS.Clear(ctx, middleware.UserID(c)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cart unavailable"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ReadyForPickup lists completed repairs waiting at the counter.
func (h *POSHandler) ReadyForPickup(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	items, err := h.POS.ReadyForPickup(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if items == nil {
		items = []model.Booking{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Checkout completes the sale.  Follow-up failures after the sale is stored
// come back as warnings on a 201.
func (h *POSHandler) Checkout(c echo.Context) error {
	var req checkoutReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	rcpt, err := h.POS.Checkout(ctx, middleware.UserID(c), req.PaymentMethod)
	switch {
	case errors.Is(err, pos.ErrEmptyCart), errors.Is(err, pos.ErrInvalidPayment):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "payment_methods": pos.PaymentMethods})
	case errors.Is(err, pos.ErrNotReadyForPickup):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case err != nil:
		logger.FromContext(c, h.Log).Error("checkout", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "checkout failed, the cart was kept"})
	}
	if err := h.Invalidate.run(ctx); err != nil {
		logger.FromContext(c, h.Log).Warn("dashboard cache invalidation failed", zap.Error(err))
	}
	return c.JSON(http.StatusCreated, rcpt)
}
