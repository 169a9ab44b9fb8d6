package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/smartfix/internal/inventory"
	"github.com/iliyamo/smartfix/internal/logger"
	"github.com/iliyamo/smartfix/internal/middleware"
	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/repository"
)

// InventoryService is the stock and purchase order API.
type InventoryService interface {
	List(ctx context.Context, search string) ([]model.InventoryItem, error)
	ReorderAlerts(ctx context.Context) ([]model.InventoryItem, error)
	Adjust(ctx context.Context, id string, delta int) (model.InventoryItem, error)
	CreatePurchaseOrder(ctx context.Context, po *model.PurchaseOrder) error
	ListPurchaseOrders(ctx context.Context, status string) ([]model.PurchaseOrder, error)
	Submit(ctx context.Context, id string) (model.PurchaseOrder, error)
	Receive(ctx context.Context, id string) (model.PurchaseOrder, error)
	Cancel(ctx context.Context, id string) (model.PurchaseOrder, error)
}

type InventoryHandler struct {
	Inventory  InventoryService
	Invalidate CacheInvalidator
	Log        *zap.Logger
}

func NewInventoryHandler(svc InventoryService, inv CacheInvalidator, log *zap.Logger) *InventoryHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &InventoryHandler{Inventory: svc, Invalidate: inv, Log: log}
}

func (h *InventoryHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	items, err := h.Inventory.List(ctx, c.QueryParam("q"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *InventoryHandler) ReorderAlerts(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	items, err := h.Inventory.ReorderAlerts(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// Adjust applies {"delta": n} to an item's quantity.
func (h *InventoryHandler) Adjust(c echo.Context) error {
	var req struct {
		Delta int `json:"delta"`
	}
	if err := c.Bind(&req); err != nil || req.Delta == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "non-zero delta required"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	it, err := h.Inventory.Adjust(ctx, c.Param("id"), req.Delta)
	if err != nil {
		return h.failure(c, err)
	}
	h.invalidate(c)
	return c.JSON(http.StatusOK, it)
}

func (h *InventoryHandler) CreatePurchaseOrder(c echo.Context) error {
	var po model.PurchaseOrder
	if err := c.Bind(&po); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	po.ID, po.Status, po.ReceivedAt = "", "", nil
	po.CreatedBy = middleware.UserID(c)
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Inventory.CreatePurchaseOrder(ctx, &po); err != nil {
		return h.failure(c, err)
	}
	return c.JSON(http.StatusCreated, po)
}

func (h *InventoryHandler) ListPurchaseOrders(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	items, err := h.Inventory.ListPurchaseOrders(ctx, c.QueryParam("status"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if items == nil {
		items = []model.PurchaseOrder{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// TransitionPurchaseOrder handles POST /purchase-orders/:id/:action with
// action one of submit, receive or cancel.
func (h *InventoryHandler) TransitionPurchaseOrder(c echo.Context) error {
	var fn func(context.Context, string) (model.PurchaseOrder, error)
	switch strings.ToLower(c.Param("action")) {
	case "submit":
		fn = h.Inventory.Submit
	case "receive":
		fn = h.Inventory.Receive
	case "cancel":
		fn = h.Inventory.Cancel
	default:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown action"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	po, err := fn(ctx, c.Param("id"))
	if err != nil {
		return h.failure(c, err)
	}
	if po.Status == model.POReceived {
		h.invalidate(c)
	}
	return c.JSON(http.StatusOK, po)
}

func (h *InventoryHandler) invalidate(c echo.Context) {
	if err := h.Invalidate.run(c.Request().Context()); err != nil {
		logger.FromContext(c, h.Log).Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

func (h *InventoryHandler) failure(c echo.Context, err error) error {
	var verr validator.ValidationErrors
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "status change not allowed"})
	case errors.Is(err, inventory.ErrInvalidOrder):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	logger.FromContext(c, h.Log).Error("inventory", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
