// Package inventory runs stock adjustments and the supplier purchase order
// workflow.  Stock changes are direct increments with no version check, so
// two concurrent adjustments of the same item both apply.
package inventory

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/repository"
)

var ErrInvalidOrder = errors.New("purchase order needs a supplier and at least one item")

// transitions lists the allowed purchase order status changes.
var transitions = map[model.PurchaseOrderStatus][]model.PurchaseOrderStatus{
	model.PODraft:     {model.POSubmitted, model.POCancelled},
	model.POSubmitted: {model.POReceived, model.POCancelled},
}

// CanTransition reports whether a purchase order may move from one status to
// another.
func CanTransition(from, to model.PurchaseOrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Service struct {
	repo     *repository.InventoryRepo
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo *repository.InventoryRepo, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log.Named("inventory"), validate: validator.New(), now: time.Now}
}

func (s *Service) List(ctx context.Context, search string) ([]model.InventoryItem, error) {
	return s.repo.List(ctx, search)
}

func (s *Service) ReorderAlerts(ctx context.Context) ([]model.InventoryItem, error) {
	return s.repo.ReorderAlerts(ctx)
}

// Adjust applies a signed delta to an item and returns the updated row.
func (s *Service) Adjust(ctx context.Context, id string, delta int) (model.InventoryItem, error) {
	if err := s.repo.AdjustQuantity(ctx, id, delta); err != nil {
		return model.InventoryItem{}, err
	}
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return model.InventoryItem{}, err
	}
	s.log.Info("stock adjusted", zap.String("inventory_id", id), zap.Int("delta", delta), zap.Int("quantity", it.Quantity))
	return it, nil
}

// CreatePurchaseOrder stores po as a Draft.
func (s *Service) CreatePurchaseOrder(ctx context.Context, po *model.PurchaseOrder) error {
	po.Supplier = strings.TrimSpace(po.Supplier)
	if po.Supplier == "" || len(po.Items) == 0 {
		return ErrInvalidOrder
	}
	for _, it := range po.Items {
		if err := s.validate.Struct(it); err != nil {
			return err
		}
	}
	return s.repo.CreatePurchaseOrder(ctx, po)
}

func (s *Service) ListPurchaseOrders(ctx context.Context, status string) ([]model.PurchaseOrder, error) {
	return s.repo.ListPurchaseOrders(ctx, status)
}

func (s *Service) Submit(ctx context.Context, id string) (model.PurchaseOrder, error) {
	return s.transition(ctx, id, model.POSubmitted)
}

// Receive marks a submitted order received and adds every line's quantity to
// stock, all in one transaction.
func (s *Service) Receive(ctx context.Context, id string) (model.PurchaseOrder, error) {
	return s.transition(ctx, id, model.POReceived)
}

func (s *Service) Cancel(ctx context.Context, id string) (model.PurchaseOrder, error) {
	return s.transition(ctx, id, model.POCancelled)
}

func (s *Service) transition(ctx context.Context, id string, to model.PurchaseOrderStatus) (model.PurchaseOrder, error) {
	tx, err := s.repo.DB().BeginTx(ctx, nil)
	if err != nil {
		return model.PurchaseOrder{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	po, err := s.repo.GetPurchaseOrderTx(ctx, tx, id)
	if err != nil {
		return model.PurchaseOrder{}, err
	}
	if !CanTransition(po.Status, to) {
		return po, repository.ErrInvalidTransition
	}

	var receivedAt *time.Time
	if to == model.POReceived {
		for _, it := range po.Items {
			if err := s.repo.AdjustQuantityTx(ctx, tx, it.InventoryID, it.Quantity); err != nil {
				return model.PurchaseOrder{}, err
			}
		}
		now := s.now().UTC()
		receivedAt = &now
	}
	if err := s.repo.SetPurchaseOrderStatusTx(ctx, tx, id, to, receivedAt); err != nil {
		return model.PurchaseOrder{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.PurchaseOrder{}, err
	}
	committed = true

	s.log.Info("purchase order status changed", zap.String("po_id", id),
		zap.String("from", string(po.Status)), zap.String("to", string(to)))
	po.Status = to
	po.ReceivedAt = receivedAt
	return po, nil
}
