package pos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/smartfix/internal/config"
	"github.com/iliyamo/smartfix/internal/metrics"
	"github.com/iliyamo/smartfix/internal/model"
	"github.com/iliyamo/smartfix/internal/queue"
	"github.com/iliyamo/smartfix/internal/repository"
	"github.com/iliyamo/smartfix/internal/utils"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidPayment    = errors.New("unsupported payment method")
	ErrNotReadyForPickup = errors.New("repair is not ready for pickup")
)

// PaymentMethods accepted at checkout.
var PaymentMethods = []string{"cash", "card", "mobile", "gift_card"}

// SaleWriter stores a completed sale.
type SaleWriter interface {
	Create(ctx context.Context, s *model.Sale) error
}

// RepairSource reads repair bookings and records their pickup.
type RepairSource interface {
	GetByID(ctx context.Context, id string) (model.Booking, error)
	ListReadyForPickup(ctx context.Context) ([]model.Booking, error)
	MarkPickedUp(ctx context.Context, ids []string, at time.Time) ([]string, error)
}

// StockSource reads inventory items and adjusts their quantity.
type StockSource interface {
	GetByID(ctx context.Context, id string) (model.InventoryItem, error)
	AdjustQuantity(ctx context.Context, id string, delta int) error
}

// SalePublisher announces completed sales.
type SalePublisher interface {
	PublishSaleCompleted(ctx context.Context, ev queue.SaleCompletedEvent) error
}

// Service runs cart operations for a cashier and performs checkout.
type Service struct {
	carts     CartStore
	sales     SaleWriter
	repairs   RepairSource
	stock     StockSource
	publisher SalePublisher
	cfg       config.POSConfig
	log       *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService wires the POS service.  publisher and m may be nil.
func NewService(carts CartStore, sales SaleWriter, repairs RepairSource, stock StockSource,
	publisher SalePublisher, cfg config.POSConfig, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		carts: carts, sales: sales, repairs: repairs, stock: stock, publisher: publisher,
		cfg:   cfg, log: log.Named("pos"), metrics: m, now: time.Now,
	}
}

// CartView is a cart with its computed totals.
type CartView struct {
	Lines           []Line          `json:"lines"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	Totals          Totals          `json:"totals"`
}

func (s *Service) view(c Cart) CartView {
	lines := c.Lines
	if lines == nil {
		lines = []Line{}
	}
	return CartView{Lines: lines, DiscountPercent: c.DiscountPercent, TaxRate: s.cfg.TaxRate, Totals: c.Totals(s.cfg.TaxRate)}
}

// Cart returns the cashier's current cart.
func (s *Service) Cart(ctx context.Context, cashierID string) (CartView, error) {
	c, err := s.carts.Load(ctx, cashierID)
	if err != nil {
		return CartView{}, err
	}
	return s.view(c), nil
}

// mutate loads the cart, applies fn and saves it unless fn failed.  The
// current cart is returned either way so callers can show it next to a
// warning.
func (s *Service) mutate(ctx context.Context, cashierID string, fn func(*Cart) error) (CartView, error) {
	c, err := s.carts.Load(ctx, cashierID)
	if err != nil {
		return CartView{}, err
	}
	if err := fn(&c); err != nil {
		return s.view(c), err
	}
	if err := s.carts.Save(ctx, cashierID, c); err != nil {
		return CartView{}, err
	}
	return s.view(c), nil
}

// AddProduct adds qty units of an inventory item.
func (s *Service) AddProduct(ctx context.Context, cashierID, inventoryID string, qty int) (CartView, error) {
	item, err := s.stock.GetByID(ctx, inventoryID)
	if err != nil {
		return CartView{}, err
	}
	return s.mutate(ctx, cashierID, func(c *Cart) error { return c.AddProduct(item, qty) })
}

// AddRepair adds the pickup of a completed repair.
func (s *Service) AddRepair(ctx context.Context, cashierID, bookingID string) (CartView, error) {
	b, err := s.repairs.GetByID(ctx, bookingID)
	if err != nil {
		return CartView{}, err
	}
	if !b.ReadyForPickup() {
		return CartView{}, ErrNotReadyForPickup
	}
	return s.mutate(ctx, cashierID, func(c *Cart) error { return c.AddRepair(b, s.cfg.RepairFallbackPrice) })
}

// UpdateQuantity changes a product line's quantity.
func (s *Service) UpdateQuantity(ctx context.Context, cashierID, key string, qty int) (CartView, error) {
	return s.mutate(ctx, cashierID, func(c *Cart) error { return c.UpdateQuantity(key, qty) })
}

// Remove drops a line.
func (s *Service) Remove(ctx context.Context, cashierID, key string) (CartView, error) {
	return s.mutate(ctx, cashierID, func(c *Cart) error { return c.Remove(key) })
}

// SetDiscount sets the cart discount percent.
func (s *Service) SetDiscount(ctx context.Context, cashierID string, pct decimal.Decimal) (CartView, error) {
	return s.mutate(ctx, cashierID, func(c *Cart) error { c.SetDiscount(pct); return nil })
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, cashierID string) error {
	return s.carts.Clear(ctx, cashierID)
}

// ReadyForPickup lists repairs that can be added to a cart.
func (s *Service) ReadyForPickup(ctx context.Context) ([]model.Booking, error) {
	return s.repairs.ListReadyForPickup(ctx)
}

// Receipt is the result of a checkout.  Warnings lists the follow-up steps
// that failed after the sale was stored; the sale stands regardless.
type Receipt struct {
	Sale     model.Sale `json:"sale"`
	Warnings []string   `json:"warnings"`
}

func validPayment(m string) bool {
	for _, p := range PaymentMethods {
		if p == m {
			return true
		}
	}
	return false
}

// Checkout turns the cart into one sale record.  Every repair line is
// checked again first, since another cashier may have sold it since it was
// added; a repair that is no longer ready refuses the checkout and keeps the
// cart.  Once the sale is stored,
// repair lines are marked picked up, product stock is decremented, the
// sale.completed event is published and the cart is cleared.  None of these
// steps is rolled back when a later one fails.
func (s *Service) Checkout(ctx context.Context, cashierID, paymentMethod string) (Receipt, error) {
	paymentMethod = strings.ToLower(strings.TrimSpace(paymentMethod))
	if !validPayment(paymentMethod) {
		return Receipt{}, ErrInvalidPayment
	}
	c, err := s.carts.Load(ctx, cashierID)
	if err != nil {
		return Receipt{}, err
	}
	if c.Empty() {
		return Receipt{}, ErrEmptyCart
	}
	if err := s.verifyRepairs(ctx, c); err != nil {
		return Receipt{}, err
	}

	now := s.now().UTC()
	sale := s.buildSale(c, cashierID, paymentMethod, now)
	if err := s.insertSale(ctx, &sale); err != nil {
		return Receipt{}, err
	}
	log := s.log.With(zap.String("receipt", sale.ReceiptNumber), zap.String("cashier_id", cashierID))
	warnings := []string{}

	var repairIDs []string
	for _, it := range sale.Items {
		switch it.Kind {
		case model.LineRepair:
			repairIDs = append(repairIDs, it.RefID)
		case model.LineProduct:
			if err := s.stock.AdjustQuantity(ctx, it.RefID, -it.Quantity); err != nil {
				log.Warn("stock decrement failed", zap.String("inventory_id", it.RefID), zap.Error(err))
				warnings = append(warnings, fmt.Sprintf("stock for %s was not updated", it.Name))
			}
		}
	}
	if len(repairIDs) > 0 {
		missed, err := s.repairs.MarkPickedUp(ctx, repairIDs, now)
		switch {
		case err != nil:
			log.Warn("mark picked up failed", zap.Strings("booking_ids", repairIDs), zap.Error(err))
			warnings = append(warnings, "repairs were not marked as picked up")
		case len(missed) > 0:
			log.Warn("repairs already picked up", zap.Strings("booking_ids", missed))
			for _, id := range missed {
				warnings = append(warnings, fmt.Sprintf("repair %s was already picked up", id))
			}
		}
	}

	if s.publisher != nil {
		ev := queue.SaleCompletedEvent{
			SaleID:           sale.ID, ReceiptNumber: sale.ReceiptNumber, CashierID: cashierID,
			PaymentMethod:    paymentMethod, Total: sale.Total, ItemCount: len(sale.Items),
			RepairBookingIDs: repairIDs, CompletedAt: now.Format(time.RFC3339),
		}
		if sale.CustomerID != nil {
			ev.CustomerID = *sale.CustomerID
		}
		if err := s.publisher.PublishSaleCompleted(ctx, ev); err != nil {
			log.Warn("publish sale.completed failed", zap.Error(err))
		}
	}

	if err := s.carts.Clear(ctx, cashierID); err != nil {
		log.Warn("clear cart failed", zap.Error(err))
		warnings = append(warnings, "cart was not cleared")
	}
	s.metrics.Checkout(paymentMethod, sale.Total.InexactFloat64())
	log.Info("sale completed", zap.String("total", sale.Total.StringFixed(2)), zap.Int("items", len(sale.Items)))
	return Receipt{Sale: sale, Warnings: warnings}, nil
}

// verifyRepairs reloads every repair line's booking and fails with
// ErrNotReadyForPickup when one was picked up, reopened or deleted meanwhile.
func (s *Service) verifyRepairs(ctx context.Context, c Cart) error {
	for _, l := range c.Lines {
		if l.Kind != model.LineRepair {
			continue
		}
		b, err := s.repairs.GetByID(ctx, l.RefID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err != nil || !b.ReadyForPickup() {
			return fmt.Errorf("%w: %s", ErrNotReadyForPickup, l.Name)
		}
	}
	return nil
}

func (s *Service) buildSale(c Cart, cashierID, paymentMethod string, now time.Time) model.Sale {
	t := c.Totals(s.cfg.TaxRate)
	items := make([]model.SaleItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, model.SaleItem{
			Kind:  l.Kind, RefID: l.RefID, Name: l.Name, SKU: l.SKU,
			Price: l.Price, Quantity: l.Quantity, LineTotal: l.Total().Round(2),
		})
	}
	return model.Sale{
		CashierID:       cashierID,
		CustomerID:      c.CustomerID(),
		Items:           items,
		Subtotal:        t.Subtotal,
		DiscountPercent: c.DiscountPercent,
		Discount:        t.Discount,
		Tax:             t.Tax,
		Total:           t.Total,
		PaymentMethod:   paymentMethod,
		CreatedAt:       now,
	}
}

// insertSale assigns a receipt number and stores the sale, drawing a new
// number once if the first one collides.
func (s *Service) insertSale(ctx context.Context, sale *model.Sale) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		sale.ReceiptNumber, err = utils.ReceiptNumber(sale.CreatedAt)
		if err != nil {
			return err
		}
		err = s.sales.Create(ctx, sale)
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}
	}
	return err
}
