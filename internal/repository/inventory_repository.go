package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/smartfix/internal/model"
)

// InventoryRepo manages stock items and supplier purchase orders.
type InventoryRepo struct {
	db *sql.DB
}

func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// DB exposes the underlying handle for callers that need a transaction.
func (r *InventoryRepo) DB() *sql.DB { return r.db }

const inventorySelect = `SELECT id, sku, name, category, quantity, min_stock, cost, price, supplier, updated_at
  FROM inventory_items`

func scanInventoryItem(row rowScanner) (model.InventoryItem, error) {
	var it model.InventoryItem
	err := row.Scan(&it.ID, &it.SKU, &it.Name, &it.Category, &it.Quantity, &it.MinStock,
		&it.Cost, &it.Price, &it.Supplier, &it.UpdatedAt)
	return it, err
}

func (r *InventoryRepo) queryItems(ctx context.Context, q string, args ...any) ([]model.InventoryItem, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.InventoryItem{}
	for rows.Next() {
		it, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// List returns every item, optionally narrowed by a case-insensitive match
// on name or SKU.
func (r *InventoryRepo) List(ctx context.Context, search string) ([]model.InventoryItem, error) {
	search = strings.TrimSpace(search)
	if search == "" {
		return r.queryItems(ctx, inventorySelect+` ORDER BY name`)
	}
	like := "%" + strings.ToLower(search) + "%"
	return r.queryItems(ctx, inventorySelect+` WHERE LOWER(name) LIKE ? OR LOWER(sku) LIKE ? ORDER BY name`, like, like)
}

// GetByID returns one item or ErrNotFound.
func (r *InventoryRepo) GetByID(ctx context.Context, id string) (model.InventoryItem, error) {
	it, err := scanInventoryItem(r.db.QueryRowContext(ctx, inventorySelect+` WHERE id = ?`, id))
	return it, notFound(err)
}

// ReorderAlerts lists items whose quantity is at or below min_stock.
func (r *InventoryRepo) ReorderAlerts(ctx context.Context) ([]model.InventoryItem, error) {
	return r.queryItems(ctx, inventorySelect+` WHERE quantity <= min_stock ORDER BY quantity - min_stock, name`)
}

// CountReorderAlerts returns how many items need reordering.
func (r *InventoryRepo) CountReorderAlerts(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory_items WHERE quantity <= min_stock`).Scan(&n)
	return n, err
}

// AdjustQuantity adds delta (negative to remove) to the stored quantity.
// The result never drops below zero.  There is no version check: two
// concurrent adjustments both apply.
func (r *InventoryRepo) AdjustQuantity(ctx context.Context, id string, delta int) error {
	return affectedOrNotFound(r.db.ExecContext(ctx,
		`UPDATE inventory_items SET quantity = GREATEST(quantity + ?, 0) WHERE id = ?`, delta, id))
}

// AdjustQuantityTx is AdjustQuantity inside the caller's transaction.
func (r *InventoryRepo) AdjustQuantityTx(ctx context.Context, tx *sql.Tx, id string, delta int) error {
	return affectedOrNotFound(tx.ExecContext(ctx,
		`UPDATE inventory_items SET quantity = GREATEST(quantity + ?, 0) WHERE id = ?`, delta, id))
}

// ---- Purchase orders ----

const purchaseOrderSelect = `SELECT id, supplier, items, status, COALESCE(notes, ''), created_by,
       created_at, updated_at, received_at
  FROM purchase_orders`

func scanPurchaseOrder(row rowScanner) (model.PurchaseOrder, error) {
	var (
		po       model.PurchaseOrder
		items    []byte
		received sql.NullTime
	)
	if err := row.Scan(&po.ID, &po.Supplier, &items, &po.Status, &po.Notes, &po.CreatedBy,
		&po.CreatedAt, &po.UpdatedAt, &received); err != nil {
		return model.PurchaseOrder{}, err
	}
	if err := json.Unmarshal(items, &po.Items); err != nil {
		return model.PurchaseOrder{}, fmt.Errorf("decode purchase order items: %w", err)
	}
	if received.Valid {
		po.ReceivedAt = &received.Time
	}
	return po, nil
}

// CreatePurchaseOrder inserts po as a Draft.
func (r *InventoryRepo) CreatePurchaseOrder(ctx context.Context, po *model.PurchaseOrder) error {
	if po.ID == "" {
		po.ID = uuid.NewString()
	}
	po.Status = model.PODraft
	items, err := json.Marshal(po.Items)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO purchase_orders (id, supplier, items, status, notes, created_by) VALUES (?, ?, ?, ?, ?, ?)`,
		po.ID, po.Supplier, items, string(po.Status), po.Notes, po.CreatedBy)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	po.CreatedAt, po.UpdatedAt = now, now
	return nil
}

// ListPurchaseOrders returns orders newest first, optionally by status.
func (r *InventoryRepo) ListPurchaseOrders(ctx context.Context, status string) ([]model.PurchaseOrder, error) {
	q := purchaseOrderSelect
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	rows, err := r.db.QueryContext(ctx, q+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PurchaseOrder{}
	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, rows.Err()
}

// GetPurchaseOrderTx loads and row-locks one order inside tx.
func (r *InventoryRepo) GetPurchaseOrderTx(ctx context.Context, tx *sql.Tx, id string) (model.PurchaseOrder, error) {
	po, err := scanPurchaseOrder(tx.QueryRowContext(ctx, purchaseOrderSelect+` WHERE id = ? FOR UPDATE`, id))
	return po, notFound(err)
}

// SetPurchaseOrderStatusTx writes a new status.  receivedAt is stored only
// when non-nil.
func (r *InventoryRepo) SetPurchaseOrderStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.PurchaseOrderStatus, receivedAt *time.Time) error {
	if receivedAt != nil {
		return affectedOrNotFound(tx.ExecContext(ctx,
			`UPDATE purchase_orders SET status = ?, received_at = ? WHERE id = ?`, string(status), receivedAt.UTC(), id))
	}
	return affectedOrNotFound(tx.ExecContext(ctx,
		`UPDATE purchase_orders SET status = ? WHERE id = ?`, string(status), id))
}
