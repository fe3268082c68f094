package alerts

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockwatch/internal/platform/db"
)

// Snapshot reads every input of one computation from a single consistent view.
type Snapshot interface {
	CompanyExists(ctx context.Context, companyID int64) (bool, error)
	ConsumptionTotals(ctx context.Context, companyID int64, since time.Time) ([]ConsumptionTotal, error)
	StockLevels(ctx context.Context, companyID int64) ([]StockLevel, error)
	Catalog(ctx context.Context, companyID int64, productIDs []int64) (Catalog, error)
}

// Repository reads alert inputs from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithSnapshot runs fn inside a read-only repeatable-read transaction.
func (r *Repository) WithSnapshot(ctx context.Context, fn func(context.Context, Snapshot) error) error {
	return db.WithReadOnlyTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &snapshot{tx: tx})
	})
}

type snapshot struct {
	tx pgx.Tx
}

func (s *snapshot) CompanyExists(ctx context.Context, companyID int64) (bool, error) {
	var exists bool
	err := s.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1)`, companyID).Scan(&exists)
	return exists, err
}

// ConsumptionTotals groups outflow per pair in one pass over the window.
func (s *snapshot) ConsumptionTotals(ctx context.Context, companyID int64, since time.Time) ([]ConsumptionTotal, error) {
	rows, err := s.tx.Query(ctx, `
		SELECT t.product_id, t.warehouse_id, SUM(-t.change_qty)::BIGINT AS total_consumed
		FROM inventory_transactions t
		JOIN warehouses w ON w.id = t.warehouse_id
		WHERE w.company_id = $1
		  AND t.created_at >= $2
		  AND t.change_qty < 0
		GROUP BY t.product_id, t.warehouse_id`, companyID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []ConsumptionTotal
	for rows.Next() {
		var t ConsumptionTotal
		if err := rows.Scan(&t.Key.ProductID, &t.Key.WarehouseID, &t.TotalConsumed); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (s *snapshot) StockLevels(ctx context.Context, companyID int64) ([]StockLevel, error) {
	rows, err := s.tx.Query(ctx, `
		SELECT i.product_id, i.warehouse_id, i.quantity, p.threshold
		FROM inventory i
		JOIN warehouses w ON w.id = i.warehouse_id
		JOIN products p ON p.id = i.product_id
		WHERE w.company_id = $1
		  AND i.quantity < p.threshold`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var l StockLevel
		if err := rows.Scan(&l.Key.ProductID, &l.Key.WarehouseID, &l.CurrentStock, &l.Threshold); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

func (s *snapshot) Catalog(ctx context.Context, companyID int64, productIDs []int64) (Catalog, error) {
	catalog := Catalog{
		Products:   make(map[int64]ProductInfo, len(productIDs)),
		Warehouses: make(map[int64]string),
	}

	rows, err := s.tx.Query(ctx, `SELECT id, name FROM warehouses WHERE company_id = $1`, companyID)
	if err != nil {
		return Catalog{}, err
	}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			rows.Close()
			return Catalog{}, err
		}
		catalog.Warehouses[id] = name
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Catalog{}, err
	}

	if len(productIDs) == 0 {
		return catalog, nil
	}
	rows, err = s.tx.Query(ctx, `
		SELECT p.id, p.name, p.sku, s.id, s.name, s.contact_email
		FROM products p
		LEFT JOIN suppliers s ON s.id = p.supplier_id
		WHERE p.id = ANY($1)`, productIDs)
	if err != nil {
		return Catalog{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id                       int64
			info                     ProductInfo
			supplierID               *int64
			supplierName, supplierTo *string
		)
		if err := rows.Scan(&id, &info.Name, &info.SKU, &supplierID, &supplierName, &supplierTo); err != nil {
			return Catalog{}, err
		}
		if supplierID != nil {
			info.Supplier = &SupplierContact{ID: *supplierID, Name: deref(supplierName), ContactEmail: deref(supplierTo)}
		}
		catalog.Products[id] = info
	}
	return catalog, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
