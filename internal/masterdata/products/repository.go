package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockwatch/internal/platform/db"
	"github.com/odyssey-erp/stockwatch/internal/shared"
)

// ReasonInitial tags the ledger row written for stock seeded at creation.
const ReasonInitial = "initial"

// Repository persists products in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the writes a product creation performs atomically.
type TxRepository interface {
	SKUExists(ctx context.Context, sku string) (bool, error)
	SupplierExists(ctx context.Context, supplierID int64) (bool, error)
	InsertProduct(ctx context.Context, product NewProduct) (int64, error)
	WarehouseCompany(ctx context.Context, warehouseID int64) (int64, error)
	InsertInitialStock(ctx context.Context, productID int64, stock InitialStock) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const productColumns = `id, name, sku, price::text, threshold, supplier_id, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p     Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.SKU, &price, &p.Threshold, &p.SupplierID, &p.CreatedAt); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("products: parse price %q: %w", price, err)
	}
	p.Price = d
	return p, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("product %d: %w", id, shared.ErrNotFound)
	}
	return p, err
}

func (r *Repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR sku ILIKE '%' || $1 || '%'
		ORDER BY id
		LIMIT $2 OFFSET $3`, filters.Search, filters.Limit, filters.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (t *txRepo) SKUExists(ctx context.Context, sku string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)`, sku).Scan(&exists)
	return exists, err
}

func (t *txRepo) SupplierExists(ctx context.Context, supplierID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1)`, supplierID).Scan(&exists)
	return exists, err
}

func (t *txRepo) InsertProduct(ctx context.Context, product NewProduct) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO products (name, sku, price, threshold, supplier_id)
		VALUES ($1, $2, $3::numeric, $4, $5)
		RETURNING id`,
		product.Name, product.SKU, product.Price.StringFixed(2), product.Threshold, product.SupplierID,
	).Scan(&id)
	switch {
	case db.IsUniqueViolation(err):
		return 0, ErrDuplicateSKU
	case db.IsForeignKeyViolation(err):
		return 0, fmt.Errorf("%w: supplier does not exist", shared.ErrValidation)
	case err != nil:
		return 0, err
	}
	return id, nil
}

func (t *txRepo) WarehouseCompany(ctx context.Context, warehouseID int64) (int64, error) {
	var companyID int64
	err := t.tx.QueryRow(ctx, `SELECT company_id FROM warehouses WHERE id = $1`, warehouseID).Scan(&companyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: warehouse %d does not exist", shared.ErrValidation, warehouseID)
	}
	return companyID, err
}

func (t *txRepo) InsertInitialStock(ctx context.Context, productID int64, stock InitialStock) error {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO inventory (product_id, warehouse_id, quantity)
		VALUES ($1, $2, $3)`, productID, stock.WarehouseID, stock.Quantity); err != nil {
		return err
	}
	if stock.Quantity == 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO inventory_transactions (product_id, warehouse_id, change_qty, reason)
		VALUES ($1, $2, $3, $4)`, productID, stock.WarehouseID, stock.Quantity, ReasonInitial)
	return err
}
