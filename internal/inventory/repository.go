package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockwatch/internal/platform/db"
	"github.com/odyssey-erp/stockwatch/internal/shared"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	WarehouseCompany(ctx context.Context, warehouseID int64) (int64, error)
	ProductExists(ctx context.Context, productID int64) (bool, error)
	ReferenceExists(ctx context.Context, ref uuid.UUID, warehouseID, productID int64) (bool, error)
	GetLevelForUpdate(ctx context.Context, warehouseID, productID int64) (Level, error)
	UpsertLevel(ctx context.Context, level Level) error
	InsertTransaction(ctx context.Context, tx Transaction) (int64, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ListLevels returns every inventory row of a warehouse ordered by product.
func (r *Repository) ListLevels(ctx context.Context, warehouseID int64, filters shared.ListFilters) ([]Level, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, warehouse_id, quantity, updated_at
		FROM inventory
		WHERE warehouse_id = $1
		ORDER BY product_id
		LIMIT $2 OFFSET $3`, warehouseID, filters.Limit, filters.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	levels := make([]Level, 0)
	for rows.Next() {
		var l Level
		if err := rows.Scan(&l.ProductID, &l.WarehouseID, &l.Quantity, &l.UpdatedAt); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// StockCard lists ledger rows newest first.
func (r *Repository) StockCard(ctx context.Context, filter StockCardFilter) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, warehouse_id, change_qty, reason, reference, created_at
		FROM inventory_transactions
		WHERE warehouse_id = $1 AND product_id = $2 AND created_at >= $3
		ORDER BY created_at DESC, id DESC
		LIMIT $4`, filter.WarehouseID, filter.ProductID, filter.Since, filter.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.ProductID, &t.WarehouseID, &t.ChangeQty, &t.Reason, &t.Reference, &t.CreatedAt); err != nil {
			return nil, err
		}
		cards = append(cards, t)
	}
	return cards, rows.Err()
}

func (t *txRepo) WarehouseCompany(ctx context.Context, warehouseID int64) (int64, error) {
	var companyID int64
	err := t.tx.QueryRow(ctx, `SELECT company_id FROM warehouses WHERE id = $1`, warehouseID).Scan(&companyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("warehouse %d: %w", warehouseID, shared.ErrNotFound)
	}
	return companyID, err
}

func (t *txRepo) ProductExists(ctx context.Context, productID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	return exists, err
}

func (t *txRepo) ReferenceExists(ctx context.Context, ref uuid.UUID, warehouseID, productID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM inventory_transactions
			WHERE reference = $1 AND warehouse_id = $2 AND product_id = $3
		)`, ref, warehouseID, productID).Scan(&exists)
	return exists, err
}

func (t *txRepo) GetLevelForUpdate(ctx context.Context, warehouseID, productID int64) (Level, error) {
	l := Level{WarehouseID: warehouseID, ProductID: productID}
	err := t.tx.QueryRow(ctx, `
		SELECT quantity, updated_at FROM inventory
		WHERE warehouse_id = $1 AND product_id = $2
		FOR UPDATE`, warehouseID, productID).Scan(&l.Quantity, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return l, ErrLevelNotFound
	}
	return l, err
}

func (t *txRepo) UpsertLevel(ctx context.Context, level Level) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO inventory (product_id, warehouse_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`,
		level.ProductID, level.WarehouseID, level.Quantity, level.UpdatedAt)
	return err
}

func (t *txRepo) InsertTransaction(ctx context.Context, tx Transaction) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO inventory_transactions (product_id, warehouse_id, change_qty, reason, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		tx.ProductID, tx.WarehouseID, tx.ChangeQty, tx.Reason, tx.Reference, tx.CreatedAt,
	).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrDuplicateReference
	}
	return id, err
}
