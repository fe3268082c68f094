package warehouses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockwatch/internal/platform/db"
	"github.com/odyssey-erp/stockwatch/internal/shared"
)

type Repository interface {
	ListByCompany(ctx context.Context, companyID int64, filters shared.ListFilters) ([]Warehouse, error)
	Get(ctx context.Context, id int64) (Warehouse, error)
	Create(ctx context.Context, warehouse Warehouse) (Warehouse, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListByCompany(ctx context.Context, companyID int64, filters shared.ListFilters) ([]Warehouse, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, name, created_at
		FROM warehouses
		WHERE company_id = $1
		ORDER BY id
		LIMIT $2 OFFSET $3`, companyID, filters.Limit, filters.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	warehouses := make([]Warehouse, 0)
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.CompanyID, &w.Name, &w.CreatedAt); err != nil {
			return nil, err
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Warehouse, error) {
	var w Warehouse
	err := r.pool.QueryRow(ctx, `SELECT id, company_id, name, created_at FROM warehouses WHERE id = $1`, id).
		Scan(&w.ID, &w.CompanyID, &w.Name, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Warehouse{}, fmt.Errorf("warehouse %d: %w", id, shared.ErrNotFound)
	}
	return w, err
}

func (r *repository) Create(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO warehouses (company_id, name) VALUES ($1, $2) RETURNING id, created_at`,
		warehouse.CompanyID, warehouse.Name,
	).Scan(&warehouse.ID, &warehouse.CreatedAt)
	if db.IsForeignKeyViolation(err) {
		return Warehouse{}, fmt.Errorf("%w: company %d does not exist", shared.ErrValidation, warehouse.CompanyID)
	}
	if err != nil {
		return Warehouse{}, err
	}
	return warehouse, nil
}
