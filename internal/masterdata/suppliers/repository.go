package suppliers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockwatch/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Supplier, error)
	Get(ctx context.Context, id int64) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, contact_email, created_at
		FROM suppliers
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY name, id
		LIMIT $2 OFFSET $3`, filters.Search, filters.Limit, filters.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]Supplier, 0)
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.ContactEmail, &s.CreatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.pool.QueryRow(ctx, `SELECT id, name, contact_email, created_at FROM suppliers WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.ContactEmail, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, fmt.Errorf("supplier %d: %w", id, shared.ErrNotFound)
	}
	return s, err
}

func (r *repository) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO suppliers (name, contact_email) VALUES ($1, $2) RETURNING id, created_at`,
		supplier.Name, supplier.ContactEmail,
	).Scan(&supplier.ID, &supplier.CreatedAt)
	if err != nil {
		return Supplier{}, err
	}
	return supplier, nil
}
