package companies

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockwatch/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Company, error)
	Get(ctx context.Context, id int64) (Company, error)
	Create(ctx context.Context, company Company) (Company, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Company, error) {
	query := `SELECT id, name, created_at FROM companies`
	args := []any{}
	if filters.Search != "" {
		query += ` WHERE name ILIKE $1`
		args = append(args, "%"+filters.Search+"%")
	}
	query += fmt.Sprintf(` ORDER BY id LIMIT %d OFFSET %d`, filters.Limit, filters.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := make([]Company, 0)
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Company, error) {
	var c Company
	err := r.pool.QueryRow(ctx, `SELECT id, name, created_at FROM companies WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, fmt.Errorf("company %d: %w", id, shared.ErrNotFound)
	}
	return c, err
}

func (r *repository) Create(ctx context.Context, company Company) (Company, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO companies (name) VALUES ($1) RETURNING id, created_at`, company.Name).
		Scan(&company.ID, &company.CreatedAt)
	if err != nil {
		return Company{}, err
	}
	return company, nil
}
