package products

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/odyssey-erp/stockwatch/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context, filters shared.ListFilters) ([]Product, error)
}

// Invalidator drops cached derived data for a company after its stock changes.
type Invalidator interface {
	InvalidateCompany(ctx context.Context, companyID int64) error
}

type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
	logger      *slog.Logger
}

// NewService builds Service. invalidator may be nil.
func NewService(repo RepositoryPort, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, invalidator: invalidator, logger: logger}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, error) {
	if filters.Limit <= 0 {
		filters.Limit = shared.DefaultLimit
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, fmt.Errorf("%w: invalid product ID", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

// Create inserts the product and its optional initial stock as one unit.
// Nothing is persisted when any step fails.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (CreateResult, error) {
	product, err := Normalize(req)
	if err != nil {
		return CreateResult{}, err
	}

	var result CreateResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.SKUExists(ctx, product.SKU)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateSKU
		}
		if product.SupplierID != nil {
			ok, err := tx.SupplierExists(ctx, *product.SupplierID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: supplier %d does not exist", shared.ErrValidation, *product.SupplierID)
			}
		}

		id, err := tx.InsertProduct(ctx, product)
		if err != nil {
			return err
		}
		result.ProductID = id

		if product.InitialStock == nil {
			return nil
		}
		companyID, err := tx.WarehouseCompany(ctx, product.InitialStock.WarehouseID)
		if err != nil {
			return err
		}
		result.CompanyID = companyID
		return tx.InsertInitialStock(ctx, id, *product.InitialStock)
	})
	if err != nil {
		return CreateResult{}, err
	}

	if result.CompanyID != 0 && s.invalidator != nil {
		if err := s.invalidator.InvalidateCompany(ctx, result.CompanyID); err != nil {
			s.logger.Warn("alert cache invalidation failed",
				slog.Int64("company_id", result.CompanyID), slog.Any("error", err))
		}
	}
	return result, nil
}
