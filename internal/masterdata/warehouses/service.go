package warehouses

import (
	"context"
	"fmt"
	"strings"

	"github.com/odyssey-erp/stockwatch/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListByCompany(ctx context.Context, companyID int64, filters shared.ListFilters) ([]Warehouse, error) {
	if companyID <= 0 {
		return nil, fmt.Errorf("%w: invalid company ID", shared.ErrValidation)
	}
	if filters.Limit <= 0 {
		filters.Limit = shared.DefaultLimit
	}
	return s.repo.ListByCompany(ctx, companyID, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Warehouse, error) {
	if id <= 0 {
		return Warehouse{}, fmt.Errorf("%w: invalid warehouse ID", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateWarehouseRequest) (Warehouse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := shared.ValidateStruct(req); err != nil {
		return Warehouse{}, err
	}
	return s.repo.Create(ctx, Warehouse{CompanyID: req.CompanyID, Name: req.Name})
}
