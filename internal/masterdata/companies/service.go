package companies

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Company, error) {
	if filters.Limit <= 0 {
		filters.Limit = shared.DefaultLimit
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Company, error) {
	if id <= 0 {
		return Company{}, fmt.Errorf("%w: invalid company ID", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateCompanyRequest) (Company, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := shared.ValidateStruct(req); err != nil {
		return Company{}, err
	}
	return s.repo.Create(ctx, Company{Name: req.Name})
}
