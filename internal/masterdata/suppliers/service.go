package suppliers

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

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Supplier, error) {
	if filters.Limit <= 0 {
		filters.Limit = shared.DefaultLimit
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	if id <= 0 {
		return Supplier{}, fmt.Errorf("%w: invalid supplier ID", shared.ErrValidation)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateSupplierRequest) (Supplier, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.ContactEmail = strings.ToLower(strings.TrimSpace(req.ContactEmail))
	if err := shared.ValidateStruct(req); err != nil {
		return Supplier{}, err
	}
	return s.repo.Create(ctx, Supplier{Name: req.Name, ContactEmail: req.ContactEmail})
}
