package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/stockwatch/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListLevels(ctx context.Context, warehouseID int64, filters shared.ListFilters) ([]Level, error)
	StockCard(ctx context.Context, filter StockCardFilter) ([]Transaction, error)
}

// Invalidator drops cached alert results for a company.
type Invalidator interface {
	InvalidateCompany(ctx context.Context, companyID int64) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// Service coordinates inventory operations.
type Service struct {
	repo        RepositoryPort
	invalidator Invalidator
	allowNeg    bool
	logger      *slog.Logger
	clock       func() time.Time
}

// NewService builds Service. invalidator may be nil.
func NewService(repo RepositoryPort, invalidator Invalidator, cfg ServiceConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		invalidator: invalidator,
		allowNeg:    cfg.AllowNegativeStock,
		logger:      logger,
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

// PostMovement applies a signed delta and appends the matching ledger row.
func (s *Service) PostMovement(ctx context.Context, input MovementInput) (MovementResult, error) {
	if err := shared.ValidateStruct(input); err != nil {
		return MovementResult{}, err
	}
	ref, err := parseReference(input.Reference)
	if err != nil {
		return MovementResult{}, err
	}
	reason := input.Reason
	if reason == "" {
		reason = defaultReason(input.Quantity)
	}

	var (
		result    MovementResult
		companyID int64
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		companyID, err = tx.WarehouseCompany(ctx, input.WarehouseID)
		if err != nil {
			return err
		}
		result, err = s.apply(ctx, tx, movement{
			warehouseID: input.WarehouseID,
			productID:   input.ProductID,
			delta:       input.Quantity,
			reason:      reason,
			reference:   ref,
		})
		return err
	})
	if err != nil {
		return MovementResult{}, err
	}
	s.invalidate(ctx, companyID)
	return result, nil
}

// PostTransfer moves stock between warehouses using OUT + IN in one transaction.
func (s *Service) PostTransfer(ctx context.Context, input TransferInput) (MovementResult, MovementResult, error) {
	if err := shared.ValidateStruct(input); err != nil {
		return MovementResult{}, MovementResult{}, err
	}
	ref, err := parseReference(input.Reference)
	if err != nil {
		return MovementResult{}, MovementResult{}, err
	}
	if ref == nil {
		id := uuid.New()
		ref = &id
	}

	var (
		out, in   MovementResult
		companyID int64
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		srcCompany, err := tx.WarehouseCompany(ctx, input.SrcWarehouseID)
		if err != nil {
			return err
		}
		dstCompany, err := tx.WarehouseCompany(ctx, input.DstWarehouseID)
		if err != nil {
			return err
		}
		if srcCompany != dstCompany {
			return ErrCrossCompanyTransfer
		}
		companyID = srcCompany

		out, err = s.apply(ctx, tx, movement{
			warehouseID: input.SrcWarehouseID,
			productID:   input.ProductID,
			delta:       -input.Quantity,
			reason:      ReasonTransferOut,
			reference:   ref,
		})
		if err != nil {
			return err
		}
		in, err = s.apply(ctx, tx, movement{
			warehouseID: input.DstWarehouseID,
			productID:   input.ProductID,
			delta:       input.Quantity,
			reason:      ReasonTransferIn,
			reference:   ref,
		})
		return err
	})
	if err != nil {
		return MovementResult{}, MovementResult{}, err
	}
	s.invalidate(ctx, companyID)
	return out, in, nil
}

// ListLevels returns on-hand quantities for a warehouse.
func (s *Service) ListLevels(ctx context.Context, warehouseID int64, filters shared.ListFilters) ([]Level, error) {
	if warehouseID <= 0 {
		return nil, fmt.Errorf("%w: invalid warehouse ID", shared.ErrValidation)
	}
	if filters.Limit <= 0 {
		filters.Limit = shared.DefaultLimit
	}
	return s.repo.ListLevels(ctx, warehouseID, filters)
}

// GetStockCard lists ledger rows for one product in one warehouse.
func (s *Service) GetStockCard(ctx context.Context, filter StockCardFilter) ([]Transaction, error) {
	if filter.WarehouseID <= 0 || filter.ProductID <= 0 {
		return nil, fmt.Errorf("%w: warehouse and product required", shared.ErrValidation)
	}
	if filter.Limit <= 0 || filter.Limit > shared.MaxLimit {
		filter.Limit = 200
	}
	return s.repo.StockCard(ctx, filter)
}

type movement struct {
	warehouseID int64
	productID   int64
	delta       int64
	reason      string
	reference   *uuid.UUID
}

func (s *Service) apply(ctx context.Context, tx TxRepository, m movement) (MovementResult, error) {
	ok, err := tx.ProductExists(ctx, m.productID)
	if err != nil {
		return MovementResult{}, err
	}
	if !ok {
		return MovementResult{}, fmt.Errorf("product %d: %w", m.productID, shared.ErrNotFound)
	}
	if m.reference != nil {
		dup, err := tx.ReferenceExists(ctx, *m.reference, m.warehouseID, m.productID)
		if err != nil {
			return MovementResult{}, err
		}
		if dup {
			return MovementResult{}, ErrDuplicateReference
		}
	}

	level, err := tx.GetLevelForUpdate(ctx, m.warehouseID, m.productID)
	if err != nil && !errors.Is(err, ErrLevelNotFound) {
		return MovementResult{}, err
	}
	newQty := level.Quantity + m.delta
	if newQty < 0 && !s.allowNeg {
		return MovementResult{}, ErrNegativeStock
	}

	now := s.clock()
	level.Quantity = newQty
	level.UpdatedAt = now
	if err := tx.UpsertLevel(ctx, level); err != nil {
		return MovementResult{}, err
	}

	entry := Transaction{
		ProductID:   m.productID,
		WarehouseID: m.warehouseID,
		ChangeQty:   m.delta,
		Reason:      m.reason,
		Reference:   m.reference,
		CreatedAt:   now,
	}
	entry.ID, err = tx.InsertTransaction(ctx, entry)
	if err != nil {
		return MovementResult{}, err
	}
	return MovementResult{Transaction: entry, Level: level}, nil
}

func (s *Service) invalidate(ctx context.Context, companyID int64) {
	if s.invalidator == nil || companyID == 0 {
		return
	}
	if err := s.invalidator.InvalidateCompany(ctx, companyID); err != nil {
		s.logger.Warn("alert cache invalidation failed", slog.Int64("company_id", companyID), slog.Any("error", err))
	}
}

func parseReference(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid reference: %v", shared.ErrValidation, err)
	}
	return &id, nil
}

func defaultReason(delta int64) string {
	if delta < 0 {
		return ReasonSale
	}
	return ReasonReceipt
}
