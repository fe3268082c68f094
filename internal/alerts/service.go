package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/stockwatch/internal/shared"
)

// SnapshotReader opens a consistent read view over alert inputs.
type SnapshotReader interface {
	WithSnapshot(ctx context.Context, fn func(context.Context, Snapshot) error) error
}

// Service computes low-stock alerts for a company.
type Service struct {
	repo   SnapshotReader
	cache  *Cache
	opts   Options
	logger *slog.Logger
	group  singleflight.Group
	clock  func() time.Time

	genMu sync.Mutex
	gens  map[int64]uint64
}

// NewService wires the snapshot reader with an optional cache.
func NewService(repo SnapshotReader, cache *Cache, opts Options, logger *slog.Logger) *Service {
	if opts.WindowDays <= 0 {
		opts.WindowDays = DefaultWindowDays
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		opts:   opts,
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
		gens:   make(map[int64]uint64),
	}
}

// WindowDays reports the configured default window.
func (s *Service) WindowDays() int {
	return s.opts.WindowDays
}

type plan struct {
	companyID  int64
	windowDays int
	suppress   bool
}

func (s *Service) resolve(q Query) (plan, error) {
	if q.CompanyID <= 0 {
		return plan{}, fmt.Errorf("%w: invalid company ID", shared.ErrValidation)
	}
	window := q.WindowDays
	if window == 0 {
		window = s.opts.WindowDays
	}
	if window < 1 || window > MaxWindowDays {
		return plan{}, fmt.Errorf("%w: window_days must be between 1 and %d", shared.ErrValidation, MaxWindowDays)
	}
	return plan{
		companyID:  q.CompanyID,
		windowDays: window,
		suppress:   !s.opts.IncludeUnknownVelocity && !q.IncludeUnknownVelocity,
	}, nil
}

func (p plan) baseKey() string {
	return fmt.Sprintf("%d:w%d:%s", p.companyID, p.windowDays, modeLabel(p.suppress))
}

// flightKey scopes a shared computation to the company generation observed
// before it starts, so requests made after an invalidation never join an older flight.
func (s *Service) flightKey(p plan, cacheKey string) string {
	s.genMu.Lock()
	gen := s.gens[p.companyID]
	s.genMu.Unlock()
	base := cacheKey
	if base == "" {
		base = p.baseKey()
	}
	return base + ":g" + strconv.FormatUint(gen, 10)
}

// LowStock returns the alert envelope, served from cache when possible.
// Concurrent identical requests share one computation.
func (s *Service) LowStock(ctx context.Context, q Query) (Envelope, error) {
	p, err := s.resolve(q)
	if err != nil {
		return Envelope{}, err
	}

	cacheKey, err := s.cache.BuildKey(ctx, p.companyID, "w"+strconv.Itoa(p.windowDays), modeLabel(p.suppress))
	if err != nil {
		s.logger.Warn("alert cache unavailable", slog.Int64("company_id", p.companyID), slog.Any("error", err))
		cacheKey = ""
	}
	if cacheKey != "" {
		env, ok, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			s.logger.Warn("alert cache read failed", slog.String("key", cacheKey), slog.Any("error", err))
		}
		if ok {
			recordCacheHit(p.companyID)
			return env, nil
		}
		recordCacheMiss(p.companyID)
	}

	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(s.flightKey(p, cacheKey), func() (interface{}, error) {
		env, err := s.compute(detached, p)
		if err != nil {
			return Envelope{}, err
		}
		if cacheKey != "" {
			if err := s.cache.Set(detached, cacheKey, env); err != nil {
				s.logger.Warn("alert cache write failed", slog.String("key", cacheKey), slog.Any("error", err))
			}
		}
		return env, nil
	})
	select {
	case <-ctx.Done():
		return Envelope{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Envelope{}, res.Err
		}
		return res.Val.(Envelope), nil
	}
}

// InvalidateCompany drops cached envelopes of a company and detaches
// in-flight computations from later requests.
func (s *Service) InvalidateCompany(ctx context.Context, companyID int64) error {
	s.genMu.Lock()
	s.gens[companyID]++
	s.genMu.Unlock()
	return s.cache.Bump(ctx, companyID)
}

func (s *Service) compute(ctx context.Context, p plan) (Envelope, error) {
	start := time.Now()
	now := s.clock()
	since := now.AddDate(0, 0, -p.windowDays)

	var env Envelope
	err := s.repo.WithSnapshot(ctx, func(ctx context.Context, snap Snapshot) error {
		exists, err := snap.CompanyExists(ctx, p.companyID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("company %d: %w", p.companyID, shared.ErrNotFound)
		}

		totals, err := snap.ConsumptionTotals(ctx, p.companyID, since)
		if err != nil {
			return fmt.Errorf("alerts: consumption totals: %w", err)
		}
		levels, err := snap.StockLevels(ctx, p.companyID)
		if err != nil {
			return fmt.Errorf("alerts: stock levels: %w", err)
		}

		risks := EvaluateRisk(levels, AggregateVelocity(totals, p.windowDays), p.suppress)

		catalog, err := snap.Catalog(ctx, p.companyID, productIDs(risks))
		if err != nil {
			return fmt.Errorf("alerts: catalog: %w", err)
		}
		env = Assemble(p.companyID, p.windowDays, now, risks, catalog)
		return nil
	})
	if err != nil {
		return Envelope{}, err
	}

	recordComputation(p.suppress, p.companyID, env.TotalAlerts, time.Since(start))
	s.logger.Debug("low stock computed",
		slog.Int64("company_id", p.companyID),
		slog.Int("window_days", p.windowDays),
		slog.Int("alerts", env.TotalAlerts))
	return env, nil
}

func productIDs(risks []Risk) []int64 {
	seen := make(map[int64]struct{}, len(risks))
	ids := make([]int64, 0, len(risks))
	for _, r := range risks {
		if _, ok := seen[r.Key.ProductID]; ok {
			continue
		}
		seen[r.Key.ProductID] = struct{}{}
		ids = append(ids, r.Key.ProductID)
	}
	return ids
}
