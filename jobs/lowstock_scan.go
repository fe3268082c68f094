package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/stockwatch/internal/alerts"
	jobmetrics "github.com/odyssey-erp/stockwatch/internal/jobs"
	"github.com/odyssey-erp/stockwatch/internal/masterdata/companies"
	"github.com/odyssey-erp/stockwatch/internal/shared"
)

// TaskLowStockScan triggers the scheduled low-stock scan.
const TaskLowStockScan = "alerts:lowstock_scan"

// LowStockScanPayload narrows a scan. Zero values scan every company with
// the configured window.
type LowStockScanPayload struct {
	CompanyID  int64 `json:"company_id,omitempty"`
	WindowDays int   `json:"window_days,omitempty"`
}

// NewLowStockScanTask constructs the Asynq task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// CompanySource lists companies page by page.
type CompanySource interface {
	List(ctx context.Context, filters shared.ListFilters) ([]companies.Company, error)
}

// AlertSource computes low-stock envelopes.
type AlertSource interface {
	LowStock(ctx context.Context, q alerts.Query) (alerts.Envelope, error)
}

// EmailEnqueuer queues outbound email tasks.
type EmailEnqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// LowStockScanJob computes alerts for each company and queues one reorder
// email per supplier.
type LowStockScanJob struct {
	Companies CompanySource
	Alerts    AlertSource
	Mailer    EmailEnqueuer
	From      string
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
	printer   *message.Printer
}

// NewLowStockScanJob initialises the scan handler.
func NewLowStockScanJob(companySrc CompanySource, alertSrc AlertSource, mailer EmailEnqueuer, from string, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{
		Companies: companySrc,
		Alerts:    alertSrc,
		Mailer:    mailer,
		From:      from,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
		printer: message.NewPrinter(language.English),
	}
}

// ScanSummary reports what one run did.
type ScanSummary struct {
	RunID     string
	Companies int
	Alerts    int
	Emails    int
	Unrouted  int
}

// Handle executes the scan.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("lowstock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run performs one scan and returns its summary.
func (j *LowStockScanJob) Run(ctx context.Context, payload LowStockScanPayload) (ScanSummary, error) {
	summary := ScanSummary{RunID: uuid.NewString()}
	tracker := j.Metrics.Track(TaskLowStockScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("run_id", summary.RunID))
	logger.Info("starting low stock scan", slog.Int64("company_id", payload.CompanyID))

	ids, err := j.companyIDs(ctx, payload.CompanyID)
	if err != nil {
		resultErr = fmt.Errorf("lowstock scan: list companies: %w", err)
		logger.Error("scan failed", slog.Any("error", err))
		return summary, resultErr
	}

	now := j.now()
	var failed []string
	for _, companyID := range ids {
		env, err := j.Alerts.LowStock(ctx, alerts.Query{CompanyID: companyID, WindowDays: payload.WindowDays})
		if err != nil {
			logger.Error("company scan failed", slog.Int64("company_id", companyID), slog.Any("error", err))
			failed = append(failed, fmt.Sprintf("company %d: %v", companyID, err))
			continue
		}
		summary.Companies++
		summary.Alerts += env.TotalAlerts

		groups, unrouted := groupBySupplier(env.Alerts)
		summary.Unrouted += unrouted
		queued := 0
		for _, g := range groups {
			err := j.enqueue(ctx, companyID, now, g)
			if errors.Is(err, asynq.ErrTaskIDConflict) {
				continue
			}
			if err != nil {
				logger.Error("enqueue reorder email failed",
					slog.Int64("company_id", companyID),
					slog.Int64("supplier_id", g.supplier.ID),
					slog.Any("error", err))
				failed = append(failed, fmt.Sprintf("supplier %d: %v", g.supplier.ID, err))
				continue
			}
			queued++
		}
		summary.Emails += queued
		j.Metrics.AddNotifications(companyID, queued)
	}

	logger.Info("completed low stock scan",
		slog.Int("companies", summary.Companies),
		slog.Int("alerts", summary.Alerts),
		slog.Int("emails", summary.Emails),
		slog.Int("unrouted", summary.Unrouted))

	if len(failed) > 0 {
		resultErr = fmt.Errorf("lowstock scan: %s", strings.Join(failed, "; "))
	}
	return summary, resultErr
}

func (j *LowStockScanJob) companyIDs(ctx context.Context, only int64) ([]int64, error) {
	if only > 0 {
		return []int64{only}, nil
	}
	var ids []int64
	filters := shared.ListFilters{Limit: shared.MaxLimit}
	for {
		page, err := j.Companies.List(ctx, filters)
		if err != nil {
			return nil, err
		}
		for _, c := range page {
			ids = append(ids, c.ID)
		}
		if len(page) < filters.Limit {
			return ids, nil
		}
		filters.Offset += len(page)
	}
}

type supplierGroup struct {
	supplier alerts.SupplierContact
	alerts   []alerts.Alert
}

// groupBySupplier buckets alerts by supplier email. Alerts without a
// reachable supplier are counted as unrouted.
func groupBySupplier(items []alerts.Alert) ([]supplierGroup, int) {
	byEmail := make(map[string]*supplierGroup)
	unrouted := 0
	for _, a := range items {
		if a.Supplier == nil || strings.TrimSpace(a.Supplier.ContactEmail) == "" {
			unrouted++
			continue
		}
		email := strings.ToLower(strings.TrimSpace(a.Supplier.ContactEmail))
		g, ok := byEmail[email]
		if !ok {
			g = &supplierGroup{supplier: *a.Supplier}
			g.supplier.ContactEmail = email
			byEmail[email] = g
		}
		g.alerts = append(g.alerts, a)
	}
	groups := make([]supplierGroup, 0, len(byEmail))
	for _, g := range byEmail {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, k int) bool {
		return groups[i].supplier.ContactEmail < groups[k].supplier.ContactEmail
	})
	return groups, unrouted
}

// enqueue queues the supplier email under a per-day task id. The finished
// task is retained at least until the end of the UTC day so later same-day
// scans still collide with it.
func (j *LowStockScanJob) enqueue(ctx context.Context, companyID int64, now time.Time, g supplierGroup) error {
	payload := SendEmailPayload{
		To:      g.supplier.ContactEmail,
		From:    j.From,
		Subject: j.p().Sprintf("Reorder request: %d item(s) running low", len(g.alerts)),
		Body:    j.renderBody(g),
	}
	_, err := j.Mailer.EnqueueSendEmail(ctx, payload,
		asynq.TaskID(reorderTaskID(companyID, g.supplier.ContactEmail, now)),
		asynq.Retention(untilEndOfDay(now)))
	return err
}

func reorderTaskID(companyID int64, email string, now time.Time) string {
	return fmt.Sprintf("reorder:%d:%s:%s", companyID, email, now.UTC().Format("2006-01-02"))
}

func untilEndOfDay(now time.Time) time.Duration {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	return end.Sub(now)
}

func (j *LowStockScanJob) renderBody(g supplierGroup) string {
	var b strings.Builder
	b.WriteString(j.p().Sprintf("Hello %s,\n\nThe following items are below their reorder threshold:\n\n", g.supplier.Name))
	for _, a := range g.alerts {
		b.WriteString(j.p().Sprintf("- %s (SKU %s) at %s: %d on hand, threshold %d, about %d day(s) of stock left\n",
			a.ProductName, a.SKU, a.WarehouseName, a.CurrentStock, a.Threshold, a.DaysUntilStockout))
	}
	return b.String()
}

func (j *LowStockScanJob) p() *message.Printer {
	if j.printer == nil {
		j.printer = message.NewPrinter(language.English)
	}
	return j.printer
}

func (j *LowStockScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
