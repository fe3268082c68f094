package alerts

import "time"

const (
	// DefaultWindowDays is the trailing window used when none is configured.
	DefaultWindowDays = 30
	// MaxWindowDays bounds the trailing window.
	MaxWindowDays = 365
)

// PairKey identifies one product stocked in one warehouse.
type PairKey struct {
	ProductID   int64
	WarehouseID int64
}

// ConsumptionTotal is the summed absolute outflow of a pair inside the window.
type ConsumptionTotal struct {
	Key           PairKey
	TotalConsumed int64
}

// Velocity maps a pair to its average daily consumption. Pairs without
// consumption in the window are absent.
type Velocity map[PairKey]float64

// StockLevel is a current on-hand row joined with its product's threshold.
type StockLevel struct {
	Key          PairKey
	CurrentStock int64
	Threshold    int64
}

// Risk is a pair under threshold with its estimated runway.
type Risk struct {
	Key               PairKey
	CurrentStock      int64
	Threshold         int64
	DaysUntilStockout int64
	AvgDailyConsumed  float64
	VelocityKnown     bool
}

// SupplierContact is the reorder contact shown on an alert.
type SupplierContact struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
}

// ProductInfo carries the display fields of a product.
type ProductInfo struct {
	Name     string
	SKU      string
	Supplier *SupplierContact
}

// Catalog holds the lookups an alert is enriched from.
type Catalog struct {
	Products   map[int64]ProductInfo
	Warehouses map[int64]string
}

// Alert is one low-stock line in the response.
type Alert struct {
	ProductID         int64            `json:"product_id"`
	ProductName       string           `json:"product_name"`
	SKU               string           `json:"sku"`
	WarehouseID       int64            `json:"warehouse_id"`
	WarehouseName     string           `json:"warehouse_name"`
	CurrentStock      int64            `json:"current_stock"`
	Threshold         int64            `json:"threshold"`
	DaysUntilStockout int64            `json:"days_until_stockout"`
	AvgDailyConsumed  float64          `json:"avg_daily_consumed"`
	VelocityKnown     bool             `json:"velocity_known"`
	Supplier          *SupplierContact `json:"supplier"`
}

// Envelope is the low-stock response body.
type Envelope struct {
	CompanyID   int64     `json:"company_id"`
	WindowDays  int       `json:"window_days"`
	GeneratedAt time.Time `json:"generated_at"`
	Alerts      []Alert   `json:"alerts"`
	TotalAlerts int       `json:"total_alerts"`
}

// Query selects what a low-stock computation covers.
type Query struct {
	CompanyID int64
	// WindowDays overrides the configured window when > 0.
	WindowDays int
	// IncludeUnknownVelocity reports under-threshold pairs that had no
	// consumption in the window instead of dropping them.
	IncludeUnknownVelocity bool
}

// Options are the service-wide defaults.
type Options struct {
	WindowDays int
	// IncludeUnknownVelocity reports under-threshold pairs without consumption
	// for every request. The zero value drops them.
	IncludeUnknownVelocity bool
	CacheTTL               time.Duration
}
