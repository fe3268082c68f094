package products

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultThreshold applies when a product is created without a reorder threshold.
const DefaultThreshold = 10

// Product is a catalogue item. Price is fixed-point with two fractional digits.
type Product struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	SKU        string          `json:"sku"`
	Price      decimal.Decimal `json:"price"`
	Threshold  int             `json:"threshold"`
	SupplierID *int64          `json:"supplier_id"`
	CreatedAt  time.Time       `json:"created_at"`
}

// MarshalJSON renders price as a two-digit decimal string.
func (p Product) MarshalJSON() ([]byte, error) {
	type alias Product
	return json.Marshal(struct {
		alias
		Price string `json:"price"`
	}{alias: alias(p), Price: p.Price.StringFixed(2)})
}

// CreateProductRequest is the wire shape of a create call. Price and
// initial_quantity accept either JSON strings or numbers.
type CreateProductRequest struct {
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	Price           json.RawMessage `json:"price"`
	Threshold       *int            `json:"threshold"`
	SupplierID      *int64          `json:"supplier_id"`
	WarehouseID     *int64          `json:"warehouse_id"`
	InitialQuantity json.RawMessage `json:"initial_quantity"`
}

// NewProduct is a create request after parsing and normalisation.
type NewProduct struct {
	Name         string          `json:"name" validate:"required,max=128"`
	SKU          string          `json:"sku" validate:"required,max=64"`
	Price        decimal.Decimal `json:"price"`
	Threshold    int             `json:"threshold" validate:"gte=0"`
	SupplierID   *int64          `json:"supplier_id" validate:"omitempty,gt=0"`
	InitialStock *InitialStock   `json:"initial_stock"`
}

// InitialStock seeds one inventory row when the product is created.
type InitialStock struct {
	WarehouseID int64 `json:"warehouse_id" validate:"gt=0"`
	Quantity    int64 `json:"initial_quantity" validate:"gte=0"`
}

// CreateResult reports the outcome of a create call.
type CreateResult struct {
	ProductID int64
	CompanyID int64
}
