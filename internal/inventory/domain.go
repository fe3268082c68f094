package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/stockwatch/internal/shared"
)

// Reasons recorded on ledger rows. Any negative change_qty counts as
// consumption regardless of reason.
const (
	ReasonReceipt     = "receipt"
	ReasonSale        = "sale"
	ReasonAdjustment  = "adjustment"
	ReasonTransferOut = "transfer_out"
	ReasonTransferIn  = "transfer_in"
)

// Level is the on-hand quantity of one product in one warehouse.
type Level struct {
	ProductID   int64     `json:"product_id"`
	WarehouseID int64     `json:"warehouse_id"`
	Quantity    int64     `json:"quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Transaction is an append-only ledger row.
type Transaction struct {
	ID          int64      `json:"id"`
	ProductID   int64      `json:"product_id"`
	WarehouseID int64      `json:"warehouse_id"`
	ChangeQty   int64      `json:"change_qty"`
	Reason      string     `json:"reason"`
	Reference   *uuid.UUID `json:"reference"`
	CreatedAt   time.Time  `json:"created_at"`
}

// MovementInput posts a signed quantity delta against one warehouse.
type MovementInput struct {
	WarehouseID int64  `json:"warehouse_id" validate:"required,gt=0"`
	ProductID   int64  `json:"product_id" validate:"required,gt=0"`
	Quantity    int64  `json:"quantity" validate:"required,ne=0"`
	Reason      string `json:"reason" validate:"omitempty,max=64"`
	Reference   string `json:"reference" validate:"omitempty,uuid"`
}

// TransferInput moves stock between two warehouses of the same company.
type TransferInput struct {
	SrcWarehouseID int64  `json:"src_warehouse_id" validate:"required,gt=0"`
	DstWarehouseID int64  `json:"dst_warehouse_id" validate:"required,gt=0,nefield=SrcWarehouseID"`
	ProductID      int64  `json:"product_id" validate:"required,gt=0"`
	Quantity       int64  `json:"quantity" validate:"required,gt=0"`
	Reference      string `json:"reference" validate:"omitempty,uuid"`
}

// MovementResult pairs the ledger row with the level it produced.
type MovementResult struct {
	Transaction Transaction `json:"transaction"`
	Level       Level       `json:"level"`
}

// StockCardFilter selects ledger rows for one product in one warehouse.
type StockCardFilter struct {
	WarehouseID int64
	ProductID   int64
	Since       time.Time
	Limit       int
}

var (
	// ErrNegativeStock indicates the movement would drive on-hand below zero.
	ErrNegativeStock = fmt.Errorf("%w: insufficient stock", shared.ErrValidation)
	// ErrCrossCompanyTransfer rejects transfers between companies.
	ErrCrossCompanyTransfer = fmt.Errorf("%w: warehouses belong to different companies", shared.ErrValidation)
	// ErrDuplicateReference indicates the reference was already posted for the pair.
	ErrDuplicateReference = fmt.Errorf("%w: reference already posted", shared.ErrDuplicate)
	// ErrLevelNotFound indicates a missing inventory row.
	ErrLevelNotFound = errors.New("inventory level not found")
)
