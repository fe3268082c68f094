package products

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockwatch/internal/shared"
)

var (
	// ErrDuplicateSKU is returned when another product already uses the SKU.
	ErrDuplicateSKU = fmt.Errorf("%w: sku already exists", shared.ErrValidation)
	// ErrInvalidPrice covers malformed, negative and over-precise prices.
	ErrInvalidPrice = fmt.Errorf("%w: price must be a non-negative decimal with at most 2 fractional digits", shared.ErrValidation)
	// ErrInvalidQuantity is returned when initial_quantity is not a non-negative integer.
	ErrInvalidQuantity = fmt.Errorf("%w: initial_quantity must be a non-negative integer", shared.ErrValidation)
	// ErrInitialStockPair is returned when only one of warehouse_id and initial_quantity is set.
	ErrInitialStockPair = fmt.Errorf("%w: warehouse_id and initial_quantity must be provided together", shared.ErrValidation)
)

// Normalize parses and validates a create request without touching storage.
func Normalize(req CreateProductRequest) (NewProduct, error) {
	p := NewProduct{
		Name:       strings.TrimSpace(req.Name),
		SKU:        strings.TrimSpace(req.SKU),
		Price:      decimal.Zero,
		Threshold:  DefaultThreshold,
		SupplierID: req.SupplierID,
	}
	if req.Threshold != nil {
		p.Threshold = *req.Threshold
	}

	if text, ok, err := rawText(req.Price); err != nil {
		return NewProduct{}, ErrInvalidPrice
	} else if ok {
		price, err := parsePrice(text)
		if err != nil {
			return NewProduct{}, err
		}
		p.Price = price
	}

	qtyText, hasQty, err := rawText(req.InitialQuantity)
	if err != nil {
		return NewProduct{}, ErrInvalidQuantity
	}
	switch {
	case req.WarehouseID != nil && hasQty:
		qty, err := strconv.ParseInt(qtyText, 10, 64)
		if err != nil || qty < 0 {
			return NewProduct{}, ErrInvalidQuantity
		}
		p.InitialStock = &InitialStock{WarehouseID: *req.WarehouseID, Quantity: qty}
	case req.WarehouseID != nil || hasQty:
		return NewProduct{}, ErrInitialStockPair
	}

	if err := shared.ValidateStruct(p); err != nil {
		return NewProduct{}, err
	}
	return p, nil
}

func parsePrice(text string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil || price.IsNegative() || !price.Equal(price.Round(2)) {
		return decimal.Decimal{}, ErrInvalidPrice
	}
	return price.Round(2), nil
}

// rawText unwraps a JSON string or number literal. Absent and null values
// report ok=false.
func rawText(raw json.RawMessage) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	}
	return string(raw), true, nil
}
