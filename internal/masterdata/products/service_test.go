package products

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockwatch/internal/shared"
)

type stockKey struct {
	productID   int64
	warehouseID int64
}

type memoryRepo struct {
	products   map[int64]NewProduct
	suppliers  map[int64]bool
	warehouses map[int64]int64
	inventory  map[stockKey]int64
	ledger     []int64
	nextID     int64

	failStock error
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products:   make(map[int64]NewProduct),
		suppliers:  map[int64]bool{1: true},
		warehouses: map[int64]int64{7: 3},
		inventory:  make(map[stockKey]int64),
	}
}

func (r *memoryRepo) clone() *memoryRepo {
	c := *r
	c.products = make(map[int64]NewProduct, len(r.products))
	for k, v := range r.products {
		c.products[k] = v
	}
	c.inventory = make(map[stockKey]int64, len(r.inventory))
	for k, v := range r.inventory {
		c.inventory[k] = v
	}
	c.ledger = append([]int64(nil), r.ledger...)
	return &c
}

// WithTx stages writes on a copy and keeps them only when fn succeeds.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	staged := r.clone()
	if err := fn(ctx, &memoryTx{repo: staged}); err != nil {
		return err
	}
	r.products, r.inventory, r.ledger, r.nextID = staged.products, staged.inventory, staged.ledger, staged.nextID
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, fmt.Errorf("product %d: %w", id, shared.ErrNotFound)
	}
	return Product{ID: id, Name: p.Name, SKU: p.SKU, Price: p.Price, Threshold: p.Threshold, SupplierID: p.SupplierID}, nil
}

func (r *memoryRepo) List(ctx context.Context, filters shared.ListFilters) ([]Product, error) {
	out := make([]Product, 0, len(r.products))
	for id := range r.products {
		p, _ := r.Get(ctx, id)
		out = append(out, p)
	}
	return out, nil
}

func (tx *memoryTx) SKUExists(ctx context.Context, sku string) (bool, error) {
	for _, p := range tx.repo.products {
		if p.SKU == sku {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) SupplierExists(ctx context.Context, supplierID int64) (bool, error) {
	return tx.repo.suppliers[supplierID], nil
}

func (tx *memoryTx) InsertProduct(ctx context.Context, product NewProduct) (int64, error) {
	tx.repo.nextID++
	tx.repo.products[tx.repo.nextID] = product
	return tx.repo.nextID, nil
}

func (tx *memoryTx) WarehouseCompany(ctx context.Context, warehouseID int64) (int64, error) {
	companyID, ok := tx.repo.warehouses[warehouseID]
	if !ok {
		return 0, fmt.Errorf("%w: warehouse %d does not exist", shared.ErrValidation, warehouseID)
	}
	return companyID, nil
}

func (tx *memoryTx) InsertInitialStock(ctx context.Context, productID int64, stock InitialStock) error {
	if tx.repo.failStock != nil {
		return tx.repo.failStock
	}
	tx.repo.inventory[stockKey{productID, stock.WarehouseID}] = stock.Quantity
	if stock.Quantity != 0 {
		tx.repo.ledger = append(tx.repo.ledger, stock.Quantity)
	}
	return nil
}

type recordingInvalidator struct {
	companies []int64
}

func (r *recordingInvalidator) InvalidateCompany(ctx context.Context, companyID int64) error {
	r.companies = append(r.companies, companyID)
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestCreateProductDefaults(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	res, err := svc.Create(context.Background(), CreateProductRequest{Name: "Widget", SKU: "W-1"})
	require.NoError(t, err)
	require.NotZero(t, res.ProductID)

	p, err := svc.Get(context.Background(), res.ProductID)
	require.NoError(t, err)
	require.Equal(t, DefaultThreshold, p.Threshold)
	require.True(t, p.Price.Equal(decimal.Zero))
	require.Nil(t, p.SupplierID)
	require.Empty(t, repo.inventory)
}

func TestCreateProductWithInitialStock(t *testing.T) {
	repo := newMemoryRepo()
	inv := &recordingInvalidator{}
	svc := NewService(repo, inv, nil)

	res, err := svc.Create(context.Background(), CreateProductRequest{
		Name:            "Widget",
		SKU:             "W-1",
		Price:           json.RawMessage(`"12.50"`),
		SupplierID:      ptr(int64(1)),
		WarehouseID:     ptr(int64(7)),
		InitialQuantity: json.RawMessage(`40`),
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), res.CompanyID)
	require.Equal(t, int64(40), repo.inventory[stockKey{res.ProductID, 7}])
	require.Equal(t, []int64{40}, repo.ledger)
	require.Equal(t, []int64{3}, inv.companies)
	require.Equal(t, "12.50", repo.products[res.ProductID].Price.StringFixed(2))
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProductRequest{Name: "A", SKU: "DUP"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateProductRequest{Name: "B", SKU: "DUP"})
	require.ErrorIs(t, err, ErrDuplicateSKU)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Len(t, repo.products, 1)
}

func TestCreateProductNonIntegerQuantityPersistsNothing(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateProductRequest{
		Name:            "Widget",
		SKU:             "W-1",
		WarehouseID:     ptr(int64(7)),
		InitialQuantity: json.RawMessage(`"abc"`),
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	require.Empty(t, repo.products)
	require.Empty(t, repo.inventory)
}

func TestCreateProductRollsBackOnLateFailure(t *testing.T) {
	repo := newMemoryRepo()
	inv := &recordingInvalidator{}
	svc := NewService(repo, inv, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProductRequest{
		Name:            "Widget",
		SKU:             "W-1",
		WarehouseID:     ptr(int64(99)),
		InitialQuantity: json.RawMessage(`5`),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, repo.products)

	repo.failStock = errors.New("connection reset")
	_, err = svc.Create(ctx, CreateProductRequest{
		Name:            "Widget",
		SKU:             "W-1",
		WarehouseID:     ptr(int64(7)),
		InitialQuantity: json.RawMessage(`5`),
	})
	require.EqualError(t, err, "connection reset")
	require.Empty(t, repo.products)
	require.Empty(t, repo.ledger)
	require.Empty(t, inv.companies)
}

func TestCreateProductUnknownSupplier(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateProductRequest{Name: "Widget", SKU: "W-1", SupplierID: ptr(int64(42))})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, repo.products)
}

func TestGetRejectsInvalidID(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	_, err := svc.Get(context.Background(), 0)
	require.ErrorIs(t, err, shared.ErrValidation)
}
