package alerts

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockwatch/internal/shared"
)

var testNow = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

type fakeWarehouse struct {
	companyID int64
	name      string
}

type fakeProduct struct {
	name      string
	sku       string
	threshold int64
	supplier  *SupplierContact
}

type fakeTxn struct {
	productID   int64
	warehouseID int64
	change      int64
	at          time.Time
}

// memoryStore mimics the company-scoped queries of the SQL snapshot.
type memoryStore struct {
	mu         sync.Mutex
	snapshots  int
	companies  map[int64]bool
	warehouses map[int64]fakeWarehouse
	products   map[int64]fakeProduct
	inventory  map[PairKey]int64
	txns       []fakeTxn
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		companies:  make(map[int64]bool),
		warehouses: make(map[int64]fakeWarehouse),
		products:   make(map[int64]fakeProduct),
		inventory:  make(map[PairKey]int64),
	}
}

func (m *memoryStore) WithSnapshot(ctx context.Context, fn func(context.Context, Snapshot) error) error {
	m.mu.Lock()
	m.snapshots++
	m.mu.Unlock()
	return fn(ctx, m)
}

func (m *memoryStore) CompanyExists(ctx context.Context, companyID int64) (bool, error) {
	return m.companies[companyID], nil
}

func (m *memoryStore) ConsumptionTotals(ctx context.Context, companyID int64, since time.Time) ([]ConsumptionTotal, error) {
	sums := make(map[PairKey]int64)
	for _, t := range m.txns {
		if m.warehouses[t.warehouseID].companyID != companyID || t.at.Before(since) || t.change >= 0 {
			continue
		}
		sums[PairKey{t.productID, t.warehouseID}] += -t.change
	}
	out := make([]ConsumptionTotal, 0, len(sums))
	for k, v := range sums {
		out = append(out, ConsumptionTotal{Key: k, TotalConsumed: v})
	}
	return out, nil
}

func (m *memoryStore) StockLevels(ctx context.Context, companyID int64) ([]StockLevel, error) {
	var out []StockLevel
	for k, qty := range m.inventory {
		if m.warehouses[k.WarehouseID].companyID != companyID {
			continue
		}
		out = append(out, StockLevel{Key: k, CurrentStock: qty, Threshold: m.products[k.ProductID].threshold})
	}
	return out, nil
}

func (m *memoryStore) Catalog(ctx context.Context, companyID int64, productIDs []int64) (Catalog, error) {
	c := Catalog{Products: make(map[int64]ProductInfo), Warehouses: make(map[int64]string)}
	for id, w := range m.warehouses {
		if w.companyID == companyID {
			c.Warehouses[id] = w.name
		}
	}
	for _, id := range productIDs {
		p := m.products[id]
		c.Products[id] = ProductInfo{Name: p.name, SKU: p.sku, Supplier: p.supplier}
	}
	return c, nil
}

func (m *memoryStore) sell(productID, warehouseID, qty int64, daysAgo int) {
	m.txns = append(m.txns, fakeTxn{productID: productID, warehouseID: warehouseID, change: -qty, at: testNow.AddDate(0, 0, -daysAgo)})
}

func newTestService(store SnapshotReader, cache *Cache, opts Options) *Service {
	svc := NewService(store, cache, opts, nil)
	svc.clock = func() time.Time { return testNow }
	return svc
}

// singleCompany seeds company 1 with warehouse 10 and a product at threshold 10.
func singleCompany() *memoryStore {
	m := newMemoryStore()
	m.companies[1] = true
	m.warehouses[10] = fakeWarehouse{companyID: 1, name: "Main"}
	m.products[100] = fakeProduct{
		name: "Widget", sku: "W-1", threshold: 10,
		supplier: &SupplierContact{ID: 7, Name: "Acme", ContactEmail: "orders@acme.test"},
	}
	return m
}

func defaultOpts() Options {
	return Options{WindowDays: 30}
}

func TestLowStockScenarioTwoDays(t *testing.T) {
	store := singleCompany()
	store.inventory[PairKey{100, 10}] = 5
	store.sell(100, 10, 25, 3)
	store.sell(100, 10, 35, 20)

	env, err := newTestService(store, nil, defaultOpts()).LowStock(context.Background(), Query{CompanyID: 1})
	require.NoError(t, err)
	require.Equal(t, 1, env.TotalAlerts)
	alert := env.Alerts[0]
	assert.Equal(t, int64(2), alert.DaysUntilStockout)
	assert.InDelta(t, 2.0, alert.AvgDailyConsumed, 1e-9)
	assert.Equal(t, "Widget", alert.ProductName)
	assert.Equal(t, "W-1", alert.SKU)
	assert.Equal(t, "Main", alert.WarehouseName)
	assert.Equal(t, int64(5), alert.CurrentStock)
	assert.Equal(t, int64(10), alert.Threshold)
	require.NotNil(t, alert.Supplier)
	assert.Equal(t, "orders@acme.test", alert.Supplier.ContactEmail)
	assert.Equal(t, testNow, env.GeneratedAt)
}

func TestLowStockNoConsumptionSuppressed(t *testing.T) {
	store := singleCompany()
	store.inventory[PairKey{100, 10}] = 5

	svc := newTestService(store, nil, defaultOpts())
	env, err := svc.LowStock(context.Background(), Query{CompanyID: 1})
	require.NoError(t, err)
	assert.Zero(t, env.TotalAlerts)

	env, err = svc.LowStock(context.Background(), Query{CompanyID: 1, IncludeUnknownVelocity: true})
	require.NoError(t, err)
	require.Equal(t, 1, env.TotalAlerts)
	assert.False(t, env.Alerts[0].VelocityKnown)
	assert.Equal(t, int64(5), env.Alerts[0].DaysUntilStockout)
}

func TestLowStockConfigDisablesSuppression(t *testing.T) {
	store := singleCompany()
	store.inventory[PairKey{100, 10}] = 5

	env, err := newTestService(store, nil, Options{WindowDays: 30, IncludeUnknownVelocity: true}).LowStock(context.Background(), Query{CompanyID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, env.TotalAlerts)
}

func TestLowStockAtOrAboveThresholdNeverAlerts(t *testing.T) {
	store := singleCompany()
	store.inventory[PairKey{100, 10}] = 10
	store.sell(100, 10, 300, 1)

	env, err := newTestService(store, nil, Options{WindowDays: 30, IncludeUnknownVelocity: true}).LowStock(context.Background(), Query{CompanyID: 1})
	require.NoError(t, err)
	assert.Zero(t, env.TotalAlerts)
}

func TestLowStockIgnoresOldAndInboundTransactions(t *testing.T) {
	store := singleCompany()
	store.inventory[PairKey{100, 10}] = 5
	store.sell(100, 10, 90, 45)
	store.txns = append(store.txns, fakeTxn{productID: 100, warehouseID: 10, change: 500, at: testNow})

	env, err := newTestService(store, nil, defaultOpts()).LowStock(context.Background(), Query{CompanyID: 1})
	require.NoError(t, err)
	assert.Zero(t, env.TotalAlerts)

	env, err = newTestService(store, nil, defaultOpts()).LowStock(context.Background(), Query{CompanyID: 1, WindowDays: 60})
	require.NoError(t, err)
	require.Equal(t, 1, env.TotalAlerts)
	assert.Equal(t, 60, env.WindowDays)
	assert.Equal(t, int64(3), env.Alerts[0].DaysUntilStockout)
}

func TestLowStockCompanyWithoutWarehouses(t *testing.T) {
	store := newMemoryStore()
	store.companies[4] = true

	env, err := newTestService(store, nil, defaultOpts()).LowStock(context.Background(), Query{CompanyID: 4})
	require.NoError(t, err)
	assert.Zero(t, env.TotalAlerts)

	body, err := json.Marshal(env)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"alerts":[]`)
	assert.Contains(t, string(body), `"total_alerts":0`)
}

func TestLowStockCompanyIsolation(t *testing.T) {
	store := singleCompany()
	store.companies[2] = true
	store.warehouses[20] = fakeWarehouse{companyID: 2, name: "Other"}
	store.inventory[PairKey{100, 10}] = 5
	store.inventory[PairKey{100, 20}] = 1
	store.sell(100, 10, 60, 2)
	store.sell(100, 20, 60, 2)

	svc := newTestService(store, nil, defaultOpts())
	env, err := svc.LowStock(context.Background(), Query{CompanyID: 1})
	require.NoError(t, err)
	require.Equal(t, 1, env.TotalAlerts)
	assert.Equal(t, int64(10), env.Alerts[0].WarehouseID)

	env, err = svc.LowStock(context.Background(), Query{CompanyID: 2})
	require.NoError(t, err)
	require.Equal(t, 1, env.TotalAlerts)
	assert.Equal(t, int64(20), env.Alerts[0].WarehouseID)
	assert.Equal(t, "Other", env.Alerts[0].WarehouseName)
}

func TestLowStockErrors(t *testing.T) {
	svc := newTestService(singleCompany(), nil, defaultOpts())
	ctx := context.Background()

	_, err := svc.LowStock(ctx, Query{CompanyID: 99})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.LowStock(ctx, Query{CompanyID: 0})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.LowStock(ctx, Query{CompanyID: 1, WindowDays: MaxWindowDays + 1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestLowStockCachesUntilInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := singleCompany()
	store.inventory[PairKey{100, 10}] = 5
	store.sell(100, 10, 60, 1)

	svc := newTestService(store, NewCache(client, time.Minute), defaultOpts())
	ctx := context.Background()

	first, err := svc.LowStock(ctx, Query{CompanyID: 1})
	require.NoError(t, err)
	second, err := svc.LowStock(ctx, Query{CompanyID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, store.snapshots)
	assert.Equal(t, first.TotalAlerts, second.TotalAlerts)
	assert.Equal(t, first.Alerts[0].DaysUntilStockout, second.Alerts[0].DaysUntilStockout)

	store.inventory[PairKey{100, 10}] = 50
	require.NoError(t, svc.InvalidateCompany(ctx, 1))

	third, err := svc.LowStock(ctx, Query{CompanyID: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, store.snapshots)
	assert.Zero(t, third.TotalAlerts)
}

func TestLowStockCacheKeysSeparateModes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := singleCompany()
	store.inventory[PairKey{100, 10}] = 5

	svc := newTestService(store, NewCache(client, time.Minute), defaultOpts())
	ctx := context.Background()

	env, err := svc.LowStock(ctx, Query{CompanyID: 1})
	require.NoError(t, err)
	assert.Zero(t, env.TotalAlerts)

	env, err = svc.LowStock(ctx, Query{CompanyID: 1, IncludeUnknownVelocity: true})
	require.NoError(t, err)
	assert.Equal(t, 1, env.TotalAlerts)
	assert.Equal(t, 2, store.snapshots)
}

func TestCacheDisabledWithoutTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCache(client, 0)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "k", Envelope{TotalAlerts: 3}))
	_, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("k"))
}

func TestCacheBumpChangesKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, 5, "w30")
	require.NoError(t, err)
	assert.Equal(t, "stockwatch:alerts:lowstock:5:v1:w30", before)

	require.NoError(t, cache.Bump(ctx, 5))
	after, err := cache.BuildKey(ctx, 5, "w30")
	require.NoError(t, err)
	assert.NotEqual(t, before, after)

	other, err := cache.BuildKey(ctx, 6, "w30")
	require.NoError(t, err)
	assert.Equal(t, "stockwatch:alerts:lowstock:6:v1:w30", other)
}

func (m *memoryStore) clone() *memoryStore {
	c := newMemoryStore()
	for k, v := range m.companies {
		c.companies[k] = v
	}
	for k, v := range m.warehouses {
		c.warehouses[k] = v
	}
	for k, v := range m.products {
		c.products[k] = v
	}
	for k, v := range m.inventory {
		c.inventory[k] = v
	}
	c.txns = append([]fakeTxn(nil), m.txns...)
	return c
}

// gatedStore hands out point-in-time views and holds the first one open
// until release is closed.
type gatedStore struct {
	*memoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) WithSnapshot(ctx context.Context, fn func(context.Context, Snapshot) error) error {
	g.mu.Lock()
	g.snapshots++
	view := g.memoryStore.clone()
	g.mu.Unlock()

	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return fn(ctx, view)
}

func TestLowStockAfterInvalidationSkipsInFlightComputation(t *testing.T) {
	cases := []struct {
		name  string
		cache func(t *testing.T) *Cache
	}{
		{"uncached", func(t *testing.T) *Cache { return nil }},
		{"cached", func(t *testing.T) *Cache {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return NewCache(client, time.Minute)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := singleCompany()
			store.inventory[PairKey{100, 10}] = 5
			gated := &gatedStore{memoryStore: store, entered: make(chan struct{}), release: make(chan struct{})}
			svc := newTestService(gated, tc.cache(t), defaultOpts())
			ctx := context.Background()

			released := false
			release := func() {
				if !released {
					released = true
					close(gated.release)
				}
			}
			defer release()

			before := make(chan Envelope, 1)
			go func() {
				env, err := svc.LowStock(ctx, Query{CompanyID: 1})
				assert.NoError(t, err)
				before <- env
			}()
			<-gated.entered

			store.mu.Lock()
			store.sell(100, 10, 60, 0)
			store.mu.Unlock()
			require.NoError(t, svc.InvalidateCompany(ctx, 1))

			after := make(chan Envelope, 1)
			go func() {
				env, err := svc.LowStock(ctx, Query{CompanyID: 1})
				assert.NoError(t, err)
				after <- env
			}()
			select {
			case env := <-after:
				require.Equal(t, 1, env.TotalAlerts)
				assert.Equal(t, int64(2), env.Alerts[0].DaysUntilStockout)
			case <-time.After(2 * time.Second):
				t.Fatal("request after invalidation waited on the earlier computation")
			}

			release()
			assert.Zero(t, (<-before).TotalAlerts)
			assert.Equal(t, 2, store.snapshots)
		})
	}
}

func TestLowStockZeroOptionsSuppressUnknownVelocity(t *testing.T) {
	store := singleCompany()
	store.inventory[PairKey{100, 10}] = 5

	env, err := NewService(store, nil, Options{}, nil).LowStock(context.Background(), Query{CompanyID: 1})
	require.NoError(t, err)
	assert.Zero(t, env.TotalAlerts)

	env, err = NewService(store, nil, Options{IncludeUnknownVelocity: true}, nil).LowStock(context.Background(), Query{CompanyID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, env.TotalAlerts)
}

func TestCacheWithoutClientComputesEveryRequest(t *testing.T) {
	cache := NewCache(nil, time.Minute)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, 1, "w30")
	require.NoError(t, err)
	assert.Empty(t, key)
	require.NoError(t, cache.Bump(ctx, 1))

	store := singleCompany()
	store.inventory[PairKey{100, 10}] = 5
	store.sell(100, 10, 60, 1)
	svc := newTestService(store, cache, defaultOpts())
	for i := 0; i < 2; i++ {
		env, err := svc.LowStock(ctx, Query{CompanyID: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, env.TotalAlerts)
	}
	assert.Equal(t, 2, store.snapshots)
}
