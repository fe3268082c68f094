package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateVelocityUsesFixedWindow(t *testing.T) {
	totals := []ConsumptionTotal{
		{Key: PairKey{ProductID: 1, WarehouseID: 1}, TotalConsumed: 60},
		{Key: PairKey{ProductID: 2, WarehouseID: 1}, TotalConsumed: 3},
		{Key: PairKey{ProductID: 3, WarehouseID: 1}, TotalConsumed: 0},
	}
	v := AggregateVelocity(totals, 30)

	assert.InDelta(t, 2.0, v[PairKey{1, 1}], 1e-9)
	assert.InDelta(t, 0.1, v[PairKey{2, 1}], 1e-9)
	_, ok := v[PairKey{3, 1}]
	assert.False(t, ok, "pairs without consumption are absent")
}

func TestDaysUntilStockout(t *testing.T) {
	tests := []struct {
		stock int64
		avg   float64
		want  int64
	}{
		{stock: 5, avg: 2, want: 2},
		{stock: 10, avg: 2.5, want: 4},
		{stock: 5, avg: 0, want: 5},
		{stock: 1, avg: 3, want: 1},
		{stock: 0, avg: 2, want: 1},
		{stock: -4, avg: 1, want: 1},
		{stock: 9, avg: 0.5, want: 18},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DaysUntilStockout(tt.stock, tt.avg), "stock=%d avg=%v", tt.stock, tt.avg)
	}
}

func TestEvaluateRisk(t *testing.T) {
	levels := []StockLevel{
		{Key: PairKey{1, 1}, CurrentStock: 5, Threshold: 10},
		{Key: PairKey{2, 1}, CurrentStock: 10, Threshold: 10},
		{Key: PairKey{3, 1}, CurrentStock: 3, Threshold: 10},
	}
	velocity := Velocity{PairKey{1, 1}: 2, PairKey{2, 1}: 50}

	risks := EvaluateRisk(levels, velocity, true)
	require.Len(t, risks, 1)
	assert.Equal(t, PairKey{1, 1}, risks[0].Key)
	assert.Equal(t, int64(2), risks[0].DaysUntilStockout)
	assert.True(t, risks[0].VelocityKnown)

	risks = EvaluateRisk(levels, velocity, false)
	require.Len(t, risks, 2)
	assert.Equal(t, PairKey{3, 1}, risks[1].Key)
	assert.False(t, risks[1].VelocityKnown)
	assert.Equal(t, int64(3), risks[1].DaysUntilStockout)
}

func TestEvaluateRiskNeverBelowOneDay(t *testing.T) {
	var levels []StockLevel
	velocity := Velocity{}
	for i := int64(1); i <= 50; i++ {
		key := PairKey{ProductID: i, WarehouseID: 1}
		levels = append(levels, StockLevel{Key: key, CurrentStock: i % 7, Threshold: 10})
		velocity[key] = float64(i) / 3
	}
	for _, r := range EvaluateRisk(levels, velocity, true) {
		assert.GreaterOrEqual(t, r.DaysUntilStockout, int64(1))
	}
}

func TestAssembleOrdersAndEnriches(t *testing.T) {
	risks := []Risk{
		{Key: PairKey{2, 5}, CurrentStock: 1, Threshold: 4, DaysUntilStockout: 1, AvgDailyConsumed: 1, VelocityKnown: true},
		{Key: PairKey{1, 7}, CurrentStock: 2, Threshold: 4, DaysUntilStockout: 2, AvgDailyConsumed: 1, VelocityKnown: true},
		{Key: PairKey{1, 5}, CurrentStock: 3, Threshold: 4, DaysUntilStockout: 3, AvgDailyConsumed: 1, VelocityKnown: true},
	}
	supplier := &SupplierContact{ID: 9, Name: "Acme", ContactEmail: "orders@acme.test"}
	catalog := Catalog{
		Products: map[int64]ProductInfo{
			1: {Name: "Widget", SKU: "W-1", Supplier: supplier},
			2: {Name: "Gadget", SKU: "G-1"},
		},
		Warehouses: map[int64]string{5: "Main", 7: "Overflow"},
	}
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	env := Assemble(3, 30, at, risks, catalog)

	require.Equal(t, 3, env.TotalAlerts)
	assert.Equal(t, int64(3), env.CompanyID)
	assert.Equal(t, 30, env.WindowDays)
	assert.Equal(t, []PairKey{{1, 5}, {1, 7}, {2, 5}}, []PairKey{
		{env.Alerts[0].ProductID, env.Alerts[0].WarehouseID},
		{env.Alerts[1].ProductID, env.Alerts[1].WarehouseID},
		{env.Alerts[2].ProductID, env.Alerts[2].WarehouseID},
	})
	assert.Equal(t, "Widget", env.Alerts[0].ProductName)
	assert.Equal(t, "Overflow", env.Alerts[1].WarehouseName)
	assert.Equal(t, supplier, env.Alerts[0].Supplier)
	assert.Nil(t, env.Alerts[2].Supplier)
}

func TestAssembleEmpty(t *testing.T) {
	env := Assemble(1, 30, time.Now(), nil, Catalog{})
	assert.NotNil(t, env.Alerts)
	assert.Empty(t, env.Alerts)
	assert.Zero(t, env.TotalAlerts)
}
