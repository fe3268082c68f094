package alerts

import (
	"math"
	"sort"
	"time"
)

// AggregateVelocity turns window totals into average daily consumption using
// the full window length as divisor.
func AggregateVelocity(totals []ConsumptionTotal, windowDays int) Velocity {
	v := make(Velocity, len(totals))
	if windowDays <= 0 {
		return v
	}
	for _, t := range totals {
		if t.TotalConsumed <= 0 {
			continue
		}
		v[t.Key] += float64(t.TotalConsumed) / float64(windowDays)
	}
	return v
}

// DaysUntilStockout estimates runway. A zero or missing rate counts as one
// unit per day, and the result is never below one.
func DaysUntilStockout(currentStock int64, avgDaily float64) int64 {
	if avgDaily <= 0 || math.IsNaN(avgDaily) {
		avgDaily = 1
	}
	days := int64(math.Floor(float64(currentStock) / avgDaily))
	if days < 1 {
		return 1
	}
	return days
}

// EvaluateRisk keeps pairs whose stock is below threshold. With
// suppressUnknown set, pairs without a velocity entry are dropped.
func EvaluateRisk(levels []StockLevel, velocity Velocity, suppressUnknown bool) []Risk {
	risks := make([]Risk, 0)
	for _, lvl := range levels {
		if lvl.CurrentStock >= lvl.Threshold {
			continue
		}
		avg, known := velocity[lvl.Key]
		if !known && suppressUnknown {
			continue
		}
		risks = append(risks, Risk{
			Key:               lvl.Key,
			CurrentStock:      lvl.CurrentStock,
			Threshold:         lvl.Threshold,
			DaysUntilStockout: DaysUntilStockout(lvl.CurrentStock, avg),
			AvgDailyConsumed:  avg,
			VelocityKnown:     known,
		})
	}
	return risks
}

// Assemble enriches risks from the catalog and builds the envelope, ordered
// by product then warehouse.
func Assemble(companyID int64, windowDays int, generatedAt time.Time, risks []Risk, catalog Catalog) Envelope {
	alerts := make([]Alert, 0, len(risks))
	for _, r := range risks {
		product := catalog.Products[r.Key.ProductID]
		alerts = append(alerts, Alert{
			ProductID:         r.Key.ProductID,
			ProductName:       product.Name,
			SKU:               product.SKU,
			WarehouseID:       r.Key.WarehouseID,
			WarehouseName:     catalog.Warehouses[r.Key.WarehouseID],
			CurrentStock:      r.CurrentStock,
			Threshold:         r.Threshold,
			DaysUntilStockout: r.DaysUntilStockout,
			AvgDailyConsumed:  math.Round(r.AvgDailyConsumed*1000) / 1000,
			VelocityKnown:     r.VelocityKnown,
			Supplier:          product.Supplier,
		})
	}
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].ProductID != alerts[j].ProductID {
			return alerts[i].ProductID < alerts[j].ProductID
		}
		return alerts[i].WarehouseID < alerts[j].WarehouseID
	})
	return Envelope{
		CompanyID:   companyID,
		WindowDays:  windowDays,
		GeneratedAt: generatedAt,
		Alerts:      alerts,
		TotalAlerts: len(alerts),
	}
}
