package engine

import (
	"sort"

	"dxbdata/server/internal/models"
)

// SalesStats summarizes a set of sale transactions.
type SalesStats struct {
	TotalTransactions int     `json:"total_transactions"`
	TotalValue        float64 `json:"total_value"`
	AvgPrice          float64 `json:"avg_price"`
	AvgUnitPrice      float64 `json:"avg_price_sqm"`
}

// SalesSummary reduces transactions to headline numbers. Records with
// a missing worth or unit price are excluded from the respective
// averages but still counted.
func SalesSummary(txs []models.Transaction) SalesStats {
	stats := SalesStats{TotalTransactions: len(txs)}
	var worthCount, unitCount int
	var unitSum float64
	for i := range txs {
		tx := &txs[i]
		if tx.Worth > 0 {
			stats.TotalValue += tx.Worth
			worthCount++
		}
		if p := tx.UnitPrice(); p > 0 {
			unitSum += p
			unitCount++
		}
	}
	if worthCount > 0 {
		stats.AvgPrice = Round2(stats.TotalValue / float64(worthCount))
	}
	if unitCount > 0 {
		stats.AvgUnitPrice = Round2(unitSum / float64(unitCount))
	}
	return stats
}

// MonthlyTrend is one month of sale activity.
type MonthlyTrend struct {
	Month        string  `json:"month"`
	Transactions int     `json:"transactions"`
	AvgUnitPrice float64 `json:"avg_price_sqm"`
	TotalValue   float64 `json:"total_value"`
}

// MonthlyTrends buckets transactions per calendar month, oldest first.
func MonthlyTrends(txs []models.Transaction) []MonthlyTrend {
	unitBuckets := Aggregate(txs,
		func(tx models.Transaction) string { return MonthKey(tx.InstanceDate) },
		func(tx models.Transaction) (float64, bool) {
			p := tx.UnitPrice()
			return p, p > 0
		})
	worthBuckets := Aggregate(txs,
		func(tx models.Transaction) string { return MonthKey(tx.InstanceDate) },
		func(tx models.Transaction) (float64, bool) { return tx.Worth, tx.Worth > 0 })

	trends := make([]MonthlyTrend, 0, len(unitBuckets))
	for i, b := range unitBuckets {
		trends = append(trends, MonthlyTrend{
			Month:        b.Key,
			Transactions: b.Count,
			AvgUnitPrice: Round2(b.Mean),
			TotalValue:   worthBuckets[i].Sum,
		})
	}
	return trends
}

// AreaStats is the per-area transaction rollup.
type AreaStats struct {
	Area             string  `json:"area"`
	TransactionCount int     `json:"transaction_count"`
	AvgPrice         float64 `json:"avg_price"`
	AvgUnitPrice     float64 `json:"avg_price_sqm"`
}

// AreaBreakdown aggregates transactions per area, busiest areas first.
// Records without an area name are dropped.
func AreaBreakdown(txs []models.Transaction) []AreaStats {
	named := make([]models.Transaction, 0, len(txs))
	for i := range txs {
		if txs[i].AreaName != "" {
			named = append(named, txs[i])
		}
	}

	worthBuckets := Aggregate(named,
		func(tx models.Transaction) string { return tx.AreaName },
		func(tx models.Transaction) (float64, bool) { return tx.Worth, tx.Worth > 0 })
	unitBuckets := Aggregate(named,
		func(tx models.Transaction) string { return tx.AreaName },
		func(tx models.Transaction) (float64, bool) {
			p := tx.UnitPrice()
			return p, p > 0
		})

	stats := make([]AreaStats, 0, len(worthBuckets))
	for i, b := range worthBuckets {
		stats = append(stats, AreaStats{
			Area:             b.Key,
			TransactionCount: b.Count,
			AvgPrice:         Round2(b.Mean),
			AvgUnitPrice:     Round2(unitBuckets[i].Mean),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TransactionCount != stats[j].TransactionCount {
			return stats[i].TransactionCount > stats[j].TransactionCount
		}
		return stats[i].Area < stats[j].Area
	})
	return stats
}

// RentalStats summarizes a set of rental contracts.
type RentalStats struct {
	TotalContracts int     `json:"total_contracts"`
	AvgAnnualRent  float64 `json:"avg_annual_rent"`
	AvgRentSqm     float64 `json:"avg_rent_sqm"`
	MinRent        float64 `json:"min_rent"`
	MaxRent        float64 `json:"max_rent"`
}

// RentalSummary reduces rental contracts to headline numbers.
func RentalSummary(rentals []models.Rental) RentalStats {
	stats := RentalStats{TotalContracts: len(rentals)}
	var rentCount, sqmCount int
	var rentSum, sqmSum float64
	for i := range rentals {
		r := &rentals[i]
		if r.AnnualAmount > 0 {
			rentSum += r.AnnualAmount
			rentCount++
			if stats.MinRent == 0 || r.AnnualAmount < stats.MinRent {
				stats.MinRent = r.AnnualAmount
			}
			if r.AnnualAmount > stats.MaxRent {
				stats.MaxRent = r.AnnualAmount
			}
			if r.Size > 0 {
				sqmSum += r.AnnualAmount / r.Size
				sqmCount++
			}
		}
	}
	if rentCount > 0 {
		stats.AvgAnnualRent = Round2(rentSum / float64(rentCount))
	}
	if sqmCount > 0 {
		stats.AvgRentSqm = Round2(sqmSum / float64(sqmCount))
	}
	return stats
}

// RentalYearTrends buckets rentals per calendar year and derives
// year-over-year changes in average rent and contract volume.
func RentalYearTrends(rentals []models.Rental) []YoYPoint {
	annual := Aggregate(rentals,
		func(r models.Rental) string { return YearKey(r.ContractStartDate) },
		func(r models.Rental) (float64, bool) { return r.AnnualAmount, r.AnnualAmount > 0 })
	return YearOverYear(annual)
}
