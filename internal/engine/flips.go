package engine

import (
	"sort"
	"time"

	"dxbdata/server/internal/models"
)

// Flip detection defaults: a resale counts as a flip when the unit was
// held for at most three years, and a unit must have at least two
// recorded sales before any pair is considered.
const (
	DefaultMaxHoldDays  = 3 * 365
	DefaultMinUnitSales = 2
)

// FlipConfig tunes the flip detector.
type FlipConfig struct {
	MaxHoldDays  int
	MinUnitSales int
}

// DefaultFlipConfig returns the policy used when no overrides are set.
func DefaultFlipConfig() FlipConfig {
	return FlipConfig{
		MaxHoldDays:  DefaultMaxHoldDays,
		MinUnitSales: DefaultMinUnitSales,
	}
}

// Flip is an accepted buy/sell pair of consecutive sales of the same
// unit identity.
type Flip struct {
	Building    string    `json:"building"`
	Area        string    `json:"area"`
	SubType     string    `json:"property_sub_type"`
	Bedrooms    string    `json:"bedrooms"`
	UnitSizeSqm int       `json:"unit_size_sqm"`
	BuyDate     time.Time `json:"buy_date"`
	BuyPrice    float64   `json:"buy_price"`
	SellDate    time.Time `json:"sell_date"`
	SellPrice   float64   `json:"sell_price"`
	Profit      float64   `json:"profit"`
	ProfitPct   float64   `json:"profit_pct"`
	HoldDays    int       `json:"hold_days"`
}

type flipPartition struct {
	unit UnitKey
	area string
}

// DetectFlips reconstructs the sale sequence of every unit identity and
// pairs consecutive sales. Only adjacent sales pair up: in a three-sale
// sequence A, B, C the candidates are A→B and B→C, never A→C. Records
// without a resolvable identity are skipped. Within a partition the
// order is event date ascending with record ID as tie-break, which
// keeps the output deterministic when two sales share a date.
func DetectFlips(txs []models.Transaction, cfg FlipConfig) []Flip {
	partitions := make(map[flipPartition][]*models.Transaction)
	for i := range txs {
		tx := &txs[i]
		key, ok := ResolveUnit(tx)
		if !ok {
			continue
		}
		p := flipPartition{unit: key, area: tx.AreaName}
		partitions[p] = append(partitions[p], tx)
	}

	var flips []Flip
	for part, sales := range partitions {
		if len(sales) < cfg.MinUnitSales {
			continue
		}

		sort.Slice(sales, func(i, j int) bool {
			if !sales[i].InstanceDate.Equal(sales[j].InstanceDate) {
				return sales[i].InstanceDate.Before(sales[j].InstanceDate)
			}
			return sales[i].ID < sales[j].ID
		})

		for i := 0; i < len(sales)-1; i++ {
			buy, sell := sales[i], sales[i+1]
			if !sell.InstanceDate.After(buy.InstanceDate) {
				// Same-day duplicates are not a flip.
				continue
			}
			if buy.Worth <= 0 || sell.Worth <= 0 {
				continue
			}
			holdDays := int(sell.InstanceDate.Sub(buy.InstanceDate).Hours() / 24)
			if holdDays > cfg.MaxHoldDays {
				continue
			}

			profit := sell.Worth - buy.Worth
			flips = append(flips, Flip{
				Building:    part.unit.Building,
				Area:        part.area,
				SubType:     buy.PropertySubType,
				Bedrooms:    part.unit.Bedrooms,
				UnitSizeSqm: part.unit.SizeSqm,
				BuyDate:     buy.InstanceDate,
				BuyPrice:    buy.Worth,
				SellDate:    sell.InstanceDate,
				SellPrice:   sell.Worth,
				Profit:      profit,
				ProfitPct:   Round2(profit / buy.Worth * 100),
				HoldDays:    holdDays,
			})
		}
	}

	sort.Slice(flips, func(i, j int) bool {
		if flips[i].ProfitPct != flips[j].ProfitPct {
			return flips[i].ProfitPct > flips[j].ProfitPct
		}
		if flips[i].Building != flips[j].Building {
			return flips[i].Building < flips[j].Building
		}
		return flips[i].BuyDate.Before(flips[j].BuyDate)
	})
	return flips
}

// AreaFlipStats aggregates accepted flips for one area.
type AreaFlipStats struct {
	Area            string  `json:"area"`
	TotalFlips      int     `json:"total_flips"`
	AvgProfit       float64 `json:"avg_profit"`
	AvgProfitPct    float64 `json:"avg_profit_pct"`
	MedianProfitPct float64 `json:"median_profit_pct"`
	AvgHoldDays     float64 `json:"avg_hold_days"`
	WorstFlipPct    float64 `json:"worst_flip_pct"`
	BestFlipPct     float64 `json:"best_flip_pct"`
	ProfitableFlips int     `json:"profitable_flips"`
	SuccessRatePct  float64 `json:"success_rate_pct"`
}

// FlipStatsByArea aggregates flips per area, keeping only areas with at
// least minFlips accepted flips.
func FlipStatsByArea(flips []Flip, minFlips int) []AreaFlipStats {
	byArea := make(map[string][]Flip)
	for _, f := range flips {
		if f.Area == "" {
			continue
		}
		byArea[f.Area] = append(byArea[f.Area], f)
	}

	var stats []AreaFlipStats
	for area, group := range byArea {
		if len(group) < minFlips {
			continue
		}

		var profitSum, pctSum, holdSum float64
		var profitable int
		pcts := make([]float64, 0, len(group))
		worst, best := group[0].ProfitPct, group[0].ProfitPct
		for _, f := range group {
			profitSum += f.Profit
			pctSum += f.ProfitPct
			holdSum += float64(f.HoldDays)
			pcts = append(pcts, f.ProfitPct)
			if f.Profit > 0 {
				profitable++
			}
			if f.ProfitPct < worst {
				worst = f.ProfitPct
			}
			if f.ProfitPct > best {
				best = f.ProfitPct
			}
		}

		n := float64(len(group))
		stats = append(stats, AreaFlipStats{
			Area:            area,
			TotalFlips:      len(group),
			AvgProfit:       Round2(profitSum / n),
			AvgProfitPct:    Round2(pctSum / n),
			MedianProfitPct: Round2(Percentile(pcts, 50)),
			AvgHoldDays:     Round2(holdSum / n),
			WorstFlipPct:    worst,
			BestFlipPct:     best,
			ProfitableFlips: profitable,
			SuccessRatePct:  Round2(float64(profitable) / n * 100),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].AvgProfitPct != stats[j].AvgProfitPct {
			return stats[i].AvgProfitPct > stats[j].AvgProfitPct
		}
		return stats[i].Area < stats[j].Area
	})
	return stats
}

// BuildingFlipStats aggregates accepted flips for one building.
type BuildingFlipStats struct {
	Building       string  `json:"building"`
	Area           string  `json:"area"`
	TotalFlips     int     `json:"total_flips"`
	AvgProfit      float64 `json:"avg_profit"`
	AvgProfitPct   float64 `json:"avg_profit_pct"`
	SuccessRatePct float64 `json:"success_rate_pct"`
}

// FlipStatsByBuilding aggregates flips per (building, area), keeping
// only buildings with at least minFlips accepted flips.
func FlipStatsByBuilding(flips []Flip, minFlips int) []BuildingFlipStats {
	type buildingKey struct{ building, area string }
	byBuilding := make(map[buildingKey][]Flip)
	for _, f := range flips {
		k := buildingKey{building: f.Building, area: f.Area}
		byBuilding[k] = append(byBuilding[k], f)
	}

	var stats []BuildingFlipStats
	for k, group := range byBuilding {
		if len(group) < minFlips {
			continue
		}

		var profitSum, pctSum float64
		var profitable int
		for _, f := range group {
			profitSum += f.Profit
			pctSum += f.ProfitPct
			if f.Profit > 0 {
				profitable++
			}
		}

		n := float64(len(group))
		stats = append(stats, BuildingFlipStats{
			Building:       k.building,
			Area:           k.area,
			TotalFlips:     len(group),
			AvgProfit:      Round2(profitSum / n),
			AvgProfitPct:   Round2(pctSum / n),
			SuccessRatePct: Round2(float64(profitable) / n * 100),
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].AvgProfitPct != stats[j].AvgProfitPct {
			return stats[i].AvgProfitPct > stats[j].AvgProfitPct
		}
		return stats[i].Building < stats[j].Building
	})
	return stats
}
