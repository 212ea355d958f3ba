package engine

import (
	"sort"
	"time"

	"dxbdata/server/internal/models"
)

// DefaultLaunchWindow is how many of a project's earliest and latest
// sales feed the launch-versus-current price comparison.
const DefaultLaunchWindow = 5

// DefaultDelayedYears is how old a project's first off-plan sale must
// be before the absence of ready sales counts as a potential delay.
const DefaultDelayedYears = 4

// IsOffPlan reports whether a registration type marks an off-plan
// sale. Source feeds vary between "Off-plan Properties" and free-form
// variants, so the match is a folded substring check.
func IsOffPlan(regType string) bool {
	return containsFold(regType, "off") && containsFold(regType, "plan")
}

func isReadySale(regType string) bool {
	return containsFold(regType, "existing")
}

// ProjectPriceChange compares a project's launch pricing with its most
// recent pricing, both as average unit prices over a small window of
// sales.
type ProjectPriceChange struct {
	Project         string    `json:"project"`
	Area            string    `json:"area"`
	Developer       string    `json:"developer"`
	TotalSales      int       `json:"total_sales"`
	LaunchPriceSqm  float64   `json:"launch_price_sqm"`
	CurrentPriceSqm float64   `json:"current_price_sqm"`
	PriceChangePct  *float64  `json:"price_change_pct"`
	LatestSale      time.Time `json:"latest_sale"`
}

// PriceChangeFromLaunch computes, per project, the average unit price
// of the first window chronological sales against the average of the
// most recent window sales. Projects with fewer than minSales priced
// records are omitted. Ties on the sale date break by record ID.
func PriceChangeFromLaunch(txs []models.Transaction, window, minSales int) []ProjectPriceChange {
	if window <= 0 {
		window = DefaultLaunchWindow
	}

	byProject := make(map[string][]*models.Transaction)
	for i := range txs {
		tx := &txs[i]
		if tx.ProjectName == "" || tx.UnitPrice() <= 0 {
			continue
		}
		byProject[tx.ProjectName] = append(byProject[tx.ProjectName], tx)
	}

	var changes []ProjectPriceChange
	for project, sales := range byProject {
		if len(sales) < minSales {
			continue
		}

		sort.Slice(sales, func(i, j int) bool {
			if !sales[i].InstanceDate.Equal(sales[j].InstanceDate) {
				return sales[i].InstanceDate.Before(sales[j].InstanceDate)
			}
			return sales[i].ID < sales[j].ID
		})

		n := window
		if n > len(sales) {
			n = len(sales)
		}
		var launchSum, currentSum float64
		for i := 0; i < n; i++ {
			launchSum += sales[i].UnitPrice()
			currentSum += sales[len(sales)-n+i].UnitPrice()
		}
		launch := launchSum / float64(n)
		current := currentSum / float64(n)

		latest := sales[len(sales)-1]
		changes = append(changes, ProjectPriceChange{
			Project:         project,
			Area:            latest.AreaName,
			Developer:       latest.Developer,
			TotalSales:      len(sales),
			LaunchPriceSqm:  Round2(launch),
			CurrentPriceSqm: Round2(current),
			PriceChangePct:  PctChange(current, launch),
			LatestSale:      latest.InstanceDate,
		})
	}

	sort.Slice(changes, func(i, j int) bool {
		pi, pj := changes[i].PriceChangePct, changes[j].PriceChangePct
		if pi == nil && pj == nil {
			return changes[i].Project < changes[j].Project
		}
		if pi == nil {
			return false
		}
		if pj == nil {
			return true
		}
		if *pi != *pj {
			return *pi > *pj
		}
		return changes[i].Project < changes[j].Project
	})
	return changes
}

// OffPlanProject summarises the off-plan sales recorded for one
// project.
type OffPlanProject struct {
	Project     string    `json:"project"`
	Developer   string    `json:"developer"`
	Area        string    `json:"area"`
	TotalSales  int       `json:"total_sales"`
	FirstSale   time.Time `json:"first_sale"`
	LatestSale  time.Time `json:"latest_sale"`
	AvgPriceSqm float64   `json:"avg_price_sqm"`
	MinPriceSqm float64   `json:"min_price_sqm"`
	MaxPriceSqm float64   `json:"max_price_sqm"`
	TotalValue  float64   `json:"total_value"`
	AvgSizeSqm  float64   `json:"avg_size_sqm"`
}

// OffPlanProjects groups off-plan sales by project and returns one
// summary per project with at least minUnits recorded sales, busiest
// projects first.
func OffPlanProjects(txs []models.Transaction, minUnits int) []OffPlanProject {
	type projectKey struct{ project, developer, area string }
	groups := make(map[projectKey][]*models.Transaction)
	for i := range txs {
		tx := &txs[i]
		if tx.ProjectName == "" || !IsOffPlan(tx.RegType) {
			continue
		}
		k := projectKey{project: tx.ProjectName, developer: tx.Developer, area: tx.AreaName}
		groups[k] = append(groups[k], tx)
	}

	var projects []OffPlanProject
	for k, sales := range groups {
		if len(sales) < minUnits {
			continue
		}

		p := OffPlanProject{
			Project:    k.project,
			Developer:  k.developer,
			Area:       k.area,
			TotalSales: len(sales),
			FirstSale:  sales[0].InstanceDate,
			LatestSale: sales[0].InstanceDate,
		}
		var priceSum, sizeSum float64
		var priced, sized int
		for _, tx := range sales {
			if tx.InstanceDate.Before(p.FirstSale) {
				p.FirstSale = tx.InstanceDate
			}
			if tx.InstanceDate.After(p.LatestSale) {
				p.LatestSale = tx.InstanceDate
			}
			p.TotalValue += tx.Worth
			if price := tx.UnitPrice(); price > 0 {
				priceSum += price
				priced++
				if p.MinPriceSqm == 0 || price < p.MinPriceSqm {
					p.MinPriceSqm = Round2(price)
				}
				if price > p.MaxPriceSqm {
					p.MaxPriceSqm = Round2(price)
				}
			}
			if tx.Size > 0 {
				sizeSum += tx.Size
				sized++
			}
		}
		if priced > 0 {
			p.AvgPriceSqm = Round2(priceSum / float64(priced))
		}
		if sized > 0 {
			p.AvgSizeSqm = Round2(sizeSum / float64(sized))
		}
		p.TotalValue = Round2(p.TotalValue)
		projects = append(projects, p)
	}

	sort.Slice(projects, func(i, j int) bool {
		if projects[i].TotalSales != projects[j].TotalSales {
			return projects[i].TotalSales > projects[j].TotalSales
		}
		return projects[i].Project < projects[j].Project
	})
	return projects
}

// DelayedProject flags a project whose off-plan sales started long ago
// without any ready sale appearing since, a pattern consistent with a
// stalled handover.
type DelayedProject struct {
	Project           string    `json:"project"`
	Developer         string    `json:"developer"`
	Area              string    `json:"area"`
	FirstOffPlanSale  time.Time `json:"first_offplan_sale"`
	LatestOffPlanSale time.Time `json:"latest_offplan_sale"`
	TotalOffPlanSales int       `json:"total_offplan_sales"`
	YearsSinceLaunch  int       `json:"years_since_launch"`
}

// DelayedProjects returns projects whose first off-plan sale is more
// than yearsThreshold years before now and that have no ready sale on
// record, oldest launch first.
func DelayedProjects(txs []models.Transaction, yearsThreshold int, now time.Time) []DelayedProject {
	if yearsThreshold <= 0 {
		yearsThreshold = DefaultDelayedYears
	}
	cutoff := now.AddDate(-yearsThreshold, 0, 0)

	ready := make(map[string]bool)
	offPlan := make(map[string]*DelayedProject)
	for i := range txs {
		tx := &txs[i]
		if tx.ProjectName == "" {
			continue
		}
		if isReadySale(tx.RegType) {
			ready[foldKey(tx.ProjectName)] = true
			continue
		}
		if !IsOffPlan(tx.RegType) {
			continue
		}

		key := foldKey(tx.ProjectName)
		p, seen := offPlan[key]
		if !seen {
			offPlan[key] = &DelayedProject{
				Project:           tx.ProjectName,
				Developer:         tx.Developer,
				Area:              tx.AreaName,
				FirstOffPlanSale:  tx.InstanceDate,
				LatestOffPlanSale: tx.InstanceDate,
				TotalOffPlanSales: 1,
			}
			continue
		}
		p.TotalOffPlanSales++
		if tx.InstanceDate.Before(p.FirstOffPlanSale) {
			p.FirstOffPlanSale = tx.InstanceDate
		}
		if tx.InstanceDate.After(p.LatestOffPlanSale) {
			p.LatestOffPlanSale = tx.InstanceDate
		}
	}

	var delayed []DelayedProject
	for key, p := range offPlan {
		if ready[key] || !p.FirstOffPlanSale.Before(cutoff) {
			continue
		}
		p.YearsSinceLaunch = int(now.Sub(p.FirstOffPlanSale).Hours() / 24 / 365)
		delayed = append(delayed, *p)
	}

	sort.Slice(delayed, func(i, j int) bool {
		if !delayed[i].FirstOffPlanSale.Equal(delayed[j].FirstOffPlanSale) {
			return delayed[i].FirstOffPlanSale.Before(delayed[j].FirstOffPlanSale)
		}
		return delayed[i].Project < delayed[j].Project
	})
	return delayed
}
