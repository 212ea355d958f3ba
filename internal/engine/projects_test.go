package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dxbdata/server/internal/models"
)

func projectSale(id uint, project string, day int, priceSqm float64) models.Transaction {
	base := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	return models.Transaction{
		ID:             id,
		InstanceDate:   base.AddDate(0, 0, day),
		AreaName:       "Business Bay",
		ProjectName:    project,
		Developer:      "Example Developments",
		Size:           100,
		MeterSalePrice: priceSqm,
	}
}

func TestPriceChangeFromLaunch(t *testing.T) {
	txs := []models.Transaction{
		projectSale(1, "Bay Tower", 0, 1000),
		projectSale(2, "Bay Tower", 30, 1200),
		projectSale(3, "Bay Tower", 400, 1400),
	}

	changes := PriceChangeFromLaunch(txs, 2, 3)
	assert.Len(t, changes, 1)

	c := changes[0]
	assert.Equal(t, "Bay Tower", c.Project)
	assert.Equal(t, 3, c.TotalSales)
	// First two sales versus last two
	assert.Equal(t, 1100.0, c.LaunchPriceSqm)
	assert.Equal(t, 1300.0, c.CurrentPriceSqm)
	assert.NotNil(t, c.PriceChangePct)
	assert.Equal(t, 18.18, *c.PriceChangePct)
	assert.Equal(t, "Example Developments", c.Developer)
}

func TestPriceChangeFromLaunch_WindowClampsToSalesCount(t *testing.T) {
	// Two sales against the default window of five: both windows cover
	// both sales, so launch equals current.
	txs := []models.Transaction{
		projectSale(1, "Small", 0, 1000),
		projectSale(2, "Small", 100, 2000),
	}

	changes := PriceChangeFromLaunch(txs, 0, 2)
	assert.Len(t, changes, 1)
	assert.Equal(t, changes[0].LaunchPriceSqm, changes[0].CurrentPriceSqm)
	assert.Equal(t, 0.0, *changes[0].PriceChangePct)
}

func TestPriceChangeFromLaunch_Exclusions(t *testing.T) {
	noProject := projectSale(1, "", 0, 1000)
	noPrice := projectSale(2, "Ghost", 0, 0)
	noPrice.Worth = 0

	txs := []models.Transaction{
		noProject,
		noPrice,
		projectSale(3, "Thin", 0, 1000), // one priced sale, below minSales
	}

	changes := PriceChangeFromLaunch(txs, 5, 2)
	assert.Empty(t, changes)
}

func TestPriceChangeFromLaunch_SortedByChangeDescending(t *testing.T) {
	txs := []models.Transaction{
		projectSale(1, "Riser", 0, 1000),
		projectSale(2, "Riser", 300, 1500),
		projectSale(3, "Faller", 0, 1000),
		projectSale(4, "Faller", 300, 800),
	}

	changes := PriceChangeFromLaunch(txs, 1, 2)
	assert.Len(t, changes, 2)
	assert.Equal(t, "Riser", changes[0].Project)
	assert.Equal(t, "Faller", changes[1].Project)
}

func offPlanSale(id uint, project string, day int, priceSqm float64) models.Transaction {
	tx := projectSale(id, project, day, priceSqm)
	tx.RegType = "Off-plan Properties"
	tx.Worth = priceSqm * tx.Size
	return tx
}

func TestIsOffPlan(t *testing.T) {
	assert.True(t, IsOffPlan("Off-plan Properties"))
	assert.True(t, IsOffPlan("OFF PLAN"))
	assert.False(t, IsOffPlan("Existing Properties"))
	assert.False(t, IsOffPlan(""))
}

func TestOffPlanProjects(t *testing.T) {
	ready := projectSale(5, "Bay Tower", 10, 1500)
	ready.RegType = "Existing Properties"

	txs := []models.Transaction{
		offPlanSale(1, "Bay Tower", 0, 1000),
		offPlanSale(2, "Bay Tower", 30, 1200),
		offPlanSale(3, "Bay Tower", 60, 1400),
		offPlanSale(4, "Thin", 0, 900), // below minUnits
		ready,                          // ready sales stay out of the tracker
	}

	projects := OffPlanProjects(txs, 2)
	assert.Len(t, projects, 1)

	p := projects[0]
	assert.Equal(t, "Bay Tower", p.Project)
	assert.Equal(t, 3, p.TotalSales)
	assert.Equal(t, 1200.0, p.AvgPriceSqm)
	assert.Equal(t, 1000.0, p.MinPriceSqm)
	assert.Equal(t, 1400.0, p.MaxPriceSqm)
	assert.Equal(t, 100.0, p.AvgSizeSqm)
	assert.Equal(t, 360000.0, p.TotalValue)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), p.FirstSale)
	assert.Equal(t, time.Date(2022, 3, 2, 0, 0, 0, 0, time.UTC), p.LatestSale)
}

func TestOffPlanProjects_SortedByVolume(t *testing.T) {
	txs := []models.Transaction{
		offPlanSale(1, "Busy", 0, 1000),
		offPlanSale(2, "Busy", 10, 1000),
		offPlanSale(3, "Busy", 20, 1000),
		offPlanSale(4, "Quiet", 0, 1000),
		offPlanSale(5, "Quiet", 10, 1000),
	}

	projects := OffPlanProjects(txs, 1)
	assert.Len(t, projects, 2)
	assert.Equal(t, "Busy", projects[0].Project)
	assert.Equal(t, "Quiet", projects[1].Project)
}

func TestDelayedProjects(t *testing.T) {
	now := time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)

	handedOver := offPlanSale(3, "Delivered", 0, 1000)
	readySale := projectSale(4, "Delivered", 1500, 1200)
	readySale.RegType = "Existing Properties"
	recent := offPlanSale(5, "Fresh", 1400, 1000)

	txs := []models.Transaction{
		// First sale 2022-01-01, over five years before now, no ready sale
		offPlanSale(1, "Stalled", 0, 1000),
		offPlanSale(2, "Stalled", 200, 1100),
		handedOver,
		readySale,
		recent,
	}

	delayed := DelayedProjects(txs, 4, now)
	assert.Len(t, delayed, 1)

	d := delayed[0]
	assert.Equal(t, "Stalled", d.Project)
	assert.Equal(t, 2, d.TotalOffPlanSales)
	assert.Equal(t, 5, d.YearsSinceLaunch)
	assert.Equal(t, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), d.FirstOffPlanSale)
}

func TestDelayedProjects_ReadySaleMatchIsCaseInsensitive(t *testing.T) {
	now := time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC)

	readySale := projectSale(2, "bay tower", 1500, 1200)
	readySale.RegType = "Existing Properties"

	txs := []models.Transaction{
		offPlanSale(1, "Bay Tower", 0, 1000),
		readySale,
	}

	assert.Empty(t, DelayedProjects(txs, 4, now))
}
