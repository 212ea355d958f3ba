package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dxbdata/server/internal/models"
)

func rentalIn(area string, start time.Time, rent float64) models.Rental {
	return models.Rental{
		ContractStartDate: start,
		AreaName:          area,
		AnnualAmount:      rent,
		Size:              80,
	}
}

func TestSeasonality_UniformDataIndexesAt100(t *testing.T) {
	// One contract per calendar month: every index must be exactly 100.
	var rentals []models.Rental
	for m := 1; m <= 12; m++ {
		rentals = append(rentals, rentalIn("Marina",
			time.Date(2024, time.Month(m), 10, 0, 0, 0, 0, time.UTC), 100000))
	}

	profile := Seasonality(rentals)
	assert.Len(t, profile.Months, 12)
	for _, m := range profile.Months {
		assert.Equal(t, 100, m.SeasonalIndex, "month %s", m.MonthName)
	}
}

func TestSeasonality_PeakAndLow(t *testing.T) {
	rentals := []models.Rental{
		rentalIn("Marina", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), 100000),
		rentalIn("Marina", time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC), 120000),
		rentalIn("Marina", time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC), 80000),
		rentalIn("Marina", time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC), 90000),
	}

	profile := Seasonality(rentals)
	assert.NotNil(t, profile.PeakMonth)
	assert.NotNil(t, profile.LowMonth)
	assert.Equal(t, "Jan", profile.PeakMonth.MonthName)
	assert.Equal(t, 3, profile.PeakMonth.Contracts)
	assert.Equal(t, 100000.0, profile.PeakMonth.AvgRent)
	assert.Equal(t, 0, profile.LowMonth.Contracts)
}

func TestSeasonality_Empty(t *testing.T) {
	profile := Seasonality(nil)
	assert.Empty(t, profile.Months)
	assert.Nil(t, profile.PeakMonth)
	assert.Nil(t, profile.LowMonth)
}

func TestVacancySignals_Classification(t *testing.T) {
	// Setup: a fixed "now" splits contracts into a recent six-month
	// window and the six months before it.
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	recent := now.AddDate(0, -1, 0)
	prev := now.AddDate(0, -8, 0)

	var rentals []models.Rental
	addContracts := func(area string, when time.Time, n int, rent float64) {
		for i := 0; i < n; i++ {
			rentals = append(rentals, rentalIn(area, when, rent))
		}
	}

	// Sharp volume drop with falling rents
	addContracts("HighRisk", prev, 10, 100000)
	addContracts("HighRisk", recent, 7, 90000)
	// Moderate volume drop, rents steady
	addContracts("Cooling", prev, 10, 100000)
	addContracts("Cooling", recent, 8, 100000)
	// Volume rising sharply
	addContracts("Hot", prev, 5, 100000)
	addContracts("Hot", recent, 7, 110000)
	// Flat
	addContracts("Flat", prev, 10, 100000)
	addContracts("Flat", recent, 10, 100000)
	// No prior-window activity at all
	addContracts("Fresh", recent, 3, 100000)
	// Prior window below the sample floor
	addContracts("Thin", prev, 2, 100000)
	addContracts("Thin", recent, 2, 100000)

	// Test
	signals := VacancySignals(rentals, now, 3)

	// Assert
	byArea := make(map[string]VacancySignal)
	for _, s := range signals {
		byArea[s.Area] = s
	}
	assert.Equal(t, SignalHighVacancy, byArea["HighRisk"].Signal)
	assert.Equal(t, SignalModerateVacancy, byArea["Cooling"].Signal)
	assert.Equal(t, SignalHighDemand, byArea["Hot"].Signal)
	assert.Equal(t, SignalStable, byArea["Flat"].Signal)
	assert.Equal(t, SignalInsufficientData, byArea["Fresh"].Signal)
	assert.Equal(t, SignalInsufficientData, byArea["Thin"].Signal)

	// Undefined ratios stay nil instead of collapsing to zero
	assert.Nil(t, byArea["Fresh"].VolumeChangePct)
	assert.Nil(t, byArea["Fresh"].RentChangePct)

	assert.NotNil(t, byArea["HighRisk"].VolumeChangePct)
	assert.Equal(t, -30.0, *byArea["HighRisk"].VolumeChangePct)
	assert.Equal(t, -10.0, *byArea["HighRisk"].RentChangePct)

	// Worst drops lead the list; areas without a defined change trail it
	assert.Equal(t, "HighRisk", signals[0].Area)
	last := signals[len(signals)-1]
	assert.Nil(t, last.VolumeChangePct)
}

func TestGrossYields(t *testing.T) {
	// Setup: sales named "marina" join rentals named "Marina"
	txs := []models.Transaction{
		{AreaName: "marina", Worth: 900000},
		{AreaName: "marina", Worth: 1000000},
		{AreaName: "marina", Worth: 1100000},
		{AreaName: "Downtown", Worth: 2000000},
		{AreaName: "Downtown", Worth: 2000000},
		{AreaName: "Downtown", Worth: 2000000},
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rentals := []models.Rental{
		rentalIn("Marina", now, 75000),
		rentalIn("Marina", now, 80000),
		rentalIn("Marina", now, 85000),
		rentalIn("Downtown", now, 120000),
		rentalIn("Downtown", now, 120000),
	}

	// Test
	yields := GrossYields(txs, rentals, 3)

	// Assert: Downtown has only two rental samples and is omitted
	assert.Len(t, yields, 1)
	y := yields[0]
	assert.Equal(t, 1000000.0, y.AvgPurchasePrice)
	assert.Equal(t, 80000.0, y.AvgAnnualRent)
	assert.Equal(t, 8.0, y.GrossYieldPct)
	assert.Equal(t, 3, y.SaleCount)
	assert.Equal(t, 3, y.RentCount)
}

func TestGrossYields_IgnoresUnpricedRecords(t *testing.T) {
	txs := []models.Transaction{
		{AreaName: "JVC", Worth: 500000},
		{AreaName: "JVC", Worth: 0}, // missing amount, not a sample
	}
	rentals := []models.Rental{
		rentalIn("JVC", time.Now(), 40000),
		rentalIn("JVC", time.Now(), 0),
	}

	yields := GrossYields(txs, rentals, 1)
	assert.Len(t, yields, 1)
	assert.Equal(t, 1, yields[0].SaleCount)
	assert.Equal(t, 1, yields[0].RentCount)
	assert.Equal(t, 8.0, yields[0].GrossYieldPct)
}
