package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dxbdata/server/internal/models"
)

func f64(v float64) *float64 { return &v }

func TestFilter_Matches(t *testing.T) {
	tx := models.Transaction{
		AreaName:     "Dubai Marina",
		BuildingName: "Marina Heights Tower",
		PropertyType: "Unit",
		Size:         85,
		Worth:        1200000,
	}

	// Empty filter matches everything
	assert.True(t, Filter{}.Matches(&tx))

	// Case-insensitive substring on area and building
	assert.True(t, Filter{AreaName: "marina"}.Matches(&tx))
	assert.True(t, Filter{BuildingName: "HEIGHTS"}.Matches(&tx))
	assert.False(t, Filter{AreaName: "Downtown"}.Matches(&tx))

	// Property type is exact match, case-insensitive
	assert.True(t, Filter{PropertyType: "unit"}.Matches(&tx))
	assert.False(t, Filter{PropertyType: "uni"}.Matches(&tx))

	// Size bounds
	assert.True(t, Filter{MinSize: f64(80), MaxSize: f64(90)}.Matches(&tx))
	assert.False(t, Filter{MinSize: f64(100)}.Matches(&tx))
}

func TestFilter_MissingValuesNeverMatch(t *testing.T) {
	// A record with no value on a filtered dimension must not match it.
	blank := models.Transaction{Worth: 500000}

	assert.False(t, Filter{AreaName: "marina"}.Matches(&blank))
	assert.False(t, Filter{BuildingName: "tower"}.Matches(&blank))
	assert.False(t, Filter{PropertyType: "Unit"}.Matches(&blank))
	assert.False(t, Filter{MinSize: f64(10)}.Matches(&blank))
	assert.True(t, Filter{}.Matches(&blank))
}

func TestAlertMatches_ThresholdStrictness(t *testing.T) {
	tx := models.Transaction{AreaName: "Business Bay", Worth: 1000000, Size: 100, MeterSalePrice: 10000}

	below := models.Alert{AlertType: models.AlertPriceBelow, Threshold: f64(1000000)}
	above := models.Alert{AlertType: models.AlertPriceAbove, Threshold: f64(1000000)}

	// Exactly at the threshold never triggers either direction
	assert.False(t, AlertMatches(&below, &tx))
	assert.False(t, AlertMatches(&above, &tx))

	below.Threshold = f64(1000001)
	above.Threshold = f64(999999)
	assert.True(t, AlertMatches(&below, &tx))
	assert.True(t, AlertMatches(&above, &tx))
}

func TestAlertMatches_UnitPriceKinds(t *testing.T) {
	tx := models.Transaction{Worth: 900000, Size: 100}

	// No stored meter price: derived from worth / size = 9000
	sqmBelow := models.Alert{AlertType: models.AlertPriceSqmBelow, Threshold: f64(9500)}
	assert.True(t, AlertMatches(&sqmBelow, &tx))

	sqmBelow.Threshold = f64(9000)
	assert.False(t, AlertMatches(&sqmBelow, &tx))

	// A record with no derivable unit price never matches a per-sqm kind
	noSize := models.Transaction{Worth: 900000}
	sqmAbove := models.Alert{AlertType: models.AlertPriceSqmAbove, Threshold: f64(1)}
	assert.False(t, AlertMatches(&sqmAbove, &noSize))
}

func TestAlertMatches_NewTransaction(t *testing.T) {
	alert := models.Alert{AreaName: "JVC", AlertType: models.AlertNewTransaction}

	match := models.Transaction{AreaName: "Jumeirah Village Circle (JVC)", Worth: 1}
	miss := models.Transaction{AreaName: "Downtown", Worth: 1}

	assert.True(t, AlertMatches(&alert, &match))
	assert.False(t, AlertMatches(&alert, &miss))
}
