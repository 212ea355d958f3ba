package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	group string
	value float64
	ok    bool
}

func TestAggregate(t *testing.T) {
	items := []sample{
		{"a", 10, true},
		{"a", 30, true},
		{"a", 0, false}, // counted, excluded from the numbers
		{"b", 5, true},
	}

	buckets := Aggregate(items,
		func(s sample) string { return s.group },
		func(s sample) (float64, bool) { return s.value, s.ok })

	assert.Len(t, buckets, 2)
	assert.Equal(t, Bucket{Key: "a", Count: 3, Sum: 40, Mean: 20, Min: 10, Max: 30}, buckets[0])
	assert.Equal(t, Bucket{Key: "b", Count: 1, Sum: 5, Mean: 5, Min: 5, Max: 5}, buckets[1])
}

func TestAggregate_AllValuesMissing(t *testing.T) {
	items := []sample{{"a", 99, false}}

	buckets := Aggregate(items,
		func(s sample) string { return s.group },
		func(s sample) (float64, bool) { return s.value, s.ok })

	assert.Len(t, buckets, 1)
	assert.Equal(t, 1, buckets[0].Count)
	assert.Equal(t, 0.0, buckets[0].Mean)
	assert.Equal(t, 0.0, buckets[0].Sum)
}

func TestPeriodKeys(t *testing.T) {
	d := time.Date(2024, 8, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-08", MonthKey(d))
	assert.Equal(t, "2024-Q3", QuarterKey(d))
	assert.Equal(t, "2024", YearKey(d))

	assert.Equal(t, "2024-Q1", QuarterKey(time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-Q4", QuarterKey(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPercentile(t *testing.T) {
	values := []float64{15, 20, 35, 40, 50}

	assert.Equal(t, 35.0, Percentile(values, 50))
	assert.Equal(t, 15.0, Percentile(values, 0))
	assert.Equal(t, 50.0, Percentile(values, 100))
	// Interpolated between ranks 1 and 2
	assert.Equal(t, 27.5, Percentile(values, 37.5))

	assert.Equal(t, 0.0, Percentile(nil, 50))

	// The input stays untouched
	unsorted := []float64{3, 1, 2}
	Percentile(unsorted, 50)
	assert.Equal(t, []float64{3, 1, 2}, unsorted)
}

func TestPctChange(t *testing.T) {
	up := PctChange(150, 100)
	assert.NotNil(t, up)
	assert.Equal(t, 50.0, *up)

	down := PctChange(90, 120)
	assert.NotNil(t, down)
	assert.Equal(t, -25.0, *down)

	// Undefined denominators yield nil, never infinity
	assert.Nil(t, PctChange(100, 0))
	assert.Nil(t, PctChange(100, -5))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 3.14, Round2(3.14159))
	assert.Equal(t, 2.68, Round2(2.675000001))
	assert.Equal(t, -1.23, Round2(-1.2345))
}

func TestYearOverYear(t *testing.T) {
	annual := []Bucket{
		{Key: "2022", Count: 100, Mean: 1000},
		{Key: "2023", Count: 150, Mean: 1100},
		{Key: "2024", Count: 120, Mean: 1100},
	}

	points := YearOverYear(annual)
	assert.Len(t, points, 3)

	// The earliest year has no predecessor to compare against
	assert.Nil(t, points[0].MeanChangePct)
	assert.Nil(t, points[0].VolumeChangePct)

	assert.Equal(t, 10.0, *points[1].MeanChangePct)
	assert.Equal(t, 50.0, *points[1].VolumeChangePct)

	assert.Equal(t, 0.0, *points[2].MeanChangePct)
	assert.Equal(t, -20.0, *points[2].VolumeChangePct)
}
