package engine

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Bucket is one group of a grouped aggregation. Count covers every item
// in the group; Sum, Mean, Min and Max only the items whose metric was
// present. Buckets are recomputed per query and never persisted.
type Bucket struct {
	Key   string  `json:"key"`
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Aggregate groups items by keyFn and reduces the metric extracted by
// valueFn. A valueFn returning ok=false excludes that item from the
// numeric reductions but still counts it in the group. Buckets come
// back sorted by key ascending.
func Aggregate[T any](items []T, keyFn func(T) string, valueFn func(T) (float64, bool)) []Bucket {
	type acc struct {
		count, present int
		sum, min, max  float64
	}
	groups := make(map[string]*acc)
	for _, it := range items {
		key := keyFn(it)
		a, ok := groups[key]
		if !ok {
			a = &acc{}
			groups[key] = a
		}
		a.count++
		if v, ok := valueFn(it); ok {
			if a.present == 0 || v < a.min {
				a.min = v
			}
			if a.present == 0 || v > a.max {
				a.max = v
			}
			a.present++
			a.sum += v
		}
	}

	buckets := make([]Bucket, 0, len(groups))
	for key, a := range groups {
		b := Bucket{Key: key, Count: a.count, Sum: a.sum, Min: a.min, Max: a.max}
		if a.present > 0 {
			b.Mean = a.sum / float64(a.present)
		}
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Key < buckets[j].Key })
	return buckets
}

// MonthKey buckets a date into its calendar month.
func MonthKey(t time.Time) string { return t.Format("2006-01") }

// QuarterKey buckets a date into its calendar quarter.
func QuarterKey(t time.Time) string {
	return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
}

// YearKey buckets a date into its calendar year.
func YearKey(t time.Time) string { return t.Format("2006") }

// Percentile computes the p-th percentile (0-100) of values using
// linear interpolation between closest ranks. Returns 0 for an empty
// slice. The input is not modified.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Round2 rounds to two decimal places, the precision of every ratio
// this engine reports.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PctChange returns the percentage change from prev to curr, rounded
// to two decimals. A zero or negative prev makes the change undefined
// and yields nil, never infinity or zero.
func PctChange(curr, prev float64) *float64 {
	if prev <= 0 {
		return nil
	}
	v := Round2((curr - prev) / prev * 100)
	return &v
}

// YoYPoint is one year of a trend with its change versus the previous
// year. The earliest year has no predecessor, so its changes are nil.
type YoYPoint struct {
	Year            string   `json:"year"`
	Count           int      `json:"count"`
	Mean            float64  `json:"mean"`
	MeanChangePct   *float64 `json:"mean_change_pct"`
	VolumeChangePct *float64 `json:"volume_change_pct"`
}

// YearOverYear derives year-over-year changes from annual buckets. The
// input must be sorted ascending by year, which Aggregate with YearKey
// already guarantees.
func YearOverYear(annual []Bucket) []YoYPoint {
	points := make([]YoYPoint, 0, len(annual))
	for i, b := range annual {
		pt := YoYPoint{Year: b.Key, Count: b.Count, Mean: Round2(b.Mean)}
		if i > 0 {
			prev := annual[i-1]
			pt.MeanChangePct = PctChange(b.Mean, prev.Mean)
			pt.VolumeChangePct = PctChange(float64(b.Count), float64(prev.Count))
		}
		points = append(points, pt)
	}
	return points
}
