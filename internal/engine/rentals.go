package engine

import (
	"sort"
	"time"

	"dxbdata/server/internal/models"
)

// Vacancy/demand signal labels.
const (
	SignalHighVacancy      = "High vacancy risk"
	SignalModerateVacancy  = "Moderate vacancy risk"
	SignalHighDemand       = "High demand"
	SignalStable           = "Stable"
	SignalInsufficientData = "Insufficient data"
)

// MonthIndex is one calendar month of a seasonal profile. The index is
// the month's contract count relative to the average month, base 100.
type MonthIndex struct {
	Month         int     `json:"month"`
	MonthName     string  `json:"month_name"`
	Contracts     int     `json:"contracts"`
	AvgRent       float64 `json:"avg_rent"`
	SeasonalIndex int     `json:"seasonal_index"`
}

// SeasonalProfile summarizes when rental activity concentrates.
type SeasonalProfile struct {
	Months    []MonthIndex `json:"months"`
	PeakMonth *MonthIndex  `json:"peak_month"`
	LowMonth  *MonthIndex  `json:"low_month"`
}

// Seasonality computes a per-month activity index over the given
// contracts. With a perfectly uniform dataset every month indexes at
// exactly 100. The caller is expected to have windowed the input
// already (typically to a trailing N years).
func Seasonality(rentals []models.Rental) SeasonalProfile {
	if len(rentals) == 0 {
		return SeasonalProfile{}
	}

	var counts [12]int
	var rentSums [12]float64
	for i := range rentals {
		m := int(rentals[i].ContractStartDate.Month()) - 1
		counts[m]++
		rentSums[m] += rentals[i].AnnualAmount
	}

	monthlyAvg := float64(len(rentals)) / 12

	profile := SeasonalProfile{Months: make([]MonthIndex, 12)}
	for m := 0; m < 12; m++ {
		idx := MonthIndex{
			Month:         m + 1,
			MonthName:     time.Month(m + 1).String()[:3],
			Contracts:     counts[m],
			SeasonalIndex: roundToInt(float64(counts[m]) / monthlyAvg * 100),
		}
		if counts[m] > 0 {
			idx.AvgRent = Round2(rentSums[m] / float64(counts[m]))
		}
		profile.Months[m] = idx
	}

	peak, low := 0, 0
	for m := 1; m < 12; m++ {
		if profile.Months[m].SeasonalIndex > profile.Months[peak].SeasonalIndex {
			peak = m
		}
		if profile.Months[m].SeasonalIndex < profile.Months[low].SeasonalIndex {
			low = m
		}
	}
	profile.PeakMonth = &profile.Months[peak]
	profile.LowMonth = &profile.Months[low]
	return profile
}

func roundToInt(v float64) int {
	if v < 0 {
		return -roundToInt(-v)
	}
	return int(v + 0.5)
}

// VacancySignal compares an area's recent six months of rental
// activity against the six months before that.
type VacancySignal struct {
	Area            string   `json:"area"`
	RecentContracts int      `json:"recent_contracts"`
	PrevContracts   int      `json:"prev_contracts"`
	VolumeChangePct *float64 `json:"volume_change_pct"`
	RecentAvgRent   float64  `json:"recent_avg_rent"`
	PrevAvgRent     float64  `json:"prev_avg_rent"`
	RentChangePct   *float64 `json:"rent_change_pct"`
	Signal          string   `json:"signal"`
}

// VacancySignals classifies each area by comparing the trailing six
// months against the six months before, both rolling from now. Areas
// whose prior window has fewer than minContracts end up as
// "Insufficient data" rather than producing an undefined ratio.
func VacancySignals(rentals []models.Rental, now time.Time, minContracts int) []VacancySignal {
	recentCutoff := now.AddDate(0, -6, 0)
	prevCutoff := now.AddDate(0, -12, 0)

	type window struct {
		count   int
		rentSum float64
	}
	recent := make(map[string]*window)
	previous := make(map[string]*window)

	for i := range rentals {
		r := &rentals[i]
		if r.AreaName == "" {
			continue
		}
		d := r.ContractStartDate
		var target map[string]*window
		switch {
		case d.After(recentCutoff) && !d.After(now):
			target = recent
		case d.After(prevCutoff) && !d.After(recentCutoff):
			target = previous
		default:
			continue
		}
		w, ok := target[r.AreaName]
		if !ok {
			w = &window{}
			target[r.AreaName] = w
		}
		w.count++
		w.rentSum += r.AnnualAmount
	}

	areas := make(map[string]struct{})
	for a := range recent {
		areas[a] = struct{}{}
	}
	for a := range previous {
		areas[a] = struct{}{}
	}

	var signals []VacancySignal
	for area := range areas {
		var rw, pw window
		if w, ok := recent[area]; ok {
			rw = *w
		}
		if w, ok := previous[area]; ok {
			pw = *w
		}

		sig := VacancySignal{
			Area:            area,
			RecentContracts: rw.count,
			PrevContracts:   pw.count,
		}
		if rw.count > 0 {
			sig.RecentAvgRent = Round2(rw.rentSum / float64(rw.count))
		}
		if pw.count > 0 {
			sig.PrevAvgRent = Round2(pw.rentSum / float64(pw.count))
		}

		if pw.count == 0 || pw.count < minContracts {
			sig.Signal = SignalInsufficientData
			signals = append(signals, sig)
			continue
		}

		sig.VolumeChangePct = PctChange(float64(rw.count), float64(pw.count))
		sig.RentChangePct = PctChange(sig.RecentAvgRent, sig.PrevAvgRent)

		volDrop := float64(pw.count-rw.count) / float64(pw.count)
		rentDrop := 0.0
		if sig.PrevAvgRent > 0 {
			rentDrop = (sig.PrevAvgRent - sig.RecentAvgRent) / sig.PrevAvgRent
		}

		switch {
		case volDrop > 0.2 && rentDrop > 0.05:
			sig.Signal = SignalHighVacancy
		case volDrop > 0.1:
			sig.Signal = SignalModerateVacancy
		case volDrop < -0.2:
			sig.Signal = SignalHighDemand
		default:
			sig.Signal = SignalStable
		}
		signals = append(signals, sig)
	}

	// Worst volume drops first; undefined changes sink to the end.
	sort.Slice(signals, func(i, j int) bool {
		vi, vj := signals[i].VolumeChangePct, signals[j].VolumeChangePct
		if vi == nil && vj == nil {
			return signals[i].Area < signals[j].Area
		}
		if vi == nil {
			return false
		}
		if vj == nil {
			return true
		}
		if *vi != *vj {
			return *vi < *vj
		}
		return signals[i].Area < signals[j].Area
	})
	return signals
}

// AreaYield is the gross rental yield of one area: average annual rent
// as a percentage of average purchase price.
type AreaYield struct {
	Area             string  `json:"area"`
	AvgPurchasePrice float64 `json:"avg_purchase_price"`
	AvgAnnualRent    float64 `json:"avg_annual_rent"`
	GrossYieldPct    float64 `json:"gross_yield_pct"`
	SaleCount        int     `json:"sale_count"`
	RentCount        int     `json:"rent_count"`
}

// GrossYields joins sales and rentals per area (case-insensitively) and
// computes the gross yield for every area where both sides have at
// least minSamples records with a positive amount. Areas below the
// threshold are omitted, not zero-filled.
func GrossYields(txs []models.Transaction, rentals []models.Rental, minSamples int) []AreaYield {
	type side struct {
		name  string
		count int
		sum   float64
	}
	sales := make(map[string]*side)
	rents := make(map[string]*side)

	for i := range txs {
		tx := &txs[i]
		if tx.AreaName == "" || tx.Worth <= 0 {
			continue
		}
		key := foldKey(tx.AreaName)
		s, ok := sales[key]
		if !ok {
			s = &side{name: tx.AreaName}
			sales[key] = s
		}
		s.count++
		s.sum += tx.Worth
	}
	for i := range rentals {
		r := &rentals[i]
		if r.AreaName == "" || r.AnnualAmount <= 0 {
			continue
		}
		key := foldKey(r.AreaName)
		s, ok := rents[key]
		if !ok {
			s = &side{name: r.AreaName}
			rents[key] = s
		}
		s.count++
		s.sum += r.AnnualAmount
	}

	var yields []AreaYield
	for key, s := range sales {
		r, ok := rents[key]
		if !ok {
			continue
		}
		if s.count < minSamples || r.count < minSamples {
			continue
		}
		avgPrice := s.sum / float64(s.count)
		avgRent := r.sum / float64(r.count)
		if avgPrice <= 0 || avgRent <= 0 {
			continue
		}
		yields = append(yields, AreaYield{
			Area:             s.name,
			AvgPurchasePrice: Round2(avgPrice),
			AvgAnnualRent:    Round2(avgRent),
			GrossYieldPct:    Round2(avgRent / avgPrice * 100),
			SaleCount:        s.count,
			RentCount:        r.count,
		})
	}

	sort.Slice(yields, func(i, j int) bool {
		if yields[i].GrossYieldPct != yields[j].GrossYieldPct {
			return yields[i].GrossYieldPct > yields[j].GrossYieldPct
		}
		return yields[i].Area < yields[j].Area
	})
	return yields
}
