package engine

import (
	"strings"

	"dxbdata/server/internal/models"
)

// Filter is a typed watch criteria. Empty or nil fields match every
// record on that dimension. A record missing a value on a filtered
// dimension never matches it, so gaps in the ledger cannot produce
// false positives.
type Filter struct {
	AreaName     string
	BuildingName string
	PropertyType string
	MinSize      *float64
	MaxSize      *float64
}

// FilterFromAlert extracts the filter portion of an alert.
func FilterFromAlert(a *models.Alert) Filter {
	return Filter{
		AreaName:     a.AreaName,
		BuildingName: a.BuildingName,
		PropertyType: a.PropertyType,
	}
}

// FilterFromWatchlist extracts the filter portion of a watchlist.
func FilterFromWatchlist(w *models.Watchlist) Filter {
	return Filter{
		AreaName:     w.AreaName,
		BuildingName: w.BuildingName,
		PropertyType: w.PropertyType,
		MinSize:      w.MinSize,
		MaxSize:      w.MaxSize,
	}
}

// Matches reports whether the transaction passes every dimension of the
// filter. Area and building match by case-insensitive substring,
// property type by case-insensitive equality.
func (f Filter) Matches(tx *models.Transaction) bool {
	if f.AreaName != "" && !containsFold(tx.AreaName, f.AreaName) {
		return false
	}
	if f.BuildingName != "" && !containsFold(tx.BuildingName, f.BuildingName) {
		return false
	}
	if f.PropertyType != "" && !strings.EqualFold(tx.PropertyType, f.PropertyType) {
		return false
	}
	if f.MinSize != nil && (tx.Size <= 0 || tx.Size < *f.MinSize) {
		return false
	}
	if f.MaxSize != nil && (tx.Size <= 0 || tx.Size > *f.MaxSize) {
		return false
	}
	return true
}

// AlertMatches applies both the alert's filter and its kind-specific
// threshold comparison. Comparisons are strict: a record exactly at the
// threshold does not match.
func AlertMatches(a *models.Alert, tx *models.Transaction) bool {
	if !FilterFromAlert(a).Matches(tx) {
		return false
	}

	if a.AlertType == models.AlertNewTransaction {
		return true
	}
	if a.Threshold == nil {
		return false
	}

	switch a.AlertType {
	case models.AlertPriceBelow:
		return tx.Worth > 0 && tx.Worth < *a.Threshold
	case models.AlertPriceAbove:
		return tx.Worth > 0 && tx.Worth > *a.Threshold
	case models.AlertPriceSqmBelow:
		p := tx.UnitPrice()
		return p > 0 && p < *a.Threshold
	case models.AlertPriceSqmAbove:
		p := tx.UnitPrice()
		return p > 0 && p > *a.Threshold
	}
	return false
}

func containsFold(haystack, needle string) bool {
	if haystack == "" {
		return false
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// foldKey normalizes a grouping key for case-insensitive joins.
func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
