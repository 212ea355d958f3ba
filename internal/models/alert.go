package models

import "time"

// Alert kinds. Price kinds compare against the absolute worth, the
// per-sqm kinds against the unit price. AlertNewTransaction fires on
// every record that passes the filter.
const (
	AlertPriceBelow     = "price_below"
	AlertPriceAbove     = "price_above"
	AlertPriceSqmBelow  = "price_sqm_below"
	AlertPriceSqmAbove  = "price_sqm_above"
	AlertNewTransaction = "new_transaction"
)

// ValidAlertTypes lists every accepted alert kind.
var ValidAlertTypes = []string{
	AlertPriceBelow,
	AlertPriceAbove,
	AlertPriceSqmBelow,
	AlertPriceSqmAbove,
	AlertNewTransaction,
}

// Alert is a subscriber's standing watch criteria. LastScannedAt is the
// scan watermark: records with a later instance date have not been
// checked yet. A nil watermark means the alert has never been scanned.
type Alert struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	SubscriberID  string         `gorm:"index" json:"subscriber_id"`
	AreaName      string         `json:"area_name"`
	BuildingName  string         `json:"building_name"`
	PropertyType  string         `json:"property_type"`
	AlertType     string         `json:"alert_type"`
	Threshold     *float64       `json:"threshold"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	LastScannedAt *time.Time     `json:"last_scanned_at"`
	Triggers      []AlertTrigger `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
}

// AlertTrigger is an immutable (alert, transaction) pair recording that
// the alert already fired for that transaction. The unique index is the
// dedup backstop for the scanner.
type AlertTrigger struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AlertID       uint      `gorm:"uniqueIndex:idx_alert_transaction" json:"alert_id"`
	TransactionID uint      `gorm:"uniqueIndex:idx_alert_transaction" json:"transaction_id"`
	TriggeredAt   time.Time `json:"triggered_at"`
}

// Watchlist is a saved search without trigger semantics.
type Watchlist struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubscriberID string    `gorm:"index" json:"subscriber_id"`
	Name         string    `json:"name"`
	AreaName     string    `json:"area_name"`
	BuildingName string    `json:"building_name"`
	PropertyType string    `json:"property_type"`
	MinSize      *float64  `json:"min_size"`
	MaxSize      *float64  `json:"max_size"`
	CreatedAt    time.Time `json:"created_at"`
}
