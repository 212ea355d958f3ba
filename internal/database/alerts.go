package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dxbdata/server/internal/models"
)

// CreateAlert stores a new alert. The watermark starts nil so the first
// scan applies the default lookback.
func (d *Database) CreateAlert(alert *models.Alert) error {
	alert.LastScannedAt = nil
	if err := d.db.Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// GetAlert loads one alert by ID, or nil when it does not exist.
func (d *Database) GetAlert(id uint) (*models.Alert, error) {
	var alert models.Alert
	err := d.db.First(&alert, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load alert %d: %w", id, err)
	}
	return &alert, nil
}

// ListAlerts returns every alert, optionally narrowed to one subscriber.
func (d *Database) ListAlerts(subscriberID string) ([]models.Alert, error) {
	db := d.db.Order("id ASC")
	if subscriberID != "" {
		db = db.Where("subscriber_id = ?", subscriberID)
	}

	var alerts []models.Alert
	if err := db.Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, nil
}

// UpdateAlert persists changes to an existing alert.
func (d *Database) UpdateAlert(alert *models.Alert) error {
	if err := d.db.Save(alert).Error; err != nil {
		return fmt.Errorf("failed to update alert %d: %w", alert.ID, err)
	}
	return nil
}

// DeleteAlert removes an alert and, through the cascade, its trigger
// history.
func (d *Database) DeleteAlert(id uint) error {
	result := d.db.Delete(&models.Alert{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete alert %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListActive returns the alerts the scanner should process.
func (d *Database) ListActive(ctx context.Context) ([]models.Alert, error) {
	var alerts []models.Alert
	err := d.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active alerts: %w", err)
	}
	return alerts, nil
}

// AdvanceWatermark moves an alert's scan watermark forward. The scanner
// is the only writer of this column.
func (d *Database) AdvanceWatermark(ctx context.Context, alertID uint, scannedAt time.Time) error {
	err := d.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ?", alertID).
		Update("last_scanned_at", scannedAt).Error
	if err != nil {
		return fmt.Errorf("failed to advance watermark for alert %d: %w", alertID, err)
	}
	return nil
}

// TriggerStore is the gorm-backed trigger ledger. The unique index on
// (alert_id, transaction_id) makes Append idempotent at the schema
// level, even under a retried scan.
type TriggerStore struct {
	db *gorm.DB
}

// Triggers returns the trigger ledger view of the database.
func (d *Database) Triggers() *TriggerStore {
	return &TriggerStore{db: d.db}
}

func (t *TriggerStore) Exists(ctx context.Context, alertID, transactionID uint) (bool, error) {
	var count int64
	err := t.db.WithContext(ctx).
		Model(&models.AlertTrigger{}).
		Where("alert_id = ? AND transaction_id = ?", alertID, transactionID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check trigger existence: %w", err)
	}
	return count > 0, nil
}

func (t *TriggerStore) Append(ctx context.Context, alertID, transactionID uint, at time.Time) error {
	trigger := models.AlertTrigger{
		AlertID:       alertID,
		TransactionID: transactionID,
		TriggeredAt:   at,
	}
	if err := t.db.WithContext(ctx).Create(&trigger).Error; err != nil {
		return fmt.Errorf("failed to append trigger: %w", err)
	}
	return nil
}

// TriggerHistoryEntry is one fired trigger joined with its transaction.
type TriggerHistoryEntry struct {
	models.AlertTrigger
	Transaction models.Transaction `json:"transaction"`
}

// GetTriggerHistory returns an alert's fired triggers, newest first.
func (d *Database) GetTriggerHistory(alertID uint, limit int) ([]TriggerHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var triggers []models.AlertTrigger
	err := d.db.Where("alert_id = ?", alertID).
		Order("triggered_at DESC, id DESC").
		Limit(limit).
		Find(&triggers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load trigger history for alert %d: %w", alertID, err)
	}

	entries := make([]TriggerHistoryEntry, 0, len(triggers))
	for _, trigger := range triggers {
		entry := TriggerHistoryEntry{AlertTrigger: trigger}
		if err := d.db.First(&entry.Transaction, trigger.TransactionID).Error; err != nil && err != gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("failed to load transaction %d: %w", trigger.TransactionID, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
