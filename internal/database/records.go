package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dxbdata/server/internal/engine"
	"dxbdata/server/internal/models"
)

// TransactionQuery narrows a transaction listing. Zero values leave the
// dimension unconstrained.
type TransactionQuery struct {
	Area         string
	Building     string
	Project      string
	Developer    string
	PropertyType string
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

// RentalQuery narrows a rental contract listing.
type RentalQuery struct {
	Area         string
	PropertyType string
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

func applyTransactionQuery(db *gorm.DB, q TransactionQuery) *gorm.DB {
	if q.Area != "" {
		db = db.Where("area_name LIKE ? COLLATE NOCASE", "%"+q.Area+"%")
	}
	if q.Building != "" {
		db = db.Where("building_name LIKE ? COLLATE NOCASE", "%"+q.Building+"%")
	}
	if q.Project != "" {
		db = db.Where("project_name LIKE ? COLLATE NOCASE", "%"+q.Project+"%")
	}
	if q.Developer != "" {
		db = db.Where("developer LIKE ? COLLATE NOCASE", "%"+q.Developer+"%")
	}
	if q.PropertyType != "" {
		db = db.Where("property_type = ? COLLATE NOCASE", q.PropertyType)
	}
	if !q.From.IsZero() {
		db = db.Where("instance_date >= ?", q.From)
	}
	if !q.To.IsZero() {
		db = db.Where("instance_date <= ?", q.To)
	}
	return db
}

// ListTransactions returns the newest matching transactions first.
func (d *Database) ListTransactions(q TransactionQuery) ([]models.Transaction, error) {
	db := applyTransactionQuery(d.db, q).
		Order("instance_date DESC, id DESC")
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}

	var txs []models.Transaction
	if err := db.Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// QueryTransactions loads every matching transaction in chronological
// order, for callers that aggregate over the whole result.
func (d *Database) QueryTransactions(q TransactionQuery) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := applyTransactionQuery(d.db, q).
		Order("instance_date ASC, id ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	return txs, nil
}

// CountTransactions returns how many transactions match the query.
func (d *Database) CountTransactions(q TransactionQuery) (int64, error) {
	var count int64
	err := applyTransactionQuery(d.db.Model(&models.Transaction{}), q).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// GetTransaction loads one ledger row by ID, or nil when it does not
// exist.
func (d *Database) GetTransaction(id uint) (*models.Transaction, error) {
	var tx models.Transaction
	err := d.db.First(&tx, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction %d: %w", id, err)
	}
	return &tx, nil
}

// CountRentals returns how many rental contracts match the query.
func (d *Database) CountRentals(q RentalQuery) (int64, error) {
	var count int64
	if err := d.applyRentalQuery(q).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count rentals: %w", err)
	}
	return count, nil
}

// TransactionsAfter returns records strictly newer than the watermark,
// pre-narrowed by the filter. It backs the alert scanner.
func (d *Database) TransactionsAfter(ctx context.Context, after time.Time, f engine.Filter) ([]models.Transaction, error) {
	db := d.db.WithContext(ctx).Where("instance_date > ?", after)
	if f.AreaName != "" {
		db = db.Where("area_name LIKE ? COLLATE NOCASE", "%"+f.AreaName+"%")
	}
	if f.BuildingName != "" {
		db = db.Where("building_name LIKE ? COLLATE NOCASE", "%"+f.BuildingName+"%")
	}
	if f.PropertyType != "" {
		db = db.Where("property_type = ? COLLATE NOCASE", f.PropertyType)
	}

	var txs []models.Transaction
	err := db.Order("instance_date ASC, id ASC").Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions after %s: %w", after.Format(time.RFC3339), err)
	}
	return txs, nil
}

// UpsertTransactions writes a batch of ledger rows inside the given
// gorm transaction. Re-ingesting a row with a known ID is a no-op, so
// replays of the same source page are safe.
func UpsertTransactions(tx *gorm.DB, batch []*models.Transaction) error {
	if len(batch) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(batch).Error
}

// WriteTransactionBatch upserts a batch of ledger rows inside a single
// database transaction.
func (d *Database) WriteTransactionBatch(batch []*models.Transaction) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		return UpsertTransactions(tx, batch)
	})
}

// ListRentals returns the newest matching rental contracts first.
func (d *Database) ListRentals(q RentalQuery) ([]models.Rental, error) {
	db := d.applyRentalQuery(q).
		Order("contract_start_date DESC, id DESC")
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	if q.Offset > 0 {
		db = db.Offset(q.Offset)
	}

	var rentals []models.Rental
	if err := db.Find(&rentals).Error; err != nil {
		return nil, fmt.Errorf("failed to list rentals: %w", err)
	}
	return rentals, nil
}

// QueryRentals loads every matching rental in chronological order.
func (d *Database) QueryRentals(q RentalQuery) ([]models.Rental, error) {
	var rentals []models.Rental
	err := d.applyRentalQuery(q).
		Order("contract_start_date ASC, id ASC").
		Find(&rentals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query rentals: %w", err)
	}
	return rentals, nil
}

func (d *Database) applyRentalQuery(q RentalQuery) *gorm.DB {
	db := d.db.Model(&models.Rental{})
	if q.Area != "" {
		db = db.Where("area_name LIKE ? COLLATE NOCASE", "%"+q.Area+"%")
	}
	if q.PropertyType != "" {
		db = db.Where("property_type = ? COLLATE NOCASE", q.PropertyType)
	}
	if !q.From.IsZero() {
		db = db.Where("contract_start_date >= ?", q.From)
	}
	if !q.To.IsZero() {
		db = db.Where("contract_start_date <= ?", q.To)
	}
	return db
}

// WriteRentalBatch upserts a batch of rental contracts inside a single
// database transaction. Rows with a known ID are skipped.
func (d *Database) WriteRentalBatch(batch []*models.Rental) error {
	if len(batch) == 0 {
		return nil
	}
	return d.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(batch).Error
	})
}
