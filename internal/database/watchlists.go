package database

import (
	"fmt"

	"gorm.io/gorm"

	"dxbdata/server/internal/engine"
	"dxbdata/server/internal/models"
)

// CreateWatchlist stores a new saved search.
func (d *Database) CreateWatchlist(w *models.Watchlist) error {
	if err := d.db.Create(w).Error; err != nil {
		return fmt.Errorf("failed to create watchlist: %w", err)
	}
	return nil
}

// GetWatchlist loads one watchlist by ID, or nil when it does not exist.
func (d *Database) GetWatchlist(id uint) (*models.Watchlist, error) {
	var w models.Watchlist
	err := d.db.First(&w, id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist %d: %w", id, err)
	}
	return &w, nil
}

// ListWatchlists returns every watchlist, optionally narrowed to one
// subscriber.
func (d *Database) ListWatchlists(subscriberID string) ([]models.Watchlist, error) {
	db := d.db.Order("id ASC")
	if subscriberID != "" {
		db = db.Where("subscriber_id = ?", subscriberID)
	}

	var lists []models.Watchlist
	if err := db.Find(&lists).Error; err != nil {
		return nil, fmt.Errorf("failed to list watchlists: %w", err)
	}
	return lists, nil
}

// UpdateWatchlist persists changes to an existing watchlist.
func (d *Database) UpdateWatchlist(w *models.Watchlist) error {
	if err := d.db.Save(w).Error; err != nil {
		return fmt.Errorf("failed to update watchlist %d: %w", w.ID, err)
	}
	return nil
}

// DeleteWatchlist removes a watchlist.
func (d *Database) DeleteWatchlist(id uint) error {
	result := d.db.Delete(&models.Watchlist{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete watchlist %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// WatchlistMatches returns the newest transactions passing a watchlist's
// criteria. The size bounds are re-checked in memory because the stored
// row may carry a nil size limit on either end.
func (d *Database) WatchlistMatches(w *models.Watchlist, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}

	// Over-fetch so in-memory size filtering still fills the page.
	candidates, err := d.ListTransactions(TransactionQuery{
		Area:         w.AreaName,
		Building:     w.BuildingName,
		PropertyType: w.PropertyType,
		Limit:        limit * 4,
	})
	if err != nil {
		return nil, err
	}

	filter := engine.FilterFromWatchlist(w)
	matches := make([]models.Transaction, 0, limit)
	for i := range candidates {
		if !filter.Matches(&candidates[i]) {
			continue
		}
		matches = append(matches, candidates[i])
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}
