package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dxbdata/server/internal/models"
)

// Database wraps the gorm connection and exposes the typed stores the
// rest of the application queries through.
type Database struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewDatabase(dbPath string, logger *logrus.Logger) (*Database, error) {
	if logger == nil {
		logger = logrus.New()
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &Database{db: db, logger: logger}
	if err := d.migrate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Database) migrate() error {
	err := d.db.AutoMigrate(
		&models.Transaction{},
		&models.Rental{},
		&models.Alert{},
		&models.AlertTrigger{},
		&models.Watchlist{},
		&models.TelegramConfig{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB exposes the underlying gorm handle for callers that need raw
// transaction control.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// GetTelegramConfig returns the stored bot configuration, or nil when
// none has been saved yet.
func (d *Database) GetTelegramConfig() (*models.TelegramConfig, error) {
	var config models.TelegramConfig
	err := d.db.First(&config).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load telegram config: %w", err)
	}
	return &config, nil
}

// UpdateTelegramConfig saves the bot configuration, replacing any
// existing row.
func (d *Database) UpdateTelegramConfig(req *models.TelegramConfigRequest) error {
	existing, err := d.GetTelegramConfig()
	if err != nil {
		return err
	}

	if existing == nil {
		config := models.TelegramConfig{
			IsEnabled: req.IsEnabled,
			BotToken:  req.BotToken,
			ChatID:    req.ChatID,
		}
		return d.db.Create(&config).Error
	}

	existing.IsEnabled = req.IsEnabled
	existing.BotToken = req.BotToken
	existing.ChatID = req.ChatID
	return d.db.Save(existing).Error
}
