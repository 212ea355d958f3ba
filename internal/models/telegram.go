package models

import "time"

// TelegramConfig stores the bot credentials and basic settings
type TelegramConfig struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	IsEnabled bool      `json:"is_enabled"`
	BotToken  string    `json:"bot_token"`
	ChatID    string    `json:"chat_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TelegramConfigRequest is used when updating the configuration
type TelegramConfigRequest struct {
	IsEnabled bool   `json:"is_enabled"`
	BotToken  string `json:"bot_token"`
	ChatID    string `json:"chat_id"`
}
