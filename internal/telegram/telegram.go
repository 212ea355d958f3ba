package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"dxbdata/server/internal/models"
)

const apiBaseURL = "https://api.telegram.org"

// Telegram allows roughly 30 messages per second per bot.
const messagesPerSecond = 25

// Service delivers alert notifications through the Telegram bot API.
// It satisfies the scanner's Notifier interface.
type Service struct {
	logger  *logrus.Logger
	client  *resty.Client
	limiter *rate.Limiter

	mu     sync.RWMutex
	config *models.TelegramConfig
}

func NewService(logger *logrus.Logger) *Service {
	client := resty.New().
		SetBaseURL(apiBaseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Service{
		logger:  logger,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(messagesPerSecond), messagesPerSecond),
	}
}

// UpdateConfig swaps the active bot configuration.
func (s *Service) UpdateConfig(config *models.TelegramConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = config
}

func (s *Service) currentConfig() *models.TelegramConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Notify sends a message to the given subscriber chat. An empty
// subscriber falls back to the configured default chat. Disabled or
// unconfigured bots drop the message silently so a match is never
// blocked on delivery setup.
func (s *Service) Notify(subscriberID, message string) error {
	config := s.currentConfig()
	if config == nil || !config.IsEnabled {
		return nil
	}

	chatID := subscriberID
	if chatID == "" {
		chatID = config.ChatID
	}
	return s.send(config.BotToken, chatID, message)
}

// SendMessage sends a message to the configured default chat.
func (s *Service) SendMessage(message string) error {
	config := s.currentConfig()
	if config == nil || !config.IsEnabled {
		return nil
	}
	return s.send(config.BotToken, config.ChatID, message)
}

func (s *Service) send(botToken, chatID, message string) error {
	if botToken == "" {
		return errors.New("telegram bot token is not configured")
	}
	if chatID == "" {
		return errors.New("telegram chat ID is not configured")
	}

	if err := s.limiter.Wait(context.Background()); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	resp, err := s.client.R().
		SetBody(map[string]interface{}{
			"chat_id":    chatID,
			"text":       message,
			"parse_mode": "HTML",
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", botToken))
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		switch resp.StatusCode() {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token - please check your token from @BotFather")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", resp.String())
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		case http.StatusNotFound:
			return errors.New("bot not found - please check your token from @BotFather")
		default:
			return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode(), resp.String())
		}
	}

	s.logger.WithField("chat_id", chatID).Debug("Telegram message delivered")
	return nil
}
