package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dxbdata/server/internal/models"
	"dxbdata/server/internal/telegram"
)

// AlertRequest carries the mutable fields of an alert.
type AlertRequest struct {
	SubscriberID string   `json:"subscriber_id"`
	AreaName     string   `json:"area_name"`
	BuildingName string   `json:"building_name"`
	PropertyType string   `json:"property_type"`
	AlertType    string   `json:"alert_type" binding:"required"`
	Threshold    *float64 `json:"threshold"`
	IsActive     *bool    `json:"is_active"`
}

func (r *AlertRequest) validate() string {
	valid := false
	for _, t := range models.ValidAlertTypes {
		if r.AlertType == t {
			valid = true
			break
		}
	}
	if !valid {
		return "Unknown alert type: " + r.AlertType
	}
	if r.AlertType != models.AlertNewTransaction && r.Threshold == nil {
		return "Alert type " + r.AlertType + " requires a threshold"
	}
	if r.Threshold != nil && *r.Threshold <= 0 {
		return "Threshold must be positive"
	}
	return ""
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}

// CreateAlert registers a new alert. The scan watermark starts empty so
// the first pass only looks back over the default window.
func (h *Handler) CreateAlert(c *gin.Context) {
	var req AlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse alert request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	alert := models.Alert{
		SubscriberID: req.SubscriberID,
		AreaName:     req.AreaName,
		BuildingName: req.BuildingName,
		PropertyType: req.PropertyType,
		AlertType:    req.AlertType,
		Threshold:    req.Threshold,
		IsActive:     true,
	}
	if req.IsActive != nil {
		alert.IsActive = *req.IsActive
	}

	if err := h.db.CreateAlert(&alert); err != nil {
		h.logger.WithError(err).Error("Failed to create alert")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}

	c.JSON(http.StatusCreated, alert)
}

// ListAlerts returns alerts, optionally for one subscriber.
func (h *Handler) ListAlerts(c *gin.Context) {
	alerts, err := h.db.ListAlerts(c.Query("subscriber"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list alerts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

// GetAlert returns one alert.
func (h *Handler) GetAlert(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	alert, err := h.db.GetAlert(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load alert")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load alert"})
		return
	}
	if alert == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	c.JSON(http.StatusOK, alert)
}

// UpdateAlert modifies an alert's criteria. The watermark is preserved:
// editing a filter never replays history the alert has already seen.
func (h *Handler) UpdateAlert(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	alert, err := h.db.GetAlert(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load alert")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load alert"})
		return
	}
	if alert == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}

	var req AlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse alert request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	alert.SubscriberID = req.SubscriberID
	alert.AreaName = req.AreaName
	alert.BuildingName = req.BuildingName
	alert.PropertyType = req.PropertyType
	alert.AlertType = req.AlertType
	alert.Threshold = req.Threshold
	if req.IsActive != nil {
		alert.IsActive = *req.IsActive
	}

	if err := h.db.UpdateAlert(alert); err != nil {
		h.logger.WithError(err).Error("Failed to update alert")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update alert"})
		return
	}
	c.JSON(http.StatusOK, alert)
}

// DeleteAlert removes an alert and its trigger history.
func (h *Handler) DeleteAlert(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	err := h.db.DeleteAlert(id)
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to delete alert")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// GetAlertHistory returns an alert's fired triggers, newest first.
func (h *Handler) GetAlertHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	alert, err := h.db.GetAlert(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load alert")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load alert"})
		return
	}
	if alert == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}

	history, err := h.db.GetTriggerHistory(id, intQuery(c, "limit", 50))
	if err != nil {
		h.logger.WithError(err).Error("Failed to load trigger history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load trigger history"})
		return
	}
	c.JSON(http.StatusOK, history)
}

// RunScan triggers an immediate scan pass over all active alerts.
func (h *Handler) RunScan(c *gin.Context) {
	summary, err := h.scanner.ScanAll(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Manual scan pass failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Scan failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// WatchlistRequest carries the mutable fields of a watchlist.
type WatchlistRequest struct {
	SubscriberID string   `json:"subscriber_id"`
	Name         string   `json:"name" binding:"required"`
	AreaName     string   `json:"area_name"`
	BuildingName string   `json:"building_name"`
	PropertyType string   `json:"property_type"`
	MinSize      *float64 `json:"min_size"`
	MaxSize      *float64 `json:"max_size"`
}

// CreateWatchlist stores a new saved search.
func (h *Handler) CreateWatchlist(c *gin.Context) {
	var req WatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse watchlist request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	w := models.Watchlist{
		SubscriberID: req.SubscriberID,
		Name:         req.Name,
		AreaName:     req.AreaName,
		BuildingName: req.BuildingName,
		PropertyType: req.PropertyType,
		MinSize:      req.MinSize,
		MaxSize:      req.MaxSize,
	}
	if err := h.db.CreateWatchlist(&w); err != nil {
		h.logger.WithError(err).Error("Failed to create watchlist")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create watchlist"})
		return
	}
	c.JSON(http.StatusCreated, w)
}

// ListWatchlists returns watchlists, optionally for one subscriber.
func (h *Handler) ListWatchlists(c *gin.Context) {
	lists, err := h.db.ListWatchlists(c.Query("subscriber"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to list watchlists")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list watchlists"})
		return
	}
	c.JSON(http.StatusOK, lists)
}

// GetWatchlist returns one watchlist.
func (h *Handler) GetWatchlist(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	w, err := h.db.GetWatchlist(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load watchlist")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load watchlist"})
		return
	}
	if w == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist not found"})
		return
	}
	c.JSON(http.StatusOK, w)
}

// UpdateWatchlist modifies a watchlist's criteria.
func (h *Handler) UpdateWatchlist(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	w, err := h.db.GetWatchlist(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load watchlist")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load watchlist"})
		return
	}
	if w == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist not found"})
		return
	}

	var req WatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse watchlist request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	w.SubscriberID = req.SubscriberID
	w.Name = req.Name
	w.AreaName = req.AreaName
	w.BuildingName = req.BuildingName
	w.PropertyType = req.PropertyType
	w.MinSize = req.MinSize
	w.MaxSize = req.MaxSize

	if err := h.db.UpdateWatchlist(w); err != nil {
		h.logger.WithError(err).Error("Failed to update watchlist")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update watchlist"})
		return
	}
	c.JSON(http.StatusOK, w)
}

// DeleteWatchlist removes a watchlist.
func (h *Handler) DeleteWatchlist(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	err := h.db.DeleteWatchlist(id)
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to delete watchlist")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete watchlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// GetWatchlistMatches returns the newest transactions passing the
// watchlist's criteria.
func (h *Handler) GetWatchlistMatches(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	w, err := h.db.GetWatchlist(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load watchlist")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load watchlist"})
		return
	}
	if w == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist not found"})
		return
	}

	matches, err := h.db.WatchlistMatches(w, intQuery(c, "limit", 50))
	if err != nil {
		h.logger.WithError(err).Error("Failed to load watchlist matches")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load watchlist matches"})
		return
	}
	c.JSON(http.StatusOK, matches)
}

// GetTelegramConfig returns the current Telegram configuration.
func (h *Handler) GetTelegramConfig(c *gin.Context) {
	config, err := h.db.GetTelegramConfig()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get Telegram config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get Telegram config"})
		return
	}

	if config == nil {
		c.JSON(http.StatusOK, gin.H{
			"is_enabled": false,
			"chat_id":    "",
			"bot_token":  "",
		})
		return
	}

	// Don't send the full bot token back to the client
	if len(config.BotToken) > 4 {
		config.BotToken = "••••" + config.BotToken[len(config.BotToken)-4:]
	}
	c.JSON(http.StatusOK, config)
}

// UpdateTelegramConfig validates and saves the Telegram configuration.
func (h *Handler) UpdateTelegramConfig(c *gin.Context) {
	var request models.TelegramConfigRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.logger.WithError(err).Error("Invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if len(request.BotToken) < 20 || !strings.Contains(request.BotToken, ":") {
		h.logger.Error("Invalid bot token format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bot token format. Please check your bot token from @BotFather"})
		return
	}
	if request.ChatID == "" {
		h.logger.Error("Chat ID is required")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Chat ID is required"})
		return
	}

	// Test the configuration before saving
	testService := telegram.NewService(h.logger)
	testService.UpdateConfig(&models.TelegramConfig{
		BotToken:  request.BotToken,
		ChatID:    request.ChatID,
		IsEnabled: true,
	})
	testMessage := "🔔 Test notification from DXBData\n\nIf you see this message, your Telegram configuration is working correctly!"
	if err := testService.SendMessage(testMessage); err != nil {
		h.logger.WithError(err).Error("Failed to send test message")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.UpdateTelegramConfig(&request); err != nil {
		h.logger.WithError(err).Error("Failed to update Telegram config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save configuration to database"})
		return
	}

	if config, err := h.db.GetTelegramConfig(); err == nil && config != nil {
		h.telegramService.UpdateConfig(config)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Telegram configuration updated successfully"})
}

// TestTelegramConfig sends a sample alert notification through the
// saved configuration.
func (h *Handler) TestTelegramConfig(c *gin.Context) {
	config, err := h.db.GetTelegramConfig()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get Telegram config")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get Telegram configuration"})
		return
	}
	if config == nil || !config.IsEnabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Telegram is not configured or is disabled"})
		return
	}

	message := "🔔 <b>Alert matched</b> (test)\nDubai Marina\n🏢 Marina Heights\n💰 1450000 (16900/m²)\n📅 " +
		time.Now().Format("2006-01-02")
	if err := h.telegramService.SendMessage(message); err != nil {
		h.logger.WithError(err).Error("Failed to send test notification")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Test notification sent successfully"})
}
