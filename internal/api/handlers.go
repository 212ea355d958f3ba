package api

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"dxbdata/server/config"
	"dxbdata/server/internal/database"
	"dxbdata/server/internal/engine"
	"dxbdata/server/internal/models"
	"dxbdata/server/internal/queue"
	"dxbdata/server/internal/telegram"
)

type Handler struct {
	db              *database.Database
	logger          *logrus.Logger
	cfg             *config.Config
	scanner         *engine.Scanner
	ingestQueue     *queue.RecordQueue
	telegramService *telegram.Service
}

// DateRange is the common ?startDate=&endDate= query pair, both in
// YYYY-MM-DD.
type DateRange struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

func NewHandler(db *database.Database, cfg *config.Config, scanner *engine.Scanner, ingestQueue *queue.RecordQueue, telegramService *telegram.Service, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:              db,
		logger:          logger,
		cfg:             cfg,
		scanner:         scanner,
		ingestQueue:     ingestQueue,
		telegramService: telegramService,
	}
}

func (h *Handler) Health(c *gin.Context) {
	txCount, err := h.db.CountTransactions(database.TransactionQuery{})
	if err != nil {
		h.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	rentalCount, err := h.db.CountRentals(database.RentalQuery{})
	if err != nil {
		h.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"transactions": txCount,
		"rentals":      rentalCount,
	})
}

// GetTransaction returns one ledger row.
func (h *Handler) GetTransaction(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	tx, err := h.db.GetTransaction(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load transaction")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load transaction"})
		return
	}
	if tx == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}
	c.JSON(http.StatusOK, tx)
}

func (h *Handler) parseDateRange(c *gin.Context) (time.Time, time.Time) {
	var dateRange DateRange
	if err := c.ShouldBindQuery(&dateRange); err != nil {
		h.logger.WithError(err).Error("Failed to parse date range")
	}

	var from, to time.Time
	if dateRange.StartDate != "" {
		if t, err := time.Parse("2006-01-02", dateRange.StartDate); err == nil {
			from = t
		}
	}
	if dateRange.EndDate != "" {
		if t, err := time.Parse("2006-01-02", dateRange.EndDate); err == nil {
			// Inclusive end of day
			to = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	}
	return from, to
}

func (h *Handler) transactionQuery(c *gin.Context) database.TransactionQuery {
	from, to := h.parseDateRange(c)
	return database.TransactionQuery{
		Area:         c.Query("area"),
		Building:     c.Query("building"),
		Project:      c.Query("project"),
		Developer:    c.Query("developer"),
		PropertyType: c.Query("propertyType"),
		From:         from,
		To:           to,
	}
}

func (h *Handler) rentalQuery(c *gin.Context) database.RentalQuery {
	from, to := h.parseDateRange(c)
	return database.RentalQuery{
		Area:         c.Query("area"),
		PropertyType: c.Query("propertyType"),
		From:         from,
		To:           to,
	}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(fallback)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

// GetTransactions lists sale records, newest first, paged.
func (h *Handler) GetTransactions(c *gin.Context) {
	q := h.transactionQuery(c)
	q.Limit = intQuery(c, "limit", 100)
	q.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	txs, err := h.db.ListTransactions(q)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	c.JSON(http.StatusOK, txs)
}

// IngestTransactions accepts a batch of sale records and queues it for
// asynchronous persistence.
func (h *Handler) IngestTransactions(c *gin.Context) {
	var batch []*models.Transaction
	if err := c.ShouldBindJSON(&batch); err != nil {
		h.logger.WithError(err).Error("Failed to parse transaction batch")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction batch"})
		return
	}
	if len(batch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty transaction batch"})
		return
	}
	if len(batch) > h.cfg.BatchProcessing.MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Batch exceeds maximum size"})
		return
	}

	if err := h.ingestQueue.PushTransactions(batch); err != nil {
		h.logger.WithError(err).Error("Failed to queue transaction batch")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ingest queue unavailable"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"queued": len(batch)})
}

// GetRentals lists rental contracts, newest first, paged.
func (h *Handler) GetRentals(c *gin.Context) {
	q := h.rentalQuery(c)
	q.Limit = intQuery(c, "limit", 100)
	q.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	rentals, err := h.db.ListRentals(q)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list rentals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list rentals"})
		return
	}

	c.JSON(http.StatusOK, rentals)
}

// IngestRentals accepts a batch of rental contracts and queues it for
// asynchronous persistence.
func (h *Handler) IngestRentals(c *gin.Context) {
	var batch []*models.Rental
	if err := c.ShouldBindJSON(&batch); err != nil {
		h.logger.WithError(err).Error("Failed to parse rental batch")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rental batch"})
		return
	}
	if len(batch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty rental batch"})
		return
	}
	if len(batch) > h.cfg.BatchProcessing.MaxBatchSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Batch exceeds maximum size"})
		return
	}

	if err := h.ingestQueue.PushRentals(batch); err != nil {
		h.logger.WithError(err).Error("Failed to queue rental batch")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ingest queue unavailable"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"queued": len(batch)})
}

// GetSalesStats returns headline numbers over the matching sales.
func (h *Handler) GetSalesStats(c *gin.Context) {
	txs, err := h.db.QueryTransactions(h.transactionQuery(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to query transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get sales stats"})
		return
	}

	c.JSON(http.StatusOK, engine.SalesSummary(txs))
}

// GetRentalStats returns headline numbers over the matching rentals.
func (h *Handler) GetRentalStats(c *gin.Context) {
	rentals, err := h.db.QueryRentals(h.rentalQuery(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to query rentals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get rental stats"})
		return
	}

	c.JSON(http.StatusOK, engine.RentalSummary(rentals))
}

// GetSalesTrends buckets sales per period. ?period= is month, quarter
// or year, defaulting to month.
func (h *Handler) GetSalesTrends(c *gin.Context) {
	txs, err := h.db.QueryTransactions(h.transactionQuery(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to query transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get sales trends"})
		return
	}

	period := c.DefaultQuery("period", "month")
	switch period {
	case "month":
		c.JSON(http.StatusOK, engine.MonthlyTrends(txs))
	case "quarter", "year":
		keyFn := engine.QuarterKey
		if period == "year" {
			keyFn = engine.YearKey
		}
		buckets := engine.Aggregate(txs,
			func(tx models.Transaction) string { return keyFn(tx.InstanceDate) },
			func(tx models.Transaction) (float64, bool) {
				p := tx.UnitPrice()
				return p, p > 0
			})
		for i := range buckets {
			buckets[i].Mean = engine.Round2(buckets[i].Mean)
		}
		c.JSON(http.StatusOK, buckets)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period, expected month, quarter or year"})
	}
}

// GetAreaBreakdown rolls up sales per area, busiest first.
func (h *Handler) GetAreaBreakdown(c *gin.Context) {
	txs, err := h.db.QueryTransactions(h.transactionQuery(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to query transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get area breakdown"})
		return
	}

	c.JSON(http.StatusOK, engine.AreaBreakdown(txs))
}

// GetRentalTrends returns year-over-year rent and volume changes.
func (h *Handler) GetRentalTrends(c *gin.Context) {
	rentals, err := h.db.QueryRentals(h.rentalQuery(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to query rentals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get rental trends"})
		return
	}

	c.JSON(http.StatusOK, engine.RentalYearTrends(rentals))
}
