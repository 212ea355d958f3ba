package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dxbdata/server/internal/engine"
)

func (h *Handler) flipConfig(c *gin.Context) engine.FlipConfig {
	return engine.FlipConfig{
		MaxHoldDays:  intQuery(c, "maxHoldDays", h.cfg.Analytics.FlipMaxHoldDays),
		MinUnitSales: intQuery(c, "minUnitSales", h.cfg.Analytics.FlipMinUnitSales),
	}
}

func (h *Handler) detectFlips(c *gin.Context) ([]engine.Flip, bool) {
	txs, err := h.db.QueryTransactions(h.transactionQuery(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to query transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to detect flips"})
		return nil, false
	}
	return engine.DetectFlips(txs, h.flipConfig(c)), true
}

// GetFlips lists detected resale pairs, most profitable first.
func (h *Handler) GetFlips(c *gin.Context) {
	flips, ok := h.detectFlips(c)
	if !ok {
		return
	}

	limit := intQuery(c, "limit", 100)
	if len(flips) > limit {
		flips = flips[:limit]
	}
	c.JSON(http.StatusOK, flips)
}

// GetFlipsByArea rolls flips up per area.
func (h *Handler) GetFlipsByArea(c *gin.Context) {
	flips, ok := h.detectFlips(c)
	if !ok {
		return
	}

	minFlips := intQuery(c, "minFlips", h.cfg.Analytics.MinFlipsForStats)
	c.JSON(http.StatusOK, engine.FlipStatsByArea(flips, minFlips))
}

// GetFlipsByBuilding rolls flips up per building.
func (h *Handler) GetFlipsByBuilding(c *gin.Context) {
	flips, ok := h.detectFlips(c)
	if !ok {
		return
	}

	minFlips := intQuery(c, "minFlips", h.cfg.Analytics.MinFlipsForStats)
	c.JSON(http.StatusOK, engine.FlipStatsByBuilding(flips, minFlips))
}

// GetGrossYields joins sales against rentals per area and returns gross
// yield rankings.
func (h *Handler) GetGrossYields(c *gin.Context) {
	txs, err := h.db.QueryTransactions(h.transactionQuery(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to query transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute yields"})
		return
	}
	rentals, err := h.db.QueryRentals(h.rentalQuery(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to query rentals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute yields"})
		return
	}

	minSamples := intQuery(c, "minSamples", h.cfg.Analytics.YieldMinSamples)
	c.JSON(http.StatusOK, engine.GrossYields(txs, rentals, minSamples))
}

// GetSeasonality returns the per-month rental activity profile. The
// window defaults to the trailing three years.
func (h *Handler) GetSeasonality(c *gin.Context) {
	q := h.rentalQuery(c)
	if q.From.IsZero() {
		q.From = time.Now().AddDate(-3, 0, 0)
	}

	rentals, err := h.db.QueryRentals(q)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query rentals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute seasonality"})
		return
	}

	c.JSON(http.StatusOK, engine.Seasonality(rentals))
}

// GetVacancySignals classifies areas by recent rental momentum.
func (h *Handler) GetVacancySignals(c *gin.Context) {
	now := time.Now()
	q := h.rentalQuery(c)
	if q.From.IsZero() {
		q.From = now.AddDate(0, -12, 0)
	}

	rentals, err := h.db.QueryRentals(q)
	if err != nil {
		h.logger.WithError(err).Error("Failed to query rentals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute vacancy signals"})
		return
	}

	minContracts := intQuery(c, "minContracts", h.cfg.Analytics.VacancyMinContracts)
	c.JSON(http.StatusOK, engine.VacancySignals(rentals, now, minContracts))
}

// GetProjectPriceChanges compares launch pricing against current
// pricing per project.
func (h *Handler) GetProjectPriceChanges(c *gin.Context) {
	txs, err := h.db.QueryTransactions(h.transactionQuery(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to query transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute project price changes"})
		return
	}

	window := intQuery(c, "window", h.cfg.Analytics.LaunchWindow)
	minSales := intQuery(c, "minSales", h.cfg.Analytics.LaunchWindow*2)
	c.JSON(http.StatusOK, engine.PriceChangeFromLaunch(txs, window, minSales))
}

// GetOffPlanProjects lists off-plan projects with their sale stats,
// busiest first.
func (h *Handler) GetOffPlanProjects(c *gin.Context) {
	txs, err := h.db.QueryTransactions(h.transactionQuery(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to query transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list off-plan projects"})
		return
	}

	minUnits := intQuery(c, "minUnits", h.cfg.Analytics.OffPlanMinUnits)
	projects := engine.OffPlanProjects(txs, minUnits)

	limit := intQuery(c, "limit", 100)
	if len(projects) > limit {
		projects = projects[:limit]
	}
	c.JSON(http.StatusOK, projects)
}

// GetDelayedProjects flags off-plan projects whose sales started years
// ago with no ready sale recorded since.
func (h *Handler) GetDelayedProjects(c *gin.Context) {
	txs, err := h.db.QueryTransactions(h.transactionQuery(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to query transactions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list delayed projects"})
		return
	}

	years := intQuery(c, "yearsThreshold", h.cfg.Analytics.OffPlanDelayedYears)
	c.JSON(http.StatusOK, engine.DelayedProjects(txs, years, time.Now()))
}
