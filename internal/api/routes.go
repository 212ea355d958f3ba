package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.Health)

	api := router.Group("/api")
	{
		api.GET("/transactions", handler.GetTransactions)
		api.GET("/transactions/:id", handler.GetTransaction)
		api.POST("/transactions", handler.IngestTransactions)
		api.GET("/rentals", handler.GetRentals)
		api.POST("/rentals", handler.IngestRentals)

		api.GET("/stats", handler.GetSalesStats)
		api.GET("/stats/rentals", handler.GetRentalStats)
		api.GET("/trends", handler.GetSalesTrends)
		api.GET("/trends/rentals", handler.GetRentalTrends)
		api.GET("/areas", handler.GetAreaBreakdown)

		api.GET("/flips", handler.GetFlips)
		api.GET("/flips/areas", handler.GetFlipsByArea)
		api.GET("/flips/buildings", handler.GetFlipsByBuilding)
		api.GET("/yields", handler.GetGrossYields)
		api.GET("/seasonality", handler.GetSeasonality)
		api.GET("/vacancy-signals", handler.GetVacancySignals)
		api.GET("/projects/price-changes", handler.GetProjectPriceChanges)
		api.GET("/offplan/projects", handler.GetOffPlanProjects)
		api.GET("/offplan/delayed", handler.GetDelayedProjects)

		api.POST("/alerts", handler.CreateAlert)
		api.GET("/alerts", handler.ListAlerts)
		api.GET("/alerts/:id", handler.GetAlert)
		api.PUT("/alerts/:id", handler.UpdateAlert)
		api.DELETE("/alerts/:id", handler.DeleteAlert)
		api.GET("/alerts/:id/history", handler.GetAlertHistory)
		api.POST("/alerts/scan", handler.RunScan)

		api.POST("/watchlists", handler.CreateWatchlist)
		api.GET("/watchlists", handler.ListWatchlists)
		api.GET("/watchlists/:id", handler.GetWatchlist)
		api.PUT("/watchlists/:id", handler.UpdateWatchlist)
		api.DELETE("/watchlists/:id", handler.DeleteWatchlist)
		api.GET("/watchlists/:id/matches", handler.GetWatchlistMatches)

		api.GET("/telegram/config", handler.GetTelegramConfig)
		api.POST("/telegram/config", handler.UpdateTelegramConfig)
		api.POST("/telegram/test", handler.TestTelegramConfig)
	}
}
