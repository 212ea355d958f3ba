package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"dxbdata/server/config"
	"dxbdata/server/internal/api"
	"dxbdata/server/internal/database"
	"dxbdata/server/internal/engine"
	"dxbdata/server/internal/processor"
	"dxbdata/server/internal/queue"
	"dxbdata/server/internal/scheduler"
	"dxbdata/server/internal/telegram"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logger.Infof("Using database at: %s", cfg.DatabasePath)
	db, err := database.NewDatabase(cfg.DatabasePath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	// Telegram notifier, picking up any previously saved configuration
	telegramService := telegram.NewService(logger)
	if tgConfig, err := db.GetTelegramConfig(); err == nil && tgConfig != nil {
		telegramService.UpdateConfig(tgConfig)
	}

	// Ingest pipeline: closing the queue lets the workers drain what is
	// buffered before Stop returns
	ingestQueue := queue.NewRecordQueue(cfg.BatchProcessing.QueueSize, logger)
	batchProcessor := processor.NewBatchProcessor(db, ingestQueue, cfg, logger)
	batchProcessor.Start()
	defer func() {
		ingestQueue.Close()
		batchProcessor.Stop()
	}()

	// Alert scanner and its schedule
	scanner := engine.NewScanner(db, db, db.Triggers(), telegramService, logger)
	scanScheduler := scheduler.NewScheduler(scanner,
		time.Duration(cfg.Scanner.IntervalMinutes)*time.Minute, logger)
	scanScheduler.Start()
	defer scanScheduler.Stop()

	// HTTP API
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())

	handler := api.NewHandler(db, cfg, scanner, ingestQueue, telegramService, logger)
	api.SetupRoutes(router, handler)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("Starting server on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	// Shut down cleanly on SIGINT/SIGTERM so in-flight scans leave their
	// watermarks consistent
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
}
