package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tmarsden/tradescout-backend/config"
	"github.com/tmarsden/tradescout-backend/internal/app/controller"
	"github.com/tmarsden/tradescout-backend/internal/app/repository"
	"github.com/tmarsden/tradescout-backend/internal/app/service"
	"github.com/tmarsden/tradescout-backend/internal/cache"
	"github.com/tmarsden/tradescout-backend/internal/clients/places"
	"github.com/tmarsden/tradescout-backend/internal/clients/registry"
	"github.com/tmarsden/tradescout-backend/internal/db"
	"github.com/tmarsden/tradescout-backend/internal/router"
	"github.com/tmarsden/tradescout-backend/internal/scheduler"
	"github.com/tmarsden/tradescout-backend/internal/storage"
	"github.com/tmarsden/tradescout-backend/pkg/logger"
	"github.com/tmarsden/tradescout-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting TradeScout Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	database, err := db.Connect(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(database); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Shared coordinate cache; the pipeline works without it
	coordCache, err := redis.Connect(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, coordinate lookups use the local cache only", map[string]interface{}{
			"error": err.Error(),
		})
		coordCache = nil
	} else {
		defer coordCache.Close()
	}

	// In-process response cache
	memCache := cache.NewMemoryCache(cfg.Cache.MaxEntries)

	// Upstream adapters
	placesClient := places.NewClient(&cfg.Places)
	registryClient := registry.NewClient(&cfg.Registry)

	// Object storage for exports; optional
	var s3Storage *storage.S3Storage
	if cfg.S3.Bucket != "" {
		s3Storage = storage.NewS3Storage(
			cfg.S3.Region,
			cfg.S3.Bucket,
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			cfg.S3.BaseURL,
		)
	}

	// Initialize repositories
	businessRepo := repository.NewBusinessRepository(database)

	// Initialize services
	searchService := service.NewSearchService(
		businessRepo,
		placesClient,
		registryClient,
		memCache,
		coordCache,
		cfg.Cache,
		cfg.Search,
	)
	businessService := service.NewBusinessService(businessRepo)
	exportService := service.NewExportService(businessRepo, s3Storage)

	// Initialize controllers
	searchController := controller.NewSearchController(searchService)
	businessController := controller.NewBusinessController(businessService)
	exportController := controller.NewExportController(exportService)

	// Start maintenance jobs
	maintenance := scheduler.NewMaintenanceScheduler(businessRepo, memCache)
	if err := maintenance.Start(); err != nil {
		logger.Fatal("Failed to start maintenance scheduler", err)
	}
	defer maintenance.Stop()

	// Setup router
	r := router.NewRouter(
		searchController,
		businessController,
		exportController,
		cfg,
	)
	engine := r.Setup()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")
	logger.Info("Server stopped successfully")
}
