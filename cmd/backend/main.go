package main

import (
	"SiteStats-Backend/internal/analytics"
	"SiteStats-Backend/internal/auth"
	"SiteStats-Backend/internal/config"
	"SiteStats-Backend/internal/database"
	httpHandler "SiteStats-Backend/internal/handler/http"
	"SiteStats-Backend/internal/repository/postgres"
	"SiteStats-Backend/pkg/logger"
	"SiteStats-Backend/pkg/useragent"
	"context"
	"fmt"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting SiteStats backend", zap.String("env", cfg.Env))

	// Reporting timezone drives day and hour bucketing everywhere
	loc, err := time.LoadLocation(cfg.Analytics.Timezone)
	if err != nil {
		log.Warn("invalid analytics timezone, falling back to UTC",
			zap.String("timezone", cfg.Analytics.Timezone), zap.Error(err))
		loc = time.UTC
	}

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations if enabled
	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	passwordService := auth.NewPasswordService()

	// Seed the admin account if enabled
	if cfg.Database.SeedData {
		passwordHash := ""
		if cfg.Auth.AdminPassword != "" {
			passwordHash, err = passwordService.HashPassword(cfg.Auth.AdminPassword)
			if err != nil {
				log.Fatal("failed to hash admin password", zap.Error(err))
			}
		}
		if err := database.SeedAdmin(db, log, cfg.Auth.AdminEmail, passwordHash); err != nil {
			log.Fatal("failed to seed admin account", zap.Error(err))
		}
	} else {
		log.Info("skipping database seeding (seed_data: false)")
	}

	// Initialize User-Agent parser and storage
	uaParser := useragent.New(cfg.Analytics.UARegexesPath, log)
	storage := postgres.New(db, log)

	// Start the ingestion worker pool
	ingestor := analytics.NewIngestor(storage, uaParser, log, analytics.IngestorConfig{
		WorkerCount: cfg.Analytics.Workers,
		BufferSize:  cfg.Analytics.BufferSize,
	})
	if err := ingestor.Start(); err != nil {
		log.Fatal("failed to start ingestor", zap.Error(err))
	}

	reports := analytics.NewReports(storage, log, cfg.Analytics.ExportBatchSize)

	// Initialize JWT service for admin authentication
	jwtService := auth.NewJWTService(&auth.JWTConfig{
		SecretKey: []byte(cfg.Auth.JWTSecret),
		TokenTTL:  cfg.Auth.TokenTTL,
		Issuer:    cfg.Auth.Issuer,
	})

	apiServer := httpHandler.NewServer(
		storage,
		reports,
		ingestor,
		jwtService,
		passwordService,
		log,
		cfg.Analytics.PageSize,
		loc,
	)

	addr := fmt.Sprintf(":%d", cfg.HTTPServer.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apiServer.SetupRoutes(),
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	log.Info("starting HTTP server", zap.String("address", addr))

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down SiteStats backend...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// Drain queued page views before letting the process exit
	if err := ingestor.Stop(); err != nil {
		log.Error("failed to stop ingestor cleanly", zap.Error(err))
	} else {
		log.Info("ingestor stopped")
	}
}
