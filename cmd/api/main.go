// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Api is the entry point for the synccore service.

synccore keeps a downstream comic catalog aligned with upstream sources: it
scans registered series for new chapters and drains the resulting work
through a four-step pipeline (enumerate, stage, persist, register) against
four external collaborators.

Usage:

	go run cmd/api/main.go [flags]

The flags/environment variables are:

	PORT            Port to listen on (default: 3000)
	DATABASE_URL    Postgres connection string (required)
	REDIS_URL       Redis connection string (required)

Startup Sequence:

 1. Logger: Initialize structured JSON logging (slog).
 2. Config: Load and validate environment variables.
 3. Storage: Establish connections to Postgres and Redis.
 4. Migration: Run idempotent schema updates.
 5. Wiring: Inject dependencies into domain services/handlers.
 6. Recovery: Requeue sync tasks stranded by a prior crash.
 7. Scheduler: Start the scanner and processor tickers.
 8. Server: Bind HTTP listener and handle graceful shutdown.

No business logic lives here. This file is strictly for orchestration and wiring.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yomira/synccore/internal/api"
	"github.com/yomira/synccore/internal/clients"
	"github.com/yomira/synccore/internal/events"
	"github.com/yomira/synccore/internal/platform/config"
	"github.com/yomira/synccore/internal/platform/constants"
	"github.com/yomira/synccore/internal/platform/migration"
	pgstore "github.com/yomira/synccore/internal/platform/postgres"
	redisstore "github.com/yomira/synccore/internal/platform/redis"
	"github.com/yomira/synccore/internal/platform/sec"
	"github.com/yomira/synccore/internal/registry"
	"github.com/yomira/synccore/internal/scanner"
	"github.com/yomira/synccore/internal/scheduler"
	"github.com/yomira/synccore/internal/syncer"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application_startup_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// # 1. Logger
	// Initialize first so that subsequent startup errors are structured JSON.
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})).With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// # 2. Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log.Info("configuration_loaded", slog.String("port", cfg.Port), slog.String("log_level", cfg.LogLevel))

	// Root context for startup. A 30s deadline prevents the app from hanging.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// # 3. PostgreSQL
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// # 4. Redis
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_error", slog.Any("error", cerr))
		}
	}()

	// # 5. Migrations
	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// # 6. External collaborators
	scraperClient := clients.NewScraperClient(cfg.ScraperBaseURL, cfg.ScrapeTimeout())
	uploaderClient := clients.NewUploaderClient(cfg.UploaderBaseURL, cfg.UploaderAPIKey, cfg.UploadTimeout())
	catalogClient := clients.NewCatalogClient(cfg.CatalogBaseURL, cfg.CatalogAPIKey, cfg.FetchTimeout())
	cachePurgeClient := clients.NewCachePurgeClient(cfg.CachePurgeBaseURL, cfg.CachePurgeAPIKey, cfg.FetchTimeout())
	notifier := clients.NewNotifier(cfg.NotificationChannelKey, constants.NotificationChannel, cfg.NotificationCooldown())

	// # 7. Event bus
	tokenSvc, err := sec.NewTokenService(cfg.EventTokenSecret, constants.AppName)
	if err != nil {
		return fmt.Errorf("initialize event token service: %w", err)
	}
	publisher := events.NewPublisher(rdb, log)
	invalidator := events.NewInvalidator(cachePurgeClient, log)
	eventsHdl := events.NewHandler(tokenSvc, constants.EventTokenTTL)

	// # 8. Registry store/service
	store := registry.NewStore(pool)
	registrySvc := registry.NewService(store, publisher, log)

	// Stale-task recovery — requeue work stranded by a prior crash before
	// the tickers start touching the same rows.
	if err := registrySvc.Recover(startupCtx); err != nil {
		return fmt.Errorf("recover stale tasks: %w", err)
	}

	// # 10. Scanner and processor
	scan := scanner.New(store, scraperClient, catalogClient, publisher, notifier, log, scanner.Config{
		MaxConcurrentScans:  cfg.MaxConcurrentScans,
		FetchTimeout:        cfg.FetchTimeout(),
		ScrapeTimeout:       cfg.ScrapeTimeout(),
		NotifyAfterFailures: cfg.NotifyAfterFailures,
	})
	registrySvc.OnCreated(func(seriesID string) {
		go scan.ScanByID(context.Background(), seriesID)
	})

	proc := syncer.New(store, scraperClient, uploaderClient, catalogClient, publisher, invalidator, log, syncer.Config{
		MaxConcurrentSyncs:       cfg.MaxConcurrentSyncs,
		DefaultChaptersPerSeries: cfg.DefaultChaptersPerSeries,
		ScrapeTimeout:            cfg.ScrapeTimeout(),
		StageTimeout:             cfg.UploadTimeout(),
		UploadTimeout:            cfg.UploadTimeout(),
		CatalogTimeout:           cfg.FetchTimeout(),
		DefaultThumbnailURL:      cfg.DefaultThumbnailURL,
	})

	// Create a background context for the whole application lifecycle.
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	sched := scheduler.New(log,
		scheduler.NewTicker("scanner", scan, cfg.ScannerInterval(), log),
		scheduler.NewTicker("processor", proc, cfg.ProcessorInterval(), log),
	)
	sched.Start(appCtx)

	// # 11. Admin API handlers
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Registry:  registry.NewHandler(registrySvc),
		Events:    eventsHdl,
	}

	server := api.NewServer(appCtx, cfg, log, handlers)

	// # 12. Lifecycle handling
	shutdownErr := make(chan error, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownErr <- fmt.Errorf("http_server_crash: %w", err)
		}
	}()

	log.Info("synccore_api_running", slog.String("port", cfg.Port))

	// Block until signal or error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-shutdownErr:
		return err
	}

	// Start graceful shutdown sequence.
	appCancel() // Signal scheduler tickers and background workers to stop.

	log.Info("shutting_down_api_server", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		return fmt.Errorf("server_shutdown_failed: %w", err)
	}

	sched.Stop(constants.ShutdownTimeout)

	log.Info("graceful_shutdown_complete")
	return nil
}
