// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, clients) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the synccore API server.
type Config struct {

	// Server settings
	Port     string `env:"PORT"      envDefault:"3000"`
	Host     string `env:"HOST"      envDefault:"0.0.0.0"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./migrations"`

	// Key-Value Cache & Pub/Sub event bus (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// AdminAPIKey gates the admin API behind a single shared secret.
	AdminAPIKey string `env:"ADMIN_API_KEY,required"`

	// EventTokenSecret signs capability tokens minted for event-bus subscribers.
	EventTokenSecret string `env:"EVENT_BUS_KEY,required"`

	// External collaborator base URLs (scraper, uploader, catalog, cache purge).
	ScraperBaseURL     string `env:"SCRAPER_BASE_URL,required"`
	UploaderBaseURL    string `env:"UPLOADER_BASE_URL,required"`
	CatalogBaseURL     string `env:"CATALOG_BASE_URL,required"`
	CachePurgeBaseURL  string `env:"CACHE_PURGE_BASE_URL,required"`

	// External collaborator API keys.
	UploaderAPIKey    string `env:"UPLOADER_API_KEY,required"`
	CatalogAPIKey     string `env:"CATALOG_API_KEY,required"`
	CachePurgeAPIKey  string `env:"CACHE_PURGE_API_KEY,required"`

	// Slack bot token used by the operator notifier.
	NotificationChannelKey string `env:"NOTIFICATION_CHANNEL_KEY"`

	// Pipeline timing, expressed in the env as milliseconds and converted on load.
	ScannerIntervalMs   int64 `env:"SCANNER_INTERVAL_MS"    envDefault:"60000"`
	ProcessorIntervalMs int64 `env:"PROCESSOR_INTERVAL_MS"  envDefault:"10000"`
	FetchTimeoutMs      int64 `env:"FETCH_TIMEOUT_MS"       envDefault:"30000"`
	ScrapeTimeoutMs     int64 `env:"SCRAPE_TIMEOUT_MS"      envDefault:"60000"`
	UploadTimeoutMs     int64 `env:"UPLOAD_TIMEOUT_MS"      envDefault:"120000"`
	NotificationCooldownMs int64 `env:"NOTIFICATION_COOLDOWN_MS" envDefault:"3600000"`

	// Pipeline concurrency and retry policy.
	MaxConcurrentScans       int `env:"MAX_CONCURRENT_SCANS"        envDefault:"5"`
	MaxConcurrentSyncs       int `env:"MAX_CONCURRENT_SYNCS"        envDefault:"5"`
	DefaultChaptersPerSeries int `env:"DEFAULT_CHAPTERS_PER_SERIES" envDefault:"3"`
	MaxTaskRetries           int `env:"MAX_TASK_RETRIES"            envDefault:"3"`
	NotifyAfterFailures      int `env:"NOTIFY_AFTER_FAILURES"       envDefault:"3"`

	// DefaultThumbnailURL is sent as the thumbnail of every chapter registered in the catalog.
	DefaultThumbnailURL string `env:"DEFAULT_THUMBNAIL_URL"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// # Duration Helpers
//
// Environment variables are expressed in milliseconds; these helpers convert
// them into [time.Duration] at the call site so downstream code never deals
// with raw integers.

func (c *Config) ScannerInterval() time.Duration {
	return time.Duration(c.ScannerIntervalMs) * time.Millisecond
}

func (c *Config) ProcessorInterval() time.Duration {
	return time.Duration(c.ProcessorIntervalMs) * time.Millisecond
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMs) * time.Millisecond
}

func (c *Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.ScrapeTimeoutMs) * time.Millisecond
}

func (c *Config) UploadTimeout() time.Duration {
	return time.Duration(c.UploadTimeoutMs) * time.Millisecond
}

func (c *Config) NotificationCooldown() time.Duration {
	return time.Duration(c.NotificationCooldownMs) * time.Millisecond
}
