// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Pipeline: event-token TTL, the notification channel, and default values
    that no component currently reads (see each constant).
  - Security: the admin API key header.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "synccore-api"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire admin-API request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests/tasks to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP on the admin API.
	DefaultRateLimitRPS = 20.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 40

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # HTTP Headers

const (
	HeaderXRequestID   = "X-Request-ID"
	HeaderXRealIP      = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin       = "Origin"

	// HeaderAPIKey carries the shared admin secret on every mutating admin-API request.
	HeaderAPIKey = "X-API-Key"
)

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldItems   = "items"
	FieldTotal   = "total"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Database Schemas

const (
	SchemaRegistry = "registry"
)

// # Redis Key Prefixes (Cache Taxonomy)

const (
	// RedisPrefixHostPool is a key prefix for host-pool state. No component
	// reads it: the scraper host pool keeps its state in process memory.
	RedisPrefixHostPool = "synccore:hostpool:"

	// RedisChannelCatalogEvents is the global Pub/Sub channel every event
	// envelope is published to; per-series channels append ":<external id>".
	RedisChannelCatalogEvents = "synccore:events:catalog"
)

// # Scanner & Sync Pipeline

const (
	// DefaultScanInterval is not read by the scheduler; the scanner cadence
	// comes from config.Config.ScannerIntervalMs.
	DefaultScanInterval = 10 * time.Minute

	// DefaultStaleTaskInterval is not read by any component. Stale-task
	// recovery runs once at startup; there is no periodic recovery sweep.
	DefaultStaleTaskInterval = 5 * time.Minute

	// DefaultTaskLease is not read by any component. Sync tasks carry no
	// lease; recovery requeues every task left mid-pipeline at startup.
	DefaultTaskLease = 15 * time.Minute

	// MaxTaskAttempts is not read by any component. A failed task stays
	// failed until RetryFailed returns it to pending; no task is marked
	// permanently failed.
	MaxTaskAttempts = 3

	// DefaultSyncWorkers is not read by any component; sync concurrency is
	// bounded by config.Config.MaxConcurrentSyncs.
	DefaultSyncWorkers = 4

	// DefaultScanWorkers is not read by any component; scan concurrency is
	// bounded by config.Config.MaxConcurrentScans.
	DefaultScanWorkers = 8

	// HostPoolDefaultRPS is a per-host request rate that no component reads;
	// clients.NewHostPool takes its rate as an argument.
	HostPoolDefaultRPS = 2.0

	// HostPoolDefaultBurst is a per-host burst capacity that no component reads.
	HostPoolDefaultBurst = 4

	// EventTokenTTL bounds how long a minted capability token authorizes subscription access.
	EventTokenTTL = 1 * time.Hour

	// NotificationChannel is the Slack channel operator alerts are posted to.
	NotificationChannel = "#synccore-alerts"
)
