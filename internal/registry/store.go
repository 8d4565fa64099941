// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package registry

import (
	"context"
	"time"
)

// Store is the durable-state contract for series, sources, and sync tasks.
// All writes must be durable before returning; multi-row mutations
// (ReplaceSources, CreateTasks, RetryFailed) are transactional with
// rollback on error.
type Store interface {

	// # Series CRUD

	/*
		Create persists a new series with its normalized source set.

		Returns ErrAlreadyRegistered if ExternalID collides with an existing series.
	*/
	Create(ctx context.Context, spec SeriesSpec) (*Series, error)

	// Get returns the series with its attached sources.
	Get(ctx context.Context, id string) (*Series, error)

	// GetByCatalogID looks a series up by its external catalog identifier.
	GetByCatalogID(ctx context.Context, externalID string) (*Series, error)

	// List returns a page of series matching filter, and the total match count.
	List(ctx context.Context, filter SeriesFilter) ([]*Series, int, error)

	// Update applies a partial patch to an existing series.
	Update(ctx context.Context, id string, patch SeriesPatch) (*Series, error)

	// Delete removes a series, cascading to its sources and tasks.
	Delete(ctx context.Context, id string) error

	// # Sources

	/*
		ReplaceSources normalizes (trim, dedupe) and atomically replaces
		a series' source set, reassigning 1-based priorities in input order.

		Enforces MinSourcesPerSeries..MaxSourcesPerSeries unique URLs.
	*/
	ReplaceSources(ctx context.Context, seriesID string, urls []string) ([]*Source, error)

	// GetEnabledSources returns a series' enabled sources ordered by priority ascending.
	GetEnabledSources(ctx context.Context, seriesID string) ([]*Source, error)

	// RecordSourceScan persists the outcome of one source's scrape attempt.
	RecordSourceScan(ctx context.Context, sourceID string, status ScanStatus, chapterCount int, lastChapter *float64, scanErr string) error

	// # Series state transitions

	// SetStatus transitions a series, incrementing ConsecutiveFailures iff errMsg is non-empty.
	SetStatus(ctx context.Context, id string, status SeriesStatus, errMsg string) error

	// RecordScanResult persists a completed scan's summary (see [ScanResult]).
	RecordScanResult(ctx context.Context, id string, result ScanResult) error

	// UpdateBackendChapterStats overwrites a series' backend chapter count/last-chapter.
	UpdateBackendChapterStats(ctx context.Context, id string, count int, last *float64) error

	// IncrementBackendChapterStats bumps the backend count and raises last-chapter if exceeded.
	IncrementBackendChapterStats(ctx context.Context, id string, chapterNumber float64) error

	// IncrementSyncProgressTotal adjusts a series' sync_progress_total by delta.
	IncrementSyncProgressTotal(ctx context.Context, id string, delta int) error

	// RefreshSyncProgress recomputes completed/failed counters from the task table.
	RefreshSyncProgress(ctx context.Context, id string) error

	// SetLastSyncedAt stamps the series' last_synced_at to now.
	SetLastSyncedAt(ctx context.Context, id string) error

	// TriggerForceScan sets next_scan_at=now, clearing status to idle unless actively syncing.
	TriggerForceScan(ctx context.Context, id string) error

	// # Tasks

	/*
		CreateTasks bulk-inserts tasks for a series under a transaction.

		A task with a (series, chapter_number) collision is not duplicated —
		only its updated_at is bumped.
	*/
	CreateTasks(ctx context.Context, seriesID string, specs []NewTaskSpec) error

	// GetPending returns up to limit pending tasks for a series, ordered by weight ascending.
	GetPending(ctx context.Context, seriesID string, limit int) ([]*SyncTask, error)

	// GetAllForSeries returns every task belonging to a series.
	GetAllForSeries(ctx context.Context, seriesID string) ([]*SyncTask, error)

	// GetFailed returns a series' tasks currently in the failed state.
	GetFailed(ctx context.Context, seriesID string) ([]*SyncTask, error)

	/*
		SetTaskStatus transitions a task, recording zip_url/error as supplied.

		A nil zipURL preserves the existing stored value, so the processor can
		resume mid-pipeline. Moving to failed increments retry_count.
	*/
	SetTaskStatus(ctx context.Context, taskID string, status TaskStatus, zipURL *string, errMsg string) error

	/*
		RetryFailed flips every failed task for a series back to pending and
		clears its error. If any row was touched, the series is set to syncing.

		Returns the number of rows affected.
	*/
	RetryFailed(ctx context.Context, seriesID string) (int, error)

	// # Query helpers

	// GetDue returns auto-enabled idle series whose next_scan_at has elapsed,
	// ordered by priority desc, next_scan_at asc.
	GetDue(ctx context.Context, limit int) ([]*Series, error)

	// GetWithActiveTasks returns syncing series that still have ≥1 active task.
	GetWithActiveTasks(ctx context.Context) ([]*Series, error)

	/*
		ResolveCompletedSyncingSeries sweeps series stuck in syncing whose tasks
		have all reached terminal states, flipping them to error (if any failed
		remains) or idle otherwise. Returns the number of series resolved.
	*/
	ResolveCompletedSyncingSeries(ctx context.Context) (int, error)

	// # Recovery

	// RecoverStaleTasks requeues tasks and series left mid-pipeline by a
	// prior crash, run once at process startup before the tickers start.
	RecoverStaleTasks(ctx context.Context) error

	// # Domain migration

	/*
		UpdateDomain replaces the hostname of matching source URLs, preserving
		path/query/fragment. When dryRun, no rows are mutated and a bounded
		sample of {old_url,new_url} pairs is returned alongside the count.
	*/
	UpdateDomain(ctx context.Context, oldDomain, newDomain string, seriesIDs []string, dryRun bool) (DomainMigrationResult, error)
}

// ScanResult is the scanner's summary of one source sweep, persisted atomically.
type ScanResult struct {
	SourceChapterCount int
	SourceLastChapter  *float64
	NextScanAt         time.Time
}

// DomainMigrationResult is the outcome of UpdateDomain.
type DomainMigrationResult struct {
	AffectedCount int
	UpdatedCount  int
	Sample        []URLPair
}

// URLPair names a migration candidate's before/after source URL.
type URLPair struct {
	OldURL string `json:"old_url"`
	NewURL string `json:"new_url"`
}
