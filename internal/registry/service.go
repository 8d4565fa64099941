// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package registry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yomira/synccore/internal/events"
	"github.com/yomira/synccore/internal/platform/validate"
)

const (
	FieldExternalID = "external_id"
	FieldSourceURLs = "source_urls"
	FieldTitle      = "title"
)

const maxBulkCreateItems = 50

// Service orchestrates the business logic around series, sources, and tasks.
//
// It is the only caller of [Store] from outside the scanner/processor ticks —
// the admin API talks to series exclusively through it.
type Service struct {
	store     Store
	publisher *events.Publisher
	logger    *slog.Logger

	// onCreated is invoked synchronously after a series is durably created;
	// the callback itself is responsible for scheduling the first scan
	// asynchronously.
	onCreated func(seriesID string)
}

// NewService constructs a [Service] over store, publishing lifecycle events
// through publisher.
func NewService(store Store, publisher *events.Publisher, logger *slog.Logger) *Service {
	return &Service{store: store, publisher: publisher, logger: logger}
}

// OnCreated registers a callback fired after a successful Create/BulkCreate
// item, used to kick off an immediate asynchronous first scan.
func (svc *Service) OnCreated(fn func(seriesID string)) {
	svc.onCreated = fn
}

/*
CreateSeries validates and persists a new series.

Returns ErrInvalidSourceCount if SourceURLs, once normalized, falls outside
[MinSourcesPerSeries, MaxSourcesPerSeries]; ErrAlreadyRegistered if
ExternalID collides with an existing series.
*/
func (svc *Service) CreateSeries(ctx context.Context, spec SeriesSpec) (*Series, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	if spec.CheckIntervalMinutes <= 0 {
		spec.CheckIntervalMinutes = DefaultCheckIntervalMinutes
	}

	series, err := svc.store.Create(ctx, spec)
	if err != nil {
		return nil, err
	}

	svc.logger.Info("series_registered",
		slog.String("series_id", series.ID),
		slog.String("external_id", series.ExternalID),
		slog.Int("source_count", len(series.Sources)),
	)
	svc.publisher.Publish(ctx, events.EventMangaCreated, series.ExternalID, nil)

	if svc.onCreated != nil {
		svc.onCreated(series.ID)
	}

	return series, nil
}

func validateSpec(spec SeriesSpec) error {
	validator := &validate.Validator{}
	validator.Required(FieldExternalID, spec.ExternalID)
	validator.Required(FieldTitle, spec.Title)
	if err := validator.Err(); err != nil {
		return err
	}

	normalized := NormalizeSourceURLs(spec.SourceURLs)
	if len(normalized) < MinSourcesPerSeries || len(normalized) > MaxSourcesPerSeries {
		return ErrInvalidSourceCount
	}

	return nil
}

// BulkCreateResult reports the outcome of one item in a BulkCreate call.
type BulkCreateResult struct {
	ExternalID string `json:"external_id"`
	Outcome    string `json:"outcome"` // "created" | "skipped"
	SeriesID   string `json:"series_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

/*
BulkCreate registers up to maxBulkCreateItems series in one call.

Unlike CreateSeries, a collision never fails the call — it is reported as a
skipped item so a single duplicate does not abort an otherwise valid batch.
*/
func (svc *Service) BulkCreate(ctx context.Context, specs []SeriesSpec) ([]BulkCreateResult, error) {
	if len(specs) > maxBulkCreateItems {
		validator := &validate.Validator{}
		validator.Custom("items", true, "items must contain at most 50 entries")
		return nil, validator.Err()
	}

	results := make([]BulkCreateResult, 0, len(specs))
	for _, spec := range specs {
		series, err := svc.CreateSeries(ctx, spec)
		switch {
		case err == nil:
			results = append(results, BulkCreateResult{ExternalID: spec.ExternalID, Outcome: "created", SeriesID: series.ID})
		case errors.Is(err, ErrAlreadyRegistered):
			results = append(results, BulkCreateResult{ExternalID: spec.ExternalID, Outcome: "skipped", Reason: "already registered"})
		case errors.Is(err, ErrInvalidSourceCount):
			results = append(results, BulkCreateResult{ExternalID: spec.ExternalID, Outcome: "skipped", Reason: err.Error()})
		default:
			return nil, err
		}
	}

	return results, nil
}

// GetSeries returns a series along with its currently-failed tasks.
func (svc *Service) GetSeries(ctx context.Context, id string) (*Series, []*SyncTask, error) {
	series, err := svc.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	failed, err := svc.store.GetFailed(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return series, failed, nil
}

// ListSeries returns a page of series matching filter.
func (svc *Service) ListSeries(ctx context.Context, filter SeriesFilter) ([]*Series, int, error) {
	return svc.store.List(ctx, filter)
}

// UpdateSeries applies a partial patch, re-validating any replaced source set.
func (svc *Service) UpdateSeries(ctx context.Context, id string, patch SeriesPatch) (*Series, error) {
	if patch.SourceURLs != nil {
		normalized := NormalizeSourceURLs(patch.SourceURLs)
		if len(normalized) < MinSourcesPerSeries || len(normalized) > MaxSourcesPerSeries {
			return nil, ErrInvalidSourceCount
		}
	}

	series, err := svc.store.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	svc.logger.Info("series_updated", slog.String("series_id", id))
	svc.publisher.Publish(ctx, events.EventMangaUpdated, series.ExternalID, nil)
	return series, nil
}

// DeleteSeries removes a series and its sources/tasks.
func (svc *Service) DeleteSeries(ctx context.Context, id string) error {
	series, err := svc.store.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := svc.store.Delete(ctx, id); err != nil {
		return err
	}
	svc.logger.Info("series_deleted", slog.String("series_id", id))
	svc.publisher.Publish(ctx, events.EventMangaDeleted, series.ExternalID, nil)
	return nil
}

// ForceScan schedules an immediate scan; idempotent while a series is syncing.
func (svc *Service) ForceScan(ctx context.Context, id string) error {
	if err := svc.store.TriggerForceScan(ctx, id); err != nil {
		return err
	}
	svc.logger.Info("force_scan_triggered", slog.String("series_id", id))
	return nil
}

// ErrNoFailedTasks is returned by RetryFailed when a series has none.
var ErrNoFailedTasks = errors.New("registry: series has no failed tasks")

// RetryFailed flips a series' failed tasks back to pending.
func (svc *Service) RetryFailed(ctx context.Context, id string) (int, error) {
	count, err := svc.store.RetryFailed(ctx, id)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrNoFailedTasks
	}

	svc.logger.Info("tasks_retried", slog.String("series_id", id), slog.Int("count", count))
	return count, nil
}

// UpdateDomainInput is the input to UpdateDomain.
type UpdateDomainInput struct {
	OldDomain string
	NewDomain string
	SeriesIDs []string
	DryRun    bool
}

// UpdateDomain migrates a set of sources from one hostname to another.
func (svc *Service) UpdateDomain(ctx context.Context, in UpdateDomainInput) (DomainMigrationResult, error) {
	validator := &validate.Validator{}
	validator.Required("old_domain", in.OldDomain)
	validator.Required("new_domain", in.NewDomain)
	validator.Custom("series_ids", len(in.SeriesIDs) > 200, "series_ids must contain at most 200 entries")
	if err := validator.Err(); err != nil {
		return DomainMigrationResult{}, err
	}

	result, err := svc.store.UpdateDomain(ctx, in.OldDomain, in.NewDomain, in.SeriesIDs, in.DryRun)
	if err != nil {
		return DomainMigrationResult{}, err
	}

	if !in.DryRun {
		svc.logger.Info("domain_migrated",
			slog.String("old_domain", in.OldDomain),
			slog.String("new_domain", in.NewDomain),
			slog.Int("updated_count", result.UpdatedCount),
		)
	}

	return result, nil
}

// Recover runs the startup stale-task recovery sweep once.
func (svc *Service) Recover(ctx context.Context) error {
	start := time.Now()
	if err := svc.store.RecoverStaleTasks(ctx); err != nil {
		return err
	}
	svc.logger.Info("stale_task_recovery_complete", slog.Duration("took", time.Since(start)))
	return nil
}
