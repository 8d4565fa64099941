// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package syncer drains sync tasks through the four-step external pipeline:
enumerate chapter images, stage them into a durable archive, persist the
archive via the uploader, then register the result in the backend catalog.
*/
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yomira/synccore/internal/clients"
	"github.com/yomira/synccore/internal/events"
	"github.com/yomira/synccore/internal/registry"
	"github.com/yomira/synccore/pkg/pointer"
)

// Processor drains pending sync tasks for syncing series.
type Processor struct {
	store       registry.Store
	scraper     *clients.ScraperClient
	uploader    *clients.UploaderClient
	catalog     *clients.CatalogClient
	publisher   *events.Publisher
	invalidator *events.Invalidator
	logger      *slog.Logger

	cfg Config
}

// Config holds the tunables the processor needs from the process environment.
type Config struct {
	MaxConcurrentSyncs       int
	DefaultChaptersPerSeries int
	ScrapeTimeout            time.Duration
	StageTimeout             time.Duration
	UploadTimeout            time.Duration
	CatalogTimeout           time.Duration
	DefaultThumbnailURL      string
}

// New constructs a [Processor].
func New(store registry.Store, scraper *clients.ScraperClient, uploader *clients.UploaderClient, catalog *clients.CatalogClient, publisher *events.Publisher, invalidator *events.Invalidator, logger *slog.Logger, cfg Config) *Processor {
	return &Processor{
		store:       store,
		scraper:     scraper,
		uploader:    uploader,
		catalog:     catalog,
		publisher:   publisher,
		invalidator: invalidator,
		logger:      logger,
		cfg:         cfg,
	}
}

// Tick closes out any series whose tasks finished without the status
// flipping, then drains pending work for every series with active tasks.
func (p *Processor) Tick(ctx context.Context) error {
	defer p.invalidator.Flush(context.WithoutCancel(ctx))

	if _, err := p.store.ResolveCompletedSyncingSeries(ctx); err != nil {
		return fmt.Errorf("syncer: resolve completed series: %w", err)
	}

	active, err := p.store.GetWithActiveTasks(ctx)
	if err != nil {
		return fmt.Errorf("syncer: get series with active tasks: %w", err)
	}
	if len(active) == 0 {
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.cfg.MaxConcurrentSyncs)

	for _, series := range active {
		series := series
		group.Go(func() error {
			p.ProcessSeries(groupCtx, series)
			return nil
		})
	}

	return group.Wait()
}

// ProcessSeries drains up to a per-series budget of pending tasks
// sequentially, then finalizes the series if nothing remains active.
func (p *Processor) ProcessSeries(ctx context.Context, series *registry.Series) {
	budget := p.cfg.DefaultChaptersPerSeries
	if budget <= 0 {
		budget = 3
	}

	pending, err := p.store.GetPending(ctx, series.ID, budget)
	if err != nil {
		p.logger.Error("get_pending_failed", slog.String("series_id", series.ID), slog.String("error", err.Error()))
		return
	}

	if len(pending) == 0 {
		p.finalize(ctx, series)
		return
	}

	for _, task := range pending {
		p.runPipeline(ctx, series, task)
	}
}

func (p *Processor) finalize(ctx context.Context, series *registry.Series) {
	tasks, err := p.store.GetAllForSeries(ctx, series.ID)
	if err != nil {
		p.logger.Error("get_all_tasks_failed", slog.String("series_id", series.ID), slog.String("error", err.Error()))
		return
	}

	for _, t := range tasks {
		if t.Status.IsActive() {
			return
		}
	}

	hasFailed := false
	for _, t := range tasks {
		if t.Status == registry.TaskFailed {
			hasFailed = true
			break
		}
	}

	if hasFailed {
		_ = p.store.SetStatus(ctx, series.ID, registry.SeriesError, "Some chapters failed to sync")
		return
	}

	_ = p.store.SetStatus(ctx, series.ID, registry.SeriesIdle, "")
	_ = p.store.SetLastSyncedAt(ctx, series.ID)
}

// runPipeline drives one task through the four external steps. Failure at
// any step fails the task and returns; it never aborts the series' tick.
func (p *Processor) runPipeline(ctx context.Context, series *registry.Series, task *registry.SyncTask) {
	log := p.logger.With(slog.String("series_id", series.ID), slog.String("task_id", task.ID))

	zipURL := task.ZipURL

	if zipURL == nil {
		images, err := p.enumerate(ctx, task)
		if err != nil {
			p.failTask(ctx, series, task, err.Error())
			return
		}

		staged, err := p.stage(ctx, series, task, images)
		if err != nil {
			p.failTask(ctx, series, task, err.Error())
			return
		}
		zipURL = pointer.To(staged.PublicURL)

		if err := p.store.SetTaskStatus(ctx, task.ID, registry.TaskScraped, zipURL, ""); err != nil {
			log.Error("set_task_scraped_failed", slog.String("error", err.Error()))
			return
		}
	}

	result, err := p.persist(ctx, series, task, *zipURL)
	if err != nil {
		p.failTask(ctx, series, task, err.Error())
		return
	}

	if err := p.register(ctx, series, task, result); err != nil {
		p.failTask(ctx, series, task, err.Error())
		return
	}

	if err := p.store.SetTaskStatus(ctx, task.ID, registry.TaskCompleted, zipURL, ""); err != nil {
		log.Error("set_task_completed_failed", slog.String("error", err.Error()))
	}
	if err := p.store.IncrementBackendChapterStats(ctx, series.ID, task.ChapterNumber); err != nil {
		log.Error("increment_backend_stats_failed", slog.String("error", err.Error()))
	}
	if err := p.store.RefreshSyncProgress(ctx, series.ID); err != nil {
		log.Error("refresh_sync_progress_failed", slog.String("error", err.Error()))
	}

	p.invalidator.ScheduleTag(fmt.Sprintf("series:%s", series.ExternalID))
	p.publisher.Publish(ctx, events.EventSyncProgress, series.ExternalID, map[string]any{
		"chapter_number": task.ChapterNumber,
		"status":         "completed",
	})
}

// # Step A — enumerate

func (p *Processor) enumerate(ctx context.Context, task *registry.SyncTask) ([]clients.RemoteImage, error) {
	if err := p.store.SetTaskStatus(ctx, task.ID, registry.TaskScraping, nil, ""); err != nil {
		return nil, fmt.Errorf("set task scraping: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.ScrapeTimeout)
	defer cancel()

	images, err := p.scraper.GetChapterImages(fetchCtx, task.ChapterURL)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, errors.New("No images found for chapter")
	}
	return images, nil
}

// # Step B — stage

func (p *Processor) stage(ctx context.Context, series *registry.Series, task *registry.SyncTask, images []clients.RemoteImage) (clients.StagedChapter, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
	defer cancel()

	return p.scraper.StageChapter(stageCtx, clients.StageChapterInput{
		ImageDataArray:   images,
		SeriesExternalID: series.ExternalID,
		ChapterNumber:    formatChapterNumber(task.ChapterNumber),
		SeriesTitle:      series.Title,
		ChapterURL:       task.ChapterURL,
	})
}

// # Step C — persist

func (p *Processor) persist(ctx context.Context, series *registry.Series, task *registry.SyncTask, zipURL string) (clients.UploadResult, error) {
	if err := p.store.SetTaskStatus(ctx, task.ID, registry.TaskUploading, pointer.To(zipURL), ""); err != nil {
		return clients.UploadResult{}, fmt.Errorf("set task uploading: %w", err)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, p.cfg.UploadTimeout)
	defer cancel()

	return p.uploader.UploadSingle(uploadCtx, zipURL, series.ExternalID, task.ChapterNumber)
}

// # Step D — register

func (p *Processor) register(ctx context.Context, series *registry.Series, task *registry.SyncTask, result clients.UploadResult) error {
	catalogCtx, cancel := context.WithTimeout(ctx, p.cfg.CatalogTimeout)
	defer cancel()

	return p.catalog.CreateChapters(catalogCtx, series.ExternalID, []clients.NewChapterInput{{
		ChapterID:         result.ChapterID,
		ChapterNumber:     result.ChapterNumber,
		ChapterTitle:      "",
		ChapterImages:     result.Images,
		Path:              result.Path,
		ThumbnailImageURL: p.cfg.DefaultThumbnailURL,
	}})
}

func (p *Processor) failTask(ctx context.Context, series *registry.Series, task *registry.SyncTask, message string) {
	if err := p.store.SetTaskStatus(ctx, task.ID, registry.TaskFailed, nil, message); err != nil {
		p.logger.Error("set_task_failed_failed", slog.String("task_id", task.ID), slog.String("error", err.Error()))
	}
	if err := p.store.RefreshSyncProgress(ctx, series.ID); err != nil {
		p.logger.Error("refresh_sync_progress_failed", slog.String("series_id", series.ID), slog.String("error", err.Error()))
	}
	p.publisher.Publish(ctx, events.EventSyncProgress, series.ExternalID, map[string]any{
		"chapter_number": task.ChapterNumber,
		"status":         "failed",
		"error":          message,
	})
}

func formatChapterNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
