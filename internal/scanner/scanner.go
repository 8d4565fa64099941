// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package scanner discovers chapters missing from the backend catalog and
turns them into sync tasks.

Tick fans out across every due series up to a configured bound; Scan
drives one series through source discovery, authoritative-source
selection, and missing-chapter computation.
*/
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yomira/synccore/internal/clients"
	"github.com/yomira/synccore/internal/events"
	"github.com/yomira/synccore/internal/registry"
	"github.com/yomira/synccore/pkg/pointer"
	"github.com/yomira/synccore/pkg/slice"
)

const getDueBatchSize = 500

// Scanner discovers missing chapters for due series.
type Scanner struct {
	store     registry.Store
	scraper   *clients.ScraperClient
	catalog   *clients.CatalogClient
	publisher *events.Publisher
	notifier  *clients.Notifier
	logger    *slog.Logger

	maxConcurrentScans int
	fetchTimeout       time.Duration
	scrapeTimeout      time.Duration
	notifyAfter        int
}

// Config holds the tunables the scanner needs from the process environment.
type Config struct {
	MaxConcurrentScans  int
	FetchTimeout        time.Duration
	ScrapeTimeout       time.Duration
	NotifyAfterFailures int
}

// New constructs a [Scanner].
func New(store registry.Store, scraper *clients.ScraperClient, catalog *clients.CatalogClient, publisher *events.Publisher, notifier *clients.Notifier, logger *slog.Logger, cfg Config) *Scanner {
	return &Scanner{
		store:              store,
		scraper:            scraper,
		catalog:            catalog,
		publisher:          publisher,
		notifier:           notifier,
		logger:             logger,
		maxConcurrentScans: cfg.MaxConcurrentScans,
		fetchTimeout:       cfg.FetchTimeout,
		scrapeTimeout:      cfg.ScrapeTimeout,
		notifyAfter:        cfg.NotifyAfterFailures,
	}
}

// ScanByID loads a single series by ID and scans it immediately, outside the
// regular tick cadence. Used to give a newly-registered series its first
// scan without waiting for next_scan_at to elapse. Load failures are logged
// rather than returned since callers invoke this fire-and-forget.
func (s *Scanner) ScanByID(ctx context.Context, seriesID string) {
	series, err := s.store.Get(ctx, seriesID)
	if err != nil {
		s.logger.Error("immediate_scan_load_failed", slog.String("series_id", seriesID), slog.String("error", err.Error()))
		return
	}
	s.Scan(ctx, series)
}

// Tick scans every due series, up to MaxConcurrentScans in parallel.
func (s *Scanner) Tick(ctx context.Context) error {
	due, err := s.store.GetDue(ctx, getDueBatchSize)
	if err != nil {
		return fmt.Errorf("scanner: get due series: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.maxConcurrentScans)

	for _, series := range due {
		series := series
		group.Go(func() error {
			s.Scan(groupCtx, series)
			return nil
		})
	}

	return group.Wait()
}

type sourceOutcome struct {
	source   *registry.Source
	chapters []clients.RemoteChapter
	status   registry.ScanStatus
	errMsg   string
}

// Scan drives one series through discovery and missing-chapter computation.
// Errors are never returned to the caller: every failure path transitions
// the series to error and emits scan.finished, per the failure policy.
func (s *Scanner) Scan(ctx context.Context, series *registry.Series) {
	log := s.logger.With(slog.String("series_id", series.ID), slog.String("external_id", series.ExternalID))

	if err := s.store.SetStatus(ctx, series.ID, registry.SeriesScanning, ""); err != nil {
		log.Error("scan_set_scanning_failed", slog.String("error", err.Error()))
		return
	}
	s.publisher.Publish(ctx, events.EventScanStarted, series.ExternalID, nil)

	sources, err := s.store.GetEnabledSources(ctx, series.ID)
	if err != nil {
		s.fail(ctx, series, fmt.Sprintf("failed to load sources: %s", err))
		return
	}
	if len(sources) == 0 {
		s.fail(ctx, series, "no sources")
		return
	}

	outcomes := s.fetchAllSources(ctx, sources)

	authoritative := selectAuthoritativeSource(outcomes)
	if authoritative == nil {
		s.fail(ctx, series, "all sources failed")
		return
	}

	catalogCtx, cancelCatalog := context.WithTimeout(ctx, s.fetchTimeout)
	backendChapters, err := s.catalog.ListAllChapters(catalogCtx, series.ExternalID)
	cancelCatalog()
	if err != nil {
		s.fail(ctx, series, fmt.Sprintf("failed to list backend chapters: %s", err))
		return
	}

	backendSet := make(map[float64]struct{}, len(backendChapters))
	var backendLast *float64
	for _, ch := range backendChapters {
		n, ok := parseChapterNumberString(ch.ChapterNumber)
		if !ok {
			continue
		}
		backendSet[n] = struct{}{}
		if backendLast == nil || n > *backendLast {
			backendLast = pointer.To(n)
		}
	}

	if err := s.store.UpdateBackendChapterStats(ctx, series.ID, len(backendChapters), backendLast); err != nil {
		log.Error("update_backend_stats_failed", slog.String("error", err.Error()))
	}

	type missingChapter struct {
		chapter clients.RemoteChapter
		number  float64
	}
	var missing []missingChapter
	var sourceLast *float64

	for _, remote := range authoritative.chapters {
		number, ok := ExtractChapterNumber(remote.URL, remote.Title, remote.Weight)
		if !ok {
			continue
		}
		if sourceLast == nil || number > *sourceLast {
			sourceLast = pointer.To(number)
		}
		if _, exists := backendSet[number]; !exists {
			missing = append(missing, missingChapter{chapter: remote, number: number})
		}
	}

	sort.Slice(missing, func(i, j int) bool { return missing[i].number < missing[j].number })

	nextScan := time.Now().Add(time.Duration(series.CheckIntervalMinutes) * time.Minute)
	scanErr := s.store.RecordScanResult(ctx, series.ID, registry.ScanResult{
		SourceChapterCount: len(authoritative.chapters),
		SourceLastChapter:  sourceLast,
		NextScanAt:         nextScan,
	})
	if scanErr != nil {
		log.Error("record_scan_result_failed", slog.String("error", scanErr.Error()))
	}

	if len(missing) == 0 {
		s.publisher.Publish(ctx, events.EventScanFinished, series.ExternalID, map[string]any{"status": "idle", "missing": 0})
		return
	}

	specs := make([]registry.NewTaskSpec, len(missing))
	for i, m := range missing {
		specs[i] = registry.NewTaskSpec{
			ChapterURL:    m.chapter.URL,
			ChapterNumber: m.number,
			Weight:        i,
			SourceID:      authoritative.source.ID,
		}
	}

	if err := s.store.CreateTasks(ctx, series.ID, specs); err != nil {
		s.fail(ctx, series, fmt.Sprintf("failed to create tasks: %s", err))
		return
	}
	if err := s.store.SetStatus(ctx, series.ID, registry.SeriesSyncing, ""); err != nil {
		log.Error("set_syncing_failed", slog.String("error", err.Error()))
	}
	if err := s.store.IncrementSyncProgressTotal(ctx, series.ID, len(missing)); err != nil {
		log.Error("increment_sync_progress_failed", slog.String("error", err.Error()))
	}

	s.publisher.Publish(ctx, events.EventScanFinished, series.ExternalID, map[string]any{"status": "syncing", "missing": len(missing)})
}

func (s *Scanner) fetchAllSources(ctx context.Context, sources []*registry.Source) []sourceOutcome {
	outcomes := make([]sourceOutcome, len(sources))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, source := range sources {
		i, source := i, source
		group.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(groupCtx, s.scrapeTimeout)
			defer cancel()

			chapters, err := s.scraper.ListChaptersForSource(fetchCtx, source.SourceURL)
			outcome := sourceOutcome{source: source, chapters: chapters}

			switch {
			case errors.Is(err, context.DeadlineExceeded):
				outcome.status = registry.ScanTimeout
				outcome.errMsg = err.Error()
			case err != nil:
				outcome.status = registry.ScanError
				outcome.errMsg = err.Error()
			case len(chapters) == 0:
				outcome.status = registry.ScanEmpty
			default:
				outcome.status = registry.ScanSuccess
			}

			outcomes[i] = outcome

			var lastChapter *float64
			if n, ok := highestChapterNumber(chapters); ok {
				lastChapter = pointer.To(n)
			}
			_ = s.store.RecordSourceScan(context.WithoutCancel(ctx), source.ID, outcome.status, len(chapters), lastChapter, outcome.errMsg)

			return nil
		})
	}
	_ = group.Wait()

	return outcomes
}

func highestChapterNumber(chapters []clients.RemoteChapter) (float64, bool) {
	var best float64
	found := false
	for _, ch := range chapters {
		n, ok := ExtractChapterNumber(ch.URL, ch.Title, ch.Weight)
		if !ok {
			continue
		}
		if !found || n > best {
			best = n
			found = true
		}
	}
	return best, found
}

// selectAuthoritativeSource returns the successful source with the highest
// chapter count, ties broken by input order. Returns nil if every source failed.
func selectAuthoritativeSource(outcomes []sourceOutcome) *sourceOutcome {
	viable := slice.Filter(outcomes, func(o sourceOutcome) bool {
		return o.status != registry.ScanError && o.status != registry.ScanTimeout
	})

	return slice.Reduce(viable, (*sourceOutcome)(nil), func(best *sourceOutcome, current sourceOutcome) *sourceOutcome {
		c := current
		if best == nil || len(c.chapters) > len(best.chapters) {
			return &c
		}
		return best
	})
}

func (s *Scanner) fail(ctx context.Context, series *registry.Series, message string) {
	if err := s.store.SetStatus(ctx, series.ID, registry.SeriesError, message); err != nil {
		s.logger.Error("scan_fail_set_status_failed", slog.String("series_id", series.ID), slog.String("error", err.Error()))
	}
	s.publisher.Publish(ctx, events.EventScanFinished, series.ExternalID, map[string]any{"error": message})

	failures := series.ConsecutiveFailures + 1
	if s.notifyAfter > 0 && failures >= s.notifyAfter {
		s.notifier.NotifyConsecutiveFailures(ctx, series.ExternalID, series.Title, failures, message)
	}
}

func parseChapterNumberString(s string) (float64, bool) {
	var n float64
	if _, err := fmt.Sscanf(s, "%g", &n); err != nil {
		return 0, false
	}
	return n, true
}
