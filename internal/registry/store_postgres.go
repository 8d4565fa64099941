// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package registry's PostgreSQL implementation follows an aggregate-root
pattern: sub-resources (sources, tasks) are managed through the same
repository instance that owns their parent series, so a single writer
serializes every mutation to a series' row.

It uses raw SQL via pgx, window-function pagination, and explicit
transactions for multi-row mutations — no ORM.
*/
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yomira/synccore/internal/platform/apperr"
	"github.com/yomira/synccore/internal/platform/database/schema"
	"github.com/yomira/synccore/internal/platform/dberr"
	"github.com/yomira/synccore/pkg/uuidv7"
)

type store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL-backed [Store].
func NewStore(pool *pgxpool.Pool) Store {
	return &store{pool: pool}
}

// # Series CRUD

func (s *store) Create(ctx context.Context, spec SeriesSpec) (*Series, error) {
	urls := NormalizeSourceURLs(spec.SourceURLs)
	if len(urls) < MinSourcesPerSeries || len(urls) > MaxSourcesPerSeries {
		return nil, ErrInvalidSourceCount
	}

	checkInterval := spec.CheckIntervalMinutes
	if checkInterval <= 0 {
		checkInterval = DefaultCheckIntervalMinutes
	}

	id := uuidv7.New()
	primary := urls[0]
	// A newly-registered series is due immediately so the next scanner tick
	// (or the onCreated callback's out-of-band scan) can pick it up.
	nextScanAt := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: begin create tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insertSeries := fmt.Sprintf(`
		INSERT INTO %s (
			%s, %s, %s, %s, %s, %s, %s, %s, %s,
			%s, %s, %s
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, now(),
			$9, $10, $11
		)
	`,
		schema.RegistrySeries.Table,
		schema.RegistrySeries.ID,
		schema.RegistrySeries.ExternalID,
		schema.RegistrySeries.Title,
		schema.RegistrySeries.AutoSyncEnabled,
		schema.RegistrySeries.CheckIntervalMinutes,
		schema.RegistrySeries.Priority,
		schema.RegistrySeries.Status,
		schema.RegistrySeries.NextScanAt,
		schema.RegistrySeries.CreatedAt,
		schema.RegistrySeries.MangaURL,
		schema.RegistrySeries.SourceDomain,
		schema.RegistrySeries.MangaSlug,
	)

	_, err = tx.Exec(ctx, insertSeries,
		id, spec.ExternalID, spec.Title, spec.AutoSyncEnabled, checkInterval, spec.Priority,
		SeriesIdle, nextScanAt, primary, DeriveSourceDomain(primary), DeriveMangaSlug(primary),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("registry: insert series: %w", err)
	}

	if err := s.insertSourcesTx(ctx, tx, id, urls); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("registry: commit create tx: %w", err)
	}

	return s.Get(ctx, id)
}

func (s *store) insertSourcesTx(ctx context.Context, tx pgx.Tx, seriesID string, urls []string) error {
	batch := &pgx.Batch{}
	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, true)
	`,
		schema.RegistrySource.Table,
		schema.RegistrySource.ID,
		schema.RegistrySource.SeriesID,
		schema.RegistrySource.SourceURL,
		schema.RegistrySource.SourceDomain,
		schema.RegistrySource.MangaSlug,
		schema.RegistrySource.Priority,
		schema.RegistrySource.IsEnabled,
	)

	for i, raw := range urls {
		batch.Queue(insert, uuidv7.New(), seriesID, raw, DeriveSourceDomain(raw), DeriveMangaSlug(raw), i+1)
	}

	result := tx.SendBatch(ctx, batch)
	defer result.Close()

	for range urls {
		if _, err := result.Exec(); err != nil {
			return fmt.Errorf("registry: insert source: %w", err)
		}
	}
	return nil
}

func (s *store) Get(ctx context.Context, id string) (*Series, error) {
	series, err := s.findSeriesBy(ctx, schema.RegistrySeries.ID, id)
	if err != nil {
		return nil, err
	}

	sources, err := s.listSources(ctx, id, false)
	if err != nil {
		return nil, err
	}
	series.Sources = sources

	return series, nil
}

func (s *store) GetByCatalogID(ctx context.Context, externalID string) (*Series, error) {
	series, err := s.findSeriesBy(ctx, schema.RegistrySeries.ExternalID, externalID)
	if err != nil {
		return nil, err
	}

	sources, err := s.listSources(ctx, series.ID, false)
	if err != nil {
		return nil, err
	}
	series.Sources = sources

	return series, nil
}

func (s *store) findSeriesBy(ctx context.Context, column, value string) (*Series, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		seriesColumns(), schema.RegistrySeries.Table, column)

	row := s.pool.QueryRow(ctx, query, value)
	series, err := scanSeries(row)
	if err != nil {
		return nil, dberr.Wrap(err, "find series")
	}
	return series, nil
}

func (s *store) List(ctx context.Context, filter SeriesFilter) ([]*Series, int, error) {
	var builder strings.Builder
	var args []any
	argIdx := 1

	builder.WriteString(fmt.Sprintf(`SELECT %s, COUNT(*) OVER() AS total_count FROM %s WHERE 1=1`,
		seriesColumns(), schema.RegistrySeries.Table))

	if len(filter.Statuses) == 1 {
		builder.WriteString(fmt.Sprintf(" AND %s = $%d", schema.RegistrySeries.Status, argIdx))
		args = append(args, filter.Statuses[0])
		argIdx++
	} else if len(filter.Statuses) > 1 {
		builder.WriteString(fmt.Sprintf(" AND %s = ANY($%d)", schema.RegistrySeries.Status, argIdx))
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		argIdx++
	}
	if filter.TitleContains != "" {
		builder.WriteString(fmt.Sprintf(" AND %s ILIKE $%d", schema.RegistrySeries.Title, argIdx))
		args = append(args, "%"+filter.TitleContains+"%")
		argIdx++
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	builder.WriteString(fmt.Sprintf(" ORDER BY %s DESC, %s ASC", schema.RegistrySeries.Priority, schema.RegistrySeries.NextScanAt))
	builder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1))
	args = append(args, pageSize, offset)

	rows, err := s.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("registry: list series: %w", err)
	}
	defer rows.Close()

	var result []*Series
	var total int
	for rows.Next() {
		series, count, err := scanSeriesWithCount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("registry: scan series: %w", err)
		}
		total = count
		result = append(result, series)
	}

	return result, total, nil
}

func (s *store) Update(ctx context.Context, id string, patch SeriesPatch) (*Series, error) {
	var sets []string
	var args []any
	argIdx := 1

	if patch.Title != nil {
		sets = append(sets, fmt.Sprintf("%s = $%d", schema.RegistrySeries.Title, argIdx))
		args = append(args, *patch.Title)
		argIdx++
	}
	if patch.CheckIntervalMinutes != nil {
		sets = append(sets, fmt.Sprintf("%s = $%d", schema.RegistrySeries.CheckIntervalMinutes, argIdx))
		args = append(args, *patch.CheckIntervalMinutes)
		argIdx++
	}
	if patch.Priority != nil {
		sets = append(sets, fmt.Sprintf("%s = $%d", schema.RegistrySeries.Priority, argIdx))
		args = append(args, *patch.Priority)
		argIdx++
	}
	if patch.AutoSyncEnabled != nil {
		sets = append(sets, fmt.Sprintf("%s = $%d", schema.RegistrySeries.AutoSyncEnabled, argIdx))
		args = append(args, *patch.AutoSyncEnabled)
		argIdx++
	}

	if len(sets) > 0 {
		sets = append(sets, fmt.Sprintf("%s = now()", schema.RegistrySeries.UpdatedAt))
		query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
			schema.RegistrySeries.Table, strings.Join(sets, ", "), schema.RegistrySeries.ID, argIdx)
		args = append(args, id)

		result, err := s.pool.Exec(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("registry: update series: %w", err)
		}
		if result.RowsAffected() == 0 {
			return nil, apperr.NotFound("series")
		}
	}

	if patch.SourceURLs != nil {
		if _, err := s.ReplaceSources(ctx, id, patch.SourceURLs); err != nil {
			return nil, err
		}
	}

	return s.Get(ctx, id)
}

func (s *store) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.RegistrySeries.Table, schema.RegistrySeries.ID)
	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("registry: delete series: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("series")
	}
	return nil
}

// # Sources

func (s *store) ReplaceSources(ctx context.Context, seriesID string, urls []string) ([]*Source, error) {
	normalized := NormalizeSourceURLs(urls)
	if len(normalized) < MinSourcesPerSeries || len(normalized) > MaxSourcesPerSeries {
		return nil, ErrInvalidSourceCount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: begin replace-sources tx: %w", err)
	}
	defer tx.Rollback(ctx)

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.RegistrySource.Table, schema.RegistrySource.SeriesID)
	if _, err := tx.Exec(ctx, deleteQuery, seriesID); err != nil {
		return nil, fmt.Errorf("registry: delete existing sources: %w", err)
	}

	if err := s.insertSourcesTx(ctx, tx, seriesID, normalized); err != nil {
		return nil, err
	}

	primary := normalized[0]
	updateSeries := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2, %s = $3, %s = now() WHERE %s = $4`,
		schema.RegistrySeries.Table,
		schema.RegistrySeries.MangaURL, schema.RegistrySeries.SourceDomain, schema.RegistrySeries.MangaSlug,
		schema.RegistrySeries.UpdatedAt, schema.RegistrySeries.ID,
	)
	if _, err := tx.Exec(ctx, updateSeries, primary, DeriveSourceDomain(primary), DeriveMangaSlug(primary), seriesID); err != nil {
		return nil, fmt.Errorf("registry: update denormalized source fields: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("registry: commit replace-sources tx: %w", err)
	}

	return s.listSources(ctx, seriesID, false)
}

func (s *store) GetEnabledSources(ctx context.Context, seriesID string) ([]*Source, error) {
	return s.listSources(ctx, seriesID, true)
}

func (s *store) listSources(ctx context.Context, seriesID string, enabledOnly bool) ([]*Source, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 %s
		ORDER BY %s ASC
	`,
		schema.RegistrySource.ID, schema.RegistrySource.SeriesID, schema.RegistrySource.SourceURL,
		schema.RegistrySource.SourceDomain, schema.RegistrySource.MangaSlug, schema.RegistrySource.Priority,
		schema.RegistrySource.IsEnabled, schema.RegistrySource.LastChapterCount, schema.RegistrySource.LastChapterNumber,
		schema.RegistrySource.LastScanStatus, schema.RegistrySource.LastScanError, schema.RegistrySource.LastScanAt,
		schema.RegistrySource.Table,
		schema.RegistrySource.SeriesID,
		conditionalEnabled(enabledOnly),
		schema.RegistrySource.Priority,
	)

	rows, err := s.pool.Query(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("registry: list sources: %w", err)
	}
	defer rows.Close()

	var sources []*Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(
			&src.ID, &src.SeriesID, &src.SourceURL, &src.SourceDomain, &src.MangaSlug, &src.Priority,
			&src.IsEnabled, &src.LastChapterCount, &src.LastChapterNumber, &src.LastScanStatus,
			&src.LastScanError, &src.LastScanAt,
		); err != nil {
			return nil, fmt.Errorf("registry: scan source: %w", err)
		}
		sources = append(sources, &src)
	}
	return sources, nil
}

func conditionalEnabled(enabledOnly bool) string {
	if enabledOnly {
		return fmt.Sprintf("AND %s = true", schema.RegistrySource.IsEnabled)
	}
	return ""
}

func (s *store) RecordSourceScan(ctx context.Context, sourceID string, status ScanStatus, chapterCount int, lastChapter *float64, scanErr string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = $2, %s = $3, %s = $4, %s = now()
		WHERE %s = $5
	`,
		schema.RegistrySource.Table,
		schema.RegistrySource.LastScanStatus, schema.RegistrySource.LastChapterCount,
		schema.RegistrySource.LastChapterNumber, schema.RegistrySource.LastScanError,
		schema.RegistrySource.LastScanAt, schema.RegistrySource.ID,
	)
	_, err := s.pool.Exec(ctx, query, status, chapterCount, lastChapter, scanErr, sourceID)
	if err != nil {
		return fmt.Errorf("registry: record source scan: %w", err)
	}
	return nil
}

// # Series state transitions

func (s *store) SetStatus(ctx context.Context, id string, status SeriesStatus, errMsg string) error {
	var query string
	var args []any

	if errMsg != "" {
		query = fmt.Sprintf(`
			UPDATE %s
			SET %s = $1, %s = $2, %s = now(), %s = %s + 1, %s = now()
			WHERE %s = $3
		`,
			schema.RegistrySeries.Table,
			schema.RegistrySeries.Status, schema.RegistrySeries.LastError, schema.RegistrySeries.LastErrorAt,
			schema.RegistrySeries.ConsecutiveFailures, schema.RegistrySeries.ConsecutiveFailures,
			schema.RegistrySeries.UpdatedAt, schema.RegistrySeries.ID,
		)
		args = []any{status, errMsg, id}
	} else {
		query = fmt.Sprintf(`UPDATE %s SET %s = $1, %s = now() WHERE %s = $2`,
			schema.RegistrySeries.Table, schema.RegistrySeries.Status, schema.RegistrySeries.UpdatedAt, schema.RegistrySeries.ID)
		args = []any{status, id}
	}

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("registry: set status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("series")
	}
	return nil
}

func (s *store) RecordScanResult(ctx context.Context, id string, result ScanResult) error {
	// Conditional update: only flip scanning -> idle, never clobber a
	// concurrent transition to syncing.
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = $2, %s = $3, %s = now(),
			%s = 0, %s = '', %s = NULL, %s = now(),
			%s = CASE WHEN %s = $4 THEN $5 ELSE %s END
		WHERE %s = $6
	`,
		schema.RegistrySeries.Table,
		schema.RegistrySeries.SourceChapterCount, schema.RegistrySeries.SourceLastChapter, schema.RegistrySeries.NextScanAt,
		schema.RegistrySeries.LastScannedAt,
		schema.RegistrySeries.ConsecutiveFailures, schema.RegistrySeries.LastError, schema.RegistrySeries.LastErrorAt,
		schema.RegistrySeries.UpdatedAt,
		schema.RegistrySeries.Status, schema.RegistrySeries.Status, schema.RegistrySeries.Status,
		schema.RegistrySeries.ID,
	)

	_, err := s.pool.Exec(ctx, query,
		result.SourceChapterCount, result.SourceLastChapter, result.NextScanAt,
		SeriesScanning, SeriesIdle,
		id,
	)
	if err != nil {
		return fmt.Errorf("registry: record scan result: %w", err)
	}
	return nil
}

func (s *store) UpdateBackendChapterStats(ctx context.Context, id string, count int, last *float64) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2, %s = now() WHERE %s = $3`,
		schema.RegistrySeries.Table,
		schema.RegistrySeries.BackendChapterCount, schema.RegistrySeries.BackendLastChapter,
		schema.RegistrySeries.UpdatedAt, schema.RegistrySeries.ID,
	)
	_, err := s.pool.Exec(ctx, query, count, last, id)
	if err != nil {
		return fmt.Errorf("registry: update backend chapter stats: %w", err)
	}
	return nil
}

func (s *store) IncrementBackendChapterStats(ctx context.Context, id string, chapterNumber float64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = %s + 1,
			%s = GREATEST(COALESCE(%s, 0), $1),
			%s = now()
		WHERE %s = $2
	`,
		schema.RegistrySeries.Table,
		schema.RegistrySeries.BackendChapterCount, schema.RegistrySeries.BackendChapterCount,
		schema.RegistrySeries.BackendLastChapter, schema.RegistrySeries.BackendLastChapter,
		schema.RegistrySeries.UpdatedAt, schema.RegistrySeries.ID,
	)
	_, err := s.pool.Exec(ctx, query, chapterNumber, id)
	if err != nil {
		return fmt.Errorf("registry: increment backend chapter stats: %w", err)
	}
	return nil
}

func (s *store) IncrementSyncProgressTotal(ctx context.Context, id string, delta int) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = %s + $1, %s = now() WHERE %s = $2`,
		schema.RegistrySeries.Table,
		schema.RegistrySeries.SyncProgressTotal, schema.RegistrySeries.SyncProgressTotal,
		schema.RegistrySeries.UpdatedAt, schema.RegistrySeries.ID,
	)
	_, err := s.pool.Exec(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("registry: increment sync progress total: %w", err)
	}
	return nil
}

func (s *store) RefreshSyncProgress(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s s
		SET %s = sub.completed, %s = sub.failed, %s = now()
		FROM (
			SELECT
				COUNT(*) FILTER (WHERE %s IN ($1, $2)) AS completed,
				COUNT(*) FILTER (WHERE %s = $3) AS failed
			FROM %s
			WHERE %s = $4
		) sub
		WHERE s.%s = $4
	`,
		schema.RegistrySeries.Table,
		schema.RegistrySeries.SyncProgressCompleted, schema.RegistrySeries.SyncProgressFailed, schema.RegistrySeries.UpdatedAt,
		schema.RegistrySyncTask.Status,
		schema.RegistrySyncTask.Status,
		schema.RegistrySyncTask.Table,
		schema.RegistrySyncTask.SeriesID,
		schema.RegistrySeries.ID,
	)
	_, err := s.pool.Exec(ctx, query, TaskCompleted, TaskSkipped, TaskFailed, id)
	if err != nil {
		return fmt.Errorf("registry: refresh sync progress: %w", err)
	}
	return nil
}

func (s *store) SetLastSyncedAt(ctx context.Context, id string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = now(), %s = now() WHERE %s = $1`,
		schema.RegistrySeries.Table, schema.RegistrySeries.LastSyncedAt, schema.RegistrySeries.UpdatedAt, schema.RegistrySeries.ID)
	_, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("registry: set last synced at: %w", err)
	}
	return nil
}

func (s *store) TriggerForceScan(ctx context.Context, id string) error {
	// AlreadyBusy is treated as a no-op: status only clears to idle when not syncing.
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = now(),
			%s = CASE WHEN %s != $1 THEN $2 ELSE %s END,
			%s = now()
		WHERE %s = $3
	`,
		schema.RegistrySeries.Table,
		schema.RegistrySeries.NextScanAt,
		schema.RegistrySeries.Status, schema.RegistrySeries.Status, schema.RegistrySeries.Status,
		schema.RegistrySeries.UpdatedAt, schema.RegistrySeries.ID,
	)
	result, err := s.pool.Exec(ctx, query, SeriesSyncing, SeriesIdle, id)
	if err != nil {
		return fmt.Errorf("registry: trigger force scan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("series")
	}
	return nil
}

// # Tasks

func (s *store) CreateTasks(ctx context.Context, seriesID string, specs []NewTaskSpec) error {
	if len(specs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("registry: begin create-tasks tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (%s, %s) DO UPDATE SET %s = now()
	`,
		schema.RegistrySyncTask.Table,
		schema.RegistrySyncTask.ID, schema.RegistrySyncTask.SeriesID, schema.RegistrySyncTask.SourceID,
		schema.RegistrySyncTask.ChapterURL, schema.RegistrySyncTask.ChapterNumber, schema.RegistrySyncTask.Weight,
		schema.RegistrySyncTask.Status,
		schema.RegistrySyncTask.SeriesID, schema.RegistrySyncTask.ChapterNumber,
		schema.RegistrySyncTask.UpdatedAt,
	)

	batch := &pgx.Batch{}
	for _, spec := range specs {
		var sourceID *string
		if spec.SourceID != "" {
			sourceID = &spec.SourceID
		}
		batch.Queue(query, uuidv7.New(), seriesID, sourceID, spec.ChapterURL, spec.ChapterNumber, spec.Weight, TaskPending)
	}

	result := tx.SendBatch(ctx, batch)
	for range specs {
		if _, err := result.Exec(); err != nil {
			result.Close()
			return fmt.Errorf("registry: insert task: %w", err)
		}
	}
	if err := result.Close(); err != nil {
		return fmt.Errorf("registry: close task batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("registry: commit create-tasks tx: %w", err)
	}
	return nil
}

func (s *store) GetPending(ctx context.Context, seriesID string, limit int) ([]*SyncTask, error) {
	return s.listTasks(ctx, seriesID, []TaskStatus{TaskPending}, &limit)
}

func (s *store) GetAllForSeries(ctx context.Context, seriesID string) ([]*SyncTask, error) {
	return s.listTasks(ctx, seriesID, nil, nil)
}

func (s *store) GetFailed(ctx context.Context, seriesID string) ([]*SyncTask, error) {
	return s.listTasks(ctx, seriesID, []TaskStatus{TaskFailed}, nil)
}

func (s *store) listTasks(ctx context.Context, seriesID string, statuses []TaskStatus, limit *int) ([]*SyncTask, error) {
	var builder strings.Builder
	args := []any{seriesID}
	argIdx := 2

	builder.WriteString(fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s WHERE %s = $1
	`,
		schema.RegistrySyncTask.ID, schema.RegistrySyncTask.SeriesID, schema.RegistrySyncTask.SourceID,
		schema.RegistrySyncTask.ChapterURL, schema.RegistrySyncTask.ChapterNumber, schema.RegistrySyncTask.Weight,
		schema.RegistrySyncTask.Status, schema.RegistrySyncTask.ZipURL, schema.RegistrySyncTask.Error,
		schema.RegistrySyncTask.RetryCount, schema.RegistrySyncTask.CreatedAt, schema.RegistrySyncTask.UpdatedAt,
		schema.RegistrySyncTask.Table, schema.RegistrySyncTask.SeriesID,
	))

	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, st := range statuses {
			placeholders[i] = fmt.Sprintf("$%d", argIdx)
			args = append(args, st)
			argIdx++
		}
		builder.WriteString(fmt.Sprintf(" AND %s IN (%s)", schema.RegistrySyncTask.Status, strings.Join(placeholders, ", ")))
	}

	builder.WriteString(fmt.Sprintf(" ORDER BY %s ASC", schema.RegistrySyncTask.Weight))

	if limit != nil {
		builder.WriteString(fmt.Sprintf(" LIMIT $%d", argIdx))
		args = append(args, *limit)
	}

	rows, err := s.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("registry: list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*SyncTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("registry: scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (s *store) SetTaskStatus(ctx context.Context, taskID string, status TaskStatus, zipURL *string, errMsg string) error {
	var sets []string
	args := []any{status}
	argIdx := 2

	sets = append(sets, fmt.Sprintf("%s = $1", schema.RegistrySyncTask.Status))

	if zipURL != nil {
		sets = append(sets, fmt.Sprintf("%s = $%d", schema.RegistrySyncTask.ZipURL, argIdx))
		args = append(args, *zipURL)
		argIdx++
	}

	sets = append(sets, fmt.Sprintf("%s = $%d", schema.RegistrySyncTask.Error, argIdx))
	args = append(args, errMsg)
	argIdx++

	if status == TaskFailed {
		sets = append(sets, fmt.Sprintf("%s = %s + 1", schema.RegistrySyncTask.RetryCount, schema.RegistrySyncTask.RetryCount))
	}

	sets = append(sets, fmt.Sprintf("%s = now()", schema.RegistrySyncTask.UpdatedAt))

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		schema.RegistrySyncTask.Table, strings.Join(sets, ", "), schema.RegistrySyncTask.ID, argIdx)
	args = append(args, taskID)

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("registry: set task status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("sync task")
	}
	return nil
}

func (s *store) RetryFailed(ctx context.Context, seriesID string) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("registry: begin retry-failed tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		UPDATE %s SET %s = $1, %s = '', %s = now()
		WHERE %s = $2 AND %s = $3
	`,
		schema.RegistrySyncTask.Table,
		schema.RegistrySyncTask.Status, schema.RegistrySyncTask.Error, schema.RegistrySyncTask.UpdatedAt,
		schema.RegistrySyncTask.SeriesID, schema.RegistrySyncTask.Status,
	)

	result, err := tx.Exec(ctx, query, TaskPending, seriesID, TaskFailed)
	if err != nil {
		return 0, fmt.Errorf("registry: retry failed tasks: %w", err)
	}

	affected := int(result.RowsAffected())
	if affected > 0 {
		setSyncing := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = now() WHERE %s = $2`,
			schema.RegistrySeries.Table, schema.RegistrySeries.Status, schema.RegistrySeries.UpdatedAt, schema.RegistrySeries.ID)
		if _, err := tx.Exec(ctx, setSyncing, SeriesSyncing, seriesID); err != nil {
			return 0, fmt.Errorf("registry: flip series to syncing: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("registry: commit retry-failed tx: %w", err)
	}
	return affected, nil
}

// # Query helpers

func (s *store) GetDue(ctx context.Context, limit int) ([]*Series, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = true AND %s = $1 AND %s <= now()
		ORDER BY %s DESC, %s ASC
		LIMIT $2
	`,
		seriesColumns(), schema.RegistrySeries.Table,
		schema.RegistrySeries.AutoSyncEnabled, schema.RegistrySeries.Status, schema.RegistrySeries.NextScanAt,
		schema.RegistrySeries.Priority, schema.RegistrySeries.NextScanAt,
	)

	rows, err := s.pool.Query(ctx, query, SeriesIdle, limit)
	if err != nil {
		return nil, fmt.Errorf("registry: get due series: %w", err)
	}
	defer rows.Close()

	return scanSeriesRows(rows)
}

func (s *store) GetWithActiveTasks(ctx context.Context) ([]*Series, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT %s FROM %s s
		WHERE s.%s = $1 AND EXISTS (
			SELECT 1 FROM %s t
			WHERE t.%s = s.%s AND t.%s IN ($2, $3, $4, $5)
		)
	`,
		prefixedSeriesColumns("s"), schema.RegistrySeries.Table,
		schema.RegistrySeries.Status,
		schema.RegistrySyncTask.Table,
		schema.RegistrySyncTask.SeriesID, schema.RegistrySeries.ID, schema.RegistrySyncTask.Status,
	)

	rows, err := s.pool.Query(ctx, query, SeriesSyncing, TaskPending, TaskScraping, TaskScraped, TaskUploading)
	if err != nil {
		return nil, fmt.Errorf("registry: get series with active tasks: %w", err)
	}
	defer rows.Close()

	return scanSeriesRows(rows)
}

func (s *store) ResolveCompletedSyncingSeries(ctx context.Context) (int, error) {
	syncing, err := s.listSeriesByStatus(ctx, SeriesSyncing)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, series := range syncing {
		tasks, err := s.GetAllForSeries(ctx, series.ID)
		if err != nil {
			return resolved, err
		}

		active, failed := 0, 0
		for _, t := range tasks {
			if t.Status.IsActive() {
				active++
			} else if t.Status == TaskFailed {
				failed++
			}
		}

		if active > 0 {
			continue
		}

		next := SeriesIdle
		if failed > 0 {
			next = SeriesError
		}

		if err := s.SetStatus(ctx, series.ID, next, ""); err != nil {
			return resolved, err
		}
		if next == SeriesIdle {
			_ = s.SetLastSyncedAt(ctx, series.ID)
		}
		resolved++
	}

	return resolved, nil
}

func (s *store) listSeriesByStatus(ctx context.Context, status SeriesStatus) ([]*Series, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, seriesColumns(), schema.RegistrySeries.Table, schema.RegistrySeries.Status)
	rows, err := s.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("registry: list series by status: %w", err)
	}
	defer rows.Close()
	return scanSeriesRows(rows)
}

// # Recovery

func (s *store) RecoverStaleTasks(ctx context.Context) error {
	// 1. Transient task statuses resume from the right step.
	resumeQuery := fmt.Sprintf(`
		UPDATE %s
		SET %s = CASE WHEN %s IS NOT NULL THEN $1 ELSE $2 END, %s = now()
		WHERE %s IN ($3, $4)
	`,
		schema.RegistrySyncTask.Table,
		schema.RegistrySyncTask.Status, schema.RegistrySyncTask.ZipURL, schema.RegistrySyncTask.Status,
		schema.RegistrySyncTask.UpdatedAt,
		schema.RegistrySyncTask.Status,
	)
	if _, err := s.pool.Exec(ctx, resumeQuery, TaskScraped, TaskPending, TaskScraping, TaskUploading); err != nil {
		return fmt.Errorf("registry: recover stale tasks: %w", err)
	}

	// 2. Recompute any scanning/syncing series from their current task set.
	for _, status := range []SeriesStatus{SeriesScanning, SeriesSyncing} {
		affected, err := s.listSeriesByStatus(ctx, status)
		if err != nil {
			return err
		}

		for _, series := range affected {
			tasks, err := s.GetAllForSeries(ctx, series.ID)
			if err != nil {
				return err
			}

			active, failed := 0, 0
			for _, t := range tasks {
				switch {
				case t.Status == TaskPending || t.Status == TaskScraped:
					active++
				case t.Status == TaskFailed:
					failed++
				}
			}

			next := SeriesIdle
			switch {
			case active > 0:
				next = SeriesSyncing
			case failed > 0:
				next = SeriesError
			}

			if err := s.SetStatus(ctx, series.ID, next, ""); err != nil {
				return err
			}
			if series.LastSyncedAt == nil {
				_ = s.SetLastSyncedAt(ctx, series.ID)
			}
		}
	}

	return nil
}

// # Domain migration

func (s *store) UpdateDomain(ctx context.Context, oldDomain, newDomain string, seriesIDs []string, dryRun bool) (DomainMigrationResult, error) {
	var builder strings.Builder
	args := []any{oldDomain}
	argIdx := 2

	builder.WriteString(fmt.Sprintf(`
		SELECT %s, %s, %s FROM %s WHERE %s = $1
	`,
		schema.RegistrySource.ID, schema.RegistrySource.SeriesID, schema.RegistrySource.SourceURL,
		schema.RegistrySource.Table, schema.RegistrySource.SourceDomain,
	))

	if len(seriesIDs) > 0 {
		placeholders := make([]string, len(seriesIDs))
		for i, id := range seriesIDs {
			placeholders[i] = fmt.Sprintf("$%d", argIdx)
			args = append(args, id)
			argIdx++
		}
		builder.WriteString(fmt.Sprintf(" AND %s IN (%s)", schema.RegistrySource.SeriesID, strings.Join(placeholders, ", ")))
	}

	rows, err := s.pool.Query(ctx, builder.String(), args...)
	if err != nil {
		return DomainMigrationResult{}, fmt.Errorf("registry: select migration candidates: %w", err)
	}

	type candidate struct {
		id       string
		seriesID string
		oldURL   string
		newURL   string
	}
	var candidates []candidate

	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.id, &c.seriesID, &c.oldURL); err != nil {
			rows.Close()
			return DomainMigrationResult{}, fmt.Errorf("registry: scan migration candidate: %w", err)
		}
		newURL, err := replaceHostname(c.oldURL, newDomain)
		if err != nil {
			continue
		}
		c.newURL = newURL
		candidates = append(candidates, c)
	}
	rows.Close()

	result := DomainMigrationResult{AffectedCount: len(candidates)}
	sampleSize := 10
	for i, c := range candidates {
		if i >= sampleSize {
			break
		}
		result.Sample = append(result.Sample, URLPair{OldURL: c.oldURL, NewURL: c.newURL})
	}

	if dryRun || len(candidates) == 0 {
		return result, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("registry: begin domain-migration tx: %w", err)
	}
	defer tx.Rollback(ctx)

	updateSource := fmt.Sprintf(`UPDATE %s SET %s = $1, %s = $2, %s = now() WHERE %s = $3`,
		schema.RegistrySource.Table, schema.RegistrySource.SourceURL, schema.RegistrySource.SourceDomain,
		schema.RegistrySource.UpdatedAt, schema.RegistrySource.ID,
	)
	updatePrimary := fmt.Sprintf(`
		UPDATE %s SET %s = $1, %s = $2, %s = now()
		WHERE %s = $3 AND %s = $4
	`,
		schema.RegistrySeries.Table, schema.RegistrySeries.MangaURL, schema.RegistrySeries.SourceDomain,
		schema.RegistrySeries.UpdatedAt, schema.RegistrySeries.ID, schema.RegistrySeries.MangaURL,
	)

	updated := 0
	for _, c := range candidates {
		if _, err := tx.Exec(ctx, updateSource, c.newURL, newDomain, c.id); err != nil {
			return result, fmt.Errorf("registry: update source domain: %w", err)
		}
		// If this source was the series' mirrored primary, resync denormalized fields.
		if _, err := tx.Exec(ctx, updatePrimary, c.newURL, newDomain, c.seriesID, c.oldURL); err != nil {
			return result, fmt.Errorf("registry: update primary source fields: %w", err)
		}
		updated++
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("registry: commit domain-migration tx: %w", err)
	}

	result.UpdatedCount = updated
	return result, nil
}

// replaceHostname swaps only the hostname of rawURL, preserving path, query, and fragment.
func replaceHostname(rawURL, newDomain string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if parsed.Port() != "" {
		parsed.Host = newDomain + ":" + parsed.Port()
	} else {
		parsed.Host = newDomain
	}
	return parsed.String(), nil
}

// # Row scanning helpers

func seriesColumns() string {
	return strings.Join([]string{
		schema.RegistrySeries.ID, schema.RegistrySeries.ExternalID, schema.RegistrySeries.Title,
		schema.RegistrySeries.AutoSyncEnabled, schema.RegistrySeries.CheckIntervalMinutes, schema.RegistrySeries.Priority,
		schema.RegistrySeries.SourceChapterCount, schema.RegistrySeries.SourceLastChapter,
		schema.RegistrySeries.BackendChapterCount, schema.RegistrySeries.BackendLastChapter,
		schema.RegistrySeries.Status, schema.RegistrySeries.SyncProgressTotal,
		schema.RegistrySeries.SyncProgressCompleted, schema.RegistrySeries.SyncProgressFailed,
		schema.RegistrySeries.MangaURL, schema.RegistrySeries.SourceDomain, schema.RegistrySeries.MangaSlug,
		schema.RegistrySeries.LastScannedAt, schema.RegistrySeries.LastSyncedAt, schema.RegistrySeries.NextScanAt,
		schema.RegistrySeries.CreatedAt, schema.RegistrySeries.UpdatedAt,
		schema.RegistrySeries.LastError, schema.RegistrySeries.LastErrorAt, schema.RegistrySeries.ConsecutiveFailures,
	}, ", ")
}

func prefixedSeriesColumns(alias string) string {
	cols := strings.Split(seriesColumns(), ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// rowScanner abstracts over pgx.Row and pgx.Rows, both of which implement Scan.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeries(row rowScanner) (*Series, error) {
	var series Series
	err := row.Scan(
		&series.ID, &series.ExternalID, &series.Title,
		&series.AutoSyncEnabled, &series.CheckIntervalMinutes, &series.Priority,
		&series.SourceChapterCount, &series.SourceLastChapter,
		&series.BackendChapterCount, &series.BackendLastChapter,
		&series.Status, &series.SyncProgressTotal,
		&series.SyncProgressCompleted, &series.SyncProgressFailed,
		&series.MangaURL, &series.SourceDomain, &series.MangaSlug,
		&series.LastScannedAt, &series.LastSyncedAt, &series.NextScanAt,
		&series.CreatedAt, &series.UpdatedAt,
		&series.LastError, &series.LastErrorAt, &series.ConsecutiveFailures,
	)
	if err != nil {
		return nil, err
	}
	return &series, nil
}

func scanSeriesWithCount(rows pgx.Rows) (*Series, int, error) {
	var series Series
	var total int
	err := rows.Scan(
		&series.ID, &series.ExternalID, &series.Title,
		&series.AutoSyncEnabled, &series.CheckIntervalMinutes, &series.Priority,
		&series.SourceChapterCount, &series.SourceLastChapter,
		&series.BackendChapterCount, &series.BackendLastChapter,
		&series.Status, &series.SyncProgressTotal,
		&series.SyncProgressCompleted, &series.SyncProgressFailed,
		&series.MangaURL, &series.SourceDomain, &series.MangaSlug,
		&series.LastScannedAt, &series.LastSyncedAt, &series.NextScanAt,
		&series.CreatedAt, &series.UpdatedAt,
		&series.LastError, &series.LastErrorAt, &series.ConsecutiveFailures,
		&total,
	)
	if err != nil {
		return nil, 0, err
	}
	return &series, total, nil
}

func scanSeriesRows(rows pgx.Rows) ([]*Series, error) {
	var result []*Series
	for rows.Next() {
		series, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("registry: scan series row: %w", err)
		}
		result = append(result, series)
	}
	return result, nil
}

func scanTask(row rowScanner) (*SyncTask, error) {
	var task SyncTask
	err := row.Scan(
		&task.ID, &task.SeriesID, &task.SourceID,
		&task.ChapterURL, &task.ChapterNumber, &task.Weight,
		&task.Status, &task.ZipURL, &task.Error,
		&task.RetryCount, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}
