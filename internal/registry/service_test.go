// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package registry_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yomira/synccore/internal/registry"
)

var errSeriesNotFound = errors.New("fake store: series not found")

// fakeStore is an in-memory registry.Store used to exercise Service without
// a database. Only the behavior CreateSeries/BulkCreate/RetryFailed depend on
// is implemented with real semantics; the rest panic if called,
// so an unexpected dependency shows up immediately in a test failure.
type fakeStore struct {
	byExternalID map[string]*registry.Series
	byID         map[string]*registry.Series
	failedTasks  map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byExternalID: make(map[string]*registry.Series),
		byID:         make(map[string]*registry.Series),
		failedTasks:  make(map[string]int),
	}
}

func (f *fakeStore) Create(_ context.Context, spec registry.SeriesSpec) (*registry.Series, error) {
	if _, exists := f.byExternalID[spec.ExternalID]; exists {
		return nil, registry.ErrAlreadyRegistered
	}

	series := &registry.Series{
		ID:                   spec.ExternalID + "-id",
		ExternalID:           spec.ExternalID,
		Title:                spec.Title,
		CheckIntervalMinutes: spec.CheckIntervalMinutes,
		Priority:             spec.Priority,
		AutoSyncEnabled:      spec.AutoSyncEnabled,
		Status:               registry.SeriesIdle,
	}
	for _, u := range registry.NormalizeSourceURLs(spec.SourceURLs) {
		series.Sources = append(series.Sources, &registry.Source{SourceURL: u})
	}

	f.byExternalID[spec.ExternalID] = series
	f.byID[series.ID] = series
	return series, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (*registry.Series, error) {
	series, ok := f.byID[id]
	if !ok {
		return nil, errSeriesNotFound
	}
	return series, nil
}

func (f *fakeStore) GetFailed(_ context.Context, seriesID string) ([]*registry.SyncTask, error) {
	n := f.failedTasks[seriesID]
	tasks := make([]*registry.SyncTask, 0, n)
	for i := 0; i < n; i++ {
		tasks = append(tasks, &registry.SyncTask{Status: registry.TaskFailed})
	}
	return tasks, nil
}

func (f *fakeStore) RetryFailed(_ context.Context, seriesID string) (int, error) {
	n := f.failedTasks[seriesID]
	f.failedTasks[seriesID] = 0
	return n, nil
}

// Remaining Store methods are unused by the tests in this file.

func (f *fakeStore) GetByCatalogID(context.Context, string) (*registry.Series, error) { panic("unused") }
func (f *fakeStore) List(context.Context, registry.SeriesFilter) ([]*registry.Series, int, error) {
	panic("unused")
}
func (f *fakeStore) Update(context.Context, string, registry.SeriesPatch) (*registry.Series, error) {
	panic("unused")
}
func (f *fakeStore) Delete(context.Context, string) error { panic("unused") }
func (f *fakeStore) ReplaceSources(context.Context, string, []string) ([]*registry.Source, error) {
	panic("unused")
}
func (f *fakeStore) GetEnabledSources(context.Context, string) ([]*registry.Source, error) {
	panic("unused")
}
func (f *fakeStore) RecordSourceScan(context.Context, string, registry.ScanStatus, int, *float64, string) error {
	panic("unused")
}
func (f *fakeStore) SetStatus(context.Context, string, registry.SeriesStatus, string) error {
	panic("unused")
}
func (f *fakeStore) RecordScanResult(context.Context, string, registry.ScanResult) error {
	panic("unused")
}
func (f *fakeStore) UpdateBackendChapterStats(context.Context, string, int, *float64) error {
	panic("unused")
}
func (f *fakeStore) IncrementBackendChapterStats(context.Context, string, float64) error {
	panic("unused")
}
func (f *fakeStore) IncrementSyncProgressTotal(context.Context, string, int) error { panic("unused") }
func (f *fakeStore) RefreshSyncProgress(context.Context, string) error            { panic("unused") }
func (f *fakeStore) SetLastSyncedAt(context.Context, string) error                { panic("unused") }
func (f *fakeStore) TriggerForceScan(context.Context, string) error               { panic("unused") }
func (f *fakeStore) CreateTasks(context.Context, string, []registry.NewTaskSpec) error {
	panic("unused")
}
func (f *fakeStore) GetPending(context.Context, string, int) ([]*registry.SyncTask, error) {
	panic("unused")
}
func (f *fakeStore) GetAllForSeries(context.Context, string) ([]*registry.SyncTask, error) {
	panic("unused")
}
func (f *fakeStore) SetTaskStatus(context.Context, string, registry.TaskStatus, *string, string) error {
	panic("unused")
}
func (f *fakeStore) GetDue(context.Context, int) ([]*registry.Series, error) { panic("unused") }
func (f *fakeStore) GetWithActiveTasks(context.Context) ([]*registry.Series, error) {
	panic("unused")
}
func (f *fakeStore) ResolveCompletedSyncingSeries(context.Context) (int, error) { panic("unused") }
func (f *fakeStore) RecoverStaleTasks(context.Context) error                   { panic("unused") }
func (f *fakeStore) UpdateDomain(context.Context, string, string, []string, bool) (registry.DomainMigrationResult, error) {
	panic("unused")
}

func newTestService(store registry.Store) *registry.Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return registry.NewService(store, nil, logger)
}

func TestCreateSeries_RejectsMissingFields(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.CreateSeries(context.Background(), registry.SeriesSpec{
		SourceURLs: []string{"https://example.com/manga/one"},
	})

	require.Error(t, err)
}

func TestCreateSeries_RejectsOutOfRangeSourceCount(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.CreateSeries(context.Background(), registry.SeriesSpec{
		ExternalID: "ext-1",
		Title:      "One Piece",
		SourceURLs: []string{
			"https://a.example.com/manga/one",
			"https://b.example.com/manga/one",
			"https://c.example.com/manga/one",
			"https://d.example.com/manga/one",
		},
	})

	assert.ErrorIs(t, err, registry.ErrInvalidSourceCount)
}

func TestCreateSeries_AppliesDefaultCheckInterval(t *testing.T) {
	svc := newTestService(newFakeStore())

	series, err := svc.CreateSeries(context.Background(), registry.SeriesSpec{
		ExternalID: "ext-1",
		Title:      "One Piece",
		SourceURLs: []string{"https://example.com/manga/one"},
	})

	require.NoError(t, err)
	assert.Equal(t, registry.DefaultCheckIntervalMinutes, series.CheckIntervalMinutes)
}

func TestCreateSeries_DuplicateExternalIDFails(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	spec := registry.SeriesSpec{
		ExternalID: "ext-1",
		Title:      "One Piece",
		SourceURLs: []string{"https://example.com/manga/one"},
	}

	_, err := svc.CreateSeries(context.Background(), spec)
	require.NoError(t, err)

	_, err = svc.CreateSeries(context.Background(), spec)
	assert.ErrorIs(t, err, registry.ErrAlreadyRegistered)
}

func TestCreateSeries_FiresOnCreatedCallback(t *testing.T) {
	svc := newTestService(newFakeStore())

	var firedFor string
	svc.OnCreated(func(seriesID string) { firedFor = seriesID })

	series, err := svc.CreateSeries(context.Background(), registry.SeriesSpec{
		ExternalID: "ext-1",
		Title:      "One Piece",
		SourceURLs: []string{"https://example.com/manga/one"},
	})

	require.NoError(t, err)
	assert.Equal(t, series.ID, firedFor)
}

func TestBulkCreate_RejectsOversizedBatch(t *testing.T) {
	svc := newTestService(newFakeStore())

	specs := make([]registry.SeriesSpec, 51)
	for i := range specs {
		specs[i] = registry.SeriesSpec{ExternalID: "ext", Title: "t", SourceURLs: []string{"https://example.com/x"}}
	}

	_, err := svc.BulkCreate(context.Background(), specs)
	require.Error(t, err)
}

func TestBulkCreate_SkipsDuplicatesAndInvalidWithoutFailingBatch(t *testing.T) {
	svc := newTestService(newFakeStore())

	specs := []registry.SeriesSpec{
		{ExternalID: "ext-1", Title: "One Piece", SourceURLs: []string{"https://example.com/manga/one"}},
		{ExternalID: "ext-1", Title: "One Piece", SourceURLs: []string{"https://example.com/manga/one"}},
		{ExternalID: "ext-2", Title: "Naruto", SourceURLs: nil},
	}

	results, err := svc.BulkCreate(context.Background(), specs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "created", results[0].Outcome)
	assert.Equal(t, "skipped", results[1].Outcome)
	assert.Equal(t, "already registered", results[1].Reason)
	assert.Equal(t, "skipped", results[2].Outcome)
}

func TestRetryFailed_NoFailedTasksReturnsErr(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.RetryFailed(context.Background(), "series-1")
	assert.ErrorIs(t, err, registry.ErrNoFailedTasks)
}

func TestRetryFailed_ReturnsRetriedCount(t *testing.T) {
	store := newFakeStore()
	store.failedTasks["series-1"] = 3
	svc := newTestService(store)

	count, err := svc.RetryFailed(context.Background(), "series-1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
