// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package registry is the single writer of durable state for series, their
sources, and the sync tasks that drive them through the external pipeline.

It is the serialization point for correctness: scanner and processor ticks,
and the admin API, all mutate state exclusively through this package's
store methods. Nothing outside registry mutates a series/source/task row
directly.
*/
package registry

import "time"

// SeriesStatus enumerates the sync-aggregate lifecycle of a series.
type SeriesStatus string

const (
	SeriesIdle     SeriesStatus = "idle"
	SeriesScanning SeriesStatus = "scanning"
	SeriesSyncing  SeriesStatus = "syncing"
	SeriesError    SeriesStatus = "error"
)

// Series is one logical work the catalog mirrors.
type Series struct {
	ID         string
	ExternalID string
	Title      string

	Sources []*Source

	AutoSyncEnabled      bool
	CheckIntervalMinutes int
	Priority             int

	SourceChapterCount  int
	SourceLastChapter   *float64
	BackendChapterCount int
	BackendLastChapter  *float64

	Status                SeriesStatus
	SyncProgressTotal     int
	SyncProgressCompleted int
	SyncProgressFailed    int

	// MangaURL, SourceDomain and MangaSlug mirror the priority=1 source.
	MangaURL     string
	SourceDomain string
	MangaSlug    string

	LastScannedAt *time.Time
	LastSyncedAt  *time.Time
	NextScanAt    time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	LastError           string
	LastErrorAt         *time.Time
	ConsecutiveFailures int
}

// SeriesFilter narrows ListSeries results.
type SeriesFilter struct {
	Statuses      []SeriesStatus
	TitleContains string
	Page          int
	PageSize      int
}

// SeriesSpec is the input to Create: everything an operator supplies.
type SeriesSpec struct {
	ExternalID           string
	SourceURLs           []string
	Title                string
	CheckIntervalMinutes int
	Priority             int
	AutoSyncEnabled      bool
}

// SeriesPatch is a partial update to an existing series; nil fields are untouched.
type SeriesPatch struct {
	Title                *string
	SourceURLs           []string
	CheckIntervalMinutes *int
	Priority             *int
	AutoSyncEnabled      *bool
}

const (
	DefaultCheckIntervalMinutes = 360
	MinSourcesPerSeries         = 1
	MaxSourcesPerSeries         = 3
)
