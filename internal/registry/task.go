// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package registry

import "time"

// TaskStatus enumerates the four-step pipeline lifecycle of a sync task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskScraping  TaskStatus = "scraping"
	TaskScraped   TaskStatus = "scraped"
	TaskUploading TaskStatus = "uploading"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
)

// ActiveTaskStatuses are the non-terminal states a task passes through
// between creation and either completed/failed/skipped.
var ActiveTaskStatuses = []TaskStatus{TaskPending, TaskScraping, TaskScraped, TaskUploading}

// SyncTask is one row per missing chapter the scanner identified.
type SyncTask struct {
	ID       string
	SeriesID string
	SourceID *string

	ChapterURL    string
	ChapterNumber float64
	Weight        int
	Status        TaskStatus

	// ZipURL is set after the stager succeeds (Step B), enabling Step C to
	// resume without re-staging if the process restarts mid-pipeline.
	ZipURL *string

	Error      string
	RetryCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTaskSpec is the input to CreateTasks for a single missing chapter.
type NewTaskSpec struct {
	ChapterURL    string
	ChapterNumber float64
	Weight        int
	SourceID      string
}

// IsActive reports whether status is one of the non-terminal pipeline states.
func (s TaskStatus) IsActive() bool {
	for _, active := range ActiveTaskStatuses {
		if s == active {
			return true
		}
	}
	return false
}
