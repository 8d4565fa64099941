// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package clients

import (
	"context"
	"fmt"
	"time"
)

// ScraperClient consumes the scraper contract: chapter discovery, image
// listing, and chapter staging into a durable intermediate archive.
type ScraperClient struct {
	base baseClient
}

// NewScraperClient constructs a [ScraperClient].
func NewScraperClient(baseURL string, timeout time.Duration) *ScraperClient {
	return &ScraperClient{base: newBaseClient(baseURL, "", "", timeout)}
}

// RemoteChapter is one chapter entry returned by ListChaptersForSource.
//
// Weight is a pointer because the field is optional on the wire: a source
// that omits it must be distinguishable from one that reports an explicit
// weight of 0, which ExtractChapterNumber otherwise treats as authoritative.
type RemoteChapter struct {
	Title  string   `json:"title"`
	URL    string   `json:"url"`
	Date   string   `json:"date"`
	Weight *float64 `json:"weight"`
}

type listChaptersResponse struct {
	Status   string          `json:"status"`
	Chapters []RemoteChapter `json:"chapters"`
	HasMore  bool            `json:"hasMore"`
	Page     int             `json:"page"`
	Limit    int             `json:"limit"`
}

const (
	scrapeStatusReady     = "ready"
	scrapeStatusLoading   = "loading"
	scrapeStatusNotCached = "not_cached"

	pollInterval = 3 * time.Second
	maxPollTries = 10
)

/*
ListChaptersForSource retrieves every chapter known to one source,
paginating until the source reports no further pages.

Transient "loading"/"not_cached" states are retried after pollInterval,
up to maxPollTries, before surfacing a [TransientError].
*/
func (c *ScraperClient) ListChaptersForSource(ctx context.Context, sourceURL string) ([]RemoteChapter, error) {
	var all []RemoteChapter
	page := 1

	for {
		batch, hasMore, err := c.fetchChapterPage(ctx, sourceURL, page)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if !hasMore {
			break
		}
		page++
	}

	return all, nil
}

func (c *ScraperClient) fetchChapterPage(ctx context.Context, sourceURL string, page int) ([]RemoteChapter, bool, error) {
	for attempt := 0; attempt < maxPollTries; attempt++ {
		var resp listChaptersResponse
		_, err := c.base.doJSON(ctx, "GET",
			fmt.Sprintf("/chapters?url=%s&page=%d", sourceURL, page), nil, &resp)
		if err != nil {
			return nil, false, err
		}

		switch resp.Status {
		case scrapeStatusLoading, scrapeStatusNotCached:
			select {
			case <-time.After(pollInterval):
				continue
			case <-ctx.Done():
				return nil, false, ctx.Err()
			}
		case scrapeStatusReady, "":
			return resp.Chapters, resp.HasMore, nil
		default:
			return resp.Chapters, resp.HasMore, nil
		}
	}

	return nil, false, &TransientError{Cause: fmt.Errorf("clients: source %s never became ready", sourceURL)}
}

// RemoteImage is one page of a chapter's image set.
type RemoteImage struct {
	Index       int    `json:"index"`
	DownloadURL string `json:"download_url"`
}

// GetChapterImages lists the downloadable pages of a single chapter.
func (c *ScraperClient) GetChapterImages(ctx context.Context, chapterURL string) ([]RemoteImage, error) {
	var resp struct {
		Images []RemoteImage `json:"images"`
	}
	_, err := c.base.doJSON(ctx, "GET", fmt.Sprintf("/images?url=%s", chapterURL), nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Images, nil
}

// StageChapterInput is the payload for StageChapter.
type StageChapterInput struct {
	ImageDataArray   []RemoteImage `json:"imageDataArray"`
	SeriesExternalID string        `json:"series_external_id"`
	ChapterNumber    string        `json:"chapterNumber"`
	SeriesTitle      string        `json:"seriesTitle"`
	ChapterURL       string        `json:"chapterUrl"`
}

// StagedChapter is the durable intermediate archive StageChapter produces.
type StagedChapter struct {
	PublicURL   string `json:"publicUrl"`
	FileName    string `json:"fileName"`
	TotalImages int    `json:"totalImages"`
}

type stageChapterResponse struct {
	Success bool          `json:"success"`
	Data    StagedChapter `json:"data"`
}

// StageChapter downloads a chapter's images and packages them into a
// durable intermediate archive, returning its public URL.
func (c *ScraperClient) StageChapter(ctx context.Context, input StageChapterInput) (StagedChapter, error) {
	var resp stageChapterResponse
	_, err := c.base.doJSON(ctx, "POST", "/stage", input, &resp)
	if err != nil {
		return StagedChapter{}, err
	}
	return resp.Data, nil
}
