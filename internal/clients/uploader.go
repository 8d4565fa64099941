// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package clients

import (
	"context"
	"time"
)

// UploaderClient consumes the uploader contract: persisting a staged
// archive into the catalog's storage and returning a stable chapter id.
type UploaderClient struct {
	base baseClient
}

// NewUploaderClient constructs an [UploaderClient].
func NewUploaderClient(baseURL, apiKey string, timeout time.Duration) *UploaderClient {
	return &UploaderClient{base: newBaseClient(baseURL, apiKey, "X-API-Key", timeout)}
}

type uploadSingleRequest struct {
	ZipURL           string  `json:"zip_url"`
	SeriesExternalID string  `json:"series_external_id"`
	ChapterNumber    float64 `json:"chapter_number"`
}

// UploadResult is the durable record of a successfully uploaded chapter.
type UploadResult struct {
	ChapterID     string   `json:"chapter_id"`
	ChapterNumber string   `json:"chapter_number"`
	Images        []string `json:"data"`
	Path          string   `json:"path"`
}

type uploadSingleResponse struct {
	Results UploadResult `json:"results"`
}

// UploadSingle persists a staged archive as one chapter. Idempotent per
// (series, chapter_number): a repeat call replaces the existing record.
func (c *UploaderClient) UploadSingle(ctx context.Context, zipURL, seriesExternalID string, chapterNumber float64) (UploadResult, error) {
	var resp uploadSingleResponse
	_, err := c.base.doJSON(ctx, "POST", "/upload/single", uploadSingleRequest{
		ZipURL:           zipURL,
		SeriesExternalID: seriesExternalID,
		ChapterNumber:    chapterNumber,
	}, &resp)
	if err != nil {
		return UploadResult{}, err
	}
	return resp.Results, nil
}
