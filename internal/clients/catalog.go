// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package clients

import (
	"context"
	"fmt"
	"time"
)

// CatalogClient consumes the backend catalog contract: the system of
// record that mirrored chapters are registered into.
type CatalogClient struct {
	base baseClient
}

// NewCatalogClient constructs a [CatalogClient].
func NewCatalogClient(baseURL, apiKey string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{base: newBaseClient(baseURL, apiKey, "X-API-Key", timeout)}
}

// CatalogChapter is one chapter entry as the backend reports it.
type CatalogChapter struct {
	ChapterNumber string `json:"chapter_number"`
}

type listChaptersMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPage  int `json:"total_page"`
	TotalCount int `json:"total_record"`
}

type listCatalogChaptersResponse struct {
	Retcode int              `json:"retcode"`
	Data    []CatalogChapter `json:"data"`
	Meta    listChaptersMeta `json:"meta"`
}

const catalogPageSize = 100

// ListAllChapters paginates through every chapter the backend catalog has
// recorded for a series, in ascending order.
func (c *CatalogClient) ListAllChapters(ctx context.Context, seriesExternalID string) ([]CatalogChapter, error) {
	var all []CatalogChapter
	page := 1

	for {
		var resp listCatalogChaptersResponse
		path := fmt.Sprintf("/chapters/%s?page=%d&page_size=%d&sort_order=asc", seriesExternalID, page, catalogPageSize)
		if _, err := c.base.doJSON(ctx, "GET", path, nil, &resp); err != nil {
			return nil, err
		}

		all = append(all, resp.Data...)
		if page >= resp.Meta.TotalPage || resp.Meta.TotalPage == 0 {
			break
		}
		page++
	}

	return all, nil
}

// NewChapterInput is one chapter to register via CreateChapters.
type NewChapterInput struct {
	ChapterID         string   `json:"chapter_id"`
	ChapterNumber     string   `json:"chapter_number"`
	ChapterTitle      string   `json:"chapter_title"`
	ChapterImages     []string `json:"chapter_images"`
	Path              string   `json:"path"`
	ThumbnailImageURL string   `json:"thumbnail_image_url"`
}

type createChaptersRequest struct {
	Chapters []NewChapterInput `json:"chapters"`
}

type createChaptersResponse struct {
	Retcode int    `json:"retcode"`
	Message string `json:"message"`
}

// CreateChapters registers one or more staged chapters into the catalog.
func (c *CatalogClient) CreateChapters(ctx context.Context, seriesExternalID string, chapters []NewChapterInput) error {
	var resp createChaptersResponse
	path := fmt.Sprintf("/chapters/%s", seriesExternalID)
	_, err := c.base.doJSON(ctx, "POST", path, createChaptersRequest{Chapters: chapters}, &resp)
	return err
}
