// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package registry's HTTP layer exposes the admin surface described by the
external interface: series CRUD, force-scan, retry, and domain migration.

Every route is gated by the shared admin API key middleware mounted by the
server assembly; this file only wires handlers to the domain [Service].
*/
package registry

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yomira/synccore/internal/platform/apperr"
	requestutil "github.com/yomira/synccore/internal/platform/request"
	"github.com/yomira/synccore/internal/platform/respond"
	"github.com/yomira/synccore/pkg/convert"
	"github.com/yomira/synccore/pkg/pagination"
	"github.com/yomira/synccore/pkg/query"
	"github.com/yomira/synccore/pkg/slice"
)

const (
	FieldItems        = "items"
	FieldTotal        = "total"
	FieldPage         = "page"
	FieldPageSize     = "page_size"
	FieldSeries       = "series"
	FieldFailedTasks  = "failed_tasks"
	FieldRetriedCount = "retried_count"
)

// Handler implements the HTTP layer for series registration and sync control.
type Handler struct {
	service *Service
}

// NewHandler constructs a registry [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes attaches every admin operation to api. Callers are expected
// to have already mounted the admin-key auth middleware on api.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Post("/series", handler.CreateSeries)
	api.Post("/series/bulk", handler.BulkCreate)
	api.Get("/series", handler.ListSeries)
	api.Patch("/series/domain", handler.UpdateDomain)

	api.Get("/series/{id}", handler.GetSeries)
	api.Put("/series/{id}", handler.UpdateSeries)
	api.Delete("/series/{id}", handler.DeleteSeries)
	api.Post("/series/{id}/force-scan", handler.ForceScan)
	api.Post("/series/{id}/retry", handler.RetryFailed)
}

// # Series CRUD

type seriesRequest struct {
	ExternalID           string   `json:"external_id"`
	SourceURLs           []string `json:"source_urls"`
	Title                string   `json:"title"`
	CheckIntervalMinutes int      `json:"check_interval_minutes"`
	Priority             int      `json:"priority"`
	AutoSyncEnabled      *bool    `json:"auto_sync_enabled"`
}

func (in seriesRequest) toSpec() SeriesSpec {
	autoSync := true
	if in.AutoSyncEnabled != nil {
		autoSync = *in.AutoSyncEnabled
	}
	return SeriesSpec{
		ExternalID:           in.ExternalID,
		SourceURLs:           in.SourceURLs,
		Title:                in.Title,
		CheckIntervalMinutes: in.CheckIntervalMinutes,
		Priority:             in.Priority,
		AutoSyncEnabled:      autoSync,
	}
}

// POST /series
func (handler *Handler) CreateSeries(writer http.ResponseWriter, request *http.Request) {
	var input seriesRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	series, err := handler.service.CreateSeries(request.Context(), input.toSpec())
	if err != nil {
		respond.Error(writer, request, mapCreateErr(err))
		return
	}

	respond.Created(writer, series)
}

func mapCreateErr(err error) error {
	switch {
	case errors.Is(err, ErrAlreadyRegistered):
		return apperrConflict(err)
	case errors.Is(err, ErrInvalidSourceCount):
		return apperrValidation(err)
	default:
		return err
	}
}

// POST /series/bulk
type bulkCreateRequest struct {
	Items []seriesRequest `json:"items"`
}

func (handler *Handler) BulkCreate(writer http.ResponseWriter, request *http.Request) {
	var input bulkCreateRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	specs := make([]SeriesSpec, len(input.Items))
	for i, item := range input.Items {
		specs[i] = item.toSpec()
	}

	results, err := handler.service.BulkCreate(request.Context(), specs)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.JSON(writer, http.StatusCreated, map[string]any{FieldItems: results})
}

// GET /series
func (handler *Handler) ListSeries(writer http.ResponseWriter, request *http.Request) {
	params := request.URL.Query()

	statuses := slice.Map(query.StringSlice(params.Get("status")), func(s string) SeriesStatus {
		return SeriesStatus(s)
	})

	filter := SeriesFilter{
		Statuses:      statuses,
		TitleContains: params.Get("title"),
		Page:          convert.ToIntD(params.Get(FieldPage), pagination.DefaultPage),
		PageSize:      convert.ToIntD(params.Get(FieldPageSize), pagination.DefaultLimit),
	}

	series, total, err := handler.service.ListSeries(request.Context(), filter)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, series, pagination.NewMeta(filter.Page, filter.PageSize, total))
}

// GET /series/{id}
func (handler *Handler) GetSeries(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.ID(request, "id")

	series, failed, err := handler.service.GetSeries(request.Context(), id)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		FieldSeries:      series,
		FieldFailedTasks: failed,
	})
}

// PUT /series/{id}
type updateSeriesRequest struct {
	Title                *string  `json:"title"`
	SourceURLs           []string `json:"source_urls"`
	CheckIntervalMinutes *int     `json:"check_interval_minutes"`
	Priority             *int     `json:"priority"`
	AutoSyncEnabled      *bool    `json:"auto_sync_enabled"`
}

func (handler *Handler) UpdateSeries(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.ID(request, "id")

	var input updateSeriesRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	patch := SeriesPatch{
		Title:                input.Title,
		SourceURLs:           input.SourceURLs,
		CheckIntervalMinutes: input.CheckIntervalMinutes,
		Priority:             input.Priority,
		AutoSyncEnabled:      input.AutoSyncEnabled,
	}

	series, err := handler.service.UpdateSeries(request.Context(), id, patch)
	if err != nil {
		if errors.Is(err, ErrInvalidSourceCount) {
			err = apperrValidation(err)
		}
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, series)
}

// DELETE /series/{id}
func (handler *Handler) DeleteSeries(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.ID(request, "id")

	if err := handler.service.DeleteSeries(request.Context(), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Series deleted")
}

// # Sync control

// POST /series/{id}/force-scan
func (handler *Handler) ForceScan(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.ID(request, "id")

	if err := handler.service.ForceScan(request.Context(), id); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Message(writer, "Scan scheduled")
}

// POST /series/{id}/retry
func (handler *Handler) RetryFailed(writer http.ResponseWriter, request *http.Request) {
	id := requestutil.ID(request, "id")

	count, err := handler.service.RetryFailed(request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNoFailedTasks) {
			err = apperrValidation(err)
		}
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{FieldRetriedCount: count})
}

// # Domain migration

type updateDomainRequest struct {
	OldDomain string   `json:"old_domain"`
	NewDomain string   `json:"new_domain"`
	SeriesIDs []string `json:"series_ids"`
	DryRun    *bool    `json:"dry_run"`
}

// PATCH /series/domain
func (handler *Handler) UpdateDomain(writer http.ResponseWriter, request *http.Request) {
	var input updateDomainRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	dryRun := true
	if input.DryRun != nil {
		dryRun = *input.DryRun
	}

	result, err := handler.service.UpdateDomain(request.Context(), UpdateDomainInput{
		OldDomain: input.OldDomain,
		NewDomain: input.NewDomain,
		SeriesIDs: input.SeriesIDs,
		DryRun:    dryRun,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if dryRun {
		respond.OK(writer, map[string]any{
			"affected_count": result.AffectedCount,
			"sample":         result.Sample,
		})
		return
	}

	respond.OK(writer, map[string]any{"updated_count": result.UpdatedCount})
}

func apperrConflict(err error) error {
	return apperr.Conflict(err.Error())
}

func apperrValidation(err error) error {
	return apperr.ValidationError(err.Error())
}
