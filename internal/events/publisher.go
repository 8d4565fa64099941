// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package events publishes lifecycle and progress notifications over Redis
Pub/Sub and coalesces cache-invalidation requests between scheduler turns.

Publication is always best-effort: a publish failure is logged and
swallowed (NotificationFailure kind) rather than propagated to the
caller, since events are never awaited on the critical API path.
*/
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yomira/synccore/internal/platform/constants"
)

// EventType names one of the lifecycle/progress events the core emits.
type EventType string

const (
	EventMangaCreated EventType = "manga.created"
	EventMangaUpdated EventType = "manga.updated"
	EventMangaDeleted EventType = "manga.deleted"
	EventScanStarted  EventType = "manga.scan.started"
	EventScanFinished EventType = "manga.scan.finished"
	EventSyncProgress EventType = "manga.sync.progress"
)

// Envelope is the wire format published to every event channel.
type Envelope struct {
	Type             EventType `json:"type"`
	SeriesExternalID string    `json:"series_external_id"`
	Data             any       `json:"data,omitempty"`
	EventVersion     int       `json:"event_version"`
	Timestamp        time.Time `json:"timestamp"`
}

const envelopeVersion = 1

// Publisher broadcasts event envelopes to a global channel and to each
// series' own per-series channel.
type Publisher struct {
	redis  *redis.Client
	logger *slog.Logger
}

// NewPublisher constructs a [Publisher].
func NewPublisher(client *redis.Client, logger *slog.Logger) *Publisher {
	return &Publisher{redis: client, logger: logger}
}

// Publish broadcasts an event to the global list channel and to
// seriesExternalID's own per-series channel. A nil Publisher is a no-op, so
// callers that run without an event bus configured (unit tests, tools) don't
// need a stand-in.
func (p *Publisher) Publish(ctx context.Context, eventType EventType, seriesExternalID string, data any) {
	if p == nil {
		return
	}

	envelope := Envelope{
		Type:             eventType,
		SeriesExternalID: seriesExternalID,
		Data:             data,
		EventVersion:     envelopeVersion,
		Timestamp:        time.Now(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Warn("event_encode_failed", slog.String("type", string(eventType)), slog.String("error", err.Error()))
		return
	}

	if err := p.redis.Publish(ctx, constants.RedisChannelCatalogEvents, payload).Err(); err != nil {
		p.logger.Warn("event_publish_failed",
			slog.String("type", string(eventType)),
			slog.String("channel", constants.RedisChannelCatalogEvents),
			slog.String("error", err.Error()),
		)
	}

	seriesChannel := perSeriesChannel(seriesExternalID)
	if err := p.redis.Publish(ctx, seriesChannel, payload).Err(); err != nil {
		p.logger.Warn("event_publish_failed",
			slog.String("type", string(eventType)),
			slog.String("channel", seriesChannel),
			slog.String("error", err.Error()),
		)
	}
}

func perSeriesChannel(seriesExternalID string) string {
	return fmt.Sprintf("%s:%s", constants.RedisChannelCatalogEvents, seriesExternalID)
}
