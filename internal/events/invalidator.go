// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package events

import (
	"context"
	"log/slog"
	"sync"
)

// purger is the subset of [clients.CachePurgeClient] the invalidator needs,
// kept as an interface so tests can supply a fake.
type purger interface {
	PurgeTags(ctx context.Context, tags []string) error
}

// Invalidator coalesces cache-purge requests raised while processing a
// tick into a single call at the next scheduler turn, rather than firing
// one purge per completed task.
type Invalidator struct {
	purge  purger
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewInvalidator constructs an [Invalidator] over a cache-purge client.
func NewInvalidator(purge purger, logger *slog.Logger) *Invalidator {
	return &Invalidator{purge: purge, logger: logger, pending: make(map[string]struct{})}
}

// ScheduleTag defers a tag for invalidation at the next Flush.
func (inv *Invalidator) ScheduleTag(tag string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.pending[tag] = struct{}{}
}

// Flush issues one coalesced purge call for every tag accumulated since the
// last flush. Failures are logged and ignored (NotificationFailure kind).
func (inv *Invalidator) Flush(ctx context.Context) {
	inv.mu.Lock()
	if len(inv.pending) == 0 {
		inv.mu.Unlock()
		return
	}
	tags := make([]string, 0, len(inv.pending))
	for tag := range inv.pending {
		tags = append(tags, tag)
	}
	inv.pending = make(map[string]struct{})
	inv.mu.Unlock()

	if err := inv.purge.PurgeTags(ctx, tags); err != nil {
		inv.logger.Warn("cache_purge_failed", slog.Int("tag_count", len(tags)), slog.String("error", err.Error()))
	}
}
