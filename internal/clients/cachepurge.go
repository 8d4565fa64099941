// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package clients

import (
	"context"
	"time"
)

// CachePurgeClient consumes an external tag-based cache invalidation
// endpoint. Failures here are always swallowed by the caller (NotificationFailure
// kind) — this client only surfaces the raw error for logging.
type CachePurgeClient struct {
	base baseClient
}

// NewCachePurgeClient constructs a [CachePurgeClient].
func NewCachePurgeClient(baseURL, apiKey string, timeout time.Duration) *CachePurgeClient {
	return &CachePurgeClient{base: newBaseClient(baseURL, apiKey, "X-API-Key", timeout)}
}

type purgeTagsRequest struct {
	Tags []string `json:"tags"`
}

// PurgeTags issues a single coalesced purge call for every tag accumulated
// since the last scheduler turn.
func (c *CachePurgeClient) PurgeTags(ctx context.Context, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	_, err := c.base.doJSON(ctx, "POST", "/purge", purgeTagsRequest{Tags: tags}, nil)
	return err
}
