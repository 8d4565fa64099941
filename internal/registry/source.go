// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package registry

import (
	"net/url"
	"strings"
	"time"

	"github.com/yomira/synccore/pkg/slug"
)

// ScanStatus enumerates the outcome of a source's most recent scrape attempt.
type ScanStatus string

const (
	ScanSuccess ScanStatus = "success"
	ScanEmpty   ScanStatus = "empty"
	ScanTimeout ScanStatus = "timeout"
	ScanError   ScanStatus = "error"
)

// Source is one external website a series' chapters are discovered on.
type Source struct {
	ID       string
	SeriesID string

	SourceURL    string
	SourceDomain string
	MangaSlug    string
	Priority     int
	IsEnabled    bool

	LastChapterCount  int
	LastChapterNumber *float64
	LastScanStatus    ScanStatus
	LastScanError     string
	LastScanAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeSourceURLs trims and dedupes a raw URL list, returning it in input
// order with blank entries and case-insensitive duplicates dropped (the first
// spelling is kept). Entries are not parsed as URLs, so a malformed string is
// kept as is. It does not
// enforce the 1-3 count bound — callers validate that separately so the
// error message can name the exact violation.
func NormalizeSourceURLs(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))

	for _, u := range raw {
		trimmed := strings.TrimSpace(u)
		if trimmed == "" {
			continue
		}

		key := strings.ToLower(trimmed)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}

	return out
}

// DeriveSourceDomain extracts the lowercased hostname from a source URL.
// Returns "" if the URL cannot be parsed or carries no host.
func DeriveSourceDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// DeriveMangaSlug returns the last non-empty path segment of a source URL,
// run through [slug.From] so percent-encoded or Unicode titles in the path
// still yield a clean ASCII identifier.
func DeriveMangaSlug(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] == "" {
			continue
		}
		if unescaped, err := url.PathUnescape(segments[i]); err == nil {
			return slug.From(unescaped)
		}
		return slug.From(segments[i])
	}
	return ""
}
