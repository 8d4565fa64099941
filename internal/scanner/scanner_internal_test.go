// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yomira/synccore/internal/clients"
	"github.com/yomira/synccore/internal/registry"
)

func TestHighestChapterNumber(t *testing.T) {
	chapters := []clients.RemoteChapter{
		{URL: "https://example.com/c/chapter-10"},
		{URL: "https://example.com/c/chapter-12"},
		{Title: "Extra"},
	}

	n, ok := highestChapterNumber(chapters)
	assert.True(t, ok)
	assert.Equal(t, 12.0, n)
}

func TestHighestChapterNumber_NoneResolvable(t *testing.T) {
	chapters := []clients.RemoteChapter{
		{Title: "Special"},
	}

	_, ok := highestChapterNumber(chapters)
	assert.False(t, ok)
}

func TestSelectAuthoritativeSource_PicksMostChapters(t *testing.T) {
	outcomes := []sourceOutcome{
		{source: &registry.Source{SourceDomain: "a.com"}, status: registry.ScanSuccess, chapters: make([]clients.RemoteChapter, 3)},
		{source: &registry.Source{SourceDomain: "b.com"}, status: registry.ScanSuccess, chapters: make([]clients.RemoteChapter, 10)},
		{source: &registry.Source{SourceDomain: "c.com"}, status: registry.ScanError, chapters: make([]clients.RemoteChapter, 99)},
	}

	best := selectAuthoritativeSource(outcomes)
	assert.NotNil(t, best)
	assert.Equal(t, "b.com", best.source.SourceDomain)
}

func TestSelectAuthoritativeSource_AllFailed(t *testing.T) {
	outcomes := []sourceOutcome{
		{source: &registry.Source{SourceDomain: "a.com"}, status: registry.ScanError},
		{source: &registry.Source{SourceDomain: "b.com"}, status: registry.ScanTimeout},
	}

	assert.Nil(t, selectAuthoritativeSource(outcomes))
}

func TestSelectAuthoritativeSource_TiesBrokenByInputOrder(t *testing.T) {
	outcomes := []sourceOutcome{
		{source: &registry.Source{SourceDomain: "first.com"}, status: registry.ScanSuccess, chapters: make([]clients.RemoteChapter, 5)},
		{source: &registry.Source{SourceDomain: "second.com"}, status: registry.ScanSuccess, chapters: make([]clients.RemoteChapter, 5)},
	}

	best := selectAuthoritativeSource(outcomes)
	assert.NotNil(t, best)
	assert.Equal(t, "first.com", best.source.SourceDomain)
}
