// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yomira/synccore/pkg/pointer"
)

func TestExtractChapterNumber_PrefersURLSegment(t *testing.T) {
	n, ok := ExtractChapterNumber("https://example.com/manga/one-piece/chapter-1092", "SIDE STORY", pointer.To(5.0))
	assert.True(t, ok)
	assert.Equal(t, 1092.0, n)
}

func TestExtractChapterNumber_URLSegmentWithDecimal(t *testing.T) {
	n, ok := ExtractChapterNumber("https://example.com/manga/one-piece/chapter/105.5", "", nil)
	assert.True(t, ok)
	assert.Equal(t, 105.5, n)
}

func TestExtractChapterNumber_FallsBackToWeight(t *testing.T) {
	n, ok := ExtractChapterNumber("https://example.com/manga/one-piece/extras", "Bonus", pointer.To(42.0))
	assert.True(t, ok)
	assert.Equal(t, 42.0, n)
}

func TestExtractChapterNumber_WeightZeroIsRespected(t *testing.T) {
	n, ok := ExtractChapterNumber("https://example.com/manga/one-piece/extras", "Chapter 88: The End", pointer.To(0.0))
	assert.True(t, ok)
	assert.Equal(t, 0.0, n)
}

func TestExtractChapterNumber_FallsBackToTitle(t *testing.T) {
	n, ok := ExtractChapterNumber("https://example.com/manga/one-piece/extras", "Chapter 88: The End", nil)
	assert.True(t, ok)
	assert.Equal(t, 88.0, n)
}

func TestExtractChapterNumber_NoneFound(t *testing.T) {
	_, ok := ExtractChapterNumber("https://example.com/manga/one-piece/extras", "Special Edition", nil)
	assert.False(t, ok)
}
