// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yomira/synccore/internal/registry"
)

func TestNormalizeSourceURLs_TrimsDedupesAndDropsBlank(t *testing.T) {
	in := []string{
		" https://example.com/manga/one ",
		"https://EXAMPLE.com/manga/one",
		"",
		"   ",
		"https://example.com/manga/two",
	}

	out := registry.NormalizeSourceURLs(in)

	assert.Equal(t, []string{
		"https://example.com/manga/one",
		"https://example.com/manga/two",
	}, out)
}

func TestNormalizeSourceURLs_EmptyInput(t *testing.T) {
	assert.Empty(t, registry.NormalizeSourceURLs(nil))
}

func TestDeriveSourceDomain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host", "https://MangaSite.COM/manga/one", "mangasite.com"},
		{"subdomain preserved", "https://cdn.mangasite.com/x", "cdn.mangasite.com"},
		{"invalid url", "://not a url", ""},
		{"no host", "not-a-url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, registry.DeriveSourceDomain(tt.in))
		})
	}
}

func TestDeriveMangaSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple slug", "https://example.com/manga/one-piece", "one-piece"},
		{"trailing slash", "https://example.com/manga/one-piece/", "one-piece"},
		{"percent encoded segment", "https://example.com/manga/One%20Piece", "one-piece"},
		{"invalid url", "://bad", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, registry.DeriveMangaSlug(tt.in))
		})
	}
}
