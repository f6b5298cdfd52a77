package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBrand_FrequencyHours(t *testing.T) {
	assert.Equal(t, 24, (&Brand{}).FrequencyHours())
	assert.Equal(t, 24, (&Brand{ScrapeFrequencyHours: -1}).FrequencyHours())
	assert.Equal(t, 6, (&Brand{ScrapeFrequencyHours: 6}).FrequencyHours())
}

func TestBrand_DueAt(t *testing.T) {
	t.Run("never scraped is due immediately", func(t *testing.T) {
		b := &Brand{}
		assert.True(t, b.DueAt().Before(time.Now()))
	})

	t.Run("due after frequency elapses", func(t *testing.T) {
		last := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		b := &Brand{ScrapeFrequencyHours: 12, LastScrapedAt: &last}
		assert.Equal(t, last.Add(12*time.Hour), b.DueAt())
	})
}

func TestTopic_BuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		topic    Topic
		brand    string
		keyword  string
		expected string
	}{
		{
			name:     "no template joins topic and keyword",
			topic:    Topic{Name: "Prices"},
			brand:    "Netto",
			keyword:  "rabat",
			expected: "Prices rabat",
		},
		{
			name:     "template substitutes placeholders",
			topic:    Topic{Name: "Prices", QueryTemplate: `"{brand}" {keyword}`},
			brand:    "Netto",
			keyword:  "rabat",
			expected: `"Netto" rabat`,
		},
		{
			name:     "template may reference topic",
			topic:    Topic{Name: "Layoffs", QueryTemplate: "{topic} {keyword} site:dk"},
			brand:    "Lego",
			keyword:  "fyringer",
			expected: "Layoffs fyringer site:dk",
		},
		{
			name:     "blank template falls back",
			topic:    Topic{Name: "Prices", QueryTemplate: "   "},
			brand:    "Netto",
			keyword:  "tilbud",
			expected: "Prices tilbud",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.topic.BuildQuery(tt.brand, tt.keyword))
		})
	}
}

func TestConfidence_Rank(t *testing.T) {
	assert.Greater(t, ConfidenceHigh.Rank(), ConfidenceMedium.Rank())
	assert.Greater(t, ConfidenceMedium.Rank(), ConfidenceLow.Rank())
	assert.Greater(t, ConfidenceLow.Rank(), ConfidenceNone.Rank())
	assert.Equal(t, 0, Confidence("bogus").Rank())
}

func TestSourceRecipe_DiscoveryReady(t *testing.T) {
	tests := []struct {
		name   string
		recipe SourceRecipe
		ready  bool
	}{
		{
			name:   "site search with keyword placeholder",
			recipe: SourceRecipe{DiscoveryType: DiscoverySiteSearch, SearchURLPattern: "https://ex.com/search?q={keyword}"},
			ready:  true,
		},
		{
			name:   "site search without placeholder",
			recipe: SourceRecipe{DiscoveryType: DiscoverySiteSearch, SearchURLPattern: "https://ex.com/search"},
			ready:  false,
		},
		{
			name:   "sitemap with url",
			recipe: SourceRecipe{DiscoveryType: DiscoverySitemap, SitemapURL: "https://ex.com/sitemap.xml"},
			ready:  true,
		},
		{
			name:   "rss with feeds",
			recipe: SourceRecipe{DiscoveryType: DiscoveryRSS, RSSURLs: []string{"https://ex.com/feed"}},
			ready:  true,
		},
		{
			name:   "rss without feeds",
			recipe: SourceRecipe{DiscoveryType: DiscoveryRSS},
			ready:  false,
		},
		{
			name:   "unknown discovery type",
			recipe: SourceRecipe{DiscoveryType: "ftp"},
			ready:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ready, tt.recipe.DiscoveryReady())
		})
	}
}
