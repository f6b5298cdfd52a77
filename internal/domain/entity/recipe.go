package entity

import (
	"strings"
	"time"
)

// DiscoveryType selects how the configurable HTML provider finds article URLs
// for a recipe's domain.
type DiscoveryType string

const (
	DiscoverySiteSearch DiscoveryType = "site_search"
	DiscoverySitemap    DiscoveryType = "sitemap"
	DiscoveryRSS        DiscoveryType = "rss"
)

// SourceRecipe is a per-domain extraction configuration. Recipes are globally
// owned by the platform, not by a brand.
type SourceRecipe struct {
	ID               int64
	Domain           string
	DiscoveryType    DiscoveryType
	SearchURLPattern string
	SitemapURL       string
	RSSURLs          []string
	TitleSelector    string
	ContentSelector  string
	DateSelector     string
	// RequiresJS flags domains whose articles only render client-side;
	// the extractor goes straight to the browser fallback for them.
	RequiresJS bool
	UpdatedAt  time.Time
}

// DiscoveryReady reports whether the recipe carries the inputs its discovery
// type needs. Recipes that are not ready are invisible to the configurable
// provider.
func (r *SourceRecipe) DiscoveryReady() bool {
	switch r.DiscoveryType {
	case DiscoverySiteSearch:
		return strings.Contains(r.SearchURLPattern, "{keyword}")
	case DiscoverySitemap:
		return r.SitemapURL != ""
	case DiscoveryRSS:
		return len(r.RSSURLs) > 0
	default:
		return false
	}
}

// HasSelectors reports whether the recipe defines at least one extraction
// selector.
func (r *SourceRecipe) HasSelectors() bool {
	return r.TitleSelector != "" || r.ContentSelector != "" || r.DateSelector != ""
}
