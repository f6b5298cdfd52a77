package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern represents a regex pattern and its corresponding normalized template.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

// pathPatterns defines the list of patterns for dynamic routes.
// Patterns are evaluated in order from most specific to least specific.
// Pre-compiled at initialization for optimal performance (<1μs per operation).
var pathPatterns = []*PathPattern{
	// Scrape trigger routes with brand IDs
	{Pattern: regexp.MustCompile(`^/scrape/brand/\d+$`), Template: "/scrape/brand/:id"},

	// Recipe routes keyed by domain. A domain always contains a dot, which
	// keeps the static /recipes/lookup, /recipes/analyze and /recipes/refresh
	// paths out of this pattern.
	{Pattern: regexp.MustCompile(`^/recipes/[a-z0-9-]+(\.[a-z0-9-]+)+$`), Template: "/recipes/:domain"},
}

// NormalizePath normalizes dynamic URL paths to prevent metrics label cardinality explosion.
// It converts paths with IDs (e.g., /scrape/brand/123) to template format
// (e.g., /scrape/brand/:id). Static paths remain unchanged.
//
// Examples:
//
//	NormalizePath("/scrape/brand/123")    // "/scrape/brand/:id"
//	NormalizePath("/recipes/tv2.dk")      // "/recipes/:domain"
//	NormalizePath("/recipes/lookup")      // "/recipes/lookup" (unchanged)
//	NormalizePath("/health")              // "/health" (unchanged)
//	NormalizePath("/metrics")             // "/metrics" (unchanged)
//
// Query parameters and trailing slashes are handled:
//
//	NormalizePath("/scrape/brand/123?background=true") // "/scrape/brand/:id"
//	NormalizePath("/scrape/brand/123/")                // "/scrape/brand/:id"
func NormalizePath(path string) string {
	// Strip query parameters if present
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}

	// Strip trailing slash if present (except for root path)
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	// Try to match against known patterns
	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}

	// No match found, return original path
	// This is safe - static paths like /health and /metrics pass through
	// unchanged
	return path
}
