// Package dates parses free-form publication dates and grades how much a
// parsed value can be trusted. A missing date is never replaced with "now";
// downstream ranking treats null dates as lowest priority instead.
package dates

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
)

// SourceKind identifies where a raw date value came from. Lower values are
// more authoritative and win during resolution.
type SourceKind int

const (
	// SourceFeed is an RSS/Atom published or updated element.
	SourceFeed SourceKind = iota
	// SourceStructured is embedded structured data (datePublished).
	SourceStructured
	// SourceSelector is a match of an explicit date selector.
	SourceSelector
	// SourceBody is free text found in the article body.
	SourceBody
)

// certaintyPattern recognizes strings that plainly contain a calendar date.
// Selector text without such a shape ("yesterday", "2 hours ago") parses but
// only earns low confidence.
var certaintyPattern = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}[./-]\d{1,2}[./-]\d{2,4}\b|\b(19|20)\d{2}\b`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Candidate is one possible date for an article.
type Candidate struct {
	Kind SourceKind
	// Raw is the unparsed value; ignored when Time is set.
	Raw string
	// Time is a pre-parsed value (feed entries arrive parsed).
	Time *time.Time
	// FromAttribute marks selector values read from a datetime/content
	// attribute rather than element text. Attribute values are
	// machine-written and more trustworthy.
	FromAttribute bool
}

// Parse parses a free-form date string into UTC. Returns ok=false when the
// string is empty or unparseable.
func Parse(raw string) (time.Time, bool) {
	normalized := strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
	if normalized == "" {
		return time.Time{}, false
	}

	parsed, err := dateparse.ParseIn(normalized, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}

// confidenceFor grades a successfully parsed candidate.
func confidenceFor(c Candidate) entity.Confidence {
	switch c.Kind {
	case SourceFeed, SourceStructured:
		return entity.ConfidenceHigh
	case SourceSelector:
		if c.FromAttribute || certaintyPattern.MatchString(c.Raw) {
			return entity.ConfidenceMedium
		}
		return entity.ConfidenceLow
	default:
		return entity.ConfidenceLow
	}
}

// Resolve picks the publication date from the available candidates. Candidates
// are tried in source-priority order (feed, structured data, date selector,
// body text); the first parseable one wins. With no parseable candidate the
// result is (nil, ConfidenceNone, "").
func Resolve(candidates []Candidate) (*time.Time, entity.Confidence, string) {
	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Kind < ordered[j].Kind })

	for _, c := range ordered {
		if c.Time != nil {
			t := c.Time.UTC()
			return &t, confidenceFor(c), c.Raw
		}
		if t, ok := Parse(c.Raw); ok {
			return &t, confidenceFor(c), c.Raw
		}
	}
	return nil, entity.ConfidenceNone, ""
}

// Publishable reports whether a confidence level is strong enough to persist
// the parsed date as published_at. Low and none stay null.
func Publishable(c entity.Confidence) bool {
	return c.Rank() >= entity.ConfidenceMedium.Rank()
}

// FindInText returns the first date-shaped substring of text, or "" when none
// is present. Used to build the lowest-priority body-text candidate.
func FindInText(text string) string {
	return certaintyPattern.FindString(text)
}

// WithinInterval reports whether a publication date falls on or after the
// run's from-date.
func WithinInterval(published, from time.Time) bool {
	return !published.UTC().Before(from.UTC())
}
