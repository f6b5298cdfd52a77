// Package entity defines the core domain entities and validation logic for the
// application. It contains the fundamental business objects such as Brand,
// Topic, Keyword and Mention, along with their domain-specific errors.
package entity

import "time"

// Brand is a user-owned monitoring scope. A brand exclusively owns its topics,
// keywords and mentions, and holds the scrape lock while a run is active.
type Brand struct {
	ID                   int64
	UserID               int64
	Name                 string
	IsActive             bool
	ScrapeFrequencyHours int
	InitialLookbackDays  int
	LastScrapedAt        *time.Time
	ScrapeInProgress     bool
	ScrapeStartedAt      *time.Time
	// AllowedLanguages nil means "use the global default languages".
	// An empty non-nil slice disables the language filter for this brand.
	AllowedLanguages []string
	CreatedAt        time.Time
}

// LockStaleAfter is how long a held scrape lock is honored before it is
// considered abandoned and may be reclaimed by a new run.
const LockStaleAfter = 180 * time.Minute

// DefaultScrapeFrequencyHours applies when a brand has no explicit frequency.
const DefaultScrapeFrequencyHours = 24

// FrequencyHours returns the effective scrape frequency for the brand.
func (b *Brand) FrequencyHours() int {
	if b.ScrapeFrequencyHours <= 0 {
		return DefaultScrapeFrequencyHours
	}
	return b.ScrapeFrequencyHours
}

// DueAt returns the earliest time the brand should be scraped again.
// A never-scraped brand is due immediately.
func (b *Brand) DueAt() time.Time {
	if b.LastScrapedAt == nil {
		return time.Time{}
	}
	return b.LastScrapedAt.Add(time.Duration(b.FrequencyHours()) * time.Hour)
}
