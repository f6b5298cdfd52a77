package entity

import "time"

// MaxTeaserChars caps the persisted teaser. Full article content is used
// transiently for matching and never stored.
const MaxTeaserChars = 600

// Mention is a persisted article match for a brand topic.
// (NormalizedURL, TopicID) is unique across the store.
type Mention struct {
	ID               int64
	BrandID          int64
	TopicID          int64
	PrimaryKeywordID int64
	PlatformID       int64
	Title            string
	Teaser           string
	NormalizedURL    string
	RawURL           string
	PublishedAt      *time.Time
	DateConfidence   Confidence
	ReadStatus       bool
	NotifiedStatus   bool
	DiscoveredAt     time.Time
	ScrapeRunID      string
}

// Values for MentionKeyword.MatchedIn.
const (
	MatchedInTitle  = "title"
	MatchedInTeaser = "teaser"
	MatchedInBoth   = "both"
)

// MentionKeyword links a mention to every keyword that matched it.
type MentionKeyword struct {
	MentionID int64
	KeywordID int64
	MatchedIn string
	Score     int
}

// Platform is a publishing site, keyed by normalized hostname.
type Platform struct {
	ID   int64
	Name string
}
