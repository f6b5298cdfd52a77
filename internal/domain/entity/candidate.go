package entity

import "time"

// Confidence grades how trustworthy a parsed publication date is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Rank orders confidence levels for comparison; higher is better.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// RawCandidate is a transient in-run record produced by a provider before
// deduplication, topic scoring and persistence. Candidates live only in
// memory during a run.
type RawCandidate struct {
	Title          string
	Teaser         string
	URL            string
	PublishedAt    *time.Time
	DateConfidence Confidence
	SourceName     string
	Provider       string
	MatchedKeyword string
}
