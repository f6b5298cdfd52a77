package scrape

import (
	"log/slog"
	"math"
	"time"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/textutil"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/urlutil"
)

// FuzzyConfig tunes stage-2 near-duplicate detection.
type FuzzyConfig struct {
	Enabled bool
	// Threshold is the minimum TokenSetRatio (1-100) that marks a pair as
	// duplicates.
	Threshold int
	// DayWindow bounds the publication-date distance of a comparable pair,
	// applied only when both sides carry a date.
	DayWindow int
	// NoDateCap bounds how many undated candidates join fuzzy comparison.
	NoDateCap int
}

// DefaultFuzzyConfig returns production settings.
func DefaultFuzzyConfig() FuzzyConfig {
	return FuzzyConfig{
		Enabled:   true,
		Threshold: 92,
		DayWindow: 2,
		NoDateCap: 1000,
	}
}

// googleNewsDomain wraps articles from arbitrary publishers, so its
// candidates are compared across domains.
const googleNewsDomain = "news.google.com"

// signatureTokens is the length of the historical blocking key.
const signatureTokens = 5

// dedupeExact removes candidates whose normalized URL was already seen.
// The first occurrence wins, so provider order is the priority order.
func dedupeExact(candidates []entity.RawCandidate) ([]entity.RawCandidate, int) {
	seen := make(map[string]struct{}, len(candidates))
	unique := make([]entity.RawCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.URL == "" {
			continue
		}
		normalized := urlutil.NormalizeURL(candidate.URL)
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		unique = append(unique, candidate)
	}
	return unique, len(candidates) - len(unique)
}

// comparisonText picks the text compared for near-duplication: a title of
// reasonable length stands alone, a short one is padded with the teaser.
func comparisonText(candidate entity.RawCandidate) string {
	if len([]rune(candidate.Title)) >= 20 {
		return candidate.Title
	}
	if candidate.Title != "" && candidate.Teaser != "" {
		return candidate.Title + " " + candidate.Teaser
	}
	if candidate.Title != "" {
		return candidate.Title
	}
	return candidate.Teaser
}

func withinDayWindow(left, right *time.Time, dayWindow int) bool {
	if left == nil || right == nil {
		return true
	}
	diff := left.Sub(*right)
	return math.Abs(diff.Hours()) <= float64(dayWindow)*24
}

// nearDedupe removes near-duplicate candidates with blocking plus fuzzy
// matching: candidates are compared when they share a registrable domain and
// publish within the day window, or when one side is a Google News wrapper
// link. The comparison itself is order-insensitive, so reordered headlines
// of the same story merge. On a hit the better candidate survives: higher
// date confidence first, longer teaser second.
func nearDedupe(candidates []entity.RawCandidate, cfg FuzzyConfig, logger *slog.Logger) ([]entity.RawCandidate, int) {
	if len(candidates) <= 1 {
		return candidates, 0
	}

	var unique []entity.RawCandidate
	byDomain := make(map[string][]int)
	var comparableIdx []int
	var googleIdx []int
	removed := 0
	undated := 0
	capWarned := false

	for _, candidate := range candidates {
		normalized := textutil.NormalizeTitle(comparisonText(candidate))
		if normalized == "" {
			unique = append(unique, candidate)
			continue
		}
		if candidate.PublishedAt == nil {
			undated++
			if undated > cfg.NoDateCap {
				if !capWarned {
					capWarned = true
					logger.Warn("undated candidates exceed fuzzy dedup cap, comparing first batch only",
						slog.Int("cap", cfg.NoDateCap))
				}
				unique = append(unique, candidate)
				continue
			}
		}

		domain := urlutil.ETLDPlusOne(candidate.URL)
		host := urlutil.Hostname(candidate.URL)

		seen := make(map[int]struct{})
		var indices []int
		collect := func(pool []int) {
			for _, idx := range pool {
				if _, dup := seen[idx]; dup {
					continue
				}
				seen[idx] = struct{}{}
				indices = append(indices, idx)
			}
		}
		// The Google News host wraps arbitrary publishers, so its candidates
		// join every block.
		if host == googleNewsDomain {
			collect(comparableIdx)
		} else {
			collect(byDomain[domain])
			collect(googleIdx)
		}

		matched := -1
		for _, idx := range indices {
			kept := unique[idx]
			keptText := textutil.NormalizeTitle(comparisonText(kept))
			if keptText == "" {
				continue
			}
			if !withinDayWindow(candidate.PublishedAt, kept.PublishedAt, cfg.DayWindow) {
				continue
			}
			if fuzzy.TokenSetRatio(normalized, keptText) >= cfg.Threshold {
				matched = idx
				break
			}
		}

		if matched >= 0 {
			removed++
			if betterCandidate(candidate, unique[matched]) {
				unique[matched] = candidate
			}
			continue
		}

		unique = append(unique, candidate)
		idx := len(unique) - 1
		comparableIdx = append(comparableIdx, idx)
		byDomain[domain] = append(byDomain[domain], idx)
		if host == googleNewsDomain {
			googleIdx = append(googleIdx, idx)
		}
	}
	return unique, removed
}

// betterCandidate reports whether challenger should replace incumbent in a
// duplicate pair.
func betterCandidate(challenger, incumbent entity.RawCandidate) bool {
	if challenger.DateConfidence.Rank() != incumbent.DateConfidence.Rank() {
		return challenger.DateConfidence.Rank() > incumbent.DateConfidence.Rank()
	}
	return len(challenger.Teaser) > len(incumbent.Teaser)
}

// filterAgainstHistorical drops candidates that fuzzily match a recently
// stored mention title. Historical titles arrive already normalized.
func filterAgainstHistorical(candidates []entity.RawCandidate, historicalTitles []string, cfg FuzzyConfig) ([]entity.RawCandidate, int) {
	if len(candidates) == 0 || len(historicalTitles) == 0 {
		return candidates, 0
	}

	bySignature := make(map[string][]string, len(historicalTitles))
	for _, title := range historicalTitles {
		normalized := textutil.NormalizeTitle(title)
		if normalized == "" {
			continue
		}
		signature := textutil.TitleSignature(normalized, signatureTokens)
		bySignature[signature] = append(bySignature[signature], normalized)
	}
	if len(bySignature) == 0 {
		return candidates, 0
	}

	kept := make([]entity.RawCandidate, 0, len(candidates))
	removed := 0
	for _, candidate := range candidates {
		normalized := textutil.NormalizeTitle(comparisonText(candidate))
		duplicate := false
		for _, historical := range bySignature[textutil.TitleSignature(normalized, signatureTokens)] {
			if fuzzy.TokenSetRatio(normalized, historical) >= cfg.Threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			removed++
			continue
		}
		kept = append(kept, candidate)
	}
	return kept, removed
}
