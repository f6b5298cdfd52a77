// Package textutil provides keyword cleaning, word-boundary keyword matching
// and title normalization for the scraping pipeline.
package textutil

import (
	"regexp"
	"sort"
	"strings"
)

var (
	quoteReplacer = strings.NewReplacer(
		"“", `"`, // left double quote
		"”", `"`, // right double quote
		"„", `"`, // low double quote
		"‟", `"`,
		"«", `"`, // guillemets
		"»", `"`,
		"`", "'",
		"´", "'",
	)
	quoteStripRe  = regexp.MustCompile(`["']`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	nonAlphaNumRe = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// SanitizeSearchInput scrubs keyword text before it is embedded in provider
// queries. Quote characters anywhere in the string produce malformed provider
// query syntax (e.g. `Iran" Krig`), so they are removed along with dots and
// commas, and whitespace is collapsed.
func SanitizeSearchInput(text string) string {
	if text == "" {
		return ""
	}
	candidate := quoteReplacer.Replace(text)
	candidate = quoteStripRe.ReplaceAllString(candidate, " ")
	candidate = strings.ReplaceAll(candidate, ".", " ")
	candidate = strings.ReplaceAll(candidate, ",", " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(candidate, " "))
}

// CleanKeywords sanitizes each keyword and drops the ones that end up empty.
func CleanKeywords(keywords []string) []string {
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if candidate := SanitizeSearchInput(kw); candidate != "" {
			cleaned = append(cleaned, candidate)
		}
	}
	return cleaned
}

// KeywordPatterns holds one compiled term-group per input keyword. A
// multi-word keyword becomes a group of per-term patterns so partial matches
// can be scored.
type KeywordPatterns struct {
	groups [][]*regexp.Regexp
}

// extractKeywordTerms splits keyword text into plain deduplicated terms.
// Single-character tokens are ignored to avoid noisy matches.
func extractKeywordTerms(keyword string) []string {
	cleaned := SanitizeSearchInput(keyword)
	if cleaned == "" {
		return nil
	}

	var terms []string
	seen := make(map[string]struct{})
	for _, term := range strings.Fields(cleaned) {
		normalized := strings.ToLower(term)
		if len([]rune(normalized)) < 2 {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		terms = append(terms, term)
	}
	return terms
}

// termPattern matches the term case-insensitively at word boundaries.
// Boundaries are defined over Unicode letters and digits so Danish words
// match correctly ("kø" must not match inside "købe").
func termPattern(term string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(term)
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])` + escaped + `(?:[^\p{L}\p{N}_]|$)`)
}

// CompileKeywordPatterns compiles keyword groups for matching. Keywords that
// sanitize to nothing are skipped.
func CompileKeywordPatterns(keywords []string) *KeywordPatterns {
	kp := &KeywordPatterns{}
	for _, keyword := range keywords {
		terms := extractKeywordTerms(keyword)
		if len(terms) == 0 {
			continue
		}
		group := make([]*regexp.Regexp, 0, len(terms))
		for _, term := range terms {
			group = append(group, termPattern(term))
		}
		kp.groups = append(kp.groups, group)
	}
	return kp
}

// Score returns the maximum number of matched terms within any keyword group.
func (kp *KeywordPatterns) Score(text string) int {
	if text == "" || kp == nil {
		return 0
	}
	best := 0
	for _, group := range kp.groups {
		score := 0
		for _, pattern := range group {
			if pattern.MatchString(text) {
				score++
			}
		}
		if score > best {
			best = score
		}
	}
	return best
}

// Matches reports whether any keyword group matches at least minTerms terms.
func (kp *KeywordPatterns) Matches(text string, minTerms int) bool {
	if minTerms < 1 {
		minTerms = 1
	}
	return kp.Score(text) >= minTerms
}

// Empty reports whether no usable keyword groups were compiled.
func (kp *KeywordPatterns) Empty() bool {
	return kp == nil || len(kp.groups) == 0
}

// NormalizeTitle lowercases a title, strips punctuation and collapses
// whitespace. Used as the comparison form for fuzzy dedup and feed-level
// dedup keys.
func NormalizeTitle(title string) string {
	lowered := strings.ToLower(strings.TrimSpace(title))
	stripped := nonAlphaNumRe.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(stripped, " "))
}

// TitleSignature returns the first n tokens of the normalized title in
// sorted order, joined by a single space. Used as a blocking key so fuzzy
// comparison stays cheap; sorting keeps reordered headlines in the same
// block, matching the order-insensitive ratio they are compared with.
func TitleSignature(title string, n int) string {
	tokens := strings.Fields(NormalizeTitle(title))
	sort.Strings(tokens)
	if len(tokens) > n {
		tokens = tokens[:n]
	}
	return strings.Join(tokens, " ")
}
