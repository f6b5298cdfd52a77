package extractor

import "strings"

// Quality gate thresholds. A candidate scoring below minAcceptScore falls
// through to the next strategy.
const (
	minContentChars       = 80
	preferredContentChars = 500
	minAcceptScore        = 40
)

// boilerplateMarkers flag consent walls, paywall interstitials and error
// pages that selector matches sometimes pick up instead of article text.
var boilerplateMarkers = []string{
	"accept cookies",
	"accepter cookies",
	"cookie policy",
	"cookiepolitik",
	"enable javascript",
	"aktiver javascript",
	"subscribe to continue",
	"page not found",
	"siden blev ikke fundet",
	"404",
	"log in to read",
}

// qualityScore grades one extraction candidate 0-100. Components: content
// length (0-55), text-to-link ratio (0-25), title and date presence (0-20),
// with a flat penalty when boilerplate markers dominate short content.
func qualityScore(title, content, dateRaw string, linkTextLen int) int {
	contentLen := len([]rune(content))
	if contentLen < minContentChars {
		return 0
	}

	score := 30
	if contentLen > preferredContentChars {
		score += 25
	} else {
		// Scale the remaining 25 points between the two thresholds.
		score += 25 * (contentLen - minContentChars) / (preferredContentChars - minContentChars)
	}

	if contentLen > 0 {
		ratio := float64(linkTextLen) / float64(contentLen)
		switch {
		case ratio <= 0.2:
			score += 25
		case ratio <= 0.4:
			score += 15
		case ratio <= 0.6:
			score += 5
		}
	}

	if title != "" {
		score += 10
	}
	if dateRaw != "" {
		score += 10
	}

	if hasBoilerplate(content) && contentLen < preferredContentChars {
		score -= 30
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func hasBoilerplate(content string) bool {
	lower := strings.ToLower(content)
	for _, marker := range boilerplateMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
