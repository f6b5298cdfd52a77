package scrape

import (
	"strings"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
)

// longKeywordRunes marks keywords specific enough to earn a bonus point.
const longKeywordRunes = 8

type keywordMatch struct {
	keyword   *entity.Keyword
	score     int
	matchedIn string
}

type topicMatch struct {
	topic   *entity.Topic
	score   int
	primary keywordMatch
	// matched holds every keyword of the winning topic that hit, for the
	// mention's keyword links.
	matched []keywordMatch
}

// scoreKeyword grades one keyword against a candidate: a title hit counts
// double a teaser hit, and long keywords get a bonus point because they are
// unlikely to match by accident.
func scoreKeyword(keyword *entity.Keyword, title, teaser string) keywordMatch {
	text := strings.ToLower(keyword.Text)
	inTitle := text != "" && strings.Contains(title, text)
	inTeaser := text != "" && strings.Contains(teaser, text)

	match := keywordMatch{keyword: keyword}
	switch {
	case inTitle && inTeaser:
		match.score = 3
		match.matchedIn = entity.MatchedInBoth
	case inTitle:
		match.score = 2
		match.matchedIn = entity.MatchedInTitle
	case inTeaser:
		match.score = 1
		match.matchedIn = entity.MatchedInTeaser
	}
	if match.score > 0 && len([]rune(keyword.Text)) >= longKeywordRunes {
		match.score++
	}
	return match
}

// scoreCandidate assigns the candidate to its best-scoring topic. Topics
// arrive newest first and only a strictly higher score displaces the current
// winner, so ties favor the most recently updated topic. Returns nil when no
// keyword of any topic matches.
func scoreCandidate(candidate entity.RawCandidate, topics []*entity.Topic, keywordsByTopic map[int64][]*entity.Keyword) *topicMatch {
	title := strings.ToLower(candidate.Title)
	teaser := strings.ToLower(candidate.Teaser)

	var best *topicMatch
	for _, topic := range topics {
		var matched []keywordMatch
		score := 0
		for _, keyword := range keywordsByTopic[topic.ID] {
			match := scoreKeyword(keyword, title, teaser)
			if match.score == 0 {
				continue
			}
			matched = append(matched, match)
			score += match.score
		}
		if score == 0 {
			continue
		}
		if best == nil || score > best.score {
			best = &topicMatch{
				topic:   topic,
				score:   score,
				primary: primaryKeyword(matched),
				matched: matched,
			}
		}
	}
	return best
}

// primaryKeyword picks the strongest match: highest score, longest keyword
// text as tiebreaker.
func primaryKeyword(matched []keywordMatch) keywordMatch {
	best := matched[0]
	for _, match := range matched[1:] {
		if match.score > best.score ||
			(match.score == best.score && len(match.keyword.Text) > len(best.keyword.Text)) {
			best = match
		}
	}
	return best
}
