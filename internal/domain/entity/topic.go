package entity

import (
	"strings"
	"time"
)

// Topic groups keywords under a brand. An optional query template lets the
// topic build context-aware provider queries instead of raw keywords.
type Topic struct {
	ID       int64
	BrandID  int64
	Name     string
	IsActive bool
	// QueryTemplate supports {brand}, {keyword} and {topic} placeholders.
	QueryTemplate string
	UpdatedAt     time.Time
}

// Keyword is a search term owned by a topic.
type Keyword struct {
	ID      int64
	TopicID int64
	Text    string
}

// BuildQuery renders the topic's query template for one keyword. When no
// template is set, the query is "{topic name} {keyword}" so provider hits stay
// scoped to the topic.
func (t *Topic) BuildQuery(brandName, keyword string) string {
	if strings.TrimSpace(t.QueryTemplate) == "" {
		return strings.TrimSpace(t.Name + " " + keyword)
	}
	replacer := strings.NewReplacer(
		"{brand}", brandName,
		"{keyword}", keyword,
		"{topic}", t.Name,
	)
	return strings.TrimSpace(replacer.Replace(t.QueryTemplate))
}
