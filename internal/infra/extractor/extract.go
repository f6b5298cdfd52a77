// Package extractor turns raw article HTML into clean text. Strategies are
// tried in a fixed chain (recipe selectors, generic selectors, readability)
// and every candidate passes a deterministic quality gate before it is
// accepted.
package extractor

import (
	"bytes"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
)

// Strategy names which extraction path produced a result.
type Strategy string

const (
	StrategyRecipe      Strategy = "recipe"
	StrategyGeneric     Strategy = "generic"
	StrategyReadability Strategy = "readability"
)

// MaxContentBytes caps extracted content. Content is transient working data;
// only the teaser is persisted.
const MaxContentBytes = 50 * 1024

// ErrEmptyContent is returned when no strategy clears the quality gate.
var ErrEmptyContent = errors.New("empty content")

// ErrParse is returned when the HTML cannot be parsed at all.
var ErrParse = errors.New("unparseable HTML")

// Result is one accepted extraction.
type Result struct {
	Title   string
	Content string
	Teaser  string

	// DateRaw is the raw value from a date selector match, when any.
	// DateFromAttribute marks values read from datetime/content attributes,
	// which parse far more reliably than display text.
	DateRaw           string
	DateFromAttribute bool
	// StructuredDate is a datePublished value from JSON-LD or OpenGraph
	// metadata, independent of the winning strategy.
	StructuredDate string

	Strategy Strategy
	Score    int
}

var structuredDatePattern = regexp.MustCompile(`"datePublished"\s*:\s*"([^"]+)"`)

// Extract runs the strategy chain over html. The recipe may be nil. Recipe
// selectors win outright when they clear the gate; otherwise readability is
// preferred over generic selector guesses.
func Extract(html []byte, recipe *entity.SourceRecipe, pageURL string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, ErrParse
	}

	structuredDate := findStructuredDate(doc, html)

	if recipe != nil && recipe.HasSelectors() {
		if result := extractWithRecipe(doc, recipe); result != nil {
			return finish(result, structuredDate), nil
		}
	}

	// Readability outranks generic selector guesses when both clear the gate.
	if readable := extractReadable(html, pageURL, doc); readable != nil {
		// Readability has no notion of date selectors; backfill from the
		// generic list so the date resolver still gets a selector candidate.
		for _, selector := range genericDateSelectors {
			if readable.DateRaw, readable.DateFromAttribute = selectDate(doc, selector); readable.DateRaw != "" {
				break
			}
		}
		return finish(readable, structuredDate), nil
	}
	if generic := extractGeneric(doc); generic != nil {
		return finish(generic, structuredDate), nil
	}
	return nil, ErrEmptyContent
}

func extractWithRecipe(doc *goquery.Document, recipe *entity.SourceRecipe) *Result {
	title := selectText(doc, recipe.TitleSelector)
	content, linkLen := selectContent(doc, recipe.ContentSelector)
	dateRaw, fromAttr := selectDate(doc, recipe.DateSelector)

	score := qualityScore(title, content, dateRaw, linkLen)
	if score < minAcceptScore {
		return nil
	}
	return &Result{
		Title:             title,
		Content:           content,
		DateRaw:           dateRaw,
		DateFromAttribute: fromAttr,
		Strategy:          StrategyRecipe,
		Score:             score,
	}
}

func extractGeneric(doc *goquery.Document) *Result {
	var title string
	for _, selector := range genericTitleSelectors {
		if title = selectText(doc, selector); title != "" {
			break
		}
	}

	var content string
	var linkLen int
	for _, selector := range genericContentSelectors {
		if content, linkLen = selectContent(doc, selector); content != "" {
			break
		}
	}

	var dateRaw string
	var fromAttr bool
	for _, selector := range genericDateSelectors {
		if dateRaw, fromAttr = selectDate(doc, selector); dateRaw != "" {
			break
		}
	}

	score := qualityScore(title, content, dateRaw, linkLen)
	if score < minAcceptScore {
		return nil
	}
	return &Result{
		Title:             title,
		Content:           content,
		DateRaw:           dateRaw,
		DateFromAttribute: fromAttr,
		Strategy:          StrategyGeneric,
		Score:             score,
	}
}

func extractReadable(html []byte, pageURL string, doc *goquery.Document) *Result {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		parsedURL = nil
	}
	article, err := readability.FromReader(bytes.NewReader(html), parsedURL)
	if err != nil {
		return nil
	}

	title := cleanText(article.Title)
	content := cleanText(article.TextContent)

	// Readability strips markup, so grade the link density from the source
	// document's anchors instead.
	linkLen := 0
	if doc != nil {
		linkLen = len([]rune(cleanText(doc.Find("article a, main a").Text())))
	}

	score := qualityScore(title, content, "", linkLen)
	if score < minAcceptScore {
		return nil
	}
	return &Result{
		Title:    title,
		Content:  content,
		Strategy: StrategyReadability,
		Score:    score,
	}
}

func finish(result *Result, structuredDate string) *Result {
	result.Content = truncateBytes(result.Content, MaxContentBytes)
	result.Teaser = MakeTeaser(result.Content)
	result.StructuredDate = structuredDate
	return result
}

// MakeTeaser derives the persisted teaser from full content, cut at a word
// boundary near the cap.
func MakeTeaser(content string) string {
	runes := []rune(content)
	if len(runes) <= entity.MaxTeaserChars {
		return content
	}
	cut := string(runes[:entity.MaxTeaserChars])
	if idx := strings.LastIndex(cut, " "); idx > entity.MaxTeaserChars/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

func selectText(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	return cleanText(sel.Text())
}

// selectContent returns the cleaned text of the first match plus the length
// of anchor text inside it, for link-density grading.
func selectContent(doc *goquery.Document, selector string) (string, int) {
	if selector == "" {
		return "", 0
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", 0
	}
	content := cleanText(sel.Text())
	linkLen := len([]rune(cleanText(sel.Find("a").Text())))
	return content, linkLen
}

func selectDate(doc *goquery.Document, selector string) (string, bool) {
	if selector == "" {
		return "", false
	}
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	if value, ok := sel.Attr("datetime"); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), true
	}
	if value, ok := sel.Attr("content"); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), true
	}
	return cleanText(sel.Text()), false
}

func findStructuredDate(doc *goquery.Document, html []byte) string {
	if value, ok := doc.Find(`meta[property="article:published_time"]`).First().Attr("content"); ok {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	if match := structuredDatePattern.FindSubmatch(html); match != nil {
		return strings.TrimSpace(string(match[1]))
	}
	return ""
}

var whitespacePattern = regexp.MustCompile(`\s+`)

func cleanText(text string) string {
	return whitespacePattern.ReplaceAllString(strings.TrimSpace(text), " ")
}

// truncateBytes cuts s to at most limit bytes without splitting a rune.
func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
