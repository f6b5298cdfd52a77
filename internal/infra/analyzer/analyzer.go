// Package analyzer derives extraction recipes for a news domain from a
// sample article and the site's homepage. Selector candidates are tested
// against the live page and optionally verified by an LLM judge; the result
// is upserted as the domain's recipe.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	openai "github.com/sashabaranov/go-openai"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/httpclient"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/urlutil"
	"github.com/WilliamHoest/trackanything-admin/internal/repository"
)

// Config tunes the analyzer.
type Config struct {
	// APIKey enables the LLM judge and LLM search-pattern detection.
	// Empty key means heuristics only.
	APIKey string
	// BaseURL points at any OpenAI-compatible endpoint. Empty means the
	// OpenAI default.
	BaseURL string
	Model   string
	// Timeout is the per-call deadline for LLM requests.
	Timeout time.Duration
}

// DefaultConfig returns production settings, key left empty.
func DefaultConfig() Config {
	return Config{
		Model:   "gpt-4o-mini",
		Timeout: 15 * time.Second,
	}
}

// Result is the outcome of analyzing one domain.
type Result struct {
	Domain string
	Recipe *entity.SourceRecipe
	// Confidence is high with three or more verified parts, medium with
	// two, low otherwise.
	Confidence string
	// VerifiedWith is the article URL the selectors were tested against.
	VerifiedWith string
	Saved        bool
}

// Analyzer probes a domain and writes its extraction recipe.
type Analyzer struct {
	cfg     Config
	client  *httpclient.Client
	recipes repository.RecipeRepository
	ai      *openai.Client
	logger  *slog.Logger
}

// New creates the analyzer. With an empty API key the LLM steps are skipped
// and heuristics decide alone.
func New(cfg Config, client *httpclient.Client, recipes repository.RecipeRepository, logger *slog.Logger) *Analyzer {
	a := &Analyzer{cfg: cfg, client: client, recipes: recipes, logger: logger}
	if cfg.APIKey != "" {
		clientCfg := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientCfg.BaseURL = cfg.BaseURL
		}
		a.ai = openai.NewClientWithConfig(clientCfg)
	}
	return a
}

// Candidate selectors, ordered specific to broad. First verified one wins.
var (
	titleCandidates = []string{
		"article h1",
		`h1[itemprop="headline"]`,
		"h1.article-title",
		".post-title h1",
		"header h1",
		"main h1",
		"h1",
	}
	contentCandidates = []string{
		`[itemprop="articleBody"]`,
		"article .article-content",
		"article .post-content",
		".article-body",
		".article__body",
		"main article",
		"article",
	}
	dateCandidates = []string{
		"time[datetime]",
		`[itemprop="datePublished"]`,
		`meta[property="article:published_time"]`,
		"time.published",
		".publish-date",
		".article-date",
		"article time",
	}
)

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

const (
	minTitleChars   = 10
	minContentChars = 50
)

// AnalyzeURL derives and saves a recipe for the article URL's domain. The
// article page verifies extraction selectors; the homepage provides the
// site-search pattern.
func (a *Analyzer) AnalyzeURL(ctx context.Context, articleURL string) (*Result, error) {
	parsed, err := url.Parse(articleURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("AnalyzeURL: invalid article url %q", articleURL)
	}
	domain := urlutil.Hostname(articleURL)
	rootURL := parsed.Scheme + "://" + parsed.Host

	articleHTML, err := a.fetch(ctx, articleURL)
	if err != nil {
		return nil, fmt.Errorf("AnalyzeURL: fetching article: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(articleHTML)))
	if err != nil {
		return nil, fmt.Errorf("AnalyzeURL: parsing article: %w", err)
	}

	verified := 0
	recipe := &entity.SourceRecipe{Domain: domain}

	if selector := a.verifySelector(ctx, doc, titleCandidates, a.verifyTitle); selector != "" {
		recipe.TitleSelector = selector
		verified++
	}
	if selector := a.verifySelector(ctx, doc, contentCandidates, a.verifyContent); selector != "" {
		recipe.ContentSelector = selector
		verified++
	}
	if selector := a.verifySelector(ctx, doc, dateCandidates, verifyDate); selector != "" {
		recipe.DateSelector = selector
		verified++
	}

	// The homepage is optional input; a failed fetch only costs the
	// search pattern.
	if homepageHTML, err := a.fetch(ctx, rootURL); err == nil {
		if pattern := a.detectSearchPattern(ctx, homepageHTML, rootURL); pattern != "" {
			recipe.SearchURLPattern = pattern
			recipe.DiscoveryType = entity.DiscoverySiteSearch
			verified++
		}
	} else {
		a.logger.Warn("homepage fetch failed",
			slog.String("domain", domain),
			slog.Any("error", err))
	}

	result := &Result{
		Domain:       domain,
		Recipe:       recipe,
		Confidence:   confidenceFor(verified),
		VerifiedWith: articleURL,
	}

	if err := a.save(ctx, recipe); err != nil {
		a.logger.Error("saving recipe failed",
			slog.String("domain", domain),
			slog.Any("error", err))
		return result, nil
	}
	result.Saved = true
	return result, nil
}

// RefreshDomain re-derives the domain's recipe from scratch: it finds one
// article link on the homepage and analyzes it.
func (a *Analyzer) RefreshDomain(ctx context.Context, domain string) (*Result, error) {
	domain = urlutil.Hostname(domain)
	if domain == "" {
		return nil, fmt.Errorf("RefreshDomain: empty domain")
	}

	homepageHTML, err := a.fetch(ctx, "https://"+domain)
	if err != nil {
		return nil, fmt.Errorf("RefreshDomain: fetching homepage: %w", err)
	}

	articleURL := findArticleURL(homepageHTML, domain)
	if articleURL == "" {
		return nil, fmt.Errorf("RefreshDomain: no article link found on homepage of %s", domain)
	}
	return a.AnalyzeURL(ctx, articleURL)
}

func (a *Analyzer) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	resp, err := a.client.Get(ctx, httpclient.Request{
		URL:      pageURL,
		Profile:  httpclient.ProfileHTML,
		Provider: "analyzer",
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// save merges the analysis into any existing recipe so a re-run never wipes
// discovery settings the analysis could not re-derive.
func (a *Analyzer) save(ctx context.Context, recipe *entity.SourceRecipe) error {
	existing, err := a.recipes.GetByDomain(ctx, recipe.Domain)
	if err != nil {
		return err
	}
	if existing != nil {
		recipe.ID = existing.ID
		recipe.RequiresJS = existing.RequiresJS
		recipe.RSSURLs = existing.RSSURLs
		if recipe.SearchURLPattern == "" {
			recipe.SearchURLPattern = existing.SearchURLPattern
		}
		recipe.SitemapURL = existing.SitemapURL
		if recipe.DiscoveryType == "" {
			recipe.DiscoveryType = existing.DiscoveryType
		}
	}
	return a.recipes.Upsert(ctx, recipe)
}

// verifySelector returns the first candidate whose extracted text passes
// verification.
func (a *Analyzer) verifySelector(ctx context.Context, doc *goquery.Document, candidates []string, verify func(context.Context, string) bool) string {
	for _, selector := range candidates {
		text := selectorText(doc, selector)
		if text == "" {
			continue
		}
		if verify(ctx, text) {
			return selector
		}
	}
	return ""
}

// selectorText extracts the value a selector would yield during scraping:
// meta content, datetime attribute, or element text.
func selectorText(doc *goquery.Document, selector string) string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}
	if goquery.NodeName(sel) == "meta" {
		content, _ := sel.Attr("content")
		return strings.TrimSpace(content)
	}
	if datetime, ok := sel.Attr("datetime"); ok {
		return strings.TrimSpace(datetime)
	}
	return strings.TrimSpace(sel.Text())
}

func (a *Analyzer) verifyTitle(ctx context.Context, text string) bool {
	if len([]rune(text)) < minTitleChars {
		return false
	}
	return a.judge(ctx, judgeTitlePrompt, text)
}

func (a *Analyzer) verifyContent(ctx context.Context, text string) bool {
	if len([]rune(text)) < minContentChars {
		return false
	}
	return a.judge(ctx, judgeContentPrompt, text)
}

// verifyDate is purely heuristic: a date value must contain a year.
func verifyDate(_ context.Context, text string) bool {
	return yearPattern.MatchString(text)
}

func confidenceFor(verified int) string {
	switch {
	case verified >= 3:
		return "high"
	case verified == 2:
		return "medium"
	default:
		return "low"
	}
}
