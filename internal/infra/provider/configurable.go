package provider

import (
	"context"
	"encoding/xml"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/errgroup"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/extractor"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/httpclient"
	"github.com/WilliamHoest/trackanything-admin/internal/observability/metrics"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/dates"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/textutil"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/urlutil"
	"github.com/WilliamHoest/trackanything-admin/internal/repository"
	"github.com/WilliamHoest/trackanything-admin/internal/scrapegov"
)

// ConfigurableConfig tunes the recipe-driven HTML provider.
type ConfigurableConfig struct {
	// MaxArticlesPerSource caps discovered URLs per recipe per run.
	MaxArticlesPerSource int
	// ExtractionConcurrency bounds parallel page extractions.
	ExtractionConcurrency int
	// RespectRobots gates every article fetch on the site's robots.txt.
	RespectRobots bool
	// RobotsAgent is the token matched against robots.txt groups.
	RobotsAgent string
}

// DefaultConfigurableConfig returns production settings.
func DefaultConfigurableConfig() ConfigurableConfig {
	return ConfigurableConfig{
		MaxArticlesPerSource:  10,
		ExtractionConcurrency: 20,
		RespectRobots:         true,
		RobotsAgent:           "trackanything",
	}
}

// Renderer is the browser fallback for JS-heavy domains. Satisfied by
// *extractor.BrowserSession; nil disables the fallback.
type Renderer interface {
	Render(ctx context.Context, pageURL string) ([]byte, error)
}

// Configurable scrapes news sites directly using per-domain recipes:
// discovery through site search or sitemaps, extraction through the strategy
// chain, then a word-boundary keyword gate.
type Configurable struct {
	cfg      ConfigurableConfig
	client   *httpclient.Client
	governor *scrapegov.Governor
	recipes  repository.RecipeRepository
	renderer Renderer
	logger   *slog.Logger

	robotsMu    sync.Mutex
	robotsCache map[string]*robotstxt.RobotsData
}

// NewConfigurable creates the provider. renderer may be nil.
func NewConfigurable(cfg ConfigurableConfig, client *httpclient.Client, governor *scrapegov.Governor, recipes repository.RecipeRepository, renderer Renderer, logger *slog.Logger) *Configurable {
	return &Configurable{
		cfg:         cfg,
		client:      client,
		governor:    governor,
		recipes:     recipes,
		renderer:    renderer,
		logger:      logger,
		robotsCache: make(map[string]*robotstxt.RobotsData),
	}
}

func (c *Configurable) Name() string { return "configurable" }

// discovered is one article URL waiting for extraction.
type discovered struct {
	url     string
	recipe  *entity.SourceRecipe
	keyword string
}

// Scrape discovers article URLs for every ready recipe and extracts them in
// parallel. Recipe-level failures are logged and skipped.
func (c *Configurable) Scrape(ctx context.Context, req Request) ([]entity.RawCandidate, error) {
	if c.recipes == nil || len(req.Keywords) == 0 {
		return nil, nil
	}

	recipes, err := c.recipes.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var queue []discovered
	for _, recipe := range recipes {
		if !recipe.DiscoveryReady() {
			continue
		}
		switch recipe.DiscoveryType {
		case entity.DiscoverySiteSearch:
			queue = append(queue, c.discoverViaSearch(ctx, recipe, req)...)
		case entity.DiscoverySitemap:
			queue = append(queue, c.discoverViaSitemap(ctx, recipe, req)...)
		}
		if ctx.Err() != nil {
			break
		}
	}
	if len(queue) == 0 {
		return nil, nil
	}

	matchers := compileMatchers(req.Keywords)

	var mu sync.Mutex
	var candidates []entity.RawCandidate

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.cfg.ExtractionConcurrency)
	for _, item := range queue {
		item := item
		group.Go(func() error {
			candidate, ok := c.extractCandidate(groupCtx, item, matchers, req)
			if ok {
				mu.Lock()
				candidates = append(candidates, candidate)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = group.Wait()
	return candidates, nil
}

// discoverViaSearch renders the recipe's search pattern per keyword and
// harvests article-like links from the result pages.
func (c *Configurable) discoverViaSearch(ctx context.Context, recipe *entity.SourceRecipe, req Request) []discovered {
	var found []discovered
	seen := make(map[string]struct{})

	for _, keyword := range req.Keywords {
		if len(found) >= c.cfg.MaxArticlesPerSource {
			c.recordDiscoveryCap(recipe)
			break
		}
		searchURL := strings.ReplaceAll(recipe.SearchURLPattern, "{keyword}", url.QueryEscape(keyword))

		body, err := c.fetchPage(ctx, searchURL, httpclient.ProfileHTML)
		if err != nil {
			c.logger.Debug("site search failed",
				slog.String("run_id", req.RunID),
				slog.String("domain", recipe.Domain),
				slog.Any("error", err))
			continue
		}

		for _, link := range harvestLinks(body, searchURL) {
			if len(found) >= c.cfg.MaxArticlesPerSource {
				c.recordDiscoveryCap(recipe)
				break
			}
			if !isCandidateArticleURL(link, recipe.Domain) {
				continue
			}
			normalized := urlutil.NormalizeURL(link)
			if _, dup := seen[normalized]; dup {
				continue
			}
			seen[normalized] = struct{}{}
			found = append(found, discovered{url: link, recipe: recipe, keyword: keyword})
		}
	}
	return found
}

type sitemapURLSet struct {
	URLs []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// discoverViaSitemap reads the recipe's sitemap (following one level of
// sitemap index) and keeps article-like URLs up to the per-source cap.
func (c *Configurable) discoverViaSitemap(ctx context.Context, recipe *entity.SourceRecipe, req Request) []discovered {
	sitemaps := []string{recipe.SitemapURL}

	var found []discovered
	seen := make(map[string]struct{})
	for depth := 0; depth < len(sitemaps) && depth < 4; depth++ {
		body, err := c.fetchPage(ctx, sitemaps[depth], httpclient.ProfileAPI)
		if err != nil {
			c.logger.Debug("sitemap fetch failed",
				slog.String("run_id", req.RunID),
				slog.String("domain", recipe.Domain),
				slog.Any("error", err))
			continue
		}

		var index sitemapIndex
		if err := xml.Unmarshal(body, &index); err == nil && len(index.Sitemaps) > 0 {
			for _, child := range index.Sitemaps[:min(len(index.Sitemaps), 3)] {
				sitemaps = append(sitemaps, strings.TrimSpace(child.Loc))
			}
			continue
		}

		var urlset sitemapURLSet
		if err := xml.Unmarshal(body, &urlset); err != nil {
			continue
		}
		for _, entry := range urlset.URLs {
			if len(found) >= c.cfg.MaxArticlesPerSource {
				c.recordDiscoveryCap(recipe)
				return found
			}
			loc := strings.TrimSpace(entry.Loc)
			if !isCandidateArticleURL(loc, recipe.Domain) {
				continue
			}
			normalized := urlutil.NormalizeURL(loc)
			if _, dup := seen[normalized]; dup {
				continue
			}
			seen[normalized] = struct{}{}
			found = append(found, discovered{url: loc, recipe: recipe})
		}
	}
	return found
}

func (c *Configurable) recordDiscoveryCap(recipe *entity.SourceRecipe) {
	metrics.RecordGuardrail("max_articles_per_source", c.Name(), recipe.Domain)
}

// extractCandidate fetches and extracts one discovered URL, then applies the
// keyword gate and the date cutoff.
func (c *Configurable) extractCandidate(ctx context.Context, item discovered, matchers []keywordMatcher, req Request) (entity.RawCandidate, bool) {
	domain := urlutil.ETLDPlusOne(item.url)

	if c.governor.CircuitOpen(item.url) {
		metrics.RecordExtraction(c.Name(), domain, "blind_circuit_skip", 0)
		metrics.RecordGuardrail("blind_domain_circuit", c.Name(), "skip")
		return entity.RawCandidate{}, false
	}
	if !c.robotsAllowed(ctx, item.url) {
		metrics.RecordExtraction(c.Name(), domain, "robots_denied", 0)
		return entity.RawCandidate{}, false
	}

	var result *extractor.Result
	err := c.governor.ExtractGate(item.url, func() error {
		html, err := c.fetchArticle(ctx, item)
		if err != nil {
			return err
		}
		result, err = extractor.Extract(html, item.recipe, item.url)
		return err
	})
	if err != nil {
		metrics.RecordExtraction(c.Name(), domain, extractionResult(err), 0)
		c.logger.Debug("extraction failed",
			slog.String("run_id", req.RunID),
			slog.String("url", item.url),
			slog.Any("error", err))
		return entity.RawCandidate{}, false
	}
	metrics.RecordExtraction(c.Name(), domain, "success", len(result.Content))

	matchedKeyword, ok := matchKeyword(matchers, result.Title+" "+result.Teaser, item.keyword)
	if !ok {
		return entity.RawCandidate{}, false
	}

	publishedAt, confidence := c.resolveDate(result)
	if publishedAt != nil && !req.From.IsZero() && !dates.WithinInterval(*publishedAt, req.From) {
		return entity.RawCandidate{}, false
	}
	if !dates.Publishable(confidence) {
		publishedAt = nil
	}

	return entity.RawCandidate{
		Title:          result.Title,
		Teaser:         result.Teaser,
		URL:            item.url,
		PublishedAt:    publishedAt,
		DateConfidence: confidence,
		SourceName:     item.recipe.Domain,
		Provider:       c.Name(),
		MatchedKeyword: matchedKeyword,
	}, true
}

// fetchArticle gets the article HTML, routing JS-heavy recipes through the
// browser session when one is available.
func (c *Configurable) fetchArticle(ctx context.Context, item discovered) ([]byte, error) {
	if item.recipe.RequiresJS && c.renderer != nil {
		release, err := c.governor.Acquire(ctx, httpclient.ProfileHTML, item.url)
		if err != nil {
			return nil, err
		}
		defer release()
		return c.renderer.Render(ctx, item.url)
	}
	return c.fetchPage(ctx, item.url, httpclient.ProfileHTML)
}

func (c *Configurable) fetchPage(ctx context.Context, pageURL string, profile httpclient.Profile) ([]byte, error) {
	release, err := c.governor.Acquire(ctx, profile, pageURL)
	if err != nil {
		return nil, err
	}
	defer release()

	resp, err := c.client.Get(ctx, httpclient.Request{
		URL:      pageURL,
		Profile:  profile,
		Provider: c.Name(),
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// resolveDate feeds the extractor's date signals through the resolver in
// priority order: structured data, date selector, body text.
func (c *Configurable) resolveDate(result *extractor.Result) (*time.Time, entity.Confidence) {
	var dateCandidates []dates.Candidate
	if result.StructuredDate != "" {
		dateCandidates = append(dateCandidates, dates.Candidate{Kind: dates.SourceStructured, Raw: result.StructuredDate})
	}
	if result.DateRaw != "" {
		dateCandidates = append(dateCandidates, dates.Candidate{
			Kind:          dates.SourceSelector,
			Raw:           result.DateRaw,
			FromAttribute: result.DateFromAttribute,
		})
	}
	if bodyDate := dates.FindInText(result.Teaser); bodyDate != "" {
		dateCandidates = append(dateCandidates, dates.Candidate{Kind: dates.SourceBody, Raw: bodyDate})
	}
	parsed, confidence, _ := dates.Resolve(dateCandidates)
	return parsed, confidence
}

// robotsAllowed consults the domain's robots.txt, cached per host for the
// provider's lifetime. Unreachable or missing robots.txt means allowed.
func (c *Configurable) robotsAllowed(ctx context.Context, pageURL string) bool {
	if !c.cfg.RespectRobots {
		return true
	}
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return false
	}

	host := parsed.Scheme + "://" + parsed.Host
	c.robotsMu.Lock()
	data, cached := c.robotsCache[host]
	c.robotsMu.Unlock()

	if !cached {
		data = c.loadRobots(ctx, host)
		c.robotsMu.Lock()
		c.robotsCache[host] = data
		c.robotsMu.Unlock()
	}
	if data == nil {
		return true
	}
	return data.TestAgent(parsed.Path, c.cfg.RobotsAgent)
}

func (c *Configurable) loadRobots(ctx context.Context, host string) *robotstxt.RobotsData {
	body, err := c.fetchPage(ctx, host+"/robots.txt", httpclient.ProfileAPI)
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return data
}

func extractionResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, scrapegov.ErrCircuitOpen):
		return "blind_circuit_skip"
	case errors.Is(err, extractor.ErrEmptyContent), errors.Is(err, extractor.ErrParse):
		return "empty_content"
	case httpclient.ErrorType(err) == "timeout":
		return "timeout"
	default:
		return "http_error"
	}
}

// harvestLinks returns the absolute form of every anchor href in the page.
func harvestLinks(html []byte, baseURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		resolved, err := base.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		links = append(links, resolved.String())
	})
	return links
}

// keywordMatcher pairs a keyword with its compiled term patterns so matched
// candidates can be attributed to a specific keyword.
type keywordMatcher struct {
	keyword  string
	patterns *textutil.KeywordPatterns
}

func compileMatchers(keywords []string) []keywordMatcher {
	matchers := make([]keywordMatcher, 0, len(keywords))
	for _, keyword := range keywords {
		patterns := textutil.CompileKeywordPatterns([]string{keyword})
		if patterns.Empty() {
			continue
		}
		matchers = append(matchers, keywordMatcher{keyword: keyword, patterns: patterns})
	}
	return matchers
}

// matchKeyword requires two matched terms of one keyword, falling back to a
// single term when nothing clears the primary bar. The discovery keyword is
// preferred among equal matches.
func matchKeyword(matchers []keywordMatcher, text, preferred string) (string, bool) {
	for _, minTerms := range []int{2, 1} {
		for _, matcher := range matchers {
			if preferred != "" && matcher.keyword != preferred {
				continue
			}
			if matcher.patterns.Matches(text, minTerms) {
				return matcher.keyword, true
			}
		}
		for _, matcher := range matchers {
			if matcher.patterns.Matches(text, minTerms) {
				return matcher.keyword, true
			}
		}
	}
	return "", false
}
