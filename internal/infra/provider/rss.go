package provider

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/httpclient"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/dates"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/textutil"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/urlutil"
	"github.com/WilliamHoest/trackanything-admin/internal/repository"
	"github.com/WilliamHoest/trackanything-admin/internal/scrapegov"
)

// RSSConfig tunes the RSS provider.
type RSSConfig struct {
	// SeedFeeds are fetched on every run in addition to rss recipes.
	SeedFeeds []string
	// KeywordSearch enables the Google News search-feed per keyword.
	KeywordSearch bool
	// MaxTeaserChars truncates item descriptions.
	MaxTeaserChars int
}

// DefaultRSSConfig returns production settings.
func DefaultRSSConfig() RSSConfig {
	return RSSConfig{
		KeywordSearch:  true,
		MaxTeaserChars: entity.MaxTeaserChars,
	}
}

// feedState is the conditional-fetch cache entry for one feed URL.
type feedState struct {
	etag         string
	lastModified string
	bozoCount    int
}

// RSS reads known feeds (recipes with rss discovery plus seeds) and keyword
// search feeds. Conditional requests make unchanged feeds nearly free.
// The cache lives for the process, so scheduled runs benefit across brands.
type RSS struct {
	cfg      RSSConfig
	client   *httpclient.Client
	governor *scrapegov.Governor
	recipes  repository.RecipeRepository
	logger   *slog.Logger

	mu    sync.Mutex
	state map[string]*feedState
}

// NewRSS creates the provider. recipes may be nil when no recipe store is
// wired; only seeds and keyword search feeds are used then.
func NewRSS(cfg RSSConfig, client *httpclient.Client, governor *scrapegov.Governor, recipes repository.RecipeRepository, logger *slog.Logger) *RSS {
	return &RSS{
		cfg:      cfg,
		client:   client,
		governor: governor,
		recipes:  recipes,
		logger:   logger,
		state:    make(map[string]*feedState),
	}
}

func (r *RSS) Name() string { return "rss" }

// Scrape walks every known feed and keeps entries matching at least one
// keyword. Feed-level failures are logged and skipped.
func (r *RSS) Scrape(ctx context.Context, req Request) ([]entity.RawCandidate, error) {
	patterns := textutil.CompileKeywordPatterns(req.Keywords)
	if patterns.Empty() {
		return nil, nil
	}

	var candidates []entity.RawCandidate
	var lastErr error
	for _, feedURL := range r.feedURLs(ctx, req.Keywords) {
		found, err := r.scrapeFeed(ctx, feedURL, patterns, req)
		if err != nil {
			lastErr = err
			r.logger.Warn("feed fetch failed",
				slog.String("run_id", req.RunID),
				slog.String("feed", feedURL),
				slog.Any("error", err))
		}
		candidates = append(candidates, found...)
		if ctx.Err() != nil {
			break
		}
	}
	return candidates, lastErr
}

// feedURLs assembles the run's feed list: rss-discovery recipes, static
// seeds, then keyword search feeds. Duplicates are dropped.
func (r *RSS) feedURLs(ctx context.Context, keywords []string) []string {
	seen := make(map[string]struct{})
	var feeds []string
	add := func(feedURL string) {
		if feedURL == "" {
			return
		}
		if _, dup := seen[feedURL]; dup {
			return
		}
		seen[feedURL] = struct{}{}
		feeds = append(feeds, feedURL)
	}

	if r.recipes != nil {
		recipes, err := r.recipes.ListAll(ctx)
		if err != nil {
			r.logger.Warn("loading rss recipes", slog.Any("error", err))
		}
		for _, recipe := range recipes {
			if recipe.DiscoveryType != entity.DiscoveryRSS || !recipe.DiscoveryReady() {
				continue
			}
			for _, feedURL := range recipe.RSSURLs {
				add(feedURL)
			}
		}
	}
	for _, feedURL := range r.cfg.SeedFeeds {
		add(feedURL)
	}
	if r.cfg.KeywordSearch {
		for _, keyword := range keywords {
			add(googleNewsSearchFeed(keyword))
		}
	}
	return feeds
}

func googleNewsSearchFeed(keyword string) string {
	if keyword == "" {
		return ""
	}
	return "https://news.google.com/rss/search?q=" + url.QueryEscape(keyword) + "&hl=da&gl=DK&ceid=DK:da"
}

func (r *RSS) scrapeFeed(ctx context.Context, feedURL string, patterns *textutil.KeywordPatterns, req Request) ([]entity.RawCandidate, error) {
	release, err := r.governor.Acquire(ctx, httpclient.ProfileRSS, feedURL)
	if err != nil {
		return nil, err
	}
	defer release()

	header := make(map[string]string)
	state := r.feedState(feedURL)
	if state.etag != "" {
		header["If-None-Match"] = state.etag
	}
	if state.lastModified != "" {
		header["If-Modified-Since"] = state.lastModified
	}

	resp, err := r.client.Get(ctx, httpclient.Request{
		URL:      feedURL,
		Profile:  httpclient.ProfileRSS,
		Provider: r.Name(),
		Header:   header,
	})
	if err != nil {
		return nil, err
	}
	if resp.NotModified() {
		return nil, nil
	}
	r.updateFeedState(feedURL, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"))

	feed, err := gofeed.NewParser().ParseString(string(resp.Body))
	if err != nil {
		// The bozo counter mirrors feedparser's quality signal: feeds that
		// repeatedly fail to parse are candidates for recipe review.
		bozo := r.recordBozo(feedURL)
		r.logger.Warn("feed parse error",
			slog.String("feed", feedURL),
			slog.Int("bozo_count", bozo),
			slog.Any("error", err))
		return nil, nil
	}

	return r.collectItems(feed, feedURL, patterns, req), nil
}

func (r *RSS) collectItems(feed *gofeed.Feed, feedURL string, patterns *textutil.KeywordPatterns, req Request) []entity.RawCandidate {
	sourceName := feed.Title
	if sourceName == "" {
		sourceName = urlutil.Hostname(feedURL)
	}

	seen := make(map[string]struct{}, len(feed.Items))
	var candidates []entity.RawCandidate
	for _, item := range feed.Items {
		if item == nil || item.Link == "" || item.Title == "" {
			continue
		}

		key := item.GUID
		if key == "" {
			key = item.Link
		}
		key += "|" + textutil.NormalizeTitle(item.Title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		teaser := item.Description
		if r.cfg.MaxTeaserChars > 0 && len([]rune(teaser)) > r.cfg.MaxTeaserChars {
			teaser = string([]rune(teaser)[:r.cfg.MaxTeaserChars])
		}

		if !patterns.Matches(item.Title+" "+teaser, 1) {
			continue
		}

		publishedAt, confidence := feedItemDate(item)
		if publishedAt != nil && !req.From.IsZero() && !dates.WithinInterval(*publishedAt, req.From) {
			continue
		}

		candidates = append(candidates, entity.RawCandidate{
			Title:          item.Title,
			Teaser:         teaser,
			URL:            item.Link,
			PublishedAt:    publishedAt,
			DateConfidence: confidence,
			SourceName:     sourceName,
			Provider:       r.Name(),
		})
	}
	return candidates
}

// feedItemDate resolves the item's date. Feed elements arrive pre-parsed
// from gofeed and count as authoritative.
func feedItemDate(item *gofeed.Item) (*time.Time, entity.Confidence) {
	var candidates []dates.Candidate
	if item.PublishedParsed != nil {
		candidates = append(candidates, dates.Candidate{Kind: dates.SourceFeed, Time: item.PublishedParsed, Raw: item.Published})
	}
	if item.UpdatedParsed != nil {
		candidates = append(candidates, dates.Candidate{Kind: dates.SourceFeed, Time: item.UpdatedParsed, Raw: item.Updated})
	}
	parsed, confidence, _ := dates.Resolve(candidates)
	return parsed, confidence
}

func (r *RSS) feedState(feedURL string) feedState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.state[feedURL]; ok {
		return *state
	}
	return feedState{}
}

func (r *RSS) updateFeedState(feedURL, etag, lastModified string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.state[feedURL]
	if !ok {
		state = &feedState{}
		r.state[feedURL] = state
	}
	state.etag = etag
	state.lastModified = lastModified
}

func (r *RSS) recordBozo(feedURL string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.state[feedURL]
	if !ok {
		state = &feedState{}
		r.state[feedURL] = state
	}
	state.bozoCount++
	return state.bozoCount
}
