package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/httpclient"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/dates"
	"github.com/WilliamHoest/trackanything-admin/internal/scrapegov"
)

const (
	gnewsEndpoint = "https://gnews.io/api/v4/search"
	gnewsPageSize = 10
)

// GNewsConfig tunes the GNews provider.
type GNewsConfig struct {
	APIKey string
	// BaseURL is the search endpoint; overridable in tests.
	BaseURL string
	// MaxPages caps pagination per keyword batch.
	MaxPages int
	// QueryCharCap bounds the OR-joined query length per request.
	QueryCharCap int
}

// DefaultGNewsConfig returns production settings, key left empty.
func DefaultGNewsConfig() GNewsConfig {
	return GNewsConfig{
		BaseURL:      gnewsEndpoint,
		MaxPages:     3,
		QueryCharCap: 180,
	}
}

// GNews discovers articles through the GNews news API. Keywords are batched
// into OR-joined queries to stretch the request quota.
type GNews struct {
	cfg      GNewsConfig
	client   *httpclient.Client
	governor *scrapegov.Governor
	logger   *slog.Logger
}

// NewGNews creates the provider.
func NewGNews(cfg GNewsConfig, client *httpclient.Client, governor *scrapegov.Governor, logger *slog.Logger) *GNews {
	return &GNews{cfg: cfg, client: client, governor: governor, logger: logger}
}

func (g *GNews) Name() string { return "gnews" }

type gnewsResponse struct {
	TotalArticles int            `json:"totalArticles"`
	Articles      []gnewsArticle `json:"articles"`
}

type gnewsArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

// Scrape collects candidates batch by batch. A failing batch is logged and
// skipped; everything gathered so far is returned either way.
func (g *GNews) Scrape(ctx context.Context, req Request) ([]entity.RawCandidate, error) {
	if g.cfg.APIKey == "" || len(req.Keywords) == 0 {
		return nil, nil
	}

	lang := "da"
	if len(req.Languages) > 0 {
		lang = req.Languages[0]
	}

	var candidates []entity.RawCandidate
	var lastErr error
	for _, batch := range batchKeywords(req.Keywords, g.cfg.QueryCharCap) {
		batchCandidates, err := g.scrapeBatch(ctx, batch, lang, req)
		if err != nil {
			lastErr = err
			g.logger.Warn("gnews batch failed",
				slog.String("run_id", req.RunID),
				slog.String("query", strings.Join(batch, " OR ")),
				slog.Any("error", err))
		}
		candidates = append(candidates, batchCandidates...)
		if ctx.Err() != nil {
			break
		}
	}
	return candidates, lastErr
}

func (g *GNews) scrapeBatch(ctx context.Context, batch []string, lang string, req Request) ([]entity.RawCandidate, error) {
	var collected []entity.RawCandidate
	for page := 1; page <= g.cfg.MaxPages; page++ {
		release, err := g.governor.Acquire(ctx, httpclient.ProfileAPI, g.cfg.BaseURL)
		if err != nil {
			return collected, err
		}
		resp, err := g.client.Get(ctx, httpclient.Request{
			URL:      g.buildURL(batch, lang, page, req),
			Profile:  httpclient.ProfileAPI,
			Provider: g.Name(),
		})
		release()
		if err != nil {
			return collected, err
		}

		var decoded gnewsResponse
		if err := json.Unmarshal(resp.Body, &decoded); err != nil {
			return collected, fmt.Errorf("decoding gnews response: %w", err)
		}

		for _, article := range decoded.Articles {
			if candidate, ok := g.toCandidate(article, req.From); ok {
				collected = append(collected, candidate)
			}
		}
		if len(decoded.Articles) < gnewsPageSize {
			break
		}
	}
	return collected, nil
}

func (g *GNews) buildURL(batch []string, lang string, page int, req Request) string {
	params := url.Values{}
	params.Set("q", strings.Join(batch, " OR "))
	params.Set("token", g.cfg.APIKey)
	params.Set("lang", lang)
	params.Set("max", strconv.Itoa(gnewsPageSize))
	params.Set("page", strconv.Itoa(page))
	if !req.From.IsZero() {
		params.Set("from", req.From.UTC().Format(time.RFC3339))
	}
	if !req.To.IsZero() {
		params.Set("to", req.To.UTC().Format(time.RFC3339))
	}
	return g.cfg.BaseURL + "?" + params.Encode()
}

func (g *GNews) toCandidate(article gnewsArticle, from time.Time) (entity.RawCandidate, bool) {
	if article.URL == "" || article.Title == "" {
		return entity.RawCandidate{}, false
	}

	var publishedAt *time.Time
	confidence := entity.ConfidenceNone
	if parsed, ok := dates.Parse(article.PublishedAt); ok {
		if !from.IsZero() && !dates.WithinInterval(parsed, from) {
			return entity.RawCandidate{}, false
		}
		publishedAt = &parsed
		confidence = entity.ConfidenceHigh
	}

	sourceName := article.Source.Name
	if sourceName == "" {
		sourceName = "GNews"
	}
	return entity.RawCandidate{
		Title:          article.Title,
		Teaser:         article.Description,
		URL:            article.URL,
		PublishedAt:    publishedAt,
		DateConfidence: confidence,
		SourceName:     sourceName,
		Provider:       g.Name(),
	}, true
}

// batchKeywords groups keywords into OR-join batches whose rendered query
// stays under charCap. A single oversized keyword still gets its own batch.
func batchKeywords(keywords []string, charCap int) [][]string {
	var batches [][]string
	var current []string
	length := 0

	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		added := len(keyword)
		if len(current) > 0 {
			added += len(" OR ")
		}
		if len(current) > 0 && length+added > charCap {
			batches = append(batches, current)
			current = nil
			length = 0
			added = len(keyword)
		}
		current = append(current, keyword)
		length += added
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
