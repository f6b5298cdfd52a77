package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/httpclient"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/dates"
	"github.com/WilliamHoest/trackanything-admin/internal/scrapegov"
)

const serpapiEndpoint = "https://serpapi.com/search"

// SerpAPIConfig tunes the SerpAPI provider.
type SerpAPIConfig struct {
	APIKey string
	// BaseURL is the search endpoint; overridable in tests.
	BaseURL string
	// Concurrency bounds parallel per-keyword queries.
	Concurrency int
	// Locale parameters for Google News.
	HostLanguage string
	Region       string
}

// DefaultSerpAPIConfig returns production settings, key left empty.
func DefaultSerpAPIConfig() SerpAPIConfig {
	return SerpAPIConfig{
		BaseURL:      serpapiEndpoint,
		Concurrency:  5,
		HostLanguage: "da",
		Region:       "dk",
	}
}

// SerpAPI discovers articles through SerpAPI's Google News engine, one query
// per keyword, run in parallel under the governor.
type SerpAPI struct {
	cfg      SerpAPIConfig
	client   *httpclient.Client
	governor *scrapegov.Governor
	logger   *slog.Logger
}

// NewSerpAPI creates the provider.
func NewSerpAPI(cfg SerpAPIConfig, client *httpclient.Client, governor *scrapegov.Governor, logger *slog.Logger) *SerpAPI {
	return &SerpAPI{cfg: cfg, client: client, governor: governor, logger: logger}
}

func (s *SerpAPI) Name() string { return "serpapi" }

type serpapiResponse struct {
	NewsResults []serpapiNewsResult `json:"news_results"`
}

type serpapiNewsResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
	Source  struct {
		Name string `json:"name"`
	} `json:"source"`
}

// Scrape queries each keyword in parallel. Per-keyword failures are logged
// and do not stop the others.
func (s *SerpAPI) Scrape(ctx context.Context, req Request) ([]entity.RawCandidate, error) {
	if s.cfg.APIKey == "" || len(req.Keywords) == 0 {
		return nil, nil
	}

	var mu sync.Mutex
	var candidates []entity.RawCandidate
	var lastErr error

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Concurrency)

	for _, keyword := range req.Keywords {
		keyword := keyword
		group.Go(func() error {
			found, err := s.scrapeKeyword(groupCtx, keyword, req)
			mu.Lock()
			defer mu.Unlock()
			candidates = append(candidates, found...)
			if err != nil {
				lastErr = err
				s.logger.Warn("serpapi keyword failed",
					slog.String("run_id", req.RunID),
					slog.String("keyword", keyword),
					slog.Any("error", err))
			}
			return nil
		})
	}
	_ = group.Wait()
	return candidates, lastErr
}

func (s *SerpAPI) scrapeKeyword(ctx context.Context, keyword string, req Request) ([]entity.RawCandidate, error) {
	release, err := s.governor.Acquire(ctx, httpclient.ProfileAPI, s.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Get(ctx, httpclient.Request{
		URL:      s.buildURL(keyword),
		Profile:  httpclient.ProfileAPI,
		Provider: s.Name(),
	})
	release()
	if err != nil {
		return nil, err
	}

	var decoded serpapiResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding serpapi response: %w", err)
	}

	candidates := make([]entity.RawCandidate, 0, len(decoded.NewsResults))
	for _, item := range decoded.NewsResults {
		if candidate, ok := s.toCandidate(item, keyword, req.From); ok {
			candidates = append(candidates, candidate)
		}
	}
	return candidates, nil
}

func (s *SerpAPI) buildURL(keyword string) string {
	params := url.Values{}
	params.Set("engine", "google_news")
	params.Set("q", keyword)
	params.Set("hl", s.cfg.HostLanguage)
	params.Set("gl", s.cfg.Region)
	params.Set("api_key", s.cfg.APIKey)
	return s.cfg.BaseURL + "?" + params.Encode()
}

func (s *SerpAPI) toCandidate(item serpapiNewsResult, keyword string, from time.Time) (entity.RawCandidate, bool) {
	if item.Link == "" || item.Title == "" {
		return entity.RawCandidate{}, false
	}

	// SerpAPI renders dates like "08/20/2026, 09:15 AM, +0000 UTC". The
	// trailing zone suffix and the comma between date and time both trip
	// the parser, so strip them first.
	raw := strings.TrimSuffix(item.Date, ", +0000 UTC")
	raw = strings.ReplaceAll(raw, ",", "")

	var publishedAt *time.Time
	confidence := entity.ConfidenceNone
	if parsed, ok := dates.Parse(raw); ok {
		if !from.IsZero() && !dates.WithinInterval(parsed, from) {
			return entity.RawCandidate{}, false
		}
		publishedAt = &parsed
		confidence = entity.ConfidenceHigh
	}

	sourceName := item.Source.Name
	if sourceName == "" {
		sourceName = "SerpAPI"
	}
	return entity.RawCandidate{
		Title:          item.Title,
		Teaser:         item.Snippet,
		URL:            item.Link,
		PublishedAt:    publishedAt,
		DateConfidence: confidence,
		SourceName:     sourceName,
		Provider:       s.Name(),
		MatchedKeyword: keyword,
	}, true
}
