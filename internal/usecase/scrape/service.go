// Package scrape implements the brand scraping pipeline: provider fan-out,
// deduplication, topic scoring and mention persistence, coordinated under a
// per-brand database lock.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/provider"
	"github.com/WilliamHoest/trackanything-admin/internal/observability/logging"
	"github.com/WilliamHoest/trackanything-admin/internal/observability/metrics"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/urlutil"
	"github.com/WilliamHoest/trackanything-admin/internal/repository"
)

// Run statuses, recorded per run in metrics and the report.
const (
	StatusSuccess    = "success"
	StatusNoTopics   = "no_topics"
	StatusNoKeywords = "no_keywords"
	StatusNoMentions = "no_mentions"
	StatusError      = "error"
)

// DefaultLookbackDays bounds the first run of a never-scraped brand.
const DefaultLookbackDays = 1

// Config tunes the coordinator.
type Config struct {
	// HistoricalEnabled toggles fuzzy dedup against previously stored
	// mentions. The in-run fuzzy stage is governed separately by the
	// orchestrator options.
	HistoricalEnabled bool
	// HistoricalWindow is how far back stored mention titles are loaded for
	// fuzzy dedup against previous runs.
	HistoricalWindow time.Duration
	// RunTimeout is the hard time budget of one run. When it expires the
	// run fails and its cleanup still releases the brand lock.
	RunTimeout time.Duration
	// DefaultLanguages applies to brands without their own language setting.
	DefaultLanguages []string
}

// DefaultServiceConfig returns production settings.
func DefaultServiceConfig() Config {
	return Config{
		HistoricalEnabled: true,
		HistoricalWindow:  14 * 24 * time.Hour,
		RunTimeout:        15 * time.Minute,
		DefaultLanguages:  []string{"da", "en"},
	}
}

// Report summarizes one brand run.
type Report struct {
	RunID             string
	BrandID           int64
	Status            string
	CandidatesFound   int
	DuplicatesRemoved int
	MentionsCreated   int
	StartedAt         time.Time
	Duration          time.Duration
}

// Service coordinates a full scrape run for one brand.
type Service struct {
	cfg          Config
	brands       repository.BrandRepository
	topics       repository.TopicRepository
	mentions     repository.MentionRepository
	platforms    repository.PlatformRepository
	orchestrator *Orchestrator
	logger       *slog.Logger
}

func NewService(
	cfg Config,
	brands repository.BrandRepository,
	topics repository.TopicRepository,
	mentions repository.MentionRepository,
	platforms repository.PlatformRepository,
	orchestrator *Orchestrator,
	logger *slog.Logger,
) *Service {
	if cfg.HistoricalWindow <= 0 {
		cfg.HistoricalWindow = DefaultServiceConfig().HistoricalWindow
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultServiceConfig().RunTimeout
	}
	return &Service{
		cfg:          cfg,
		brands:       brands,
		topics:       topics,
		mentions:     mentions,
		platforms:    platforms,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// StartBrand validates the brand and launches RunBrand in a detached
// background goroutine. It returns before the run finishes: nil when the run
// was accepted, entity.ErrNotFound or entity.ErrBrandInactive when the brand
// cannot run, and a *LockedError when a fresh lock is already held. The
// lock check here is advisory; RunBrand acquires the real lock and a run
// that loses the race simply ends with ErrLocked.
func (s *Service) StartBrand(ctx context.Context, brandID int64) error {
	brand, err := s.brands.Get(ctx, brandID)
	if err != nil {
		return fmt.Errorf("StartBrand: loading brand: %w", err)
	}
	if brand == nil {
		return entity.ErrNotFound
	}
	if !brand.IsActive {
		return entity.ErrBrandInactive
	}
	if brand.ScrapeInProgress && brand.ScrapeStartedAt != nil &&
		time.Since(*brand.ScrapeStartedAt) < entity.LockStaleAfter {
		return &LockedError{StartedAt: *brand.ScrapeStartedAt}
	}

	background := context.WithoutCancel(ctx)
	go func() {
		if _, err := s.RunBrand(background, brandID); err != nil && !errors.Is(err, ErrLocked) {
			s.logger.Error("background scrape run failed",
				slog.Int64("brand_id", brandID),
				slog.Any("error", err))
		}
	}()
	return nil
}

// RunBrand executes one scrape run: lock, configuration load, provider
// fan-out, dedup against history, topic scoring, persistence, unlock.
// Returns entity.ErrNotFound for an unknown brand, entity.ErrBrandInactive
// for a disabled one and ErrLocked when a fresh lock is held elsewhere.
func (s *Service) RunBrand(ctx context.Context, brandID int64) (*Report, error) {
	brand, err := s.brands.Get(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("RunBrand: loading brand: %w", err)
	}
	if brand == nil {
		return nil, entity.ErrNotFound
	}
	if !brand.IsActive {
		return nil, entity.ErrBrandInactive
	}

	startedAt := time.Now().UTC()
	acquired, err := s.brands.AcquireScrapeLock(ctx, brandID, startedAt)
	if err != nil {
		return nil, fmt.Errorf("RunBrand: acquiring lock: %w", err)
	}
	if !acquired {
		// The winner has just written its start time; surface it so the
		// caller can tell how long the lock has been held.
		holder, holderErr := s.brands.Get(ctx, brandID)
		if holderErr == nil && holder != nil && holder.ScrapeStartedAt != nil {
			return nil, &LockedError{StartedAt: *holder.ScrapeStartedAt}
		}
		return nil, ErrLocked
	}

	// Every run gets a hard time budget so a stuck provider cannot hold the
	// brand lock until it goes stale.
	runCtx, cancelRun := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancelRun()

	report := &Report{
		RunID:     fmt.Sprintf("b%d-%s", brandID, uuid.NewString()[:8]),
		BrandID:   brandID,
		Status:    StatusError,
		StartedAt: startedAt,
	}
	logger := logging.WithRun(s.logger, report.RunID, brandID)

	// Cleanup must run even when the request context is already dead.
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if releaseErr := s.brands.ReleaseScrapeLock(cleanupCtx, brandID); releaseErr != nil {
			logger.Error("releasing scrape lock failed", slog.Any("error", releaseErr))
		}
		report.Duration = time.Since(startedAt)
		metrics.RecordScrapeRun("brand", report.Status, report.Duration)
		logger.Info("scrape run finished",
			slog.String("status", report.Status),
			slog.Int("candidates", report.CandidatesFound),
			slog.Int("duplicates_removed", report.DuplicatesRemoved),
			slog.Int("mentions_created", report.MentionsCreated),
			slog.Duration("duration", report.Duration))
	}()

	err = s.run(runCtx, brand, report, logger)
	if err != nil {
		report.Status = StatusError
		return report, err
	}
	return report, nil
}

func (s *Service) run(ctx context.Context, brand *entity.Brand, report *Report, logger *slog.Logger) error {
	topics, err := s.topics.ListActiveByBrand(ctx, brand.ID)
	if err != nil {
		return fmt.Errorf("run: loading topics: %w", err)
	}
	if len(topics) == 0 {
		report.Status = StatusNoTopics
		return nil
	}

	topicIDs := make([]int64, len(topics))
	for i, topic := range topics {
		topicIDs[i] = topic.ID
	}
	keywords, err := s.topics.ListKeywordsByTopics(ctx, topicIDs)
	if err != nil {
		return fmt.Errorf("run: loading keywords: %w", err)
	}
	if len(keywords) == 0 {
		report.Status = StatusNoKeywords
		return nil
	}

	keywordsByTopic := make(map[int64][]*entity.Keyword)
	for _, keyword := range keywords {
		keywordsByTopic[keyword.TopicID] = append(keywordsByTopic[keyword.TopicID], keyword)
	}

	req := provider.Request{
		Keywords:  buildQueries(brand, topics, keywordsByTopic),
		From:      fromDate(brand, report.StartedAt),
		To:        report.StartedAt,
		Languages: s.resolveLanguages(brand),
		RunID:     report.RunID,
	}
	logger.Info("starting provider fan-out",
		slog.Int("topics", len(topics)),
		slog.Int("queries", len(req.Keywords)),
		slog.Time("from", req.From))

	candidates, err := s.orchestrator.FetchAll(ctx, req)
	if err != nil {
		return fmt.Errorf("run: fetching candidates: %w", err)
	}
	report.CandidatesFound = len(candidates)
	if len(candidates) == 0 {
		report.Status = StatusNoMentions
		return s.touchBrand(ctx, brand.ID, report.StartedAt)
	}

	candidates, removed, err := s.dedupeAgainstHistory(ctx, brand.ID, candidates, report.StartedAt)
	if err != nil {
		return err
	}
	report.DuplicatesRemoved += removed

	created, err := s.persistCandidates(ctx, brand, candidates, topics, keywordsByTopic, report, logger)
	if err != nil {
		return err
	}
	report.MentionsCreated = created

	if created == 0 {
		report.Status = StatusNoMentions
	} else {
		report.Status = StatusSuccess
	}
	return s.touchBrand(ctx, brand.ID, report.StartedAt)
}

// buildQueries renders one provider query per (topic, keyword) pair, deduped.
func buildQueries(brand *entity.Brand, topics []*entity.Topic, keywordsByTopic map[int64][]*entity.Keyword) []string {
	seen := make(map[string]struct{})
	var queries []string
	for _, topic := range topics {
		for _, keyword := range keywordsByTopic[topic.ID] {
			query := topic.BuildQuery(brand.Name, keyword.Text)
			if query == "" {
				continue
			}
			if _, dup := seen[query]; dup {
				continue
			}
			seen[query] = struct{}{}
			queries = append(queries, query)
		}
	}
	return queries
}

// fromDate bounds the run's date window: the previous run's start, or a
// short lookback for a never-scraped brand.
func fromDate(brand *entity.Brand, now time.Time) time.Time {
	if brand.LastScrapedAt != nil {
		return *brand.LastScrapedAt
	}
	days := brand.InitialLookbackDays
	if days <= 0 {
		days = DefaultLookbackDays
	}
	return now.AddDate(0, 0, -days)
}

func (s *Service) resolveLanguages(brand *entity.Brand) []string {
	if brand.AllowedLanguages == nil {
		return s.cfg.DefaultLanguages
	}
	return brand.AllowedLanguages
}

// dedupeAgainstHistory drops candidates fuzzily matching titles stored in
// previous runs. A load failure degrades to no filtering.
func (s *Service) dedupeAgainstHistory(ctx context.Context, brandID int64, candidates []entity.RawCandidate, now time.Time) ([]entity.RawCandidate, int, error) {
	fuzzyCfg := s.orchestrator.opts.Fuzzy
	if !s.cfg.HistoricalEnabled || !fuzzyCfg.Enabled {
		return candidates, 0, nil
	}
	titles, err := s.mentions.ListRecentTitles(ctx, brandID, now.Add(-s.cfg.HistoricalWindow))
	if err != nil {
		s.logger.Warn("loading historical titles failed, skipping historical dedup",
			slog.Int64("brand_id", brandID),
			slog.Any("error", err))
		return candidates, 0, nil
	}
	kept, removed := filterAgainstHistorical(candidates, titles, fuzzyCfg)
	if removed > 0 {
		metrics.RecordDuplicatesRemoved("historical_fuzzy", removed)
	}
	return kept, removed, nil
}

// persistCandidates scores candidates against topics, drops already-stored
// URLs and inserts the rest with their keyword links.
func (s *Service) persistCandidates(
	ctx context.Context,
	brand *entity.Brand,
	candidates []entity.RawCandidate,
	topics []*entity.Topic,
	keywordsByTopic map[int64][]*entity.Keyword,
	report *Report,
	logger *slog.Logger,
) (int, error) {
	type scored struct {
		candidate     entity.RawCandidate
		normalizedURL string
		match         *topicMatch
	}

	var assigned []scored
	urlsByTopic := make(map[int64][]string)
	for _, candidate := range candidates {
		match := scoreCandidate(candidate, topics, keywordsByTopic)
		if match == nil {
			continue
		}
		normalized := urlutil.NormalizeURL(candidate.URL)
		assigned = append(assigned, scored{candidate, normalized, match})
		urlsByTopic[match.topic.ID] = append(urlsByTopic[match.topic.ID], normalized)
	}
	if len(assigned) == 0 {
		return 0, nil
	}

	existsByTopic := make(map[int64]map[string]bool, len(urlsByTopic))
	for topicID, urls := range urlsByTopic {
		exists, err := s.mentions.ExistsByNormalizedURLBatch(ctx, topicID, urls)
		if err != nil {
			return 0, fmt.Errorf("persistCandidates: checking existing urls: %w", err)
		}
		existsByTopic[topicID] = exists
	}

	platformIDs, err := s.platformCache(ctx)
	if err != nil {
		return 0, fmt.Errorf("persistCandidates: loading platforms: %w", err)
	}

	var toInsert []*entity.Mention
	var matches []*topicMatch
	for _, item := range assigned {
		if existsByTopic[item.match.topic.ID][item.normalizedURL] {
			report.DuplicatesRemoved++
			continue
		}
		platformID, err := s.platformFor(ctx, platformIDs, item.candidate)
		if err != nil {
			return 0, fmt.Errorf("persistCandidates: resolving platform: %w", err)
		}
		toInsert = append(toInsert, &entity.Mention{
			BrandID:          brand.ID,
			TopicID:          item.match.topic.ID,
			PrimaryKeywordID: item.match.primary.keyword.ID,
			PlatformID:       platformID,
			Title:            item.candidate.Title,
			Teaser:           truncateTeaser(item.candidate.Teaser),
			NormalizedURL:    item.normalizedURL,
			RawURL:           item.candidate.URL,
			PublishedAt:      item.candidate.PublishedAt,
			DateConfidence:   item.candidate.DateConfidence,
			DiscoveredAt:     report.StartedAt,
			ScrapeRunID:      report.RunID,
		})
		matches = append(matches, item.match)
	}
	if len(toInsert) == 0 {
		return 0, nil
	}

	if err := s.mentions.CreateBatch(ctx, toInsert); err != nil {
		return 0, fmt.Errorf("persistCandidates: inserting mentions: %w", err)
	}

	var links []*entity.MentionKeyword
	created := 0
	for i, mention := range toInsert {
		if mention.ID == 0 {
			// Lost an insert race with a concurrent run.
			continue
		}
		created++
		for _, match := range matches[i].matched {
			links = append(links, &entity.MentionKeyword{
				MentionID: mention.ID,
				KeywordID: match.keyword.ID,
				MatchedIn: match.matchedIn,
				Score:     match.score,
			})
		}
	}
	if len(links) > 0 {
		if err := s.mentions.CreateKeywordLinks(ctx, links); err != nil {
			// Mentions are in; losing links is not worth failing the run.
			logger.Error("inserting keyword links failed", slog.Any("error", err))
		}
	}
	return created, nil
}

// platformCache preloads all platforms keyed by name.
func (s *Service) platformCache(ctx context.Context) (map[string]int64, error) {
	platforms, err := s.platforms.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	cache := make(map[string]int64, len(platforms))
	for _, platform := range platforms {
		cache[platform.Name] = platform.ID
	}
	return cache, nil
}

func (s *Service) platformFor(ctx context.Context, cache map[string]int64, candidate entity.RawCandidate) (int64, error) {
	name := urlutil.Hostname(candidate.URL)
	if name == "" {
		name = "unknown"
	}
	if id, ok := cache[name]; ok {
		return id, nil
	}
	platform, err := s.platforms.GetOrCreate(ctx, name)
	if err != nil {
		return 0, err
	}
	cache[name] = platform.ID
	return platform.ID, nil
}

func truncateTeaser(teaser string) string {
	runes := []rune(teaser)
	if len(runes) <= entity.MaxTeaserChars {
		return teaser
	}
	return string(runes[:entity.MaxTeaserChars])
}

func (s *Service) touchBrand(ctx context.Context, brandID int64, runStartedAt time.Time) error {
	// The run's start time becomes the next run's from-date, so articles
	// published during the run are not skipped.
	if err := s.brands.TouchLastScrapedAt(ctx, brandID, runStartedAt); err != nil {
		return fmt.Errorf("touchBrand: %w", err)
	}
	return nil
}
