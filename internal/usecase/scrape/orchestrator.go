package scrape

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/provider"
	"github.com/WilliamHoest/trackanything-admin/internal/observability/metrics"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/textutil"
)

// RelevanceFilter is the optional LLM pass that drops off-topic candidates.
// *relevance.Filter satisfies it.
type RelevanceFilter interface {
	Enabled() bool
	Filter(ctx context.Context, candidates []entity.RawCandidate, keywords []string) []entity.RawCandidate
}

// Options bound one aggregation pass across all providers.
type Options struct {
	// MaxKeywords caps how many cleaned keywords reach the providers.
	MaxKeywords int
	// MaxURLBudget caps the raw candidate count before deduplication. Zero
	// drops every candidate; negative falls back to the default.
	MaxURLBudget int
	Fuzzy        FuzzyConfig
}

// DefaultOptions returns production limits.
func DefaultOptions() Options {
	return Options{
		MaxKeywords:  50,
		MaxURLBudget: 200,
		Fuzzy:        DefaultFuzzyConfig(),
	}
}

// Orchestrator fans one request out to every provider, merges the results
// and reduces them to a clean, ordered candidate list.
type Orchestrator struct {
	providers []provider.Provider
	relevance RelevanceFilter
	opts      Options
	logger    *slog.Logger
}

func NewOrchestrator(providers []provider.Provider, relevance RelevanceFilter, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.MaxKeywords <= 0 {
		opts.MaxKeywords = DefaultOptions().MaxKeywords
	}
	if opts.MaxURLBudget < 0 {
		opts.MaxURLBudget = DefaultOptions().MaxURLBudget
	}
	return &Orchestrator{providers: providers, relevance: relevance, opts: opts, logger: logger}
}

// FetchAll runs every provider and returns deduplicated, filtered, sorted
// candidates. Provider failures are logged and skipped; FetchAll itself only
// errors when the context dies.
func (o *Orchestrator) FetchAll(ctx context.Context, req provider.Request) ([]entity.RawCandidate, error) {
	req.Keywords = textutil.CleanKeywords(req.Keywords)
	if len(req.Keywords) == 0 {
		return nil, nil
	}
	if len(req.Keywords) > o.opts.MaxKeywords {
		metrics.RecordGuardrail("keyword_cap", "orchestrator", "truncated")
		o.logger.Warn("keyword list truncated",
			slog.Int("keywords", len(req.Keywords)),
			slog.Int("cap", o.opts.MaxKeywords))
		req.Keywords = req.Keywords[:o.opts.MaxKeywords]
	}

	// Results keep provider order so earlier providers win exact-URL ties.
	results := make([][]entity.RawCandidate, len(o.providers))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, p := range o.providers {
		i, p := i, p
		group.Go(func() error {
			started := time.Now()
			candidates, err := p.Scrape(groupCtx, req)
			metrics.RecordProviderPass(p.Name(), time.Since(started))
			if err != nil {
				o.logger.Warn("provider pass failed, keeping partial results",
					slog.String("provider", p.Name()),
					slog.Int("candidates", len(candidates)),
					slog.Any("error", err))
			}
			results[i] = candidates
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var candidates []entity.RawCandidate
	for _, batch := range results {
		candidates = append(candidates, batch...)
	}

	if len(candidates) > o.opts.MaxURLBudget {
		metrics.RecordGuardrail("url_budget", "orchestrator", "truncated")
		o.logger.Warn("candidate volume exceeds budget, truncating",
			slog.Int("candidates", len(candidates)),
			slog.Int("budget", o.opts.MaxURLBudget))
		candidates = candidates[:o.opts.MaxURLBudget]
	}

	candidates, exactRemoved := dedupeExact(candidates)
	if exactRemoved > 0 {
		metrics.RecordDuplicatesRemoved("exact_url", exactRemoved)
	}

	if o.opts.Fuzzy.Enabled {
		var fuzzyRemoved int
		candidates, fuzzyRemoved = nearDedupe(candidates, o.opts.Fuzzy, o.logger)
		if fuzzyRemoved > 0 {
			metrics.RecordDuplicatesRemoved("fuzzy", fuzzyRemoved)
		}
	}

	if o.relevance != nil && o.relevance.Enabled() {
		candidates = o.relevance.Filter(ctx, candidates, req.Keywords)
	}

	candidates = filterLanguages(candidates, req.Languages, o.logger)

	sortCandidates(candidates)
	return candidates, nil
}

// filterLanguages drops candidates whose detected title language is not in
// the allowed set. Short or undetectable titles are kept; an empty allowed
// set disables the filter.
func filterLanguages(candidates []entity.RawCandidate, allowed []string, logger *slog.Logger) []entity.RawCandidate {
	if len(allowed) == 0 {
		return candidates
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, lang := range allowed {
		allowedSet[lang] = struct{}{}
	}

	kept := candidates[:0]
	removed := 0
	for _, candidate := range candidates {
		lang, ok := textutil.DetectLanguage(candidate.Title + " " + candidate.Teaser)
		if ok {
			if _, allowed := allowedSet[lang]; !allowed {
				removed++
				continue
			}
		}
		kept = append(kept, candidate)
	}
	if removed > 0 {
		logger.Debug("language filter removed candidates", slog.Int("removed", removed))
	}
	return kept
}

// sortCandidates orders newest first with undated candidates last; ties fall
// to date confidence, then title for stability.
func sortCandidates(candidates []entity.RawCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		left, right := candidates[i], candidates[j]
		switch {
		case left.PublishedAt != nil && right.PublishedAt == nil:
			return true
		case left.PublishedAt == nil && right.PublishedAt != nil:
			return false
		case left.PublishedAt != nil && right.PublishedAt != nil && !left.PublishedAt.Equal(*right.PublishedAt):
			return left.PublishedAt.After(*right.PublishedAt)
		}
		if left.DateConfidence.Rank() != right.DateConfidence.Rank() {
			return left.DateConfidence.Rank() > right.DateConfidence.Rank()
		}
		return left.Title < right.Title
	})
}
