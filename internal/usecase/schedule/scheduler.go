// Package schedule decides which brands are due for a scrape run and drives
// them through the pipeline, one sweep at a time. The worker binary triggers
// sweeps from a cron schedule.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/observability/metrics"
	"github.com/WilliamHoest/trackanything-admin/internal/repository"
	"github.com/WilliamHoest/trackanything-admin/internal/usecase/scrape"
)

// Runner runs one brand scrape. *scrape.Service satisfies it.
type Runner interface {
	RunBrand(ctx context.Context, brandID int64) (*scrape.Report, error)
}

// Config tunes a sweep.
type Config struct {
	// MaxJitter is the upper bound of the random delay before each brand
	// run, spreading provider load when many brands come due together.
	MaxJitter time.Duration
}

// DefaultConfig returns production settings.
func DefaultConfig() Config {
	return Config{MaxJitter: 10 * time.Minute}
}

// Summary reports one sweep.
type Summary struct {
	Scanned   int
	Due       int
	Succeeded int
	// Skipped counts brands that were locked by a concurrent run or turned
	// inactive between scan and run.
	Skipped  int
	Failed   int
	Duration time.Duration
}

// Scheduler scans active brands and runs the due ones sequentially.
type Scheduler struct {
	cfg    Config
	brands repository.BrandRepository
	runner Runner
	logger *slog.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, brands repository.BrandRepository, runner Runner, logger *slog.Logger) *Scheduler {
	if cfg.MaxJitter < 0 {
		cfg.MaxJitter = 0
	}
	return &Scheduler{
		cfg:    cfg,
		brands: brands,
		runner: runner,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// RunDue executes one sweep. A brand is due when it has never been scraped
// or its frequency has elapsed since the last run. Per-brand failures are
// counted and logged but never stop the sweep; only a failed brand scan is
// an error.
func (s *Scheduler) RunDue(ctx context.Context) (*Summary, error) {
	started := time.Now()
	summary := &Summary{}
	defer func() {
		summary.Duration = time.Since(started)
		metrics.RecordScrapeRun("scheduler", sweepStatus(summary), summary.Duration)
	}()

	brands, err := s.brands.ListActive(ctx)
	if err != nil {
		return summary, fmt.Errorf("RunDue: listing active brands: %w", err)
	}
	summary.Scanned = len(brands)

	now := time.Now().UTC()
	for _, brand := range brands {
		if now.Before(brand.DueAt()) {
			continue
		}
		summary.Due++

		if err := s.waitJitter(ctx); err != nil {
			return summary, err
		}
		s.runBrand(ctx, brand, summary)
	}

	s.logger.Info("sweep finished",
		slog.Int("scanned", summary.Scanned),
		slog.Int("due", summary.Due),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed))
	return summary, nil
}

func (s *Scheduler) runBrand(ctx context.Context, brand *entity.Brand, summary *Summary) {
	report, err := s.runner.RunBrand(ctx, brand.ID)
	switch {
	case err == nil:
		summary.Succeeded++
	case errors.Is(err, scrape.ErrLocked), errors.Is(err, entity.ErrBrandInactive), errors.Is(err, entity.ErrNotFound):
		summary.Skipped++
		s.logger.Info("brand skipped",
			slog.Int64("brand_id", brand.ID),
			slog.String("reason", err.Error()))
	default:
		summary.Failed++
		logger := s.logger
		if report != nil {
			logger = logger.With(slog.String("run_id", report.RunID))
		}
		logger.Error("brand run failed",
			slog.Int64("brand_id", brand.ID),
			slog.Any("error", err))
	}
}

func (s *Scheduler) waitJitter(ctx context.Context) error {
	if s.cfg.MaxJitter <= 0 {
		return nil
	}
	return s.sleep(ctx, time.Duration(rand.Int63n(int64(s.cfg.MaxJitter))))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func sweepStatus(summary *Summary) string {
	switch {
	case summary.Failed > 0:
		return "partial"
	case summary.Due == 0:
		return "idle"
	default:
		return "success"
	}
}
