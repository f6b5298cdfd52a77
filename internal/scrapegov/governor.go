// Package scrapegov governs outbound scraping pressure. It combines
// per-domain token buckets, per-profile global concurrency caps and
// per-domain "blind" circuit breakers so one run can never hammer a site or
// keep extracting from a domain that stopped yielding content.
package scrapegov

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/WilliamHoest/trackanything-admin/internal/infra/httpclient"
	"github.com/WilliamHoest/trackanything-admin/internal/pkg/urlutil"
	"github.com/WilliamHoest/trackanything-admin/internal/resilience/circuitbreaker"
)

// ErrCircuitOpen is returned when a domain's blind circuit rejects work.
// Callers skip the URL and move on; the domain recovers after the cooldown.
var ErrCircuitOpen = errors.New("domain circuit open")

// Config tunes the governor. Rates are requests per second per registrable
// domain; concurrency caps are global per profile.
type Config struct {
	HTMLRate float64
	APIRate  float64
	RSSRate  float64

	HTMLConcurrency int64
	APIConcurrency  int64
	RSSConcurrency  int64

	// CircuitThreshold is the number of consecutive zero-content
	// extractions before a domain's blind circuit opens.
	CircuitThreshold uint32
	// CircuitCooldown is how long an open blind circuit rejects work
	// before allowing a single probe.
	CircuitCooldown time.Duration
}

// DefaultConfig mirrors the polite-scraping limits the pipeline ships with.
func DefaultConfig() Config {
	return Config{
		HTMLRate:         1.5,
		APIRate:          3.0,
		RSSRate:          2.0,
		HTMLConcurrency:  20,
		APIConcurrency:   50,
		RSSConcurrency:   20,
		CircuitThreshold: 8,
		CircuitCooldown:  10 * time.Minute,
	}
}

// Governor is safe for concurrent use. One instance serves a whole process,
// so concurrent brand runs share the same domain budgets.
type Governor struct {
	cfg Config

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	sems     map[httpclient.Profile]*semaphore.Weighted
	circuits *circuitbreaker.Registry
}

// New creates a governor from cfg.
func New(cfg Config) *Governor {
	return &Governor{
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
		sems: map[httpclient.Profile]*semaphore.Weighted{
			httpclient.ProfileHTML: semaphore.NewWeighted(cfg.HTMLConcurrency),
			httpclient.ProfileAPI:  semaphore.NewWeighted(cfg.APIConcurrency),
			httpclient.ProfileRSS:  semaphore.NewWeighted(cfg.RSSConcurrency),
		},
		circuits: circuitbreaker.NewRegistry(func(domain string) circuitbreaker.Config {
			return circuitbreaker.BlindDomainConfig(domain, cfg.CircuitThreshold, cfg.CircuitCooldown)
		}),
	}
}

// Acquire blocks until the request may proceed: a slot under the profile's
// global cap and a token from the domain's bucket. The returned release
// function must be called when the request finishes. Acquire fails only when
// ctx is done.
func (g *Governor) Acquire(ctx context.Context, profile httpclient.Profile, urlOrHost string) (func(), error) {
	sem := g.sems[profile]
	if sem == nil {
		sem = g.sems[httpclient.ProfileHTML]
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring %s slot: %w", profile, err)
	}

	if err := g.limiter(profile, urlOrHost).Wait(ctx); err != nil {
		sem.Release(1)
		return nil, fmt.Errorf("waiting for %s token: %w", profile, err)
	}
	return func() { sem.Release(1) }, nil
}

func (g *Governor) limiter(profile httpclient.Profile, urlOrHost string) *rate.Limiter {
	key := urlutil.ETLDPlusOne(urlOrHost) + "|" + string(profile)

	g.mu.Lock()
	defer g.mu.Unlock()

	if limiter, ok := g.limiters[key]; ok {
		return limiter
	}
	rps := g.rateFor(profile)
	// Burst of one enforces even spacing between requests to a domain.
	limiter := rate.NewLimiter(rate.Limit(rps), 1)
	g.limiters[key] = limiter
	return limiter
}

func (g *Governor) rateFor(profile httpclient.Profile) float64 {
	switch profile {
	case httpclient.ProfileAPI:
		return g.cfg.APIRate
	case httpclient.ProfileRSS:
		return g.cfg.RSSRate
	default:
		return g.cfg.HTMLRate
	}
}

// ExtractGate runs fn through the domain's blind circuit. A fn result of
// (content found, nil error) closes the circuit again; zero-content failures
// count toward the threshold. When the circuit is open, fn never runs and
// ErrCircuitOpen is returned.
func (g *Governor) ExtractGate(urlOrHost string, fn func() error) error {
	domain := urlutil.ETLDPlusOne(urlOrHost)
	_, err := g.circuits.Get(domain).Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s", ErrCircuitOpen, domain)
	}
	return err
}

// CircuitOpen reports whether the domain's blind circuit currently rejects
// work, without consuming the half-open probe.
func (g *Governor) CircuitOpen(urlOrHost string) bool {
	domain := urlutil.ETLDPlusOne(urlOrHost)
	return g.circuits.Get(domain).IsOpen()
}
