// Package metrics provides centralized Prometheus metrics for the scraping
// pipeline. Label values must stay low-cardinality: providers and guardrails
// are fixed enums, domains are eTLD+1, and free-form values go through Label.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// contentLengthBuckets mirror the distribution of extracted article bodies:
// most pages land between 500 and 5000 characters, with a long tail.
var contentLengthBuckets = []float64{0, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 20000}

// Run metrics track whole scrape runs.
var (
	// ScrapeRunsTotal counts completed scrape runs by scope and outcome.
	ScrapeRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_runs_total",
			Help: "Total number of scrape runs",
		},
		[]string{"scope", "status"},
	)

	// ScrapeRunDuration measures wall time of a full brand scrape run.
	ScrapeRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrape_run_duration_seconds",
			Help:    "Duration of a full scrape run in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)
)

// Provider metrics track discovery calls to external sources.
var (
	// ScrapeProviderDuration measures wall time of a single provider pass.
	ScrapeProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_provider_duration_seconds",
			Help:    "Duration of one provider discovery pass in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"provider"},
	)

	// ScrapeRequestDuration measures individual outbound HTTP requests.
	ScrapeRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_request_duration_seconds",
			Help:    "Duration of outbound scrape HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "domain"},
	)

	// ScrapeHTTPErrors counts failed outbound requests by coarse error type.
	ScrapeHTTPErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_http_errors_total",
			Help: "Total number of scrape HTTP errors",
		},
		[]string{"provider", "domain", "error_type"},
	)
)

// Extraction metrics track content extraction outcomes per domain.
var (
	// ScrapeExtractionsTotal counts extraction attempts by result.
	// Result is one of: success, empty_content, http_error, timeout.
	ScrapeExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_extractions_total",
			Help: "Total number of article extraction attempts",
		},
		[]string{"provider", "domain", "result"},
	)

	// ScrapeExtractionContentLength measures extracted body length in characters.
	ScrapeExtractionContentLength = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_extraction_content_length",
			Help:    "Length in characters of extracted article content",
			Buckets: contentLengthBuckets,
		},
		[]string{"domain"},
	)

	// ScrapeBrowserFallback counts headless-browser fallback renders by outcome.
	ScrapeBrowserFallback = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_browser_fallback_total",
			Help: "Total number of headless browser fallback attempts",
		},
		[]string{"domain", "result"},
	)
)

// Pipeline metrics track dedup and guardrail behavior.
var (
	// ScrapeDuplicatesRemoved counts candidates dropped per dedup stage.
	// Stage is one of: exact_url, fuzzy, historical.
	ScrapeDuplicatesRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_duplicates_removed_total",
			Help: "Total number of duplicate candidates removed",
		},
		[]string{"stage"},
	)

	// ScrapeGuardrailEvents counts budget truncations and safety caps.
	ScrapeGuardrailEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_guardrail_events_total",
			Help: "Total number of guardrail activations",
		},
		[]string{"guardrail", "provider", "reason"},
	)
)
