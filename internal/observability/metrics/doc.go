// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all pipeline metrics including:
//   - Scrape run metrics (count, duration)
//   - Provider discovery metrics (pass duration, request duration, HTTP errors)
//   - Extraction metrics (attempts by result, content length, browser fallbacks)
//   - Deduplication and guardrail counters
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "github.com/WilliamHoest/trackanything-admin/internal/observability/metrics"
//
//	func runProvider(name string) {
//	    start := time.Now()
//	    // ... discover candidates ...
//	    metrics.RecordProviderPass(name, time.Since(start))
//	}
package metrics
