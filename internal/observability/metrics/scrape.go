package metrics

import (
	"strings"
	"time"
)

const maxLabelLen = 120

// Label sanitizes a free-form value for use as a Prometheus label:
// lowercased, trimmed, capped at 120 characters. Empty input becomes
// "unknown" so label sets stay complete.
func Label(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "unknown"
	}
	if len(v) > maxLabelLen {
		v = v[:maxLabelLen]
	}
	return v
}

// StatusBucket folds an HTTP status code into a coarse error-type label
// (http_4xx, http_5xx, ...). Keeps the error_type label low-cardinality.
func StatusBucket(statusCode int) string {
	switch {
	case statusCode == 429:
		return "http_429"
	case statusCode >= 500:
		return "http_5xx"
	case statusCode >= 400:
		return "http_4xx"
	case statusCode >= 300:
		return "http_3xx"
	default:
		return "http_other"
	}
}

// RecordScrapeRun records a completed run. Scope is "brand" for single-brand
// runs or "scheduled" for scheduler passes; status is "success", "partial" or
// "failure".
func RecordScrapeRun(scope, status string, duration time.Duration) {
	ScrapeRunsTotal.WithLabelValues(Label(scope), Label(status)).Inc()
	ScrapeRunDuration.Observe(duration.Seconds())
}

// RecordProviderPass records the duration of one provider discovery pass.
func RecordProviderPass(provider string, duration time.Duration) {
	ScrapeProviderDuration.WithLabelValues(Label(provider)).Observe(duration.Seconds())
}

// RecordRequest records the duration of one outbound HTTP request.
func RecordRequest(provider, domain string, duration time.Duration) {
	ScrapeRequestDuration.WithLabelValues(Label(provider), Label(domain)).Observe(duration.Seconds())
}

// RecordHTTPError records a failed outbound request. ErrorType should be a
// stable value: a StatusBucket result, "timeout", "transport" or "parse".
func RecordHTTPError(provider, domain, errorType string) {
	ScrapeHTTPErrors.WithLabelValues(Label(provider), Label(domain), Label(errorType)).Inc()
}

// RecordExtraction records one extraction attempt and, on success, the length
// of the extracted content.
func RecordExtraction(provider, domain, result string, contentLength int) {
	ScrapeExtractionsTotal.WithLabelValues(Label(provider), Label(domain), Label(result)).Inc()
	if result == "success" {
		ScrapeExtractionContentLength.WithLabelValues(Label(domain)).Observe(float64(contentLength))
	}
}

// RecordBrowserFallback records a headless browser fallback attempt.
// Result is "success", "empty" or "error".
func RecordBrowserFallback(domain, result string) {
	ScrapeBrowserFallback.WithLabelValues(Label(domain), Label(result)).Inc()
}

// RecordDuplicatesRemoved records candidates dropped during a dedup stage.
func RecordDuplicatesRemoved(stage string, count int) {
	if count <= 0 {
		return
	}
	ScrapeDuplicatesRemoved.WithLabelValues(Label(stage)).Add(float64(count))
}

// RecordGuardrail records a budget truncation or safety-cap activation.
func RecordGuardrail(guardrail, provider, reason string) {
	ScrapeGuardrailEvents.WithLabelValues(Label(guardrail), Label(provider), Label(reason)).Inc()
}
