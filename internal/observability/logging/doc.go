// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON and text output formats
//   - Run ID propagation for scrape runs
//   - Context-aware logging
//   - Configurable log levels
//
// Example usage:
//
//	import "github.com/WilliamHoest/trackanything-admin/internal/observability/logging"
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started", slog.String("version", "1.0"))
//	}
//
//	func scrapeBrand(ctx context.Context, runID string, brandID int64) {
//	    logger := logging.WithRun(slog.Default(), runID, brandID)
//	    logger.Info("scrape started")
//	}
package logging
