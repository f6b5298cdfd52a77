package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/WilliamHoest/trackanything-admin/internal/pkg/config"
)

// WorkerConfig holds the configuration for the scrape worker component.
// It controls the sweep schedule, timezone, per-sweep timeout, jitter and
// the health endpoint.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// All fields have defaults and validation rules so the worker can operate
// safely even with invalid or missing configuration.
type WorkerConfig struct {
	// CronSchedule is the cron expression for the due-brand sweep.
	// Format: "minute hour day month weekday"
	// Validation: Must be a valid cron expression (5 fields)
	// Default: "0 * * * *" (every hour)
	CronSchedule string

	// Timezone is the IANA timezone name for cron scheduling.
	// Example: "Europe/Copenhagen", "UTC"
	// Validation: Must be a valid IANA timezone name
	// Default: "Europe/Copenhagen"
	Timezone string

	// SweepTimeout is the maximum duration for one sweep across all due
	// brands. After this timeout the sweep is cancelled; per-brand locks
	// are still released by the pipeline's cleanup path.
	// Must be positive (> 0)
	// Default: 45 minutes
	SweepTimeout time.Duration

	// MaxJitter is the upper bound of the random delay before each brand
	// run within a sweep. Zero disables jitter.
	// Default: 10 minutes
	MaxJitter time.Duration

	// HealthPort is the port number for the health check HTTP server.
	// Range: 1024-65535 (avoid privileged ports)
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with production default values:
// hourly sweeps in Danish local time, a 45-minute sweep budget and up to
// ten minutes of jitter per brand.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule: "0 * * * *",
		Timezone:     "Europe/Copenhagen",
		SweepTimeout: 45 * time.Minute,
		MaxJitter:    10 * time.Minute,
		HealthPort:   9091,
	}
}

// Validate checks the configuration values using the reusable validators
// from internal/pkg/config. All field errors are collected and returned
// together.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidatePositiveDuration(c.SweepTimeout); err != nil {
		errs = append(errs, fmt.Errorf("sweep timeout: %w", err))
	}
	if c.MaxJitter < 0 {
		errs = append(errs, fmt.Errorf("max jitter: must not be negative, got %v", c.MaxJitter))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads worker configuration from environment variables
// with validation and automatic fallback to default values on failure.
//
// This function implements the fail-open strategy:
//  1. Start with DefaultConfig() as base
//  2. Load each field from environment variables
//  3. Validate each loaded value
//  4. If validation fails: use the default, log a warning, increment metrics
//  5. Never return an error - always return a valid configuration
//
// Environment variables:
//   - CRON_SCHEDULE: Cron expression (default: "0 * * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "Europe/Copenhagen")
//   - SWEEP_TIMEOUT: Duration string, e.g. "45m" (range 1m-4h)
//   - SWEEP_MAX_JITTER: Duration string, e.g. "10m" (range 0-30m)
//   - WORKER_HEALTH_PORT: Integer 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	warnFallback := func(field string, warnings []string) {
		fallbackApplied = true
		metrics.RecordValidationError(field)
		metrics.RecordFallback(field, "default")
		for _, warning := range warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}

	result := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = result.Value.(string)
	if result.FallbackApplied {
		warnFallback("cron_schedule", result.Warnings)
	}

	result = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = result.Value.(string)
	if result.FallbackApplied {
		warnFallback("timezone", result.Warnings)
	}

	result = config.LoadEnvDuration("SWEEP_TIMEOUT", cfg.SweepTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 1*time.Minute, 4*time.Hour)
	})
	cfg.SweepTimeout = result.Value.(time.Duration)
	if result.FallbackApplied {
		warnFallback("sweep_timeout", result.Warnings)
	}

	result = config.LoadEnvDuration("SWEEP_MAX_JITTER", cfg.MaxJitter, func(d time.Duration) error {
		return config.ValidateDuration(d, 0, 30*time.Minute)
	})
	cfg.MaxJitter = result.Value.(time.Duration)
	if result.FallbackApplied {
		warnFallback("max_jitter", result.Warnings)
	}

	result = config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})
	cfg.HealthPort = result.Value.(int)
	if result.FallbackApplied {
		warnFallback("health_port", result.Warnings)
	}

	metrics.SetFallbackActive("", fallbackApplied)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}
