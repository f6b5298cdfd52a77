package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/WilliamHoest/trackanything-admin/internal/pkg/config"
)

// WorkerMetrics provides Prometheus metrics for the worker component.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// worker-specific metrics for sweep execution tracking.
//
// Embedded metrics (from ConfigMetrics):
//   - worker_config_load_timestamp: Unix timestamp of last configuration load
//   - worker_config_validation_errors_total: Total validation errors by field
//   - worker_config_fallbacks_total: Total fallback operations by field
//   - worker_config_fallback_active: 1 if any fallback active, 0 otherwise
//
// Worker-specific metrics:
//   - worker_cron_job_runs_total: Total sweep runs by status (success/failure)
//   - worker_cron_job_duration_seconds: Duration histogram of sweep execution
//   - worker_cron_job_brands_processed_total: Total brands run across sweeps
//   - worker_cron_job_last_success_timestamp: Unix timestamp of last successful sweep
type WorkerMetrics struct {
	*config.ConfigMetrics

	// CronJobRunsTotal counts sweep runs by status (success, failure).
	CronJobRunsTotal *prometheus.CounterVec

	// CronJobDurationSeconds measures sweep duration.
	// Buckets cover 1s to 45m; a sweep with many due brands and full
	// jitter legitimately lands in the top buckets.
	CronJobDurationSeconds prometheus.Histogram

	// CronJobBrandsProcessedTotal counts brands run across all sweeps.
	CronJobBrandsProcessedTotal prometheus.Counter

	// CronJobLastSuccessTimestamp records the Unix timestamp of the last
	// successful sweep, for staleness alerting.
	CronJobLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates a WorkerMetrics instance. Metrics register with
// the default registry via promauto at creation time.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		CronJobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_cron_job_runs_total",
			Help: "Total number of sweep runs by status (success/failure)",
		}, []string{"status"}),

		CronJobDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "worker_cron_job_duration_seconds",
			Help:    "Duration of sweep execution in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 2700},
		}),

		CronJobBrandsProcessedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worker_cron_job_brands_processed_total",
			Help: "Total number of brands run across all sweeps",
		}),

		CronJobLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_cron_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful sweep",
		}),
	}
}

// MustRegister is a no-op kept for call-site symmetry; promauto already
// registered the metrics in NewWorkerMetrics.
func (m *WorkerMetrics) MustRegister() {
}

// RecordJobRun increments the sweep counter for the given status
// ("success" or "failure").
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.CronJobRunsTotal.WithLabelValues(status).Inc()
}

// RecordJobDuration observes one sweep's duration in seconds.
func (m *WorkerMetrics) RecordJobDuration(seconds float64) {
	m.CronJobDurationSeconds.Observe(seconds)
}

// RecordBrandsProcessed adds the number of brands run in this sweep.
func (m *WorkerMetrics) RecordBrandsProcessed(count int) {
	m.CronJobBrandsProcessedTotal.Add(float64(count))
}

// RecordLastSuccess records the current time as the last successful sweep.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.CronJobLastSuccessTimestamp.SetToCurrentTime()
}
