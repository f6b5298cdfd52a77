package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	"github.com/WilliamHoest/trackanything-admin/internal/config"
	"github.com/WilliamHoest/trackanything-admin/internal/handler/http/respond"
	pgRepo "github.com/WilliamHoest/trackanything-admin/internal/infra/adapter/persistence/postgres"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/db"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/extractor"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/httpclient"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/provider"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/relevance"
	workerPkg "github.com/WilliamHoest/trackanything-admin/internal/infra/worker"
	"github.com/WilliamHoest/trackanything-admin/internal/repository"
	"github.com/WilliamHoest/trackanything-admin/internal/scrapegov"
	"github.com/WilliamHoest/trackanything-admin/internal/usecase/schedule"
	scrapeUC "github.com/WilliamHoest/trackanything-admin/internal/usecase/scrape"
)

// Scheduler exit codes. Partial per-brand failures still count as normal
// completion; only a failed brand scan is unrecoverable.
const (
	exitOK          = 0
	exitConfigError = 1
	exitStoreError  = 2
)

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	scrapingCfg, err := config.LoadScrapingConfig()
	if err != nil {
		logger.Error("failed to load scraping configuration", slog.Any("error", err))
		os.Exit(exitConfigError)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(exitConfigError)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("sweep_timeout", workerConfig.SweepTimeout),
		slog.Duration("max_jitter", workerConfig.MaxJitter),
		slog.Int("health_port", workerConfig.HealthPort))

	scheduler, cleanup := setupScheduler(logger, database, scrapingCfg, workerConfig)
	defer cleanup()

	if os.Getenv("RUN_ONCE") == "true" {
		code := runOnce(logger, scheduler, workerConfig, workerMetrics)
		// os.Exit skips deferred cleanup; release resources explicitly.
		cleanup()
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
		os.Exit(code)
	}

	startMetricsServer(ctx, logger)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	startCronWorker(ctx, logger, scheduler, workerConfig, workerMetrics, healthServer)
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and waits for migrations to complete.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	waitForMigrations(logger, database)
	return database
}

// waitForMigrations probes the schema until the API binary has migrated it.
// The worker never migrates itself; the two binaries share one database and
// the API owns the schema.
func waitForMigrations(logger *slog.Logger, database *sql.DB) {
	const probe = "SELECT 1 FROM brands LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := database.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(exitStoreError)
}

// setupScheduler wires the scraping pipeline and returns the sweep scheduler
// with a cleanup function for process-lifetime resources.
func setupScheduler(logger *slog.Logger, database *sql.DB, cfg *config.ScrapingConfig, workerConfig *workerPkg.WorkerConfig) (*schedule.Scheduler, func()) {
	brandRepo := pgRepo.NewBrandRepo(database)
	topicRepo := pgRepo.NewTopicRepo(database)
	mentionRepo := pgRepo.NewMentionRepo(database)
	platformRepo := pgRepo.NewPlatformRepo(database)
	recipeRepo := pgRepo.NewRecipeRepo(database)

	client := httpclient.New(httpclient.DefaultConfig())

	govCfg := scrapegov.DefaultConfig()
	govCfg.HTMLRate = cfg.Rates.HTMLPerSecond
	govCfg.APIRate = cfg.Rates.APIPerSecond
	govCfg.RSSRate = cfg.Rates.RSSPerSecond
	govCfg.CircuitThreshold = uint32(cfg.Rates.BlindCircuitThreshold)
	governor := scrapegov.New(govCfg)

	browser := initBrowser(logger, cfg)
	providers := buildProviders(logger, cfg, client, governor, recipeRepo, browser)

	relevanceCfg := relevance.DefaultConfig()
	relevanceCfg.APIKey = cfg.Keys.OpenAI
	filter := relevance.New(relevanceCfg, logger)

	opts := scrapeUC.DefaultOptions()
	opts.MaxKeywords = cfg.Limits.MaxKeywordsPerRun
	opts.MaxURLBudget = cfg.Limits.MaxTotalURLsPerRun
	opts.Fuzzy.Enabled = cfg.Fuzzy.Enabled
	opts.Fuzzy.Threshold = cfg.Fuzzy.Threshold
	opts.Fuzzy.DayWindow = cfg.Fuzzy.DayWindow
	orchestrator := scrapeUC.NewOrchestrator(providers, filter, opts, logger)

	svcCfg := scrapeUC.Config{
		HistoricalEnabled: cfg.Historical.Enabled,
		HistoricalWindow:  cfg.Historical.Window,
		RunTimeout:        cfg.Limits.RunTimeout,
		DefaultLanguages:  cfg.DefaultLanguages,
	}
	scrapeSvc := scrapeUC.NewService(svcCfg, brandRepo, topicRepo, mentionRepo, platformRepo, orchestrator, logger)

	scheduler := schedule.New(schedule.Config{MaxJitter: workerConfig.MaxJitter}, brandRepo, scrapeSvc, logger)

	cleanup := func() {
		if browser != nil {
			browser.Close()
		}
	}
	return scheduler, cleanup
}

// initBrowser launches the shared headless browser for JS-heavy domains.
// Startup failure is logged and the browser fallback is simply unavailable.
func initBrowser(logger *slog.Logger, cfg *config.ScrapingConfig) *extractor.BrowserSession {
	if !cfg.Providers.Configurable {
		return nil
	}
	session, err := extractor.NewBrowserSession(extractor.DefaultTabPool)
	if err != nil {
		logger.Warn("browser fallback unavailable, JS-heavy domains degrade to plain fetches",
			slog.Any("error", err))
		return nil
	}
	logger.Info("browser session started", slog.Int("tab_pool", extractor.DefaultTabPool))
	return session
}

// buildProviders assembles the enabled discovery providers. API-backed
// providers additionally require a credential; a toggle without a key is
// logged and skipped.
func buildProviders(
	logger *slog.Logger,
	cfg *config.ScrapingConfig,
	client *httpclient.Client,
	governor *scrapegov.Governor,
	recipeRepo repository.RecipeRepository,
	browser *extractor.BrowserSession,
) []provider.Provider {
	var providers []provider.Provider

	if cfg.GNewsActive() {
		gnewsCfg := provider.DefaultGNewsConfig()
		gnewsCfg.APIKey = cfg.Keys.GNews
		providers = append(providers, provider.NewGNews(gnewsCfg, client, governor, logger))
	} else if cfg.Providers.GNews {
		logger.Warn("GNews provider enabled but GNEWS_API_KEY is not set, skipping")
	}

	if cfg.SerpAPIActive() {
		serpCfg := provider.DefaultSerpAPIConfig()
		serpCfg.APIKey = cfg.Keys.SerpAPI
		providers = append(providers, provider.NewSerpAPI(serpCfg, client, governor, logger))
	} else if cfg.Providers.SerpAPI {
		logger.Warn("SerpAPI provider enabled but SERPAPI_API_KEY is not set, skipping")
	}

	if cfg.Providers.RSS {
		providers = append(providers, provider.NewRSS(provider.DefaultRSSConfig(), client, governor, recipeRepo, logger))
	}

	if cfg.Providers.Configurable {
		var renderer provider.Renderer
		if browser != nil {
			renderer = browser
		}
		providers = append(providers, provider.NewConfigurable(provider.DefaultConfigurableConfig(), client, governor, recipeRepo, renderer, logger))
	}

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	logger.Info("scrape providers wired", slog.Any("providers", names))

	return providers
}

// runOnce executes a single sweep and maps the outcome to an exit code.
// Used by one-shot invocations (manual runs, external schedulers).
func runOnce(logger *slog.Logger, scheduler *schedule.Scheduler, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) int {
	summary, ok := runSweep(logger, scheduler, cfg, metrics)
	if !ok {
		return exitStoreError
	}
	logger.Info("single sweep finished", slog.Int("due", summary.Due), slog.Int("failed", summary.Failed))
	return exitOK
}

// startCronWorker starts the cron scheduler and runs sweeps periodically
// until the process receives SIGINT or SIGTERM.
func startCronWorker(ctx context.Context, logger *slog.Logger, scheduler *schedule.Scheduler, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runSweep(logger, scheduler, cfg, metrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(exitConfigError)
	}
	c.Start()

	// Mark as ready after cron is set up
	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down worker...")

	// Let an in-flight sweep finish before exiting.
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(cfg.SweepTimeout):
		logger.Warn("sweep did not finish before shutdown deadline")
	}
	logger.Info("worker stopped")
}

// runSweep executes one due-brand sweep with the configured timeout.
// Returns the summary and false when the brand scan itself failed.
func runSweep(logger *slog.Logger, scheduler *schedule.Scheduler, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) (*schedule.Summary, bool) {
	startTime := time.Now()
	metrics.RecordJobRun("started")
	logger.Info("sweep started")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SweepTimeout)
	defer cancel()

	summary, err := scheduler.RunDue(ctx)
	if err != nil {
		logger.Error("sweep failed", slog.String("error", respond.SanitizeError(err)))
		metrics.RecordJobRun("failure")
		metrics.RecordJobDuration(time.Since(startTime).Seconds())
		return nil, false
	}

	metrics.RecordJobRun("success")
	metrics.RecordJobDuration(time.Since(startTime).Seconds())
	metrics.RecordBrandsProcessed(summary.Due)
	metrics.RecordLastSuccess()

	logger.Info("sweep completed",
		slog.Int("scanned", summary.Scanned),
		slog.Int("due", summary.Due),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", summary.Duration),
	)
	return summary, true
}
