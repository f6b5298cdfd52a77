package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/WilliamHoest/trackanything-admin/internal/config"
	hhttp "github.com/WilliamHoest/trackanything-admin/internal/handler/http"
	hrecipe "github.com/WilliamHoest/trackanything-admin/internal/handler/http/recipe"
	"github.com/WilliamHoest/trackanything-admin/internal/handler/http/requestid"
	hscrape "github.com/WilliamHoest/trackanything-admin/internal/handler/http/scrape"
	pgRepo "github.com/WilliamHoest/trackanything-admin/internal/infra/adapter/persistence/postgres"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/analyzer"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/db"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/extractor"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/httpclient"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/provider"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/relevance"
	"github.com/WilliamHoest/trackanything-admin/internal/repository"
	"github.com/WilliamHoest/trackanything-admin/internal/scrapegov"
	scrapeUC "github.com/WilliamHoest/trackanything-admin/internal/usecase/scrape"
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
		os.Exit(1)
	}

	version := getVersion()
	components := setupServer(logger, database, scrapingCfg, version)
	defer components.Close()

	runServer(logger, components.Handler, version)
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

// initDatabase opens the database connection and runs migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// ServerComponents holds the assembled handler and resources that need
// explicit cleanup at shutdown.
type ServerComponents struct {
	Handler http.Handler
	browser *extractor.BrowserSession
}

// Close releases process-lifetime resources.
func (c *ServerComponents) Close() {
	if c.browser != nil {
		c.browser.Close()
	}
}

// setupServer wires the scraping pipeline and returns the HTTP handler with
// all routes and middleware.
func setupServer(logger *slog.Logger, database *sql.DB, cfg *config.ScrapingConfig, version string) *ServerComponents {
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

	analyzerCfg := analyzer.DefaultConfig()
	analyzerCfg.APIKey = cfg.Keys.OpenAI
	recipeAnalyzer := analyzer.New(analyzerCfg, client, recipeRepo, logger)

	// The analyzer endpoints fetch remote pages and call the LLM; keep them
	// throttled and bounded.
	analyzeLimiter := hhttp.NewRateLimiter(10, 1*time.Minute)
	analyzeGuard := func(next http.Handler) http.Handler {
		return analyzeLimiter.Limit(hhttp.Timeout(2 * time.Minute)(next))
	}

	mux := http.NewServeMux()
	hscrape.Register(mux, scrapeSvc)
	hrecipe.Register(mux, recipeAnalyzer, recipeRepo, analyzeGuard)
	mux.Handle("GET    /health", &hhttp.HealthHandler{DB: database, Version: version})
	mux.Handle("GET    /ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("GET    /live", &hhttp.LiveHandler{})
	mux.Handle("GET    /metrics", hhttp.MetricsHandler())

	return &ServerComponents{
		Handler: applyMiddleware(logger, mux),
		browser: browser,
	}
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

// applyMiddleware wraps the handler with the middleware chain.
// Order: Request ID → Recovery → Logging → Input Validation → Body Limit → Metrics
func applyMiddleware(logger *slog.Logger, handler http.Handler) http.Handler {
	chain := handler

	// Apply in reverse order (innermost to outermost)
	chain = hhttp.MetricsMiddleware(chain)
	chain = hhttp.LimitRequestBody(1 << 20)(chain) // 1MB limit
	chain = hhttp.InputValidation()(chain)
	chain = hhttp.Logging(logger)(chain)
	chain = hhttp.Recover(logger)(chain)
	chain = requestid.Middleware(chain)

	return chain
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, handler http.Handler, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := ":" + getPort()
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()

	// Synchronous scrape runs can be in flight; give them time to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}

func getPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8080"
}
