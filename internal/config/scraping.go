package config

import (
	"fmt"
	"time"

	env "github.com/WilliamHoest/trackanything-admin/pkg/config"
)

// ScrapingConfig holds configuration for the brand scraping pipeline.
// Every field has a production default, so a process started with no
// SCRAPING_* variables at all behaves like the shipped pipeline.
type ScrapingConfig struct {
	// Providers toggles the discovery providers individually.
	Providers ProviderToggles

	// Limits bounds one scrape run.
	Limits RunLimits

	// Rates configures the per-domain request governor.
	Rates ScrapeRateConfig

	// Fuzzy configures stage-2 near-duplicate detection within a run.
	Fuzzy FuzzyDedupConfig

	// Historical configures fuzzy dedup against previously stored mentions.
	Historical HistoricalDedupConfig

	// DefaultLanguages is the language filter applied to brands without
	// their own allowed_languages setting. Empty disables the global
	// fallback; brands with no languages then pass everything through.
	// Default: ["da", "en"]
	DefaultLanguages []string

	// Keys holds external API credentials. A provider whose key is empty
	// is skipped at wiring time regardless of its toggle.
	Keys ProviderKeys
}

// ProviderToggles enables or disables each discovery provider.
// All default to true.
type ProviderToggles struct {
	// GNews provider. Env: SCRAPING_PROVIDER_GNEWS_ENABLED
	GNews bool
	// SerpAPI provider. Env: SCRAPING_PROVIDER_SERPAPI_ENABLED
	SerpAPI bool
	// RSS provider. Env: SCRAPING_PROVIDER_RSS_ENABLED
	RSS bool
	// Configurable (recipe-driven) provider.
	// Env: SCRAPING_PROVIDER_CONFIGURABLE_ENABLED
	Configurable bool
}

// RunLimits bounds the work one brand run is allowed to generate.
type RunLimits struct {
	// MaxKeywordsPerRun caps cleaned keywords reaching the providers.
	// Validation: must be positive. Default: 50
	MaxKeywordsPerRun int

	// MaxTotalURLsPerRun caps raw candidates accepted before dedup. Zero
	// is a kill switch: runs still cycle their locks but every candidate
	// is dropped with a guardrail event.
	// Validation: must not be negative. Default: 200
	MaxTotalURLsPerRun int

	// RunTimeout is the hard time budget of one brand run.
	// Env: SCRAPING_RUN_TIMEOUT. Validation: must be positive.
	// Default: 15m
	RunTimeout time.Duration
}

// ScrapeRateConfig tunes the request governor. Rates are requests per second
// per registrable domain.
type ScrapeRateConfig struct {
	// HTMLPerSecond for direct page fetches. Default: 1.5
	HTMLPerSecond float64
	// APIPerSecond for provider API calls. Default: 3.0
	APIPerSecond float64
	// RSSPerSecond for feed fetches. Default: 2.0
	RSSPerSecond float64

	// BlindCircuitThreshold is the number of consecutive zero-content
	// extractions before a domain's blind circuit opens.
	// Validation: must be positive. Default: 8
	BlindCircuitThreshold int
}

// FuzzyDedupConfig tunes stage-2 near-duplicate detection inside one run.
type FuzzyDedupConfig struct {
	// Enabled toggles the stage entirely. Default: true
	Enabled bool

	// Threshold is the minimum token-set similarity (1-100) that marks a
	// pair of titles as duplicates. Default: 92
	Threshold int

	// DayWindow bounds the publication-date distance of a comparable
	// pair, in days. Validation: must not be negative. Default: 2
	DayWindow int
}

// HistoricalDedupConfig tunes fuzzy dedup against mentions stored by
// previous runs.
type HistoricalDedupConfig struct {
	// Enabled toggles the historical comparison. Default: true
	Enabled bool

	// Window is how far back stored mention titles are loaded.
	// Validation: must be positive. Default: 336h (14 days)
	Window time.Duration
}

// ProviderKeys holds external API credentials. None have defaults; an empty
// key disables the component that needs it rather than failing startup.
type ProviderKeys struct {
	// GNews API key. Env: GNEWS_API_KEY
	GNews string
	// SerpAPI key. Env: SERPAPI_API_KEY
	SerpAPI string
	// OpenAI key, shared by the relevance filter and the recipe analyzer's
	// LLM assist. Env: OPENAI_API_KEY
	OpenAI string
}

// GNewsActive reports whether the GNews provider should be wired: toggled on
// and credentialed.
func (c *ScrapingConfig) GNewsActive() bool {
	return c.Providers.GNews && c.Keys.GNews != ""
}

// SerpAPIActive reports whether the SerpAPI provider should be wired.
func (c *ScrapingConfig) SerpAPIActive() bool {
	return c.Providers.SerpAPI && c.Keys.SerpAPI != ""
}

// DefaultScrapingConfig returns production settings, keys left empty.
func DefaultScrapingConfig() ScrapingConfig {
	return ScrapingConfig{
		Providers: ProviderToggles{
			GNews:        true,
			SerpAPI:      true,
			RSS:          true,
			Configurable: true,
		},
		Limits: RunLimits{
			MaxKeywordsPerRun:  50,
			MaxTotalURLsPerRun: 200,
			RunTimeout:         15 * time.Minute,
		},
		Rates: ScrapeRateConfig{
			HTMLPerSecond:         1.5,
			APIPerSecond:          3.0,
			RSSPerSecond:          2.0,
			BlindCircuitThreshold: 8,
		},
		Fuzzy: FuzzyDedupConfig{
			Enabled:   true,
			Threshold: 92,
			DayWindow: 2,
		},
		Historical: HistoricalDedupConfig{
			Enabled: true,
			Window:  14 * 24 * time.Hour,
		},
		DefaultLanguages: []string{"da", "en"},
	}
}

// LoadScrapingConfig loads scraping configuration from environment variables.
// Unset variables keep their defaults; unparseable values also fall back to
// the default with a warning from the env helpers. The assembled config is
// validated before it is returned.
func LoadScrapingConfig() (*ScrapingConfig, error) {
	cfg := DefaultScrapingConfig()

	cfg.Providers.GNews = env.GetEnvBool("SCRAPING_PROVIDER_GNEWS_ENABLED", cfg.Providers.GNews)
	cfg.Providers.SerpAPI = env.GetEnvBool("SCRAPING_PROVIDER_SERPAPI_ENABLED", cfg.Providers.SerpAPI)
	cfg.Providers.RSS = env.GetEnvBool("SCRAPING_PROVIDER_RSS_ENABLED", cfg.Providers.RSS)
	cfg.Providers.Configurable = env.GetEnvBool("SCRAPING_PROVIDER_CONFIGURABLE_ENABLED", cfg.Providers.Configurable)

	cfg.Limits.MaxKeywordsPerRun = env.GetEnvInt("SCRAPING_MAX_KEYWORDS_PER_RUN", cfg.Limits.MaxKeywordsPerRun)
	cfg.Limits.MaxTotalURLsPerRun = env.GetEnvInt("SCRAPING_MAX_TOTAL_URLS_PER_RUN", cfg.Limits.MaxTotalURLsPerRun)
	cfg.Limits.RunTimeout = env.GetEnvDuration("SCRAPING_RUN_TIMEOUT", cfg.Limits.RunTimeout)

	cfg.Rates.HTMLPerSecond = env.GetEnvFloat("SCRAPING_RATE_HTML_RPS", cfg.Rates.HTMLPerSecond)
	cfg.Rates.APIPerSecond = env.GetEnvFloat("SCRAPING_RATE_API_RPS", cfg.Rates.APIPerSecond)
	cfg.Rates.RSSPerSecond = env.GetEnvFloat("SCRAPING_RATE_RSS_RPS", cfg.Rates.RSSPerSecond)
	cfg.Rates.BlindCircuitThreshold = env.GetEnvInt("SCRAPING_BLIND_DOMAIN_CIRCUIT_THRESHOLD", cfg.Rates.BlindCircuitThreshold)

	cfg.Fuzzy.Enabled = env.GetEnvBool("SCRAPING_FUZZY_DEDUP_ENABLED", cfg.Fuzzy.Enabled)
	cfg.Fuzzy.Threshold = env.GetEnvInt("SCRAPING_FUZZY_DEDUP_THRESHOLD", cfg.Fuzzy.Threshold)
	cfg.Fuzzy.DayWindow = env.GetEnvInt("SCRAPING_FUZZY_DEDUP_DAY_WINDOW", cfg.Fuzzy.DayWindow)

	cfg.Historical.Enabled = env.GetEnvBool("SCRAPING_HISTORICAL_DEDUP_ENABLED", cfg.Historical.Enabled)
	cfg.Historical.Window = env.GetEnvDuration("SCRAPING_HISTORICAL_DEDUP_WINDOW", cfg.Historical.Window)

	cfg.DefaultLanguages = env.GetEnvStringList("SCRAPING_DEFAULT_LANGUAGES", cfg.DefaultLanguages)

	cfg.Keys.GNews = env.GetEnvString("GNEWS_API_KEY", "")
	cfg.Keys.SerpAPI = env.GetEnvString("SERPAPI_API_KEY", "")
	cfg.Keys.OpenAI = env.GetEnvString("OPENAI_API_KEY", "")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scraping configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks configuration correctness.
func (c *ScrapingConfig) Validate() error {
	if c.Limits.MaxKeywordsPerRun <= 0 {
		return fmt.Errorf("SCRAPING_MAX_KEYWORDS_PER_RUN must be positive")
	}

	if c.Limits.MaxTotalURLsPerRun < 0 {
		return fmt.Errorf("SCRAPING_MAX_TOTAL_URLS_PER_RUN must not be negative")
	}

	if c.Limits.RunTimeout <= 0 {
		return fmt.Errorf("SCRAPING_RUN_TIMEOUT must be positive")
	}

	if c.Rates.HTMLPerSecond <= 0 {
		return fmt.Errorf("SCRAPING_RATE_HTML_RPS must be positive")
	}

	if c.Rates.APIPerSecond <= 0 {
		return fmt.Errorf("SCRAPING_RATE_API_RPS must be positive")
	}

	if c.Rates.RSSPerSecond <= 0 {
		return fmt.Errorf("SCRAPING_RATE_RSS_RPS must be positive")
	}

	if c.Rates.BlindCircuitThreshold <= 0 {
		return fmt.Errorf("SCRAPING_BLIND_DOMAIN_CIRCUIT_THRESHOLD must be positive")
	}

	if c.Fuzzy.Threshold < 1 || c.Fuzzy.Threshold > 100 {
		return fmt.Errorf("SCRAPING_FUZZY_DEDUP_THRESHOLD must be between 1 and 100")
	}

	if c.Fuzzy.DayWindow < 0 {
		return fmt.Errorf("SCRAPING_FUZZY_DEDUP_DAY_WINDOW must not be negative")
	}

	if c.Historical.Enabled && c.Historical.Window <= 0 {
		return fmt.Errorf("SCRAPING_HISTORICAL_DEDUP_WINDOW must be positive")
	}

	return nil
}
