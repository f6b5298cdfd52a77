package db

import (
	"database/sql"
	_ "embed"
)

//go:embed seeds/recipes.sql
var seedRecipesSQL string

// MigrateUp creates the schema. Statements are idempotent so the function can
// run on every startup.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS brands (
    id                     BIGSERIAL PRIMARY KEY,
    user_id                BIGINT NOT NULL,
    name                   TEXT NOT NULL,
    is_active              BOOLEAN NOT NULL DEFAULT TRUE,
    scrape_frequency_hours INT NOT NULL DEFAULT 24,
    initial_lookback_days  INT NOT NULL DEFAULT 7,
    last_scraped_at        TIMESTAMPTZ,
    scrape_in_progress     BOOLEAN NOT NULL DEFAULT FALSE,
    scrape_started_at      TIMESTAMPTZ,
    -- NULL means "use the global default languages"; an empty array
    -- disables the language filter for this brand.
    allowed_languages      TEXT[],
    created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS topics (
    id             BIGSERIAL PRIMARY KEY,
    brand_id       BIGINT NOT NULL REFERENCES brands(id) ON DELETE CASCADE,
    name           TEXT NOT NULL,
    is_active      BOOLEAN NOT NULL DEFAULT TRUE,
    query_template TEXT,
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS keywords (
    id       BIGSERIAL PRIMARY KEY,
    topic_id BIGINT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
    text     TEXT NOT NULL
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS platforms (
    id   BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS mentions (
    id                 BIGSERIAL PRIMARY KEY,
    brand_id           BIGINT NOT NULL REFERENCES brands(id) ON DELETE CASCADE,
    topic_id           BIGINT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
    primary_keyword_id BIGINT REFERENCES keywords(id) ON DELETE SET NULL,
    platform_id        BIGINT REFERENCES platforms(id),
    title              TEXT NOT NULL,
    teaser             TEXT,
    normalized_url     TEXT NOT NULL,
    raw_url            TEXT NOT NULL,
    published_at       TIMESTAMPTZ,
    date_confidence    VARCHAR(10) NOT NULL DEFAULT 'none',
    read_status        BOOLEAN NOT NULL DEFAULT FALSE,
    notified_status    BOOLEAN NOT NULL DEFAULT FALSE,
    discovered_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    scrape_run_id      TEXT,
    UNIQUE (normalized_url, topic_id)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS mention_keywords (
    mention_id BIGINT NOT NULL REFERENCES mentions(id) ON DELETE CASCADE,
    keyword_id BIGINT NOT NULL REFERENCES keywords(id) ON DELETE CASCADE,
    matched_in VARCHAR(10) NOT NULL,
    score      INT NOT NULL DEFAULT 0,
    PRIMARY KEY (mention_id, keyword_id)
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS source_configs (
    id                 BIGSERIAL PRIMARY KEY,
    domain             TEXT NOT NULL UNIQUE,
    discovery_type     VARCHAR(20) NOT NULL,
    search_url_pattern TEXT,
    sitemap_url        TEXT,
    rss_urls           TEXT[],
    title_selector     TEXT,
    content_selector   TEXT,
    date_selector      TEXT,
    requires_js        BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_brands_active ON brands(is_active) WHERE is_active = TRUE`,
		`CREATE INDEX IF NOT EXISTS idx_topics_brand_id ON topics(brand_id)`,
		`CREATE INDEX IF NOT EXISTS idx_keywords_topic_id ON keywords(topic_id)`,
		`CREATE INDEX IF NOT EXISTS idx_mentions_brand_discovered ON mentions(brand_id, discovered_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_mentions_topic_id ON mentions(topic_id)`,
		`CREATE INDEX IF NOT EXISTS idx_mentions_published_at ON mentions(published_at DESC NULLS LAST)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	if _, err := db.Exec(seedRecipesSQL); err != nil {
		return err
	}

	return nil
}

// MigrateDown rolls back the schema in reverse dependency order.
// Use with caution: this deletes all scraped data.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP TABLE IF EXISTS mention_keywords`,
		`DROP TABLE IF EXISTS mentions`,
		`DROP TABLE IF EXISTS keywords`,
		`DROP TABLE IF EXISTS topics`,
		`DROP TABLE IF EXISTS platforms`,
		`DROP TABLE IF EXISTS source_configs`,
		`DROP TABLE IF EXISTS brands`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
