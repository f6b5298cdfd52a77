// Command diagnose_recipes probes every RSS feed referenced by the stored
// source recipes and prints a per-feed health report. It is a standalone
// operator tool: point it at the database with DATABASE_URL and read the
// JSON it writes to stdout.
//
// Usage:
//
//	DATABASE_URL=postgres://... go run scripts/diagnose_recipes.go
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/mmcdole/gofeed"
)

// FeedDiagnostic is the per-feed result.
type FeedDiagnostic struct {
	Domain         string `json:"domain"`
	URL            string `json:"url"`
	Status         string `json:"status"` // "OK", "HTTP_ERROR", "PARSE_ERROR", "EMPTY", "TIMEOUT"
	HTTPCode       int    `json:"http_code,omitempty"`
	ItemCount      int    `json:"item_count"`
	LatestDate     string `json:"latest_date,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	ResponseTimeMS int64  `json:"response_time_ms"`
}

type recipeFeeds struct {
	domain string
	urls   []string
}

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	recipes, err := loadRecipeFeeds(ctx, db)
	if err != nil {
		log.Fatalf("loading recipes: %v", err)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	parser := gofeed.NewParser()

	var results []FeedDiagnostic
	for _, recipe := range recipes {
		for _, feedURL := range recipe.urls {
			results = append(results, probeFeed(ctx, client, parser, recipe.domain, feedURL))
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Status != results[j].Status {
			return results[i].Status < results[j].Status
		}
		return results[i].Domain < results[j].Domain
	})

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		log.Fatalf("encoding report: %v", err)
	}

	broken := 0
	for _, r := range results {
		if r.Status != "OK" {
			broken++
		}
	}
	fmt.Fprintf(os.Stderr, "%d feeds probed, %d broken\n", len(results), broken)
}

// loadRecipeFeeds returns the rss_urls of every recipe that has any.
func loadRecipeFeeds(ctx context.Context, db *sql.DB) ([]recipeFeeds, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT domain, rss_urls
		FROM source_configs
		WHERE array_length(rss_urls, 1) > 0
		ORDER BY domain`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var recipes []recipeFeeds
	for rows.Next() {
		var r recipeFeeds
		if err := rows.Scan(&r.domain, pq.Array(&r.urls)); err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}

func probeFeed(ctx context.Context, client *http.Client, parser *gofeed.Parser, domain, feedURL string) FeedDiagnostic {
	diag := FeedDiagnostic{Domain: domain, URL: feedURL}
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		diag.Status = "HTTP_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}
	req.Header.Set("User-Agent", "trackanything-diagnostics/1.0")

	resp, err := client.Do(req)
	diag.ResponseTimeMS = time.Since(started).Milliseconds()
	if err != nil {
		diag.Status = "TIMEOUT"
		diag.ErrorMessage = err.Error()
		return diag
	}
	defer func() { _ = resp.Body.Close() }()

	diag.HTTPCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		diag.Status = "HTTP_ERROR"
		return diag
	}

	feed, err := parser.Parse(resp.Body)
	if err != nil {
		diag.Status = "PARSE_ERROR"
		diag.ErrorMessage = err.Error()
		return diag
	}

	diag.ItemCount = len(feed.Items)
	if diag.ItemCount == 0 {
		diag.Status = "EMPTY"
		return diag
	}

	var latest time.Time
	for _, item := range feed.Items {
		if item.PublishedParsed != nil && item.PublishedParsed.After(latest) {
			latest = *item.PublishedParsed
		}
	}
	if !latest.IsZero() {
		diag.LatestDate = latest.Format(time.RFC3339)
	}

	diag.Status = "OK"
	return diag
}
