package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
)

func newSerpAPI(t *testing.T, cfg SerpAPIConfig) *SerpAPI {
	t.Helper()
	return NewSerpAPI(cfg, testClient(t), testGovernor(), testLogger())
}

func serpapiResult(title, link, date string) serpapiNewsResult {
	result := serpapiNewsResult{
		Title:   title,
		Link:    link,
		Date:    date,
		Snippet: "Teaser for " + title,
	}
	result.Source.Name = "Berlingske"
	return result
}

func TestSerpAPI_ScrapeQueriesEveryKeyword(t *testing.T) {
	now := time.Now()
	date := now.UTC().Format("01/02/2006, 03:04 PM") + ", +0000 UTC"

	var mu sync.Mutex
	var seenKeywords []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, "google_news", query.Get("engine"))
		assert.Equal(t, "test-key", query.Get("api_key"))
		assert.Equal(t, "da", query.Get("hl"))
		assert.Equal(t, "dk", query.Get("gl"))

		keyword := query.Get("q")
		mu.Lock()
		seenKeywords = append(seenKeywords, keyword)
		mu.Unlock()

		_ = json.NewEncoder(w).Encode(serpapiResponse{NewsResults: []serpapiNewsResult{
			serpapiResult("Story about "+keyword, "https://berlingske.dk/"+keyword, date),
		}})
	}))
	defer server.Close()

	cfg := DefaultSerpAPIConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL

	candidates, err := newSerpAPI(t, cfg).Scrape(context.Background(), Request{
		Keywords: []string{"acme", "globex"},
	})
	require.NoError(t, err)

	sort.Strings(seenKeywords)
	assert.Equal(t, []string{"acme", "globex"}, seenKeywords)

	require.Len(t, candidates, 2)
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].MatchedKeyword < candidates[j].MatchedKeyword })
	first := candidates[0]
	assert.Equal(t, "Story about acme", first.Title)
	assert.Equal(t, "acme", first.MatchedKeyword)
	assert.Equal(t, "serpapi", first.Provider)
	assert.Equal(t, "Berlingske", first.SourceName)
	assert.Equal(t, entity.ConfidenceHigh, first.DateConfidence)
	require.NotNil(t, first.PublishedAt)
}

func TestSerpAPI_ScrapeDropsIncompleteResults(t *testing.T) {
	now := time.Now()
	date := now.UTC().Format("01/02/2006, 03:04 PM") + ", +0000 UTC"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(serpapiResponse{NewsResults: []serpapiNewsResult{
			serpapiResult("Kept", "https://berlingske.dk/kept", date),
			serpapiResult("", "https://berlingske.dk/untitled", date),
			serpapiResult("No link", "", date),
			serpapiResult("Too old", "https://berlingske.dk/old", now.Add(-100*time.Hour).UTC().Format("01/02/2006, 03:04 PM")+", +0000 UTC"),
		}})
	}))
	defer server.Close()

	cfg := DefaultSerpAPIConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL

	candidates, err := newSerpAPI(t, cfg).Scrape(context.Background(), Request{
		Keywords: []string{"acme"},
		From:     now.Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Kept", candidates[0].Title)
}

func TestSerpAPI_ScrapeIsolatesKeywordFailures(t *testing.T) {
	now := time.Now()
	date := now.UTC().Format("01/02/2006, 03:04 PM") + ", +0000 UTC"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "globex" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(serpapiResponse{NewsResults: []serpapiNewsResult{
			serpapiResult("Acme story", "https://berlingske.dk/acme", date),
		}})
	}))
	defer server.Close()

	cfg := DefaultSerpAPIConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = server.URL

	candidates, err := newSerpAPI(t, cfg).Scrape(context.Background(), Request{
		Keywords: []string{"acme", "globex"},
	})
	assert.Error(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Acme story", candidates[0].Title)
}

func TestSerpAPI_ScrapeWithoutKeyIsNoop(t *testing.T) {
	candidates, err := newSerpAPI(t, DefaultSerpAPIConfig()).Scrape(context.Background(), Request{Keywords: []string{"acme"}})
	require.NoError(t, err)
	assert.Nil(t, candidates)
}
