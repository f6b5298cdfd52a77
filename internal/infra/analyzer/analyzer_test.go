package analyzer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/infra/httpclient"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(t *testing.T) *httpclient.Client {
	t.Helper()
	cfg := httpclient.DefaultConfig()
	cfg.DenyPrivateIPs = false
	return httpclient.New(cfg)
}

type memoryRecipeRepo struct {
	byDomain map[string]*entity.SourceRecipe
}

func newMemoryRecipeRepo() *memoryRecipeRepo {
	return &memoryRecipeRepo{byDomain: make(map[string]*entity.SourceRecipe)}
}

func (m *memoryRecipeRepo) GetByDomain(_ context.Context, domain string) (*entity.SourceRecipe, error) {
	return m.byDomain[domain], nil
}

func (m *memoryRecipeRepo) ListAll(_ context.Context) ([]*entity.SourceRecipe, error) {
	recipes := make([]*entity.SourceRecipe, 0, len(m.byDomain))
	for _, recipe := range m.byDomain {
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}

func (m *memoryRecipeRepo) Upsert(_ context.Context, recipe *entity.SourceRecipe) error {
	m.byDomain[recipe.Domain] = recipe
	return nil
}

func (m *memoryRecipeRepo) Delete(_ context.Context, domain string) error {
	delete(m.byDomain, domain)
	return nil
}

const analyzerArticleHTML = `<!DOCTYPE html>
<html><body>
  <article>
    <h1>Acme melder rekordresultat for tredje kvartal</h1>
    <time datetime="2026-08-22T09:15:00+02:00">22. august 2026</time>
    <div itemprop="articleBody"><p>Acme-koncernen fremlagde i dag sit regnskab, og resultatet
    overgik analytikernes forventninger. Direktionen peger på stærk vækst i eksporten.</p></div>
  </article>
</body></html>`

func analyzerSiteHandler(searchResults string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			fmt.Fprint(w, `<html><body>
  <form action="/sog" method="get"><input type="search" name="q"></form>
</body></html>`)
		case "/sog":
			fmt.Fprint(w, searchResults)
		default:
			fmt.Fprint(w, analyzerArticleHTML)
		}
	})
}

func TestAnalyzeURL_DerivesAndSavesRecipe(t *testing.T) {
	server := httptest.NewServer(analyzerSiteHandler(`<html><body><a href="/resultat">Resultater</a></body></html>`))
	defer server.Close()

	repo := newMemoryRecipeRepo()
	analyzer := New(DefaultConfig(), testClient(t), repo, testLogger())

	result, err := analyzer.AnalyzeURL(context.Background(), server.URL+"/nyheder/acme-rekord")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", result.Domain)
	assert.Equal(t, "high", result.Confidence)
	assert.True(t, result.Saved)
	assert.Equal(t, server.URL+"/nyheder/acme-rekord", result.VerifiedWith)

	recipe := result.Recipe
	assert.Equal(t, "article h1", recipe.TitleSelector)
	assert.Equal(t, `[itemprop="articleBody"]`, recipe.ContentSelector)
	assert.Equal(t, "time[datetime]", recipe.DateSelector)
	assert.Equal(t, server.URL+"/sog?q={keyword}", recipe.SearchURLPattern)
	assert.Equal(t, entity.DiscoverySiteSearch, recipe.DiscoveryType)

	saved, err := repo.GetByDomain(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.DiscoveryReady())
}

func TestAnalyzeURL_RejectsSoft404SearchPattern(t *testing.T) {
	server := httptest.NewServer(analyzerSiteHandler(`<html><body>Siden blev ikke fundet</body></html>`))
	defer server.Close()

	repo := newMemoryRecipeRepo()
	analyzer := New(DefaultConfig(), testClient(t), repo, testLogger())

	result, err := analyzer.AnalyzeURL(context.Background(), server.URL+"/nyheder/acme-rekord")
	require.NoError(t, err)

	assert.Empty(t, result.Recipe.SearchURLPattern)
	// Title, content and date still verified.
	assert.Equal(t, "high", result.Confidence)
}

func TestAnalyzeURL_PreservesExistingDiscoverySettings(t *testing.T) {
	server := httptest.NewServer(analyzerSiteHandler(`<html><body>Siden blev ikke fundet</body></html>`))
	defer server.Close()

	repo := newMemoryRecipeRepo()
	require.NoError(t, repo.Upsert(context.Background(), &entity.SourceRecipe{
		ID:            7,
		Domain:        "127.0.0.1",
		DiscoveryType: entity.DiscoveryRSS,
		RSSURLs:       []string{"https://dr.dk/rss"},
		RequiresJS:    true,
	}))

	analyzer := New(DefaultConfig(), testClient(t), repo, testLogger())
	result, err := analyzer.AnalyzeURL(context.Background(), server.URL+"/nyheder/acme-rekord")
	require.NoError(t, err)

	recipe := result.Recipe
	assert.Equal(t, int64(7), recipe.ID)
	assert.Equal(t, entity.DiscoveryRSS, recipe.DiscoveryType)
	assert.Equal(t, []string{"https://dr.dk/rss"}, recipe.RSSURLs)
	assert.True(t, recipe.RequiresJS)
	assert.Equal(t, "article h1", recipe.TitleSelector)
}

func TestSearchPatternFromForms(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "get form with q input",
			html: `<form action="/sog"><input type="text" name="q"></form>`,
			want: "https://dr.dk/sog?q={keyword}",
		},
		{
			name: "post form skipped",
			html: `<form action="/login" method="post"><input type="text" name="q"></form>`,
			want: "",
		},
		{
			name: "existing params kept",
			html: `<form action="/search?lang=da"><input type="search" name="query"></form>`,
			want: "https://dr.dk/search?lang=da&query={keyword}",
		},
		{
			name: "non-search input ignored",
			html: `<form action="/tilmeld"><input type="email" name="q"></form>`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchPatternFromForms([]byte("<html><body>"+tt.html+"</body></html>"), "https://dr.dk")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindArticleURL(t *testing.T) {
	html := []byte(`<html><body>
  <a href="/abonnement/tilbud-til-nye-laesere-lige-nu">Tilbud</a>
  <a href="/nyheder">Nyheder</a>
  <a href="https://andet-site.dk/meget-lang-artikel-sti-om-acme-koncernen">Eksternt</a>
  <a href="/indland/acme-koncernen-melder-rekordresultat">Artikel</a>
</body></html>`)

	got := findArticleURL(html, "dr.dk")
	assert.Equal(t, "https://dr.dk/indland/acme-koncernen-melder-rekordresultat", got)

	assert.Empty(t, findArticleURL([]byte("<html><body><a href='/kort'>x</a></body></html>"), "dr.dk"))
}
