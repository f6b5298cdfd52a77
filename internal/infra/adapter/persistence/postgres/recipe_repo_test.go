package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
)

func newRecipeMock(t *testing.T) (*recipeRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &recipeRepo{db: db}, mock
}

func recipeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "domain", "discovery_type", "search_url_pattern", "sitemap_url",
		"rss_urls", "title_selector", "content_selector", "date_selector",
		"requires_js", "updated_at",
	})
}

func TestRecipeRepo_GetByDomain(t *testing.T) {
	repo, mock := newRecipeMock(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM source_configs WHERE domain").
		WithArgs("dr.dk").
		WillReturnRows(recipeRows().AddRow(
			int64(1), "dr.dk", "rss", "", "",
			pq.StringArray{"https://www.dr.dk/nyheder/service/feeds/allenyheder"},
			"h1", "article", "time", false, now,
		))

	recipe, err := repo.GetByDomain(context.Background(), "dr.dk")
	require.NoError(t, err)
	require.NotNil(t, recipe)
	assert.Equal(t, entity.DiscoveryRSS, recipe.DiscoveryType)
	assert.Len(t, recipe.RSSURLs, 1)
	assert.True(t, recipe.DiscoveryReady())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeRepo_GetByDomain_NotFound(t *testing.T) {
	repo, mock := newRecipeMock(t)

	mock.ExpectQuery("SELECT (.+) FROM source_configs WHERE domain").
		WithArgs("unknown.dk").
		WillReturnRows(recipeRows())

	recipe, err := repo.GetByDomain(context.Background(), "unknown.dk")
	assert.NoError(t, err)
	assert.Nil(t, recipe)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeRepo_ListAll(t *testing.T) {
	repo, mock := newRecipeMock(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM source_configs ORDER BY domain").
		WillReturnRows(recipeRows().
			AddRow(int64(1), "dr.dk", "rss", "", "", pq.StringArray{"https://dr.dk/feed"}, "", "", "", false, now).
			AddRow(int64(2), "politiken.dk", "site_search", "https://politiken.dk/soeg?q={keyword}", "", nil, "h1", "section", "time", false, now))

	recipes, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, recipes, 2)
	assert.Equal(t, entity.DiscoverySiteSearch, recipes[1].DiscoveryType)
	assert.Nil(t, recipes[1].RSSURLs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeRepo_Upsert(t *testing.T) {
	repo, mock := newRecipeMock(t)

	recipe := &entity.SourceRecipe{
		Domain:           "borsen.dk",
		DiscoveryType:    entity.DiscoverySiteSearch,
		SearchURLPattern: "https://borsen.dk/soeg?query={keyword}",
		TitleSelector:    "h1.article-title",
		ContentSelector:  "div.article-content",
		DateSelector:     "time",
		RequiresJS:       true,
	}

	mock.ExpectExec("INSERT INTO source_configs").
		WithArgs("borsen.dk", "site_search", "https://borsen.dk/soeg?query={keyword}",
			"", pq.Array([]string(nil)), "h1.article-title", "div.article-content",
			"time", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), recipe)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipeRepo_Delete(t *testing.T) {
	repo, mock := newRecipeMock(t)

	mock.ExpectExec("DELETE FROM source_configs").
		WithArgs("borsen.dk").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "borsen.dk")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
