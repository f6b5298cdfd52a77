package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/repository"
)

type recipeRepo struct {
	db *sql.DB
}

// NewRecipeRepo creates a PostgreSQL-backed recipe repository.
func NewRecipeRepo(db *sql.DB) repository.RecipeRepository {
	return &recipeRepo{db: db}
}

const recipeColumns = `id, domain, discovery_type,
		       COALESCE(search_url_pattern, ''), COALESCE(sitemap_url, ''), rss_urls,
		       COALESCE(title_selector, ''), COALESCE(content_selector, ''),
		       COALESCE(date_selector, ''), requires_js, updated_at`

func (r *recipeRepo) GetByDomain(ctx context.Context, domain string) (*entity.SourceRecipe, error) {
	query := `
		SELECT ` + recipeColumns + `
		FROM source_configs
		WHERE domain = $1`

	recipe, err := scanRecipe(r.db.QueryRowContext(ctx, query, domain))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetByDomain: %w", err)
	}
	return recipe, nil
}

func (r *recipeRepo) ListAll(ctx context.Context) ([]*entity.SourceRecipe, error) {
	query := `
		SELECT ` + recipeColumns + `
		FROM source_configs
		ORDER BY domain`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	defer func() { _ = rows.Close() }()

	recipes := make([]*entity.SourceRecipe, 0, 32)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAll: %w", err)
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	return recipes, nil
}

func (r *recipeRepo) Upsert(ctx context.Context, recipe *entity.SourceRecipe) error {
	const query = `
		INSERT INTO source_configs (domain, discovery_type, search_url_pattern,
		                            sitemap_url, rss_urls, title_selector,
		                            content_selector, date_selector, requires_js, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (domain) DO UPDATE SET
		    discovery_type     = EXCLUDED.discovery_type,
		    search_url_pattern = EXCLUDED.search_url_pattern,
		    sitemap_url        = EXCLUDED.sitemap_url,
		    rss_urls           = EXCLUDED.rss_urls,
		    title_selector     = EXCLUDED.title_selector,
		    content_selector   = EXCLUDED.content_selector,
		    date_selector      = EXCLUDED.date_selector,
		    requires_js        = EXCLUDED.requires_js,
		    updated_at         = now()`

	if _, err := r.db.ExecContext(ctx, query,
		recipe.Domain,
		string(recipe.DiscoveryType),
		recipe.SearchURLPattern,
		recipe.SitemapURL,
		pq.Array(recipe.RSSURLs),
		recipe.TitleSelector,
		recipe.ContentSelector,
		recipe.DateSelector,
		recipe.RequiresJS,
	); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}

func (r *recipeRepo) Delete(ctx context.Context, domain string) error {
	const query = `DELETE FROM source_configs WHERE domain = $1`

	if _, err := r.db.ExecContext(ctx, query, domain); err != nil {
		return fmt.Errorf("Delete: %w", err)
	}
	return nil
}

func scanRecipe(row rowScanner) (*entity.SourceRecipe, error) {
	var recipe entity.SourceRecipe
	var discoveryType string
	var rssURLs pq.StringArray
	err := row.Scan(
		&recipe.ID,
		&recipe.Domain,
		&discoveryType,
		&recipe.SearchURLPattern,
		&recipe.SitemapURL,
		&rssURLs,
		&recipe.TitleSelector,
		&recipe.ContentSelector,
		&recipe.DateSelector,
		&recipe.RequiresJS,
		&recipe.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	recipe.DiscoveryType = entity.DiscoveryType(discoveryType)
	recipe.RSSURLs = rssURLs
	return &recipe, nil
}
