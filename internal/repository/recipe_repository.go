package repository

import (
	"context"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
)

// RecipeRepository stores per-domain extraction recipes. Recipes are global
// platform configuration, not brand data.
type RecipeRepository interface {
	// GetByDomain retrieves the recipe for a domain. Returns (nil, nil)
	// when no recipe exists.
	GetByDomain(ctx context.Context, domain string) (*entity.SourceRecipe, error)
	ListAll(ctx context.Context) ([]*entity.SourceRecipe, error)
	// Upsert inserts or replaces the recipe for its domain. Idempotent.
	Upsert(ctx context.Context, recipe *entity.SourceRecipe) error
	Delete(ctx context.Context, domain string) error
}
