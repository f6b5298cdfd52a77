// Package postgres provides PostgreSQL implementations of the repository
// interfaces. All queries use parameterized statements and map sql.ErrNoRows
// to (nil, nil) so callers branch on presence, not on driver errors.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/repository"
)

type brandRepo struct {
	db *sql.DB
}

// NewBrandRepo creates a PostgreSQL-backed brand repository.
func NewBrandRepo(db *sql.DB) repository.BrandRepository {
	return &brandRepo{db: db}
}

func (r *brandRepo) Get(ctx context.Context, id int64) (*entity.Brand, error) {
	const query = `
		SELECT id, user_id, name, is_active, scrape_frequency_hours,
		       initial_lookback_days, last_scraped_at, scrape_in_progress,
		       scrape_started_at, allowed_languages, created_at
		FROM brands
		WHERE id = $1`

	brand, err := scanBrand(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return brand, nil
}

func (r *brandRepo) ListActive(ctx context.Context) ([]*entity.Brand, error) {
	const query = `
		SELECT id, user_id, name, is_active, scrape_frequency_hours,
		       initial_lookback_days, last_scraped_at, scrape_in_progress,
		       scrape_started_at, allowed_languages, created_at
		FROM brands
		WHERE is_active = TRUE
		ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	defer func() { _ = rows.Close() }()

	brands := make([]*entity.Brand, 0, 16)
	for rows.Next() {
		brand, err := scanBrand(rows)
		if err != nil {
			return nil, fmt.Errorf("ListActive: %w", err)
		}
		brands = append(brands, brand)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListActive: %w", err)
	}
	return brands, nil
}

func (r *brandRepo) AcquireScrapeLock(ctx context.Context, id int64, now time.Time) (bool, error) {
	// Conditional update so the claim is atomic. A lock older than
	// entity.LockStaleAfter belongs to an abandoned run and may be taken over.
	const query = `
		UPDATE brands
		SET scrape_in_progress = TRUE, scrape_started_at = $2
		WHERE id = $1
		  AND (scrape_in_progress = FALSE OR scrape_started_at < $3)`

	result, err := r.db.ExecContext(ctx, query, id, now, now.Add(-entity.LockStaleAfter))
	if err != nil {
		return false, fmt.Errorf("AcquireScrapeLock: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("AcquireScrapeLock: %w", err)
	}
	return affected > 0, nil
}

func (r *brandRepo) ReleaseScrapeLock(ctx context.Context, id int64) error {
	const query = `
		UPDATE brands
		SET scrape_in_progress = FALSE, scrape_started_at = NULL
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("ReleaseScrapeLock: %w", err)
	}
	return nil
}

func (r *brandRepo) TouchLastScrapedAt(ctx context.Context, id int64, t time.Time) error {
	const query = `
		UPDATE brands
		SET last_scraped_at = $2
		WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, t); err != nil {
		return fmt.Errorf("TouchLastScrapedAt: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBrand(row rowScanner) (*entity.Brand, error) {
	var brand entity.Brand
	var languages pq.StringArray
	err := row.Scan(
		&brand.ID,
		&brand.UserID,
		&brand.Name,
		&brand.IsActive,
		&brand.ScrapeFrequencyHours,
		&brand.InitialLookbackDays,
		&brand.LastScrapedAt,
		&brand.ScrapeInProgress,
		&brand.ScrapeStartedAt,
		&languages,
		&brand.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	brand.AllowedLanguages = languages
	return &brand, nil
}
