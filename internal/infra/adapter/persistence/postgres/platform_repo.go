package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/repository"
)

type platformRepo struct {
	db *sql.DB
}

// NewPlatformRepo creates a PostgreSQL-backed platform repository.
func NewPlatformRepo(db *sql.DB) repository.PlatformRepository {
	return &platformRepo{db: db}
}

func (r *platformRepo) ListAll(ctx context.Context) ([]*entity.Platform, error) {
	const query = `
		SELECT id, name
		FROM platforms
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	defer func() { _ = rows.Close() }()

	platforms := make([]*entity.Platform, 0, 64)
	for rows.Next() {
		var platform entity.Platform
		if err := rows.Scan(&platform.ID, &platform.Name); err != nil {
			return nil, fmt.Errorf("ListAll: %w", err)
		}
		platforms = append(platforms, &platform)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	return platforms, nil
}

func (r *platformRepo) GetOrCreate(ctx context.Context, name string) (*entity.Platform, error) {
	// DO UPDATE instead of DO NOTHING so RETURNING yields the existing row's
	// id on conflict.
	const query = `
		INSERT INTO platforms (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`

	var platform entity.Platform
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&platform.ID, &platform.Name); err != nil {
		return nil, fmt.Errorf("GetOrCreate: %w", err)
	}
	return &platform, nil
}
