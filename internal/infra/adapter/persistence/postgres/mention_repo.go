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

type mentionRepo struct {
	db *sql.DB
}

// NewMentionRepo creates a PostgreSQL-backed mention repository.
func NewMentionRepo(db *sql.DB) repository.MentionRepository {
	return &mentionRepo{db: db}
}

func (r *mentionRepo) ExistsByNormalizedURLBatch(ctx context.Context, topicID int64, urls []string) (map[string]bool, error) {
	if len(urls) == 0 {
		return map[string]bool{}, nil
	}

	const query = `
		SELECT normalized_url
		FROM mentions
		WHERE topic_id = $1 AND normalized_url = ANY($2)`

	rows, err := r.db.QueryContext(ctx, query, topicID, pq.Array(urls))
	if err != nil {
		return nil, fmt.Errorf("ExistsByNormalizedURLBatch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	existing := make(map[string]bool, len(urls))
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("ExistsByNormalizedURLBatch: %w", err)
		}
		existing[url] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ExistsByNormalizedURLBatch: %w", err)
	}
	return existing, nil
}

func (r *mentionRepo) ListRecentTitles(ctx context.Context, brandID int64, since time.Time) ([]string, error) {
	const query = `
		SELECT title
		FROM mentions
		WHERE brand_id = $1 AND discovered_at >= $2
		ORDER BY discovered_at DESC`

	rows, err := r.db.QueryContext(ctx, query, brandID, since)
	if err != nil {
		return nil, fmt.Errorf("ListRecentTitles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	titles := make([]string, 0, 64)
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("ListRecentTitles: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRecentTitles: %w", err)
	}
	return titles, nil
}

func (r *mentionRepo) CreateBatch(ctx context.Context, mentions []*entity.Mention) error {
	if len(mentions) == 0 {
		return nil
	}

	// The unique index on (normalized_url, topic_id) absorbs races with
	// concurrent runs. Conflicting rows are skipped and keep ID zero so the
	// caller can tell inserts from pre-existing mentions.
	const query = `
		INSERT INTO mentions (brand_id, topic_id, primary_keyword_id, platform_id,
		                      title, teaser, normalized_url, raw_url, published_at,
		                      date_confidence, discovered_at, scrape_run_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (normalized_url, topic_id) DO NOTHING
		RETURNING id`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("CreateBatch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, mention := range mentions {
		err := tx.QueryRowContext(ctx, query,
			mention.BrandID,
			mention.TopicID,
			nullInt64(mention.PrimaryKeywordID),
			nullInt64(mention.PlatformID),
			mention.Title,
			mention.Teaser,
			mention.NormalizedURL,
			mention.RawURL,
			mention.PublishedAt,
			string(mention.DateConfidence),
			mention.DiscoveredAt,
			mention.ScrapeRunID,
		).Scan(&mention.ID)
		if err == sql.ErrNoRows {
			mention.ID = 0
			continue
		}
		if err != nil {
			return fmt.Errorf("CreateBatch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("CreateBatch: %w", err)
	}
	return nil
}

func (r *mentionRepo) CreateKeywordLinks(ctx context.Context, links []*entity.MentionKeyword) error {
	if len(links) == 0 {
		return nil
	}

	const query = `
		INSERT INTO mention_keywords (mention_id, keyword_id, matched_in, score)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (mention_id, keyword_id) DO NOTHING`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("CreateKeywordLinks: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, link := range links {
		if _, err := tx.ExecContext(ctx, query,
			link.MentionID, link.KeywordID, link.MatchedIn, link.Score); err != nil {
			return fmt.Errorf("CreateKeywordLinks: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("CreateKeywordLinks: %w", err)
	}
	return nil
}

// nullInt64 maps a zero ID to SQL NULL for nullable foreign keys.
func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
