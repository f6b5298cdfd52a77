package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
	"github.com/WilliamHoest/trackanything-admin/internal/repository"
)

type topicRepo struct {
	db *sql.DB
}

// NewTopicRepo creates a PostgreSQL-backed topic repository.
func NewTopicRepo(db *sql.DB) repository.TopicRepository {
	return &topicRepo{db: db}
}

func (r *topicRepo) ListActiveByBrand(ctx context.Context, brandID int64) ([]*entity.Topic, error) {
	const query = `
		SELECT id, brand_id, name, is_active, COALESCE(query_template, ''), updated_at
		FROM topics
		WHERE brand_id = $1 AND is_active = TRUE
		ORDER BY updated_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, brandID)
	if err != nil {
		return nil, fmt.Errorf("ListActiveByBrand: %w", err)
	}
	defer func() { _ = rows.Close() }()

	topics := make([]*entity.Topic, 0, 8)
	for rows.Next() {
		var topic entity.Topic
		if err := rows.Scan(
			&topic.ID,
			&topic.BrandID,
			&topic.Name,
			&topic.IsActive,
			&topic.QueryTemplate,
			&topic.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ListActiveByBrand: %w", err)
		}
		topics = append(topics, &topic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListActiveByBrand: %w", err)
	}
	return topics, nil
}

func (r *topicRepo) ListKeywordsByTopics(ctx context.Context, topicIDs []int64) ([]*entity.Keyword, error) {
	if len(topicIDs) == 0 {
		return nil, nil
	}

	const query = `
		SELECT id, topic_id, text
		FROM keywords
		WHERE topic_id = ANY($1)
		ORDER BY topic_id, id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(topicIDs))
	if err != nil {
		return nil, fmt.Errorf("ListKeywordsByTopics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	keywords := make([]*entity.Keyword, 0, 32)
	for rows.Next() {
		var keyword entity.Keyword
		if err := rows.Scan(&keyword.ID, &keyword.TopicID, &keyword.Text); err != nil {
			return nil, fmt.Errorf("ListKeywordsByTopics: %w", err)
		}
		keywords = append(keywords, &keyword)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListKeywordsByTopics: %w", err)
	}
	return keywords, nil
}
