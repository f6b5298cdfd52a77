package repository

import (
	"context"
	"time"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
)

// MentionRepository persists scraped mentions and their keyword links.
type MentionRepository interface {
	// ExistsByNormalizedURLBatch reports which (normalized_url, topic_id)
	// pairs already exist, in one round trip. Keys of the result map are
	// normalized URLs that exist for the given topic.
	ExistsByNormalizedURLBatch(ctx context.Context, topicID int64, urls []string) (map[string]bool, error)
	// ListRecentTitles returns normalized titles of mentions discovered
	// since the cutoff, for historical fuzzy dedup.
	ListRecentTitles(ctx context.Context, brandID int64, since time.Time) ([]string, error)
	// CreateBatch inserts mentions with ON CONFLICT (normalized_url,
	// topic_id) DO NOTHING and fills in generated IDs. Mentions whose pair
	// already existed come back with ID zero.
	CreateBatch(ctx context.Context, mentions []*entity.Mention) error
	// CreateKeywordLinks inserts mention-keyword links in one batch.
	CreateKeywordLinks(ctx context.Context, links []*entity.MentionKeyword) error
}

// PlatformRepository maps normalized hostnames to platform rows.
type PlatformRepository interface {
	// ListAll loads every platform, for the run-scoped cache.
	ListAll(ctx context.Context) ([]*entity.Platform, error)
	// GetOrCreate returns the platform named name, inserting it when absent.
	GetOrCreate(ctx context.Context, name string) (*entity.Platform, error)
}
