package repository

import (
	"context"
	"time"

	"github.com/WilliamHoest/trackanything-admin/internal/domain/entity"
)

// BrandRepository persists brands and owns the scrape-lock record.
// The lock is a conditional update on the brand row; the database is the
// single coordination point across processes.
type BrandRepository interface {
	Get(ctx context.Context, id int64) (*entity.Brand, error)
	// ListActive retrieves all brands with is_active=true, for the scheduler.
	ListActive(ctx context.Context) ([]*entity.Brand, error)
	// AcquireScrapeLock atomically claims the brand's scrape lock. The
	// update succeeds when no run is in progress or the existing lock is
	// older than entity.LockStaleAfter (abandoned run). Returns false when
	// another run holds a fresh lock.
	AcquireScrapeLock(ctx context.Context, id int64, now time.Time) (bool, error)
	// ReleaseScrapeLock clears the lock. Called on every exit path.
	ReleaseScrapeLock(ctx context.Context, id int64) error
	// TouchLastScrapedAt records a completed run.
	TouchLastScrapedAt(ctx context.Context, id int64, t time.Time) error
}

// TopicRepository loads the active scrape configuration of a brand.
type TopicRepository interface {
	// ListActiveByBrand retrieves active topics for a brand, newest first.
	ListActiveByBrand(ctx context.Context, brandID int64) ([]*entity.Topic, error)
	// ListKeywordsByTopics retrieves all keywords of the given topics.
	ListKeywordsByTopics(ctx context.Context, topicIDs []int64) ([]*entity.Keyword, error)
}
