package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/pkg/models"
)

// ContentStore is the catalog read surface consumed by the ranking engines.
type ContentStore interface {
	GetItem(ctx context.Context, itemID uuid.UUID) (*models.ContentItem, error)
	FindSimilarByGenreOverlap(ctx context.Context, itemID uuid.UUID, minOverlap, limit int) ([]models.ContentItem, error)
	FindItemsByGenres(ctx context.Context, genres []string) ([]models.ContentItem, error)
	GetMostPopular(ctx context.Context, limit int) ([]models.ContentItem, error)
}

// CachedContentRepository puts a Redis read-through cache in front of GetItem.
// Cache faults are logged and never fail the lookup.
type CachedContentRepository struct {
	ContentStore
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCachedContentRepository(store ContentStore, redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *CachedContentRepository {
	return &CachedContentRepository{
		ContentStore: store,
		redis:        redisClient,
		ttl:          ttl,
		logger:       logger,
	}
}

func contentCacheKey(itemID uuid.UUID) string {
	return fmt.Sprintf("content:item:%s", itemID)
}

func (r *CachedContentRepository) GetItem(ctx context.Context, itemID uuid.UUID) (*models.ContentItem, error) {
	key := contentCacheKey(itemID)

	cached, err := r.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var item models.ContentItem
		if err := json.Unmarshal(cached, &item); err == nil {
			return &item, nil
		}
		r.logger.WithField("item_id", itemID).Warn("Discarding malformed cached content item")
	case !errors.Is(err, redis.Nil):
		r.logger.WithError(err).WithField("item_id", itemID).Warn("Content cache read failed")
	}

	item, err := r.ContentStore.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(item)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to marshal content item for cache")
		return item, nil
	}

	if err := r.redis.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.WithError(err).WithField("item_id", itemID).Warn("Content cache write failed")
	}

	return item, nil
}

