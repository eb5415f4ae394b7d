package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/reelrank/pkg/models"
)

type MockContentStore struct {
	mock.Mock
}

func (m *MockContentStore) GetItem(ctx context.Context, itemID uuid.UUID) (*models.ContentItem, error) {
	args := m.Called(ctx, itemID)
	item, _ := args.Get(0).(*models.ContentItem)
	return item, args.Error(1)
}

func (m *MockContentStore) FindSimilarByGenreOverlap(ctx context.Context, itemID uuid.UUID, minOverlap, limit int) ([]models.ContentItem, error) {
	args := m.Called(ctx, itemID, minOverlap, limit)
	items, _ := args.Get(0).([]models.ContentItem)
	return items, args.Error(1)
}

func (m *MockContentStore) FindItemsByGenres(ctx context.Context, genres []string) ([]models.ContentItem, error) {
	args := m.Called(ctx, genres)
	items, _ := args.Get(0).([]models.ContentItem)
	return items, args.Error(1)
}

func (m *MockContentStore) GetMostPopular(ctx context.Context, limit int) ([]models.ContentItem, error) {
	args := m.Called(ctx, limit)
	items, _ := args.Get(0).([]models.ContentItem)
	return items, args.Error(1)
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use test database
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	t.Cleanup(func() { client.Close() })
	return client
}

func TestCachedContentRepository_GetItem(t *testing.T) {
	redisClient := newTestRedis(t)
	ctx := context.Background()

	t.Run("miss loads from store then serves from cache", func(t *testing.T) {
		item := &models.ContentItem{
			ID:     uuid.New(),
			Title:  "Dark",
			Type:   models.ItemTypeSeries,
			Genres: []string{"Sci-Fi", "Thriller"},
		}
		redisClient.Del(ctx, contentCacheKey(item.ID))

		store := new(MockContentStore)
		store.On("GetItem", mock.Anything, item.ID).Return(item, nil).Once()

		repo := NewCachedContentRepository(store, redisClient, time.Minute, newTestLogger())

		first, err := repo.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, "Dark", first.Title)

		second, err := repo.GetItem(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, item.Genres, second.Genres)

		store.AssertExpectations(t)
	})

	t.Run("not found is not cached", func(t *testing.T) {
		itemID := uuid.New()

		store := new(MockContentStore)
		store.On("GetItem", mock.Anything, itemID).Return(nil, ErrNotFound).Twice()

		repo := NewCachedContentRepository(store, redisClient, time.Minute, newTestLogger())

		for i := 0; i < 2; i++ {
			_, err := repo.GetItem(ctx, itemID)
			assert.ErrorIs(t, err, ErrNotFound)
		}

		store.AssertExpectations(t)
	})

	t.Run("other reads pass through", func(t *testing.T) {
		store := new(MockContentStore)
		store.On("GetMostPopular", mock.Anything, 2).Return([]models.ContentItem{{Title: "x"}, {Title: "y"}}, nil)

		repo := NewCachedContentRepository(store, redisClient, time.Minute, newTestLogger())

		items, err := repo.GetMostPopular(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, items, 2)
		store.AssertExpectations(t)
	})
}

func TestCachedContentRepository_RedisDown(t *testing.T) {
	item := &models.ContentItem{ID: uuid.New(), Title: "Up"}

	store := new(MockContentStore)
	store.On("GetItem", mock.Anything, item.ID).Return(item, nil)

	// Nothing listens on this port; cache faults must not fail the read
	redisClient := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer redisClient.Close()

	repo := NewCachedContentRepository(store, redisClient, time.Minute, newTestLogger())

	got, err := repo.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Up", got.Title)
}
