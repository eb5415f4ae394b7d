package services

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/temcen/reelrank/internal/config"
	"github.com/temcen/reelrank/internal/messaging"
	"github.com/temcen/reelrank/internal/repository"
	"github.com/temcen/reelrank/pkg/models"
)

type MockInteractionReader struct {
	mock.Mock
}

func (m *MockInteractionReader) ListInteractions(ctx context.Context, userID uuid.UUID, filter models.InteractionFilter) ([]models.InteractionEvent, error) {
	args := m.Called(ctx, userID, filter)
	events, _ := args.Get(0).([]models.InteractionEvent)
	return events, args.Error(1)
}

func (m *MockInteractionReader) CountCooccurrences(ctx context.Context, itemID uuid.UUID, interactionType models.InteractionType, minCount int) ([]models.ItemCount, error) {
	args := m.Called(ctx, itemID, interactionType, minCount)
	counts, _ := args.Get(0).([]models.ItemCount)
	return counts, args.Error(1)
}

func (m *MockInteractionReader) CountTrendingItems(ctx context.Context, types []models.InteractionType, since time.Time, limit int) ([]models.ItemCount, error) {
	args := m.Called(ctx, types, since, limit)
	counts, _ := args.Get(0).([]models.ItemCount)
	return counts, args.Error(1)
}

func (m *MockInteractionReader) InteractedItemIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}

type MockNeighborhoodReader struct {
	mock.Mock
}

func (m *MockNeighborhoodReader) NeighborhoodInteractions(ctx context.Context, userID uuid.UUID, maxUsers int) ([]repository.InteractionEdge, error) {
	args := m.Called(ctx, userID, maxUsers)
	edges, _ := args.Get(0).([]repository.InteractionEdge)
	return edges, args.Error(1)
}

type MockContentReader struct {
	mock.Mock
}

func (m *MockContentReader) GetItem(ctx context.Context, itemID uuid.UUID) (*models.ContentItem, error) {
	args := m.Called(ctx, itemID)
	item, _ := args.Get(0).(*models.ContentItem)
	return item, args.Error(1)
}

func (m *MockContentReader) FindSimilarByGenreOverlap(ctx context.Context, itemID uuid.UUID, minOverlap, limit int) ([]models.ContentItem, error) {
	args := m.Called(ctx, itemID, minOverlap, limit)
	items, _ := args.Get(0).([]models.ContentItem)
	return items, args.Error(1)
}

func (m *MockContentReader) FindItemsByGenres(ctx context.Context, genres []string) ([]models.ContentItem, error) {
	args := m.Called(ctx, genres)
	items, _ := args.Get(0).([]models.ContentItem)
	return items, args.Error(1)
}

func (m *MockContentReader) GetMostPopular(ctx context.Context, limit int) ([]models.ContentItem, error) {
	args := m.Called(ctx, limit)
	items, _ := args.Get(0).([]models.ContentItem)
	return items, args.Error(1)
}

type MockSignalEngine struct {
	mock.Mock
}

func (m *MockSignalEngine) RecommendForUser(ctx context.Context, userID uuid.UUID, limit int) []models.Candidate {
	args := m.Called(ctx, userID, limit)
	candidates, _ := args.Get(0).([]models.Candidate)
	return candidates
}

func (m *MockSignalEngine) RecommendSimilarToItem(ctx context.Context, itemID uuid.UUID, limit int) []models.Candidate {
	args := m.Called(ctx, itemID, limit)
	candidates, _ := args.Get(0).([]models.Candidate)
	return candidates
}

type MockBlender struct {
	mock.Mock
}

func (m *MockBlender) Blend(ctx context.Context, userID uuid.UUID, limit int) ([]models.Candidate, error) {
	args := m.Called(ctx, userID, limit)
	candidates, _ := args.Get(0).([]models.Candidate)
	return candidates, args.Error(1)
}

type MockPopularitySource struct {
	mock.Mock
}

func (m *MockPopularitySource) Trending(ctx context.Context, limit int) []models.Candidate {
	args := m.Called(ctx, limit)
	candidates, _ := args.Get(0).([]models.Candidate)
	return candidates
}

func (m *MockPopularitySource) Popular(ctx context.Context, limit int) []models.Candidate {
	args := m.Called(ctx, limit)
	candidates, _ := args.Get(0).([]models.Candidate)
	return candidates
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event *models.InteractionEvent) error {
	return m.Called(ctx, event).Error(0)
}

type MockInteractionWriter struct {
	mock.Mock
}

func (m *MockInteractionWriter) Append(ctx context.Context, event *models.InteractionEvent) error {
	return m.Called(ctx, event).Error(0)
}

type MockGraphWriter struct {
	mock.Mock
}

func (m *MockGraphWriter) UpsertInteraction(ctx context.Context, event *models.InteractionEvent) error {
	return m.Called(ctx, event).Error(0)
}

type MockMessageConsumer struct {
	mock.Mock
}

func (m *MockMessageConsumer) Consume(ctx context.Context, handler messaging.Handler) error {
	return m.Called(ctx, handler).Error(0)
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestConfig() *config.RecommendationConfig {
	cfg := config.DefaultRecommendationConfig()
	return &cfg
}

func floatPtr(v float64) *float64 {
	return &v
}

func candidate(id uuid.UUID, score float64, algorithm string) models.Candidate {
	return models.Candidate{
		ItemID:    id,
		ItemType:  models.ItemTypeMovie,
		Score:     score,
		Algorithm: algorithm,
		Reason:    "test",
	}
}

func itemIDs(candidates []models.Candidate) []uuid.UUID {
	ids := make([]uuid.UUID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ItemID
	}
	return ids
}

func scores(candidates []models.Candidate) []float64 {
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		out[i] = c.Score
	}
	return out
}

func algorithms(candidates []models.Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Algorithm
	}
	return out
}
