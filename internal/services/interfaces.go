package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/temcen/reelrank/internal/messaging"
	"github.com/temcen/reelrank/internal/repository"
	"github.com/temcen/reelrank/pkg/models"
)

// InteractionReader is the read side of the interaction store.
type InteractionReader interface {
	ListInteractions(ctx context.Context, userID uuid.UUID, filter models.InteractionFilter) ([]models.InteractionEvent, error)
	CountCooccurrences(ctx context.Context, itemID uuid.UUID, interactionType models.InteractionType, minCount int) ([]models.ItemCount, error)
	CountTrendingItems(ctx context.Context, types []models.InteractionType, since time.Time, limit int) ([]models.ItemCount, error)
	InteractedItemIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// InteractionWriter appends events to the interaction store.
type InteractionWriter interface {
	Append(ctx context.Context, event *models.InteractionEvent) error
}

// NeighborhoodReader returns the interaction edges of a user's neighbourhood.
type NeighborhoodReader interface {
	NeighborhoodInteractions(ctx context.Context, userID uuid.UUID, maxUsers int) ([]repository.InteractionEdge, error)
}

// GraphWriter mirrors an event into the interaction graph.
type GraphWriter interface {
	UpsertInteraction(ctx context.Context, event *models.InteractionEvent) error
}

// ContentReader is the catalog read surface.
type ContentReader = repository.ContentStore

// SignalEngine produces per-user and per-item candidates. Implementations
// never fail: data-access problems degrade to an empty result.
type SignalEngine interface {
	RecommendForUser(ctx context.Context, userID uuid.UUID, limit int) []models.Candidate
	RecommendSimilarToItem(ctx context.Context, itemID uuid.UUID, limit int) []models.Candidate
}

// HybridBlender merges the personal signals. It only errors when a signal
// panics or the request deadline expires.
type HybridBlender interface {
	Blend(ctx context.Context, userID uuid.UUID, limit int) ([]models.Candidate, error)
}

// PopularitySource serves the non-personal fallback tiers.
type PopularitySource interface {
	Trending(ctx context.Context, limit int) []models.Candidate
	Popular(ctx context.Context, limit int) []models.Candidate
}

// Recommender is the surface exposed to the HTTP layer.
type Recommender interface {
	GetRecommendationsForUser(ctx context.Context, userID uuid.UUID, limit int) []models.Candidate
	GetSimilarContent(ctx context.Context, itemID uuid.UUID, limit int) []models.Candidate
	GetTrendingRecommendations(ctx context.Context, limit int) []models.Candidate
	GetPopularRecommendations(ctx context.Context, limit int) []models.Candidate
}

// EventPublisher hands interaction events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, event *models.InteractionEvent) error
}

// MessageConsumer delivers bus messages to a handler until ctx ends.
type MessageConsumer interface {
	Consume(ctx context.Context, handler messaging.Handler) error
}

// InteractionRecorder accepts interaction requests from the HTTP layer.
type InteractionRecorder interface {
	Record(ctx context.Context, req *models.RecordInteractionRequest) (*models.InteractionEvent, error)
}

// HealthChecker reports dependency health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) *HealthStatus
}

var (
	_ InteractionRecorder = (*InteractionService)(nil)
	_ HealthChecker       = (*HealthService)(nil)
)
