package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/internal/config"
	"github.com/temcen/reelrank/internal/repository"
	"github.com/temcen/reelrank/pkg/models"
)

const (
	trendingReason   = "Trending now"
	popularityReason = "Popular on the service"
)

// TrendingEngine ranks items by recent activity and falls back to all-time
// catalog popularity, the terminal tier of every recommendation path.
type TrendingEngine struct {
	interactions InteractionReader
	content      ContentReader
	config       *config.RecommendationConfig
	metrics      *RecommendationMetrics
	logger       *logrus.Logger
	now          func() time.Time
}

func NewTrendingEngine(
	interactions InteractionReader,
	content ContentReader,
	cfg *config.RecommendationConfig,
	metrics *RecommendationMetrics,
	logger *logrus.Logger,
) *TrendingEngine {
	return &TrendingEngine{
		interactions: interactions,
		content:      content,
		config:       cfg,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}
}

// Trending counts interactions inside the trailing window. Items missing from
// the catalog are skipped; any data-access failure serves Popular instead.
func (e *TrendingEngine) Trending(ctx context.Context, limit int) []models.Candidate {
	if limit <= 0 {
		return nil
	}

	start := time.Now()
	since := e.now().Add(-e.config.Trending.Window)

	types := make([]models.InteractionType, 0, len(e.config.Trending.InteractionTypes))
	for _, t := range e.config.Trending.InteractionTypes {
		types = append(types, models.InteractionType(t))
	}

	counts, err := e.interactions.CountTrendingItems(ctx, types, since, limit)
	if err != nil {
		return e.fallBack(ctx, err, limit)
	}

	present := make([]models.ItemCount, 0, len(counts))
	for _, c := range counts {
		item, err := e.content.GetItem(ctx, c.ItemID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return e.fallBack(ctx, err, limit)
		}
		if item.Type != "" {
			c.ItemType = item.Type
		}
		present = append(present, c)
	}

	candidates := rankDecay(present, models.AlgorithmTrending, trendingReason)
	candidates = truncate(candidates, limit)

	e.metrics.ObserveEngine(models.AlgorithmTrending, "global", start, len(candidates))
	return candidates
}

// Popular ranks the catalog by stored popularity score. It never fails; a
// broken store yields an empty list.
func (e *TrendingEngine) Popular(ctx context.Context, limit int) []models.Candidate {
	if limit <= 0 {
		return nil
	}

	start := time.Now()

	items, err := e.content.GetMostPopular(ctx, limit)
	if err != nil {
		e.metrics.EngineFailure(models.AlgorithmPopularity)
		e.logger.WithError(err).Error("Popularity fallback unavailable")
		return nil
	}

	counts := make([]models.ItemCount, len(items))
	for i, item := range items {
		counts[i] = models.ItemCount{ItemID: item.ID, ItemType: item.Type}
	}

	candidates := rankDecay(counts, models.AlgorithmPopularity, popularityReason)
	candidates = truncate(candidates, limit)

	e.metrics.ObserveEngine(models.AlgorithmPopularity, "global", start, len(candidates))
	return candidates
}

func (e *TrendingEngine) fallBack(ctx context.Context, err error, limit int) []models.Candidate {
	e.metrics.EngineFailure(models.AlgorithmTrending)
	e.metrics.Fallback(models.AlgorithmPopularity)
	e.logger.WithError(err).WithField("limit", limit).Warn("Trending unavailable, serving popular items")
	return e.Popular(ctx, limit)
}
