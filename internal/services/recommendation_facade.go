package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/reelrank/internal/config"
	"github.com/temcen/reelrank/pkg/models"
)

// RecommendationFacade walks the fixed decision tree over the signal engines.
// It never returns an error: failures fall through to the next tier and the
// last tier may be empty.
type RecommendationFacade struct {
	collaborative SignalEngine
	content       SignalEngine
	blender       HybridBlender
	popularity    PopularitySource
	config        *config.RecommendationConfig
	metrics       *RecommendationMetrics
	logger        *logrus.Logger
}

func NewRecommendationFacade(
	collaborative SignalEngine,
	content SignalEngine,
	blender HybridBlender,
	popularity PopularitySource,
	cfg *config.RecommendationConfig,
	metrics *RecommendationMetrics,
	logger *logrus.Logger,
) *RecommendationFacade {
	return &RecommendationFacade{
		collaborative: collaborative,
		content:       content,
		blender:       blender,
		popularity:    popularity,
		config:        cfg,
		metrics:       metrics,
		logger:        logger,
	}
}

// GetRecommendationsForUser returns personal candidates topped up with
// trending items. An unexpected failure discards partial work and serves
// trending instead.
func (f *RecommendationFacade) GetRecommendationsForUser(ctx context.Context, userID uuid.UUID, limit int) []models.Candidate {
	f.metrics.Request("user")
	if limit <= 0 {
		return nil
	}

	result, err := f.personalized(ctx, userID, limit)
	if err != nil {
		f.metrics.Fallback(models.AlgorithmTrending)
		f.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"limit":   limit,
		}).Warn("Personal recommendations failed, serving trending")
		return f.trending(ctx, limit)
	}

	return result
}

func (f *RecommendationFacade) personalized(ctx context.Context, userID uuid.UUID, limit int) (result []models.Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("recommendation pipeline panicked: %v", r)
		}
	}()

	var candidates []models.Candidate
	if f.config.EnableHybrid {
		candidates, err = f.blender.Blend(ctx, userID, limit)
		if err != nil {
			return nil, err
		}
	} else {
		half := limit / 2
		var collaborative, content []models.Candidate

		g, gctx := errgroup.WithContext(ctx)
		g.Go(safeSignal(models.AlgorithmCollaborative, func() {
			sctx, cancel := f.withSignalTimeout(gctx)
			defer cancel()
			collaborative = f.collaborative.RecommendForUser(sctx, userID, half)
		}))
		g.Go(safeSignal(models.AlgorithmContentBased, func() {
			sctx, cancel := f.withSignalTimeout(gctx)
			defer cancel()
			content = f.content.RecommendForUser(sctx, userID, half)
		}))
		if err := g.Wait(); err != nil {
			return nil, err
		}

		candidates = append(collaborative, content...)
	}

	if len(candidates) < limit && f.config.EnableTrending {
		candidates = append(candidates, f.trending(ctx, limit-len(candidates))...)
	}

	// Only the caller giving up abandons the personal path.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("recommendation request cancelled: %w", err)
	}

	return DeduplicateAndLimit(limit, candidates), nil
}

// GetSimilarContent merges content and co-occurrence neighbours of itemID,
// falling back to popular items on an unexpected failure.
func (f *RecommendationFacade) GetSimilarContent(ctx context.Context, itemID uuid.UUID, limit int) []models.Candidate {
	f.metrics.Request("similar")
	if limit <= 0 {
		return nil
	}

	result, err := f.similar(ctx, itemID, limit)
	if err != nil {
		f.metrics.Fallback(models.AlgorithmPopularity)
		f.logger.WithError(err).WithFields(logrus.Fields{
			"item_id": itemID,
			"limit":   limit,
		}).Warn("Similar content failed, serving popular")
		return f.popular(ctx, limit)
	}

	return result
}

func (f *RecommendationFacade) similar(ctx context.Context, itemID uuid.UUID, limit int) (result []models.Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("similar content pipeline panicked: %v", r)
		}
	}()

	var content, collaborative []models.Candidate

	g, gctx := errgroup.WithContext(ctx)
	g.Go(safeSignal(models.AlgorithmContentBased, func() {
		sctx, cancel := f.withSignalTimeout(gctx)
		defer cancel()
		content = f.content.RecommendSimilarToItem(sctx, itemID, limit)
	}))
	g.Go(safeSignal(models.AlgorithmItemCooccurrence, func() {
		sctx, cancel := f.withSignalTimeout(gctx)
		defer cancel()
		collaborative = f.collaborative.RecommendSimilarToItem(sctx, itemID, limit)
	}))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("similar content request cancelled: %w", err)
	}

	return DeduplicateAndLimit(limit, content, collaborative), nil
}

func (f *RecommendationFacade) GetTrendingRecommendations(ctx context.Context, limit int) []models.Candidate {
	f.metrics.Request("trending")
	return f.trending(ctx, limit)
}

func (f *RecommendationFacade) GetPopularRecommendations(ctx context.Context, limit int) []models.Candidate {
	f.metrics.Request("popular")
	return f.popular(ctx, limit)
}

// trending and popular give the global tiers a fresh signal budget derived
// from the caller's context, whatever the personal path already spent.
func (f *RecommendationFacade) trending(ctx context.Context, limit int) []models.Candidate {
	ctx, cancel := f.withSignalTimeout(ctx)
	defer cancel()
	return f.popularity.Trending(ctx, limit)
}

func (f *RecommendationFacade) popular(ctx context.Context, limit int) []models.Candidate {
	ctx, cancel := f.withSignalTimeout(ctx)
	defer cancel()
	return f.popularity.Popular(ctx, limit)
}

func (f *RecommendationFacade) withSignalTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return boundedContext(ctx, f.config.SignalTimeout)
}

var _ Recommender = (*RecommendationFacade)(nil)
