package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/temcen/reelrank/internal/config"
	"github.com/temcen/reelrank/internal/repository"
	"github.com/temcen/reelrank/pkg/models"
)

const (
	contentReason        = "Matches genres you rated highly"
	similarContentReason = "Shares genres with this title"
)

// ContentEngine scores catalog items by genre overlap, either with a user's
// well-rated history or with a reference item.
type ContentEngine struct {
	interactions InteractionReader
	content      ContentReader
	config       *config.RecommendationConfig
	metrics      *RecommendationMetrics
	logger       *logrus.Logger
}

func NewContentEngine(
	interactions InteractionReader,
	content ContentReader,
	cfg *config.RecommendationConfig,
	metrics *RecommendationMetrics,
	logger *logrus.Logger,
) *ContentEngine {
	return &ContentEngine{
		interactions: interactions,
		content:      content,
		config:       cfg,
		metrics:      metrics,
		logger:       logger,
	}
}

// RecommendForUser scores unseen items sharing genres with the user's recent
// high ratings.
func (e *ContentEngine) RecommendForUser(ctx context.Context, userID uuid.UUID, limit int) []models.Candidate {
	if !e.config.EnableContentBased || limit <= 0 {
		return nil
	}

	start := time.Now()

	profile, catalogGenres, err := e.BuildProfile(ctx, userID)
	if err != nil {
		e.fail(err, userID, "Failed to build genre profile")
		return nil
	}
	if profile.Empty() {
		e.metrics.ObserveEngine(models.AlgorithmContentBased, "user", start, 0)
		return nil
	}

	seen, err := e.interactions.InteractedItemIDs(ctx, userID)
	if err != nil {
		e.fail(err, userID, "Failed to load interacted items")
		return nil
	}
	for _, id := range seen {
		profile.InteractedItems[id] = true
	}

	items, err := e.content.FindItemsByGenres(ctx, catalogGenres)
	if err != nil {
		e.fail(err, userID, "Failed to find items by genre")
		return nil
	}

	candidates := make([]models.Candidate, 0, len(items))
	for _, item := range items {
		if profile.InteractedItems[item.ID] {
			continue
		}

		var score float64
		for _, key := range genreKeys(item.Genres) {
			score += profile.GenreFrequency[key] / profile.TotalWeight
		}
		if score <= 0 {
			continue
		}

		candidates = append(candidates, models.Candidate{
			ItemID:    item.ID,
			ItemType:  item.Type,
			Score:     score,
			Algorithm: models.AlgorithmContentBased,
			Reason:    contentReason,
		})
	}

	sortCandidates(candidates)
	candidates = truncate(candidates, limit)

	e.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"genres":  len(profile.GenreFrequency),
		"results": len(candidates),
	}).Debug("Content-based filtering completed")
	e.metrics.ObserveEngine(models.AlgorithmContentBased, "user", start, len(candidates))

	return candidates
}

// BuildProfile sums genre frequencies over the items the user recently rated
// above the threshold. It also returns the catalog spellings of those genres
// for the candidate query.
func (e *ContentEngine) BuildProfile(ctx context.Context, userID uuid.UUID) (*models.UserProfile, []string, error) {
	cfg := e.config.Content

	ratings, err := e.interactions.ListInteractions(ctx, userID, models.InteractionFilter{
		Type:  models.InteractionRating,
		Limit: cfg.RatingWindow,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list ratings: %w", err)
	}

	profile := &models.UserProfile{
		UserID:          userID,
		GenreFrequency:  make(map[string]float64),
		InteractedItems: make(map[uuid.UUID]bool),
	}
	spellings := make(map[string]bool)

	for _, rating := range ratings {
		if rating.Value == nil || *rating.Value <= cfg.RatingThreshold {
			continue
		}

		item, err := e.content.GetItem(ctx, rating.ItemID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load rated item %s: %w", rating.ItemID, err)
		}

		for _, key := range genreKeys(item.Genres) {
			profile.GenreFrequency[key]++
		}
		for _, g := range item.Genres {
			spellings[g] = true
		}
	}

	weights := make([]float64, 0, len(profile.GenreFrequency))
	for _, w := range profile.GenreFrequency {
		weights = append(weights, w)
	}
	profile.TotalWeight = floats.Sum(weights)

	return profile, sortedKeys(spellings), nil
}

// RecommendSimilarToItem returns the catalog's genre-overlap ranking for
// itemID with a fixed score.
func (e *ContentEngine) RecommendSimilarToItem(ctx context.Context, itemID uuid.UUID, limit int) []models.Candidate {
	if !e.config.EnableContentBased || limit <= 0 {
		return nil
	}

	start := time.Now()

	items, err := e.content.FindSimilarByGenreOverlap(ctx, itemID, e.config.Content.MinGenreOverlap, limit)
	if err != nil {
		e.metrics.EngineFailure(models.AlgorithmContentBased)
		e.logger.WithError(err).WithField("item_id", itemID).Warn("Failed to find similar content")
		return nil
	}

	candidates := make([]models.Candidate, 0, len(items))
	for _, item := range items {
		if item.ID == itemID {
			continue
		}
		candidates = append(candidates, models.Candidate{
			ItemID:    item.ID,
			ItemType:  item.Type,
			Score:     e.config.Content.SimilarItemScore,
			Algorithm: models.AlgorithmContentBased,
			Reason:    similarContentReason,
		})
	}
	candidates = truncate(candidates, limit)

	e.metrics.ObserveEngine(models.AlgorithmContentBased, "item", start, len(candidates))
	return candidates
}

func (e *ContentEngine) fail(err error, userID uuid.UUID, msg string) {
	e.metrics.EngineFailure(models.AlgorithmContentBased)
	e.logger.WithError(err).WithField("user_id", userID).Warn(msg)
}
