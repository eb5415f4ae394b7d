package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/temcen/reelrank/internal/config"
	"github.com/temcen/reelrank/pkg/models"
)

const (
	collaborativeReason    = "Viewers with similar taste enjoyed this"
	itemCooccurrenceReason = "Viewers of this title also watched"
)

// CollaborativeEngine scores items from interaction patterns across users:
// user-based neighbourhoods for personal lists and co-occurrence for
// "more like this".
type CollaborativeEngine struct {
	interactions InteractionReader
	graph        NeighborhoodReader
	config       *config.RecommendationConfig
	metrics      *RecommendationMetrics
	logger       *logrus.Logger
}

func NewCollaborativeEngine(
	interactions InteractionReader,
	graph NeighborhoodReader,
	cfg *config.RecommendationConfig,
	metrics *RecommendationMetrics,
	logger *logrus.Logger,
) *CollaborativeEngine {
	return &CollaborativeEngine{
		interactions: interactions,
		graph:        graph,
		config:       cfg,
		metrics:      metrics,
		logger:       logger,
	}
}

type neighbor struct {
	userID     uuid.UUID
	similarity float64
}

// RecommendForUser predicts scores for items the user has not touched from
// the strengths of correlated neighbours.
func (e *CollaborativeEngine) RecommendForUser(ctx context.Context, userID uuid.UUID, limit int) []models.Candidate {
	if !e.config.EnableCollaborativeFiltering || limit <= 0 {
		return nil
	}

	start := time.Now()
	cfg := e.config.Collaborative

	history, err := e.interactions.ListInteractions(ctx, userID, models.InteractionFilter{Limit: cfg.HistoryLimit})
	if err != nil {
		e.fail(err, userID, "Failed to load interaction history")
		return nil
	}

	itemTypes := make(map[uuid.UUID]string)
	target := make(map[uuid.UUID]float64)
	for _, event := range history {
		if s, ok := e.strength(event.Type, event.Value); ok {
			keepMax(target, event.ItemID, s)
			itemTypes[event.ItemID] = event.ItemType
		}
	}
	if len(target) == 0 {
		e.metrics.ObserveEngine(models.AlgorithmCollaborative, "user", start, 0)
		return nil
	}

	edges, err := e.graph.NeighborhoodInteractions(ctx, userID, cfg.CandidateUsers)
	if err != nil {
		e.fail(err, userID, "Failed to load interaction neighbourhood")
		return nil
	}

	others := make(map[uuid.UUID]map[uuid.UUID]float64)
	for _, edge := range edges {
		if edge.UserID == userID {
			continue
		}
		s, ok := e.strength(edge.Type, edge.Value)
		if !ok {
			continue
		}
		if others[edge.UserID] == nil {
			others[edge.UserID] = make(map[uuid.UUID]float64)
		}
		keepMax(others[edge.UserID], edge.ItemID, s)
		if _, known := itemTypes[edge.ItemID]; !known {
			itemTypes[edge.ItemID] = edge.ItemType
		}
	}

	neighbors := e.neighborhood(target, others)
	if len(neighbors) == 0 {
		e.logger.WithFields(logrus.Fields{
			"user_id":    userID,
			"candidates": len(others),
		}).Debug("No collaborative neighbours above threshold")
		e.metrics.ObserveEngine(models.AlgorithmCollaborative, "user", start, 0)
		return nil
	}

	weighted := make(map[uuid.UUID]float64)
	norms := make(map[uuid.UUID]float64)
	for _, n := range neighbors {
		for itemID, s := range others[n.userID] {
			if _, seen := target[itemID]; seen {
				continue
			}
			weighted[itemID] += n.similarity * s
			norms[itemID] += math.Abs(n.similarity)
		}
	}

	candidates := make([]models.Candidate, 0, len(weighted))
	for itemID, sum := range weighted {
		if norms[itemID] == 0 {
			continue
		}
		candidates = append(candidates, models.Candidate{
			ItemID:    itemID,
			ItemType:  itemTypes[itemID],
			Score:     sum / norms[itemID],
			Algorithm: models.AlgorithmCollaborative,
			Reason:    collaborativeReason,
		})
	}

	sortCandidates(candidates)
	candidates = truncate(candidates, limit)

	e.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"neighbours": len(neighbors),
		"results":    len(candidates),
	}).Debug("Collaborative filtering completed")
	e.metrics.ObserveEngine(models.AlgorithmCollaborative, "user", start, len(candidates))

	return candidates
}

// RecommendSimilarToItem ranks items co-consumed with itemID by the number of
// distinct users, scored by linear rank decay.
func (e *CollaborativeEngine) RecommendSimilarToItem(ctx context.Context, itemID uuid.UUID, limit int) []models.Candidate {
	if !e.config.EnableCollaborativeFiltering || limit <= 0 {
		return nil
	}

	start := time.Now()
	cfg := e.config.Collaborative

	counts, err := e.interactions.CountCooccurrences(ctx, itemID, models.InteractionType(cfg.CooccurrenceType), cfg.MinCooccurrence)
	if err != nil {
		e.metrics.EngineFailure(models.AlgorithmItemCooccurrence)
		e.logger.WithError(err).WithField("item_id", itemID).Warn("Failed to count co-occurrences")
		return nil
	}

	candidates := rankDecay(counts, models.AlgorithmItemCooccurrence, itemCooccurrenceReason)
	candidates = truncate(candidates, limit)

	e.metrics.ObserveEngine(models.AlgorithmItemCooccurrence, "item", start, len(candidates))
	return candidates
}

// strength turns an interaction into a preference strength. Searches carry
// no item preference.
func (e *CollaborativeEngine) strength(t models.InteractionType, value *float64) (float64, bool) {
	switch t {
	case models.InteractionSearch:
		return 0, false
	case models.InteractionRating:
		if value == nil {
			return 0, false
		}
		return *value, true
	}

	if w, ok := e.config.Collaborative.InteractionWeights[string(t)]; ok {
		return w, true
	}
	return e.config.Collaborative.DefaultImplicitWeight, true
}

// neighborhood keeps users whose Pearson correlation with the target over
// shared items reaches the threshold, strongest first.
func (e *CollaborativeEngine) neighborhood(target map[uuid.UUID]float64, others map[uuid.UUID]map[uuid.UUID]float64) []neighbor {
	cfg := e.config.Collaborative
	minCommon := cfg.MinCommonItems
	if minCommon < 2 {
		minCommon = 2
	}

	var neighbors []neighbor
	for otherID, items := range others {
		var x, y []float64
		for itemID, s := range target {
			if o, ok := items[itemID]; ok {
				x = append(x, s)
				y = append(y, o)
			}
		}
		if len(x) < minCommon {
			continue
		}

		sim := stat.Correlation(x, y, nil)
		if math.IsNaN(sim) {
			// Constant strengths on either side
			sim = 0
		}
		if sim >= cfg.SimilarityThreshold {
			neighbors = append(neighbors, neighbor{userID: otherID, similarity: sim})
		}
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].similarity != neighbors[j].similarity {
			return neighbors[i].similarity > neighbors[j].similarity
		}
		return neighbors[i].userID.String() < neighbors[j].userID.String()
	})

	if cfg.MaxNeighbors > 0 && len(neighbors) > cfg.MaxNeighbors {
		neighbors = neighbors[:cfg.MaxNeighbors]
	}

	return neighbors
}

func (e *CollaborativeEngine) fail(err error, userID uuid.UUID, msg string) {
	e.metrics.EngineFailure(models.AlgorithmCollaborative)
	e.logger.WithError(err).WithField("user_id", userID).Warn(msg)
}

func keepMax(m map[uuid.UUID]float64, itemID uuid.UUID, s float64) {
	if current, ok := m[itemID]; !ok || s > current {
		m[itemID] = s
	}
}
