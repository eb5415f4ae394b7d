package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/reelrank/internal/config"
	"github.com/temcen/reelrank/pkg/models"
)

// Ranker blends the collaborative and content-based personal signals.
type Ranker struct {
	collaborative SignalEngine
	content       SignalEngine
	config        *config.RecommendationConfig
	logger        *logrus.Logger
}

func NewRanker(collaborative, content SignalEngine, cfg *config.RecommendationConfig, logger *logrus.Logger) *Ranker {
	return &Ranker{
		collaborative: collaborative,
		content:       content,
		config:        cfg,
		logger:        logger,
	}
}

// Blend weights both signals and sums the weighted scores of items found by
// both, retagging them hybrid. Each signal runs under its own signal timeout
// and either may come back empty.
func (r *Ranker) Blend(ctx context.Context, userID uuid.UUID, limit int) ([]models.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}

	var collaborative, content []models.Candidate

	g, gctx := errgroup.WithContext(ctx)
	g.Go(safeSignal(models.AlgorithmCollaborative, func() {
		sctx, cancel := boundedContext(gctx, r.config.SignalTimeout)
		defer cancel()
		collaborative = r.collaborative.RecommendForUser(sctx, userID, limit)
	}))
	g.Go(safeSignal(models.AlgorithmContentBased, func() {
		sctx, cancel := boundedContext(gctx, r.config.SignalTimeout)
		defer cancel()
		content = r.content.RecommendForUser(sctx, userID, limit)
	}))
	if err := g.Wait(); err != nil {
		return nil, err
	}

	weights := r.config.Hybrid
	merged := make(map[uuid.UUID]int, len(collaborative)+len(content))
	blended := make([]models.Candidate, 0, len(collaborative)+len(content))

	for _, c := range collaborative {
		if _, dup := merged[c.ItemID]; dup {
			continue
		}
		c.Score *= weights.CollaborativeWeight
		merged[c.ItemID] = len(blended)
		blended = append(blended, c)
	}

	contentSeen := make(map[uuid.UUID]bool, len(content))
	for _, c := range content {
		if contentSeen[c.ItemID] {
			continue
		}
		contentSeen[c.ItemID] = true

		weighted := c.Score * weights.ContentWeight
		if i, ok := merged[c.ItemID]; ok {
			blended[i].Score += weighted
			blended[i].Algorithm = models.AlgorithmHybrid
			blended[i].Reason = models.HybridReason
			continue
		}
		c.Score = weighted
		merged[c.ItemID] = len(blended)
		blended = append(blended, c)
	}

	sortCandidates(blended)
	blended = truncate(blended, limit)

	r.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"collaborative": len(collaborative),
		"content_based": len(content),
		"results":       len(blended),
	}).Debug("Hybrid blend completed")

	return blended, nil
}

// DeduplicateAndLimit merges lists keeping the first occurrence of each item,
// then orders by score and truncates. Ties keep source order.
func DeduplicateAndLimit(limit int, lists ...[]models.Candidate) []models.Candidate {
	if limit <= 0 {
		return nil
	}

	seen := make(map[uuid.UUID]bool)
	var merged []models.Candidate
	for _, list := range lists {
		for _, c := range list {
			if seen[c.ItemID] {
				continue
			}
			seen[c.ItemID] = true
			merged = append(merged, c)
		}
	}

	sortCandidates(merged)
	return truncate(merged, limit)
}

// sortCandidates orders by score descending; the sort is stable.
func sortCandidates(candidates []models.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}

func truncate(candidates []models.Candidate, limit int) []models.Candidate {
	if limit >= 0 && len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}

// rankDecay scores an already ordered list as 1 - rank/n.
func rankDecay(counts []models.ItemCount, algorithm, reason string) []models.Candidate {
	n := float64(len(counts))
	candidates := make([]models.Candidate, 0, len(counts))
	for rank, c := range counts {
		candidates = append(candidates, models.Candidate{
			ItemID:    c.ItemID,
			ItemType:  c.ItemType,
			Score:     1 - float64(rank)/n,
			Algorithm: algorithm,
			Reason:    reason,
		})
	}
	return candidates
}

// boundedContext gives one signal or data-access call its own deadline. A
// late engine degrades to empty without taking its siblings down.
func boundedContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// safeSignal adapts a signal call for an errgroup, turning a panic into an
// error for the caller's fallback path.
func safeSignal(name string, fn func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s signal panicked: %v", name, r)
			}
		}()
		fn()
		return nil
	}
}
