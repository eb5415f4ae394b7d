package models

import (
	"time"

	"github.com/google/uuid"
)

// Algorithm tags attached to candidates.
const (
	AlgorithmCollaborative    = "collaborative"
	AlgorithmContentBased     = "content_based"
	AlgorithmItemCooccurrence = "item_cooccurrence"
	AlgorithmTrending         = "trending"
	AlgorithmPopularity       = "popularity"
	AlgorithmHybrid           = "hybrid"
)

// HybridReason is the display reason given to items found by both personal signals.
const HybridReason = "Recommended based on your preferences"

// Candidate is a scored item proposed by one signal engine. Scores are algorithm-local.
type Candidate struct {
	ItemID    uuid.UUID `json:"item_id"`
	ItemType  string    `json:"item_type"`
	Score     float64   `json:"score"`
	Algorithm string    `json:"algorithm"`
	Reason    string    `json:"reason"`
}

// RecommendationResponse is the HTTP body for every recommendation endpoint.
type RecommendationResponse struct {
	UserID          *uuid.UUID  `json:"user_id,omitempty"`
	SeedItemID      *uuid.UUID  `json:"seed_item_id,omitempty"`
	Recommendations []Candidate `json:"recommendations"`
	Count           int         `json:"count"`
	GeneratedAt     time.Time   `json:"generated_at"`
}
