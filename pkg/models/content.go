package models

import (
	"time"

	"github.com/google/uuid"
)

// Catalog item types.
const (
	ItemTypeMovie   = "movie"
	ItemTypeSeries  = "series"
	ItemTypeEpisode = "episode"
)

// ContentItem is catalog metadata. The catalog owns it; the recommender only reads it.
type ContentItem struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Type            string    `json:"type" db:"item_type"`
	Genres          []string  `json:"genres,omitempty" db:"genres"`
	Actors          []string  `json:"actors,omitempty" db:"actors"`
	Keywords        []string  `json:"keywords,omitempty" db:"keywords"`
	AverageRating   float64   `json:"average_rating" db:"average_rating"`
	PopularityScore float64   `json:"popularity_score" db:"popularity_score"`
	LastUpdated     time.Time `json:"last_updated" db:"last_updated"`
}

// ItemCount pairs an item with an aggregated interaction count.
type ItemCount struct {
	ItemID   uuid.UUID `json:"item_id"`
	ItemType string    `json:"item_type"`
	Count    int       `json:"count"`
}
