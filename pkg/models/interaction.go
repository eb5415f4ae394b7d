package models

import (
	"time"

	"github.com/google/uuid"
)

// InteractionType is the kind of action a user took on an item.
type InteractionType string

const (
	InteractionView      InteractionType = "view"
	InteractionRating    InteractionType = "rating"
	InteractionWatchTime InteractionType = "watch_time"
	InteractionLike      InteractionType = "like"
	InteractionDislike   InteractionType = "dislike"
	InteractionAddToList InteractionType = "add_to_list"
	InteractionSearch    InteractionType = "search"
	InteractionClick     InteractionType = "click"
)

// InteractionTypes lists every accepted interaction type.
var InteractionTypes = []InteractionType{
	InteractionView,
	InteractionRating,
	InteractionWatchTime,
	InteractionLike,
	InteractionDislike,
	InteractionAddToList,
	InteractionSearch,
	InteractionClick,
}

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool {
	for _, known := range InteractionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// InteractionEvent is an append-only record of a user action on an item.
type InteractionEvent struct {
	ID          uuid.UUID              `json:"id" db:"id"`
	UserID      uuid.UUID              `json:"user_id" db:"user_id"`
	ItemID      uuid.UUID              `json:"item_id" db:"item_id"`
	ItemType    string                 `json:"item_type" db:"item_type"`
	Type        InteractionType        `json:"interaction_type" db:"interaction_type"`
	Value       *float64               `json:"value,omitempty" db:"value"` // rating magnitude or watch seconds
	Timestamp   time.Time              `json:"timestamp" db:"timestamp"`
	ContextData map[string]interface{} `json:"context_data,omitempty" db:"context_data"`
}

// InteractionFilter narrows ListInteractions. Zero values mean "no constraint".
type InteractionFilter struct {
	Type  InteractionType
	Since *time.Time
	Until *time.Time
	Limit int
}

// RecordInteractionRequest is the HTTP payload for a new interaction.
type RecordInteractionRequest struct {
	UserID      uuid.UUID              `json:"user_id" validate:"required"`
	ItemID      uuid.UUID              `json:"item_id" validate:"required"`
	ItemType    string                 `json:"item_type" validate:"required,oneof=movie series episode"`
	Type        InteractionType        `json:"interaction_type" validate:"required,oneof=view rating watch_time like dislike add_to_list search click"`
	Value       *float64               `json:"value,omitempty" validate:"omitempty,min=0"`
	ContextData map[string]interface{} `json:"context_data,omitempty"`
}

// UserProfile is a per-request genre preference profile. It is never persisted.
type UserProfile struct {
	UserID          uuid.UUID          `json:"user_id"`
	GenreFrequency  map[string]float64 `json:"genre_frequency"`
	TotalWeight     float64            `json:"total_weight"`
	InteractedItems map[uuid.UUID]bool `json:"-"`
}

// Empty reports whether the profile carries no genre signal.
func (p *UserProfile) Empty() bool {
	return p == nil || len(p.GenreFrequency) == 0 || p.TotalWeight <= 0
}
