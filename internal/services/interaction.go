package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/pkg/models"
)

// ErrInvalidInteraction is returned for requests that pass field validation
// but make no sense as an event.
var ErrInvalidInteraction = errors.New("invalid interaction")

const maxRatingValue = 5.0

// InteractionService turns API requests into interaction events on the bus.
type InteractionService struct {
	publisher EventPublisher
	logger    *logrus.Logger
	now       func() time.Time
}

func NewInteractionService(publisher EventPublisher, logger *logrus.Logger) *InteractionService {
	return &InteractionService{
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Record stamps the request with an id and time and publishes it.
func (s *InteractionService) Record(ctx context.Context, req *models.RecordInteractionRequest) (*models.InteractionEvent, error) {
	if req.Type == models.InteractionRating {
		if req.Value == nil {
			return nil, fmt.Errorf("%w: rating requires a value", ErrInvalidInteraction)
		}
		if *req.Value > maxRatingValue {
			return nil, fmt.Errorf("%w: rating must be between 0 and %.0f", ErrInvalidInteraction, maxRatingValue)
		}
	}

	event := &models.InteractionEvent{
		ID:          uuid.New(),
		UserID:      req.UserID,
		ItemID:      req.ItemID,
		ItemType:    req.ItemType,
		Type:        req.Type,
		Value:       req.Value,
		Timestamp:   s.now().UTC(),
		ContextData: req.ContextData,
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to publish interaction: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"event_id":         event.ID,
		"user_id":          event.UserID,
		"item_id":          event.ItemID,
		"interaction_type": event.Type,
	}).Debug("Interaction recorded")

	return event, nil
}
