package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/internal/messaging"
	"github.com/temcen/reelrank/internal/validation"
	"github.com/temcen/reelrank/pkg/models"
)

// IngestionWorker consumes interaction messages, checks them against the
// event schema, appends them to PostgreSQL and mirrors them into the graph.
type IngestionWorker struct {
	consumer  MessageConsumer
	validator *validation.SchemaValidator
	store     InteractionWriter
	graph     GraphWriter
	metrics   *RecommendationMetrics
	logger    *logrus.Logger
}

func NewIngestionWorker(
	consumer MessageConsumer,
	validator *validation.SchemaValidator,
	store InteractionWriter,
	graph GraphWriter,
	metrics *RecommendationMetrics,
	logger *logrus.Logger,
) *IngestionWorker {
	return &IngestionWorker{
		consumer:  consumer,
		validator: validator,
		store:     store,
		graph:     graph,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled.
func (w *IngestionWorker) Run(ctx context.Context) error {
	w.logger.Info("Interaction ingestion worker started")
	err := w.consumer.Consume(ctx, w.Handle)
	w.logger.Info("Interaction ingestion worker stopped")
	return err
}

// Handle processes one message. Schema and decode failures are permanent;
// store failures are returned for retry. Appends are idempotent on event id.
func (w *IngestionWorker) Handle(ctx context.Context, msg kafka.Message) error {
	if result := w.validator.ValidateInteractionEvent(msg.Value); !result.Valid {
		w.metrics.Ingested("invalid")
		return fmt.Errorf("%w: %v", messaging.ErrPermanent, result.Err())
	}

	var event models.InteractionEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.metrics.Ingested("invalid")
		return fmt.Errorf("%w: failed to decode interaction: %v", messaging.ErrPermanent, err)
	}

	if err := w.store.Append(ctx, &event); err != nil {
		w.metrics.Ingested("error")
		return fmt.Errorf("failed to store interaction %s: %w", event.ID, err)
	}

	if err := w.graph.UpsertInteraction(ctx, &event); err != nil {
		w.metrics.Ingested("error")
		return fmt.Errorf("failed to mirror interaction %s into graph: %w", event.ID, err)
	}

	w.metrics.Ingested("stored")
	w.logger.WithFields(logrus.Fields{
		"event_id":         event.ID,
		"user_id":          event.UserID,
		"interaction_type": event.Type,
	}).Debug("Interaction ingested")

	return nil
}
