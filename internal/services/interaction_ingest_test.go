package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/reelrank/internal/messaging"
	"github.com/temcen/reelrank/internal/validation"
	"github.com/temcen/reelrank/pkg/models"
)

type ingestFixture struct {
	worker   *IngestionWorker
	consumer *MockMessageConsumer
	store    *MockInteractionWriter
	graph    *MockGraphWriter
	metrics  *RecommendationMetrics
}

func newIngestFixture(t *testing.T) ingestFixture {
	t.Helper()

	validator, err := validation.NewSchemaValidator()
	require.NoError(t, err)

	f := ingestFixture{
		consumer: new(MockMessageConsumer),
		store:    new(MockInteractionWriter),
		graph:    new(MockGraphWriter),
		metrics:  NewRecommendationMetrics(prometheus.NewRegistry(), newTestLogger()),
	}
	f.worker = NewIngestionWorker(f.consumer, validator, f.store, f.graph, f.metrics, newTestLogger())
	return f
}

func eventMessage(t *testing.T, event *models.InteractionEvent) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(event.UserID.String()), Value: payload}
}

func sampleEvent() *models.InteractionEvent {
	return &models.InteractionEvent{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		ItemID:    uuid.New(),
		ItemType:  models.ItemTypeMovie,
		Type:      models.InteractionRating,
		Value:     floatPtr(4),
		Timestamp: time.Date(2024, 2, 10, 20, 15, 0, 0, time.UTC),
	}
}

func sameEvent(id uuid.UUID) interface{} {
	return mock.MatchedBy(func(e *models.InteractionEvent) bool { return e.ID == id })
}

func TestIngestionWorker_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("stores and mirrors valid event", func(t *testing.T) {
		f := newIngestFixture(t)
		event := sampleEvent()

		f.store.On("Append", mock.Anything, sameEvent(event.ID)).Return(nil)
		f.graph.On("UpsertInteraction", mock.Anything, sameEvent(event.ID)).Return(nil)

		err := f.worker.Handle(ctx, eventMessage(t, event))

		require.NoError(t, err)
		f.store.AssertExpectations(t)
		f.graph.AssertExpectations(t)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ingested.WithLabelValues("stored")))
	})

	t.Run("schema violation is permanent", func(t *testing.T) {
		f := newIngestFixture(t)
		event := sampleEvent()
		event.Value = floatPtr(9)

		err := f.worker.Handle(ctx, eventMessage(t, event))

		assert.ErrorIs(t, err, messaging.ErrPermanent)
		f.store.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ingested.WithLabelValues("invalid")))
	})

	t.Run("malformed payload is permanent", func(t *testing.T) {
		f := newIngestFixture(t)

		err := f.worker.Handle(ctx, kafka.Message{Value: []byte(`{"id":`)})

		assert.ErrorIs(t, err, messaging.ErrPermanent)
	})

	t.Run("store failure is retryable", func(t *testing.T) {
		f := newIngestFixture(t)
		event := sampleEvent()

		f.store.On("Append", mock.Anything, sameEvent(event.ID)).Return(errors.New("connection reset"))

		err := f.worker.Handle(ctx, eventMessage(t, event))

		require.Error(t, err)
		assert.NotErrorIs(t, err, messaging.ErrPermanent)
		f.graph.AssertNotCalled(t, "UpsertInteraction", mock.Anything, mock.Anything)
	})

	t.Run("graph failure is retryable", func(t *testing.T) {
		f := newIngestFixture(t)
		event := sampleEvent()

		f.store.On("Append", mock.Anything, sameEvent(event.ID)).Return(nil)
		f.graph.On("UpsertInteraction", mock.Anything, sameEvent(event.ID)).Return(errors.New("neo4j unavailable"))

		err := f.worker.Handle(ctx, eventMessage(t, event))

		require.Error(t, err)
		assert.NotErrorIs(t, err, messaging.ErrPermanent)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ingested.WithLabelValues("error")))
	})
}

func TestIngestionWorker_Run(t *testing.T) {
	f := newIngestFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.consumer.On("Consume", ctx, mock.Anything).Return(context.Canceled)

	err := f.worker.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	f.consumer.AssertExpectations(t)
}
