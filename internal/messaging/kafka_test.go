package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/reelrank/pkg/models"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

// fakeReader serves queued messages, then cancels the consumer.
type fakeReader struct {
	queue     []kafka.Message
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Stats() kafka.ReaderStats { return kafka.ReaderStats{Messages: int64(len(r.committed))} }

func (r *fakeReader) Close() error { return nil }

func newTestBus(reader *fakeReader) (*InteractionBus, *fakeWriter, *fakeWriter) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	writer := &fakeWriter{}
	dlq := &fakeWriter{}
	bus := newInteractionBus(writer, reader, dlq, "user-interactions", "user-interactions-dlq", logger)
	bus.baseDelay = time.Millisecond
	return bus, writer, dlq
}

func TestInteractionBus_Publish(t *testing.T) {
	bus, writer, _ := newTestBus(&fakeReader{})

	rating := 4.0
	event := &models.InteractionEvent{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		ItemID:    uuid.New(),
		ItemType:  models.ItemTypeMovie,
		Type:      models.InteractionRating,
		Value:     &rating,
		Timestamp: time.Now().UTC(),
	}

	require.NoError(t, bus.Publish(context.Background(), event))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, []byte(event.UserID.String()), msg.Key)

	var decoded models.InteractionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, models.InteractionRating, decoded.Type)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, event.ID.String(), headers["event_id"])
	assert.Equal(t, "rating", headers["interaction_type"])
}

func TestInteractionBus_PublishError(t *testing.T) {
	bus, writer, _ := newTestBus(&fakeReader{})
	writer.err = errors.New("broker unavailable")

	err := bus.Publish(context.Background(), &models.InteractionEvent{ID: uuid.New()})
	assert.ErrorIs(t, err, writer.err)
}

func TestInteractionBus_Consume(t *testing.T) {
	t.Run("handled messages are committed", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		reader := &fakeReader{
			queue:  []kafka.Message{{Offset: 1, Value: []byte("a")}, {Offset: 2, Value: []byte("b")}},
			cancel: cancel,
		}
		bus, _, dlq := newTestBus(reader)

		var seen []string
		err := bus.Consume(ctx, func(_ context.Context, msg kafka.Message) error {
			seen = append(seen, string(msg.Value))
			return nil
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []string{"a", "b"}, seen)
		assert.Len(t, reader.committed, 2)
		assert.Empty(t, dlq.messages)
	})

	t.Run("permanent failure skips retries", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		reader := &fakeReader{
			queue:  []kafka.Message{{Offset: 7, Key: []byte("k"), Value: []byte("{")}},
			cancel: cancel,
		}
		bus, _, dlq := newTestBus(reader)

		calls := 0
		_ = bus.Consume(ctx, func(_ context.Context, _ kafka.Message) error {
			calls++
			return fmt.Errorf("%w: bad json", ErrPermanent)
		})

		assert.Equal(t, 1, calls)
		require.Len(t, dlq.messages, 1)
		assert.Equal(t, []byte("{"), dlq.messages[0].Value)
		assert.Len(t, reader.committed, 1)
	})

	t.Run("transient failure retries then dead-letters", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		reader := &fakeReader{
			queue:  []kafka.Message{{Offset: 9, Value: []byte("x")}},
			cancel: cancel,
		}
		bus, _, dlq := newTestBus(reader)

		calls := 0
		_ = bus.Consume(ctx, func(_ context.Context, _ kafka.Message) error {
			calls++
			return errors.New("postgres down")
		})

		assert.Equal(t, bus.maxRetries+1, calls)
		require.Len(t, dlq.messages, 1)

		headers := map[string]string{}
		for _, h := range dlq.messages[0].Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, "user-interactions", headers["original_topic"])
		assert.Contains(t, headers["error"], "postgres down")
	})

	t.Run("recovers on a later attempt", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		reader := &fakeReader{
			queue:  []kafka.Message{{Offset: 3}},
			cancel: cancel,
		}
		bus, _, dlq := newTestBus(reader)

		calls := 0
		_ = bus.Consume(ctx, func(_ context.Context, _ kafka.Message) error {
			calls++
			if calls < 2 {
				return errors.New("flaky")
			}
			return nil
		})

		assert.Equal(t, 2, calls)
		assert.Empty(t, dlq.messages)
		assert.Len(t, reader.committed, 1)
	})
}

func TestInteractionBus_GetMetrics(t *testing.T) {
	bus, _, _ := newTestBus(&fakeReader{})
	metrics := bus.GetMetrics()

	assert.Contains(t, metrics, "consumer_lag")
	assert.Contains(t, metrics, "messages_read")
}
