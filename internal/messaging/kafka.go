package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/internal/config"
	"github.com/temcen/reelrank/pkg/models"
)

// ErrPermanent marks a handler failure that retrying cannot fix. Such
// messages go straight to the dead letter topic.
var ErrPermanent = errors.New("permanent message failure")

// Handler processes one interaction message.
type Handler func(ctx context.Context, msg kafka.Message) error

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Stats() kafka.ReaderStats
	Close() error
}

// InteractionBus carries interaction events from the HTTP API to the
// ingestion worker, with a dead letter topic for undeliverable messages.
type InteractionBus struct {
	writer    messageWriter
	reader    messageReader
	dlqWriter messageWriter
	topic     string
	dlqTopic  string
	logger    *logrus.Logger

	maxRetries int
	baseDelay  time.Duration
}

func NewInteractionBus(cfg *config.Config, logger *logrus.Logger) *InteractionBus {
	topic := cfg.Kafka.Topics.Interactions
	dlqTopic := cfg.Kafka.Topics.InteractionsDLQ

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Keyed by user so a user's events stay ordered
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       topic,
		GroupID:     cfg.Kafka.GroupID,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		StartOffset: kafka.FirstOffset,
	})

	dlqWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        dlqTopic,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return newInteractionBus(writer, reader, dlqWriter, topic, dlqTopic, logger)
}

func newInteractionBus(writer messageWriter, reader messageReader, dlqWriter messageWriter, topic, dlqTopic string, logger *logrus.Logger) *InteractionBus {
	return &InteractionBus{
		writer:     writer,
		reader:     reader,
		dlqWriter:  dlqWriter,
		topic:      topic,
		dlqTopic:   dlqTopic,
		logger:     logger,
		maxRetries: 3,
		baseDelay:  time.Second,
	}
}

// Publish writes an event keyed by user id.
func (b *InteractionBus) Publish(ctx context.Context, event *models.InteractionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.UserID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.ID.String())},
			{Key: "interaction_type", Value: []byte(event.Type)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := b.writer.WriteMessages(ctx, message); err != nil {
		b.logger.WithError(err).WithField("event_id", event.ID).Error("Failed to publish interaction to Kafka")
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	b.logger.WithFields(logrus.Fields{
		"event_id":         event.ID,
		"interaction_type": event.Type,
		"topic":            b.topic,
	}).Debug("Interaction published to Kafka")

	return nil
}

// Consume runs handler for every message until ctx is cancelled. Offsets are
// committed once a message is handled or dead-lettered.
func (b *InteractionBus) Consume(ctx context.Context, handler Handler) error {
	for {
		message, err := b.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.WithError(err).Error("Failed to read message from Kafka")
			continue
		}

		if err := b.processWithRetry(ctx, message, handler); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			b.logger.WithError(err).WithField("offset", message.Offset).Error("Failed to process interaction message")
			if dlqErr := b.sendToDLQ(ctx, message, err); dlqErr != nil {
				// Leave uncommitted so the message is redelivered
				b.logger.WithError(dlqErr).Error("Failed to send message to DLQ")
				continue
			}
		}

		if err := b.reader.CommitMessages(ctx, message); err != nil {
			b.logger.WithError(err).WithField("offset", message.Offset).Warn("Failed to commit Kafka offset")
		}
	}
}

func (b *InteractionBus) processWithRetry(ctx context.Context, message kafka.Message, handler Handler) error {
	var lastErr error

	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			delay := b.baseDelay * time.Duration(1<<uint(attempt-1))
			b.logger.WithFields(logrus.Fields{
				"offset":  message.Offset,
				"attempt": attempt,
				"delay":   delay,
			}).Info("Retrying message processing")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = handler(ctx, message)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, ErrPermanent) {
			return lastErr
		}

		b.logger.WithError(lastErr).WithFields(logrus.Fields{
			"offset":  message.Offset,
			"attempt": attempt,
		}).Warn("Message processing failed")
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (b *InteractionBus) sendToDLQ(ctx context.Context, message kafka.Message, cause error) error {
	headers := append([]kafka.Header{}, message.Headers...)
	headers = append(headers,
		kafka.Header{Key: "original_topic", Value: []byte(b.topic)},
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
		kafka.Header{Key: "dlq_timestamp", Value: []byte(time.Now().Format(time.RFC3339))},
	)

	dlqMessage := kafka.Message{
		Key:     message.Key,
		Value:   message.Value,
		Headers: headers,
	}

	if err := b.dlqWriter.WriteMessages(ctx, dlqMessage); err != nil {
		return fmt.Errorf("failed to write message to DLQ: %w", err)
	}

	b.logger.WithFields(logrus.Fields{
		"offset": message.Offset,
		"topic":  b.dlqTopic,
		"error":  cause.Error(),
	}).Warn("Message sent to DLQ")

	return nil
}

func (b *InteractionBus) Close() error {
	var errs []error

	if err := b.writer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
	}

	if err := b.reader.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
	}

	if err := b.dlqWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close DLQ writer: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing interaction bus: %v", errs)
	}

	return nil
}

// GetMetrics returns consumer statistics for the health endpoint.
func (b *InteractionBus) GetMetrics() map[string]interface{} {
	stats := b.reader.Stats()
	return map[string]interface{}{
		"consumer_lag":    stats.Lag,
		"consumer_offset": stats.Offset,
		"messages_read":   stats.Messages,
		"rebalances":      stats.Rebalances,
		"errors":          stats.Errors,
	}
}
