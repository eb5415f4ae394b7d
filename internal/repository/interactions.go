package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/pkg/models"
)

// InteractionRepository reads and appends interaction events in PostgreSQL.
type InteractionRepository struct {
	db      Querier
	breaker *Breaker
	logger  *logrus.Logger
}

func NewInteractionRepository(db Querier, breaker *Breaker, logger *logrus.Logger) *InteractionRepository {
	return &InteractionRepository{
		db:      db,
		breaker: breaker,
		logger:  logger,
	}
}

// ListInteractions returns a user's events newest-first, narrowed by filter.
func (r *InteractionRepository) ListInteractions(ctx context.Context, userID uuid.UUID, filter models.InteractionFilter) ([]models.InteractionEvent, error) {
	query := `
		SELECT id, user_id, item_id, item_type, interaction_type, value, context_data, timestamp
		FROM user_interactions
		WHERE user_id = $1`

	args := []interface{}{userID}
	argCount := 1

	if filter.Type != "" {
		argCount++
		query += fmt.Sprintf(" AND interaction_type = $%d", argCount)
		args = append(args, string(filter.Type))
	}

	if filter.Since != nil {
		argCount++
		query += fmt.Sprintf(" AND timestamp >= $%d", argCount)
		args = append(args, *filter.Since)
	}

	if filter.Until != nil {
		argCount++
		query += fmt.Sprintf(" AND timestamp <= $%d", argCount)
		args = append(args, *filter.Until)
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		argCount++
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
	}

	return guard(r.breaker, func() ([]models.InteractionEvent, error) {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query interactions: %w", err)
		}
		defer rows.Close()

		var events []models.InteractionEvent
		for rows.Next() {
			var event models.InteractionEvent
			var interactionType string
			var contextJSON []byte

			err := rows.Scan(
				&event.ID,
				&event.UserID,
				&event.ItemID,
				&event.ItemType,
				&interactionType,
				&event.Value,
				&contextJSON,
				&event.Timestamp,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to scan interaction: %w", err)
			}
			event.Type = models.InteractionType(interactionType)

			if len(contextJSON) > 0 {
				if err := json.Unmarshal(contextJSON, &event.ContextData); err != nil {
					r.logger.WithError(err).WithField("interaction_id", event.ID).Warn("Failed to unmarshal interaction context")
				}
			}

			events = append(events, event)
		}

		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read interactions: %w", err)
		}

		return events, nil
	})
}

// Append stores an event. Replays of the same event id are ignored.
func (r *InteractionRepository) Append(ctx context.Context, event *models.InteractionEvent) error {
	var contextJSON []byte
	if len(event.ContextData) > 0 {
		data, err := json.Marshal(event.ContextData)
		if err != nil {
			return fmt.Errorf("failed to marshal interaction context: %w", err)
		}
		contextJSON = data
	}

	query := `
		INSERT INTO user_interactions (id, user_id, item_id, item_type, interaction_type, value, context_data, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	_, err := guard(r.breaker, func() (struct{}, error) {
		_, err := r.db.Exec(ctx, query,
			event.ID,
			event.UserID,
			event.ItemID,
			event.ItemType,
			string(event.Type),
			event.Value,
			contextJSON,
			event.Timestamp,
		)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to insert interaction: %w", err)
		}
		return struct{}{}, nil
	})

	return err
}

// CountCooccurrences counts distinct users who interacted with both itemID
// and each other item, keeping pairs seen by at least minCount users.
func (r *InteractionRepository) CountCooccurrences(ctx context.Context, itemID uuid.UUID, interactionType models.InteractionType, minCount int) ([]models.ItemCount, error) {
	query := `
		SELECT other.item_id, MIN(other.item_type) AS item_type, COUNT(DISTINCT other.user_id) AS co_count
		FROM user_interactions ref
		JOIN user_interactions other
			ON other.user_id = ref.user_id AND other.item_id <> ref.item_id
		WHERE ref.item_id = $1
			AND ref.interaction_type = $2
			AND other.interaction_type = $2
		GROUP BY other.item_id
		HAVING COUNT(DISTINCT other.user_id) >= $3
		ORDER BY co_count DESC, other.item_id`

	return guard(r.breaker, func() ([]models.ItemCount, error) {
		rows, err := r.db.Query(ctx, query, itemID, string(interactionType), minCount)
		if err != nil {
			return nil, fmt.Errorf("failed to count co-occurrences: %w", err)
		}
		defer rows.Close()

		return scanItemCounts(rows)
	})
}

// CountTrendingItems counts interactions of the given types since a cutoff,
// grouped by item, most active first.
func (r *InteractionRepository) CountTrendingItems(ctx context.Context, types []models.InteractionType, since time.Time, limit int) ([]models.ItemCount, error) {
	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}

	query := `
		SELECT item_id, MIN(item_type) AS item_type, COUNT(*) AS interaction_count
		FROM user_interactions
		WHERE interaction_type = ANY($1) AND timestamp >= $2
		GROUP BY item_id
		ORDER BY interaction_count DESC, item_id
		LIMIT $3`

	return guard(r.breaker, func() ([]models.ItemCount, error) {
		rows, err := r.db.Query(ctx, query, typeNames, since, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to count trending items: %w", err)
		}
		defer rows.Close()

		return scanItemCounts(rows)
	})
}

// InteractedItemIDs returns every item the user has any event for, over the
// whole history.
func (r *InteractionRepository) InteractedItemIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT item_id FROM user_interactions WHERE user_id = $1`

	return guard(r.breaker, func() ([]uuid.UUID, error) {
		rows, err := r.db.Query(ctx, query, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to list interacted items: %w", err)
		}
		defer rows.Close()

		var ids []uuid.UUID
		for rows.Next() {
			var id uuid.UUID
			if err := rows.Scan(&id); err != nil {
				return nil, fmt.Errorf("failed to scan interacted item: %w", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read interacted items: %w", err)
		}

		return ids, nil
	})
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanItemCounts(rows rowScanner) ([]models.ItemCount, error) {
	var counts []models.ItemCount
	for rows.Next() {
		var ic models.ItemCount
		var count int64
		if err := rows.Scan(&ic.ItemID, &ic.ItemType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan item count: %w", err)
		}
		ic.Count = int(count)
		counts = append(counts, ic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read item counts: %w", err)
	}

	return counts, nil
}
