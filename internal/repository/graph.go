package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/pkg/models"
)

// InteractionEdge is one (user)-[:INTERACTED]->(content) relationship. Value
// holds the largest value seen for that interaction type.
type InteractionEdge struct {
	UserID   uuid.UUID
	ItemID   uuid.UUID
	ItemType string
	Type     models.InteractionType
	Value    *float64
}

// InteractionGraph keeps the user/content interaction graph in Neo4j and
// serves the neighbourhood reads of user-based collaborative filtering.
type InteractionGraph struct {
	driver  neo4j.DriverWithContext
	breaker *Breaker
	logger  *logrus.Logger
}

func NewInteractionGraph(driver neo4j.DriverWithContext, breaker *Breaker, logger *logrus.Logger) *InteractionGraph {
	return &InteractionGraph{
		driver:  driver,
		breaker: breaker,
		logger:  logger,
	}
}

// NeighborhoodInteractions returns every edge of up to maxUsers users who
// share at least one item with userID, most overlapping users first.
func (g *InteractionGraph) NeighborhoodInteractions(ctx context.Context, userID uuid.UUID, maxUsers int) ([]InteractionEdge, error) {
	cypher := `
		MATCH (target:User {id: $user_id})-[:INTERACTED]->(c:Content)<-[:INTERACTED]-(other:User)
		WHERE other.id <> $user_id
		WITH other, count(DISTINCT c) AS shared
		ORDER BY shared DESC
		LIMIT $max_users
		MATCH (other)-[r:INTERACTED]->(item:Content)
		RETURN other.id AS user_id, item.id AS item_id, r.item_type AS item_type,
			r.type AS interaction_type, r.value AS value`

	return guard(g.breaker, func() ([]InteractionEdge, error) {
		session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
		defer session.Close(ctx)

		result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			result, err := tx.Run(ctx, cypher, map[string]interface{}{
				"user_id":   userID.String(),
				"max_users": maxUsers,
			})
			if err != nil {
				return nil, err
			}

			var edges []InteractionEdge
			for result.Next(ctx) {
				edge, ok := edgeFromRecord(result.Record())
				if !ok {
					g.logger.WithField("user_id", userID).Debug("Skipping malformed interaction edge")
					continue
				}
				edges = append(edges, edge)
			}

			return edges, result.Err()
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read interaction neighbourhood: %w", err)
		}

		edges, _ := result.([]InteractionEdge)
		return edges, nil
	})
}

// UpsertInteraction merges the user, content and relationship nodes for an
// event, keeping the maximum value per interaction type.
func (g *InteractionGraph) UpsertInteraction(ctx context.Context, event *models.InteractionEvent) error {
	cypher := `
		MERGE (u:User {id: $user_id})
		MERGE (c:Content {id: $item_id})
		MERGE (u)-[r:INTERACTED {type: $type}]->(c)
		SET r.item_type = $item_type,
			r.count = coalesce(r.count, 0) + 1,
			r.value = CASE
				WHEN $value IS NULL THEN r.value
				WHEN r.value IS NULL OR $value > r.value THEN $value
				ELSE r.value
			END,
			r.updated_at = datetime()`

	params := map[string]interface{}{
		"user_id":   event.UserID.String(),
		"item_id":   event.ItemID.String(),
		"type":      string(event.Type),
		"item_type": event.ItemType,
		"value":     nil,
	}
	if event.Value != nil {
		params["value"] = *event.Value
	}

	_, err := guard(g.breaker, func() (struct{}, error) {
		session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		defer session.Close(ctx)

		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			result, err := tx.Run(ctx, cypher, params)
			if err != nil {
				return nil, err
			}
			return result.Consume(ctx)
		})
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to upsert interaction edge: %w", err)
		}
		return struct{}{}, nil
	})

	return err
}

// Ping verifies the driver can reach the server.
func (g *InteractionGraph) Ping(ctx context.Context) error {
	return g.driver.VerifyConnectivity(ctx)
}

func edgeFromRecord(record *neo4j.Record) (InteractionEdge, bool) {
	var edge InteractionEdge

	userRaw, _ := record.Get("user_id")
	itemRaw, _ := record.Get("item_id")
	typeRaw, _ := record.Get("interaction_type")

	userStr, ok := userRaw.(string)
	if !ok {
		return edge, false
	}
	itemStr, ok := itemRaw.(string)
	if !ok {
		return edge, false
	}
	typeStr, ok := typeRaw.(string)
	if !ok {
		return edge, false
	}

	userID, err := uuid.Parse(userStr)
	if err != nil {
		return edge, false
	}
	itemID, err := uuid.Parse(itemStr)
	if err != nil {
		return edge, false
	}

	edge.UserID = userID
	edge.ItemID = itemID
	edge.Type = models.InteractionType(typeStr)

	if itemType, ok := record.Get("item_type"); ok {
		edge.ItemType, _ = itemType.(string)
	}

	if raw, ok := record.Get("value"); ok {
		switch v := raw.(type) {
		case float64:
			edge.Value = &v
		case int64:
			f := float64(v)
			edge.Value = &f
		}
	}

	return edge, true
}
