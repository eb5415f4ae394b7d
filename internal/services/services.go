package services

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/internal/config"
	"github.com/temcen/reelrank/internal/database"
	"github.com/temcen/reelrank/internal/messaging"
	"github.com/temcen/reelrank/internal/repository"
	"github.com/temcen/reelrank/internal/validation"
)

type Services struct {
	Auth            *AuthService
	Health          *HealthService
	RateLimit       *RateLimitService
	InteractionBus  *messaging.InteractionBus
	Interactions    *InteractionService
	Ingestion       *IngestionWorker
	Recommendations *RecommendationFacade
	Validator       *validation.SchemaValidator
	Metrics         *RecommendationMetrics
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database, registerer prometheus.Registerer) (*Services, error) {
	validator, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to load schemas: %w", err)
	}

	metrics := NewRecommendationMetrics(registerer, logger)

	// Repositories
	pgBreaker := repository.NewBreaker("postgresql", cfg.Breaker, logger)
	graphBreaker := repository.NewBreaker("neo4j", cfg.Breaker, logger)

	interactionRepo := repository.NewInteractionRepository(db.PG, pgBreaker, logger)
	contentRepo := repository.NewCachedContentRepository(
		repository.NewContentRepository(db.PG, pgBreaker, logger),
		db.Redis.Cache, cfg.Recommendation.Caching.MetadataTTL, logger,
	)
	graph := repository.NewInteractionGraph(db.Neo4j, graphBreaker, logger)

	// Ranking core
	rec := &cfg.Recommendation
	collaborative := NewCollaborativeEngine(interactionRepo, graph, rec, metrics, logger)
	content := NewContentEngine(interactionRepo, contentRepo, rec, metrics, logger)
	trending := NewTrendingEngine(interactionRepo, contentRepo, rec, metrics, logger)
	ranker := NewRanker(collaborative, content, rec, logger)
	facade := NewRecommendationFacade(collaborative, content, ranker, trending, rec, metrics, logger)

	// Interaction ingestion
	bus := messaging.NewInteractionBus(cfg, logger)
	interactions := NewInteractionService(bus, logger)
	ingestion := NewIngestionWorker(bus, validator, interactionRepo, graph, metrics, logger)

	health := NewHealthService(
		map[string]HealthCheck{
			"postgresql": db.PG.Ping,
		},
		map[string]HealthCheck{
			"neo4j": graph.Ping,
			"redis_cache": func(ctx context.Context) error {
				return db.Redis.Cache.Ping(ctx).Err()
			},
			"redis_rate_limit": func(ctx context.Context) error {
				return db.Redis.RateLimit.Ping(ctx).Err()
			},
		},
		func() map[string]interface{} {
			return map[string]interface{}{
				"breakers": map[string]string{
					"postgresql": pgBreaker.State(),
					"neo4j":      graphBreaker.State(),
				},
				"interaction_consumer": bus.GetMetrics(),
			}
		},
		registerer, logger,
	)

	return &Services{
		Auth:            NewAuthService(cfg, logger),
		Health:          health,
		RateLimit:       NewRateLimitService(cfg, logger, db.Redis.RateLimit),
		InteractionBus:  bus,
		Interactions:    interactions,
		Ingestion:       ingestion,
		Recommendations: facade,
		Validator:       validator,
		Metrics:         metrics,
	}, nil
}

func (s *Services) Close() error {
	return s.InteractionBus.Close()
}
