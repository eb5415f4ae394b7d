package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Neo4j          Neo4jConfig          `mapstructure:"neo4j"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Breaker        BreakerConfig        `mapstructure:"breaker"`
	Monitoring     MonitoringConfig     `mapstructure:"monitoring"`
	Security       SecurityConfig       `mapstructure:"security"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig holds the metadata cache and rate limiter instances.
type RedisConfig struct {
	Cache     RedisInstanceConfig `mapstructure:"cache"`
	RateLimit RedisInstanceConfig `mapstructure:"rate_limit"`
}

type RedisInstanceConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type Neo4jConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	GroupID string   `mapstructure:"group_id"`
	Topics  struct {
		Interactions    string `mapstructure:"interactions"`
		InteractionsDLQ string `mapstructure:"interactions_dlq"`
	} `mapstructure:"topics"`
}

type AuthConfig struct {
	Enabled   bool            `mapstructure:"enabled"`
	JWTSecret string          `mapstructure:"jwt_secret"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Default int           `mapstructure:"default"`
	Premium int           `mapstructure:"premium"`
	Window  time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RecommendationConfig carries the feature toggles and every ranking tunable.
// Toggles are read once at startup.
type RecommendationConfig struct {
	EnableCollaborativeFiltering bool `mapstructure:"enable_collaborative_filtering"`
	EnableContentBased           bool `mapstructure:"enable_content_based"`
	EnableHybrid                 bool `mapstructure:"enable_hybrid"`
	EnableTrending               bool `mapstructure:"enable_trending"`

	DefaultLimit  int           `mapstructure:"default_limit"`
	MaxLimit      int           `mapstructure:"max_limit"`
	SignalTimeout time.Duration `mapstructure:"signal_timeout"`

	Collaborative CollaborativeConfig `mapstructure:"collaborative"`
	Content       ContentConfig       `mapstructure:"content"`
	Trending      TrendingConfig      `mapstructure:"trending"`
	Hybrid        HybridConfig        `mapstructure:"hybrid"`
	Caching       CachingConfig       `mapstructure:"caching"`
}

type CollaborativeConfig struct {
	SimilarityThreshold   float64            `mapstructure:"similarity_threshold"`
	MaxNeighbors          int                `mapstructure:"max_neighbors"`
	MinCommonItems        int                `mapstructure:"min_common_items"`
	CandidateUsers        int                `mapstructure:"candidate_users"`
	MinCooccurrence       int                `mapstructure:"min_cooccurrence"`
	CooccurrenceType      string             `mapstructure:"cooccurrence_type"`
	DefaultImplicitWeight float64            `mapstructure:"default_implicit_weight"`
	InteractionWeights    map[string]float64 `mapstructure:"interaction_weights"`
	HistoryLimit          int                `mapstructure:"history_limit"`
}

type ContentConfig struct {
	RatingThreshold  float64 `mapstructure:"rating_threshold"`
	RatingWindow     int     `mapstructure:"rating_window"`
	MinGenreOverlap  int     `mapstructure:"min_genre_overlap"`
	SimilarItemScore float64 `mapstructure:"similar_item_score"`
}

type TrendingConfig struct {
	Window           time.Duration `mapstructure:"window"`
	InteractionTypes []string      `mapstructure:"interaction_types"`
}

type HybridConfig struct {
	CollaborativeWeight float64 `mapstructure:"collaborative_weight"`
	ContentWeight       float64 `mapstructure:"content_weight"`
}

type CachingConfig struct {
	MetadataTTL time.Duration `mapstructure:"metadata_ttl"`
}

// BreakerConfig tunes the circuit breaker that guards repository calls.
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

type SecurityConfig struct {
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	setDefaults(v)

	// Environment variable overrides, e.g. RECOMMENDATION_ENABLE_HYBRID=false
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultRecommendationConfig returns the ranking defaults without touching viper.
func DefaultRecommendationConfig() RecommendationConfig {
	return RecommendationConfig{
		EnableCollaborativeFiltering: true,
		EnableContentBased:           true,
		EnableHybrid:                 true,
		EnableTrending:               true,
		DefaultLimit:                 10,
		MaxLimit:                     100,
		SignalTimeout:                2 * time.Second,
		Collaborative: CollaborativeConfig{
			SimilarityThreshold:   0.1,
			MaxNeighbors:          50,
			MinCommonItems:        2,
			CandidateUsers:        500,
			MinCooccurrence:       3,
			CooccurrenceType:      "view",
			DefaultImplicitWeight: 1.0,
			InteractionWeights:    defaultInteractionWeights(),
			HistoryLimit:          500,
		},
		Content: ContentConfig{
			RatingThreshold:  3.5,
			RatingWindow:     20,
			MinGenreOverlap:  1,
			SimilarItemScore: 0.9,
		},
		Trending: TrendingConfig{
			Window:           7 * 24 * time.Hour,
			InteractionTypes: []string{"view", "rating"},
		},
		Hybrid: HybridConfig{
			CollaborativeWeight: 0.6,
			ContentWeight:       0.4,
		},
		Caching: CachingConfig{
			MetadataTTL: time.Hour,
		},
	}
}

func defaultInteractionWeights() map[string]float64 {
	return map[string]float64{
		"view":        1.0,
		"click":       0.5,
		"watch_time":  2.0,
		"like":        4.0,
		"add_to_list": 3.0,
		"dislike":     1.0,
	}
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "development")

	// Database defaults
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.max_idle_time", "15m")
	v.SetDefault("database.max_lifetime", "1h")
	v.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	v.SetDefault("redis.cache.max_retries", 3)
	v.SetDefault("redis.cache.pool_size", 10)
	v.SetDefault("redis.cache.timeout", "2s")
	v.SetDefault("redis.rate_limit.max_retries", 3)
	v.SetDefault("redis.rate_limit.pool_size", 5)
	v.SetDefault("redis.rate_limit.timeout", "2s")

	// Kafka defaults
	v.SetDefault("kafka.group_id", "interaction-ingest")
	v.SetDefault("kafka.topics.interactions", "user-interactions")
	v.SetDefault("kafka.topics.interactions_dlq", "user-interactions-dlq")

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.rate_limit.enabled", true)
	v.SetDefault("auth.rate_limit.default", 1000)
	v.SetDefault("auth.rate_limit.premium", 10000)
	v.SetDefault("auth.rate_limit.window", "1h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Recommendation defaults
	rec := DefaultRecommendationConfig()
	v.SetDefault("recommendation.enable_collaborative_filtering", rec.EnableCollaborativeFiltering)
	v.SetDefault("recommendation.enable_content_based", rec.EnableContentBased)
	v.SetDefault("recommendation.enable_hybrid", rec.EnableHybrid)
	v.SetDefault("recommendation.enable_trending", rec.EnableTrending)
	v.SetDefault("recommendation.default_limit", rec.DefaultLimit)
	v.SetDefault("recommendation.max_limit", rec.MaxLimit)
	v.SetDefault("recommendation.signal_timeout", rec.SignalTimeout.String())

	v.SetDefault("recommendation.collaborative.similarity_threshold", rec.Collaborative.SimilarityThreshold)
	v.SetDefault("recommendation.collaborative.max_neighbors", rec.Collaborative.MaxNeighbors)
	v.SetDefault("recommendation.collaborative.min_common_items", rec.Collaborative.MinCommonItems)
	v.SetDefault("recommendation.collaborative.candidate_users", rec.Collaborative.CandidateUsers)
	v.SetDefault("recommendation.collaborative.min_cooccurrence", rec.Collaborative.MinCooccurrence)
	v.SetDefault("recommendation.collaborative.cooccurrence_type", rec.Collaborative.CooccurrenceType)
	v.SetDefault("recommendation.collaborative.default_implicit_weight", rec.Collaborative.DefaultImplicitWeight)
	v.SetDefault("recommendation.collaborative.interaction_weights", rec.Collaborative.InteractionWeights)
	v.SetDefault("recommendation.collaborative.history_limit", rec.Collaborative.HistoryLimit)

	v.SetDefault("recommendation.content.rating_threshold", rec.Content.RatingThreshold)
	v.SetDefault("recommendation.content.rating_window", rec.Content.RatingWindow)
	v.SetDefault("recommendation.content.min_genre_overlap", rec.Content.MinGenreOverlap)
	v.SetDefault("recommendation.content.similar_item_score", rec.Content.SimilarItemScore)

	v.SetDefault("recommendation.trending.window", rec.Trending.Window.String())
	v.SetDefault("recommendation.trending.interaction_types", rec.Trending.InteractionTypes)

	v.SetDefault("recommendation.hybrid.collaborative_weight", rec.Hybrid.CollaborativeWeight)
	v.SetDefault("recommendation.hybrid.content_weight", rec.Hybrid.ContentWeight)

	v.SetDefault("recommendation.caching.metadata_ttl", rec.Caching.MetadataTTL.String())

	// Circuit breaker defaults
	v.SetDefault("breaker.max_requests", 3)
	v.SetDefault("breaker.interval", "30s")
	v.SetDefault("breaker.timeout", "10s")
	v.SetDefault("breaker.failure_threshold", 5)

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("security.cors.allowed_headers", []string{"*"})
}
