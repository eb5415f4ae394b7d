package services

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// RecommendationMetrics records per-engine latency, candidate counts and
// fallback usage. A nil *RecommendationMetrics records nothing.
type RecommendationMetrics struct {
	requests        *prometheus.CounterVec
	engineLatency   *prometheus.HistogramVec
	engineCandidate *prometheus.HistogramVec
	engineFailures  *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	ingested        *prometheus.CounterVec
}

func NewRecommendationMetrics(registerer prometheus.Registerer, logger *logrus.Logger) *RecommendationMetrics {
	m := &RecommendationMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Total number of recommendation requests by operation",
		}, []string{"operation"}),

		engineLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recommendation_engine_latency_seconds",
			Help:    "Signal engine latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"engine", "operation"}),

		engineCandidate: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recommendation_engine_candidates",
			Help:    "Number of candidates produced per engine call",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		}, []string{"engine"}),

		engineFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendation_engine_failures_total",
			Help: "Signal engine calls that degraded to an empty result",
		}, []string{"engine"}),

		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recommendation_fallbacks_total",
			Help: "Fallback tier activations",
		}, []string{"tier"}),

		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interaction_ingest_total",
			Help: "Interaction messages processed by the ingestion worker",
		}, []string{"result"}),
	}

	m.requests = registerCollector(registerer, m.requests, logger)
	m.engineLatency = registerCollector(registerer, m.engineLatency, logger)
	m.engineCandidate = registerCollector(registerer, m.engineCandidate, logger)
	m.engineFailures = registerCollector(registerer, m.engineFailures, logger)
	m.fallbacks = registerCollector(registerer, m.fallbacks, logger)
	m.ingested = registerCollector(registerer, m.ingested, logger)

	return m
}

// registerCollector returns the already registered collector on a duplicate
// registration, so several service instances can share one registry.
func registerCollector[T prometheus.Collector](registerer prometheus.Registerer, c T, logger *logrus.Logger) T {
	if registerer == nil {
		return c
	}

	if err := registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		logger.WithError(err).Warn("Failed to register metric")
	}

	return c
}

func (m *RecommendationMetrics) Request(operation string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation).Inc()
}

func (m *RecommendationMetrics) ObserveEngine(engine, operation string, start time.Time, candidates int) {
	if m == nil {
		return
	}
	m.engineLatency.WithLabelValues(engine, operation).Observe(time.Since(start).Seconds())
	m.engineCandidate.WithLabelValues(engine).Observe(float64(candidates))
}

func (m *RecommendationMetrics) EngineFailure(engine string) {
	if m == nil {
		return
	}
	m.engineFailures.WithLabelValues(engine).Inc()
}

func (m *RecommendationMetrics) Fallback(tier string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(tier).Inc()
}

func (m *RecommendationMetrics) Ingested(result string) {
	if m == nil {
		return
	}
	m.ingested.WithLabelValues(result).Inc()
}
