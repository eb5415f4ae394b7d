package services

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHealthService_CheckHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name        string
		critical    map[string]HealthCheck
		nonCritical map[string]HealthCheck
		status      string
	}{
		{
			name:        "all healthy",
			critical:    map[string]HealthCheck{"postgresql": ok},
			nonCritical: map[string]HealthCheck{"neo4j": ok, "redis_cache": ok},
			status:      "healthy",
		},
		{
			name:        "graph down degrades",
			critical:    map[string]HealthCheck{"postgresql": ok},
			nonCritical: map[string]HealthCheck{"neo4j": down, "redis_cache": ok},
			status:      "degraded",
		},
		{
			name:        "postgres down is unhealthy",
			critical:    map[string]HealthCheck{"postgresql": down},
			nonCritical: map[string]HealthCheck{"neo4j": down},
			status:      "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := prometheus.NewRegistry()
			hs := NewHealthService(tt.critical, tt.nonCritical, nil, registry, newTestLogger())

			status := hs.CheckHealth(context.Background())

			assert.Equal(t, tt.status, status.Status)
			assert.Len(t, status.Services, len(tt.critical)+len(tt.nonCritical))
			for name := range tt.critical {
				assert.Contains(t, status.Services, name)
			}
		})
	}
}

func TestHealthService_DetailsAndMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	hs := NewHealthService(
		map[string]HealthCheck{"postgresql": func(context.Context) error { return nil }},
		map[string]HealthCheck{"neo4j": func(context.Context) error { return errors.New("timeout") }},
		func() map[string]interface{} {
			return map[string]interface{}{"breakers": map[string]string{"postgresql": "closed"}}
		},
		registry,
		newTestLogger(),
	)

	status := hs.CheckHealth(context.Background())

	assert.Equal(t, []string{"neo4j"}, status.NonCritical)
	assert.Empty(t, status.Critical)
	assert.Contains(t, status.Details, "breakers")
	assert.Equal(t, 1.0, testutil.ToFloat64(hs.healthCheckStatus.WithLabelValues("postgresql")))
	assert.Equal(t, 0.0, testutil.ToFloat64(hs.healthCheckStatus.WithLabelValues("neo4j")))
}
