package services

import (
	"context"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type HealthService struct {
	critical    map[string]HealthCheck
	nonCritical map[string]HealthCheck
	details     func() map[string]interface{}
	logger      *logrus.Logger

	healthCheckStatus *prometheus.GaugeVec
	lastHealthCheck   *prometheus.GaugeVec
}

// Overall and per-dependency health states.
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

type HealthStatus struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Services    map[string]string      `json:"services"`
	Critical    []string               `json:"critical_failures,omitempty"`
	NonCritical []string               `json:"non_critical_failures,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// NewHealthService takes the dependency probes. A failing critical probe
// makes the service unhealthy; any other failure only degrades it, since
// recommendations keep falling back to lower tiers.
func NewHealthService(
	critical, nonCritical map[string]HealthCheck,
	details func() map[string]interface{},
	registerer prometheus.Registerer,
	logger *logrus.Logger,
) *HealthService {
	hs := &HealthService{
		critical:    critical,
		nonCritical: nonCritical,
		details:     details,
		logger:      logger,
	}

	hs.healthCheckStatus = registerCollector(registerer, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"}), logger)

	hs.lastHealthCheck = registerCollector(registerer, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_timestamp",
		Help: "Timestamp of last health check",
	}, []string{"service"}), logger)

	return hs
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Timestamp: time.Now(),
		Services:  make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status.Critical = s.run(ctx, s.critical, status, logrus.ErrorLevel)
	status.NonCritical = s.run(ctx, s.nonCritical, status, logrus.WarnLevel)

	switch {
	case len(status.Critical) > 0:
		status.Status = HealthUnhealthy
	case len(status.NonCritical) > 0:
		status.Status = HealthDegraded
	default:
		status.Status = HealthHealthy
	}

	if s.details != nil {
		status.Details = s.details()
	}

	return status
}

func (s *HealthService) run(ctx context.Context, checks map[string]HealthCheck, status *HealthStatus, level logrus.Level) []string {
	var failed []string
	for name, check := range checks {
		if err := check(ctx); err != nil {
			status.Services[name] = HealthUnhealthy
			failed = append(failed, name)
			s.logger.WithError(err).WithField("service", name).Log(level, "Dependency is unhealthy")
			s.UpdateHealthMetrics(name, false)
			continue
		}
		status.Services[name] = HealthHealthy
		s.UpdateHealthMetrics(name, true)
	}
	sort.Strings(failed)
	return failed
}

// UpdateHealthMetrics updates health check metrics
func (s *HealthService) UpdateHealthMetrics(serviceName string, healthy bool) {
	if healthy {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(1)
	} else {
		s.healthCheckStatus.WithLabelValues(serviceName).Set(0)
	}
	s.lastHealthCheck.WithLabelValues(serviceName).Set(float64(time.Now().Unix()))
}
