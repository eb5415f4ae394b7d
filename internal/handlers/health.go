package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/internal/services"
)

// healthResponse adds whether recommendations are still being served. A
// degraded service answers from lower tiers, an unhealthy one cannot.
type healthResponse struct {
	*services.HealthStatus
	Serving bool `json:"serving"`
}

var healthHTTPStatus = map[string]int{
	services.HealthHealthy:   http.StatusOK,
	services.HealthDegraded:  http.StatusOK,
	services.HealthUnhealthy: http.StatusServiceUnavailable,
}

type HealthHandler struct {
	checker services.HealthChecker
	logger  *logrus.Logger
}

func NewHealthHandler(logger *logrus.Logger, checker services.HealthChecker) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		logger:  logger,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	status := h.checker.CheckHealth(c.Request.Context())

	code, known := healthHTTPStatus[status.Status]
	if !known {
		code = http.StatusInternalServerError
	}

	if status.Status != services.HealthHealthy {
		h.logger.WithFields(logrus.Fields{
			"status":                status.Status,
			"critical_failures":     status.Critical,
			"non_critical_failures": status.NonCritical,
		}).Warn("Health check reported failures")
	}

	c.JSON(code, healthResponse{
		HealthStatus: status,
		Serving:      code == http.StatusOK,
	})
}
