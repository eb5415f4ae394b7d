package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/internal/services"
	"github.com/temcen/reelrank/pkg/models"
)

type InteractionHandler struct {
	logger    *logrus.Logger
	recorder  services.InteractionRecorder
	validator *validator.Validate
}

func NewInteractionHandler(logger *logrus.Logger, recorder services.InteractionRecorder) *InteractionHandler {
	return &InteractionHandler{
		logger:    logger,
		recorder:  recorder,
		validator: validator.New(),
	}
}

// Record accepts an interaction and queues it for ingestion.
func (h *InteractionHandler) Record(c *gin.Context) {
	var req models.RecordInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Debug("Failed to bind interaction request")
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		h.logger.WithError(err).Debug("Validation failed for interaction")
		respondError(c, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	event, err := h.recorder.Record(c.Request.Context(), &req)
	if errors.Is(err, services.ErrInvalidInteraction) {
		respondError(c, http.StatusBadRequest, "INVALID_INTERACTION", err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("user_id", req.UserID).Error("Failed to record interaction")
		respondError(c, http.StatusServiceUnavailable, "INTERACTION_FAILED", "Failed to record interaction")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"data":    event,
		"message": "Interaction accepted",
	})
}
