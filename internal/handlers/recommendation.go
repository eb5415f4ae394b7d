package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/internal/config"
	"github.com/temcen/reelrank/internal/services"
	"github.com/temcen/reelrank/pkg/models"
)

type RecommendationHandler struct {
	recommender services.Recommender
	config      *config.RecommendationConfig
	logger      *logrus.Logger
}

func NewRecommendationHandler(
	recommender services.Recommender,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		config:      cfg,
		logger:      logger,
	}
}

// ForUser handles GET /recommendations/users/:userId.
func (h *RecommendationHandler) ForUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_USER_ID", "Invalid user ID format")
		return
	}

	limit, ok := h.parseLimit(c)
	if !ok {
		return
	}

	candidates := h.recommender.GetRecommendationsForUser(c.Request.Context(), userID, limit)

	h.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"limit":   limit,
		"results": len(candidates),
	}).Debug("Served user recommendations")

	c.JSON(http.StatusOK, newResponse(candidates, &userID, nil))
}

// Similar handles GET /recommendations/items/:itemId/similar.
func (h *RecommendationHandler) Similar(c *gin.Context) {
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ITEM_ID", "Invalid item ID format")
		return
	}

	limit, ok := h.parseLimit(c)
	if !ok {
		return
	}

	candidates := h.recommender.GetSimilarContent(c.Request.Context(), itemID, limit)
	c.JSON(http.StatusOK, newResponse(candidates, nil, &itemID))
}

func (h *RecommendationHandler) Trending(c *gin.Context) {
	limit, ok := h.parseLimit(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, newResponse(h.recommender.GetTrendingRecommendations(c.Request.Context(), limit), nil, nil))
}

func (h *RecommendationHandler) Popular(c *gin.Context) {
	limit, ok := h.parseLimit(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, newResponse(h.recommender.GetPopularRecommendations(c.Request.Context(), limit), nil, nil))
}

// parseLimit reads ?limit=, writing a 400 response when it is not an integer
// in [1, MaxLimit].
func (h *RecommendationHandler) parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return h.config.DefaultLimit, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > h.config.MaxLimit {
		respondError(c, http.StatusBadRequest, "INVALID_LIMIT",
			fmt.Sprintf("limit must be an integer between 1 and %d", h.config.MaxLimit))
		return 0, false
	}

	return limit, true
}

func newResponse(candidates []models.Candidate, userID, seedItemID *uuid.UUID) models.RecommendationResponse {
	if candidates == nil {
		candidates = []models.Candidate{}
	}

	return models.RecommendationResponse{
		UserID:          userID,
		SeedItemID:      seedItemID,
		Recommendations: candidates,
		Count:           len(candidates),
		GeneratedAt:     time.Now().UTC(),
	}
}
