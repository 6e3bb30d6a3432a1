package api

import (
	"log/slog"
	"net/http"

	"github.com/prepforge/practice-api/internal/api/shared"
	"github.com/prepforge/practice-api/internal/platform/logger"
	"github.com/prepforge/practice-api/internal/service/recommend"
)

// RecommendationHandler handles adaptive difficulty recommendation requests.
type RecommendationHandler struct {
	recommendService recommend.Service
	logger           *slog.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(recommendService recommend.Service, logger *slog.Logger) *RecommendationHandler {
	if recommendService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("recommendService cannot be nil for RecommendationHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for RecommendationHandler")
	}
	return &RecommendationHandler{
		recommendService: recommendService,
		logger:           logger.With(slog.String("component", "recommendation_handler")),
	}
}

// GetRecommendation handles GET /practice/recommendation requests.
// It returns the recommended next difficulty for the authenticated user
// based on their recent attempt history.
func (h *RecommendationHandler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	recommendation, err := h.recommendService.Recommend(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to compute recommendation", err)
		return
	}

	log.Debug("recommendation served",
		slog.String("user_id", userID.String()),
		slog.String("difficulty", string(recommendation.Difficulty)))
	shared.RespondWithJSON(w, r, http.StatusOK, recommendation)
}
