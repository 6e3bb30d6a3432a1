package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/prepforge/practice-api/internal/api/shared"
	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/platform/logger"
	"github.com/prepforge/practice-api/internal/service/distractors"
)

// OptionResponse is the client-facing projection of one answer option.
// Correctness and quality scores never leave the server through this
// endpoint; options are for rendering, not grading.
type OptionResponse struct {
	Letter    string    `json:"option_letter"`
	Text      string    `json:"option_text"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackRequest is the request body for option quality feedback.
type FeedbackRequest struct {
	Helpful *bool `json:"helpful" validate:"required"`
}

// DistractorHandler handles MCQ option set HTTP requests.
type DistractorHandler struct {
	distractorService distractors.Service
	logger            *slog.Logger
}

// NewDistractorHandler creates a new DistractorHandler.
func NewDistractorHandler(distractorService distractors.Service, logger *slog.Logger) *DistractorHandler {
	if distractorService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("distractorService cannot be nil for DistractorHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for DistractorHandler")
	}
	return &DistractorHandler{
		distractorService: distractorService,
		logger:            logger.With(slog.String("component", "distractor_handler")),
	}
}

// GenerateOptions handles POST /questions/{id}/options requests. It triggers
// distractor generation for the question and returns the persisted set; a
// question that already has options gets the existing set back unchanged.
func (h *DistractorHandler) GenerateOptions(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if _, ok := requireUserID(w, r, log); !ok {
		return
	}
	questionID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	options, err := h.distractorService.GenerateOptions(r.Context(), questionID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("option set generated via API",
		slog.String("question_id", questionID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, optionsToResponse(options))
}

// GetOptions handles GET /questions/{id}/options requests.
func (h *DistractorHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if _, ok := requireUserID(w, r, log); !ok {
		return
	}
	questionID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	options, err := h.distractorService.GetOptions(r.Context(), questionID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, optionsToResponse(options))
}

// RecordFeedback handles POST /questions/{id}/options/{letter}/feedback
// requests.
func (h *DistractorHandler) RecordFeedback(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if _, ok := requireUserID(w, r, log); !ok {
		return
	}
	questionID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	letter := chi.URLParam(r, "letter")
	if !isOptionLetter(letter) {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid option letter")
		return
	}

	var req FeedbackRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	err := h.distractorService.RecordFeedback(r.Context(), questionID, letter,
		distractors.Feedback{Helpful: *req.Helpful})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("option feedback recorded",
		slog.String("question_id", questionID.String()),
		slog.String("letter", letter),
		slog.Bool("helpful", *req.Helpful))
	w.WriteHeader(http.StatusNoContent)
}

func optionsToResponse(options []*domain.DistractorOption) []OptionResponse {
	responses := make([]OptionResponse, len(options))
	for i, opt := range options {
		responses[i] = OptionResponse{
			Letter:    opt.Letter,
			Text:      opt.Text,
			CreatedAt: opt.CreatedAt,
		}
	}
	return responses
}

func isOptionLetter(letter string) bool {
	for _, l := range domain.OptionLetters {
		if l == letter {
			return true
		}
	}
	return false
}
