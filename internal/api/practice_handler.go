// Package api provides HTTP handlers for the API.
package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/prepforge/practice-api/internal/api/shared"
	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/platform/logger"
	"github.com/prepforge/practice-api/internal/selection"
	"github.com/prepforge/practice-api/internal/service/practice"
)

// StartSessionRequest is the request body for creating a practice session.
// Topic, difficulty, and question type are optional filters; omitting one
// draws questions across that whole dimension.
type StartSessionRequest struct {
	SessionType  string `json:"session_type"  validate:"required,oneof=pyq_only generated_only mixed"`
	Topic        string `json:"topic"         validate:"omitempty,max=200"`
	Difficulty   string `json:"difficulty"    validate:"omitempty,oneof=easy medium hard"`
	QuestionType string `json:"question_type" validate:"omitempty,oneof=mcq mains"`
	Count        int    `json:"count"         validate:"required,oneof=10 20 50"`
}

// SaveProgressRequest is the request body for incremental progress saves.
// Answer and time keys are question indexes.
type SaveProgressRequest struct {
	Answers       map[int]string `json:"answers"`
	QuestionTimes map[int]int    `json:"question_times"`
	CurrentIndex  int            `json:"current_index" validate:"min=0"`
}

// PauseSessionRequest is the optional request body for pausing a session:
// the client's final progress snapshot plus the wall-clock seconds consumed
// since the session started or last resumed. An omitted current_index leaves
// the stored cursor as is.
type PauseSessionRequest struct {
	Answers        map[int]string `json:"answers"`
	QuestionTimes  map[int]int    `json:"question_times"`
	CurrentIndex   *int           `json:"current_index" validate:"omitempty,min=0"`
	ElapsedSeconds int            `json:"elapsed_seconds" validate:"min=0"`
}

// CompleteSessionRequest is the optional request body for completing a
// session: any trailing answers and timings plus the client's measure of the
// total time spent.
type CompleteSessionRequest struct {
	Answers          map[int]string `json:"answers"`
	QuestionTimes    map[int]int    `json:"question_times"`
	CurrentIndex     *int           `json:"current_index" validate:"omitempty,min=0"`
	TotalTimeSeconds int            `json:"total_time_seconds" validate:"min=0"`
}

// SessionResponse is the client-facing projection of a practice session.
// Shuffle permutations and the version column stay server-side.
type SessionResponse struct {
	ID               string               `json:"id"`
	SessionType      string               `json:"session_type"`
	Config           domain.SessionConfig `json:"config"`
	QuestionIDs      []uuid.UUID          `json:"question_ids"`
	Answers          map[int]string       `json:"answers"`
	QuestionTimes    map[int]int          `json:"question_times"`
	CurrentIndex     int                  `json:"current_index"`
	Status           string               `json:"status"`
	Score            *int                 `json:"score,omitempty"`
	Accuracy         *float64             `json:"accuracy,omitempty"`
	WeakTopics       []string             `json:"weak_topics,omitempty"`
	StrongTopics     []string             `json:"strong_topics,omitempty"`
	TimeSpentSeconds int                  `json:"time_spent_seconds"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	CompletedAt      *time.Time           `json:"completed_at,omitempty"`
}

// PracticeHandler handles practice session HTTP requests.
type PracticeHandler struct {
	practiceService practice.PracticeService
	logger          *slog.Logger
}

// NewPracticeHandler creates a new PracticeHandler.
func NewPracticeHandler(practiceService practice.PracticeService, logger *slog.Logger) *PracticeHandler {
	if practiceService == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("practiceService cannot be nil for PracticeHandler")
	}
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for PracticeHandler")
	}
	return &PracticeHandler{
		practiceService: practiceService,
		logger:          logger.With(slog.String("component", "practice_handler")),
	}
}

// StartSession handles POST /practice/sessions requests.
func (h *PracticeHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}

	var req StartSessionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	cfg := domain.SessionConfig{
		Topic:        req.Topic,
		Difficulty:   domain.Difficulty(req.Difficulty),
		QuestionType: domain.QuestionType(req.QuestionType),
		Count:        req.Count,
	}

	session, err := h.practiceService.StartSession(
		r.Context(), userID, domain.SessionType(req.SessionType), cfg)
	if err != nil {
		status := MapErrorToStatusCode(err)
		message := GetSafeErrorMessage(err)
		if errors.Is(err, selection.ErrInsufficientQuestions) {
			// Shortfalls are expected; no error-level logging
			shared.RespondWithError(w, r, status, message)
			return
		}
		shared.RespondWithErrorAndLog(w, r, status, message, err)
		return
	}

	log.Info("session started via API",
		slog.String("session_id", session.ID.String()),
		slog.String("user_id", userID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, sessionToResponse(session))
}

// GetSession handles GET /practice/sessions/{id} requests.
func (h *PracticeHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	session, err := h.practiceService.GetSession(r.Context(), userID, sessionID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session))
}

// GetQuestion handles GET /practice/sessions/{id}/questions/{index} requests.
// Options come back in the session's frozen shuffled order.
func (h *PracticeHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid question index")
		return
	}

	question, err := h.practiceService.ShuffledQuestion(r.Context(), userID, sessionID, index)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, question)
}

// SaveProgress handles PATCH /practice/sessions/{id}/progress requests.
func (h *PracticeHandler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req SaveProgressRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	session, err := h.practiceService.SaveProgress(r.Context(), userID, sessionID, practice.ProgressUpdate{
		Answers:       req.Answers,
		QuestionTimes: req.QuestionTimes,
		CurrentIndex:  req.CurrentIndex,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session))
}

// PauseSession handles POST /practice/sessions/{id}/pause requests.
// The body is optional: a bare pause just flips the status.
func (h *PracticeHandler) PauseSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req PauseSessionRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	session, err := h.practiceService.PauseSession(r.Context(), userID, sessionID, practice.PauseUpdate{
		ProgressUpdate: practice.ProgressUpdate{
			Answers:       req.Answers,
			QuestionTimes: req.QuestionTimes,
			CurrentIndex:  indexOrUnset(req.CurrentIndex),
		},
		ElapsedSeconds: req.ElapsedSeconds,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, sessionToResponse(session))
}

// ResumeSession handles POST /practice/sessions/{id}/resume requests.
// The response carries the full question set in frozen shuffled order so the
// client restores its view without a second round trip.
func (h *PracticeHandler) ResumeSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	resumed, err := h.practiceService.ResumeSession(r.Context(), userID, sessionID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	response := struct {
		Session   *SessionResponse             `json:"session"`
		Questions []*practice.ShuffledQuestion `json:"questions"`
	}{
		Session:   sessionToResponse(resumed.Session),
		Questions: resumed.Questions,
	}
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// CompleteSession handles POST /practice/sessions/{id}/complete requests.
// The body is optional; any trailing answers it carries merge before scoring.
func (h *PracticeHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req CompleteSessionRequest
	if !decodeOptionalBody(w, r, &req) {
		return
	}

	summary, err := h.practiceService.CompleteSession(r.Context(), userID, sessionID, practice.CompleteUpdate{
		ProgressUpdate: practice.ProgressUpdate{
			Answers:       req.Answers,
			QuestionTimes: req.QuestionTimes,
			CurrentIndex:  indexOrUnset(req.CurrentIndex),
		},
		TotalTimeSeconds: req.TotalTimeSeconds,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	response := struct {
		Session        *SessionResponse `json:"session"`
		Result         interface{}      `json:"result"`
		Recommendation interface{}      `json:"recommendation,omitempty"`
	}{
		Session: sessionToResponse(summary.Session),
		Result:  summary.Result,
	}
	if summary.Recommendation != nil {
		response.Recommendation = summary.Recommendation
	}

	log.Info("session completed via API",
		slog.String("session_id", sessionID.String()),
		slog.String("user_id", userID.String()))
	shared.RespondWithJSON(w, r, http.StatusOK, response)
}

// sessionToResponse converts a domain session to its API projection.
func sessionToResponse(session *domain.PracticeSession) *SessionResponse {
	return &SessionResponse{
		ID:               session.ID.String(),
		SessionType:      string(session.Type),
		Config:           session.Config,
		QuestionIDs:      session.QuestionIDs,
		Answers:          session.Answers,
		QuestionTimes:    session.QuestionTimes,
		CurrentIndex:     session.CurrentIndex,
		Status:           string(session.Status),
		Score:            session.Score,
		Accuracy:         session.Accuracy,
		WeakTopics:       session.WeakTopics,
		StrongTopics:     session.StrongTopics,
		TimeSpentSeconds: session.TimeSpentSeconds,
		CreatedAt:        session.CreatedAt,
		UpdatedAt:        session.UpdatedAt,
		CompletedAt:      session.CompletedAt,
	}
}

// requireUserID extracts the authenticated user ID set by the auth
// middleware, responding 401 when it is absent.
func requireUserID(w http.ResponseWriter, r *http.Request, log *slog.Logger) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		log.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return uuid.Nil, false
	}
	return userID, true
}

// decodeOptionalBody decodes and validates a request body that may be empty.
// It reports whether the handler should proceed; on a bad body the error
// response has already been written.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		if !errors.Is(err, io.EOF) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
			return false
		}
	}
	if err := shared.ValidateRequest(v); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return false
	}
	return true
}

// indexOrUnset maps an omitted current_index to the negative sentinel that
// leaves the stored cursor untouched.
func indexOrUnset(index *int) int {
	if index == nil {
		return -1
	}
	return *index
}

// parseIDParam parses a UUID path parameter, responding 400 on failure.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}
