package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepforge/practice-api/internal/api/shared"
	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/generation"
	"github.com/prepforge/practice-api/internal/service/distractors"
)

// mockDistractorService is a mock implementation of the distractors.Service
// interface.
type mockDistractorService struct {
	generateOptionsFn func(ctx context.Context, questionID uuid.UUID) ([]*domain.DistractorOption, error)
	getOptionsFn      func(ctx context.Context, questionID uuid.UUID) ([]*domain.DistractorOption, error)
	recordFeedbackFn  func(ctx context.Context, questionID uuid.UUID, letter string, fb distractors.Feedback) error
}

func (m *mockDistractorService) GenerateOptions(ctx context.Context, questionID uuid.UUID) ([]*domain.DistractorOption, error) {
	return m.generateOptionsFn(ctx, questionID)
}

func (m *mockDistractorService) GetOptions(ctx context.Context, questionID uuid.UUID) ([]*domain.DistractorOption, error) {
	return m.getOptionsFn(ctx, questionID)
}

func (m *mockDistractorService) RecordFeedback(ctx context.Context, questionID uuid.UUID, letter string, fb distractors.Feedback) error {
	return m.recordFeedbackFn(ctx, questionID, letter, fb)
}

func distractorRouter(svc distractors.Service, userID uuid.UUID) http.Handler {
	handler := NewDistractorHandler(svc, slog.Default())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if userID != uuid.Nil {
				req = req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, userID))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/questions/{id}/options", handler.GenerateOptions)
	r.Get("/questions/{id}/options", handler.GetOptions)
	r.Post("/questions/{id}/options/{letter}/feedback", handler.RecordFeedback)
	return r
}

func optionSetFixture(questionID uuid.UUID) []*domain.DistractorOption {
	now := time.Now().UTC()
	texts := []string{"Article 54", "Article 44", "Article 64", "Article 74"}
	options := make([]*domain.DistractorOption, 0, len(texts))
	for i, letter := range domain.OptionLetters {
		options = append(options, &domain.DistractorOption{
			ID:             uuid.New(),
			QuestionID:     questionID,
			QuestionSource: domain.SourcePYQ,
			Letter:         letter,
			Text:           texts[i],
			IsCorrect:      i == 0,
			CreatedAt:      now,
		})
	}
	return options
}

func TestGenerateOptionsHandler(t *testing.T) {
	userID := uuid.New()
	questionID := uuid.New()

	testCases := []struct {
		name           string
		serviceError   error
		expectedStatus int
	}{
		{"success", nil, http.StatusCreated},
		{"question not found", distractors.ErrQuestionNotFound, http.StatusNotFound},
		{"not mcq", distractors.ErrNotMCQ, http.StatusBadRequest},
		{"insufficient candidates", distractors.ErrInsufficientDistractors, http.StatusUnprocessableEntity},
		{"generation disabled", generation.ErrGenerationDisabled, http.StatusServiceUnavailable},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockDistractorService{
				generateOptionsFn: func(context.Context, uuid.UUID) ([]*domain.DistractorOption, error) {
					if tc.serviceError != nil {
						return nil, tc.serviceError
					}
					return optionSetFixture(questionID), nil
				},
			}

			req := httptest.NewRequest(http.MethodPost, "/questions/"+questionID.String()+"/options", nil)
			rr := httptest.NewRecorder()
			distractorRouter(svc, userID).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
		})
	}
}

func TestGetOptionsHandlerHidesCorrectness(t *testing.T) {
	userID := uuid.New()
	questionID := uuid.New()
	svc := &mockDistractorService{
		getOptionsFn: func(context.Context, uuid.UUID) ([]*domain.DistractorOption, error) {
			return optionSetFixture(questionID), nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/questions/"+questionID.String()+"/options", nil)
	rr := httptest.NewRecorder()
	distractorRouter(svc, userID).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp []OptionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp, 4)
	assert.Equal(t, "A", resp[0].Letter)
	assert.Equal(t, "Article 54", resp[0].Text)

	assert.NotContains(t, rr.Body.String(), "is_correct",
		"option responses must not reveal the answer key")
	assert.NotContains(t, rr.Body.String(), "quality_score")
}

func TestRecordFeedbackHandler(t *testing.T) {
	userID := uuid.New()
	questionID := uuid.New()
	base := "/questions/" + questionID.String() + "/options/"

	t.Run("records helpful feedback", func(t *testing.T) {
		var gotLetter string
		var gotFeedback distractors.Feedback
		svc := &mockDistractorService{
			recordFeedbackFn: func(_ context.Context, _ uuid.UUID, letter string, fb distractors.Feedback) error {
				gotLetter = letter
				gotFeedback = fb
				return nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, base+"B/feedback", strings.NewReader(`{"helpful":false}`))
		rr := httptest.NewRecorder()
		distractorRouter(svc, userID).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "B", gotLetter)
		assert.False(t, gotFeedback.Helpful)
	})

	t.Run("rejects unknown letter", func(t *testing.T) {
		svc := &mockDistractorService{
			recordFeedbackFn: func(context.Context, uuid.UUID, string, distractors.Feedback) error {
				t.Fatal("service should not be called for an invalid letter")
				return nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, base+"E/feedback", strings.NewReader(`{"helpful":true}`))
		rr := httptest.NewRecorder()
		distractorRouter(svc, userID).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("requires helpful field", func(t *testing.T) {
		svc := &mockDistractorService{
			recordFeedbackFn: func(context.Context, uuid.UUID, string, distractors.Feedback) error {
				return nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, base+"A/feedback", strings.NewReader(`{}`))
		rr := httptest.NewRecorder()
		distractorRouter(svc, userID).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("option not found maps to 404", func(t *testing.T) {
		svc := &mockDistractorService{
			recordFeedbackFn: func(context.Context, uuid.UUID, string, distractors.Feedback) error {
				return distractors.ErrOptionNotFound
			},
		}

		req := httptest.NewRequest(http.MethodPost, base+"A/feedback", strings.NewReader(`{"helpful":true}`))
		rr := httptest.NewRecorder()
		distractorRouter(svc, userID).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
