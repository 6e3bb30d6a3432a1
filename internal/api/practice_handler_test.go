package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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
	"github.com/prepforge/practice-api/internal/domain/adaptive"
	"github.com/prepforge/practice-api/internal/domain/scoring"
	"github.com/prepforge/practice-api/internal/selection"
	"github.com/prepforge/practice-api/internal/service/practice"
	"github.com/prepforge/practice-api/internal/store"
)

// mockPracticeService is a mock implementation of the PracticeService
// interface with per-method function fields.
type mockPracticeService struct {
	startSessionFn     func(ctx context.Context, ownerID uuid.UUID, sessionType domain.SessionType, cfg domain.SessionConfig) (*domain.PracticeSession, error)
	getSessionFn       func(ctx context.Context, ownerID, sessionID uuid.UUID) (*domain.PracticeSession, error)
	saveProgressFn     func(ctx context.Context, ownerID, sessionID uuid.UUID, update practice.ProgressUpdate) (*domain.PracticeSession, error)
	pauseSessionFn     func(ctx context.Context, ownerID, sessionID uuid.UUID, update practice.PauseUpdate) (*domain.PracticeSession, error)
	resumeSessionFn    func(ctx context.Context, ownerID, sessionID uuid.UUID) (*practice.ResumedSession, error)
	completeSessionFn  func(ctx context.Context, ownerID, sessionID uuid.UUID, update practice.CompleteUpdate) (*practice.CompletionSummary, error)
	shuffledQuestionFn func(ctx context.Context, ownerID, sessionID uuid.UUID, index int) (*practice.ShuffledQuestion, error)
}

func (m *mockPracticeService) StartSession(
	ctx context.Context,
	ownerID uuid.UUID,
	sessionType domain.SessionType,
	cfg domain.SessionConfig,
) (*domain.PracticeSession, error) {
	return m.startSessionFn(ctx, ownerID, sessionType, cfg)
}

func (m *mockPracticeService) GetSession(ctx context.Context, ownerID, sessionID uuid.UUID) (*domain.PracticeSession, error) {
	return m.getSessionFn(ctx, ownerID, sessionID)
}

func (m *mockPracticeService) SaveProgress(
	ctx context.Context,
	ownerID, sessionID uuid.UUID,
	update practice.ProgressUpdate,
) (*domain.PracticeSession, error) {
	return m.saveProgressFn(ctx, ownerID, sessionID, update)
}

func (m *mockPracticeService) PauseSession(
	ctx context.Context,
	ownerID, sessionID uuid.UUID,
	update practice.PauseUpdate,
) (*domain.PracticeSession, error) {
	return m.pauseSessionFn(ctx, ownerID, sessionID, update)
}

func (m *mockPracticeService) ResumeSession(ctx context.Context, ownerID, sessionID uuid.UUID) (*practice.ResumedSession, error) {
	return m.resumeSessionFn(ctx, ownerID, sessionID)
}

func (m *mockPracticeService) CompleteSession(
	ctx context.Context,
	ownerID, sessionID uuid.UUID,
	update practice.CompleteUpdate,
) (*practice.CompletionSummary, error) {
	return m.completeSessionFn(ctx, ownerID, sessionID, update)
}

func (m *mockPracticeService) ShuffledQuestion(
	ctx context.Context,
	ownerID, sessionID uuid.UUID,
	index int,
) (*practice.ShuffledQuestion, error) {
	return m.shuffledQuestionFn(ctx, ownerID, sessionID, index)
}

// practiceRouter mounts the handler on the routes the server uses, with a
// middleware that injects the given user ID the way the auth middleware does.
func practiceRouter(svc practice.PracticeService, userID uuid.UUID) http.Handler {
	handler := NewPracticeHandler(svc, slog.Default())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if userID != uuid.Nil {
				req = req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, userID))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Post("/practice/sessions", handler.StartSession)
	r.Get("/practice/sessions/{id}", handler.GetSession)
	r.Get("/practice/sessions/{id}/questions/{index}", handler.GetQuestion)
	r.Patch("/practice/sessions/{id}/progress", handler.SaveProgress)
	r.Post("/practice/sessions/{id}/pause", handler.PauseSession)
	r.Post("/practice/sessions/{id}/resume", handler.ResumeSession)
	r.Post("/practice/sessions/{id}/complete", handler.CompleteSession)
	return r
}

func sessionFixture(ownerID uuid.UUID) *domain.PracticeSession {
	now := time.Now().UTC()
	return &domain.PracticeSession{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Type:    domain.SessionTypePYQOnly,
		Config: domain.SessionConfig{
			Topic:        "polity",
			Difficulty:   domain.DifficultyMedium,
			QuestionType: domain.QuestionTypeMCQ,
			Count:        10,
		},
		QuestionIDs:   []uuid.UUID{uuid.New(), uuid.New()},
		Shuffles:      map[int]domain.Permutation{0: {1, 0, 3, 2}},
		Answers:       map[int]string{},
		QuestionTimes: map[int]int{},
		Status:        domain.SessionStatusActive,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func startSessionBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(StartSessionRequest{
		SessionType:  "pyq_only",
		Topic:        "polity",
		Difficulty:   "medium",
		QuestionType: "mcq",
		Count:        10,
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestStartSessionHandler(t *testing.T) {
	userID := uuid.New()
	session := sessionFixture(userID)

	testCases := []struct {
		name           string
		userIDInCtx    uuid.UUID
		body           string
		serviceResult  *domain.PracticeSession
		serviceError   error
		expectedStatus int
	}{
		{
			name:           "success",
			userIDInCtx:    userID,
			serviceResult:  session,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing user",
			userIDInCtx:    uuid.Nil,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "malformed body",
			userIDInCtx:    userID,
			body:           `{not json`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "unsupported count",
			userIDInCtx:    userID,
			body:           `{"session_type":"pyq_only","topic":"polity","difficulty":"medium","question_type":"mcq","count":15}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:        "insufficient questions",
			userIDInCtx: userID,
			serviceError: &selection.InsufficientError{
				Requested: 10,
				Available: 3,
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "internal error",
			userIDInCtx:    userID,
			serviceError:   errors.New("connection refused"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockPracticeService{
				startSessionFn: func(context.Context, uuid.UUID, domain.SessionType, domain.SessionConfig) (*domain.PracticeSession, error) {
					return tc.serviceResult, tc.serviceError
				},
			}

			var body *bytes.Buffer
			if tc.body != "" {
				body = bytes.NewBufferString(tc.body)
			} else {
				body = startSessionBody(t)
			}

			req := httptest.NewRequest(http.MethodPost, "/practice/sessions", body)
			rr := httptest.NewRecorder()
			practiceRouter(svc, tc.userIDInCtx).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.expectedStatus == http.StatusCreated {
				var resp SessionResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.Equal(t, session.ID.String(), resp.ID)
				assert.Equal(t, "active", resp.Status)
				assert.Len(t, resp.QuestionIDs, 2)
			}
		})
	}
}

func TestStartSessionHandlerOptionalFilters(t *testing.T) {
	userID := uuid.New()
	var receivedCfg domain.SessionConfig
	svc := &mockPracticeService{
		startSessionFn: func(_ context.Context, _ uuid.UUID, _ domain.SessionType, cfg domain.SessionConfig) (*domain.PracticeSession, error) {
			receivedCfg = cfg
			return sessionFixture(userID), nil
		},
	}

	body := `{"session_type":"mixed","count":20}`
	req := httptest.NewRequest(http.MethodPost, "/practice/sessions", strings.NewReader(body))
	rr := httptest.NewRecorder()
	practiceRouter(svc, userID).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code,
		"topic, difficulty, and question type are optional filters")
	assert.Empty(t, receivedCfg.Topic)
	assert.Empty(t, receivedCfg.Difficulty)
	assert.Empty(t, receivedCfg.QuestionType)
	assert.Equal(t, 20, receivedCfg.Count)
}

func TestStartSessionHandlerDoesNotExposeShuffles(t *testing.T) {
	userID := uuid.New()
	svc := &mockPracticeService{
		startSessionFn: func(context.Context, uuid.UUID, domain.SessionType, domain.SessionConfig) (*domain.PracticeSession, error) {
			return sessionFixture(userID), nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/practice/sessions", startSessionBody(t))
	rr := httptest.NewRecorder()
	practiceRouter(svc, userID).ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.NotContains(t, rr.Body.String(), "shuffles",
		"option permutations are the answer key and must stay server-side")
}

func TestGetSessionHandler(t *testing.T) {
	userID := uuid.New()
	session := sessionFixture(userID)

	testCases := []struct {
		name           string
		path           string
		serviceError   error
		expectedStatus int
	}{
		{"success", "/practice/sessions/" + session.ID.String(), nil, http.StatusOK},
		{"not found", "/practice/sessions/" + uuid.New().String(), practice.ErrSessionNotFound, http.StatusNotFound},
		{"invalid id", "/practice/sessions/not-a-uuid", nil, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockPracticeService{
				getSessionFn: func(context.Context, uuid.UUID, uuid.UUID) (*domain.PracticeSession, error) {
					if tc.serviceError != nil {
						return nil, tc.serviceError
					}
					return session, nil
				},
			}

			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			rr := httptest.NewRecorder()
			practiceRouter(svc, userID).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
		})
	}
}

func TestGetQuestionHandler(t *testing.T) {
	userID := uuid.New()
	sessionID := uuid.New()
	questionID := uuid.New()

	svc := &mockPracticeService{
		shuffledQuestionFn: func(_ context.Context, _, _ uuid.UUID, index int) (*practice.ShuffledQuestion, error) {
			if index >= 2 {
				return nil, practice.ErrQuestionIndexOutOfRange
			}
			return &practice.ShuffledQuestion{
				QuestionID: questionID,
				Index:      index,
				Text:       "Which article governs presidential elections?",
				Topic:      "polity",
				Difficulty: domain.DifficultyMedium,
				Type:       domain.QuestionTypeMCQ,
				Options:    []string{"Article 54", "Article 44", "Article 64", "Article 74"},
			}, nil
		},
	}
	router := practiceRouter(svc, userID)
	base := "/practice/sessions/" + sessionID.String() + "/questions/"

	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, base+"1", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp practice.ShuffledQuestion
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, questionID, resp.QuestionID)
		assert.Equal(t, []string{"Article 54", "Article 44", "Article 64", "Article 74"}, resp.Options)
	})

	t.Run("non-numeric index", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, base+"abc", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("index out of range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, base+"7", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSaveProgressHandler(t *testing.T) {
	userID := uuid.New()
	session := sessionFixture(userID)
	path := "/practice/sessions/" + session.ID.String() + "/progress"

	t.Run("merges update", func(t *testing.T) {
		var received practice.ProgressUpdate
		svc := &mockPracticeService{
			saveProgressFn: func(_ context.Context, _, _ uuid.UUID, update practice.ProgressUpdate) (*domain.PracticeSession, error) {
				received = update
				return session, nil
			},
		}

		body := `{"answers":{"0":"A","3":"C"},"question_times":{"0":45},"current_index":4}`
		req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(body))
		rr := httptest.NewRecorder()
		practiceRouter(svc, userID).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, map[int]string{0: "A", 3: "C"}, received.Answers)
		assert.Equal(t, map[int]int{0: 45}, received.QuestionTimes)
		assert.Equal(t, 4, received.CurrentIndex)
	})

	t.Run("version conflict maps to 409", func(t *testing.T) {
		svc := &mockPracticeService{
			saveProgressFn: func(context.Context, uuid.UUID, uuid.UUID, practice.ProgressUpdate) (*domain.PracticeSession, error) {
				return nil, store.ErrVersionConflict
			},
		}

		req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(`{"current_index":0}`))
		rr := httptest.NewRecorder()
		practiceRouter(svc, userID).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestSessionTransitionHandlers(t *testing.T) {
	userID := uuid.New()
	session := sessionFixture(userID)
	paused := *session
	paused.Status = domain.SessionStatusPaused

	var receivedPause practice.PauseUpdate
	svc := &mockPracticeService{
		pauseSessionFn: func(_ context.Context, _, _ uuid.UUID, update practice.PauseUpdate) (*domain.PracticeSession, error) {
			receivedPause = update
			return &paused, nil
		},
		resumeSessionFn: func(context.Context, uuid.UUID, uuid.UUID) (*practice.ResumedSession, error) {
			return nil, practice.ErrInvalidStateTransition
		},
	}
	router := practiceRouter(svc, userID)
	base := "/practice/sessions/" + session.ID.String()

	t.Run("pause without body succeeds", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, base+"/pause", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp SessionResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "paused", resp.Status)
		assert.Equal(t, -1, receivedPause.CurrentIndex,
			"an omitted index must not move the cursor")
	})

	t.Run("pause carries snapshot and elapsed time", func(t *testing.T) {
		body := `{"answers":{"0":"A"},"question_times":{"0":45},"current_index":1,"elapsed_seconds":120}`
		req := httptest.NewRequest(http.MethodPost, base+"/pause", strings.NewReader(body))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, map[int]string{0: "A"}, receivedPause.Answers)
		assert.Equal(t, map[int]int{0: 45}, receivedPause.QuestionTimes)
		assert.Equal(t, 1, receivedPause.CurrentIndex)
		assert.Equal(t, 120, receivedPause.ElapsedSeconds)
	})

	t.Run("pause with negative elapsed time is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, base+"/pause",
			strings.NewReader(`{"elapsed_seconds":-10}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("resume from wrong state maps to 409", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, base+"/resume", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestResumeSessionHandlerReturnsQuestions(t *testing.T) {
	userID := uuid.New()
	session := sessionFixture(userID)
	active := *session
	active.Status = domain.SessionStatusActive

	questions := []*practice.ShuffledQuestion{
		{
			QuestionID: session.QuestionIDs[0],
			Index:      0,
			Text:       "Which article governs presidential elections?",
			Type:       domain.QuestionTypeMCQ,
			Options:    []string{"Article 44", "Article 54", "Article 74", "Article 64"},
		},
		{
			QuestionID: session.QuestionIDs[1],
			Index:      1,
			Text:       "Discuss the basic structure doctrine.",
			Type:       domain.QuestionTypeMains,
		},
	}
	svc := &mockPracticeService{
		resumeSessionFn: func(context.Context, uuid.UUID, uuid.UUID) (*practice.ResumedSession, error) {
			return &practice.ResumedSession{Session: &active, Questions: questions}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/practice/sessions/"+session.ID.String()+"/resume", nil)
	rr := httptest.NewRecorder()
	practiceRouter(svc, userID).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Session   SessionResponse              `json:"session"`
		Questions []*practice.ShuffledQuestion `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "active", resp.Session.Status)
	require.Len(t, resp.Questions, 2)
	assert.Equal(t, []string{"Article 44", "Article 54", "Article 74", "Article 64"},
		resp.Questions[0].Options, "options come back in the frozen shuffled order")
	assert.Empty(t, resp.Questions[1].Options)
}

func TestCompleteSessionHandler(t *testing.T) {
	userID := uuid.New()
	session := sessionFixture(userID)
	completed := *session
	completed.Status = domain.SessionStatusCompleted
	score := 7
	completed.Score = &score

	summary := &practice.CompletionSummary{
		Session: &completed,
		Result: &scoring.Result{
			Score:    7,
			Total:    10,
			Accuracy: 70,
		},
		Recommendation: &adaptive.Recommendation{
			Difficulty: domain.DifficultyHard,
			Confidence: 0.8,
		},
	}

	t.Run("returns result and recommendation", func(t *testing.T) {
		svc := &mockPracticeService{
			completeSessionFn: func(context.Context, uuid.UUID, uuid.UUID, practice.CompleteUpdate) (*practice.CompletionSummary, error) {
				return summary, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/practice/sessions/"+session.ID.String()+"/complete", nil)
		rr := httptest.NewRecorder()
		practiceRouter(svc, userID).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Session        SessionResponse         `json:"session"`
			Result         scoring.Result          `json:"result"`
			Recommendation adaptive.Recommendation `json:"recommendation"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "completed", resp.Session.Status)
		assert.Equal(t, 7, resp.Result.Score)
		assert.Equal(t, domain.DifficultyHard, resp.Recommendation.Difficulty)
	})

	t.Run("final answers travel with the completion", func(t *testing.T) {
		var received practice.CompleteUpdate
		svc := &mockPracticeService{
			completeSessionFn: func(_ context.Context, _, _ uuid.UUID, update practice.CompleteUpdate) (*practice.CompletionSummary, error) {
				received = update
				return summary, nil
			},
		}

		body := `{"answers":{"9":"D"},"question_times":{"9":20},"total_time_seconds":600}`
		req := httptest.NewRequest(http.MethodPost, "/practice/sessions/"+session.ID.String()+"/complete", strings.NewReader(body))
		rr := httptest.NewRecorder()
		practiceRouter(svc, userID).ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, map[int]string{9: "D"}, received.Answers)
		assert.Equal(t, map[int]int{9: 20}, received.QuestionTimes)
		assert.Equal(t, 600, received.TotalTimeSeconds)
		assert.Equal(t, -1, received.CurrentIndex)
	})

	t.Run("second completion maps to 409", func(t *testing.T) {
		svc := &mockPracticeService{
			completeSessionFn: func(context.Context, uuid.UUID, uuid.UUID, practice.CompleteUpdate) (*practice.CompletionSummary, error) {
				return nil, practice.ErrSessionAlreadyCompleted
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/practice/sessions/"+session.ID.String()+"/complete", nil)
		rr := httptest.NewRecorder()
		practiceRouter(svc, userID).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}
