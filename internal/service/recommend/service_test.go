package recommend

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/domain/adaptive"
	"github.com/prepforge/practice-api/internal/store"
)

// stubAttemptStore serves a fixed attempt history and records the limit it
// was queried with.
type stubAttemptStore struct {
	attempts  []*domain.QuestionAttempt
	lastLimit int
	lastOwner uuid.UUID
	listErr   error
}

func (s *stubAttemptStore) Append(context.Context, *domain.QuestionAttempt) error { return nil }

func (s *stubAttemptStore) ListRecentByOwner(
	_ context.Context, ownerID uuid.UUID, limit int,
) ([]*domain.QuestionAttempt, error) {
	s.lastOwner = ownerID
	s.lastLimit = limit
	if s.listErr != nil {
		return nil, s.listErr
	}
	if limit < len(s.attempts) {
		return s.attempts[:limit], nil
	}
	return s.attempts, nil
}

func (s *stubAttemptStore) WithTx(*sql.Tx) store.AttemptStore { return s }

// capturingRecommender records the window it received and returns a canned
// recommendation.
type capturingRecommender struct {
	received []*domain.QuestionAttempt
	result   *adaptive.Recommendation
}

func (r *capturingRecommender) Recommend(attempts []*domain.QuestionAttempt) *adaptive.Recommendation {
	r.received = attempts
	if r.result != nil {
		return r.result
	}
	return &adaptive.Recommendation{Difficulty: domain.DifficultyMedium, Confidence: 1}
}

func newAttempts(t *testing.T, n int) []*domain.QuestionAttempt {
	t.Helper()
	out := make([]*domain.QuestionAttempt, 0, n)
	for i := 0; i < n; i++ {
		attempt, err := domain.NewQuestionAttempt(
			uuid.New(), uuid.New(), domain.SourcePYQ, true, domain.DifficultyMedium, 20)
		require.NoError(t, err)
		out = append(out, attempt)
	}
	return out
}

func TestRecommendFetchesWindowFromStore(t *testing.T) {
	t.Parallel()

	history := newAttempts(t, 5)
	attemptStore := &stubAttemptStore{attempts: history}
	recommender := &capturingRecommender{
		result: &adaptive.Recommendation{Difficulty: domain.DifficultyHard, Confidence: 1},
	}
	svc := NewService(attemptStore, recommender, 5, nil)

	ownerID := uuid.New()
	rec, err := svc.Recommend(context.Background(), ownerID)
	require.NoError(t, err)

	assert.Equal(t, domain.DifficultyHard, rec.Difficulty)
	assert.Equal(t, ownerID, attemptStore.lastOwner)
	assert.Equal(t, 5, attemptStore.lastLimit, "store query should be bounded by the window size")
	assert.Equal(t, history, recommender.received)
}

func TestRecommendAfterPrependsLatestAttempts(t *testing.T) {
	t.Parallel()

	stored := newAttempts(t, 3)
	latest := newAttempts(t, 2)
	attemptStore := &stubAttemptStore{attempts: stored}
	recommender := &capturingRecommender{}
	svc := NewService(attemptStore, recommender, 5, nil)

	_, err := svc.RecommendAfter(context.Background(), uuid.New(), latest)
	require.NoError(t, err)

	require.Len(t, recommender.received, 5)
	assert.Equal(t, latest[0].ID, recommender.received[0].ID,
		"newly completed attempts should lead the window")
	assert.Equal(t, latest[1].ID, recommender.received[1].ID)
	assert.Equal(t, stored[0].ID, recommender.received[2].ID)
}

func TestRecommendStoreErrorPropagates(t *testing.T) {
	t.Parallel()

	attemptStore := &stubAttemptStore{listErr: assert.AnError}
	svc := NewService(attemptStore, &capturingRecommender{}, 5, nil)

	_, err := svc.Recommend(context.Background(), uuid.New())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNewServiceDefaultsWindowSize(t *testing.T) {
	t.Parallel()

	attemptStore := &stubAttemptStore{}
	svc := NewService(attemptStore, &capturingRecommender{}, 0, nil)

	_, err := svc.Recommend(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, adaptive.NewDefaultParams().WindowSize, attemptStore.lastLimit,
		"non-positive window sizes should fall back to the recommender default")
}
