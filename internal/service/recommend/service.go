// Package recommend exposes the adaptive difficulty recommendation as a
// service: it fetches the owner's recent attempt window from the store and
// feeds it to the rolling-window recommender.
package recommend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/domain/adaptive"
	"github.com/prepforge/practice-api/internal/platform/logger"
	"github.com/prepforge/practice-api/internal/store"
)

// Service computes the recommended next difficulty for an owner.
type Service interface {
	// Recommend returns the difficulty recommendation based on the owner's
	// recorded attempt history. Owners with little or no history get the
	// medium default with proportionally low confidence.
	Recommend(ctx context.Context, ownerID uuid.UUID) (*adaptive.Recommendation, error)

	// RecommendAfter computes a recommendation as if the given attempts had
	// just been recorded, prepending them to the stored history. Session
	// completion uses this so the recommendation reflects the session that
	// just finished even while its attempts are still being written.
	RecommendAfter(
		ctx context.Context,
		ownerID uuid.UUID,
		latest []*domain.QuestionAttempt,
	) (*adaptive.Recommendation, error)
}

type serviceImpl struct {
	attemptStore store.AttemptStore
	recommender  adaptive.Service
	windowSize   int
	logger       *slog.Logger
}

var _ Service = (*serviceImpl)(nil)

// NewService creates a recommendation service over the given attempt store.
// windowSize bounds how much history is fetched; values below 1 fall back to
// the recommender default.
func NewService(
	attemptStore store.AttemptStore,
	recommender adaptive.Service,
	windowSize int,
	logger *slog.Logger,
) Service {
	if attemptStore == nil {
		panic("attemptStore cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if recommender == nil {
		panic("recommender cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if logger == nil {
		logger = slog.Default()
	}
	if windowSize < 1 {
		windowSize = adaptive.NewDefaultParams().WindowSize
	}
	return &serviceImpl{
		attemptStore: attemptStore,
		recommender:  recommender,
		windowSize:   windowSize,
		logger:       logger.With(slog.String("component", "recommend_service")),
	}
}

// Recommend implements Service.
func (s *serviceImpl) Recommend(ctx context.Context, ownerID uuid.UUID) (*adaptive.Recommendation, error) {
	return s.RecommendAfter(ctx, ownerID, nil)
}

// RecommendAfter implements Service.
func (s *serviceImpl) RecommendAfter(
	ctx context.Context,
	ownerID uuid.UUID,
	latest []*domain.QuestionAttempt,
) (*adaptive.Recommendation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	stored, err := s.attemptStore.ListRecentByOwner(ctx, ownerID, s.windowSize)
	if err != nil {
		return nil, fmt.Errorf("listing recent attempts: %w", err)
	}

	// latest is expected most-recent-first, same as the store's ordering.
	window := make([]*domain.QuestionAttempt, 0, len(latest)+len(stored))
	window = append(window, latest...)
	window = append(window, stored...)

	rec := s.recommender.Recommend(window)
	log.Debug("computed difficulty recommendation",
		slog.String("owner_id", ownerID.String()),
		slog.String("difficulty", string(rec.Difficulty)),
		slog.Float64("confidence", rec.Confidence))
	return rec, nil
}
