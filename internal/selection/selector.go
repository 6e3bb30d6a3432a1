// Package selection chooses the questions for a new practice session. It
// queries the question store with the session's filters, enforces the
// requested source mix, and fixes a randomized order for the life of the
// session.
package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/google/uuid"

	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/store"
)

// ErrInsufficientQuestions indicates the question bank cannot satisfy the
// requested count for the given filters.
var ErrInsufficientQuestions = errors.New("insufficient questions available")

// InsufficientError wraps ErrInsufficientQuestions with the counts needed to
// build an actionable client response.
type InsufficientError struct {
	Requested int
	Available int
	Source    domain.QuestionSource // empty when the shortfall is not source-specific
}

func (e *InsufficientError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("insufficient %s questions available: requested %d, found %d",
			e.Source, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient questions available: requested %d, found %d",
		e.Requested, e.Available)
}

func (e *InsufficientError) Unwrap() error {
	return ErrInsufficientQuestions
}

// Selector picks the frozen question list for a new session.
type Selector interface {
	// Select returns exactly cfg.Count question IDs matching the config and
	// session type, in the randomized order the session will present them.
	// Returns an *InsufficientError when the bank cannot cover the request.
	Select(
		ctx context.Context,
		sessionType domain.SessionType,
		cfg domain.SessionConfig,
		rng *rand.Rand,
	) ([]uuid.UUID, error)
}

type selectorImpl struct {
	questionStore store.QuestionStore
	logger        *slog.Logger
}

var _ Selector = (*selectorImpl)(nil)

// NewSelector creates a Selector backed by the given question store.
func NewSelector(questionStore store.QuestionStore, logger *slog.Logger) Selector {
	if questionStore == nil {
		panic("questionStore cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if logger == nil {
		panic("logger cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	return &selectorImpl{
		questionStore: questionStore,
		logger:        logger.With(slog.String("component", "question_selector")),
	}
}

// Select implements Selector.
func (s *selectorImpl) Select(
	ctx context.Context,
	sessionType domain.SessionType,
	cfg domain.SessionConfig,
	rng *rand.Rand,
) ([]uuid.UUID, error) {
	if rng == nil {
		return nil, errors.New("rng cannot be nil")
	}

	log := s.logger
	switch sessionType {
	case domain.SessionTypePYQOnly:
		return s.selectFromSource(ctx, cfg, domain.SourcePYQ, cfg.Count, rng)
	case domain.SessionTypeGeneratedOnly:
		return s.selectFromSource(ctx, cfg, domain.SourceGenerated, cfg.Count, rng)
	case domain.SessionTypeMixed:
		// Odd counts favor past-year questions.
		pyqCount := (cfg.Count + 1) / 2
		genCount := cfg.Count - pyqCount

		pyqIDs, err := s.selectFromSource(ctx, cfg, domain.SourcePYQ, pyqCount, rng)
		if err != nil {
			return nil, err
		}
		genIDs, err := s.selectFromSource(ctx, cfg, domain.SourceGenerated, genCount, rng)
		if err != nil {
			return nil, err
		}

		// Interleaving is unnecessary: the combined order is re-shuffled so
		// sources do not cluster.
		combined := append(pyqIDs, genIDs...)
		rng.Shuffle(len(combined), func(i, j int) {
			combined[i], combined[j] = combined[j], combined[i]
		})

		log.DebugContext(ctx, "selected mixed question set",
			slog.Int("pyq_count", len(pyqIDs)),
			slog.Int("generated_count", len(genIDs)))
		return combined, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidSessionType, sessionType)
	}
}

// selectFromSource fetches candidates for one source, permutes them, and
// truncates to count.
func (s *selectorImpl) selectFromSource(
	ctx context.Context,
	cfg domain.SessionConfig,
	source domain.QuestionSource,
	count int,
	rng *rand.Rand,
) ([]uuid.UUID, error) {
	if count == 0 {
		return nil, nil
	}

	filter := store.QuestionFilter{
		Topic:        cfg.Topic,
		Difficulty:   cfg.Difficulty,
		QuestionType: cfg.QuestionType,
		Source:       source,
	}
	questions, err := s.questionStore.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("finding %s questions: %w", source, err)
	}

	if len(questions) < count {
		return nil, &InsufficientError{
			Requested: count,
			Available: len(questions),
			Source:    source,
		}
	}

	ids := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	rng.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return ids[:count], nil
}
