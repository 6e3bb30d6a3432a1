package distractors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/domain/distractor"
	"github.com/prepforge/practice-api/internal/generation"
	"github.com/prepforge/practice-api/internal/platform/logger"
	"github.com/prepforge/practice-api/internal/store"
)

// distractorsNeeded is the number of wrong options per MCQ question.
const distractorsNeeded = 3

// candidateMultiplier over-asks the generator so validation losses still
// leave a full set.
const candidateMultiplier = 3

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	db              *sql.DB
	questionStore   store.QuestionStore
	distractorStore store.DistractorStore
	generator       generation.Generator
	logger          *slog.Logger

	// newRNG decides which letter holds the correct answer in the stored
	// set. Injectable for deterministic tests.
	newRNG func() *rand.Rand
}

// NewService creates a distractor Service.
func NewService(
	db *sql.DB,
	questionStore store.QuestionStore,
	distractorStore store.DistractorStore,
	generator generation.Generator,
	logger *slog.Logger,
) Service {
	if db == nil {
		panic("db cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if questionStore == nil {
		panic("questionStore cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if distractorStore == nil {
		panic("distractorStore cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if generator == nil {
		panic("generator cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &serviceImpl{
		db:              db,
		questionStore:   questionStore,
		distractorStore: distractorStore,
		generator:       generator,
		logger:          logger.With(slog.String("component", "distractor_service")),
		newRNG: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// GenerateOptions implements Service.GenerateOptions.
func (s *serviceImpl) GenerateOptions(
	ctx context.Context,
	questionID uuid.UUID,
) ([]*domain.DistractorOption, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	questions, err := s.questionStore.GetByIDs(ctx, []uuid.UUID{questionID})
	if err != nil {
		if errors.Is(err, store.ErrQuestionNotFound) {
			return nil, ErrQuestionNotFound
		}
		return nil, NewServiceError("generate_options", "loading question failed", err)
	}
	question := questions[0]
	if question.Type != domain.QuestionTypeMCQ {
		return nil, fmt.Errorf("%w: %s", ErrNotMCQ, question.Type)
	}

	// Idempotency: an existing set is returned as-is, never regenerated.
	existing, err := s.distractorStore.GetByQuestion(ctx, questionID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrOptionSetNotFound) {
		return nil, NewServiceError("generate_options", "checking existing options failed", err)
	}

	candidates, err := s.generator.ProposeDistractors(
		ctx, question, distractorsNeeded*candidateMultiplier)
	if err != nil {
		return nil, NewServiceError("generate_options", "distractor generation failed", err)
	}

	valid := distractor.Filter(candidates, question.CorrectAnswer)
	if len(valid) < distractorsNeeded {
		log.Warn("generation produced too few valid distractors",
			slog.String("question_id", questionID.String()),
			slog.Int("candidates", len(candidates)),
			slog.Int("valid", len(valid)))
		return nil, fmt.Errorf("%w: need %d, got %d",
			ErrInsufficientDistractors, distractorsNeeded, len(valid))
	}
	valid = valid[:distractorsNeeded]

	options, err := s.assembleOptionSet(question, valid)
	if err != nil {
		return nil, NewServiceError("generate_options", "assembling option set failed", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.distractorStore.WithTx(tx).CreateSet(ctx, options)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// A concurrent generation won the race; its set is canonical.
			return s.GetOptions(ctx, questionID)
		}
		return nil, NewServiceError("generate_options", "persisting option set failed", err)
	}

	log.Info("generated option set",
		slog.String("question_id", questionID.String()),
		slog.String("topic", question.Topic))
	return options, nil
}

// assembleOptionSet builds the canonical stored set: the correct answer is
// placed at a random letter so stored order carries no information, and the
// three distractors fill the rest.
func (s *serviceImpl) assembleOptionSet(
	question *domain.Question,
	distractors []string,
) ([]*domain.DistractorOption, error) {
	rng := s.newRNG()
	correctSlot := rng.Intn(len(domain.OptionLetters))

	now := time.Now().UTC()
	options := make([]*domain.DistractorOption, 0, len(domain.OptionLetters))
	next := 0
	for i, letter := range domain.OptionLetters {
		opt := &domain.DistractorOption{
			ID:             uuid.New(),
			QuestionID:     question.ID,
			QuestionSource: question.Source,
			Letter:         letter,
			CreatedAt:      now,
		}
		if i == correctSlot {
			opt.Text = question.CorrectAnswer
			opt.IsCorrect = true
		} else {
			opt.Text = distractors[next]
			opt.Type = classifyDistractor(distractors[next], question.CorrectAnswer)
			next++
		}
		options = append(options, opt)
	}

	if err := domain.ValidateOptionSet(options); err != nil {
		return nil, err
	}
	return options, nil
}

// classifyDistractor assigns a coarse type from surface features. A text
// sharing most of its words with the correct answer reads like a common
// mistake (a near-miss the candidate could plausibly confuse); otherwise
// length close to the correct answer suggests a related concept, and much
// shorter or longer texts usually restate a partial truth or a factual error.
func classifyDistractor(text, correctAnswer string) domain.DistractorType {
	if wordOverlap(text, correctAnswer) >= 0.5 {
		return domain.DistractorCommonMistake
	}
	ratio := float64(len(text)) / float64(max(len(correctAnswer), 1))
	switch {
	case ratio > 0.75 && ratio < 1.35:
		return domain.DistractorRelatedConcept
	case ratio <= 0.75:
		return domain.DistractorPartialTruth
	default:
		return domain.DistractorFactualError
	}
}

// wordOverlap reports the fraction of the candidate's words that also appear
// in the correct answer, case-insensitively.
func wordOverlap(text, correctAnswer string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}
	ref := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(correctAnswer)) {
		ref[w] = struct{}{}
	}
	shared := 0
	for _, w := range words {
		if _, ok := ref[w]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(words))
}

// GetOptions implements Service.GetOptions.
func (s *serviceImpl) GetOptions(
	ctx context.Context,
	questionID uuid.UUID,
) ([]*domain.DistractorOption, error) {
	options, err := s.distractorStore.GetByQuestion(ctx, questionID)
	if err != nil {
		if errors.Is(err, store.ErrOptionSetNotFound) {
			return nil, ErrOptionNotFound
		}
		return nil, NewServiceError("get_options", "loading option set failed", err)
	}
	return options, nil
}

// RecordFeedback implements Service.RecordFeedback.
func (s *serviceImpl) RecordFeedback(
	ctx context.Context,
	questionID uuid.UUID,
	letter string,
	fb Feedback,
) error {
	delta := 1.0
	if !fb.Helpful {
		delta = -1.0
	}

	err := s.distractorStore.AdjustQuality(ctx, questionID, letter, delta)
	if err != nil {
		if errors.Is(err, store.ErrOptionSetNotFound) {
			return ErrOptionNotFound
		}
		return NewServiceError("record_feedback", "adjusting quality score failed", err)
	}
	return nil
}
