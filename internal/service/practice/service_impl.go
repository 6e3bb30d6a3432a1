package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/domain/scoring"
	"github.com/prepforge/practice-api/internal/domain/shuffle"
	"github.com/prepforge/practice-api/internal/platform/logger"
	"github.com/prepforge/practice-api/internal/selection"
	"github.com/prepforge/practice-api/internal/service/recommend"
	"github.com/prepforge/practice-api/internal/store"
)

// Verify interface compliance at compile time
var _ PracticeService = (*practiceServiceImpl)(nil)

// practiceServiceImpl implements the PracticeService interface.
type practiceServiceImpl struct {
	sessionStore    store.SessionStore
	questionStore   store.QuestionStore
	distractorStore store.DistractorStore
	selector        selection.Selector
	recommender     recommend.Service
	attemptRecorder AttemptRecorder
	scoringParams   *scoring.Params
	logger          *slog.Logger

	// newRNG supplies the randomness for question order and option shuffles.
	// Injectable for deterministic tests.
	newRNG func() *rand.Rand
}

// NewPracticeService creates a new PracticeService implementation.
// The recommender and attemptRecorder are optional: when nil, completion
// simply skips the recommendation or the attempt recording.
func NewPracticeService(
	sessionStore store.SessionStore,
	questionStore store.QuestionStore,
	distractorStore store.DistractorStore,
	selector selection.Selector,
	recommender recommend.Service,
	attemptRecorder AttemptRecorder,
	scoringParams *scoring.Params,
	logger *slog.Logger,
) PracticeService {
	if sessionStore == nil {
		panic("sessionStore cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if questionStore == nil {
		panic("questionStore cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if distractorStore == nil {
		panic("distractorStore cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if selector == nil {
		panic("selector cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if scoringParams == nil {
		scoringParams = scoring.NewDefaultParams()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &practiceServiceImpl{
		sessionStore:    sessionStore,
		questionStore:   questionStore,
		distractorStore: distractorStore,
		selector:        selector,
		recommender:     recommender,
		attemptRecorder: attemptRecorder,
		scoringParams:   scoringParams,
		logger:          logger.With(slog.String("component", "practice_service")),
		newRNG: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// StartSession implements PracticeService.StartSession.
func (s *practiceServiceImpl) StartSession(
	ctx context.Context,
	ownerID uuid.UUID,
	sessionType domain.SessionType,
	cfg domain.SessionConfig,
) (*domain.PracticeSession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if ownerID == uuid.Nil {
		return nil, NewServiceError("start_session", "owner ID is required", domain.ErrValidation)
	}
	if !domain.IsValidSessionType(sessionType) {
		return nil, NewServiceError("start_session", "invalid session type", domain.ErrInvalidSessionType)
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewServiceError("start_session", "invalid session config", err)
	}

	rng := s.newRNG()

	questionIDs, err := s.selector.Select(ctx, sessionType, cfg, rng)
	if err != nil {
		if errors.Is(err, selection.ErrInsufficientQuestions) {
			log.Info("not enough questions for session",
				slog.String("owner_id", ownerID.String()),
				slog.String("topic", cfg.Topic),
				slog.String("error", err.Error()))
			return nil, err
		}
		return nil, NewServiceError("start_session", "question selection failed", err)
	}

	questions, err := s.questionStore.GetByIDs(ctx, questionIDs)
	if err != nil {
		return nil, NewServiceError("start_session", "resolving selected questions failed", err)
	}

	// Each MCQ in the set gets a frozen option permutation, rolled once here
	// and replayed on every subsequent render. The branch follows the
	// question's own type: a type-unfiltered session can mix MCQ and mains.
	shuffles := make(map[int]domain.Permutation)
	for i, q := range questions {
		if q.Type != domain.QuestionTypeMCQ {
			continue
		}
		perm, err := shuffle.NewPermutation(rng)
		if err != nil {
			return nil, NewServiceError("start_session", "shuffle generation failed", err)
		}
		shuffles[i] = perm
	}

	session, err := domain.NewPracticeSession(ownerID, sessionType, cfg, questionIDs, shuffles)
	if err != nil {
		return nil, NewServiceError("start_session", "session validation failed", err)
	}

	if err := s.sessionStore.Create(ctx, session); err != nil {
		return nil, NewServiceError("start_session", "persisting session failed", err)
	}

	log.Info("practice session started",
		slog.String("session_id", session.ID.String()),
		slog.String("owner_id", ownerID.String()),
		slog.String("session_type", string(sessionType)),
		slog.Int("question_count", len(questionIDs)))
	return session, nil
}

// GetSession implements PracticeService.GetSession.
func (s *practiceServiceImpl) GetSession(
	ctx context.Context,
	ownerID, sessionID uuid.UUID,
) (*domain.PracticeSession, error) {
	session, err := s.sessionStore.Get(ctx, sessionID, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, NewServiceError("get_session", "loading session failed", err)
	}
	return session, nil
}

// SaveProgress implements PracticeService.SaveProgress.
func (s *practiceServiceImpl) SaveProgress(
	ctx context.Context,
	ownerID, sessionID uuid.UUID,
	update ProgressUpdate,
) (*domain.PracticeSession, error) {
	return s.mutateSession(ctx, ownerID, sessionID, "save_progress",
		func(session *domain.PracticeSession) error {
			// Incremental saves only make sense against an active session;
			// a paused session's progress travels with pause and complete.
			switch session.Status {
			case domain.SessionStatusCompleted:
				return ErrSessionAlreadyCompleted
			case domain.SessionStatusActive:
			default:
				return fmt.Errorf("%w: cannot save progress while %s",
					ErrInvalidStateTransition, session.Status)
			}
			err := session.MergeProgress(update.CurrentIndex, update.Answers, update.QuestionTimes)
			if errors.Is(err, domain.ErrSessionCompleted) {
				return ErrSessionAlreadyCompleted
			}
			return err
		})
}

// PauseSession implements PracticeService.PauseSession. The status flip, the
// progress snapshot, and the elapsed-time accumulation land in one write so a
// crash cannot pause the session without its progress.
func (s *practiceServiceImpl) PauseSession(
	ctx context.Context,
	ownerID, sessionID uuid.UUID,
	update PauseUpdate,
) (*domain.PracticeSession, error) {
	if update.ElapsedSeconds < 0 {
		return nil, NewServiceError("pause_session", "elapsed time cannot be negative", domain.ErrValidation)
	}
	return s.mutateSession(ctx, ownerID, sessionID, "pause_session",
		func(session *domain.PracticeSession) error {
			if err := s.transition(session, domain.SessionStatusPaused); err != nil {
				return err
			}
			if err := session.MergeProgress(update.CurrentIndex, update.Answers, update.QuestionTimes); err != nil {
				return err
			}
			session.TimeSpentSeconds += update.ElapsedSeconds
			return nil
		})
}

// ResumeSession implements PracticeService.ResumeSession.
func (s *practiceServiceImpl) ResumeSession(
	ctx context.Context,
	ownerID, sessionID uuid.UUID,
) (*ResumedSession, error) {
	session, err := s.mutateSession(ctx, ownerID, sessionID, "resume_session",
		func(session *domain.PracticeSession) error {
			return s.transition(session, domain.SessionStatusActive)
		})
	if err != nil {
		return nil, err
	}

	// Re-fetch the frozen question set and replay the stored shuffles so the
	// client sees exactly the ordering it saw before pausing.
	questions, err := s.questionStore.GetByIDs(ctx, session.QuestionIDs)
	if err != nil {
		return nil, NewServiceError("resume_session", "resolving session questions failed", err)
	}
	rendered := make([]*ShuffledQuestion, len(questions))
	for i, q := range questions {
		rendered[i], err = s.renderQuestion(ctx, session, q, i)
		if err != nil {
			return nil, err
		}
	}
	return &ResumedSession{Session: session, Questions: rendered}, nil
}

// transition applies a pause/resume status change after checking legality.
func (s *practiceServiceImpl) transition(
	session *domain.PracticeSession,
	target domain.SessionStatus,
) error {
	if session.Status == target {
		return fmt.Errorf("%w: already %s", ErrInvalidStateTransition, target)
	}
	if !session.CanTransitionTo(target) {
		if session.Status == domain.SessionStatusCompleted {
			return ErrSessionAlreadyCompleted
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, session.Status, target)
	}
	session.Status = target
	session.UpdatedAt = time.Now().UTC()
	return nil
}

// CompleteSession implements PracticeService.CompleteSession.
func (s *practiceServiceImpl) CompleteSession(
	ctx context.Context,
	ownerID, sessionID uuid.UUID,
	update CompleteUpdate,
) (*CompletionSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// The question set is frozen, so the answer key can be resolved once
	// even if the session write below has to retry.
	initial, err := s.GetSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if initial.Status == domain.SessionStatusCompleted {
		return nil, ErrSessionAlreadyCompleted
	}

	questions, err := s.questionStore.GetByIDs(ctx, initial.QuestionIDs)
	if err != nil {
		return nil, NewServiceError("complete_session", "resolving session questions failed", err)
	}

	keys, err := s.buildAnswerKeys(ctx, initial, questions)
	if err != nil {
		return nil, NewServiceError("complete_session", "building answer key failed", err)
	}

	var result *scoring.Result
	session, err := s.mutateSession(ctx, ownerID, sessionID, "complete_session",
		func(session *domain.PracticeSession) error {
			// The client's final batch merges before scoring so answers
			// submitted with the completion itself still count.
			if merr := session.MergeProgress(update.CurrentIndex, update.Answers, update.QuestionTimes); merr != nil {
				if errors.Is(merr, domain.ErrSessionCompleted) {
					return ErrSessionAlreadyCompleted
				}
				return merr
			}

			scored, err := scoring.Score(keys, session.Answers, s.scoringParams)
			if err != nil {
				return err
			}

			totalTime := update.TotalTimeSeconds
			if totalTime <= 0 {
				totalTime = session.TimeSpentSeconds
			}
			if totalTime == 0 {
				for _, seconds := range session.QuestionTimes {
					totalTime += seconds
				}
			}

			if err := session.MarkCompleted(
				scored.Score, scored.Accuracy,
				scored.WeakTopics, scored.StrongTopics,
				totalTime,
			); err != nil {
				if errors.Is(err, domain.ErrIllegalTransition) {
					return ErrSessionAlreadyCompleted
				}
				return err
			}
			result = scored
			return nil
		})
	if err != nil {
		return nil, err
	}

	attempts := s.buildAttempts(ctx, session, questions, result)
	if s.attemptRecorder != nil && len(attempts) > 0 {
		if err := s.attemptRecorder.RecordAttempts(ctx, attempts); err != nil {
			// Attempt recording is best-effort: completion already committed.
			log.Warn("failed to record session attempts",
				slog.String("session_id", session.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	summary := &CompletionSummary{Session: session, Result: result}
	if s.recommender != nil {
		rec, err := s.recommender.RecommendAfter(ctx, ownerID, attempts)
		if err != nil {
			log.Warn("failed to compute difficulty recommendation",
				slog.String("session_id", session.ID.String()),
				slog.String("error", err.Error()))
		} else {
			summary.Recommendation = rec
		}
	}

	log.Info("practice session completed",
		slog.String("session_id", session.ID.String()),
		slog.String("owner_id", ownerID.String()),
		slog.Int("score", result.Score),
		slog.Float64("accuracy", result.Accuracy))
	return summary, nil
}

// ShuffledQuestion implements PracticeService.ShuffledQuestion.
func (s *practiceServiceImpl) ShuffledQuestion(
	ctx context.Context,
	ownerID, sessionID uuid.UUID,
	index int,
) (*ShuffledQuestion, error) {
	session, err := s.GetSession(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(session.QuestionIDs) {
		return nil, fmt.Errorf("%w: index %d of %d questions",
			ErrQuestionIndexOutOfRange, index, len(session.QuestionIDs))
	}

	questions, err := s.questionStore.GetByIDs(ctx, []uuid.UUID{session.QuestionIDs[index]})
	if err != nil {
		return nil, NewServiceError("shuffled_question", "loading question failed", err)
	}
	return s.renderQuestion(ctx, session, questions[0], index)
}

// renderQuestion produces the display form of one session question, replaying
// the frozen shuffle for MCQs. Non-MCQ questions render without options.
func (s *practiceServiceImpl) renderQuestion(
	ctx context.Context,
	session *domain.PracticeSession,
	question *domain.Question,
	index int,
) (*ShuffledQuestion, error) {
	rendered := &ShuffledQuestion{
		QuestionID: question.ID,
		Index:      index,
		Text:       question.Text,
		Topic:      question.Topic,
		Difficulty: question.Difficulty,
		Type:       question.Type,
	}
	if question.Type != domain.QuestionTypeMCQ {
		return rendered, nil
	}

	perm, ok := session.Shuffles[index]
	if !ok {
		return nil, fmt.Errorf("%w: no frozen shuffle for index %d", ErrOptionsUnavailable, index)
	}

	texts, correctIdx, err := s.optionTexts(ctx, question.ID)
	if err != nil {
		return nil, err
	}

	shuffled, err := shuffle.Apply(perm, texts, correctIdx)
	if err != nil {
		return nil, NewServiceError("shuffled_question", "applying shuffle failed", err)
	}
	rendered.Options = shuffled.Options[:]
	return rendered, nil
}

// optionTexts loads a question's option set and returns the texts in stored
// letter order plus the index of the correct option.
func (s *practiceServiceImpl) optionTexts(
	ctx context.Context,
	questionID uuid.UUID,
) ([4]string, int, error) {
	var texts [4]string

	options, err := s.distractorStore.GetByQuestion(ctx, questionID)
	if err != nil {
		if errors.Is(err, store.ErrOptionSetNotFound) {
			return texts, 0, fmt.Errorf("%w: question %s", ErrOptionsUnavailable, questionID)
		}
		return texts, 0, NewServiceError("shuffled_question", "loading options failed", err)
	}
	if len(options) != len(texts) {
		return texts, 0, fmt.Errorf("%w: question %s has %d options",
			ErrOptionsUnavailable, questionID, len(options))
	}

	correctIdx := -1
	for i, opt := range options {
		texts[i] = opt.Text
		if opt.IsCorrect {
			correctIdx = i
		}
	}
	if correctIdx < 0 {
		return texts, 0, fmt.Errorf("%w: question %s has no correct option",
			ErrOptionsUnavailable, questionID)
	}
	return texts, correctIdx, nil
}

// buildAnswerKeys resolves the server-side answer key for every question in
// the session. For MCQ questions with a frozen shuffle the correct value is
// the shuffled letter the client would have submitted; otherwise it is the
// reference answer text.
func (s *practiceServiceImpl) buildAnswerKeys(
	ctx context.Context,
	session *domain.PracticeSession,
	questions []*domain.Question,
) ([]scoring.QuestionKey, error) {
	keys := make([]scoring.QuestionKey, len(questions))
	for i, q := range questions {
		key := scoring.QuestionKey{
			QuestionID:   q.ID,
			Topic:        q.Topic,
			Difficulty:   q.Difficulty,
			Source:       q.Source,
			CorrectValue: q.CorrectAnswer,
		}

		if perm, ok := session.Shuffles[i]; ok && q.Type == domain.QuestionTypeMCQ {
			_, correctIdx, err := s.optionTexts(ctx, q.ID)
			if err == nil {
				letter, lerr := shuffle.CorrectLetter(perm, correctIdx)
				if lerr != nil {
					return nil, lerr
				}
				key.CorrectValue = letter
			} else if !errors.Is(err, ErrOptionsUnavailable) {
				return nil, err
			}
			// Without a persisted option set the reference answer text
			// remains the key, matching what the client was shown.
		}
		keys[i] = key
	}
	return keys, nil
}

// buildAttempts converts a scored session into append-only attempt records,
// ordered most recent first: the last question in the session leads the
// slice, matching the window ordering the recommender consumes. Only
// answered questions produce attempts; skipped ones leave no history.
func (s *practiceServiceImpl) buildAttempts(
	ctx context.Context,
	session *domain.PracticeSession,
	questions []*domain.Question,
	result *scoring.Result,
) []*domain.QuestionAttempt {
	log := logger.FromContextOrDefault(ctx, s.logger)

	attempts := make([]*domain.QuestionAttempt, 0, len(session.Answers))
	for i := len(questions) - 1; i >= 0; i-- {
		q := questions[i]
		if _, answered := session.Answers[i]; !answered {
			continue
		}
		attempt, err := domain.NewQuestionAttempt(
			session.OwnerID,
			q.ID,
			q.Source,
			result.Correctness[i],
			q.Difficulty,
			session.QuestionTimes[i],
		)
		if err != nil {
			log.Warn("skipping invalid attempt record",
				slog.String("question_id", q.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		attempts = append(attempts, attempt)
	}
	return attempts
}

// mutateSession loads the session, applies fn, and writes it back with
// optimistic locking. A version conflict re-reads the fresh row and retries
// the mutation exactly once.
func (s *practiceServiceImpl) mutateSession(
	ctx context.Context,
	ownerID, sessionID uuid.UUID,
	operation string,
	fn func(*domain.PracticeSession) error,
) (*domain.PracticeSession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	for attempt := 0; ; attempt++ {
		session, err := s.GetSession(ctx, ownerID, sessionID)
		if err != nil {
			return nil, err
		}

		if err := fn(session); err != nil {
			if errors.Is(err, ErrSessionAlreadyCompleted) ||
				errors.Is(err, ErrInvalidStateTransition) ||
				errors.Is(err, domain.ErrAnswerIndexOutOfRange) {
				return nil, err
			}
			return nil, NewServiceError(operation, "applying session mutation failed", err)
		}

		err = s.sessionStore.Update(ctx, session)
		if err == nil {
			return session, nil
		}
		if errors.Is(err, store.ErrVersionConflict) && attempt == 0 {
			log.Debug("session version conflict, retrying",
				slog.String("session_id", sessionID.String()),
				slog.String("operation", operation))
			continue
		}
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, NewServiceError(operation, "persisting session failed", err)
	}
}
