// Package practice implements the session lifecycle: starting a session with
// a frozen question set, saving incremental progress, pausing and resuming,
// and completing with scoring, attempt recording, and a next-difficulty
// recommendation.
package practice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/domain/adaptive"
	"github.com/prepforge/practice-api/internal/domain/scoring"
)

// ProgressUpdate carries an incremental save from the client. Answers and
// QuestionTimes are merged into the session, never replacing entries the
// update does not mention.
type ProgressUpdate struct {
	Answers       map[int]string `json:"answers"`
	QuestionTimes map[int]int    `json:"question_times"`

	// CurrentIndex advances the session cursor. Negative values leave the
	// stored cursor untouched, for updates that only carry answers.
	CurrentIndex int `json:"current_index"`
}

// PauseUpdate is the final progress snapshot submitted with a pause, plus
// the wall-clock seconds consumed since the session started or last resumed.
// The elapsed time accumulates into the session's time budget; the engine
// tracks it but never enforces a limit.
type PauseUpdate struct {
	ProgressUpdate
	ElapsedSeconds int `json:"elapsed_seconds"`
}

// CompleteUpdate carries the client's trailing answers and timings, merged
// into the session before scoring. TotalTimeSeconds, when positive, becomes
// the session's recorded duration; otherwise the accumulated pause budget or
// the per-question times stand in.
type CompleteUpdate struct {
	ProgressUpdate
	TotalTimeSeconds int `json:"total_time_seconds"`
}

// ResumedSession is a resumed session together with its full question set,
// re-fetched and rendered with the frozen per-session shuffles so the client
// restores its view in one call.
type ResumedSession struct {
	Session   *domain.PracticeSession `json:"session"`
	Questions []*ShuffledQuestion     `json:"questions"`
}

// CompletionSummary is the result of completing a session.
type CompletionSummary struct {
	Session *domain.PracticeSession `json:"session"`
	Result  *scoring.Result         `json:"result"`

	// Recommendation is computed best-effort after completion; it is nil
	// when the recommender is unavailable, never an error.
	Recommendation *adaptive.Recommendation `json:"recommendation,omitempty"`
}

// ShuffledQuestion is one question rendered for display: options appear in
// the session's frozen shuffled order and the answer key is stripped.
type ShuffledQuestion struct {
	QuestionID uuid.UUID           `json:"question_id"`
	Index      int                 `json:"index"`
	Text       string              `json:"text"`
	Topic      string              `json:"topic"`
	Difficulty domain.Difficulty   `json:"difficulty"`
	Type       domain.QuestionType `json:"question_type"`

	// Options holds the displayed option texts in A..D position order.
	// Empty for mains questions, which take free-text answers.
	Options []string `json:"options,omitempty"`
}

// PracticeService manages the lifecycle of practice sessions.
type PracticeService interface {
	// StartSession selects questions for the given config, freezes their
	// order and per-question option shuffles, and persists a new active
	// session.
	//
	// Returns selection.ErrInsufficientQuestions (via errors.Is) when the
	// question bank cannot cover the request.
	StartSession(
		ctx context.Context,
		ownerID uuid.UUID,
		sessionType domain.SessionType,
		cfg domain.SessionConfig,
	) (*domain.PracticeSession, error)

	// GetSession retrieves a session owned by the given user.
	// Returns ErrSessionNotFound if it does not exist for that owner.
	GetSession(ctx context.Context, ownerID, sessionID uuid.UUID) (*domain.PracticeSession, error)

	// SaveProgress merges incremental answers and timings into an active
	// session. Concurrent saves are serialized through optimistic locking; a
	// version conflict is retried once against the fresh row before failing.
	// Returns ErrInvalidStateTransition when the session is paused.
	SaveProgress(
		ctx context.Context,
		ownerID, sessionID uuid.UUID,
		update ProgressUpdate,
	) (*domain.PracticeSession, error)

	// PauseSession transitions an active session to paused, merging the
	// client's progress snapshot and accumulating the consumed wall-clock
	// time in the same write. Returns ErrInvalidStateTransition for any
	// other starting state.
	PauseSession(
		ctx context.Context,
		ownerID, sessionID uuid.UUID,
		update PauseUpdate,
	) (*domain.PracticeSession, error)

	// ResumeSession transitions a paused session back to active and returns
	// it with the full question set in frozen shuffled order.
	// Returns ErrInvalidStateTransition for any other starting state.
	ResumeSession(ctx context.Context, ownerID, sessionID uuid.UUID) (*ResumedSession, error)

	// CompleteSession merges the client's final answers, scores the session
	// against the server-side answer key, transitions it to the terminal
	// completed state, and kicks off best-effort attempt recording and
	// difficulty recommendation. Scoring and the state transition are
	// atomic; attempt recording and the recommendation never fail the
	// completion.
	//
	// Returns ErrSessionAlreadyCompleted if called twice.
	CompleteSession(
		ctx context.Context,
		ownerID, sessionID uuid.UUID,
		update CompleteUpdate,
	) (*CompletionSummary, error)

	// ShuffledQuestion returns the question at the given index with its
	// options in the session's frozen shuffled order. The same index always
	// yields the same order for the life of the session.
	ShuffledQuestion(
		ctx context.Context,
		ownerID, sessionID uuid.UUID,
		index int,
	) (*ShuffledQuestion, error)
}

// Common error types for PracticeService
var (
	// ErrSessionNotFound indicates the session does not exist for the owner.
	// Sessions owned by other users are deliberately indistinguishable from
	// missing ones.
	ErrSessionNotFound = errors.New("practice session not found")

	// ErrSessionAlreadyCompleted indicates a write against a terminal session.
	ErrSessionAlreadyCompleted = errors.New("practice session already completed")

	// ErrInvalidStateTransition indicates a pause/resume/complete call from
	// a state that does not allow it.
	ErrInvalidStateTransition = errors.New("invalid session state transition")

	// ErrQuestionIndexOutOfRange indicates a question index outside the
	// session's frozen question list.
	ErrQuestionIndexOutOfRange = errors.New("question index out of range")

	// ErrOptionsUnavailable indicates an MCQ question has no persisted
	// option set or shuffle, so it cannot be rendered.
	ErrOptionsUnavailable = errors.New("question options unavailable")
)

// AttemptRecorder receives the attempt records produced by a completed
// session. Implementations may record asynchronously; completion does not
// wait on them.
type AttemptRecorder interface {
	RecordAttempts(ctx context.Context, attempts []*domain.QuestionAttempt) error
}

// ServiceError wraps errors from the practice service with the failed
// operation so callers can differentiate with errors.As instead of string
// matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "start_session").
	Operation string
	// Message is a human-readable description of the error.
	Message string
	// Err is the underlying error that caused the failure.
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError for the given operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
