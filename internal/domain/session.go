package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionType represents the mix of question sources in a practice session.
type SessionType string

// Possible session type values.
const (
	SessionTypePYQOnly       SessionType = "pyq_only"
	SessionTypeGeneratedOnly SessionType = "generated_only"
	SessionTypeMixed         SessionType = "mixed"
)

// SessionStatus represents the lifecycle state of a practice session.
type SessionStatus string

// Possible session status values. Transitions are monotonic:
// active -> paused -> active is allowed, but completed is terminal.
const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusCompleted SessionStatus = "completed"
)

// AllowedQuestionCounts enumerates the session sizes the engine accepts.
var AllowedQuestionCounts = []int{10, 20, 50}

// Session-specific validation errors.
var (
	ErrSessionIDEmpty        = errors.New("session ID cannot be empty")
	ErrSessionOwnerEmpty     = errors.New("session owner ID cannot be empty")
	ErrSessionNoQuestions    = errors.New("session must contain at least one question")
	ErrInvalidQuestionCount  = errors.New("question count must be 10, 20, or 50")
	ErrAnswerIndexOutOfRange = errors.New("answer index outside question range")
	ErrSessionCompleted      = errors.New("session is completed and cannot be modified")
	ErrIllegalTransition     = errors.New("illegal session status transition")
)

// Permutation describes the frozen option order of a single MCQ question
// within a session. Permutation[i] is the index, in the question's stored
// option order, of the option displayed at position i. It is persisted at
// session start and replayed on resume; it is never re-rolled.
type Permutation [4]int

// Validate checks that the permutation is a bijection over [0,4).
func (p Permutation) Validate() error {
	var seen [4]bool
	for _, v := range p {
		if v < 0 || v > 3 || seen[v] {
			return fmt.Errorf("%w: permutation %v is not a valid ordering", ErrValidation, p)
		}
		seen[v] = true
	}
	return nil
}

// SessionConfig holds the caller-supplied filters for drawing a session's
// question set. Empty filter fields mean "any".
type SessionConfig struct {
	Topic        string       `json:"topic,omitempty"`
	Difficulty   Difficulty   `json:"difficulty,omitempty"`
	QuestionType QuestionType `json:"question_type,omitempty"`
	Count        int          `json:"count"`
}

// Validate checks the session configuration.
func (c SessionConfig) Validate() error {
	valid := false
	for _, n := range AllowedQuestionCounts {
		if c.Count == n {
			valid = true
			break
		}
	}
	if !valid {
		return ErrInvalidQuestionCount
	}

	if c.Difficulty != "" && !IsValidDifficulty(c.Difficulty) {
		return ErrInvalidDifficulty
	}

	if c.QuestionType != "" && !IsValidQuestionType(c.QuestionType) {
		return ErrInvalidQuestionType
	}

	return nil
}

// PracticeSession represents one timed attempt at a fixed, ordered set of
// questions by one owner. The question order and per-question shuffle
// permutations are frozen at creation; answers and per-question times
// accumulate incrementally until completion.
type PracticeSession struct {
	ID      uuid.UUID   `json:"id"`
	OwnerID uuid.UUID   `json:"owner_id"`
	Type    SessionType `json:"session_type"`
	Config  SessionConfig `json:"config"`

	// QuestionIDs is the frozen, ordered question set. Immutable after creation.
	QuestionIDs []uuid.UUID `json:"question_ids"`

	// Shuffles maps a question index to its frozen option permutation.
	// Only MCQ questions have an entry.
	Shuffles map[int]Permutation `json:"shuffles"`

	// Answers maps question index to the submitted value (option letter for
	// MCQ, free text for mains). Partial maps are expected mid-session.
	Answers map[int]string `json:"answers"`

	// QuestionTimes maps question index to elapsed seconds on that question.
	QuestionTimes map[int]int `json:"question_times"`

	CurrentIndex     int           `json:"current_index"`
	Status           SessionStatus `json:"status"`
	Score            *int          `json:"score,omitempty"`
	Accuracy         *float64      `json:"accuracy,omitempty"`
	WeakTopics       []string      `json:"weak_topics,omitempty"`
	StrongTopics     []string      `json:"strong_topics,omitempty"`
	TimeSpentSeconds int           `json:"time_spent_seconds"`

	// Version is the optimistic-lock column checked by the store on every
	// write. It is opaque to callers.
	Version int64 `json:"-"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewPracticeSession creates an active session with a frozen question order
// and shuffle set. Returns an error if validation fails.
func NewPracticeSession(
	ownerID uuid.UUID,
	sessionType SessionType,
	config SessionConfig,
	questionIDs []uuid.UUID,
	shuffles map[int]Permutation,
) (*PracticeSession, error) {
	now := time.Now().UTC()
	session := &PracticeSession{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Type:          sessionType,
		Config:        config,
		QuestionIDs:   questionIDs,
		Shuffles:      shuffles,
		Answers:       make(map[int]string),
		QuestionTimes: make(map[int]int),
		Status:        SessionStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	return session, nil
}

// Validate checks if the PracticeSession has valid data, including the
// invariant that answer and time keys fall inside the question index range.
func (s *PracticeSession) Validate() error {
	if s.ID == uuid.Nil {
		return ErrSessionIDEmpty
	}

	if s.OwnerID == uuid.Nil {
		return ErrSessionOwnerEmpty
	}

	if !IsValidSessionType(s.Type) {
		return ErrInvalidSessionType
	}

	if !isValidSessionStatus(s.Status) {
		return ErrInvalidSessionStatus
	}

	if len(s.QuestionIDs) == 0 {
		return ErrSessionNoQuestions
	}

	if err := s.Config.Validate(); err != nil {
		return err
	}

	for idx := range s.Answers {
		if idx < 0 || idx >= len(s.QuestionIDs) {
			return fmt.Errorf("%w: answer key %d", ErrAnswerIndexOutOfRange, idx)
		}
	}
	for idx := range s.QuestionTimes {
		if idx < 0 || idx >= len(s.QuestionIDs) {
			return fmt.Errorf("%w: time key %d", ErrAnswerIndexOutOfRange, idx)
		}
	}
	for idx, perm := range s.Shuffles {
		if idx < 0 || idx >= len(s.QuestionIDs) {
			return fmt.Errorf("%w: shuffle key %d", ErrAnswerIndexOutOfRange, idx)
		}
		if err := perm.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// CanTransitionTo reports whether moving from the current status to the
// target status is a legal lifecycle transition.
func (s *PracticeSession) CanTransitionTo(target SessionStatus) bool {
	switch s.Status {
	case SessionStatusActive:
		return target == SessionStatusPaused || target == SessionStatusCompleted
	case SessionStatusPaused:
		return target == SessionStatusActive || target == SessionStatusCompleted
	default:
		// completed is terminal
		return false
	}
}

// MergeProgress merges (never replaces) incremental answers and per-question
// times into the session and advances the current index. Keys outside the
// question index range are rejected before any mutation happens.
// Returns ErrSessionCompleted if the session is terminal.
func (s *PracticeSession) MergeProgress(currentIndex int, answers map[int]string, times map[int]int) error {
	if s.Status == SessionStatusCompleted {
		return ErrSessionCompleted
	}

	for idx := range answers {
		if idx < 0 || idx >= len(s.QuestionIDs) {
			return fmt.Errorf("%w: answer key %d", ErrAnswerIndexOutOfRange, idx)
		}
	}
	for idx := range times {
		if idx < 0 || idx >= len(s.QuestionIDs) {
			return fmt.Errorf("%w: time key %d", ErrAnswerIndexOutOfRange, idx)
		}
	}

	if s.Answers == nil {
		s.Answers = make(map[int]string)
	}
	if s.QuestionTimes == nil {
		s.QuestionTimes = make(map[int]int)
	}

	for idx, answer := range answers {
		s.Answers[idx] = answer
	}
	for idx, seconds := range times {
		s.QuestionTimes[idx] = seconds
	}

	if currentIndex >= 0 && currentIndex <= len(s.QuestionIDs) {
		s.CurrentIndex = currentIndex
	}
	s.UpdatedAt = time.Now().UTC()

	return nil
}

// MarkCompleted transitions the session to its terminal state and records the
// scoring result. Returns ErrIllegalTransition if the session is already
// completed.
func (s *PracticeSession) MarkCompleted(score int, accuracy float64, weakTopics, strongTopics []string, totalTime int) error {
	if !s.CanTransitionTo(SessionStatusCompleted) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.Status, SessionStatusCompleted)
	}

	now := time.Now().UTC()
	s.Status = SessionStatusCompleted
	s.Score = &score
	s.Accuracy = &accuracy
	s.WeakTopics = weakTopics
	s.StrongTopics = strongTopics
	s.TimeSpentSeconds = totalTime
	s.UpdatedAt = now
	s.CompletedAt = &now

	return nil
}

// IsValidSessionType checks if the given session type is valid.
func IsValidSessionType(t SessionType) bool {
	switch t {
	case SessionTypePYQOnly, SessionTypeGeneratedOnly, SessionTypeMixed:
		return true
	default:
		return false
	}
}

// isValidSessionStatus checks if the given status is a valid SessionStatus.
func isValidSessionStatus(status SessionStatus) bool {
	switch status {
	case SessionStatusActive, SessionStatusPaused, SessionStatusCompleted:
		return true
	default:
		return false
	}
}
