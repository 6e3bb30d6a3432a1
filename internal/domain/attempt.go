package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Attempt-specific validation errors.
var (
	ErrAttemptIDEmpty         = errors.New("attempt ID cannot be empty")
	ErrAttemptOwnerEmpty      = errors.New("attempt owner ID cannot be empty")
	ErrAttemptQuestionEmpty   = errors.New("attempt question ID cannot be empty")
	ErrAttemptNegativeSeconds = errors.New("attempt time taken cannot be negative")
)

// QuestionAttempt records a single answered question. Attempts are append-only:
// they are never mutated or deleted after creation. They feed the adaptive
// recommender's rolling window and long-term analytics.
type QuestionAttempt struct {
	ID                  uuid.UUID      `json:"id"`
	OwnerID             uuid.UUID      `json:"owner_id"`
	QuestionID          uuid.UUID      `json:"question_id"`
	QuestionSource      QuestionSource `json:"question_source"`
	IsCorrect           bool           `json:"is_correct"`
	DifficultyAtAttempt Difficulty     `json:"difficulty_at_attempt"`
	TimeTakenSeconds    int            `json:"time_taken_seconds"`
	CreatedAt           time.Time      `json:"created_at"`
}

// NewQuestionAttempt creates a new attempt record with a generated ID and the
// current UTC timestamp. Returns an error if validation fails.
func NewQuestionAttempt(
	ownerID, questionID uuid.UUID,
	source QuestionSource,
	isCorrect bool,
	difficulty Difficulty,
	timeTakenSeconds int,
) (*QuestionAttempt, error) {
	attempt := &QuestionAttempt{
		ID:                  uuid.New(),
		OwnerID:             ownerID,
		QuestionID:          questionID,
		QuestionSource:      source,
		IsCorrect:           isCorrect,
		DifficultyAtAttempt: difficulty,
		TimeTakenSeconds:    timeTakenSeconds,
		CreatedAt:           time.Now().UTC(),
	}

	if err := attempt.Validate(); err != nil {
		return nil, err
	}

	return attempt, nil
}

// Validate checks if the QuestionAttempt has valid data.
func (a *QuestionAttempt) Validate() error {
	if a.ID == uuid.Nil {
		return ErrAttemptIDEmpty
	}

	if a.OwnerID == uuid.Nil {
		return ErrAttemptOwnerEmpty
	}

	if a.QuestionID == uuid.Nil {
		return ErrAttemptQuestionEmpty
	}

	if !IsValidQuestionSource(a.QuestionSource) {
		return ErrInvalidQuestionSource
	}

	if !IsValidDifficulty(a.DifficultyAtAttempt) {
		return ErrInvalidDifficulty
	}

	if a.TimeTakenSeconds < 0 {
		return ErrAttemptNegativeSeconds
	}

	return nil
}
