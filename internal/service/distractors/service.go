// Package distractors manages MCQ option sets: generating validated
// distractors for a question, persisting the assembled four-option set, and
// recording quality feedback against individual options.
package distractors

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/prepforge/practice-api/internal/domain"
)

// Common error types for the distractor service
var (
	// ErrQuestionNotFound indicates the question does not exist.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrNotMCQ indicates distractors were requested for a question type
	// that has no options.
	ErrNotMCQ = errors.New("question is not multiple choice")

	// ErrInsufficientDistractors indicates generation could not produce
	// enough candidates that survive validation.
	ErrInsufficientDistractors = errors.New("insufficient valid distractors generated")

	// ErrOptionNotFound indicates feedback targeted an option that does not
	// exist.
	ErrOptionNotFound = errors.New("option not found")
)

// Feedback represents one user's quality signal about a displayed option.
type Feedback struct {
	// Helpful reports whether the option read as a plausible choice.
	// Unhelpful feedback (an obviously wrong or broken distractor)
	// decreases the option's quality score.
	Helpful bool `json:"helpful"`
}

// Service manages persisted MCQ option sets.
type Service interface {
	// GenerateOptions produces and persists the four-option set for an MCQ
	// question: the correct answer plus three generated, validated
	// distractors. The operation is idempotent: a question that already has
	// an option set gets it back unchanged.
	//
	// Returns ErrInsufficientDistractors when generation cannot yield three
	// candidates that survive validation.
	GenerateOptions(ctx context.Context, questionID uuid.UUID) ([]*domain.DistractorOption, error)

	// GetOptions retrieves a question's persisted option set in letter order.
	// Returns ErrOptionNotFound if the question has no option set.
	GetOptions(ctx context.Context, questionID uuid.UUID) ([]*domain.DistractorOption, error)

	// RecordFeedback adjusts the quality score of one option by the
	// feedback's signal. Scores are a running tally; options that keep
	// collecting unhelpful marks surface in review tooling.
	RecordFeedback(ctx context.Context, questionID uuid.UUID, letter string, fb Feedback) error
}

// ServiceError wraps distractor service failures with operation context.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a ServiceError for the given operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{Operation: operation, Message: message, Err: err}
}
