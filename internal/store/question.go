package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/prepforge/practice-api/internal/domain"
)

// QuestionFilter describes the criteria for drawing candidate questions.
// Zero-valued fields mean "any". Topic matching is case-insensitive substring
// (ILIKE); the remaining fields are exact matches.
type QuestionFilter struct {
	Topic        string
	Difficulty   domain.Difficulty
	QuestionType domain.QuestionType
	Source       domain.QuestionSource

	// Limit caps the number of returned records; 0 means no cap.
	Limit int
}

// QuestionStore defines the read interface over the question bank.
//
// Returned records include the correct answer; it is the API layer's job to
// strip the answer key from anything destined for an unsubmitted client
// request.
type QuestionStore interface {
	// Find returns the questions matching the filter.
	// An empty result is not an error.
	Find(ctx context.Context, filter QuestionFilter) ([]*domain.Question, error)

	// GetByIDs retrieves questions by ID, preserving the order of the input
	// slice in the result. Returns ErrQuestionNotFound if any requested ID
	// is missing, since a session's frozen question set must resolve fully.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Question, error)
}
