package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/prepforge/practice-api/internal/domain"
)

// DistractorStore defines the interface for persisted MCQ option sets.
type DistractorStore interface {
	// CreateSet saves a question's complete option set (correct answer plus
	// three distractors) atomically. The set must satisfy
	// domain.ValidateOptionSet; any existing options for the question are an
	// ErrDuplicate.
	//
	// IMPORTANT: This method MUST be run within a transaction for atomicity.
	// Use WithTx together with store.RunInTransaction.
	CreateSet(ctx context.Context, options []*domain.DistractorOption) error

	// GetByQuestion retrieves a question's option set in letter order.
	// Returns ErrOptionSetNotFound if no options exist for the question.
	GetByQuestion(ctx context.Context, questionID uuid.UUID) ([]*domain.DistractorOption, error)

	// AdjustQuality nudges the quality score of one option by delta,
	// initializing the score to zero first if it was never set.
	// Returns ErrOptionSetNotFound if the option does not exist.
	AdjustQuality(ctx context.Context, questionID uuid.UUID, letter string, delta float64) error

	// WithTx returns a new DistractorStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) DistractorStore
}
