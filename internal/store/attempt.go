package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/prepforge/practice-api/internal/domain"
)

// AttemptStore defines the interface for the append-only question attempt log.
type AttemptStore interface {
	// Append persists a new attempt record. Attempts are never updated or
	// deleted after creation.
	Append(ctx context.Context, attempt *domain.QuestionAttempt) error

	// ListRecentByOwner returns up to limit attempts for the owner, most
	// recent first. An empty result is not an error.
	ListRecentByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.QuestionAttempt, error)

	// WithTx returns a new AttemptStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) AttemptStore
}
