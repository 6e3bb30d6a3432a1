package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/prepforge/practice-api/internal/domain"
)

// SessionStore defines the interface for practice session persistence.
//
// Every read and write is scoped to (session ID, owner ID): a session that
// exists but belongs to another owner behaves exactly like a missing one.
type SessionStore interface {
	// Create persists a new session. The session must be valid according to
	// domain validation rules. Returns ErrDuplicate if the ID already exists.
	Create(ctx context.Context, session *domain.PracticeSession) error

	// Get retrieves a session by ID for the given owner.
	// Returns ErrSessionNotFound if no such session exists for that owner.
	Get(ctx context.Context, id, ownerID uuid.UUID) (*domain.PracticeSession, error)

	// Update writes the session back with compare-and-swap semantics: the
	// write only succeeds if the row's version still matches
	// session.Version, and the stored version is incremented atomically.
	// On success session.Version is updated in place to the new value.
	//
	// Returns ErrVersionConflict if a concurrent writer got there first;
	// the caller should re-read the session and retry the mutation.
	// Returns ErrSessionNotFound if the session does not exist for the owner.
	Update(ctx context.Context, session *domain.PracticeSession) error

	// WithTx returns a new SessionStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller,
	// typically through store.RunInTransaction.
	WithTx(tx *sql.Tx) SessionStore
}
