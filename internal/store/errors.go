package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the
	// store. This is a generic version of the entity-specific not found
	// errors below.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate of
	// a unique entity.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrVersionConflict is returned when a compare-and-swap session update
	// loses the race: the row's version no longer matches the one the caller
	// read. The caller should re-read and retry.
	ErrVersionConflict = errors.New("version conflict on concurrent update")

	// ErrTransactionFailed is returned when a database transaction fails to
	// commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrSessionNotFound indicates the requested practice session does not
	// exist or does not belong to the caller. The two cases are deliberately
	// indistinguishable so session IDs cannot be probed across owners.
	ErrSessionNotFound = fmt.Errorf("%w: practice session", ErrNotFound)

	// ErrQuestionNotFound indicates a requested question does not exist.
	ErrQuestionNotFound = fmt.Errorf("%w: question", ErrNotFound)

	// ErrOptionSetNotFound indicates no distractor options exist for the
	// requested question.
	ErrOptionSetNotFound = fmt.Errorf("%w: distractor options", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "session", "question")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation,
// message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
