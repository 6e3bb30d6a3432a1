package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prepforge/practice-api/internal/store"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
	uniqueViolationCode = "23505"

	// foreignKeyViolationCode is the PostgreSQL error code for foreign key violations
	foreignKeyViolationCode = "23503"

	// checkViolationCode is the PostgreSQL error code for check constraint violations
	checkViolationCode = "23514"

	// notNullViolationCode is the PostgreSQL error code for not null violations
	notNullViolationCode = "23502"
)

// MapError maps a database error to the store-level error taxonomy, wrapping
// the original error so callers keep full context for debugging.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		case foreignKeyViolationCode:
			return fmt.Errorf("%w: foreign key violation (%s): %v",
				store.ErrInvalidEntity, pgErr.ConstraintName, err)
		case checkViolationCode:
			return fmt.Errorf("%w: check constraint violation (%s): %v",
				store.ErrInvalidEntity, pgErr.ConstraintName, err)
		case notNullViolationCode:
			return fmt.Errorf("%w: not null violation (%s): %v",
				store.ErrInvalidEntity, pgErr.ColumnName, err)
		}
	}

	return err
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique
// constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// IsForeignKeyViolation checks if the given error is a PostgreSQL foreign key
// constraint violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// CheckRowsAffected examines the number of rows affected by a write. If no
// rows were affected it returns notFoundErr, which callers set to the
// entity-specific sentinel.
func CheckRowsAffected(result sql.Result, notFoundErr error) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundErr
	}
	return nil
}
