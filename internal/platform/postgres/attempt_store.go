package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/platform/logger"
	"github.com/prepforge/practice-api/internal/store"
)

// PostgresAttemptStore implements the store.AttemptStore interface using a
// PostgreSQL database as the storage backend. The question_attempts table is
// append-only; no update or delete statements exist here.
type PostgresAttemptStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAttemptStore creates a new PostgreSQL implementation of the
// AttemptStore interface.
func NewPostgresAttemptStore(db store.DBTX, logger *slog.Logger) *PostgresAttemptStore {
	if db == nil {
		panic("db cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresAttemptStore{
		db:     db,
		logger: logger.With(slog.String("component", "attempt_store")),
	}
}

// Ensure PostgresAttemptStore implements store.AttemptStore interface
var _ store.AttemptStore = (*PostgresAttemptStore)(nil)

// Append implements store.AttemptStore.Append.
func (s *PostgresAttemptStore) Append(ctx context.Context, attempt *domain.QuestionAttempt) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := attempt.Validate(); err != nil {
		log.Warn("attempt validation failed during append",
			slog.String("error", err.Error()),
			slog.String("attempt_id", attempt.ID.String()))
		return err
	}

	query := `
		INSERT INTO question_attempts (
			id, owner_id, question_id, question_source, is_correct,
			difficulty_at_attempt, time_taken_seconds, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.OwnerID,
		attempt.QuestionID,
		attempt.QuestionSource,
		attempt.IsCorrect,
		attempt.DifficultyAtAttempt,
		attempt.TimeTakenSeconds,
		attempt.CreatedAt,
	)
	if err != nil {
		log.Error("failed to append attempt",
			slog.String("error", err.Error()),
			slog.String("attempt_id", attempt.ID.String()),
			slog.String("owner_id", attempt.OwnerID.String()))
		return MapError(err)
	}

	log.Debug("attempt appended",
		slog.String("attempt_id", attempt.ID.String()),
		slog.String("question_id", attempt.QuestionID.String()),
		slog.Bool("is_correct", attempt.IsCorrect))
	return nil
}

// ListRecentByOwner implements store.AttemptStore.ListRecentByOwner.
func (s *PostgresAttemptStore) ListRecentByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.QuestionAttempt, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT id, owner_id, question_id, question_source, is_correct,
			difficulty_at_attempt, time_taken_seconds, created_at
		FROM question_attempts
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		log.Error("failed to list attempts",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var attempts []*domain.QuestionAttempt
	for rows.Next() {
		var a domain.QuestionAttempt
		err := rows.Scan(
			&a.ID,
			&a.OwnerID,
			&a.QuestionID,
			&a.QuestionSource,
			&a.IsCorrect,
			&a.DifficultyAtAttempt,
			&a.TimeTakenSeconds,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, MapError(err)
		}
		attempts = append(attempts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return attempts, nil
}

// WithTx implements store.AttemptStore.WithTx.
func (s *PostgresAttemptStore) WithTx(tx *sql.Tx) store.AttemptStore {
	return &PostgresAttemptStore{
		db:     tx,
		logger: s.logger,
	}
}
