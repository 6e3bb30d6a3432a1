package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/platform/logger"
	"github.com/prepforge/practice-api/internal/store"
)

// PostgresSessionStore implements the store.SessionStore interface using a
// PostgreSQL database as the storage backend. Sessions carry several
// map-shaped fields (answers, timings, shuffles) which are stored as JSONB.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a new PostgreSQL implementation of the
// SessionStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Ensure PostgresSessionStore implements store.SessionStore interface
var _ store.SessionStore = (*PostgresSessionStore)(nil)

// sessionRow is the JSONB-encoded portion of a session row.
type sessionRow struct {
	config        []byte
	questionIDs   []byte
	shuffles      []byte
	answers       []byte
	questionTimes []byte
	weakTopics    []byte
	strongTopics  []byte
}

// Create implements store.SessionStore.Create.
func (s *PostgresSessionStore) Create(ctx context.Context, session *domain.PracticeSession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("session validation failed during create",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	row, err := encodeSessionRow(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	query := `
		INSERT INTO practice_sessions (
			id, owner_id, session_type, config, question_ids, shuffles,
			answers, question_times, current_index, status, score, accuracy,
			weak_topics, strong_topics, time_spent_seconds, version,
			created_at, updated_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err = s.db.ExecContext(ctx, query,
		session.ID,
		session.OwnerID,
		session.Type,
		row.config,
		row.questionIDs,
		row.shuffles,
		row.answers,
		row.questionTimes,
		session.CurrentIndex,
		session.Status,
		session.Score,
		session.Accuracy,
		row.weakTopics,
		row.strongTopics,
		session.TimeSpentSeconds,
		1, // initial version
		session.CreatedAt,
		session.UpdatedAt,
		session.CompletedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: session %s", store.ErrDuplicate, session.ID)
		}
		log.Error("failed to create session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err)
	}

	session.Version = 1
	log.Info("session created",
		slog.String("session_id", session.ID.String()),
		slog.String("owner_id", session.OwnerID.String()))
	return nil
}

const sessionColumns = `
	id, owner_id, session_type, config, question_ids, shuffles,
	answers, question_times, current_index, status, score, accuracy,
	weak_topics, strong_topics, time_spent_seconds, version,
	created_at, updated_at, completed_at`

// Get implements store.SessionStore.Get.
func (s *PostgresSessionStore) Get(ctx context.Context, id, ownerID uuid.UUID) (*domain.PracticeSession, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT` + sessionColumns + `
		FROM practice_sessions
		WHERE id = $1 AND owner_id = $2
	`

	session, err := scanSession(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("session not found",
				slog.String("session_id", id.String()),
				slog.String("owner_id", ownerID.String()))
			return nil, store.ErrSessionNotFound
		}
		log.Error("failed to get session",
			slog.String("error", err.Error()),
			slog.String("session_id", id.String()))
		return nil, MapError(err)
	}
	return session, nil
}

// Update implements store.SessionStore.Update with compare-and-swap
// semantics on the version column.
func (s *PostgresSessionStore) Update(ctx context.Context, session *domain.PracticeSession) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := session.Validate(); err != nil {
		log.Warn("session validation failed during update",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return err
	}

	row, err := encodeSessionRow(session)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	query := `
		UPDATE practice_sessions
		SET answers = $1,
			question_times = $2,
			current_index = $3,
			status = $4,
			score = $5,
			accuracy = $6,
			weak_topics = $7,
			strong_topics = $8,
			time_spent_seconds = $9,
			version = version + 1,
			updated_at = $10,
			completed_at = $11
		WHERE id = $12 AND owner_id = $13 AND version = $14
	`
	result, err := s.db.ExecContext(ctx, query,
		row.answers,
		row.questionTimes,
		session.CurrentIndex,
		session.Status,
		session.Score,
		session.Accuracy,
		row.weakTopics,
		row.strongTopics,
		session.TimeSpentSeconds,
		session.UpdatedAt,
		session.CompletedAt,
		session.ID,
		session.OwnerID,
		session.Version,
	)
	if err != nil {
		log.Error("failed to update session",
			slog.String("error", err.Error()),
			slog.String("session_id", session.ID.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Either the row is gone or a concurrent writer bumped the version.
		var exists bool
		checkErr := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM practice_sessions WHERE id = $1 AND owner_id = $2)`,
			session.ID, session.OwnerID,
		).Scan(&exists)
		if checkErr != nil {
			return MapError(checkErr)
		}
		if exists {
			log.Debug("session version conflict",
				slog.String("session_id", session.ID.String()),
				slog.Int64("version", session.Version))
			return store.ErrVersionConflict
		}
		return store.ErrSessionNotFound
	}

	session.Version++
	return nil
}

// WithTx implements store.SessionStore.WithTx.
func (s *PostgresSessionStore) WithTx(tx *sql.Tx) store.SessionStore {
	return &PostgresSessionStore{
		db:     tx,
		logger: s.logger,
	}
}

// encodeSessionRow marshals the session's JSONB columns.
func encodeSessionRow(session *domain.PracticeSession) (*sessionRow, error) {
	row := &sessionRow{}
	var err error

	if row.config, err = json.Marshal(session.Config); err != nil {
		return nil, err
	}
	if row.questionIDs, err = json.Marshal(session.QuestionIDs); err != nil {
		return nil, err
	}
	if row.shuffles, err = json.Marshal(session.Shuffles); err != nil {
		return nil, err
	}
	if row.answers, err = json.Marshal(session.Answers); err != nil {
		return nil, err
	}
	if row.questionTimes, err = json.Marshal(session.QuestionTimes); err != nil {
		return nil, err
	}
	if row.weakTopics, err = json.Marshal(session.WeakTopics); err != nil {
		return nil, err
	}
	if row.strongTopics, err = json.Marshal(session.StrongTopics); err != nil {
		return nil, err
	}
	return row, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanSession.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanSession reads one session row, decoding the JSONB columns back into
// their map and slice fields.
func scanSession(scanner rowScanner) (*domain.PracticeSession, error) {
	var session domain.PracticeSession
	var row sessionRow

	err := scanner.Scan(
		&session.ID,
		&session.OwnerID,
		&session.Type,
		&row.config,
		&row.questionIDs,
		&row.shuffles,
		&row.answers,
		&row.questionTimes,
		&session.CurrentIndex,
		&session.Status,
		&session.Score,
		&session.Accuracy,
		&row.weakTopics,
		&row.strongTopics,
		&session.TimeSpentSeconds,
		&session.Version,
		&session.CreatedAt,
		&session.UpdatedAt,
		&session.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(row.config, &session.Config); err != nil {
		return nil, fmt.Errorf("decoding session config: %w", err)
	}
	if err := json.Unmarshal(row.questionIDs, &session.QuestionIDs); err != nil {
		return nil, fmt.Errorf("decoding question IDs: %w", err)
	}
	if err := json.Unmarshal(row.shuffles, &session.Shuffles); err != nil {
		return nil, fmt.Errorf("decoding shuffles: %w", err)
	}
	if err := json.Unmarshal(row.answers, &session.Answers); err != nil {
		return nil, fmt.Errorf("decoding answers: %w", err)
	}
	if err := json.Unmarshal(row.questionTimes, &session.QuestionTimes); err != nil {
		return nil, fmt.Errorf("decoding question times: %w", err)
	}
	if err := json.Unmarshal(row.weakTopics, &session.WeakTopics); err != nil {
		return nil, fmt.Errorf("decoding weak topics: %w", err)
	}
	if err := json.Unmarshal(row.strongTopics, &session.StrongTopics); err != nil {
		return nil, fmt.Errorf("decoding strong topics: %w", err)
	}
	return &session, nil
}
