package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/platform/logger"
	"github.com/prepforge/practice-api/internal/store"
)

// PostgresDistractorStore implements the store.DistractorStore interface
// using a PostgreSQL database as the storage backend.
type PostgresDistractorStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresDistractorStore creates a new PostgreSQL implementation of the
// DistractorStore interface.
func NewPostgresDistractorStore(db store.DBTX, logger *slog.Logger) *PostgresDistractorStore {
	if db == nil {
		panic("db cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDistractorStore{
		db:     db,
		logger: logger.With(slog.String("component", "distractor_store")),
	}
}

// Ensure PostgresDistractorStore implements store.DistractorStore interface
var _ store.DistractorStore = (*PostgresDistractorStore)(nil)

// CreateSet implements store.DistractorStore.CreateSet. The caller is
// responsible for wrapping this in a transaction via WithTx; inserting four
// rows outside one risks a torn option set.
func (s *PostgresDistractorStore) CreateSet(ctx context.Context, options []*domain.DistractorOption) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := domain.ValidateOptionSet(options); err != nil {
		log.Warn("option set validation failed during create",
			slog.String("error", err.Error()))
		return err
	}

	query := `
		INSERT INTO distractor_options (
			id, question_id, question_source, option_letter, option_text,
			is_correct, explanation, distractor_type, quality_score, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, opt := range options {
		_, err := s.db.ExecContext(ctx, query,
			opt.ID,
			opt.QuestionID,
			opt.QuestionSource,
			opt.Letter,
			opt.Text,
			opt.IsCorrect,
			opt.Explanation,
			nullableType(opt.Type),
			opt.QualityScore,
			opt.CreatedAt,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				return fmt.Errorf("%w: options for question %s",
					store.ErrDuplicate, opt.QuestionID)
			}
			log.Error("failed to insert option",
				slog.String("error", err.Error()),
				slog.String("question_id", opt.QuestionID.String()),
				slog.String("letter", opt.Letter))
			return MapError(err)
		}
	}

	log.Info("option set created",
		slog.String("question_id", options[0].QuestionID.String()))
	return nil
}

// nullableType maps the empty distractor type (the correct answer carries
// none) to SQL NULL.
func nullableType(t domain.DistractorType) interface{} {
	if t == "" {
		return nil
	}
	return string(t)
}

// GetByQuestion implements store.DistractorStore.GetByQuestion.
func (s *PostgresDistractorStore) GetByQuestion(
	ctx context.Context,
	questionID uuid.UUID,
) ([]*domain.DistractorOption, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, question_id, question_source, option_letter, option_text,
			is_correct, explanation, distractor_type, quality_score, created_at
		FROM distractor_options
		WHERE question_id = $1
		ORDER BY option_letter
	`
	rows, err := s.db.QueryContext(ctx, query, questionID)
	if err != nil {
		log.Error("failed to query options",
			slog.String("error", err.Error()),
			slog.String("question_id", questionID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var options []*domain.DistractorOption
	for rows.Next() {
		var opt domain.DistractorOption
		var distractorType sql.NullString
		err := rows.Scan(
			&opt.ID,
			&opt.QuestionID,
			&opt.QuestionSource,
			&opt.Letter,
			&opt.Text,
			&opt.IsCorrect,
			&opt.Explanation,
			&distractorType,
			&opt.QualityScore,
			&opt.CreatedAt,
		)
		if err != nil {
			return nil, MapError(err)
		}
		if distractorType.Valid {
			opt.Type = domain.DistractorType(distractorType.String)
		}
		options = append(options, &opt)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	if len(options) == 0 {
		log.Debug("no options for question",
			slog.String("question_id", questionID.String()))
		return nil, store.ErrOptionSetNotFound
	}
	return options, nil
}

// AdjustQuality implements store.DistractorStore.AdjustQuality.
func (s *PostgresDistractorStore) AdjustQuality(
	ctx context.Context,
	questionID uuid.UUID,
	letter string,
	delta float64,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE distractor_options
		SET quality_score = COALESCE(quality_score, 0) + $1
		WHERE question_id = $2 AND option_letter = $3
	`
	result, err := s.db.ExecContext(ctx, query, delta, questionID, letter)
	if err != nil {
		log.Error("failed to adjust quality score",
			slog.String("error", err.Error()),
			slog.String("question_id", questionID.String()),
			slog.String("letter", letter))
		return MapError(err)
	}
	if err := CheckRowsAffected(result, store.ErrOptionSetNotFound); err != nil {
		return err
	}

	log.Debug("quality score adjusted",
		slog.String("question_id", questionID.String()),
		slog.String("letter", letter),
		slog.Float64("delta", delta))
	return nil
}

// WithTx implements store.DistractorStore.WithTx.
func (s *PostgresDistractorStore) WithTx(tx *sql.Tx) store.DistractorStore {
	return &PostgresDistractorStore{
		db:     tx,
		logger: s.logger,
	}
}
