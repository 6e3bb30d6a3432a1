package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/platform/logger"
	"github.com/prepforge/practice-api/internal/store"
)

// PostgresQuestionStore implements the store.QuestionStore interface using a
// PostgreSQL database as the storage backend.
type PostgresQuestionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresQuestionStore creates a new PostgreSQL implementation of the
// QuestionStore interface.
func NewPostgresQuestionStore(db store.DBTX, logger *slog.Logger) *PostgresQuestionStore {
	if db == nil {
		panic("db cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresQuestionStore{
		db:     db,
		logger: logger.With(slog.String("component", "question_store")),
	}
}

// Ensure PostgresQuestionStore implements store.QuestionStore interface
var _ store.QuestionStore = (*PostgresQuestionStore)(nil)

const questionColumns = `
	id, topic, question_text, correct_answer, difficulty, question_type,
	source, options, created_at`

// Find implements store.QuestionStore.Find.
func (s *PostgresQuestionStore) Find(
	ctx context.Context,
	filter store.QuestionFilter,
) ([]*domain.Question, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var conditions []string
	var args []interface{}

	addCondition := func(clause string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.Topic != "" {
		addCondition("topic ILIKE $%d", "%"+filter.Topic+"%")
	}
	if filter.Difficulty != "" {
		addCondition("difficulty = $%d", filter.Difficulty)
	}
	if filter.QuestionType != "" {
		addCondition("question_type = $%d", filter.QuestionType)
	}
	if filter.Source != "" {
		addCondition("source = $%d", filter.Source)
	}

	query := `SELECT` + questionColumns + ` FROM questions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query questions",
			slog.String("error", err.Error()),
			slog.String("topic", filter.Topic))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var questions []*domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, MapError(err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	log.Debug("found questions",
		slog.Int("count", len(questions)),
		slog.String("topic", filter.Topic))
	return questions, nil
}

// GetByIDs implements store.QuestionStore.GetByIDs. The result preserves the
// input order; any missing ID fails the whole call.
func (s *PostgresQuestionStore) GetByIDs(
	ctx context.Context,
	ids []uuid.UUID,
) ([]*domain.Question, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `SELECT` + questionColumns + `
		FROM questions
		WHERE id IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query questions by IDs",
			slog.String("error", err.Error()),
			slog.Int("requested", len(ids)))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[uuid.UUID]*domain.Question, len(ids))
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, MapError(err)
		}
		byID[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	questions := make([]*domain.Question, len(ids))
	for i, id := range ids {
		q, ok := byID[id]
		if !ok {
			log.Warn("question missing from bank",
				slog.String("question_id", id.String()))
			return nil, fmt.Errorf("%w: %s", store.ErrQuestionNotFound, id)
		}
		questions[i] = q
	}
	return questions, nil
}

// scanQuestion reads one question row; the options column is JSONB.
func scanQuestion(scanner rowScanner) (*domain.Question, error) {
	var q domain.Question
	var options []byte
	err := scanner.Scan(
		&q.ID,
		&q.Topic,
		&q.Text,
		&q.CorrectAnswer,
		&q.Difficulty,
		&q.Type,
		&q.Source,
		&options,
		&q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("decoding question options: %w", err)
		}
	}
	return &q, nil
}
