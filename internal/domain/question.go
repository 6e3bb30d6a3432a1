package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Difficulty represents the difficulty level of a question.
type Difficulty string

// Possible difficulty values, ordered from easiest to hardest.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// QuestionType represents the answer format of a question.
type QuestionType string

// Possible question type values.
const (
	QuestionTypeMCQ   QuestionType = "mcq"
	QuestionTypeMains QuestionType = "mains"
)

// QuestionSource indicates where a question originated.
type QuestionSource string

// Possible question source values.
const (
	// SourcePYQ marks previous-year exam questions.
	SourcePYQ QuestionSource = "pyq"

	// SourceGenerated marks questions produced by the generation service.
	SourceGenerated QuestionSource = "generated"
)

// Question-specific validation errors.
var (
	ErrQuestionIDEmpty   = errors.New("question ID cannot be empty")
	ErrQuestionTextEmpty = errors.New("question text cannot be empty")
)

// Question represents a single practice question. The correct answer is part
// of the record but must never be exposed to a client before the owning
// session has been completed; the store layer enforces this by providing
// separate projections with and without the answer key.
type Question struct {
	ID            uuid.UUID      `json:"id"`
	Text          string         `json:"text"`
	Type          QuestionType   `json:"type"`
	Difficulty    Difficulty     `json:"difficulty"`
	Topic         string         `json:"topic"`
	Source        QuestionSource `json:"source"`
	Options       []string       `json:"options,omitempty"` // MCQ only, stored order
	CorrectAnswer string         `json:"-"`                 // never serialized to clients
	CreatedAt     time.Time      `json:"created_at"`
}

// Validate checks if the Question has valid data.
// Returns an error if any field fails validation.
func (q *Question) Validate() error {
	if q.ID == uuid.Nil {
		return ErrQuestionIDEmpty
	}

	if strings.TrimSpace(q.Text) == "" {
		return ErrQuestionTextEmpty
	}

	if !IsValidQuestionType(q.Type) {
		return ErrInvalidQuestionType
	}

	if !IsValidDifficulty(q.Difficulty) {
		return ErrInvalidDifficulty
	}

	if !IsValidQuestionSource(q.Source) {
		return ErrInvalidQuestionSource
	}

	return nil
}

// IsValidDifficulty checks if the given difficulty is one of the known levels.
func IsValidDifficulty(d Difficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// IsValidQuestionType checks if the given question type is valid.
func IsValidQuestionType(t QuestionType) bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeMains:
		return true
	default:
		return false
	}
}

// IsValidQuestionSource checks if the given question source is valid.
func IsValidQuestionSource(s QuestionSource) bool {
	switch s {
	case SourcePYQ, SourceGenerated:
		return true
	default:
		return false
	}
}

// StepUp returns the difficulty one level above d, capped at hard.
func (d Difficulty) StepUp() Difficulty {
	switch d {
	case DifficultyEasy:
		return DifficultyMedium
	case DifficultyMedium:
		return DifficultyHard
	default:
		return DifficultyHard
	}
}

// StepDown returns the difficulty one level below d, floored at easy.
func (d Difficulty) StepDown() Difficulty {
	switch d {
	case DifficultyHard:
		return DifficultyMedium
	case DifficultyMedium:
		return DifficultyEasy
	default:
		return DifficultyEasy
	}
}
