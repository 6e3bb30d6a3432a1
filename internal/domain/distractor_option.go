package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DistractorType classifies why a wrong answer is plausible.
type DistractorType string

// Possible distractor type values.
const (
	DistractorPartialTruth   DistractorType = "partial_truth"
	DistractorRelatedConcept DistractorType = "related_concept"
	DistractorCommonMistake  DistractorType = "common_mistake"
	DistractorFactualError   DistractorType = "factual_error"
)

// Option-specific validation errors.
var (
	ErrOptionQuestionEmpty    = errors.New("option question ID cannot be empty")
	ErrOptionTextEmpty        = errors.New("option text cannot be empty")
	ErrInvalidOptionLetter    = errors.New("option letter must be A, B, C, or D")
	ErrInvalidDistractorType  = errors.New("invalid distractor type")
	ErrOptionSetWrongSize     = errors.New("a question must have exactly 4 options")
	ErrOptionSetNoCorrect     = errors.New("option set must mark exactly one option correct")
	ErrOptionSetDuplicateText = errors.New("option texts must be pairwise distinct")
)

// OptionLetters is the fixed set of MCQ option letters in display order.
var OptionLetters = [4]string{"A", "B", "C", "D"}

// DistractorOption is one of the four answer choices persisted for an MCQ
// question: the correct answer plus three validated distractors. The quality
// score starts unset and is adjusted by attempt feedback over time.
type DistractorOption struct {
	ID             uuid.UUID      `json:"id"`
	QuestionID     uuid.UUID      `json:"question_id"`
	QuestionSource QuestionSource `json:"question_source"`
	Letter         string         `json:"option_letter"`
	Text           string         `json:"option_text"`
	IsCorrect      bool           `json:"is_correct"`
	Explanation    string         `json:"explanation,omitempty"`
	Type           DistractorType `json:"distractor_type,omitempty"`
	QualityScore   *float64       `json:"quality_score,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Validate checks if the DistractorOption has valid data.
func (o *DistractorOption) Validate() error {
	if o.QuestionID == uuid.Nil {
		return ErrOptionQuestionEmpty
	}

	if strings.TrimSpace(o.Text) == "" {
		return ErrOptionTextEmpty
	}

	if !isValidOptionLetter(o.Letter) {
		return fmt.Errorf("%w: got %q", ErrInvalidOptionLetter, o.Letter)
	}

	if !IsValidQuestionSource(o.QuestionSource) {
		return ErrInvalidQuestionSource
	}

	// The correct answer carries no distractor classification.
	if !o.IsCorrect && !IsValidDistractorType(o.Type) {
		return ErrInvalidDistractorType
	}

	return nil
}

// ValidateOptionSet checks the invariants of a question's full option set:
// exactly 4 options, exactly one marked correct, each letter used once, and
// option texts pairwise distinct after case-insensitive trimming.
func ValidateOptionSet(options []*DistractorOption) error {
	if len(options) != 4 {
		return fmt.Errorf("%w: got %d", ErrOptionSetWrongSize, len(options))
	}

	correct := 0
	letters := make(map[string]bool, 4)
	texts := make(map[string]bool, 4)

	for _, opt := range options {
		if err := opt.Validate(); err != nil {
			return err
		}

		if opt.IsCorrect {
			correct++
		}

		if letters[opt.Letter] {
			return fmt.Errorf("%w: letter %s used twice", ErrInvalidOptionLetter, opt.Letter)
		}
		letters[opt.Letter] = true

		normalized := strings.ToLower(strings.TrimSpace(opt.Text))
		if texts[normalized] {
			return fmt.Errorf("%w: %q", ErrOptionSetDuplicateText, opt.Text)
		}
		texts[normalized] = true
	}

	if correct != 1 {
		return fmt.Errorf("%w: got %d", ErrOptionSetNoCorrect, correct)
	}

	return nil
}

// IsValidDistractorType checks if the given distractor type is valid.
func IsValidDistractorType(t DistractorType) bool {
	switch t {
	case DistractorPartialTruth, DistractorRelatedConcept,
		DistractorCommonMistake, DistractorFactualError:
		return true
	default:
		return false
	}
}

func isValidOptionLetter(letter string) bool {
	for _, l := range OptionLetters {
		if letter == l {
			return true
		}
	}
	return false
}
