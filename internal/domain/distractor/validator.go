// Package distractor implements the pure rule checks applied to candidate
// wrong answers before they are accepted into a question's option set.
//
// Candidates typically come from the generation service and are treated as
// untrusted input: every candidate passes through Check regardless of origin.
package distractor

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Length bounds for an acceptable distractor.
const (
	MinLength = 5
	MaxLength = 500
)

// Rejection errors. Each rule has its own sentinel so callers (and tests) can
// distinguish why a candidate was discarded.
var (
	// ErrDuplicateOfCorrect is returned when a candidate equals the correct
	// answer after trimming and case folding.
	ErrDuplicateOfCorrect = errors.New("distractor duplicates the correct answer")

	// ErrDuplicateOption is returned when a candidate equals an already
	// accepted option.
	ErrDuplicateOption = errors.New("distractor duplicates an accepted option")

	// ErrTooShort is returned when a candidate is shorter than MinLength.
	ErrTooShort = errors.New("distractor is too short")

	// ErrTooLong is returned when a candidate is longer than MaxLength.
	ErrTooLong = errors.New("distractor is too long")

	// ErrGenericAbsolute is returned for standalone generic answers such as
	// "None of the above" that make implausible exam distractors.
	ErrGenericAbsolute = errors.New("distractor is a generic absolute answer")

	// ErrGarbledNumber is returned when a candidate contains a run of 5 or
	// more digits, suggestive of a mangled figure.
	ErrGarbledNumber = errors.New("distractor contains a garbled number")

	// ErrAbsoluteQualifier is returned when a candidate leans on absolute
	// qualifiers (always, never, impossible) that are stylistically
	// implausible in exam distractors.
	ErrAbsoluteQualifier = errors.New("distractor uses an absolute qualifier")
)

var (
	digitRunRegex = regexp.MustCompile(`\d{5,}`)

	absoluteQualifierRegex = regexp.MustCompile(`(?i)\b(always|never|impossible)\b`)

	// Standalone generic answers, compared after normalization.
	genericAbsolutes = map[string]bool{
		"none":              true,
		"all":               true,
		"both":              true,
		"neither":           true,
		"none of the above": true,
		"all of the above":  true,
		"none of these":     true,
		"all of these":      true,
	}
)

// Normalize returns the canonical form used for duplicate comparison:
// whitespace-trimmed and case-folded.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Check validates a single candidate distractor against the correct answer
// and the already accepted options. Returns nil if the candidate is
// acceptable, or the rule's sentinel error describing the rejection.
func Check(candidate, correctAnswer string, accepted []string) error {
	trimmed := strings.TrimSpace(candidate)
	normalized := Normalize(candidate)

	if normalized == Normalize(correctAnswer) {
		return ErrDuplicateOfCorrect
	}

	for _, opt := range accepted {
		if normalized == Normalize(opt) {
			return fmt.Errorf("%w: %q", ErrDuplicateOption, trimmed)
		}
	}

	if len(trimmed) < MinLength {
		return fmt.Errorf("%w: %d chars", ErrTooShort, len(trimmed))
	}
	if len(trimmed) > MaxLength {
		return fmt.Errorf("%w: %d chars", ErrTooLong, len(trimmed))
	}

	if genericAbsolutes[normalized] {
		return fmt.Errorf("%w: %q", ErrGenericAbsolute, trimmed)
	}

	if digitRunRegex.MatchString(trimmed) {
		return ErrGarbledNumber
	}

	if absoluteQualifierRegex.MatchString(trimmed) {
		return ErrAbsoluteQualifier
	}

	return nil
}

// Filter runs Check over a slice of candidates, accumulating the accepted
// ones in order. Accepted candidates are deduplicated against each other as
// the filter proceeds. The returned slice holds the trimmed texts.
func Filter(candidates []string, correctAnswer string) []string {
	accepted := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		if err := Check(candidate, correctAnswer, accepted); err != nil {
			continue
		}
		accepted = append(accepted, strings.TrimSpace(candidate))
	}
	return accepted
}
