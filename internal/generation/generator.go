// Package generation defines the port for producing distractor candidates
// for multiple-choice questions. Implementations live under
// internal/platform (e.g. the Gemini-backed generator) so that services
// depend only on this interface.
package generation

import (
	"context"

	"github.com/prepforge/practice-api/internal/domain"
)

// Generator produces plausible-but-wrong answer candidates for a question.
type Generator interface {
	// ProposeDistractors returns at least `count` candidate distractor texts
	// for the given question. Candidates are raw model output: callers are
	// responsible for validating and deduplicating them before use.
	//
	// Returns ErrGenerationFailed (or a wrapped variant) when the upstream
	// model cannot produce usable output.
	ProposeDistractors(ctx context.Context, question *domain.Question, count int) ([]string, error)
}
