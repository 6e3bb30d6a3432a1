// Package shuffle implements the option shuffle engine for MCQ questions.
//
// A shuffle is represented by a domain.Permutation that is generated once at
// session start, persisted with the session, and replayed on every subsequent
// read. Apply is a pure function of the permutation, so a resumed session
// always reconstructs the exact option order the owner first saw.
package shuffle

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/prepforge/practice-api/internal/domain"
)

// Common shuffle errors.
var (
	ErrInvalidCorrectIndex = errors.New("correct option index must be in [0,4)")
	ErrNilRand             = errors.New("random source cannot be nil")
)

// Result holds the outcome of applying a permutation to a question's options.
type Result struct {
	// Options is the permuted option order as displayed to the client.
	Options [4]string

	// CorrectLetter is the letter (A-D) of the correct answer after shuffling.
	CorrectLetter string

	// LetterMap maps each original option letter to its shuffled letter. It is
	// used to translate persisted per-option metadata (distractor type,
	// explanation) into display order.
	LetterMap map[string]string
}

// NewPermutation draws a uniform random permutation of the 4 option positions
// using Fisher-Yates. The caller owns the random source; the engine keeps no
// hidden shuffle state.
func NewPermutation(rng *rand.Rand) (domain.Permutation, error) {
	if rng == nil {
		return domain.Permutation{}, ErrNilRand
	}

	perm := domain.Permutation{0, 1, 2, 3}
	for i := len(perm) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm, nil
}

// Apply permutes the given options with the supplied permutation and reports
// where the correct answer landed. It is deterministic: the same permutation
// always produces the same result.
func Apply(perm domain.Permutation, options [4]string, correctIndex int) (*Result, error) {
	if err := perm.Validate(); err != nil {
		return nil, err
	}

	if correctIndex < 0 || correctIndex >= len(options) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCorrectIndex, correctIndex)
	}

	result := &Result{
		LetterMap: make(map[string]string, 4),
	}

	for pos, orig := range perm {
		result.Options[pos] = options[orig]
		result.LetterMap[domain.OptionLetters[orig]] = domain.OptionLetters[pos]
		if orig == correctIndex {
			result.CorrectLetter = domain.OptionLetters[pos]
		}
	}

	return result, nil
}

// CorrectLetter returns just the shuffled letter of the correct answer
// without materializing the full result.
func CorrectLetter(perm domain.Permutation, correctIndex int) (string, error) {
	if err := perm.Validate(); err != nil {
		return "", err
	}

	if correctIndex < 0 || correctIndex >= 4 {
		return "", fmt.Errorf("%w: got %d", ErrInvalidCorrectIndex, correctIndex)
	}

	for pos, orig := range perm {
		if orig == correctIndex {
			return domain.OptionLetters[pos], nil
		}
	}

	// Unreachable for a valid permutation.
	return "", fmt.Errorf("%w: index %d not present", ErrInvalidCorrectIndex, correctIndex)
}
