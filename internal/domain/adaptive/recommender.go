// Package adaptive implements the difficulty recommender: a deterministic
// rule over a rolling window of the owner's most recent question attempts.
//
// The recommendation is derived, never persisted: it is recomputed on demand
// from the append-only attempt history.
package adaptive

import (
	"fmt"

	"github.com/prepforge/practice-api/internal/domain"
)

// Recommendation is the output of one recommender evaluation.
type Recommendation struct {
	// Difficulty is the recommended level for the next session. Never empty:
	// with insufficient history the recommender falls back to medium.
	Difficulty domain.Difficulty `json:"recommended_difficulty"`

	// CurrentStreak counts consecutive same-outcome attempts ending at the
	// most recent one: positive for correct, negative for incorrect.
	CurrentStreak int `json:"current_streak"`

	// WindowCorrect is the number of correct answers within the window.
	WindowCorrect int `json:"last_window_correct"`

	// Confidence scales with window fullness: min(1.0, window/WindowSize).
	Confidence float64 `json:"confidence"`

	// Reason is a human-readable explanation of the recommendation.
	Reason string `json:"reason"`
}

// Service defines the interface for adaptive difficulty recommendation.
type Service interface {
	// Recommend evaluates the rolling window over the given attempts, which
	// must be ordered most recent first. It never fails: with fewer than a
	// full window of history it recommends medium with an explanatory reason.
	Recommend(attempts []*domain.QuestionAttempt) *Recommendation
}

// defaultService is the standard implementation of the Service interface.
type defaultService struct {
	params *Params
}

// NewDefaultService creates a recommender with the default parameters.
func NewDefaultService() Service {
	return &defaultService{params: NewDefaultParams()}
}

// NewServiceWithParams creates a recommender with custom parameters.
func NewServiceWithParams(params *Params) Service {
	return &defaultService{params: params}
}

// Recommend implements the Service interface.
func (s *defaultService) Recommend(attempts []*domain.QuestionAttempt) *Recommendation {
	window := attempts
	if len(window) > s.params.WindowSize {
		window = window[:s.params.WindowSize]
	}

	rec := &Recommendation{
		CurrentStreak: streak(window),
		WindowCorrect: countCorrect(window),
		Confidence:    confidence(len(window), s.params.WindowSize),
	}

	if len(window) < s.params.WindowSize {
		rec.Difficulty = domain.DifficultyMedium
		rec.Reason = fmt.Sprintf(
			"insufficient history (%d of %d attempts); defaulting to medium",
			len(window), s.params.WindowSize)
		return rec
	}

	majority := majorityDifficulty(window)

	switch {
	case rec.WindowCorrect >= s.params.PromoteMinCorrect:
		rec.Difficulty = majority.StepUp()
		rec.Reason = fmt.Sprintf(
			"%d of last %d correct at %s; stepping up to %s",
			rec.WindowCorrect, len(window), majority, rec.Difficulty)
	case rec.WindowCorrect <= s.params.DemoteMaxCorrect:
		rec.Difficulty = majority.StepDown()
		rec.Reason = fmt.Sprintf(
			"%d of last %d correct at %s; stepping down to %s",
			rec.WindowCorrect, len(window), majority, rec.Difficulty)
	default:
		rec.Difficulty = majority
		rec.Reason = fmt.Sprintf(
			"%d of last %d correct; holding at %s",
			rec.WindowCorrect, len(window), majority)
	}

	return rec
}

// majorityDifficulty returns the most frequent difficulty in the window.
// Ties break toward medium.
func majorityDifficulty(window []*domain.QuestionAttempt) domain.Difficulty {
	counts := make(map[domain.Difficulty]int, 3)
	for _, a := range window {
		counts[a.DifficultyAtAttempt]++
	}

	best := domain.DifficultyMedium
	bestCount := -1
	tied := false
	for _, d := range []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard} {
		switch {
		case counts[d] > bestCount:
			best = d
			bestCount = counts[d]
			tied = false
		case counts[d] == bestCount:
			tied = true
		}
	}

	if tied {
		return domain.DifficultyMedium
	}
	return best
}

// streak counts consecutive same-outcome attempts from the most recent one.
func streak(window []*domain.QuestionAttempt) int {
	if len(window) == 0 {
		return 0
	}

	n := 0
	for _, a := range window {
		if a.IsCorrect != window[0].IsCorrect {
			break
		}
		n++
	}

	if window[0].IsCorrect {
		return n
	}
	return -n
}

func countCorrect(window []*domain.QuestionAttempt) int {
	n := 0
	for _, a := range window {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

func confidence(windowLen, windowSize int) float64 {
	if windowSize <= 0 {
		return 0
	}
	c := float64(windowLen) / float64(windowSize)
	if c > 1 {
		return 1
	}
	return c
}
