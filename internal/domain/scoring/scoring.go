// Package scoring implements the scoring aggregator: pure functions that
// grade a completed session against its server-side answer key and derive
// per-topic and per-difficulty performance tables.
package scoring

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/prepforge/practice-api/internal/domain"
)

// ErrNoQuestions is returned when Score is called with an empty key set.
var ErrNoQuestions = errors.New("cannot score a session with no questions")

// QuestionKey is one entry of the answer key joined with the metadata needed
// for the breakdown tables. The key is always fetched server-side; submitted
// answers are never trusted to carry their own correctness.
type QuestionKey struct {
	QuestionID uuid.UUID
	Topic      string
	Difficulty domain.Difficulty
	Source     domain.QuestionSource

	// CorrectValue is the value a correct submission must match: the frozen
	// shuffled letter for MCQ questions, the reference answer for mains.
	CorrectValue string
}

// Breakdown counts attempts and correct answers for one topic or difficulty.
type Breakdown struct {
	Attempted int `json:"attempted"`
	Correct   int `json:"correct"`
}

// Result is the output of scoring one completed session.
type Result struct {
	Total        int
	CorrectCount int

	// Score is CorrectCount minus any configured negative marking, floored
	// at zero. With the default parameters it equals CorrectCount.
	Score int

	// Accuracy is CorrectCount/Total*100 rounded to 2 decimals.
	Accuracy float64

	ByTopic      map[string]Breakdown
	ByDifficulty map[domain.Difficulty]Breakdown
	WeakTopics   []string
	StrongTopics []string

	// Correctness records the per-index outcome, used to build the
	// append-only attempt records after completion.
	Correctness map[int]bool
}

// Score grades the submitted answers against the key. Unanswered questions
// count as incorrect but incur no penalty beyond that unless negative marking
// is enabled in params. Every presented question counts toward its topic's
// and difficulty's attempted tally.
func Score(keys []QuestionKey, answers map[int]string, params *Params) (*Result, error) {
	if len(keys) == 0 {
		return nil, ErrNoQuestions
	}

	if params == nil {
		params = NewDefaultParams()
	}

	result := &Result{
		Total:        len(keys),
		ByTopic:      make(map[string]Breakdown),
		ByDifficulty: make(map[domain.Difficulty]Breakdown),
		Correctness:  make(map[int]bool, len(keys)),
	}

	for i, key := range keys {
		correct := false
		if submitted, ok := answers[i]; ok {
			correct = equalAnswer(submitted, key.CorrectValue)
		}
		result.Correctness[i] = correct
		if correct {
			result.CorrectCount++
		}

		topic := key.Topic
		tb := result.ByTopic[topic]
		tb.Attempted++
		if correct {
			tb.Correct++
		}
		result.ByTopic[topic] = tb

		db := result.ByDifficulty[key.Difficulty]
		db.Attempted++
		if correct {
			db.Correct++
		}
		result.ByDifficulty[key.Difficulty] = db
	}

	wrong := result.Total - result.CorrectCount
	score := float64(result.CorrectCount) - params.NegativeMarkPerWrong*float64(wrong)
	result.Score = int(math.Max(0, math.Round(score)))

	result.Accuracy = roundTo2(float64(result.CorrectCount) / float64(result.Total) * 100)

	result.WeakTopics, result.StrongTopics = classifyTopics(result.ByTopic, params)

	return result, nil
}

// classifyTopics splits topics into weak and strong sets using strict-< and
// >= threshold comparisons. Topics with fewer than MinTopicAttempts land in
// neither set.
func classifyTopics(byTopic map[string]Breakdown, params *Params) (weak, strong []string) {
	weak = []string{}
	strong = []string{}

	for topic, b := range byTopic {
		if b.Attempted < params.MinTopicAttempts {
			continue
		}

		ratio := float64(b.Correct) / float64(b.Attempted)
		switch {
		case ratio < params.WeakThreshold:
			weak = append(weak, topic)
		case ratio >= params.StrongThreshold:
			strong = append(strong, topic)
		}
	}

	sort.Strings(weak)
	sort.Strings(strong)
	return weak, strong
}

// equalAnswer compares a submitted value against the key value after
// trimming and case folding.
func equalAnswer(submitted, correct string) bool {
	return strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(correct))
}

func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
