package adaptive

// Params defines the configurable parameters of the adaptive recommender.
type Params struct {
	// WindowSize is the number of most recent attempts considered.
	WindowSize int

	// PromoteMinCorrect is the minimum number of correct answers within a
	// full window that triggers a step up in difficulty.
	PromoteMinCorrect int

	// DemoteMaxCorrect is the maximum number of correct answers within a
	// full window that triggers a step down in difficulty.
	DemoteMaxCorrect int
}

// NewDefaultParams returns the standard recommender parameters: a window of
// the 5 most recent attempts, promotion at 4+ correct, demotion at 1 or fewer.
func NewDefaultParams() *Params {
	return &Params{
		WindowSize:        5,
		PromoteMinCorrect: 4,
		DemoteMaxCorrect:  1,
	}
}
