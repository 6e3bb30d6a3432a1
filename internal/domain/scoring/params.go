package scoring

// Params defines the configurable thresholds of the scoring aggregator.
type Params struct {
	// WeakThreshold is the exclusive upper bound on correct/attempted below
	// which a topic is classified weak.
	WeakThreshold float64

	// StrongThreshold is the inclusive lower bound on correct/attempted at
	// which a topic is classified strong.
	StrongThreshold float64

	// MinTopicAttempts is the minimum number of attempts a topic needs before
	// it is classified at all. Topics below this are excluded from both sets
	// to avoid noisy single-sample judgments.
	MinTopicAttempts int

	// NegativeMarkPerWrong is the per-wrong-answer deduction applied to the
	// score. The engine default is 0 (no negative marking); exam-mode callers
	// may opt in through configuration.
	NegativeMarkPerWrong float64
}

// NewDefaultParams returns the standard scoring parameters.
func NewDefaultParams() *Params {
	return &Params{
		WeakThreshold:        0.5,
		StrongThreshold:      0.7,
		MinTopicAttempts:     2,
		NegativeMarkPerWrong: 0,
	}
}
