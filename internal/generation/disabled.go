package generation

import (
	"context"

	"github.com/prepforge/practice-api/internal/domain"
)

// disabledGenerator rejects every generation request. It stands in for a
// real provider when no API key is configured so the rest of the engine can
// keep serving pre-authored option sets.
type disabledGenerator struct{}

var _ Generator = disabledGenerator{}

// Disabled returns a Generator that always fails with ErrGenerationDisabled.
func Disabled() Generator {
	return disabledGenerator{}
}

func (disabledGenerator) ProposeDistractors(
	_ context.Context,
	_ *domain.Question,
	_ int,
) ([]string, error) {
	return nil, ErrGenerationDisabled
}
