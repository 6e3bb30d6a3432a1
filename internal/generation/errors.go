package generation

import (
	"errors"
	"fmt"
)

// Sentinel errors for distractor generation failures. Callers match with
// errors.Is; implementations wrap these with provider-specific context.
var (
	// ErrGenerationFailed indicates the upstream model call failed after
	// exhausting retries.
	ErrGenerationFailed = errors.New("distractor generation failed")

	// ErrEmptyResponse indicates the model returned no usable candidates.
	ErrEmptyResponse = errors.New("empty response from generation model")

	// ErrInvalidResponse indicates the model output could not be parsed.
	ErrInvalidResponse = errors.New("invalid response format from generation model")

	// ErrContentBlocked indicates the provider refused the prompt on safety
	// grounds.
	ErrContentBlocked = errors.New("content blocked by generation model")

	// ErrTransientFailure indicates a retryable upstream failure such as a
	// rate limit or timeout.
	ErrTransientFailure = errors.New("transient generation failure")

	// ErrGenerationDisabled indicates the deployment has no generation
	// provider configured. Pre-authored option sets are still served.
	ErrGenerationDisabled = errors.New("distractor generation is disabled")
)

// GenerationError wraps a generation failure with the question topic for
// diagnostics without leaking full question content into logs.
type GenerationError struct {
	Topic string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating distractors for topic %q: %v", e.Topic, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// NewGenerationError creates a GenerationError for the given topic.
func NewGenerationError(topic string, err error) *GenerationError {
	return &GenerationError{Topic: topic, Err: err}
}
