package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/events"
	"github.com/prepforge/practice-api/internal/service/practice"
)

// EventAttemptRecorder implements practice.AttemptRecorder by emitting an
// attempt-recording event. The event handler converts it into a queued task,
// so session completion never waits on the attempt log.
type EventAttemptRecorder struct {
	emitter events.EventEmitter
	logger  *slog.Logger
}

var _ practice.AttemptRecorder = (*EventAttemptRecorder)(nil)

// NewEventAttemptRecorder creates the recorder over the given emitter.
func NewEventAttemptRecorder(emitter events.EventEmitter, logger *slog.Logger) *EventAttemptRecorder {
	if emitter == nil {
		panic("emitter cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventAttemptRecorder{
		emitter: emitter,
		logger:  logger.With("component", "event_attempt_recorder"),
	}
}

// RecordAttempts implements practice.AttemptRecorder.
func (r *EventAttemptRecorder) RecordAttempts(
	ctx context.Context,
	attempts []*domain.QuestionAttempt,
) error {
	if len(attempts) == 0 {
		return nil
	}

	event, err := events.NewTaskRequestEvent(
		events.TypeAttemptRecording,
		AttemptRecordingPayload{Attempts: attempts},
	)
	if err != nil {
		return fmt.Errorf("failed to build attempt recording event: %w", err)
	}

	if err := r.emitter.EmitEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to emit attempt recording event: %w", err)
	}

	r.logger.Debug("attempt recording event emitted",
		"event_id", event.ID,
		"attempt_count", len(attempts))
	return nil
}
