package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prepforge/practice-api/internal/events"
	"github.com/prepforge/practice-api/internal/store"
)

// AttemptRecordingEventHandler implements events.EventHandler: it turns
// attempt-recording events into AttemptRecordingTasks and enqueues them on
// the task queue.
type AttemptRecordingEventHandler struct {
	queue        TaskQueueWriter
	attemptStore store.AttemptStore
	maxRetries   int
	retryDelay   time.Duration
	logger       *slog.Logger
}

var _ events.EventHandler = (*AttemptRecordingEventHandler)(nil)

// NewAttemptRecordingEventHandler creates the handler that bridges events to
// the task queue.
func NewAttemptRecordingEventHandler(
	queue TaskQueueWriter,
	attemptStore store.AttemptStore,
	maxRetries int,
	retryDelay time.Duration,
	logger *slog.Logger,
) *AttemptRecordingEventHandler {
	if queue == nil {
		panic("queue cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if attemptStore == nil {
		panic("attemptStore cannot be nil") // ALLOW-PANIC: constructor enforces required dependency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AttemptRecordingEventHandler{
		queue:        queue,
		attemptStore: attemptStore,
		maxRetries:   maxRetries,
		retryDelay:   retryDelay,
		logger:       logger.With("component", "attempt_recording_event_handler"),
	}
}

// HandleEvent processes attempt-recording events; other event types are
// ignored so multiple handlers can share one emitter.
func (h *AttemptRecordingEventHandler) HandleEvent(
	ctx context.Context,
	event *events.TaskRequestEvent,
) error {
	if event.Type != events.TypeAttemptRecording {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload AttemptRecordingPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("failed to unmarshal attempt payload: %w", err)
	}
	if len(payload.Attempts) == 0 {
		h.logger.Warn("attempt recording event carried no attempts",
			"event_id", event.ID)
		return nil
	}

	task, err := NewAttemptRecordingTask(
		payload.Attempts, h.attemptStore, h.maxRetries, h.retryDelay, h.logger)
	if err != nil {
		return fmt.Errorf("failed to create attempt recording task: %w", err)
	}

	if err := h.queue.Enqueue(task); err != nil {
		return fmt.Errorf("failed to enqueue attempt recording task: %w", err)
	}

	h.logger.Debug("attempt recording task enqueued",
		"task_id", task.ID(),
		"attempt_count", len(payload.Attempts),
		"event_id", event.ID)
	return nil
}
