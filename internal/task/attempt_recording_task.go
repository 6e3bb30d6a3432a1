package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/store"
)

// AttemptRecordingPayload is the serialized form of an attempt-recording
// request, carried inside task and event payloads.
type AttemptRecordingPayload struct {
	Attempts []*domain.QuestionAttempt `json:"attempts"`
}

// AttemptRecordingTask writes a batch of question attempts to the append-only
// log. Each attempt is appended independently so one bad record cannot block
// the rest; transient store failures retry the remainder with backoff.
type AttemptRecordingTask struct {
	id           uuid.UUID
	attempts     []*domain.QuestionAttempt
	attemptStore store.AttemptStore
	maxRetries   int
	retryDelay   time.Duration
	logger       *slog.Logger

	mu     sync.Mutex
	status TaskStatus
}

var _ Task = (*AttemptRecordingTask)(nil)

// NewAttemptRecordingTask creates a task that persists the given attempts.
func NewAttemptRecordingTask(
	attempts []*domain.QuestionAttempt,
	attemptStore store.AttemptStore,
	maxRetries int,
	retryDelay time.Duration,
	logger *slog.Logger,
) (*AttemptRecordingTask, error) {
	if attemptStore == nil {
		return nil, errors.New("attemptStore cannot be nil")
	}
	if len(attempts) == 0 {
		return nil, errors.New("attempts cannot be empty")
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &AttemptRecordingTask{
		id:           uuid.New(),
		attempts:     attempts,
		attemptStore: attemptStore,
		maxRetries:   maxRetries,
		retryDelay:   retryDelay,
		logger:       logger.With(slog.String("component", "attempt_recording_task")),
		status:       TaskStatusPending,
	}, nil
}

// ID implements Task.
func (t *AttemptRecordingTask) ID() uuid.UUID { return t.id }

// Type implements Task.
func (t *AttemptRecordingTask) Type() string { return TaskTypeAttemptRecording }

// Payload implements Task.
func (t *AttemptRecordingTask) Payload() []byte {
	data, err := json.Marshal(AttemptRecordingPayload{Attempts: t.attempts})
	if err != nil {
		return nil
	}
	return data
}

// Status implements Task.
func (t *AttemptRecordingTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *AttemptRecordingTask) setStatus(status TaskStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
}

// Execute implements Task. It appends every attempt, retrying the ones that
// fail up to maxRetries times before giving up.
func (t *AttemptRecordingTask) Execute(ctx context.Context) error {
	t.setStatus(TaskStatusProcessing)

	pending := t.attempts
	var lastErr error

	for try := 0; try <= t.maxRetries && len(pending) > 0; try++ {
		if try > 0 {
			select {
			case <-time.After(t.retryDelay * time.Duration(try)):
			case <-ctx.Done():
				t.setStatus(TaskStatusFailed)
				return ctx.Err()
			}
		}

		var failed []*domain.QuestionAttempt
		for _, attempt := range pending {
			if err := t.attemptStore.Append(ctx, attempt); err != nil {
				lastErr = err
				failed = append(failed, attempt)
				t.logger.Warn("appending attempt failed",
					slog.String("attempt_id", attempt.ID.String()),
					slog.Int("try", try+1),
					slog.String("error", err.Error()))
			}
		}
		pending = failed
	}

	if len(pending) > 0 {
		t.setStatus(TaskStatusFailed)
		return fmt.Errorf("failed to record %d of %d attempts: %w",
			len(pending), len(t.attempts), lastErr)
	}

	t.setStatus(TaskStatusCompleted)
	t.logger.Debug("recorded attempts", slog.Int("count", len(t.attempts)))
	return nil
}
