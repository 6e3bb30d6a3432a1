package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepforge/practice-api/internal/domain"
	"github.com/prepforge/practice-api/internal/events"
	"github.com/prepforge/practice-api/internal/store"
)

// fakeAttemptStore records appended attempts and can be told to fail the
// first N Append calls for a given attempt ID.
type fakeAttemptStore struct {
	mu        sync.Mutex
	appended  []*domain.QuestionAttempt
	failures  map[uuid.UUID]int
	appendErr error
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{failures: make(map[uuid.UUID]int)}
}

func (s *fakeAttemptStore) Append(_ context.Context, attempt *domain.QuestionAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures[attempt.ID] > 0 {
		s.failures[attempt.ID]--
		return assert.AnError
	}
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, attempt)
	return nil
}

func (s *fakeAttemptStore) ListRecentByOwner(context.Context, uuid.UUID, int) ([]*domain.QuestionAttempt, error) {
	return nil, nil
}

func (s *fakeAttemptStore) WithTx(*sql.Tx) store.AttemptStore { return s }

func (s *fakeAttemptStore) appendedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.appended)
}

func makeAttempt(t *testing.T) *domain.QuestionAttempt {
	t.Helper()
	attempt, err := domain.NewQuestionAttempt(
		uuid.New(), uuid.New(), domain.SourcePYQ, true, domain.DifficultyMedium, 30)
	require.NoError(t, err, "fixture attempt should be valid")
	return attempt
}

func TestNewAttemptRecordingTaskValidation(t *testing.T) {
	t.Parallel()

	attempt := makeAttempt(t)

	_, err := NewAttemptRecordingTask(nil, newFakeAttemptStore(), 1, time.Millisecond, nil)
	assert.Error(t, err, "empty attempts should be rejected")

	_, err = NewAttemptRecordingTask([]*domain.QuestionAttempt{attempt}, nil, 1, time.Millisecond, nil)
	assert.Error(t, err, "nil store should be rejected")

	task, err := NewAttemptRecordingTask([]*domain.QuestionAttempt{attempt}, newFakeAttemptStore(), 1, time.Millisecond, nil)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeAttemptRecording, task.Type())
	assert.Equal(t, TaskStatusPending, task.Status())
	assert.NotEqual(t, uuid.Nil, task.ID())
}

func TestAttemptRecordingTaskExecute(t *testing.T) {
	t.Parallel()

	attempts := []*domain.QuestionAttempt{makeAttempt(t), makeAttempt(t)}
	attemptStore := newFakeAttemptStore()

	task, err := NewAttemptRecordingTask(attempts, attemptStore, 1, time.Millisecond, nil)
	require.NoError(t, err)

	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, TaskStatusCompleted, task.Status())
	assert.Equal(t, 2, attemptStore.appendedCount(), "both attempts should be persisted")
}

func TestAttemptRecordingTaskRetriesFailedAttempts(t *testing.T) {
	t.Parallel()

	good := makeAttempt(t)
	flaky := makeAttempt(t)

	attemptStore := newFakeAttemptStore()
	attemptStore.failures[flaky.ID] = 1

	task, err := NewAttemptRecordingTask(
		[]*domain.QuestionAttempt{good, flaky}, attemptStore, 2, time.Millisecond, nil)
	require.NoError(t, err)

	require.NoError(t, task.Execute(context.Background()))
	assert.Equal(t, TaskStatusCompleted, task.Status())
	assert.Equal(t, 2, attemptStore.appendedCount(), "flaky attempt should succeed on retry")

	// The succeeding attempt must not be re-appended alongside the retry.
	attemptStore.mu.Lock()
	ids := make(map[uuid.UUID]int)
	for _, a := range attemptStore.appended {
		ids[a.ID]++
	}
	attemptStore.mu.Unlock()
	assert.Equal(t, 1, ids[good.ID], "already-persisted attempt should not be retried")
	assert.Equal(t, 1, ids[flaky.ID])
}

func TestAttemptRecordingTaskFailsAfterRetriesExhausted(t *testing.T) {
	t.Parallel()

	attempt := makeAttempt(t)
	attemptStore := newFakeAttemptStore()
	attemptStore.failures[attempt.ID] = 10

	task, err := NewAttemptRecordingTask(
		[]*domain.QuestionAttempt{attempt}, attemptStore, 2, time.Millisecond, nil)
	require.NoError(t, err)

	err = task.Execute(context.Background())
	require.Error(t, err, "exhausted retries should surface an error")
	assert.ErrorIs(t, err, assert.AnError, "last store error should be wrapped")
	assert.Equal(t, TaskStatusFailed, task.Status())
	assert.Zero(t, attemptStore.appendedCount())
}

func TestAttemptRecordingTaskStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	attempt := makeAttempt(t)
	attemptStore := newFakeAttemptStore()
	attemptStore.failures[attempt.ID] = 10

	task, err := NewAttemptRecordingTask(
		[]*domain.QuestionAttempt{attempt}, attemptStore, 5, time.Minute, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = task.Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled, "canceled context should stop the retry loop")
	assert.Equal(t, TaskStatusFailed, task.Status())
}

func TestAttemptRecordingTaskPayload(t *testing.T) {
	t.Parallel()

	attempt := makeAttempt(t)
	task, err := NewAttemptRecordingTask(
		[]*domain.QuestionAttempt{attempt}, newFakeAttemptStore(), 0, time.Millisecond, nil)
	require.NoError(t, err)

	var payload AttemptRecordingPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Len(t, payload.Attempts, 1)
	assert.Equal(t, attempt.ID, payload.Attempts[0].ID)
}

// capturingEmitter records emitted events and optionally fails.
type capturingEmitter struct {
	events  []*events.TaskRequestEvent
	emitErr error
}

func (e *capturingEmitter) EmitEvent(_ context.Context, event *events.TaskRequestEvent) error {
	if e.emitErr != nil {
		return e.emitErr
	}
	e.events = append(e.events, event)
	return nil
}

func TestEventAttemptRecorderEmitsEvent(t *testing.T) {
	t.Parallel()

	emitter := &capturingEmitter{}
	recorder := NewEventAttemptRecorder(emitter, nil)
	attempt := makeAttempt(t)

	require.NoError(t, recorder.RecordAttempts(context.Background(), []*domain.QuestionAttempt{attempt}))
	require.Len(t, emitter.events, 1)

	event := emitter.events[0]
	assert.Equal(t, events.TypeAttemptRecording, event.Type)

	var payload AttemptRecordingPayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	require.Len(t, payload.Attempts, 1)
	assert.Equal(t, attempt.ID, payload.Attempts[0].ID)
}

func TestEventAttemptRecorderSkipsEmptyBatch(t *testing.T) {
	t.Parallel()

	emitter := &capturingEmitter{}
	recorder := NewEventAttemptRecorder(emitter, nil)

	require.NoError(t, recorder.RecordAttempts(context.Background(), nil))
	assert.Empty(t, emitter.events, "no event should be emitted for an empty batch")
}

func TestEventAttemptRecorderWrapsEmitterError(t *testing.T) {
	t.Parallel()

	emitter := &capturingEmitter{emitErr: assert.AnError}
	recorder := NewEventAttemptRecorder(emitter, nil)

	err := recorder.RecordAttempts(context.Background(), []*domain.QuestionAttempt{makeAttempt(t)})
	assert.ErrorIs(t, err, assert.AnError)
}

// capturingQueue records enqueued tasks and optionally fails.
type capturingQueue struct {
	tasks      []Task
	enqueueErr error
}

func (q *capturingQueue) Enqueue(task Task) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *capturingQueue) Close() {}

func TestAttemptRecordingEventHandlerEnqueuesTask(t *testing.T) {
	t.Parallel()

	queue := &capturingQueue{}
	handler := NewAttemptRecordingEventHandler(queue, newFakeAttemptStore(), 1, time.Millisecond, nil)

	attempt := makeAttempt(t)
	event, err := events.NewTaskRequestEvent(
		events.TypeAttemptRecording, AttemptRecordingPayload{Attempts: []*domain.QuestionAttempt{attempt}})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))
	require.Len(t, queue.tasks, 1)
	assert.Equal(t, TaskTypeAttemptRecording, queue.tasks[0].Type())
}

func TestAttemptRecordingEventHandlerIgnoresOtherEventTypes(t *testing.T) {
	t.Parallel()

	queue := &capturingQueue{}
	handler := NewAttemptRecordingEventHandler(queue, newFakeAttemptStore(), 1, time.Millisecond, nil)

	event, err := events.NewTaskRequestEvent("some_other_type", map[string]string{"k": "v"})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))
	assert.Empty(t, queue.tasks, "unrelated event types should not create tasks")
}

func TestAttemptRecordingEventHandlerRejectsBadPayload(t *testing.T) {
	t.Parallel()

	queue := &capturingQueue{}
	handler := NewAttemptRecordingEventHandler(queue, newFakeAttemptStore(), 1, time.Millisecond, nil)

	event := &events.TaskRequestEvent{
		ID:      uuid.New(),
		Type:    events.TypeAttemptRecording,
		Payload: json.RawMessage(`{not json`),
	}

	err := handler.HandleEvent(context.Background(), event)
	assert.Error(t, err, "malformed payload should be reported")
	assert.Empty(t, queue.tasks)
}

func TestAttemptRecordingEventHandlerSkipsEmptyAttempts(t *testing.T) {
	t.Parallel()

	queue := &capturingQueue{}
	handler := NewAttemptRecordingEventHandler(queue, newFakeAttemptStore(), 1, time.Millisecond, nil)

	event, err := events.NewTaskRequestEvent(
		events.TypeAttemptRecording, AttemptRecordingPayload{})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))
	assert.Empty(t, queue.tasks, "empty attempt batch should be dropped without a task")
}

func TestAttemptRecordingEventHandlerPropagatesEnqueueFailure(t *testing.T) {
	t.Parallel()

	queue := &capturingQueue{enqueueErr: ErrQueueFull}
	handler := NewAttemptRecordingEventHandler(queue, newFakeAttemptStore(), 1, time.Millisecond, nil)

	event, err := events.NewTaskRequestEvent(
		events.TypeAttemptRecording, AttemptRecordingPayload{Attempts: []*domain.QuestionAttempt{makeAttempt(t)}})
	require.NoError(t, err)

	err = handler.HandleEvent(context.Background(), event)
	assert.ErrorIs(t, err, ErrQueueFull)
}
