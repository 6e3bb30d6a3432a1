package events

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	seen      []*TaskRequestEvent
	handleErr error
}

func (h *recordingHandler) HandleEvent(_ context.Context, event *TaskRequestEvent) error {
	h.seen = append(h.seen, event)
	return h.handleErr
}

func TestNewTaskRequestEvent(t *testing.T) {
	t.Parallel()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	event, err := NewTaskRequestEvent(TypeAttemptRecording, payload{Name: "batch", Count: 3})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, TypeAttemptRecording, event.Type)
	assert.False(t, event.CreatedAt.IsZero())

	var decoded payload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, "batch", decoded.Name)
	assert.Equal(t, 3, decoded.Count)
}

func TestNewTaskRequestEventUnserializablePayload(t *testing.T) {
	t.Parallel()

	_, err := NewTaskRequestEvent(TypeAttemptRecording, make(chan int))
	assert.Error(t, err, "unserializable payloads should be rejected")
}

func TestEmitEventReachesAllHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(nil)
	first := &recordingHandler{}
	second := &recordingHandler{}
	emitter.RegisterHandler(first)
	emitter.RegisterHandler(second)

	event, err := NewTaskRequestEvent(TypeAttemptRecording, map[string]int{"n": 1})
	require.NoError(t, err)

	require.NoError(t, emitter.EmitEvent(context.Background(), event))
	require.Len(t, first.seen, 1)
	require.Len(t, second.seen, 1)
	assert.Equal(t, event.ID, first.seen[0].ID)
	assert.Equal(t, event.ID, second.seen[0].ID)
}

func TestEmitEventContinuesPastFailingHandler(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(nil)
	failing := &recordingHandler{handleErr: assert.AnError}
	healthy := &recordingHandler{}
	emitter.RegisterHandler(failing)
	emitter.RegisterHandler(healthy)

	event, err := NewTaskRequestEvent(TypeAttemptRecording, map[string]int{"n": 1})
	require.NoError(t, err)

	err = emitter.EmitEvent(context.Background(), event)
	assert.ErrorIs(t, err, assert.AnError, "first handler error should be returned")
	assert.Len(t, healthy.seen, 1, "later handlers still see the event")
}

func TestEmitEventWithNoHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(nil)
	event, err := NewTaskRequestEvent(TypeAttemptRecording, map[string]int{"n": 1})
	require.NoError(t, err)

	assert.NoError(t, emitter.EmitEvent(context.Background(), event),
		"emitting with no handlers is a no-op")
}
