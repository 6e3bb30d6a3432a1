// Package events decouples services from background task creation: a service
// emits a TaskRequestEvent and registered handlers turn it into queued work.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type identifiers.
const (
	// TypeAttemptRecording requests that a completed session's question
	// attempts be written to the append-only attempt log.
	TypeAttemptRecording = "attempt_recording"
)

// TaskRequestEvent is a request to create a background task. It carries the
// task type and an opaque JSON payload so emitters need no knowledge of the
// task package.
type TaskRequestEvent struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *TaskRequestEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskRequestEvent creates a TaskRequestEvent with the given type and a
// JSON-serialized payload.
func NewTaskRequestEvent(eventType string, payload interface{}) (*TaskRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &TaskRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler processes emitted events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *TaskRequestEvent) error
}

// EventEmitter publishes events to registered handlers without the emitter
// knowing who consumes them.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskRequestEvent) error
}
