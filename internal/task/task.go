// Package task provides the in-process background work machinery: a bounded
// task queue drained by a worker pool. Its one production workload is the
// attempt-recording task that writes a completed session's question attempts
// to the append-only log without blocking the completion request.
package task

import (
	"context"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task type constants
const (
	// TaskTypeAttemptRecording writes question attempts after completion.
	TaskTypeAttemptRecording = "attempt_recording"
)

// Task represents a unit of background work to be processed.
type Task interface {
	// ID returns the task's unique identifier.
	ID() uuid.UUID

	// Type returns the task type identifier.
	Type() string

	// Payload returns the task data as a byte slice.
	Payload() []byte

	// Status returns the current task status.
	Status() TaskStatus

	// Execute runs the task logic.
	Execute(ctx context.Context) error
}

// TaskQueueReader provides read-only access to the task channel so workers
// can consume tasks without the ability to enqueue.
type TaskQueueReader interface {
	// GetChannel returns a read-only channel for consuming tasks.
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue so services can
// enqueue tasks for processing.
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue for processing.
	// Returns an error if the queue is full or closed.
	Enqueue(task Task) error

	// Close closes the task queue, preventing further task submission.
	Close()
}
