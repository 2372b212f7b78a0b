package routing

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// TaskState is the lifecycle state of a task as reported to listeners.
type TaskState string

const (
	// TaskStateWorking indicates the task is being processed.
	TaskStateWorking TaskState = "working"
	// TaskStateCompleted indicates the task finished successfully.
	TaskStateCompleted TaskState = "completed"
	// TaskStateRejected indicates the agent declined the task.
	TaskStateRejected TaskState = "rejected"
	// TaskStateFailed indicates the task aborted with an error.
	TaskStateFailed TaskState = "failed"
)

// TaskContext carries the per-request identifiers and user input. It is
// never persisted. ContextID and TaskID must both be set before any
// lifecycle transition.
type TaskContext struct {
	// ContextID identifies the conversation this task belongs to.
	ContextID string `json:"context_id"`
	// TaskID identifies this task.
	TaskID string `json:"task_id"`
	// Input is the user input text.
	Input string `json:"input"`
}

// Valid reports whether the context satisfies the lifecycle precondition.
func (t *TaskContext) Valid() bool {
	return t != nil && t.ContextID != "" && t.TaskID != ""
}

// NewTaskContext mints a task context with fresh identifiers.
func NewTaskContext(input string) TaskContext {
	return TaskContext{
		ContextID: uuid.NewString(),
		TaskID:    uuid.NewString(),
		Input:     input,
	}
}

// Artifact names used by the lifecycle.
const (
	// ArtifactResult carries the output of a successful attempt.
	ArtifactResult = "current_result"
	// ArtifactTargetAgent carries the card of the agent a rejected task
	// is handed off to.
	ArtifactTargetAgent = "target_agent"
)

// Artifact is a named output produced by a task run.
type Artifact struct {
	// Name identifies the artifact kind, see ArtifactResult and
	// ArtifactTargetAgent.
	Name string `json:"name"`
	// Description provides a human-readable description.
	Description string `json:"description,omitempty"`
	// Text is the artifact payload.
	Text string `json:"text"`
}

// Event is a lifecycle notification. The concrete types are StatusEvent
// and ArtifactEvent.
type Event interface {
	event()
}

// StatusEvent reports a task state change.
type StatusEvent struct {
	ContextID string    `json:"context_id"`
	TaskID    string    `json:"task_id"`
	State     TaskState `json:"state"`
	// Final marks the last status event of the task.
	Final bool `json:"final"`
}

func (StatusEvent) event() {}

// ArtifactEvent publishes a task artifact.
type ArtifactEvent struct {
	ContextID string   `json:"context_id"`
	TaskID    string   `json:"task_id"`
	Artifact  Artifact `json:"artifact"`
	// LastChunk marks the end of the artifact stream. The lifecycle
	// emits exactly one artifact per task, so it is always true here.
	LastChunk bool `json:"last_chunk"`
}

func (ArtifactEvent) event() {}

// EventQueue receives lifecycle events. Implementations must deliver
// events to listeners in enqueue order within one task.
type EventQueue interface {
	Enqueue(ctx context.Context, ev Event) error
}

// Queue is a channel-backed EventQueue. Events are observed by the
// consumer in enqueue order. The producer calls Close after its last
// Enqueue; the consumer channel then drains the buffered events and
// closes.
type Queue struct {
	ch chan Event

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a Queue with the given buffer size.
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan Event, size)}
}

// Enqueue appends an event, blocking while the buffer is full. The
// closed check and the send happen under a shared lock, so a racing
// Close can never make the send panic; it waits for in-flight sends
// and subsequent Enqueue calls fail with ErrQueueClosed.
func (q *Queue) Enqueue(ctx context.Context, ev Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the consumer side of the queue.
func (q *Queue) Events() <-chan Event {
	return q.ch
}

// Close marks the end of the event stream. It blocks until in-flight
// Enqueue calls finish. Buffered events remain readable; further
// Enqueue calls fail with ErrQueueClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
