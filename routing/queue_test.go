package routing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PreservesOrder(t *testing.T) {
	q := NewQueue(4)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, StatusEvent{TaskID: "t", State: TaskStateWorking}))
	require.NoError(t, q.Enqueue(ctx, ArtifactEvent{TaskID: "t", Artifact: Artifact{Name: ArtifactResult}}))
	require.NoError(t, q.Enqueue(ctx, StatusEvent{TaskID: "t", State: TaskStateCompleted, Final: true}))
	q.Close()

	var events []Event
	for ev := range q.Events() {
		events = append(events, ev)
	}
	require.Len(t, events, 3)
	assert.IsType(t, StatusEvent{}, events[0])
	assert.IsType(t, ArtifactEvent{}, events[1])
	assert.IsType(t, StatusEvent{}, events[2])
	assert.True(t, events[2].(StatusEvent).Final)
}

func TestQueue_EnqueueAfterClose(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	assert.ErrorIs(t, q.Enqueue(context.Background(), StatusEvent{}), ErrQueueClosed)
}

func TestQueue_CloseIsIdempotent(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	q.Close()
}

// Closing while a producer is still enqueueing must never panic; the
// producer observes ErrQueueClosed instead.
func TestQueue_CloseDuringEnqueue(t *testing.T) {
	q := NewQueue(1)
	ctx := context.Background()

	go func() {
		for range q.Events() {
		}
	}()

	done := make(chan error, 1)
	go func() {
		for {
			if err := q.Enqueue(ctx, StatusEvent{State: TaskStateWorking}); err != nil {
				done <- err
				return
			}
		}
	}()

	time.Sleep(5 * time.Millisecond)
	q.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("producer did not observe queue close")
	}
}

func TestNewTaskContext(t *testing.T) {
	a := NewTaskContext("hello")
	b := NewTaskContext("hello")

	assert.True(t, a.Valid())
	assert.Equal(t, "hello", a.Input)
	assert.NotEqual(t, a.TaskID, b.TaskID)
	assert.NotEqual(t, a.ContextID, b.ContextID)
}
