package routing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentrelay/internal/metrics"
	"github.com/BaSui01/agentrelay/registry"
)

// fakeAgent reports a fixed attempt outcome.
type fakeAgent struct {
	attempt Attempt
	err     error
}

func (a *fakeAgent) Attempt(_ context.Context, _ *TaskContext) (Attempt, error) {
	return a.attempt, a.err
}

// fakeClassifier returns a fixed decision.
type fakeClassifier struct {
	decision Decision
	err      error
	calls    int
}

func (c *fakeClassifier) Route(_ context.Context, _ string, _ []json.RawMessage) (Decision, error) {
	c.calls++
	return c.decision, c.err
}

func seedDirectory(t *testing.T, names ...string) *registry.AgentDirectory {
	t.Helper()
	dir := registry.NewAgentDirectory(registry.NewMemoryStore(), zap.NewNop())
	for _, name := range names {
		card, err := json.Marshal(map[string]string{"name": name, "description": name + " agent"})
		require.NoError(t, err)
		require.NoError(t, dir.Register(context.Background(), name, card, time.Now().Add(time.Minute)))
	}
	return dir
}

func drain(q *Queue) []Event {
	q.Close()
	var events []Event
	for ev := range q.Events() {
		events = append(events, ev)
	}
	return events
}

func task() *TaskContext {
	return &TaskContext{ContextID: "ctx-1", TaskID: "task-1", Input: "translate this text"}
}

func TestExecutor_CompletedTask(t *testing.T) {
	dir := seedDirectory(t, "alpha", "beta")
	classifier := &fakeClassifier{decision: Decision{Agent: "beta"}}
	engine := NewEngine(classifier, dir, zap.NewNop())
	agent := &fakeAgent{attempt: Attempt{State: TaskStateCompleted, Output: "bonjour"}}
	exec := NewExecutor(agent, engine, zap.NewNop())

	q := NewQueue(8)
	require.NoError(t, exec.Execute(context.Background(), task(), q))

	events := drain(q)
	require.Len(t, events, 3)

	working, ok := events[0].(StatusEvent)
	require.True(t, ok)
	assert.Equal(t, TaskStateWorking, working.State)
	assert.False(t, working.Final)

	artifact, ok := events[1].(ArtifactEvent)
	require.True(t, ok)
	assert.Equal(t, ArtifactResult, artifact.Artifact.Name)
	assert.Equal(t, "bonjour", artifact.Artifact.Text)
	assert.True(t, artifact.LastChunk)

	final, ok := events[2].(StatusEvent)
	require.True(t, ok)
	assert.Equal(t, TaskStateCompleted, final.State)
	assert.True(t, final.Final)

	assert.Equal(t, 0, classifier.calls, "completed tasks never consult the classifier")
}

func TestExecutor_RejectedTaskIsRerouted(t *testing.T) {
	dir := seedDirectory(t, "alpha", "beta")
	classifier := &fakeClassifier{decision: Decision{Agent: "beta"}}
	engine := NewEngine(classifier, dir, zap.NewNop())
	agent := &fakeAgent{attempt: Attempt{State: TaskStateRejected}}
	exec := NewExecutor(agent, engine, zap.NewNop())

	q := NewQueue(8)
	require.NoError(t, exec.Execute(context.Background(), task(), q))

	events := drain(q)
	require.Len(t, events, 3)
	assert.Equal(t, TaskStateWorking, events[0].(StatusEvent).State)

	artifact := events[1].(ArtifactEvent)
	assert.Equal(t, ArtifactTargetAgent, artifact.Artifact.Name)
	var handoffCard struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal([]byte(artifact.Artifact.Text), &handoffCard))
	assert.Equal(t, "beta", handoffCard.Name)

	final := events[2].(StatusEvent)
	assert.Equal(t, TaskStateRejected, final.State, "final status reflects the attempt's own reported state")
	assert.True(t, final.Final)
	assert.Equal(t, 1, classifier.calls)
}

func TestExecutor_PreconditionEmitsNothing(t *testing.T) {
	dir := seedDirectory(t)
	engine := NewEngine(&fakeClassifier{}, dir, zap.NewNop())
	exec := NewExecutor(&fakeAgent{}, engine, zap.NewNop())

	for _, tc := range []*TaskContext{
		nil,
		{TaskID: "task-1", Input: "x"},
		{ContextID: "ctx-1", Input: "x"},
	} {
		q := NewQueue(8)
		err := exec.Execute(context.Background(), tc, q)
		assert.ErrorIs(t, err, ErrPrecondition)
		assert.Empty(t, drain(q))
	}
}

func TestExecutor_DanglingRoute(t *testing.T) {
	dir := seedDirectory(t, "alpha")
	classifier := &fakeClassifier{decision: Decision{Agent: "phantom"}}
	engine := NewEngine(classifier, dir, zap.NewNop())
	exec := NewExecutor(&fakeAgent{attempt: Attempt{State: TaskStateRejected}}, engine, zap.NewNop())

	q := NewQueue(8)
	err := exec.Execute(context.Background(), task(), q)
	assert.ErrorIs(t, err, ErrDanglingRoute)

	events := drain(q)
	require.Len(t, events, 2, "no artifact beside the failed status")
	assert.Equal(t, TaskStateWorking, events[0].(StatusEvent).State)
	final := events[1].(StatusEvent)
	assert.Equal(t, TaskStateFailed, final.State)
	assert.True(t, final.Final)
}

func TestExecutor_ExpiredAgentIsDangling(t *testing.T) {
	dir := seedDirectory(t, "alpha")
	card, _ := json.Marshal(map[string]string{"name": "stale"})
	require.NoError(t, dir.Register(context.Background(), "stale", card, time.Now().Add(-time.Second)))

	engine := NewEngine(&fakeClassifier{decision: Decision{Agent: "stale"}}, dir, zap.NewNop())
	exec := NewExecutor(&fakeAgent{attempt: Attempt{State: TaskStateRejected}}, engine, zap.NewNop())

	q := NewQueue(8)
	assert.ErrorIs(t, exec.Execute(context.Background(), task(), q), ErrDanglingRoute)
}

func TestExecutor_NoMatch(t *testing.T) {
	dir := seedDirectory(t, "alpha")
	engine := NewEngine(&fakeClassifier{decision: Decision{NoMatch: true}}, dir, zap.NewNop())
	exec := NewExecutor(&fakeAgent{attempt: Attempt{State: TaskStateRejected}}, engine, zap.NewNop())

	q := NewQueue(8)
	assert.ErrorIs(t, exec.Execute(context.Background(), task(), q), ErrNoMatch)

	events := drain(q)
	require.Len(t, events, 2)
	assert.Equal(t, TaskStateFailed, events[1].(StatusEvent).State)
}

func TestExecutor_AttemptError(t *testing.T) {
	dir := seedDirectory(t, "alpha")
	engine := NewEngine(&fakeClassifier{}, dir, zap.NewNop())
	attemptErr := errors.New("model unavailable")
	exec := NewExecutor(&fakeAgent{err: attemptErr}, engine, zap.NewNop())

	q := NewQueue(8)
	err := exec.Execute(context.Background(), task(), q)
	assert.ErrorIs(t, err, attemptErr)

	events := drain(q)
	require.Len(t, events, 2)
	final := events[1].(StatusEvent)
	assert.Equal(t, TaskStateFailed, final.State)
	assert.True(t, final.Final)
}

func TestExecutor_CancelNotImplemented(t *testing.T) {
	dir := seedDirectory(t)
	exec := NewExecutor(&fakeAgent{}, NewEngine(&fakeClassifier{}, dir, zap.NewNop()), zap.NewNop())
	assert.ErrorIs(t, exec.Cancel(context.Background(), task(), NewQueue(1)), ErrNotImplemented)
}

func TestRouterExecutor_Handoff(t *testing.T) {
	dir := seedDirectory(t, "alpha", "beta")
	engine := NewEngine(&fakeClassifier{decision: Decision{Agent: "alpha"}}, dir, zap.NewNop())
	router := NewRouterExecutor(engine, zap.NewNop())

	q := NewQueue(8)
	require.NoError(t, router.Execute(context.Background(), task(), q))

	events := drain(q)
	require.Len(t, events, 3)
	artifact := events[1].(ArtifactEvent)
	assert.Equal(t, ArtifactTargetAgent, artifact.Artifact.Name)
	final := events[2].(StatusEvent)
	assert.Equal(t, TaskStateCompleted, final.State)
	assert.True(t, final.Final)

	assert.ErrorIs(t, router.Cancel(context.Background(), task(), NewQueue(1)), ErrNotImplemented)
}

func TestExecutor_RecordsMetrics(t *testing.T) {
	collector := metrics.NewCollector("routing_test")
	dir := seedDirectory(t, "alpha", "beta")
	engine := NewEngine(&fakeClassifier{decision: Decision{Agent: "beta"}}, dir, zap.NewNop()).WithMetrics(collector)
	exec := NewExecutor(&fakeAgent{attempt: Attempt{State: TaskStateRejected}}, engine, zap.NewNop()).WithMetrics(collector)

	q := NewQueue(8)
	require.NoError(t, exec.Execute(context.Background(), task(), q))
	drain(q)

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `routing_test_route_decisions_total{outcome="routed"} 1`)
	assert.Contains(t, body, `routing_test_tasks_total{state="rejected"} 1`)
}

func TestRouterExecutor_NoMatchFails(t *testing.T) {
	dir := seedDirectory(t)
	engine := NewEngine(&fakeClassifier{decision: Decision{NoMatch: true}}, dir, zap.NewNop())
	router := NewRouterExecutor(engine, zap.NewNop())

	q := NewQueue(8)
	assert.ErrorIs(t, router.Execute(context.Background(), task(), q), ErrNoMatch)

	events := drain(q)
	require.Len(t, events, 2)
	assert.Equal(t, TaskStateFailed, events[1].(StatusEvent).State)
}
