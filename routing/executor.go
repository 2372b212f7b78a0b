package routing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/agentrelay/internal/metrics"
)

// Attempt is the outcome of the local specialized agent's try at a task.
type Attempt struct {
	// State is the agent's reported terminal state for the attempt,
	// TaskStateRejected when the agent declines the work.
	State TaskState
	// Output is the agent's textual result.
	Output string
}

// Agent is the local specialized agent boundary.
type Agent interface {
	Attempt(ctx context.Context, task *TaskContext) (Attempt, error)
}

// Executor drives one inbound task through the lifecycle: it lets the
// local agent attempt the task and, when the agent rejects it, asks the
// Engine for a replacement and emits a hand-off artifact. The caller
// performs the re-dispatch.
type Executor struct {
	agent   Agent
	engine  *Engine
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewExecutor creates an Executor.
func NewExecutor(agent Agent, engine *Engine, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		agent:  agent,
		engine: engine,
		logger: logger.With(zap.String("component", "task_executor")),
	}
}

// WithMetrics attaches a collector recording terminal task states.
func (x *Executor) WithMetrics(c *metrics.Collector) *Executor {
	x.metrics = c
	return x
}

// Execute runs the full lifecycle for one task. Listeners on q observe,
// in order: one non-final working status, one artifact (result or
// hand-off), one final status. On a precondition failure nothing is
// emitted; on any later failure the final status is the only further
// event.
func (x *Executor) Execute(ctx context.Context, task *TaskContext, q EventQueue) error {
	if !task.Valid() {
		return ErrPrecondition
	}
	logger := x.logger.With(zap.String("context_id", task.ContextID), zap.String("task_id", task.TaskID))

	if err := q.Enqueue(ctx, StatusEvent{
		ContextID: task.ContextID,
		TaskID:    task.TaskID,
		State:     TaskStateWorking,
	}); err != nil {
		return fmt.Errorf("emit working status: %w", err)
	}

	attempt, err := x.agent.Attempt(ctx, task)
	if err != nil {
		x.recordTask(TaskStateFailed)
		emitFailure(ctx, q, task)
		return fmt.Errorf("agent attempt: %w", err)
	}

	var artifact Artifact
	if attempt.State == TaskStateRejected {
		handoff, err := x.engine.Decide(ctx, task.Input)
		if err != nil {
			x.recordTask(TaskStateFailed)
			emitFailure(ctx, q, task)
			return fmt.Errorf("reroute: %w", err)
		}
		logger.Info("task rejected, rerouting", zap.String("target_agent", handoff.Name))
		artifact = Artifact{
			Name:        ArtifactTargetAgent,
			Description: "New target agent for request.",
			Text:        string(handoff.Card),
		}
	} else {
		logger.Info("task processed by agent", zap.String("state", string(attempt.State)))
		artifact = Artifact{
			Name:        ArtifactResult,
			Description: "Result of request to agent.",
			Text:        attempt.Output,
		}
	}

	if err := q.Enqueue(ctx, ArtifactEvent{
		ContextID: task.ContextID,
		TaskID:    task.TaskID,
		Artifact:  artifact,
		LastChunk: true,
	}); err != nil {
		return fmt.Errorf("emit artifact: %w", err)
	}
	if err := q.Enqueue(ctx, StatusEvent{
		ContextID: task.ContextID,
		TaskID:    task.TaskID,
		State:     attempt.State,
		Final:     true,
	}); err != nil {
		return fmt.Errorf("emit final status: %w", err)
	}
	x.recordTask(attempt.State)
	return nil
}

// Cancel is not supported by this lifecycle.
func (x *Executor) Cancel(ctx context.Context, task *TaskContext, q EventQueue) error {
	return ErrNotImplemented
}

func (x *Executor) recordTask(state TaskState) {
	if x.metrics != nil {
		x.metrics.RecordTask(string(state))
	}
}

// RouterExecutor is the standalone routing variant: it performs no local
// attempt and always answers with a hand-off artifact.
type RouterExecutor struct {
	engine *Engine
	logger *zap.Logger
}

// NewRouterExecutor creates a RouterExecutor.
func NewRouterExecutor(engine *Engine, logger *zap.Logger) *RouterExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouterExecutor{
		engine: engine,
		logger: logger.With(zap.String("component", "router_executor")),
	}
}

// Execute routes the task input and emits a hand-off artifact for the
// chosen agent.
func (x *RouterExecutor) Execute(ctx context.Context, task *TaskContext, q EventQueue) error {
	if !task.Valid() {
		return ErrPrecondition
	}

	if err := q.Enqueue(ctx, StatusEvent{
		ContextID: task.ContextID,
		TaskID:    task.TaskID,
		State:     TaskStateWorking,
	}); err != nil {
		return fmt.Errorf("emit working status: %w", err)
	}

	handoff, err := x.engine.Decide(ctx, task.Input)
	if err != nil {
		emitFailure(ctx, q, task)
		return fmt.Errorf("route: %w", err)
	}
	x.logger.Info("routing decided",
		zap.String("context_id", task.ContextID),
		zap.String("target_agent", handoff.Name),
	)

	if err := q.Enqueue(ctx, ArtifactEvent{
		ContextID: task.ContextID,
		TaskID:    task.TaskID,
		Artifact: Artifact{
			Name:        ArtifactTargetAgent,
			Description: "New target agent for request.",
			Text:        string(handoff.Card),
		},
		LastChunk: true,
	}); err != nil {
		return fmt.Errorf("emit artifact: %w", err)
	}
	if err := q.Enqueue(ctx, StatusEvent{
		ContextID: task.ContextID,
		TaskID:    task.TaskID,
		State:     TaskStateCompleted,
		Final:     true,
	}); err != nil {
		return fmt.Errorf("emit final status: %w", err)
	}
	return nil
}

// Cancel is not supported by this lifecycle.
func (x *RouterExecutor) Cancel(ctx context.Context, task *TaskContext, q EventQueue) error {
	return ErrNotImplemented
}

// emitFailure publishes the terminal failed status. Enqueue errors are
// dropped; the lifecycle error itself is already propagating.
func emitFailure(ctx context.Context, q EventQueue, task *TaskContext) {
	_ = q.Enqueue(ctx, StatusEvent{
		ContextID: task.ContextID,
		TaskID:    task.TaskID,
		State:     TaskStateFailed,
		Final:     true,
	})
}
