package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/agentrelay/internal/metrics"
)

// Decision is the classifier's answer for one routing request: either a
// candidate agent name or an explicit no-match marker. It is consumed
// once and never cached.
type Decision struct {
	// Agent is the name of the selected agent.
	Agent string
	// NoMatch is set when no registered agent fits the task.
	NoMatch bool
}

// Classifier is the black-box decision boundary, typically backed by an
// LLM. Given the task input and the current candidate cards it returns a
// Decision. Implementations are not assumed deterministic.
type Classifier interface {
	Route(ctx context.Context, input string, cards []json.RawMessage) (Decision, error)
}

// AgentSource is the slice of the agent directory the engine reads. It
// is satisfied by *registry.AgentDirectory and by the HTTP lookup
// client.
type AgentSource interface {
	Get(ctx context.Context, name string) (json.RawMessage, bool, error)
	List(ctx context.Context) ([]json.RawMessage, error)
}

// Handoff names the agent a task is re-routed to, together with its
// descriptor card as currently registered.
type Handoff struct {
	// Name is the chosen agent's name.
	Name string `json:"name"`
	// Card is the chosen agent's descriptor document.
	Card json.RawMessage `json:"card"`
}

// Engine wraps the classifier with directory resolution. It invokes the
// classifier exactly once per call and validates that the returned name
// resolves to a live agent; it never substitutes a default.
type Engine struct {
	classifier Classifier
	agents     AgentSource
	logger     *zap.Logger
	metrics    *metrics.Collector
}

// NewEngine creates a routing Engine.
func NewEngine(classifier Classifier, agents AgentSource, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		classifier: classifier,
		agents:     agents,
		logger:     logger.With(zap.String("component", "routing_engine")),
	}
}

// WithMetrics attaches a collector recording decision outcomes.
func (e *Engine) WithMetrics(c *metrics.Collector) *Engine {
	e.metrics = c
	return e
}

// Decide picks the agent that should handle the given input. It fails
// with ErrNoMatch when the classifier declines, and with
// ErrDanglingRoute when the chosen name is absent or expired in the
// directory.
func (e *Engine) Decide(ctx context.Context, input string) (*Handoff, error) {
	handoff, err := e.decide(ctx, input)
	if e.metrics != nil {
		e.metrics.RecordRouteDecision(outcomeOf(err))
	}
	return handoff, err
}

func (e *Engine) decide(ctx context.Context, input string) (*Handoff, error) {
	cards, err := e.agents.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	decision, err := e.classifier.Route(ctx, input, cards)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	if decision.NoMatch || decision.Agent == "" {
		return nil, ErrNoMatch
	}

	card, ok, err := e.agents.Get(ctx, decision.Agent)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", decision.Agent, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: agent %q not in directory", ErrDanglingRoute, decision.Agent)
	}

	e.logger.Info("route decided", zap.String("agent", decision.Agent))
	return &Handoff{Name: decision.Agent, Card: card}, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeRouted
	case errors.Is(err, ErrNoMatch):
		return metrics.OutcomeNoMatch
	case errors.Is(err, ErrDanglingRoute):
		return metrics.OutcomeDangling
	default:
		return metrics.OutcomeError
	}
}
