package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// routingSystemPrompt instructs the model to act as a routing assistant
// over the available agent cards.
const routingSystemPrompt = `You are a helpful routing assistant which routes user requests to specialized remote agents. Your main task is to:
1. look up the available agents via their agent cards
2. select the best matching agent for the user query
3. answer with a JSON object of the form {"name": "<agent name>"}, or {"name": null} when no agent matches.`

// ChatModel is the minimal LLM surface the classifier needs. The real
// provider, credentials and transport live outside this package.
type ChatModel interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ModelClassifier turns a ChatModel into a Classifier. The model answer
// must be a JSON object {"name": "<agent>"} with null naming no match;
// anything else is a hard ErrDanglingRoute-class failure rather than
// being guessed at.
type ModelClassifier struct {
	model  ChatModel
	logger *zap.Logger
}

// NewModelClassifier creates a ModelClassifier.
func NewModelClassifier(model ChatModel, logger *zap.Logger) *ModelClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelClassifier{
		model:  model,
		logger: logger.With(zap.String("component", "model_classifier")),
	}
}

func (c *ModelClassifier) Route(ctx context.Context, input string, cards []json.RawMessage) (Decision, error) {
	catalog, err := json.Marshal(cards)
	if err != nil {
		return Decision{}, fmt.Errorf("marshal agent cards: %w", err)
	}

	prompt := fmt.Sprintf("User request:\n%s\n\nAvailable agent cards:\n%s", input, catalog)
	answer, err := c.model.Complete(ctx, routingSystemPrompt, prompt)
	if err != nil {
		return Decision{}, fmt.Errorf("classifier model: %w", err)
	}

	decision, err := parseDecision(answer)
	if err != nil {
		c.logger.Error("unparsable classifier answer", zap.String("answer", answer), zap.Error(err))
		return Decision{}, err
	}
	return decision, nil
}

// parseDecision interprets the raw model answer. Models wrap JSON in
// code fences often enough that fences are stripped before parsing.
func parseDecision(answer string) (Decision, error) {
	text := strings.TrimSpace(answer)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var body struct {
		Name *string `json:"name"`
	}
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		return Decision{}, fmt.Errorf("%w: unparsable classifier answer: %v", ErrDanglingRoute, err)
	}
	if body.Name == nil || *body.Name == "" {
		return Decision{NoMatch: true}, nil
	}
	return Decision{Agent: *body.Name}, nil
}

// Ensure ModelClassifier implements Classifier.
var _ Classifier = (*ModelClassifier)(nil)
