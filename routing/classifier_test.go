package routing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubModel returns a canned answer and records the prompt it saw.
type stubModel struct {
	answer string
	err    error
	prompt string
	system string
}

func (m *stubModel) Complete(_ context.Context, system, prompt string) (string, error) {
	m.system = system
	m.prompt = prompt
	return m.answer, m.err
}

func TestModelClassifier_Route(t *testing.T) {
	cards := []json.RawMessage{
		json.RawMessage(`{"name":"alpha"}`),
		json.RawMessage(`{"name":"beta"}`),
	}

	tests := []struct {
		name    string
		answer  string
		want    Decision
		wantErr error
	}{
		{name: "plain object", answer: `{"name":"beta"}`, want: Decision{Agent: "beta"}},
		{name: "fenced object", answer: "```json\n{\"name\":\"alpha\"}\n```", want: Decision{Agent: "alpha"}},
		{name: "null name", answer: `{"name":null}`, want: Decision{NoMatch: true}},
		{name: "empty name", answer: `{"name":""}`, want: Decision{NoMatch: true}},
		{name: "free text", answer: "I think beta fits best", wantErr: ErrDanglingRoute},
		{name: "bare name", answer: "beta", wantErr: ErrDanglingRoute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := &stubModel{answer: tt.answer}
			classifier := NewModelClassifier(model, zap.NewNop())

			got, err := classifier.Route(context.Background(), "translate this", cards)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, model.prompt, "translate this")
			assert.Contains(t, model.prompt, `"alpha"`, "candidate cards belong in the prompt")
		})
	}
}

func TestModelClassifier_ModelError(t *testing.T) {
	modelErr := errors.New("rate limited")
	classifier := NewModelClassifier(&stubModel{err: modelErr}, zap.NewNop())

	_, err := classifier.Route(context.Background(), "x", nil)
	assert.ErrorIs(t, err, modelErr)
}
