package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// AgentDirectory provides the agent-facing operations on top of a Store:
// registration, heartbeat refresh, lookup and listing. It owns the lazy
// expiry rule — records whose expiry has passed are treated as absent at
// read time without being deleted from storage.
type AgentDirectory struct {
	store  Store
	logger *zap.Logger

	// now is the time source used for expiry comparisons.
	now func() time.Time
}

// NewAgentDirectory creates an AgentDirectory over the given store.
func NewAgentDirectory(store Store, logger *zap.Logger) *AgentDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentDirectory{
		store:  store,
		logger: logger.With(zap.String("component", "agent_directory")),
		now:    time.Now,
	}
}

// Register upserts an agent record. Card and expiry are written together
// and are immediately visible to subsequent Get and List calls.
func (d *AgentDirectory) Register(ctx context.Context, name string, card json.RawMessage, expireAt time.Time) error {
	if name == "" {
		return ErrMissingName
	}
	if err := d.store.PutAgent(ctx, AgentRecord{Name: name, Card: card, ExpireAt: expireAt}); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	d.logger.Debug("agent registered",
		zap.String("agent", name),
		zap.Time("expire_at", expireAt),
	)
	return nil
}

// Heartbeat advances the expiry of an existing registration. It never
// creates a record: a heartbeat for an unknown name fails with
// ErrNotRegistered and the caller must Register first.
func (d *AgentDirectory) Heartbeat(ctx context.Context, name string, expireAt time.Time) error {
	found, err := d.store.UpdateAgentExpiry(ctx, name, expireAt)
	if err != nil {
		return fmt.Errorf("heartbeat %s: %w", name, err)
	}
	if !found {
		return fmt.Errorf("heartbeat %s: %w", name, ErrNotRegistered)
	}
	return nil
}

// Get returns the descriptor card for an agent. Absence covers both a
// name that was never registered and a record whose expiry has passed.
func (d *AgentDirectory) Get(ctx context.Context, name string) (json.RawMessage, bool, error) {
	rec, ok, err := d.store.GetAgent(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("get agent %s: %w", name, err)
	}
	if !ok || rec.Expired(d.now()) {
		return nil, false, nil
	}
	return rec.Card, true, nil
}

// List returns the descriptor cards of all live agents. Expired records
// are filtered out; ordering is unspecified.
func (d *AgentDirectory) List(ctx context.Context) ([]json.RawMessage, error) {
	recs, err := d.store.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	now := d.now()
	out := make([]json.RawMessage, 0, len(recs))
	for _, rec := range recs {
		if rec.Expired(now) {
			continue
		}
		out = append(out, rec.Card)
	}
	return out, nil
}
