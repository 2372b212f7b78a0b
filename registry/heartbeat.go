package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Registrar is the slice of the registry a heartbeat loop needs. It is
// satisfied by *AgentDirectory for in-process registries and by the HTTP
// lookup client for remote ones.
type Registrar interface {
	Register(ctx context.Context, name string, card json.RawMessage, expireAt time.Time) error
	Heartbeat(ctx context.Context, name string, expireAt time.Time) error
}

// Heartbeater keeps one agent's registration alive. It registers the
// card once on start, then republishes a fresh expiry on a fixed cadence
// until the context is cancelled.
//
// A failed heartbeat is logged and retried on the next tick; the loop
// itself never terminates on store or network errors. Two loops racing
// on the same agent name are resolved by the store's last-write-wins
// semantics; no loop owns the key exclusively.
type Heartbeater struct {
	// Name is the agent name to keep registered.
	Name string
	// Card is the descriptor document to publish.
	Card json.RawMessage
	// Interval is the cadence between heartbeats.
	Interval time.Duration
	// ExpireAt computes the next expiry timestamp. Typically
	// func() time.Time { return time.Now().Add(ttl) }.
	ExpireAt func() time.Time
	// Registry receives the register and heartbeat calls.
	Registry Registrar
	// Logger is the logger instance. Defaults to a nop logger.
	Logger *zap.Logger
}

// Run performs the initial registration and then loops until ctx is
// cancelled. The initial registration error is returned to the caller;
// everything after that is contained. Cancellation is cooperative and
// observed between ticks, never mid-write.
func (h *Heartbeater) Run(ctx context.Context) error {
	logger := h.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "heartbeater"), zap.String("agent", h.Name))

	if h.Name == "" {
		return ErrMissingName
	}
	if h.Registry == nil {
		return fmt.Errorf("heartbeater %s: no registry configured", h.Name)
	}
	if h.Interval <= 0 {
		return fmt.Errorf("heartbeater %s: interval must be positive", h.Name)
	}
	if h.ExpireAt == nil {
		return fmt.Errorf("heartbeater %s: no expiry function configured", h.Name)
	}

	if err := h.Registry.Register(ctx, h.Name, h.Card, h.ExpireAt()); err != nil {
		return fmt.Errorf("initial registration: %w", err)
	}
	logger.Info("heartbeat loop started", zap.Duration("interval", h.Interval))

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("heartbeat loop stopped")
			return nil
		case <-ticker.C:
			if err := h.Registry.Heartbeat(ctx, h.Name, h.ExpireAt()); err != nil {
				logger.Warn("failed to send heartbeat", zap.Error(err))
			}
		}
	}
}
