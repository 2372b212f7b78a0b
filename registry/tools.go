package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ToolDirectory provides the administrative operations on tool-server
// records and their per-server access grants. Grants are mutated only
// through Grant and Revoke, never inferred from agent activity.
type ToolDirectory struct {
	store  Store
	logger *zap.Logger
}

// NewToolDirectory creates a ToolDirectory over the given store.
func NewToolDirectory(store Store, logger *zap.Logger) *ToolDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolDirectory{
		store:  store,
		logger: logger.With(zap.String("component", "tool_directory")),
	}
}

// Put upserts a tool-server record. Existing access grants survive the
// overwrite.
func (d *ToolDirectory) Put(ctx context.Context, srv ToolServer) error {
	if srv.Name == "" {
		return ErrMissingName
	}
	if err := d.store.PutToolServer(ctx, srv); err != nil {
		return fmt.Errorf("put tool server %s: %w", srv.Name, err)
	}
	d.logger.Debug("tool server registered", zap.String("server", srv.Name), zap.String("url", srv.URL))
	return nil
}

// Get returns a tool-server record by name.
func (d *ToolDirectory) Get(ctx context.Context, name string) (ToolServer, bool, error) {
	srv, ok, err := d.store.GetToolServer(ctx, name)
	if err != nil {
		return ToolServer{}, false, fmt.Errorf("get tool server %s: %w", name, err)
	}
	return srv, ok, nil
}

// List returns all tool-server records.
func (d *ToolDirectory) List(ctx context.Context) ([]ToolServer, error) {
	servers, err := d.store.ListToolServers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tool servers: %w", err)
	}
	return servers, nil
}

// Grant authorizes an agent to use a tool server. Granting an already
// present name is a no-op; an unknown server fails with
// ErrToolServerNotFound.
func (d *ToolDirectory) Grant(ctx context.Context, serverName, agentName string) error {
	found, err := d.store.AddAllowedAgent(ctx, serverName, agentName)
	if err != nil {
		return fmt.Errorf("grant %s -> %s: %w", serverName, agentName, err)
	}
	if !found {
		return fmt.Errorf("grant %s: %w", serverName, ErrToolServerNotFound)
	}
	d.logger.Debug("access granted", zap.String("server", serverName), zap.String("agent", agentName))
	return nil
}

// Revoke withdraws an agent's authorization for a tool server. Revoking
// an absent grant is a no-op; an unknown server fails with
// ErrToolServerNotFound.
func (d *ToolDirectory) Revoke(ctx context.Context, serverName, agentName string) error {
	found, err := d.store.RemoveAllowedAgent(ctx, serverName, agentName)
	if err != nil {
		return fmt.Errorf("revoke %s -> %s: %w", serverName, agentName, err)
	}
	if !found {
		return fmt.Errorf("revoke %s: %w", serverName, ErrToolServerNotFound)
	}
	d.logger.Debug("access revoked", zap.String("server", serverName), zap.String("agent", agentName))
	return nil
}

// AllowedAgents returns the set of agent names authorized for a server,
// empty when none are granted.
func (d *ToolDirectory) AllowedAgents(ctx context.Context, serverName string) ([]string, error) {
	agents, err := d.store.AllowedAgents(ctx, serverName)
	if err != nil {
		return nil, fmt.Errorf("allowed agents for %s: %w", serverName, err)
	}
	return agents, nil
}

// ServersFor returns every tool server whose access-grant set contains
// the agent.
func (d *ToolDirectory) ServersFor(ctx context.Context, agentName string) ([]ToolServer, error) {
	servers, err := d.store.ToolServersForAgent(ctx, agentName)
	if err != nil {
		return nil, fmt.Errorf("servers for agent %s: %w", agentName, err)
	}
	return servers, nil
}
