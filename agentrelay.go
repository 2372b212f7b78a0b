// Package agentrelay provides a top-level convenience entry point for the
// agent discovery registry and its clients.
//
// Usage:
//
//	import "github.com/BaSui01/agentrelay"
//
//	reg := agentrelay.NewRegistry(logger)          // in-process registry
//	agents, tools := agentrelay.NewClients(cfg)    // clients for a remote one
//
// This is a thin wrapper around the registry and registry/client
// packages; use it when you prefer the shorter import path.
package agentrelay

import (
	"go.uber.org/zap"

	"github.com/BaSui01/agentrelay/registry"
	"github.com/BaSui01/agentrelay/registry/client"
	"github.com/BaSui01/agentrelay/registry/server"
)

// Version is the library version.
const Version = "0.1.0"

// Registry bundles the two directories of one registry instance.
type Registry struct {
	Agents *registry.AgentDirectory
	Tools  *registry.ToolDirectory
}

// NewRegistry creates an in-memory registry, the default for tests and
// single-process setups.
func NewRegistry(logger *zap.Logger) *Registry {
	store := registry.NewMemoryStore()
	return &Registry{
		Agents: registry.NewAgentDirectory(store, logger),
		Tools:  registry.NewToolDirectory(store, logger),
	}
}

// NewRedisRegistry creates a registry backed by Redis.
func NewRedisRegistry(cfg registry.RedisConfig, logger *zap.Logger) (*Registry, error) {
	store, err := registry.NewRedisStore(cfg)
	if err != nil {
		return nil, err
	}
	return &Registry{
		Agents: registry.NewAgentDirectory(store, logger),
		Tools:  registry.NewToolDirectory(store, logger),
	}, nil
}

// Handler returns the registry's HTTP surface.
func (r *Registry) Handler(cfg *server.Config) *server.Server {
	return server.New(r.Agents, r.Tools, cfg)
}

// NewClients creates the lookup clients for a remote registry.
func NewClients(cfg *client.Config) (*client.AgentLookup, *client.ToolLookup) {
	return client.NewAgentLookup(cfg), client.NewToolLookup(cfg)
}
