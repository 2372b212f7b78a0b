package registry

import (
	"context"
	"time"
)

// Store defines the persistence contract for registry data.
// Implementations must make each operation atomic at the key level; no
// cross-key transactions are required. Reads never filter by expiry —
// expiry interpretation belongs to AgentDirectory, which keeps the store
// format-agnostic.
//
// A missing key is reported through the boolean return, never as an
// error. Backend I/O failures wrap ErrStoreUnavailable.
type Store interface {
	// PutAgent upserts an agent record, replacing card and expiry together.
	PutAgent(ctx context.Context, rec AgentRecord) error
	// GetAgent loads an agent record by name.
	GetAgent(ctx context.Context, name string) (AgentRecord, bool, error)
	// ListAgents returns all stored agent records, expired ones included.
	ListAgents(ctx context.Context) ([]AgentRecord, error)
	// UpdateAgentExpiry rewrites only the expiry field of an existing
	// record. It reports false when no record exists under the name.
	UpdateAgentExpiry(ctx context.Context, name string, expireAt time.Time) (bool, error)

	// PutToolServer upserts a tool-server record. The server's access
	// grants are left untouched.
	PutToolServer(ctx context.Context, srv ToolServer) error
	// GetToolServer loads a tool-server record by name.
	GetToolServer(ctx context.Context, name string) (ToolServer, bool, error)
	// ListToolServers returns all stored tool-server records.
	ListToolServers(ctx context.Context) ([]ToolServer, error)

	// AddAllowedAgent adds an agent name to a server's access-grant set.
	// Adding a present name is a no-op. It reports false when the server
	// does not exist.
	AddAllowedAgent(ctx context.Context, serverName, agentName string) (bool, error)
	// RemoveAllowedAgent removes an agent name from a server's
	// access-grant set. Removing an absent name is a no-op. It reports
	// false when the server does not exist.
	RemoveAllowedAgent(ctx context.Context, serverName, agentName string) (bool, error)
	// AllowedAgents returns the access-grant set for a server, sorted.
	// Unknown servers yield an empty set.
	AllowedAgents(ctx context.Context, serverName string) ([]string, error)
	// ToolServersForAgent returns every server whose access-grant set
	// contains the agent. Implemented as a full-scan containment filter;
	// acceptable at expected registry scale.
	ToolServersForAgent(ctx context.Context, agentName string) ([]ToolServer, error)
}
