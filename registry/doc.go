// Package registry implements a liveness-tracked directory of agent
// descriptors and tool-server descriptors for multi-agent deployments.
//
// Agents publish an opaque descriptor card together with an expiry
// timestamp and keep it alive with periodic heartbeats; readers treat a
// record whose expiry has passed as absent (lazy expiry, no eager
// eviction). Tool servers are registered administratively and carry a
// per-server set of agent names authorized to use them.
//
// Storage is pluggable behind the Store interface. Two backends are
// provided: MemoryStore for single-process deployments and tests, and
// RedisStore for shared deployments. Directory logic never branches on
// which backend is active.
//
// Core types:
//
//   - Store            — persistence contract (single-key atomic)
//   - MemoryStore      — map-backed Store
//   - RedisStore       — go-redis backed Store
//   - AgentDirectory   — register / heartbeat / get / list for agents
//   - ToolDirectory    — tool-server records plus access grants
//   - Heartbeater      — background loop republishing an agent's expiry
package registry
