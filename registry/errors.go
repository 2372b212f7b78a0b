package registry

import "errors"

// Directory errors.
var (
	// ErrNotRegistered indicates a heartbeat arrived for an agent that was
	// never registered. Heartbeat never creates a record.
	ErrNotRegistered = errors.New("registry: agent not registered")
	// ErrToolServerNotFound indicates a grant or revoke referenced an
	// unknown tool server.
	ErrToolServerNotFound = errors.New("registry: tool server not found")
	// ErrMissingName indicates a record was submitted without a name.
	ErrMissingName = errors.New("registry: missing name")
)

// Store errors.
var (
	// ErrStoreUnavailable indicates a transient backend I/O failure.
	// Synchronous callers see it immediately; the heartbeat loop retries
	// on the next tick.
	ErrStoreUnavailable = errors.New("registry: store unavailable")
)
