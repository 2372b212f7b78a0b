package registry

import (
	"encoding/json"
	"time"
)

// AgentRecord is a registered agent entry. The card is the agent's
// self-description document; the registry stores and returns it verbatim
// and never interprets its contents.
type AgentRecord struct {
	// Name is the unique identifier of the agent within the registry.
	Name string `json:"name"`
	// Card is the opaque descriptor document published by the agent.
	Card json.RawMessage `json:"card"`
	// ExpireAt is the moment after which the record is treated as absent.
	ExpireAt time.Time `json:"expire_at"`
}

// Expired reports whether the record is logically gone at the given time.
func (r AgentRecord) Expired(now time.Time) bool {
	return r.ExpireAt.Before(now)
}

// ToolServer describes an external capability endpoint agents may be
// authorized to call.
type ToolServer struct {
	// Name is the unique identifier of the tool server.
	Name string `json:"name"`
	// URL is the endpoint where the tool server can be reached.
	URL string `json:"url"`
	// Protocol is the transport the tool server speaks, e.g. "http".
	Protocol string `json:"protocol"`
	// Description provides a human-readable description of the tool server.
	Description string `json:"description"`
}
