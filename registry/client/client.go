// Package client provides HTTP lookup clients for a remote registry.
//
// AgentLookup covers the agent-card surface and satisfies both
// registry.Registrar (so a Heartbeater can keep a remote registration
// alive) and the routing engine's AgentSource. ToolLookup answers which
// tool servers an agent is authorized to use.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentrelay/registry"
)

// Config holds configuration for the lookup clients.
type Config struct {
	// BaseURL is the registry base URL, e.g. "http://registry:8080".
	BaseURL string
	// Headers are added to every request, typically auth headers.
	Headers map[string]string
	// Timeout is the per-request timeout. Defaults to 30 seconds.
	Timeout time.Duration
	// HTTPClient overrides the transport when set.
	HTTPClient *http.Client
	// Logger is the logger instance. Defaults to a nop logger.
	Logger *zap.Logger
}

func (c *Config) client() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (c *Config) logger(component string) *zap.Logger {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(zap.String("component", component))
}

// AgentLookup is the HTTP client for the agent-card surface.
type AgentLookup struct {
	baseURL string
	headers map[string]string
	client  *http.Client
	logger  *zap.Logger
}

// NewAgentLookup creates an AgentLookup.
func NewAgentLookup(cfg *Config) *AgentLookup {
	return &AgentLookup{
		baseURL: cfg.BaseURL,
		headers: cfg.Headers,
		client:  cfg.client(),
		logger:  cfg.logger("agent_lookup"),
	}
}

// Register publishes an agent card with the given expiry.
func (l *AgentLookup) Register(ctx context.Context, name string, card json.RawMessage, expireAt time.Time) error {
	endpoint := l.baseURL + "/agent-card/" + url.PathEscape(name) +
		"?expire_at=" + strconv.FormatInt(expireAt.Unix(), 10)
	return l.send(ctx, http.MethodPut, endpoint, card, nil)
}

// Heartbeat advances the expiry of an existing registration.
func (l *AgentLookup) Heartbeat(ctx context.Context, name string, expireAt time.Time) error {
	endpoint := l.baseURL + "/agent-card/" + url.PathEscape(name) +
		"/heartbeat?expire_at=" + strconv.FormatInt(expireAt.Unix(), 10)
	err := l.send(ctx, http.MethodPatch, endpoint, nil, nil)
	if isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("heartbeat %s: %w", name, registry.ErrNotRegistered)
	}
	return err
}

// Get fetches one agent card, reporting absence for 404 responses.
func (l *AgentLookup) Get(ctx context.Context, name string) (json.RawMessage, bool, error) {
	var card json.RawMessage
	err := l.send(ctx, http.MethodGet, l.baseURL+"/agent-card/"+url.PathEscape(name), nil, &card)
	if isStatus(err, http.StatusNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return card, true, nil
}

// List fetches all live agent cards.
func (l *AgentLookup) List(ctx context.Context) ([]json.RawMessage, error) {
	var cards []json.RawMessage
	if err := l.send(ctx, http.MethodGet, l.baseURL+"/agent-cards", nil, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (l *AgentLookup) send(ctx context.Context, method, endpoint string, body []byte, out interface{}) error {
	return send(ctx, l.client, l.headers, method, endpoint, body, out)
}

// ToolLookup is the HTTP client for the tool-server surface.
type ToolLookup struct {
	baseURL string
	headers map[string]string
	client  *http.Client
	logger  *zap.Logger
}

// NewToolLookup creates a ToolLookup.
func NewToolLookup(cfg *Config) *ToolLookup {
	return &ToolLookup{
		baseURL: cfg.BaseURL,
		headers: cfg.Headers,
		client:  cfg.client(),
		logger:  cfg.logger("tool_lookup"),
	}
}

// ServersFor fetches the tool servers the agent is authorized to use.
func (l *ToolLookup) ServersFor(ctx context.Context, agentName string) ([]registry.ToolServer, error) {
	var servers []registry.ToolServer
	endpoint := l.baseURL + "/mcp/agent/" + url.PathEscape(agentName) + "/servers"
	if err := send(ctx, l.client, l.headers, http.MethodGet, endpoint, nil, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// Get fetches one tool server, reporting absence for 404 responses.
func (l *ToolLookup) Get(ctx context.Context, name string) (registry.ToolServer, bool, error) {
	var srv registry.ToolServer
	endpoint := l.baseURL + "/mcp/server/" + url.PathEscape(name)
	err := send(ctx, l.client, l.headers, http.MethodGet, endpoint, nil, &srv)
	if isStatus(err, http.StatusNotFound) {
		return registry.ToolServer{}, false, nil
	}
	if err != nil {
		return registry.ToolServer{}, false, err
	}
	return srv, true, nil
}

// List fetches all registered tool servers.
func (l *ToolLookup) List(ctx context.Context) ([]registry.ToolServer, error) {
	var servers []registry.ToolServer
	if err := send(ctx, l.client, l.headers, http.MethodGet, l.baseURL+"/mcp/servers", nil, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// statusError reports a non-2xx registry response.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("registry responded %d: %s", e.status, e.body)
}

func isStatus(err error, status int) bool {
	se, ok := err.(*statusError)
	return ok && se.status == status
}

func send(ctx context.Context, client *http.Client, headers map[string]string, method, endpoint string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", registry.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{status: resp.StatusCode, body: string(data)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Ensure AgentLookup satisfies the heartbeat registrar contract.
var _ registry.Registrar = (*AgentLookup)(nil)
