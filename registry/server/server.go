// Package server exposes the registry over HTTP. The surface mirrors
// the registry wire contract: agent-card registration, heartbeat and
// lookup, tool-server administration and access grants, plus health and
// readiness of the backing store.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentrelay/internal/metrics"
	"github.com/BaSui01/agentrelay/registry"
)

// Config holds configuration for the registry HTTP server.
type Config struct {
	// Logger is the logger instance. Defaults to a nop logger.
	Logger *zap.Logger
	// Metrics collects request metrics when set.
	Metrics *metrics.Collector
}

// Server serves the registry HTTP API over an AgentDirectory and a
// ToolDirectory.
type Server struct {
	agents  *registry.AgentDirectory
	tools   *registry.ToolDirectory
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New creates a registry Server.
func New(agents *registry.AgentDirectory, tools *registry.ToolDirectory, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		agents:  agents,
		tools:   tools,
		logger:  logger.With(zap.String("component", "registry_server")),
		metrics: cfg.Metrics,
	}
}

// statusWriter captures the response status for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// ServeHTTP implements http.Handler, dispatching on method and path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

	route := s.route(sw, r)

	duration := time.Since(start)
	s.logger.Debug("request handled",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", sw.status),
		zap.Duration("duration", duration),
	)
	if s.metrics != nil {
		s.metrics.RecordHTTPRequest(r.Method, route, sw.status, duration)
	}
}

// route dispatches the request and returns the matched route template
// for metrics, keeping label cardinality bounded.
func (s *Server) route(w http.ResponseWriter, r *http.Request) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	method := r.Method

	switch {
	case len(parts) == 1 && parts[0] == "health" && method == http.MethodGet:
		s.handleHealth(w, r)
		return "/health"

	case len(parts) == 1 && parts[0] == "agent-cards" && method == http.MethodGet:
		s.handleListAgentCards(w, r)
		return "/agent-cards"

	case len(parts) == 2 && parts[0] == "agent-card" && method == http.MethodPut:
		s.handlePutAgentCard(w, r, parts[1])
		return "/agent-card/{name}"

	case len(parts) == 2 && parts[0] == "agent-card" && method == http.MethodGet:
		s.handleGetAgentCard(w, r, parts[1])
		return "/agent-card/{name}"

	case len(parts) == 3 && parts[0] == "agent-card" && parts[2] == "heartbeat" && method == http.MethodPatch:
		s.handleHeartbeat(w, r, parts[1])
		return "/agent-card/{name}/heartbeat"

	case len(parts) == 2 && parts[0] == "mcp" && parts[1] == "server" && method == http.MethodPut:
		s.handlePutToolServer(w, r)
		return "/mcp/server"

	case len(parts) == 3 && parts[0] == "mcp" && parts[1] == "server" && method == http.MethodGet:
		s.handleGetToolServer(w, r, parts[2])
		return "/mcp/server/{name}"

	case len(parts) == 2 && parts[0] == "mcp" && parts[1] == "servers" && method == http.MethodGet:
		s.handleListToolServers(w, r)
		return "/mcp/servers"

	// Literal "agent" segment wins over the server-name parameter, the
	// same precedence the wire contract defines.
	case len(parts) == 4 && parts[0] == "mcp" && parts[1] == "agent" && parts[3] == "servers" && method == http.MethodGet:
		s.handleServersForAgent(w, r, parts[2])
		return "/mcp/agent/{agent}/servers"

	case len(parts) == 4 && parts[0] == "mcp" && parts[2] == "agent" && method == http.MethodPut:
		s.handleGrant(w, r, parts[1], parts[3])
		return "/mcp/{name}/agent/{agent}"

	case len(parts) == 4 && parts[0] == "mcp" && parts[2] == "agent" && method == http.MethodDelete:
		s.handleRevoke(w, r, parts[1], parts[3])
		return "/mcp/{name}/agent/{agent}"

	case len(parts) == 3 && parts[0] == "mcp" && parts[2] == "agent" && method == http.MethodGet:
		s.handleAllowedAgents(w, r, parts[1])
		return "/mcp/{name}/agent"

	default:
		s.writeDetail(w, http.StatusNotFound, "endpoint not found")
		return "unmatched"
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handlePutAgentCard(w http.ResponseWriter, r *http.Request, name string) {
	expireAt, ok := s.expireAtParam(w, r)
	if !ok {
		return
	}
	card, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(card) {
		s.writeDetail(w, http.StatusBadRequest, "body must be a JSON agent card")
		return
	}
	if err := s.agents.Register(r.Context(), name, card, expireAt); err != nil {
		s.writeError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetAgentCard(w http.ResponseWriter, r *http.Request, name string) {
	card, ok, err := s.agents.Get(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		s.writeDetail(w, http.StatusNotFound, "Agent card not found")
		return
	}
	s.writeRaw(w, http.StatusOK, card)
}

func (s *Server) handleListAgentCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.agents.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request, name string) {
	expireAt, ok := s.expireAtParam(w, r)
	if !ok {
		return
	}
	err := s.agents.Heartbeat(r.Context(), name, expireAt)
	if s.metrics != nil {
		s.metrics.RecordHeartbeat(err == nil)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePutToolServer(w http.ResponseWriter, r *http.Request) {
	var srv registry.ToolServer
	if err := json.NewDecoder(r.Body).Decode(&srv); err != nil {
		s.writeDetail(w, http.StatusBadRequest, "body must be a JSON tool server")
		return
	}
	if err := s.tools.Put(r.Context(), srv); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetToolServer(w http.ResponseWriter, r *http.Request, name string) {
	srv, ok, err := s.tools.Get(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		s.writeDetail(w, http.StatusNotFound, "MCP Server not found")
		return
	}
	s.writeJSON(w, http.StatusOK, srv)
}

func (s *Server) handleListToolServers(w http.ResponseWriter, r *http.Request) {
	servers, err := s.tools.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, servers)
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request, serverName, agentName string) {
	if err := s.tools.Grant(r.Context(), serverName, agentName); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request, serverName, agentName string) {
	if err := s.tools.Revoke(r.Context(), serverName, agentName); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleAllowedAgents(w http.ResponseWriter, r *http.Request, serverName string) {
	agents, err := s.tools.AllowedAgents(r.Context(), serverName)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, agents)
}

func (s *Server) handleServersForAgent(w http.ResponseWriter, r *http.Request, agentName string) {
	servers, err := s.tools.ServersFor(r.Context(), agentName)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, servers)
}

// expireAtParam parses the expire_at query parameter (unix seconds).
func (s *Server) expireAtParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("expire_at")
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.writeDetail(w, http.StatusBadRequest, "expire_at must be a unix timestamp")
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}

// writeError maps directory errors to HTTP responses. Store internals
// never leak to the client beyond a generic failure indication.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNotRegistered):
		s.writeDetail(w, http.StatusNotFound, "Agent card not found")
	case errors.Is(err, registry.ErrToolServerNotFound):
		s.writeDetail(w, http.StatusNotFound, "MCP Server not found")
	case errors.Is(err, registry.ErrMissingName):
		s.writeDetail(w, http.StatusBadRequest, "name must not be empty")
	case errors.Is(err, registry.ErrStoreUnavailable):
		s.logger.Error("store unavailable", zap.Error(err))
		s.writeDetail(w, http.StatusServiceUnavailable, "registry storage unavailable")
	default:
		s.logger.Error("request failed", zap.Error(err))
		s.writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeDetail(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Error("failed to write response", zap.Error(err))
	}
}
