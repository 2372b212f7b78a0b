package registry

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a Store backed by in-process maps. It is the default
// backend for single-process deployments and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	agents  map[string]AgentRecord
	servers map[string]ToolServer
	allowed map[string]map[string]struct{}
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:  make(map[string]AgentRecord),
		servers: make(map[string]ToolServer),
		allowed: make(map[string]map[string]struct{}),
	}
}

// cloneRecord detaches the card bytes so neither the caller's slice nor
// the stored one can be mutated through the other.
func cloneRecord(rec AgentRecord) AgentRecord {
	if rec.Card != nil {
		rec.Card = append(json.RawMessage(nil), rec.Card...)
	}
	return rec
}

func (s *MemoryStore) PutAgent(_ context.Context, rec AgentRecord) error {
	if rec.Name == "" {
		return ErrMissingName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[rec.Name] = cloneRecord(rec)
	return nil
}

func (s *MemoryStore) GetAgent(_ context.Context, name string) (AgentRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.agents[name]
	if !ok {
		return AgentRecord{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

func (s *MemoryStore) ListAgents(_ context.Context) ([]AgentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AgentRecord, 0, len(s.agents))
	for _, rec := range s.agents {
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

func (s *MemoryStore) UpdateAgentExpiry(_ context.Context, name string, expireAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.agents[name]
	if !ok {
		return false, nil
	}
	rec.ExpireAt = expireAt
	s.agents[name] = rec
	return true, nil
}

func (s *MemoryStore) PutToolServer(_ context.Context, srv ToolServer) error {
	if srv.Name == "" {
		return ErrMissingName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.servers[srv.Name] = srv
	if _, ok := s.allowed[srv.Name]; !ok {
		s.allowed[srv.Name] = make(map[string]struct{})
	}
	return nil
}

func (s *MemoryStore) GetToolServer(_ context.Context, name string) (ToolServer, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	srv, ok := s.servers[name]
	return srv, ok, nil
}

func (s *MemoryStore) ListToolServers(_ context.Context) ([]ToolServer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ToolServer, 0, len(s.servers))
	for _, srv := range s.servers {
		out = append(out, srv)
	}
	return out, nil
}

func (s *MemoryStore) AddAllowedAgent(_ context.Context, serverName, agentName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[serverName]; !ok {
		return false, nil
	}
	set, ok := s.allowed[serverName]
	if !ok {
		set = make(map[string]struct{})
		s.allowed[serverName] = set
	}
	set[agentName] = struct{}{}
	return true, nil
}

func (s *MemoryStore) RemoveAllowedAgent(_ context.Context, serverName, agentName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[serverName]; !ok {
		return false, nil
	}
	delete(s.allowed[serverName], agentName)
	return true, nil
}

func (s *MemoryStore) AllowedAgents(_ context.Context, serverName string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.allowed[serverName]
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) ToolServersForAgent(_ context.Context, agentName string) ([]ToolServer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ToolServer, 0)
	for serverName, set := range s.allowed {
		if _, ok := set[agentName]; !ok {
			continue
		}
		if srv, ok := s.servers[serverName]; ok {
			out = append(out, srv)
		}
	}
	return out, nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
