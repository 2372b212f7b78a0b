package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis hash fields. The layout is shared with other readers of the
// registry tables, keep it stable.
const (
	agentCardField   = "card"
	agentExpiryField = "expireAt"
	toolServerField  = "server"
	allowedAgentsKey = "allowed-agents"
)

// updateExpiryScript rewrites the expiry field only when the record
// exists, so a heartbeat can never create a registration.
var updateExpiryScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  redis.call('HSET', KEYS[1], 'expireAt', ARGV[1])
  return 1
end
return 0
`)

// grantScript adds an agent to a server's access-grant set only when the
// server record exists. SADD keeps the grant idempotent and atomic.
var grantScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
return redis.call('SADD', KEYS[2], ARGV[1])
`)

// revokeScript mirrors grantScript for removal.
var revokeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
return redis.call('SREM', KEYS[2], ARGV[1])
`)

// RedisConfig holds connection settings for RedisStore.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string `yaml:"addr"`
	// Password is the optional Redis password.
	Password string `yaml:"password"`
	// DB is the Redis database number.
	DB int `yaml:"db"`
	// PoolSize is the connection pool size.
	PoolSize int `yaml:"pool_size"`
	// KeyPrefix namespaces all registry keys. Defaults to "agentrelay:".
	KeyPrefix string `yaml:"key_prefix"`
}

// RedisStore is a Store backed by Redis. Agent records live in one hash
// per name (fields card/expireAt); tool servers in one hash per name
// (field server) with a sibling set holding the access grants. Set
// mutations go through SADD/SREM so concurrent grants never lose updates.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "agentrelay:"
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if the store is healthy.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) agentKey(name string) string {
	return s.keyPrefix + "agent:" + name
}

func (s *RedisStore) agentIndexKey() string {
	return s.keyPrefix + "agents"
}

func (s *RedisStore) serverKey(name string) string {
	return s.keyPrefix + "server:" + name
}

func (s *RedisStore) serverIndexKey() string {
	return s.keyPrefix + "servers"
}

func (s *RedisStore) allowedKey(name string) string {
	return s.serverKey(name) + ":" + allowedAgentsKey
}

func (s *RedisStore) PutAgent(ctx context.Context, rec AgentRecord) error {
	if rec.Name == "" {
		return ErrMissingName
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.agentKey(rec.Name), map[string]interface{}{
		agentCardField:   string(rec.Card),
		agentExpiryField: strconv.FormatInt(rec.ExpireAt.Unix(), 10),
	})
	pipe.SAdd(ctx, s.agentIndexKey(), rec.Name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: put agent: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) GetAgent(ctx context.Context, name string) (AgentRecord, bool, error) {
	fields, err := s.client.HGetAll(ctx, s.agentKey(name)).Result()
	if err != nil {
		return AgentRecord{}, false, fmt.Errorf("%w: get agent: %v", ErrStoreUnavailable, err)
	}
	if len(fields) == 0 {
		return AgentRecord{}, false, nil
	}
	return agentRecordFromHash(name, fields), true, nil
}

func (s *RedisStore) ListAgents(ctx context.Context) ([]AgentRecord, error) {
	names, err := s.client.SMembers(ctx, s.agentIndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list agents: %v", ErrStoreUnavailable, err)
	}
	out := make([]AgentRecord, 0, len(names))
	for _, name := range names {
		fields, err := s.client.HGetAll(ctx, s.agentKey(name)).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: list agents: %v", ErrStoreUnavailable, err)
		}
		if len(fields) == 0 {
			continue
		}
		out = append(out, agentRecordFromHash(name, fields))
	}
	return out, nil
}

func (s *RedisStore) UpdateAgentExpiry(ctx context.Context, name string, expireAt time.Time) (bool, error) {
	n, err := updateExpiryScript.Run(ctx, s.client,
		[]string{s.agentKey(name)},
		strconv.FormatInt(expireAt.Unix(), 10),
	).Int()
	if err != nil {
		return false, fmt.Errorf("%w: update expiry: %v", ErrStoreUnavailable, err)
	}
	return n == 1, nil
}

func (s *RedisStore) PutToolServer(ctx context.Context, srv ToolServer) error {
	if srv.Name == "" {
		return ErrMissingName
	}
	data, err := json.Marshal(srv)
	if err != nil {
		return fmt.Errorf("failed to marshal tool server: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.serverKey(srv.Name), toolServerField, string(data))
	pipe.SAdd(ctx, s.serverIndexKey(), srv.Name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: put tool server: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) GetToolServer(ctx context.Context, name string) (ToolServer, bool, error) {
	raw, err := s.client.HGet(ctx, s.serverKey(name), toolServerField).Result()
	if err == redis.Nil {
		return ToolServer{}, false, nil
	}
	if err != nil {
		return ToolServer{}, false, fmt.Errorf("%w: get tool server: %v", ErrStoreUnavailable, err)
	}
	var srv ToolServer
	if err := json.Unmarshal([]byte(raw), &srv); err != nil {
		return ToolServer{}, false, fmt.Errorf("failed to unmarshal tool server %s: %w", name, err)
	}
	return srv, true, nil
}

func (s *RedisStore) ListToolServers(ctx context.Context) ([]ToolServer, error) {
	names, err := s.client.SMembers(ctx, s.serverIndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list tool servers: %v", ErrStoreUnavailable, err)
	}
	out := make([]ToolServer, 0, len(names))
	for _, name := range names {
		srv, ok, err := s.GetToolServer(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, srv)
		}
	}
	return out, nil
}

func (s *RedisStore) AddAllowedAgent(ctx context.Context, serverName, agentName string) (bool, error) {
	n, err := grantScript.Run(ctx, s.client,
		[]string{s.serverKey(serverName), s.allowedKey(serverName)},
		agentName,
	).Int()
	if err != nil {
		return false, fmt.Errorf("%w: grant: %v", ErrStoreUnavailable, err)
	}
	return n >= 0, nil
}

func (s *RedisStore) RemoveAllowedAgent(ctx context.Context, serverName, agentName string) (bool, error) {
	n, err := revokeScript.Run(ctx, s.client,
		[]string{s.serverKey(serverName), s.allowedKey(serverName)},
		agentName,
	).Int()
	if err != nil {
		return false, fmt.Errorf("%w: revoke: %v", ErrStoreUnavailable, err)
	}
	return n >= 0, nil
}

func (s *RedisStore) AllowedAgents(ctx context.Context, serverName string) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.allowedKey(serverName)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: allowed agents: %v", ErrStoreUnavailable, err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *RedisStore) ToolServersForAgent(ctx context.Context, agentName string) ([]ToolServer, error) {
	names, err := s.client.SMembers(ctx, s.serverIndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: servers for agent: %v", ErrStoreUnavailable, err)
	}
	out := make([]ToolServer, 0)
	for _, name := range names {
		member, err := s.client.SIsMember(ctx, s.allowedKey(name), agentName).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: servers for agent: %v", ErrStoreUnavailable, err)
		}
		if !member {
			continue
		}
		srv, ok, err := s.GetToolServer(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, srv)
		}
	}
	return out, nil
}

func agentRecordFromHash(name string, fields map[string]string) AgentRecord {
	rec := AgentRecord{Name: name, Card: json.RawMessage(fields[agentCardField])}
	if sec, err := strconv.ParseInt(fields[agentExpiryField], 10, 64); err == nil {
		rec.ExpireAt = time.Unix(sec, 0)
	}
	return rec
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
