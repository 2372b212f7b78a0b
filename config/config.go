// Package config loads service configuration from a YAML file with
// environment variable overrides, and exposes the credential and
// auth-header conventions used for registry and tool-server calls.
//
// Precedence: defaults, then YAML file, then environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/agentrelay/registry"
)

// Registry backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the complete service configuration.
type Config struct {
	// Server configures the HTTP listeners.
	Server ServerConfig `yaml:"server"`
	// Registry selects the storage backend and, for agent processes,
	// the remote registry endpoint.
	Registry RegistryConfig `yaml:"registry"`
	// Redis configures the Redis backend when selected.
	Redis registry.RedisConfig `yaml:"redis"`
	// Heartbeat configures the liveness loop of an agent process.
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	// Agent describes the local agent.
	Agent AgentConfig `yaml:"agent"`
	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	// HTTPPort is the API port.
	HTTPPort int `yaml:"http_port"`
	// MetricsPort is the Prometheus metrics port.
	MetricsPort int `yaml:"metrics_port"`
	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout is the HTTP write timeout.
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RegistryConfig selects the storage backend.
type RegistryConfig struct {
	// Backend is "memory" or "redis".
	Backend string `yaml:"backend"`
	// URL is the remote registry base URL used by agent processes.
	URL string `yaml:"url"`
}

// HeartbeatConfig configures the agent liveness loop.
type HeartbeatConfig struct {
	// Interval is the cadence between heartbeats.
	Interval time.Duration `yaml:"interval"`
	// TTL is how far ahead each heartbeat pushes the expiry.
	TTL time.Duration `yaml:"ttl"`
}

// AgentConfig describes the local agent.
type AgentConfig struct {
	// Name is the agent's registry name.
	Name string `yaml:"name"`
	// Description is a human-readable description.
	Description string `yaml:"description"`
	// CardPath points to the agent card JSON document.
	CardPath string `yaml:"card_path"`
	// LLM configures the model behind the agent and the router.
	LLM LLMConfig `yaml:"llm"`
}

// LLMConfig configures the model boundary.
type LLMConfig struct {
	// Model is the model name.
	Model string `yaml:"model"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			MetricsPort:     9090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Registry: RegistryConfig{
			Backend: BackendMemory,
		},
		Redis: registry.RedisConfig{
			Addr: "localhost:6379",
		},
		Heartbeat: HeartbeatConfig{
			Interval: 30 * time.Second,
			TTL:      90 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file
// at path, and environment overrides, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides selected fields from AGENTRELAY_* variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("AGENTRELAY_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.HTTPPort = port
		}
	}
	if v := os.Getenv("AGENTRELAY_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.MetricsPort = port
		}
	}
	if v := os.Getenv("AGENTRELAY_REGISTRY_BACKEND"); v != "" {
		c.Registry.Backend = v
	}
	if v := os.Getenv("AGENTRELAY_REGISTRY_URL"); v != "" {
		c.Registry.URL = v
	}
	if v := os.Getenv("AGENTRELAY_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("AGENTRELAY_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("AGENTRELAY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Registry.Backend != BackendMemory && c.Registry.Backend != BackendRedis {
		return fmt.Errorf("unknown registry backend %q", c.Registry.Backend)
	}
	if c.Heartbeat.Interval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive")
	}
	if c.Heartbeat.TTL <= c.Heartbeat.Interval {
		return fmt.Errorf("heartbeat ttl must exceed the interval")
	}
	return nil
}
