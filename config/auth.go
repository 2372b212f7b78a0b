package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMissingCredential indicates no API key was resolvable for a
// configured model. It aborts construction of the agent, never a
// request.
var ErrMissingCredential = errors.New("config: missing credential")

// Environment variables carrying auth headers as JSON objects.
const (
	registryAuthHeadersEnv = "REGISTRY_AUTH_HEADERS"
	mcpAuthHeaderEnv       = "MCP_AUTH_HEADER"
)

// RegistryAuthHeaders returns the headers to attach to every outbound
// registry call, read from REGISTRY_AUTH_HEADERS as a JSON object.
// Unset or malformed values yield an empty map.
func RegistryAuthHeaders() map[string]string {
	return headersFromEnv(registryAuthHeadersEnv)
}

// MCPAuthHeaders returns the headers for calls to the named tool
// server. A per-tool MCP_AUTH_HEADER_<TOOLNAME> variable (uppercased,
// dashes mapped to underscores) takes precedence over the MCP_AUTH_HEADER
// base value.
func MCPAuthHeaders(toolName string) map[string]string {
	perTool := mcpAuthHeaderEnv + "_" + strings.ToUpper(strings.ReplaceAll(toolName, "-", "_"))
	if os.Getenv(perTool) != "" {
		return headersFromEnv(perTool)
	}
	return headersFromEnv(mcpAuthHeaderEnv)
}

// ResolveAPIKey reads the API key from the named environment variable.
func ResolveAPIKey(envName string) (string, error) {
	if envName == "" {
		return "", fmt.Errorf("%w: no api_key_env configured", ErrMissingCredential)
	}
	key := os.Getenv(envName)
	if key == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrMissingCredential, envName)
	}
	return key, nil
}

func headersFromEnv(name string) map[string]string {
	headers := map[string]string{}
	raw := os.Getenv(name)
	if raw == "" {
		return headers
	}
	if err := json.Unmarshal([]byte(raw), &headers); err != nil {
		return map[string]string{}
	}
	return headers
}
