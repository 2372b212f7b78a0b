package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAuthHeaders(t *testing.T) {
	t.Run("unset", func(t *testing.T) {
		t.Setenv("REGISTRY_AUTH_HEADERS", "")
		assert.Empty(t, RegistryAuthHeaders())
	})

	t.Run("json object", func(t *testing.T) {
		t.Setenv("REGISTRY_AUTH_HEADERS", `{"x-api-key":"secret","x-tenant":"acme"}`)
		assert.Equal(t, map[string]string{
			"x-api-key": "secret",
			"x-tenant":  "acme",
		}, RegistryAuthHeaders())
	})

	t.Run("malformed json yields empty map", func(t *testing.T) {
		t.Setenv("REGISTRY_AUTH_HEADERS", `{"x-api-key":`)
		assert.Empty(t, RegistryAuthHeaders())
	})
}

func TestMCPAuthHeaders(t *testing.T) {
	t.Run("base value", func(t *testing.T) {
		t.Setenv("MCP_AUTH_HEADER", `{"authorization":"Bearer base"}`)
		assert.Equal(t, map[string]string{"authorization": "Bearer base"}, MCPAuthHeaders("search"))
	})

	t.Run("per-tool override", func(t *testing.T) {
		t.Setenv("MCP_AUTH_HEADER", `{"authorization":"Bearer base"}`)
		t.Setenv("MCP_AUTH_HEADER_WEB_SEARCH", `{"authorization":"Bearer tool"}`)
		assert.Equal(t, map[string]string{"authorization": "Bearer tool"}, MCPAuthHeaders("web-search"))
	})

	t.Run("nothing set", func(t *testing.T) {
		t.Setenv("MCP_AUTH_HEADER", "")
		assert.Empty(t, MCPAuthHeaders("search"))
	})
}

func TestResolveAPIKey(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		t.Setenv("TEST_MODEL_KEY", "sk-test")
		key, err := ResolveAPIKey("TEST_MODEL_KEY")
		require.NoError(t, err)
		assert.Equal(t, "sk-test", key)
	})

	t.Run("unset variable", func(t *testing.T) {
		t.Setenv("TEST_MODEL_KEY", "")
		_, err := ResolveAPIKey("TEST_MODEL_KEY")
		assert.ErrorIs(t, err, ErrMissingCredential)
	})

	t.Run("no variable configured", func(t *testing.T) {
		_, err := ResolveAPIKey("")
		assert.ErrorIs(t, err, ErrMissingCredential)
	})
}
