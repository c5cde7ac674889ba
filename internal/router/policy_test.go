// internal/router/policy_test.go
package router

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditrek/clinpilot/api/schemas"
	"github.com/meditrek/clinpilot/internal/config"
)

func testProviders() []config.ProviderConfig {
	return []config.ProviderConfig{
		{Name: "ollama", Kind: config.KindOllama, Model: "llama3", Timeout: time.Second, Enabled: true},
		{Name: "claude", Kind: config.KindAnthropic, Model: "m", APIKey: "k", Timeout: time.Second, Enabled: true},
		{Name: "gemini", Kind: config.KindGoogle, Model: "m", APIKey: "k", Timeout: time.Second, Enabled: false},
	}
}

func testRouting() config.RoutingConfig {
	return config.RoutingConfig{
		Simple:   []string{"ollama"},
		Moderate: []string{"ollama", "claude"},
		Complex:  []string{"claude", "gemini", "ollama"},
	}
}

func TestNewRoutingPolicy(t *testing.T) {
	policy, err := NewRoutingPolicy(testRouting(), testProviders())
	require.NoError(t, err)

	chain := policy.Chain(schemas.TierComplex)
	require.Len(t, chain, 3)
	// Chain preserves configured order and includes disabled entries.
	assert.Equal(t, "claude", chain[0].Name)
	assert.Equal(t, "gemini", chain[1].Name)
	assert.False(t, chain[1].Enabled)
	assert.Equal(t, "ollama", chain[2].Name)
}

func TestNewRoutingPolicyEmptyChain(t *testing.T) {
	routing := testRouting()
	routing.Simple = nil

	_, err := NewRoutingPolicy(routing, testProviders())
	require.Error(t, err)

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "routing.simple", cfgErr.Field)
}

func TestNewRoutingPolicyUnknownProvider(t *testing.T) {
	routing := testRouting()
	routing.Moderate = []string{"ollama", "ghost"}

	_, err := NewRoutingPolicy(routing, testProviders())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "ghost"`)
}

func TestRoutingPolicyProviderLookup(t *testing.T) {
	policy, err := NewRoutingPolicy(testRouting(), testProviders())
	require.NoError(t, err)

	cfg, ok := policy.Provider("claude")
	require.True(t, ok)
	assert.Equal(t, config.KindAnthropic, cfg.Kind)

	_, ok = policy.Provider("ghost")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"ollama", "claude", "gemini"}, policy.ProviderNames())
}
