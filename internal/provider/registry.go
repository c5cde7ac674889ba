// internal/provider/registry.go
package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/meditrek/clinpilot/api/schemas"
	"github.com/meditrek/clinpilot/internal/config"
)

// BuildRegistry constructs one adapter per configured provider, keyed by the
// provider name. Disabled providers are still built so health checks can see
// them; the router skips them when walking a chain.
func BuildRegistry(cfgs []config.ProviderConfig, logger *zap.Logger) (map[string]schemas.ProviderAdapter, error) {
	registry := make(map[string]schemas.ProviderAdapter, len(cfgs))
	for _, cfg := range cfgs {
		adapter, err := newAdapter(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build provider %q: %w", cfg.Name, err)
		}
		registry[cfg.Name] = adapter
	}
	return registry, nil
}

func newAdapter(cfg config.ProviderConfig, logger *zap.Logger) (schemas.ProviderAdapter, error) {
	switch cfg.Kind {
	case config.KindOllama:
		return NewOllamaAdapter(cfg, logger)
	case config.KindAnthropic:
		return NewAnthropicAdapter(cfg, logger)
	case config.KindOpenAI:
		return NewOpenAIAdapter(cfg, logger)
	case config.KindGoogle:
		return NewGoogleAdapter(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported provider kind: %q", cfg.Kind)
	}
}
