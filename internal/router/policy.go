// internal/router/policy.go
package router

import (
	"fmt"

	"github.com/meditrek/clinpilot/api/schemas"
	"github.com/meditrek/clinpilot/internal/config"
)

// RoutingPolicy is the static tier-to-chain mapping plus the per-provider
// parameters the router needs while walking a chain. Built once at startup,
// read-only afterward; safe for unsynchronized concurrent reads.
type RoutingPolicy struct {
	chains    map[schemas.ComplexityTier][]string
	providers map[string]config.ProviderConfig
}

// NewRoutingPolicy validates and freezes the routing setup. Every tier must
// have a non-empty chain and every chain entry must reference a declared
// provider; violations fail fast with a ConfigurationError.
func NewRoutingPolicy(routing config.RoutingConfig, providers []config.ProviderConfig) (*RoutingPolicy, error) {
	byName := make(map[string]config.ProviderConfig, len(providers))
	for _, p := range providers {
		byName[p.Name] = p
	}

	chains := map[schemas.ComplexityTier][]string{
		schemas.TierSimple:   routing.Simple,
		schemas.TierModerate: routing.Moderate,
		schemas.TierComplex:  routing.Complex,
	}
	for tier, chain := range chains {
		if len(chain) == 0 {
			return nil, &config.ConfigurationError{
				Field:  "routing." + string(tier),
				Reason: "chain must not be empty",
			}
		}
		for _, name := range chain {
			if _, ok := byName[name]; !ok {
				return nil, &config.ConfigurationError{
					Field:  "routing." + string(tier),
					Reason: fmt.Sprintf("chain references unknown provider %q", name),
				}
			}
		}
	}

	return &RoutingPolicy{chains: chains, providers: byName}, nil
}

// Chain returns the ordered provider configs for a tier, including disabled
// entries. The router filters disabled providers at call time so the audit
// trail can show the full configured chain.
func (p *RoutingPolicy) Chain(tier schemas.ComplexityTier) []config.ProviderConfig {
	names := p.chains[tier]
	out := make([]config.ProviderConfig, 0, len(names))
	for _, name := range names {
		out = append(out, p.providers[name])
	}
	return out
}

// Provider returns the config for a provider name.
func (p *RoutingPolicy) Provider(name string) (config.ProviderConfig, bool) {
	cfg, ok := p.providers[name]
	return cfg, ok
}

// ProviderNames returns all declared provider names.
func (p *RoutingPolicy) ProviderNames() []string {
	names := make([]string, 0, len(p.providers))
	for name := range p.providers {
		names = append(names, name)
	}
	return names
}
