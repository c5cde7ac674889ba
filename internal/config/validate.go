// internal/config/validate.go
package config

import "fmt"

// ConfigurationError signals invalid or missing routing/provider setup. It is
// fatal at startup; nothing in the core attempts to repair a bad config.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Validate enforces the startup invariants: every provider entry is sane,
// every tier has a non-empty chain, and every chain entry references a
// declared provider.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return &ConfigurationError{Field: "providers", Reason: "at least one provider must be configured"}
	}

	names := make(map[string]bool, len(c.Providers))
	for i, p := range c.Providers {
		field := fmt.Sprintf("providers[%d]", i)
		if p.Name == "" {
			return &ConfigurationError{Field: field + ".name", Reason: "provider name is required"}
		}
		if names[p.Name] {
			return &ConfigurationError{Field: field + ".name", Reason: fmt.Sprintf("duplicate provider name %q", p.Name)}
		}
		names[p.Name] = true

		switch p.Kind {
		case KindOllama, KindAnthropic, KindOpenAI, KindGoogle:
		default:
			return &ConfigurationError{Field: field + ".kind", Reason: fmt.Sprintf("unknown provider kind %q", p.Kind)}
		}
		if p.MaxRetries < 0 {
			return &ConfigurationError{Field: field + ".max_retries", Reason: "must be >= 0"}
		}
		if p.Timeout <= 0 {
			return &ConfigurationError{Field: field + ".timeout", Reason: "must be > 0"}
		}
		if p.BaseBackoff < 0 {
			return &ConfigurationError{Field: field + ".base_backoff", Reason: "must be >= 0"}
		}
	}

	tiers := map[string][]string{
		"simple":   c.Routing.Simple,
		"moderate": c.Routing.Moderate,
		"complex":  c.Routing.Complex,
	}
	for tier, chain := range tiers {
		if len(chain) == 0 {
			return &ConfigurationError{Field: "routing." + tier, Reason: "chain must not be empty"}
		}
		for _, name := range chain {
			if !names[name] {
				return &ConfigurationError{
					Field:  "routing." + tier,
					Reason: fmt.Sprintf("chain references unknown provider %q", name),
				}
			}
		}
	}
	return nil
}
