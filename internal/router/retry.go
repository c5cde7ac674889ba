// internal/router/retry.go
package router

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/meditrek/clinpilot/internal/config"
)

const (
	defaultBaseBackoff = 1 * time.Second
	defaultMaxBackoff  = 30 * time.Second
	backoffMultiplier  = 2
)

// RetryPolicy is the first-class retry description the router executes for
// one provider: up to MaxRetries+1 attempts, exponential delay between them.
type RetryPolicy struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// retryPolicyFor derives the policy from a provider config, filling in the
// standard defaults where the config is silent.
func retryPolicyFor(cfg config.ProviderConfig) RetryPolicy {
	rp := RetryPolicy{
		MaxRetries:  cfg.MaxRetries,
		BaseBackoff: cfg.BaseBackoff,
		MaxBackoff:  cfg.MaxBackoff,
	}
	if rp.BaseBackoff == 0 {
		rp.BaseBackoff = defaultBaseBackoff
	}
	if rp.MaxBackoff == 0 {
		rp.MaxBackoff = defaultMaxBackoff
	}
	return rp
}

// NewBackOff materializes the policy as a deterministic exponential backoff:
// base * 2^attempt, capped at MaxBackoff. Randomization is disabled so the
// delay sequence is exactly the documented one.
func (rp RetryPolicy) NewBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rp.BaseBackoff
	b.RandomizationFactor = 0
	b.Multiplier = backoffMultiplier
	b.MaxInterval = rp.MaxBackoff
	b.MaxElapsedTime = 0 // attempt count, not wall clock, bounds the loop
	b.Reset()
	return b
}
