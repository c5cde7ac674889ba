// internal/router/router.go
package router

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meditrek/clinpilot/api/schemas"
	"github.com/meditrek/clinpilot/internal/provider"
)

// ProviderFailure records why one provider in the chain was given up on.
type ProviderFailure struct {
	Provider string
	Attempts int
	Err      error
}

// ExhaustedFallbackError means every enabled provider in the tier's chain
// failed all of its attempts. It carries the per-provider failures so the
// caller can see exactly what was tried.
type ExhaustedFallbackError struct {
	Tier     schemas.ComplexityTier
	Failures []ProviderFailure
}

func (e *ExhaustedFallbackError) Error() string {
	if len(e.Failures) == 0 {
		return fmt.Sprintf("all providers exhausted for tier %q: no enabled providers in chain", e.Tier)
	}
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s (%d attempts): %v", f.Provider, f.Attempts, f.Err))
	}
	return fmt.Sprintf("all providers exhausted for tier %q: %s", e.Tier, strings.Join(parts, "; "))
}

// AIRouter walks a tier's provider chain with bounded retries and exponential
// backoff, returning the first successful response. Stateless between calls;
// concurrent Route invocations share only the read-only policy and registry.
type AIRouter struct {
	policy   *RoutingPolicy
	registry map[string]schemas.ProviderAdapter
	logger   *zap.Logger
}

// NewAIRouter builds the router. Every provider referenced by the policy must
// be present in the registry.
func NewAIRouter(policy *RoutingPolicy, registry map[string]schemas.ProviderAdapter, logger *zap.Logger) (*AIRouter, error) {
	if policy == nil {
		return nil, fmt.Errorf("routing policy must be provided")
	}
	for _, name := range policy.ProviderNames() {
		if _, ok := registry[name]; !ok {
			return nil, fmt.Errorf("no adapter registered for provider %q", name)
		}
	}
	return &AIRouter{
		policy:   policy,
		registry: registry,
		logger:   logger.Named("ai_router"),
	}, nil
}

// Route resolves the chain for the tier and tries each enabled provider in
// order, making up to max_retries+1 attempts per provider with exponential
// backoff between attempts. The first success short-circuits the walk. Only
// transport-level failures are retried; content validation happens upstream
// and never re-enters the router.
//
// The returned RoutingDecision is non-nil in every case, including failure.
func (r *AIRouter) Route(ctx context.Context, tier schemas.ComplexityTier, req schemas.CompletionRequest) (*schemas.CompletionResponse, *schemas.RoutingDecision, error) {
	decision := &schemas.RoutingDecision{
		RequestID: uuid.NewString(),
		Tier:      tier,
	}

	chain := r.policy.Chain(tier)
	enabled := chain[:0:0]
	for _, pc := range chain {
		if pc.Enabled {
			enabled = append(enabled, pc)
		}
	}
	for _, pc := range enabled {
		decision.Chain = append(decision.Chain, pc.Name)
	}

	r.logger.Info("Routing completion request",
		zap.String("request_id", decision.RequestID),
		zap.String("tier", string(tier)),
		zap.Strings("chain", decision.Chain),
	)

	// An empty effective chain fails immediately, before any network call.
	if len(enabled) == 0 {
		return nil, decision, &ExhaustedFallbackError{Tier: tier}
	}

	var failures []ProviderFailure
	for _, pc := range enabled {
		adapter := r.registry[pc.Name]
		rp := retryPolicyFor(pc)
		bo := rp.NewBackOff()

		var lastErr error
		attempts := 0
		for attempt := 0; attempt <= rp.MaxRetries; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, decision, fmt.Errorf("routing aborted: %w", err)
			}
			attempts++

			attemptCtx, cancel := context.WithTimeout(ctx, pc.Timeout)
			resp, err := adapter.Complete(attemptCtx, req)
			cancel()

			if err == nil {
				decision.Attempted = append(decision.Attempted, schemas.ProviderAttempt{
					Provider: pc.Name,
					Attempts: attempts,
				})
				decision.FinalProvider = pc.Name
				r.logger.Info("Provider completed request",
					zap.String("request_id", decision.RequestID),
					zap.String("provider", pc.Name),
					zap.Int("attempts", attempts),
					zap.Duration("latency", resp.Latency),
					zap.Int("tokens", resp.TokensUsed),
				)
				return resp, decision, nil
			}

			lastErr = err
			r.logger.Warn("Provider attempt failed",
				zap.String("request_id", decision.RequestID),
				zap.String("provider", pc.Name),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)

			if !provider.Retryable(err) {
				break // permanent failure, retrying cannot help
			}
			if attempt < rp.MaxRetries {
				if err := sleepCtx(ctx, bo.NextBackOff()); err != nil {
					return nil, decision, fmt.Errorf("routing aborted: %w", err)
				}
			}
		}

		decision.Attempted = append(decision.Attempted, schemas.ProviderAttempt{
			Provider: pc.Name,
			Attempts: attempts,
			Reason:   lastErr.Error(),
		})
		failures = append(failures, ProviderFailure{Provider: pc.Name, Attempts: attempts, Err: lastErr})
	}

	err := &ExhaustedFallbackError{Tier: tier, Failures: failures}
	r.logger.Error("Provider chain exhausted",
		zap.String("request_id", decision.RequestID),
		zap.String("tier", string(tier)),
		zap.Int("providers_failed", len(failures)),
	)
	return nil, decision, err
}

// HealthCheckAll probes every registered provider concurrently and reports
// per-provider health. Disabled providers are probed too; operators want to
// see them before re-enabling.
func (r *AIRouter) HealthCheckAll(ctx context.Context) map[string]bool {
	results := make(map[string]bool, len(r.registry))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for name, adapter := range r.registry {
		g.Go(func() error {
			err := adapter.HealthCheck(ctx)
			if err != nil {
				r.logger.Warn("Provider health check failed", zap.String("provider", name), zap.Error(err))
			}
			mu.Lock()
			results[name] = err == nil
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors, failures land in results
	return results
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
