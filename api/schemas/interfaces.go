// api/schemas/interfaces.go
package schemas

import "context"

// ProviderAdapter is the uniform capability surface every backing AI service
// implements. The router depends only on this interface; concrete adapters
// live in internal/provider.
type ProviderAdapter interface {
	// Name returns the configured provider name (unique key in the registry).
	Name() string

	// Complete sends one prompt to the provider and returns the normalized
	// response. Implementations must honor ctx cancellation and deadlines.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// HealthCheck probes provider availability. A nil error means healthy.
	HealthCheck(ctx context.Context) error
}

// CompletionRouter resolves a tier to a provider chain and walks it until one
// provider succeeds. The returned RoutingDecision is always non-nil, even on
// failure, so callers can audit what was attempted.
type CompletionRouter interface {
	Route(ctx context.Context, tier ComplexityTier, req CompletionRequest) (*CompletionResponse, *RoutingDecision, error)
}
