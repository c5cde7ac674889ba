// internal/clinical/helpers_test.go
package clinical

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/meditrek/clinpilot/api/schemas"
)

// fakeRouter is a canned CompletionRouter. It records what it was asked so
// tests can assert tier selection and call counts without any network.
type fakeRouter struct {
	content  string
	provider string
	model    string
	err      error

	calls    atomic.Int32
	lastTier schemas.ComplexityTier
	lastReq  schemas.CompletionRequest
}

func (f *fakeRouter) Route(ctx context.Context, tier schemas.ComplexityTier, req schemas.CompletionRequest) (*schemas.CompletionResponse, *schemas.RoutingDecision, error) {
	f.calls.Add(1)
	f.lastTier = tier
	f.lastReq = req

	decision := &schemas.RoutingDecision{
		RequestID: uuid.NewString(),
		Tier:      tier,
	}
	if f.err != nil {
		return nil, decision, f.err
	}

	provider := f.provider
	if provider == "" {
		provider = "fake"
	}
	model := f.model
	if model == "" {
		model = "fake-model"
	}
	decision.FinalProvider = provider
	return &schemas.CompletionResponse{
		Content:  f.content,
		Provider: provider,
		Model:    model,
	}, decision, nil
}
