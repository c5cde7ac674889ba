// internal/clinical/summarizer.go
package clinical

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/meditrek/clinpilot/api/schemas"
	"github.com/meditrek/clinpilot/internal/aiparse"
	"github.com/meditrek/clinpilot/internal/config"
	"github.com/meditrek/clinpilot/internal/prompt"
	"github.com/meditrek/clinpilot/internal/router"
)

// PatientSummarizer produces a narrative case summary. It is the cheapest
// engine and rides the simple tier, which defaults to the local daemon.
type PatientSummarizer struct {
	router      schemas.CompletionRouter
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// NewPatientSummarizer builds the summarizer.
func NewPatientSummarizer(r schemas.CompletionRouter, cfg config.EngineConfig, logger *zap.Logger) *PatientSummarizer {
	return &PatientSummarizer{
		router:      r,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger.Named("patient_summarizer"),
	}
}

// Summarize renders the context and returns the provider's plain-text
// summary. No JSON parsing is involved; an empty reply is still malformed.
func (s *PatientSummarizer) Summarize(ctx context.Context, cc schemas.ClinicalContext) (*schemas.PatientSummary, error) {
	p := prompt.Summary(cc)
	req := schemas.CompletionRequest{
		SystemPrompt: p.System,
		UserPrompt:   p.User,
		Options: schemas.CompletionOptions{
			Temperature: s.temperature,
			MaxTokens:   s.maxTokens,
		},
	}

	tier := router.Classify(schemas.OpPatientSummary)
	resp, decision, err := s.router.Route(ctx, tier, req)
	if err != nil {
		var exhausted *router.ExhaustedFallbackError
		if errors.As(err, &exhausted) {
			return nil, &AnalysisUnavailableError{Operation: schemas.OpPatientSummary, Err: err}
		}
		return nil, fmt.Errorf("summary routing failed: %w", err)
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return nil, &aiparse.MalformedResponseError{
			Reason: fmt.Sprintf("provider %s returned an empty summary", resp.Provider),
		}
	}

	s.logger.Info("Patient summary generated",
		zap.String("request_id", decision.RequestID),
		zap.String("patient_id", cc.PatientID),
		zap.String("provider", resp.Provider),
	)

	return &schemas.PatientSummary{
		PatientID: cc.PatientID,
		Summary:   content,
		Provider:  resp.Provider,
		Model:     resp.Model,
	}, nil
}
