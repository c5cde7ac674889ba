// internal/clinical/diagnosis.go
package clinical

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/meditrek/clinpilot/api/schemas"
	"github.com/meditrek/clinpilot/internal/aiparse"
	"github.com/meditrek/clinpilot/internal/config"
	"github.com/meditrek/clinpilot/internal/prompt"
	"github.com/meditrek/clinpilot/internal/router"
)

// emergencyConditions is the fixed keyword list scanned for red flags on top
// of critical-urgency entries. Matches are case-insensitive substring checks
// against diagnosis names and supporting findings.
var emergencyConditions = []string{
	"myocardial infarction",
	"aortic dissection",
	"pulmonary embolism",
	"subarachnoid hemorrhage",
	"meningitis",
	"sepsis",
	"stroke",
	"appendicitis",
	"pancreatitis",
	"perforated ulcer",
	"anaphylaxis",
	"diabetic ketoacidosis",
}

// DiagnosisEngine generates ranked differential diagnosis suggestions from a
// clinical context. Stateless; safe for concurrent use.
type DiagnosisEngine struct {
	router      schemas.CompletionRouter
	maxResults  int
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// NewDiagnosisEngine builds the engine. maxResults of 0 means unlimited.
func NewDiagnosisEngine(r schemas.CompletionRouter, cfg config.EngineConfig, logger *zap.Logger) *DiagnosisEngine {
	return &DiagnosisEngine{
		router:      r,
		maxResults:  cfg.MaxDiagnoses,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger.Named("diagnosis_engine"),
	}
}

// Generate builds the diagnosis prompt, routes it on the complex tier, and
// post-processes the validated suggestions: sorted by probability descending
// with urgency breaking ties, red flags derived, list capped when configured.
func (e *DiagnosisEngine) Generate(ctx context.Context, cc schemas.ClinicalContext) (*schemas.DiagnosisReport, error) {
	p := prompt.Diagnosis(cc)
	req := schemas.CompletionRequest{
		SystemPrompt: p.System,
		UserPrompt:   p.User,
		Options: schemas.CompletionOptions{
			Temperature: e.temperature,
			MaxTokens:   e.maxTokens,
			ForceJSON:   true,
		},
	}

	tier := router.Classify(schemas.OpDiagnosis)
	resp, decision, err := e.router.Route(ctx, tier, req)
	if err != nil {
		var exhausted *router.ExhaustedFallbackError
		if errors.As(err, &exhausted) {
			return nil, &AnalysisUnavailableError{Operation: schemas.OpDiagnosis, Err: err}
		}
		return nil, fmt.Errorf("diagnosis routing failed: %w", err)
	}

	suggestions, err := aiparse.ParseDiagnoses(resp.Content)
	if err != nil {
		// Content failure: propagate as-is, the router must not be re-entered.
		return nil, err
	}

	sortDiagnoses(suggestions)
	redFlags := detectRedFlags(suggestions)

	if e.maxResults > 0 && len(suggestions) > e.maxResults {
		suggestions = suggestions[:e.maxResults]
	}

	e.logger.Info("Differential diagnosis generated",
		zap.String("request_id", decision.RequestID),
		zap.String("patient_id", cc.PatientID),
		zap.String("provider", resp.Provider),
		zap.Int("suggestions", len(suggestions)),
		zap.Int("red_flags", len(redFlags)),
	)

	return &schemas.DiagnosisReport{
		Suggestions: suggestions,
		RedFlags:    redFlags,
		Provider:    resp.Provider,
		Model:       resp.Model,
	}, nil
}

// sortDiagnoses orders by probability descending; equal probabilities rank by
// urgency severity, critical first.
func sortDiagnoses(list []schemas.DifferentialDiagnosis) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Probability != list[j].Probability {
			return list[i].Probability > list[j].Probability
		}
		return list[i].Urgency.Rank() > list[j].Urgency.Rank()
	})
}

// detectRedFlags collects critical-urgency entries and emergency keyword
// matches. The returned descriptions are deduplicated in insertion order.
func detectRedFlags(list []schemas.DifferentialDiagnosis) []string {
	var flags []string
	seen := make(map[string]bool)
	add := func(flag string) {
		if !seen[flag] {
			seen[flag] = true
			flags = append(flags, flag)
		}
	}

	for _, d := range list {
		if d.Urgency == schemas.UrgencyCritical {
			add(fmt.Sprintf("%s (critical urgency)", d.Diagnosis))
		}
		haystack := strings.ToLower(d.Diagnosis + " " + strings.Join(d.SupportingFindings, " "))
		for _, cond := range emergencyConditions {
			if strings.Contains(haystack, cond) {
				add(fmt.Sprintf("%s (emergency condition: %s)", d.Diagnosis, cond))
			}
		}
	}
	return flags
}
