// internal/clinical/treatment.go
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

// crossAllergies maps a recorded allergen to drug families known to
// cross-react with it. Keys and values are lowercase.
var crossAllergies = map[string][]string{
	"penicillin": {"amoxicillin", "ampicillin", "piperacillin", "amoxicillin-clavulanate"},
	"sulfa":      {"sulfamethoxazole", "sulfasalazine", "sulfadiazine"},
	"aspirin":    {"ibuprofen", "naproxen", "ketorolac"},
}

// TreatmentEngine generates a treatment plan for a confirmed diagnosis and
// applies the allergy contraindication post-filter. Stateless; safe for
// concurrent use.
type TreatmentEngine struct {
	router      schemas.CompletionRouter
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// NewTreatmentEngine builds the engine.
func NewTreatmentEngine(r schemas.CompletionRouter, cfg config.EngineConfig, logger *zap.Logger) *TreatmentEngine {
	return &TreatmentEngine{
		router:      r,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger.Named("treatment_engine"),
	}
}

// Generate builds the treatment prompt for the confirmed diagnosis, routes it
// on the complex tier, and post-filters the plan against recorded allergies.
// A contraindicated medication is never silently dropped: it stays in the
// plan flagged and annotated, so the removal is auditable.
func (e *TreatmentEngine) Generate(ctx context.Context, cc schemas.ClinicalContext, diagnosis string) (*schemas.TreatmentPlan, error) {
	if strings.TrimSpace(diagnosis) == "" {
		return nil, fmt.Errorf("treatment planning requires a confirmed diagnosis")
	}

	p := prompt.Treatment(cc, diagnosis)
	req := schemas.CompletionRequest{
		SystemPrompt: p.System,
		UserPrompt:   p.User,
		Options: schemas.CompletionOptions{
			Temperature: e.temperature,
			MaxTokens:   e.maxTokens,
			ForceJSON:   true,
		},
	}

	tier := router.Classify(schemas.OpTreatment)
	resp, decision, err := e.router.Route(ctx, tier, req)
	if err != nil {
		var exhausted *router.ExhaustedFallbackError
		if errors.As(err, &exhausted) {
			return nil, &AnalysisUnavailableError{Operation: schemas.OpTreatment, Err: err}
		}
		return nil, fmt.Errorf("treatment routing failed: %w", err)
	}

	plan, err := aiparse.ParseTreatmentPlan(resp.Content)
	if err != nil {
		return nil, err
	}

	plan.Diagnosis = diagnosis
	plan.Provider = resp.Provider
	removed := e.applyContraindicationFilter(plan, cc.Allergies)

	e.logger.Info("Treatment plan generated",
		zap.String("request_id", decision.RequestID),
		zap.String("patient_id", cc.PatientID),
		zap.String("diagnosis", diagnosis),
		zap.String("provider", resp.Provider),
		zap.Int("medications", len(plan.Medications)),
		zap.Int("contraindicated", removed),
	)
	return plan, nil
}

// applyContraindicationFilter flags every medication whose name matches a
// recorded allergy, directly or through a known cross-reaction. Returns the
// number of medications flagged.
func (e *TreatmentEngine) applyContraindicationFilter(plan *schemas.TreatmentPlan, allergies []string) int {
	removed := 0
	for i := range plan.Medications {
		med := &plan.Medications[i]
		allergen, hit := matchAllergy(med.Name, allergies)
		if !hit {
			continue
		}
		med.Contraindicated = true
		med.Note = fmt.Sprintf("contraindicated - removed: matches recorded allergy %q", allergen)
		removed++
	}
	return removed
}

// matchAllergy reports whether a drug name intersects the allergy set,
// checking direct name overlap and the cross-reaction table.
func matchAllergy(drug string, allergies []string) (string, bool) {
	d := strings.ToLower(strings.TrimSpace(drug))
	if d == "" {
		return "", false
	}
	for _, raw := range allergies {
		a := strings.ToLower(strings.TrimSpace(raw))
		if a == "" {
			continue
		}
		if strings.Contains(d, a) || strings.Contains(a, d) {
			return raw, true
		}
		for _, related := range crossAllergies[a] {
			if strings.Contains(d, related) {
				return raw, true
			}
		}
	}
	return "", false
}
