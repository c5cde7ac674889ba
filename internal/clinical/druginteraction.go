// internal/clinical/druginteraction.go
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

// pairKey is the canonical (alphabetical, lowercase) form of a drug pair, so
// matrix lookups are symmetric: (A,B) and (B,A) hit the same entry.
type pairKey struct {
	first  string
	second string
}

func canonicalPair(a, b string) pairKey {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a > b {
		a, b = b, a
	}
	return pairKey{first: a, second: b}
}

// matrixEntry is one curated interaction in the local reference matrix.
type matrixEntry struct {
	Severity     schemas.InteractionSeverity
	Type         string
	Effect       string
	Management   string
	Alternatives []string
}

// referenceMatrix holds the curated high-confidence interactions consulted
// before any AI call. Pairs are stored in canonical order.
var referenceMatrix = map[pairKey]matrixEntry{
	canonicalPair("warfarin", "ibuprofen"): {
		Severity:     schemas.SeverityMajor,
		Type:         "drug-drug",
		Effect:       "Increased bleeding risk from antiplatelet effect and GI ulceration",
		Management:   "Avoid combination, use acetaminophen for pain",
		Alternatives: []string{"acetaminophen"},
	},
	canonicalPair("warfarin", "aspirin"): {
		Severity:   schemas.SeverityMajor,
		Type:       "drug-drug",
		Effect:     "Additive anticoagulant effect, major bleeding",
		Management: "Use with extreme caution, monitor INR closely",
	},
	canonicalPair("warfarin", "amiodarone"): {
		Severity:   schemas.SeverityMajor,
		Type:       "drug-drug",
		Effect:     "Amiodarone inhibits warfarin metabolism, INR rises",
		Management: "Reduce warfarin dose 30-50%, monitor INR weekly initially",
	},
	canonicalPair("lisinopril", "potassium"): {
		Severity:   schemas.SeverityMajor,
		Type:       "drug-drug",
		Effect:     "ACE inhibitors reduce potassium excretion, hyperkalemia and arrhythmia risk",
		Management: "Avoid potassium supplements, monitor serum potassium",
	},
	canonicalPair("lisinopril", "spironolactone"): {
		Severity:   schemas.SeverityMajor,
		Type:       "drug-drug",
		Effect:     "Dual potassium retention, hyperkalemia risk",
		Management: "Monitor potassium and renal function closely",
	},
	canonicalPair("simvastatin", "clarithromycin"): {
		Severity:     schemas.SeverityCritical,
		Type:         "drug-drug",
		Effect:       "CYP3A4 inhibition raises statin levels, rhabdomyolysis risk",
		Management:   "Hold statin during the macrolide course",
		Alternatives: []string{"azithromycin"},
	},
	canonicalPair("methotrexate", "trimethoprim"): {
		Severity:   schemas.SeverityCritical,
		Type:       "drug-drug",
		Effect:     "Additive folate antagonism, bone marrow suppression",
		Management: "Avoid combination",
	},
	canonicalPair("metformin", "contrast media"): {
		Severity:   schemas.SeverityMajor,
		Type:       "drug-procedure",
		Effect:     "Lactic acidosis risk with iodinated contrast in renal impairment",
		Management: "Hold metformin 48 hours around contrast administration",
	},
	canonicalPair("sertraline", "tramadol"): {
		Severity:   schemas.SeverityModerate,
		Type:       "drug-drug",
		Effect:     "Additive serotonergic activity, serotonin syndrome risk",
		Management: "Prefer non-serotonergic analgesia, watch for agitation and clonus",
	},
	canonicalPair("digoxin", "furosemide"): {
		Severity:   schemas.SeverityModerate,
		Type:       "drug-drug",
		Effect:     "Diuretic-induced hypokalemia potentiates digoxin toxicity",
		Management: "Monitor potassium and digoxin levels",
	},
}

// DrugInteractionChecker analyzes a medication regimen using the two-tier
// strategy: local reference matrix first, AI inference for pairs the matrix
// does not cover. Stateless; safe for concurrent use.
type DrugInteractionChecker struct {
	router      schemas.CompletionRouter
	temperature float64
	maxTokens   int
	logger      *zap.Logger
}

// NewDrugInteractionChecker builds the checker. A nil router disables the AI
// fallback; the local matrix still works.
func NewDrugInteractionChecker(r schemas.CompletionRouter, cfg config.EngineConfig, logger *zap.Logger) *DrugInteractionChecker {
	return &DrugInteractionChecker{
		router:      r,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger.Named("drug_interaction_checker"),
	}
}

// LookupPair consults only the local reference matrix. The lookup is
// symmetric. The boolean reports whether an entry exists.
func (c *DrugInteractionChecker) LookupPair(drugA, drugB string) (schemas.DrugInteractionFinding, bool) {
	key := canonicalPair(drugA, drugB)
	entry, ok := referenceMatrix[key]
	if !ok {
		return schemas.DrugInteractionFinding{}, false
	}
	return schemas.DrugInteractionFinding{
		DrugA:        drugA,
		DrugB:        drugB,
		Type:         entry.Type,
		Severity:     entry.Severity,
		Effect:       entry.Effect,
		Management:   entry.Management,
		Alternatives: entry.Alternatives,
		Source:       schemas.SourceReference,
	}, true
}

// CheckPair resolves one drug pair: reference matrix hit when available,
// otherwise an AI inference call tagged as such.
func (c *DrugInteractionChecker) CheckPair(ctx context.Context, drugA, drugB string, regimen, allergies []string) ([]schemas.DrugInteractionFinding, error) {
	if finding, ok := c.LookupPair(drugA, drugB); ok {
		return []schemas.DrugInteractionFinding{finding}, nil
	}
	if c.router == nil {
		return nil, nil
	}

	p := prompt.DrugInteraction(drugA, drugB, regimen, allergies)
	req := schemas.CompletionRequest{
		SystemPrompt: p.System,
		UserPrompt:   p.User,
		Options: schemas.CompletionOptions{
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
			ForceJSON:   true,
		},
	}

	tier := router.Classify(schemas.OpDrugInteraction)
	resp, decision, err := c.router.Route(ctx, tier, req)
	if err != nil {
		var exhausted *router.ExhaustedFallbackError
		if errors.As(err, &exhausted) {
			return nil, &AnalysisUnavailableError{Operation: schemas.OpDrugInteraction, Err: err}
		}
		return nil, fmt.Errorf("drug interaction routing failed: %w", err)
	}

	findings, err := aiparse.ParseInteractions(resp.Content)
	if err != nil {
		return nil, err
	}
	for i := range findings {
		findings[i].Source = schemas.SourceInferred
	}

	c.logger.Debug("AI interaction assessment complete",
		zap.String("request_id", decision.RequestID),
		zap.String("pair", drugA+"+"+drugB),
		zap.Int("findings", len(findings)),
	)
	return findings, nil
}

// CheckRegimen analyzes every pair in the regimen plus allergy cross-checks.
// The findings list is always sorted by severity descending regardless of
// where entries came from.
func (c *DrugInteractionChecker) CheckRegimen(ctx context.Context, medications, allergies []string) (*schemas.InteractionReport, error) {
	report := &schemas.InteractionReport{}
	seen := make(map[pairKey]bool)

	for i := 0; i < len(medications); i++ {
		for j := i + 1; j < len(medications); j++ {
			key := canonicalPair(medications[i], medications[j])
			if key.first == key.second || seen[key] {
				continue
			}
			seen[key] = true

			findings, err := c.CheckPair(ctx, medications[i], medications[j], medications, allergies)
			if err != nil {
				return nil, err
			}
			report.Findings = append(report.Findings, findings...)
		}
	}

	for _, med := range medications {
		if allergen, hit := matchAllergy(med, allergies); hit {
			report.AllergyWarnings = append(report.AllergyWarnings, schemas.AllergyWarning{
				Drug:         med,
				Allergen:     allergen,
				Significance: "recorded patient allergy, verify before administration",
			})
		}
	}

	SortFindings(report.Findings)
	for _, f := range report.Findings {
		if f.Severity.Rank() >= schemas.SeverityMajor.Rank() {
			report.RequiresPharmacistReview = true
			break
		}
	}
	if len(report.AllergyWarnings) > 0 {
		report.RequiresPharmacistReview = true
	}

	c.logger.Info("Regimen interaction check complete",
		zap.Int("medications", len(medications)),
		zap.Int("findings", len(report.Findings)),
		zap.Int("allergy_warnings", len(report.AllergyWarnings)),
		zap.Bool("pharmacist_review", report.RequiresPharmacistReview),
	)
	return report, nil
}

// SortFindings orders findings by severity descending, critical first.
// Equal severities keep their insertion order.
func SortFindings(findings []schemas.DrugInteractionFinding) {
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() > findings[j].Severity.Rank()
	})
}
