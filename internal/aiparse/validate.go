// internal/aiparse/validate.go
package aiparse

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/xeipuuv/gojsonschema"

	"github.com/meditrek/clinpilot/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Structural schemas for each artifact family. Validation is strict: invalid
// values are never coerced, they surface as MalformedResponseError so the
// caller can decide whether to re-prompt.
const (
	diagnosisSchemaJSON = `{
		"type": "array",
		"items": {
			"type": "object",
			"required": ["diagnosis", "icd10", "probability", "urgency"],
			"properties": {
				"diagnosis": {"type": "string", "minLength": 1},
				"icd10": {"type": "string"},
				"probability": {"type": "number", "minimum": 0, "maximum": 1},
				"urgency": {"enum": ["critical", "major", "moderate", "minor"]},
				"supporting_findings": {"type": "array", "items": {"type": "string"}},
				"reasoning": {"type": "string"},
				"recommended_tests": {"type": "array", "items": {"type": "string"}}
			}
		}
	}`

	treatmentSchemaJSON = `{
		"type": "object",
		"required": ["medications"],
		"properties": {
			"medications": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["name"],
					"properties": {
						"name": {"type": "string", "minLength": 1},
						"dosage": {"type": "string"},
						"duration": {"type": "string"},
						"note": {"type": "string"}
					}
				}
			},
			"lifestyle": {"type": "array", "items": {"type": "string"}},
			"follow_up": {"type": "string"},
			"consultations": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["specialty"],
					"properties": {
						"specialty": {"type": "string", "minLength": 1},
						"urgency": {"type": "string"}
					}
				}
			}
		}
	}`

	interactionSchemaJSON = `{
		"type": "object",
		"required": ["interactions"],
		"properties": {
			"interactions": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["drug_a", "drug_b", "severity", "effect"],
					"properties": {
						"drug_a": {"type": "string", "minLength": 1},
						"drug_b": {"type": "string", "minLength": 1},
						"type": {"type": "string"},
						"severity": {"enum": ["critical", "major", "moderate", "minor"]},
						"effect": {"type": "string"},
						"management": {"type": "string"},
						"alternatives": {"type": "array", "items": {"type": "string"}}
					}
				}
			}
		}
	}`
)

var (
	diagnosisSchema   = mustSchema(diagnosisSchemaJSON)
	treatmentSchema   = mustSchema(treatmentSchemaJSON)
	interactionSchema = mustSchema(interactionSchemaJSON)
)

func mustSchema(raw string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded schema: %v", err))
	}
	return s
}

// validateAgainst runs the structural check and folds violations into one
// MalformedResponseError.
func validateAgainst(schema *gojsonschema.Schema, doc string) error {
	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return &MalformedResponseError{Reason: fmt.Sprintf("not valid JSON: %v", err), Snippet: snippet(doc)}
	}
	if result.Valid() {
		return nil
	}
	reasons := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		reasons = append(reasons, e.String())
	}
	return &MalformedResponseError{Reason: strings.Join(reasons, "; "), Snippet: snippet(doc)}
}

// ParseDiagnoses extracts and validates a differential diagnosis array from
// raw provider output.
func ParseDiagnoses(raw string) ([]schemas.DifferentialDiagnosis, error) {
	doc, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := validateAgainst(diagnosisSchema, doc); err != nil {
		return nil, err
	}

	var out []schemas.DifferentialDiagnosis
	if err := json.UnmarshalFromString(doc, &out); err != nil {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("decode failed: %v", err), Snippet: snippet(doc)}
	}

	// Belt and braces on top of the schema: the range and enum invariants are
	// load-bearing for downstream sorting.
	for i, d := range out {
		if d.Probability < 0 || d.Probability > 1 {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("entry %d: probability %v outside [0,1]", i, d.Probability)}
		}
		if !d.Urgency.Valid() {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("entry %d: unknown urgency %q", i, d.Urgency)}
		}
	}
	return out, nil
}

// treatmentPayload is the wire shape providers are instructed to produce.
type treatmentPayload struct {
	Medications []struct {
		Name     string `json:"name"`
		Dosage   string `json:"dosage"`
		Duration string `json:"duration"`
		Note     string `json:"note"`
	} `json:"medications"`
	Lifestyle     []string `json:"lifestyle"`
	FollowUp      string   `json:"follow_up"`
	Consultations []struct {
		Specialty string `json:"specialty"`
		Urgency   string `json:"urgency"`
	} `json:"consultations"`
}

// ParseTreatmentPlan extracts and validates a treatment plan object from raw
// provider output.
func ParseTreatmentPlan(raw string) (*schemas.TreatmentPlan, error) {
	doc, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := validateAgainst(treatmentSchema, doc); err != nil {
		return nil, err
	}

	var payload treatmentPayload
	if err := json.UnmarshalFromString(doc, &payload); err != nil {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("decode failed: %v", err), Snippet: snippet(doc)}
	}

	plan := &schemas.TreatmentPlan{
		Lifestyle: payload.Lifestyle,
		FollowUp:  payload.FollowUp,
	}
	for _, m := range payload.Medications {
		plan.Medications = append(plan.Medications, schemas.Medication{
			Name:     m.Name,
			Dosage:   m.Dosage,
			Duration: m.Duration,
			Note:     m.Note,
		})
	}
	for _, c := range payload.Consultations {
		plan.Consultations = append(plan.Consultations, schemas.Consultation{
			Specialty: c.Specialty,
			Urgency:   c.Urgency,
		})
	}
	return plan, nil
}

// interactionPayload is the wire shape providers are instructed to produce.
type interactionPayload struct {
	Interactions []struct {
		DrugA        string   `json:"drug_a"`
		DrugB        string   `json:"drug_b"`
		Type         string   `json:"type"`
		Severity     string   `json:"severity"`
		Effect       string   `json:"effect"`
		Management   string   `json:"management"`
		Alternatives []string `json:"alternatives"`
	} `json:"interactions"`
}

// ParseInteractions extracts and validates drug interaction findings from raw
// provider output. Findings are tagged as inferred by the caller.
func ParseInteractions(raw string) ([]schemas.DrugInteractionFinding, error) {
	doc, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := validateAgainst(interactionSchema, doc); err != nil {
		return nil, err
	}

	var payload interactionPayload
	if err := json.UnmarshalFromString(doc, &payload); err != nil {
		return nil, &MalformedResponseError{Reason: fmt.Sprintf("decode failed: %v", err), Snippet: snippet(doc)}
	}

	out := make([]schemas.DrugInteractionFinding, 0, len(payload.Interactions))
	for i, f := range payload.Interactions {
		sev := schemas.InteractionSeverity(f.Severity)
		if !sev.Valid() {
			return nil, &MalformedResponseError{Reason: fmt.Sprintf("interaction %d: unknown severity %q", i, f.Severity)}
		}
		out = append(out, schemas.DrugInteractionFinding{
			DrugA:        f.DrugA,
			DrugB:        f.DrugB,
			Type:         f.Type,
			Severity:     sev,
			Effect:       f.Effect,
			Management:   f.Management,
			Alternatives: f.Alternatives,
		})
	}
	return out, nil
}
