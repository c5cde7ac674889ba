// internal/prompt/builder.go
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/meditrek/clinpilot/api/schemas"
)

// notAvailable is the explicit marker for empty sections. Providers always
// see the same section schema regardless of how complete the record is.
const notAvailable = "Not available"

// Prompt is a rendered system/user prompt pair ready for the router.
type Prompt struct {
	System string
	User   string
}

// RenderContext renders a ClinicalContext into the deterministic section
// order: demographics, complaints, vitals, exam, labs, history. Pure function
// of its input; map-backed sections are emitted in sorted key order.
func RenderContext(ctx schemas.ClinicalContext) string {
	var sb strings.Builder

	sb.WriteString("PATIENT PRESENTATION\n\n")

	sb.WriteString("DEMOGRAPHICS:\n")
	sb.WriteString(renderDemographics(ctx.Demographics))

	sb.WriteString("\nCHIEF COMPLAINTS:\n")
	sb.WriteString(renderList(ctx.ChiefComplaints))

	sb.WriteString("\nVITAL SIGNS:\n")
	sb.WriteString(renderVitals(ctx.VitalSigns))

	sb.WriteString("\nPHYSICAL EXAM:\n")
	sb.WriteString(renderStringMap(ctx.PhysicalExam))

	sb.WriteString("\nLAB RESULTS:\n")
	sb.WriteString(renderLabs(ctx.LabResults))

	sb.WriteString("\nPAST DIAGNOSES:\n")
	sb.WriteString(renderList(ctx.PastDiagnoses))

	return sb.String()
}

// Diagnosis builds the differential diagnosis prompt for a context.
func Diagnosis(ctx schemas.ClinicalContext) Prompt {
	var sb strings.Builder
	sb.WriteString(RenderContext(ctx))
	sb.WriteString("\nProvide a differential diagnosis list for this presentation.\n\n")
	sb.WriteString(diagnosisExample)
	return Prompt{System: diagnosisSystemPrompt, User: sb.String()}
}

// Treatment builds the treatment planning prompt for a confirmed diagnosis.
func Treatment(ctx schemas.ClinicalContext, diagnosis string) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("CONFIRMED DIAGNOSIS: %s\n\n", diagnosis))
	sb.WriteString(RenderContext(ctx))

	sb.WriteString("\nCURRENT MEDICATIONS:\n")
	sb.WriteString(renderList(ctx.Medications))

	sb.WriteString("\nKNOWN ALLERGIES:\n")
	sb.WriteString(renderList(ctx.Allergies))

	sb.WriteString("\nPropose a treatment plan for the confirmed diagnosis.\n")
	return Prompt{System: treatmentSystemPrompt, User: sb.String()}
}

// DrugInteraction builds the interaction check prompt for a drug pair within
// the patient's current regimen.
func DrugInteraction(drugA, drugB string, currentMedications, allergies []string) Prompt {
	var sb strings.Builder
	sb.WriteString("DRUG INTERACTION CHECK\n\n")
	sb.WriteString(fmt.Sprintf("DRUG PAIR: %s + %s\n", drugA, drugB))

	sb.WriteString("\nCURRENT MEDICATIONS:\n")
	sb.WriteString(renderList(currentMedications))

	sb.WriteString("\nKNOWN ALLERGIES:\n")
	sb.WriteString(renderList(allergies))

	sb.WriteString("\nAssess the interaction between the drug pair in the context of this regimen.\n")
	return Prompt{System: drugInteractionSystemPrompt, User: sb.String()}
}

// LabSignificance builds the prompt asking for the combined clinical meaning
// of a set of abnormal lab findings.
func LabSignificance(abnormalities []schemas.LabAbnormality) Prompt {
	var sb strings.Builder
	sb.WriteString("ABNORMAL LABORATORY FINDINGS:\n")
	if len(abnormalities) == 0 {
		sb.WriteString("- " + notAvailable + "\n")
	}
	for _, ab := range abnormalities {
		sb.WriteString(fmt.Sprintf("- %s: %.2f %s (reference %.2f-%.2f, trend %s",
			ab.TestName, ab.Value, ab.Unit, ab.ReferenceLow, ab.ReferenceHigh, ab.Trend))
		if ab.Critical {
			sb.WriteString(", CRITICAL")
		}
		sb.WriteString(")\n")
	}
	sb.WriteString("\nExplain the combined clinical significance of these findings.\n")
	return Prompt{System: labSystemPrompt, User: sb.String()}
}

// Summary builds the narrative patient summary prompt.
func Summary(ctx schemas.ClinicalContext) Prompt {
	var sb strings.Builder
	sb.WriteString(RenderContext(ctx))
	sb.WriteString("\nSummarize this patient presentation.\n")
	return Prompt{System: summarySystemPrompt, User: sb.String()}
}

func renderDemographics(d schemas.Demographics) string {
	var sb strings.Builder
	if d.Age > 0 {
		sb.WriteString(fmt.Sprintf("- Age: %d years\n", d.Age))
	} else {
		sb.WriteString("- Age: " + notAvailable + "\n")
	}
	if d.Sex != "" {
		sb.WriteString("- Sex: " + d.Sex + "\n")
	} else {
		sb.WriteString("- Sex: " + notAvailable + "\n")
	}
	if d.BMI > 0 {
		sb.WriteString(fmt.Sprintf("- BMI: %.1f\n", d.BMI))
	}
	if d.SmokingStatus != "" {
		sb.WriteString("- Smoking: " + d.SmokingStatus + "\n")
	}
	if len(d.Comorbidities) > 0 {
		sb.WriteString("- Comorbidities: " + strings.Join(d.Comorbidities, ", ") + "\n")
	} else {
		sb.WriteString("- Comorbidities: none recorded\n")
	}
	return sb.String()
}

func renderList(items []string) string {
	if len(items) == 0 {
		return "- " + notAvailable + "\n"
	}
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- " + item + "\n")
	}
	return sb.String()
}

func renderVitals(vitals map[string]schemas.VitalSign) string {
	if len(vitals) == 0 {
		return "- " + notAvailable + "\n"
	}
	var sb strings.Builder
	for _, name := range sortedKeys(vitals) {
		v := vitals[name]
		if v.Unit != "" {
			sb.WriteString(fmt.Sprintf("- %s: %s %s\n", name, v.Value, v.Unit))
		} else {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", name, v.Value))
		}
	}
	return sb.String()
}

func renderStringMap(m map[string]string) string {
	if len(m) == 0 {
		return "- " + notAvailable + "\n"
	}
	var sb strings.Builder
	for _, k := range sortedKeys(m) {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", k, m[k]))
	}
	return sb.String()
}

func renderLabs(labs map[string][]schemas.LabResult) string {
	if len(labs) == 0 {
		return "- " + notAvailable + "\n"
	}
	var sb strings.Builder
	for _, test := range sortedKeys(labs) {
		series := labs[test]
		if len(series) == 0 {
			continue
		}
		latest := series[len(series)-1]
		sb.WriteString(fmt.Sprintf("- %s: %.2f %s (reference %.2f-%.2f)\n",
			test, latest.Value, latest.Unit, latest.ReferenceLow, latest.ReferenceHigh))
	}
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
