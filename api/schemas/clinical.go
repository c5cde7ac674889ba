// api/schemas/clinical.go
package schemas

// Urgency grades how quickly a differential diagnosis needs action.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyMajor    Urgency = "major"
	UrgencyModerate Urgency = "moderate"
	UrgencyMinor    Urgency = "minor"
)

// urgencyRanks defines the total order used for tie-breaking and red flag checks.
var urgencyRanks = map[Urgency]int{
	UrgencyCritical: 4,
	UrgencyMajor:    3,
	UrgencyModerate: 2,
	UrgencyMinor:    1,
}

// Rank returns the numeric severity of the urgency, higher is more urgent.
// Unknown values rank 0, below every defined level.
func (u Urgency) Rank() int { return urgencyRanks[u] }

// Valid reports whether the urgency is one of the defined levels.
func (u Urgency) Valid() bool { return urgencyRanks[u] != 0 }

// InteractionSeverity grades a drug-drug interaction. The order is total:
// critical > major > moderate > minor.
type InteractionSeverity string

const (
	SeverityCritical InteractionSeverity = "critical"
	SeverityMajor    InteractionSeverity = "major"
	SeverityModerate InteractionSeverity = "moderate"
	SeverityMinor    InteractionSeverity = "minor"
)

var severityRanks = map[InteractionSeverity]int{
	SeverityCritical: 4,
	SeverityMajor:    3,
	SeverityModerate: 2,
	SeverityMinor:    1,
}

// Rank returns the numeric severity, higher is more dangerous.
func (s InteractionSeverity) Rank() int { return severityRanks[s] }

// Valid reports whether the severity is one of the defined levels.
func (s InteractionSeverity) Valid() bool { return severityRanks[s] != 0 }

// TrendDirection describes the movement of a lab series over time.
type TrendDirection string

const (
	TrendIncreasing       TrendDirection = "increasing"
	TrendDecreasing       TrendDirection = "decreasing"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// VitalSign is a single measured vital (e.g. blood pressure, heart rate).
type VitalSign struct {
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
}

// LabResult is one laboratory observation with its reference range.
type LabResult struct {
	Value          float64 `json:"value"`
	Unit           string  `json:"unit"`
	ReferenceLow   float64 `json:"reference_low"`
	ReferenceHigh  float64 `json:"reference_high"`
	ObservedAtUnix int64   `json:"observed_at,omitempty"`
}

// Demographics carries the patient-level attributes used in prompts.
type Demographics struct {
	Age           int      `json:"age"`
	Sex           string   `json:"sex"`
	BMI           float64  `json:"bmi,omitempty"`
	SmokingStatus string   `json:"smoking_status,omitempty"`
	Comorbidities []string `json:"comorbidities,omitempty"`
}

// ClinicalContext is the immutable snapshot of patient state handed to the
// engines. It is assembled by the store (or an external caller) and never
// mutated by the core; engines only read from it.
type ClinicalContext struct {
	PatientID       string                 `json:"patient_id"` // TCKN in the source domain
	Demographics    Demographics           `json:"demographics"`
	ChiefComplaints []string               `json:"chief_complaints"`
	VitalSigns      map[string]VitalSign   `json:"vital_signs,omitempty"`
	PhysicalExam    map[string]string      `json:"physical_exam,omitempty"`
	LabResults      map[string][]LabResult `json:"lab_results,omitempty"`
	PastDiagnoses   []string               `json:"past_diagnoses,omitempty"`
	Medications     []string               `json:"medications,omitempty"`
	Allergies       []string               `json:"allergies,omitempty"`
}

// DifferentialDiagnosis is one entry of a ranked differential list.
type DifferentialDiagnosis struct {
	Diagnosis          string   `json:"diagnosis"`
	ICD10Code          string   `json:"icd10"`
	Probability        float64  `json:"probability"` // always within [0,1] after validation
	Urgency            Urgency  `json:"urgency"`
	SupportingFindings []string `json:"supporting_findings,omitempty"`
	Reasoning          string   `json:"reasoning,omitempty"`
	RecommendedTests   []string `json:"recommended_tests,omitempty"`
}

// DiagnosisReport is the full output of the diagnosis engine.
type DiagnosisReport struct {
	Suggestions []DifferentialDiagnosis `json:"suggestions"`
	RedFlags    []string                `json:"red_flags,omitempty"`
	Provider    string                  `json:"provider"`
	Model       string                  `json:"model"`
}

// Medication is a single prescription line of a treatment plan.
type Medication struct {
	Name     string `json:"name"`
	Dosage   string `json:"dosage"`
	Duration string `json:"duration"`
	// Contraindicated marks a medication removed by the allergy post-filter.
	// The entry stays in the plan for auditability.
	Contraindicated bool   `json:"contraindicated,omitempty"`
	Note            string `json:"note,omitempty"`
}

// Consultation is a specialist referral recommendation.
type Consultation struct {
	Specialty string `json:"specialty"`
	Urgency   string `json:"urgency,omitempty"`
}

// TreatmentPlan is the structured output of the treatment engine.
type TreatmentPlan struct {
	Diagnosis     string         `json:"diagnosis"`
	Medications   []Medication   `json:"medications"`
	Lifestyle     []string       `json:"lifestyle,omitempty"`
	FollowUp      string         `json:"follow_up,omitempty"`
	Consultations []Consultation `json:"consultations,omitempty"`
	Provider      string         `json:"provider,omitempty"`
}

// FindingSource tells whether an interaction finding came from the local
// reference matrix or was inferred by an AI provider.
type FindingSource string

const (
	SourceReference FindingSource = "reference"
	SourceInferred  FindingSource = "inferred"
)

// DrugInteractionFinding describes one pairwise interaction.
type DrugInteractionFinding struct {
	DrugA        string              `json:"drug_a"`
	DrugB        string              `json:"drug_b"`
	Type         string              `json:"type,omitempty"`
	Severity     InteractionSeverity `json:"severity"`
	Effect       string              `json:"effect"`
	Management   string              `json:"management,omitempty"`
	Alternatives []string            `json:"alternatives,omitempty"`
	Source       FindingSource       `json:"source"`
}

// AllergyWarning flags a medication matching a recorded patient allergy.
type AllergyWarning struct {
	Drug         string `json:"drug"`
	Allergen     string `json:"allergen"`
	Significance string `json:"significance,omitempty"`
}

// InteractionReport is the full output of the drug interaction checker.
type InteractionReport struct {
	Findings                 []DrugInteractionFinding `json:"findings"`
	AllergyWarnings          []AllergyWarning         `json:"allergy_warnings,omitempty"`
	RequiresPharmacistReview bool                     `json:"requires_pharmacist_review"`
}

// LabAbnormality describes one out-of-range or trending lab series.
type LabAbnormality struct {
	TestName       string         `json:"test_name"`
	Value          float64        `json:"value"`
	Unit           string         `json:"unit"`
	ReferenceLow   float64        `json:"reference_low"`
	ReferenceHigh  float64        `json:"reference_high"`
	Deviation      float64        `json:"deviation"` // distance from the nearest reference bound
	Trend          TrendDirection `json:"trend"`
	Critical       bool           `json:"critical"`
	SampleSize     int            `json:"sample_size"`
	SlopePerSample float64        `json:"slope_per_sample"`
}

// LabReport is the full output of the lab analyzer.
type LabReport struct {
	Abnormalities []LabAbnormality `json:"abnormalities"`
	AnalyzedTests int              `json:"analyzed_tests"`
	Narrative     string           `json:"narrative,omitempty"`
}

// PatientSummary is the output of the summarizer engine.
type PatientSummary struct {
	PatientID string `json:"patient_id"`
	Summary   string `json:"summary"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
}
