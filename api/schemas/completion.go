// api/schemas/completion.go
package schemas

import "time"

// ComplexityTier classifies how demanding a clinical task is. The tier
// selects the provider chain the router walks.
type ComplexityTier string

const (
	TierSimple   ComplexityTier = "simple"
	TierModerate ComplexityTier = "moderate"
	TierComplex  ComplexityTier = "complex"
)

// Operation identifies the clinical task being requested. The classifier
// maps operations to complexity tiers.
type Operation string

const (
	OpPatientSummary  Operation = "patient_summary"
	OpBasicStats      Operation = "basic_stats"
	OpRecentVisits    Operation = "recent_visits"
	OpLabTrend        Operation = "lab_trend_analysis"
	OpMedAdherence    Operation = "medication_adherence"
	OpVisitPatterns   Operation = "visit_patterns"
	OpDiagnosis       Operation = "differential_diagnosis"
	OpTreatment       Operation = "treatment_planning"
	OpDrugInteraction Operation = "drug_interactions"
	OpRiskStrat       Operation = "risk_stratification"
)

// CompletionOptions tunes a single provider call.
type CompletionOptions struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	// ForceJSON asks providers that support it to constrain output to JSON.
	ForceJSON bool `json:"force_json,omitempty"`
}

// CompletionRequest is the provider-independent request shape. The router
// hands it unchanged to each adapter in the chain.
type CompletionRequest struct {
	SystemPrompt string            `json:"system_prompt,omitempty"`
	UserPrompt   string            `json:"user_prompt"`
	Options      CompletionOptions `json:"options"`
}

// CompletionResponse is the normalized provider reply.
type CompletionResponse struct {
	Content    string        `json:"content"`
	Model      string        `json:"model"`
	Provider   string        `json:"provider"`
	TokensUsed int           `json:"tokens_used,omitempty"`
	Latency    time.Duration `json:"latency_ms,omitempty"`
}

// ProviderAttempt records one exhausted provider during chain walking.
type ProviderAttempt struct {
	Provider string `json:"provider"`
	Attempts int    `json:"attempts"`
	Reason   string `json:"reason,omitempty"`
}

// RoutingDecision is the audit trail of a single Route call. Attempted grows
// strictly in chain order; FinalProvider is empty until a call succeeds.
type RoutingDecision struct {
	RequestID     string            `json:"request_id"`
	Tier          ComplexityTier    `json:"tier"`
	Chain         []string          `json:"chain"`
	Attempted     []ProviderAttempt `json:"attempted,omitempty"`
	FinalProvider string            `json:"final_provider,omitempty"`
}
