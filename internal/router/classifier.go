// internal/router/classifier.go
package router

import "github.com/meditrek/clinpilot/api/schemas"

// taskComplexity maps each clinical operation to the tier whose provider
// chain handles it. Simple work stays local, critical clinical decisions get
// the most capable chain.
var taskComplexity = map[schemas.Operation]schemas.ComplexityTier{
	// Simple tasks: basic summaries and stats.
	schemas.OpPatientSummary: schemas.TierSimple,
	schemas.OpBasicStats:     schemas.TierSimple,
	schemas.OpRecentVisits:   schemas.TierSimple,

	// Moderate tasks: analysis, but not critical decisions.
	schemas.OpLabTrend:      schemas.TierModerate,
	schemas.OpMedAdherence:  schemas.TierModerate,
	schemas.OpVisitPatterns: schemas.TierModerate,

	// Complex tasks: critical clinical decisions.
	schemas.OpDiagnosis:       schemas.TierComplex,
	schemas.OpTreatment:       schemas.TierComplex,
	schemas.OpDrugInteraction: schemas.TierComplex,
	schemas.OpRiskStrat:       schemas.TierComplex,
}

// Classify returns the complexity tier for an operation. It is total: unknown
// operations classify as complex, which fails safe toward the most capable
// and most resilient chain.
func Classify(op schemas.Operation) schemas.ComplexityTier {
	if tier, ok := taskComplexity[op]; ok {
		return tier
	}
	return schemas.TierComplex
}
