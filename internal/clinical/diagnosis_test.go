// internal/clinical/diagnosis_test.go
package clinical

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/meditrek/clinpilot/api/schemas"
	"github.com/meditrek/clinpilot/internal/aiparse"
	"github.com/meditrek/clinpilot/internal/config"
	"github.com/meditrek/clinpilot/internal/router"
)

func testCC() schemas.ClinicalContext {
	return schemas.ClinicalContext{
		PatientID:       "12345678901",
		ChiefComplaints: []string{"abdominal pain"},
	}
}

func TestDiagnosisGenerateSortsByProbability(t *testing.T) {
	// Provider returns entries out of order; the engine must rank them.
	r := &fakeRouter{content: `[
		{"diagnosis": "Gastroenteritis", "icd10": "A09", "probability": 0.2, "urgency": "minor"},
		{"diagnosis": "Acute appendicitis", "icd10": "K35.80", "probability": 0.6, "urgency": "major"},
		{"diagnosis": "Mesenteric adenitis", "icd10": "I88.0", "probability": 0.15, "urgency": "moderate"}
	]`}

	engine := NewDiagnosisEngine(r, config.EngineConfig{}, zaptest.NewLogger(t))
	report, err := engine.Generate(context.Background(), testCC())
	require.NoError(t, err)

	require.Len(t, report.Suggestions, 3)
	assert.Equal(t, []float64{0.6, 0.2, 0.15}, []float64{
		report.Suggestions[0].Probability,
		report.Suggestions[1].Probability,
		report.Suggestions[2].Probability,
	})
	assert.Equal(t, "Acute appendicitis", report.Suggestions[0].Diagnosis)
	assert.Equal(t, "fake", report.Provider)

	// Critical clinical decisions always ride the complex tier.
	assert.Equal(t, schemas.TierComplex, r.lastTier)
	assert.True(t, r.lastReq.Options.ForceJSON)
}

func TestDiagnosisGenerateUrgencyBreaksTies(t *testing.T) {
	r := &fakeRouter{content: `[
		{"diagnosis": "Benign condition", "icd10": "X1", "probability": 0.4, "urgency": "minor"},
		{"diagnosis": "Dangerous condition", "icd10": "X2", "probability": 0.4, "urgency": "critical"}
	]`}

	engine := NewDiagnosisEngine(r, config.EngineConfig{}, zaptest.NewLogger(t))
	report, err := engine.Generate(context.Background(), testCC())
	require.NoError(t, err)

	assert.Equal(t, "Dangerous condition", report.Suggestions[0].Diagnosis)
}

func TestDiagnosisGenerateRedFlags(t *testing.T) {
	r := &fakeRouter{content: `[
		{"diagnosis": "Pulmonary embolism", "icd10": "I26", "probability": 0.3, "urgency": "critical"},
		{"diagnosis": "Costochondritis", "icd10": "M94.0", "probability": 0.5, "urgency": "minor"}
	]`}

	engine := NewDiagnosisEngine(r, config.EngineConfig{}, zaptest.NewLogger(t))
	report, err := engine.Generate(context.Background(), testCC())
	require.NoError(t, err)

	require.NotEmpty(t, report.RedFlags)
	joined := ""
	for _, f := range report.RedFlags {
		joined += f + "\n"
	}
	assert.Contains(t, joined, "Pulmonary embolism")
	assert.NotContains(t, joined, "Costochondritis")
}

func TestDiagnosisGenerateCapsResults(t *testing.T) {
	r := &fakeRouter{content: `[
		{"diagnosis": "A", "icd10": "1", "probability": 0.5, "urgency": "minor"},
		{"diagnosis": "B", "icd10": "2", "probability": 0.3, "urgency": "minor"},
		{"diagnosis": "C", "icd10": "3", "probability": 0.2, "urgency": "minor"}
	]`}

	engine := NewDiagnosisEngine(r, config.EngineConfig{MaxDiagnoses: 2}, zaptest.NewLogger(t))
	report, err := engine.Generate(context.Background(), testCC())
	require.NoError(t, err)

	require.Len(t, report.Suggestions, 2)
	// The cap keeps the highest ranked entries.
	assert.Equal(t, "A", report.Suggestions[0].Diagnosis)
	assert.Equal(t, "B", report.Suggestions[1].Diagnosis)
}

func TestDiagnosisGenerateExhaustedChain(t *testing.T) {
	r := &fakeRouter{err: &router.ExhaustedFallbackError{Tier: schemas.TierComplex}}

	engine := NewDiagnosisEngine(r, config.EngineConfig{}, zaptest.NewLogger(t))
	_, err := engine.Generate(context.Background(), testCC())
	require.Error(t, err)

	var unavailable *AnalysisUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, schemas.OpDiagnosis, unavailable.Operation)

	var exhausted *router.ExhaustedFallbackError
	assert.ErrorAs(t, err, &exhausted)
}

func TestDiagnosisGenerateMalformedContentIsNotRetried(t *testing.T) {
	r := &fakeRouter{content: "I think the patient has appendicitis but cannot give JSON."}

	engine := NewDiagnosisEngine(r, config.EngineConfig{}, zaptest.NewLogger(t))
	_, err := engine.Generate(context.Background(), testCC())
	require.Error(t, err)

	// Content failure surfaces as-is and the router is consulted exactly once.
	var malformed *aiparse.MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	var unavailable *AnalysisUnavailableError
	assert.False(t, errors.As(err, &unavailable))
	assert.EqualValues(t, 1, r.calls.Load())
}
