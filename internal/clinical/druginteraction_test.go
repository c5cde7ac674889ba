// internal/clinical/druginteraction_test.go
package clinical

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/meditrek/clinpilot/api/schemas"
	"github.com/meditrek/clinpilot/internal/config"
)

func newChecker(t *testing.T, r schemas.CompletionRouter) *DrugInteractionChecker {
	t.Helper()
	return NewDrugInteractionChecker(r, config.EngineConfig{}, zaptest.NewLogger(t))
}

func TestLookupPairIsSymmetric(t *testing.T) {
	c := newChecker(t, nil)

	forward, ok := c.LookupPair("warfarin", "ibuprofen")
	require.True(t, ok)
	reverse, ok := c.LookupPair("ibuprofen", "warfarin")
	require.True(t, ok)

	assert.Equal(t, forward.Severity, reverse.Severity)
	assert.Equal(t, forward.Effect, reverse.Effect)
	assert.Equal(t, schemas.SourceReference, forward.Source)
	assert.Equal(t, schemas.SeverityMajor, forward.Severity)
	assert.Contains(t, forward.Alternatives, "acetaminophen")
}

func TestLookupPairNormalizesCaseAndSpace(t *testing.T) {
	c := newChecker(t, nil)

	_, ok := c.LookupPair("  Warfarin ", "IBUPROFEN")
	assert.True(t, ok)
}

func TestLookupPairUnknown(t *testing.T) {
	c := newChecker(t, nil)

	_, ok := c.LookupPair("paracetamol", "vitamin c")
	assert.False(t, ok)
}

func TestCheckPairPrefersReferenceMatrix(t *testing.T) {
	// A scripted router that would answer if asked; the matrix hit must win
	// and the router must never be consulted.
	r := &fakeRouter{content: `{"interactions": []}`}
	c := newChecker(t, r)

	findings, err := c.CheckPair(context.Background(), "warfarin", "aspirin", nil, nil)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, schemas.SourceReference, findings[0].Source)
	assert.EqualValues(t, 0, r.calls.Load())
}

func TestCheckPairFallsBackToInference(t *testing.T) {
	r := &fakeRouter{content: `{
		"interactions": [
			{"drug_a": "warfarin", "drug_b": "fluconazole", "severity": "major",
			 "effect": "CYP2C9 inhibition raises INR", "management": "Monitor INR"}
		]
	}`}
	c := newChecker(t, r)

	findings, err := c.CheckPair(context.Background(), "warfarin", "fluconazole", []string{"warfarin", "fluconazole"}, nil)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	// Inference results are labeled so clinicians can weigh them differently.
	assert.Equal(t, schemas.SourceInferred, findings[0].Source)
	assert.Equal(t, schemas.TierComplex, r.lastTier)
	assert.True(t, r.lastReq.Options.ForceJSON)
}

func TestCheckPairNilRouterSkipsInference(t *testing.T) {
	c := newChecker(t, nil)

	findings, err := c.CheckPair(context.Background(), "paracetamol", "vitamin c", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestCheckRegimenSortsBySeverity(t *testing.T) {
	c := newChecker(t, nil)

	// warfarin+ibuprofen is major, simvastatin+clarithromycin is critical,
	// digoxin+furosemide is moderate. All from the local matrix.
	report, err := c.CheckRegimen(context.Background(),
		[]string{"warfarin", "ibuprofen", "simvastatin", "clarithromycin", "digoxin", "furosemide"}, nil)
	require.NoError(t, err)
	require.Len(t, report.Findings, 3)

	assert.Equal(t, schemas.SeverityCritical, report.Findings[0].Severity)
	assert.Equal(t, schemas.SeverityMajor, report.Findings[1].Severity)
	assert.Equal(t, schemas.SeverityModerate, report.Findings[2].Severity)
	assert.True(t, report.RequiresPharmacistReview)
}

func TestCheckRegimenModerateOnlyNeedsNoPharmacist(t *testing.T) {
	c := newChecker(t, nil)

	report, err := c.CheckRegimen(context.Background(), []string{"digoxin", "furosemide"}, nil)
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, schemas.SeverityModerate, report.Findings[0].Severity)
	assert.False(t, report.RequiresPharmacistReview)
}

func TestCheckRegimenAllergyWarnings(t *testing.T) {
	c := newChecker(t, nil)

	report, err := c.CheckRegimen(context.Background(),
		[]string{"amoxicillin", "paracetamol"}, []string{"penicillin"})
	require.NoError(t, err)

	require.Len(t, report.AllergyWarnings, 1)
	assert.Equal(t, "amoxicillin", report.AllergyWarnings[0].Drug)
	assert.Equal(t, "penicillin", report.AllergyWarnings[0].Allergen)
	// Any allergy conflict forces a pharmacist review regardless of findings.
	assert.True(t, report.RequiresPharmacistReview)
}

func TestCheckRegimenDeduplicatesPairs(t *testing.T) {
	c := newChecker(t, nil)

	report, err := c.CheckRegimen(context.Background(),
		[]string{"warfarin", "ibuprofen", "Warfarin"}, nil)
	require.NoError(t, err)

	// warfarin+ibuprofen appears once even though warfarin is listed twice.
	assert.Len(t, report.Findings, 1)
}

func TestSortFindingsIsStable(t *testing.T) {
	findings := []schemas.DrugInteractionFinding{
		{DrugA: "a", DrugB: "b", Severity: schemas.SeverityModerate},
		{DrugA: "c", DrugB: "d", Severity: schemas.SeverityCritical},
		{DrugA: "e", DrugB: "f", Severity: schemas.SeverityModerate},
	}
	SortFindings(findings)

	assert.Equal(t, schemas.SeverityCritical, findings[0].Severity)
	// Equal severities keep insertion order.
	assert.Equal(t, "a", findings[1].DrugA)
	assert.Equal(t, "e", findings[2].DrugA)
}

func TestCanonicalPair(t *testing.T) {
	assert.Equal(t, canonicalPair("Warfarin", "aspirin"), canonicalPair("ASPIRIN", "warfarin "))
	k := canonicalPair("b", "a")
	assert.Equal(t, "a", k.first)
	assert.Equal(t, "b", k.second)
}
