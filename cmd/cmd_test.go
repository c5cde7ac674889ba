// cmd/cmd_test.go
package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditrek/clinpilot/api/schemas"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	expected := []string{"diagnose", "treat", "drug-check", "labs", "summarize", "providers", "serve"}
	registered := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		registered[c.Name()] = true
	}
	for _, name := range expected {
		assert.True(t, registered[name], "subcommand %s not registered", name)
	}
}

func TestRootCommandHasConfigFlag(t *testing.T) {
	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestLoadClinicalContextFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"patient_id": "12345678901",
		"chief_complaints": ["chest pain"],
		"allergies": ["penicillin"]
	}`), 0o600))

	cc, err := loadClinicalContext(t.Context(), path, "")
	require.NoError(t, err)

	assert.Equal(t, "12345678901", cc.PatientID)
	assert.Equal(t, []string{"chest pain"}, cc.ChiefComplaints)
	assert.Equal(t, []string{"penicillin"}, cc.Allergies)
}

func TestLoadClinicalContextRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := loadClinicalContext(t.Context(), path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse context file")
}

func TestLoadClinicalContextRequiresSource(t *testing.T) {
	_, err := loadClinicalContext(t.Context(), "", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either --context or --patient")
}

func TestPrintJSON(t *testing.T) {
	// printJSON must handle every report type the commands emit.
	require.NoError(t, printJSON(&schemas.DiagnosisReport{Provider: "ollama"}))
	require.NoError(t, printJSON(map[string]bool{"ollama": true}))
}
