// cmd/helpers.go
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/meditrek/clinpilot/api/schemas"
	"github.com/meditrek/clinpilot/internal/clinical"
	"github.com/meditrek/clinpilot/internal/observability"
	"github.com/meditrek/clinpilot/internal/provider"
	"github.com/meditrek/clinpilot/internal/router"
	"github.com/meditrek/clinpilot/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// stack bundles the fully wired core: one router plus every engine. Built per
// command invocation; nothing here holds background goroutines.
type stack struct {
	Router       *router.AIRouter
	Diagnosis    *clinical.DiagnosisEngine
	Treatment    *clinical.TreatmentEngine
	Interactions *clinical.DrugInteractionChecker
	Labs         *clinical.LabAnalyzer
	Summary      *clinical.PatientSummarizer
}

// buildStack wires the provider registry, routing policy, router and engines
// from the loaded configuration.
func buildStack(logger *zap.Logger) (*stack, error) {
	registry, err := provider.BuildRegistry(appConfig.Providers, logger)
	if err != nil {
		return nil, err
	}

	policy, err := router.NewRoutingPolicy(appConfig.Routing, appConfig.Providers)
	if err != nil {
		return nil, err
	}

	r, err := router.NewAIRouter(policy, registry, logger)
	if err != nil {
		return nil, err
	}

	return &stack{
		Router:       r,
		Diagnosis:    clinical.NewDiagnosisEngine(r, appConfig.Engine, logger),
		Treatment:    clinical.NewTreatmentEngine(r, appConfig.Engine, logger),
		Interactions: clinical.NewDrugInteractionChecker(r, appConfig.Engine, logger),
		Labs:         clinical.NewLabAnalyzer(r, appConfig.Engine, logger),
		Summary:      clinical.NewPatientSummarizer(r, appConfig.Engine, logger),
	}, nil
}

// openPatientStore connects to the configured record database. Returns the
// store plus a close function.
func openPatientStore(ctx context.Context, logger *zap.Logger) (*store.PatientStore, func(), error) {
	if appConfig.Database.URL == "" {
		return nil, nil, fmt.Errorf("no database configured; set database.url or pass --context")
	}
	pool, err := pgxpool.New(ctx, appConfig.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to record database: %w", err)
	}
	return store.New(pool, logger), pool.Close, nil
}

// loadClinicalContext resolves the patient context for a command: from a JSON
// file when --context is given, from the record database when --patient is.
func loadClinicalContext(ctx context.Context, contextFile, patientID string) (*schemas.ClinicalContext, error) {
	switch {
	case contextFile != "":
		data, err := os.ReadFile(contextFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read context file: %w", err)
		}
		var cc schemas.ClinicalContext
		if err := json.Unmarshal(data, &cc); err != nil {
			return nil, fmt.Errorf("failed to parse context file: %w", err)
		}
		return &cc, nil

	case patientID != "":
		patients, closeFn, err := openPatientStore(ctx, observability.GetLogger())
		if err != nil {
			return nil, err
		}
		defer closeFn()
		return patients.GetClinicalContext(ctx, patientID)

	default:
		return nil, fmt.Errorf("either --context or --patient is required")
	}
}

// printJSON writes the result to stdout as indented JSON.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
