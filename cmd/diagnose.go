// cmd/diagnose.go
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/meditrek/clinpilot/internal/observability"
)

// newDiagnoseCmd creates the `diagnose` command.
func newDiagnoseCmd() *cobra.Command {
	var (
		contextFile string
		patientID   string
	)

	diagnoseCmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Generates a ranked differential diagnosis for a patient",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("engine.max_diagnoses", cmd.Flags().Lookup("max")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			appConfig.Engine.MaxDiagnoses = viper.GetInt("engine.max_diagnoses")

			cc, err := loadClinicalContext(ctx, contextFile, patientID)
			if err != nil {
				return err
			}

			s, err := buildStack(logger)
			if err != nil {
				return err
			}

			report, err := s.Diagnosis.Generate(ctx, *cc)
			if err != nil {
				return err
			}

			logger.Debug("Diagnosis complete",
				zap.String("patient_id", cc.PatientID),
				zap.Int("suggestions", len(report.Suggestions)),
			)
			return printJSON(report)
		},
	}

	diagnoseCmd.Flags().StringVar(&contextFile, "context", "", "path to a JSON clinical context file")
	diagnoseCmd.Flags().StringVar(&patientID, "patient", "", "patient identifier (TCKN) to load from the record database")
	diagnoseCmd.Flags().Int("max", 0, "cap the differential list (0 = unlimited)")

	return diagnoseCmd
}
