// cmd/treat.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meditrek/clinpilot/internal/observability"
)

// newTreatCmd creates the `treat` command.
func newTreatCmd() *cobra.Command {
	var (
		contextFile string
		patientID   string
		diagnosis   string
	)

	treatCmd := &cobra.Command{
		Use:   "treat",
		Short: "Generates a treatment plan for a confirmed diagnosis",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if diagnosis == "" {
				return fmt.Errorf("--diagnosis is required")
			}

			cc, err := loadClinicalContext(ctx, contextFile, patientID)
			if err != nil {
				return err
			}

			s, err := buildStack(observability.GetLogger())
			if err != nil {
				return err
			}

			plan, err := s.Treatment.Generate(ctx, *cc, diagnosis)
			if err != nil {
				return err
			}
			return printJSON(plan)
		},
	}

	treatCmd.Flags().StringVar(&contextFile, "context", "", "path to a JSON clinical context file")
	treatCmd.Flags().StringVar(&patientID, "patient", "", "patient identifier (TCKN) to load from the record database")
	treatCmd.Flags().StringVar(&diagnosis, "diagnosis", "", "confirmed diagnosis to plan treatment for")

	return treatCmd
}
