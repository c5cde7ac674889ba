// cmd/labs.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/meditrek/clinpilot/internal/observability"
)

// newLabsCmd creates the `labs` command.
func newLabsCmd() *cobra.Command {
	var (
		contextFile string
		patientID   string
	)

	labsCmd := &cobra.Command{
		Use:   "labs",
		Short: "Analyzes lab series for abnormal values and trends",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cc, err := loadClinicalContext(ctx, contextFile, patientID)
			if err != nil {
				return err
			}

			s, err := buildStack(observability.GetLogger())
			if err != nil {
				return err
			}

			report, err := s.Labs.Analyze(ctx, *cc)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	labsCmd.Flags().StringVar(&contextFile, "context", "", "path to a JSON clinical context file")
	labsCmd.Flags().StringVar(&patientID, "patient", "", "patient identifier (TCKN) to load from the record database")

	return labsCmd
}
