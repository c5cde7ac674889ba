// cmd/summarize.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/meditrek/clinpilot/internal/observability"
)

// newSummarizeCmd creates the `summarize` command.
func newSummarizeCmd() *cobra.Command {
	var (
		contextFile string
		patientID   string
	)

	summarizeCmd := &cobra.Command{
		Use:   "summarize",
		Short: "Produces a narrative case summary for a patient",
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

			summary, err := s.Summary.Summarize(ctx, *cc)
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	}

	summarizeCmd.Flags().StringVar(&contextFile, "context", "", "path to a JSON clinical context file")
	summarizeCmd.Flags().StringVar(&patientID, "patient", "", "patient identifier (TCKN) to load from the record database")

	return summarizeCmd
}
