// cmd/drugcheck.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/meditrek/clinpilot/internal/observability"
)

// newDrugCheckCmd creates the `drug-check` command.
func newDrugCheckCmd() *cobra.Command {
	var allergies []string

	drugCheckCmd := &cobra.Command{
		Use:   "drug-check [medications...]",
		Short: "Checks a medication regimen for pairwise interactions",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := buildStack(observability.GetLogger())
			if err != nil {
				return err
			}

			report, err := s.Interactions.CheckRegimen(ctx, args, allergies)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	drugCheckCmd.Flags().StringSliceVar(&allergies, "allergy", nil, "recorded patient allergy (repeatable)")

	return drugCheckCmd
}
