// cmd/providers.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/meditrek/clinpilot/internal/observability"
)

// newProvidersCmd creates the `providers` command.
func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Probes every configured AI provider and reports reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := buildStack(observability.GetLogger())
			if err != nil {
				return err
			}

			results := s.Router.HealthCheckAll(ctx)
			return printJSON(results)
		},
	}
}
