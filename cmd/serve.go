// cmd/serve.go
package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/meditrek/clinpilot/internal/httpapi"
	"github.com/meditrek/clinpilot/internal/observability"
	"github.com/meditrek/clinpilot/internal/store"
)

// newServeCmd creates the `serve` command.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the REST API exposing the clinical engines",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			appConfig.Server.Listen = viper.GetString("server.listen")

			s, err := buildStack(logger)
			if err != nil {
				return err
			}

			// The patient context endpoint is optional; it needs a database.
			var patients *store.PatientStore
			if appConfig.Database.URL != "" {
				var closeFn func()
				patients, closeFn, err = openPatientStore(ctx, logger)
				if err != nil {
					return err
				}
				defer closeFn()
			}

			srv := httpapi.NewServer(appConfig.Server, s.Router, httpapi.Engines{
				Diagnosis:    s.Diagnosis,
				Treatment:    s.Treatment,
				Interactions: s.Interactions,
				Labs:         s.Labs,
				Summary:      s.Summary,
			}, patients, logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("Shutdown signal received, draining requests")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Graceful shutdown failed", zap.Error(err))
					return err
				}
				return nil
			}
		},
	}

	serveCmd.Flags().String("listen", ":8080", "address to listen on")

	return serveCmd
}
