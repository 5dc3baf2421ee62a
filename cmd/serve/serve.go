// Package serve implements the serve command.
package serve

import (
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/sharksmhi/ctdstations/internal/api"
	"github.com/sharksmhi/ctdstations/internal/app"
	"github.com/sharksmhi/ctdstations/internal/conf"
	"github.com/sharksmhi/ctdstations/internal/logger"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve station queries over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := app.Open(ctx, settings)
			if err != nil {
				return err
			}
			defer a.Close()

			server := api.New(a.Resolver,
				api.WithLogger(logger.Global().Module("api")),
				api.WithMetrics(a.Metrics),
				api.WithRateLimit(rate.Limit(settings.WebServer.RateLimit), settings.WebServer.RateBurst))
			return server.Start(ctx, settings.WebServer.Listen)
		},
	}
	cmd.Flags().StringVar(&settings.WebServer.Listen, "listen", settings.WebServer.Listen, "Address to listen on")
	return cmd
}
