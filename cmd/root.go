package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharksmhi/ctdstations/cmd/query"
	"github.com/sharksmhi/ctdstations/cmd/serve"
	"github.com/sharksmhi/ctdstations/internal/buildinfo"
	"github.com/sharksmhi/ctdstations/internal/conf"
	"github.com/sharksmhi/ctdstations/internal/errors"
	"github.com/sharksmhi/ctdstations/internal/logger"
)

// Execute runs the command line with args. The central logger is closed
// however the command ends; a failing command is logged at debug level first.
func Execute(ctx context.Context, settings *conf.Settings, build *buildinfo.Context, args []string) error {
	rootCmd, closeLogger := newRootCommand(settings, build)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		logger.Global().Module("cmd").Debug("Command failed", logger.Error(err))
	}
	return errors.Join(err, closeLogger())
}

// RootCommand creates and returns the root command. The logger it opens is
// closed after a successful run; use Execute to also close it on failure.
func RootCommand(settings *conf.Settings, build *buildinfo.Context) *cobra.Command {
	rootCmd, closeLogger := newRootCommand(settings, build)
	rootCmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		return closeLogger()
	}
	return rootCmd
}

func newRootCommand(settings *conf.Settings, build *buildinfo.Context) (*cobra.Command, func() error) {
	rootCmd := &cobra.Command{
		Use:           "ctdstations",
		Short:         "Station reference and proximity resolution",
		Version:       build.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(query.Commands(settings, nil)...)
	rootCmd.AddCommand(serve.Command(settings))

	var central *logger.CentralLogger
	rootCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		var err error
		central, err = initialize(settings, build)
		return err
	}
	closeLogger := func() error {
		if central == nil {
			return nil
		}
		if logger.Global() == central {
			logger.SetGlobal(nil)
		}
		err := central.Close()
		central = nil
		return err
	}

	return rootCmd, closeLogger
}

// initialize is called before any subcommand runs, after flags are parsed.
// It sets up the global logger and optional error telemetry.
func initialize(settings *conf.Settings, build *buildinfo.Context) (*logger.CentralLogger, error) {
	central, err := logger.NewCentralLogger(settings.LoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(central)

	if settings.Telemetry.Enabled {
		if err := errors.InitSentry(settings.Telemetry.DSN, build.Release()); err != nil {
			return central, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
	}
	return central, nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	flags.StringVar(&settings.Stations.BackupPath, "backup", settings.Stations.BackupPath, "Backup station file")
	flags.StringVar(&settings.Stations.PrimaryURL, "primary-url", settings.Stations.PrimaryURL, "Published station file URL")
	flags.BoolVar(&settings.Stations.RefreshPrimary, "refresh", settings.Stations.RefreshPrimary, "Download the primary station file before loading")
	flags.BoolVar(&settings.Stations.DecimalQueries, "decimal", settings.Stations.DecimalQueries, "Read query coordinates as decimal degrees")
	flags.StringVar(&settings.Stations.FilterFile, "filter", settings.Stations.FilterFile, "Station filter file")
}
