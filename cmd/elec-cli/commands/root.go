package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"elecharvest/internal/application"
	"elecharvest/internal/components/telemetry"
	"elecharvest/lib/serviceutil"
	libtelemetry "elecharvest/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool

	otel libtelemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "elec-cli",
	Short: "elec-cli harvests dormitory electricity usage from the campus metering site.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		libtelemetry.InitSlog(*verbose)

		var err error
		otel, err = libtelemetry.SetupFromEnv(cmd.Context(), "elec-cli")
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no telemetry.json5 found, traces and metrics are disabled")
		} else if err != nil {
			slog.Warn("setup telemetry", "err", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := otel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("shutdown telemetry", "err", err)
		}
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().StringP("config", "c", "elec.json5", "The config file, a .local variant next to it overrides it.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadApp() application.App {
	cfg, err := application.LoadConfig(*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	app, err := application.New(cfg, telemetry.SlogAPI{})
	if err != nil {
		serviceutil.Fatal("failed to initialize", err)
	}
	return app
}
