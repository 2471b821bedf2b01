package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petterhs/wakesleepmanager/internal/logger"
	"github.com/petterhs/wakesleepmanager/internal/service/wake"
	"github.com/petterhs/wakesleepmanager/internal/version"
)

var (
	// configPath stores the path to the settings YAML file.
	configPath string
	// logLevel controls logger verbosity for all subcommands.
	logLevel string

	// rootCmd represents the base command for waking devices.
	rootCmd = &cobra.Command{
		Use:   "wake [device]",
		Short: "Wake network devices with Wake-on-LAN.",
		Long: `Wake up sleeping devices by broadcasting Wake-on-LAN magic packets.

If a device name is provided, that device is woken; "all" wakes every
registered device. Without arguments an interactive list of devices is
shown to choose from. Devices that already answer a reachability probe
are skipped.

Wake-on-LAN offers no acknowledgment: success means the packet was
sent, not that the device powered on.`,
		Args: cobra.MaximumNArgs(1),
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}
		},
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var deviceName string
			if len(args) > 0 {
				deviceName = args[0]
			}

			return wake.Run(ctx, &wake.Options{
				ConfigPath: configPath,
				DeviceName: deviceName,
			})
		},
	}
)

// Execute runs the wake CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to settings file (default ~/.config/wakesleepmanager/settings.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
}
