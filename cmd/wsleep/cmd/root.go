package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petterhs/wakesleepmanager/internal/logger"
	"github.com/petterhs/wakesleepmanager/internal/service/devices"
	"github.com/petterhs/wakesleepmanager/internal/service/sleep"
	"github.com/petterhs/wakesleepmanager/internal/version"
)

var (
	// configPath stores the path to the settings YAML file.
	configPath string
	// logLevel controls logger verbosity for all subcommands.
	logLevel string
	// sshOpts collects the flag values for `wsleep add`.
	sshOpts devices.SSHOptions

	// rootCmd represents the base command for putting devices to sleep.
	rootCmd = &cobra.Command{
		Use:   "wsleep [device]",
		Short: "Put network devices to sleep over SSH.",
		Long: `Put devices to sleep by opening an SSH session and issuing the
platform's suspend command. The remote OS is detected automatically;
Linux, macOS and Windows targets are supported.

If a device name is provided, that device is put to sleep; "all" (or no
argument) targets every registered device. Devices that do not answer a
reachability probe are assumed to be sleeping already and skipped.

A device needs an IP address and SSH credentials before it can be put
to sleep; configure them with 'wsleep add <name>'.`,
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

			return sleep.Run(ctx, &sleep.Options{
				ConfigPath: configPath,
				DeviceName: deviceName,
			})
		},
	}

	// addCmd configures SSH parameters on an existing device.
	addCmd = &cobra.Command{
		Use:   "add <name>",
		Short: "Configure SSH parameters for a device.",
		Long: `Store the SSH credentials the sleep action uses to reach a device.
Missing values are prompted for; a private key path takes precedence
over a password.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sshOpts.ConfigPath = configPath
			sshOpts.Name = args[0]

			return devices.ConfigureSSH(cmd.Context(), &sshOpts)
		},
	}
)

// Execute runs the wsleep CLI and exits with non-zero status on error.
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

	addCmd.Flags().StringVar(&sshOpts.Host, "host", "", "IP address of the device")
	addCmd.Flags().StringVar(&sshOpts.Username, "user", "", "SSH username")
	addCmd.Flags().StringVar(&sshOpts.Password, "password", "", "SSH password")
	addCmd.Flags().StringVar(&sshOpts.KeyPath, "key", "", "path to an SSH private key")

	rootCmd.AddCommand(addCmd)
}
