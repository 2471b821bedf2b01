package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/petterhs/wakesleepmanager/internal/repository/registry"
	"github.com/petterhs/wakesleepmanager/internal/service/devices"
	"github.com/petterhs/wakesleepmanager/internal/service/status"
)

var (
	// addOpts collects the flag values for `wake add`.
	addOpts devices.AddOptions
	// editOpts collects the flag values for `wake edit`.
	editName, editMAC, editIP, editHostname, editBroadcast string

	// listCmd prints the device registry.
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "List all configured devices.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return devices.List(cmd.Context(), &devices.Options{ConfigPath: configPath})
		},
	}

	// statusCmd probes reachability of one or all devices.
	statusCmd = &cobra.Command{
		Use:   "status [device]",
		Short: "Check which devices are awake.",
		Long: `Probe the reachability of one or all devices with a bounded echo
request and report each as Awake or Sleeping. A device that does not
answer may be asleep, powered off, or unreachable; the probe cannot
tell these apart.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var deviceName string
			if len(args) > 0 {
				deviceName = args[0]
			}

			return status.Run(ctx, &status.Options{
				ConfigPath: configPath,
				DeviceName: deviceName,
			})
		},
	}

	// addCmd registers a new device.
	addCmd = &cobra.Command{
		Use:   "add [name]",
		Short: "Add a device to the registry.",
		Long: `Add a device to the registry. Fields not provided as flags are
prompted for interactively; with --scan the local network is searched
and a discovered device can be picked instead of typing addresses.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				addOpts.Name = args[0]
			}

			addOpts.ConfigPath = configPath

			return devices.Add(cmd.Context(), &addOpts)
		},
	}

	// editCmd updates fields of an existing device.
	editCmd = &cobra.Command{
		Use:   "edit <name>",
		Short: "Edit an existing device.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fields registry.Fields

			// Only flags the user actually set become updates.
			if cmd.Flags().Changed("name") {
				fields.Name = &editName
			}

			if cmd.Flags().Changed("mac") {
				fields.MACAddress = &editMAC
			}

			if cmd.Flags().Changed("ip") {
				fields.IPAddress = &editIP
			}

			if cmd.Flags().Changed("hostname") {
				fields.Hostname = &editHostname
			}

			if cmd.Flags().Changed("broadcast") {
				fields.Broadcast = &editBroadcast
			}

			return devices.Edit(cmd.Context(), &devices.EditOptions{
				Options: devices.Options{ConfigPath: configPath},
				Name:    args[0],
				Fields:  fields,
			})
		},
	}

	// removeCmd deletes a device from the registry.
	removeCmd = &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a device from the registry.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return devices.Remove(cmd.Context(), &devices.Options{ConfigPath: configPath}, args[0])
		},
	}

	// scanCmd lists devices discovered on the local network segment.
	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Scan the local network for devices.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return devices.Scan(cmd.Context(), &devices.Options{ConfigPath: configPath})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	addCmd.Flags().StringVar(&addOpts.MACAddress, "mac", "", "MAC address of the device")
	addCmd.Flags().StringVar(&addOpts.IPAddress, "ip", "", "IP address, needed for sleep and status")
	addCmd.Flags().StringVar(&addOpts.Hostname, "hostname", "", "DNS name of the device")
	addCmd.Flags().StringVar(&addOpts.Broadcast, "broadcast", "", "directed broadcast address for wake packets")
	addCmd.Flags().BoolVar(&addOpts.UseScan, "scan", false, "pick the device from a network scan")

	editCmd.Flags().StringVar(&editName, "name", "", "new device name")
	editCmd.Flags().StringVar(&editMAC, "mac", "", "new MAC address")
	editCmd.Flags().StringVar(&editIP, "ip", "", "new IP address")
	editCmd.Flags().StringVar(&editHostname, "hostname", "", "new DNS name")
	editCmd.Flags().StringVar(&editBroadcast, "broadcast", "", "new directed broadcast address")

	rootCmd.AddCommand(listCmd, statusCmd, addCmd, editCmd, removeCmd, scanCmd)
}
