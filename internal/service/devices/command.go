package devices

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/petterhs/wakesleepmanager/internal/config"
	"github.com/petterhs/wakesleepmanager/internal/domain/device"
	"github.com/petterhs/wakesleepmanager/internal/logger"
	"github.com/petterhs/wakesleepmanager/internal/repository/registry"
	"github.com/petterhs/wakesleepmanager/internal/service/common"
	"github.com/petterhs/wakesleepmanager/internal/service/scan"
)

// Options carries the shared dependencies of the registry commands.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string

	// Repository overrides the file-backed registry, used in tests.
	Repository registry.Repository
	// Scanner overrides the ARP scanner, used in tests.
	Scanner scan.Network
	// In and Out override stdin/stdout for prompts and tables.
	In  io.Reader
	Out io.Writer
}

// AddOptions carries the fields of a new device. Empty fields are
// prompted for interactively.
type AddOptions struct {
	Options

	// Name is the registry key for the new device.
	Name string
	// MACAddress, IPAddress, Hostname and Broadcast fill the record.
	MACAddress string
	IPAddress  string
	Hostname   string
	Broadcast  string
	// UseScan offers discovered devices instead of manual address entry.
	UseScan bool
}

// EditOptions carries updates for an existing device. Nil field
// pointers leave the stored value untouched.
type EditOptions struct {
	Options

	// Name identifies the device to edit.
	Name string
	// Fields holds the updates to apply.
	Fields registry.Fields
}

// SSHOptions configures SSH credentials on an existing device.
type SSHOptions struct {
	Options

	// Name identifies the device to configure.
	Name string
	// Host optionally sets the device's IP address alongside credentials.
	Host string
	// Username, Password and KeyPath form the credential set; at least
	// one of Password/KeyPath is needed for the sleep action.
	Username string
	Password string
	KeyPath  string
}

// open loads the registry behind opts, defaulting every dependency.
func (o *Options) open(ctx context.Context) (registry.Repository, error) {
	repo := o.Repository
	if repo == nil {
		cfg, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}

		repo = registry.NewFileRepository(cfg.RegistryFile)
	}

	if err := repo.Load(ctx); err != nil {
		return nil, err
	}

	return repo, nil
}

func (o *Options) streams() (*bufio.Reader, io.Writer) {
	in := o.In
	if in == nil {
		in = os.Stdin
	}

	out := o.Out
	if out == nil {
		out = os.Stdout
	}

	return bufio.NewReader(in), out
}

// Add registers a new device, prompting for any missing fields.
func Add(ctx context.Context, opts *AddOptions) error {
	ctx = logger.WithName(ctx, "add")

	repo, err := opts.open(ctx)
	if err != nil {
		return err
	}

	in, out := opts.streams()

	if opts.Name == "" {
		if opts.Name, err = common.Prompt(in, out, "Device name"); err != nil {
			return err
		}
	}

	if opts.UseScan && opts.MACAddress == "" {
		if err = opts.fillFromScan(ctx, in, out); err != nil {
			return err
		}
	}

	if opts.MACAddress == "" {
		if opts.MACAddress, err = common.Prompt(in, out, "MAC address"); err != nil {
			return err
		}
	}

	if opts.IPAddress == "" {
		if opts.IPAddress, err = common.Prompt(in, out, "IP address (optional, needed for sleep/status)"); err != nil {
			return err
		}
	}

	d := &device.Device{
		Name:       opts.Name,
		MACAddress: opts.MACAddress,
		IPAddress:  opts.IPAddress,
		Hostname:   opts.Hostname,
		Broadcast:  opts.Broadcast,
	}

	if err = repo.Add(ctx, d); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Device added", "device", d.Name, "mac", d.MACAddress)
	fmt.Fprintf(out, "Added device %q\n", d.Name)

	return nil
}

// fillFromScan lists discovered devices and copies the chosen entry's
// addresses into the add options.
func (o *AddOptions) fillFromScan(ctx context.Context, in *bufio.Reader, out io.Writer) error {
	scanner := o.Scanner
	if scanner == nil {
		scanner = scan.NewARPScanner()
	}

	fmt.Fprintln(out, "Scanning network for devices...")

	entries, err := scanner.Scan(ctx)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No devices found, falling back to manual input")
		return nil
	}

	table := common.NewTable(out, "#", "IP Address", "MAC Address", "Hostname")
	for i, e := range entries {
		hostname := e.Hostname
		if hostname == "" {
			hostname = "Unknown"
		}

		table.Append([]string{strconv.Itoa(i + 1), e.IPAddress, e.MACAddress, hostname})
	}

	table.Render()

	choice, err := common.Prompt(in, out, "Enter the number of the device to use")
	if err != nil {
		return err
	}

	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(entries) {
		fmt.Fprintln(out, "Invalid choice, falling back to manual input")
		return nil
	}

	entry := entries[idx-1]
	o.MACAddress = entry.MACAddress
	o.IPAddress = entry.IPAddress

	if o.Hostname == "" {
		o.Hostname = entry.Hostname
	}

	return nil
}

// Edit applies field updates to an existing device.
func Edit(ctx context.Context, opts *EditOptions) error {
	ctx = logger.WithName(ctx, "edit")

	repo, err := opts.open(ctx)
	if err != nil {
		return err
	}

	if err = repo.Update(ctx, opts.Name, opts.Fields); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Device updated", "device", opts.Name)

	_, out := opts.streams()
	fmt.Fprintf(out, "Updated device %q\n", opts.Name)

	return nil
}

// Remove deletes a device from the registry.
func Remove(ctx context.Context, opts *Options, name string) error {
	ctx = logger.WithName(ctx, "remove")

	repo, err := opts.open(ctx)
	if err != nil {
		return err
	}

	if err = repo.Remove(ctx, name); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Device removed", "device", name)

	_, out := opts.streams()
	fmt.Fprintf(out, "Removed device %q\n", name)

	return nil
}

// List prints all registered devices.
func List(ctx context.Context, opts *Options) error {
	repo, err := opts.open(ctx)
	if err != nil {
		return err
	}

	_, out := opts.streams()

	devices := repo.List()
	if len(devices) == 0 {
		fmt.Fprintln(out, "No devices configured. Use 'wake add' to add a device.")
		return nil
	}

	common.RenderDevices(out, devices)

	return nil
}

// Scan prints devices discovered on the local network segment.
func Scan(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "scan")

	scanner := opts.Scanner
	if scanner == nil {
		scanner = scan.NewARPScanner()
	}

	entries, err := scanner.Scan(ctx)
	if err != nil {
		return err
	}

	_, out := opts.streams()

	if len(entries) == 0 {
		fmt.Fprintln(out, "No devices found on the local network.")
		return nil
	}

	table := common.NewTable(out, "IP Address", "MAC Address", "Hostname")
	for _, e := range entries {
		hostname := e.Hostname
		if hostname == "" {
			hostname = "Unknown"
		}

		table.Append([]string{e.IPAddress, e.MACAddress, hostname})
	}

	table.Render()

	return nil
}

// ConfigureSSH stores SSH parameters on an existing device so the
// sleep action can reach it. Missing values are prompted for; the
// password prompt is skipped when a key path is given.
func ConfigureSSH(ctx context.Context, opts *SSHOptions) error {
	ctx = logger.WithName(ctx, "ssh-config")

	repo, err := opts.open(ctx)
	if err != nil {
		return err
	}

	in, out := opts.streams()

	if opts.Username == "" {
		if opts.Username, err = common.Prompt(in, out, "SSH username"); err != nil {
			return err
		}
	}

	if opts.Password == "" && opts.KeyPath == "" {
		if opts.KeyPath, err = common.Prompt(in, out, "Private key path (leave empty to use a password)"); err != nil {
			return err
		}

		if opts.KeyPath == "" {
			if opts.Password, err = common.Prompt(in, out, "SSH password"); err != nil {
				return err
			}
		}
	}

	fields := registry.Fields{
		SSH: &device.SSHConfig{
			Username: opts.Username,
			Password: opts.Password,
			KeyPath:  opts.KeyPath,
		},
	}

	if opts.Host != "" {
		fields.IPAddress = &opts.Host
	}

	if err = repo.Update(ctx, opts.Name, fields); err != nil {
		return err
	}

	logger.InfoKV(ctx, "SSH configuration saved", "device", opts.Name, "username", opts.Username)
	fmt.Fprintf(out, "SSH configuration saved for device %q\n", opts.Name)

	return nil
}
