//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/petterhs/wakesleepmanager/internal/domain/device"
	"github.com/petterhs/wakesleepmanager/internal/repository/registry"
)

// AllDevices is the device-name argument addressing every registry entry.
const AllDevices = "all"

// ErrNoDevices is returned when an operation needs devices but the
// registry is empty.
var ErrNoDevices = errors.New("no devices configured, use 'wake add' to add one")

// Targets resolves a device-name argument into registry entries:
// "all" (or empty) selects every device, anything else the named one.
func Targets(repo registry.Repository, name string) ([]*device.Device, error) {
	if name == "" || strings.EqualFold(name, AllDevices) {
		devices := repo.List()
		if len(devices) == 0 {
			return nil, ErrNoDevices
		}

		return devices, nil
	}

	d, err := repo.Get(name)
	if err != nil {
		return nil, err
	}

	return []*device.Device{d}, nil
}

// Prompt writes a label and reads one trimmed line of input.
func Prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	if _, err := fmt.Fprintf(out, "%s: ", label); err != nil {
		return "", err
	}

	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}

	return strings.TrimSpace(line), nil
}

// NewTable returns a table writer with the project's plain style.
func NewTable(out io.Writer, headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	return table
}

// orNA substitutes "N/A" for empty optional fields in table output.
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}

	return s
}

// RenderDevices prints the registry as a table.
func RenderDevices(out io.Writer, devices []*device.Device) {
	table := NewTable(out, "Name", "IP Address", "MAC Address", "Hostname")
	for _, d := range devices {
		table.Append([]string{d.Name, orNA(d.IPAddress), d.MACAddress, orNA(d.Hostname)})
	}

	table.Render()
}

// Result is the outcome of one device in a batch operation.
type Result struct {
	// Device is the registry name the result belongs to.
	Device string
	// Err is the per-device failure, nil on success or skip.
	Err error
	// Skipped marks devices already in the desired state.
	Skipped bool
	// Note is a short human-readable outcome ("packet sent", ...).
	Note string
}

// Report prints a per-device summary and returns an aggregate error
// when any device failed, so batches exit non-zero without aborting on
// the first failure.
func Report(out io.Writer, results []Result) error {
	var failed int

	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++

			fmt.Fprintf(out, "%s: error: %v\n", r.Device, r.Err)
		case r.Skipped:
			fmt.Fprintf(out, "%s: skipped (%s)\n", r.Device, r.Note)
		default:
			fmt.Fprintf(out, "%s: %s\n", r.Device, r.Note)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d devices failed", failed, len(results))
	}

	return nil
}
