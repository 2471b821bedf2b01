package wake

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/petterhs/wakesleepmanager/internal/config"
	"github.com/petterhs/wakesleepmanager/internal/domain/device"
	"github.com/petterhs/wakesleepmanager/internal/logger"
	"github.com/petterhs/wakesleepmanager/internal/repository/registry"
	"github.com/petterhs/wakesleepmanager/internal/service/common"
	"github.com/petterhs/wakesleepmanager/internal/service/probe"
	"github.com/petterhs/wakesleepmanager/internal/service/wol"
)

// Options controls the wake action.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// DeviceName is the target: a registry name, "all", or empty for
	// interactive selection.
	DeviceName string

	// Sender overrides the UDP broadcaster, used in tests.
	Sender wol.Sender
	// Prober overrides the ICMP prober, used in tests.
	Prober probe.Prober
	// Repository overrides the file-backed registry, used in tests.
	Repository registry.Repository
	// In and Out override stdin/stdout, used for interactive selection.
	In  io.Reader
	Out io.Writer
}

// Run wakes one or all devices by broadcasting magic packets.
// Batch failures are isolated per device; the aggregate error makes the
// process exit non-zero when any device failed.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "wake")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	repo := opts.Repository
	if repo == nil {
		repo = registry.NewFileRepository(cfg.RegistryFile)
	}

	if err = repo.Load(ctx); err != nil {
		return err
	}

	sender := opts.Sender
	if sender == nil {
		sender = wol.NewUDPSender()
	}

	prober := opts.Prober
	if prober == nil {
		prober = probe.NewPingProber()
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	in := opts.In
	if in == nil {
		in = os.Stdin
	}

	name := opts.DeviceName
	if name == "" {
		if name, err = pickDevice(ctx, cfg, repo, prober, in, out); err != nil {
			return err
		}
	}

	targets, err := common.Targets(repo, name)
	if err != nil {
		return err
	}

	results := wakeAll(ctx, cfg, sender, prober, targets)

	return common.Report(out, results)
}

// wakeAll fans the wake action out over all targets. The registry is
// read-only here, so concurrent access is safe.
func wakeAll(
	ctx context.Context,
	cfg *config.Config,
	sender wol.Sender,
	prober probe.Prober,
	targets []*device.Device,
) []common.Result {
	var (
		results = make([]common.Result, len(targets))
		g, gctx = errgroup.WithContext(ctx)
	)

	for i, d := range targets {
		i, d := i, d
		g.Go(func() error {
			results[i] = wakeOne(gctx, cfg, sender, prober, d)
			return nil
		})
	}

	// Workers never return errors; failures live in results.
	_ = g.Wait()

	return results
}

// wakeOne validates the address, skips devices that already answer
// probes, and broadcasts a single magic packet.
func wakeOne(
	ctx context.Context,
	cfg *config.Config,
	sender wol.Sender,
	prober probe.Prober,
	d *device.Device,
) common.Result {
	result := common.Result{Device: d.Name}

	// Address validation happens before any network I/O.
	hwAddr, err := d.HardwareAddr()
	if err != nil {
		result.Err = err
		return result
	}

	if d.IPAddress != "" {
		reachable, probeErr := prober.Reachable(ctx, d.IPAddress, cfg.Timeout)
		if probeErr == nil && reachable {
			result.Skipped = true
			result.Note = "already awake"

			return result
		}
	}

	broadcast := cfg.BroadcastAddress
	if d.Broadcast != "" {
		broadcast = d.Broadcast
	}

	addr := net.JoinHostPort(broadcast, strconv.Itoa(cfg.WakePort))

	if err = sender.Wake(ctx, addr, hwAddr); err != nil {
		result.Err = err
		return result
	}

	logger.InfoKV(ctx, "Wake-up signal sent", "device", d.Name, "mac", hwAddr.String(), "addr", addr)

	// No acknowledgment is possible by protocol design.
	result.Note = fmt.Sprintf("magic packet sent to %s", hwAddr)

	return result
}

// pickDevice shows a numbered device table with live status and reads
// the user's selection: a number or "all".
func pickDevice(
	ctx context.Context,
	cfg *config.Config,
	repo registry.Repository,
	prober probe.Prober,
	in io.Reader,
	out io.Writer,
) (string, error) {
	devices := repo.List()
	if len(devices) == 0 {
		return "", common.ErrNoDevices
	}

	table := common.NewTable(out, "#", "Name", "Status")
	for i, d := range devices {
		status := "Unknown"

		if d.IPAddress != "" {
			if reachable, err := prober.Reachable(ctx, d.IPAddress, cfg.Timeout); err == nil {
				status = "Sleeping"
				if reachable {
					status = "Awake"
				}
			}
		}

		table.Append([]string{strconv.Itoa(i + 1), d.Name, status})
	}

	table.Render()

	choice, err := common.Prompt(bufio.NewReader(in), out,
		"Enter the number of the device to wake (or 'all' for all devices)")
	if err != nil {
		return "", err
	}

	if strings.EqualFold(choice, common.AllDevices) {
		return common.AllDevices, nil
	}

	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(devices) {
		return "", fmt.Errorf("invalid device number: %q", choice)
	}

	return devices[idx-1].Name, nil
}
