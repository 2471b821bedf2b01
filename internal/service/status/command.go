package status

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/petterhs/wakesleepmanager/internal/config"
	"github.com/petterhs/wakesleepmanager/internal/logger"
	"github.com/petterhs/wakesleepmanager/internal/repository/registry"
	"github.com/petterhs/wakesleepmanager/internal/service/common"
	"github.com/petterhs/wakesleepmanager/internal/service/probe"
)

// Options controls the status action.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// DeviceName is the target: a registry name or "all" (empty means all).
	DeviceName string

	// Prober overrides the ICMP prober, used in tests.
	Prober probe.Prober
	// Repository overrides the file-backed registry, used in tests.
	Repository registry.Repository
	// Out overrides stdout.
	Out io.Writer
}

// Run probes one or all devices and prints a reachability table.
// Unreachable devices are information, not failure: the command exits
// zero as long as the probes could run.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "status")

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

	prober := opts.Prober
	if prober == nil {
		prober = probe.NewPingProber()
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	targets, err := common.Targets(repo, opts.DeviceName)
	if err != nil {
		return err
	}

	var (
		statuses = make([]string, len(targets))
		g, gctx  = errgroup.WithContext(ctx)
	)

	for i, d := range targets {
		i, d := i, d
		g.Go(func() error {
			statuses[i] = probeStatus(gctx, cfg, prober, d.IPAddress)
			return nil
		})
	}

	// Workers never return errors; unknown status is reported as such.
	_ = g.Wait()

	table := common.NewTable(out, "Name", "IP Address", "MAC Address", "Hostname", "Status")

	for i, d := range targets {
		hostname := d.Hostname
		if hostname == "" {
			hostname = "N/A"
		}

		ip := d.IPAddress
		if ip == "" {
			ip = "N/A"
		}

		table.Append([]string{d.Name, ip, d.MACAddress, hostname, statuses[i]})
	}

	table.Render()

	return nil
}

// probeStatus maps a probe outcome to the reported status. The probe
// cannot tell "asleep" from "powered off" from "network partition",
// so anything unreachable reads as Sleeping.
func probeStatus(ctx context.Context, cfg *config.Config, prober probe.Prober, ip string) string {
	if ip == "" {
		return "Unknown"
	}

	reachable, err := prober.Reachable(ctx, ip, cfg.Timeout)
	if err != nil {
		logger.DebugKV(ctx, "Probe failed", "host", ip, "error", err)
		return "Unknown"
	}

	if reachable {
		return "Awake"
	}

	return "Sleeping"
}
