package sleep

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/petterhs/wakesleepmanager/internal/config"
	"github.com/petterhs/wakesleepmanager/internal/domain/device"
	"github.com/petterhs/wakesleepmanager/internal/logger"
	"github.com/petterhs/wakesleepmanager/internal/repository/registry"
	"github.com/petterhs/wakesleepmanager/internal/service/common"
	"github.com/petterhs/wakesleepmanager/internal/service/probe"
	"github.com/petterhs/wakesleepmanager/internal/service/remote"
)

// Options controls the sleep action.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// DeviceName is the target: a registry name or "all" (empty means all).
	DeviceName string

	// Dial overrides the SSH dialer, used in tests.
	Dial remote.DialFunc
	// Prober overrides the ICMP prober, used in tests.
	Prober probe.Prober
	// Repository overrides the file-backed registry, used in tests.
	Repository registry.Repository
	// Out overrides stdout.
	Out io.Writer
}

// Run puts one or all devices to sleep over SSH. Credential checks
// happen before any connection attempt; batch failures are isolated
// per device.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "wsleep")

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

	dial := opts.Dial
	if dial == nil {
		dial = remote.DialSSH
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
		results = make([]common.Result, len(targets))
		g, gctx = errgroup.WithContext(ctx)
	)

	for i, d := range targets {
		i, d := i, d
		g.Go(func() error {
			results[i] = sleepOne(gctx, cfg, dial, prober, d)
			return nil
		})
	}

	// Workers never return errors; failures live in results.
	_ = g.Wait()

	return common.Report(out, results)
}

// sleepOne verifies credentials, skips devices that are already
// unreachable, opens an SSH session and dispatches the suspend command.
func sleepOne(
	ctx context.Context,
	cfg *config.Config,
	dial remote.DialFunc,
	prober probe.Prober,
	d *device.Device,
) common.Result {
	result := common.Result{Device: d.Name}

	// Credential check happens before any connection attempt.
	host, sshConfig, err := d.SleepTarget()
	if err != nil {
		result.Err = err
		return result
	}

	reachable, probeErr := prober.Reachable(ctx, host, cfg.Timeout)
	if probeErr == nil && !reachable {
		result.Skipped = true
		result.Note = "already sleeping"

		return result
	}

	session, err := dial(ctx, host, sshConfig, cfg.Timeout)
	if err != nil {
		result.Err = err
		return result
	}

	defer func() {
		_ = session.Close()
	}()

	if err = remote.Suspend(ctx, session); err != nil {
		result.Err = err
		return result
	}

	logger.InfoKV(ctx, "Sleep signal sent", "device", d.Name, "host", host)

	result.Note = "sleep command sent"

	return result
}
