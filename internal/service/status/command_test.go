package status

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petterhs/wakesleepmanager/internal/config"
	"github.com/petterhs/wakesleepmanager/internal/domain/device"
	"github.com/petterhs/wakesleepmanager/internal/repository/registry"
)

// stubProber reports fixed reachability per host and can fail.
type stubProber struct {
	reachable map[string]bool
	failOn    string
}

func (p *stubProber) Reachable(_ context.Context, host string, _ time.Duration) (bool, error) {
	if host == p.failOn {
		return false, errors.New("probe exploded")
	}

	return p.reachable[host], nil
}

func testConfigPath(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	cfg := &config.Config{
		RegistryFile: filepath.Join(dir, "devices.yaml"),
		Timeout:      time.Second,
	}
	require.NoError(t, config.Save(path, cfg))

	return path
}

// TestRun_AllDevices verifies the reachability table covers every
// device and maps probe outcomes to statuses.
func TestRun_AllDevices(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := registry.NewFileRepository(filepath.Join(t.TempDir(), "devices.yaml"))
	require.NoError(t, repo.Add(ctx, &device.Device{
		Name: "up", MACAddress: "AA:BB:CC:DD:EE:01", IPAddress: "192.168.1.10",
	}))
	require.NoError(t, repo.Add(ctx, &device.Device{
		Name: "down", MACAddress: "AA:BB:CC:DD:EE:02", IPAddress: "192.168.1.11",
	}))
	require.NoError(t, repo.Add(ctx, &device.Device{
		Name: "no-ip", MACAddress: "AA:BB:CC:DD:EE:03",
	}))
	require.NoError(t, repo.Add(ctx, &device.Device{
		Name: "flaky", MACAddress: "AA:BB:CC:DD:EE:04", IPAddress: "192.168.1.13",
	}))

	var out bytes.Buffer

	err := Run(ctx, &Options{
		ConfigPath: testConfigPath(t),
		Prober: &stubProber{
			reachable: map[string]bool{"192.168.1.10": true},
			failOn:    "192.168.1.13",
		},
		Repository: repo,
		Out:        &out,
	})
	require.NoError(t, err)

	report := out.String()
	require.Contains(t, report, "up")
	require.Contains(t, report, "Awake")
	require.Contains(t, report, "Sleeping")
	require.Contains(t, report, "Unknown")
}

// TestRun_SingleDevice verifies targeting one device by name.
func TestRun_SingleDevice(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := registry.NewFileRepository(filepath.Join(t.TempDir(), "devices.yaml"))
	require.NoError(t, repo.Add(ctx, &device.Device{
		Name: "mypc", MACAddress: "AA:BB:CC:DD:EE:FF", IPAddress: "192.168.1.10",
	}))

	var out bytes.Buffer

	err := Run(ctx, &Options{
		ConfigPath: testConfigPath(t),
		DeviceName: "mypc",
		Prober:     &stubProber{reachable: map[string]bool{"192.168.1.10": true}},
		Repository: repo,
		Out:        &out,
	})
	require.NoError(t, err)
	require.Contains(t, out.String(), "Awake")
}

// TestRun_UnknownDevice verifies a missing name fails with NotFound.
func TestRun_UnknownDevice(t *testing.T) {
	t.Parallel()

	repo := registry.NewFileRepository(filepath.Join(t.TempDir(), "devices.yaml"))

	err := Run(context.Background(), &Options{
		ConfigPath: testConfigPath(t),
		DeviceName: "ghost",
		Prober:     &stubProber{},
		Repository: repo,
	})
	require.ErrorIs(t, err, registry.ErrNotFound)
}
