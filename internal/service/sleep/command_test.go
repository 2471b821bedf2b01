package sleep

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petterhs/wakesleepmanager/internal/config"
	"github.com/petterhs/wakesleepmanager/internal/domain/device"
	"github.com/petterhs/wakesleepmanager/internal/repository/registry"
	"github.com/petterhs/wakesleepmanager/internal/service/remote"
)

// fakeDialer records dials and serves a scripted session per host.
type fakeDialer struct {
	mu      sync.Mutex
	dialed  []string
	err     error
	session *fakeSession
}

func (f *fakeDialer) dial(_ context.Context, host string, _ *device.SSHConfig, _ time.Duration) (remote.Session, error) {
	f.mu.Lock()
	f.dialed = append(f.dialed, host)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	return f.session, nil
}

// fakeSession answers uname as Linux and records started commands.
type fakeSession struct {
	mu      sync.Mutex
	started []string
}

func (s *fakeSession) Output(cmd string) (string, error) {
	if strings.HasPrefix(cmd, "uname") {
		return "Linux\n", nil
	}

	return "Unknown", nil
}

func (s *fakeSession) Start(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = append(s.started, cmd)

	return nil
}

func (s *fakeSession) Close() error { return nil }

// stubProber reports fixed reachability per host.
type stubProber struct {
	reachable map[string]bool
}

func (p *stubProber) Reachable(_ context.Context, host string, _ time.Duration) (bool, error) {
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

func testRepository(t *testing.T, devices ...*device.Device) *registry.FileRepository {
	t.Helper()

	repo := registry.NewFileRepository(filepath.Join(t.TempDir(), "devices.yaml"))
	for _, d := range devices {
		require.NoError(t, repo.Add(context.Background(), d))
	}

	return repo
}

// TestRun_MissingCredentials verifies no connection is attempted for a
// device without SSH configuration.
func TestRun_MissingCredentials(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{session: new(fakeSession)}
	repo := testRepository(t, &device.Device{Name: "mypc", MACAddress: "AA:BB:CC:DD:EE:FF"})

	var out bytes.Buffer

	err := Run(context.Background(), &Options{
		ConfigPath: testConfigPath(t),
		DeviceName: "mypc",
		Dial:       dialer.dial,
		Prober:     &stubProber{},
		Repository: repo,
		Out:        &out,
	})
	require.Error(t, err)
	require.Empty(t, dialer.dialed)
	require.Contains(t, out.String(), "SSH configuration is not set")
}

// TestRun_SendsSuspendCommand verifies the full happy path: dial,
// detect OS, dispatch the suspend command.
func TestRun_SendsSuspendCommand(t *testing.T) {
	t.Parallel()

	session := new(fakeSession)
	dialer := &fakeDialer{session: session}
	repo := testRepository(t, &device.Device{
		Name:       "mypc",
		MACAddress: "AA:BB:CC:DD:EE:FF",
		IPAddress:  "192.168.1.10",
		SSH:        &device.SSHConfig{Username: "petter", Password: "secret"},
	})

	var out bytes.Buffer

	err := Run(context.Background(), &Options{
		ConfigPath: testConfigPath(t),
		DeviceName: "mypc",
		Dial:       dialer.dial,
		Prober:     &stubProber{reachable: map[string]bool{"192.168.1.10": true}},
		Repository: repo,
		Out:        &out,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"192.168.1.10"}, dialer.dialed)
	require.Len(t, session.started, 1)
	require.Contains(t, session.started[0], "systemctl suspend")
	require.Contains(t, out.String(), "sleep command sent")
}

// TestRun_AlreadySleeping verifies unreachable devices are skipped
// without dialing.
func TestRun_AlreadySleeping(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{session: new(fakeSession)}
	repo := testRepository(t, &device.Device{
		Name:       "mypc",
		MACAddress: "AA:BB:CC:DD:EE:FF",
		IPAddress:  "192.168.1.10",
		SSH:        &device.SSHConfig{Username: "petter", Password: "secret"},
	})

	var out bytes.Buffer

	err := Run(context.Background(), &Options{
		ConfigPath: testConfigPath(t),
		DeviceName: "mypc",
		Dial:       dialer.dial,
		Prober:     &stubProber{},
		Repository: repo,
		Out:        &out,
	})
	require.NoError(t, err)
	require.Empty(t, dialer.dialed)
	require.Contains(t, out.String(), "already sleeping")
}

// TestRun_ConnectionError verifies dial failures surface per device.
func TestRun_ConnectionError(t *testing.T) {
	t.Parallel()

	dialer := &fakeDialer{err: remote.ErrConnection}
	repo := testRepository(t, &device.Device{
		Name:       "mypc",
		MACAddress: "AA:BB:CC:DD:EE:FF",
		IPAddress:  "192.168.1.10",
		SSH:        &device.SSHConfig{Username: "petter", KeyPath: "~/.ssh/id_rsa"},
	})

	var out bytes.Buffer

	err := Run(context.Background(), &Options{
		ConfigPath: testConfigPath(t),
		DeviceName: "mypc",
		Dial:       dialer.dial,
		Prober:     &stubProber{reachable: map[string]bool{"192.168.1.10": true}},
		Repository: repo,
		Out:        &out,
	})
	require.Error(t, err)
	require.Contains(t, out.String(), "connection failed")
}
