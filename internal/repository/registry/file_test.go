package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petterhs/wakesleepmanager/internal/domain/device"
)

func newTestRepository(t *testing.T) *FileRepository {
	t.Helper()

	return NewFileRepository(filepath.Join(t.TempDir(), "devices.yaml"))
}

// TestLoad_MissingFile verifies an absent registry file yields an empty
// registry, not an error.
func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	repo := newTestRepository(t)
	require.NoError(t, repo.Load(context.Background()))
	require.Empty(t, repo.List())
}

// TestLoad_CorruptFile verifies an unparsable registry file surfaces ErrCorrupt.
func TestLoad_CorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "devices.yaml")
	require.NoError(t, os.WriteFile(path, []byte("devices: [unclosed"), 0o600))

	repo := NewFileRepository(path)
	require.ErrorIs(t, repo.Load(context.Background()), ErrCorrupt)
}

// TestAddListRoundtrip ensures an added device comes back with exactly
// the recorded fields, surviving a reload from disk.
func TestAddListRoundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	require.NoError(t, repo.Load(ctx))

	want := &device.Device{
		Name:       "mypc",
		MACAddress: "AA:BB:CC:DD:EE:FF",
		IPAddress:  "192.168.1.10",
		Hostname:   "mypc.lan",
		SSH:        &device.SSHConfig{Username: "petter", KeyPath: "~/.ssh/id_rsa"},
	}

	require.NoError(t, repo.Add(ctx, want))

	reloaded := NewFileRepository(repo.path)
	require.NoError(t, reloaded.Load(ctx))

	devices := reloaded.List()
	require.Len(t, devices, 1)
	require.Equal(t, want, devices[0])
}

// TestAdd_DuplicateName verifies duplicates are rejected and the
// registry is left unchanged.
func TestAdd_DuplicateName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	first := &device.Device{Name: "mypc", MACAddress: "AA:BB:CC:DD:EE:FF"}
	require.NoError(t, repo.Add(ctx, first))

	dup := &device.Device{Name: "mypc", MACAddress: "11:22:33:44:55:66"}
	require.ErrorIs(t, repo.Add(ctx, dup), ErrDuplicateName)

	devices := repo.List()
	require.Len(t, devices, 1)
	require.Equal(t, "AA:BB:CC:DD:EE:FF", devices[0].MACAddress)
}

// TestAdd_InvalidAddress verifies validation rejects a malformed MAC
// before anything is persisted.
func TestAdd_InvalidAddress(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	err := repo.Add(ctx, &device.Device{Name: "mypc", MACAddress: "not-a-mac"})
	require.ErrorIs(t, err, device.ErrInvalidAddress)
	require.Empty(t, repo.List())

	_, statErr := os.Stat(repo.path)
	require.ErrorIs(t, statErr, os.ErrNotExist)
}

// TestRemove verifies deletion and the NotFound behavior.
func TestRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	require.ErrorIs(t, repo.Remove(ctx, "ghost"), ErrNotFound)

	require.NoError(t, repo.Add(ctx, &device.Device{Name: "a", MACAddress: "AA:BB:CC:DD:EE:01"}))
	require.NoError(t, repo.Add(ctx, &device.Device{Name: "b", MACAddress: "AA:BB:CC:DD:EE:02"}))

	require.NoError(t, repo.Remove(ctx, "a"))

	devices := repo.List()
	require.Len(t, devices, 1)
	require.Equal(t, "b", devices[0].Name)

	// Removing a nonexistent device leaves the registry unchanged.
	require.ErrorIs(t, repo.Remove(ctx, "a"), ErrNotFound)
	require.Len(t, repo.List(), 1)
}

// TestUpdate verifies field updates, order preservation and rename
// collision detection.
func TestUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	require.NoError(t, repo.Add(ctx, &device.Device{Name: "a", MACAddress: "AA:BB:CC:DD:EE:01"}))
	require.NoError(t, repo.Add(ctx, &device.Device{Name: "b", MACAddress: "AA:BB:CC:DD:EE:02"}))

	ip := "192.168.1.20"
	require.NoError(t, repo.Update(ctx, "a", Fields{IPAddress: &ip}))

	devices := repo.List()
	require.Equal(t, "a", devices[0].Name)
	require.Equal(t, ip, devices[0].IPAddress)

	// Rename onto an existing name fails.
	rename := "b"
	require.ErrorIs(t, repo.Update(ctx, "a", Fields{Name: &rename}), ErrDuplicateName)

	// Invalid MAC is rejected and the stored record keeps its old value.
	bad := "not-a-mac"
	require.ErrorIs(t, repo.Update(ctx, "a", Fields{MACAddress: &bad}), device.ErrInvalidAddress)

	got, err := repo.Get("a")
	require.NoError(t, err)
	require.Equal(t, "AA:BB:CC:DD:EE:01", got.MACAddress)

	require.ErrorIs(t, repo.Update(ctx, "ghost", Fields{}), ErrNotFound)
}

// TestList_Isolation verifies List hands out copies, not internal state.
func TestList_Isolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)

	require.NoError(t, repo.Add(ctx, &device.Device{Name: "a", MACAddress: "AA:BB:CC:DD:EE:01"}))

	repo.List()[0].Name = "mutated"

	got, err := repo.Get("a")
	require.NoError(t, err)
	require.Equal(t, "a", got.Name)
}
