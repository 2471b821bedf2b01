package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/require"
)

// TestValidate checks defaulting and format validations for settings.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Defaults fill in, except the registry file which needs a home dir.
	cfg := &Config{RegistryFile: "/tmp/devices.yaml"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultBroadcastAddress, cfg.BroadcastAddress)
	require.Equal(t, DefaultWakePort, cfg.WakePort)
	require.Equal(t, DefaultTimeout, cfg.Timeout)

	// Bad broadcast address.
	cfg = &Config{
		RegistryFile:     "/tmp/devices.yaml",
		BroadcastAddress: "not-an-ip",
	}
	require.Error(t, Validate(cfg))

	// Bad port.
	cfg = &Config{
		RegistryFile: "/tmp/devices.yaml",
		WakePort:     70000,
	}
	require.Error(t, Validate(cfg))

	// Nil config.
	require.Error(t, Validate(nil))
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		RegistryFile:     filepath.Join(dir, "devices.yaml"),
		BroadcastAddress: "192.168.1.255",
		WakePort:         7,
		Timeout:          2 * time.Second,
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RegistryFile, loaded.RegistryFile)
	require.Equal(t, cfg.BroadcastAddress, loaded.BroadcastAddress)
	require.Equal(t, cfg.WakePort, loaded.WakePort)
	require.Equal(t, cfg.Timeout, loaded.Timeout)
}

// TestLoadMissingFile verifies a missing settings file yields defaults.
func TestLoadMissingFile(t *testing.T) {
	homedir.DisableCache = true
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultBroadcastAddress, cfg.BroadcastAddress)
	require.Equal(t, DefaultWakePort, cfg.WakePort)
}
