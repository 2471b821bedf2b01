package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Config holds settings shared by the wake and wsleep binaries.
type Config struct {
	// RegistryFile is the path to the YAML file storing the device registry.
	RegistryFile string `yaml:"registry_file"`
	// BroadcastAddress is the default destination for magic packets.
	// A device record may override it with a directed broadcast address.
	BroadcastAddress string `yaml:"broadcast_address"`
	// WakePort is the UDP port magic packets are sent to.
	WakePort int `yaml:"wake_port"`
	// Timeout bounds network operations: SSH dials and reachability probes.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigDirname is the directory under the user's home
	// where settings and the device registry live.
	DefaultConfigDirname = ".config/wakesleepmanager"

	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "settings.yaml"

	// DefaultRegistryFilename is the default filename for the device registry.
	DefaultRegistryFilename = "devices.yaml"

	// DefaultBroadcastAddress targets the local network segment.
	DefaultBroadcastAddress = "255.255.255.255"

	// DefaultWakePort is the conventional Wake-on-LAN discard port.
	DefaultWakePort = 9

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// DefaultDirPermissions is the default permission for the config directory.
	DefaultDirPermissions = 0o700
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidWakePort is returned when the wake port is out of range.
	errInvalidWakePort = errors.New("wake port must be between 1 and 65535")
)

// Dir returns the configuration directory, creating it if missing.
func Dir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	dir := filepath.Join(home, DefaultConfigDirname)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}

	return dir, nil
}

// Load reads configuration from the provided path and validates essential fields.
// An empty path resolves to the default settings file; a missing file
// yields the default configuration rather than an error.
func Load(path string) (*Config, error) {
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}

		path = filepath.Join(dir, DefaultConfigFilename)
	}

	cfg := new(Config)

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := Validate(cfg); err != nil {
				return nil, err
			}

			return cfg, nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings and fills in defaults for
// unspecified fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.BroadcastAddress == "" {
		cfg.BroadcastAddress = DefaultBroadcastAddress
	}

	if net.ParseIP(cfg.BroadcastAddress) == nil {
		return fmt.Errorf("invalid broadcast address: %q", cfg.BroadcastAddress)
	}

	if cfg.WakePort == 0 {
		cfg.WakePort = DefaultWakePort
	}

	if cfg.WakePort < 1 || cfg.WakePort > 65535 {
		return errInvalidWakePort
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.RegistryFile == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}

		cfg.RegistryFile = filepath.Join(dir, DefaultRegistryFilename)
	}

	return nil
}
