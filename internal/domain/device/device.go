package device

import (
	"errors"
	"fmt"
	"net"
)

// hardwareAddrLen is the length of a 48-bit MAC address in bytes.
const hardwareAddrLen = 6

var (
	// ErrInvalidAddress indicates a malformed or non-48-bit MAC address.
	ErrInvalidAddress = errors.New("invalid hardware address")
	// ErrNameRequired indicates a device record without a name.
	ErrNameRequired = errors.New("device name is required")
	// ErrMissingCredentials indicates a sleep attempt on a device
	// without a host or SSH configuration.
	ErrMissingCredentials = errors.New("SSH configuration is not set for device")
)

// SSHConfig holds the credentials used to open a remote session on a device.
type SSHConfig struct {
	// Username is the remote login name.
	Username string `yaml:"username"`
	// Password authenticates the session when set.
	Password string `yaml:"password,omitempty"`
	// KeyPath points to a private key file, used when Password is empty.
	KeyPath string `yaml:"key_path,omitempty"`
}

// Clone returns a copy of the SSH configuration.
func (c *SSHConfig) Clone() *SSHConfig {
	if c == nil {
		return nil
	}

	cloned := *c

	return &cloned
}

// Device is a single registered network device.
type Device struct {
	// Name uniquely identifies the device within the registry.
	Name string `yaml:"name"`
	// MACAddress is the 48-bit hardware address targeted by wake packets.
	MACAddress string `yaml:"mac_address"`
	// IPAddress is the host used for sleep and status operations.
	IPAddress string `yaml:"ip_address,omitempty"`
	// Hostname is an optional human-readable DNS name.
	Hostname string `yaml:"hostname,omitempty"`
	// Broadcast optionally overrides the configured broadcast address
	// with a directed subnet broadcast for this device.
	Broadcast string `yaml:"broadcast,omitempty"`
	// SSH holds credentials for the sleep action.
	SSH *SSHConfig `yaml:"ssh,omitempty"`
}

// Clone returns a deep copy of the device to avoid leaking internal references.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}

	cloned := *d
	cloned.SSH = d.SSH.Clone()

	return &cloned
}

// HardwareAddr parses and returns the device's MAC address.
// Only 48-bit addresses are accepted; EUI-64 and InfiniBand forms are
// rejected because the magic packet layout embeds exactly six bytes.
func (d *Device) HardwareAddr() (net.HardwareAddr, error) {
	hwAddr, err := net.ParseMAC(d.MACAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, d.MACAddress)
	}

	if len(hwAddr) != hardwareAddrLen {
		return nil, fmt.Errorf("%w: %q is not 48-bit", ErrInvalidAddress, d.MACAddress)
	}

	return hwAddr, nil
}

// Validate checks the fields required of every registry entry.
func (d *Device) Validate() error {
	if d.Name == "" {
		return ErrNameRequired
	}

	if _, err := d.HardwareAddr(); err != nil {
		return err
	}

	return nil
}

// SleepTarget returns the host and SSH configuration for the sleep
// action, or ErrMissingCredentials when either is absent.
func (d *Device) SleepTarget() (string, *SSHConfig, error) {
	if d.IPAddress == "" || d.SSH == nil || d.SSH.Username == "" {
		return "", nil, fmt.Errorf("%w %q", ErrMissingCredentials, d.Name)
	}

	if d.SSH.Password == "" && d.SSH.KeyPath == "" {
		return "", nil, fmt.Errorf("%w %q", ErrMissingCredentials, d.Name)
	}

	return d.IPAddress, d.SSH, nil
}
