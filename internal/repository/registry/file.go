package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/petterhs/wakesleepmanager/internal/config"
	"github.com/petterhs/wakesleepmanager/internal/domain/device"
)

// Repository defines persistence operations for the device registry.
type Repository interface {
	Load(ctx context.Context) error
	Save(ctx context.Context) error
	Get(name string) (*device.Device, error)
	List() []*device.Device
	Add(ctx context.Context, d *device.Device) error
	Update(ctx context.Context, name string, fields Fields) error
	Remove(ctx context.Context, name string) error
}

// Fields carries optional updates for an existing device.
// Nil pointers leave the corresponding field untouched.
type Fields struct {
	Name       *string
	MACAddress *string
	IPAddress  *string
	Hostname   *string
	Broadcast  *string
	SSH        *device.SSHConfig
}

var (
	// ErrNotFound is returned when a named device is not in the registry.
	ErrNotFound = errors.New("device not found")
	// ErrDuplicateName is returned when adding or renaming a device
	// to a name that already exists.
	ErrDuplicateName = errors.New("device already exists")
	// ErrCorrupt is returned when the registry file exists but cannot be parsed.
	ErrCorrupt = errors.New("registry file is corrupt")
)

// FileRepository persists the device registry to a YAML file on disk.
// Insertion order is preserved; every mutation rewrites the file
// atomically via a temp file and rename.
type FileRepository struct {
	// path is the filesystem location of the YAML registry file.
	path string
	// devices holds the in-memory registry in insertion order.
	devices []*device.Device
	// mu protects the in-memory registry and the file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the registry from disk. A missing file yields an empty
// registry; an unparsable one yields ErrCorrupt.
func (r *FileRepository) Load(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.devices = nil
			return nil
		}

		return fmt.Errorf("read registry file: %w", err)
	}

	var stored struct {
		Devices []*device.Device `yaml:"devices"`
	}

	if err = yaml.Unmarshal(contents, &stored); err != nil {
		return fmt.Errorf("%w: %s", ErrCorrupt, err)
	}

	r.devices = stored.Devices

	return nil
}

// Save writes the registry to disk atomically: the new contents are
// written to a temp file in the same directory and renamed over the
// old file, so a crash never leaves a half-written registry.
func (r *FileRepository) Save(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.save()
}

// save writes the registry to disk. Callers must hold r.mu.
func (r *FileRepository) save() error {
	stored := struct {
		Devices []*device.Device `yaml:"devices"`
	}{Devices: r.devices}

	data, err := yaml.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	dir := filepath.Dir(r.path)

	tmp, err := os.CreateTemp(dir, ".devices-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp registry file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("write registry file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("close registry file: %w", err)
	}

	if err = os.Chmod(tmpName, config.DefaultFilePermissions); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("chmod registry file: %w", err)
	}

	if err = os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("replace registry file: %w", err)
	}

	return nil
}

// Get returns a copy of the named device.
func (r *FileRepository) Get(name string) (*device.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.devices {
		if d.Name == name {
			return d.Clone(), nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// List returns copies of all devices in insertion order.
func (r *FileRepository) List() []*device.Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	devices := make([]*device.Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d.Clone())
	}

	return devices
}

// Add validates and appends a device, then persists the registry.
// The registry on disk is untouched when the operation fails.
func (r *FileRepository) Add(_ context.Context, d *device.Device) error {
	if err := d.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index(d.Name) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateName, d.Name)
	}

	r.devices = append(r.devices, d.Clone())

	if err := r.save(); err != nil {
		r.devices = r.devices[:len(r.devices)-1]
		return err
	}

	return nil
}

// Update applies the provided fields to the named device and persists
// the registry. Renames are checked against existing names.
func (r *FileRepository) Update(_ context.Context, name string, fields Fields) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	updated := r.devices[i].Clone()

	if fields.Name != nil && *fields.Name != name {
		if r.index(*fields.Name) >= 0 {
			return fmt.Errorf("%w: %q", ErrDuplicateName, *fields.Name)
		}

		updated.Name = *fields.Name
	}

	if fields.MACAddress != nil {
		updated.MACAddress = *fields.MACAddress
	}

	if fields.IPAddress != nil {
		updated.IPAddress = *fields.IPAddress
	}

	if fields.Hostname != nil {
		updated.Hostname = *fields.Hostname
	}

	if fields.Broadcast != nil {
		updated.Broadcast = *fields.Broadcast
	}

	if fields.SSH != nil {
		updated.SSH = fields.SSH.Clone()
	}

	if err := updated.Validate(); err != nil {
		return err
	}

	previous := r.devices[i]
	r.devices[i] = updated

	if err := r.save(); err != nil {
		r.devices[i] = previous
		return err
	}

	return nil
}

// Remove deletes the named device and persists the registry.
func (r *FileRepository) Remove(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	previous := r.devices
	r.devices = append(append([]*device.Device{}, r.devices[:i]...), r.devices[i+1:]...)

	if err := r.save(); err != nil {
		r.devices = previous
		return err
	}

	return nil
}

// index returns the position of the named device, or -1. Callers must hold r.mu.
func (r *FileRepository) index(name string) int {
	for i, d := range r.devices {
		if d.Name == name {
			return i
		}
	}

	return -1
}
