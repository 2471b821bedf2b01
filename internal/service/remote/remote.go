package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"golang.org/x/crypto/ssh"

	"github.com/petterhs/wakesleepmanager/internal/domain/device"
	"github.com/petterhs/wakesleepmanager/internal/logger"
)

// defaultSSHPort is used when the host carries no explicit port.
const defaultSSHPort = "22"

var (
	// ErrConnection indicates the host could not be reached.
	ErrConnection = errors.New("connection failed")
	// ErrAuth indicates the host rejected the provided credentials.
	ErrAuth = errors.New("authentication failed")
)

// OSType is the detected operating system family of a remote host.
type OSType string

// Detected operating system families.
const (
	OSLinux   OSType = "Linux"
	OSMacOS   OSType = "macOS"
	OSWindows OSType = "Windows"
	OSUnknown OSType = "Unknown"
)

// suspendCommands maps a detected OS to its suspend command. Commands
// run in the background on the remote side: the host suspends
// mid-session, so waiting for completion would just hang.
var suspendCommands = map[OSType]string{
	OSLinux:   "nohup sudo systemctl suspend > /dev/null 2>&1 &",
	OSMacOS:   "nohup pmset sleepnow > /dev/null 2>&1 &",
	OSWindows: "start /b shutdown /h",
	OSUnknown: "nohup shutdown /h > /dev/null 2>&1 &",
}

// Session is the subset of an SSH connection the suspend flow needs.
type Session interface {
	// Output runs a command and returns its combined standard output.
	Output(cmd string) (string, error)
	// Start runs a command without waiting for it to finish.
	Start(cmd string) error
	// Close tears down the connection.
	Close() error
}

// DialFunc opens a Session on host with the given credentials.
// Production code uses DialSSH; tests substitute a fake.
type DialFunc func(ctx context.Context, host string, sshConfig *device.SSHConfig, timeout time.Duration) (Session, error)

// sshSession adapts an *ssh.Client to the Session interface, opening a
// fresh ssh.Session per command as the protocol requires.
type sshSession struct {
	client *ssh.Client
}

func (s *sshSession) Output(cmd string) (string, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}

	defer func() {
		_ = session.Close()
	}()

	out, err := session.Output(cmd)
	if err != nil {
		return "", fmt.Errorf("run %q: %w", cmd, err)
	}

	return string(out), nil
}

func (s *sshSession) Start(cmd string) error {
	session, err := s.client.NewSession()
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	defer func() {
		_ = session.Close()
	}()

	if err = session.Start(cmd); err != nil {
		return fmt.Errorf("start %q: %w", cmd, err)
	}

	return nil
}

func (s *sshSession) Close() error {
	return s.client.Close()
}

// DialSSH opens an SSH connection to host, authenticating with a
// password or a private key file. Dial failures are classified into
// ErrAuth (credentials rejected) and ErrConnection (everything else).
func DialSSH(_ context.Context, host string, sshConfig *device.SSHConfig, timeout time.Duration) (Session, error) {
	authMethods, err := buildAuthMethods(sshConfig)
	if err != nil {
		return nil, err
	}

	clientConfig := &ssh.ClientConfig{
		User: sshConfig.Username,
		Auth: authMethods,
		// Home devices rotate host keys on reinstall; pinning them
		// here would make the tool unusable after every rebuild.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         timeout,
	}

	addr := host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		addr = net.JoinHostPort(host, defaultSSHPort)
	}

	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		if strings.Contains(err.Error(), "unable to authenticate") ||
			strings.Contains(err.Error(), "no supported methods remain") {
			return nil, fmt.Errorf("%w: %s", ErrAuth, err)
		}

		return nil, fmt.Errorf("%w: %s", ErrConnection, err)
	}

	return &sshSession{client: client}, nil
}

// buildAuthMethods assembles SSH auth methods from the device credentials.
func buildAuthMethods(sshConfig *device.SSHConfig) ([]ssh.AuthMethod, error) {
	if sshConfig.Password != "" {
		return []ssh.AuthMethod{ssh.Password(sshConfig.Password)}, nil
	}

	keyPath, err := homedir.Expand(sshConfig.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("expand key path: %w", err)
	}

	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

// DetectOS queries the remote shell to identify the OS family.
// uname covers Linux, macOS and the BSDs; Windows hosts answer the
// systeminfo fallback.
func DetectOS(ctx context.Context, session Session) OSType {
	uname, err := session.Output(`uname -s 2>/dev/null || echo "Unknown"`)
	if err == nil {
		switch strings.TrimSpace(uname) {
		case "Darwin":
			return OSMacOS
		case "Linux", "FreeBSD":
			return OSLinux
		}
	}

	win, err := session.Output(`systeminfo | findstr /B /C:"OS Name" 2>NUL || echo "Unknown"`)
	if err == nil && strings.Contains(win, "Windows") {
		return OSWindows
	}

	logger.Warn(ctx, "Could not detect remote OS, using generic suspend command")

	return OSUnknown
}

// Suspend detects the remote OS and fires the matching suspend command.
// A nil error means the command was dispatched, not that the device slept.
func Suspend(ctx context.Context, session Session) error {
	osType := DetectOS(ctx, session)
	cmd := suspendCommands[osType]

	logger.InfoKV(ctx, "Sending suspend command", "os", string(osType), "command", cmd)

	if err := session.Start(cmd); err != nil {
		return fmt.Errorf("send suspend command: %w", err)
	}

	return nil
}
