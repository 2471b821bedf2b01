package wol

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/petterhs/wakesleepmanager/internal/domain/device"
	"github.com/petterhs/wakesleepmanager/internal/logger"
)

const (
	// syncStreamLen is the number of leading 0xFF bytes.
	syncStreamLen = 6
	// targetRepetitions is how many times the target address is repeated.
	targetRepetitions = 16
	// hardwareAddrLen is the length of a 48-bit MAC address in bytes.
	hardwareAddrLen = 6
)

// errInvalidPassword indicates a SecureOn password of the wrong length.
var errInvalidPassword = errors.New("password must be 0, 4 or 6 bytes")

// MagicPacket is a Wake-on-LAN frame: a synchronization stream of six
// 0xFF bytes followed by sixteen repetitions of the target hardware
// address, optionally trailed by a 4 or 6 byte SecureOn password.
type MagicPacket struct {
	// Target is the hardware address of the device to wake.
	Target net.HardwareAddr
	// Password is an optional SecureOn password.
	Password []byte
}

// NewMagicPacket builds a magic packet for the given MAC address string.
// The address must parse as a 48-bit hardware address.
func NewMagicPacket(mac string) (*MagicPacket, error) {
	hwAddr, err := net.ParseMAC(mac)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", device.ErrInvalidAddress, mac)
	}

	if len(hwAddr) != hardwareAddrLen {
		return nil, fmt.Errorf("%w: %q is not 48-bit", device.ErrInvalidAddress, mac)
	}

	return &MagicPacket{Target: hwAddr}, nil
}

// MarshalBinary produces the on-wire representation of the packet.
func (p *MagicPacket) MarshalBinary() ([]byte, error) {
	if len(p.Target) != hardwareAddrLen {
		return nil, fmt.Errorf("%w: %s", device.ErrInvalidAddress, p.Target)
	}

	switch len(p.Password) {
	case 0, 4, 6:
	default:
		return nil, errInvalidPassword
	}

	buf := make([]byte, 0, syncStreamLen+targetRepetitions*hardwareAddrLen+len(p.Password))

	for i := 0; i < syncStreamLen; i++ {
		buf = append(buf, 0xFF)
	}

	for i := 0; i < targetRepetitions; i++ {
		buf = append(buf, p.Target...)
	}

	return append(buf, p.Password...), nil
}

// Sender broadcasts magic packets. The UDP implementation is replaced
// with a recorder in tests.
type Sender interface {
	// Wake sends one magic packet for target to the addr host:port.
	Wake(ctx context.Context, addr string, target net.HardwareAddr) error
}

// UDPSender broadcasts magic packets over UDP.
type UDPSender struct{}

// NewUDPSender returns a Sender writing datagrams to the broadcast address.
func NewUDPSender() *UDPSender {
	return &UDPSender{}
}

// Wake sends a single magic packet. Wake-on-LAN offers no acknowledgment,
// so a nil error means "packet sent", not "device woken".
func (s *UDPSender) Wake(ctx context.Context, addr string, target net.HardwareAddr) error {
	packet := &MagicPacket{Target: target}

	data, err := packet.MarshalBinary()
	if err != nil {
		return err
	}

	var d net.Dialer

	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return fmt.Errorf("dial broadcast address: %w", err)
	}

	defer func() {
		_ = conn.Close()
	}()

	if _, err = conn.Write(data); err != nil {
		return fmt.Errorf("send magic packet: %w", err)
	}

	logger.DebugKV(ctx, "Magic packet sent", "target", target.String(), "addr", addr)

	return nil
}
