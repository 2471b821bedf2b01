package probe

import (
	"context"
	"fmt"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/petterhs/wakesleepmanager/internal/logger"
)

// echoCount is the number of echo requests per probe.
const echoCount = 1

// Prober reports device reachability. The ICMP implementation is
// replaced with a stub in tests.
type Prober interface {
	// Reachable reports whether host answers an echo request within timeout.
	Reachable(ctx context.Context, host string, timeout time.Duration) (bool, error)
}

// PingProber probes reachability with ICMP echo requests.
// It runs in unprivileged UDP mode so no raw-socket capability is needed.
type PingProber struct{}

// NewPingProber returns an ICMP echo prober.
func NewPingProber() *PingProber {
	return &PingProber{}
}

// Reachable sends one echo request and waits up to timeout for a reply.
// It cannot distinguish a sleeping device from a powered-off one or a
// network partition; "unreachable" covers all three.
func (p *PingProber) Reachable(ctx context.Context, host string, timeout time.Duration) (bool, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false, fmt.Errorf("resolve %q: %w", host, err)
	}

	pinger.Count = echoCount
	pinger.Timeout = timeout
	pinger.SetPrivileged(false)

	if err = pinger.RunWithContext(ctx); err != nil {
		return false, fmt.Errorf("probe %q: %w", host, err)
	}

	stats := pinger.Statistics()
	reachable := stats.PacketsRecv > 0

	logger.DebugKV(ctx, "Probe finished", "host", host, "reachable", reachable)

	return reachable, nil
}
