package scan

import (
	"context"
	"fmt"
	"net"
	"os/exec"
	"regexp"
	"strings"

	"github.com/petterhs/wakesleepmanager/internal/logger"
)

// arpEntryPattern matches "host (192.168.1.10) at aa:bb:cc:dd:ee:ff ..."
// lines in `arp -a` output. Incomplete entries have no address to match.
var arpEntryPattern = regexp.MustCompile(`\(([0-9.]+)\) at ([0-9a-fA-F:]+)`)

// Entry is a device discovered on the local network segment.
type Entry struct {
	// IPAddress as reported by the ARP table.
	IPAddress string
	// MACAddress as reported by the ARP table.
	MACAddress string
	// Hostname from reverse DNS, empty when no PTR record exists.
	Hostname string
}

// Network discovers neighboring devices. Replaced with a stub in tests.
type Network interface {
	// Scan lists devices visible in the local ARP table.
	Scan(ctx context.Context) ([]Entry, error)
}

// ARPScanner reads the system ARP table via the arp utility, the same
// table the kernel fills from normal traffic, so no packets are sent.
type ARPScanner struct {
	// resolver performs reverse DNS lookups for discovered addresses.
	resolver *net.Resolver
}

// NewARPScanner returns a scanner backed by the system arp utility.
func NewARPScanner() *ARPScanner {
	return &ARPScanner{
		resolver: net.DefaultResolver,
	}
}

// Scan runs `arp -a`, extracts complete (IP, MAC) entries and
// best-effort resolves hostnames.
func (s *ARPScanner) Scan(ctx context.Context) ([]Entry, error) {
	out, err := exec.CommandContext(ctx, "arp", "-a").Output()
	if err != nil {
		return nil, fmt.Errorf("read ARP table: %w", err)
	}

	entries := Parse(string(out))
	for i := range entries {
		entries[i].Hostname = s.lookupHostname(ctx, entries[i].IPAddress)
	}

	logger.DebugKV(ctx, "Network scan finished", "entries", len(entries))

	return entries, nil
}

// Parse extracts complete entries from arp -a output, skipping
// incomplete ones.
func Parse(output string) []Entry {
	var entries []Entry

	for _, line := range strings.Split(output, "\n") {
		match := arpEntryPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		if _, err := net.ParseMAC(match[2]); err != nil {
			continue
		}

		entries = append(entries, Entry{
			IPAddress:  match[1],
			MACAddress: match[2],
		})
	}

	return entries
}

// lookupHostname returns the first PTR record for ip, or empty.
func (s *ARPScanner) lookupHostname(ctx context.Context, ip string) string {
	names, err := s.resolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		return ""
	}

	return strings.TrimSuffix(names[0], ".")
}
