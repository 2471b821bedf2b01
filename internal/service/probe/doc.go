// Package probe answers "is this device reachable right now" with a
// bounded ICMP echo probe.
package probe
