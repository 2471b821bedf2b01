// Package status reports device reachability via bounded ICMP probes.
package status
