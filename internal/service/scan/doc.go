// Package scan discovers devices on the local network segment by
// reading the system ARP table, for use when adding or editing
// registry entries.
package scan
