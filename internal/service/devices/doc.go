// Package devices implements the registry management commands: add,
// edit, remove, list, network scan, and SSH credential configuration.
// Missing inputs are prompted for interactively; adding can be assisted
// by a scan of the local network.
package devices
