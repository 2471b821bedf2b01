// Package wake implements the wake action: look up a device's MAC
// address and broadcast a Wake-on-LAN magic packet, or do so for every
// registered device at once.
package wake
