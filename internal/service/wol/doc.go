// Package wol constructs and broadcasts Wake-on-LAN magic packets.
package wol
