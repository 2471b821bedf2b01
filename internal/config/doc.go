// Package config loads and persists the YAML settings shared by the
// wake and wsleep binaries: registry file location, broadcast address,
// Wake-on-LAN port and network timeouts. A missing settings file is not
// an error; defaults apply.
package config
