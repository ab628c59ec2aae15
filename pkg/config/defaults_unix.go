//go:build !windows

package config

import "runtime"

// defaultProxyBinary returns the platform-specific proxy executable name
func defaultProxyBinary() string {
	return "doh-proxy"
}

// defaultSocketPath returns the platform-specific default socket path
func defaultSocketPath() string {
	return "/var/run/dohwrap.sock"
}

// defaultDNSCommand returns the platform-specific DNS-client command template
func defaultDNSCommand() []string {
	if runtime.GOOS == "darwin" {
		// networksetup expects the network service name, which matches the interface alias on most setups
		return []string{"networksetup", "-setdnsservers", "{interface}", "{servers}"}
	}
	return []string{"resolvectl", "dns", "{interface}", "{servers}"}
}

// defaultServerSeparator joins servers embedded in a larger argument
func defaultServerSeparator() string {
	return ","
}
