//go:build windows

package config

// defaultProxyBinary returns the platform-specific proxy executable name
func defaultProxyBinary() string {
	return "doh-proxy.exe"
}

// defaultSocketPath returns the platform-specific default socket path
func defaultSocketPath() string {
	// Windows named pipe path
	return `\\.\pipe\dohwrap`
}

// defaultDNSCommand returns the platform-specific DNS-client command template
func defaultDNSCommand() []string {
	return []string{
		"powershell", "-NoProfile", "-NonInteractive", "-Command",
		"Set-DnsClientServerAddress -InterfaceAlias '{interface}' -ServerAddresses ('{servers}')",
	}
}

// defaultServerSeparator joins servers inside the quoted PowerShell array
func defaultServerSeparator() string {
	return "','"
}
