package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultConfigName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(envVerbose, "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, defaultProxyBinary(), cfg.Proxy.Binary)
	assert.Equal(t, DefaultAllowListName, cfg.AllowList.File)
	assert.Equal(t, PolicyNone, cfg.AllowList.MissingPolicy)
	assert.Equal(t, defaultDNSCommand(), cfg.DNS.Command)
	assert.Equal(t, 1, cfg.Events.QueueSize)
	assert.Equal(t, "127.0.0.1:8082", cfg.Server.HealthAddress)
	assert.Equal(t, "example.com", cfg.Probe.Domain)
	assert.Equal(t, 2*time.Second, cfg.Probe.Timeout)
	assert.False(t, cfg.Log.Verbose)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
proxy:
  binary: /usr/local/bin/doh-proxy
allowlist:
  file: interfaces.txt
  missing_policy: all
dns:
  command: ["echo", "{interface}", "{servers}"]
events:
  queue_size: 4
  reassert_schedule: "*/5 * * * *"
server:
  health_address: "off"
probe:
  domain: example.org
  timeout: 500ms
log:
  verbose: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/doh-proxy", cfg.Proxy.Binary)
	assert.Equal(t, "interfaces.txt", cfg.AllowList.File)
	assert.Equal(t, PolicyAll, cfg.AllowList.MissingPolicy)
	assert.Equal(t, []string{"echo", "{interface}", "{servers}"}, cfg.DNS.Command)
	assert.Equal(t, defaultServerSeparator(), cfg.DNS.Separator)
	assert.Equal(t, 4, cfg.Events.QueueSize)
	assert.Equal(t, "*/5 * * * *", cfg.Events.ReassertSchedule)
	assert.False(t, cfg.HealthEnabled())
	assert.Equal(t, 500*time.Millisecond, cfg.Probe.Timeout)
	assert.True(t, cfg.Log.Verbose)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "proxy: [unterminated"},
		{"bad policy", "allowlist:\n  missing_policy: some\n"},
		{"queue too large", "events:\n  queue_size: 1000\n"},
		{"bad schedule", "events:\n  reassert_schedule: \"every now and then\"\n"},
		{"bad health address", "server:\n  health_address: \"not an address\"\n"},
		{"bad probe domain", "probe:\n  domain: \"not a domain\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestVerboseFromEnv(t *testing.T) {
	t.Setenv(envVerbose, "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.True(t, cfg.Log.Verbose)
}

func TestPaths(t *testing.T) {
	t.Setenv(envConfigPath, "")

	dir := t.TempDir()
	p := NewPaths(dir)
	assert.Equal(t, dir, p.InstallDir)
	assert.Equal(t, filepath.Join(dir, DefaultConfigName), p.ConfigFile)

	cfg := Default()
	assert.Equal(t, filepath.Join(dir, DefaultAllowListName), cfg.AllowListPath(p))
	assert.Equal(t, filepath.Join(dir, defaultProxyBinary()), cfg.ProxyPath(p))

	abs := filepath.Join(t.TempDir(), "doh-proxy")
	cfg.Proxy.Binary = abs
	assert.Equal(t, abs, cfg.ProxyPath(p))
}

func TestPathsConfigEnv(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "custom.yml")
	t.Setenv(envConfigPath, custom)

	p := NewPaths(t.TempDir())
	assert.Equal(t, custom, p.ConfigFile)
}

func TestResolvePaths(t *testing.T) {
	t.Setenv(envConfigPath, "")

	p, err := ResolvePaths()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(p.InstallDir))
	assert.Equal(t, filepath.Join(p.InstallDir, DefaultConfigName), p.ConfigFile)
}
