package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigName is the config file looked up next to the executable
	DefaultConfigName = "dohwrap.yml"

	// DefaultAllowListName is the interface allow-list file name
	DefaultAllowListName = "NIC.txt"

	// PolicyNone manages no interface when the allow-list is missing
	PolicyNone = "none"
	// PolicyAll manages every eligible interface when the allow-list is missing
	PolicyAll = "all"

	envConfigPath = "DOHWRAP_CONFIG"
	envVerbose    = "DOHWRAP_VERBOSE"
)

// Config represents the wrapper configuration
type Config struct {
	Proxy     ProxyConfig     `yaml:"proxy"`
	AllowList AllowListConfig `yaml:"allowlist"`
	DNS       DNSConfig       `yaml:"dns"`
	Events    EventsConfig    `yaml:"events"`
	Server    ServerConfig    `yaml:"server"`
	Probe     ProbeConfig     `yaml:"probe"`
	Log       LogConfig       `yaml:"log"`
}

// ProxyConfig holds the external DoH proxy settings
type ProxyConfig struct {
	// Binary is resolved against the install directory unless absolute
	Binary string `yaml:"binary,omitempty" validate:"required"`
}

// AllowListConfig holds the interface allow-list settings
type AllowListConfig struct {
	File          string `yaml:"file,omitempty" validate:"required"`
	MissingPolicy string `yaml:"missing_policy,omitempty" validate:"oneof=none all"`
}

// DNSConfig holds the DNS-client command template.
// Each argument may contain {interface} and {servers} tags; an argument that is
// exactly {servers} expands to one argument per server, otherwise servers are
// joined with Separator.
type DNSConfig struct {
	Command   []string `yaml:"command,omitempty" validate:"min=1,dive,required"`
	Separator string   `yaml:"separator,omitempty"`
}

// EventsConfig holds change-event settings
type EventsConfig struct {
	QueueSize        int    `yaml:"queue_size,omitempty" validate:"min=1,max=64"`
	ReassertSchedule string `yaml:"reassert_schedule,omitempty"`
}

// ServerConfig holds control socket and health server settings
type ServerConfig struct {
	SocketPath    string `yaml:"socket_path,omitempty" validate:"required"`
	HealthAddress string `yaml:"health_address,omitempty" validate:"eq=off|hostname_port"` // "off" disables
}

// ProbeConfig holds DNS probe settings
type ProbeConfig struct {
	Domain  string        `yaml:"domain,omitempty" validate:"required,fqdn"`
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"gt=0"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Verbose bool `yaml:"verbose,omitempty"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load loads configuration from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values
func (c *Config) setDefaults() {
	if c.Proxy.Binary == "" {
		c.Proxy.Binary = defaultProxyBinary()
	}
	if c.AllowList.File == "" {
		c.AllowList.File = DefaultAllowListName
	}
	if c.AllowList.MissingPolicy == "" {
		c.AllowList.MissingPolicy = PolicyNone
	}
	if len(c.DNS.Command) == 0 {
		c.DNS.Command = defaultDNSCommand()
	}
	if c.DNS.Separator == "" {
		c.DNS.Separator = defaultServerSeparator()
	}
	if c.Events.QueueSize == 0 {
		c.Events.QueueSize = 1
	}
	if c.Server.SocketPath == "" {
		c.Server.SocketPath = defaultSocketPath()
	}
	if c.Server.HealthAddress == "" {
		c.Server.HealthAddress = "127.0.0.1:8082"
	}
	if c.Probe.Domain == "" {
		c.Probe.Domain = "example.com"
	}
	if c.Probe.Timeout == 0 {
		c.Probe.Timeout = 2 * time.Second
	}
}

func (c *Config) applyEnv() {
	switch strings.ToLower(os.Getenv(envVerbose)) {
	case "1", "true", "yes":
		c.Log.Verbose = true
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Events.ReassertSchedule != "" {
		if _, err := cron.ParseStandard(c.Events.ReassertSchedule); err != nil {
			return fmt.Errorf("invalid reassert_schedule %q: %w", c.Events.ReassertSchedule, err)
		}
	}

	return nil
}

// HealthEnabled reports whether the health server should run
func (c *Config) HealthEnabled() bool {
	return c.Server.HealthAddress != "off"
}

// Paths holds the locations derived from the install directory.
// It is computed once at startup and passed to the components needing it.
type Paths struct {
	InstallDir string
	ConfigFile string
}

// ResolvePaths derives Paths from the running executable
func ResolvePaths() (Paths, error) {
	exe, err := os.Executable()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return NewPaths(filepath.Dir(exe)), nil
}

// NewPaths builds Paths rooted at dir, honoring DOHWRAP_CONFIG
func NewPaths(dir string) Paths {
	configFile := os.Getenv(envConfigPath)
	if configFile == "" {
		configFile = filepath.Join(dir, DefaultConfigName)
	}
	return Paths{
		InstallDir: dir,
		ConfigFile: configFile,
	}
}

// Resolve returns name joined to the install directory unless it is absolute
func (p Paths) Resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.InstallDir, name)
}

// AllowListPath returns the absolute allow-list location
func (c *Config) AllowListPath(p Paths) string {
	return p.Resolve(c.AllowList.File)
}

// ProxyPath returns the absolute proxy executable location
func (c *Config) ProxyPath(p Paths) string {
	return p.Resolve(c.Proxy.Binary)
}
