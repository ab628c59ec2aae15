package dnsconf

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/go-logr/logr"
	"github.com/valyala/fasttemplate"
)

// Configurator replaces the DNS server list of a network interface
type Configurator interface {
	ApplyDNSServers(ctx context.Context, iface string, servers []string) error
}

// ConfigError is returned when the DNS-client command fails
type ConfigError struct {
	Interface string
	Servers   []string
	Output    string
	Err       error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("failed to set DNS servers %s on %q: %v", strings.Join(e.Servers, ","), e.Interface, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// RunFunc executes a command and returns its combined output
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// CommandConfig holds the DNS-client command settings
type CommandConfig struct {
	// Template is the argv template, see config.DNSConfig
	Template  []string
	Separator string

	// Run overrides command execution, nil runs the command for real
	Run RunFunc

	Logger logr.Logger
}

// Command applies DNS servers by running the OS DNS-client command
type Command struct {
	template  []string
	separator string
	run       RunFunc
	logger    logr.Logger
}

// NewCommand creates a command-backed configurator
func NewCommand(cfg CommandConfig) *Command {
	run := cfg.Run
	if run == nil {
		run = execCombined
	}
	return &Command{
		template:  cfg.Template,
		separator: cfg.Separator,
		run:       run,
		logger:    cfg.Logger,
	}
}

// ApplyDNSServers runs the expanded command for iface
func (c *Command) ApplyDNSServers(ctx context.Context, iface string, servers []string) error {
	argv := Expand(c.template, c.separator, iface, servers)
	if len(argv) == 0 {
		return &ConfigError{Interface: iface, Servers: servers, Err: fmt.Errorf("empty DNS command")}
	}

	c.logger.V(1).Info("Running DNS command", "argv", argv)

	output, err := c.run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return &ConfigError{
			Interface: iface,
			Servers:   servers,
			Output:    string(output),
			Err:       err,
		}
	}

	if out := strings.TrimSpace(string(output)); out != "" {
		c.logger.V(1).Info("DNS command output", "interface", iface, "output", out)
	}
	return nil
}

// Expand substitutes {interface} and {servers} in every template argument.
// An argument that is exactly {interface} or {servers} is replaced verbatim,
// and exactly {servers} becomes one argument per server. Inside a longer
// argument, such as a PowerShell command string, values are placed in
// single-quoted literals, so each ' in them is doubled. The separator is
// template text and is not escaped. Unknown tags are left untouched.
func Expand(template []string, separator, iface string, servers []string) []string {
	quoted := make([]string, len(servers))
	for i, server := range servers {
		quoted[i] = quoteSingle(server)
	}
	values := map[string]string{
		"interface": quoteSingle(iface),
		"servers":   strings.Join(quoted, separator),
	}

	argv := make([]string, 0, len(template)+len(servers))
	for _, arg := range template {
		switch arg {
		case "{servers}":
			argv = append(argv, servers...)
			continue
		case "{interface}":
			argv = append(argv, iface)
			continue
		}
		argv = append(argv, fasttemplate.ExecuteFuncString(arg, "{", "}", func(w io.Writer, tag string) (int, error) {
			if v, ok := values[tag]; ok {
				return io.WriteString(w, v)
			}
			return io.WriteString(w, "{"+tag+"}")
		}))
	}
	return argv
}

func quoteSingle(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func execCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}
