package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/ishanjain/dohwrap/pkg/config"
	"github.com/ishanjain/dohwrap/pkg/dnsconf"
	"github.com/ishanjain/dohwrap/pkg/probe"
	"github.com/ishanjain/dohwrap/pkg/socket"
	"github.com/spf13/cobra"
)

const envSocket = "DOHWRAP_SOCKET"

type options struct {
	socketPath string
	healthURL  string
	timeout    time.Duration
	paths      config.Paths
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	defaults := loadDefaults(opts)

	root := &cobra.Command{
		Use:           "dohctl",
		Short:         "Control CLI for the dohwrap DNS watchdog",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.socketPath, "socket", defaults.Server.SocketPath,
		"control socket path (env "+envSocket+")")
	root.PersistentFlags().StringVar(&opts.healthURL, "health", healthURL(defaults),
		"health server base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second,
		"request timeout")

	root.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show wrapper and proxy status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				var status socket.StatusResponse
				if err := opts.do(socket.CmdStatus, &status); err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), status)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the interfaces managed by the last pass",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				var list []dnsconf.InterfaceResult
				if err := opts.do(socket.CmdList, &list); err != nil {
					return err
				}
				printInterfaces(cmd.OutOrStdout(), list)
				return nil
			},
		},
		&cobra.Command{
			Use:   "refresh",
			Short: "Queue a DNS update pass",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				var resp socket.RefreshResponse
				if err := opts.do(socket.CmdRefresh, &resp); err != nil {
					return err
				}
				if resp.Queued {
					fmt.Fprintln(cmd.OutOrStdout(), "✓ DNS update queued")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "An update is already pending")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "probe",
			Short: "Query the proxy on every managed address",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				var results []probe.Result
				if err := opts.do(socket.CmdProbe, &results); err != nil {
					return err
				}
				if failed := printProbe(cmd.OutOrStdout(), results); failed > 0 {
					return fmt.Errorf("%d of %d probes failed", failed, len(results))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "health",
			Short: "Show the health server status document",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.health(cmd.Context(), cmd.OutOrStdout())
			},
		},
		&cobra.Command{
			Use:   "config",
			Short: "Open the wrapper config file in an editor",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return openEditor(opts.paths.ConfigFile)
			},
		},
	)

	return root
}

// loadDefaults reads the config installed next to dohctl, falling back to the
// built-in defaults
func loadDefaults(opts *options) *config.Config {
	cfg := config.Default()
	if paths, err := config.ResolvePaths(); err == nil {
		opts.paths = paths
		if loaded, err := config.Load(paths.ConfigFile); err == nil {
			cfg = loaded
		}
	}
	if path := os.Getenv(envSocket); path != "" {
		cfg.Server.SocketPath = path
	}
	return cfg
}

func healthURL(cfg *config.Config) string {
	if !cfg.HealthEnabled() {
		return ""
	}
	return "http://" + cfg.Server.HealthAddress
}

func (o *options) do(command string, out any) error {
	c := &socket.Client{SocketPath: o.socketPath, Timeout: o.timeout}
	if err := c.Do(socket.Command{Command: command}, out); err != nil {
		return fmt.Errorf("%w\nIs dohwrap running?", err)
	}
	return nil
}

func (o *options) health(ctx context.Context, w io.Writer) error {
	if o.healthURL == "" {
		return fmt.Errorf("health server is disabled")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.healthURL+"/status", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to health endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	printHeader(w, "Wrapper Health")
	var pretty map[string]any
	if err := json.Unmarshal(body, &pretty); err == nil {
		b, _ := json.MarshalIndent(pretty, "  ", "  ")
		fmt.Fprintf(w, "  %s\n", b)
	} else {
		fmt.Fprintln(w, string(body))
	}
	return nil
}
