package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"
	"github.com/ishanjain/dohwrap/pkg/config"
	"github.com/ishanjain/dohwrap/pkg/dnsconf"
	"github.com/ishanjain/dohwrap/pkg/health"
	"github.com/ishanjain/dohwrap/pkg/metrics"
	"github.com/ishanjain/dohwrap/pkg/netif"
	"github.com/ishanjain/dohwrap/pkg/probe"
	"github.com/ishanjain/dohwrap/pkg/selector"
	"github.com/ishanjain/dohwrap/pkg/socket"
	"github.com/ishanjain/dohwrap/pkg/supervisor"
	"github.com/ishanjain/dohwrap/pkg/watcher"
	"github.com/robfig/cron/v3"
)

// ListeningMessage is printed once the change subscription is active
const ListeningMessage = "Listening for address changes."

// Options holds the daemon inputs
type Options struct {
	Paths config.Paths

	// Config is loaded from Paths.ConfigFile when nil
	Config *config.Config

	// Args are passed through to the proxy
	Args []string

	Version string

	// Out receives the proxy output and console messages
	Out io.Writer

	// Lister, Notifier and Configurator default to the OS implementations
	Lister       netif.Lister
	Notifier     netif.Notifier
	Configurator dnsconf.Configurator

	Logger logr.Logger
}

// Daemon wires the DNS watchdog around the proxy process
type Daemon struct {
	paths   config.Paths
	version string
	out     io.Writer
	logger  logr.Logger

	// fixedConfigurator disables DNS command reloads
	fixedConfigurator bool

	metrics      *metrics.Metrics
	selector     *selector.Selector
	updater      *dnsconf.Updater
	subscription *watcher.Subscription
	supervisor   *supervisor.Supervisor
	socketServer *socket.Server
	healthServer *health.Server

	mu     sync.RWMutex
	config *config.Config
	prober *probe.Prober
}

// New loads the configuration and builds every component
func New(opts Options) (*Daemon, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(opts.Paths.ConfigFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	logger := opts.Logger
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	d := &Daemon{
		paths:   opts.Paths,
		version: opts.Version,
		out:     out,
		logger:  logger,
		config:  cfg,
		metrics: metrics.New(),
	}

	lister := opts.Lister
	if lister == nil {
		lister = netif.NewLister(netif.Config{Logger: logger})
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = netif.NewNotifier(netif.Config{Logger: logger})
	}
	configurator := opts.Configurator
	if configurator != nil {
		d.fixedConfigurator = true
	} else {
		configurator = d.newConfigurator(cfg)
	}

	d.selector = selector.New(selector.Config{
		Lister:        lister,
		AllowListPath: cfg.AllowListPath(opts.Paths),
		MissingPolicy: cfg.AllowList.MissingPolicy,
		Logger:        logger.WithName("selector"),
	})

	d.updater = dnsconf.NewUpdater(dnsconf.UpdaterConfig{
		Selector:     d.selector,
		Configurator: configurator,
		Metrics:      d.metrics,
		Logger:       logger,
	})

	d.subscription = watcher.New(watcher.Config{
		Notifier:  notifier,
		Handler:   d.pass,
		QueueSize: cfg.Events.QueueSize,
		Metrics:   d.metrics,
		Logger:    logger.WithName("watcher"),
	})

	d.prober = d.newProber(cfg)

	d.supervisor = supervisor.New(supervisor.Config{
		Dir:     opts.Paths.InstallDir,
		Path:    cfg.ProxyPath(opts.Paths),
		Args:    strings.Join(opts.Args, " "),
		Out:     out,
		Metrics: d.metrics,
		Logger:  logger.WithName("supervisor"),
	})

	d.socketServer = socket.NewServer(cfg.Server.SocketPath, d, logger.WithName("socket"))

	if cfg.HealthEnabled() {
		d.healthServer = health.NewServer(health.Config{
			Address: cfg.Server.HealthAddress,
			Source:  d,
			Metrics: d.metrics,
			Logger:  logger.WithName("health"),
		})
	}

	return d, nil
}

// Run configures DNS, starts listening for changes and runs the proxy until it
// exits. The proxy exit code is returned. DNS settings are left as they are.
func (d *Daemon) Run(ctx context.Context) (int, error) {
	cfg := d.currentConfig()

	d.logger.Info("Starting dohwrap",
		"version", d.version,
		"installDir", d.paths.InstallDir,
		"allowList", cfg.AllowListPath(d.paths),
		"proxy", d.supervisor.Path())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.pass(ctx)

	if err := d.subscription.Start(ctx); err != nil {
		return -1, fmt.Errorf("failed to start change subscription: %w", err)
	}
	defer d.subscription.Stop()
	fmt.Fprintln(d.out, ListeningMessage)

	go d.watchFiles(ctx, nil)

	if cfg.Events.ReassertSchedule != "" {
		c := cron.New(cron.WithLogger(d.logger.WithName("cron")))
		if _, err := c.AddFunc(cfg.Events.ReassertSchedule, func() {
			d.subscription.Trigger(watcher.SourceSchedule)
		}); err != nil {
			d.logger.Error(err, "Invalid reassert schedule", "schedule", cfg.Events.ReassertSchedule)
		} else {
			c.Start()
			defer c.Stop()
			d.logger.Info("Reasserting DNS on schedule", "schedule", cfg.Events.ReassertSchedule)
		}
	}

	// Control surfaces are optional, the proxy runs without them
	if err := d.socketServer.Start(); err != nil {
		d.logger.Error(err, "Failed to start control socket")
	} else {
		defer d.socketServer.Stop()
	}

	if d.healthServer != nil {
		if err := d.healthServer.Start(); err != nil {
			d.logger.Error(err, "Failed to start health server")
		} else {
			defer func() {
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				defer done()
				_ = d.healthServer.Stop(shutdownCtx)
			}()
		}
	}

	code, err := d.supervisor.Run(ctx)
	if err != nil {
		if errors.Is(err, supervisor.ErrStart) {
			d.logger.Error(err, "Failed to start DoH proxy")
		}
		return code, err
	}
	return code, nil
}

// pass runs one full select/resolve/configure pass
func (d *Daemon) pass(ctx context.Context) {
	d.updater.Run(ctx)
}

func (d *Daemon) currentConfig() *config.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.config
}

func (d *Daemon) newConfigurator(cfg *config.Config) dnsconf.Configurator {
	return dnsconf.NewCommand(dnsconf.CommandConfig{
		Template:  cfg.DNS.Command,
		Separator: cfg.DNS.Separator,
		Logger:    d.logger.WithName("dns"),
	})
}

func (d *Daemon) newProber(cfg *config.Config) *probe.Prober {
	return probe.New(probe.Config{
		Domain:  cfg.Probe.Domain,
		Timeout: cfg.Probe.Timeout,
		Logger:  d.logger.WithName("probe"),
	})
}

// watchFiles watches the directories holding the config file and the allow-list.
// ready, if not nil, is closed once the watches are in place.
func (d *Daemon) watchFiles(ctx context.Context, ready chan<- struct{}) {
	signal := func() {
		if ready != nil {
			close(ready)
			ready = nil
		}
	}
	defer signal()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		d.logger.Error(err, "Failed to create file watcher")
		return
	}
	defer fw.Close()

	configPath := filepath.Clean(d.paths.ConfigFile)
	allowListPath := filepath.Clean(d.currentConfig().AllowListPath(d.paths))

	// Watch directories to catch rename-based saves
	dirs := map[string]struct{}{
		filepath.Dir(configPath):    {},
		filepath.Dir(allowListPath): {},
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			d.logger.Error(err, "Failed to watch directory", "path", dir)
		}
	}

	d.logger.V(1).Info("Watching files for changes", "config", configPath, "allowList", allowListPath)

	signal()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}

			name := filepath.Clean(event.Name)
			switch {
			case name == allowListPath:
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				d.logger.Info("Allow-list changed", "path", name, "op", event.Op.String())
				d.subscription.Trigger(watcher.SourceAllowList)

			case name == configPath:
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				d.logger.Info("Config file changed, reloading...", "path", name)
				// Small delay to ensure file is fully written
				time.Sleep(100 * time.Millisecond)
				if d.reloadConfig() {
					d.subscription.Trigger(watcher.SourceConfig)
				}
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			d.logger.Error(err, "File watcher error")
		}
	}
}

// reloadConfig applies the hot-reloadable settings and reports whether the
// new config was accepted
func (d *Daemon) reloadConfig() bool {
	newCfg, err := config.Load(d.paths.ConfigFile)
	if err != nil {
		d.logger.Error(err, "Invalid config, keeping current configuration", "path", d.paths.ConfigFile)
		return false
	}

	d.mu.Lock()
	old := d.config
	merged := *old
	merged.AllowList.MissingPolicy = newCfg.AllowList.MissingPolicy
	merged.DNS = newCfg.DNS
	merged.Probe = newCfg.Probe
	d.config = &merged
	d.prober = d.newProber(&merged)
	d.mu.Unlock()

	if old.AllowList.MissingPolicy != merged.AllowList.MissingPolicy {
		d.selector.SetMissingPolicy(merged.AllowList.MissingPolicy)
		d.logger.Info("Missing allow-list policy updated",
			"old", old.AllowList.MissingPolicy,
			"new", merged.AllowList.MissingPolicy)
	}

	if !d.fixedConfigurator {
		d.updater.SetConfigurator(d.newConfigurator(&merged))
		if strings.Join(old.DNS.Command, " ") != strings.Join(merged.DNS.Command, " ") {
			d.logger.Info("DNS command updated", "command", merged.DNS.Command)
		}
	}

	if newCfg.Proxy.Binary != old.Proxy.Binary ||
		newCfg.AllowList.File != old.AllowList.File ||
		newCfg.Server != old.Server ||
		newCfg.Events != old.Events ||
		newCfg.Log != old.Log {
		d.logger.Info("Some settings changed that require a restart to take effect")
	}

	return true
}

// ProxyStatus implements health.Source
func (d *Daemon) ProxyStatus() supervisor.Info {
	return d.supervisor.Status()
}

// LastPass implements health.Source
func (d *Daemon) LastPass() *dnsconf.Pass {
	return d.updater.Last()
}

// GetStatus implements socket.Controller
func (d *Daemon) GetStatus() socket.StatusResponse {
	cfg := d.currentConfig()
	last := d.updater.Last()

	managed := 0
	if last != nil {
		managed = len(last.Interfaces)
	}

	return socket.StatusResponse{
		Version:       d.version,
		InstallDir:    d.paths.InstallDir,
		AllowList:     cfg.AllowListPath(d.paths),
		MissingPolicy: cfg.AllowList.MissingPolicy,
		Managed:       managed,
		Proxy:         d.supervisor.Status(),
		LastPass:      last,
	}
}

// ListInterfaces implements socket.Controller
func (d *Daemon) ListInterfaces() []dnsconf.InterfaceResult {
	last := d.updater.Last()
	if last == nil {
		return []dnsconf.InterfaceResult{}
	}
	return last.Interfaces
}

// Refresh implements socket.Controller
func (d *Daemon) Refresh() bool {
	return d.subscription.Trigger(watcher.SourceControl)
}

// Probe implements socket.Controller
func (d *Daemon) Probe(ctx context.Context) []probe.Result {
	d.mu.RLock()
	prober := d.prober
	d.mu.RUnlock()

	return prober.ProbeAll(ctx, probeTargets(d.updater.Last()))
}

// probeTargets lists the addresses the last pass configured, link-local IPv6
// addresses scoped to their interface
func probeTargets(last *dnsconf.Pass) []string {
	if last == nil {
		return nil
	}

	var targets []string
	for _, iface := range last.Interfaces {
		if iface.Addresses.IPv4 != "" {
			targets = append(targets, iface.Addresses.IPv4)
		}
		if v6 := iface.Addresses.IPv6; v6 != "" {
			if ip := net.ParseIP(v6); ip != nil && ip.IsLinkLocalUnicast() {
				v6 += "%" + iface.Name
			}
			targets = append(targets, v6)
		}
	}
	return targets
}
