package dnsconf

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/ishanjain/dohwrap/pkg/metrics"
	"github.com/ishanjain/dohwrap/pkg/netif"
	"github.com/ishanjain/dohwrap/pkg/resolver"
)

// Selector returns the interfaces whose DNS is managed
type Selector interface {
	Select() ([]netif.Interface, error)
}

// Applied is the outcome of one configuration call
type Applied struct {
	Server string `json:"server"`
	Error  string `json:"error,omitempty"`
}

// InterfaceResult is the outcome of a pass for one interface
type InterfaceResult struct {
	Name      string             `json:"name"`
	Addresses resolver.Addresses `json:"addresses"`
	Applied   []Applied          `json:"applied,omitempty"`
}

// Pass is the outcome of a full select/resolve/configure run
type Pass struct {
	Started    time.Time         `json:"started"`
	Duration   string            `json:"duration"`
	Interfaces []InterfaceResult `json:"interfaces"`
	Error      string            `json:"error,omitempty"`
}

// UpdaterConfig holds updater configuration
type UpdaterConfig struct {
	Selector     Selector
	Configurator Configurator
	Metrics      *metrics.Metrics
	Logger       logr.Logger
}

// Updater runs the DNS update flow
type Updater struct {
	selector     Selector
	configurator Configurator
	metrics      *metrics.Metrics
	logger       logr.Logger

	// runMu serializes passes
	runMu sync.Mutex

	mu   sync.RWMutex
	last *Pass
}

// NewUpdater creates a new updater
func NewUpdater(cfg UpdaterConfig) *Updater {
	return &Updater{
		selector:     cfg.Selector,
		configurator: cfg.Configurator,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
}

// SetConfigurator swaps the configurator used by later passes
func (u *Updater) SetConfigurator(c Configurator) {
	u.runMu.Lock()
	defer u.runMu.Unlock()
	u.configurator = c
}

// Run recomputes the managed interfaces from scratch and points each one's DNS at
// its own addresses. IPv4 is applied before IPv6 as separate single-server calls, so
// an interface with both ends up with the IPv6 address only. Configuration failures
// are logged and recorded, never returned.
func (u *Updater) Run(ctx context.Context) *Pass {
	u.runMu.Lock()
	defer u.runMu.Unlock()

	pass := &Pass{Started: time.Now(), Interfaces: []InterfaceResult{}}
	defer func() {
		pass.Duration = time.Since(pass.Started).String()
		u.metrics.ObservePass(len(pass.Interfaces))

		u.mu.Lock()
		u.last = pass
		u.mu.Unlock()
	}()

	ifaces, err := u.selector.Select()
	if err != nil {
		u.logger.Error(err, "Failed to select interfaces")
		pass.Error = err.Error()
		return pass
	}

	if len(ifaces) == 0 {
		u.logger.Info("No interfaces to manage")
		return pass
	}

	for _, iface := range ifaces {
		for _, ip := range iface.Addrs {
			u.logger.V(1).Info("Interface address", "interface", iface.Name, "ip", ip.String())
		}

		addrs := resolver.Resolve(iface)
		u.logger.Info("Discovered IP", "interface", iface.Name, "ipv4", addrs.IPv4, "ipv6", addrs.IPv6)

		result := InterfaceResult{Name: iface.Name, Addresses: addrs}
		if addrs.IPv4 != "" {
			result.Applied = append(result.Applied, u.apply(ctx, iface.Name, addrs.IPv4, "ipv4"))
		}
		if addrs.IPv6 != "" {
			result.Applied = append(result.Applied, u.apply(ctx, iface.Name, addrs.IPv6, "ipv6"))
		}
		pass.Interfaces = append(pass.Interfaces, result)
	}

	return pass
}

func (u *Updater) apply(ctx context.Context, iface, server, family string) Applied {
	u.logger.Info("SET DNS", "interface", iface, "server", server)

	err := u.configurator.ApplyDNSServers(ctx, iface, []string{server})
	u.metrics.ObserveDNSSet(family, err)

	applied := Applied{Server: server}
	if err != nil {
		u.logger.Error(err, "Failed to set DNS", "interface", iface, "server", server)
		applied.Error = err.Error()
	}
	return applied
}

// Last returns the most recent pass, nil before the first one
func (u *Updater) Last() *Pass {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.last
}
