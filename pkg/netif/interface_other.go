//go:build !linux && !windows

package netif

import (
	"fmt"
	"net"

	"github.com/go-logr/logr"
)

// netLister falls back to the net package where no richer API is wired.
// Type is derived from flags only, so anything not loopback reports ethernet.
type netLister struct {
	logger logr.Logger
}

func newLister(cfg Config) Lister {
	return &netLister{logger: cfg.Logger}
}

func (l *netLister) List() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	result := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			l.logger.V(1).Info("Failed to list addresses", "interface", iface.Name, "error", err.Error())
		}

		var ips []net.IP
		for _, addr := range addrs {
			switch v := addr.(type) {
			case *net.IPNet:
				ips = append(ips, v.IP)
			case *net.IPAddr:
				ips = append(ips, v.IP)
			}
		}

		t := TypeEthernet
		if iface.Flags&net.FlagLoopback != 0 {
			t = TypeLoopback
		} else if iface.Flags&net.FlagPointToPoint != 0 {
			t = TypeTunnel
		}

		state := StateDown
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagRunning != 0 {
			state = StateUp
		}

		result = append(result, Interface{
			Name:  iface.Name,
			Index: iface.Index,
			Type:  t,
			State: state,
			Addrs: ips,
		})
	}

	return result, nil
}
