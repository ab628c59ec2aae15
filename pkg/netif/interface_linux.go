//go:build linux

package netif

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/vishvananda/netlink"
)

type linuxLister struct {
	logger logr.Logger
}

func newLister(cfg Config) Lister {
	return &linuxLister{logger: cfg.Logger}
}

func (l *linuxLister) List() ([]Interface, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}

	result := make([]Interface, 0, len(links))
	for _, link := range links {
		attrs := link.Attrs()

		addrs, err := netlink.AddrList(link, netlink.FAMILY_ALL)
		if err != nil {
			// Keep the interface, it just has no usable addresses
			l.logger.V(1).Info("Failed to list addresses", "interface", attrs.Name, "error", err.Error())
		}

		ips := make([]net.IP, 0, len(addrs))
		for _, addr := range addrs {
			if addr.IPNet != nil && addr.IP != nil {
				ips = append(ips, addr.IP)
			}
		}

		result = append(result, Interface{
			Name:  attrs.Name,
			Index: attrs.Index,
			Type:  linkType(link),
			State: linkState(attrs.OperState),
			Addrs: ips,
		})
	}

	return result, nil
}

func linkType(link netlink.Link) Type {
	attrs := link.Attrs()
	if attrs.Flags&net.FlagLoopback != 0 || attrs.EncapType == "loopback" {
		return TypeLoopback
	}

	switch link.Type() {
	case "tuntap", "wireguard", "ipip", "gre", "gretap", "ip6tnl", "sit", "vti", "ip6gre":
		return TypeTunnel
	}

	switch attrs.EncapType {
	case "ether":
		if _, err := os.Stat(filepath.Join("/sys/class/net", attrs.Name, "wireless")); err == nil {
			return TypeWireless
		}
		return TypeEthernet
	case "none", "ppp":
		// raw IP devices (tun, ppp)
		return TypeTunnel
	case "", "void", "unknown":
		return TypeUnknown
	default:
		return TypeOther
	}
}

func linkState(state netlink.LinkOperState) State {
	switch state {
	case netlink.OperUp:
		return StateUp
	case netlink.OperDown, netlink.OperLowerLayerDown, netlink.OperNotPresent:
		return StateDown
	case netlink.OperUnknown:
		return StateUnknown
	default:
		return StateOther
	}
}
