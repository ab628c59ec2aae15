package resolver

import (
	"net"

	"github.com/ishanjain/dohwrap/pkg/netif"
)

// Addresses holds the first unicast address of each family, empty when absent
type Addresses struct {
	IPv4 string `json:"ipv4,omitempty"`
	IPv6 string `json:"ipv6,omitempty"`
}

// Empty reports whether no address was found
func (a Addresses) Empty() bool {
	return a.IPv4 == "" && a.IPv6 == ""
}

// Resolve scans the unicast addresses of iface once and records the first IPv4
// and the first IPv6 address. Later addresses of a family already seen are ignored.
func Resolve(iface netif.Interface) Addresses {
	return ResolveIPs(iface.Addrs)
}

// ResolveIPs is Resolve over a bare address list
func ResolveIPs(ips []net.IP) Addresses {
	var a Addresses
	for _, ip := range ips {
		if a.IPv4 != "" && a.IPv6 != "" {
			break
		}
		if ip == nil {
			continue
		}
		if v4 := ip.To4(); v4 != nil {
			if a.IPv4 == "" {
				a.IPv4 = v4.String()
			}
			continue
		}
		if a.IPv6 == "" && len(ip) == net.IPv6len {
			a.IPv6 = ip.String()
		}
	}
	return a
}
