package resolver

import (
	"net"
	"testing"

	"github.com/ishanjain/dohwrap/pkg/netif"
	"github.com/stretchr/testify/assert"
)

func ips(addrs ...string) []net.IP {
	var result []net.IP
	for _, a := range addrs {
		result = append(result, net.ParseIP(a))
	}
	return result
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		addrs []net.IP
		want  Addresses
	}{
		{
			name:  "first of each family",
			addrs: ips("fe80::1", "10.0.0.5", "10.0.0.9"),
			want:  Addresses{IPv4: "10.0.0.5", IPv6: "fe80::1"},
		},
		{
			name:  "only ipv4",
			addrs: ips("192.168.1.20", "192.168.1.21"),
			want:  Addresses{IPv4: "192.168.1.20"},
		},
		{
			name:  "only ipv6",
			addrs: ips("2001:db8::10", "fe80::abcd"),
			want:  Addresses{IPv6: "2001:db8::10"},
		},
		{
			name:  "ipv4-mapped ipv6 counts as ipv4",
			addrs: ips("::ffff:10.1.2.3", "2001:db8::1"),
			want:  Addresses{IPv4: "10.1.2.3", IPv6: "2001:db8::1"},
		},
		{
			name:  "nil entries skipped",
			addrs: []net.IP{nil, net.ParseIP("10.0.0.1")},
			want:  Addresses{IPv4: "10.0.0.1"},
		},
		{
			name: "no addresses",
			want: Addresses{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(netif.Interface{Name: "eth0", Addrs: tt.addrs})
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.IPv4 == "" && tt.want.IPv6 == "", got.Empty())
		})
	}
}
