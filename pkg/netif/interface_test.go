package netif

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeString(t *testing.T) {
	tests := map[Type]string{
		TypeUnknown:  "unknown",
		TypeLoopback: "loopback",
		TypeEthernet: "ethernet",
		TypeWireless: "wireless",
		TypeTunnel:   "tunnel",
		TypeOther:    "other",
		Type(42):     "unknown",
	}
	for typ, want := range tests {
		assert.Equal(t, want, typ.String())
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "up", StateUp.String())
	assert.Equal(t, "down", StateDown.String())
	assert.Equal(t, "other", StateOther.String())
	assert.Equal(t, "unknown", StateUnknown.String())
}

func TestInterfacePredicates(t *testing.T) {
	lo := Interface{Name: "lo", Type: TypeLoopback, State: StateUp}
	assert.True(t, lo.IsLoopback())
	assert.True(t, lo.IsUp())

	eth := Interface{Name: "eth0", Type: TypeEthernet, State: StateDown}
	assert.False(t, eth.IsLoopback())
	assert.False(t, eth.IsUp())
}

func TestStaticListReturnsCopy(t *testing.T) {
	s := Static{
		{Name: "Ethernet", Addrs: []net.IP{net.ParseIP("10.0.0.5")}},
		{Name: "Wi-Fi"},
	}

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)

	list[0].Name = "changed"
	assert.Equal(t, "Ethernet", s[0].Name)
}

func TestNewListerEnumerates(t *testing.T) {
	list, err := NewLister(Config{}).List()
	if err != nil {
		t.Skipf("interface enumeration unavailable: %v", err)
	}
	for _, iface := range list {
		assert.NotEmpty(t, iface.Name)
	}
}
