package probe

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer runs a DNS server answering every A query with 1.2.3.4
func startServer(t *testing.T, rcode int) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	server := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetRcode(r, rcode)
			if rcode == dns.RcodeSuccess {
				rr, _ := dns.NewRR(fmt.Sprintf("%s 60 IN A 1.2.3.4", r.Question[0].Name))
				m.Answer = append(m.Answer, rr)
			}
			_ = w.WriteMsg(m)
		}),
	}

	go func() { _ = server.ActivateAndServe() }()
	t.Cleanup(func() { _ = server.Shutdown() })

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("dns server did not start")
	}
	return pc.LocalAddr().String()
}

func TestProbeAnswered(t *testing.T) {
	addr := startServer(t, dns.RcodeSuccess)
	p := New(Config{Domain: "example.com", Timeout: time.Second, Logger: logr.Discard()})

	res := p.Probe(context.Background(), addr)
	assert.True(t, res.OK(), res.String())
	assert.Equal(t, addr, res.Server)
	assert.Equal(t, "NOERROR", res.Rcode)
	assert.Equal(t, 1, res.Answers)
	assert.Empty(t, res.Error)
}

func TestProbeRcode(t *testing.T) {
	addr := startServer(t, dns.RcodeServerFailure)
	p := New(Config{Timeout: time.Second, Logger: logr.Discard()})

	res := p.Probe(context.Background(), addr)
	assert.False(t, res.OK())
	assert.Equal(t, "SERVFAIL", res.Rcode)
	assert.Zero(t, res.Answers)
}

func TestProbeUnreachable(t *testing.T) {
	// Reserve a port and release it so nothing answers there
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := pc.LocalAddr().String()
	require.NoError(t, pc.Close())

	p := New(Config{Timeout: 200 * time.Millisecond, Logger: logr.Discard()})
	res := p.Probe(context.Background(), addr)
	assert.False(t, res.OK())
	assert.NotEmpty(t, res.Error)
	assert.Contains(t, res.String(), "error")
}

func TestProbeAllKeepsOrder(t *testing.T) {
	a := startServer(t, dns.RcodeSuccess)
	b := startServer(t, dns.RcodeNameError)
	p := New(Config{Timeout: time.Second, Logger: logr.Discard()})

	results := p.ProbeAll(context.Background(), []string{a, b})
	require.Len(t, results, 2)
	assert.Equal(t, a, results[0].Server)
	assert.Equal(t, "NOERROR", results[0].Rcode)
	assert.Equal(t, b, results[1].Server)
	assert.Equal(t, "NXDOMAIN", results[1].Rcode)
}

func TestHostPort(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"10.0.0.5", "10.0.0.5:53"},
		{"10.0.0.5:5353", "10.0.0.5:5353"},
		{"fe80::1", "[fe80::1]:53"},
		{"[::1]:53", "[::1]:53"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, hostPort(tt.in))
		})
	}
}
