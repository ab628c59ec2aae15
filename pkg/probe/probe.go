// Package probe checks that the DoH proxy answers plain DNS on the
// addresses the interfaces were pointed at.
package probe

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-logr/logr"
	"github.com/miekg/dns"
)

const (
	defaultDNSPort = "53"
	defaultTimeout = 2 * time.Second
	defaultDomain  = "example.com"
)

// Result is the outcome of a single probe
type Result struct {
	Server  string        `json:"server"`
	Rcode   string        `json:"rcode,omitempty"`
	Answers int           `json:"answers"`
	RTT     time.Duration `json:"rtt"`
	Error   string        `json:"error,omitempty"`
}

// OK reports whether the server answered with NOERROR
func (r Result) OK() bool {
	return r.Error == "" && r.Rcode == dns.RcodeToString[dns.RcodeSuccess]
}

// Config holds prober configuration
type Config struct {
	Domain  string
	Timeout time.Duration
	Logger  logr.Logger
}

// Prober sends A queries over UDP
type Prober struct {
	domain string
	client *dns.Client
	logger logr.Logger
}

// New creates a new prober
func New(cfg Config) *Prober {
	if cfg.Domain == "" {
		cfg.Domain = defaultDomain
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Prober{
		domain: dns.Fqdn(cfg.Domain),
		client: &dns.Client{
			Net:     "udp",
			Timeout: cfg.Timeout,
		},
		logger: cfg.Logger,
	}
}

// Probe queries server, which is an IP address with an optional port
func (p *Prober) Probe(ctx context.Context, server string) Result {
	addr := hostPort(server)
	res := Result{Server: addr}

	req := new(dns.Msg)
	req.SetQuestion(p.domain, dns.TypeA)

	resp, rtt, err := p.client.ExchangeContext(ctx, req, addr)
	res.RTT = rtt
	if err != nil {
		res.Error = err.Error()
		p.logger.V(1).Info("Probe failed", "server", addr, "error", err.Error())
		return res
	}

	res.Rcode = dns.RcodeToString[resp.Rcode]
	res.Answers = len(resp.Answer)
	p.logger.V(1).Info("Probe answered", "server", addr, "rcode", res.Rcode, "rtt", rtt)
	return res
}

// ProbeAll probes each server in order
func (p *Prober) ProbeAll(ctx context.Context, servers []string) []Result {
	results := make([]Result, 0, len(servers))
	for _, s := range servers {
		results = append(results, p.Probe(ctx, s))
	}
	return results
}

func hostPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, defaultDNSPort)
}

// String formats a result for CLI output
func (r Result) String() string {
	if r.Error != "" {
		return fmt.Sprintf("%s: error: %s", r.Server, r.Error)
	}
	return fmt.Sprintf("%s: %s (%d answers) in %s", r.Server, r.Rcode, r.Answers, r.RTT)
}
