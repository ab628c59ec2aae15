// Package metrics holds the prometheus collectors exported on /metrics.
// All methods are safe on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "dohwrap"

// Metrics groups the wrapper collectors on a private registry
type Metrics struct {
	Registry *prometheus.Registry

	passes     prometheus.Counter
	dnsSets    *prometheus.CounterVec
	events     *prometheus.CounterVec
	managed    prometheus.Gauge
	proxyUp    prometheus.Gauge
	proxyExits prometheus.Counter
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_passes_total",
			Help:      "Number of full select/resolve/configure passes.",
		}),
		dnsSets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_set_total",
			Help:      "DNS-client configuration calls by result.",
		}, []string{"family", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_events_total",
			Help:      "Change events by source and whether they were queued.",
		}, []string{"source", "queued"}),
		managed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "managed_interfaces",
			Help:      "Interfaces selected by the last pass.",
		}),
		proxyUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "proxy_up",
			Help:      "1 while the DoH proxy process is running.",
		}),
		proxyExits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_exits_total",
			Help:      "Number of DoH proxy process exits.",
		}),
	}

	m.Registry.MustRegister(
		m.passes, m.dnsSets, m.events, m.managed, m.proxyUp, m.proxyExits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObservePass records a finished pass
func (m *Metrics) ObservePass(managed int) {
	if m == nil {
		return
	}
	m.passes.Inc()
	m.managed.Set(float64(managed))
}

// ObserveDNSSet records one configuration call
func (m *Metrics) ObserveDNSSet(family string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.dnsSets.WithLabelValues(family, result).Inc()
}

// ObserveEvent records a change event from source
func (m *Metrics) ObserveEvent(source string, queued bool) {
	if m == nil {
		return
	}
	q := "false"
	if queued {
		q = "true"
	}
	m.events.WithLabelValues(source, q).Inc()
}

// SetProxyUp records the proxy process state
func (m *Metrics) SetProxyUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.proxyUp.Set(1)
		return
	}
	m.proxyUp.Set(0)
	m.proxyExits.Inc()
}
