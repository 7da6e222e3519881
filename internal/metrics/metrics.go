// Package metrics exposes signaling counters for Prometheus.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dialtone"

type Metrics struct {
	reg *prometheus.Registry

	Connections    prometheus.Gauge
	Addresses      prometheus.Gauge
	PublicListings prometheus.Gauge
	Calls          prometheus.Gauge
	Envelopes      *prometheus.CounterVec
	Errors         *prometheus.CounterVec
	DroppedFrames  prometheus.Counter
	CallsByOutcome *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections",
			Help: "Live signal connections.",
		}),
		Addresses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "bound_addresses",
			Help: "Addresses currently held by a connection.",
		}),
		PublicListings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "public_listings",
			Help: "Addresses in the discovery set.",
		}),
		Calls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "calls",
			Help: "Offered or active call sessions.",
		}),
		Envelopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "envelopes_total",
			Help: "Inbound envelopes by kind.",
		}, []string{"kind"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "errors_total",
			Help: "Failure envelopes sent, by code.",
		}, []string{"code"}),
		DroppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "dropped_frames_total",
			Help: "Deliveries dropped because the peer was gone or backpressured.",
		}),
		CallsByOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "call_outcomes_total",
			Help: "Finished call sessions by outcome.",
		}, []string{"outcome"}),
	}
	m.reg.MustRegister(
		m.Connections, m.Addresses, m.PublicListings, m.Calls,
		m.Envelopes, m.Errors, m.DroppedFrames, m.CallsByOutcome,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Envelope(kind string) {
	if m == nil {
		return
	}
	m.Envelopes.WithLabelValues(kind).Inc()
}

func (m *Metrics) Failure(code string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(code).Inc()
}

func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.DroppedFrames.Inc()
}

func (m *Metrics) CallOutcome(outcome string) {
	if m == nil {
		return
	}
	m.CallsByOutcome.WithLabelValues(outcome).Inc()
}

// Snapshot sets the gauges from the current table sizes.
func (m *Metrics) Snapshot(conns, addrs, public, calls int) {
	if m == nil {
		return
	}
	m.Connections.Set(float64(conns))
	m.Addresses.Set(float64(addrs))
	m.PublicListings.Set(float64(public))
	m.Calls.Set(float64(calls))
}
