// Package metrics exposes prometheus collectors for the connection engine.
// All methods are nil-safe so instrumentation stays optional.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	acceptedTotal     prometheus.Counter
	activeConnections prometheus.Gauge
	packetsReceived   prometheus.Counter
	packetsSent       prometheus.Counter
	bytesReceived     prometheus.Counter
	bytesSent         prometheus.Counter
}

// New registers the engine collectors on reg under the given namespace.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		acceptedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "net",
			Name:      "connections_accepted_total",
			Help:      "Total number of accepted peer connections.",
		}),
		activeConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "net",
			Name:      "connections_active",
			Help:      "Number of currently open peer connections.",
		}),
		packetsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "net",
			Name:      "packets_received_total",
			Help:      "Total number of raw packets surfaced by receive workers.",
		}),
		packetsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "net",
			Name:      "packets_sent_total",
			Help:      "Total number of packets fully written by transmit workers.",
		}),
		bytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "net",
			Name:      "bytes_received_total",
			Help:      "Total bytes read from peer sockets.",
		}),
		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "net",
			Name:      "bytes_sent_total",
			Help:      "Total bytes written to peer sockets.",
		}),
	}
}

func (m *Metrics) ConnAccepted() {
	if m == nil {
		return
	}

	m.acceptedTotal.Inc()
	m.activeConnections.Inc()
}

func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}

	m.activeConnections.Dec()
}

func (m *Metrics) PacketReceived(bytes int) {
	if m == nil {
		return
	}

	m.packetsReceived.Inc()
	m.bytesReceived.Add(float64(bytes))
}

func (m *Metrics) PacketSent(bytes int) {
	if m == nil {
		return
	}

	m.packetsSent.Inc()
	m.bytesSent.Add(float64(bytes))
}
