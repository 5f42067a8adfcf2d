// Package monitoring collects Prometheus metrics for the client engine:
// connection lifecycle, per-type message traffic, decode failures, and
// input discarded by liveness gating. Exposed through the diagnostics
// server's /metrics endpoint.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all engine metrics.
type Metrics struct {
	// Connection metrics
	ConnectionsActive prometheus.Gauge
	ConnectsTotal     prometheus.Counter
	DisconnectsTotal  *prometheus.CounterVec

	// Message metrics
	Messages      *prometheus.CounterVec
	BytesSent     prometheus.Counter
	BytesReceived prometheus.Counter

	// Resilience metrics
	DecodeFailures prometheus.Counter
	DroppedInput   *prometheus.CounterVec
	AdvisoryErrors prometheus.Counter

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// New creates a metrics collector registered on the given registerer.
// Tests pass a fresh prometheus.NewRegistry to avoid duplicate
// registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		startTime: time.Now(),

		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "termbridge_connections_active",
			Help: "Whether a bridge connection is currently live (0 or 1)",
		}),
		ConnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "termbridge_connects_total",
			Help: "Total number of connection attempts",
		}),
		DisconnectsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "termbridge_disconnects_total",
			Help: "Total number of session teardowns by cause",
		}, []string{"cause"}),

		Messages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "termbridge_messages_total",
			Help: "Total protocol messages by direction and type",
		}, []string{"direction", "type"}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "termbridge_bytes_sent_total",
			Help: "Total payload bytes sent to the bridge",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "termbridge_bytes_received_total",
			Help: "Total payload bytes received from the bridge",
		}),

		DecodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "termbridge_decode_failures_total",
			Help: "Inbound frames discarded because they could not be decoded",
		}),
		DroppedInput: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "termbridge_dropped_input_total",
			Help: "Input events discarded because the session was not connected",
		}, []string{"kind"}),
		AdvisoryErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "termbridge_advisory_errors_total",
			Help: "Backend-reported errors surfaced as warnings without ending the session",
		}),

		Uptime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "termbridge_uptime_seconds",
			Help: "Client uptime in seconds",
		}),
	}
}

// RecordSent records one outbound message.
func (m *Metrics) RecordSent(msgType string, bytes int) {
	m.Messages.WithLabelValues("sent", msgType).Inc()
	m.BytesSent.Add(float64(bytes))
}

// RecordReceived records one inbound message.
func (m *Metrics) RecordReceived(msgType string, bytes int) {
	m.Messages.WithLabelValues("received", msgType).Inc()
	m.BytesReceived.Add(float64(bytes))
}

// UpdateUptime refreshes the uptime gauge.
func (m *Metrics) UpdateUptime() {
	m.Uptime.Set(time.Since(m.startTime).Seconds())
}
