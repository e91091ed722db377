package probemetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "netprobe"
	subsystem = "probe"
)

// Label names for probe metrics.
const (
	labelTransport = "transport"
	labelKind      = "kind"
)

// -------------------------------------------------------------------------
// Collector — Prometheus Probe Metrics
// -------------------------------------------------------------------------

// Collector holds all probe Prometheus metrics and implements
// probe.MetricsReporter.
//
// Metrics are designed for path-quality monitoring:
//   - Message counters track heartbeat volume per transport.
//   - Attempt counters separate connect attempts from failures so the
//     failure ratio is a direct alerting signal.
//   - Timed resets are counted apart from failures; a reset is policy,
//     not an error.
type Collector struct {
	// Active flags whether a probe loop is currently running (0 or 1).
	Active prometheus.Gauge

	// MessagesSent counts heartbeat and prime payloads transmitted.
	MessagesSent *prometheus.CounterVec

	// MessagesReceived counts inbound replies by classification kind
	// ("structured" or "opaque").
	MessagesReceived *prometheus.CounterVec

	// ConnectAttempts counts connection attempts before their outcome.
	ConnectAttempts *prometheus.CounterVec

	// AttemptFailures counts attempt-fatal, retryable errors.
	AttemptFailures *prometheus.CounterVec

	// TimedResets counts deliberate connection resets.
	TimedResets *prometheus.CounterVec
}

// NewCollector creates a Collector with all probe metrics registered
// against the provided prometheus.Registerer. If reg is nil,
// prometheus.DefaultRegisterer is used.
//
// All metrics are created with the "netprobe_probe_" prefix
// (namespace_subsystem) to avoid collisions with other exporters.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.Active,
		c.MessagesSent,
		c.MessagesReceived,
		c.ConnectAttempts,
		c.AttemptFailures,
		c.TimedResets,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	transportLabels := []string{labelTransport}
	receiveLabels := []string{labelTransport, labelKind}

	return &Collector{
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active",
			Help:      "Whether a probe loop is currently running (0 or 1).",
		}),

		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_sent_total",
			Help:      "Total heartbeat and prime payloads transmitted.",
		}, transportLabels),

		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "messages_received_total",
			Help:      "Total inbound replies by classification kind.",
		}, receiveLabels),

		ConnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connect_attempts_total",
			Help:      "Total connection attempts, successful or not.",
		}, transportLabels),

		AttemptFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "attempt_failures_total",
			Help:      "Total attempt-fatal errors that triggered backoff.",
		}, transportLabels),

		TimedResets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "timed_resets_total",
			Help:      "Total deliberate timed connection resets.",
		}, transportLabels),
	}
}

// -------------------------------------------------------------------------
// probe.MetricsReporter implementation
// -------------------------------------------------------------------------

// IncMessagesSent increments the sent-messages counter for the transport.
func (c *Collector) IncMessagesSent(transport string) {
	c.MessagesSent.WithLabelValues(transport).Inc()
}

// IncMessagesReceived increments the received-messages counter for the
// transport and reply kind.
func (c *Collector) IncMessagesReceived(transport, kind string) {
	c.MessagesReceived.WithLabelValues(transport, kind).Inc()
}

// IncConnectAttempts increments the connect-attempts counter.
func (c *Collector) IncConnectAttempts(transport string) {
	c.ConnectAttempts.WithLabelValues(transport).Inc()
}

// IncAttemptFailures increments the attempt-failures counter.
func (c *Collector) IncAttemptFailures(transport string) {
	c.AttemptFailures.WithLabelValues(transport).Inc()
}

// IncTimedResets increments the timed-resets counter.
func (c *Collector) IncTimedResets(transport string) {
	c.TimedResets.WithLabelValues(transport).Inc()
}

// SetActive flags whether a probe loop is currently running.
func (c *Collector) SetActive(active bool) {
	if active {
		c.Active.Set(1)
		return
	}
	c.Active.Set(0)
}
