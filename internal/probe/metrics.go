package probe

// MetricsReporter receives probe lifecycle events for export. The
// concrete Prometheus implementation lives in internal/metrics; the
// interface is declared here so the probe package carries no metrics
// dependency.
type MetricsReporter interface {
	// IncMessagesSent counts one heartbeat (or prime) sent.
	IncMessagesSent(transport string)

	// IncMessagesReceived counts one inbound reply, labeled by kind
	// ("structured" or "opaque").
	IncMessagesReceived(transport, kind string)

	// IncConnectAttempts counts one connection attempt (before outcome).
	IncConnectAttempts(transport string)

	// IncAttemptFailures counts one attempt-fatal, retryable error.
	IncAttemptFailures(transport string)

	// IncTimedResets counts one deliberate timed reset.
	IncTimedResets(transport string)

	// SetActive flags whether a probe loop is currently running.
	SetActive(active bool)
}

// noopMetrics is the default MetricsReporter when no collector is wired.
type noopMetrics struct{}

func (noopMetrics) IncMessagesSent(string)             {}
func (noopMetrics) IncMessagesReceived(string, string) {}
func (noopMetrics) IncConnectAttempts(string)          {}
func (noopMetrics) IncAttemptFailures(string)          {}
func (noopMetrics) IncTimedResets(string)              {}
func (noopMetrics) SetActive(bool)                     {}

// replyKind maps a classified reply to its metrics label.
func replyKind(r Reply) string {
	if r.Structured {
		return "structured"
	}
	return "opaque"
}
