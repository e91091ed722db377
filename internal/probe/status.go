package probe

// Notifier receives human-readable status lines for display by the host
// layer (e.g. a persistent notification). The probe core never renders
// UI directly; it publishes a start summary, per-reconnect notes, and
// short diagnostics for attempt-fatal errors.
type Notifier interface {
	Publish(status string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(status string)

// Publish calls f(status).
func (f NotifierFunc) Publish(status string) { f(status) }

// noopNotifier discards all status lines.
type noopNotifier struct{}

func (noopNotifier) Publish(string) {}
