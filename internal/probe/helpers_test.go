package probe_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/dantte-lp/netprobe/internal/probe"
)

// discardLogger returns a logger that drops all records.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// timeoutErr satisfies net.Error with Timeout() == true, standing in for
// a read-deadline expiry on a mocked connection.
type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

// fakeClock records every requested sleep and cancels the run once the
// configured number of sleeps has been observed. It never actually
// sleeps, so the retry paths run at full speed.
type fakeClock struct {
	mu     sync.Mutex
	sleeps []time.Duration

	cancelAfter int
	cancel      context.CancelFunc
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	n := len(c.sleeps)
	c.mu.Unlock()

	if c.cancel != nil && n >= c.cancelAfter {
		c.cancel()
	}
	return ctx.Err()
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// blockingClock parks every sleep until the context is cancelled, so a
// loop stuck in backoff stays stuck until the test stops it.
type blockingClock struct{}

func (blockingClock) Sleep(ctx context.Context, _ time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

// recordingNotifier captures published status lines.
type recordingNotifier struct {
	mu    sync.Mutex
	lines []string
}

func (n *recordingNotifier) Publish(status string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lines = append(n.lines, status)
}

func (n *recordingNotifier) published() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.lines))
	copy(out, n.lines)
	return out
}

// recordingMetrics counts reporter calls.
type recordingMetrics struct {
	mu sync.Mutex

	sent            int
	received        map[string]int // keyed by kind
	connectAttempts int
	attemptFailures int
	timedResets     int
	active          bool
}

func (m *recordingMetrics) IncMessagesSent(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent++
}

func (m *recordingMetrics) IncMessagesReceived(_, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.received == nil {
		m.received = make(map[string]int)
	}
	m.received[kind]++
}

func (m *recordingMetrics) IncConnectAttempts(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectAttempts++
}

func (m *recordingMetrics) IncAttemptFailures(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attemptFailures++
}

func (m *recordingMetrics) IncTimedResets(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timedResets++
}

func (m *recordingMetrics) SetActive(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = active
}

// metricsSnapshot is a mutex-free copy of the recordingMetrics counters.
type metricsSnapshot struct {
	sent            int
	received        map[string]int
	connectAttempts int
	attemptFailures int
	timedResets     int
	active          bool
}

func (m *recordingMetrics) snapshot() metricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := metricsSnapshot{
		sent:            m.sent,
		connectAttempts: m.connectAttempts,
		attemptFailures: m.attemptFailures,
		timedResets:     m.timedResets,
		active:          m.active,
		received:        make(map[string]int, len(m.received)),
	}
	for k, v := range m.received {
		cp.received[k] = v
	}
	return cp
}

// streamDialerFunc adapts a function to probe.StreamDialer.
type streamDialerFunc func(ctx context.Context, addr string) (net.Conn, error)

func (f streamDialerFunc) DialStream(ctx context.Context, addr string) (net.Conn, error) {
	return f(ctx, addr)
}

// datagramDialerFunc adapts a function to probe.DatagramDialer.
type datagramDialerFunc func(ctx context.Context, addr string) (probe.DatagramConn, error)

func (f datagramDialerFunc) DialDatagram(ctx context.Context, addr string) (probe.DatagramConn, error) {
	return f(ctx, addr)
}

// pipeDialer hands out the client end of a fresh in-memory pipe per dial
// and delivers the server end to the test.
type pipeDialer struct {
	servers chan net.Conn
}

func newPipeDialer() *pipeDialer {
	return &pipeDialer{servers: make(chan net.Conn, 8)}
}

func (d *pipeDialer) DialStream(_ context.Context, _ string) (net.Conn, error) {
	client, server := net.Pipe()
	d.servers <- server
	return client, nil
}

// server returns the server end of the next dialed connection, or fails
// the wait after the timeout.
func (d *pipeDialer) server(timeout time.Duration) (net.Conn, bool) {
	select {
	case conn := <-d.servers:
		return conn, true
	case <-time.After(timeout):
		return nil, false
	}
}

// fakeDatagramConn is a scripted probe.DatagramConn. Each Read consumes
// one queued reply; with the queue empty it reports a deadline expiry.
type fakeDatagramConn struct {
	mu      sync.Mutex
	writes  [][]byte
	replies [][]byte
	reads   int
	closed  bool
}

func (c *fakeDatagramConn) Read(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if len(c.replies) == 0 {
		return 0, timeoutErr{}
	}
	payload := c.replies[0]
	c.replies = c.replies[1:]
	return copy(b, payload), nil
}

func (c *fakeDatagramConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]byte, len(b))
	copy(cp, b)
	c.writes = append(c.writes, cp)
	return len(b), nil
}

func (c *fakeDatagramConn) SetReadDeadline(time.Time) error { return nil }

func (c *fakeDatagramConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeDatagramConn) sentPayloads() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.writes))
	for i, w := range c.writes {
		out[i] = string(w)
	}
	return out
}

func (c *fakeDatagramConn) readCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// waitDone waits for ch to close or fails the test flow after timeout.
func waitDone(ch <-chan struct{}, timeout time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}
