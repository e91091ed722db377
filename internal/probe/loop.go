package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"
)

// -------------------------------------------------------------------------
// Transport Abstractions
// -------------------------------------------------------------------------

// StreamDialer abstracts establishing the TCP stream connection.
// This interface enables testing without real network I/O.
type StreamDialer interface {
	DialStream(ctx context.Context, addr string) (net.Conn, error)
}

// DatagramConn is the subset of *net.UDPConn used by the UDP loop. The
// socket is "connected": sends need no explicit destination and receives
// are implicitly filtered to the peer.
type DatagramConn interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

// DatagramDialer resolves the peer address and opens a connected
// datagram socket to it. Resolution happens once per call, i.e. once per
// connection attempt.
type DatagramDialer interface {
	DialDatagram(ctx context.Context, addr string) (DatagramConn, error)
}

// -------------------------------------------------------------------------
// Shared Loop Core
// -------------------------------------------------------------------------

// errTimedReset unwinds the attempt scope when the reset watchdog fires.
// It marks a cooperative exit, not a failure.
var errTimedReset = errors.New("timed reset")

// loopCore carries the state and collaborators shared by the TCP and UDP
// loops: the immutable run config, the clock for interruptible delays,
// the status notifier, and the metrics reporter.
type loopCore struct {
	cfg     RunConfig
	clock   Clock
	notify  Notifier
	metrics MetricsReporter
	logger  *slog.Logger
}

// newLoopCore builds a loopCore with no-op collaborators. The config is
// normalized here so the MinPeriod clamp holds regardless of caller input.
func newLoopCore(cfg RunConfig, logger *slog.Logger, component string) loopCore {
	cfg = cfg.Normalize()
	return loopCore{
		cfg:     cfg,
		clock:   realClock{},
		notify:  noopNotifier{},
		metrics: noopMetrics{},
		logger: logger.With(
			slog.String("component", component),
			slog.String("peer", cfg.Addr()),
		),
	}
}

// Option configures optional loop parameters.
type Option func(*loopCore)

// WithNotifier attaches a status Notifier. If n is nil, the default
// no-op notifier is kept.
func WithNotifier(n Notifier) Option {
	return func(c *loopCore) {
		if n != nil {
			c.notify = n
		}
	}
}

// WithMetrics attaches a MetricsReporter. If mr is nil, the default
// no-op reporter is kept.
func WithMetrics(mr MetricsReporter) Option {
	return func(c *loopCore) {
		if mr != nil {
			c.metrics = mr
		}
	}
}

// WithClock replaces the clock used for downtime, backoff and period
// sleeps. Tests use this to run the retry paths without real delays.
func WithClock(clk Clock) Option {
	return func(c *loopCore) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// -------------------------------------------------------------------------
// Between-Attempts Policy
// -------------------------------------------------------------------------

// settle applies the downtime/backoff policy after an attempt ends.
//
// A timed reset is not a failure: the backoff counter is cleared and the
// configured downtime (possibly zero) is slept. Any other exit is an
// attempt-fatal error: the failure counter is incremented and the
// computed backoff delay is slept. Both sleeps are interruptible; the
// returned error is non-nil only on cancellation.
func (c *loopCore) settle(ctx context.Context, bo *Backoff, timedReset bool, attemptErr error) error {
	transport := c.cfg.Transport.String()

	if timedReset {
		bo.Reset()
		c.metrics.IncTimedResets(transport)
		c.logger.Info("timed reset",
			slog.Duration("downtime", c.cfg.ResetDowntime),
		)
		c.notify.Publish(fmt.Sprintf("%s timed reset, downtime %v", transport, c.cfg.ResetDowntime))
		if c.cfg.ResetDowntime > 0 {
			return c.clock.Sleep(ctx, c.cfg.ResetDowntime)
		}
		return ctx.Err()
	}

	bo.Fail()
	delay := bo.Next()
	c.metrics.IncAttemptFailures(transport)
	c.logger.Warn("attempt failed",
		slog.String("error", attemptErr.Error()),
		slog.Int("consecutive_failures", bo.Attempts()),
		slog.Duration("retry_in", delay),
	)
	c.notify.Publish(fmt.Sprintf("%s probe error: %v (retry in %v)", transport, attemptErr, delay))

	return c.clock.Sleep(ctx, delay)
}

// handleReply classifies one inbound payload and logs it. A parse
// failure of a syntactic JSON object is logged and absorbed; it never
// terminates the attempt.
func (c *loopCore) handleReply(payload []byte) {
	reply, err := ClassifyReply(payload)
	if err != nil {
		c.logger.Debug("malformed structured reply",
			slog.String("error", err.Error()),
		)
	}

	c.metrics.IncMessagesReceived(c.cfg.Transport.String(), replyKind(reply))

	if reply.Structured {
		c.logger.Info("structured reply",
			slog.String("hello", reply.Hello),
		)
		return
	}
	c.logger.Debug("reply",
		slog.String("text", reply.Text),
	)
}

// isTimeout reports whether err is a read-deadline expiry.
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
