package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// maxDatagramSize is the receive buffer size for inbound datagrams.
const maxDatagramSize = 64 * 1024

// -------------------------------------------------------------------------
// UDP Test Loop
// -------------------------------------------------------------------------

// UDPLoop owns one connected datagram socket per attempt and runs a
// single loop interleaving periodic sends and bounded receives according
// to the configured direction. It applies the same timed-reset and
// backoff discipline as the TCP loop.
type UDPLoop struct {
	loopCore
	dialer DatagramDialer
}

// NewUDPLoop creates a UDP test loop for the given config. The transport
// field of cfg is forced to UDP.
func NewUDPLoop(cfg RunConfig, dialer DatagramDialer, logger *slog.Logger, opts ...Option) *UDPLoop {
	cfg.Transport = TransportUDP
	l := &UDPLoop{
		loopCore: newLoopCore(cfg, logger, "probe.udp"),
		dialer:   dialer,
	}
	for _, opt := range opts {
		opt(&l.loopCore)
	}
	return l
}

// Run drives the UDP test loop until ctx is cancelled. All per-attempt
// errors, including host resolution failures, are absorbed and retried
// with the shared backoff counter.
func (l *UDPLoop) Run(ctx context.Context) error {
	bo := NewBackoff(BackoffBase, BackoffCap)

	for {
		if ctx.Err() != nil {
			return nil
		}

		timedReset, err := l.runAttempt(ctx, bo)
		if ctx.Err() != nil {
			return nil
		}

		if serr := l.settle(ctx, bo, timedReset, err); serr != nil {
			return nil
		}
	}
}

// runAttempt performs one socket lifetime. The dialer resolves the host
// once and connects the socket to the resolved peer, so sends need no
// destination and receives are filtered to that peer.
//
// Steady state, every period: check the reset deadline first (no send or
// receive on the reset tick), send a heartbeat when the direction allows
// sending, attempt one bounded receive when the direction allows
// receiving, then sleep the period.
//
// Returns (true, nil) when the attempt ended via timed reset.
func (l *UDPLoop) runAttempt(ctx context.Context, bo *Backoff) (bool, error) {
	l.metrics.IncConnectAttempts(l.cfg.Transport.String())

	conn, err := l.dialer.DialDatagram(ctx, l.cfg.Addr())
	if err != nil {
		return false, fmt.Errorf("open datagram socket %s: %w", l.cfg.Addr(), err)
	}

	// Resolution and connect succeeded, so the failure streak is over.
	bo.Reset()
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			l.logger.Warn("close datagram socket",
				slog.String("error", cerr.Error()),
			)
		}
	}()

	start := time.Now()
	seq := uint64(1)

	// Server-to-client mode sends exactly one prime datagram to open a
	// return path, then never sends again for this attempt.
	if l.cfg.Direction == DirectionServerToClient {
		if _, werr := conn.Write([]byte(PrimePayload)); werr != nil {
			return false, fmt.Errorf("send prime datagram: %w", werr)
		}
		l.metrics.IncMessagesSent(l.cfg.Transport.String())
		l.logger.Debug("prime datagram sent")
	}

	buf := make([]byte, maxDatagramSize)

	for {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		if l.cfg.ResetEvery > 0 && time.Since(start) >= l.cfg.ResetEvery {
			return true, nil
		}

		if l.cfg.Direction == DirectionClientToServer || l.cfg.Direction == DirectionBoth {
			if _, werr := conn.Write(HeartbeatDatagram(seq)); werr != nil {
				return false, fmt.Errorf("send heartbeat seq=%d: %w", seq, werr)
			}
			l.metrics.IncMessagesSent(l.cfg.Transport.String())
			seq++
		}

		if l.cfg.Direction == DirectionServerToClient || l.cfg.Direction == DirectionBoth {
			if rerr := l.receiveOne(conn, buf); rerr != nil {
				return false, rerr
			}
		}

		if serr := l.clock.Sleep(ctx, l.cfg.Period); serr != nil {
			return false, serr
		}
	}
}

// receiveOne performs one deadline-bounded receive. A deadline expiry
// means no data this tick and is silently ignored; any other receive
// error is fatal to the attempt.
func (l *UDPLoop) receiveOne(conn DatagramConn, buf []byte) error {
	if err := conn.SetReadDeadline(time.Now().Add(ReadTimeout)); err != nil {
		return fmt.Errorf("set receive deadline: %w", err)
	}

	n, err := conn.Read(buf)
	if err != nil {
		if isTimeout(err) {
			return nil
		}
		return fmt.Errorf("receive: %w", err)
	}

	l.handleReply(buf[:n])
	return nil
}
