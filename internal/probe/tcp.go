package probe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// -------------------------------------------------------------------------
// TCP Test Loop
// -------------------------------------------------------------------------

// TCPLoop owns one stream connection per attempt and runs a writer, a
// reader and a reset watchdog concurrently under one scope. On any hard
// error the attempt is torn down and retried with backoff.
type TCPLoop struct {
	loopCore
	dialer StreamDialer
}

// NewTCPLoop creates a TCP test loop for the given config. The transport
// field of cfg is forced to TCP.
func NewTCPLoop(cfg RunConfig, dialer StreamDialer, logger *slog.Logger, opts ...Option) *TCPLoop {
	cfg.Transport = TransportTCP
	l := &TCPLoop{
		loopCore: newLoopCore(cfg, logger, "probe.tcp"),
		dialer:   dialer,
	}
	for _, opt := range opts {
		opt(&l.loopCore)
	}
	return l
}

// Run drives the TCP test loop until ctx is cancelled. All per-attempt
// errors are absorbed and retried; cancellation is the only way out and
// is not an error.
func (l *TCPLoop) Run(ctx context.Context) error {
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

// runAttempt performs one connection lifetime: dial, then writer, reader
// and watchdog under one errgroup scope. The scope is all-or-nothing:
// the first subtask to return unwinds the siblings, and runAttempt does
// not return until every subtask has stopped and the socket is closed.
//
// Returns (true, nil) when the attempt ended via the reset watchdog.
func (l *TCPLoop) runAttempt(ctx context.Context, bo *Backoff) (bool, error) {
	l.metrics.IncConnectAttempts(l.cfg.Transport.String())

	conn, err := l.dialer.DialStream(ctx, l.cfg.Addr())
	if err != nil {
		return false, fmt.Errorf("connect %s: %w", l.cfg.Addr(), err)
	}

	// An established connection ends the failure streak; whatever kills
	// this attempt later starts a fresh one.
	bo.Reset()
	l.logger.Info("connected",
		slog.String("local", conn.LocalAddr().String()),
	)

	var didReset atomic.Bool
	g, gCtx := errgroup.WithContext(ctx)

	// Closing the socket once the scope winds down unblocks any
	// in-flight read or write.
	g.Go(func() error {
		<-gCtx.Done()
		return conn.Close()
	})

	g.Go(func() error { return l.writeLoop(gCtx, conn) })
	g.Go(func() error { return l.readLoop(gCtx, conn) })

	if l.cfg.ResetEvery > 0 {
		g.Go(func() error { return l.resetWatchdog(gCtx, &didReset) })
	}

	err = g.Wait()

	if didReset.Load() {
		return true, nil
	}
	return false, err
}

// writeLoop sends one heartbeat line immediately on connect and then
// one every period. The sequence counter starts at 1 and is scoped to
// this attempt.
func (l *TCPLoop) writeLoop(ctx context.Context, conn net.Conn) error {
	ticker := time.NewTicker(l.cfg.Period)
	defer ticker.Stop()

	for seq := uint64(1); ; seq++ {
		if _, err := conn.Write(HeartbeatLine(seq)); err != nil {
			return fmt.Errorf("write heartbeat seq=%d: %w", seq, err)
		}
		l.metrics.IncMessagesSent(l.cfg.Transport.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// readLoop performs deadline-bounded line reads. A deadline expiry is a
// scheduling tick, not an error; any partial line read before the expiry
// is kept for the next tick. A clean close by the peer (end-of-stream)
// is fatal to the attempt.
func (l *TCPLoop) readLoop(ctx context.Context, conn net.Conn) error {
	r := bufio.NewReader(conn)
	var partial []byte

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := conn.SetReadDeadline(time.Now().Add(ReadTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		chunk, err := r.ReadBytes('\n')
		partial = append(partial, chunk...)

		switch {
		case err == nil:
			l.handleReply(partial)
			partial = partial[:0]
		case isTimeout(err):
			// No complete line this tick.
		case errors.Is(err, io.EOF):
			return fmt.Errorf("stream closed by peer: %w", err)
		default:
			return fmt.Errorf("read: %w", err)
		}
	}
}

// resetWatchdog ends the attempt cooperatively once the connection age
// reaches ResetEvery. A single cancellable timer replaces repeated short
// sleeps; cancellation is still observed immediately.
func (l *TCPLoop) resetWatchdog(ctx context.Context, didReset *atomic.Bool) error {
	t := time.NewTimer(l.cfg.ResetEvery)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		didReset.Store(true)
		l.logger.Debug("reset watchdog fired",
			slog.Duration("age", l.cfg.ResetEvery),
		)
		return errTimedReset
	}
}
