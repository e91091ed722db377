package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// -------------------------------------------------------------------------
// Runner — process-wide single-instance guard
// -------------------------------------------------------------------------

// ErrAlreadyRunning indicates a start request arrived while a probe loop
// was active. The running loop is neither restarted nor duplicated.
var ErrAlreadyRunning = errors.New("a probe loop is already running")

// loop is the common contract of the TCP and UDP loops.
type loop interface {
	Run(ctx context.Context) error
}

// Runner starts and stops probe loops. At most one loop is active per
// process: concurrent start requests are serialized through an atomic
// compare-and-set, so two starts can never race into concurrent sockets.
type Runner struct {
	running atomic.Bool

	streamDialer   StreamDialer
	datagramDialer DatagramDialer

	clock   Clock
	notify  Notifier
	metrics MetricsReporter
	logger  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// RunnerOption configures optional Runner parameters.
type RunnerOption func(*Runner)

// WithRunnerNotifier sets the status Notifier for the runner and the
// loops it creates. If n is nil, a no-op notifier is used.
func WithRunnerNotifier(n Notifier) RunnerOption {
	return func(r *Runner) {
		if n != nil {
			r.notify = n
		}
	}
}

// WithRunnerMetrics sets the MetricsReporter for the runner and the
// loops it creates. If mr is nil, a no-op reporter is used.
func WithRunnerMetrics(mr MetricsReporter) RunnerOption {
	return func(r *Runner) {
		if mr != nil {
			r.metrics = mr
		}
	}
}

// WithRunnerClock sets the Clock passed to the loops.
func WithRunnerClock(clk Clock) RunnerOption {
	return func(r *Runner) {
		if clk != nil {
			r.clock = clk
		}
	}
}

// NewRunner creates a Runner using the given dialers for real (or test)
// transport I/O.
func NewRunner(sd StreamDialer, dd DatagramDialer, logger *slog.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		streamDialer:   sd,
		datagramDialer: dd,
		clock:          realClock{},
		notify:         noopNotifier{},
		metrics:        noopMetrics{},
		logger:         logger.With(slog.String("component", "probe.runner")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start validates cfg and launches the matching loop in its own
// goroutine. Validation failures are returned synchronously before any
// socket is opened. If a loop is already active, ErrAlreadyRunning is
// returned and the running loop is left untouched.
//
// The run ends when ctx is cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context, cfg RunConfig) error {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("start probe: %w", err)
	}

	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	r.notify.Publish(cfg.Summary())
	r.metrics.SetActive(true)
	r.logger.Info("probe starting",
		slog.String("transport", cfg.Transport.String()),
		slog.String("peer", cfg.Addr()),
		slog.Duration("period", cfg.Period),
	)

	l := r.newLoop(cfg)

	go func() {
		defer close(done)
		defer cancel()
		defer r.running.Store(false)
		defer r.metrics.SetActive(false)

		// Loops absorb all per-attempt errors and return nil on
		// cancellation; a non-nil error here is unexpected.
		if err := l.Run(runCtx); err != nil {
			r.notify.Publish(fmt.Sprintf("probe terminated: %v", err))
			r.logger.Error("probe loop error",
				slog.String("error", err.Error()),
			)
			return
		}
		r.logger.Info("probe stopped")
	}()

	return nil
}

// newLoop builds the TCP or UDP loop for the config, passing through the
// runner's notifier, metrics and clock.
func (r *Runner) newLoop(cfg RunConfig) loop {
	opts := []Option{
		WithNotifier(r.notify),
		WithMetrics(r.metrics),
		WithClock(r.clock),
	}
	if cfg.Transport == TransportUDP {
		return NewUDPLoop(cfg, r.datagramDialer, r.logger, opts...)
	}
	return NewTCPLoop(cfg, r.streamDialer, r.logger, opts...)
}

// Stop cancels the active run and blocks until the loop has unwound and
// released its socket. No-op when nothing is running.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until the active run finishes. Returns immediately when
// nothing was started.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()

	if done == nil {
		return
	}
	<-done
}

// Running reports whether a probe loop is currently active.
func (r *Runner) Running() bool {
	return r.running.Load()
}
