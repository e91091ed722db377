package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dantte-lp/netprobe/internal/config"
	probemetrics "github.com/dantte-lp/netprobe/internal/metrics"
	"github.com/dantte-lp/netprobe/internal/netio"
	"github.com/dantte-lp/netprobe/internal/probe"
	appversion "github.com/dantte-lp/netprobe/internal/version"
)

// shutdownTimeout is the maximum time to wait for the metrics server to
// drain active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

// probeFlags are the CLI overrides for the probe section, mirroring the
// parameter set the host layer supplies once at start.
type probeFlags struct {
	host             string
	port             int
	transport        string
	direction        string
	periodSec        int
	resetEverySec    int
	resetDowntimeSec int
}

func runCmd() *cobra.Command {
	var pf probeFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the probe loop against the configured endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, cfg, pf)
			return runDaemon(cfg)
		},
	}

	cmd.Flags().StringVar(&pf.host, "host", "", "remote host to probe")
	cmd.Flags().IntVar(&pf.port, "port", probe.DefaultPort, "remote port")
	cmd.Flags().StringVar(&pf.transport, "transport", "tcp", "transport: tcp or udp")
	cmd.Flags().StringVar(&pf.direction, "direction", "both",
		"UDP traffic direction: cts, stc or both")
	cmd.Flags().IntVar(&pf.periodSec, "period-sec", 1, "heartbeat interval in seconds")
	cmd.Flags().IntVar(&pf.resetEverySec, "reset-every-sec", 0,
		"timed reset interval in seconds (0 disables)")
	cmd.Flags().IntVar(&pf.resetDowntimeSec, "reset-downtime-sec", 0,
		"downtime after a timed reset in seconds")

	return cmd
}

// applyFlagOverrides copies explicitly-set CLI flags over the loaded
// configuration. Unset flags leave the file/env values untouched.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config, pf probeFlags) {
	if cmd.Flags().Changed("host") {
		cfg.Probe.Host = pf.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Probe.Port = pf.port
	}
	if cmd.Flags().Changed("transport") {
		cfg.Probe.Transport = pf.transport
	}
	if cmd.Flags().Changed("direction") {
		cfg.Probe.Direction = pf.direction
	}
	if cmd.Flags().Changed("period-sec") {
		cfg.Probe.Period = time.Duration(pf.periodSec) * time.Second
	}
	if cmd.Flags().Changed("reset-every-sec") {
		cfg.Probe.ResetEvery = time.Duration(pf.resetEverySec) * time.Second
	}
	if cmd.Flags().Changed("reset-downtime-sec") {
		cfg.Probe.ResetDowntime = time.Duration(pf.resetDowntimeSec) * time.Second
	}
}

// runDaemon wires the logger, metrics, runner and signal handling, then
// blocks until shutdown.
func runDaemon(cfg *config.Config) error {
	// Logger with dynamic level support for SIGHUP reload.
	logLevel := new(slog.LevelVar)
	logLevel.Set(config.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	runCfg, err := cfg.Probe.RunConfig()
	if err != nil {
		return fmt.Errorf("probe configuration: %w", err)
	}

	logger.Info("netprobe starting",
		slog.String("version", appversion.Version),
		slog.String("peer", runCfg.Addr()),
		slog.String("transport", runCfg.Transport.String()),
		slog.String("metrics_addr", cfg.Metrics.Addr),
	)

	reg := prometheus.NewRegistry()
	collector := probemetrics.NewCollector(reg)

	runner := probe.NewRunner(
		&netio.TCPDialer{},
		&netio.UDPDialer{},
		logger,
		probe.WithRunnerMetrics(collector),
		probe.WithRunnerNotifier(statusNotifier(logger)),
	)

	// errgroup with signal-aware context.
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	metricsSrv := newMetricsServer(cfg.Metrics, reg)
	lc := net.ListenConfig{}
	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr),
			slog.String("path", cfg.Metrics.Path),
		)
		return listenAndServe(gCtx, &lc, metricsSrv, cfg.Metrics.Addr)
	})

	g.Go(func() error {
		return runWatchdog(gCtx, logger)
	})

	startSIGHUPReload(gCtx, g, logLevel, logger)

	// Shutdown goroutine: waits for context cancellation.
	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, runner, logger, metricsSrv)
	})

	// The probe run starts here; a startup misconfiguration (missing
	// host, bad port) is rejected before any socket is opened.
	if err := runner.Start(gCtx, runCfg); err != nil {
		stop()
		_ = g.Wait()
		return err
	}

	notifyReady(logger)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run daemon: %w", err)
	}

	logger.Info("netprobe stopped")
	return nil
}

// statusNotifier adapts probe status lines to the log stream, standing
// in for the platform notification surface.
func statusNotifier(logger *slog.Logger) probe.Notifier {
	l := logger.With(slog.String("component", "status"))
	return probe.NotifierFunc(func(status string) {
		l.Info(status)
	})
}

// -------------------------------------------------------------------------
// Systemd Integration — sd_notify + watchdog
// -------------------------------------------------------------------------

// notifyReady sends READY=1 to systemd, indicating the daemon has
// completed initialization and the probe loop is running.
func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness",
			slog.String("error", err.Error()),
		)
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

// notifyStopping sends STOPPING=1 to systemd, indicating the daemon is
// beginning graceful shutdown.
func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping",
			slog.String("error", err.Error()),
		)
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

// runWatchdog sends periodic watchdog keepalives to systemd.
// The interval is WatchdogSec/2 as recommended by the systemd documentation.
// If watchdog is not configured, the goroutine exits immediately.
func runWatchdog(ctx context.Context, logger *slog.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("failed to check systemd watchdog",
			slog.String("error", err.Error()),
		)
		return nil
	}
	if interval == 0 {
		logger.Debug("systemd watchdog not configured, skipping keepalive")
		return nil
	}

	tickInterval := interval / 2
	logger.Info("systemd watchdog enabled",
		slog.Duration("watchdog_sec", interval),
		slog.Duration("keepalive_interval", tickInterval),
	)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, wdErr := daemon.SdNotify(false, daemon.SdNotifyWatchdog); wdErr != nil {
				logger.Warn("failed to send watchdog keepalive",
					slog.String("error", wdErr.Error()),
				)
			}
		}
	}
}

// -------------------------------------------------------------------------
// SIGHUP Reload — log level only
// -------------------------------------------------------------------------

// startSIGHUPReload registers the SIGHUP goroutine. Only the log level
// is reloaded: the run config is immutable for the lifetime of a run, so
// endpoint changes require a restart.
func startSIGHUPReload(
	ctx context.Context,
	g *errgroup.Group,
	logLevel *slog.LevelVar,
	logger *slog.Logger,
) {
	sigHUP := make(chan os.Signal, 1)
	signal.Notify(sigHUP, syscall.SIGHUP)

	g.Go(func() error {
		defer signal.Stop(sigHUP)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-sigHUP:
				logger.Info("received SIGHUP, reloading log level")
				reloadLogLevel(logLevel, logger)
			}
		}
	})
}

// reloadLogLevel re-reads the configuration file and applies the log
// level. Errors are logged; the previous level stays in effect.
func reloadLogLevel(logLevel *slog.LevelVar, logger *slog.Logger) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		logger.Error("failed to reload configuration, keeping current settings",
			slog.String("error", err.Error()),
		)
		return
	}

	oldLevel := logLevel.Level()
	newLevel := config.ParseLogLevel(cfg.Log.Level)
	logLevel.Set(newLevel)

	logger.Info("log level reloaded",
		slog.String("old_level", oldLevel.String()),
		slog.String("new_level", newLevel.String()),
	)
}

// -------------------------------------------------------------------------
// Graceful Shutdown
// -------------------------------------------------------------------------

// gracefulShutdown performs an orderly shutdown: signals systemd, stops
// the probe runner (waiting for the loop to unwind and release its
// socket), then drains the HTTP servers.
//
// The parent context is already cancelled when this function is called.
// A fresh timeout context is created internally for server drain.
func gracefulShutdown(
	ctx context.Context,
	runner *probe.Runner,
	logger *slog.Logger,
	servers ...*http.Server,
) error {
	logger.Info("initiating graceful shutdown")
	notifyStopping(logger)

	runner.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown server: %w", err))
		}
	}
	return shutdownErr
}

// -------------------------------------------------------------------------
// Server Setup
// -------------------------------------------------------------------------

// listenAndServe creates a TCP listener using the ListenConfig (for noctx
// compliance) and serves HTTP requests until the server is shut down.
func listenAndServe(ctx context.Context, lc *net.ListenConfig, srv *http.Server, addr string) error {
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

// newMetricsServer creates an HTTP server for the Prometheus metrics endpoint.
func newMetricsServer(cfg config.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// loadConfig loads configuration from a file path or returns defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return config.DefaultConfig(), nil
}

// newLoggerWithLevel creates a structured logger using a shared LevelVar
// for dynamic log level changes via SIGHUP reload.
func newLoggerWithLevel(cfg config.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
