// Package config manages netprobe daemon configuration using koanf/v2.
//
// Supports YAML files, environment variables, and CLI flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dantte-lp/netprobe/internal/probe"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete netprobe configuration.
type Config struct {
	Probe   ProbeConfig   `koanf:"probe"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
}

// ProbeConfig describes the single probe run started at daemon startup.
// It is converted to a probe.RunConfig once and never mutated mid-run.
type ProbeConfig struct {
	// Host is the remote host name or address. Required.
	Host string `koanf:"host"`

	// Port is the remote port (default 8000).
	Port int `koanf:"port"`

	// Transport is "tcp" or "udp".
	Transport string `koanf:"transport"`

	// Direction is the UDP traffic direction: "cts", "stc" or "both".
	// Ignored for TCP.
	Direction string `koanf:"direction"`

	// Period is the heartbeat interval (e.g. "1s"). Values below 100ms
	// are clamped up.
	Period time.Duration `koanf:"period"`

	// ResetEvery is the timed-reset interval. Zero disables resets.
	ResetEvery time.Duration `koanf:"reset_every"`

	// ResetDowntime is how long to stay down after a timed reset.
	ResetDowntime time.Duration `koanf:"reset_downtime"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// RunConfig converts the probe section into the immutable control
// envelope consumed by the probe loops. Enum tokens are parsed here;
// numeric clamping is left to probe.RunConfig.Normalize.
func (pc ProbeConfig) RunConfig() (probe.RunConfig, error) {
	transport, err := probe.ParseTransport(pc.Transport)
	if err != nil {
		return probe.RunConfig{}, fmt.Errorf("probe.transport: %w", err)
	}

	direction := probe.DirectionBoth
	if pc.Direction != "" {
		direction, err = probe.ParseDirection(pc.Direction)
		if err != nil {
			return probe.RunConfig{}, fmt.Errorf("probe.direction: %w", err)
		}
	}

	if pc.Port < 0 || pc.Port > 65535 {
		return probe.RunConfig{}, fmt.Errorf("probe.port %d: %w", pc.Port, probe.ErrInvalidPort)
	}

	return probe.RunConfig{
		Host:          pc.Host,
		Port:          uint16(pc.Port),
		Transport:     transport,
		Direction:     direction,
		Period:        pc.Period,
		ResetEvery:    pc.ResetEvery,
		ResetDowntime: pc.ResetDowntime,
	}.Normalize(), nil
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults.
// The probe defaults mirror the parameters the host layer supplies when
// none are given: port 8000, TCP, both directions, 1s heartbeat period,
// timed resets disabled.
func DefaultConfig() *Config {
	return &Config{
		Probe: ProbeConfig{
			Port:      probe.DefaultPort,
			Transport: "tcp",
			Direction: "both",
			Period:    probe.DefaultPeriod,
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for netprobe configuration.
// Variables are named NETPROBE_<section>_<key>, e.g., NETPROBE_PROBE_HOST.
const envPrefix = "NETPROBE_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (NETPROBE_ prefix), and merges on top of
// DefaultConfig(). Missing fields inherit defaults.
//
// Environment variable mapping:
//
//	NETPROBE_PROBE_HOST      -> probe.host
//	NETPROBE_PROBE_TRANSPORT -> probe.transport
//	NETPROBE_METRICS_ADDR    -> metrics.addr
//	NETPROBE_LOG_LEVEL       -> log.level
//
// Uses koanf/v2 with file + env providers and YAML parser.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Load defaults first.
	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	// Load YAML file on top of defaults.
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	// Load environment variable overrides on top of YAML.
	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms NETPROBE_PROBE_HOST -> probe.host.
// Strips the NETPROBE_ prefix, lowercases, and replaces _ with .
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "_", ".")
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"probe.port":      defaults.Probe.Port,
		"probe.transport": defaults.Probe.Transport,
		"probe.direction": defaults.Probe.Direction,
		"probe.period":    defaults.Probe.Period.String(),
		"metrics.addr":    defaults.Metrics.Addr,
		"metrics.path":    defaults.Metrics.Path,
		"log.level":       defaults.Log.Level,
		"log.format":      defaults.Log.Format,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyMetricsAddr indicates the metrics listen address is empty.
	ErrEmptyMetricsAddr = errors.New("metrics.addr must not be empty")

	// ErrEmptyMetricsPath indicates the metrics URL path is empty.
	ErrEmptyMetricsPath = errors.New("metrics.path must not be empty")

	// ErrNegativeDuration indicates a probe duration below zero.
	ErrNegativeDuration = errors.New("probe durations must be >= 0")
)

// Validate checks the configuration for logical errors. Probe enum and
// endpoint validation is delegated to ProbeConfig.RunConfig and
// probe.RunConfig.Validate; this catches the rest early.
func Validate(cfg *Config) error {
	if cfg.Metrics.Addr == "" {
		return ErrEmptyMetricsAddr
	}

	if cfg.Metrics.Path == "" {
		return ErrEmptyMetricsPath
	}

	if cfg.Probe.Period < 0 || cfg.Probe.ResetEvery < 0 || cfg.Probe.ResetDowntime < 0 {
		return ErrNegativeDuration
	}

	if _, err := cfg.Probe.RunConfig(); err != nil {
		return err
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
//
// Recognized values: "debug", "info", "warn", "error" (case-insensitive).
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
