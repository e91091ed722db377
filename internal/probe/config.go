package probe

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// -------------------------------------------------------------------------
// Transport & Direction
// -------------------------------------------------------------------------

// Transport selects the protocol exercised by a probe run.
type Transport uint8

const (
	// TransportTCP exercises one stream connection per attempt.
	TransportTCP Transport = iota + 1

	// TransportUDP exercises one connected datagram socket per attempt.
	TransportUDP
)

// String returns the wire/config token for the transport.
func (t Transport) String() string {
	switch t {
	case TransportTCP:
		return "tcp"
	case TransportUDP:
		return "udp"
	default:
		return "unknown"
	}
}

// ParseTransport maps a config token ("tcp" or "udp") to a Transport.
func ParseTransport(s string) (Transport, error) {
	switch s {
	case "tcp":
		return TransportTCP, nil
	case "udp":
		return TransportUDP, nil
	default:
		return 0, fmt.Errorf("transport %q: %w", s, ErrInvalidTransport)
	}
}

// Direction controls which sides of a UDP attempt carry traffic.
// It is fixed for the whole run and never renegotiated mid-loop.
type Direction uint8

const (
	// DirectionClientToServer sends heartbeats and never receives.
	DirectionClientToServer Direction = iota + 1

	// DirectionServerToClient sends exactly one prime datagram per
	// attempt, then only receives.
	DirectionServerToClient

	// DirectionBoth interleaves periodic sends with bounded receives.
	DirectionBoth
)

// String returns the config token for the direction.
func (d Direction) String() string {
	switch d {
	case DirectionClientToServer:
		return "cts"
	case DirectionServerToClient:
		return "stc"
	case DirectionBoth:
		return "both"
	default:
		return "unknown"
	}
}

// ParseDirection maps a config token ("cts", "stc", "both") to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "cts":
		return DirectionClientToServer, nil
	case "stc":
		return DirectionServerToClient, nil
	case "both":
		return DirectionBoth, nil
	default:
		return 0, fmt.Errorf("direction %q: %w", s, ErrInvalidDirection)
	}
}

// -------------------------------------------------------------------------
// Timing Constants
// -------------------------------------------------------------------------

const (
	// MinPeriod is the floor enforced on the heartbeat interval.
	// Any configured period below this is clamped, regardless of caller input.
	MinPeriod = 100 * time.Millisecond

	// DefaultPeriod is the heartbeat interval used when none is configured.
	DefaultPeriod = 1 * time.Second

	// DefaultPort is the remote port used when none is configured.
	DefaultPort = 8000

	// ConnectTimeout bounds each TCP connection attempt.
	ConnectTimeout = 8 * time.Second

	// ReadTimeout bounds every blocking read or receive. A read that
	// expires is a scheduling tick, not an error.
	ReadTimeout = 1500 * time.Millisecond

	// BackoffBase is the per-failure backoff increment.
	BackoffBase = 500 * time.Millisecond

	// BackoffCap is the upper bound on the backoff delay.
	BackoffCap = 5 * time.Second
)

// -------------------------------------------------------------------------
// Run Configuration
// -------------------------------------------------------------------------

// Sentinel errors for run configuration validation.
var (
	// ErrMissingHost indicates the remote host is empty.
	ErrMissingHost = errors.New("host must not be empty")

	// ErrInvalidPort indicates the remote port is outside 1-65535.
	ErrInvalidPort = errors.New("port must be in range 1-65535")

	// ErrInvalidTransport indicates an unrecognized transport token.
	ErrInvalidTransport = errors.New("transport must be tcp or udp")

	// ErrInvalidDirection indicates an unrecognized direction token.
	ErrInvalidDirection = errors.New("direction must be cts, stc or both")

	// ErrNegativeInterval indicates a reset interval below zero.
	ErrNegativeInterval = errors.New("reset intervals must be >= 0")
)

// RunConfig is the transport-agnostic control envelope for one probe run.
// It is supplied once at start and never mutated mid-run; all mutable
// runtime state (sequence counters, elapsed timers, socket handles) is
// owned by the loop itself.
type RunConfig struct {
	// Host is the remote host name or address.
	Host string

	// Port is the remote port (1-65535).
	Port uint16

	// Transport selects the TCP or UDP loop.
	Transport Transport

	// Direction controls UDP traffic flow. Ignored for TCP.
	Direction Direction

	// Period is the heartbeat interval. Clamped to MinPeriod by Normalize.
	Period time.Duration

	// ResetEvery is the timed-reset interval. Zero disables timed resets.
	ResetEvery time.Duration

	// ResetDowntime is how long to stay disconnected after a timed reset.
	ResetDowntime time.Duration
}

// Normalize returns a copy of the config with defaults filled in and the
// heartbeat period clamped to MinPeriod. The clamp applies regardless of
// caller input.
func (c RunConfig) Normalize() RunConfig {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Period == 0 {
		c.Period = DefaultPeriod
	}
	if c.Period < MinPeriod {
		c.Period = MinPeriod
	}
	if c.Direction == 0 {
		c.Direction = DirectionBoth
	}
	return c
}

// Validate checks the config for startup misconfiguration. It is called
// synchronously before any loop starts; a failure here is terminal.
func (c RunConfig) Validate() error {
	if c.Host == "" {
		return ErrMissingHost
	}
	if c.Port == 0 {
		return ErrInvalidPort
	}
	if c.Transport != TransportTCP && c.Transport != TransportUDP {
		return fmt.Errorf("transport %d: %w", c.Transport, ErrInvalidTransport)
	}
	if c.Transport == TransportUDP &&
		c.Direction != DirectionClientToServer &&
		c.Direction != DirectionServerToClient &&
		c.Direction != DirectionBoth {
		return fmt.Errorf("direction %d: %w", c.Direction, ErrInvalidDirection)
	}
	if c.ResetEvery < 0 || c.ResetDowntime < 0 {
		return ErrNegativeInterval
	}
	return nil
}

// Addr returns the remote endpoint as host:port.
func (c RunConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port)))
}

// Summary returns the human-readable status line emitted once at start.
func (c RunConfig) Summary() string {
	s := fmt.Sprintf("probing %s://%s every %v", c.Transport, c.Addr(), c.Period)
	if c.Transport == TransportUDP {
		s += fmt.Sprintf(" direction=%s", c.Direction)
	}
	if c.ResetEvery > 0 {
		s += fmt.Sprintf(" reset-every=%v downtime=%v", c.ResetEvery, c.ResetDowntime)
	}
	return s
}
