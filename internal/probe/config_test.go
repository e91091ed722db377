package probe_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dantte-lp/netprobe/internal/probe"
)

func TestParseTransport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    probe.Transport
		wantErr bool
	}{
		{"tcp", probe.TransportTCP, false},
		{"udp", probe.TransportUDP, false},
		{"TCP", 0, true},
		{"", 0, true},
		{"icmp", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := probe.ParseTransport(tt.in)
			if tt.wantErr {
				if !errors.Is(err, probe.ErrInvalidTransport) {
					t.Fatalf("ParseTransport(%q) error = %v, want ErrInvalidTransport", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTransport(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseTransport(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    probe.Direction
		wantErr bool
	}{
		{"cts", probe.DirectionClientToServer, false},
		{"stc", probe.DirectionServerToClient, false},
		{"both", probe.DirectionBoth, false},
		{"BOTH", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := probe.ParseDirection(tt.in)
			if tt.wantErr {
				if !errors.Is(err, probe.ErrInvalidDirection) {
					t.Fatalf("ParseDirection(%q) error = %v, want ErrInvalidDirection", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDirection(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDirection(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if got.String() != tt.in {
				t.Errorf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestRunConfigNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   probe.RunConfig
		want probe.RunConfig
	}{
		{
			name: "zero values get defaults",
			in:   probe.RunConfig{Host: "peer"},
			want: probe.RunConfig{
				Host:      "peer",
				Port:      8000,
				Period:    1 * time.Second,
				Direction: probe.DirectionBoth,
			},
		},
		{
			name: "period below floor is clamped",
			in:   probe.RunConfig{Host: "peer", Port: 9, Period: 50 * time.Millisecond},
			want: probe.RunConfig{
				Host:      "peer",
				Port:      9,
				Period:    100 * time.Millisecond,
				Direction: probe.DirectionBoth,
			},
		},
		{
			name: "period at floor is kept",
			in:   probe.RunConfig{Host: "peer", Port: 9, Period: 100 * time.Millisecond},
			want: probe.RunConfig{
				Host:      "peer",
				Port:      9,
				Period:    100 * time.Millisecond,
				Direction: probe.DirectionBoth,
			},
		},
		{
			name: "explicit values survive",
			in: probe.RunConfig{
				Host:          "peer",
				Port:          8443,
				Transport:     probe.TransportUDP,
				Direction:     probe.DirectionServerToClient,
				Period:        2 * time.Second,
				ResetEvery:    time.Minute,
				ResetDowntime: 5 * time.Second,
			},
			want: probe.RunConfig{
				Host:          "peer",
				Port:          8443,
				Transport:     probe.TransportUDP,
				Direction:     probe.DirectionServerToClient,
				Period:        2 * time.Second,
				ResetEvery:    time.Minute,
				ResetDowntime: 5 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.in.Normalize(); got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRunConfigValidate(t *testing.T) {
	t.Parallel()

	valid := probe.RunConfig{
		Host:      "peer",
		Port:      8000,
		Transport: probe.TransportTCP,
		Direction: probe.DirectionBoth,
		Period:    time.Second,
	}

	tests := []struct {
		name    string
		mutate  func(c *probe.RunConfig)
		wantErr error
	}{
		{"valid", func(*probe.RunConfig) {}, nil},
		{"missing host", func(c *probe.RunConfig) { c.Host = "" }, probe.ErrMissingHost},
		{"zero port", func(c *probe.RunConfig) { c.Port = 0 }, probe.ErrInvalidPort},
		{"unknown transport", func(c *probe.RunConfig) { c.Transport = 99 }, probe.ErrInvalidTransport},
		{
			"udp with unknown direction",
			func(c *probe.RunConfig) { c.Transport = probe.TransportUDP; c.Direction = 99 },
			probe.ErrInvalidDirection,
		},
		{"negative reset interval", func(c *probe.RunConfig) { c.ResetEvery = -time.Second }, probe.ErrNegativeInterval},
		{"negative downtime", func(c *probe.RunConfig) { c.ResetDowntime = -time.Second }, probe.ErrNegativeInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunConfigAddr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		host string
		port uint16
		want string
	}{
		{"hostname", "example.net", 8000, "example.net:8000"},
		{"ipv4", "192.0.2.10", 443, "192.0.2.10:443"},
		{"ipv6 gets brackets", "2001:db8::1", 8000, "[2001:db8::1]:8000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := probe.RunConfig{Host: tt.host, Port: tt.port}
			if got := cfg.Addr(); got != tt.want {
				t.Errorf("Addr() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunConfigSummary(t *testing.T) {
	t.Parallel()

	tcp := probe.RunConfig{
		Host:      "peer",
		Port:      8000,
		Transport: probe.TransportTCP,
		Period:    time.Second,
	}
	if s := tcp.Summary(); !strings.Contains(s, "tcp://peer:8000") {
		t.Errorf("Summary() = %q, want tcp endpoint", s)
	}

	udp := probe.RunConfig{
		Host:       "peer",
		Port:       8000,
		Transport:  probe.TransportUDP,
		Direction:  probe.DirectionServerToClient,
		Period:     time.Second,
		ResetEvery: time.Minute,
	}
	s := udp.Summary()
	if !strings.Contains(s, "direction=stc") {
		t.Errorf("Summary() = %q, want direction token", s)
	}
	if !strings.Contains(s, "reset-every=1m0s") {
		t.Errorf("Summary() = %q, want reset interval", s)
	}
}
