package netio

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/dantte-lp/netprobe/internal/probe"
)

// TCPDialer implements probe.StreamDialer over real TCP sockets.
type TCPDialer struct {
	// Timeout bounds each connection attempt. Zero or negative falls
	// back to probe.ConnectTimeout.
	Timeout time.Duration
}

// verify interface compliance at compile time.
var _ probe.StreamDialer = (*TCPDialer)(nil)

// DialStream connects to addr with the bounded connect timeout. The
// context cancels an in-progress dial.
func (d *TCPDialer) DialStream(ctx context.Context, addr string) (net.Conn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = probe.ConnectTimeout
	}

	nd := net.Dialer{Timeout: timeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", addr, err)
	}
	return conn, nil
}
