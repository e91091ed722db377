package netio

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/dantte-lp/netprobe/internal/probe"
)

// ErrUnexpectedConnType indicates the dialer returned a connection of an
// unexpected concrete type.
var ErrUnexpectedConnType = errors.New("unexpected connection type")

// UDPDialer implements probe.DatagramDialer over real UDP sockets.
//
// The dialer resolves addr once per call and returns a socket connected
// to the resolved peer, so writes need no destination and reads are
// filtered to that peer by the kernel.
type UDPDialer struct{}

// verify interface compliance at compile time.
var _ probe.DatagramDialer = (*UDPDialer)(nil)

// DialDatagram resolves addr and opens a connected datagram socket to
// it. A resolution failure surfaces here and follows the caller's
// connection-failure path.
func (d *UDPDialer) DialDatagram(ctx context.Context, addr string) (probe.DatagramConn, error) {
	nd := net.Dialer{Control: datagramControl}

	conn, err := nd.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp %s: %w", addr, err)
	}

	uc, ok := conn.(*net.UDPConn)
	if !ok {
		closeErr := conn.Close()
		return nil, fmt.Errorf("dial udp %s: %w: %w", addr, ErrUnexpectedConnType, closeErr)
	}

	return uc, nil
}
