// Package netio provides the real socket dialers behind the probe loops.
//
// The TCP dialer applies the bounded connect timeout; the UDP dialer
// resolves the peer once and returns a connected datagram socket with
// SO_REUSEADDR set (Linux) so resets can recreate it immediately.
package netio
