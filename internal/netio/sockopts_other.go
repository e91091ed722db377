//go:build !linux

package netio

import "syscall"

// datagramControl is a no-op on platforms without the Linux sockopt path.
func datagramControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
