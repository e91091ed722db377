// Package probe implements the transport reachability test loops.
//
// This includes the TCP and UDP heartbeat loops, reconnect backoff,
// timed-reset scheduling, and inbound reply classification.
package probe
