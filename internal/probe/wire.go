package probe

import "fmt"

// -------------------------------------------------------------------------
// Wire Payloads
// -------------------------------------------------------------------------
//
// These payloads interoperate with an existing counterpart server and
// must be reproduced byte-for-byte. TCP heartbeats are newline-delimited
// lines; UDP heartbeats are one datagram per message with no terminator.

// PrimePayload is the one-shot datagram sent in server-to-client mode to
// open a return path through NAT/firewall state tables.
const PrimePayload = "PRIME from-client"

// HeartbeatLine returns the TCP heartbeat line for the given sequence
// number, including the CRLF terminator.
func HeartbeatLine(seq uint64) []byte {
	return fmt.Appendf(nil, "HELLO seq=%d from-client\r\n", seq)
}

// HeartbeatDatagram returns the UDP heartbeat payload for the given
// sequence number. One datagram carries exactly one message.
func HeartbeatDatagram(seq uint64) []byte {
	return fmt.Appendf(nil, "HELLO seq=%d from-client", seq)
}
