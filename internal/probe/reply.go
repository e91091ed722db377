package probe

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// -------------------------------------------------------------------------
// Inbound Reply Classification
// -------------------------------------------------------------------------

// Reply is one decoded inbound message: a TCP line or a UDP datagram
// payload, decoded as UTF-8 text.
type Reply struct {
	// Structured is true when the payload was a syntactic JSON object
	// that parsed successfully.
	Structured bool

	// Hello is the optional "hello" field of a structured reply.
	Hello string

	// Text is the raw payload for opaque replies.
	Text string
}

// structuredReply is the wire schema of a structured reply.
type structuredReply struct {
	Hello string `json:"hello"`
}

// ClassifyReply classifies an inbound payload. A payload whose trimmed
// content starts with '{' and ends with '}' is parsed as a JSON object
// with an optional string field "hello"; anything else is opaque text.
//
// A JSON parse failure is non-fatal: the reply is returned as opaque
// text together with the parse error so the caller can log it. The error
// must never be propagated as a loop failure.
func ClassifyReply(payload []byte) (Reply, error) {
	trimmed := bytes.TrimSpace(payload)

	if len(trimmed) < 2 || trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return Reply{Text: string(trimmed)}, nil
	}

	var sr structuredReply
	if err := json.Unmarshal(trimmed, &sr); err != nil {
		return Reply{Text: string(trimmed)}, fmt.Errorf("parse structured reply: %w", err)
	}

	return Reply{Structured: true, Hello: sr.Hello}, nil
}
