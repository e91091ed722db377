package probe

import "time"

// -------------------------------------------------------------------------
// Reconnect Backoff
// -------------------------------------------------------------------------

// Backoff tracks consecutive attempt failures and computes the delay to
// insert before the next attempt. The delay grows with the failure count
// (attempts * base) up to a fixed limit, so an unreachable peer is never
// hot-looped against.
//
// The counter is shared by both transports. It is owned by a single loop
// goroutine and needs no synchronization.
type Backoff struct {
	base     time.Duration
	limit    time.Duration
	attempts int
}

// NewBackoff creates a Backoff with the given base increment and upper
// limit. Non-positive values fall back to BackoffBase and BackoffCap.
func NewBackoff(base, limit time.Duration) *Backoff {
	if base <= 0 {
		base = BackoffBase
	}
	if limit < base {
		limit = BackoffCap
	}
	return &Backoff{base: base, limit: limit}
}

// Fail records one consecutive attempt failure.
func (b *Backoff) Fail() {
	b.attempts++
}

// Next returns the delay before the next attempt: min(attempts*base, limit).
// With no recorded failures the delay is zero.
func (b *Backoff) Next() time.Duration {
	d := time.Duration(b.attempts) * b.base
	if d > b.limit {
		return b.limit
	}
	return d
}

// Reset clears the failure counter. Called when a connection is
// established and after a clean timed reset, so only an unbroken streak
// of failures grows the delay.
func (b *Backoff) Reset() {
	b.attempts = 0
}

// Attempts returns the consecutive failure count.
func (b *Backoff) Attempts() int {
	return b.attempts
}
