package probe

import (
	"context"
	"time"
)

// Clock abstracts interruptible delays so tests can exercise the
// downtime and backoff paths without real sleeping.
type Clock interface {
	// Sleep blocks for d or until ctx is cancelled, whichever comes
	// first. Returns ctx.Err() when interrupted.
	Sleep(ctx context.Context, d time.Duration) error
}

// realClock sleeps on a timer. Cancellation is observed immediately, not
// at the next polling interval.
type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
