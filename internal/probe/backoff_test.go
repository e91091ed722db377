package probe_test

import (
	"testing"
	"time"

	"github.com/dantte-lp/netprobe/internal/probe"
)

func TestBackoffDelayGrowth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"no failures", 0, 0},
		{"1 failure", 1, 500 * time.Millisecond},
		{"2 failures", 2, 1 * time.Second},
		{"3 failures", 3, 1500 * time.Millisecond},
		{"5 failures", 5, 2500 * time.Millisecond},
		{"9 failures", 9, 4500 * time.Millisecond},
		{"10 failures hits cap", 10, 5 * time.Second},
		{"11 failures stays capped", 11, 5 * time.Second},
		{"100 failures stays capped", 100, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bo := probe.NewBackoff(probe.BackoffBase, probe.BackoffCap)
			for range tt.failures {
				bo.Fail()
			}

			if got := bo.Next(); got != tt.want {
				t.Errorf("Next() after %d failures = %v, want %v", tt.failures, got, tt.want)
			}
			if got := bo.Attempts(); got != tt.failures {
				t.Errorf("Attempts() = %d, want %d", got, tt.failures)
			}
		})
	}
}

func TestBackoffReset(t *testing.T) {
	t.Parallel()

	bo := probe.NewBackoff(probe.BackoffBase, probe.BackoffCap)
	bo.Fail()
	bo.Fail()
	bo.Fail()

	bo.Reset()

	if got := bo.Attempts(); got != 0 {
		t.Errorf("Attempts() after Reset = %d, want 0", got)
	}
	if got := bo.Next(); got != 0 {
		t.Errorf("Next() after Reset = %v, want 0", got)
	}

	// Growth restarts from the base after a reset.
	bo.Fail()
	if got := bo.Next(); got != 500*time.Millisecond {
		t.Errorf("Next() after Reset+Fail = %v, want 500ms", got)
	}
}

func TestNewBackoffFallbacks(t *testing.T) {
	t.Parallel()

	// Non-positive base and undersized cap fall back to the defaults.
	bo := probe.NewBackoff(0, 0)
	bo.Fail()
	if got := bo.Next(); got != probe.BackoffBase {
		t.Errorf("Next() with fallback base = %v, want %v", got, probe.BackoffBase)
	}

	for range 100 {
		bo.Fail()
	}
	if got := bo.Next(); got != probe.BackoffCap {
		t.Errorf("Next() with fallback cap = %v, want %v", got, probe.BackoffCap)
	}
}
