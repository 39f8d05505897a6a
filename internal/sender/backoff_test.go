package sender

import (
	"testing"
	"time"
)

func TestRetryDelayRanges(t *testing.T) {
	t.Parallel()
	tests := []struct {
		attempt int
		min     time.Duration
		max     time.Duration // exclusive
	}{
		{attempt: 0, min: 750 * time.Millisecond, max: 1250 * time.Millisecond},
		{attempt: 1, min: 1500 * time.Millisecond, max: 2000 * time.Millisecond},
		{attempt: 4, min: 6000 * time.Millisecond, max: 6500 * time.Millisecond},
		{attempt: 10, min: 15 * time.Second, max: 15*time.Second + 500*time.Millisecond},
	}

	for _, tt := range tests {
		for i := 0; i < 200; i++ {
			d := retryDelay(tt.attempt)
			if d < tt.min || d >= tt.max {
				t.Fatalf("retryDelay(%d) = %v, want [%v, %v)", tt.attempt, d, tt.min, tt.max)
			}
		}
	}
}

func TestRetryDelayGrowsLinearly(t *testing.T) {
	t.Parallel()
	// Even with maximal jitter on the smaller attempt, a 1-attempt gap keeps
	// delays strictly ordered: 1.5k + 0.5 < 1.5(k+1).
	for k := 1; k < 50; k++ {
		next := retryDelay(k + 1)
		cur := retryDelay(k)
		if next <= cur {
			t.Fatalf("delay(%d)=%v not above delay(%d)=%v", k+1, next, k, cur)
		}
	}
}
