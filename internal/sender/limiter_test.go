package sender

import (
	"testing"
	"time"
)

func TestLimiterRefillSaturates(t *testing.T) {
	t.Parallel()
	l := NewRateLimiter(10, 5*time.Second)
	l.available = 0
	l.lastTick = time.Now().Add(-5 * time.Second)

	if !l.Allowed(time.Now()) {
		t.Fatal("Allowed = false after a full window idle")
	}
	if l.available > 10 {
		t.Fatalf("available = %g, exceeds capacity", l.available)
	}
	if l.available < 9.9 {
		t.Fatalf("available = %g, want ~10 after full-window refill", l.available)
	}

	// A much longer idle period still clamps at capacity.
	l.lastTick = time.Now().Add(-time.Hour)
	l.Allowed(time.Now())
	if l.available != 10 {
		t.Fatalf("available = %g, want exactly 10 (clamped)", l.available)
	}
}

func TestLimiterCheckThenTake(t *testing.T) {
	t.Parallel()
	l := NewRateLimiter(2, time.Hour) // negligible refill during the test
	now := time.Now()

	for i := 0; i < 2; i++ {
		if !l.Allowed(now) {
			t.Fatalf("Allowed = false with %g tokens", l.available)
		}
		l.Take()
	}
	if l.Allowed(now) {
		t.Fatalf("Allowed = true with %g tokens", l.available)
	}
	if l.available < 0 {
		t.Fatalf("available = %g, below zero", l.available)
	}
}

func TestLimiterPartialRefill(t *testing.T) {
	t.Parallel()
	// 10 tokens per 5s = 2 tokens/sec.
	l := NewRateLimiter(10, 5*time.Second)
	l.available = 0
	now := time.Now()
	l.lastTick = now.Add(-1 * time.Second)

	l.Allowed(now)
	if l.available < 1.9 || l.available > 2.1 {
		t.Fatalf("available = %g, want ~2 after 1s", l.available)
	}
}
