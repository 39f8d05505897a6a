package sender

import "time"

// RateLimiter is a token bucket with lazy refill: capacity tokens regenerate
// over window, accumulating up to capacity while idle.
// https://en.wikipedia.org/wiki/Token_bucket
//
// Allowed and Take are deliberately split: Allowed refills and reports
// whether a full token is available, Take consumes one. The split is safe
// only under a single consumer (the dispatcher); a second concurrent caller
// would race between the check and the deduction.
type RateLimiter struct {
	capacity  float64
	window    time.Duration
	available float64
	lastTick  time.Time
}

func NewRateLimiter(capacity int, window time.Duration) *RateLimiter {
	if capacity <= 0 {
		capacity = 10
	}
	if window <= 0 {
		window = 5 * time.Second
	}
	return &RateLimiter{
		capacity:  float64(capacity),
		window:    window,
		available: float64(capacity),
		lastTick:  time.Now(),
	}
}

// Allowed refills the bucket from the time elapsed since the last check and
// reports whether at least one full token is available. It does not consume.
func (l *RateLimiter) Allowed(now time.Time) bool {
	passed := now.Sub(l.lastTick)
	l.lastTick = now
	l.available += passed.Seconds() * l.capacity / l.window.Seconds()
	if l.available > l.capacity {
		l.available = l.capacity
	}
	return l.available >= 1
}

// Take consumes one token. Call only after Allowed reported true.
func (l *RateLimiter) Take() { l.available-- }

// Available reports the current token count (diagnostic only).
func (l *RateLimiter) Available() float64 { return l.available }
