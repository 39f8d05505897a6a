package sender

import (
	"math/rand"
	"time"
)

// retryDelay computes the wait before the next attempt: linear in the
// attempt count with bounded jitter. The first retry waits 0.75s, the k-th
// 1.5*k seconds, each plus up to 0.5s of jitter. No attempt cap lives here;
// the dispatcher enforces MaxAttempts separately.
func retryDelay(attempt int) time.Duration {
	base := 0.75
	if attempt > 0 {
		base = 1.5 * float64(attempt)
	}
	jitter := 0.5 * rand.Float64()
	return time.Duration((base + jitter) * float64(time.Second))
}
