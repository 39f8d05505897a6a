// Package sender is the scheduling/throttling/retry core: a time-ordered
// bounded queue of messages, a token-bucket rate limiter, and a single
// dispatch loop that ties them together.
//
// One dedicated worker drains the queue. Producers compete only at
// ScheduledQueue.Accept, which is the sole capacity gate; everything past
// that point is an internal feedback loop (retries re-enter uncapped).
package sender
