package sender

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// ScheduledQueue is a bounded, time-ordered queue of Messages.
//
// Capacity is enforced only at Accept (the producer boundary). Put re-inserts
// retried items unconditionally, so sustained rate-limiting can grow the
// queue past its capacity; watch the queue size gauge.
//
// Safe for concurrent Accept/Put. Get assumes a single consumer.
type ScheduledQueue struct {
	mu  sync.Mutex
	h   msgHeap
	cap int
	seq uint64

	// wake carries at most one pending "queue became non-empty" signal.
	wake chan struct{}
}

func NewScheduledQueue(capacity int) *ScheduledQueue {
	if capacity <= 0 {
		capacity = 300
	}
	return &ScheduledQueue{cap: capacity, wake: make(chan struct{}, 1)}
}

// Accept admits a new message that is immediately eligible to send.
// It reports false when the queue is at capacity (backpressure): the caller
// decides whether to drop or surface the rejection.
func (q *ScheduledQueue) Accept(now time.Time, body string) bool {
	q.mu.Lock()
	if q.h.Len() >= q.cap {
		q.mu.Unlock()
		return false
	}
	q.seq++
	heap.Push(&q.h, Message{Body: body, SendAt: now, QueuedAt: now, seq: q.seq})
	q.mu.Unlock()
	q.signal()
	return true
}

// Put inserts without a capacity check. The dispatcher uses it to push back
// not-yet-due items and to re-enqueue retries.
func (q *ScheduledQueue) Put(m Message) {
	q.mu.Lock()
	if m.seq == 0 {
		q.seq++
		m.seq = q.seq
	}
	heap.Push(&q.h, m)
	q.mu.Unlock()
	q.signal()
}

// Get removes and returns the earliest-due message, blocking while the queue
// is empty. It returns ctx.Err() when cancelled.
func (q *ScheduledQueue) Get(ctx context.Context) (Message, error) {
	for {
		q.mu.Lock()
		if q.h.Len() > 0 {
			m := heap.Pop(&q.h).(Message)
			q.mu.Unlock()
			return m, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Message{}, ctx.Err()
		case <-q.wake:
			// May be stale (consumer already drained); loop re-checks.
		}
	}
}

// Len reports the current queue depth. Backs the queue size gauge.
func (q *ScheduledQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.h.Len()
}

func (q *ScheduledQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// msgHeap orders by SendAt ascending; equal SendAt falls back to admission
// order so two messages scheduled for the same instant pop FIFO.
type msgHeap []Message

func (h msgHeap) Len() int { return len(h) }
func (h msgHeap) Less(i, j int) bool {
	if h[i].SendAt.Equal(h[j].SendAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].SendAt.Before(h[j].SendAt)
}
func (h msgHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *msgHeap) Push(x any)   { *h = append(*h, x.(Message)) }
func (h *msgHeap) Pop() any {
	old := *h
	n := len(old)
	m := old[n-1]
	*h = old[:n-1]
	return m
}
