package sender

import (
	"fmt"
	"time"
)

// Message is one send attempt. Values are immutable: a retry is a new
// Message produced by NextAttempt, never a mutation of the original.
type Message struct {
	Body     string
	SendAt   time.Time // earliest moment this attempt may be dispatched
	QueuedAt time.Time // first admission time; stable across retries
	Attempt  int

	// seq is the admission order, used to break SendAt ties (FIFO).
	// A retry keeps the seq of its original admission.
	seq uint64
}

// NextAttempt returns the retry of m, scheduled delay from now.
// QueuedAt and Body carry over so end-to-end lag stays measurable.
func (m Message) NextAttempt(delay time.Duration) Message {
	return Message{
		Body:     m.Body,
		SendAt:   time.Now().Add(delay),
		QueuedAt: m.QueuedAt,
		Attempt:  m.Attempt + 1,
		seq:      m.seq,
	}
}

func (m Message) String() string {
	body := m.Body
	if len(body) > 20 {
		body = body[:17] + "..."
	}
	return fmt.Sprintf("Message(%s, attempt=%d, send_at=now%+.3gs)",
		body, m.Attempt, time.Until(m.SendAt).Seconds())
}
