package sender

import "time"

// Event types published on the bus.
const (
	EventSent = "sender.sent"
	EventDead = "sender.dead"
)

// SendEvent is the payload for sender.* events.
type SendEvent struct {
	Body    string
	Attempt int
	Lag     time.Duration // set on sent events
	Reason  string        // set on dead events
	At      time.Time
}
