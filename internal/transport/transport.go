// Package transport defines the outbound delivery boundary of the sender.
package transport

import "context"

// Transport delivers one message body to the outside world.
// A non-nil error marks the attempt as failed; the sender schedules a retry.
type Transport interface {
	Send(ctx context.Context, body string) error
}
