// Package notify delivers outbound email. Delivery is always decoupled
// from the triggering request: messages are enqueued after the enclosing
// transaction commits and a failed send is logged, never propagated.
package notify

import "context"

// Recipient is one addressee.
type Recipient struct {
	Name  string
	Email string
}

// Message is a rendered email ready for delivery.
type Message struct {
	Subject   string
	PlainText string
	HTML      string
	To        []Recipient
}

// Mailer sends one message. Implementations must be safe for concurrent
// use; the job queue calls Send from multiple workers.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
