package email

import "context"

// EmailSender provides a testable abstraction over SES delivery.
type EmailSender interface {
	Send(ctx context.Context, recipient string, msg Message) error
	SendFrom(ctx context.Context, recipient string, msg Message, sender string) error
}

// Message is a rendered email. HTML is optional.
type Message struct {
	Subject string
	Text    string
	HTML    string
}
