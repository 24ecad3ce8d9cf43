package mail

import "context"

// EmailSender delivers a single message to its recipient.
type EmailSender interface {
	SendEmail(ctx context.Context, job Job) error
}
