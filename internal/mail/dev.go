package mail

import (
	"context"
	"log/slog"
)

// DevSender logs messages instead of delivering them. Used when no Postmark
// token is configured, so development environments work without an account.
type DevSender struct {
	log *slog.Logger
}

func NewDevSender(log *slog.Logger) *DevSender {
	return &DevSender{log: log}
}

func (s *DevSender) SendEmail(ctx context.Context, job Job) error {
	s.log.InfoContext(ctx, "email (dev sender, not delivered)",
		slog.String("to", job.Recipient),
		slog.String("subject", job.Subject),
		slog.String("body", job.BodyHTML),
	)
	return nil
}
