package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

var ErrSendFailed = errors.New("mail: send failed")

// PostmarkSender delivers mail through Postmark's transactional API.
type PostmarkSender struct {
	client  *postmark.Client
	sender  string
	replyTo string
}

// NewPostmarkSender creates a Postmark-backed sender. Both tokens and the
// sender address are required; missing config should fail startup, not the
// first delivery.
func NewPostmarkSender(serverToken, accountToken, senderEmail, supportEmail string) (*PostmarkSender, error) {
	if serverToken == "" || accountToken == "" {
		return nil, errors.New("mail: postmark tokens are required")
	}
	if senderEmail == "" {
		return nil, errors.New("mail: sender email is required")
	}
	return &PostmarkSender{
		client:  postmark.NewClient(serverToken, accountToken),
		sender:  senderEmail,
		replyTo: supportEmail,
	}, nil
}

func (s *PostmarkSender) SendEmail(ctx context.Context, job Job) error {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.sender,
		ReplyTo:  s.replyTo,
		To:       job.Recipient,
		Subject:  job.Subject,
		HTMLBody: job.BodyHTML,
	})
	if err != nil {
		return errors.Join(ErrSendFailed, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrSendFailed, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
