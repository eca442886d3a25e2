package mailer

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v3"
)

// ResendSender delivers through the Resend API
type ResendSender struct {
	client *resend.Client
}

// NewResendSender creates a Resend sender
func NewResendSender(apiKey string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey)}
}

// Name implements Sender
func (s *ResendSender) Name() string { return "resend" }

// Send implements Sender
func (s *ResendSender) Send(ctx context.Context, msg *Message) error {
	if _, err := s.client.Emails.SendWithContext(ctx, resendRequest(msg)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func resendRequest(msg *Message) *resend.SendEmailRequest {
	return &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	}
}
