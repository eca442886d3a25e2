// Package mailer sends rendered emails through a configured provider.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/foxzi/journey/internal/metrics"
)

// Message kinds, used for logging and metrics
const (
	KindWelcome      = "welcome"
	KindNotification = "notification"
)

// Message is one email to one recipient
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
	Kind    string
}

// Sender delivers a single message
type Sender interface {
	Send(ctx context.Context, msg *Message) error
	Name() string
}

// Dispatcher fills in sender defaults and reports every send
type Dispatcher struct {
	sender  Sender
	from    string
	replyTo string
	logger  *slog.Logger
}

// NewDispatcher creates a dispatcher over sender. fromName may be empty.
func NewDispatcher(sender Sender, fromEmail, fromName, replyTo string, logger *slog.Logger) *Dispatcher {
	from := fromEmail
	if fromName != "" && fromEmail != "" {
		from = (&mail.Address{Name: fromName, Address: fromEmail}).String()
	}
	return &Dispatcher{
		sender:  sender,
		from:    from,
		replyTo: replyTo,
		logger:  logger,
	}
}

// Send delivers msg and returns the provider error, if any
func (d *Dispatcher) Send(ctx context.Context, msg *Message) error {
	if msg.To == "" {
		return fmt.Errorf("message has no recipient")
	}
	if msg.From == "" {
		msg.From = d.from
	}
	if msg.ReplyTo == "" {
		msg.ReplyTo = d.replyTo
	}

	if err := d.sender.Send(ctx, msg); err != nil {
		metrics.IncEmailsFailed(msg.Kind)
		d.logger.Warn("email send failed",
			"provider", d.sender.Name(),
			"kind", msg.Kind,
			"to", msg.To,
			"error", err,
		)
		return fmt.Errorf("%s: %w", d.sender.Name(), err)
	}

	metrics.IncEmailsSent(msg.Kind)
	d.logger.Debug("email sent",
		"provider", d.sender.Name(),
		"kind", msg.Kind,
		"to", msg.To,
	)
	return nil
}

// Provider returns the name of the underlying sender
func (d *Dispatcher) Provider() string {
	return d.sender.Name()
}
