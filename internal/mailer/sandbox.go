package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/foxzi/journey/internal/store"
)

// SandboxCollection holds messages captured in sandbox mode
const SandboxCollection = "sandbox_messages"

// ErrSimulated is returned for recipients configured to fail
var ErrSimulated = errors.New("simulated delivery failure")

// CapturedMessage is a message stored instead of being delivered
type CapturedMessage struct {
	ID           string    `json:"id" bson:"_id"`
	From         string    `json:"from" bson:"from"`
	To           string    `json:"to" bson:"to"`
	ReplyTo      string    `json:"reply_to,omitempty" bson:"reply_to,omitempty"`
	Subject      string    `json:"subject" bson:"subject"`
	HTML         string    `json:"html,omitempty" bson:"html,omitempty"`
	Text         string    `json:"text,omitempty" bson:"text,omitempty"`
	Kind         string    `json:"kind" bson:"kind"`
	CapturedAt   time.Time `json:"captured_at" bson:"captured_at"`
	SimulatedErr string    `json:"simulated_error,omitempty" bson:"simulated_error,omitempty"`
}

// SandboxSender captures messages in the document store
type SandboxSender struct {
	coll store.Collection
	fail map[string]bool
}

// NewSandboxSender creates a capturing sender. Sends to failRecipients are
// captured and then reported as failed.
func NewSandboxSender(s store.Store, failRecipients []string) *SandboxSender {
	fail := make(map[string]bool, len(failRecipients))
	for _, r := range failRecipients {
		fail[strings.ToLower(strings.TrimSpace(r))] = true
	}
	return &SandboxSender{coll: s.Collection(SandboxCollection), fail: fail}
}

// Name implements Sender
func (s *SandboxSender) Name() string { return "sandbox" }

// Send implements Sender
func (s *SandboxSender) Send(ctx context.Context, msg *Message) error {
	captured := &CapturedMessage{
		ID:         store.NewID(),
		From:       msg.From,
		To:         msg.To,
		ReplyTo:    msg.ReplyTo,
		Subject:    msg.Subject,
		HTML:       msg.HTML,
		Text:       msg.Text,
		Kind:       msg.Kind,
		CapturedAt: time.Now().UTC(),
	}

	failing := s.fail[strings.ToLower(msg.To)]
	if failing {
		captured.SimulatedErr = ErrSimulated.Error()
	}

	if err := s.coll.Insert(ctx, captured.ID, captured); err != nil {
		return fmt.Errorf("failed to capture message: %w", err)
	}

	if failing {
		return ErrSimulated
	}
	return nil
}

// List returns captured messages, oldest first. Empty to matches every recipient.
func (s *SandboxSender) List(ctx context.Context, to string, limit, offset int) ([]*CapturedMessage, error) {
	var filter store.Filter
	if to != "" {
		filter = store.Filter{"to": to}
	}

	messages := []*CapturedMessage{}
	if err := s.coll.Find(ctx, filter, store.FindOptions{Skip: offset, Limit: limit}, &messages); err != nil {
		return nil, fmt.Errorf("failed to list captured messages: %w", err)
	}
	return messages, nil
}

// Clear removes all captured messages
func (s *SandboxSender) Clear(ctx context.Context) (int64, error) {
	n, err := s.coll.DeleteMany(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to clear captured messages: %w", err)
	}
	return n, nil
}
