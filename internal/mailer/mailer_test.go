package mailer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/foxzi/journey/internal/metrics"
	"github.com/foxzi/journey/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.OpenBolt(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

type recordingSender struct {
	sent []*Message
	err  error
}

func (r *recordingSender) Name() string { return "recording" }

func (r *recordingSender) Send(ctx context.Context, msg *Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestDispatcher_Defaults(t *testing.T) {
	rec := &recordingSender{}
	d := NewDispatcher(rec, "news@example.com", "Journey", "reply@example.com", testLogger())

	if err := d.Send(context.Background(), &Message{To: "ann@x.com", Subject: "Hi", HTML: "<p>x</p>", Kind: KindWelcome}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(rec.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(rec.sent))
	}
	msg := rec.sent[0]
	if msg.From != `"Journey" <news@example.com>` {
		t.Errorf("From = %q", msg.From)
	}
	if msg.ReplyTo != "reply@example.com" {
		t.Errorf("ReplyTo = %q", msg.ReplyTo)
	}
	if d.Provider() != "recording" {
		t.Errorf("Provider() = %q", d.Provider())
	}
}

func TestDispatcher_Metrics(t *testing.T) {
	m := metrics.New()
	metrics.SetGlobal(m)
	defer metrics.SetGlobal(nil)

	rec := &recordingSender{}
	d := NewDispatcher(rec, "news@example.com", "", "", testLogger())
	ctx := context.Background()

	_ = d.Send(ctx, &Message{To: "a@x.com", Kind: KindNotification})
	rec.err = errors.New("rejected")
	err := d.Send(ctx, &Message{To: "b@x.com", Kind: KindNotification})

	if err == nil || !strings.Contains(err.Error(), "recording: rejected") {
		t.Errorf("Send() error = %v, want wrapped provider error", err)
	}
	if got := testutil.ToFloat64(m.EmailsSentTotal.WithLabelValues(KindNotification)); got != 1 {
		t.Errorf("emails sent = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EmailsFailedTotal.WithLabelValues(KindNotification)); got != 1 {
		t.Errorf("emails failed = %v, want 1", got)
	}
}

func TestDispatcher_NoRecipient(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, "news@example.com", "", "", testLogger())
	if err := d.Send(context.Background(), &Message{}); err == nil {
		t.Error("Send() without recipient should fail")
	}
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("html only", func(t *testing.T) {
		data := string(buildMessage(&Message{
			From:    `"Journey" <news@example.com>`,
			To:      "ann@x.com",
			Subject: "Hello",
			HTML:    "<p>line1\nline2</p>",
		}, now))

		for _, want := range []string{
			"From: \"Journey\" <news@example.com>\r\n",
			"To: ann@x.com\r\n",
			"Subject: Hello\r\n",
			"@example.com>\r\n",
			"Content-Type: text/html; charset=utf-8\r\n",
			"<p>line1\r\nline2</p>",
		} {
			if !strings.Contains(data, want) {
				t.Errorf("message missing %q:\n%s", want, data)
			}
		}
		if strings.Contains(data, "multipart/alternative") {
			t.Error("html-only message should not be multipart")
		}
	})

	t.Run("html and text", func(t *testing.T) {
		data := string(buildMessage(&Message{
			From: "news@example.com", To: "ann@x.com", Subject: "Grüße",
			HTML: "<p>x</p>", Text: "x", ReplyTo: "r@example.com",
		}, now))

		if !strings.Contains(data, "multipart/alternative") {
			t.Error("expected multipart/alternative")
		}
		if !strings.Contains(data, "Reply-To: r@example.com\r\n") {
			t.Error("expected Reply-To header")
		}
		if !strings.Contains(data, "Subject: =?utf-8?q?") {
			t.Errorf("non-ASCII subject should be encoded:\n%s", data)
		}
	})
}

func TestSandboxSender(t *testing.T) {
	st := setupTestStore(t)
	s := NewSandboxSender(st, []string{"Fail@X.com"})
	ctx := context.Background()

	if err := s.Send(ctx, &Message{From: "news@example.com", To: "ann@x.com", Subject: "Hi", HTML: "<p>Ann</p>", Kind: KindWelcome}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if err := s.Send(ctx, &Message{To: "fail@x.com", Subject: "Hi"}); !errors.Is(err, ErrSimulated) {
		t.Errorf("Send(fail) error = %v, want ErrSimulated", err)
	}

	all, err := s.List(ctx, "", 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List() returned %d, want 2", len(all))
	}
	if all[1].SimulatedErr == "" {
		t.Error("failed capture should record the simulated error")
	}

	ann, err := s.List(ctx, "ann@x.com", 10, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ann) != 1 || ann[0].HTML != "<p>Ann</p>" || ann[0].Kind != KindWelcome {
		t.Errorf("List(ann) = %+v", ann)
	}

	n, err := s.Clear(ctx)
	if err != nil || n != 2 {
		t.Errorf("Clear() = %d, %v; want 2, nil", n, err)
	}
}

func TestResendRequest(t *testing.T) {
	req := resendRequest(&Message{
		From: "news@example.com", To: "ann@x.com", ReplyTo: "r@example.com",
		Subject: "Hi", HTML: "<p>x</p>",
	})
	if len(req.To) != 1 || req.To[0] != "ann@x.com" {
		t.Errorf("To = %v", req.To)
	}
	if req.Html != "<p>x</p>" || req.Subject != "Hi" || req.ReplyTo != "r@example.com" {
		t.Errorf("request = %+v", req)
	}
}

func TestSESInput(t *testing.T) {
	in := sesInput(&Message{From: "news@example.com", To: "ann@x.com", Subject: "Hi", HTML: "<p>x</p>"})

	if *in.FromEmailAddress != "news@example.com" {
		t.Errorf("FromEmailAddress = %v", *in.FromEmailAddress)
	}
	if in.Destination.ToAddresses[0] != "ann@x.com" {
		t.Errorf("ToAddresses = %v", in.Destination.ToAddresses)
	}
	simple := in.Content.Simple
	if *simple.Subject.Data != "Hi" || *simple.Body.Html.Data != "<p>x</p>" {
		t.Errorf("content = %+v", simple)
	}
	if simple.Body.Text != nil {
		t.Error("Text body should be nil when no text is set")
	}
	if len(in.ReplyToAddresses) != 0 {
		t.Errorf("ReplyToAddresses = %v, want none", in.ReplyToAddresses)
	}
}
